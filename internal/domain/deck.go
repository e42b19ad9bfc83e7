package domain

var suits = []string{"S", "H", "D", "C"}

// NewDeck returns an ordered 52-card deck, aces low.
func NewDeck() []Card {
	deck := make([]Card, 0, 52)
	for _, s := range suits {
		for r := 1; r <= 13; r++ {
			deck = append(deck, Card{Suit: s, Rank: r})
		}
	}
	return deck
}

// shuffleDeck is a Fisher-Yates shuffle driven by the game's seeded rng so
// equal seeds always produce equal deck orders.
func (g *Game) shuffleDeck(deck []Card) {
	g.rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
}

// draw removes n cards from the front of the deck. When the deck runs dry it
// folds the discard pile back in (emergency reshuffle) before completing the
// draw; the result is short only if deck and discard together cannot cover n.
func (g *Game) draw(n int) []Card {
	if len(g.Deck) < n && len(g.Discard) > 0 {
		g.logf("deck exhausted, reshuffling %d discarded cards", len(g.Discard))
		reshuffled := make([]Card, len(g.Discard))
		copy(reshuffled, g.Discard)
		g.shuffleDeck(reshuffled)
		g.Deck = append(g.Deck, reshuffled...)
		g.Discard = g.Discard[:0]
	}
	if n > len(g.Deck) {
		n = len(g.Deck)
	}
	drawn := make([]Card, n)
	copy(drawn, g.Deck[:n])
	g.Deck = g.Deck[n:]
	return drawn
}

// drawOne draws a single card, reshuffling the discard pile if needed.
func (g *Game) drawOne() Card {
	cards := g.draw(1)
	if len(cards) == 0 {
		// 52 cards against at most 3 in play; unreachable in a legal game.
		panic("kouppi: deck and discard both empty")
	}
	return cards[0]
}
