package domain

import (
	"errors"
	"fmt"
	"math/rand"
)

var (
	ErrWrongPhase         = errors.New("action not legal in current phase")
	ErrTooFewPlayers      = errors.New("not enough players")
	ErrTableFull          = errors.New("table is full")
	ErrUnknownPlayer      = errors.New("player not found")
	ErrDuplicatePlayer    = errors.New("player already seated")
	ErrNotYourTurn        = errors.New("not the acting player")
	ErrNoOpenTurn         = errors.New("no open turn")
	ErrTurnAlreadyOpen    = errors.New("a turn is already open")
	ErrAwaitingNext       = errors.New("previous turn awaiting advance")
	ErrNotAwaitingNext    = errors.New("no resolved turn to advance past")
	ErrBetOutOfRange      = errors.New("bet amount out of range")
	ErrKouppiShortStacked = errors.New("bankroll cannot cover the pot")
	ErrShistriUnavailable = errors.New("shistri not available on this hand")
	ErrStarterDetermined  = errors.New("starter draw only happens on the first round")
)

// Game is the authoritative engine state for one table. All methods mutate
// the receiver; callers serialize access (one goroutine per room).
type Game struct {
	Seed           int64       `json:"seed"`
	Deck           []Card      `json:"deck"`
	Discard        []Card      `json:"discard"`
	Players        []*Player   `json:"players"`
	CurrentIndex   int         `json:"current_index"`
	Round          Round       `json:"round"`
	Turn           *Turn       `json:"turn,omitempty"`
	Phase          Phase       `json:"phase"`
	AwaitNext      bool        `json:"await_next"`
	LastResolution *Resolution `json:"last_resolution,omitempty"`
	History        []string    `json:"history"`
	Rules          TableRules  `json:"rules"`
	RoundNumber    int         `json:"round_number"`

	rng *rand.Rand
}

// NewGame constructs a lobby-phase game. Equal seeds and equal action
// sequences produce byte-identical states.
func NewGame(seed int64, rules TableRules) *Game {
	return &Game{
		Seed:  seed,
		Phase: PhaseLobby,
		Rules: rules,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

func (g *Game) logf(format string, args ...interface{}) {
	g.History = append(g.History, fmt.Sprintf(format, args...))
}

// CurrentPlayer returns the player whose turn it is, or nil with no players.
func (g *Game) CurrentPlayer() *Player {
	if g.CurrentIndex < 0 || g.CurrentIndex >= len(g.Players) {
		return nil
	}
	return g.Players[g.CurrentIndex]
}

// PlayerByID returns the seated player with the given id, or nil.
func (g *Game) PlayerByID(id string) *Player {
	for _, p := range g.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// AddPlayer seats a player. Only legal in the lobby.
func (g *Game) AddPlayer(p Player) error {
	if g.Phase != PhaseLobby {
		return ErrWrongPhase
	}
	if g.PlayerByID(p.ID) != nil {
		return ErrDuplicatePlayer
	}
	if g.Rules.MaxPlayers > 0 && len(g.Players) >= g.Rules.MaxPlayers {
		return ErrTableFull
	}
	seated := p
	g.Players = append(g.Players, &seated)
	return nil
}

// StartRound opens the first round: fresh shuffled deck, empty pot.
// Callers follow up with Ante, DetermineStarter and StartTurn.
func (g *Game) StartRound() error {
	if g.Phase != PhaseLobby {
		return ErrWrongPhase
	}
	if len(g.Players) < 2 {
		return ErrTooFewPlayers
	}
	deck := NewDeck()
	g.shuffleDeck(deck)
	g.Deck = deck
	g.Discard = nil
	g.RoundNumber = 1
	g.Round = Round{StarterIndex: 0, Pot: 0}
	g.CurrentIndex = 0
	g.Phase = PhaseRound
	g.logf("round 1 started with %d players", len(g.Players))
	return nil
}

// Ante collects min(bankroll, ante) from every seat. A player who cannot
// cover the full ante pays what they have and stays in rotation.
func (g *Game) Ante() error {
	if g.Phase != PhaseRound {
		return ErrWrongPhase
	}
	if g.Turn != nil {
		return ErrTurnAlreadyOpen
	}
	for _, p := range g.Players {
		paid := g.Rules.Ante
		if p.Bankroll < paid {
			paid = p.Bankroll
		}
		p.Bankroll -= paid
		g.Round.Pot += paid
		g.logf("%s antes %d (pot %d)", p.Name, paid, g.Round.Pot)
	}
	return nil
}

// DetermineStarter runs the first-round high-card draw. Every player draws
// one card; the strict-highest rank starts. A tie for the maximum discards
// all drawn cards and redraws for everyone until a unique winner exists.
// Subsequent rounds rotate the starter in NextRound instead.
func (g *Game) DetermineStarter() error {
	if g.Phase != PhaseRound {
		return ErrWrongPhase
	}
	if g.RoundNumber != 1 {
		return ErrStarterDetermined
	}
	for {
		drawn := make([]Card, len(g.Players))
		best, bestIdx, tied := -1, -1, false
		for i := range g.Players {
			drawn[i] = g.drawOne()
			switch {
			case drawn[i].Rank > best:
				best, bestIdx, tied = drawn[i].Rank, i, false
			case drawn[i].Rank == best:
				tied = true
			}
		}
		g.Discard = append(g.Discard, drawn...)
		if !tied {
			g.Round.StarterIndex = bestIdx
			g.CurrentIndex = bestIdx
			g.logf("%s draws %s and starts", g.Players[bestIdx].Name, drawn[bestIdx])
			return nil
		}
		g.logf("starter draw tied on %s, redrawing", RankName(best))
	}
}

// StartTurn deals two upcards to the current player. A bankrupt player still
// sees their cards dealt but the turn resolves immediately as an auto-pass.
func (g *Game) StartTurn() error {
	if g.Phase != PhaseRound {
		return ErrWrongPhase
	}
	if g.Turn != nil {
		return ErrTurnAlreadyOpen
	}
	if g.AwaitNext {
		return ErrAwaitingNext
	}
	p := g.CurrentPlayer()
	if p == nil {
		return ErrUnknownPlayer
	}
	cards := g.draw(2)
	g.Turn = &Turn{PlayerID: p.ID, Upcards: [2]Card{cards[0], cards[1]}}
	g.logf("%s is dealt %s and %s", p.Name, cards[0], cards[1])
	if p.Bankroll == 0 {
		g.resolveTurn(ResolvePass, 0, nil, true)
	}
	return nil
}

// Pass closes the open turn without a bet.
func (g *Game) Pass(playerID string) error {
	if err := g.checkActor(playerID); err != nil {
		return err
	}
	g.resolveTurn(ResolvePass, 0, nil, false)
	return nil
}

// Bet stakes a plain bet against the open interval.
func (g *Game) Bet(playerID string, amount int64) error {
	if err := g.checkActor(playerID); err != nil {
		return err
	}
	p := g.CurrentPlayer()
	if !BetLegal(g.Rules, g.Round.Pot, p.Bankroll, amount) {
		return ErrBetOutOfRange
	}
	reveal := g.drawOne()
	g.resolveTurn(ResolveBet, amount, &reveal, false)
	return nil
}

// Kouppi is a forced bet of the entire pot and needs a covering bankroll.
func (g *Game) Kouppi(playerID string) error {
	if err := g.checkActor(playerID); err != nil {
		return err
	}
	p := g.CurrentPlayer()
	if p.Bankroll < g.Round.Pot {
		return ErrKouppiShortStacked
	}
	reveal := g.drawOne()
	g.resolveTurn(ResolveKouppi, g.Round.Pot, &reveal, false)
	return nil
}

// Shistri is the wide-gap side bet: small stake, whole pot on a win.
func (g *Game) Shistri(playerID string) error {
	if err := g.checkActor(playerID); err != nil {
		return err
	}
	if !CanShistri(g.Rules, g.Turn.Upcards) {
		return ErrShistriUnavailable
	}
	p := g.CurrentPlayer()
	stake := ShistriStake(g.Rules, g.Round.Pot, p.Bankroll)
	reveal := g.drawOne()
	g.resolveTurn(ResolveShistri, stake, &reveal, false)
	return nil
}

func (g *Game) checkActor(playerID string) error {
	if g.Phase != PhaseRound {
		return ErrWrongPhase
	}
	if g.Turn == nil {
		return ErrNoOpenTurn
	}
	if g.Turn.PlayerID != playerID {
		return ErrNotYourTurn
	}
	return nil
}

// resolveTurn settles the open turn: pays out or collects the stake, moves
// the turn's cards to the discard pile and records the resolution. A pot
// emptied by the payout ends the round through the general pot==0 rule;
// otherwise the engine waits for an explicit NextPlayer.
func (g *Game) resolveTurn(kind ResolutionKind, amount int64, reveal *Card, auto bool) {
	turn := g.Turn
	p := g.PlayerByID(turn.PlayerID)
	won := false
	if reveal != nil {
		won = WinsInterval(turn.Upcards, *reveal)
		turn.Reveal = reveal
		turn.BetAmount = amount
	}

	low, high := SortedRanks(turn.Upcards)
	switch {
	case reveal == nil:
		if auto {
			g.logf("%s is bankrupt and auto-passes", p.Name)
		} else {
			g.logf("%s passes on %s/%s", p.Name, turn.Upcards[0], turn.Upcards[1])
		}
	case won && kind == ResolveShistri:
		// Shistri pays the entire pot, not the stake.
		p.Bankroll += g.Round.Pot
		g.logf("%s shistri for %d, reveals %s and sweeps the pot of %d", p.Name, amount, *reveal, g.Round.Pot)
		g.Round.Pot = 0
	case won:
		g.Round.Pot -= amount
		p.Bankroll += amount
		g.logf("%s %ss %d on %s/%s, reveals %s and wins (pot %d)", p.Name, kind, amount, turn.Upcards[0], turn.Upcards[1], *reveal, g.Round.Pot)
	default:
		if IsDeadHand(turn.Upcards) {
			g.logf("%s bets %d on a dead hand %s/%s", p.Name, amount, RankName(low), RankName(high))
		}
		g.Round.Pot += amount
		p.Bankroll -= amount
		g.logf("%s %ss %d on %s/%s, reveals %s and loses (pot %d)", p.Name, kind, amount, turn.Upcards[0], turn.Upcards[1], *reveal, g.Round.Pot)
	}

	g.Discard = append(g.Discard, turn.Upcards[0], turn.Upcards[1])
	if reveal != nil {
		g.Discard = append(g.Discard, *reveal)
	}
	g.LastResolution = &Resolution{
		PlayerID: turn.PlayerID,
		Kind:     kind,
		Upcards:  turn.Upcards,
		Reveal:   reveal,
		Amount:   amount,
		Won:      won,
		AutoPass: auto,
	}
	g.Turn = nil

	if g.Round.Pot == 0 {
		g.Phase = PhaseRoundEnd
		g.AwaitNext = false
		g.logf("pot is empty, round %d over", g.RoundNumber)
		return
	}
	g.AwaitNext = true
}

// NextPlayer advances the rotation past a resolved turn. It deliberately
// does not start the next turn; that is the coordinator's drive step.
func (g *Game) NextPlayer() error {
	if g.Phase != PhaseRound {
		return ErrWrongPhase
	}
	if !g.AwaitNext {
		return ErrNotAwaitingNext
	}
	g.AwaitNext = false
	g.CurrentIndex = (g.CurrentIndex + 1) % len(g.Players)
	return nil
}

// NextRound rotates the starter and re-enters the round phase with an empty
// pot. Callers follow up with Ante and StartTurn.
func (g *Game) NextRound() error {
	if g.Phase != PhaseRoundEnd {
		return ErrWrongPhase
	}
	if len(g.Players) < 2 {
		return ErrTooFewPlayers
	}
	g.RoundNumber++
	g.Round.StarterIndex = (g.Round.StarterIndex + 1) % len(g.Players)
	g.Round.Pot = 0
	g.CurrentIndex = g.Round.StarterIndex
	g.Turn = nil
	g.AwaitNext = false
	g.Phase = PhaseRound
	g.logf("round %d started, %s opens", g.RoundNumber, g.Players[g.CurrentIndex].Name)
	return nil
}

// RemovePlayers reconciles the seat list after departures: survivors keep
// their bankrolls and relative order, indices are clamped into the smaller
// list and a turn held by a departing player is cleared. A lone survivor of
// a live pot is awarded it outright and the round is forced to end.
func (g *Game) RemovePlayers(removed map[string]bool) {
	if len(removed) == 0 {
		return
	}
	if g.Turn != nil && removed[g.Turn.PlayerID] {
		g.Discard = append(g.Discard, g.Turn.Upcards[0], g.Turn.Upcards[1])
		g.Turn = nil
		g.AwaitNext = false
	}

	survivors := make([]*Player, 0, len(g.Players))
	currentShift, starterShift := 0, 0
	for i, p := range g.Players {
		if removed[p.ID] {
			g.logf("%s leaves the table", p.Name)
			if i < g.CurrentIndex {
				currentShift++
			}
			if i < g.Round.StarterIndex {
				starterShift++
			}
			continue
		}
		survivors = append(survivors, p)
	}
	g.Players = survivors
	if len(survivors) == 0 {
		g.CurrentIndex = 0
		g.Round.StarterIndex = 0
		return
	}

	g.CurrentIndex = (g.CurrentIndex - currentShift) % len(survivors)
	if g.CurrentIndex < 0 {
		g.CurrentIndex = 0
	}
	if g.CurrentIndex >= len(survivors) {
		g.CurrentIndex = 0
	}
	g.Round.StarterIndex = (g.Round.StarterIndex - starterShift) % len(survivors)
	if g.Round.StarterIndex < 0 || g.Round.StarterIndex >= len(survivors) {
		g.Round.StarterIndex = 0
	}

	if len(survivors) == 1 && g.Round.Pot > 0 {
		lone := survivors[0]
		lone.Bankroll += g.Round.Pot
		g.logf("%s is alone at the table and takes the pot of %d", lone.Name, g.Round.Pot)
		g.Round.Pot = 0
		g.Phase = PhaseRoundEnd
		g.AwaitNext = false
	}
}
