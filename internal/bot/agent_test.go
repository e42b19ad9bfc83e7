package bot

import (
	"testing"

	"github.com/Nektarios-I/Kouppi-sub000/internal/domain"
)

func newBotGame(t *testing.T, upcards [2]domain.Card) *domain.Game {
	t.Helper()
	g := domain.NewGame(1, domain.DefaultRules())
	botID := GetIdentity(0).UserID
	if err := g.AddPlayer(domain.Player{ID: botID, Name: "bot", IsBot: true, Bankroll: 100}); err != nil {
		t.Fatalf("add player: %v", err)
	}
	if err := g.AddPlayer(domain.Player{ID: "human", Name: "human", Bankroll: 100}); err != nil {
		t.Fatalf("add player: %v", err)
	}
	if err := g.StartRound(); err != nil {
		t.Fatalf("start round: %v", err)
	}
	if err := g.Ante(); err != nil {
		t.Fatalf("ante: %v", err)
	}
	g.CurrentIndex = 0
	g.Deck = append([]domain.Card{upcards[0], upcards[1]}, g.Deck...)
	if err := g.StartTurn(); err != nil {
		t.Fatalf("start turn: %v", err)
	}
	return g
}

func TestIsBot(t *testing.T) {
	if !IsBot(GetIdentity(0).UserID) {
		t.Fatalf("identity user id should be a bot id")
	}
	if IsBot("user-1") {
		t.Fatalf("plain user id flagged as bot")
	}
}

func TestDecidePassesOnDeadHand(t *testing.T) {
	g := newBotGame(t, [2]domain.Card{{Suit: "S", Rank: 7}, {Suit: "H", Rank: 7}})
	agent := NewAgent(GetIdentity(0).UserID, 1)

	move := agent.Decide(g)
	if move.Kind != domain.ResolvePass {
		t.Fatalf("move = %+v, want pass on a pair", move)
	}
}

func TestDecideTakesShistriOnWideGap(t *testing.T) {
	g := newBotGame(t, [2]domain.Card{{Suit: "S", Rank: 2}, {Suit: "H", Rank: 12}})
	agent := NewAgent(GetIdentity(0).UserID, 1)

	move := agent.Decide(g)
	if move.Kind != domain.ResolveShistri {
		t.Fatalf("move = %+v, want shistri on a wide gap", move)
	}
}

func TestDecideBetsPlayableInterval(t *testing.T) {
	g := newBotGame(t, [2]domain.Card{{Suit: "S", Rank: 4}, {Suit: "H", Rank: 9}})
	g.Rules.ShistriEnabled = false
	agent := NewAgent(GetIdentity(0).UserID, 1)

	move := agent.Decide(g)
	if move.Kind != domain.ResolveBet {
		t.Fatalf("move = %+v, want a plain bet", move)
	}
	if !domain.BetLegal(g.Rules, g.Round.Pot, g.PlayerByID(agent.UserID).Bankroll, move.Amount) {
		t.Fatalf("bot chose an illegal amount %d", move.Amount)
	}
}

func TestDecideStayLeavesWhenBroke(t *testing.T) {
	g := newBotGame(t, [2]domain.Card{{Suit: "S", Rank: 4}, {Suit: "H", Rank: 9}})
	agent := NewAgent(GetIdentity(0).UserID, 1)

	if !agent.DecideStay(g) {
		t.Fatalf("funded bot should stay")
	}
	g.PlayerByID(agent.UserID).Bankroll = 0
	if agent.DecideStay(g) {
		t.Fatalf("broke bot should leave")
	}
}
