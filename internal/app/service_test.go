package app

import (
	"testing"

	"github.com/Nektarios-I/Kouppi-sub000/internal/domain"
)

func newTestGame(t *testing.T, seed int64, bankrolls ...int64) *domain.Game {
	t.Helper()
	g := domain.NewGame(seed, domain.DefaultRules())
	names := []string{"u1", "u2", "u3", "u4"}
	for i, b := range bankrolls {
		if err := g.AddPlayer(domain.Player{ID: names[i], Name: names[i], Bankroll: b}); err != nil {
			t.Fatalf("add player: %v", err)
		}
	}
	return g
}

func TestBeginMatchCollectsAntesAndPicksStarter(t *testing.T) {
	svc := NewService()
	g := newTestGame(t, 42, 100, 100)

	events, err := svc.BeginMatch(g)
	if err != nil {
		t.Fatalf("begin match: %v", err)
	}
	if g.Round.Pot != 20 {
		t.Fatalf("pot = %d, want 20", g.Round.Pot)
	}
	if len(events) != 1 || events[0].Kind != EventRoundStarted {
		t.Fatalf("events = %+v, want one round_started", events)
	}
	payload := events[0].Payload.(RoundStartedPayload)
	if payload.Round != 1 || payload.Pot != 20 {
		t.Fatalf("payload = %+v", payload)
	}
	if payload.Bankrolls["u1"] != 90 || payload.Bankrolls["u2"] != 90 {
		t.Fatalf("bankrolls = %v, want 90 each", payload.Bankrolls)
	}
}

func TestEnsureTurnDrivesTurnlessRound(t *testing.T) {
	svc := NewService()
	g := newTestGame(t, 42, 100, 100)
	if _, err := svc.BeginMatch(g); err != nil {
		t.Fatalf("begin match: %v", err)
	}

	events, err := svc.EnsureTurn(g)
	if err != nil {
		t.Fatalf("ensure turn: %v", err)
	}
	if g.Turn == nil {
		t.Fatalf("round with no open turn must gain one within one drive step")
	}
	if len(events) != 1 || events[0].Kind != EventTurnStarted {
		t.Fatalf("events = %+v, want one turn_started", events)
	}

	// A second drive step with an open turn is a no-op.
	events, err = svc.EnsureTurn(g)
	if err != nil || events != nil {
		t.Fatalf("drive step with open turn: events=%v err=%v", events, err)
	}
}

func TestEnsureTurnAutoPassesBankruptPlayer(t *testing.T) {
	svc := NewService()
	g := newTestGame(t, 42, 10, 100)
	if _, err := svc.BeginMatch(g); err != nil {
		t.Fatalf("begin match: %v", err)
	}
	g.CurrentIndex = 0 // u1 paid their whole stack into the ante

	events, err := svc.EnsureTurn(g)
	if err != nil {
		t.Fatalf("ensure turn: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want turn_started + turn_resolved", len(events))
	}
	if events[0].Kind != EventTurnStarted || events[1].Kind != EventTurnResolved {
		t.Fatalf("event kinds = %s, %s", events[0].Kind, events[1].Kind)
	}
	resolved := events[1].Payload.(TurnResolvedPayload)
	if !resolved.Resolution.AutoPass {
		t.Fatalf("expected auto-pass resolution, got %+v", resolved.Resolution)
	}
}

func TestBetEmitsResolutionAndRoundEnd(t *testing.T) {
	svc := NewService()
	g := newTestGame(t, 42, 100, 100)
	if _, err := svc.BeginMatch(g); err != nil {
		t.Fatalf("begin match: %v", err)
	}
	g.Deck = append([]domain.Card{
		{Suit: "S", Rank: 2}, {Suit: "H", Rank: 13},
		{Suit: "D", Rank: 8},
	}, g.Deck...)
	if _, err := svc.EnsureTurn(g); err != nil {
		t.Fatalf("ensure turn: %v", err)
	}

	events, err := svc.Kouppi(g, g.CurrentPlayer().ID)
	if err != nil {
		t.Fatalf("kouppi: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want turn_resolved + round_ended", len(events))
	}
	resolved := events[0].Payload.(TurnResolvedPayload)
	if !resolved.RoundOver || resolved.Pot != 0 {
		t.Fatalf("winning kouppi should end the round: %+v", resolved)
	}
	if events[1].Kind != EventRoundEnded {
		t.Fatalf("second event = %s, want round_ended", events[1].Kind)
	}
}

func TestCanLeaveMidRound(t *testing.T) {
	svc := NewService()
	g := newTestGame(t, 42, 10, 100, 100)
	if _, err := svc.BeginMatch(g); err != nil {
		t.Fatalf("begin match: %v", err)
	}
	g.CurrentIndex = 1
	if _, err := svc.EnsureTurn(g); err != nil {
		t.Fatalf("ensure turn: %v", err)
	}

	if svc.CanLeave(g, "u2") {
		t.Fatalf("funded acting player must not leave a live pot")
	}
	if svc.CanLeave(g, "u3") {
		t.Fatalf("funded player must not leave a live pot")
	}
	if !svc.CanLeave(g, "u1") {
		t.Fatalf("bankrupt non-acting player may leave")
	}

	// Once the pot closes, anyone may go.
	g.Round.Pot = 0
	g.Phase = domain.PhaseRoundEnd
	if !svc.CanLeave(g, "u3") {
		t.Fatalf("leaving after round end must be allowed")
	}
}

func TestRemovePlayersEmitsRoundEndForLoneSurvivor(t *testing.T) {
	svc := NewService()
	g := newTestGame(t, 42, 100, 100)
	if _, err := svc.BeginMatch(g); err != nil {
		t.Fatalf("begin match: %v", err)
	}

	events := svc.RemovePlayers(g, []string{"u1"}, "afk_kick")
	if events[0].Kind != EventPlayersRemoved {
		t.Fatalf("first event = %s, want players_removed", events[0].Kind)
	}
	if len(events) != 2 || events[1].Kind != EventRoundEnded {
		t.Fatalf("lone survivor pot award should end the round, events=%+v", events)
	}
	if g.PlayerByID("u2").Bankroll != 110 {
		t.Fatalf("survivor bankroll = %d, want 110", g.PlayerByID("u2").Bankroll)
	}
}

func TestStartNextRoundRotatesAndAntes(t *testing.T) {
	svc := NewService()
	g := newTestGame(t, 42, 100, 100, 100)
	if _, err := svc.BeginMatch(g); err != nil {
		t.Fatalf("begin match: %v", err)
	}
	g.Deck = append([]domain.Card{
		{Suit: "S", Rank: 2}, {Suit: "H", Rank: 13},
		{Suit: "D", Rank: 8},
	}, g.Deck...)
	if _, err := svc.EnsureTurn(g); err != nil {
		t.Fatalf("ensure turn: %v", err)
	}
	if _, err := svc.Kouppi(g, g.CurrentPlayer().ID); err != nil {
		t.Fatalf("kouppi: %v", err)
	}

	events, err := svc.StartNextRound(g)
	if err != nil {
		t.Fatalf("start next round: %v", err)
	}
	if g.RoundNumber != 2 || g.Round.Pot != 30 {
		t.Fatalf("round=%d pot=%d, want round 2 with fresh antes", g.RoundNumber, g.Round.Pot)
	}
	if len(events) != 1 || events[0].Kind != EventRoundStarted {
		t.Fatalf("events = %+v", events)
	}
}
