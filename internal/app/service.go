package app

import (
	"errors"

	"github.com/Nektarios-I/Kouppi-sub000/internal/domain"
)

// MinPlayersToStart is the table quorum for opening or continuing a game.
const MinPlayersToStart = 2

var (
	// ErrLeaveLocked rejects a mid-round departure that would dodge a live
	// pot. Only a bankrupt player who is not currently acting may walk.
	ErrLeaveLocked = errors.New("cannot leave while the pot is live")
)

// Service contains the Kouppi use-cases operating on engine state. Methods
// apply one logical step and return the events the coordinator broadcasts.
type Service struct{}

// NewService constructs the use-case service.
func NewService() *Service {
	return &Service{}
}

// BeginMatch opens the first round: shuffle, antes, starter draw. The
// coordinator follows up with EnsureTurn.
func (s *Service) BeginMatch(g *domain.Game) ([]Event, error) {
	if err := g.StartRound(); err != nil {
		return nil, err
	}
	if err := g.Ante(); err != nil {
		return nil, err
	}
	if err := g.DetermineStarter(); err != nil {
		return nil, err
	}
	return []Event{s.roundStartedEvent(g)}, nil
}

// EnsureTurn is the deadlock-prevention drive step: whenever the game sits
// in the round phase with no open turn and nothing awaiting advance, a new
// turn must be started for the current player. A bankrupt player's turn
// auto-resolves inside the engine, so one call can yield a resolution too.
func (s *Service) EnsureTurn(g *domain.Game) ([]Event, error) {
	if g.Phase != domain.PhaseRound || g.Turn != nil || g.AwaitNext {
		return nil, nil
	}
	before := g.LastResolution
	if err := g.StartTurn(); err != nil {
		return nil, err
	}
	events := []Event{s.turnStartedEvent(g)}
	if g.Turn == nil && g.LastResolution != before {
		events = append(events, s.resolutionEvents(g)...)
	}
	return events, nil
}

// Pass resolves the open turn without a bet.
func (s *Service) Pass(g *domain.Game, playerID string) ([]Event, error) {
	if err := g.Pass(playerID); err != nil {
		return nil, err
	}
	return s.resolutionEvents(g), nil
}

// Bet resolves the open turn with a plain bet.
func (s *Service) Bet(g *domain.Game, playerID string, amount int64) ([]Event, error) {
	if err := g.Bet(playerID, amount); err != nil {
		return nil, err
	}
	return s.resolutionEvents(g), nil
}

// Kouppi resolves the open turn with an all-pot bet.
func (s *Service) Kouppi(g *domain.Game, playerID string) ([]Event, error) {
	if err := g.Kouppi(playerID); err != nil {
		return nil, err
	}
	return s.resolutionEvents(g), nil
}

// Shistri resolves the open turn with the wide-gap side bet.
func (s *Service) Shistri(g *domain.Game, playerID string) ([]Event, error) {
	if err := g.Shistri(playerID); err != nil {
		return nil, err
	}
	return s.resolutionEvents(g), nil
}

// Advance moves the rotation past a resolved turn after the review pause.
func (s *Service) Advance(g *domain.Game) error {
	return g.NextPlayer()
}

// StartNextRound rotates the starter and collects antes for a fresh pot.
func (s *Service) StartNextRound(g *domain.Game) ([]Event, error) {
	if err := g.NextRound(); err != nil {
		return nil, err
	}
	if err := g.Ante(); err != nil {
		return nil, err
	}
	return []Event{s.roundStartedEvent(g)}, nil
}

// CanLeave reports whether a player may leave mid-round. With a live pot,
// only a bankrupt player who is not currently acting may go.
func (s *Service) CanLeave(g *domain.Game, playerID string) bool {
	if g == nil || g.Phase != domain.PhaseRound || g.Round.Pot == 0 {
		return true
	}
	p := g.PlayerByID(playerID)
	if p == nil {
		return true
	}
	if p.Bankroll > 0 {
		return false
	}
	return g.Turn == nil || g.Turn.PlayerID != playerID
}

// RemovePlayers reconciles the engine seat list after departures.
func (s *Service) RemovePlayers(g *domain.Game, ids []string, reason string) []Event {
	removed := make(map[string]bool, len(ids))
	for _, id := range ids {
		removed[id] = true
	}
	endedBefore := g.Phase == domain.PhaseRoundEnd
	g.RemovePlayers(removed)

	events := []Event{broadcast(EventPlayersRemoved, PlayersRemovedPayload{PlayerIDs: ids, Reason: reason})}
	if !endedBefore && g.Phase == domain.PhaseRoundEnd {
		events = append(events, s.roundEndedEvent(g))
	}
	return events
}

func (s *Service) bankrolls(g *domain.Game) map[string]int64 {
	out := make(map[string]int64, len(g.Players))
	for _, p := range g.Players {
		out[p.ID] = p.Bankroll
	}
	return out
}

func (s *Service) roundStartedEvent(g *domain.Game) Event {
	return broadcast(EventRoundStarted, RoundStartedPayload{
		Round:     g.RoundNumber,
		StarterID: g.Players[g.Round.StarterIndex].ID,
		Pot:       g.Round.Pot,
		Bankrolls: s.bankrolls(g),
	})
}

func (s *Service) turnStartedEvent(g *domain.Game) Event {
	// On an auto-passed bankrupt turn the Turn is already cleared; rebuild
	// the dealt upcards from the resolution for display.
	var playerID string
	var upcards [2]domain.Card
	if g.Turn != nil {
		playerID, upcards = g.Turn.PlayerID, g.Turn.Upcards
	} else {
		playerID, upcards = g.LastResolution.PlayerID, g.LastResolution.Upcards
	}
	p := g.PlayerByID(playerID)
	betMin, betMax := domain.BetBounds(g.Rules, g.Round.Pot, p.Bankroll)
	return broadcast(EventTurnStarted, TurnStartedPayload{
		PlayerID:   playerID,
		Upcards:    upcards,
		DeadHand:   domain.IsDeadHand(upcards),
		CanShistri: domain.CanShistri(g.Rules, upcards),
		CanKouppi:  p.Bankroll >= g.Round.Pot,
		BetMin:     betMin,
		BetMax:     betMax,
	})
}

func (s *Service) resolutionEvents(g *domain.Game) []Event {
	res := g.LastResolution
	actor := g.PlayerByID(res.PlayerID)
	roundOver := g.Phase == domain.PhaseRoundEnd
	events := []Event{broadcast(EventTurnResolved, TurnResolvedPayload{
		Resolution: *res,
		Pot:        g.Round.Pot,
		Bankroll:   actor.Bankroll,
		RoundOver:  roundOver,
	})}
	if roundOver {
		events = append(events, s.roundEndedEvent(g))
	}
	return events
}

func (s *Service) roundEndedEvent(g *domain.Game) Event {
	return broadcast(EventRoundEnded, RoundEndedPayload{
		Round:     g.RoundNumber,
		Bankrolls: s.bankrolls(g),
	})
}
