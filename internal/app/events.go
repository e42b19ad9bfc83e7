package app

import "github.com/Nektarios-I/Kouppi-sub000/internal/domain"

// EventKind identifies emitted game events for transport dispatch.
type EventKind string

const (
	EventRoundStarted   EventKind = "round_started"
	EventTurnStarted    EventKind = "turn_started"
	EventTurnResolved   EventKind = "turn_resolved"
	EventRoundEnded     EventKind = "round_ended"
	EventPlayersRemoved EventKind = "players_removed"
)

// Event is a game event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string // user IDs; empty means broadcast
}

type RoundStartedPayload struct {
	Round     int              `json:"round"`
	StarterID string           `json:"starter_id"`
	Pot       int64            `json:"pot"`
	Bankrolls map[string]int64 `json:"bankrolls"`
}

// TurnStartedPayload describes a freshly dealt turn, including the action
// space so clients can render legal choices without re-deriving the rules.
type TurnStartedPayload struct {
	PlayerID   string         `json:"player_id"`
	Upcards    [2]domain.Card `json:"upcards"`
	DeadHand   bool           `json:"dead_hand"`
	CanShistri bool           `json:"can_shistri"`
	CanKouppi  bool           `json:"can_kouppi"`
	BetMin     int64          `json:"bet_min"`
	BetMax     int64          `json:"bet_max"`
}

type TurnResolvedPayload struct {
	Resolution domain.Resolution `json:"resolution"`
	Pot        int64             `json:"pot"`
	Bankroll   int64             `json:"bankroll"`
	RoundOver  bool              `json:"round_over"`
}

type RoundEndedPayload struct {
	Round     int              `json:"round"`
	Bankrolls map[string]int64 `json:"bankrolls"`
}

type PlayersRemovedPayload struct {
	PlayerIDs []string `json:"player_ids"`
	Reason    string   `json:"reason"`
}

func broadcast(kind EventKind, payload any) Event {
	return Event{Kind: kind, Payload: payload}
}
