package nakama

import (
	"github.com/Nektarios-I/Kouppi-sub000/internal/app"
	"github.com/Nektarios-I/Kouppi-sub000/internal/domain"
)

// Stable error codes surfaced to the offending client (never broadcast).
const (
	CodeBadPayload     = "bad_payload"
	CodeNotSeated      = "not_seated"
	CodeNotHost        = "not_host"
	CodeRoomStarted    = "room_started"
	CodeRoomNotStarted = "room_not_started"
	CodeTooFewPlayers  = "too_few_players"
	CodeNotYourTurn    = "not_your_turn"
	CodeNoOpenTurn     = "no_open_turn"
	CodeBetOutOfRange  = "bet_out_of_range"
	CodeKouppiShort    = "kouppi_short_stacked"
	CodeShistriBlocked = "shistri_unavailable"
	CodeNoDecision     = "no_decision_pending"
	CodeLeaveLocked    = "leave_locked"
	CodeInternal       = "internal"
)

// Label is the match label advertised for lobby queries.
type Label struct {
	Open    int    `json:"open"`
	Game    string `json:"game"`
	Phase   string `json:"phase"`
	Private bool   `json:"private"`
}

// Client -> server payloads.

type BetRequest struct {
	Amount int64 `json:"amount"`
}

type DecisionRequest struct {
	Choice string `json:"choice"` // "stay" | "leave"
}

type ChatRequest struct {
	Text string `json:"text"`
}

// Server -> client payloads.

type GameErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type TurnClockEvent struct {
	Remaining       int64  `json:"remaining"`
	Total           int64  `json:"total"`
	CurrentPlayerID string `json:"current_player_id"`
}

type TurnTimeoutEvent struct {
	PlayerID string `json:"player_id"`
	AFKCount int    `json:"afk_count"`
	Kicked   bool   `json:"kicked"`
}

type DecisionOpenedEvent struct {
	Seconds   int64    `json:"seconds"`
	PlayerIDs []string `json:"player_ids"`
}

type DecisionUpdateEvent struct {
	Choices map[string]app.Choice `json:"choices"`
}

type DecisionResolvedEvent struct {
	Stay      []string `json:"stay"`
	Leave     []string `json:"leave"`
	NextRound bool     `json:"next_round"`
}

type RoomClosedEvent struct {
	Reason string `json:"reason"`
}

type ChatMessageEvent struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Text   string `json:"text"`
}

// PlayerSnapshot is one seat in the full room snapshot.
type PlayerSnapshot struct {
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	Bankroll int64  `json:"bankroll"`
	AFKCount int    `json:"afk_count"`
	IsBot    bool   `json:"is_bot"`
	IsHost   bool   `json:"is_host"`
	Online   bool   `json:"online"`
}

// RoomSnapshot is the full authoritative view pushed after every mutation.
type RoomSnapshot struct {
	RoomID          string                `json:"room_id"`
	Stage           string                `json:"stage"`
	Phase           domain.Phase          `json:"phase,omitempty"`
	Round           int                   `json:"round"`
	Pot             int64                 `json:"pot"`
	Players         []PlayerSnapshot      `json:"players"`
	Spectators      int                   `json:"spectators"`
	CurrentPlayerID string                `json:"current_player_id,omitempty"`
	Turn            *domain.Turn          `json:"turn,omitempty"`
	LastResolution  *domain.Resolution    `json:"last_resolution,omitempty"`
	Decision        map[string]app.Choice `json:"decision,omitempty"`
	Chat            []ChatMessageEvent    `json:"chat,omitempty"`
	MaxPlayers      int                   `json:"max_players"`
	HostID          string                `json:"host_id"`
	Tick            int64                 `json:"tick"`
}
