package ports

import "context"

// MatchResult summarizes one player's outcome when a table winds down.
type MatchResult struct {
	RoomID   string
	PlayerID string
	Rounds   int
	Net      int64
}

// StatsPort records match outcomes and rating movement. All calls are made
// after the in-memory transition and broadcast completed; gameplay must not
// depend on them succeeding.
type StatsPort interface {
	// RecordMatchResult persists one player's result for a finished table.
	RecordMatchResult(ctx context.Context, result MatchResult) error

	// UpdateRating applies a rating/standing delta for a player.
	UpdateRating(ctx context.Context, playerID string, delta int64) error
}
