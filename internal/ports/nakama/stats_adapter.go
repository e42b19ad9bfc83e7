package nakama

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Nektarios-I/Kouppi-sub000/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

const (
	matchResultCollection = "match_results"
	ratingCollection      = "stats"
	ratingKey             = "rating"
)

// NakamaStatsAdapter persists match outcomes and standing in Nakama storage.
// Callers treat writes as fire-and-forget; errors are logged, not acted on.
type NakamaStatsAdapter struct {
	nk runtime.NakamaModule
}

// NewNakamaStatsAdapter creates a new stats adapter.
func NewNakamaStatsAdapter(nk runtime.NakamaModule) *NakamaStatsAdapter {
	return &NakamaStatsAdapter{nk: nk}
}

// RecordMatchResult appends one player's result for a finished table. Keyed
// by room id, so a retried settlement overwrites instead of duplicating.
func (a *NakamaStatsAdapter) RecordMatchResult(ctx context.Context, result ports.MatchResult) error {
	value, err := json.Marshal(map[string]interface{}{
		"room_id":     result.RoomID,
		"rounds":      result.Rounds,
		"net":         result.Net,
		"finished_at": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal match result: %w", err)
	}

	_, err = a.nk.StorageWrite(ctx, []*runtime.StorageWrite{
		{
			Collection:      matchResultCollection,
			Key:             result.RoomID,
			UserID:          result.PlayerID,
			Value:           string(value),
			PermissionRead:  runtime.STORAGE_PERMISSION_OWNER_READ,
			PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to write match result: %w", err)
	}
	return nil
}

// UpdateRating applies a standing delta with a versioned read-modify-write.
// A concurrent writer rejects the version; the caller's write is dropped,
// which is acceptable for a best-effort standing number.
func (a *NakamaStatsAdapter) UpdateRating(ctx context.Context, playerID string, delta int64) error {
	if delta == 0 {
		return nil
	}

	objects, err := a.nk.StorageRead(ctx, []*runtime.StorageRead{
		{Collection: ratingCollection, Key: ratingKey, UserID: playerID},
	})
	if err != nil {
		return fmt.Errorf("failed to read rating: %w", err)
	}

	var rating int64
	version := "*"
	if len(objects) > 0 {
		var stored struct {
			Rating int64 `json:"rating"`
		}
		if err := json.Unmarshal([]byte(objects[0].Value), &stored); err != nil {
			return fmt.Errorf("failed to unmarshal rating: %w", err)
		}
		rating = stored.Rating
		version = objects[0].Version
	}
	rating += delta

	value, err := json.Marshal(map[string]int64{"rating": rating})
	if err != nil {
		return fmt.Errorf("failed to marshal rating: %w", err)
	}

	_, err = a.nk.StorageWrite(ctx, []*runtime.StorageWrite{
		{
			Collection:      ratingCollection,
			Key:             ratingKey,
			UserID:          playerID,
			Value:           string(value),
			Version:         version,
			PermissionRead:  runtime.STORAGE_PERMISSION_PUBLIC_READ,
			PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to write rating: %w", err)
	}
	return nil
}

var _ ports.StatsPort = (*NakamaStatsAdapter)(nil)
