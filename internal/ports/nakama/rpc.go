package nakama

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/Nektarios-I/Kouppi-sub000/internal/app"
	"github.com/Nektarios-I/Kouppi-sub000/internal/registry"

	"github.com/heroiclabs/nakama-common/runtime"
)

var (
	errUnauthenticated = runtime.NewError("unauthenticated", 16) // UNAUTHENTICATED
	errBadRPCPayload   = runtime.NewError("invalid payload", 3)  // INVALID_ARGUMENT
	errRPCInternal     = runtime.NewError("internal error", 13)  // INTERNAL
)

// CreateRoomRequest selects the stake tier for a new table. A non-empty
// secret makes the room private.
type CreateRoomRequest struct {
	Tier   string `json:"tier"`
	Secret string `json:"secret"`
}

type CreateRoomResponse struct {
	MatchID string `json:"match_id"`
}

// QuickJoinResponse is returned when a client asks for any open table.
type QuickJoinResponse struct {
	MatchID string `json:"match_id"`
	IsNew   bool   `json:"is_new"`
}

type ListRoomsResponse struct {
	Rooms []registry.RoomInfo `json:"rooms"`
}

// VoiceTokenRequest asks for a signed voice-channel token.
type VoiceTokenRequest struct {
	Action string `json:"action"` // "login" | "join"
	RoomID string `json:"room_id"`
}

type VoiceTokenResponse struct {
	Token string `json:"token"`
}

// RegisterRPCs registers the Kouppi RPC endpoints. The registry is shared
// with the match handlers so listings reflect live membership.
func RegisterRPCs(initializer runtime.Initializer, reg *registry.Registry) error {
	if err := initializer.RegisterRpc(RpcCreateRoom, rpcCreateRoom); err != nil {
		return err
	}
	if err := initializer.RegisterRpc(RpcQuickJoin, rpcQuickJoin); err != nil {
		return err
	}
	if err := initializer.RegisterRpc(RpcListRooms, makeRpcListRooms(reg)); err != nil {
		return err
	}
	return initializer.RegisterRpc(RpcVoiceToken, rpcVoiceToken)
}

// rpcCreateRoom creates an authoritative match for the requested stake tier.
// The caller becomes the host; seating happens in MatchJoin.
func rpcCreateRoom(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, ok := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if !ok || userID == "" {
		return "", errUnauthenticated
	}

	var req CreateRoomRequest
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return "", errBadRPCPayload
		}
	}

	matchID, err := nk.MatchCreate(ctx, MatchNameKouppi, map[string]interface{}{
		"tier":    req.Tier,
		"secret":  req.Secret,
		"host_id": userID,
	})
	if err != nil {
		logger.Error("rpcCreateRoom [User:%s]: Failed to create match: %v", userID, err)
		return "", errRPCInternal
	}

	logger.Info("rpcCreateRoom [User:%s]: Created match %s (tier=%q)", userID, matchID, req.Tier)
	b, _ := json.Marshal(CreateRoomResponse{MatchID: matchID})
	return string(b), nil
}

// rpcQuickJoin finds a public lobby-stage table with an open seat, creating
// one when nothing suitable exists.
func rpcQuickJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, ok := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if !ok || userID == "" {
		return "", errUnauthenticated
	}

	query := "+label.open:>=1 +label.game:kouppi +label.phase:lobby +label.private:false"
	limit := 10
	authoritative := true
	minSize := 0
	maxSize := 8

	matches, err := nk.MatchList(ctx, limit, authoritative, "", &minSize, &maxSize, query)
	if err != nil {
		logger.Error("rpcQuickJoin [User:%s]: Failed to list matches: %v", userID, err)
		return "", errRPCInternal
	}

	if len(matches) > 0 {
		b, _ := json.Marshal(QuickJoinResponse{MatchID: matches[0].MatchId, IsNew: false})
		return string(b), nil
	}

	matchID, err := nk.MatchCreate(ctx, MatchNameKouppi, map[string]interface{}{
		"host_id": userID,
	})
	if err != nil {
		logger.Error("rpcQuickJoin [User:%s]: Failed to create match: %v", userID, err)
		return "", errRPCInternal
	}

	logger.Info("rpcQuickJoin [User:%s]: Created new match %s", userID, matchID)
	b, _ := json.Marshal(QuickJoinResponse{MatchID: matchID, IsNew: true})
	return string(b), nil
}

// makeRpcListRooms serves the lobby browsing view straight from the shared
// registry, no match queries needed.
func makeRpcListRooms(reg *registry.Registry) func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	return func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
		if userID, ok := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string); !ok || userID == "" {
			return "", errUnauthenticated
		}

		b, err := json.Marshal(ListRoomsResponse{Rooms: reg.List()})
		if err != nil {
			logger.Error("rpcListRooms: Failed to marshal listing: %v", err)
			return "", errRPCInternal
		}
		return string(b), nil
	}
}

// rpcVoiceToken signs a token for the per-table voice channel.
func rpcVoiceToken(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, ok := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if !ok || userID == "" {
		return "", errUnauthenticated
	}

	var req VoiceTokenRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", errBadRPCPayload
	}

	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	service := app.NewVoiceService(env["kouppi_voice_secret"], env["kouppi_voice_issuer"], env["kouppi_voice_domain"])

	token, err := service.GenerateToken(userID, req.Action, req.RoomID)
	if err != nil {
		logger.Warn("rpcVoiceToken [User:%s]: Token generation failed: %v", userID, err)
		return "", errBadRPCPayload
	}

	b, _ := json.Marshal(VoiceTokenResponse{Token: token})
	return string(b), nil
}
