package nakama

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/Nektarios-I/Kouppi-sub000/internal/registry"

	"github.com/form3tech-oss/jwt-go"
	"github.com/heroiclabs/nakama-common/runtime"
)

func voiceCtx(userID string) context.Context {
	ctx := context.WithValue(context.Background(), runtime.RUNTIME_CTX_USER_ID, userID)
	return context.WithValue(ctx, runtime.RUNTIME_CTX_ENV, map[string]string{
		"kouppi_voice_secret": "test-secret",
		"kouppi_voice_issuer": "issuer",
		"kouppi_voice_domain": "example.com",
	})
}

func TestRpcVoiceTokenGeneratesJoinToken(t *testing.T) {
	payload := `{"action":"join","room_id":"room-9"}`
	raw, err := rpcVoiceToken(voiceCtx("user123"), noopLogger{}, nil, nil, payload)
	if err != nil {
		t.Fatalf("rpcVoiceToken error: %v", err)
	}

	var resp VoiceTokenResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected token in response")
	}

	parsed, err := jwt.Parse(resp.Token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte("test-secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token did not validate: %v", err)
	}

	claims := parsed.Claims.(jwt.MapClaims)
	if claims["sub"] != "user123" {
		t.Fatalf("sub = %v, want user123", claims["sub"])
	}
	if claims["t"] != "sip:confctl-g-kouppi-room-9@example.com" {
		t.Fatalf("t = %v, want the room channel URI", claims["t"])
	}
}

func TestRpcVoiceTokenRequiresAuth(t *testing.T) {
	_, err := rpcVoiceToken(context.Background(), noopLogger{}, nil, nil, `{"action":"login"}`)
	if err == nil {
		t.Fatal("expected error without a session user")
	}
}

func TestRpcListRoomsReturnsRegistryView(t *testing.T) {
	reg := registry.New()
	if err := reg.Create(registry.RoomInfo{ID: "room-1", MaxPlayers: 8}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := reg.Join("room-1", "u1"); err != nil {
		t.Fatalf("join: %v", err)
	}

	ctx := context.WithValue(context.Background(), runtime.RUNTIME_CTX_USER_ID, "u2")
	raw, err := makeRpcListRooms(reg)(ctx, noopLogger{}, nil, nil, "")
	if err != nil {
		t.Fatalf("rpcListRooms error: %v", err)
	}

	var resp ListRoomsResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Rooms) != 1 || resp.Rooms[0].ID != "room-1" || resp.Rooms[0].PlayerCount != 1 {
		t.Fatalf("rooms = %+v, want one room with one player", resp.Rooms)
	}
}

func TestRpcCreateRoomRequiresAuth(t *testing.T) {
	_, err := rpcCreateRoom(context.Background(), noopLogger{}, nil, nil, "{}")
	if err == nil {
		t.Fatal("expected error without a session user")
	}
}
