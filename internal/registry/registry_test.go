package registry

import "testing"

func TestJoinEnforcesSingleActiveRoom(t *testing.T) {
	r := New()
	if err := r.Create(RoomInfo{ID: "room-a", MaxPlayers: 4}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := r.Create(RoomInfo{ID: "room-b", MaxPlayers: 4}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := r.Join("room-a", "p1"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := r.Join("room-b", "p1"); err != ErrAlreadyInRoom {
		t.Fatalf("second join err = %v, want ErrAlreadyInRoom", err)
	}

	// Rejoining the same room is allowed and changes nothing.
	if err := r.Join("room-a", "p1"); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if id, ok := r.RoomOfPlayer("p1"); !ok || id != "room-a" {
		t.Fatalf("player index = %q, %t", id, ok)
	}
}

func TestLeaveClearsIndexes(t *testing.T) {
	r := New()
	if err := r.Create(RoomInfo{ID: "room-a"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := r.Join("room-a", "p1"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := r.Leave("room-a", "p1"); err != nil {
		t.Fatalf("leave: %v", err)
	}

	if _, ok := r.RoomOfPlayer("p1"); ok {
		t.Fatalf("player index should be cleared")
	}
	if err := r.Leave("room-a", "p1"); err != ErrPlayerNotInRoom {
		t.Fatalf("double leave err = %v, want ErrPlayerNotInRoom", err)
	}
}

func TestCloseRemovesEveryIndexAtomically(t *testing.T) {
	r := New()
	if err := r.Create(RoomInfo{ID: "room-a"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, id := range []string{"p1", "p2", "p3"} {
		if err := r.Join("room-a", id); err != nil {
			t.Fatalf("join %s: %v", id, err)
		}
	}

	r.Close("room-a")

	if len(r.List()) != 0 {
		t.Fatalf("room list should be empty after close")
	}
	for _, id := range []string{"p1", "p2", "p3"} {
		if _, ok := r.RoomOfPlayer(id); ok {
			t.Fatalf("player %s still indexed after close", id)
		}
	}

	// Closing again is a no-op.
	r.Close("room-a")
}

func TestListReflectsMembershipAndFlags(t *testing.T) {
	r := New()
	if err := r.Create(RoomInfo{ID: "room-a", MaxPlayers: 4, HostID: "p1", Private: true}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := r.Join("room-a", "p1"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := r.Join("room-a", "p2"); err != nil {
		t.Fatalf("join: %v", err)
	}
	r.SetStarted("room-a", true)

	rooms := r.List()
	if len(rooms) != 1 {
		t.Fatalf("rooms = %d, want 1", len(rooms))
	}
	info := rooms[0]
	if info.PlayerCount != 2 || !info.Started || !info.Private || info.HostID != "p1" {
		t.Fatalf("info = %+v", info)
	}
}
