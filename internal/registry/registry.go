// Package registry is the process-wide table of open rooms. It owns the
// room index and the auxiliary player->room lookup behind one mutex, so the
// two maps can never drift apart: joins, leaves and closes mutate both
// atomically.
package registry

import (
	"errors"
	"sync"
)

var (
	ErrRoomExists      = errors.New("room already registered")
	ErrRoomNotFound    = errors.New("room not found")
	ErrAlreadyInRoom   = errors.New("player already in an active room")
	ErrPlayerNotInRoom = errors.New("player not in this room")
)

// RoomInfo is the lobby-browsing view of one open room.
type RoomInfo struct {
	ID          string `json:"id"`
	PlayerCount int    `json:"player_count"`
	MaxPlayers  int    `json:"max_players"`
	Started     bool   `json:"started"`
	HostID      string `json:"host_id"`
	Private     bool   `json:"private"`
}

type room struct {
	info    RoomInfo
	players map[string]bool
}

// Registry indexes open rooms and their members. All methods are safe for
// concurrent use; match handlers and RPC goroutines share one instance.
type Registry struct {
	mu         sync.Mutex
	rooms      map[string]*room
	playerRoom map[string]string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		rooms:      make(map[string]*room),
		playerRoom: make(map[string]string),
	}
}

// Create registers a new open room.
func (r *Registry) Create(info RoomInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[info.ID]; ok {
		return ErrRoomExists
	}
	r.rooms[info.ID] = &room{info: info, players: make(map[string]bool)}
	return nil
}

// Join records a player in a room. A player already in a different room is
// rejected: one active room per player. Rejoining the same room is a no-op.
func (r *Registry) Join(roomID, playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	if current, ok := r.playerRoom[playerID]; ok && current != roomID {
		return ErrAlreadyInRoom
	}
	rm.players[playerID] = true
	rm.info.PlayerCount = len(rm.players)
	r.playerRoom[playerID] = roomID
	return nil
}

// Leave removes a player from a room.
func (r *Registry) Leave(roomID, playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	if !rm.players[playerID] {
		return ErrPlayerNotInRoom
	}
	delete(rm.players, playerID)
	rm.info.PlayerCount = len(rm.players)
	delete(r.playerRoom, playerID)
	return nil
}

// SetStarted flags a room as in-game for lobby listings.
func (r *Registry) SetStarted(roomID string, started bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rm, ok := r.rooms[roomID]; ok {
		rm.info.Started = started
	}
}

// SetHost updates the advertised host of a room.
func (r *Registry) SetHost(roomID, hostID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rm, ok := r.rooms[roomID]; ok {
		rm.info.HostID = hostID
	}
}

// Close removes a room and every index entry pointing at it, atomically.
// It is safe to call for an already-closed room.
func (r *Registry) Close(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[roomID]
	if !ok {
		return
	}
	for playerID := range rm.players {
		delete(r.playerRoom, playerID)
	}
	delete(r.rooms, roomID)
}

// RoomOfPlayer returns the room a player is in, if any.
func (r *Registry) RoomOfPlayer(playerID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.playerRoom[playerID]
	return id, ok
}

// List returns the lobby view of every open room.
func (r *Registry) List() []RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RoomInfo, 0, len(r.rooms))
	for _, rm := range r.rooms {
		out = append(out, rm.info)
	}
	return out
}
