package rtc

import (
	"sync"

	"github.com/google/uuid"

	"github.com/zahidhasann88/workspace-backend/internal/domain"
)

// PeerInfo identifies one live peer connection within a room
type PeerInfo struct {
	ConnID string    `json:"peer_id"`
	UserID uuid.UUID `json:"user_id"`
}

type peer struct {
	connID   string
	userID   uuid.UUID
	roomID   uuid.UUID
	settings domain.MediaSettings
}

// JoinResult reports the outcome of registering a peer
type JoinResult struct {
	// NewlyActivated is true when the room had no peers before this join,
	// signalling the caller to create a media session
	NewlyActivated bool
}

// LeaveResult reports the outcome of removing a peer
type LeaveResult struct {
	// Left is false when the connection was never registered (duplicate
	// disconnect events are tolerated as no-ops)
	Left         bool
	RoomID       uuid.UUID
	UserID       uuid.UUID
	RoomNowEmpty bool
}

// Registry is the in-memory source of truth for who is live in which room.
// A peer connection belongs to at most one room. All mutation is guarded by
// a single mutex; no blocking I/O happens under the lock.
type Registry struct {
	mu    sync.RWMutex
	peers map[string]*peer
	rooms map[uuid.UUID]map[string]*peer
}

// NewRegistry creates an empty presence registry
func NewRegistry() *Registry {
	return &Registry{
		peers: make(map[string]*peer),
		rooms: make(map[uuid.UUID]map[string]*peer),
	}
}

// Join registers the connection under the room. Re-join with the same
// connection id is an idempotent update of user id and media settings; a
// connection already registered in a different room is rejected.
func (r *Registry) Join(roomID uuid.UUID, connID string, userID uuid.UUID, settings domain.MediaSettings) (JoinResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.peers[connID]; ok {
		if existing.roomID != roomID {
			return JoinResult{}, ErrAlreadyInRoom
		}
		existing.userID = userID
		existing.settings = settings
		return JoinResult{NewlyActivated: false}, nil
	}

	room, active := r.rooms[roomID]
	if !active {
		room = make(map[string]*peer)
		r.rooms[roomID] = room
	}

	p := &peer{connID: connID, userID: userID, roomID: roomID, settings: settings}
	room[connID] = p
	r.peers[connID] = p

	return JoinResult{NewlyActivated: !active}, nil
}

// Leave removes the connection from its room. Unknown connections are a no-op.
func (r *Registry) Leave(connID string) LeaveResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.peers[connID]
	if !ok {
		return LeaveResult{}
	}

	delete(r.peers, connID)

	room := r.rooms[p.roomID]
	delete(room, connID)

	empty := len(room) == 0
	if empty {
		delete(r.rooms, p.roomID)
	}

	return LeaveResult{
		Left:         true,
		RoomID:       p.roomID,
		UserID:       p.userID,
		RoomNowEmpty: empty,
	}
}

// ListPeers returns every peer in the room except the given connection
func (r *Registry) ListPeers(roomID uuid.UUID, excludeConn string) []PeerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room := r.rooms[roomID]
	peers := make([]PeerInfo, 0, len(room))
	for connID, p := range room {
		if connID == excludeConn {
			continue
		}
		peers = append(peers, PeerInfo{ConnID: connID, UserID: p.userID})
	}
	return peers
}

// Lookup returns the room and identity of a registered connection
func (r *Registry) Lookup(connID string) (roomID uuid.UUID, info PeerInfo, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.peers[connID]
	if !ok {
		return uuid.Nil, PeerInfo{}, false
	}
	return p.roomID, PeerInfo{ConnID: p.connID, UserID: p.userID}, true
}

// UpdateMediaSettings merges new media settings into a registered peer and
// returns its room and identity for broadcasting.
func (r *Registry) UpdateMediaSettings(connID string, settings domain.MediaSettings) (uuid.UUID, PeerInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.peers[connID]
	if !ok {
		return uuid.Nil, PeerInfo{}, false
	}
	p.settings = settings
	return p.roomID, PeerInfo{ConnID: p.connID, UserID: p.userID}, true
}

// ActiveRoomIDs returns the ids of all rooms with at least one peer
func (r *Registry) ActiveRoomIDs() []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(r.rooms))
	for id := range r.rooms {
		ids = append(ids, id)
	}
	return ids
}

// RoomUserIDs returns the deduplicated user ids present in a room
func (r *Registry) RoomUserIDs(roomID uuid.UUID) []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, p := range r.rooms[roomID] {
		if _, dup := seen[p.userID]; dup {
			continue
		}
		seen[p.userID] = struct{}{}
		ids = append(ids, p.userID)
	}
	return ids
}

// Counts returns the number of active rooms and registered peers
func (r *Registry) Counts() (rooms, peers int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms), len(r.peers)
}
