package rtc

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zahidhasann88/workspace-backend/internal/domain"
	"github.com/zahidhasann88/workspace-backend/internal/media"
	"github.com/zahidhasann88/workspace-backend/pkg/logger"
	"github.com/zahidhasann88/workspace-backend/pkg/metrics"
)

// RoomStore is the persistence surface the coordinator needs. Participant
// mutations must be atomic set operations so the stored list never holds
// duplicates regardless of call interleaving.
type RoomStore interface {
	FindByID(ctx context.Context, roomID uuid.UUID) (*domain.Room, error)
	AddActiveParticipant(ctx context.Context, roomID, userID uuid.UUID) error
	RemoveActiveParticipant(ctx context.Context, roomID, userID uuid.UUID) error
}

// JoinReply carries everything a freshly joined peer needs to start
// negotiating media.
type JoinReply struct {
	RoomID        uuid.UUID            `json:"room_id"`
	Capabilities  media.RTPCapabilities `json:"rtp_capabilities"`
	Peers         []PeerInfo           `json:"peers"`
	MediaSettings domain.MediaSettings `json:"media_settings"`
}

// LeaveNotice describes a departure for broadcasting to remaining peers
type LeaveNotice struct {
	RoomID uuid.UUID
	Peer   PeerInfo
}

// Service is the signaling coordinator: it validates each operation against
// the presence registry, drives the session manager, and keeps the persisted
// participant list eventually consistent with live presence.
type Service struct {
	registry *Registry
	sessions *SessionManager
	store    RoomStore
	metrics  *metrics.Metrics

	// onSessionFailure force-disconnects the peers of a room whose media
	// worker died; set by the transport layer
	onSessionFailure func(roomID uuid.UUID, connIDs []string)

	mu    sync.Mutex
	dirty map[uuid.UUID]struct{}
}

func NewService(registry *Registry, sessions *SessionManager, store RoomStore, m *metrics.Metrics) *Service {
	s := &Service{
		registry: registry,
		sessions: sessions,
		store:    store,
		metrics:  m,
		dirty:    make(map[uuid.UUID]struct{}),
	}
	sessions.SetWorkerFailureHandler(s.handleWorkerFailure)
	return s
}

// SetSessionFailureHandler registers the peer force-disconnect callback
func (s *Service) SetSessionFailureHandler(fn func(roomID uuid.UUID, connIDs []string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSessionFailure = fn
}

func (s *Service) markDirty(roomID uuid.UUID) {
	s.mu.Lock()
	s.dirty[roomID] = struct{}{}
	s.mu.Unlock()
}

// JoinRoom admits a connection into a room. The first join of an idle room
// activates it by opening a media session. Persistence of the participant
// list is best-effort; a storage failure never blocks the join.
func (s *Service) JoinRoom(ctx context.Context, roomID uuid.UUID, connID string, userID uuid.UUID) (*JoinReply, error) {
	room, err := s.store.FindByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	res, err := s.registry.Join(roomID, connID, userID, room.MediaSettings)
	if err != nil {
		return nil, err
	}

	if res.NewlyActivated {
		if err := s.sessions.OpenSession(ctx, roomID); err != nil {
			s.registry.Leave(connID)
			return nil, err
		}
	}

	if err := s.store.AddActiveParticipant(ctx, roomID, userID); err != nil {
		logger.Warn("participant persist failed, will resync",
			zap.String("room_id", roomID.String()),
			zap.String("user_id", userID.String()),
			zap.Error(err))
		s.markDirty(roomID)
	}

	caps, err := s.sessions.SessionCapabilities(roomID)
	if err != nil {
		s.registry.Leave(connID)
		return nil, err
	}

	if s.metrics != nil {
		rooms, peers := s.registry.Counts()
		s.metrics.SetActiveRooms(rooms)
		s.metrics.SetActivePeers(peers)
	}

	return &JoinReply{
		RoomID:        roomID,
		Capabilities:  caps,
		Peers:         s.registry.ListPeers(roomID, connID),
		MediaSettings: room.MediaSettings,
	}, nil
}

// LeaveRoom removes a connection from its room. Unknown connections are a
// silent no-op so disconnect teardown can always call it. When the last
// peer leaves, the room's media session is released.
func (s *Service) LeaveRoom(ctx context.Context, connID string) (*LeaveNotice, error) {
	res := s.registry.Leave(connID)
	if !res.Left {
		return nil, nil
	}

	if res.RoomNowEmpty {
		s.sessions.CloseSession(res.RoomID)
	}

	if err := s.store.RemoveActiveParticipant(ctx, res.RoomID, res.UserID); err != nil {
		logger.Warn("participant removal persist failed, will resync",
			zap.String("room_id", res.RoomID.String()),
			zap.String("user_id", res.UserID.String()),
			zap.Error(err))
		s.markDirty(res.RoomID)
	}

	if s.metrics != nil {
		rooms, peers := s.registry.Counts()
		s.metrics.SetActiveRooms(rooms)
		s.metrics.SetActivePeers(peers)
	}

	return &LeaveNotice{
		RoomID: res.RoomID,
		Peer:   PeerInfo{ConnID: connID, UserID: res.UserID},
	}, nil
}

// CreateTransport allocates the connection's transport for one direction
func (s *Service) CreateTransport(ctx context.Context, connID string, direction Direction) (*TransportDescription, error) {
	roomID, _, ok := s.registry.Lookup(connID)
	if !ok {
		return nil, ErrNotInRoom
	}
	return s.sessions.CreateTransport(ctx, roomID, TransportKey{ConnID: connID, Direction: direction})
}

// ConnectTransport finalizes the connection's transport with remote parameters
func (s *Service) ConnectTransport(ctx context.Context, connID string, direction Direction, remoteParameters json.RawMessage) error {
	roomID, _, ok := s.registry.Lookup(connID)
	if !ok {
		return ErrNotInRoom
	}
	return s.sessions.ConnectTransport(ctx, roomID, TransportKey{ConnID: connID, Direction: direction}, remoteParameters)
}

// ProduceResult identifies a new producer for broadcasting to other peers
type ProduceResult struct {
	RoomID     uuid.UUID
	ProducerID string
	Kind       media.Kind
	Peer       PeerInfo
}

// Produce starts publishing a track of the given kind from the connection
func (s *Service) Produce(ctx context.Context, connID string, kindStr string, rtpParameters json.RawMessage) (*ProduceResult, error) {
	kind, ok := media.ParseKind(kindStr)
	if !ok {
		return nil, ErrInvalidMediaKind
	}
	roomID, info, inRoom := s.registry.Lookup(connID)
	if !inRoom {
		return nil, ErrNotInRoom
	}

	producerID, err := s.sessions.Produce(ctx, roomID, ProducerKey{ConnID: connID, Kind: kind}, rtpParameters)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordProducer(string(kind))
	}

	return &ProduceResult{RoomID: roomID, ProducerID: producerID, Kind: kind, Peer: info}, nil
}

// Consume subscribes the connection to another peer's producer. Receiver
// capabilities arrive as opaque JSON from the wire and are validated here,
// at the boundary.
func (s *Service) Consume(ctx context.Context, connID string, producerID string, receiverCaps json.RawMessage) (*ConsumerDescription, error) {
	roomID, _, ok := s.registry.Lookup(connID)
	if !ok {
		return nil, ErrNotInRoom
	}

	var caps media.RTPCapabilities
	if err := json.Unmarshal(receiverCaps, &caps); err != nil {
		return nil, ErrIncompatibleCapabilities
	}

	desc, err := s.sessions.Consume(ctx, roomID, connID, producerID, caps)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordConsumer()
	}
	return desc, nil
}

// ResumeConsumer unpauses a consumer created by Consume
func (s *Service) ResumeConsumer(ctx context.Context, connID string, consumerID string) error {
	roomID, _, ok := s.registry.Lookup(connID)
	if !ok {
		return ErrNotInRoom
	}
	return s.sessions.ResumeConsumer(ctx, roomID, consumerID)
}

// UpdateMediaSettings records a peer's media settings change and returns
// the room and peer for broadcasting.
func (s *Service) UpdateMediaSettings(connID string, settings domain.MediaSettings) (uuid.UUID, PeerInfo, error) {
	roomID, info, ok := s.registry.UpdateMediaSettings(connID, settings)
	if !ok {
		return uuid.Nil, PeerInfo{}, ErrNotInRoom
	}
	return roomID, info, nil
}

// Lookup exposes the connection's current room and identity, used by the
// transport layer to route relayed messages.
func (s *Service) Lookup(connID string) (uuid.UUID, PeerInfo, bool) {
	return s.registry.Lookup(connID)
}

// handleWorkerFailure runs when an engine worker backing a room dies: the
// session is marked failed and torn down, and every peer of the room is
// force-disconnected so clients rejoin onto a healthy worker. The process
// keeps serving all other rooms.
func (s *Service) handleWorkerFailure(roomID uuid.UUID) {
	peers := s.registry.ListPeers(roomID, "")
	connIDs := make([]string, 0, len(peers))
	for _, p := range peers {
		connIDs = append(connIDs, p.ConnID)
	}

	s.sessions.CloseSession(roomID)

	ctx := context.Background()
	for _, p := range peers {
		res := s.registry.Leave(p.ConnID)
		if !res.Left {
			continue
		}
		if err := s.store.RemoveActiveParticipant(ctx, roomID, p.UserID); err != nil {
			s.markDirty(roomID)
		}
	}

	logger.Error("room session failed, peers disconnected",
		zap.String("room_id", roomID.String()),
		zap.Int("peers", len(connIDs)))

	s.mu.Lock()
	fn := s.onSessionFailure
	s.mu.Unlock()
	if fn != nil {
		fn(roomID, connIDs)
	}

	if s.metrics != nil {
		rooms, peerCount := s.registry.Counts()
		s.metrics.SetActiveRooms(rooms)
		s.metrics.SetActivePeers(peerCount)
	}
}
