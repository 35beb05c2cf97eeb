package rtc

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zahidhasann88/workspace-backend/pkg/logger"
)

// StartReconciler periodically converges the persisted active_participants
// of each room onto live presence. Live presence wins every conflict: users
// present in the registry are added to storage, users absent from it are
// removed. Runs until ctx is cancelled.
func (s *Service) StartReconciler(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.ReconcileOnce(ctx)
		}
	}
}

// ReconcileOnce performs a single convergence pass over every active room
// plus rooms flagged dirty by failed writes.
func (s *Service) ReconcileOnce(ctx context.Context) {
	targets := make(map[uuid.UUID]struct{})
	for _, id := range s.registry.ActiveRoomIDs() {
		targets[id] = struct{}{}
	}
	s.mu.Lock()
	for id := range s.dirty {
		targets[id] = struct{}{}
	}
	s.dirty = make(map[uuid.UUID]struct{})
	s.mu.Unlock()

	for roomID := range targets {
		if err := s.reconcileRoom(ctx, roomID); err != nil {
			logger.Warn("participant resync failed",
				zap.String("room_id", roomID.String()),
				zap.Error(err))
			s.markDirty(roomID)
		}
	}
}

func (s *Service) reconcileRoom(ctx context.Context, roomID uuid.UUID) error {
	room, err := s.store.FindByID(ctx, roomID)
	if err != nil {
		return err
	}

	live := make(map[uuid.UUID]struct{})
	for _, userID := range s.registry.RoomUserIDs(roomID) {
		live[userID] = struct{}{}
	}
	stored := make(map[uuid.UUID]struct{}, len(room.ActiveParticipants))
	for _, userID := range room.ActiveParticipants {
		stored[userID] = struct{}{}
	}

	for userID := range live {
		if _, ok := stored[userID]; ok {
			continue
		}
		if err := s.store.AddActiveParticipant(ctx, roomID, userID); err != nil {
			return err
		}
	}
	for userID := range stored {
		if _, ok := live[userID]; ok {
			continue
		}
		if err := s.store.RemoveActiveParticipant(ctx, roomID, userID); err != nil {
			return err
		}
	}
	return nil
}
