package rtc

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zahidhasann88/workspace-backend/internal/domain"
)

func TestRegistryJoinActivatesRoomOnce(t *testing.T) {
	r := NewRegistry()
	roomID := uuid.New()

	first, err := r.Join(roomID, "conn-1", uuid.New(), domain.DefaultMediaSettings())
	require.NoError(t, err)
	assert.True(t, first.NewlyActivated)

	second, err := r.Join(roomID, "conn-2", uuid.New(), domain.DefaultMediaSettings())
	require.NoError(t, err)
	assert.False(t, second.NewlyActivated)

	rooms, peers := r.Counts()
	assert.Equal(t, 1, rooms)
	assert.Equal(t, 2, peers)
}

func TestRegistryRejectsJoinToSecondRoom(t *testing.T) {
	r := NewRegistry()
	userID := uuid.New()

	_, err := r.Join(uuid.New(), "conn-1", userID, domain.DefaultMediaSettings())
	require.NoError(t, err)

	_, err = r.Join(uuid.New(), "conn-1", userID, domain.DefaultMediaSettings())
	assert.ErrorIs(t, err, ErrAlreadyInRoom)
}

func TestRegistryRejoinSameRoomIsIdempotent(t *testing.T) {
	r := NewRegistry()
	roomID := uuid.New()
	userID := uuid.New()

	_, err := r.Join(roomID, "conn-1", userID, domain.DefaultMediaSettings())
	require.NoError(t, err)

	res, err := r.Join(roomID, "conn-1", userID, domain.DefaultMediaSettings())
	require.NoError(t, err)
	assert.False(t, res.NewlyActivated)

	_, peers := r.Counts()
	assert.Equal(t, 1, peers)
}

func TestRegistryLeave(t *testing.T) {
	r := NewRegistry()
	roomID := uuid.New()
	userID := uuid.New()

	_, err := r.Join(roomID, "conn-1", userID, domain.DefaultMediaSettings())
	require.NoError(t, err)
	_, err = r.Join(roomID, "conn-2", uuid.New(), domain.DefaultMediaSettings())
	require.NoError(t, err)

	res := r.Leave("conn-1")
	assert.True(t, res.Left)
	assert.Equal(t, roomID, res.RoomID)
	assert.Equal(t, userID, res.UserID)
	assert.False(t, res.RoomNowEmpty)

	res = r.Leave("conn-2")
	assert.True(t, res.Left)
	assert.True(t, res.RoomNowEmpty)

	rooms, peers := r.Counts()
	assert.Zero(t, rooms)
	assert.Zero(t, peers)
}

func TestRegistryLeaveUnknownConnIsNoop(t *testing.T) {
	r := NewRegistry()

	res := r.Leave("never-joined")
	assert.False(t, res.Left)
}

func TestRegistryListPeersExcludesCaller(t *testing.T) {
	r := NewRegistry()
	roomID := uuid.New()
	otherUser := uuid.New()

	_, err := r.Join(roomID, "conn-1", uuid.New(), domain.DefaultMediaSettings())
	require.NoError(t, err)
	_, err = r.Join(roomID, "conn-2", otherUser, domain.DefaultMediaSettings())
	require.NoError(t, err)

	peers := r.ListPeers(roomID, "conn-1")
	require.Len(t, peers, 1)
	assert.Equal(t, "conn-2", peers[0].ConnID)
	assert.Equal(t, otherUser, peers[0].UserID)
}

func TestRegistryRoomUserIDsDeduplicates(t *testing.T) {
	r := NewRegistry()
	roomID := uuid.New()
	userID := uuid.New()

	// Same user on two devices
	_, err := r.Join(roomID, "conn-1", userID, domain.DefaultMediaSettings())
	require.NoError(t, err)
	_, err = r.Join(roomID, "conn-2", userID, domain.DefaultMediaSettings())
	require.NoError(t, err)

	assert.Len(t, r.RoomUserIDs(roomID), 1)
}

func TestRegistryUpdateMediaSettings(t *testing.T) {
	r := NewRegistry()
	roomID := uuid.New()

	_, err := r.Join(roomID, "conn-1", uuid.New(), domain.DefaultMediaSettings())
	require.NoError(t, err)

	settings := domain.MediaSettings{AudioEnabled: false, VideoEnabled: true}
	gotRoom, info, ok := r.UpdateMediaSettings("conn-1", settings)
	require.True(t, ok)
	assert.Equal(t, roomID, gotRoom)
	assert.Equal(t, "conn-1", info.ConnID)

	_, _, ok = r.UpdateMediaSettings("unknown", settings)
	assert.False(t, ok)
}
