package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zahidhasann88/workspace-backend/internal/domain"
	"github.com/zahidhasann88/workspace-backend/internal/media"
	"github.com/zahidhasann88/workspace-backend/internal/service/rtc"
	apperrors "github.com/zahidhasann88/workspace-backend/pkg/errors"
	"github.com/zahidhasann88/workspace-backend/pkg/logger"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.InitDefault()
	os.Exit(m.Run())
}

// stubRoomStore serves a single fixed room and accepts all participant writes
type stubRoomStore struct {
	room *domain.Room
}

func (s *stubRoomStore) FindByID(ctx context.Context, roomID uuid.UUID) (*domain.Room, error) {
	if roomID != s.room.RoomID {
		return nil, apperrors.New(apperrors.ErrCodeNotFound, "Room not found")
	}
	return s.room, nil
}

func (s *stubRoomStore) AddActiveParticipant(ctx context.Context, roomID, userID uuid.UUID) error {
	return nil
}

func (s *stubRoomStore) RemoveActiveParticipant(ctx context.Context, roomID, userID uuid.UUID) error {
	return nil
}

// denyListAuthorizer rejects joins from the listed users and admits everyone else
type denyListAuthorizer struct {
	denied map[uuid.UUID]bool
}

func (a *denyListAuthorizer) AuthorizeJoin(ctx context.Context, roomID, callerID uuid.UUID) error {
	if a.denied[callerID] {
		return apperrors.New(apperrors.ErrCodeForbidden, "Not a member of this workspace")
	}
	return nil
}

type hubEnv struct {
	hub    *SignalingHub
	server *httptest.Server
	roomID uuid.UUID
}

func newHubEnv(t *testing.T, authorizer JoinAuthorizer) *hubEnv {
	t.Helper()

	roomID := uuid.New()
	store := &stubRoomStore{room: &domain.Room{
		RoomID:        roomID,
		WorkspaceID:   uuid.New(),
		Name:          "standup",
		Type:          domain.RoomTypeVideo,
		MediaSettings: domain.DefaultMediaSettings(),
	}}

	engine := media.NewInprocEngine(1)
	t.Cleanup(func() { engine.Close() })
	sessions := rtc.NewSessionManager(engine)
	t.Cleanup(sessions.CloseAll)
	coordinator := rtc.NewService(rtc.NewRegistry(), sessions, store, nil)

	hub := NewSignalingHub(coordinator, authorizer, nil)

	router := gin.New()
	router.GET("/ws", func(c *gin.Context) {
		userID, err := uuid.Parse(c.Query("user_id"))
		if err != nil {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}
		c.Set("user_id", userID)
		hub.ServeWS(c)
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &hubEnv{hub: hub, server: server, roomID: roomID}
}

func (e *hubEnv) dial(t *testing.T, userID uuid.UUID) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws?user_id=" + userID.String()
	header := http.Header{"Origin": []string{"http://localhost:3000"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// envelope mirrors Response with the payload left raw for inspection
type envelope struct {
	ID    string          `json:"id"`
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
	Error *ErrorBody      `json:"error"`
}

// readUntil drains the connection until an envelope matches or the deadline hits
func readUntil(t *testing.T, conn *websocket.Conn, match func(*envelope) bool) *envelope {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg envelope
		err := conn.ReadJSON(&msg)
		require.NoError(t, err, "connection closed before expected message arrived")
		if match(&msg) {
			return &msg
		}
	}
}

func sendJoin(t *testing.T, conn *websocket.Conn, reqID string, roomID uuid.UUID) *envelope {
	t.Helper()

	require.NoError(t, conn.WriteJSON(Request{
		ID:   reqID,
		Type: EventJoinRoom,
		Data: json.RawMessage(fmt.Sprintf(`{"room_id":%q}`, roomID)),
	}))
	return readUntil(t, conn, func(msg *envelope) bool {
		return msg.Type == EventResponse && msg.ID == reqID
	})
}

// A media session failure must notify peers without racing connection
// teardown: teardown closes a client's send channel, and a fanout that
// writes to it unsynchronized can panic the whole process.
func TestSessionFailureDuringDisconnects(t *testing.T) {
	env := newHubEnv(t, nil)

	const clients = 30
	conns := make([]*websocket.Conn, clients)
	for i := range conns {
		conns[i] = env.dial(t, uuid.New())
		reply := sendJoin(t, conns[i], fmt.Sprintf("join-%d", i), env.roomID)
		require.Nil(t, reply.Error)
	}

	env.hub.mu.RLock()
	connIDs := make([]string, 0, len(env.hub.clients))
	for connID := range env.hub.clients {
		connIDs = append(connIDs, connID)
	}
	env.hub.mu.RUnlock()
	require.Len(t, connIDs, clients)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < clients/2; i++ {
			conns[i].Close()
		}
	}()
	go func() {
		defer wg.Done()
		env.hub.handleSessionFailure(env.roomID, connIDs)
	}()
	wg.Wait()

	// A surviving peer still gets told why it is being disconnected
	notice := readUntil(t, conns[clients-1], func(msg *envelope) bool {
		return msg.Type == EventSessionFailed
	})
	require.NotNil(t, notice.Error)
	assert.Equal(t, string(rtc.ErrSessionFailed.Code), notice.Error.Code)
}

func TestJoinRoomRequiresAuthorization(t *testing.T) {
	outsider := uuid.New()
	env := newHubEnv(t, &denyListAuthorizer{denied: map[uuid.UUID]bool{outsider: true}})

	denied := env.dial(t, outsider)
	reply := sendJoin(t, denied, "join-denied", env.roomID)
	require.NotNil(t, reply.Error)
	assert.Equal(t, string(apperrors.ErrCodeForbidden), reply.Error.Code)

	member := env.dial(t, uuid.New())
	reply = sendJoin(t, member, "join-member", env.roomID)
	assert.Nil(t, reply.Error)
}

// Room events are suppressed per connection, not per user: a user's second
// device must still hear about activity from the first.
func TestBroadcastReachesSameUserOtherConnections(t *testing.T) {
	env := newHubEnv(t, nil)
	userID := uuid.New()

	first := env.dial(t, userID)
	reply := sendJoin(t, first, "join-a", env.roomID)
	require.Nil(t, reply.Error)

	second := env.dial(t, userID)
	reply = sendJoin(t, second, "join-b", env.roomID)
	require.Nil(t, reply.Error)

	joined := readUntil(t, first, func(msg *envelope) bool {
		return msg.Type == EventUserJoined
	})
	var peer rtc.PeerInfo
	require.NoError(t, json.Unmarshal(joined.Data, &peer))
	assert.Equal(t, userID, peer.UserID)

	// The joining connection itself never sees its own event
	second.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	for {
		var msg envelope
		if err := second.ReadJSON(&msg); err != nil {
			break
		}
		assert.NotEqual(t, EventUserJoined, msg.Type)
	}
}
