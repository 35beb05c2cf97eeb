package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zahidhasann88/workspace-backend/internal/domain"
	"github.com/zahidhasann88/workspace-backend/internal/service/rtc"
	"github.com/zahidhasann88/workspace-backend/pkg/constants"
	apperrors "github.com/zahidhasann88/workspace-backend/pkg/errors"
	"github.com/zahidhasann88/workspace-backend/pkg/logger"
	"github.com/zahidhasann88/workspace-backend/pkg/metrics"
)

// GetAllowedOrigins returns allowed WebSocket origins from environment or defaults
func GetAllowedOrigins() map[string]bool {
	allowedOrigins := map[string]bool{
		"http://localhost:3000": true,
		"http://localhost:8080": true,
		"http://127.0.0.1:3000": true,
		"http://127.0.0.1:8080": true,
	}

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			allowedOrigins[strings.TrimSpace(origin)] = true
		}
	}

	return allowedOrigins
}

var signalingUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// Reject empty origins - require explicit origin for security
			return false
		}

		allowedOrigins := GetAllowedOrigins()
		for allowed := range allowedOrigins {
			if origin == allowed {
				return true
			}
		}
		return false
	},
}

// JoinAuthorizer decides whether a user may enter a room's media session.
// The room service satisfies this with its workspace membership check.
type JoinAuthorizer interface {
	AuthorizeJoin(ctx context.Context, roomID, callerID uuid.UUID) error
}

// SignalingHub manages signaling WebSocket connections and fans server
// events out to room members. All media semantics live in the coordinator;
// the hub only owns connections and delivery.
type SignalingHub struct {
	coordinator *rtc.Service
	authorizer  JoinAuthorizer
	metrics     *metrics.Metrics

	mu      sync.RWMutex
	clients map[string]*SignalingClient
	rooms   map[uuid.UUID]map[string]*SignalingClient

	broadcast chan *Broadcast

	// Concurrency limit: maxConnections is the maximum number of concurrent WebSocket connections
	maxConnections int
	semaphore      chan struct{}
}

// SignalingClient represents one authenticated signaling connection
type SignalingClient struct {
	hub    *SignalingHub
	conn   *websocket.Conn
	send   chan []byte
	connID string
	userID uuid.UUID
}

// NewSignalingHub creates a signaling hub on top of the coordinator
func NewSignalingHub(coordinator *rtc.Service, authorizer JoinAuthorizer, m *metrics.Metrics) *SignalingHub {
	hub := &SignalingHub{
		coordinator:    coordinator,
		authorizer:     authorizer,
		metrics:        m,
		clients:        make(map[string]*SignalingClient),
		rooms:          make(map[uuid.UUID]map[string]*SignalingClient),
		broadcast:      make(chan *Broadcast, 256),
		maxConnections: constants.MaxSignalingConnections,
		semaphore:      make(chan struct{}, constants.MaxSignalingConnections),
	}

	coordinator.SetSessionFailureHandler(hub.handleSessionFailure)

	go hub.run()

	return hub
}

// run fans broadcasts out to room members
func (h *SignalingHub) run() {
	for message := range h.broadcast {
		payload, err := json.Marshal(message)
		if err != nil {
			continue
		}

		h.mu.RLock()
		clients, ok := h.rooms[message.RoomID]
		if ok {
			for connID, client := range clients {
				if message.SenderConn != "" && connID == message.SenderConn {
					continue
				}
				select {
				case client.send <- payload:
				default:
					logger.Warn("signaling client send buffer full, dropping",
						zap.String("conn_id", connID))
				}
			}
		}
		h.mu.RUnlock()
	}
}

// Broadcast queues an event for delivery to a room's members. The event is
// not echoed back to the SenderConn connection it originated from.
func (h *SignalingHub) Broadcast(msg *Broadcast) {
	msg.Timestamp = time.Now()
	h.broadcast <- msg
}

func (h *SignalingHub) addToRoom(roomID uuid.UUID, client *SignalingClient) {
	h.mu.Lock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[string]*SignalingClient)
	}
	h.rooms[roomID][client.connID] = client
	h.mu.Unlock()
}

func (h *SignalingHub) removeFromRoom(roomID uuid.UUID, connID string) {
	h.mu.Lock()
	if clients, ok := h.rooms[roomID]; ok {
		delete(clients, connID)
		if len(clients) == 0 {
			delete(h.rooms, roomID)
		}
	}
	h.mu.Unlock()
}

// handleSessionFailure informs and disconnects the peers of a room whose
// media session died so clients can rejoin cleanly.
func (h *SignalingHub) handleSessionFailure(roomID uuid.UUID, connIDs []string) {
	body := &Response{
		Type: EventSessionFailed,
		Error: &ErrorBody{
			Code:    string(rtc.ErrSessionFailed.Code),
			Message: rtc.ErrSessionFailed.Message,
		},
		Timestamp: time.Now(),
	}
	payload, _ := json.Marshal(body)

	// The send must happen under the lock: teardown closes a client's send
	// channel while holding it, so a lock-held send cannot hit a closed
	// channel. The sends are non-blocking, so the critical section is short.
	h.mu.Lock()
	delete(h.rooms, roomID)
	for _, connID := range connIDs {
		client, ok := h.clients[connID]
		if !ok {
			continue
		}
		select {
		case client.send <- payload:
		default:
		}
		// Close after a short grace so the notice gets flushed
		go func(conn *websocket.Conn) {
			time.Sleep(100 * time.Millisecond)
			conn.Close()
		}(client.conn)
	}
	h.mu.Unlock()
}

// ServeWS handles WebSocket upgrade requests for signaling
func (h *SignalingHub) ServeWS(c *gin.Context) {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	userID, ok := userIDVal.(uuid.UUID)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid user_id"})
		return
	}

	// Acquire semaphore to limit concurrent connections
	select {
	case h.semaphore <- struct{}{}:
	default:
		logger.Warn("WebSocket connection rejected: max connections reached",
			zap.Int("max_connections", h.maxConnections))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Server at capacity, please try again later"})
		return
	}

	conn, err := signalingUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		<-h.semaphore
		logger.Warn("WebSocket upgrade failed",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return
	}

	client := &SignalingClient{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, constants.SignalingSendBuffer),
		connID: uuid.NewString(),
		userID: userID,
	}

	h.mu.Lock()
	h.clients[client.connID] = client
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.SignalingConnectionOpened()
	}

	go client.writePump()
	go client.readPump()
}

// readPump reads and dispatches client requests. Dispatch is sequential per
// connection: a request is fully handled before the next one is read, so a
// client's operations take effect in the order it sent them.
func (c *SignalingClient) readPump() {
	defer c.teardown()

	c.conn.SetReadDeadline(time.Now().Add(constants.WebSocketPingInterval))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(constants.WebSocketPingInterval))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debug("WebSocket connection closed",
					zap.String("conn_id", c.connID),
					zap.String("user_id", c.userID.String()),
					zap.Error(err))
			}
			break
		}

		var req Request
		if err := json.Unmarshal(message, &req); err != nil {
			logger.Warn("Invalid message format from WebSocket",
				zap.String("conn_id", c.connID),
				zap.String("user_id", c.userID.String()),
				zap.Error(err))
			continue
		}

		c.dispatch(&req)
	}
}

// teardown runs once when the connection dies for any reason. Leaving is a
// no-op when the client never joined a room.
func (c *SignalingClient) teardown() {
	h := c.hub

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	notice, err := h.coordinator.LeaveRoom(ctx, c.connID)
	if err != nil {
		logger.Warn("leave on disconnect failed",
			zap.String("conn_id", c.connID),
			zap.Error(err))
	}
	if notice != nil {
		h.removeFromRoom(notice.RoomID, c.connID)
		h.Broadcast(&Broadcast{
			Type:   EventUserLeft,
			RoomID: notice.RoomID,
			Data:   notice.Peer,
		})
	}

	h.mu.Lock()
	if _, ok := h.clients[c.connID]; ok {
		delete(h.clients, c.connID)
		close(c.send)
	}
	h.mu.Unlock()

	c.conn.Close()
	<-h.semaphore

	if h.metrics != nil {
		h.metrics.SignalingConnectionClosed()
	}
}

// writePump writes queued messages and keepalive pings to the socket
func (c *SignalingClient) writePump() {
	ticker := time.NewTicker(constants.WebSocketPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *SignalingClient) reply(id string, data interface{}) {
	c.deliver(&Response{ID: id, Type: EventResponse, Data: data, Timestamp: time.Now()})
}

func (c *SignalingClient) replyError(id string, event string, err error) {
	appErr := apperrors.GetAppError(err)
	if c.hub.metrics != nil {
		c.hub.metrics.RecordSignalingError(event, string(appErr.Code))
	}
	c.deliver(&Response{
		ID:   id,
		Type: EventResponse,
		Error: &ErrorBody{
			Code:    string(appErr.Code),
			Message: appErr.Message,
		},
		Timestamp: time.Now(),
	})
}

func (c *SignalingClient) deliver(resp *Response) {
	payload, err := json.Marshal(resp)
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
		logger.Warn("signaling client send buffer full, dropping response",
			zap.String("conn_id", c.connID))
	}
}

func (c *SignalingClient) dispatch(req *Request) {
	if c.hub.metrics != nil {
		c.hub.metrics.RecordSignalingEvent(req.Type)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch req.Type {
	case EventJoinRoom:
		c.handleJoinRoom(ctx, req)
	case EventLeaveRoom:
		c.handleLeaveRoom(ctx, req)
	case EventCreateTransport:
		c.handleCreateTransport(ctx, req)
	case EventConnectTransport:
		c.handleConnectTransport(ctx, req)
	case EventProduce:
		c.handleProduce(ctx, req)
	case EventConsume:
		c.handleConsume(ctx, req)
	case EventResumeConsumer:
		c.handleResumeConsumer(ctx, req)
	case EventMessage:
		c.handleMessage(req)
	case EventUpdateMediaSettings:
		c.handleUpdateMediaSettings(req)
	default:
		c.replyError(req.ID, req.Type, apperrors.New(apperrors.ErrCodeValidation, "unknown event type"))
	}
}

func (c *SignalingClient) handleJoinRoom(ctx context.Context, req *Request) {
	var payload joinRoomPayload
	if err := json.Unmarshal(req.Data, &payload); err != nil || payload.RoomID == uuid.Nil {
		c.replyError(req.ID, req.Type, apperrors.New(apperrors.ErrCodeValidation, "room_id required"))
		return
	}

	if c.hub.authorizer != nil {
		if err := c.hub.authorizer.AuthorizeJoin(ctx, payload.RoomID, c.userID); err != nil {
			c.replyError(req.ID, req.Type, err)
			return
		}
	}

	reply, err := c.hub.coordinator.JoinRoom(ctx, payload.RoomID, c.connID, c.userID)
	if err != nil {
		c.replyError(req.ID, req.Type, err)
		return
	}

	c.hub.addToRoom(payload.RoomID, c)
	c.reply(req.ID, reply)

	c.hub.Broadcast(&Broadcast{
		Type:       EventUserJoined,
		RoomID:     payload.RoomID,
		SenderID:   c.userID,
		SenderConn: c.connID,
		Data:       rtc.PeerInfo{ConnID: c.connID, UserID: c.userID},
	})
}

func (c *SignalingClient) handleLeaveRoom(ctx context.Context, req *Request) {
	notice, err := c.hub.coordinator.LeaveRoom(ctx, c.connID)
	if err != nil {
		c.replyError(req.ID, req.Type, err)
		return
	}
	if notice != nil {
		c.hub.removeFromRoom(notice.RoomID, c.connID)
		c.hub.Broadcast(&Broadcast{
			Type:   EventUserLeft,
			RoomID: notice.RoomID,
			Data:   notice.Peer,
		})
	}
	c.reply(req.ID, gin.H{"left": notice != nil})
}

func (c *SignalingClient) handleCreateTransport(ctx context.Context, req *Request) {
	var payload createTransportPayload
	if err := json.Unmarshal(req.Data, &payload); err != nil {
		c.replyError(req.ID, req.Type, apperrors.New(apperrors.ErrCodeValidation, "invalid payload"))
		return
	}
	direction, ok := rtc.ParseDirection(payload.Direction)
	if !ok {
		c.replyError(req.ID, req.Type, apperrors.New(apperrors.ErrCodeValidation, "direction must be send or receive"))
		return
	}

	desc, err := c.hub.coordinator.CreateTransport(ctx, c.connID, direction)
	if err != nil {
		c.replyError(req.ID, req.Type, err)
		return
	}
	c.reply(req.ID, desc)
}

func (c *SignalingClient) handleConnectTransport(ctx context.Context, req *Request) {
	var payload connectTransportPayload
	if err := json.Unmarshal(req.Data, &payload); err != nil {
		c.replyError(req.ID, req.Type, apperrors.New(apperrors.ErrCodeValidation, "invalid payload"))
		return
	}
	direction, ok := rtc.ParseDirection(payload.Direction)
	if !ok {
		c.replyError(req.ID, req.Type, apperrors.New(apperrors.ErrCodeValidation, "direction must be send or receive"))
		return
	}

	if err := c.hub.coordinator.ConnectTransport(ctx, c.connID, direction, payload.Parameters); err != nil {
		c.replyError(req.ID, req.Type, err)
		return
	}
	c.reply(req.ID, gin.H{"connected": true})
}

func (c *SignalingClient) handleProduce(ctx context.Context, req *Request) {
	var payload producePayload
	if err := json.Unmarshal(req.Data, &payload); err != nil {
		c.replyError(req.ID, req.Type, apperrors.New(apperrors.ErrCodeValidation, "invalid payload"))
		return
	}

	result, err := c.hub.coordinator.Produce(ctx, c.connID, payload.Kind, payload.RTPParameters)
	if err != nil {
		c.replyError(req.ID, req.Type, err)
		return
	}

	c.reply(req.ID, gin.H{"producer_id": result.ProducerID})

	c.hub.Broadcast(&Broadcast{
		Type:       EventNewProducer,
		RoomID:     result.RoomID,
		SenderID:   c.userID,
		SenderConn: c.connID,
		Data: gin.H{
			"producer_id": result.ProducerID,
			"kind":        result.Kind,
			"peer":        result.Peer,
		},
	})
}

func (c *SignalingClient) handleConsume(ctx context.Context, req *Request) {
	var payload consumePayload
	if err := json.Unmarshal(req.Data, &payload); err != nil || payload.ProducerID == "" {
		c.replyError(req.ID, req.Type, apperrors.New(apperrors.ErrCodeValidation, "producer_id required"))
		return
	}

	desc, err := c.hub.coordinator.Consume(ctx, c.connID, payload.ProducerID, payload.RTPCapabilities)
	if err != nil {
		c.replyError(req.ID, req.Type, err)
		return
	}
	c.reply(req.ID, desc)
}

func (c *SignalingClient) handleResumeConsumer(ctx context.Context, req *Request) {
	var payload resumeConsumerPayload
	if err := json.Unmarshal(req.Data, &payload); err != nil || payload.ConsumerID == "" {
		c.replyError(req.ID, req.Type, apperrors.New(apperrors.ErrCodeValidation, "consumer_id required"))
		return
	}

	if err := c.hub.coordinator.ResumeConsumer(ctx, c.connID, payload.ConsumerID); err != nil {
		c.replyError(req.ID, req.Type, err)
		return
	}
	c.reply(req.ID, gin.H{"resumed": true})
}

// handleMessage relays an opaque chat payload to the sender's room
func (c *SignalingClient) handleMessage(req *Request) {
	roomID, _, ok := c.hub.coordinator.Lookup(c.connID)
	if !ok {
		c.replyError(req.ID, req.Type, rtc.ErrNotInRoom)
		return
	}

	c.hub.Broadcast(&Broadcast{
		Type:       EventMessage,
		RoomID:     roomID,
		SenderID:   c.userID,
		SenderConn: c.connID,
		Data:       req.Data,
	})
	c.reply(req.ID, gin.H{"sent": true})
}

func (c *SignalingClient) handleUpdateMediaSettings(req *Request) {
	var payload updateMediaSettingsPayload
	if err := json.Unmarshal(req.Data, &payload); err != nil {
		c.replyError(req.ID, req.Type, apperrors.New(apperrors.ErrCodeValidation, "invalid payload"))
		return
	}

	settings := domain.MediaSettings{
		AudioEnabled:       payload.AudioEnabled,
		VideoEnabled:       payload.VideoEnabled,
		ScreenShareEnabled: payload.ScreenShareEnabled,
	}
	roomID, info, err := c.hub.coordinator.UpdateMediaSettings(c.connID, settings)
	if err != nil {
		c.replyError(req.ID, req.Type, err)
		return
	}

	c.reply(req.ID, gin.H{"updated": true})
	c.hub.Broadcast(&Broadcast{
		Type:       EventMediaSettingsUpdated,
		RoomID:     roomID,
		SenderID:   c.userID,
		SenderConn: c.connID,
		Data: gin.H{
			"peer":     info,
			"settings": settings,
		},
	})
}
