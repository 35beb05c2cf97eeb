package room

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/zahidhasann88/workspace-backend/internal/domain"
	"github.com/zahidhasann88/workspace-backend/internal/service/room"
	"github.com/zahidhasann88/workspace-backend/pkg/response"
)

// Handler handles HTTP requests for rooms
type Handler struct {
	roomService *room.Service
}

// NewHandler creates a new room handler
func NewHandler(roomService *room.Service) *Handler {
	return &Handler{
		roomService: roomService,
	}
}

func callerID(c *gin.Context) (uuid.UUID, bool) {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, "Not authenticated")
		return uuid.Nil, false
	}
	userID, ok := userIDVal.(uuid.UUID)
	if !ok {
		response.InternalError(c, "Invalid user ID")
		return uuid.Nil, false
	}
	return userID, true
}

// CreateRequest represents room creation request body
type CreateRequest struct {
	Name          string                `json:"name" binding:"required,min=2,max=100"`
	Description   string                `json:"description" binding:"omitempty,max=500"`
	Type          string                `json:"type" binding:"omitempty,oneof=video chat general"`
	IsPrivate     bool                  `json:"is_private"`
	MediaSettings *domain.MediaSettings `json:"media_settings"`
	Tags          []string              `json:"tags"`
	Metadata      map[string]any        `json:"metadata"`
}

// Create creates a room inside a workspace
// POST /v1/workspaces/:workspace_id/rooms
func (h *Handler) Create(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	workspaceID, err := uuid.Parse(c.Param("workspace_id"))
	if err != nil {
		response.ValidationError(c, "invalid workspace_id")
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	created, err := h.roomService.Create(c.Request.Context(), workspaceID, userID, &room.CreateInput{
		Name:          req.Name,
		Description:   req.Description,
		Type:          req.Type,
		IsPrivate:     req.IsPrivate,
		MediaSettings: req.MediaSettings,
		Tags:          req.Tags,
		Metadata:      req.Metadata,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, created)
}

// List returns a workspace's rooms
// GET /v1/workspaces/:workspace_id/rooms
func (h *Handler) List(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	workspaceID, err := uuid.Parse(c.Param("workspace_id"))
	if err != nil {
		response.ValidationError(c, "invalid workspace_id")
		return
	}

	rooms, err := h.roomService.List(c.Request.Context(), workspaceID, userID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, rooms)
}

// Get returns one room
// GET /v1/rooms/:room_id
func (h *Handler) Get(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	roomID, err := uuid.Parse(c.Param("room_id"))
	if err != nil {
		response.ValidationError(c, "invalid room_id")
		return
	}

	found, err := h.roomService.Get(c.Request.Context(), roomID, userID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, found)
}

// UpdateRequest represents room update request body
type UpdateRequest struct {
	Name          string                `json:"name" binding:"omitempty,min=2,max=100"`
	Description   string                `json:"description" binding:"omitempty,max=500"`
	Type          string                `json:"type" binding:"omitempty,oneof=video chat general"`
	IsPrivate     *bool                 `json:"is_private"`
	MediaSettings *domain.MediaSettings `json:"media_settings"`
	Tags          []string              `json:"tags"`
	Metadata      map[string]any        `json:"metadata"`
}

// Update updates a room
// PATCH /v1/rooms/:room_id
func (h *Handler) Update(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	roomID, err := uuid.Parse(c.Param("room_id"))
	if err != nil {
		response.ValidationError(c, "invalid room_id")
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	updated, err := h.roomService.Update(c.Request.Context(), roomID, userID, &room.UpdateInput{
		Name:          req.Name,
		Description:   req.Description,
		Type:          req.Type,
		IsPrivate:     req.IsPrivate,
		MediaSettings: req.MediaSettings,
		Tags:          req.Tags,
		Metadata:      req.Metadata,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, updated)
}

// Delete removes a room
// DELETE /v1/rooms/:room_id
func (h *Handler) Delete(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	roomID, err := uuid.Parse(c.Param("room_id"))
	if err != nil {
		response.ValidationError(c, "invalid room_id")
		return
	}

	if err := h.roomService.Delete(c.Request.Context(), roomID, userID); err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message": "Room deleted",
	})
}

// TagRequest represents a tag mutation request body
type TagRequest struct {
	Tag string `json:"tag" binding:"required,min=1,max=50"`
}

// AddTag attaches a tag to a room
// POST /v1/rooms/:room_id/tags
func (h *Handler) AddTag(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	roomID, err := uuid.Parse(c.Param("room_id"))
	if err != nil {
		response.ValidationError(c, "invalid room_id")
		return
	}

	var req TagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	if err := h.roomService.AddTag(c.Request.Context(), roomID, userID, req.Tag); err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message": "Tag added",
	})
}

// RemoveTag detaches a tag from a room
// DELETE /v1/rooms/:room_id/tags/:tag
func (h *Handler) RemoveTag(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	roomID, err := uuid.Parse(c.Param("room_id"))
	if err != nil {
		response.ValidationError(c, "invalid room_id")
		return
	}

	if err := h.roomService.RemoveTag(c.Request.Context(), roomID, userID, c.Param("tag")); err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message": "Tag removed",
	})
}
