package workspace

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/zahidhasann88/workspace-backend/internal/service/workspace"
	"github.com/zahidhasann88/workspace-backend/pkg/response"
)

// Handler handles HTTP requests for workspaces
type Handler struct {
	workspaceService *workspace.Service
}

// NewHandler creates a new workspace handler
func NewHandler(workspaceService *workspace.Service) *Handler {
	return &Handler{
		workspaceService: workspaceService,
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

func workspaceParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("workspace_id"))
	if err != nil {
		response.ValidationError(c, "invalid workspace_id")
		return uuid.Nil, false
	}
	return id, true
}

// CreateRequest represents workspace creation request body
type CreateRequest struct {
	Name        string         `json:"name" binding:"required,min=2,max=100"`
	Description string         `json:"description" binding:"omitempty,max=500"`
	Settings    map[string]any `json:"settings"`
}

// Create creates a new workspace
// POST /v1/workspaces
func (h *Handler) Create(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	ws, err := h.workspaceService.Create(c.Request.Context(), userID, &workspace.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		Settings:    req.Settings,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, ws)
}

// List returns the caller's workspaces
// GET /v1/workspaces
func (h *Handler) List(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	workspaces, err := h.workspaceService.List(c.Request.Context(), userID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, workspaces)
}

// Get returns one workspace
// GET /v1/workspaces/:workspace_id
func (h *Handler) Get(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	workspaceID, ok := workspaceParam(c)
	if !ok {
		return
	}

	ws, err := h.workspaceService.Get(c.Request.Context(), workspaceID, userID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, ws)
}

// UpdateRequest represents workspace update request body
type UpdateRequest struct {
	Name        string         `json:"name" binding:"omitempty,min=2,max=100"`
	Description string         `json:"description" binding:"omitempty,max=500"`
	Settings    map[string]any `json:"settings"`
}

// Update updates a workspace
// PATCH /v1/workspaces/:workspace_id
func (h *Handler) Update(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	workspaceID, ok := workspaceParam(c)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	ws, err := h.workspaceService.Update(c.Request.Context(), workspaceID, userID, &workspace.UpdateInput{
		Name:        req.Name,
		Description: req.Description,
		Settings:    req.Settings,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, ws)
}

// MemberRequest represents a membership change request body
type MemberRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

// AddMember adds a user to a workspace
// POST /v1/workspaces/:workspace_id/members
func (h *Handler) AddMember(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	workspaceID, ok := workspaceParam(c)
	if !ok {
		return
	}

	var req MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	if err := h.workspaceService.AddMember(c.Request.Context(), workspaceID, userID, req.UserID); err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message": "Member added",
	})
}

// RemoveMember removes a user from a workspace
// DELETE /v1/workspaces/:workspace_id/members/:user_id
func (h *Handler) RemoveMember(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	workspaceID, ok := workspaceParam(c)
	if !ok {
		return
	}

	memberID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		response.ValidationError(c, "invalid user_id")
		return
	}

	if err := h.workspaceService.RemoveMember(c.Request.Context(), workspaceID, userID, memberID); err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message": "Member removed",
	})
}

// Delete removes a workspace
// DELETE /v1/workspaces/:workspace_id
func (h *Handler) Delete(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	workspaceID, ok := workspaceParam(c)
	if !ok {
		return
	}

	if err := h.workspaceService.Delete(c.Request.Context(), workspaceID, userID); err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message": "Workspace deleted",
	})
}
