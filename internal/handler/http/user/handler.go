package user

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/zahidhasann88/workspace-backend/internal/service/user"
	"github.com/zahidhasann88/workspace-backend/pkg/pagination"
	"github.com/zahidhasann88/workspace-backend/pkg/response"
)

// Handler handles HTTP requests for user profiles
type Handler struct {
	userService *user.Service
}

// NewHandler creates a new user handler
func NewHandler(userService *user.Service) *Handler {
	return &Handler{
		userService: userService,
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

// GetMe returns the authenticated user's profile
// GET /v1/users/me
func (h *Handler) GetMe(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	profile, err := h.userService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, profile)
}

// UpdateMeRequest represents profile update request body
type UpdateMeRequest struct {
	Name        string         `json:"name" binding:"omitempty,min=2,max=100"`
	Status      string         `json:"status" binding:"omitempty,oneof=online away offline"`
	Preferences map[string]any `json:"preferences"`
}

// UpdateMe updates the authenticated user's profile
// PATCH /v1/users/me
func (h *Handler) UpdateMe(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req UpdateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	profile, err := h.userService.UpdateProfile(c.Request.Context(), userID, &user.UpdateProfileInput{
		Name:        req.Name,
		Status:      req.Status,
		Preferences: req.Preferences,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, profile)
}

// Search finds users by name or email fragment
// GET /v1/users?q=...&page=1&limit=20
func (h *Handler) Search(c *gin.Context) {
	if _, ok := callerID(c); !ok {
		return
	}

	params, err := pagination.Parse(c.Query("page"), c.Query("limit"))
	if err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	page, err := h.userService.Search(c.Request.Context(), c.Query("q"), params)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, page)
}

// GetUser returns another user's profile
// GET /v1/users/:user_id
func (h *Handler) GetUser(c *gin.Context) {
	if _, ok := callerID(c); !ok {
		return
	}

	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		response.ValidationError(c, "invalid user_id")
		return
	}

	profile, err := h.userService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, profile)
}

// DeleteMe removes the authenticated user's account
// DELETE /v1/users/me
func (h *Handler) DeleteMe(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	if err := h.userService.DeleteAccount(c.Request.Context(), userID); err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message": "Account deleted",
	})
}
