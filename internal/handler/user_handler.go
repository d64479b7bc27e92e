package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/emra-dev/lms-api/internal/models"
	"github.com/emra-dev/lms-api/internal/service"
	appErrors "github.com/emra-dev/lms-api/pkg/errors"
	"github.com/emra-dev/lms-api/pkg/response"
)

type userService interface {
	GetProfile(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, viewer service.Viewer, req service.UpdateProfileRequest) (*models.User, error)
	Membership(ctx context.Context, viewer service.Viewer) (*models.Membership, error)
	Leaderboard(ctx context.Context, limit int) ([]models.User, error)
}

// UserHandler exposes profiles, memberships and the XP leaderboard.
type UserHandler struct {
	service userService
}

// NewUserHandler constructs the handler.
func NewUserHandler(svc userService) *UserHandler {
	return &UserHandler{service: svc}
}

// GetProfile godoc
// @Summary Public profile by user ID
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.ErrorBody
// @Router /users/{id} [get]
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("id"))
	if userID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "user id is required"))
		return
	}
	user, err := h.service.GetProfile(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// UpdateProfile godoc
// @Summary Update the caller's profile
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.UpdateProfileRequest true "Profile payload"
// @Success 200 {object} response.Envelope
// @Router /users/me [put]
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	var req service.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid profile payload"))
		return
	}
	user, err := h.service.UpdateProfile(c.Request.Context(), viewer, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Membership godoc
// @Summary Caller's active membership
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /users/me/membership [get]
func (h *UserHandler) Membership(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	membership, err := h.service.Membership(c.Request.Context(), viewer)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, membership, nil)
}

// Leaderboard godoc
// @Summary Top users by XP
// @Tags Users
// @Produce json
// @Param limit query int false "Maximum entries (default 10)"
// @Success 200 {object} response.Envelope
// @Router /leaderboard [get]
func (h *UserHandler) Leaderboard(c *gin.Context) {
	users, err := h.service.Leaderboard(c.Request.Context(), queryInt(c, "limit", 10))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, nil)
}
