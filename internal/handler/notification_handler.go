package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emra-dev/lms-api/internal/models"
	"github.com/emra-dev/lms-api/internal/service"
	"github.com/emra-dev/lms-api/pkg/response"
)

type notificationService interface {
	List(ctx context.Context, viewer service.Viewer, limit int) ([]models.Notification, error)
	UnreadCount(ctx context.Context, viewer service.Viewer) (int, error)
	MarkRead(ctx context.Context, viewer service.Viewer, id int64) error
	MarkAllRead(ctx context.Context, viewer service.Viewer) error
	Clear(ctx context.Context, viewer service.Viewer) error
}

// NotificationHandler exposes the per-user inbox.
type NotificationHandler struct {
	service notificationService
}

// NewNotificationHandler constructs the handler.
func NewNotificationHandler(svc notificationService) *NotificationHandler {
	return &NotificationHandler{service: svc}
}

// List godoc
// @Summary Latest notifications
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum entries (default 50)"
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	notifications, err := h.service.List(c.Request.Context(), viewer, queryInt(c, "limit", 50))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notifications, nil)
}

// UnreadCount godoc
// @Summary Unread badge counter
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	count, err := h.service.UnreadCount(c.Request.Context(), viewer)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"unread": count}, nil)
}

// MarkRead godoc
// @Summary Mark one notification as read
// @Tags Notifications
// @Security BearerAuth
// @Param id path int true "Notification ID"
// @Success 204
// @Router /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	if err := h.service.MarkRead(c.Request.Context(), viewer, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MarkAllRead godoc
// @Summary Clear the unread state
// @Tags Notifications
// @Security BearerAuth
// @Success 204
// @Router /notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	if err := h.service.MarkAllRead(c.Request.Context(), viewer); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Clear godoc
// @Summary Delete every notification
// @Tags Notifications
// @Security BearerAuth
// @Success 204
// @Router /notifications [delete]
func (h *NotificationHandler) Clear(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	if err := h.service.Clear(c.Request.Context(), viewer); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
