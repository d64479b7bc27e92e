package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emra-dev/lms-api/internal/dto"
	"github.com/emra-dev/lms-api/internal/models"
	"github.com/emra-dev/lms-api/internal/service"
	appErrors "github.com/emra-dev/lms-api/pkg/errors"
	"github.com/emra-dev/lms-api/pkg/response"
)

type messagingService interface {
	StartConversation(ctx context.Context, viewer service.Viewer, req dto.StartConversationRequest) (*models.Conversation, *models.Message, error)
	SendMessage(ctx context.Context, viewer service.Viewer, conversationID int64, req dto.SendMessageRequest) (*models.Message, error)
	ListConversations(ctx context.Context, viewer service.Viewer) ([]models.Conversation, error)
	ListMessages(ctx context.Context, viewer service.Viewer, conversationID int64) ([]models.Message, error)
	UnreadCount(ctx context.Context, viewer service.Viewer) (int, error)
}

// MessagingHandler exposes direct conversations.
type MessagingHandler struct {
	service messagingService
}

// NewMessagingHandler constructs the handler.
func NewMessagingHandler(svc messagingService) *MessagingHandler {
	return &MessagingHandler{service: svc}
}

// Start godoc
// @Summary Open a conversation with a first message
// @Tags Messaging
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.StartConversationRequest true "Conversation payload"
// @Success 201 {object} response.Envelope
// @Router /conversations [post]
func (h *MessagingHandler) Start(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	var req dto.StartConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid conversation payload"))
		return
	}
	conversation, message, err := h.service.StartConversation(c.Request.Context(), viewer, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"conversation": conversation, "message": message})
}

// List godoc
// @Summary Caller's conversations
// @Tags Messaging
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /conversations [get]
func (h *MessagingHandler) List(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	conversations, err := h.service.ListConversations(c.Request.Context(), viewer)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conversations, nil)
}

// UnreadCount godoc
// @Summary Unread message badge counter
// @Tags Messaging
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /conversations/unread-count [get]
func (h *MessagingHandler) UnreadCount(c *gin.Context) {
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

// Send godoc
// @Summary Post a message into a conversation
// @Tags Messaging
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Conversation ID"
// @Param payload body dto.SendMessageRequest true "Message payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.ErrorBody
// @Router /conversations/{id}/messages [post]
func (h *MessagingHandler) Send(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	conversationID, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid message payload"))
		return
	}
	message, err := h.service.SendMessage(c.Request.Context(), viewer, conversationID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, message)
}

// Messages godoc
// @Summary Conversation history (marks caller's unread as read)
// @Tags Messaging
// @Produce json
// @Security BearerAuth
// @Param id path int true "Conversation ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.ErrorBody
// @Router /conversations/{id}/messages [get]
func (h *MessagingHandler) Messages(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	conversationID, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	messages, err := h.service.ListMessages(c.Request.Context(), viewer, conversationID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, messages, nil)
}
