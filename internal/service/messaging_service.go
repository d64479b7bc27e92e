package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/emra-dev/lms-api/internal/dto"
	"github.com/emra-dev/lms-api/internal/models"
	appErrors "github.com/emra-dev/lms-api/pkg/errors"
	"github.com/emra-dev/lms-api/pkg/jobs"
)

type conversationStore interface {
	FindOrCreate(ctx context.Context, userA, userB string) (*models.Conversation, error)
	IsParticipant(ctx context.Context, conversationID int64, userID string) (bool, error)
	Participants(ctx context.Context, conversationID int64) ([]string, error)
	ListByUser(ctx context.Context, userID string) ([]models.Conversation, error)
	CreateMessage(ctx context.Context, message *models.Message) error
	ListMessages(ctx context.Context, conversationID int64) ([]models.Message, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkMessagesRead(ctx context.Context, conversationID int64, readerID string) error
}

type messageNotifier interface {
	Notify(ctx context.Context, userID string, kind models.NotificationType, title, description string, link *string) error
}

// messageNotification is the payload fanned out through the worker queue.
type messageNotification struct {
	RecipientID    string
	ConversationID int64
}

// MessagingService handles direct conversations. Recipient notifications
// go through a background queue so sending never waits on them.
type MessagingService struct {
	conversations conversationStore
	notifier      messageNotifier
	queue         *jobs.Queue
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewMessagingService constructs MessagingService. Call Queue to obtain
// the fan-out queue and start it with the application context.
func NewMessagingService(conversations conversationStore, notifier messageNotifier, cfg jobs.QueueConfig, validate *validator.Validate, logger *zap.Logger) *MessagingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &MessagingService{
		conversations: conversations,
		notifier:      notifier,
		validator:     validate,
		logger:        logger,
	}
	cfg.Logger = logger
	s.queue = jobs.NewQueue("message-notifications", s.handleNotificationJob, cfg)
	return s
}

// Queue exposes the fan-out queue for lifecycle management.
func (s *MessagingService) Queue() *jobs.Queue {
	return s.queue
}

// Start begins background fan-out.
func (s *MessagingService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the fan-out workers.
func (s *MessagingService) Stop() {
	s.queue.Stop()
}

// StartConversation opens (or reuses) a conversation and sends the first
// message.
func (s *MessagingService) StartConversation(ctx context.Context, viewer Viewer, req dto.StartConversationRequest) (*models.Conversation, *models.Message, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conversation payload")
	}
	if req.RecipientID == viewer.UserID {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "cannot message yourself")
	}

	conversation, err := s.conversations.FindOrCreate(ctx, viewer.UserID, req.RecipientID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open conversation")
	}

	message, err := s.send(ctx, viewer, conversation.ID, req.Content)
	if err != nil {
		return nil, nil, err
	}
	return conversation, message, nil
}

// SendMessage posts into an existing conversation.
func (s *MessagingService) SendMessage(ctx context.Context, viewer Viewer, conversationID int64, req dto.SendMessageRequest) (*models.Message, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid message payload")
	}

	member, err := s.conversations.IsParticipant(ctx, conversationID, viewer.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check conversation")
	}
	if !member {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not a participant of this conversation")
	}
	return s.send(ctx, viewer, conversationID, req.Content)
}

// ListConversations returns the caller's conversations.
func (s *MessagingService) ListConversations(ctx context.Context, viewer Viewer) ([]models.Conversation, error) {
	conversations, err := s.conversations.ListByUser(ctx, viewer.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list conversations")
	}
	return conversations, nil
}

// ListMessages returns a conversation's messages and marks the caller's
// unread ones as read.
func (s *MessagingService) ListMessages(ctx context.Context, viewer Viewer, conversationID int64) ([]models.Message, error) {
	member, err := s.conversations.IsParticipant(ctx, conversationID, viewer.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check conversation")
	}
	if !member {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not a participant of this conversation")
	}

	messages, err := s.conversations.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list messages")
	}
	if err := s.conversations.MarkMessagesRead(ctx, conversationID, viewer.UserID); err != nil {
		s.logger.Warn("failed to mark messages read", zap.Int64("conversation_id", conversationID), zap.Error(err))
	}
	return messages, nil
}

// UnreadCount returns the caller's unread message total across all
// conversations.
func (s *MessagingService) UnreadCount(ctx context.Context, viewer Viewer) (int, error) {
	count, err := s.conversations.CountUnread(ctx, viewer.UserID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count unread messages")
	}
	return count, nil
}

func (s *MessagingService) send(ctx context.Context, viewer Viewer, conversationID int64, content string) (*models.Message, error) {
	message := &models.Message{
		ConversationID: conversationID,
		SenderID:       viewer.UserID,
		Content:        content,
	}
	if err := s.conversations.CreateMessage(ctx, message); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to send message")
	}

	participants, err := s.conversations.Participants(ctx, conversationID)
	if err != nil {
		s.logger.Warn("failed to load participants for fan-out", zap.Int64("conversation_id", conversationID), zap.Error(err))
		return message, nil
	}
	for _, participant := range participants {
		if participant == viewer.UserID {
			continue
		}
		job := jobs.Job{
			ID:   uuid.NewString(),
			Type: "message-notification",
			Payload: messageNotification{
				RecipientID:    participant,
				ConversationID: conversationID,
			},
		}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Warn("failed to enqueue message notification", zap.String("recipient", participant), zap.Error(err))
		}
	}
	return message, nil
}

func (s *MessagingService) handleNotificationJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(messageNotification)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}
	link := fmt.Sprintf("/messages/%d", payload.ConversationID)
	return s.notifier.Notify(ctx, payload.RecipientID, models.NotificationMessage, "Nouveau message",
		"Vous avez reçu un nouveau message.", &link)
}
