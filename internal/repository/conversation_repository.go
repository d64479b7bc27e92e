package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/emra-dev/lms-api/internal/models"
)

// ConversationRepository manages direct-message threads. A conversation is
// pairwise; the participants table keys membership.
type ConversationRepository struct {
	db *sqlx.DB
}

// NewConversationRepository constructs a ConversationRepository.
func NewConversationRepository(db *sqlx.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// FindOrCreate returns the conversation between two users, creating it if
// none exists yet.
func (r *ConversationRepository) FindOrCreate(ctx context.Context, userA, userB string) (*models.Conversation, error) {
	const find = `SELECT c.id, c.updated_at FROM conversations c
        JOIN conversation_participants pa ON pa.conversation_id = c.id AND pa.user_id = $1
        JOIN conversation_participants pb ON pb.conversation_id = c.id AND pb.user_id = $2
        LIMIT 1`
	var conversation models.Conversation
	err := r.db.GetContext(ctx, &conversation, find, userA, userB)
	if err == nil {
		return &conversation, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("find conversation: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create conversation: %w", err)
	}
	defer tx.Rollback()

	conversation.UpdatedAt = time.Now().UTC()
	if err := tx.GetContext(ctx, &conversation.ID,
		"INSERT INTO conversations (updated_at) VALUES ($1) RETURNING id", conversation.UpdatedAt); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	const addParticipant = `INSERT INTO conversation_participants (conversation_id, user_id) VALUES ($1, $2)`
	if _, err := tx.ExecContext(ctx, addParticipant, conversation.ID, userA); err != nil {
		return nil, fmt.Errorf("add participant: %w", err)
	}
	if _, err := tx.ExecContext(ctx, addParticipant, conversation.ID, userB); err != nil {
		return nil, fmt.Errorf("add participant: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create conversation: %w", err)
	}
	return &conversation, nil
}

// IsParticipant reports whether the user belongs to the conversation.
func (r *ConversationRepository) IsParticipant(ctx context.Context, conversationID int64, userID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM conversation_participants WHERE conversation_id = $1 AND user_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, conversationID, userID); err != nil {
		return false, fmt.Errorf("check participant: %w", err)
	}
	return exists, nil
}

// Participants lists the user ids in a conversation.
func (r *ConversationRepository) Participants(ctx context.Context, conversationID int64) ([]string, error) {
	var ids []string
	const query = `SELECT user_id FROM conversation_participants WHERE conversation_id = $1`
	if err := r.db.SelectContext(ctx, &ids, query, conversationID); err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	return ids, nil
}

// ListByUser returns the user's conversations, most recently active first.
func (r *ConversationRepository) ListByUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	const query = `SELECT c.id, c.updated_at FROM conversations c
        JOIN conversation_participants p ON p.conversation_id = c.id
        WHERE p.user_id = $1 ORDER BY c.updated_at DESC`
	var conversations []models.Conversation
	if err := r.db.SelectContext(ctx, &conversations, query, userID); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return conversations, nil
}

// CreateMessage appends a message and bumps the conversation timestamp.
func (r *ConversationRepository) CreateMessage(ctx context.Context, message *models.Message) error {
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create message: %w", err)
	}
	defer tx.Rollback()

	const insert = `INSERT INTO messages (conversation_id, sender_id, content, is_read, created_at)
        VALUES ($1, $2, $3, false, $4) RETURNING id`
	if err := tx.GetContext(ctx, &message.ID, insert, message.ConversationID, message.SenderID,
		message.Content, message.CreatedAt); err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE conversations SET updated_at = $2 WHERE id = $1",
		message.ConversationID, message.CreatedAt); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create message: %w", err)
	}
	return nil
}

// ListMessages returns a conversation's messages in posting order.
func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID int64) ([]models.Message, error) {
	const query = `SELECT id, conversation_id, sender_id, content, is_read, created_at FROM messages
        WHERE conversation_id = $1 ORDER BY created_at ASC`
	var messages []models.Message
	if err := r.db.SelectContext(ctx, &messages, query, conversationID); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// CountUnread counts messages addressed to the user not yet read, across
// all conversations.
func (r *ConversationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM messages m
        JOIN conversation_participants p ON p.conversation_id = m.conversation_id
        WHERE p.user_id = $1 AND m.sender_id <> $1 AND m.is_read = false`
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("count unread messages: %w", err)
	}
	return count, nil
}

// MarkMessagesRead marks everything sent by others as read.
func (r *ConversationRepository) MarkMessagesRead(ctx context.Context, conversationID int64, readerID string) error {
	const query = `UPDATE messages SET is_read = true WHERE conversation_id = $1 AND sender_id <> $2 AND is_read = false`
	if _, err := r.db.ExecContext(ctx, query, conversationID, readerID); err != nil {
		return fmt.Errorf("mark messages read: %w", err)
	}
	return nil
}
