package models

import "time"

// Discussion is a course (or general) forum thread.
type Discussion struct {
	ID         int64     `db:"id" json:"id"`
	Title      string    `db:"title" json:"title"`
	Content    string    `db:"content" json:"content"`
	AuthorID   string    `db:"author_id" json:"-"`
	CourseID   *int64    `db:"course_id" json:"course,omitempty"`
	IsResolved bool      `db:"is_resolved" json:"is_resolved"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// DiscussionReply is a reply within a discussion thread.
type DiscussionReply struct {
	ID           int64     `db:"id" json:"id"`
	DiscussionID int64     `db:"discussion_id" json:"discussion"`
	AuthorID     string    `db:"author_id" json:"-"`
	Content      string    `db:"content" json:"content"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Review is a course rating. Unique per (course, user).
type Review struct {
	ID        int64     `db:"id" json:"id"`
	CourseID  int64     `db:"course_id" json:"course"`
	UserID    string    `db:"user_id" json:"user"`
	Rating    int       `db:"rating" json:"rating"`
	Comment   string    `db:"comment" json:"comment"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Conversation is a pairwise message thread.
type Conversation struct {
	ID        int64     `db:"id" json:"id"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Message is a single chat message inside a conversation.
type Message struct {
	ID             int64     `db:"id" json:"id"`
	ConversationID int64     `db:"conversation_id" json:"-"`
	SenderID       string    `db:"sender_id" json:"sender"`
	Content        string    `db:"content" json:"content"`
	IsRead         bool      `db:"is_read" json:"is_read"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
