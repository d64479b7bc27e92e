package models

import "time"

// NotificationType categorizes notifications for the client UI.
type NotificationType string

// Possible notification types.
const (
	NotificationMessage     NotificationType = "message"
	NotificationAchievement NotificationType = "achievement"
	NotificationCourse      NotificationType = "course"
	NotificationGrade       NotificationType = "grade"
	NotificationSystem      NotificationType = "system"
)

// Notification is a per-user inbox entry.
type Notification struct {
	ID          int64            `db:"id" json:"id"`
	UserID      string           `db:"user_id" json:"-"`
	Type        NotificationType `db:"type" json:"type"`
	Title       string           `db:"title" json:"title"`
	Description string           `db:"description" json:"description"`
	Link        *string          `db:"link" json:"link,omitempty"`
	IsRead      bool             `db:"is_read" json:"is_read"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
}
