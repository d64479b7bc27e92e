package dto

// CreateDiscussionRequest opens a thread, optionally scoped to a course.
type CreateDiscussionRequest struct {
	Title    string `json:"title" validate:"required,max=255"`
	Content  string `json:"content" validate:"required"`
	CourseID *int64 `json:"course_id" validate:"omitempty,gt=0"`
}

// UpdateDiscussionRequest rewrites a thread.
type UpdateDiscussionRequest struct {
	Title   string `json:"title" validate:"required,max=255"`
	Content string `json:"content" validate:"required"`
}

// CreateReplyRequest answers a discussion thread.
type CreateReplyRequest struct {
	Content string `json:"content" validate:"required"`
}

// CreateReviewRequest rates an enrolled course.
type CreateReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

// SendMessageRequest posts into a conversation.
type SendMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

// StartConversationRequest opens (or reuses) a direct conversation.
type StartConversationRequest struct {
	RecipientID string `json:"recipient_id" validate:"required,uuid"`
	Content     string `json:"content" validate:"required"`
}
