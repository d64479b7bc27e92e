package dto

import "time"

// SubmitQuizRequest maps question ids to the chosen choice id. Keys are
// strings because JSON object keys always are. An empty map is a valid
// submission: every question counts as unanswered.
type SubmitQuizRequest struct {
	Answers map[string]int64 `json:"answers" validate:"required"`
}

// SubmitQuizResult reports grading of one attempt.
type SubmitQuizResult struct {
	Score          int     `json:"score"`
	TotalQuestions int     `json:"total_questions"`
	Percentage     float64 `json:"percentage"`
	Passed         bool    `json:"passed"`
	XPRewarded     int     `json:"xp_rewarded"`
	NewlyCompleted bool    `json:"newly_completed"`
}

// ToggleCompletionResult reports the new lesson state and its side effects.
type ToggleCompletionResult struct {
	LessonID           int64   `json:"lesson_id"`
	Completed          bool    `json:"completed"`
	XPAwarded          int     `json:"xp_awarded"`
	ProgressPercentage float64 `json:"progress_percentage"`
	CertificateIssued  bool    `json:"certificate_issued"`
}

// AddXPRequest grants bonus experience points, capped server-side.
type AddXPRequest struct {
	Points int    `json:"points" validate:"required,gt=0"`
	Reason string `json:"reason" validate:"max=255"`
}

// CreateAssignmentRequest attaches an assignment to a lesson.
type CreateAssignmentRequest struct {
	Title        string     `json:"title" validate:"required,max=255"`
	Instructions string     `json:"instructions"`
	TotalPoints  int        `json:"total_points" validate:"required,gt=0"`
	DueDate      *time.Time `json:"due_date"`
}

// SubmitAssignmentRequest uploads written work for an assignment.
type SubmitAssignmentRequest struct {
	Content string `json:"content" validate:"required"`
}

// GradeSubmissionRequest records the instructor's grade.
type GradeSubmissionRequest struct {
	Grade    int    `json:"grade" validate:"gte=0"`
	Feedback string `json:"feedback"`
}
