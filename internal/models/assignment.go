package models

import "time"

// Assignment is attached one-to-one to a lesson.
type Assignment struct {
	ID           int64      `db:"id" json:"id"`
	LessonID     int64      `db:"lesson_id" json:"-"`
	Title        string     `db:"title" json:"title"`
	Instructions string     `db:"instructions" json:"instructions"`
	TotalPoints  int        `db:"total_points" json:"total_points"`
	DueDate      *time.Time `db:"due_date" json:"due_date,omitempty"`
}

// AssignmentSubmission is a student's work. Unique per (assignment, student).
type AssignmentSubmission struct {
	ID           int64      `db:"id" json:"id"`
	AssignmentID int64      `db:"assignment_id" json:"assignment"`
	StudentID    string     `db:"student_id" json:"student"`
	Content      string     `db:"content" json:"content"`
	FilePath     *string    `db:"file_path" json:"file,omitempty"`
	Grade        *int       `db:"grade" json:"grade,omitempty"`
	Feedback     string     `db:"feedback" json:"feedback"`
	SubmittedAt  time.Time  `db:"submitted_at" json:"submitted_at"`
	GradedAt     *time.Time `db:"graded_at" json:"graded_at,omitempty"`
}
