package models

import "time"

// Quiz is attached one-to-one to a lesson and owns ordered questions.
type Quiz struct {
	ID       int64  `db:"id" json:"id"`
	LessonID int64  `db:"lesson_id" json:"-"`
	Title    string `db:"title" json:"title"`
	XPReward int    `db:"xp_reward" json:"xp_reward"`
}

// Question belongs to a quiz. Conventionally exactly one of its choices is
// marked correct; this is not enforced at storage level.
type Question struct {
	ID          int64  `db:"id" json:"id"`
	QuizID      int64  `db:"quiz_id" json:"-"`
	Text        string `db:"text" json:"text"`
	Explanation string `db:"explanation" json:"explanation"`
}

// Choice is one answer option for a question.
type Choice struct {
	ID         int64  `db:"id" json:"id"`
	QuestionID int64  `db:"question_id" json:"-"`
	Text       string `db:"text" json:"text"`
	IsCorrect  bool   `db:"is_correct" json:"is_correct"`
}

// QuizAttempt records one submission of a quiz by a user.
type QuizAttempt struct {
	ID             int64     `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user"`
	QuizID         int64     `db:"quiz_id" json:"quiz"`
	Score          int       `db:"score" json:"score"`
	TotalQuestions int       `db:"total_questions" json:"total_questions"`
	CompletedAt    time.Time `db:"completed_at" json:"completed_at"`
}
