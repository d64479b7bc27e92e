package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/emra-dev/lms-api/internal/models"
)

// QuizRepository reads quizzes for grading and records attempts.
type QuizRepository struct {
	db *sqlx.DB
}

// NewQuizRepository constructs a QuizRepository.
func NewQuizRepository(db *sqlx.DB) *QuizRepository {
	return &QuizRepository{db: db}
}

// FindByID fetches a quiz with its owning course and instructor for
// access checks.
func (r *QuizRepository) FindByID(ctx context.Context, id int64) (*models.Quiz, int64, string, error) {
	var row struct {
		models.Quiz
		CourseID     int64  `db:"course_id"`
		InstructorID string `db:"instructor_id"`
	}
	const query = `SELECT q.id, q.lesson_id, q.title, q.xp_reward, s.course_id, c.instructor_id
        FROM quizzes q JOIN lessons l ON l.id = q.lesson_id JOIN sections s ON s.id = l.section_id
        JOIN courses c ON c.id = s.course_id WHERE q.id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, 0, "", err
	}
	return &row.Quiz, row.CourseID, row.InstructorID, nil
}

// CorrectChoices maps each question of the quiz to its correct choice ids.
func (r *QuizRepository) CorrectChoices(ctx context.Context, quizID int64) (map[int64][]int64, error) {
	var rows []struct {
		QuestionID int64 `db:"question_id"`
		ChoiceID   int64 `db:"choice_id"`
	}
	const query = `SELECT qq.id AS question_id, ch.id AS choice_id
        FROM questions qq JOIN choices ch ON ch.question_id = qq.id AND ch.is_correct = true
        WHERE qq.quiz_id = $1`
	if err := r.db.SelectContext(ctx, &rows, query, quizID); err != nil {
		return nil, fmt.Errorf("load correct choices: %w", err)
	}
	correct := make(map[int64][]int64, len(rows))
	for _, row := range rows {
		correct[row.QuestionID] = append(correct[row.QuestionID], row.ChoiceID)
	}
	return correct, nil
}

// CountQuestions returns the number of questions in the quiz.
func (r *QuizRepository) CountQuestions(ctx context.Context, quizID int64) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM questions WHERE quiz_id = $1", quizID); err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return count, nil
}

// CreateAttempt stores one submission.
func (r *QuizRepository) CreateAttempt(ctx context.Context, attempt *models.QuizAttempt) error {
	if attempt.CompletedAt.IsZero() {
		attempt.CompletedAt = time.Now().UTC()
	}
	const query = `INSERT INTO quiz_attempts (user_id, quiz_id, score, total_questions, completed_at)
        VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := r.db.GetContext(ctx, &attempt.ID, query, attempt.UserID, attempt.QuizID, attempt.Score,
		attempt.TotalQuestions, attempt.CompletedAt); err != nil {
		return fmt.Errorf("create attempt: %w", err)
	}
	return nil
}

// ListAttempts returns the user's attempts for one quiz, newest first.
func (r *QuizRepository) ListAttempts(ctx context.Context, userID string, quizID int64) ([]models.QuizAttempt, error) {
	const query = `SELECT id, user_id, quiz_id, score, total_questions, completed_at FROM quiz_attempts
        WHERE user_id = $1 AND quiz_id = $2 ORDER BY completed_at DESC`
	var attempts []models.QuizAttempt
	if err := r.db.SelectContext(ctx, &attempts, query, userID, quizID); err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return attempts, nil
}
