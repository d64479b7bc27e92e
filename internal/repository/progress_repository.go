package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ProgressRepository tracks per-lesson completion.
type ProgressRepository struct {
	db *sqlx.DB
}

// NewProgressRepository constructs a ProgressRepository.
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// Toggle flips the completion flag for a lesson, inserting the row on
// first touch, and returns the new state.
func (r *ProgressRepository) Toggle(ctx context.Context, userID string, lessonID int64) (bool, error) {
	const query = `INSERT INTO lesson_progress (user_id, lesson_id, is_completed, completed_at) VALUES ($1, $2, true, $3)
        ON CONFLICT (user_id, lesson_id) DO UPDATE SET is_completed = NOT lesson_progress.is_completed, completed_at = $3
        RETURNING is_completed`
	var completed bool
	if err := r.db.GetContext(ctx, &completed, query, userID, lessonID, time.Now().UTC()); err != nil {
		return false, fmt.Errorf("toggle lesson progress: %w", err)
	}
	return completed, nil
}

// MarkComplete sets the lesson completed, inserting the row on first
// touch, and reports whether the state changed. Already-completed lessons
// keep their original completion time.
func (r *ProgressRepository) MarkComplete(ctx context.Context, userID string, lessonID int64) (bool, error) {
	const query = `INSERT INTO lesson_progress (user_id, lesson_id, is_completed, completed_at) VALUES ($1, $2, true, $3)
        ON CONFLICT (user_id, lesson_id) DO UPDATE SET is_completed = true, completed_at = $3
        WHERE lesson_progress.is_completed = false`
	res, err := r.db.ExecContext(ctx, query, userID, lessonID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("mark lesson complete: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark lesson complete: %w", err)
	}
	return affected > 0, nil
}

// IsCompleted reports whether the user finished the lesson.
func (r *ProgressRepository) IsCompleted(ctx context.Context, userID string, lessonID int64) (bool, error) {
	const query = `SELECT is_completed FROM lesson_progress WHERE user_id = $1 AND lesson_id = $2`
	var completed bool
	err := r.db.GetContext(ctx, &completed, query, userID, lessonID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check lesson progress: %w", err)
	}
	return completed, nil
}

// CompletedLessonIDs returns the subset of the given lessons the user has
// completed.
func (r *ProgressRepository) CompletedLessonIDs(ctx context.Context, userID string, lessonIDs []int64) (map[int64]bool, error) {
	completed := map[int64]bool{}
	if len(lessonIDs) == 0 {
		return completed, nil
	}
	const query = `SELECT lesson_id FROM lesson_progress WHERE user_id = $1 AND is_completed = true AND lesson_id = ANY($2)`
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, userID, pq.Array(lessonIDs)); err != nil {
		return nil, fmt.Errorf("load completed lessons: %w", err)
	}
	for _, id := range ids {
		completed[id] = true
	}
	return completed, nil
}

// CountCompleted counts the user's completed lessons within one course.
func (r *ProgressRepository) CountCompleted(ctx context.Context, userID string, courseID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM lesson_progress lp
        JOIN lessons l ON l.id = lp.lesson_id JOIN sections s ON s.id = l.section_id
        WHERE lp.user_id = $1 AND lp.is_completed = true AND s.course_id = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID, courseID); err != nil {
		return 0, fmt.Errorf("count completed lessons: %w", err)
	}
	return count, nil
}
