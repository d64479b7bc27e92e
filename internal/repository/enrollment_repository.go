package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/emra-dev/lms-api/internal/models"
)

// EnrollmentRepository manages course enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs an EnrollmentRepository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// GetOrCreate enrolls the user, returning whether a new row was created.
// The unique (user_id, course_id) index makes concurrent calls converge on
// a single row.
func (r *EnrollmentRepository) GetOrCreate(ctx context.Context, userID string, courseID int64) (*models.Enrollment, bool, error) {
	const insert = `INSERT INTO enrollments (user_id, course_id, enrolled_at, progress) VALUES ($1, $2, $3, 0)
        ON CONFLICT (user_id, course_id) DO NOTHING`
	result, err := r.db.ExecContext(ctx, insert, userID, courseID, time.Now().UTC())
	if err != nil {
		return nil, false, fmt.Errorf("enroll: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("enroll: %w", err)
	}

	enrollment, err := r.Find(ctx, userID, courseID)
	if err != nil {
		return nil, false, err
	}
	return enrollment, affected > 0, nil
}

// Find fetches the enrollment of one user in one course.
func (r *EnrollmentRepository) Find(ctx context.Context, userID string, courseID int64) (*models.Enrollment, error) {
	const query = `SELECT id, user_id, course_id, enrolled_at, progress FROM enrollments WHERE user_id = $1 AND course_id = $2`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, userID, courseID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// Exists reports whether the user is enrolled in the course.
func (r *EnrollmentRepository) Exists(ctx context.Context, userID string, courseID int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM enrollments WHERE user_id = $1 AND course_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, courseID); err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return exists, nil
}

// ListByUser returns the user's enrollments with course titles.
func (r *EnrollmentRepository) ListByUser(ctx context.Context, userID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.user_id, e.course_id, e.enrolled_at, e.progress, c.title AS course_title
        FROM enrollments e JOIN courses c ON c.id = e.course_id WHERE e.user_id = $1 ORDER BY e.enrolled_at DESC`
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, userID); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

// UpdateProgress stores the recomputed completion percentage.
func (r *EnrollmentRepository) UpdateProgress(ctx context.Context, userID string, courseID int64, progress int) error {
	const query = `UPDATE enrollments SET progress = $3 WHERE user_id = $1 AND course_id = $2`
	if _, err := r.db.ExecContext(ctx, query, userID, courseID, progress); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}
