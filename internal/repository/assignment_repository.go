package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/emra-dev/lms-api/internal/models"
)

// AssignmentRepository manages assignments and their submissions.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs an AssignmentRepository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// FindByID fetches an assignment with its owning course and instructor for
// access checks.
func (r *AssignmentRepository) FindByID(ctx context.Context, id int64) (*models.Assignment, int64, string, error) {
	var row struct {
		models.Assignment
		CourseID     int64  `db:"course_id"`
		InstructorID string `db:"instructor_id"`
	}
	const query = `SELECT a.id, a.lesson_id, a.title, a.instructions, a.total_points, a.due_date, s.course_id, c.instructor_id
        FROM assignments a JOIN lessons l ON l.id = a.lesson_id JOIN sections s ON s.id = l.section_id
        JOIN courses c ON c.id = s.course_id WHERE a.id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, 0, "", err
	}
	return &row.Assignment, row.CourseID, row.InstructorID, nil
}

// FindLessonOwner resolves a lesson to its course and instructor for
// authoring checks.
func (r *AssignmentRepository) FindLessonOwner(ctx context.Context, lessonID int64) (int64, string, error) {
	var row struct {
		CourseID     int64  `db:"course_id"`
		InstructorID string `db:"instructor_id"`
	}
	const query = `SELECT s.course_id, c.instructor_id FROM lessons l
        JOIN sections s ON s.id = l.section_id JOIN courses c ON c.id = s.course_id
        WHERE l.id = $1`
	if err := r.db.GetContext(ctx, &row, query, lessonID); err != nil {
		return 0, "", err
	}
	return row.CourseID, row.InstructorID, nil
}

// UpsertAssignment attaches written work to a lesson (one per lesson) and
// flips the lesson type so clients render it as an assignment.
func (r *AssignmentRepository) UpsertAssignment(ctx context.Context, assignment *models.Assignment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert assignment: %w", err)
	}
	defer tx.Rollback()

	const insert = `INSERT INTO assignments (lesson_id, title, instructions, total_points, due_date)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (lesson_id) DO UPDATE
        SET title = EXCLUDED.title, instructions = EXCLUDED.instructions,
            total_points = EXCLUDED.total_points, due_date = EXCLUDED.due_date
        RETURNING id`
	if err := tx.GetContext(ctx, &assignment.ID, insert, assignment.LessonID, assignment.Title,
		assignment.Instructions, assignment.TotalPoints, assignment.DueDate); err != nil {
		return fmt.Errorf("upsert assignment: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE lessons SET lesson_type = 'assignment' WHERE id = $1`, assignment.LessonID); err != nil {
		return fmt.Errorf("flip lesson type: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert assignment: %w", err)
	}
	return nil
}

// UpsertSubmission stores the student's work, replacing a prior submission
// and clearing any earlier grade.
func (r *AssignmentRepository) UpsertSubmission(ctx context.Context, submission *models.AssignmentSubmission) error {
	if submission.SubmittedAt.IsZero() {
		submission.SubmittedAt = time.Now().UTC()
	}
	const query = `INSERT INTO assignment_submissions (assignment_id, student_id, content, file_path, feedback, submitted_at)
        VALUES ($1, $2, $3, $4, '', $5)
        ON CONFLICT (assignment_id, student_id) DO UPDATE
        SET content = EXCLUDED.content, file_path = EXCLUDED.file_path, submitted_at = EXCLUDED.submitted_at,
            grade = NULL, graded_at = NULL, feedback = ''
        RETURNING id`
	if err := r.db.GetContext(ctx, &submission.ID, query, submission.AssignmentID, submission.StudentID,
		submission.Content, submission.FilePath, submission.SubmittedAt); err != nil {
		return fmt.Errorf("upsert submission: %w", err)
	}
	return nil
}

// FindSubmission fetches one submission.
func (r *AssignmentRepository) FindSubmission(ctx context.Context, id int64) (*models.AssignmentSubmission, error) {
	const query = `SELECT id, assignment_id, student_id, content, file_path, grade, feedback, submitted_at, graded_at
        FROM assignment_submissions WHERE id = $1`
	var submission models.AssignmentSubmission
	if err := r.db.GetContext(ctx, &submission, query, id); err != nil {
		return nil, err
	}
	return &submission, nil
}

// ListSubmissions returns all submissions for an assignment.
func (r *AssignmentRepository) ListSubmissions(ctx context.Context, assignmentID int64) ([]models.AssignmentSubmission, error) {
	const query = `SELECT id, assignment_id, student_id, content, file_path, grade, feedback, submitted_at, graded_at
        FROM assignment_submissions WHERE assignment_id = $1 ORDER BY submitted_at DESC`
	var submissions []models.AssignmentSubmission
	if err := r.db.SelectContext(ctx, &submissions, query, assignmentID); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return submissions, nil
}

// Grade records the instructor's score and feedback.
func (r *AssignmentRepository) Grade(ctx context.Context, submissionID int64, grade int, feedback string) error {
	const query = `UPDATE assignment_submissions SET grade = $2, feedback = $3, graded_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, submissionID, grade, feedback, time.Now().UTC()); err != nil {
		return fmt.Errorf("grade submission: %w", err)
	}
	return nil
}
