package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/emra-dev/lms-api/internal/models"
)

// RevenueDay is one day of gross completed-order revenue.
type RevenueDay struct {
	Day     time.Time `db:"day"`
	Revenue float64   `db:"revenue"`
}

// CoursePerformance aggregates one course for the top-sellers board.
type CoursePerformance struct {
	CourseID    int64   `db:"course_id"`
	Title       string  `db:"title"`
	Enrollments int     `db:"enrollments"`
	Revenue     float64 `db:"revenue"`
}

// InstructorTotals bundles the headline numbers of the dashboard.
type InstructorTotals struct {
	TotalStudents    int     `db:"total_students"`
	TotalCourses     int     `db:"total_courses"`
	GrossRevenue     float64 `db:"gross_revenue"`
	AverageRating    float64 `db:"average_rating"`
	PendingQuestions int     `db:"pending_questions"`
}

// StudentTotals bundles the learner progress overview.
type StudentTotals struct {
	EnrolledCourses  int     `db:"enrolled_courses"`
	CompletedCourses int     `db:"completed_courses"`
	CompletedLessons int     `db:"completed_lessons"`
	Certificates     int     `db:"certificates"`
	AverageProgress  float64 `db:"average_progress"`
}

// AnalyticsRepository computes dashboard aggregates. Revenue figures are
// gross; the platform share is applied by the service.
type AnalyticsRepository struct {
	db *sqlx.DB
}

// NewAnalyticsRepository constructs an AnalyticsRepository.
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// InstructorTotals aggregates across all of the instructor's courses.
func (r *AnalyticsRepository) InstructorTotals(ctx context.Context, instructorID string) (*InstructorTotals, error) {
	const query = `SELECT
        (SELECT COUNT(DISTINCT e.user_id) FROM enrollments e JOIN courses c ON c.id = e.course_id WHERE c.instructor_id = $1) AS total_students,
        (SELECT COUNT(*) FROM courses c WHERE c.instructor_id = $1) AS total_courses,
        COALESCE((SELECT SUM(o.amount) FROM orders o JOIN courses c ON c.id = o.course_id WHERE c.instructor_id = $1 AND o.status = $2), 0) AS gross_revenue,
        COALESCE((SELECT AVG(rv.rating) FROM reviews rv JOIN courses c ON c.id = rv.course_id WHERE c.instructor_id = $1), 0) AS average_rating,
        (SELECT COUNT(*) FROM discussions d JOIN courses c ON c.id = d.course_id WHERE c.instructor_id = $1 AND d.is_resolved = false) AS pending_questions`
	var totals InstructorTotals
	if err := r.db.GetContext(ctx, &totals, query, instructorID, models.OrderStatusCompleted); err != nil {
		return nil, fmt.Errorf("instructor totals: %w", err)
	}
	return &totals, nil
}

// RevenueByDay returns gross completed-order revenue per day since the
// given time, oldest first. Days with no sales are absent.
func (r *AnalyticsRepository) RevenueByDay(ctx context.Context, instructorID string, since time.Time) ([]RevenueDay, error) {
	const query = `SELECT DATE_TRUNC('day', o.created_at) AS day, SUM(o.amount) AS revenue
        FROM orders o JOIN courses c ON c.id = o.course_id
        WHERE c.instructor_id = $1 AND o.status = $2 AND o.created_at >= $3
        GROUP BY day ORDER BY day`
	var days []RevenueDay
	if err := r.db.SelectContext(ctx, &days, query, instructorID, models.OrderStatusCompleted, since); err != nil {
		return nil, fmt.Errorf("revenue by day: %w", err)
	}
	return days, nil
}

// TopCourses returns the instructor's best sellers by enrollment count.
func (r *AnalyticsRepository) TopCourses(ctx context.Context, instructorID string, limit int) ([]CoursePerformance, error) {
	if limit <= 0 {
		limit = 3
	}
	const query = `SELECT c.id AS course_id, c.title,
        (SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id) AS enrollments,
        COALESCE((SELECT SUM(o.amount) FROM orders o WHERE o.course_id = c.id AND o.status = $2), 0) AS revenue
        FROM courses c WHERE c.instructor_id = $1 ORDER BY enrollments DESC, revenue DESC LIMIT $3`
	var courses []CoursePerformance
	if err := r.db.SelectContext(ctx, &courses, query, instructorID, models.OrderStatusCompleted, limit); err != nil {
		return nil, fmt.Errorf("top courses: %w", err)
	}
	return courses, nil
}

// StudentTotals aggregates the learner's progress across enrollments.
func (r *AnalyticsRepository) StudentTotals(ctx context.Context, userID string) (*StudentTotals, error) {
	const query = `SELECT
        (SELECT COUNT(*) FROM enrollments e WHERE e.user_id = $1) AS enrolled_courses,
        (SELECT COUNT(*) FROM enrollments e WHERE e.user_id = $1 AND e.progress >= 100) AS completed_courses,
        (SELECT COUNT(*) FROM lesson_progress lp WHERE lp.user_id = $1 AND lp.is_completed = true) AS completed_lessons,
        (SELECT COUNT(*) FROM certificates ct WHERE ct.user_id = $1) AS certificates,
        COALESCE((SELECT AVG(e.progress) FROM enrollments e WHERE e.user_id = $1), 0) AS average_progress`
	var totals StudentTotals
	if err := r.db.GetContext(ctx, &totals, query, userID); err != nil {
		return nil, fmt.Errorf("student totals: %w", err)
	}
	return &totals, nil
}
