package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/emra-dev/lms-api/internal/models"
)

// CourseRepository reads course records with their listing aggregates.
// Writes to the curriculum tree go through CurriculumRepository.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseStatsColumns = `c.id, c.title, c.slug, c.description, c.short_description, c.category, c.level, c.language,
        c.thumbnail, c.video_preview_url, c.instructor_id, c.price, c.discount_price, c.duration_hours,
        c.requirements, c.outcomes, c.is_published, c.is_featured, c.created_at, c.updated_at,
        u.username AS instructor_name,
        (SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id) AS enrollment_count,
        COALESCE((SELECT AVG(rv.rating) FROM reviews rv WHERE rv.course_id = c.id), 0) AS average_rating`

// List returns courses matching the filter plus the total match count.
// Unpublished courses are only visible through the InstructorID filter.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseStats, int, error) {
	base := "FROM courses c JOIN users u ON u.id = c.instructor_id"
	args := []interface{}{}
	conditions := []string{}

	if filter.InstructorID != "" {
		conditions = append(conditions, fmt.Sprintf("c.instructor_id = $%d", len(args)+1))
		args = append(args, filter.InstructorID)
	} else {
		conditions = append(conditions, "c.is_published = true")
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(c.title) LIKE $%d OR LOWER(c.description) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("c.category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.Level != "" {
		conditions = append(conditions, fmt.Sprintf("c.level = $%d", len(args)+1))
		args = append(args, filter.Level)
	}
	if filter.Featured != nil {
		conditions = append(conditions, fmt.Sprintf("c.is_featured = $%d", len(args)+1))
		args = append(args, *filter.Featured)
	}
	if filter.EnrolledUser != "" {
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM enrollments me WHERE me.course_id = c.id AND me.user_id = $%d)", len(args)+1))
		args = append(args, filter.EnrolledUser)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"created_at":  "c.created_at DESC",
		"-created_at": "c.created_at DESC",
		"price":       "c.price ASC",
		"-price":      "c.price DESC",
		"rating":      "average_rating DESC",
		"popular":     "enrollment_count DESC",
		"trending":    "enrollment_count DESC, c.created_at DESC",
	}
	orderBy, ok := allowedSorts[filter.Ordering]
	if !ok {
		orderBy = "c.created_at DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s LIMIT %d OFFSET %d", courseStatsColumns, base, orderBy, size, offset)

	var courses []models.CourseStats
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// FindByID fetches one course with aggregates.
func (r *CourseRepository) FindByID(ctx context.Context, id int64) (*models.CourseStats, error) {
	query := fmt.Sprintf("SELECT %s FROM courses c JOIN users u ON u.id = c.instructor_id WHERE c.id = $1", courseStatsColumns)
	var course models.CourseStats
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindBySlug fetches one course with aggregates by its slug.
func (r *CourseRepository) FindBySlug(ctx context.Context, slug string) (*models.CourseStats, error) {
	query := fmt.Sprintf("SELECT %s FROM courses c JOIN users u ON u.id = c.instructor_id WHERE c.slug = $1", courseStatsColumns)
	var course models.CourseStats
	if err := r.db.GetContext(ctx, &course, query, slug); err != nil {
		return nil, err
	}
	return &course, nil
}

// SlugExists reports whether a slug is already in use.
func (r *CourseRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM courses WHERE slug = $1 LIMIT 1", slug)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return true, nil
}

// Delete removes a course. Child rows cascade at the database level.
func (r *CourseRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM courses WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("delete course %d: %w", id, sql.ErrNoRows)
	}
	return nil
}

// Categories lists distinct categories of published courses.
func (r *CourseRepository) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	const query = `SELECT DISTINCT category FROM courses WHERE is_published = true ORDER BY category`
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}
