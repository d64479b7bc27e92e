package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/emra-dev/lms-api/internal/dto"
	"github.com/emra-dev/lms-api/internal/models"
)

// CurriculumRepository owns all writes to the course content tree. Every
// submitted tree is applied in a single transaction so the stored
// curriculum always matches exactly one submitted payload.
type CurriculumRepository struct {
	db *sqlx.DB
}

// NewCurriculumRepository constructs a CurriculumRepository.
func NewCurriculumRepository(db *sqlx.DB) *CurriculumRepository {
	return &CurriculumRepository{db: db}
}

// CreateCourse inserts the course row and its full tree.
func (r *CurriculumRepository) CreateCourse(ctx context.Context, course *models.Course, sections []dto.SectionInput) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create course: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now

	const insert = `INSERT INTO courses (title, slug, description, short_description, category, level, language, video_preview_url,
        instructor_id, price, discount_price, duration_hours, requirements, outcomes, is_published, is_featured, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18) RETURNING id`
	if err := tx.GetContext(ctx, &course.ID, insert,
		course.Title, course.Slug, course.Description, course.ShortDescription, course.Category, course.Level,
		course.Language, course.VideoPreviewURL, course.InstructorID, course.Price, course.DiscountPrice,
		course.DurationHours, course.Requirements, course.Outcomes, course.IsPublished, course.IsFeatured,
		course.CreatedAt, course.UpdatedAt); err != nil {
		return fmt.Errorf("insert course: %w", err)
	}

	if err := r.syncSections(ctx, tx, course.ID, sections); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create course: %w", err)
	}
	return nil
}

// UpdateCourse rewrites the course scalars and reconciles the stored tree
// against the submitted one. Submitted nodes whose id matches an existing
// child are updated in place, unmatched ones are created, and stored
// children absent from the payload are deleted.
func (r *CurriculumRepository) UpdateCourse(ctx context.Context, course *models.Course, sections []dto.SectionInput) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update course: %w", err)
	}
	defer tx.Rollback()

	course.UpdatedAt = time.Now().UTC()
	const update = `UPDATE courses SET title = $2, description = $3, short_description = $4, category = $5, level = $6,
        language = $7, video_preview_url = $8, price = $9, discount_price = $10, duration_hours = $11,
        requirements = $12, outcomes = $13, is_published = $14, is_featured = $15, updated_at = $16 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, update,
		course.ID, course.Title, course.Description, course.ShortDescription, course.Category, course.Level,
		course.Language, course.VideoPreviewURL, course.Price, course.DiscountPrice, course.DurationHours,
		course.Requirements, course.Outcomes, course.IsPublished, course.IsFeatured, course.UpdatedAt); err != nil {
		return fmt.Errorf("update course: %w", err)
	}

	if err := r.syncSections(ctx, tx, course.ID, sections); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update course: %w", err)
	}
	return nil
}

func (r *CurriculumRepository) syncSections(ctx context.Context, tx *sqlx.Tx, courseID int64, sections []dto.SectionInput) error {
	var existingIDs []int64
	if err := tx.SelectContext(ctx, &existingIDs, "SELECT id FROM sections WHERE course_id = $1", courseID); err != nil {
		return fmt.Errorf("load section ids: %w", err)
	}
	existing := make(map[int64]bool, len(existingIDs))
	for _, id := range existingIDs {
		existing[id] = true
	}

	kept := make([]int64, 0, len(sections))
	for i, section := range sections {
		position := i
		if section.Order != nil {
			position = *section.Order
		}

		var sectionID int64
		if id, ok := section.ID.Int64(); ok && existing[id] {
			const update = `UPDATE sections SET title = $2, description = $3, position = $4 WHERE id = $1 AND course_id = $5`
			if _, err := tx.ExecContext(ctx, update, id, section.Title, section.Description, position, courseID); err != nil {
				return fmt.Errorf("update section %d: %w", id, err)
			}
			sectionID = id
		} else {
			const insert = `INSERT INTO sections (course_id, title, description, position) VALUES ($1, $2, $3, $4) RETURNING id`
			if err := tx.GetContext(ctx, &sectionID, insert, courseID, section.Title, section.Description, position); err != nil {
				return fmt.Errorf("insert section: %w", err)
			}
		}
		kept = append(kept, sectionID)

		if err := r.syncLessons(ctx, tx, sectionID, section.Lessons); err != nil {
			return err
		}
	}

	const prune = `DELETE FROM sections WHERE course_id = $1 AND NOT (id = ANY($2))`
	if _, err := tx.ExecContext(ctx, prune, courseID, pq.Array(kept)); err != nil {
		return fmt.Errorf("prune sections: %w", err)
	}
	return nil
}

func (r *CurriculumRepository) syncLessons(ctx context.Context, tx *sqlx.Tx, sectionID int64, lessons []dto.LessonInput) error {
	var existingIDs []int64
	if err := tx.SelectContext(ctx, &existingIDs, "SELECT id FROM lessons WHERE section_id = $1", sectionID); err != nil {
		return fmt.Errorf("load lesson ids: %w", err)
	}
	existing := make(map[int64]bool, len(existingIDs))
	for _, id := range existingIDs {
		existing[id] = true
	}

	kept := make([]int64, 0, len(lessons))
	for i, lesson := range lessons {
		position := i
		if lesson.Order != nil {
			position = *lesson.Order
		}
		lessonType := lesson.Type
		if lessonType == "" {
			lessonType = string(models.LessonTypeVideo)
		}

		var lessonID int64
		if id, ok := lesson.ID.Int64(); ok && existing[id] {
			const update = `UPDATE lessons SET title = $2, lesson_type = $3, video_url = $4, content = $5, summary = $6,
                position = $7, duration = $8, is_preview = $9 WHERE id = $1 AND section_id = $10`
			if _, err := tx.ExecContext(ctx, update, id, lesson.Title, lessonType, lesson.VideoURL, lesson.Content,
				lesson.Summary, position, lesson.Duration, lesson.IsPreview, sectionID); err != nil {
				return fmt.Errorf("update lesson %d: %w", id, err)
			}
			lessonID = id
		} else {
			const insert = `INSERT INTO lessons (section_id, title, lesson_type, video_url, content, summary, position, duration, is_preview)
                VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
			if err := tx.GetContext(ctx, &lessonID, insert, sectionID, lesson.Title, lessonType, lesson.VideoURL,
				lesson.Content, lesson.Summary, position, lesson.Duration, lesson.IsPreview); err != nil {
				return fmt.Errorf("insert lesson: %w", err)
			}
		}
		kept = append(kept, lessonID)

		if lesson.Quiz != nil {
			if err := r.replaceQuiz(ctx, tx, lessonID, lesson.Quiz); err != nil {
				return err
			}
		}
	}

	const prune = `DELETE FROM lessons WHERE section_id = $1 AND NOT (id = ANY($2))`
	if _, err := tx.ExecContext(ctx, prune, sectionID, pq.Array(kept)); err != nil {
		return fmt.Errorf("prune lessons: %w", err)
	}
	return nil
}

// replaceQuiz upserts the quiz row and rebuilds its question set from
// scratch. Questions carry no stable client ids, so diffing them is not
// worth the trouble.
func (r *CurriculumRepository) replaceQuiz(ctx context.Context, tx *sqlx.Tx, lessonID int64, quiz *dto.QuizInput) error {
	const upsert = `INSERT INTO quizzes (lesson_id, title, xp_reward) VALUES ($1, $2, $3)
        ON CONFLICT (lesson_id) DO UPDATE SET title = EXCLUDED.title, xp_reward = EXCLUDED.xp_reward RETURNING id`
	var quizID int64
	if err := tx.GetContext(ctx, &quizID, upsert, lessonID, quiz.Title, quiz.XPReward); err != nil {
		return fmt.Errorf("upsert quiz: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM questions WHERE quiz_id = $1", quizID); err != nil {
		return fmt.Errorf("clear questions: %w", err)
	}

	for _, question := range quiz.Questions {
		var questionID int64
		const insertQuestion = `INSERT INTO questions (quiz_id, text, explanation) VALUES ($1, $2, $3) RETURNING id`
		if err := tx.GetContext(ctx, &questionID, insertQuestion, quizID, question.Text, question.Explanation); err != nil {
			return fmt.Errorf("insert question: %w", err)
		}
		for _, choice := range question.Choices {
			const insertChoice = `INSERT INTO choices (question_id, text, is_correct) VALUES ($1, $2, $3)`
			if _, err := tx.ExecContext(ctx, insertChoice, questionID, choice.Text, choice.IsCorrect); err != nil {
				return fmt.Errorf("insert choice: %w", err)
			}
		}
	}
	return nil
}

// LoadTree reads the complete stored curriculum of a course.
func (r *CurriculumRepository) LoadTree(ctx context.Context, courseID int64) (*models.CurriculumTree, error) {
	tree := &models.CurriculumTree{
		Lessons:     map[int64][]models.Lesson{},
		Resources:   map[int64][]models.Resource{},
		Quizzes:     map[int64]*models.Quiz{},
		Questions:   map[int64][]models.Question{},
		Choices:     map[int64][]models.Choice{},
		Assignments: map[int64]*models.Assignment{},
	}

	const sectionsQuery = `SELECT id, course_id, title, description, position FROM sections WHERE course_id = $1 ORDER BY position, id`
	if err := r.db.SelectContext(ctx, &tree.Sections, sectionsQuery, courseID); err != nil {
		return nil, fmt.Errorf("load sections: %w", err)
	}

	var lessons []models.Lesson
	const lessonsQuery = `SELECT l.id, l.section_id, l.title, l.lesson_type, l.video_url, l.video_file, l.content, l.summary, l.position, l.duration, l.is_preview
        FROM lessons l JOIN sections s ON s.id = l.section_id WHERE s.course_id = $1 ORDER BY l.position, l.id`
	if err := r.db.SelectContext(ctx, &lessons, lessonsQuery, courseID); err != nil {
		return nil, fmt.Errorf("load lessons: %w", err)
	}
	for _, lesson := range lessons {
		tree.Lessons[lesson.SectionID] = append(tree.Lessons[lesson.SectionID], lesson)
	}

	var resources []models.Resource
	const resourcesQuery = `SELECT res.id, res.lesson_id, res.title, res.file_path, res.file_type, res.file_size, res.created_at
        FROM resources res JOIN lessons l ON l.id = res.lesson_id JOIN sections s ON s.id = l.section_id WHERE s.course_id = $1 ORDER BY res.id`
	if err := r.db.SelectContext(ctx, &resources, resourcesQuery, courseID); err != nil {
		return nil, fmt.Errorf("load resources: %w", err)
	}
	for _, resource := range resources {
		tree.Resources[resource.LessonID] = append(tree.Resources[resource.LessonID], resource)
	}

	var quizzes []models.Quiz
	const quizzesQuery = `SELECT q.id, q.lesson_id, q.title, q.xp_reward
        FROM quizzes q JOIN lessons l ON l.id = q.lesson_id JOIN sections s ON s.id = l.section_id WHERE s.course_id = $1`
	if err := r.db.SelectContext(ctx, &quizzes, quizzesQuery, courseID); err != nil {
		return nil, fmt.Errorf("load quizzes: %w", err)
	}
	for i := range quizzes {
		tree.Quizzes[quizzes[i].LessonID] = &quizzes[i]
	}

	var questions []models.Question
	const questionsQuery = `SELECT qq.id, qq.quiz_id, qq.text, qq.explanation
        FROM questions qq JOIN quizzes q ON q.id = qq.quiz_id JOIN lessons l ON l.id = q.lesson_id
        JOIN sections s ON s.id = l.section_id WHERE s.course_id = $1 ORDER BY qq.id`
	if err := r.db.SelectContext(ctx, &questions, questionsQuery, courseID); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	for _, question := range questions {
		tree.Questions[question.QuizID] = append(tree.Questions[question.QuizID], question)
	}

	var choices []models.Choice
	const choicesQuery = `SELECT ch.id, ch.question_id, ch.text, ch.is_correct
        FROM choices ch JOIN questions qq ON qq.id = ch.question_id JOIN quizzes q ON q.id = qq.quiz_id
        JOIN lessons l ON l.id = q.lesson_id JOIN sections s ON s.id = l.section_id WHERE s.course_id = $1 ORDER BY ch.id`
	if err := r.db.SelectContext(ctx, &choices, choicesQuery, courseID); err != nil {
		return nil, fmt.Errorf("load choices: %w", err)
	}
	for _, choice := range choices {
		tree.Choices[choice.QuestionID] = append(tree.Choices[choice.QuestionID], choice)
	}

	var assignments []models.Assignment
	const assignmentsQuery = `SELECT a.id, a.lesson_id, a.title, a.instructions, a.total_points, a.due_date
        FROM assignments a JOIN lessons l ON l.id = a.lesson_id JOIN sections s ON s.id = l.section_id WHERE s.course_id = $1`
	if err := r.db.SelectContext(ctx, &assignments, assignmentsQuery, courseID); err != nil {
		return nil, fmt.Errorf("load assignments: %w", err)
	}
	for i := range assignments {
		tree.Assignments[assignments[i].LessonID] = &assignments[i]
	}

	return tree, nil
}

// FindLesson fetches one lesson with its owning course and instructor for
// access checks.
func (r *CurriculumRepository) FindLesson(ctx context.Context, lessonID int64) (*models.Lesson, int64, string, error) {
	var row struct {
		models.Lesson
		CourseID     int64  `db:"course_id"`
		InstructorID string `db:"instructor_id"`
	}
	const query = `SELECT l.id, l.section_id, l.title, l.lesson_type, l.video_url, l.video_file, l.content, l.summary, l.position, l.duration, l.is_preview,
        s.course_id, c.instructor_id
        FROM lessons l JOIN sections s ON s.id = l.section_id JOIN courses c ON c.id = s.course_id WHERE l.id = $1`
	if err := r.db.GetContext(ctx, &row, query, lessonID); err != nil {
		return nil, 0, "", err
	}
	return &row.Lesson, row.CourseID, row.InstructorID, nil
}

// CountLessons returns the number of lessons in a course.
func (r *CurriculumRepository) CountLessons(ctx context.Context, courseID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM lessons l JOIN sections s ON s.id = l.section_id WHERE s.course_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, courseID); err != nil {
		return 0, fmt.Errorf("count lessons: %w", err)
	}
	return count, nil
}
