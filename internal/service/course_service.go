package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/emra-dev/lms-api/internal/dto"
	"github.com/emra-dev/lms-api/internal/models"
	appErrors "github.com/emra-dev/lms-api/pkg/errors"
)

type courseReader interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseStats, int, error)
	FindByID(ctx context.Context, id int64) (*models.CourseStats, error)
	FindBySlug(ctx context.Context, slug string) (*models.CourseStats, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	Delete(ctx context.Context, id int64) error
	Categories(ctx context.Context) ([]string, error)
}

type curriculumStore interface {
	CreateCourse(ctx context.Context, course *models.Course, sections []dto.SectionInput) error
	UpdateCourse(ctx context.Context, course *models.Course, sections []dto.SectionInput) error
	LoadTree(ctx context.Context, courseID int64) (*models.CurriculumTree, error)
}

type enrollmentChecker interface {
	Exists(ctx context.Context, userID string, courseID int64) (bool, error)
	Find(ctx context.Context, userID string, courseID int64) (*models.Enrollment, error)
}

type completionReader interface {
	CompletedLessonIDs(ctx context.Context, userID string, lessonIDs []int64) (map[int64]bool, error)
}

// Viewer identifies the requesting user for per-viewer projections. A zero
// Viewer is an anonymous visitor.
type Viewer struct {
	UserID string
	Role   models.Role
}

// CourseService owns course authoring and the per-viewer course views.
// Protected lesson content is cleared here, in one place, so no handler
// can leak it by accident.
type CourseService struct {
	courses     courseReader
	curriculum  curriculumStore
	enrollments enrollmentChecker
	progress    completionReader
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCourseService constructs CourseService.
func NewCourseService(courses courseReader, curriculum curriculumStore, enrollments enrollmentChecker, progress completionReader, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{
		courses:     courses,
		curriculum:  curriculum,
		enrollments: enrollments,
		progress:    progress,
		validator:   validate,
		logger:      logger,
	}
}

// List returns course summaries for the viewer, with pagination metadata.
func (s *CourseService) List(ctx context.Context, viewer Viewer, filter models.CourseFilter) ([]dto.CourseSummary, *models.Pagination, error) {
	courses, total, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}

	summaries := make([]dto.CourseSummary, 0, len(courses))
	for i := range courses {
		summary, err := s.summarize(ctx, viewer, &courses[i])
		if err != nil {
			return nil, nil, err
		}
		summaries = append(summaries, *summary)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return summaries, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Categories lists the distinct categories of published courses.
func (s *CourseService) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.courses.Categories(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list categories")
	}
	return categories, nil
}

// Create validates and persists a new course with its full tree.
func (s *CourseService) Create(ctx context.Context, viewer Viewer, input dto.CourseTreeInput) (*dto.CourseDetail, error) {
	if viewer.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only teachers can create courses")
	}
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	slug, err := s.uniqueSlug(ctx, input.Title)
	if err != nil {
		return nil, err
	}

	course := courseFromInput(input)
	course.Slug = slug
	course.InstructorID = viewer.UserID

	if err := s.curriculum.CreateCourse(ctx, course, input.Sections); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	return s.GetDetail(ctx, viewer, course.ID)
}

// Update validates the submitted tree and reconciles the stored one. Only
// the owning instructor may update a course.
func (s *CourseService) Update(ctx context.Context, viewer Viewer, courseID int64, input dto.CourseTreeInput) (*dto.CourseDetail, error) {
	existing, err := s.findCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if existing.InstructorID != viewer.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the course instructor can update it")
	}
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course := courseFromInput(input)
	course.ID = existing.ID
	course.Slug = existing.Slug
	course.InstructorID = existing.InstructorID

	if err := s.curriculum.UpdateCourse(ctx, course, input.Sections); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	return s.GetDetail(ctx, viewer, course.ID)
}

// Delete removes a course and its whole tree. Owner only.
func (s *CourseService) Delete(ctx context.Context, viewer Viewer, courseID int64) error {
	existing, err := s.findCourse(ctx, courseID)
	if err != nil {
		return err
	}
	if existing.InstructorID != viewer.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the course instructor can delete it")
	}
	if err := s.courses.Delete(ctx, courseID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	return nil
}

// GetDetail returns the full course page for the viewer. Lessons are
// redacted unless the viewer is enrolled or owns the course.
func (s *CourseService) GetDetail(ctx context.Context, viewer Viewer, courseID int64) (*dto.CourseDetail, error) {
	course, err := s.findCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return s.buildDetail(ctx, viewer, course)
}

// GetDetailBySlug resolves a course by slug for public course pages.
func (s *CourseService) GetDetailBySlug(ctx context.Context, viewer Viewer, slug string) (*dto.CourseDetail, error) {
	course, err := s.courses.FindBySlug(ctx, slug)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return s.buildDetail(ctx, viewer, course)
}

func (s *CourseService) findCourse(ctx context.Context, courseID int64) (*models.CourseStats, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

func (s *CourseService) summarize(ctx context.Context, viewer Viewer, course *models.CourseStats) (*dto.CourseSummary, error) {
	summary := &dto.CourseSummary{
		ID:               course.ID,
		Title:            course.Title,
		Slug:             course.Slug,
		ShortDescription: course.ShortDescription,
		Category:         course.Category,
		Level:            course.Level,
		Language:         course.Language,
		Thumbnail:        course.Thumbnail,
		InstructorID:     course.InstructorID,
		InstructorName:   course.InstructorName,
		Price:            course.Price,
		DiscountPrice:    course.DiscountPrice,
		DurationHours:    course.DurationHours,
		IsPublished:      course.IsPublished,
		IsFeatured:       course.IsFeatured,
		EnrollmentCount:  course.EnrollmentCount,
		AverageRating:    course.AverageRating,
	}
	if viewer.UserID == "" {
		return summary, nil
	}

	enrollment, err := s.enrollments.Find(ctx, viewer.UserID, course.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			return summary, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	summary.IsEnrolled = true
	summary.ProgressPercentage = float64(enrollment.Progress)
	return summary, nil
}

func (s *CourseService) buildDetail(ctx context.Context, viewer Viewer, course *models.CourseStats) (*dto.CourseDetail, error) {
	summary, err := s.summarize(ctx, viewer, course)
	if err != nil {
		return nil, err
	}

	isOwner := viewer.UserID != "" && viewer.UserID == course.InstructorID
	hasAccess := isOwner || summary.IsEnrolled

	tree, err := s.curriculum.LoadTree(ctx, course.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load curriculum")
	}

	var lessonIDs []int64
	for _, lessons := range tree.Lessons {
		for _, lesson := range lessons {
			lessonIDs = append(lessonIDs, lesson.ID)
		}
	}
	completed := map[int64]bool{}
	if hasAccess && viewer.UserID != "" {
		completed, err = s.progress.CompletedLessonIDs(ctx, viewer.UserID, lessonIDs)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load progress")
		}
	}

	sections := make([]dto.SectionView, 0, len(tree.Sections))
	for _, section := range tree.Sections {
		view := dto.SectionView{
			ID:          section.ID,
			Title:       section.Title,
			Description: section.Description,
			Order:       section.Order,
			Lessons:     []dto.LessonView{},
		}
		for _, lesson := range tree.Lessons[section.ID] {
			lessonView := dto.LessonView{
				ID:          lesson.ID,
				Title:       lesson.Title,
				Type:        lesson.Type,
				VideoURL:    lesson.VideoURL,
				VideoFile:   lesson.VideoFile,
				Content:     lesson.Content,
				Summary:     lesson.Summary,
				Order:       lesson.Order,
				Duration:    lesson.Duration,
				IsPreview:   lesson.IsPreview,
				IsCompleted: completed[lesson.ID],
				Resources:   tree.Resources[lesson.ID],
				Quiz:        buildQuizView(tree, lesson.ID, isOwner),
				Assignment:  tree.Assignments[lesson.ID],
			}
			if lessonView.Resources == nil {
				lessonView.Resources = []models.Resource{}
			}
			if !hasAccess {
				lessonView.Redact()
			}
			view.Lessons = append(view.Lessons, lessonView)
		}
		sections = append(sections, view)
	}

	return &dto.CourseDetail{
		CourseSummary:   *summary,
		Description:     course.Description,
		VideoPreviewURL: course.VideoPreviewURL,
		Requirements:    course.Requirements,
		Outcomes:        course.Outcomes,
		CreatedAt:       course.CreatedAt,
		UpdatedAt:       course.UpdatedAt,
		Sections:        sections,
	}, nil
}

func buildQuizView(tree *models.CurriculumTree, lessonID int64, includeAnswers bool) *dto.QuizView {
	quiz := tree.Quizzes[lessonID]
	if quiz == nil {
		return nil
	}
	view := &dto.QuizView{
		ID:        quiz.ID,
		Title:     quiz.Title,
		XPReward:  quiz.XPReward,
		Questions: []dto.QuestionView{},
	}
	for _, question := range tree.Questions[quiz.ID] {
		questionView := dto.QuestionView{
			ID:          question.ID,
			Text:        question.Text,
			Explanation: question.Explanation,
			Choices:     []dto.ChoiceView{},
		}
		for _, choice := range tree.Choices[question.ID] {
			choiceView := dto.ChoiceView{ID: choice.ID, Text: choice.Text}
			if includeAnswers {
				correct := choice.IsCorrect
				choiceView.IsCorrect = &correct
			}
			questionView.Choices = append(questionView.Choices, choiceView)
		}
		view.Questions = append(view.Questions, questionView)
	}
	return view
}

func courseFromInput(input dto.CourseTreeInput) *models.Course {
	level := input.Level
	if level == "" {
		level = "beginner"
	}
	language := input.Language
	if language == "" {
		language = "fr"
	}
	return &models.Course{
		Title:            input.Title,
		Description:      input.Description,
		ShortDescription: input.ShortDescription,
		Category:         input.Category,
		Level:            level,
		Language:         language,
		VideoPreviewURL:  input.VideoPreviewURL,
		Price:            input.Price,
		DiscountPrice:    input.DiscountPrice,
		DurationHours:    input.DurationHours,
		Requirements:     input.Requirements,
		Outcomes:         input.Outcomes,
		IsPublished:      input.IsPublished,
		IsFeatured:       input.IsFeatured,
	}
}

func (s *CourseService) uniqueSlug(ctx context.Context, title string) (string, error) {
	base := slugify(title)
	slug := base
	for attempt := 0; attempt < 3; attempt++ {
		taken, err := s.courses.SlugExists(ctx, slug)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check slug")
		}
		if !taken {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%s", base, uuid.NewString()[:6])
	}
	return slug, nil
}

func slugify(title string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "course"
	}
	return slug
}
