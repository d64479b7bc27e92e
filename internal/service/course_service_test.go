package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/emra-dev/lms-api/internal/dto"
	"github.com/emra-dev/lms-api/internal/models"
)

type mockCourseRepo struct {
	courses map[int64]*models.CourseStats
	slugs   map[string]bool
	deleted []int64
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseStats, int, error) {
	var out []models.CourseStats
	for _, c := range m.courses {
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id int64) (*models.CourseStats, error) {
	if c, ok := m.courses[id]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) FindBySlug(ctx context.Context, slug string) (*models.CourseStats, error) {
	for _, c := range m.courses {
		if c.Slug == slug {
			copied := *c
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	return m.slugs[slug], nil
}

func (m *mockCourseRepo) Delete(ctx context.Context, id int64) error {
	m.deleted = append(m.deleted, id)
	delete(m.courses, id)
	return nil
}

func (m *mockCourseRepo) Categories(ctx context.Context) ([]string, error) {
	return []string{"programming"}, nil
}

type mockCurriculumRepo struct {
	tree    *models.CurriculumTree
	created *models.Course
	updated *models.Course
}

func (m *mockCurriculumRepo) CreateCourse(ctx context.Context, course *models.Course, sections []dto.SectionInput) error {
	course.ID = 99
	m.created = course
	return nil
}

func (m *mockCurriculumRepo) UpdateCourse(ctx context.Context, course *models.Course, sections []dto.SectionInput) error {
	m.updated = course
	return nil
}

func (m *mockCurriculumRepo) LoadTree(ctx context.Context, courseID int64) (*models.CurriculumTree, error) {
	if m.tree != nil {
		return m.tree, nil
	}
	return &models.CurriculumTree{
		Lessons:     map[int64][]models.Lesson{},
		Resources:   map[int64][]models.Resource{},
		Quizzes:     map[int64]*models.Quiz{},
		Questions:   map[int64][]models.Question{},
		Choices:     map[int64][]models.Choice{},
		Assignments: map[int64]*models.Assignment{},
	}, nil
}

type mockEnrollments struct {
	enrolled map[string]map[int64]*models.Enrollment
	created  []int64
}

func (m *mockEnrollments) key(userID string, courseID int64) *models.Enrollment {
	if byCourse, ok := m.enrolled[userID]; ok {
		return byCourse[courseID]
	}
	return nil
}

func (m *mockEnrollments) Exists(ctx context.Context, userID string, courseID int64) (bool, error) {
	return m.key(userID, courseID) != nil, nil
}

func (m *mockEnrollments) Find(ctx context.Context, userID string, courseID int64) (*models.Enrollment, error) {
	if e := m.key(userID, courseID); e != nil {
		return e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollments) GetOrCreate(ctx context.Context, userID string, courseID int64) (*models.Enrollment, bool, error) {
	if e := m.key(userID, courseID); e != nil {
		return e, false, nil
	}
	if m.enrolled == nil {
		m.enrolled = map[string]map[int64]*models.Enrollment{}
	}
	if m.enrolled[userID] == nil {
		m.enrolled[userID] = map[int64]*models.Enrollment{}
	}
	enrollment := &models.Enrollment{ID: int64(len(m.created) + 1), UserID: userID, CourseID: courseID}
	m.enrolled[userID][courseID] = enrollment
	m.created = append(m.created, courseID)
	return enrollment, true, nil
}

func (m *mockEnrollments) ListByUser(ctx context.Context, userID string) ([]models.EnrollmentDetail, error) {
	var out []models.EnrollmentDetail
	for _, e := range m.enrolled[userID] {
		out = append(out, models.EnrollmentDetail{Enrollment: *e})
	}
	return out, nil
}

func (m *mockEnrollments) UpdateProgress(ctx context.Context, userID string, courseID int64, progress int) error {
	if e := m.key(userID, courseID); e != nil {
		e.Progress = progress
	}
	return nil
}

type mockCompletion struct {
	completed map[int64]bool
}

func (m *mockCompletion) CompletedLessonIDs(ctx context.Context, userID string, lessonIDs []int64) (map[int64]bool, error) {
	return m.completed, nil
}

type mockNotifier struct {
	sent []models.Notification
}

func (m *mockNotifier) Notify(ctx context.Context, userID string, kind models.NotificationType, title, description string, link *string) error {
	m.sent = append(m.sent, models.Notification{UserID: userID, Type: kind, Title: title, Description: description, Link: link})
	return nil
}

func strPtr(v string) *string { return &v }

func gatedCourseFixture() (*mockCourseRepo, *mockCurriculumRepo) {
	courses := &mockCourseRepo{courses: map[int64]*models.CourseStats{
		7: {
			Course: models.Course{
				ID:           7,
				Title:        "Go 101",
				Slug:         "go-101",
				InstructorID: "inst-1",
				Price:        5000,
				IsPublished:  true,
			},
			InstructorName: "Prof",
		},
	}}
	curriculum := &mockCurriculumRepo{tree: &models.CurriculumTree{
		Sections: []models.Section{{ID: 1, CourseID: 7, Title: "Basics", Order: 0}},
		Lessons: map[int64][]models.Lesson{
			1: {{
				ID:        10,
				SectionID: 1,
				Title:     "Intro",
				Type:      models.LessonTypeVideo,
				VideoURL:  strPtr("https://cdn.example.com/intro.mp4"),
				Content:   "full lesson text",
				IsPreview: true,
			}},
		},
		Resources: map[int64][]models.Resource{
			10: {{ID: 1, LessonID: 10, Title: "Slides"}},
		},
		Quizzes: map[int64]*models.Quiz{
			10: {ID: 40, LessonID: 10, Title: "Checkpoint", XPReward: 25},
		},
		Questions: map[int64][]models.Question{
			40: {{ID: 50, QuizID: 40, Text: "2+2?"}},
		},
		Choices: map[int64][]models.Choice{
			50: {
				{ID: 60, QuestionID: 50, Text: "4", IsCorrect: true},
				{ID: 61, QuestionID: 50, Text: "5", IsCorrect: false},
			},
		},
		Assignments: map[int64]*models.Assignment{},
	}}
	return courses, curriculum
}

func TestCourseServiceDetailRedactsForVisitors(t *testing.T) {
	courses, curriculum := gatedCourseFixture()
	svc := NewCourseService(courses, curriculum, &mockEnrollments{}, &mockCompletion{}, validator.New(), zap.NewNop())

	detail, err := svc.GetDetail(context.Background(), Viewer{}, 7)
	require.NoError(t, err)
	require.Len(t, detail.Sections, 1)
	require.Len(t, detail.Sections[0].Lessons, 1)

	lesson := detail.Sections[0].Lessons[0]
	assert.Equal(t, "Intro", lesson.Title)
	assert.Nil(t, lesson.VideoURL)
	assert.Empty(t, lesson.Content)
	assert.Empty(t, lesson.Resources)
	assert.Nil(t, lesson.Quiz)
	assert.False(t, detail.IsEnrolled)
}

func TestCourseServiceDetailPreviewFlagDoesNotBypassGate(t *testing.T) {
	courses, curriculum := gatedCourseFixture()
	svc := NewCourseService(courses, curriculum, &mockEnrollments{}, &mockCompletion{}, validator.New(), zap.NewNop())

	detail, err := svc.GetDetail(context.Background(), Viewer{UserID: "stranger", Role: models.RoleStudent}, 7)
	require.NoError(t, err)

	lesson := detail.Sections[0].Lessons[0]
	assert.True(t, lesson.IsPreview)
	assert.Nil(t, lesson.VideoURL)
	assert.Empty(t, lesson.Content)
}

func TestCourseServiceDetailForEnrolledStudent(t *testing.T) {
	courses, curriculum := gatedCourseFixture()
	enrollments := &mockEnrollments{enrolled: map[string]map[int64]*models.Enrollment{
		"stud-1": {7: {ID: 1, UserID: "stud-1", CourseID: 7, Progress: 40}},
	}}
	completion := &mockCompletion{completed: map[int64]bool{10: true}}
	svc := NewCourseService(courses, curriculum, enrollments, completion, validator.New(), zap.NewNop())

	detail, err := svc.GetDetail(context.Background(), Viewer{UserID: "stud-1", Role: models.RoleStudent}, 7)
	require.NoError(t, err)
	assert.True(t, detail.IsEnrolled)
	assert.Equal(t, 40.0, detail.ProgressPercentage)

	lesson := detail.Sections[0].Lessons[0]
	require.NotNil(t, lesson.VideoURL)
	assert.Equal(t, "full lesson text", lesson.Content)
	assert.Len(t, lesson.Resources, 1)
	assert.True(t, lesson.IsCompleted)

	require.NotNil(t, lesson.Quiz)
	require.Len(t, lesson.Quiz.Questions, 1)
	for _, choice := range lesson.Quiz.Questions[0].Choices {
		assert.Nil(t, choice.IsCorrect)
	}
}

func TestCourseServiceDetailForOwnerIncludesAnswers(t *testing.T) {
	courses, curriculum := gatedCourseFixture()
	svc := NewCourseService(courses, curriculum, &mockEnrollments{}, &mockCompletion{}, validator.New(), zap.NewNop())

	detail, err := svc.GetDetail(context.Background(), Viewer{UserID: "inst-1", Role: models.RoleTeacher}, 7)
	require.NoError(t, err)

	lesson := detail.Sections[0].Lessons[0]
	require.NotNil(t, lesson.Quiz)
	choices := lesson.Quiz.Questions[0].Choices
	require.Len(t, choices, 2)
	require.NotNil(t, choices[0].IsCorrect)
	assert.True(t, *choices[0].IsCorrect)
	require.NotNil(t, choices[1].IsCorrect)
	assert.False(t, *choices[1].IsCorrect)
}

func TestCourseServiceCreateRequiresTeacher(t *testing.T) {
	courses, curriculum := gatedCourseFixture()
	svc := NewCourseService(courses, curriculum, &mockEnrollments{}, &mockCompletion{}, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), Viewer{UserID: "stud-1", Role: models.RoleStudent}, dto.CourseTreeInput{
		Title:       "New course",
		Description: "desc",
		Category:    "programming",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "teachers")
}

func TestCourseServiceUpdateRequiresOwner(t *testing.T) {
	courses, curriculum := gatedCourseFixture()
	svc := NewCourseService(courses, curriculum, &mockEnrollments{}, &mockCompletion{}, validator.New(), zap.NewNop())

	_, err := svc.Update(context.Background(), Viewer{UserID: "other-teacher", Role: models.RoleTeacher}, 7, dto.CourseTreeInput{
		Title:       "Hijack",
		Description: "desc",
		Category:    "programming",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "instructor")
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "go-pour-les-nuls", slugify("Go pour les nuls"))
	assert.Equal(t, "course", slugify("???"))
	assert.Equal(t, "a-b", slugify("  A -- b  "))
}
