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

type mockProgressRepo struct {
	completed map[string]map[int64]bool
}

func newMockProgressRepo() *mockProgressRepo {
	return &mockProgressRepo{completed: map[string]map[int64]bool{}}
}

func (m *mockProgressRepo) Toggle(ctx context.Context, userID string, lessonID int64) (bool, error) {
	if m.completed[userID] == nil {
		m.completed[userID] = map[int64]bool{}
	}
	m.completed[userID][lessonID] = !m.completed[userID][lessonID]
	return m.completed[userID][lessonID], nil
}

func (m *mockProgressRepo) MarkComplete(ctx context.Context, userID string, lessonID int64) (bool, error) {
	if m.completed[userID] == nil {
		m.completed[userID] = map[int64]bool{}
	}
	if m.completed[userID][lessonID] {
		return false, nil
	}
	m.completed[userID][lessonID] = true
	return true, nil
}

func (m *mockProgressRepo) CountCompleted(ctx context.Context, userID string, courseID int64) (int, error) {
	count := 0
	for _, done := range m.completed[userID] {
		if done {
			count++
		}
	}
	return count, nil
}

type mockLessonResolver struct {
	lessons      map[int64]int64 // lesson id -> course id
	totalLessons int
}

func (m *mockLessonResolver) FindLesson(ctx context.Context, lessonID int64) (*models.Lesson, int64, string, error) {
	courseID, ok := m.lessons[lessonID]
	if !ok {
		return nil, 0, "", sql.ErrNoRows
	}
	return &models.Lesson{ID: lessonID, Title: "Lesson"}, courseID, "inst-1", nil
}

func (m *mockLessonResolver) CountLessons(ctx context.Context, courseID int64) (int, error) {
	return m.totalLessons, nil
}

type mockQuizRepo struct {
	quiz      *models.Quiz
	courseID  int64
	correct   map[int64][]int64
	questions int
	attempts  []models.QuizAttempt
}

func (m *mockQuizRepo) FindByID(ctx context.Context, id int64) (*models.Quiz, int64, string, error) {
	if m.quiz == nil || m.quiz.ID != id {
		return nil, 0, "", sql.ErrNoRows
	}
	return m.quiz, m.courseID, "inst-1", nil
}

func (m *mockQuizRepo) CorrectChoices(ctx context.Context, quizID int64) (map[int64][]int64, error) {
	return m.correct, nil
}

func (m *mockQuizRepo) CountQuestions(ctx context.Context, quizID int64) (int, error) {
	return m.questions, nil
}

func (m *mockQuizRepo) CreateAttempt(ctx context.Context, attempt *models.QuizAttempt) error {
	attempt.ID = int64(len(m.attempts) + 1)
	m.attempts = append(m.attempts, *attempt)
	return nil
}

func (m *mockQuizRepo) ListAttempts(ctx context.Context, userID string, quizID int64) ([]models.QuizAttempt, error) {
	return m.attempts, nil
}

type mockXPStore struct {
	deltas []int
	total  int
}

func (m *mockXPStore) AddXP(ctx context.Context, userID string, points int) (int, error) {
	m.deltas = append(m.deltas, points)
	m.total += points
	return m.total, nil
}

type mockCertRepo struct {
	issued map[string]map[int64]*models.Certificate
}

func (m *mockCertRepo) GetOrCreate(ctx context.Context, userID string, courseID int64) (*models.Certificate, bool, error) {
	if m.issued == nil {
		m.issued = map[string]map[int64]*models.Certificate{}
	}
	if cert, ok := m.issued[userID][courseID]; ok {
		return cert, false, nil
	}
	if m.issued[userID] == nil {
		m.issued[userID] = map[int64]*models.Certificate{}
	}
	cert := &models.Certificate{ID: 1, UserID: userID, CourseID: courseID, SerialNumber: "ABCD1234"}
	m.issued[userID][courseID] = cert
	return cert, true, nil
}

type learningFixture struct {
	courses      *mockCourseRepo
	enrollments  *mockEnrollments
	progress     *mockProgressRepo
	lessons      *mockLessonResolver
	quizzes      *mockQuizRepo
	xp           *mockXPStore
	certificates *mockCertRepo
	notifier     *mockNotifier
}

func newLearningFixture() *learningFixture {
	return &learningFixture{
		courses: &mockCourseRepo{courses: map[int64]*models.CourseStats{
			7: {Course: models.Course{ID: 7, Title: "Go 101", InstructorID: "inst-1", Price: 5000, IsPublished: true}},
			8: {Course: models.Course{ID: 8, Title: "Gratuit", InstructorID: "inst-1", Price: 0, IsPublished: true}},
		}},
		enrollments: &mockEnrollments{enrolled: map[string]map[int64]*models.Enrollment{
			"stud-1": {7: {ID: 1, UserID: "stud-1", CourseID: 7}},
		}},
		progress: newMockProgressRepo(),
		lessons:  &mockLessonResolver{lessons: map[int64]int64{10: 7, 11: 7}, totalLessons: 2},
		quizzes: &mockQuizRepo{
			quiz:     &models.Quiz{ID: 40, LessonID: 10, Title: "Checkpoint", XPReward: 25},
			courseID: 7,
			correct: map[int64][]int64{
				50: {60},
				51: {62},
				52: {64},
				53: {66},
				54: {68},
			},
			questions: 5,
		},
		xp:           &mockXPStore{},
		certificates: &mockCertRepo{},
		notifier:     &mockNotifier{},
	}
}

func (f *learningFixture) service() *LearningService {
	return NewLearningService(f.courses, f.enrollments, f.progress, f.lessons, f.quizzes, f.xp,
		f.certificates, f.notifier, LearningConfig{}, validator.New(), zap.NewNop())
}

func TestLearningServiceEnrollRejectsPaidCourse(t *testing.T) {
	f := newLearningFixture()
	svc := f.service()

	_, err := svc.Enroll(context.Background(), Viewer{UserID: "stud-2"}, 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "purchase")
}

func TestLearningServiceEnrollFreeCourseIsIdempotent(t *testing.T) {
	f := newLearningFixture()
	svc := f.service()
	viewer := Viewer{UserID: "stud-2", Role: models.RoleStudent}

	first, err := svc.Enroll(context.Background(), viewer, 8)
	require.NoError(t, err)
	second, err := svc.Enroll(context.Background(), viewer, 8)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.notifier.sent, 1)
}

func TestLearningServiceToggleAwardsAndRevokesXP(t *testing.T) {
	f := newLearningFixture()
	svc := f.service()
	viewer := Viewer{UserID: "stud-1", Role: models.RoleStudent}

	done, err := svc.ToggleLessonCompletion(context.Background(), viewer, 10)
	require.NoError(t, err)
	assert.True(t, done.Completed)
	assert.Equal(t, 50, done.XPAwarded)
	assert.Equal(t, 50.0, done.ProgressPercentage)
	assert.False(t, done.CertificateIssued)

	undone, err := svc.ToggleLessonCompletion(context.Background(), viewer, 10)
	require.NoError(t, err)
	assert.False(t, undone.Completed)
	assert.Equal(t, -50, undone.XPAwarded)
	assert.Equal(t, 0.0, undone.ProgressPercentage)

	assert.Equal(t, 0, f.xp.total)
}

func TestLearningServiceToggleRequiresEnrollment(t *testing.T) {
	f := newLearningFixture()
	svc := f.service()

	_, err := svc.ToggleLessonCompletion(context.Background(), Viewer{UserID: "stranger"}, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enrollment")
}

func TestLearningServiceToggleIssuesCertificateAtFullProgress(t *testing.T) {
	f := newLearningFixture()
	svc := f.service()
	viewer := Viewer{UserID: "stud-1", Role: models.RoleStudent}

	_, err := svc.ToggleLessonCompletion(context.Background(), viewer, 10)
	require.NoError(t, err)

	result, err := svc.ToggleLessonCompletion(context.Background(), viewer, 11)
	require.NoError(t, err)
	assert.Equal(t, 100.0, result.ProgressPercentage)
	assert.True(t, result.CertificateIssued)
	assert.Equal(t, 100, f.enrollments.enrolled["stud-1"][7].Progress)

	var achievement bool
	for _, n := range f.notifier.sent {
		if n.Type == models.NotificationAchievement {
			achievement = true
		}
	}
	assert.True(t, achievement)

	// Completing again after un-toggling does not issue a second certificate.
	_, err = svc.ToggleLessonCompletion(context.Background(), viewer, 11)
	require.NoError(t, err)
	again, err := svc.ToggleLessonCompletion(context.Background(), viewer, 11)
	require.NoError(t, err)
	assert.False(t, again.CertificateIssued)
}

func TestLearningServiceSubmitQuizPassesAtThreshold(t *testing.T) {
	f := newLearningFixture()
	svc := f.service()
	viewer := Viewer{UserID: "stud-1", Role: models.RoleStudent}

	// 3 of 5 correct is exactly the passing ratio.
	result, err := svc.SubmitQuiz(context.Background(), viewer, 40, dto.SubmitQuizRequest{
		Answers: map[string]int64{"50": 60, "51": 62, "52": 64, "53": 99, "54": 99},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Score)
	assert.Equal(t, 5, result.TotalQuestions)
	assert.Equal(t, 60.0, result.Percentage)
	assert.True(t, result.Passed)
	assert.Equal(t, 25, result.XPRewarded)
	assert.True(t, result.NewlyCompleted)
	require.Len(t, f.quizzes.attempts, 1)
	assert.Equal(t, 3, f.quizzes.attempts[0].Score)

	// The pass completes the quiz's lesson and the course progress moves.
	assert.True(t, f.progress.completed["stud-1"][10])
	assert.Equal(t, 50, f.enrollments.enrolled["stud-1"][7].Progress)
}

func TestLearningServiceSubmitQuizFailsBelowThreshold(t *testing.T) {
	f := newLearningFixture()
	svc := f.service()
	viewer := Viewer{UserID: "stud-1", Role: models.RoleStudent}

	result, err := svc.SubmitQuiz(context.Background(), viewer, 40, dto.SubmitQuizRequest{
		Answers: map[string]int64{"50": 60, "51": 62, "52": 99, "53": 99, "54": 99},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Score)
	assert.False(t, result.Passed)
	assert.Equal(t, 0, result.XPRewarded)
	assert.Empty(t, f.xp.deltas)
	assert.Len(t, f.quizzes.attempts, 1)
}

func TestLearningServiceSubmitQuizAwardsXPOnce(t *testing.T) {
	f := newLearningFixture()
	// The quiz's lesson was already completed, e.g. by an earlier pass or
	// a manual toggle.
	f.progress.completed["stud-1"] = map[int64]bool{10: true}
	svc := f.service()
	viewer := Viewer{UserID: "stud-1", Role: models.RoleStudent}

	result, err := svc.SubmitQuiz(context.Background(), viewer, 40, dto.SubmitQuizRequest{
		Answers: map[string]int64{"50": 60, "51": 62, "52": 64, "53": 66, "54": 68},
	})
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Equal(t, 0, result.XPRewarded)
	assert.False(t, result.NewlyCompleted)
	assert.Empty(t, f.xp.deltas)
}

func TestLearningServiceSubmitQuizCompletesLessonWithoutReward(t *testing.T) {
	f := newLearningFixture()
	f.quizzes.quiz.XPReward = 0
	svc := f.service()
	viewer := Viewer{UserID: "stud-1", Role: models.RoleStudent}

	result, err := svc.SubmitQuiz(context.Background(), viewer, 40, dto.SubmitQuizRequest{
		Answers: map[string]int64{"50": 60, "51": 62, "52": 64, "53": 66, "54": 68},
	})
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.True(t, result.NewlyCompleted)
	assert.Equal(t, 0, result.XPRewarded)
	assert.Empty(t, f.xp.deltas)
	assert.True(t, f.progress.completed["stud-1"][10])
}

func TestLearningServiceSubmitQuizRejectsEmptyQuiz(t *testing.T) {
	f := newLearningFixture()
	f.quizzes.questions = 0
	f.quizzes.correct = map[int64][]int64{}
	svc := f.service()
	viewer := Viewer{UserID: "stud-1", Role: models.RoleStudent}

	_, err := svc.SubmitQuiz(context.Background(), viewer, 40, dto.SubmitQuizRequest{
		Answers: map[string]int64{},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no questions")
	assert.Empty(t, f.quizzes.attempts)
}

func TestLearningServiceSubmitQuizAcceptsEmptyAnswers(t *testing.T) {
	f := newLearningFixture()
	svc := f.service()
	viewer := Viewer{UserID: "stud-1", Role: models.RoleStudent}

	result, err := svc.SubmitQuiz(context.Background(), viewer, 40, dto.SubmitQuizRequest{
		Answers: map[string]int64{},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Score)
	assert.False(t, result.Passed)
	assert.Len(t, f.quizzes.attempts, 1)
}

func TestLearningServiceSubmitQuizRequiresEnrollment(t *testing.T) {
	f := newLearningFixture()
	svc := f.service()

	_, err := svc.SubmitQuiz(context.Background(), Viewer{UserID: "stranger"}, 40, dto.SubmitQuizRequest{
		Answers: map[string]int64{"50": 60},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enrollment")
}

func TestLearningServiceAddXPIsCapped(t *testing.T) {
	f := newLearningFixture()
	svc := f.service()
	viewer := Viewer{UserID: "stud-1", Role: models.RoleStudent}

	total, err := svc.AddXP(context.Background(), viewer, dto.AddXPRequest{Points: 5000, Reason: "bonus"})
	require.NoError(t, err)
	assert.Equal(t, 100, total)
	assert.Equal(t, []int{100}, f.xp.deltas)
}
