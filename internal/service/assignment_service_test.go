package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/emra-dev/lms-api/internal/dto"
	"github.com/emra-dev/lms-api/internal/models"
)

type lessonOwner struct {
	courseID     int64
	instructorID string
}

type mockAssignmentRepo struct {
	lessons     map[int64]lessonOwner
	assignments map[int64]*models.Assignment
	submissions map[int64]*models.AssignmentSubmission
	graded      map[int64]int
}

func newMockAssignmentRepo() *mockAssignmentRepo {
	return &mockAssignmentRepo{
		lessons:     map[int64]lessonOwner{},
		assignments: map[int64]*models.Assignment{},
		submissions: map[int64]*models.AssignmentSubmission{},
		graded:      map[int64]int{},
	}
}

func (m *mockAssignmentRepo) FindByID(ctx context.Context, id int64) (*models.Assignment, int64, string, error) {
	a, ok := m.assignments[id]
	if !ok {
		return nil, 0, "", sql.ErrNoRows
	}
	owner := m.lessons[a.LessonID]
	copied := *a
	return &copied, owner.courseID, owner.instructorID, nil
}

func (m *mockAssignmentRepo) FindLessonOwner(ctx context.Context, lessonID int64) (int64, string, error) {
	owner, ok := m.lessons[lessonID]
	if !ok {
		return 0, "", sql.ErrNoRows
	}
	return owner.courseID, owner.instructorID, nil
}

func (m *mockAssignmentRepo) UpsertAssignment(ctx context.Context, assignment *models.Assignment) error {
	for id, existing := range m.assignments {
		if existing.LessonID == assignment.LessonID {
			assignment.ID = id
			m.assignments[id] = assignment
			return nil
		}
	}
	assignment.ID = int64(len(m.assignments) + 1)
	m.assignments[assignment.ID] = assignment
	return nil
}

func (m *mockAssignmentRepo) UpsertSubmission(ctx context.Context, submission *models.AssignmentSubmission) error {
	submission.ID = int64(len(m.submissions) + 1)
	m.submissions[submission.ID] = submission
	return nil
}

func (m *mockAssignmentRepo) FindSubmission(ctx context.Context, id int64) (*models.AssignmentSubmission, error) {
	if s, ok := m.submissions[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssignmentRepo) ListSubmissions(ctx context.Context, assignmentID int64) ([]models.AssignmentSubmission, error) {
	var out []models.AssignmentSubmission
	for _, s := range m.submissions {
		if s.AssignmentID == assignmentID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockAssignmentRepo) Grade(ctx context.Context, submissionID int64, grade int, feedback string) error {
	m.graded[submissionID] = grade
	if s, ok := m.submissions[submissionID]; ok {
		s.Grade = &grade
		s.Feedback = feedback
	}
	return nil
}

func assignmentFixture() (*mockAssignmentRepo, *mockNotifier, *AssignmentService) {
	repo := newMockAssignmentRepo()
	repo.lessons[10] = lessonOwner{courseID: 7, instructorID: "inst-1"}
	repo.assignments[1] = &models.Assignment{ID: 1, LessonID: 10, Title: "Projet final", TotalPoints: 100}
	notifier := &mockNotifier{}
	enrollments := &mockEnrollments{enrolled: map[string]map[int64]*models.Enrollment{
		"stud-1": {7: {ID: 1, UserID: "stud-1", CourseID: 7}},
	}}
	svc := NewAssignmentService(repo, enrollments, notifier, nil, zap.NewNop())
	return repo, notifier, svc
}

func TestAssignmentCreateByInstructor(t *testing.T) {
	repo, _, svc := assignmentFixture()
	repo.lessons[11] = lessonOwner{courseID: 7, instructorID: "inst-1"}

	created, err := svc.Create(context.Background(), Viewer{UserID: "inst-1"}, 11,
		dto.CreateAssignmentRequest{Title: "Devoir 2", TotalPoints: 50})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, int64(11), created.LessonID)
	assert.Equal(t, 50, created.TotalPoints)
}

func TestAssignmentCreateReplacesExisting(t *testing.T) {
	_, _, svc := assignmentFixture()

	replaced, err := svc.Create(context.Background(), Viewer{UserID: "inst-1"}, 10,
		dto.CreateAssignmentRequest{Title: "Projet final v2", TotalPoints: 120})
	require.NoError(t, err)
	assert.Equal(t, int64(1), replaced.ID)
	assert.Equal(t, "Projet final v2", replaced.Title)
}

func TestAssignmentCreateForbiddenForNonInstructor(t *testing.T) {
	_, _, svc := assignmentFixture()

	_, err := svc.Create(context.Background(), Viewer{UserID: "stud-1"}, 10,
		dto.CreateAssignmentRequest{Title: "Devoir", TotalPoints: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "instructor")
}

func TestAssignmentCreateUnknownLesson(t *testing.T) {
	_, _, svc := assignmentFixture()

	_, err := svc.Create(context.Background(), Viewer{UserID: "inst-1"}, 999,
		dto.CreateAssignmentRequest{Title: "Devoir", TotalPoints: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestAssignmentCreateRejectsZeroPoints(t *testing.T) {
	_, _, svc := assignmentFixture()

	_, err := svc.Create(context.Background(), Viewer{UserID: "inst-1"}, 10,
		dto.CreateAssignmentRequest{Title: "Devoir", TotalPoints: 0})
	require.Error(t, err)
}

func TestAssignmentSubmitRequiresEnrollment(t *testing.T) {
	_, _, svc := assignmentFixture()

	_, err := svc.Submit(context.Background(), Viewer{UserID: "stranger"}, 1,
		dto.SubmitAssignmentRequest{Content: "mon travail"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enrollment")
}

func TestAssignmentSubmitNotifiesInstructor(t *testing.T) {
	_, notifier, svc := assignmentFixture()

	submission, err := svc.Submit(context.Background(), Viewer{UserID: "stud-1"}, 1,
		dto.SubmitAssignmentRequest{Content: "mon travail"})
	require.NoError(t, err)
	assert.NotZero(t, submission.ID)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "inst-1", notifier.sent[0].UserID)
}

func TestAssignmentGradeCapsAtTotalPoints(t *testing.T) {
	repo, notifier, svc := assignmentFixture()
	repo.submissions[3] = &models.AssignmentSubmission{ID: 3, AssignmentID: 1, StudentID: "stud-1"}

	err := svc.GradeSubmission(context.Background(), Viewer{UserID: "inst-1"}, 3,
		dto.GradeSubmissionRequest{Grade: 150})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "total points")

	err = svc.GradeSubmission(context.Background(), Viewer{UserID: "inst-1"}, 3,
		dto.GradeSubmissionRequest{Grade: 90, Feedback: "bien"})
	require.NoError(t, err)
	assert.Equal(t, 90, repo.graded[3])
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "stud-1", notifier.sent[0].UserID)
}
