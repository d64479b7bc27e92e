package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/emra-dev/lms-api/internal/dto"
	"github.com/emra-dev/lms-api/internal/middleware"
	"github.com/emra-dev/lms-api/internal/models"
	"github.com/emra-dev/lms-api/internal/service"
)

type fakeLearningSrv struct {
	toggle     *dto.ToggleCompletionResult
	quizResult *dto.SubmitQuizResult
	err        error
	lastLesson int64
	lastQuiz   int64
	lastSubmit dto.SubmitQuizRequest
}

func (f *fakeLearningSrv) Enroll(ctx context.Context, viewer service.Viewer, courseID int64) (*models.Enrollment, error) {
	return &models.Enrollment{ID: 1, UserID: viewer.UserID, CourseID: courseID}, f.err
}

func (f *fakeLearningSrv) ListEnrollments(ctx context.Context, viewer service.Viewer) ([]models.EnrollmentDetail, error) {
	return nil, f.err
}

func (f *fakeLearningSrv) ToggleLessonCompletion(ctx context.Context, viewer service.Viewer, lessonID int64) (*dto.ToggleCompletionResult, error) {
	f.lastLesson = lessonID
	return f.toggle, f.err
}

func (f *fakeLearningSrv) SubmitQuiz(ctx context.Context, viewer service.Viewer, quizID int64, req dto.SubmitQuizRequest) (*dto.SubmitQuizResult, error) {
	f.lastQuiz = quizID
	f.lastSubmit = req
	return f.quizResult, f.err
}

func (f *fakeLearningSrv) ListAttempts(ctx context.Context, viewer service.Viewer, quizID int64) ([]models.QuizAttempt, error) {
	return nil, f.err
}

func (f *fakeLearningSrv) AddXP(ctx context.Context, viewer service.Viewer, req dto.AddXPRequest) (int, error) {
	return 100, f.err
}

func TestLearningHandlerToggleRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewLearningHandler(&fakeLearningSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/lessons/10/toggle-completion", nil)
	c.Params = gin.Params{{Key: "id", Value: "10"}}

	handler.ToggleCompletion(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLearningHandlerToggleSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeLearningSrv{toggle: &dto.ToggleCompletionResult{LessonID: 10, Completed: true, XPAwarded: 50}}
	handler := NewLearningHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/lessons/10/toggle-completion", nil)
	c.Params = gin.Params{{Key: "id", Value: "10"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "stud-1", Role: models.RoleStudent})

	handler.ToggleCompletion(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(10), srv.lastLesson)
}

func TestLearningHandlerToggleInvalidLessonID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewLearningHandler(&fakeLearningSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/lessons/abc/toggle-completion", nil)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "stud-1", Role: models.RoleStudent})

	handler.ToggleCompletion(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLearningHandlerSubmitQuiz(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeLearningSrv{quizResult: &dto.SubmitQuizResult{Score: 3, TotalQuestions: 5, Passed: true}}
	handler := NewLearningHandler(srv)

	body := `{"answers":{"50":60,"51":62}}`
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/quizzes/40/submit", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "40"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "stud-1", Role: models.RoleStudent})

	handler.SubmitQuiz(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(40), srv.lastQuiz)
	assert.Equal(t, int64(60), srv.lastSubmit.Answers["50"])
}
