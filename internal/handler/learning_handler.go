package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emra-dev/lms-api/internal/dto"
	"github.com/emra-dev/lms-api/internal/models"
	"github.com/emra-dev/lms-api/internal/service"
	appErrors "github.com/emra-dev/lms-api/pkg/errors"
	"github.com/emra-dev/lms-api/pkg/response"
)

type learningService interface {
	Enroll(ctx context.Context, viewer service.Viewer, courseID int64) (*models.Enrollment, error)
	ListEnrollments(ctx context.Context, viewer service.Viewer) ([]models.EnrollmentDetail, error)
	ToggleLessonCompletion(ctx context.Context, viewer service.Viewer, lessonID int64) (*dto.ToggleCompletionResult, error)
	SubmitQuiz(ctx context.Context, viewer service.Viewer, quizID int64, req dto.SubmitQuizRequest) (*dto.SubmitQuizResult, error)
	ListAttempts(ctx context.Context, viewer service.Viewer, quizID int64) ([]models.QuizAttempt, error)
	AddXP(ctx context.Context, viewer service.Viewer, req dto.AddXPRequest) (int, error)
}

// LearningHandler exposes the student-side endpoints.
type LearningHandler struct {
	service learningService
}

// NewLearningHandler constructs the handler.
func NewLearningHandler(svc learningService) *LearningHandler {
	return &LearningHandler{service: svc}
}

// Enroll godoc
// @Summary Enroll in a free course
// @Tags Learning
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.ErrorBody
// @Router /courses/{id}/enroll [post]
func (h *LearningHandler) Enroll(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	courseID, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	enrollment, err := h.service.Enroll(c.Request.Context(), viewer, courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// ListEnrollments godoc
// @Summary Caller's enrollments
// @Tags Learning
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *LearningHandler) ListEnrollments(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	enrollments, err := h.service.ListEnrollments(c.Request.Context(), viewer)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, nil)
}

// ToggleCompletion godoc
// @Summary Toggle a lesson's completion state
// @Description Flips the flag, adjusts XP symmetrically and recomputes
// @Description course progress. Reaching 100% issues a certificate.
// @Tags Learning
// @Produce json
// @Security BearerAuth
// @Param id path int true "Lesson ID"
// @Success 200 {object} response.Envelope
// @Router /lessons/{id}/toggle-completion [post]
func (h *LearningHandler) ToggleCompletion(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	lessonID, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	result, err := h.service.ToggleLessonCompletion(c.Request.Context(), viewer, lessonID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// SubmitQuiz godoc
// @Summary Grade a quiz attempt
// @Tags Learning
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Quiz ID"
// @Param payload body dto.SubmitQuizRequest true "Answers keyed by question id"
// @Success 200 {object} response.Envelope
// @Router /quizzes/{id}/submit [post]
func (h *LearningHandler) SubmitQuiz(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	quizID, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	var req dto.SubmitQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid quiz submission"))
		return
	}

	result, err := h.service.SubmitQuiz(c.Request.Context(), viewer, quizID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ListAttempts godoc
// @Summary Caller's attempts for a quiz
// @Tags Learning
// @Produce json
// @Security BearerAuth
// @Param id path int true "Quiz ID"
// @Success 200 {object} response.Envelope
// @Router /quizzes/{id}/attempts [get]
func (h *LearningHandler) ListAttempts(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	quizID, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	attempts, err := h.service.ListAttempts(c.Request.Context(), viewer, quizID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, attempts, nil)
}

// AddXP godoc
// @Summary Grant bonus XP (capped server-side)
// @Tags Learning
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.AddXPRequest true "XP payload"
// @Success 200 {object} response.Envelope
// @Router /users/me/xp [post]
func (h *LearningHandler) AddXP(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	var req dto.AddXPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid xp payload"))
		return
	}
	total, err := h.service.AddXP(c.Request.Context(), viewer, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"xp_points": total}, nil)
}
