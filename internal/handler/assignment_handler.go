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

type assignmentService interface {
	Create(ctx context.Context, viewer service.Viewer, lessonID int64, req dto.CreateAssignmentRequest) (*models.Assignment, error)
	Submit(ctx context.Context, viewer service.Viewer, assignmentID int64, req dto.SubmitAssignmentRequest) (*models.AssignmentSubmission, error)
	ListSubmissions(ctx context.Context, viewer service.Viewer, assignmentID int64) ([]models.AssignmentSubmission, error)
	GradeSubmission(ctx context.Context, viewer service.Viewer, submissionID int64, req dto.GradeSubmissionRequest) error
}

// AssignmentHandler exposes submission and grading endpoints.
type AssignmentHandler struct {
	service assignmentService
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(svc assignmentService) *AssignmentHandler {
	return &AssignmentHandler{service: svc}
}

// Create godoc
// @Summary Attach an assignment to a lesson (instructor only)
// @Tags Assignments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Lesson ID"
// @Param payload body dto.CreateAssignmentRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.ErrorBody
// @Router /lessons/{id}/assignment [post]
func (h *AssignmentHandler) Create(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	lessonID, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	var req dto.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	assignment, err := h.service.Create(c.Request.Context(), viewer, lessonID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// Submit godoc
// @Summary Submit work for an assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assignment ID"
// @Param payload body dto.SubmitAssignmentRequest true "Submission payload"
// @Success 201 {object} response.Envelope
// @Router /assignments/{id}/submit [post]
func (h *AssignmentHandler) Submit(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	assignmentID, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	var req dto.SubmitAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid submission payload"))
		return
	}

	submission, err := h.service.Submit(c.Request.Context(), viewer, assignmentID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, submission)
}

// ListSubmissions godoc
// @Summary Submissions for an assignment (instructor only)
// @Tags Assignments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.ErrorBody
// @Router /assignments/{id}/submissions [get]
func (h *AssignmentHandler) ListSubmissions(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	assignmentID, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	submissions, err := h.service.ListSubmissions(c.Request.Context(), viewer, assignmentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submissions, nil)
}

// Grade godoc
// @Summary Grade a submission (instructor only)
// @Tags Assignments
// @Accept json
// @Security BearerAuth
// @Param id path int true "Submission ID"
// @Param payload body dto.GradeSubmissionRequest true "Grade payload"
// @Success 204
// @Failure 403 {object} response.ErrorBody
// @Router /submissions/{id}/grade [post]
func (h *AssignmentHandler) Grade(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	submissionID, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	var req dto.GradeSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grade payload"))
		return
	}
	if err := h.service.GradeSubmission(c.Request.Context(), viewer, submissionID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
