package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/emra-dev/lms-api/internal/dto"
	"github.com/emra-dev/lms-api/internal/models"
	"github.com/emra-dev/lms-api/internal/service"
	appErrors "github.com/emra-dev/lms-api/pkg/errors"
	"github.com/emra-dev/lms-api/pkg/response"
)

type courseService interface {
	List(ctx context.Context, viewer service.Viewer, filter models.CourseFilter) ([]dto.CourseSummary, *models.Pagination, error)
	Categories(ctx context.Context) ([]string, error)
	Create(ctx context.Context, viewer service.Viewer, input dto.CourseTreeInput) (*dto.CourseDetail, error)
	Update(ctx context.Context, viewer service.Viewer, courseID int64, input dto.CourseTreeInput) (*dto.CourseDetail, error)
	Delete(ctx context.Context, viewer service.Viewer, courseID int64) error
	GetDetail(ctx context.Context, viewer service.Viewer, courseID int64) (*dto.CourseDetail, error)
	GetDetailBySlug(ctx context.Context, viewer service.Viewer, slug string) (*dto.CourseDetail, error)
}

// CourseHandler exposes the catalog and the authoring endpoints.
type CourseHandler struct {
	service courseService
}

// NewCourseHandler constructs the handler.
func NewCourseHandler(svc courseService) *CourseHandler {
	return &CourseHandler{service: svc}
}

// List godoc
// @Summary Browse the course catalog
// @Tags Courses
// @Produce json
// @Param search query string false "Full-text search"
// @Param category query string false "Category filter"
// @Param level query string false "Level filter"
// @Param instructor query string false "Instructor ID; lists unpublished drafts for the owner"
// @Param ordering query string false "Sort key (newest, popular, trending, price, rating)"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	filter := models.CourseFilter{
		Search:       strings.TrimSpace(c.Query("search")),
		Category:     c.Query("category"),
		Level:        c.Query("level"),
		InstructorID: c.Query("instructor"),
		Ordering:     c.Query("ordering"),
		Page:         queryInt(c, "page", 1),
		PageSize:     queryInt(c, "page_size", 20),
	}
	if raw := c.Query("featured"); raw != "" {
		featured := raw == "true" || raw == "1"
		filter.Featured = &featured
	}
	viewer := viewerFromContext(c)
	if c.Query("enrolled") == "true" && viewer.UserID != "" {
		filter.EnrolledUser = viewer.UserID
	}

	courses, pagination, err := h.service.List(c.Request.Context(), viewer, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, pagination)
}

// Categories godoc
// @Summary List distinct course categories
// @Tags Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /courses/categories [get]
func (h *CourseHandler) Categories(c *gin.Context) {
	categories, err := h.service.Categories(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, categories, nil)
}

// Get godoc
// @Summary Course detail with curriculum
// @Description Returns the full tree. Lesson content is hidden unless the
// @Description caller is enrolled or owns the course.
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID or slug"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.ErrorBody
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	viewer := viewerFromContext(c)
	ref := c.Param("id")

	var (
		detail *dto.CourseDetail
		err    error
	)
	if id, parseErr := strconv.ParseInt(ref, 10, 64); parseErr == nil && id > 0 {
		detail, err = h.service.GetDetail(c.Request.Context(), viewer, id)
	} else {
		detail, err = h.service.GetDetailBySlug(c.Request.Context(), viewer, ref)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Create a course with its full curriculum
// @Tags Courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CourseTreeInput true "Course tree"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.ErrorBody
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	var input dto.CourseTreeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid course payload"))
		return
	}

	detail, err := h.service.Create(c.Request.Context(), viewer, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, detail)
}

// Update godoc
// @Summary Replace a course and reconcile its curriculum
// @Description Sections and lessons carrying a known numeric id are updated
// @Description in place; new nodes are created; absent ones are removed.
// @Tags Courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Param payload body dto.CourseTreeInput true "Course tree"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.ErrorBody
// @Router /courses/{id} [put]
func (h *CourseHandler) Update(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	courseID, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	var input dto.CourseTreeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid course payload"))
		return
	}

	detail, err := h.service.Update(c.Request.Context(), viewer, courseID, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Delete godoc
// @Summary Delete a course
// @Tags Courses
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Success 204
// @Router /courses/{id} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	courseID, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), viewer, courseID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
