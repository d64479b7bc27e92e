package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/emra-dev/lms-api/internal/dto"
	"github.com/emra-dev/lms-api/internal/models"
	"github.com/emra-dev/lms-api/internal/service"
	appErrors "github.com/emra-dev/lms-api/pkg/errors"
	"github.com/emra-dev/lms-api/pkg/response"
)

type communityService interface {
	CreateDiscussion(ctx context.Context, viewer service.Viewer, req dto.CreateDiscussionRequest) (*models.Discussion, error)
	ListDiscussions(ctx context.Context, courseID *int64, page, pageSize int) ([]models.Discussion, *models.Pagination, error)
	GetDiscussion(ctx context.Context, id int64) (*models.Discussion, []models.DiscussionReply, error)
	UpdateDiscussion(ctx context.Context, viewer service.Viewer, discussionID int64, req dto.UpdateDiscussionRequest) (*models.Discussion, error)
	LikeDiscussion(ctx context.Context, viewer service.Viewer, discussionID int64) (bool, error)
	Reply(ctx context.Context, viewer service.Viewer, discussionID int64, req dto.CreateReplyRequest) (*models.DiscussionReply, error)
	LikeReply(ctx context.Context, viewer service.Viewer, replyID int64) (bool, error)
	Resolve(ctx context.Context, viewer service.Viewer, discussionID int64) error
	Review(ctx context.Context, viewer service.Viewer, courseID int64, req dto.CreateReviewRequest) (*models.Review, error)
	ListReviews(ctx context.Context, courseID int64) ([]models.Review, error)
}

// CommunityHandler exposes forum threads and course reviews.
type CommunityHandler struct {
	service communityService
}

// NewCommunityHandler constructs the handler.
func NewCommunityHandler(svc communityService) *CommunityHandler {
	return &CommunityHandler{service: svc}
}

// CreateDiscussion godoc
// @Summary Open a discussion thread
// @Tags Community
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateDiscussionRequest true "Discussion payload"
// @Success 201 {object} response.Envelope
// @Router /discussions [post]
func (h *CommunityHandler) CreateDiscussion(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	var req dto.CreateDiscussionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid discussion payload"))
		return
	}
	discussion, err := h.service.CreateDiscussion(c.Request.Context(), viewer, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, discussion)
}

// ListDiscussions godoc
// @Summary Browse discussion threads
// @Tags Community
// @Produce json
// @Param course_id query int false "Filter by course"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /discussions [get]
func (h *CommunityHandler) ListDiscussions(c *gin.Context) {
	var courseID *int64
	if raw := c.Query("course_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid course_id"))
			return
		}
		courseID = &id
	}

	discussions, pagination, err := h.service.ListDiscussions(c.Request.Context(), courseID,
		queryInt(c, "page", 1), queryInt(c, "page_size", 20))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, discussions, pagination)
}

// GetDiscussion godoc
// @Summary Thread with its replies
// @Tags Community
// @Produce json
// @Param id path int true "Discussion ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.ErrorBody
// @Router /discussions/{id} [get]
func (h *CommunityHandler) GetDiscussion(c *gin.Context) {
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	discussion, replies, err := h.service.GetDiscussion(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"discussion": discussion, "replies": replies}, nil)
}

// UpdateDiscussion godoc
// @Summary Edit a thread (author or course instructor)
// @Tags Community
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Discussion ID"
// @Param payload body dto.UpdateDiscussionRequest true "Discussion payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.ErrorBody
// @Router /discussions/{id} [put]
func (h *CommunityHandler) UpdateDiscussion(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateDiscussionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid discussion payload"))
		return
	}
	discussion, err := h.service.UpdateDiscussion(c.Request.Context(), viewer, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, discussion, nil)
}

// LikeDiscussion godoc
// @Summary Toggle a like on a thread
// @Tags Community
// @Produce json
// @Security BearerAuth
// @Param id path int true "Discussion ID"
// @Success 200 {object} response.Envelope
// @Router /discussions/{id}/like [post]
func (h *CommunityHandler) LikeDiscussion(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	liked, err := h.service.LikeDiscussion(c.Request.Context(), viewer, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"liked": liked}, nil)
}

// LikeReply godoc
// @Summary Toggle a like on a reply
// @Tags Community
// @Produce json
// @Security BearerAuth
// @Param id path int true "Discussion ID"
// @Param replyID path int true "Reply ID"
// @Success 200 {object} response.Envelope
// @Router /discussions/{id}/replies/{replyID}/like [post]
func (h *CommunityHandler) LikeReply(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	replyID, ok := paramInt64(c, "replyID")
	if !ok {
		return
	}
	liked, err := h.service.LikeReply(c.Request.Context(), viewer, replyID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"liked": liked}, nil)
}

// Reply godoc
// @Summary Answer a discussion thread
// @Tags Community
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Discussion ID"
// @Param payload body dto.CreateReplyRequest true "Reply payload"
// @Success 201 {object} response.Envelope
// @Router /discussions/{id}/replies [post]
func (h *CommunityHandler) Reply(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	var req dto.CreateReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reply payload"))
		return
	}
	reply, err := h.service.Reply(c.Request.Context(), viewer, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, reply)
}

// Resolve godoc
// @Summary Mark a thread as answered (author only)
// @Tags Community
// @Security BearerAuth
// @Param id path int true "Discussion ID"
// @Success 204
// @Failure 403 {object} response.ErrorBody
// @Router /discussions/{id}/resolve [post]
func (h *CommunityHandler) Resolve(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	if err := h.service.Resolve(c.Request.Context(), viewer, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Review godoc
// @Summary Rate a course (enrolled students only)
// @Tags Community
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Param payload body dto.CreateReviewRequest true "Review payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.ErrorBody
// @Router /courses/{id}/reviews [post]
func (h *CommunityHandler) Review(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	courseID, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	var req dto.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}
	review, err := h.service.Review(c.Request.Context(), viewer, courseID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, review)
}

// ListReviews godoc
// @Summary Reviews of a course
// @Tags Community
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/reviews [get]
func (h *CommunityHandler) ListReviews(c *gin.Context) {
	courseID, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	reviews, err := h.service.ListReviews(c.Request.Context(), courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reviews, nil)
}
