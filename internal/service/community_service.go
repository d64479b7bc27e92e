package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/emra-dev/lms-api/internal/dto"
	"github.com/emra-dev/lms-api/internal/models"
	appErrors "github.com/emra-dev/lms-api/pkg/errors"
)

type communityStore interface {
	CreateDiscussion(ctx context.Context, discussion *models.Discussion) error
	FindDiscussion(ctx context.Context, id int64) (*models.Discussion, error)
	ListDiscussions(ctx context.Context, courseID *int64, page, pageSize int) ([]models.Discussion, int, error)
	UpdateDiscussion(ctx context.Context, id int64, title, content string) error
	ToggleDiscussionLike(ctx context.Context, discussionID int64, userID string) (bool, error)
	CreateReply(ctx context.Context, reply *models.DiscussionReply) error
	FindReply(ctx context.Context, id int64) (*models.DiscussionReply, error)
	ListReplies(ctx context.Context, discussionID int64) ([]models.DiscussionReply, error)
	ToggleReplyLike(ctx context.Context, replyID int64, userID string) (bool, error)
	MarkResolved(ctx context.Context, id int64, authorID string) error
	UpsertReview(ctx context.Context, review *models.Review) error
	ListReviews(ctx context.Context, courseID int64) ([]models.Review, error)
}

type communityNotifier interface {
	Notify(ctx context.Context, userID string, kind models.NotificationType, title, description string, link *string) error
}

// CommunityService handles forum threads and course reviews.
type CommunityService struct {
	community   communityStore
	enrollments enrollmentChecker
	courses     instructorResolver
	notifier    communityNotifier
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCommunityService constructs CommunityService.
func NewCommunityService(community communityStore, enrollments enrollmentChecker, courses instructorResolver, notifier communityNotifier, validate *validator.Validate, logger *zap.Logger) *CommunityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommunityService{
		community:   community,
		enrollments: enrollments,
		courses:     courses,
		notifier:    notifier,
		validator:   validate,
		logger:      logger,
	}
}

// CreateDiscussion opens a thread, optionally attached to a course.
func (s *CommunityService) CreateDiscussion(ctx context.Context, viewer Viewer, req dto.CreateDiscussionRequest) (*models.Discussion, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid discussion payload")
	}

	discussion := &models.Discussion{
		Title:    req.Title,
		Content:  req.Content,
		AuthorID: viewer.UserID,
		CourseID: req.CourseID,
	}
	if err := s.community.CreateDiscussion(ctx, discussion); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create discussion")
	}
	return discussion, nil
}

// ListDiscussions returns threads with pagination metadata.
func (s *CommunityService) ListDiscussions(ctx context.Context, courseID *int64, page, pageSize int) ([]models.Discussion, *models.Pagination, error) {
	discussions, total, err := s.community.ListDiscussions(ctx, courseID, page, pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list discussions")
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return discussions, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// GetDiscussion loads a thread with its replies.
func (s *CommunityService) GetDiscussion(ctx context.Context, id int64) (*models.Discussion, []models.DiscussionReply, error) {
	discussion, err := s.community.FindDiscussion(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "discussion not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load discussion")
	}
	replies, err := s.community.ListReplies(ctx, id)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load replies")
	}
	return discussion, replies, nil
}

// UpdateDiscussion rewrites a thread. Allowed for the author, or for the
// course instructor when the thread is attached to a course.
func (s *CommunityService) UpdateDiscussion(ctx context.Context, viewer Viewer, discussionID int64, req dto.UpdateDiscussionRequest) (*models.Discussion, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid discussion payload")
	}

	discussion, err := s.community.FindDiscussion(ctx, discussionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "discussion not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load discussion")
	}
	if !s.canModerate(ctx, viewer, discussion) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the author or the course instructor can edit")
	}

	if err := s.community.UpdateDiscussion(ctx, discussionID, req.Title, req.Content); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update discussion")
	}
	discussion.Title = req.Title
	discussion.Content = req.Content
	return discussion, nil
}

// LikeDiscussion toggles the caller's like and notifies the author on a
// fresh like. Liking your own thread stays silent.
func (s *CommunityService) LikeDiscussion(ctx context.Context, viewer Viewer, discussionID int64) (bool, error) {
	discussion, err := s.community.FindDiscussion(ctx, discussionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, appErrors.Clone(appErrors.ErrNotFound, "discussion not found")
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load discussion")
	}

	liked, err := s.community.ToggleDiscussionLike(ctx, discussionID, viewer.UserID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to toggle like")
	}

	if liked && s.notifier != nil && discussion.AuthorID != viewer.UserID {
		link := fmt.Sprintf("/discussions/%d", discussionID)
		if err := s.notifier.Notify(ctx, discussion.AuthorID, models.NotificationMessage, "Nouveau j'aime",
			fmt.Sprintf("Votre discussion %s a été aimée.", discussion.Title), &link); err != nil {
			s.logger.Warn("like notification failed", zap.String("author_id", discussion.AuthorID), zap.Error(err))
		}
	}
	return liked, nil
}

// LikeReply toggles the caller's like on a reply.
func (s *CommunityService) LikeReply(ctx context.Context, viewer Viewer, replyID int64) (bool, error) {
	reply, err := s.community.FindReply(ctx, replyID)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, appErrors.Clone(appErrors.ErrNotFound, "reply not found")
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reply")
	}

	liked, err := s.community.ToggleReplyLike(ctx, replyID, viewer.UserID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to toggle like")
	}

	if liked && s.notifier != nil && reply.AuthorID != viewer.UserID {
		link := fmt.Sprintf("/discussions/%d", reply.DiscussionID)
		if err := s.notifier.Notify(ctx, reply.AuthorID, models.NotificationMessage, "Nouveau j'aime",
			"Votre réponse a été aimée.", &link); err != nil {
			s.logger.Warn("like notification failed", zap.String("author_id", reply.AuthorID), zap.Error(err))
		}
	}
	return liked, nil
}

func (s *CommunityService) canModerate(ctx context.Context, viewer Viewer, discussion *models.Discussion) bool {
	if discussion.AuthorID == viewer.UserID {
		return true
	}
	if discussion.CourseID == nil || s.courses == nil {
		return false
	}
	course, err := s.courses.FindByID(ctx, *discussion.CourseID)
	if err != nil {
		return false
	}
	return course.InstructorID == viewer.UserID
}

// Reply answers a thread and notifies its author.
func (s *CommunityService) Reply(ctx context.Context, viewer Viewer, discussionID int64, req dto.CreateReplyRequest) (*models.DiscussionReply, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reply payload")
	}

	discussion, err := s.community.FindDiscussion(ctx, discussionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "discussion not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load discussion")
	}

	reply := &models.DiscussionReply{
		DiscussionID: discussionID,
		AuthorID:     viewer.UserID,
		Content:      req.Content,
	}
	if err := s.community.CreateReply(ctx, reply); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create reply")
	}

	if s.notifier != nil && discussion.AuthorID != viewer.UserID {
		link := fmt.Sprintf("/discussions/%d", discussionID)
		if err := s.notifier.Notify(ctx, discussion.AuthorID, models.NotificationMessage, "Nouvelle réponse",
			fmt.Sprintf("Quelqu'un a répondu à votre discussion %s.", discussion.Title), &link); err != nil {
			s.logger.Warn("reply notification failed", zap.String("author_id", discussion.AuthorID), zap.Error(err))
		}
	}
	return reply, nil
}

// Resolve marks a thread as answered. Author only.
func (s *CommunityService) Resolve(ctx context.Context, viewer Viewer, discussionID int64) error {
	discussion, err := s.community.FindDiscussion(ctx, discussionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "discussion not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load discussion")
	}
	if discussion.AuthorID != viewer.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the author can resolve a discussion")
	}
	if err := s.community.MarkResolved(ctx, discussionID, viewer.UserID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve discussion")
	}
	return nil
}

// Review rates a course. Enrollment is required; submitting again replaces
// the previous rating.
func (s *CommunityService) Review(ctx context.Context, viewer Viewer, courseID int64, req dto.CreateReviewRequest) (*models.Review, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}

	enrolled, err := s.enrollments.Exists(ctx, viewer.UserID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !enrolled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "enrollment required to review")
	}

	review := &models.Review{
		CourseID: courseID,
		UserID:   viewer.UserID,
		Rating:   req.Rating,
		Comment:  req.Comment,
	}
	if err := s.community.UpsertReview(ctx, review); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store review")
	}
	return review, nil
}

// ListReviews returns the reviews of a course.
func (s *CommunityService) ListReviews(ctx context.Context, courseID int64) ([]models.Review, error) {
	reviews, err := s.community.ListReviews(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reviews")
	}
	return reviews, nil
}
