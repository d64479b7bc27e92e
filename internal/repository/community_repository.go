package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/emra-dev/lms-api/internal/models"
)

// CommunityRepository manages discussion threads, replies and reviews.
type CommunityRepository struct {
	db *sqlx.DB
}

// NewCommunityRepository constructs a CommunityRepository.
func NewCommunityRepository(db *sqlx.DB) *CommunityRepository {
	return &CommunityRepository{db: db}
}

// CreateDiscussion opens a thread.
func (r *CommunityRepository) CreateDiscussion(ctx context.Context, discussion *models.Discussion) error {
	if discussion.CreatedAt.IsZero() {
		discussion.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO discussions (title, content, author_id, course_id, is_resolved, created_at)
        VALUES ($1, $2, $3, $4, false, $5) RETURNING id`
	if err := r.db.GetContext(ctx, &discussion.ID, query, discussion.Title, discussion.Content,
		discussion.AuthorID, discussion.CourseID, discussion.CreatedAt); err != nil {
		return fmt.Errorf("create discussion: %w", err)
	}
	return nil
}

// FindDiscussion fetches one thread.
func (r *CommunityRepository) FindDiscussion(ctx context.Context, id int64) (*models.Discussion, error) {
	const query = `SELECT id, title, content, author_id, course_id, is_resolved, created_at FROM discussions WHERE id = $1`
	var discussion models.Discussion
	if err := r.db.GetContext(ctx, &discussion, query, id); err != nil {
		return nil, err
	}
	return &discussion, nil
}

// ListDiscussions returns threads, optionally scoped to a course.
func (r *CommunityRepository) ListDiscussions(ctx context.Context, courseID *int64, page, pageSize int) ([]models.Discussion, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	where := ""
	args := []interface{}{}
	if courseID != nil {
		where = "WHERE course_id = $1"
		args = append(args, *courseID)
	}

	query := fmt.Sprintf(`SELECT id, title, content, author_id, course_id, is_resolved, created_at FROM discussions %s
        ORDER BY created_at DESC LIMIT %d OFFSET %d`, where, pageSize, (page-1)*pageSize)
	var discussions []models.Discussion
	if err := r.db.SelectContext(ctx, &discussions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list discussions: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM discussions %s", where), args...); err != nil {
		return nil, 0, fmt.Errorf("count discussions: %w", err)
	}
	return discussions, total, nil
}

// UpdateDiscussion rewrites a thread's title and content.
func (r *CommunityRepository) UpdateDiscussion(ctx context.Context, id int64, title, content string) error {
	const query = `UPDATE discussions SET title = $2, content = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, title, content); err != nil {
		return fmt.Errorf("update discussion: %w", err)
	}
	return nil
}

// ToggleDiscussionLike flips the user's like on a thread and reports the
// new state.
func (r *CommunityRepository) ToggleDiscussionLike(ctx context.Context, discussionID int64, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM discussion_likes WHERE discussion_id = $1 AND user_id = $2`, discussionID, userID)
	if err != nil {
		return false, fmt.Errorf("unlike discussion: %w", err)
	}
	if removed, _ := res.RowsAffected(); removed > 0 {
		return false, nil
	}
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO discussion_likes (discussion_id, user_id) VALUES ($1, $2)`, discussionID, userID); err != nil {
		return false, fmt.Errorf("like discussion: %w", err)
	}
	return true, nil
}

// CreateReply answers a thread.
func (r *CommunityRepository) CreateReply(ctx context.Context, reply *models.DiscussionReply) error {
	if reply.CreatedAt.IsZero() {
		reply.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO discussion_replies (discussion_id, author_id, content, created_at)
        VALUES ($1, $2, $3, $4) RETURNING id`
	if err := r.db.GetContext(ctx, &reply.ID, query, reply.DiscussionID, reply.AuthorID,
		reply.Content, reply.CreatedAt); err != nil {
		return fmt.Errorf("create reply: %w", err)
	}
	return nil
}

// ListReplies returns the replies of a thread in posting order.
func (r *CommunityRepository) ListReplies(ctx context.Context, discussionID int64) ([]models.DiscussionReply, error) {
	const query = `SELECT id, discussion_id, author_id, content, created_at FROM discussion_replies
        WHERE discussion_id = $1 ORDER BY created_at ASC`
	var replies []models.DiscussionReply
	if err := r.db.SelectContext(ctx, &replies, query, discussionID); err != nil {
		return nil, fmt.Errorf("list replies: %w", err)
	}
	return replies, nil
}

// FindReply fetches one reply.
func (r *CommunityRepository) FindReply(ctx context.Context, id int64) (*models.DiscussionReply, error) {
	const query = `SELECT id, discussion_id, author_id, content, created_at FROM discussion_replies WHERE id = $1`
	var reply models.DiscussionReply
	if err := r.db.GetContext(ctx, &reply, query, id); err != nil {
		return nil, err
	}
	return &reply, nil
}

// ToggleReplyLike flips the user's like on a reply and reports the new
// state.
func (r *CommunityRepository) ToggleReplyLike(ctx context.Context, replyID int64, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM reply_likes WHERE reply_id = $1 AND user_id = $2`, replyID, userID)
	if err != nil {
		return false, fmt.Errorf("unlike reply: %w", err)
	}
	if removed, _ := res.RowsAffected(); removed > 0 {
		return false, nil
	}
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO reply_likes (reply_id, user_id) VALUES ($1, $2)`, replyID, userID); err != nil {
		return false, fmt.Errorf("like reply: %w", err)
	}
	return true, nil
}

// MarkResolved closes a thread, scoped to its author.
func (r *CommunityRepository) MarkResolved(ctx context.Context, id int64, authorID string) error {
	const query = `UPDATE discussions SET is_resolved = true WHERE id = $1 AND author_id = $2`
	if _, err := r.db.ExecContext(ctx, query, id, authorID); err != nil {
		return fmt.Errorf("resolve discussion: %w", err)
	}
	return nil
}

// UpsertReview stores a rating, replacing the user's previous one for the
// same course.
func (r *CommunityRepository) UpsertReview(ctx context.Context, review *models.Review) error {
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO reviews (course_id, user_id, rating, comment, created_at) VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (course_id, user_id) DO UPDATE SET rating = EXCLUDED.rating, comment = EXCLUDED.comment
        RETURNING id`
	if err := r.db.GetContext(ctx, &review.ID, query, review.CourseID, review.UserID,
		review.Rating, review.Comment, review.CreatedAt); err != nil {
		return fmt.Errorf("upsert review: %w", err)
	}
	return nil
}

// ListReviews returns the reviews of a course, newest first.
func (r *CommunityRepository) ListReviews(ctx context.Context, courseID int64) ([]models.Review, error) {
	const query = `SELECT id, course_id, user_id, rating, comment, created_at FROM reviews
        WHERE course_id = $1 ORDER BY created_at DESC`
	var reviews []models.Review
	if err := r.db.SelectContext(ctx, &reviews, query, courseID); err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}
