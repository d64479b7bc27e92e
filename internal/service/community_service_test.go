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

type mockCommunityRepo struct {
	discussions     map[int64]*models.Discussion
	replies         map[int64]*models.DiscussionReply
	discussionLikes map[int64]map[string]bool
	replyLikes      map[int64]map[string]bool
}

func newMockCommunityRepo() *mockCommunityRepo {
	return &mockCommunityRepo{
		discussions:     map[int64]*models.Discussion{},
		replies:         map[int64]*models.DiscussionReply{},
		discussionLikes: map[int64]map[string]bool{},
		replyLikes:      map[int64]map[string]bool{},
	}
}

func (m *mockCommunityRepo) CreateDiscussion(ctx context.Context, d *models.Discussion) error {
	d.ID = int64(len(m.discussions) + 1)
	m.discussions[d.ID] = d
	return nil
}

func (m *mockCommunityRepo) FindDiscussion(ctx context.Context, id int64) (*models.Discussion, error) {
	if d, ok := m.discussions[id]; ok {
		copied := *d
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCommunityRepo) ListDiscussions(ctx context.Context, courseID *int64, page, pageSize int) ([]models.Discussion, int, error) {
	var out []models.Discussion
	for _, d := range m.discussions {
		out = append(out, *d)
	}
	return out, len(out), nil
}

func (m *mockCommunityRepo) UpdateDiscussion(ctx context.Context, id int64, title, content string) error {
	d, ok := m.discussions[id]
	if !ok {
		return sql.ErrNoRows
	}
	d.Title = title
	d.Content = content
	return nil
}

func toggle(likes map[int64]map[string]bool, id int64, userID string) bool {
	if likes[id] == nil {
		likes[id] = map[string]bool{}
	}
	if likes[id][userID] {
		delete(likes[id], userID)
		return false
	}
	likes[id][userID] = true
	return true
}

func (m *mockCommunityRepo) ToggleDiscussionLike(ctx context.Context, discussionID int64, userID string) (bool, error) {
	return toggle(m.discussionLikes, discussionID, userID), nil
}

func (m *mockCommunityRepo) CreateReply(ctx context.Context, reply *models.DiscussionReply) error {
	reply.ID = int64(len(m.replies) + 1)
	m.replies[reply.ID] = reply
	return nil
}

func (m *mockCommunityRepo) FindReply(ctx context.Context, id int64) (*models.DiscussionReply, error) {
	if r, ok := m.replies[id]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCommunityRepo) ListReplies(ctx context.Context, discussionID int64) ([]models.DiscussionReply, error) {
	var out []models.DiscussionReply
	for _, r := range m.replies {
		if r.DiscussionID == discussionID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockCommunityRepo) ToggleReplyLike(ctx context.Context, replyID int64, userID string) (bool, error) {
	return toggle(m.replyLikes, replyID, userID), nil
}

func (m *mockCommunityRepo) MarkResolved(ctx context.Context, id int64, authorID string) error {
	if d, ok := m.discussions[id]; ok {
		d.IsResolved = true
	}
	return nil
}

func (m *mockCommunityRepo) UpsertReview(ctx context.Context, review *models.Review) error {
	review.ID = 1
	return nil
}

func (m *mockCommunityRepo) ListReviews(ctx context.Context, courseID int64) ([]models.Review, error) {
	return nil, nil
}

func int64Ptr(v int64) *int64 { return &v }

type communityFixture struct {
	repo     *mockCommunityRepo
	courses  *mockCourseRepo
	notifier *mockNotifier
}

func newCommunityFixture() *communityFixture {
	repo := newMockCommunityRepo()
	repo.discussions[1] = &models.Discussion{ID: 1, Title: "Chapitre 3", Content: "Question", AuthorID: "stud-1", CourseID: int64Ptr(7)}
	repo.discussions[2] = &models.Discussion{ID: 2, Title: "Général", Content: "Hors cours", AuthorID: "stud-1"}
	repo.replies[5] = &models.DiscussionReply{ID: 5, DiscussionID: 1, AuthorID: "stud-2", Content: "Réponse"}
	return &communityFixture{
		repo: repo,
		courses: &mockCourseRepo{courses: map[int64]*models.CourseStats{
			7: {Course: models.Course{ID: 7, InstructorID: "inst-1"}},
		}},
		notifier: &mockNotifier{},
	}
}

func (f *communityFixture) service() *CommunityService {
	return NewCommunityService(f.repo, &mockEnrollments{}, f.courses, f.notifier, nil, zap.NewNop())
}

func TestCommunityUpdateDiscussionByAuthor(t *testing.T) {
	f := newCommunityFixture()
	svc := f.service()

	updated, err := svc.UpdateDiscussion(context.Background(), Viewer{UserID: "stud-1"}, 1,
		dto.UpdateDiscussionRequest{Title: "Chapitre 3 (edit)", Content: "Question précisée"})
	require.NoError(t, err)
	assert.Equal(t, "Chapitre 3 (edit)", updated.Title)
	assert.Equal(t, "Question précisée", f.repo.discussions[1].Content)
}

func TestCommunityUpdateDiscussionByCourseInstructor(t *testing.T) {
	f := newCommunityFixture()
	svc := f.service()

	_, err := svc.UpdateDiscussion(context.Background(), Viewer{UserID: "inst-1"}, 1,
		dto.UpdateDiscussionRequest{Title: "Modéré", Content: "Contenu modéré"})
	require.NoError(t, err)
	assert.Equal(t, "Modéré", f.repo.discussions[1].Title)
}

func TestCommunityUpdateDiscussionForbiddenForOthers(t *testing.T) {
	f := newCommunityFixture()
	svc := f.service()

	// Instructor moderation only reaches threads attached to their course.
	_, err := svc.UpdateDiscussion(context.Background(), Viewer{UserID: "inst-1"}, 2,
		dto.UpdateDiscussionRequest{Title: "X", Content: "Y"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "author")

	_, err = svc.UpdateDiscussion(context.Background(), Viewer{UserID: "stud-2"}, 1,
		dto.UpdateDiscussionRequest{Title: "X", Content: "Y"})
	require.Error(t, err)
}

func TestCommunityLikeDiscussionTogglesAndNotifiesOnce(t *testing.T) {
	f := newCommunityFixture()
	svc := f.service()
	viewer := Viewer{UserID: "stud-2"}

	liked, err := svc.LikeDiscussion(context.Background(), viewer, 1)
	require.NoError(t, err)
	assert.True(t, liked)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "stud-1", f.notifier.sent[0].UserID)

	unliked, err := svc.LikeDiscussion(context.Background(), viewer, 1)
	require.NoError(t, err)
	assert.False(t, unliked)
	assert.Len(t, f.notifier.sent, 1)
}

func TestCommunityLikeOwnDiscussionStaysSilent(t *testing.T) {
	f := newCommunityFixture()
	svc := f.service()

	liked, err := svc.LikeDiscussion(context.Background(), Viewer{UserID: "stud-1"}, 1)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Empty(t, f.notifier.sent)
}

func TestCommunityLikeReplyNotifiesReplyAuthor(t *testing.T) {
	f := newCommunityFixture()
	svc := f.service()

	liked, err := svc.LikeReply(context.Background(), Viewer{UserID: "stud-1"}, 5)
	require.NoError(t, err)
	assert.True(t, liked)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "stud-2", f.notifier.sent[0].UserID)
	require.NotNil(t, f.notifier.sent[0].Link)
	assert.Equal(t, "/discussions/1", *f.notifier.sent[0].Link)
}

func TestCommunityLikeReplyNotFound(t *testing.T) {
	f := newCommunityFixture()
	svc := f.service()

	_, err := svc.LikeReply(context.Background(), Viewer{UserID: "stud-1"}, 999)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
