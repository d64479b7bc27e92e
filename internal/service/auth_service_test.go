package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/emra-dev/lms-api/internal/models"
	appErrors "github.com/emra-dev/lms-api/pkg/errors"
)

type mockUserRepo struct {
	byID    map[string]*models.User
	byEmail map[string]*models.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{byID: map[string]*models.User{}, byEmail: map[string]*models.User{}}
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	m.byID[user.ID] = user
	m.byEmail[user.Email] = user
	return nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.byID[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := m.byEmail[email]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, ok := m.byEmail[email]
	return ok, nil
}

func (m *mockUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	for _, user := range m.byID {
		if user.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func newAuthService(users *mockUserRepo, notifier *mockNotifier) *AuthService {
	return NewAuthService(users, notifier, "test-secret", time.Hour, "lms-api", validator.New(), zap.NewNop())
}

func TestAuthServiceRegisterAndLogin(t *testing.T) {
	users := newMockUserRepo()
	notifier := &mockNotifier{}
	svc := newAuthService(users, notifier)

	resp, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "amina",
		Email:    "amina@example.com",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.User)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, models.RoleStudent, resp.User.Role)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "Bienvenue !", notifier.sent[0].Title)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "amina@example.com",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, login.User.ID)

	claims, err := svc.ValidateToken(login.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestAuthServiceRegisterRejectsDuplicateEmail(t *testing.T) {
	users := newMockUserRepo()
	svc := newAuthService(users, &mockNotifier{})

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "amina", Email: "amina@example.com", Password: "s3cret-pass",
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), models.RegisterRequest{
		Username: "amina2", Email: "amina@example.com", Password: "s3cret-pass",
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestAuthServiceLoginRejectsWrongPassword(t *testing.T) {
	users := newMockUserRepo()
	svc := newAuthService(users, &mockNotifier{})

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "amina", Email: "amina@example.com", Password: "s3cret-pass",
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), models.LoginRequest{
		Email: "amina@example.com", Password: "wrong-pass",
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthServiceLoginRejectsUnknownEmail(t *testing.T) {
	svc := newAuthService(newMockUserRepo(), &mockNotifier{})

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email: "ghost@example.com", Password: "whatever1",
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthServiceValidateTokenRejectsForeignSecret(t *testing.T) {
	users := newMockUserRepo()
	issuing := newAuthService(users, &mockNotifier{})
	verifying := NewAuthService(users, nil, "other-secret", time.Hour, "lms-api", validator.New(), zap.NewNop())

	resp, err := issuing.Register(context.Background(), models.RegisterRequest{
		Username: "amina", Email: "amina@example.com", Password: "s3cret-pass",
	})
	require.NoError(t, err)

	_, err = verifying.ValidateToken(resp.Token)
	require.Error(t, err)
}
