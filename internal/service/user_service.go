package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/emra-dev/lms-api/internal/models"
	appErrors "github.com/emra-dev/lms-api/pkg/errors"
)

type profileStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
	FindMembership(ctx context.Context, userID string) (*models.Membership, error)
	Leaderboard(ctx context.Context, limit int) ([]models.User, error)
}

// UpdateProfileRequest carries the editable profile fields.
type UpdateProfileRequest struct {
	Username string  `json:"username" validate:"omitempty,min=3,max=50"`
	Avatar   *string `json:"avatar"`
	Bio      string  `json:"bio" validate:"max=1000"`
	Location string  `json:"location" validate:"max=100"`
	Timezone string  `json:"timezone" validate:"max=50"`
}

// UserService handles profiles, memberships and the XP leaderboard.
type UserService struct {
	users     profileStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs UserService.
func NewUserService(users profileStore, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, validator: validate, logger: logger}
}

// GetProfile loads a user's public profile.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// UpdateProfile modifies the caller's profile.
func (s *UserService) UpdateProfile(ctx context.Context, viewer Viewer, req UpdateProfileRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	user, err := s.GetProfile(ctx, viewer.UserID)
	if err != nil {
		return nil, err
	}
	if req.Username != "" {
		user.Username = req.Username
	}
	if req.Avatar != nil {
		user.Avatar = req.Avatar
	}
	user.Bio = req.Bio
	user.Location = req.Location
	user.Timezone = req.Timezone

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}
	return user, nil
}

// Membership returns the caller's active membership.
func (s *UserService) Membership(ctx context.Context, viewer Viewer) (*models.Membership, error) {
	membership, err := s.users.FindMembership(ctx, viewer.UserID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active membership")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load membership")
	}
	return membership, nil
}

// Leaderboard returns the top users by experience points.
func (s *UserService) Leaderboard(ctx context.Context, limit int) ([]models.User, error) {
	users, err := s.users.Leaderboard(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leaderboard")
	}
	return users, nil
}
