package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/emra-dev/lms-api/internal/models"
)

// UserRepository manages persistence for user accounts and memberships.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new account together with its free membership.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create user: %w", err)
	}
	defer tx.Rollback()

	const insertUser = `INSERT INTO users (id, username, email, password_hash, role, xp_points, avatar, bio, location, timezone, is_pro, created_at)
        VALUES (:id, :username, :email, :password_hash, :role, :xp_points, :avatar, :bio, :location, :timezone, :is_pro, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insertUser, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	const insertMembership = `INSERT INTO memberships (user_id, tier, start_date, is_active) VALUES ($1, $2, $3, true)`
	if _, err := tx.ExecContext(ctx, insertMembership, user.ID, models.TierFree, user.CreatedAt); err != nil {
		return fmt.Errorf("create membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create user: %w", err)
	}
	return nil
}

// FindByID fetches a user by primary key.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	const query = `SELECT id, username, email, password_hash, role, xp_points, avatar, bio, location, timezone, is_pro, created_at FROM users WHERE id = $1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail fetches a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	const query = `SELECT id, username, email, password_hash, role, xp_points, avatar, bio, location, timezone, is_pro, created_at FROM users WHERE email = $1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// ExistsByEmail checks whether an account already uses the email.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM users WHERE email = $1 LIMIT 1", email)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return true, nil
}

// ExistsByUsername checks whether the username is taken.
func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM users WHERE username = $1 LIMIT 1", username)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return true, nil
}

// UpdateProfile modifies editable profile fields.
func (r *UserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	const query = `UPDATE users SET username = :username, avatar = :avatar, bio = :bio, location = :location, timezone = :timezone WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// AddXP increments the user's experience points and returns the new total.
func (r *UserRepository) AddXP(ctx context.Context, userID string, points int) (int, error) {
	const query = `UPDATE users SET xp_points = xp_points + $2 WHERE id = $1 RETURNING xp_points`
	var total int
	if err := r.db.GetContext(ctx, &total, query, userID, points); err != nil {
		return 0, fmt.Errorf("add xp: %w", err)
	}
	return total, nil
}

// FindMembership returns the user's active membership record.
func (r *UserRepository) FindMembership(ctx context.Context, userID string) (*models.Membership, error) {
	const query = `SELECT id, user_id, tier, start_date, end_date, is_active FROM memberships WHERE user_id = $1 AND is_active = true ORDER BY start_date DESC LIMIT 1`
	var membership models.Membership
	if err := r.db.GetContext(ctx, &membership, query, userID); err != nil {
		return nil, err
	}
	return &membership, nil
}

// Leaderboard returns the top users by experience points.
func (r *UserRepository) Leaderboard(ctx context.Context, limit int) ([]models.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	const query = `SELECT id, username, email, password_hash, role, xp_points, avatar, bio, location, timezone, is_pro, created_at FROM users ORDER BY xp_points DESC, username ASC LIMIT $1`
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, limit); err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	return users, nil
}
