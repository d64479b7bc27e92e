package models

import "time"

// Role distinguishes students from teachers.
type Role string

// Possible user roles.
const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// User is a platform account. XPPoints drives the leaderboard.
type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         Role      `db:"role" json:"role"`
	XPPoints     int       `db:"xp_points" json:"xp_points"`
	Avatar       *string   `db:"avatar" json:"avatar,omitempty"`
	Bio          string    `db:"bio" json:"bio"`
	Location     string    `db:"location" json:"location"`
	Timezone     string    `db:"timezone" json:"timezone"`
	IsPro        bool      `db:"is_pro" json:"is_pro"`
	CreatedAt    time.Time `db:"created_at" json:"date_joined"`
}

// MembershipTier enumerates subscription levels.
type MembershipTier string

// Possible membership tiers.
const (
	TierFree  MembershipTier = "free"
	TierPro   MembershipTier = "pro"
	TierElite MembershipTier = "elite"
)

// Membership is the user's subscription record, created at registration.
type Membership struct {
	ID        int64          `db:"id" json:"-"`
	UserID    string         `db:"user_id" json:"-"`
	Tier      MembershipTier `db:"tier" json:"tier"`
	StartDate time.Time      `db:"start_date" json:"start_date"`
	EndDate   *time.Time     `db:"end_date" json:"end_date,omitempty"`
	IsActive  bool           `db:"is_active" json:"is_active"`
}
