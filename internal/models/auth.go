package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims is the access-token payload.
type JWTClaims struct {
	UserID   string `json:"uid"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	jwt.RegisteredClaims
}

// LoginRequest is the credential payload for token issuance.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest creates a new account.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     Role   `json:"role" validate:"omitempty,oneof=student teacher"`
}

// LoginResponse carries the issued token and profile.
type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
