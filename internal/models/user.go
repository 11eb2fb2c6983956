package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered account. An account can log in only after
// its email has been verified.
type User struct {
	ID                   uuid.UUID  `json:"id" db:"id"`
	Login                string     `json:"login" db:"login"`
	Email                string     `json:"email" db:"email"`
	PasswordHash         string     `json:"-" db:"password_hash"`
	Roles                []string   `json:"roles" db:"roles"`
	VerificationCode     *string    `json:"-" db:"verification_code"`
	CodeExpiresAt        *time.Time `json:"-" db:"code_expires_at"`
	VerificationAttempts int        `json:"-" db:"verification_attempts"`
	VerifiedAt           *time.Time `json:"verified_at,omitempty" db:"verified_at"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at" db:"updated_at"`
}

// Verified reports whether the account finished email verification
func (u *User) Verified() bool {
	return u.VerifiedAt != nil
}

// HasRole reports whether the user carries the given role
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// RegisterRequest is the registration payload
type RegisterRequest struct {
	Login    string `json:"login" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// VerifyRequest confirms the emailed code
type VerifyRequest struct {
	Login string `json:"login" binding:"required"`
	Code  string `json:"code" binding:"required,len=6"`
}

// LoginRequest is the credentials payload
type LoginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse carries issued tokens
type AuthResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	UserID       uuid.UUID `json:"user_id"`
	Login        string    `json:"login"`
	Roles        []string  `json:"roles"`
}
