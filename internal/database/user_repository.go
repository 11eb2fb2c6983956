package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/intercitygo/route-booking-backend/internal/models"
	"github.com/lib/pq"
)

// UserRepository handles user database operations
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

const userColumns = `id, login, email, password_hash, roles, verification_code,
	   code_expires_at, verification_attempts, verified_at, created_at, updated_at`

// CreateUnverified creates a new user pending email verification with the
// default passenger role. The stored code must be confirmed before login.
func (r *UserRepository) CreateUnverified(login, email, passwordHash, code string, codeExpiresAt time.Time) (*models.User, error) {
	user := &models.User{
		ID:               uuid.New(),
		Login:            login,
		Email:            email,
		PasswordHash:     passwordHash,
		Roles:            []string{"passenger"},
		VerificationCode: &code,
		CodeExpiresAt:    &codeExpiresAt,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}

	query := `
		INSERT INTO users (
			id, login, email, password_hash, roles,
			verification_code, code_expires_at, verification_attempts,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9)
	`

	_, err := r.db.Exec(
		query,
		user.ID,
		user.Login,
		user.Email,
		user.PasswordHash,
		pq.Array(user.Roles),
		code,
		codeExpiresAt,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// GetByLogin returns the user with the given login, or nil when unknown
func (r *UserRepository) GetByLogin(login string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE login = $1`

	row := r.db.QueryRow(query, login)
	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by login: %w", err)
	}

	return user, nil
}

// LoginTaken reports whether a login is already registered
func (r *UserRepository) LoginTaken(login string) (bool, error) {
	var count int
	row := r.db.QueryRow(`SELECT COUNT(*) FROM users WHERE login = $1`, login)
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check login: %w", err)
	}
	return count > 0, nil
}

// EmailTaken reports whether an email is already registered
func (r *UserRepository) EmailTaken(email string) (bool, error) {
	var count int
	row := r.db.QueryRow(`SELECT COUNT(*) FROM users WHERE email = $1`, email)
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return count > 0, nil
}

// UpdateVerificationCode stores a fresh code and resets the attempt
// counter for an unverified account (resend flow).
func (r *UserRepository) UpdateVerificationCode(login, code string, expiresAt time.Time) error {
	result, err := r.db.Exec(`
		UPDATE users
		SET verification_code = $1,
			code_expires_at = $2,
			verification_attempts = 0,
			updated_at = $3
		WHERE login = $4 AND verified_at IS NULL
	`, code, expiresAt, time.Now(), login)
	if err != nil {
		return fmt.Errorf("failed to update verification code: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("no unverified user with login %s", login)
	}

	return nil
}

// IncrementVerificationAttempts bumps the failed-attempt counter
func (r *UserRepository) IncrementVerificationAttempts(login string) error {
	_, err := r.db.Exec(`
		UPDATE users
		SET verification_attempts = verification_attempts + 1, updated_at = $1
		WHERE login = $2 AND verified_at IS NULL
	`, time.Now(), login)
	if err != nil {
		return fmt.Errorf("failed to increment attempts: %w", err)
	}
	return nil
}

// MarkVerified clears the code and stamps verified_at
func (r *UserRepository) MarkVerified(login string) error {
	result, err := r.db.Exec(`
		UPDATE users
		SET verified_at = $1,
			verification_code = NULL,
			code_expires_at = NULL,
			updated_at = $1
		WHERE login = $2 AND verified_at IS NULL
	`, time.Now(), login)
	if err != nil {
		return fmt.Errorf("failed to mark user verified: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("no unverified user with login %s", login)
	}

	return nil
}

// RecordLogin stores a session trace row for security auditing
func (r *UserRepository) RecordLogin(userID uuid.UUID, ipAddress, browser, platform string) error {
	_, err := r.db.Exec(`
		INSERT INTO user_sessions (user_id, ip_address, browser, platform, logged_in_at)
		VALUES ($1, $2, $3, $4, $5)
	`, userID, ipAddress, browser, platform, time.Now())
	if err != nil {
		return fmt.Errorf("failed to record login session: %w", err)
	}
	return nil
}

// scanner matches both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row scanner) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Login,
		&user.Email,
		&user.PasswordHash,
		pq.Array(&user.Roles),
		&user.VerificationCode,
		&user.CodeExpiresAt,
		&user.VerificationAttempts,
		&user.VerifiedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
