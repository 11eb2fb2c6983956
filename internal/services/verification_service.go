package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/intercitygo/route-booking-backend/internal/database"
	"github.com/intercitygo/route-booking-backend/internal/models"
)

// CodeLength is the length of the emailed verification code
const CodeLength = 6

var (
	// ErrCodeExpired indicates the verification code has expired
	ErrCodeExpired = errors.New("verification code has expired")

	// ErrCodeInvalid indicates the code does not match
	ErrCodeInvalid = errors.New("invalid verification code")

	// ErrMaxAttemptsExceeded indicates too many failed verification attempts
	ErrMaxAttemptsExceeded = errors.New("maximum verification attempts exceeded")

	// ErrAlreadyVerified indicates the account already finished verification
	ErrAlreadyVerified = errors.New("account is already verified")

	// ErrNoPendingVerification indicates no unverified account for the login
	ErrNoPendingVerification = errors.New("no pending verification for this login")
)

// VerificationService handles the generate-store-compare-expire flow for
// email verification codes.
type VerificationService struct {
	userRepo    *database.UserRepository
	codeTTL     time.Duration
	maxAttempts int
}

// NewVerificationService creates a new verification service
func NewVerificationService(userRepo *database.UserRepository, codeTTL time.Duration, maxAttempts int) *VerificationService {
	return &VerificationService{
		userRepo:    userRepo,
		codeTTL:     codeTTL,
		maxAttempts: maxAttempts,
	}
}

// GenerateCode returns a fresh random 6-digit code and its expiry time
func (s *VerificationService) GenerateCode() (string, time.Time, error) {
	code, err := randomCode()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate code: %w", err)
	}
	return code, time.Now().Add(s.codeTTL), nil
}

// Renew stores a fresh code for an unverified account (resend flow) and
// returns it for delivery.
func (s *VerificationService) Renew(login string) (string, error) {
	user, err := s.userRepo.GetByLogin(login)
	if err != nil {
		return "", fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return "", ErrNoPendingVerification
	}
	if user.Verified() {
		return "", ErrAlreadyVerified
	}

	code, expiresAt, err := s.GenerateCode()
	if err != nil {
		return "", err
	}

	if err := s.userRepo.UpdateVerificationCode(login, code, expiresAt); err != nil {
		return "", fmt.Errorf("failed to store code: %w", err)
	}

	return code, nil
}

// Confirm compares the submitted code against the stored one, enforcing
// the TTL and the attempt limit. On success the account is marked
// verified and can log in.
func (s *VerificationService) Confirm(login, code string) error {
	user, err := s.userRepo.GetByLogin(login)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return ErrNoPendingVerification
	}
	if user.Verified() {
		return ErrAlreadyVerified
	}
	if user.VerificationCode == nil || user.CodeExpiresAt == nil {
		return ErrNoPendingVerification
	}

	if user.VerificationAttempts >= s.maxAttempts {
		return ErrMaxAttemptsExceeded
	}

	if time.Now().After(*user.CodeExpiresAt) {
		return ErrCodeExpired
	}

	if *user.VerificationCode != code {
		if err := s.userRepo.IncrementVerificationAttempts(login); err != nil {
			return fmt.Errorf("failed to record attempt: %w", err)
		}
		return ErrCodeInvalid
	}

	if err := s.userRepo.MarkVerified(login); err != nil {
		return fmt.Errorf("failed to mark verified: %w", err)
	}

	return nil
}

// PendingUser returns the unverified account for a login, used by the
// resend handler to pick the destination address.
func (s *VerificationService) PendingUser(login string) (*models.User, error) {
	user, err := s.userRepo.GetByLogin(login)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || user.Verified() {
		return nil, ErrNoPendingVerification
	}
	return user, nil
}

func randomCode() (string, error) {
	// 100000..999999, uniform
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
