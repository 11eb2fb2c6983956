package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/intercitygo/route-booking-backend/internal/models"
	"github.com/jmoiron/sqlx"
)

// ErrDiscountNotPending indicates a decision was attempted on a request
// that has already been reviewed.
var ErrDiscountNotPending = errors.New("discount request is not pending")

// DiscountRepository handles discount request database operations
type DiscountRepository struct {
	db *sqlx.DB
}

// NewDiscountRepository creates a new DiscountRepository
func NewDiscountRepository(db *sqlx.DB) *DiscountRepository {
	return &DiscountRepository{db: db}
}

// Create files a new pending discount request
func (r *DiscountRepository) Create(userID uuid.UUID, category, reason string) (string, error) {
	var id string
	err := r.db.QueryRowx(`
		INSERT INTO discount_requests (user_id, category, reason, status)
		VALUES ($1, $2, $3, 'pending')
		RETURNING id
	`, userID, category, reason).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to create discount request: %w", err)
	}
	return id, nil
}

// GetByID returns one discount request, or nil when unknown
func (r *DiscountRepository) GetByID(id string) (*models.DiscountRequest, error) {
	var req models.DiscountRequest
	err := r.db.Get(&req, `
		SELECT id, user_id, category, reason, status, reviewed_by, reviewed_at, created_at
		FROM discount_requests
		WHERE id = $1
	`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

// ListPending returns the admin review queue, oldest first
func (r *DiscountRepository) ListPending() ([]models.DiscountRequest, error) {
	var reqs []models.DiscountRequest
	err := r.db.Select(&reqs, `
		SELECT id, user_id, category, reason, status, reviewed_by, reviewed_at, created_at
		FROM discount_requests
		WHERE status = 'pending'
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	return reqs, nil
}

// Decide moves a pending request to approved or rejected. The pending
// precondition makes a second concurrent decision fail cleanly.
func (r *DiscountRepository) Decide(id string, approved bool, reviewedBy uuid.UUID) error {
	status := models.DiscountStatusRejected
	if approved {
		status = models.DiscountStatusApproved
	}

	result, err := r.db.Exec(`
		UPDATE discount_requests
		SET status = $1, reviewed_by = $2, reviewed_at = $3
		WHERE id = $4 AND status = 'pending'
	`, string(status), reviewedBy, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to decide discount request: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrDiscountNotPending
	}

	return nil
}
