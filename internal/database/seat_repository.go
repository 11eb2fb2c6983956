package database

import (
	"fmt"
	"time"

	"github.com/intercitygo/route-booking-backend/internal/models"
	"github.com/jmoiron/sqlx"
)

// SeatRepository holds the authoritative seat-status grid per departure and
// provides the only legal status transitions. Concurrent callers are
// serialized by the conditional updates, not by in-process locks.
type SeatRepository struct {
	db *sqlx.DB
}

// NewSeatRepository creates a new SeatRepository
func NewSeatRepository(db *sqlx.DB) *SeatRepository {
	return &SeatRepository{db: db}
}

// ListSeats returns all seats for a departure ordered by coach then seat
// number. Read-only; used for rendering and the pre-hold consistency check.
func (r *SeatRepository) ListSeats(departureID string) ([]models.Seat, error) {
	query := `
		SELECT id, departure_id, coach_no, seat_no, price, status, created_at, updated_at
		FROM seats
		WHERE departure_id = $1
		ORDER BY coach_no, seat_no
	`

	var seats []models.Seat
	err := r.db.Select(&seats, query, departureID)
	if err != nil {
		return nil, err
	}

	return seats, nil
}

// HoldSeats attempts the free -> held transition for each given seat in one
// conditional batch update. The predicate is evaluated by the store, so two
// concurrent callers selecting an overlapping set can never both win the
// same seat. Returns the ids of the seats actually transitioned; callers
// compare len(held) to len(seatIDs) to detect partial success, and release
// exactly the returned ids when rolling a partial hold back.
func (r *SeatRepository) HoldSeats(seatIDs []string) ([]string, error) {
	if len(seatIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		UPDATE seats
		SET status = 'held',
			updated_at = ?
		WHERE id IN (?) AND status = 'free'
		RETURNING id
	`, time.Now(), seatIDs)
	if err != nil {
		return nil, err
	}

	query = r.db.Rebind(query)

	var held []string
	err = r.db.Select(&held, query, args...)
	if err != nil {
		return nil, err
	}

	return held, nil
}

// ReleaseSeats transitions the given seats back to free. Sold seats are
// excluded; releasing an already-free seat is a no-op, so the call is
// idempotent.
func (r *SeatRepository) ReleaseSeats(seatIDs []string) error {
	if len(seatIDs) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`
		UPDATE seats
		SET status = 'free',
			updated_at = ?
		WHERE id IN (?) AND status <> 'sold'
	`, time.Now(), seatIDs)
	if err != nil {
		return err
	}

	query = r.db.Rebind(query)
	_, err = r.db.Exec(query, args...)
	return err
}

// FinalizeSold transitions the given seats from held to sold. Used only by
// the pay step, scoped to exactly one order's seats. A row-count mismatch
// means a seat was not held and the surrounding transaction must abort.
func (r *SeatRepository) FinalizeSold(seatIDs []string) error {
	if len(seatIDs) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`
		UPDATE seats
		SET status = 'sold',
			updated_at = ?
		WHERE id IN (?) AND status = 'held'
	`, time.Now(), seatIDs)
	if err != nil {
		return err
	}

	query = r.db.Rebind(query)
	result, err := r.db.Exec(query, args...)
	if err != nil {
		return err
	}

	rowsAffected, _ := result.RowsAffected()
	if int(rowsAffected) != len(seatIDs) {
		return fmt.Errorf("some seats are not held, expected %d, updated %d", len(seatIDs), rowsAffected)
	}

	return nil
}

// GetSummary returns seat availability counts for a departure
func (r *SeatRepository) GetSummary(departureID string) (*models.SeatSummary, error) {
	query := `
		SELECT
			departure_id,
			COUNT(*) as total_seats,
			COUNT(*) FILTER (WHERE status = 'free') as free_seats,
			COUNT(*) FILTER (WHERE status = 'held') as held_seats,
			COUNT(*) FILTER (WHERE status = 'sold') as sold_seats
		FROM seats
		WHERE departure_id = $1
		GROUP BY departure_id
	`

	var summary models.SeatSummary
	err := r.db.Get(&summary, query, departureID)
	if err != nil {
		return nil, err
	}

	return &summary, nil
}

// CountBelongingToDeparture returns how many of the given seat ids belong
// to the stated departure. The orchestrator rejects the request unless the
// count equals len(seatIDs), so a caller cannot reference another
// departure's seats by id guesswork.
func (r *SeatRepository) CountBelongingToDeparture(departureID string, seatIDs []string) (int, error) {
	if len(seatIDs) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(`
		SELECT COUNT(*) FROM seats
		WHERE departure_id = ? AND id IN (?)
	`, departureID, seatIDs)
	if err != nil {
		return 0, err
	}

	query = r.db.Rebind(query)

	var count int
	err = r.db.Get(&count, query, args...)
	if err != nil {
		return 0, err
	}

	return count, nil
}
