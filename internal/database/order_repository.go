package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/intercitygo/route-booking-backend/internal/models"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

var (
	// ErrOrderNotNew indicates a status transition was attempted on an
	// order that already left the NEW state. Two admins acting on the same
	// order concurrently surface this instead of double-applying.
	ErrOrderNotNew = errors.New("order is not in new status")

	// ErrOrderNotFound indicates the order id does not exist
	ErrOrderNotFound = errors.New("order not found")
)

// OrderRepository persists orders and their line items, and applies the
// paired order/seat status transitions inside single transactions.
type OrderRepository struct {
	db *sqlx.DB
}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// CreateOrder inserts one order row (status new) plus one item per seat as
// a single transaction. The per-seat price is captured here and is
// immutable afterwards. Returns the assigned order id.
func (r *OrderRepository) CreateOrder(userID uuid.UUID, departureID string, seatIDs []string, pricePerSeat decimal.Decimal) (string, error) {
	if len(seatIDs) == 0 {
		return "", fmt.Errorf("order must contain at least one seat")
	}

	tx, err := r.db.Beginx()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	total := pricePerSeat.Mul(decimal.NewFromInt(int64(len(seatIDs))))

	var orderID string
	err = tx.QueryRowx(`
		INSERT INTO orders (user_id, departure_id, total, status)
		VALUES ($1, $2, $3, 'new')
		RETURNING id
	`, userID, departureID, total).Scan(&orderID)
	if err != nil {
		return "", fmt.Errorf("failed to create order: %w", err)
	}

	for _, seatID := range seatIDs {
		_, err = tx.Exec(`
			INSERT INTO order_items (order_id, seat_id, price)
			VALUES ($1, $2, $3)
		`, orderID, seatID, pricePerSeat)
		if err != nil {
			return "", fmt.Errorf("failed to create order item for seat %s: %w", seatID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit order: %w", err)
	}

	return orderID, nil
}

// GetByID returns the order with its items
func (r *OrderRepository) GetByID(orderID string) (*models.OrderWithItems, error) {
	var order models.Order
	err := r.db.Get(&order, `
		SELECT id, user_id, departure_id, total, status, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, orderID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	var items []models.OrderItem
	err = r.db.Select(&items, `
		SELECT id, order_id, seat_id, price
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, err
	}

	return &models.OrderWithItems{Order: order, Items: items}, nil
}

// GetSeatIDs returns the seat ids referenced by an order's items
func (r *OrderRepository) GetSeatIDs(orderID string) ([]string, error) {
	var seatIDs []string
	err := r.db.Select(&seatIDs, `
		SELECT seat_id FROM order_items WHERE order_id = $1 ORDER BY id
	`, orderID)
	if err != nil {
		return nil, err
	}
	return seatIDs, nil
}

// ListByStatus returns orders in the given status, newest first. Used for
// the admin review queue of NEW orders awaiting payment confirmation.
func (r *OrderRepository) ListByStatus(status models.OrderStatus) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Select(&orders, `
		SELECT id, user_id, departure_id, total, status, created_at, updated_at
		FROM orders
		WHERE status = $1
		ORDER BY created_at DESC
	`, string(status))
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// ListByUser returns a user's orders, newest first
func (r *OrderRepository) ListByUser(userID uuid.UUID, limit, offset int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Select(&orders, `
		SELECT id, user_id, departure_id, total, status, created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// MarkPaidAndFinalizeSeats flips the order new -> paid and its seats
// held -> sold in one transaction. Either both apply or neither does; the
// order-status predicate rejects a second concurrent admin action with
// ErrOrderNotNew.
func (r *OrderRepository) MarkPaidAndFinalizeSeats(orderID string, seatIDs []string) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := transitionOrder(tx, orderID, models.OrderStatusPaid); err != nil {
		return err
	}

	if err := transitionSeats(tx, seatIDs, models.SeatStatusSold, models.SeatStatusHeld, true); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit payment: %w", err)
	}

	return nil
}

// MarkCanceledAndReleaseSeats flips the order new -> canceled and returns
// its seats to free in one transaction. Releasing is unconditional apart
// from the sold exclusion, so retrying after a fault is safe.
func (r *OrderRepository) MarkCanceledAndReleaseSeats(orderID string, seatIDs []string) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := transitionOrder(tx, orderID, models.OrderStatusCanceled); err != nil {
		return err
	}

	if err := transitionSeats(tx, seatIDs, models.SeatStatusFree, models.SeatStatusSold, false); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cancellation: %w", err)
	}

	return nil
}

// ListExpiredNew returns ids of NEW orders created before the cutoff.
// Feeds the hold-reclaim job.
func (r *OrderRepository) ListExpiredNew(cutoff time.Time) ([]string, error) {
	var ids []string
	err := r.db.Select(&ids, `
		SELECT id FROM orders
		WHERE status = 'new' AND created_at < $1
		ORDER BY created_at
	`, cutoff)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// transitionOrder applies the new -> target flip with a status
// precondition, inside the caller's transaction.
func transitionOrder(tx *sqlx.Tx, orderID string, target models.OrderStatus) error {
	result, err := tx.Exec(`
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = 'new'
	`, string(target), time.Now(), orderID)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		var exists int
		if err := tx.Get(&exists, `SELECT COUNT(*) FROM orders WHERE id = $1`, orderID); err == nil && exists == 0 {
			return ErrOrderNotFound
		}
		return ErrOrderNotNew
	}

	return nil
}

// transitionSeats moves the order's seats to the target status inside the
// caller's transaction. When strict is set the affected-row count must
// match len(seatIDs); the pay step uses it so a missing hold aborts the
// whole transaction. The cancel path instead excludes sold seats and
// tolerates already-free ones.
func transitionSeats(tx *sqlx.Tx, seatIDs []string, target models.SeatStatus, guard models.SeatStatus, strict bool) error {
	if len(seatIDs) == 0 {
		return nil
	}

	var (
		query string
		args  []interface{}
		err   error
	)
	if strict {
		query, args, err = sqlx.In(`
			UPDATE seats
			SET status = ?, updated_at = ?
			WHERE id IN (?) AND status = ?
		`, string(target), time.Now(), seatIDs, string(guard))
	} else {
		query, args, err = sqlx.In(`
			UPDATE seats
			SET status = ?, updated_at = ?
			WHERE id IN (?) AND status <> ?
		`, string(target), time.Now(), seatIDs, string(guard))
	}
	if err != nil {
		return err
	}

	query = tx.Rebind(query)
	result, err := tx.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update seat status: %w", err)
	}

	if strict {
		rowsAffected, _ := result.RowsAffected()
		if int(rowsAffected) != len(seatIDs) {
			return fmt.Errorf("seat state diverged from order, expected %d held seats, updated %d", len(seatIDs), rowsAffected)
		}
	}

	return nil
}
