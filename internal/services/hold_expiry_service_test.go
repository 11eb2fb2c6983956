package services

import (
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intercitygo/route-booking-backend/internal/database"
)

func newHoldExpiryServiceWithMock(t *testing.T) (*HoldExpiryService, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	svc := NewHoldExpiryService(database.NewOrderRepository(sqlxDB), 30*time.Minute, logger)

	return svc, mock, func() { db.Close() }
}

func TestReclaimExpired(t *testing.T) {
	t.Run("Nothing Expired", func(t *testing.T) {
		svc, mock, cleanup := newHoldExpiryServiceWithMock(t)
		defer cleanup()

		mock.ExpectQuery(`SELECT id FROM orders`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		reclaimed, err := svc.ReclaimExpired()
		require.NoError(t, err)
		assert.Zero(t, reclaimed)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Cancels Expired Orders And Frees Seats", func(t *testing.T) {
		svc, mock, cleanup := newHoldExpiryServiceWithMock(t)
		defer cleanup()

		mock.ExpectQuery(`SELECT id FROM orders`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("order-1"))
		mock.ExpectQuery(`SELECT seat_id FROM order_items`).
			WithArgs("order-1").
			WillReturnRows(sqlmock.NewRows([]string{"seat_id"}).
				AddRow("seat-1").
				AddRow("seat-2"))
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE orders`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE seats`).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		reclaimed, err := svc.ReclaimExpired()
		require.NoError(t, err)
		assert.Equal(t, 1, reclaimed)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Skips Order An Admin Already Decided", func(t *testing.T) {
		svc, mock, cleanup := newHoldExpiryServiceWithMock(t)
		defer cleanup()

		mock.ExpectQuery(`SELECT id FROM orders`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).
				AddRow("order-decided").
				AddRow("order-2"))

		// First order lost the race against an admin confirmation
		mock.ExpectQuery(`SELECT seat_id FROM order_items`).
			WithArgs("order-decided").
			WillReturnRows(sqlmock.NewRows([]string{"seat_id"}).AddRow("seat-1"))
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE orders`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM orders`).
			WithArgs("order-decided").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectRollback()

		// Second order reclaims normally
		mock.ExpectQuery(`SELECT seat_id FROM order_items`).
			WithArgs("order-2").
			WillReturnRows(sqlmock.NewRows([]string{"seat_id"}).AddRow("seat-2"))
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE orders`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE seats`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		reclaimed, err := svc.ReclaimExpired()
		require.NoError(t, err)
		assert.Equal(t, 1, reclaimed)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
