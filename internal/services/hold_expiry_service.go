package services

import (
	"time"

	"github.com/intercitygo/route-booking-backend/internal/database"
	"github.com/sirupsen/logrus"
)

// HoldExpiryService reclaims seats stranded by abandoned bookings: orders
// that stayed in NEW longer than the hold TTL are canceled and their seats
// returned to free, one order per transaction so a fault on one order
// never blocks the rest.
type HoldExpiryService struct {
	orderRepo *database.OrderRepository
	holdTTL   time.Duration
	logger    *logrus.Logger
}

// NewHoldExpiryService creates a new hold expiry service
func NewHoldExpiryService(orderRepo *database.OrderRepository, holdTTL time.Duration, logger *logrus.Logger) *HoldExpiryService {
	return &HoldExpiryService{
		orderRepo: orderRepo,
		holdTTL:   holdTTL,
		logger:    logger,
	}
}

// ReclaimExpired cancels every NEW order older than the hold TTL and
// releases its seats. Returns the number of orders reclaimed.
func (s *HoldExpiryService) ReclaimExpired() (int, error) {
	cutoff := time.Now().Add(-s.holdTTL)

	orderIDs, err := s.orderRepo.ListExpiredNew(cutoff)
	if err != nil {
		return 0, err
	}

	reclaimed := 0
	for _, orderID := range orderIDs {
		seatIDs, err := s.orderRepo.GetSeatIDs(orderID)
		if err != nil {
			s.logger.WithError(err).WithField("order_id", orderID).
				Error("Failed to load seats of expired order")
			continue
		}

		if err := s.orderRepo.MarkCanceledAndReleaseSeats(orderID, seatIDs); err != nil {
			// ErrOrderNotNew here means an admin beat us to it; fine.
			if err == database.ErrOrderNotNew {
				continue
			}
			s.logger.WithError(err).WithField("order_id", orderID).
				Error("Failed to reclaim expired order")
			continue
		}

		s.logger.WithFields(logrus.Fields{
			"order_id": orderID,
			"seats":    len(seatIDs),
		}).Info("Expired hold reclaimed")
		reclaimed++
	}

	return reclaimed, nil
}
