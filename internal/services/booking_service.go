package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/intercitygo/route-booking-backend/internal/database"
	"github.com/intercitygo/route-booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

var (
	// ErrSeatsUnavailable indicates at least one requested seat was no
	// longer free at hold time. The caller re-selects from a refreshed
	// seat view; no order was created.
	ErrSeatsUnavailable = errors.New("requested seats are no longer available")

	// ErrDepartureNotFound indicates an unknown departure id
	ErrDepartureNotFound = errors.New("departure not found")

	// ErrOrderNotFound indicates an unknown order id
	ErrOrderNotFound = errors.New("order not found")

	// ErrSeatsNotInDeparture indicates the request referenced seat ids
	// outside the stated departure. Caller error, nothing was mutated.
	ErrSeatsNotInDeparture = errors.New("seat ids do not belong to the departure")

	// ErrOrderNotNew indicates a pay or cancel on an order already in a
	// terminal state. No defined transition out of PAID or CANCELED.
	ErrOrderNotNew = errors.New("order is not in new status")
)

// BookingService sequences the seat inventory and the order ledger into
// the booking protocol: hold seats -> create order -> pay or cancel.
// Correctness under concurrent callers is delegated entirely to the
// store's conditional updates; the service keeps no in-process locks.
type BookingService struct {
	seatRepo    *database.SeatRepository
	orderRepo   *database.OrderRepository
	catalogRepo *database.CatalogRepository
	logger      *logrus.Logger
}

// NewBookingService creates a new booking service
func NewBookingService(
	seatRepo *database.SeatRepository,
	orderRepo *database.OrderRepository,
	catalogRepo *database.CatalogRepository,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		seatRepo:    seatRepo,
		orderRepo:   orderRepo,
		catalogRepo: catalogRepo,
		logger:      logger,
	}
}

// ListSeats returns the current seat grid for a departure, coach by coach
func (s *BookingService) ListSeats(departureID string) ([]models.Seat, error) {
	dep, err := s.catalogRepo.GetDepartureByID(departureID)
	if err != nil {
		return nil, fmt.Errorf("failed to get departure: %w", err)
	}
	if dep == nil {
		return nil, ErrDepartureNotFound
	}

	return s.seatRepo.ListSeats(departureID)
}

// CreateBooking holds the requested seats and creates a NEW order for
// them. If any seat cannot be held the partial hold is rolled back, no
// order is created, and ErrSeatsUnavailable tells the caller to re-select.
// The per-seat price is the departure's listed total price, captured at
// hold time.
func (s *BookingService) CreateBooking(userID uuid.UUID, req *models.CreateBookingRequest) (*models.BookingResponse, error) {
	seatIDs := dedupe(req.SeatIDs)
	if len(seatIDs) == 0 {
		return nil, ErrSeatsNotInDeparture
	}

	dep, err := s.catalogRepo.GetDepartureByID(req.DepartureID)
	if err != nil {
		return nil, fmt.Errorf("failed to get departure: %w", err)
	}
	if dep == nil {
		return nil, ErrDepartureNotFound
	}

	// Reject ids outside the stated departure before touching inventory
	belonging, err := s.seatRepo.CountBelongingToDeparture(req.DepartureID, seatIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to validate seat scope: %w", err)
	}
	if belonging != len(seatIDs) {
		return nil, ErrSeatsNotInDeparture
	}

	held, err := s.seatRepo.HoldSeats(seatIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to hold seats: %w", err)
	}

	if len(held) < len(seatIDs) {
		// A concurrent booking won some of the seats. Release only what
		// this call transitioned and report back without an order.
		if len(held) > 0 {
			if relErr := s.seatRepo.ReleaseSeats(held); relErr != nil {
				s.logger.WithError(relErr).WithFields(logrus.Fields{
					"departure_id": req.DepartureID,
					"seat_ids":     held,
				}).Error("Failed to roll back partial hold")
			}
		}
		s.logger.WithFields(logrus.Fields{
			"departure_id": req.DepartureID,
			"requested":    len(seatIDs),
			"held":         len(held),
		}).Info("Booking lost seat race, holds rolled back")
		return nil, ErrSeatsUnavailable
	}

	orderID, err := s.orderRepo.CreateOrder(userID, req.DepartureID, seatIDs, dep.TotalPrice)
	if err != nil {
		// The holds are stranded without an order; compensate.
		if relErr := s.seatRepo.ReleaseSeats(held); relErr != nil {
			s.logger.WithError(relErr).WithField("seat_ids", held).
				Error("Failed to release seats after order creation failure")
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load created order: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":     orderID,
		"user_id":      userID,
		"departure_id": req.DepartureID,
		"seats":        len(seatIDs),
		"total":        order.Total,
	}).Info("Booking created")

	return &models.BookingResponse{
		OrderID: orderID,
		Total:   order.Total,
		Status:  order.Status,
		SeatIDs: seatIDs,
	}, nil
}

// PayOrder confirms payment for a NEW order: order -> PAID and its seats
// held -> sold, applied atomically. PAID is terminal.
func (s *BookingService) PayOrder(orderID string) error {
	seatIDs, err := s.orderSeats(orderID)
	if err != nil {
		return err
	}

	if err := s.orderRepo.MarkPaidAndFinalizeSeats(orderID, seatIDs); err != nil {
		return s.mapLedgerErr(orderID, "pay", err)
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"seats":    len(seatIDs),
	}).Info("Order paid, seats finalized")

	return nil
}

// CancelOrder cancels a NEW order: order -> CANCELED and its seats back to
// free, applied atomically. CANCELED is terminal; a PAID order cannot be
// canceled.
func (s *BookingService) CancelOrder(orderID string) error {
	seatIDs, err := s.orderSeats(orderID)
	if err != nil {
		return err
	}

	if err := s.orderRepo.MarkCanceledAndReleaseSeats(orderID, seatIDs); err != nil {
		return s.mapLedgerErr(orderID, "cancel", err)
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"seats":    len(seatIDs),
	}).Info("Order canceled, seats released")

	return nil
}

// GetOrder returns an order with its items
func (s *BookingService) GetOrder(orderID string) (*models.OrderWithItems, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		if errors.Is(err, database.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

// ListPendingOrders returns NEW orders awaiting admin review
func (s *BookingService) ListPendingOrders() ([]models.Order, error) {
	return s.orderRepo.ListByStatus(models.OrderStatusNew)
}

// ListUserOrders returns a user's order history
func (s *BookingService) ListUserOrders(userID uuid.UUID, limit, offset int) ([]models.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.orderRepo.ListByUser(userID, limit, offset)
}

func (s *BookingService) orderSeats(orderID string) ([]string, error) {
	seatIDs, err := s.orderRepo.GetSeatIDs(orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order seats: %w", err)
	}
	if len(seatIDs) == 0 {
		return nil, ErrOrderNotFound
	}
	return seatIDs, nil
}

func (s *BookingService) mapLedgerErr(orderID, action string, err error) error {
	switch {
	case errors.Is(err, database.ErrOrderNotFound):
		return ErrOrderNotFound
	case errors.Is(err, database.ErrOrderNotNew):
		return ErrOrderNotNew
	default:
		s.logger.WithError(err).WithFields(logrus.Fields{
			"order_id": orderID,
			"action":   action,
		}).Error("Order transition failed")
		return fmt.Errorf("failed to %s order: %w", action, err)
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
