package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/intercitygo/route-booking-backend/internal/database"
	"github.com/intercitygo/route-booking-backend/internal/middleware"
	"github.com/intercitygo/route-booking-backend/internal/models"
	"github.com/intercitygo/route-booking-backend/internal/services"
)

// BookingHandler handles passenger booking operations
type BookingHandler struct {
	bookingService *services.BookingService
	seatRepo       *database.SeatRepository
	discountRepo   *database.DiscountRepository
	logger         *logrus.Logger
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(
	bookingService *services.BookingService,
	seatRepo *database.SeatRepository,
	discountRepo *database.DiscountRepository,
	logger *logrus.Logger,
) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		seatRepo:       seatRepo,
		discountRepo:   discountRepo,
		logger:         logger,
	}
}

// ListSeats handles GET /api/v1/departures/:id/seats
// Returns the seat grid ordered by coach then seat number. The view is a
// snapshot; a seat shown free can be taken by the time booking is attempted.
func (h *BookingHandler) ListSeats(c *gin.Context) {
	departureID := c.Param("id")

	seats, err := h.bookingService.ListSeats(departureID)
	if err != nil {
		if errors.Is(err, services.ErrDepartureNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Departure not found",
				Code:    "DEPARTURE_NOT_FOUND",
			})
			return
		}
		h.logger.WithError(err).WithField("departure_id", departureID).Error("Failed to list seats")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to load seats",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"departure_id": departureID,
		"seats":        seats,
		"count":        len(seats),
	})
}

// GetSeatSummary handles GET /api/v1/departures/:id/seats/summary
func (h *BookingHandler) GetSeatSummary(c *gin.Context) {
	departureID := c.Param("id")

	summary, err := h.seatRepo.GetSummary(departureID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Departure not found",
				Code:    "DEPARTURE_NOT_FOUND",
			})
			return
		}
		h.logger.WithError(err).WithField("departure_id", departureID).Error("Failed to load seat summary")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to load seat summary",
		})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// CreateBooking handles POST /api/v1/bookings
// Holds the requested seats and creates a NEW order. On a seat conflict
// nothing is held and the caller should refresh the seat view and re-select.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
		return
	}

	resp, err := h.bookingService.CreateBooking(userCtx.UserID, &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDepartureNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Departure not found",
				Code:    "DEPARTURE_NOT_FOUND",
			})
		case errors.Is(err, services.ErrSeatsNotInDeparture):
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_seats",
				Message: "Seat ids do not belong to this departure",
				Code:    "SEATS_NOT_IN_DEPARTURE",
			})
		case errors.Is(err, services.ErrSeatsUnavailable):
			c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "seats_unavailable",
				Message: "Some seats are no longer available. Refresh the seat map and select again.",
				Code:    "SEATS_UNAVAILABLE",
			})
		default:
			h.logger.WithError(err).WithFields(logrus.Fields{
				"user_id":      userCtx.UserID,
				"departure_id": req.DepartureID,
			}).Error("Failed to create booking")
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "internal_error",
				Message: "Failed to create booking",
			})
		}
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetOrder handles GET /api/v1/orders/:id
// A passenger can read only their own orders; admins can read any.
func (h *BookingHandler) GetOrder(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)
	orderID := c.Param("id")

	order, err := h.bookingService.GetOrder(orderID)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Order not found",
				Code:    "ORDER_NOT_FOUND",
			})
			return
		}
		h.logger.WithError(err).WithField("order_id", orderID).Error("Failed to get order")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to load order",
		})
		return
	}

	if order.UserID != userCtx.UserID && !hasRole(userCtx, "admin") {
		// Do not reveal that the order exists
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Order not found",
			Code:    "ORDER_NOT_FOUND",
		})
		return
	}

	c.JSON(http.StatusOK, order)
}

// ListMyOrders handles GET /api/v1/orders
func (h *BookingHandler) ListMyOrders(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	orders, err := h.bookingService.ListUserOrders(userCtx.UserID, limit, offset)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", userCtx.UserID).Error("Failed to list orders")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to load orders",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

// CancelMyOrder handles POST /api/v1/orders/:id/cancel
// A passenger may cancel their own NEW order; held seats return to free.
func (h *BookingHandler) CancelMyOrder(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)
	orderID := c.Param("id")

	order, err := h.bookingService.GetOrder(orderID)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Order not found",
				Code:    "ORDER_NOT_FOUND",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to load order",
		})
		return
	}

	if order.UserID != userCtx.UserID {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Order not found",
			Code:    "ORDER_NOT_FOUND",
		})
		return
	}

	if err := h.bookingService.CancelOrder(orderID); err != nil {
		h.respondOrderTransitionError(c, orderID, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Order canceled, seats released",
		"order_id": orderID,
	})
}

// CreateDiscountRequest handles POST /api/v1/discounts
func (h *BookingHandler) CreateDiscountRequest(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var req models.CreateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
		return
	}

	id, err := h.discountRepo.Create(userCtx.UserID, req.Category, req.Reason)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", userCtx.UserID).Error("Failed to create discount request")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to submit discount request",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Discount request submitted for review",
		"id":      id,
	})
}

func (h *BookingHandler) respondOrderTransitionError(c *gin.Context, orderID string, err error) {
	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Order not found",
			Code:    "ORDER_NOT_FOUND",
		})
	case errors.Is(err, services.ErrOrderNotNew):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "order_not_new",
			Message: "The order has already been paid or canceled",
			Code:    "ORDER_NOT_NEW",
		})
	default:
		h.logger.WithError(err).WithField("order_id", orderID).Error("Order transition failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to update order",
		})
	}
}

func hasRole(userCtx middleware.UserContext, role string) bool {
	for _, r := range userCtx.Roles {
		if r == role {
			return true
		}
	}
	return false
}
