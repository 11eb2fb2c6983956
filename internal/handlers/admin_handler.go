package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/intercitygo/route-booking-backend/internal/database"
	"github.com/intercitygo/route-booking-backend/internal/middleware"
	"github.com/intercitygo/route-booking-backend/internal/services"
)

// AdminHandler handles the administrator review queues: pending payments
// and discount requests.
type AdminHandler struct {
	bookingService *services.BookingService
	discountRepo   *database.DiscountRepository
	logger         *logrus.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	bookingService *services.BookingService,
	discountRepo *database.DiscountRepository,
	logger *logrus.Logger,
) *AdminHandler {
	return &AdminHandler{
		bookingService: bookingService,
		discountRepo:   discountRepo,
		logger:         logger,
	}
}

// DecideDiscountRequest is the admin decision payload
type DecideDiscountRequest struct {
	Approved bool `json:"approved"`
}

// ListPendingOrders handles GET /api/v1/admin/orders/pending
func (h *AdminHandler) ListPendingOrders(c *gin.Context) {
	orders, err := h.bookingService.ListPendingOrders()
	if err != nil {
		h.logger.WithError(err).Error("Failed to list pending orders")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to load pending orders",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

// ConfirmPayment handles POST /api/v1/admin/orders/:id/confirm
// Marks a NEW order paid and finalizes its seats as sold, atomically.
func (h *AdminHandler) ConfirmPayment(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)
	orderID := c.Param("id")

	if err := h.bookingService.PayOrder(orderID); err != nil {
		h.respondTransitionError(c, orderID, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"admin_id": userCtx.UserID,
	}).Info("Payment confirmed")

	c.JSON(http.StatusOK, gin.H{
		"message":  "Payment confirmed, seats finalized",
		"order_id": orderID,
	})
}

// CancelOrder handles POST /api/v1/admin/orders/:id/cancel
// Cancels a NEW order and releases its seats back to free, atomically.
func (h *AdminHandler) CancelOrder(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)
	orderID := c.Param("id")

	if err := h.bookingService.CancelOrder(orderID); err != nil {
		h.respondTransitionError(c, orderID, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"admin_id": userCtx.UserID,
	}).Info("Order canceled by admin")

	c.JSON(http.StatusOK, gin.H{
		"message":  "Order canceled, seats released",
		"order_id": orderID,
	})
}

// ListPendingDiscounts handles GET /api/v1/admin/discounts/pending
func (h *AdminHandler) ListPendingDiscounts(c *gin.Context) {
	requests, err := h.discountRepo.ListPending()
	if err != nil {
		h.logger.WithError(err).Error("Failed to list pending discount requests")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to load discount requests",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"requests": requests,
		"count":    len(requests),
	})
}

// DecideDiscount handles POST /api/v1/admin/discounts/:id/decide
func (h *AdminHandler) DecideDiscount(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)
	requestID := c.Param("id")

	var req DecideDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
		return
	}

	if err := h.discountRepo.Decide(requestID, req.Approved, userCtx.UserID); err != nil {
		if errors.Is(err, database.ErrDiscountNotPending) {
			c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "not_pending",
				Message: "The discount request has already been reviewed",
				Code:    "DISCOUNT_NOT_PENDING",
			})
			return
		}
		h.logger.WithError(err).WithField("request_id", requestID).Error("Failed to decide discount request")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to decide discount request",
		})
		return
	}

	decision := "rejected"
	if req.Approved {
		decision = "approved"
	}

	h.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"admin_id":   userCtx.UserID,
		"decision":   decision,
	}).Info("Discount request reviewed")

	c.JSON(http.StatusOK, gin.H{
		"message":    "Discount request " + decision,
		"request_id": requestID,
	})
}

func (h *AdminHandler) respondTransitionError(c *gin.Context, orderID string, err error) {
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
