package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the lifecycle status of an order
type OrderStatus string

const (
	OrderStatusNew      OrderStatus = "new"
	OrderStatusPaid     OrderStatus = "paid"
	OrderStatusCanceled OrderStatus = "canceled"
)

// Order represents one purchase attempt by one user for one departure.
// PAID and CANCELED are terminal.
type Order struct {
	ID          string          `json:"id" db:"id"`
	UserID      uuid.UUID       `json:"user_id" db:"user_id"`
	DepartureID string          `json:"departure_id" db:"departure_id"`
	Total       decimal.Decimal `json:"total" db:"total"`
	Status      OrderStatus     `json:"status" db:"status"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// OrderItem records one reserved seat and the price charged for it at hold
// time. The price is captured when the hold succeeds and never changes,
// even if the departure's listed price changes later.
type OrderItem struct {
	ID      string          `json:"id" db:"id"`
	OrderID string          `json:"order_id" db:"order_id"`
	SeatID  string          `json:"seat_id" db:"seat_id"`
	Price   decimal.Decimal `json:"price" db:"price"`
}

// OrderWithItems is the full order view returned to callers
type OrderWithItems struct {
	Order
	Items []OrderItem `json:"items"`
}

// CreateBookingRequest is the user-facing booking request
type CreateBookingRequest struct {
	DepartureID string   `json:"departure_id" binding:"required"`
	SeatIDs     []string `json:"seat_ids" binding:"required,min=1"`
}

// BookingResponse is returned after a successful hold + order creation
type BookingResponse struct {
	OrderID string          `json:"order_id"`
	Total   decimal.Decimal `json:"total"`
	Status  OrderStatus     `json:"status"`
	SeatIDs []string        `json:"seat_ids"`
}
