package models

import (
	"time"

	"github.com/google/uuid"
)

// DiscountRequestStatus represents the review status of a discount request
type DiscountRequestStatus string

const (
	DiscountStatusPending  DiscountRequestStatus = "pending"
	DiscountStatusApproved DiscountRequestStatus = "approved"
	DiscountStatusRejected DiscountRequestStatus = "rejected"
)

// DiscountRequest is a user's application for a fare discount, reviewed by
// an administrator alongside pending payments.
type DiscountRequest struct {
	ID         string                `json:"id" db:"id"`
	UserID     uuid.UUID             `json:"user_id" db:"user_id"`
	Category   string                `json:"category" db:"category"` // student, senior, veteran
	Reason     string                `json:"reason" db:"reason"`
	Status     DiscountRequestStatus `json:"status" db:"status"`
	ReviewedBy *uuid.UUID            `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewedAt *time.Time            `json:"reviewed_at,omitempty" db:"reviewed_at"`
	CreatedAt  time.Time             `json:"created_at" db:"created_at"`
}

// CreateDiscountRequest is the user payload for filing a discount request
type CreateDiscountRequest struct {
	Category string `json:"category" binding:"required"`
	Reason   string `json:"reason" binding:"required"`
}
