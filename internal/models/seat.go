package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SeatStatus represents the status of a departure seat
type SeatStatus string

const (
	SeatStatusFree SeatStatus = "free"
	SeatStatusHeld SeatStatus = "held"
	SeatStatusSold SeatStatus = "sold"
)

// Seat grid dimensions for every departure. Created once at publication
// time, never resized afterwards.
const (
	CoachesPerDeparture = 10
	SeatsPerCoach       = 20
)

// Seat represents one physical seat on a scheduled departure.
// (departure_id, coach_no, seat_no) is unique.
type Seat struct {
	ID          string          `json:"id" db:"id"`
	DepartureID string          `json:"departure_id" db:"departure_id"`
	CoachNo     int             `json:"coach_no" db:"coach_no"`
	SeatNo      int             `json:"seat_no" db:"seat_no"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Status      SeatStatus      `json:"status" db:"status"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// SeatSummary provides a quick availability overview for a departure
type SeatSummary struct {
	DepartureID string `json:"departure_id" db:"departure_id"`
	TotalSeats  int    `json:"total_seats" db:"total_seats"`
	FreeSeats   int    `json:"free_seats" db:"free_seats"`
	HeldSeats   int    `json:"held_seats" db:"held_seats"`
	SoldSeats   int    `json:"sold_seats" db:"sold_seats"`
}
