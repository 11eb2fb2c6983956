package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// City is a catalog entry, read-only to the booking core
type City struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// ScheduledDeparture identifies one run of a route on a specific date.
// Immutable once published; the booking core only reads it.
type ScheduledDeparture struct {
	ID            string          `json:"id" db:"id"`
	RouteID       string          `json:"route_id" db:"route_id"`
	Category      string          `json:"category" db:"category"`
	CitiesPath    string          `json:"cities_path" db:"cities_path"`         // display names, "A -> B -> C"
	PathCityIDs   string          `json:"path_city_ids" db:"path_city_ids"`     // ordered ids, "1->7->12"
	DistanceKM    int             `json:"distance_km" db:"distance_km"`
	TotalPrice    decimal.Decimal `json:"total_price" db:"total_price"`
	DurationMins  int             `json:"duration_mins" db:"duration_mins"`
	StartDatetime time.Time       `json:"start_datetime" db:"start_datetime"`
	EndDatetime   time.Time       `json:"end_datetime" db:"end_datetime"`
}

// SearchDeparturesRequest holds route search parameters
type SearchDeparturesRequest struct {
	FromCityID int    `json:"from_city_id" binding:"required"`
	ToCityID   int    `json:"to_city_id" binding:"required"`
	Date       string `json:"date" binding:"required"` // YYYY-MM-DD
	Category   string `json:"category" binding:"required"`
}

// SearchDeparturesResponse wraps search results
type SearchDeparturesResponse struct {
	Departures []ScheduledDeparture `json:"departures"`
	Count      int                  `json:"count"`
}
