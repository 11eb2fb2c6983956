package database

import (
	"database/sql"
	"time"

	"github.com/intercitygo/route-booking-backend/internal/models"
	"github.com/jmoiron/sqlx"
)

// CatalogRepository is the read-only lookup of cities and scheduled
// departures. The booking core never writes through it.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository creates a new CatalogRepository
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListCities returns all cities ordered by name
func (r *CatalogRepository) ListCities() ([]models.City, error) {
	var cities []models.City
	err := r.db.Select(&cities, `SELECT id, name FROM cities ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return cities, nil
}

// GetDepartureByID returns one scheduled departure, or nil when unknown
func (r *CatalogRepository) GetDepartureByID(id string) (*models.ScheduledDeparture, error) {
	var dep models.ScheduledDeparture
	err := r.db.Get(&dep, `
		SELECT id, route_id, category, cities_path, path_city_ids,
			   distance_km, total_price, duration_mins, start_datetime, end_datetime
		FROM departures
		WHERE id = $1
	`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &dep, nil
}

// SearchDepartures finds departures whose ordered city path visits
// fromCityID strictly before toCityID, on the given date and category,
// cheapest first. The path is stored as '->'-joined city ids; wrapping
// both the path and the probe in '->' delimiters keeps id 1 from matching
// id 12.
func (r *CatalogRepository) SearchDepartures(fromCityID, toCityID int, date time.Time, category string) ([]models.ScheduledDeparture, error) {
	query := `
		SELECT id, route_id, category, cities_path, path_city_ids,
			   distance_km, total_price, duration_mins, start_datetime, end_datetime
		FROM departures
		WHERE category = $1
		  AND start_datetime >= $2
		  AND start_datetime < $3
		  AND POSITION('->' || $4::text || '->' IN '->' || path_city_ids || '->') > 0
		  AND POSITION('->' || $5::text || '->' IN '->' || path_city_ids || '->') >
			  POSITION('->' || $4::text || '->' IN '->' || path_city_ids || '->')
		ORDER BY total_price ASC
	`

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var departures []models.ScheduledDeparture
	err := r.db.Select(&departures, query, category, dayStart, dayEnd, fromCityID, toCityID)
	if err != nil {
		return nil, err
	}

	return departures, nil
}
