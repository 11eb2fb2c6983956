package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/intercitygo/route-booking-backend/internal/database"
	"github.com/intercitygo/route-booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// ErrInvalidSearch indicates unusable search parameters
var ErrInvalidSearch = errors.New("invalid search parameters")

// SearchService answers city and departure lookups for the search screen
type SearchService struct {
	catalogRepo *database.CatalogRepository
	logger      *logrus.Logger
}

// NewSearchService creates a new search service
func NewSearchService(catalogRepo *database.CatalogRepository, logger *logrus.Logger) *SearchService {
	return &SearchService{
		catalogRepo: catalogRepo,
		logger:      logger,
	}
}

// ListCities returns all cities for the search form
func (s *SearchService) ListCities() ([]models.City, error) {
	return s.catalogRepo.ListCities()
}

// SearchDepartures finds departures between two cities on a date, cheapest
// first.
func (s *SearchService) SearchDepartures(req *models.SearchDeparturesRequest) (*models.SearchDeparturesResponse, error) {
	if req.FromCityID == req.ToCityID {
		return nil, ErrInvalidSearch
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, ErrInvalidSearch
	}

	departures, err := s.catalogRepo.SearchDepartures(req.FromCityID, req.ToCityID, date, req.Category)
	if err != nil {
		return nil, fmt.Errorf("failed to search departures: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"from_city": req.FromCityID,
		"to_city":   req.ToCityID,
		"date":      req.Date,
		"category":  req.Category,
		"results":   len(departures),
	}).Info("Departure search completed")

	return &models.SearchDeparturesResponse{
		Departures: departures,
		Count:      len(departures),
	}, nil
}
