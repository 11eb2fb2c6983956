package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/intercitygo/route-booking-backend/internal/models"
	"github.com/intercitygo/route-booking-backend/internal/services"
)

// SearchHandler serves the city catalog and departure search
type SearchHandler struct {
	searchService *services.SearchService
	logger        *logrus.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(searchService *services.SearchService, logger *logrus.Logger) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
		logger:        logger,
	}
}

// ListCities handles GET /api/v1/cities
func (h *SearchHandler) ListCities(c *gin.Context) {
	cities, err := h.searchService.ListCities()
	if err != nil {
		h.logger.WithError(err).Error("Failed to list cities")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to load cities",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cities": cities,
		"count":  len(cities),
	})
}

// SearchDepartures handles POST /api/v1/departures/search
// Results are ordered cheapest first.
func (h *SearchHandler) SearchDepartures(c *gin.Context) {
	var req models.SearchDeparturesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
		return
	}

	resp, err := h.searchService.SearchDepartures(&req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidSearch) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_search",
				Message: "Origin and destination must differ and the date must be YYYY-MM-DD",
				Code:    "INVALID_SEARCH",
			})
			return
		}
		h.logger.WithError(err).Error("Departure search failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to search departures",
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}
