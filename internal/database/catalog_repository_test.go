package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalogRepoWithMock(t *testing.T) (*CatalogRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewCatalogRepository(sqlxDB)

	return repo, mock, func() { db.Close() }
}

func TestListCities(t *testing.T) {
	repo, mock, cleanup := newCatalogRepoWithMock(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT id, name FROM cities`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(1, "Astana").
			AddRow(2, "Almaty"))

	cities, err := repo.ListCities()
	require.NoError(t, err)
	require.Len(t, cities, 2)
	assert.Equal(t, "Astana", cities[0].Name)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDepartureByID(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		repo, mock, cleanup := newCatalogRepoWithMock(t)
		defer cleanup()

		start := time.Now().Add(24 * time.Hour)
		price := decimal.NewFromInt(4500)

		mock.ExpectQuery(`SELECT (.+) FROM departures`).
			WithArgs("dep-1").
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "route_id", "category", "cities_path", "path_city_ids",
				"distance_km", "total_price", "duration_mins", "start_datetime", "end_datetime",
			}).AddRow(
				"dep-1", "route-1", "express", "Astana -> Karaganda -> Almaty", "1->7->2",
				1200, price, 780, start, start.Add(13*time.Hour),
			))

		dep, err := repo.GetDepartureByID("dep-1")
		require.NoError(t, err)
		require.NotNil(t, dep)
		assert.Equal(t, "1->7->2", dep.PathCityIDs)
		assert.True(t, price.Equal(dep.TotalPrice))

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown Id Returns Nil", func(t *testing.T) {
		repo, mock, cleanup := newCatalogRepoWithMock(t)
		defer cleanup()

		mock.ExpectQuery(`SELECT (.+) FROM departures`).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "route_id", "category", "cities_path", "path_city_ids",
				"distance_km", "total_price", "duration_mins", "start_datetime", "end_datetime",
			}))

		dep, err := repo.GetDepartureByID("missing")
		require.NoError(t, err)
		assert.Nil(t, dep)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSearchDepartures(t *testing.T) {
	repo, mock, cleanup := newCatalogRepoWithMock(t)
	defer cleanup()

	date := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	start := date.Add(8 * time.Hour)

	mock.ExpectQuery(`SELECT (.+) FROM departures`).
		WithArgs("express", date, date.AddDate(0, 0, 1), 1, 2).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "route_id", "category", "cities_path", "path_city_ids",
			"distance_km", "total_price", "duration_mins", "start_datetime", "end_datetime",
		}).
			AddRow("dep-cheap", "route-1", "express", "Astana -> Almaty", "1->2",
				1000, decimal.NewFromInt(3500), 700, start, start.Add(12*time.Hour)).
			AddRow("dep-slow", "route-2", "express", "Astana -> Karaganda -> Almaty", "1->7->2",
				1200, decimal.NewFromInt(4200), 800, start, start.Add(14*time.Hour)))

	departures, err := repo.SearchDepartures(1, 2, date, "express")
	require.NoError(t, err)
	require.Len(t, departures, 2)
	// Cheapest first
	assert.Equal(t, "dep-cheap", departures[0].ID)
	assert.True(t, departures[0].TotalPrice.LessThan(departures[1].TotalPrice))

	assert.NoError(t, mock.ExpectationsWereMet())
}
