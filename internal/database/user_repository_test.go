package database

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUnverified(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockDB := &mockDatabase{db: db}
	repo := NewUserRepository(mockDB)

	t.Run("Success", func(t *testing.T) {
		expiresAt := time.Now().Add(5 * time.Minute)

		mock.ExpectExec(`INSERT INTO users`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		user, err := repo.CreateUnverified("traveler01", "traveler@example.com", "$2a$12$hash", "123456", expiresAt)
		require.NoError(t, err)
		assert.NotNil(t, user)
		assert.Equal(t, "traveler01", user.Login)
		assert.Equal(t, "traveler@example.com", user.Email)
		assert.Equal(t, []string{"passenger"}, user.Roles)
		assert.False(t, user.Verified())
		require.NotNil(t, user.VerificationCode)
		assert.Equal(t, "123456", *user.VerificationCode)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Duplicate Login", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO users`).
			WillReturnError(fmt.Errorf("duplicate key value violates unique constraint"))

		user, err := repo.CreateUnverified("traveler01", "other@example.com", "$2a$12$hash", "123456", time.Now())
		assert.Error(t, err)
		assert.Nil(t, user)
		assert.Contains(t, err.Error(), "failed to create user")

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetByLogin(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockDB := &mockDatabase{db: db}
	repo := NewUserRepository(mockDB)

	t.Run("Verified User", func(t *testing.T) {
		userID := uuid.New()
		now := time.Now()
		verifiedAt := now.Add(-time.Hour)

		mock.ExpectQuery(`SELECT (.+) FROM users WHERE login`).
			WithArgs("traveler01").
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "login", "email", "password_hash", "roles", "verification_code",
				"code_expires_at", "verification_attempts", "verified_at", "created_at", "updated_at",
			}).AddRow(
				userID, "traveler01", "traveler@example.com", "$2a$12$hash", []byte(`{"passenger"}`), nil,
				nil, 0, verifiedAt, now, now,
			))

		user, err := repo.GetByLogin("traveler01")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, userID, user.ID)
		assert.Equal(t, "traveler01", user.Login)
		assert.Equal(t, []string{"passenger"}, user.Roles)
		assert.True(t, user.Verified())

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Pending Verification", func(t *testing.T) {
		userID := uuid.New()
		now := time.Now()
		expiresAt := now.Add(5 * time.Minute)

		mock.ExpectQuery(`SELECT (.+) FROM users WHERE login`).
			WithArgs("newuser").
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "login", "email", "password_hash", "roles", "verification_code",
				"code_expires_at", "verification_attempts", "verified_at", "created_at", "updated_at",
			}).AddRow(
				userID, "newuser", "new@example.com", "$2a$12$hash", []byte(`{"passenger"}`), "654321",
				expiresAt, 2, nil, now, now,
			))

		user, err := repo.GetByLogin("newuser")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.False(t, user.Verified())
		require.NotNil(t, user.VerificationCode)
		assert.Equal(t, "654321", *user.VerificationCode)
		assert.Equal(t, 2, user.VerificationAttempts)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM users WHERE login`).
			WithArgs("unknown").
			WillReturnError(sql.ErrNoRows)

		user, err := repo.GetByLogin("unknown")
		require.NoError(t, err)
		assert.Nil(t, user)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLoginTaken(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockDB := &mockDatabase{db: db}
	repo := NewUserRepository(mockDB)

	t.Run("Taken", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE login`).
			WithArgs("traveler01").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		taken, err := repo.LoginTaken("traveler01")
		require.NoError(t, err)
		assert.True(t, taken)
	})

	t.Run("Available", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE login`).
			WithArgs("fresh").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		taken, err := repo.LoginTaken("fresh")
		require.NoError(t, err)
		assert.False(t, taken)
	})
}

func TestMarkVerified(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockDB := &mockDatabase{db: db}
	repo := NewUserRepository(mockDB)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(`UPDATE users`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.MarkVerified("traveler01")
		assert.NoError(t, err)
	})

	t.Run("Already Verified", func(t *testing.T) {
		mock.ExpectExec(`UPDATE users`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.MarkVerified("traveler01")
		assert.Error(t, err)
	})
}

func TestUpdateVerificationCode(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockDB := &mockDatabase{db: db}
	repo := NewUserRepository(mockDB)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(`UPDATE users`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateVerificationCode("traveler01", "111222", time.Now().Add(5*time.Minute))
		assert.NoError(t, err)
	})

	t.Run("No Pending User", func(t *testing.T) {
		mock.ExpectExec(`UPDATE users`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateVerificationCode("ghost", "111222", time.Now().Add(5*time.Minute))
		assert.Error(t, err)
	})
}

func TestRecordLogin(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockDB := &mockDatabase{db: db}
	repo := NewUserRepository(mockDB)

	userID := uuid.New()

	mock.ExpectExec(`INSERT INTO user_sessions`).
		WithArgs(userID, "203.0.113.10", "Chrome", "Linux x86_64", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.RecordLogin(userID, "203.0.113.10", "Chrome", "Linux x86_64")
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// mockDatabase adapts a sqlmock-backed *sql.DB to the DB interface
type mockDatabase struct {
	db *sql.DB
}

func (m *mockDatabase) Get(dest interface{}, query string, args ...interface{}) error {
	return fmt.Errorf("Get not implemented in mock")
}

func (m *mockDatabase) Select(dest interface{}, query string, args ...interface{}) error {
	return fmt.Errorf("Select not implemented in mock")
}

func (m *mockDatabase) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return m.db.Query(query, args...)
}

func (m *mockDatabase) QueryRow(query string, args ...interface{}) *sql.Row {
	return m.db.QueryRow(query, args...)
}

func (m *mockDatabase) Exec(query string, args ...interface{}) (sql.Result, error) {
	return m.db.Exec(query, args...)
}

func (m *mockDatabase) Close() error {
	return m.db.Close()
}

func (m *mockDatabase) Ping() error {
	return m.db.Ping()
}
