package testhelpers

import (
	"context"
	"os"
	"testing"
	"time"

	"civreg/internal/models"
	"civreg/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TestDB holds the database connection for testing
type TestDB struct {
	Pool    *pgxpool.Pool
	Cleanup func() error
}

// SetupTestDB connects to TEST_DATABASE_URL, applies the schema and empties
// every table. The test is skipped when no database is configured.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := database.NewPool(ctx, connString)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := database.Migrate(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE users, birth_declarations, death_declarations, audit_logs`); err != nil {
		pool.Close()
		t.Fatalf("Failed to truncate test database: %v", err)
	}

	return &TestDB{
		Pool: pool,
		Cleanup: func() error {
			pool.Close()
			return nil
		},
	}
}

// SetupTestUser inserts an account with the given role and display name.
func SetupTestUser(t *testing.T, db *TestDB, role models.Role, name string) *models.User {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	user := &models.User{
		ID:           uuid.New(),
		DisplayName:  name,
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuuJ9q3vJ0bqk3Sx7o6p7m6W3b9lH2a1e2",
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err := db.Pool.Exec(context.Background(),
		`INSERT INTO users (id, display_name, email, password_hash, role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.DisplayName, user.Email, user.PasswordHash, user.Role, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func stringPtr(s string) *string {
	return &s
}
