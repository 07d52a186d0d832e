// Package testutil opens a migrated database for adapter tests.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	postgres "github.com/Overland-East-Bay/triplink-api/internal/adapters/postgres"
)

// OpenMigratedDB connects to TEST_DATABASE_URL and applies migrations. The test is skipped
// when the variable is unset. Tests share the database and must use unique data.
func OpenMigratedDB(t *testing.T) *postgres.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := postgres.Open(ctx, postgres.Config{DSN: dsn, MaxConns: 4})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := postgres.MigrateUp(ctx, db.SQL); err != nil {
		db.Close()
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}
