package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB opens a throwaway SQLite database for repository tests.
func setupTestDB(t *testing.T) (*DB, func()) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "nabah_test.db")
	db, err := NewDB(Config{Type: "sqlite", SQLitePath: path})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	return db, func() { db.Close() }
}

// setupPostgresTestDB starts a disposable postgres container. Used by the
// tests that exercise the postgres query paths; requires Docker.
func setupPostgresTestDB(t *testing.T) (*DB, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"pgvector/pgvector:pg16",
		postgres.WithDatabase("nabah_test"),
		postgres.WithUsername("nabah_test"),
		postgres.WithPassword("nabah_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	host, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	db, err := NewDB(Config{
		Type:     "postgres",
		Host:     host,
		Port:     port.Int(),
		User:     "nabah_test",
		Password: "nabah_test_password",
		Name:     "nabah_test",
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := db.RunMigrations(findMigrationsDir(t)); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		db.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return db, cleanup
}

func findMigrationsDir(t *testing.T) string {
	t.Helper()
	// Tests run from the package directory.
	return filepath.Join("..", "..", "migrations")
}
