// Package sqlitetest provides migrated in-memory databases and fixtures for package tests.
package sqlitetest

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/safeboy/safeboy/internal/infra/sqlite"
)

// Open returns a migrated in-memory database closed on test cleanup.
func Open(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sqlite.NewDB(sqlite.MemoryPath)
	if err != nil {
		t.Fatalf("sqlite.NewDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := sqlite.MigrateUp(context.Background(), db); err != nil {
		t.Fatalf("sqlite.MigrateUp: %v", err)
	}
	return db
}

// CreateTenant inserts a tenant row and returns its id.
func CreateTenant(t *testing.T, db *sql.DB) string {
	t.Helper()

	id := uuid.Must(uuid.NewV7()).String()
	_, err := db.Exec(`
		INSERT INTO tenant (id, email, password_hash, display_name, created_at)
		VALUES (?, ?, 'x', 'Test Tenant', ?)
	`, id, id+"@example.com", sqlite.FormatTime(time.Now()))
	if err != nil {
		t.Fatalf("insert tenant fixture: %v", err)
	}
	return id
}
