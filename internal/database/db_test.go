package database

import (
	"path/filepath"
	"testing"
)

// setupTestDB creates a migrated database backed by a temp file.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := New(path)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func TestNew(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.db")

	db, err := New(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer db.Close()

	if db.conn == nil {
		t.Error("expected database connection")
	}
	if err := db.conn.Ping(); err != nil {
		t.Errorf("ping failed: %v", err)
	}
}

func TestMigrate(t *testing.T) {
	db := setupTestDB(t)

	var version int
	err := db.conn.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version)
	if err != nil {
		t.Fatalf("failed to read schema version: %v", err)
	}
	if version != len(migrations) {
		t.Errorf("schema version = %d, want %d", version, len(migrations))
	}

	// Running again is a no-op
	if err := db.Migrate(); err != nil {
		t.Errorf("re-running migrations failed: %v", err)
	}

	for _, table := range []string{"reports", "report_entities", "usage_searches"} {
		var name string
		err := db.conn.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}
