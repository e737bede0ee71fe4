package storage

import (
	"path/filepath"
	"testing"
)

func TestMigrationManager_Up(t *testing.T) {
	config := DefaultConfig(filepath.Join(t.TempDir(), "migration-test.db"))
	config.AutoMigrate = false

	db, err := Open(config)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	mgr, err := NewMigrationManager(db)
	if err != nil {
		t.Fatalf("failed to create migration manager: %v", err)
	}
	if err := mgr.Up(); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	version, dirty, err := mgr.Version()
	if err != nil {
		t.Fatalf("failed to get migration version: %v", err)
	}
	if dirty {
		t.Error("database is in dirty state after migrations")
	}
	if version != 2 {
		t.Errorf("expected migration version 2, got %d", version)
	}

	// Running again is a no-op.
	if err := db.Migrate(); err != nil {
		t.Errorf("second migrate failed: %v", err)
	}
}

func TestMigrationManager_Down(t *testing.T) {
	db, err := Open(DefaultConfig(filepath.Join(t.TempDir(), "down.db")))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	mgr, err := NewMigrationManager(db)
	if err != nil {
		t.Fatalf("failed to create migration manager: %v", err)
	}
	if err := mgr.Down(); err != nil {
		t.Fatalf("failed to roll back: %v", err)
	}

	var tables int
	if err := db.Conn().QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'documents'").Scan(&tables); err != nil {
		t.Fatalf("failed to inspect schema: %v", err)
	}
	if tables != 0 {
		t.Error("documents table still exists after rollback")
	}
}
