package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/blackmagic-app/blackmagic/internal/ledger"
)

func TestBackup(t *testing.T) {
	ctx := context.Background()
	db, err := Open(DefaultConfig(filepath.Join(t.TempDir(), "app.db")))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	svc := NewService(db)
	if err := svc.SaveBalanceDocument(ctx, ledger.Document{Amount: decimal.RequireFromString("12.34")}); err != nil {
		t.Fatalf("failed to save balance: %v", err)
	}

	backupPath, err := db.Backup(ctx, "")
	if err != nil {
		t.Fatalf("failed to create backup: %v", err)
	}
	if filepath.Dir(backupPath) != db.BackupDir() {
		t.Errorf("backup written to %s, want dir %s", backupPath, db.BackupDir())
	}

	copyConfig := DefaultConfig(backupPath)
	copyConfig.AutoMigrate = false
	restored, err := Open(copyConfig)
	if err != nil {
		t.Fatalf("failed to open backup: %v", err)
	}
	defer restored.Close()

	doc, err := NewService(restored).LoadBalanceDocument(ctx)
	if err != nil {
		t.Fatalf("failed to read balance from backup: %v", err)
	}
	if !doc.Amount.Equal(decimal.RequireFromString("12.34")) {
		t.Errorf("backup balance = %s, want 12.34", doc.Amount)
	}
}

func TestBackupInMemory(t *testing.T) {
	db, err := Open(DefaultConfig(":memory:"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if _, err := db.Backup(context.Background(), t.TempDir()); err == nil {
		t.Error("expected error backing up an in-memory database")
	}
}

func TestListBackups(t *testing.T) {
	ctx := context.Background()
	db, err := Open(DefaultConfig(filepath.Join(t.TempDir(), "app.db")))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	dir := t.TempDir()
	empty, err := db.ListBackups(filepath.Join(dir, "missing"))
	if err != nil {
		t.Fatalf("listing a missing directory failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no backups, got %d", len(empty))
	}

	first, err := db.Backup(ctx, dir)
	if err != nil {
		t.Fatalf("first backup failed: %v", err)
	}
	second, err := db.Backup(ctx, dir)
	if err != nil {
		t.Fatalf("second backup failed: %v", err)
	}
	if first == second {
		t.Fatalf("backups share a path: %s", first)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	backups, err := db.ListBackups(dir)
	if err != nil {
		t.Fatalf("failed to list backups: %v", err)
	}
	if len(backups) != 2 {
		t.Fatalf("expected 2 backups, got %d", len(backups))
	}
	for _, b := range backups {
		if b.Size == 0 {
			t.Errorf("backup %s is empty", b.Name)
		}
		if len(b.Checksum) != 64 {
			t.Errorf("backup %s has checksum %q", b.Name, b.Checksum)
		}
	}
}
