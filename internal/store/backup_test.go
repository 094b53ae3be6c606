package store

import (
	"testing"
	"time"

	"github.com/dukerupert/chorestar/internal/database"
	"github.com/dukerupert/chorestar/internal/model"
)

func setupBackupTestDB(t *testing.T) *BackupStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewBackupStore(db)
}

func TestBackupCreate(t *testing.T) {
	bs := setupBackupTestDB(t)

	b, err := bs.Create("chorestar-2026.db.enc", "backups/2026-02-04.db.enc")
	if err != nil {
		t.Fatalf("create backup: %v", err)
	}
	if b.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if b.Status != model.BackupStatusPending {
		t.Errorf("status = %q, want %q", b.Status, model.BackupStatusPending)
	}

	got, err := bs.GetByID(b.ID)
	if err != nil {
		t.Fatalf("get backup: %v", err)
	}
	if got.ObjectKey != "backups/2026-02-04.db.enc" {
		t.Errorf("object_key = %q, want %q", got.ObjectKey, "backups/2026-02-04.db.enc")
	}
}

func TestBackupStatusTransitions(t *testing.T) {
	bs := setupBackupTestDB(t)
	b, _ := bs.Create("test.db.enc", "test.db.enc")

	if err := bs.UpdateStatus(b.ID, model.BackupStatusFailed, "upload failed"); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, _ := bs.GetByID(b.ID)
	if got.Status != model.BackupStatusFailed {
		t.Errorf("status = %q, want %q", got.Status, model.BackupStatusFailed)
	}
	if got.ErrorMessage != "upload failed" {
		t.Errorf("error_message = %q, want %q", got.ErrorMessage, "upload failed")
	}

	if err := bs.UpdateCompleted(b.ID, 4096); err != nil {
		t.Fatalf("update completed: %v", err)
	}
	latest, err := bs.LatestCompleted()
	if err != nil {
		t.Fatalf("latest completed: %v", err)
	}
	if latest == nil || latest.ID != b.ID {
		t.Fatalf("latest = %+v, want backup %d", latest, b.ID)
	}
	if latest.SizeBytes != 4096 {
		t.Errorf("size_bytes = %d, want 4096", latest.SizeBytes)
	}
	if latest.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}
}

func TestBackupDeleteOlderThan(t *testing.T) {
	bs := setupBackupTestDB(t)
	bs.Create("a.db.enc", "a")
	bs.Create("b.db.enc", "b")

	keys, err := bs.DeleteOlderThan(time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("delete older than: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("keys = %v, want 2 keys", keys)
	}

	backups, _ := bs.List(10)
	if len(backups) != 0 {
		t.Errorf("len = %d, want 0", len(backups))
	}
}
