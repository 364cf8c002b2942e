package store

import (
	"context"
	"testing"
	"time"

	"github.com/dukerupert/clubledger/internal/model"
)

func TestBackupCreate(t *testing.T) {
	db := setupTestDB(t)
	bs := NewBackupStore(db)
	uid := createTestUser(t, db)

	b, err := bs.Create(context.Background(), &uid, "clubledger-20260101.db.enc", "backups/20260101.db.enc")
	if err != nil {
		t.Fatalf("create backup: %v", err)
	}
	if b.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if b.RequestedBy == nil || *b.RequestedBy != uid {
		t.Errorf("requested_by = %v, want %d", b.RequestedBy, uid)
	}
	if b.Status != model.BackupStatusPending {
		t.Errorf("status = %q, want %q", b.Status, model.BackupStatusPending)
	}
	if b.StartedAt == nil {
		t.Error("expected started_at to be set")
	}
}

func TestBackupUpdateStatus(t *testing.T) {
	bs := NewBackupStore(setupTestDB(t))
	ctx := context.Background()

	b, _ := bs.Create(ctx, nil, "test.db.enc", "backups/test.db.enc")

	if err := bs.UpdateStatus(ctx, b.ID, model.BackupStatusFailed, "upload failed"); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, _ := bs.GetByID(ctx, b.ID)
	if got.Status != model.BackupStatusFailed {
		t.Errorf("status = %q, want %q", got.Status, model.BackupStatusFailed)
	}
	if got.ErrorMessage != "upload failed" {
		t.Errorf("error_message = %q, want %q", got.ErrorMessage, "upload failed")
	}
	if got.RequestedBy != nil {
		t.Errorf("requested_by = %v, want nil", *got.RequestedBy)
	}
}

func TestBackupUpdateCompleted(t *testing.T) {
	bs := NewBackupStore(setupTestDB(t))
	ctx := context.Background()

	b, _ := bs.Create(ctx, nil, "test.db.enc", "backups/test.db.enc")
	if err := bs.UpdateCompleted(ctx, b.ID, 1024*1024); err != nil {
		t.Fatalf("update completed: %v", err)
	}

	got, _ := bs.GetByID(ctx, b.ID)
	if got.Status != model.BackupStatusCompleted {
		t.Errorf("status = %q, want %q", got.Status, model.BackupStatusCompleted)
	}
	if got.SizeBytes != 1024*1024 {
		t.Errorf("size_bytes = %d, want %d", got.SizeBytes, 1024*1024)
	}
	if got.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}

	latest, err := bs.LatestCompleted(ctx)
	if err != nil {
		t.Fatalf("latest completed: %v", err)
	}
	if latest == nil || latest.ID != b.ID {
		t.Errorf("latest = %+v, want id %d", latest, b.ID)
	}
}

func TestBackupListOrderAndLimit(t *testing.T) {
	bs := NewBackupStore(setupTestDB(t))
	ctx := context.Background()

	bs.Create(ctx, nil, "first.db.enc", "backups/first.db.enc")
	time.Sleep(10 * time.Millisecond)
	bs.Create(ctx, nil, "second.db.enc", "backups/second.db.enc")
	time.Sleep(10 * time.Millisecond)
	bs.Create(ctx, nil, "third.db.enc", "backups/third.db.enc")

	all, err := bs.List(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	if all[0].Filename != "third.db.enc" {
		t.Errorf("first entry = %q, want %q", all[0].Filename, "third.db.enc")
	}

	limited, _ := bs.List(ctx, 2)
	if len(limited) != 2 {
		t.Errorf("len = %d, want 2", len(limited))
	}
}

func TestBackupDeleteOlderThan(t *testing.T) {
	bs := NewBackupStore(setupTestDB(t))
	ctx := context.Background()

	bs.Create(ctx, nil, "old.db.enc", "backups/old.db.enc")
	time.Sleep(50 * time.Millisecond)
	cutoff := time.Now().UTC()
	time.Sleep(50 * time.Millisecond)
	bs.Create(ctx, nil, "new.db.enc", "backups/new.db.enc")

	keys, err := bs.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		t.Fatalf("delete older than: %v", err)
	}
	if len(keys) != 1 || keys[0] != "backups/old.db.enc" {
		t.Fatalf("deleted keys = %v, want [backups/old.db.enc]", keys)
	}

	remaining, _ := bs.List(ctx, 10)
	if len(remaining) != 1 || remaining[0].Filename != "new.db.enc" {
		t.Errorf("remaining = %+v, want only new.db.enc", remaining)
	}
}
