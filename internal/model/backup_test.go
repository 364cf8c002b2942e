package model

import (
	"testing"
	"time"
)

func TestBackupRestorable(t *testing.T) {
	tests := []struct {
		status BackupStatus
		key    string
		want   bool
	}{
		{BackupStatusCompleted, "backups/a.db.enc", true},
		{BackupStatusCompleted, "", false},
		{BackupStatusUploading, "backups/a.db.enc", false},
		{BackupStatusFailed, "backups/a.db.enc", false},
	}
	for _, tt := range tests {
		b := &Backup{Status: tt.status, S3Key: tt.key}
		if got := b.Restorable(); got != tt.want {
			t.Errorf("Restorable(%s, %q) = %v, want %v", tt.status, tt.key, got, tt.want)
		}
	}
}

func TestBackupDuration(t *testing.T) {
	start := time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)
	end := start.Add(1500 * time.Millisecond)

	b := &Backup{StartedAt: &start}
	if d := b.Duration(); d != 0 {
		t.Errorf("unfinished duration = %v, want 0", d)
	}
	b.CompletedAt = &end
	if d := b.Duration(); d != 1500*time.Millisecond {
		t.Errorf("duration = %v, want 1.5s", d)
	}
}
