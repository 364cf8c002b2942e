package model

import "time"

type BackupStatus string

const (
	BackupStatusPending   BackupStatus = "pending"
	BackupStatusUploading BackupStatus = "uploading"
	BackupStatusCompleted BackupStatus = "completed"
	BackupStatusFailed    BackupStatus = "failed"
)

// Backup is the ledger's record of one encrypted snapshot in object storage.
// RequestedBy is nil for scheduled runs.
type Backup struct {
	ID           int64        `json:"id"`
	RequestedBy  *int64       `json:"requested_by"`
	Filename     string       `json:"filename"`
	S3Key        string       `json:"s3_key"`
	SizeBytes    int64        `json:"size_bytes"`
	Status       BackupStatus `json:"status"`
	ErrorMessage string       `json:"error_message,omitempty"`
	StartedAt    *time.Time   `json:"started_at,omitempty"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Restorable reports whether the object finished uploading and can be
// fetched back.
func (b *Backup) Restorable() bool {
	return b.Status == BackupStatusCompleted && b.S3Key != ""
}

// Duration is how long the upload took, or 0 while it is unfinished.
func (b *Backup) Duration() time.Duration {
	if b.StartedAt == nil || b.CompletedAt == nil {
		return 0
	}
	return b.CompletedAt.Sub(*b.StartedAt)
}
