// Package job provides the export job record store: the durable state
// machine record a browser polls while an export runs.
package job

import (
	"errors"
	"time"
)

// Repository errors.
var (
	ErrJobNotFound = errors.New("export job not found")
)

// Status is the lifecycle state of an export job.
type Status string

// Job statuses. A job is created PENDING by the request handler and moved
// through PROCESSING to COMPLETED or FAILED exclusively by the orchestrator.
// COMPLETED and FAILED are terminal.
const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// Terminal reports whether the status is a terminal state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Type distinguishes a full-dataroom export from a single-folder export.
type Type string

// Job types.
const (
	TypeFullDataroom Type = "FULL_DATAROOM"
	TypeFolder       Type = "FOLDER"
)

// ExportJob is the persisted record of one export attempt.
type ExportJob struct {
	ID         string
	Type       Type
	DataroomID string
	FolderID   *string
	FolderName *string

	// Requester identity: a link-scoped viewer or an internal user.
	LinkID   string
	ViewerID *string
	UserID   *string

	// GroupID is the requester's effective permission group, nil when the
	// requester has unrestricted access.
	GroupID *string

	// Identity snapshot taken at request time. Watermarks burned into a
	// split export must carry identical metadata across all parts, so the
	// orchestrator reads these instead of re-resolving the viewer.
	RequesterEmail *string
	RequesterIP    *string
	EmailVerified  bool

	Status         Status
	TotalFiles     int
	ProcessedFiles int
	Progress       int
	Result         []string
	Error          *string

	// NotifyEmail records whether the requester asked for a completion
	// email. The address itself lives with the viewer record.
	NotifyEmail bool

	// TriggerID is the opaque handle of the asynchronous execution that was
	// dispatched for this job, kept for traceability and idempotency.
	TriggerID *string

	CreatedAt   time.Time
	CompletedAt *time.Time
	ExpiresAt   *time.Time
}

// Update is a partial-field update applied atomically by the store. Nil
// fields are left untouched; the store never read-modify-writes field by
// field on behalf of callers.
type Update struct {
	Status         *Status
	TotalFiles     *int
	ProcessedFiles *int
	Progress       *int
	Result         []string
	Error          *string
	TriggerID      *string
	CompletedAt    *time.Time
	ExpiresAt      *time.Time
}
