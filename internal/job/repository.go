package job

import "context"

// ListOptions contains options for listing export jobs.
type ListOptions struct {
	Limit int
}

// Repository defines the interface for export job persistence. Create and
// Update are atomic whole-record operations keyed by job id; concurrent
// orchestrator runs for different jobs never touch the same record.
type Repository interface {
	// Create persists a new export job.
	Create(ctx context.Context, j *ExportJob) error

	// Get retrieves a job by ID.
	// Returns ErrJobNotFound if the job doesn't exist.
	Get(ctx context.Context, id string) (*ExportJob, error)

	// Update applies a partial update to a job atomically and returns the
	// updated record. Returns ErrJobNotFound if the job doesn't exist.
	Update(ctx context.Context, id string, upd Update) (*ExportJob, error)

	// ListByLink retrieves the jobs created through one sharing link within
	// a dataroom, newest first. Jobs belonging to other links are never
	// returned.
	ListByLink(ctx context.Context, dataroomID, linkID string, opts ListOptions) ([]*ExportJob, error)
}
