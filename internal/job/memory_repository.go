package job

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu   sync.RWMutex
	jobs map[string]*ExportJob
}

// NewInMemoryRepository creates a new in-memory export job repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		jobs: make(map[string]*ExportJob),
	}
}

// Create persists a new export job.
func (r *InMemoryRepository) Create(_ context.Context, j *ExportJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := cloneJob(j)
	r.jobs[j.ID] = cpy
	return nil
}

// Get retrieves a job by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*ExportJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	j, ok := r.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return cloneJob(j), nil
}

// Update applies a partial update to a job atomically.
func (r *InMemoryRepository) Update(_ context.Context, id string, upd Update) (*ExportJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}

	if upd.Status != nil {
		j.Status = *upd.Status
	}
	if upd.TotalFiles != nil {
		j.TotalFiles = *upd.TotalFiles
	}
	if upd.ProcessedFiles != nil {
		j.ProcessedFiles = *upd.ProcessedFiles
	}
	if upd.Progress != nil {
		j.Progress = *upd.Progress
	}
	if upd.Result != nil {
		j.Result = append([]string(nil), upd.Result...)
	}
	if upd.Error != nil {
		j.Error = upd.Error
	}
	if upd.TriggerID != nil {
		j.TriggerID = upd.TriggerID
	}
	if upd.CompletedAt != nil {
		j.CompletedAt = upd.CompletedAt
	}
	if upd.ExpiresAt != nil {
		j.ExpiresAt = upd.ExpiresAt
	}

	return cloneJob(j), nil
}

// ListByLink retrieves jobs for one link within a dataroom, newest first.
func (r *InMemoryRepository) ListByLink(_ context.Context, dataroomID, linkID string, opts ListOptions) ([]*ExportJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var jobs []*ExportJob
	for _, j := range r.jobs {
		if j.DataroomID == dataroomID && j.LinkID == linkID {
			jobs = append(jobs, cloneJob(j))
		}
	}

	sort.Slice(jobs, func(i, k int) bool {
		return jobs[i].CreatedAt.After(jobs[k].CreatedAt)
	})

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}

	return jobs, nil
}

func cloneJob(j *ExportJob) *ExportJob {
	cpy := *j
	cpy.Result = append([]string(nil), j.Result...)
	return &cpy
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
