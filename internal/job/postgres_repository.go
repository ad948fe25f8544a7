package job

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL export job repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const jobColumns = `
	id, type, dataroom_id, folder_id, folder_name,
	link_id, viewer_id, user_id, group_id,
	requester_email, requester_ip, email_verified,
	status, total_files, processed_files, progress, result, error,
	notify_email, trigger_id,
	created_at, completed_at, expires_at
`

// Create persists a new export job.
func (r *PostgresRepository) Create(ctx context.Context, j *ExportJob) error {
	query := `
		INSERT INTO export_jobs (` + jobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
	`

	_, err := r.pool.Exec(ctx, query,
		j.ID,
		j.Type,
		j.DataroomID,
		j.FolderID,
		j.FolderName,
		j.LinkID,
		j.ViewerID,
		j.UserID,
		j.GroupID,
		j.RequesterEmail,
		j.RequesterIP,
		j.EmailVerified,
		j.Status,
		j.TotalFiles,
		j.ProcessedFiles,
		j.Progress,
		j.Result,
		j.Error,
		j.NotifyEmail,
		j.TriggerID,
		j.CreatedAt,
		j.CompletedAt,
		j.ExpiresAt,
	)
	return err
}

// Get retrieves a job by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*ExportJob, error) {
	query := `SELECT ` + jobColumns + ` FROM export_jobs WHERE id = $1`
	return r.scanJob(r.pool.QueryRow(ctx, query, id))
}

// Update applies a partial update to a job in a single atomic statement.
func (r *PostgresRepository) Update(ctx context.Context, id string, upd Update) (*ExportJob, error) {
	sets := make([]string, 0, 8)
	args := []interface{}{id}

	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.Status != nil {
		add("status", *upd.Status)
	}
	if upd.TotalFiles != nil {
		add("total_files", *upd.TotalFiles)
	}
	if upd.ProcessedFiles != nil {
		add("processed_files", *upd.ProcessedFiles)
	}
	if upd.Progress != nil {
		add("progress", *upd.Progress)
	}
	if upd.Result != nil {
		add("result", upd.Result)
	}
	if upd.Error != nil {
		add("error", *upd.Error)
	}
	if upd.TriggerID != nil {
		add("trigger_id", *upd.TriggerID)
	}
	if upd.CompletedAt != nil {
		add("completed_at", *upd.CompletedAt)
	}
	if upd.ExpiresAt != nil {
		add("expires_at", *upd.ExpiresAt)
	}

	if len(sets) == 0 {
		return r.Get(ctx, id)
	}

	query := `
		UPDATE export_jobs SET ` + strings.Join(sets, ", ") + `
		WHERE id = $1
		RETURNING ` + jobColumns

	return r.scanJob(r.pool.QueryRow(ctx, query, args...))
}

// ListByLink retrieves jobs for one link within a dataroom, newest first.
func (r *PostgresRepository) ListByLink(ctx context.Context, dataroomID, linkID string, opts ListOptions) ([]*ExportJob, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT ` + jobColumns + `
		FROM export_jobs
		WHERE dataroom_id = $1 AND link_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, dataroomID, linkID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*ExportJob
	for rows.Next() {
		j, err := r.scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return jobs, nil
}

// scanJob scans one job record from a row.
func (r *PostgresRepository) scanJob(row pgx.Row) (*ExportJob, error) {
	var j ExportJob

	err := row.Scan(
		&j.ID,
		&j.Type,
		&j.DataroomID,
		&j.FolderID,
		&j.FolderName,
		&j.LinkID,
		&j.ViewerID,
		&j.UserID,
		&j.GroupID,
		&j.RequesterEmail,
		&j.RequesterIP,
		&j.EmailVerified,
		&j.Status,
		&j.TotalFiles,
		&j.ProcessedFiles,
		&j.Progress,
		&j.Result,
		&j.Error,
		&j.NotifyEmail,
		&j.TriggerID,
		&j.CreatedAt,
		&j.CompletedAt,
		&j.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	return &j, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
