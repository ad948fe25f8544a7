package dataroom

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL dataroom repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// GetDataroom retrieves a dataroom by ID.
func (r *PostgresRepository) GetDataroom(ctx context.Context, id string) (*Dataroom, error) {
	query := `
		SELECT id, team_id, name, allow_bulk_download, created_at, updated_at
		FROM datarooms
		WHERE id = $1
	`

	var d Dataroom
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&d.ID,
		&d.TeamID,
		&d.Name,
		&d.AllowBulkDownload,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDataroomNotFound
		}
		return nil, err
	}

	return &d, nil
}

// GetLink retrieves a sharing link by ID.
func (r *PostgresRepository) GetLink(ctx context.Context, id string) (*Link, error) {
	query := `
		SELECT id, dataroom_id, name, allow_download, enable_watermark
		FROM links
		WHERE id = $1
	`

	var l Link
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&l.ID,
		&l.DataroomID,
		&l.Name,
		&l.AllowDownload,
		&l.EnableWatermark,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}

	return &l, nil
}

// GetFolder retrieves one folder by dataroom and folder ID.
func (r *PostgresRepository) GetFolder(ctx context.Context, dataroomID, folderID string) (*Folder, error) {
	query := `
		SELECT id, dataroom_id, name, path, parent_id, created_at
		FROM dataroom_folders
		WHERE id = $1 AND dataroom_id = $2
	`

	var f Folder
	err := r.pool.QueryRow(ctx, query, folderID, dataroomID).Scan(
		&f.ID,
		&f.DataroomID,
		&f.Name,
		&f.Path,
		&f.ParentID,
		&f.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFolderNotFound
		}
		return nil, err
	}

	return &f, nil
}

// ListFolders retrieves every folder in a dataroom.
func (r *PostgresRepository) ListFolders(ctx context.Context, dataroomID string) ([]*Folder, error) {
	query := `
		SELECT id, dataroom_id, name, path, parent_id, created_at
		FROM dataroom_folders
		WHERE dataroom_id = $1
		ORDER BY path
	`

	rows, err := r.pool.Query(ctx, query, dataroomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var folders []*Folder
	for rows.Next() {
		var f Folder
		err := rows.Scan(
			&f.ID,
			&f.DataroomID,
			&f.Name,
			&f.Path,
			&f.ParentID,
			&f.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		folders = append(folders, &f)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return folders, nil
}

// ListDocuments retrieves every document in a dataroom, joined with its
// primary version.
func (r *PostgresRepository) ListDocuments(ctx context.Context, dataroomID string) ([]*Document, error) {
	query := `
		SELECT
			d.id, d.dataroom_id, d.document_id, d.folder_id, d.name, d.created_at,
			v.id, v.file_key, v.original_key, v.kind, v.pages, v.size, v.storage
		FROM dataroom_documents d
		JOIN document_versions v ON v.id = d.primary_version_id
		WHERE d.dataroom_id = $1
		ORDER BY d.created_at
	`

	rows, err := r.pool.Query(ctx, query, dataroomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var documents []*Document
	for rows.Next() {
		var d Document
		err := rows.Scan(
			&d.ID,
			&d.DataroomID,
			&d.DocumentID,
			&d.FolderID,
			&d.Name,
			&d.CreatedAt,
			&d.Version.ID,
			&d.Version.FileKey,
			&d.Version.OriginalKey,
			&d.Version.Kind,
			&d.Version.Pages,
			&d.Version.Size,
			&d.Version.Storage,
		)
		if err != nil {
			return nil, err
		}
		documents = append(documents, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return documents, nil
}

// ListGrants retrieves merged permission grants for one viewer group.
// The UNION covers both legacy permission-group tables; both reduce to the
// same Grant shape so downstream code never branches on the mechanism.
func (r *PostgresRepository) ListGrants(ctx context.Context, dataroomID, groupID string) ([]Grant, error) {
	query := `
		SELECT group_id, item_id, item_kind, can_view, can_download
		FROM viewer_group_permissions
		WHERE dataroom_id = $1 AND group_id = $2
		UNION ALL
		SELECT group_id, item_id, item_kind, can_view, can_download
		FROM link_group_permissions
		WHERE dataroom_id = $1 AND group_id = $2
	`

	rows, err := r.pool.Query(ctx, query, dataroomID, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []Grant
	for rows.Next() {
		var g Grant
		err := rows.Scan(
			&g.GroupID,
			&g.ItemID,
			&g.ItemKind,
			&g.CanView,
			&g.CanDownload,
		)
		if err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return grants, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
