package dataroom

import "context"

// Repository defines read access to dataroom contents as the export
// pipeline needs them. All list methods return the full, unfiltered sets;
// permission filtering is applied in memory afterward.
type Repository interface {
	// GetDataroom retrieves a dataroom by ID.
	// Returns ErrDataroomNotFound if it doesn't exist.
	GetDataroom(ctx context.Context, id string) (*Dataroom, error)

	// GetLink retrieves a sharing link by ID.
	// Returns ErrLinkNotFound if it doesn't exist.
	GetLink(ctx context.Context, id string) (*Link, error)

	// GetFolder retrieves one folder by dataroom and folder ID.
	// Returns ErrFolderNotFound if it doesn't exist in that dataroom.
	GetFolder(ctx context.Context, dataroomID, folderID string) (*Folder, error)

	// ListFolders retrieves every folder in a dataroom.
	ListFolders(ctx context.Context, dataroomID string) ([]*Folder, error)

	// ListDocuments retrieves every document in a dataroom with its
	// primary version metadata.
	ListDocuments(ctx context.Context, dataroomID string) ([]*Document, error)

	// ListGrants retrieves the merged permission grants for one viewer
	// group, covering both legacy permission-group mechanisms.
	ListGrants(ctx context.Context, dataroomID, groupID string) ([]Grant, error)
}
