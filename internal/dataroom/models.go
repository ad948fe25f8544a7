// Package dataroom provides the dataroom domain model: folders, documents,
// permission grants, and the hierarchy/access computations the export
// pipeline is built on.
package dataroom

import (
	"errors"
	"time"
)

// Repository errors.
var (
	ErrDataroomNotFound = errors.New("dataroom not found")
	ErrFolderNotFound   = errors.New("folder not found")
	ErrLinkNotFound     = errors.New("link not found")
)

// Dataroom is the top-level shareable container of folders and documents.
type Dataroom struct {
	ID     string
	TeamID string
	Name   string

	// AllowBulkDownload gates the export pipeline for the whole dataroom.
	AllowBulkDownload bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Link is a sharing link into a dataroom. The export pipeline only consumes
// its name, its watermark setting, and whether it permits downloading.
type Link struct {
	ID            string
	DataroomID    string
	Name          string
	AllowDownload bool
	EnableWatermark bool
}

// Folder is a node in a dataroom's folder tree. ParentID is authoritative;
// the stored Path is a materialized column that can go stale after renames
// or moves and must never be trusted for export.
type Folder struct {
	ID         string
	DataroomID string
	Name       string
	Path       string
	ParentID   *string
	CreatedAt  time.Time
}

// ContentKind classifies a document version's underlying content.
type ContentKind string

// Known content kinds.
const (
	KindPDF    ContentKind = "pdf"
	KindImage  ContentKind = "image"
	KindSheet  ContentKind = "sheet"
	KindSlides ContentKind = "slides"
	KindVideo  ContentKind = "video"
	KindNotion ContentKind = "notion"
	KindZip    ContentKind = "zip"
)

// StorageBackend identifies where a version's bytes live.
type StorageBackend string

// Known storage backends. Only S3-backed versions can be fed to the batch
// archive worker.
const (
	StorageS3         StorageBackend = "s3"
	StorageVercelBlob StorageBackend = "vercel_blob"
)

// Version is the primary version of a document: the thing an export
// actually fetches and archives.
type Version struct {
	ID          string
	FileKey     string
	OriginalKey *string
	Kind        ContentKind
	Pages       int
	// Size is the declared byte size. Zero means unknown.
	Size    int64
	Storage StorageBackend
}

// Document is a document placed inside a dataroom. Its ID is distinct from
// the underlying document's ID. A nil FolderID means the document sits at
// the dataroom root.
type Document struct {
	ID         string
	DataroomID string
	DocumentID string
	FolderID   *string
	Name       string
	Version    Version
	CreatedAt  time.Time
}

// ItemKind tags a permission grant's target.
type ItemKind string

// Grant target kinds.
const (
	ItemFolder   ItemKind = "folder"
	ItemDocument ItemKind = "document"
)

// Grant associates a viewer group with one item and its view/download
// permissions. Both legacy permission-group mechanisms reduce to this shape
// at the repository boundary, so nothing downstream branches on which
// mechanism produced a grant.
type Grant struct {
	GroupID     string
	ItemID      string
	ItemKind    ItemKind
	CanView     bool
	CanDownload bool
}
