// Package export implements the bulk export pipeline: building folder/file
// manifests from a filtered dataroom, splitting them into archive batches,
// and driving export jobs through their state machine.
package export

import (
	"github.com/sendroom/sendroom/internal/dataroom"
	"github.com/sendroom/sendroom/pkg/slashpath"
)

// File is one archivable file in a manifest, annotated with the folder path
// it reconstructs into.
type File struct {
	Name           string
	Key            string
	Kind           dataroom.ContentKind
	Pages          int
	Size           int64
	NeedsWatermark bool
	FolderPath     string
}

// FolderEntry is one folder in a manifest with the files directly inside it.
// Entries with empty file lists are kept so empty directories survive into
// the destination archive.
type FolderEntry struct {
	Name  string
	Path  string
	Files []File
}

// Manifest is an ordered mapping from folder path to folder entry, built for
// one export attempt or one batch thereof. Manifests are transient: computed
// fresh per job invocation and never persisted.
type Manifest struct {
	paths   []string
	entries map[string]*FolderEntry
}

// NewManifest creates an empty manifest containing only the root entry.
func NewManifest() *Manifest {
	m := &Manifest{entries: make(map[string]*FolderEntry)}
	m.ensureFolder(slashpath.Root, "")
	return m
}

// ensureFolder materializes the entry for a path, creating every missing
// ancestor entry first so the "ancestors always present" invariant holds.
func (m *Manifest) ensureFolder(path, name string) *FolderEntry {
	if e, ok := m.entries[path]; ok {
		if e.Name == "" && name != "" {
			e.Name = name
		}
		return e
	}

	for _, ancestor := range slashpath.Ancestors(path) {
		if _, ok := m.entries[ancestor]; !ok {
			m.addEntry(ancestor, slashpath.Base(ancestor))
		}
	}

	return m.addEntry(path, name)
}

func (m *Manifest) addEntry(path, name string) *FolderEntry {
	e := &FolderEntry{Name: name, Path: path}
	m.entries[path] = e
	m.paths = append(m.paths, path)
	return e
}

// AddFolder adds a folder entry (and its missing ancestors) to the manifest.
func (m *Manifest) AddFolder(path string) {
	m.ensureFolder(path, slashpath.Base(path))
}

// AddFile places a file under its folder path, materializing the folder and
// its ancestors as needed.
func (m *Manifest) AddFile(f File) {
	e := m.ensureFolder(f.FolderPath, slashpath.Base(f.FolderPath))
	e.Files = append(e.Files, f)
}

// Paths returns the folder paths in insertion order.
func (m *Manifest) Paths() []string {
	return append([]string(nil), m.paths...)
}

// Entry returns the folder entry for a path.
func (m *Manifest) Entry(path string) (*FolderEntry, bool) {
	e, ok := m.entries[path]
	return e, ok
}

// Files returns the flat file list in folder order.
func (m *Manifest) Files() []File {
	var files []File
	for _, p := range m.paths {
		files = append(files, m.entries[p].Files...)
	}
	return files
}

// FileKeys returns the storage keys of every file in folder order.
func (m *Manifest) FileKeys() []string {
	files := m.Files()
	keys := make([]string, len(files))
	for i, f := range files {
		keys[i] = f.Key
	}
	return keys
}

// TotalFiles returns the number of files in the manifest.
func (m *Manifest) TotalFiles() int {
	n := 0
	for _, e := range m.entries {
		n += len(e.Files)
	}
	return n
}

// TotalSize returns the cumulative declared byte size of all files. Files
// with unknown size contribute zero.
func (m *Manifest) TotalSize() int64 {
	var total int64
	for _, e := range m.entries {
		for _, f := range e.Files {
			total += f.Size
		}
	}
	return total
}

// Subset builds a new manifest holding only the given files, re-materializing
// each file's folder and ancestors so the batch reconstructs correct relative
// structure on its own.
func (m *Manifest) Subset(files []File) *Manifest {
	sub := NewManifest()
	for _, f := range files {
		sub.AddFile(f)
	}
	return sub
}

// BuildParams are the inputs to BuildManifest. Folders and Documents are the
// permission-filtered sets; Hierarchy must be built from the unfiltered
// folder list so excluded folders still anchor their children's paths.
type BuildParams struct {
	Folders   []*dataroom.Folder
	Documents []*dataroom.Document
	Hierarchy *dataroom.Hierarchy

	// ScopeFolderID restricts the manifest to one folder's subtree. Output
	// paths are then rooted at that folder's own name. Empty means the
	// whole dataroom.
	ScopeFolderID string

	// Watermark is the link-level watermark setting. Only pdf and image
	// kinds support page watermarking; other kinds never get the flag.
	Watermark bool
}

// archivable reports whether a version can be fed to the batch archive
// worker at all. Embedded notion documents have no fetchable file, and only
// S3-backed storage is readable by the worker.
func archivable(v dataroom.Version) bool {
	if v.Kind == dataroom.KindNotion {
		return false
	}
	return v.Storage == dataroom.StorageS3
}

// watermarkable reports whether a content kind supports pixel/page
// watermarking.
func watermarkable(kind dataroom.ContentKind) bool {
	return kind == dataroom.KindPDF || kind == dataroom.KindImage
}

// BuildManifest converts a filtered folder/document set into a manifest.
// Non-archivable documents are dropped silently; they never block the rest
// of the export. Folders that survived filtering appear even when empty.
func BuildManifest(p BuildParams) *Manifest {
	m := NewManifest()

	scopePath := ""
	var inScope map[string]bool
	if p.ScopeFolderID != "" {
		scopePath, _ = p.Hierarchy.Path(p.ScopeFolderID)
		inScope = p.Hierarchy.Descendants(p.ScopeFolderID)
	}

	rebase := func(path string) string {
		if scopePath == "" {
			return path
		}
		return slashpath.Rebase(path, scopePath)
	}

	if scopePath != "" {
		m.AddFolder(rebase(scopePath))
	}

	for _, f := range p.Folders {
		if scopePath != "" && f.ID != p.ScopeFolderID && !inScope[f.ID] {
			continue
		}
		path, ok := p.Hierarchy.Path(f.ID)
		if !ok {
			continue
		}
		m.AddFolder(rebase(path))
	}

	for _, d := range p.Documents {
		if !archivable(d.Version) {
			continue
		}

		folderPath := slashpath.Root
		if d.FolderID != nil {
			if scopePath != "" && *d.FolderID != p.ScopeFolderID && !inScope[*d.FolderID] {
				continue
			}
			path, ok := p.Hierarchy.Path(*d.FolderID)
			if !ok {
				continue
			}
			folderPath = rebase(path)
		} else if scopePath != "" {
			// Root-level documents are outside a single-folder export.
			continue
		}

		m.AddFile(File{
			Name:           d.Name,
			Key:            d.Version.FileKey,
			Kind:           d.Version.Kind,
			Pages:          d.Version.Pages,
			Size:           d.Version.Size,
			NeedsWatermark: p.Watermark && watermarkable(d.Version.Kind),
			FolderPath:     folderPath,
		})
	}

	return m
}
