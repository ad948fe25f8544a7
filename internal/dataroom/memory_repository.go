package dataroom

import (
	"context"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu        sync.RWMutex
	datarooms map[string]*Dataroom
	links     map[string]*Link
	folders   map[string][]*Folder
	documents map[string][]*Document
	grants    map[string][]Grant // keyed by dataroomID + "/" + groupID
}

// NewInMemoryRepository creates a new in-memory dataroom repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		datarooms: make(map[string]*Dataroom),
		links:     make(map[string]*Link),
		folders:   make(map[string][]*Folder),
		documents: make(map[string][]*Document),
		grants:    make(map[string][]Grant),
	}
}

// PutDataroom stores a dataroom.
func (r *InMemoryRepository) PutDataroom(d *Dataroom) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.datarooms[d.ID] = d
}

// PutLink stores a sharing link.
func (r *InMemoryRepository) PutLink(l *Link) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links[l.ID] = l
}

// PutFolders stores the folder set for a dataroom.
func (r *InMemoryRepository) PutFolders(dataroomID string, folders ...*Folder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.folders[dataroomID] = append(r.folders[dataroomID], folders...)
}

// PutDocuments stores documents for a dataroom.
func (r *InMemoryRepository) PutDocuments(dataroomID string, documents ...*Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.documents[dataroomID] = append(r.documents[dataroomID], documents...)
}

// PutGrants stores the grants for a viewer group in a dataroom.
func (r *InMemoryRepository) PutGrants(dataroomID, groupID string, grants ...Grant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := dataroomID + "/" + groupID
	r.grants[key] = append(r.grants[key], grants...)
}

// GetDataroom retrieves a dataroom by ID.
func (r *InMemoryRepository) GetDataroom(_ context.Context, id string) (*Dataroom, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.datarooms[id]
	if !ok {
		return nil, ErrDataroomNotFound
	}

	cpy := *d
	return &cpy, nil
}

// GetLink retrieves a sharing link by ID.
func (r *InMemoryRepository) GetLink(_ context.Context, id string) (*Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.links[id]
	if !ok {
		return nil, ErrLinkNotFound
	}

	cpy := *l
	return &cpy, nil
}

// GetFolder retrieves one folder by dataroom and folder ID.
func (r *InMemoryRepository) GetFolder(_ context.Context, dataroomID, folderID string) (*Folder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, f := range r.folders[dataroomID] {
		if f.ID == folderID {
			cpy := *f
			return &cpy, nil
		}
	}
	return nil, ErrFolderNotFound
}

// ListFolders retrieves every folder in a dataroom.
func (r *InMemoryRepository) ListFolders(_ context.Context, dataroomID string) ([]*Folder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	folders := make([]*Folder, 0, len(r.folders[dataroomID]))
	for _, f := range r.folders[dataroomID] {
		cpy := *f
		folders = append(folders, &cpy)
	}
	return folders, nil
}

// ListDocuments retrieves every document in a dataroom.
func (r *InMemoryRepository) ListDocuments(_ context.Context, dataroomID string) ([]*Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	documents := make([]*Document, 0, len(r.documents[dataroomID]))
	for _, d := range r.documents[dataroomID] {
		cpy := *d
		documents = append(documents, &cpy)
	}
	return documents, nil
}

// ListGrants retrieves the grants for one viewer group.
func (r *InMemoryRepository) ListGrants(_ context.Context, dataroomID, groupID string) ([]Grant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := dataroomID + "/" + groupID
	return append([]Grant(nil), r.grants[key]...), nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
