package dataroom

import (
	"github.com/sendroom/sendroom/pkg/slashpath"
)

// Hierarchy is an in-memory index over a dataroom's full folder set. It is
// built from parent pointers only; the stored path column is ignored because
// it can go stale after renames and moves.
//
// The hierarchy must be built from the unfiltered folder list. Permission
// filtering happens afterward, so a folder that is view-only still anchors
// the computed paths of its download-permitted children.
type Hierarchy struct {
	folders  map[string]*Folder
	children map[string][]string
	paths    map[string]string
}

// BuildHierarchy indexes the given folders and recomputes every absolute
// path by walking parent pointers to the root. A folder whose parent id does
// not resolve within the set, or that sits on a cycle, is treated as a root
// rather than failing the whole export for one corrupt record.
func BuildHierarchy(folders []*Folder) *Hierarchy {
	h := &Hierarchy{
		folders:  make(map[string]*Folder, len(folders)),
		children: make(map[string][]string),
		paths:    make(map[string]string, len(folders)),
	}

	for _, f := range folders {
		h.folders[f.ID] = f
	}
	for _, f := range folders {
		if pid := h.resolvedParent(f); pid != "" {
			h.children[pid] = append(h.children[pid], f.ID)
		}
	}
	for _, f := range folders {
		h.paths[f.ID] = h.computePath(f)
	}

	return h
}

// resolvedParent returns the effective parent id, or "" when the folder is a
// root or its parent pointer is dangling or self-referential.
func (h *Hierarchy) resolvedParent(f *Folder) string {
	if f.ParentID == nil || *f.ParentID == "" || *f.ParentID == f.ID {
		return ""
	}
	if _, ok := h.folders[*f.ParentID]; !ok {
		return ""
	}
	return *f.ParentID
}

// computePath joins the folder's ancestor chain names with "/". Cycles are
// broken by bounding the walk at the folder count.
func (h *Hierarchy) computePath(f *Folder) string {
	names := []string{f.Name}

	current := f
	for range h.folders {
		pid := h.resolvedParent(current)
		if pid == "" {
			break
		}
		parent := h.folders[pid]
		names = append(names, parent.Name)
		current = parent
	}

	path := ""
	for i := len(names) - 1; i >= 0; i-- {
		path = slashpath.Join(path, names[i])
	}
	return path
}

// Path returns the recomputed absolute path for a folder id. The second
// return value is false for ids outside this dataroom.
func (h *Hierarchy) Path(folderID string) (string, bool) {
	p, ok := h.paths[folderID]
	return p, ok
}

// Folder returns the indexed folder record for an id.
func (h *Hierarchy) Folder(folderID string) (*Folder, bool) {
	f, ok := h.folders[folderID]
	return f, ok
}

// Descendants returns the ids of every folder strictly below folderID,
// computed by a breadth-first traversal over the parent-pointer adjacency.
// The result never contains folderID itself.
func (h *Hierarchy) Descendants(folderID string) map[string]bool {
	out := make(map[string]bool)

	queue := append([]string(nil), h.children[folderID]...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if out[id] {
			continue
		}
		out[id] = true
		queue = append(queue, h.children[id]...)
	}

	return out
}

// FolderIDs returns every indexed folder id.
func (h *Hierarchy) FolderIDs() []string {
	ids := make([]string, 0, len(h.folders))
	for id := range h.folders {
		ids = append(ids, id)
	}
	return ids
}
