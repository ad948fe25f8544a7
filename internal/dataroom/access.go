package dataroom

// GrantSet is the effective permission set for one viewer group, indexed by
// item kind and id. A nil *GrantSet means the viewer is not scoped to any
// permission group and every item is permitted.
type GrantSet struct {
	folders   map[string]Grant
	documents map[string]Grant
}

// NewGrantSet indexes a flat grant list. Grants for the same item collapse
// to the last one seen, which matches how the two legacy permission-group
// mechanisms are merged at the repository boundary.
func NewGrantSet(grants []Grant) *GrantSet {
	gs := &GrantSet{
		folders:   make(map[string]Grant),
		documents: make(map[string]Grant),
	}
	for _, g := range grants {
		switch g.ItemKind {
		case ItemFolder:
			gs.folders[g.ItemID] = g
		case ItemDocument:
			gs.documents[g.ItemID] = g
		}
	}
	return gs
}

// CanDownloadFolder reports whether the group may download the folder.
// Absence of a grant means not permitted.
func (gs *GrantSet) CanDownloadFolder(folderID string) bool {
	if gs == nil {
		return true
	}
	return gs.folders[folderID].CanDownload
}

// CanDownloadDocument reports whether the group may download the document.
func (gs *GrantSet) CanDownloadDocument(documentID string) bool {
	if gs == nil {
		return true
	}
	return gs.documents[documentID].CanDownload
}

// FilterFolders reduces folders to those download-permitted for the group.
// Folders and documents are filtered independently: a document can be
// permitted even when its parent folder is not, because path reconstruction
// uses the unfiltered hierarchy.
func (gs *GrantSet) FilterFolders(folders []*Folder) []*Folder {
	if gs == nil {
		return folders
	}
	out := make([]*Folder, 0, len(folders))
	for _, f := range folders {
		if gs.CanDownloadFolder(f.ID) {
			out = append(out, f)
		}
	}
	return out
}

// FilterDocuments reduces documents to those download-permitted for the group.
func (gs *GrantSet) FilterDocuments(documents []*Document) []*Document {
	if gs == nil {
		return documents
	}
	out := make([]*Document, 0, len(documents))
	for _, d := range documents {
		if gs.CanDownloadDocument(d.ID) {
			out = append(out, d)
		}
	}
	return out
}
