// Package slashpath provides helpers for slash-separated folder paths as used
// in dataroom manifests. Paths are absolute, start with "/", and never end with
// a trailing slash except for the root path "/" itself.
package slashpath

import "strings"

// Root is the path of the dataroom root.
const Root = "/"

// Join appends a name to a parent path, normalizing the separator.
func Join(parent, name string) string {
	if parent == "" || parent == Root {
		return Root + name
	}
	return parent + "/" + name
}

// Base returns the last element of the path, or "" for the root.
func Base(path string) string {
	if path == "" || path == Root {
		return ""
	}
	idx := strings.LastIndex(path, "/")
	return path[idx+1:]
}

// Parent returns the parent path, or Root if the path is a top-level entry.
func Parent(path string) string {
	if path == "" || path == Root {
		return Root
	}
	idx := strings.LastIndex(path, "/")
	if idx <= 0 {
		return Root
	}
	return path[:idx]
}

// Ancestors returns every strict prefix path of the given path, from the
// shallowest to the deepest, excluding the root and the path itself.
// Ancestors("/a/b/c") returns ["/a", "/a/b"].
func Ancestors(path string) []string {
	if path == "" || path == Root {
		return nil
	}
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(parts) < 2 {
		return nil
	}

	ancestors := make([]string, 0, len(parts)-1)
	current := ""
	for _, part := range parts[:len(parts)-1] {
		current = current + "/" + part
		ancestors = append(ancestors, current)
	}
	return ancestors
}

// Rebase re-expresses path relative to a new root. The old prefix is stripped
// and the new root's base name becomes the first element, so that a
// single-folder export is rooted at the exported folder itself.
// Rebase("/Legal/Contracts/2024", "/Legal/Contracts") returns "/Contracts/2024".
func Rebase(path, newRoot string) string {
	if newRoot == "" || newRoot == Root {
		return path
	}
	base := Root + Base(newRoot)
	if path == newRoot {
		return base
	}
	if strings.HasPrefix(path, newRoot+"/") {
		return base + strings.TrimPrefix(path, newRoot)
	}
	return path
}

// Depth returns the number of elements in the path. The root has depth 0.
func Depth(path string) int {
	if path == "" || path == Root {
		return 0
	}
	return strings.Count(path, "/")
}
