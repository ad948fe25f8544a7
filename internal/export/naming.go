package export

import (
	"fmt"
	"strings"
	"time"
)

// archiveTimestampLayout is the UTC timestamp embedded in archive names.
const archiveTimestampLayout = "20060102T150405Z"

// ArchiveBaseName builds the generated archive file name for one batch:
// "<DataroomName>[-<FolderName>]-<YYYYMMDDThhmmssZ>[-NNN]". The timestamp is
// generated once per job so all parts of a split export share it, and the
// zero-padded part suffix is omitted when there is only one batch.
func ArchiveBaseName(dataroomName, folderName string, ts time.Time, part, totalParts int) string {
	var b strings.Builder

	b.WriteString(sanitizeName(dataroomName))
	if folderName != "" {
		b.WriteString("-")
		b.WriteString(sanitizeName(folderName))
	}
	b.WriteString("-")
	b.WriteString(ts.UTC().Format(archiveTimestampLayout))
	if totalParts > 1 {
		b.WriteString(fmt.Sprintf("-%03d", part))
	}

	return b.String()
}

// sanitizeName strips path separators from a user-controlled name so it
// cannot alter the archive's storage key.
func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, "/", "-")
	name = strings.ReplaceAll(name, "\\", "-")
	return strings.TrimSpace(name)
}
