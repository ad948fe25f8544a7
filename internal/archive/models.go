// Package archive provides the client for the external archive worker: the
// service that turns a batch's file keys into a downloadable compressed
// file, optionally watermarking pages. The worker is treated as opaque;
// this package only defines the wire contract and the resilient call.
package archive

// FileRef identifies one file inside a folder node, with the metadata the
// worker needs to fetch and optionally watermark it.
type FileRef struct {
	Name           string `json:"name"`
	Key            string `json:"key"`
	Kind           string `json:"kind"`
	Pages          int    `json:"pages,omitempty"`
	NeedsWatermark bool   `json:"needsWatermark"`
}

// FolderNode is one directory in the structure the worker reconstructs
// inside the archive. Nodes with no files are kept so empty directories
// appear in the output.
type FolderNode struct {
	Name  string    `json:"name"`
	Path  string    `json:"path"`
	Files []FileRef `json:"files"`
}

// WatermarkConfig is the fixed identity snapshot burned into every
// watermarked page of a job. It is resolved once per job, not per batch, so
// all parts of a split export carry identical metadata.
type WatermarkConfig struct {
	Email     string `json:"email"`
	IPAddress string `json:"ipAddress,omitempty"`
	LinkName  string `json:"linkName"`
	Timestamp string `json:"timestamp"`
}

// Request is one archive-worker invocation: one batch of an export job.
type Request struct {
	DataroomID      string                `json:"dataroomId"`
	SourceBucket    string                `json:"sourceBucket"`
	FileKeys        []string              `json:"fileKeys"`
	FolderStructure map[string]FolderNode `json:"folderStructure"`
	Watermark       *WatermarkConfig      `json:"watermarkConfig,omitempty"`
	BatchPart       int                   `json:"batchPartNumber"`
	TotalParts      int                   `json:"totalParts"`
	ArchiveBaseName string                `json:"archiveBaseName"`
	ExpirationHours int                   `json:"expirationHours"`
}

// Response is the worker's reply for a successful batch.
type Response struct {
	DownloadURL string `json:"downloadUrl"`
}

// errorResponse is the worker's reply for a failed batch.
type errorResponse struct {
	Error string `json:"error"`
}
