package models

import (
	"github.com/sendroom/sendroom/internal/job"
)

// StartExportRequest is the body for POST /v1/datarooms/{dataroomID}/exports.
type StartExportRequest struct {
	// FolderID scopes the export to one folder subtree. Empty exports the
	// whole dataroom.
	FolderID *string `json:"folderId,omitempty"`

	// Notify requests a completion email to the verified session address.
	Notify bool `json:"notify,omitempty"`
}

// ExportJob is the client-facing projection of an export job.
type ExportJob struct {
	ID             string     `json:"id"`
	Type           string     `json:"type"`
	Status         string     `json:"status"`
	DataroomName   string     `json:"dataroomName"`
	FolderName     *string    `json:"folderName,omitempty"`
	TotalFiles     int        `json:"totalFiles"`
	ProcessedFiles int        `json:"processedFiles"`
	Progress       int        `json:"progress"`
	DownloadURLs   []string   `json:"downloadUrls,omitempty"`
	Error          *string    `json:"error,omitempty"`
	CreatedAt      Timestamp  `json:"createdAt"`
	CompletedAt    *Timestamp `json:"completedAt,omitempty"`
	ExpiresAt      *Timestamp `json:"expiresAt,omitempty"`
}

// ExportJobList is the response for GET /v1/datarooms/{dataroomID}/exports.
type ExportJobList struct {
	Jobs []ExportJob `json:"jobs"`
}

// NewExportJob projects a job record into its API shape. Download links are
// only exposed while the job is COMPLETED and unexpired; the record keeps
// them either way.
func NewExportJob(j *job.ExportJob, dataroomName string, now Timestamp) ExportJob {
	out := ExportJob{
		ID:             j.ID,
		Type:           string(j.Type),
		Status:         string(j.Status),
		DataroomName:   dataroomName,
		FolderName:     j.FolderName,
		TotalFiles:     j.TotalFiles,
		ProcessedFiles: j.ProcessedFiles,
		Progress:       j.Progress,
		Error:          j.Error,
		CreatedAt:      Timestamp(j.CreatedAt),
	}

	if j.CompletedAt != nil {
		ts := Timestamp(*j.CompletedAt)
		out.CompletedAt = &ts
	}
	if j.ExpiresAt != nil {
		ts := Timestamp(*j.ExpiresAt)
		out.ExpiresAt = &ts
	}

	if j.Status == job.StatusCompleted {
		expired := j.ExpiresAt != nil && !now.Time().Before(*j.ExpiresAt)
		if !expired {
			out.DownloadURLs = j.Result
		}
	}

	return out
}
