package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sendroom/sendroom/internal/dataroom"
	"github.com/sendroom/sendroom/internal/job"
)

// Service errors, surfaced synchronously before any job is created.
var (
	ErrExportDisabled     = errors.New("bulk download is disabled for this dataroom")
	ErrDownloadNotAllowed = errors.New("this link does not permit downloading")
	ErrNothingToDownload  = errors.New("no downloadable files match this request")
)

// Dispatcher hands a created job to the asynchronous execution context. The
// returned trigger id is the opaque handle of that execution, recorded on
// the job for traceability and idempotency.
type Dispatcher interface {
	Dispatch(ctx context.Context, jobID string) (string, error)
}

// Request describes one export request after the session layer has resolved
// the requester's identity.
type Request struct {
	DataroomID string
	FolderID   *string
	LinkID     string

	ViewerID *string
	UserID   *string
	GroupID  *string

	Email         *string
	EmailVerified bool
	RemoteIP      string
	Notify        bool
}

// Service runs the synchronous half of the export pipeline: access checks,
// hierarchy resolution, filtering, structure building, job creation, and the
// async trigger. It is pure computation over already-fetched data plus one
// job-creation write, bounded by the request's own wall clock.
type Service struct {
	rooms      dataroom.Repository
	jobs       job.Repository
	dispatcher Dispatcher
	logger     zerolog.Logger
}

// NewService creates a new export service.
func NewService(rooms dataroom.Repository, jobs job.Repository, dispatcher Dispatcher, logger zerolog.Logger) *Service {
	return &Service{
		rooms:      rooms,
		jobs:       jobs,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// assembled bundles everything the manifest computation loads for one job.
type assembled struct {
	room     *dataroom.Dataroom
	link     *dataroom.Link
	folder   *dataroom.Folder
	manifest *Manifest
}

// assemble loads a dataroom's contents and builds the manifest for one
// export scope. The request path and the orchestrator both go through this,
// so full-dataroom and single-folder exports share one pipeline
// parameterized only by the optional folder scope.
func assemble(ctx context.Context, rooms dataroom.Repository, dataroomID, linkID string, folderID, groupID *string) (*assembled, error) {
	room, err := rooms.GetDataroom(ctx, dataroomID)
	if err != nil {
		return nil, err
	}
	if !room.AllowBulkDownload {
		return nil, ErrExportDisabled
	}

	link, err := rooms.GetLink(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if link.DataroomID != room.ID {
		return nil, dataroom.ErrLinkNotFound
	}
	if !link.AllowDownload {
		return nil, ErrDownloadNotAllowed
	}

	var folder *dataroom.Folder
	scopeID := ""
	if folderID != nil {
		folder, err = rooms.GetFolder(ctx, dataroomID, *folderID)
		if err != nil {
			return nil, err
		}
		scopeID = folder.ID
	}

	folders, err := rooms.ListFolders(ctx, dataroomID)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	documents, err := rooms.ListDocuments(ctx, dataroomID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	// The hierarchy is built from the unfiltered folder set so view-only
	// folders still anchor their children's paths.
	hierarchy := dataroom.BuildHierarchy(folders)

	var grantSet *dataroom.GrantSet
	if groupID != nil {
		grants, err := rooms.ListGrants(ctx, dataroomID, *groupID)
		if err != nil {
			return nil, fmt.Errorf("list grants: %w", err)
		}
		grantSet = dataroom.NewGrantSet(grants)
	}

	manifest := BuildManifest(BuildParams{
		Folders:       grantSet.FilterFolders(folders),
		Documents:     grantSet.FilterDocuments(documents),
		Hierarchy:     hierarchy,
		ScopeFolderID: scopeID,
		Watermark:     link.EnableWatermark,
	})

	return &assembled{
		room:     room,
		link:     link,
		folder:   folder,
		manifest: manifest,
	}, nil
}

// Start validates an export request, creates the PENDING job record, and
// hands the job to the asynchronous execution context. The caller gets the
// job back immediately; the export itself runs elsewhere.
func (s *Service) Start(ctx context.Context, req Request) (*job.ExportJob, error) {
	a, err := assemble(ctx, s.rooms, req.DataroomID, req.LinkID, req.FolderID, req.GroupID)
	if err != nil {
		return nil, err
	}

	if a.manifest.TotalFiles() == 0 {
		return nil, ErrNothingToDownload
	}

	j := &job.ExportJob{
		ID:             "exp_" + uuid.New().String()[:22],
		Type:           job.TypeFullDataroom,
		DataroomID:     req.DataroomID,
		LinkID:         req.LinkID,
		ViewerID:       req.ViewerID,
		UserID:         req.UserID,
		GroupID:        req.GroupID,
		RequesterEmail: req.Email,
		RequesterIP:    strPtrOrNil(req.RemoteIP),
		EmailVerified:  req.EmailVerified,
		Status:         job.StatusPending,
		TotalFiles:     a.manifest.TotalFiles(),
		NotifyEmail:    req.Notify,
		CreatedAt:      time.Now(),
	}
	if a.folder != nil {
		j.Type = job.TypeFolder
		j.FolderID = &a.folder.ID
		j.FolderName = &a.folder.Name
	}

	if err := s.jobs.Create(ctx, j); err != nil {
		return nil, fmt.Errorf("create export job: %w", err)
	}

	triggerID, err := s.dispatcher.Dispatch(ctx, j.ID)
	if err != nil {
		// The job record exists but nothing will run it. Mark it FAILED so
		// the client's next poll sees a terminal state instead of a job
		// stuck in PENDING forever.
		msg := "failed to start export: " + err.Error()
		failed := job.StatusFailed
		if _, updErr := s.jobs.Update(ctx, j.ID, job.Update{Status: &failed, Error: &msg}); updErr != nil {
			s.logger.Error().Err(updErr).Str("job_id", j.ID).Msg("failed to mark undispatched job as failed")
		}
		return nil, fmt.Errorf("dispatch export job: %w", err)
	}

	if _, err := s.jobs.Update(ctx, j.ID, job.Update{TriggerID: &triggerID}); err != nil {
		s.logger.Warn().Err(err).Str("job_id", j.ID).Msg("failed to record trigger id")
	}

	s.logger.Info().
		Str("job_id", j.ID).
		Str("dataroom_id", j.DataroomID).
		Str("type", string(j.Type)).
		Int("total_files", j.TotalFiles).
		Msg("export job created")

	return j, nil
}

// ListJobs retrieves the export jobs visible to one link context, newest
// first. Jobs created through other links are never exposed.
func (s *Service) ListJobs(ctx context.Context, dataroomID, linkID string, limit int) ([]*job.ExportJob, error) {
	return s.jobs.ListByLink(ctx, dataroomID, linkID, job.ListOptions{Limit: limit})
}

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
