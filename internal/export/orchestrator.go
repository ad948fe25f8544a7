package export

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/sendroom/sendroom/internal/archive"
	"github.com/sendroom/sendroom/internal/dataroom"
	"github.com/sendroom/sendroom/internal/job"
	"github.com/sendroom/sendroom/internal/notify"
)

// resultExpiry is how long completed archive links stay valid.
const resultExpiry = 72 * time.Hour

// OrchestratorConfig holds the orchestrator's collaborators and tunables.
type OrchestratorConfig struct {
	Rooms   dataroom.Repository
	Jobs    job.Repository
	Archive archive.Client
	Mailer  notify.Mailer
	Planner PlannerConfig
	Logger  zerolog.Logger

	// SourceBucket is the storage bucket the archive worker reads from.
	SourceBucket string

	// AppBaseURL is the product's public base URL, used for the downloads
	// view link in notification emails.
	AppBaseURL string

	// Now overrides the clock in tests. Defaults to time.Now.
	Now func() time.Time
}

// Orchestrator drives one export job end to end: PENDING to PROCESSING to
// COMPLETED or FAILED, one archive-worker call per batch, strictly in order.
// Batches never run concurrently: progress stays monotonic and the worker is
// never invoked twice for overlapping file sets.
type Orchestrator struct {
	cfg OrchestratorConfig
}

// NewOrchestrator creates a new export orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Mailer == nil {
		cfg.Mailer = notify.NoopMailer{}
	}
	return &Orchestrator{cfg: cfg}
}

// Run executes one export job. It is invoked with the job id as the
// idempotency key: a redelivered trigger finds the job already PROCESSING or
// terminal and returns without starting a duplicate run. Errors in the
// export itself are recorded on the job record, not returned; only failures
// to read the job at all propagate.
func (o *Orchestrator) Run(ctx context.Context, jobID string) error {
	logger := o.cfg.Logger.With().Str("job_id", jobID).Logger()

	j, err := o.cfg.Jobs.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load export job: %w", err)
	}

	if j.Status != job.StatusPending {
		logger.Info().Str("status", string(j.Status)).Msg("job already picked up, skipping")
		return nil
	}

	if err := o.start(ctx, j.ID); err != nil {
		return fmt.Errorf("mark job processing: %w", err)
	}

	a, err := assemble(ctx, o.cfg.Rooms, j.DataroomID, j.LinkID, j.FolderID, j.GroupID)
	if err != nil {
		o.fail(ctx, logger, j.ID, err)
		return nil
	}
	if a.manifest.TotalFiles() == 0 {
		o.fail(ctx, logger, j.ID, ErrNothingToDownload)
		return nil
	}

	batches := PlanBatches(a.manifest, o.cfg.Planner)

	// One timestamp and one watermark snapshot for the whole job, so every
	// part of a split export names and stamps identically.
	startedAt := o.cfg.Now()
	watermark := o.watermarkFor(j, a, startedAt)

	folderName := ""
	if j.FolderName != nil {
		folderName = *j.FolderName
	}

	logger.Info().
		Int("total_files", a.manifest.TotalFiles()).
		Int("batches", len(batches)).
		Int64("total_size", a.manifest.TotalSize()).
		Msg("export started")

	var urls []string
	processed := 0

	for _, batch := range batches {
		url, err := o.cfg.Archive.CreateArchive(ctx, archive.Request{
			DataroomID:      j.DataroomID,
			SourceBucket:    o.cfg.SourceBucket,
			FileKeys:        batch.Manifest.FileKeys(),
			FolderStructure: folderStructure(batch.Manifest),
			Watermark:       watermark,
			BatchPart:       batch.Number,
			TotalParts:      len(batches),
			ArchiveBaseName: ArchiveBaseName(a.room.Name, folderName, startedAt, batch.Number, len(batches)),
			ExpirationHours: int(resultExpiry / time.Hour),
		})
		if err != nil {
			logger.Error().Err(err).Int("batch", batch.Number).Msg("batch failed, abandoning export")
			o.fail(ctx, logger, j.ID, err)
			return nil
		}

		urls = append(urls, url)
		processed += len(batch.Files)

		if err := o.progress(ctx, j.ID, processed, batch.Number, len(batches), urls); err != nil {
			logger.Warn().Err(err).Int("batch", batch.Number).Msg("failed to record batch progress")
		}

		logger.Info().
			Int("batch", batch.Number).
			Int("of", len(batches)).
			Int("files", len(batch.Files)).
			Int64("size", batch.Size).
			Msg("batch completed")
	}

	completed, err := o.complete(ctx, j.ID, processed, urls)
	if err != nil {
		return fmt.Errorf("mark job completed: %w", err)
	}

	logger.Info().Int("files", processed).Int("archives", len(urls)).Msg("export completed")

	o.notify(logger, completed, a)
	return nil
}

// start transitions the job to PROCESSING and resets its counters.
func (o *Orchestrator) start(ctx context.Context, jobID string) error {
	processing := job.StatusProcessing
	zero := 0
	_, err := o.cfg.Jobs.Update(ctx, jobID, job.Update{
		Status:         &processing,
		ProcessedFiles: &zero,
		Progress:       &zero,
	})
	return err
}

// progress records the counters after one completed batch. Progress is the
// completed-batch fraction, rounded.
func (o *Orchestrator) progress(ctx context.Context, jobID string, processed, completedBatches, totalBatches int, urls []string) error {
	pct := int(math.Round(float64(completedBatches) / float64(totalBatches) * 100))
	_, err := o.cfg.Jobs.Update(ctx, jobID, job.Update{
		ProcessedFiles: &processed,
		Progress:       &pct,
		Result:         urls,
	})
	return err
}

// complete finalizes the job: COMPLETED, full result list, 3-day expiry.
func (o *Orchestrator) complete(ctx context.Context, jobID string, processed int, urls []string) (*job.ExportJob, error) {
	done := job.StatusCompleted
	hundred := 100
	now := o.cfg.Now()
	expires := now.Add(resultExpiry)

	return o.cfg.Jobs.Update(ctx, jobID, job.Update{
		Status:         &done,
		ProcessedFiles: &processed,
		Progress:       &hundred,
		Result:         urls,
		CompletedAt:    &now,
		ExpiresAt:      &expires,
	})
}

// fail marks the job FAILED with the error's message. A partially completed
// multi-part export is not exposed as partially successful: the result list
// is cleared along with the failure.
func (o *Orchestrator) fail(ctx context.Context, logger zerolog.Logger, jobID string, cause error) {
	failed := job.StatusFailed
	msg := cause.Error()
	_, err := o.cfg.Jobs.Update(ctx, jobID, job.Update{
		Status: &failed,
		Error:  &msg,
		Result: []string{},
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to record job failure")
	}
}

// watermarkFor resolves the per-job watermark snapshot, or nil when the link
// has watermarking disabled.
func (o *Orchestrator) watermarkFor(j *job.ExportJob, a *assembled, startedAt time.Time) *archive.WatermarkConfig {
	if !a.link.EnableWatermark {
		return nil
	}

	wm := &archive.WatermarkConfig{
		LinkName:  a.link.Name,
		Timestamp: startedAt.UTC().Format(time.RFC3339),
	}
	if j.RequesterEmail != nil {
		wm.Email = *j.RequesterEmail
	}
	if j.RequesterIP != nil {
		wm.IPAddress = *j.RequesterIP
	}
	return wm
}

// notify sends the completion email as a detached best-effort side effect.
// It runs only when the requester asked for it, their identity was verified,
// and an address is known. Failures are logged, never surfaced.
func (o *Orchestrator) notify(logger zerolog.Logger, j *job.ExportJob, a *assembled) {
	if !j.NotifyEmail || !j.EmailVerified || j.RequesterEmail == nil {
		return
	}

	email := notify.ExportReadyEmail{
		To:           *j.RequesterEmail,
		DataroomName: a.room.Name,
		DownloadsURL: fmt.Sprintf("%s/view/%s/downloads", o.cfg.AppBaseURL, j.LinkID),
	}
	if j.FolderName != nil {
		email.FolderName = *j.FolderName
	}
	if j.ExpiresAt != nil {
		email.ExpiresAt = *j.ExpiresAt
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := o.cfg.Mailer.SendExportReady(ctx, email); err != nil {
			logger.Warn().Err(err).Msg("failed to send export notification")
		}
	}()
}

// folderStructure converts a batch manifest into the worker's wire shape.
func folderStructure(m *Manifest) map[string]archive.FolderNode {
	out := make(map[string]archive.FolderNode, len(m.Paths()))
	for _, path := range m.Paths() {
		entry, _ := m.Entry(path)

		files := make([]archive.FileRef, 0, len(entry.Files))
		for _, f := range entry.Files {
			files = append(files, archive.FileRef{
				Name:           f.Name,
				Key:            f.Key,
				Kind:           string(f.Kind),
				Pages:          f.Pages,
				NeedsWatermark: f.NeedsWatermark,
			})
		}

		out[path] = archive.FolderNode{
			Name:  entry.Name,
			Path:  path,
			Files: files,
		}
	}
	return out
}
