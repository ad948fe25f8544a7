package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/sendroom/sendroom/internal/api/models"
	"github.com/sendroom/sendroom/internal/api/response"
	"github.com/sendroom/sendroom/internal/dataroom"
	"github.com/sendroom/sendroom/internal/export"
)

// defaultJobListLimit caps how many jobs one poll returns.
const defaultJobListLimit = 20

// ExportHandler handles bulk export endpoints.
type ExportHandler struct {
	exports *export.Service
	rooms   dataroom.Repository
	logger  zerolog.Logger
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(exports *export.Service, rooms dataroom.Repository, logger zerolog.Logger) *ExportHandler {
	return &ExportHandler{
		exports: exports,
		rooms:   rooms,
		logger:  logger,
	}
}

// StartExport handles POST /v1/datarooms/{dataroomID}/exports - start a bulk
// export job. The request is accepted once the job record exists; clients
// poll the list endpoint for progress.
func (h *ExportHandler) StartExport(w http.ResponseWriter, r *http.Request) {
	dataroomID := chi.URLParam(r, "dataroomID")
	sess := GetSession(r.Context())
	if sess == nil {
		response.Unauthorized(w, r, "viewer session required")
		return
	}
	if sess.DataroomID != dataroomID {
		response.Error(w, r, models.NewForbidden(
			middlewareRequestID(r), "session is not valid for this dataroom"))
		return
	}

	var input models.StartExportRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			response.BadRequest(w, r, "invalid JSON body", nil)
			return
		}
	}

	req := export.Request{
		DataroomID:    dataroomID,
		FolderID:      input.FolderID,
		LinkID:        sess.LinkID,
		EmailVerified: sess.EmailVerified,
		RemoteIP:      clientIP(r),
		Notify:        input.Notify,
	}
	if sess.ViewerID != "" {
		req.ViewerID = &sess.ViewerID
	}
	if sess.GroupID != "" {
		req.GroupID = &sess.GroupID
	}
	if sess.Email != "" {
		req.Email = &sess.Email
	}

	j, err := h.exports.Start(r.Context(), req)
	if err != nil {
		h.writeExportError(w, r, err)
		return
	}

	room, err := h.rooms.GetDataroom(r.Context(), dataroomID)
	if err != nil {
		response.InternalError(w, r, "failed to load dataroom")
		return
	}

	dto := models.NewExportJob(j, room.Name, models.Timestamp(time.Now()))
	response.Accepted(w, r, "/v1/datarooms/"+dataroomID+"/exports", dto)
}

// ListExports handles GET /v1/datarooms/{dataroomID}/exports - poll export
// jobs for the session's link, newest first.
func (h *ExportHandler) ListExports(w http.ResponseWriter, r *http.Request) {
	dataroomID := chi.URLParam(r, "dataroomID")
	sess := GetSession(r.Context())
	if sess == nil {
		response.Unauthorized(w, r, "viewer session required")
		return
	}
	if sess.DataroomID != dataroomID {
		response.Error(w, r, models.NewForbidden(
			middlewareRequestID(r), "session is not valid for this dataroom"))
		return
	}

	limit := defaultJobListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			response.BadRequest(w, r, "limit must be an integer between 1 and 100", []models.FieldError{
				{Field: "limit", Message: "must be between 1 and 100"},
			})
			return
		}
		limit = parsed
	}

	room, err := h.rooms.GetDataroom(r.Context(), dataroomID)
	if err != nil {
		if errors.Is(err, dataroom.ErrDataroomNotFound) {
			response.NotFound(w, r, "dataroom not found")
			return
		}
		response.InternalError(w, r, "failed to load dataroom")
		return
	}

	jobs, err := h.exports.ListJobs(r.Context(), dataroomID, sess.LinkID, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("dataroom_id", dataroomID).Msg("failed to list export jobs")
		response.InternalError(w, r, "failed to list export jobs")
		return
	}

	now := models.Timestamp(time.Now())
	out := models.ExportJobList{Jobs: make([]models.ExportJob, 0, len(jobs))}
	for _, j := range jobs {
		out.Jobs = append(out.Jobs, models.NewExportJob(j, room.Name, now))
	}

	response.JSON(w, r, http.StatusOK, out)
}

// writeExportError maps service errors onto problem responses.
func (h *ExportHandler) writeExportError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, export.ErrExportDisabled):
		response.Error(w, r, models.NewForbidden(middlewareRequestID(r), "bulk download is disabled for this dataroom"))
	case errors.Is(err, export.ErrDownloadNotAllowed):
		response.Error(w, r, models.NewForbidden(middlewareRequestID(r), "this link does not permit downloading"))
	case errors.Is(err, export.ErrNothingToDownload):
		response.NotFound(w, r, "no downloadable files match this request")
	case errors.Is(err, dataroom.ErrDataroomNotFound):
		response.NotFound(w, r, "dataroom not found")
	case errors.Is(err, dataroom.ErrFolderNotFound):
		response.BadRequest(w, r, "folder not found in this dataroom", []models.FieldError{
			{Field: "folderId", Message: "must reference a folder in this dataroom"},
		})
	case errors.Is(err, dataroom.ErrLinkNotFound):
		response.NotFound(w, r, "link not found")
	default:
		h.logger.Error().Err(err).Msg("failed to start export")
		response.InternalError(w, r, "failed to start export")
	}
}

// clientIP resolves the requester's address, honoring proxy headers.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		// First hop is the client.
		for i := 0; i < len(fwd); i++ {
			if fwd[i] == ',' {
				return fwd[:i]
			}
		}
		return fwd
	}
	return r.RemoteAddr
}
