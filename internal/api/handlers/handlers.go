package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/dre-engine/internal/api/middleware"
	"github.com/dvloznov/dre-engine/internal/domain"
	"github.com/dvloznov/dre-engine/internal/filestore"
	"github.com/dvloznov/dre-engine/internal/jobs"
	"github.com/dvloznov/dre-engine/internal/logger"
	"github.com/dvloznov/dre-engine/internal/store"
	"github.com/google/uuid"
)

// DefaultMaxUpload bounds uploaded spreadsheets when no limit is configured.
const DefaultMaxUpload = 32 << 20

// Archiver keeps a durable copy of an uploaded spreadsheet.
type Archiver interface {
	UploadBytes(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// remoteSchemes are the source URIs a client may ask the server to fetch.
// Local paths are only reachable from the CLI.
var remoteSchemes = map[string]bool{"gs": true, "drive": true}

// ImportsHandler handles spreadsheet import endpoints.
type ImportsHandler struct {
	publisher jobs.Publisher
	jobs      jobs.JobStore
	uploads   *filestore.Memory
	archive   Archiver
	maxUpload int64
}

// NewImportsHandler creates an imports handler. archive may be nil.
func NewImportsHandler(publisher jobs.Publisher, jobStore jobs.JobStore, uploads *filestore.Memory, archive Archiver, maxUpload int64) *ImportsHandler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	return &ImportsHandler{
		publisher: publisher,
		jobs:      jobStore,
		uploads:   uploads,
		archive:   archive,
		maxUpload: maxUpload,
	}
}

type importRequest struct {
	SourceURI string `json:"source_uri"`
	Owner     string `json:"owner"`
	FileName  string `json:"file_name"`
}

// CreateImport handles POST /api/imports. It accepts either a multipart
// upload with a "file" part or a JSON body naming a gs:// or drive:// source.
func (h *ImportsHandler) CreateImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var job *jobs.ImportJob
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		file, status, err := readUpload(w, r, h.maxUpload)
		if err != nil {
			middleware.WriteError(w, status, err.Error())
			return
		}

		job = &jobs.ImportJob{
			Owner:       ownerOf(r, r.FormValue("owner")),
			SourceURI:   h.uploads.Put(file),
			FileName:    file.Name,
			ContentType: file.ContentType,
		}
		if h.archive != nil {
			uri, err := h.archive.UploadBytes(ctx, file.Name, file.ContentType, file.Data)
			if err != nil {
				log.Warn().Err(err).Str("file", file.Name).Msg("Failed to archive upload")
			} else {
				job.ArchiveURI = uri
			}
		}
	} else {
		var req importRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		scheme, ref := filestore.SplitURI(req.SourceURI)
		if !remoteSchemes[scheme] || ref == "" {
			middleware.WriteError(w, http.StatusBadRequest, "source_uri must be a gs:// or drive:// URI")
			return
		}
		job = &jobs.ImportJob{
			Owner:     ownerOf(r, req.Owner),
			SourceURI: req.SourceURI,
			FileName:  req.FileName,
		}
	}

	job.JobID = uuid.NewString()
	job.Status = jobs.JobStatusPending
	job.CreatedAt = time.Now()

	// Workers update job as soon as it is published, so the response is
	// built from a copy taken before.
	queued := *job

	if err := h.publisher.PublishImport(ctx, job); err != nil {
		log.Error().Err(err).Str("source", queued.SourceURI).Msg("Failed to publish import job")
		if strings.HasPrefix(queued.SourceURI, "mem://") {
			h.uploads.Delete(queued.SourceURI)
		}
		middleware.WriteError(w, http.StatusServiceUnavailable, "Failed to queue import")
		return
	}

	log.Info().Str("job_id", queued.JobID).Str("owner", store.Owner(queued.Owner)).Msg("Import queued")
	middleware.WriteJSON(w, http.StatusAccepted, importResponse(queued))
}

// importResponse is the body of a 202 from CreateImport.
func importResponse(job jobs.ImportJob) map[string]interface{} {
	resp := map[string]interface{}{
		"job_id":     job.JobID,
		"status":     job.Status,
		"owner":      store.Owner(job.Owner),
		"source_uri": job.SourceURI,
		"created_at": job.CreatedAt,
	}
	if job.FileName != "" {
		resp["file_name"] = job.FileName
	}
	if job.ArchiveURI != "" {
		resp["archive_uri"] = job.ArchiveURI
	}
	return resp
}

// GetImport handles GET /api/imports/{id}
func (h *ImportsHandler) GetImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	jobID := r.PathValue("id")
	if jobID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	job, err := h.jobs.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListImports handles GET /api/imports
func (h *ImportsHandler) ListImports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	filter := jobs.JobFilter{
		Owner:  query.Get("owner"),
		Status: jobs.JobStatus(query.Get("status")),
		Limit:  50,
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		filter.Limit = limit
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid offset")
			return
		}
		filter.Offset = offset
	}

	list, err := h.jobs.ListJobs(ctx, filter)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  list,
		"count": len(list),
	})
}

// Previewer parses a spreadsheet without storing it.
type Previewer interface {
	Preview(ctx context.Context, data []byte, name, contentType string) ([]domain.FinancialRecord, error)
}

// PreviewHandler handles POST /api/preview.
type PreviewHandler struct {
	parser    Previewer
	maxUpload int64
}

// NewPreviewHandler creates a preview handler.
func NewPreviewHandler(parser Previewer, maxUpload int64) *PreviewHandler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	return &PreviewHandler{parser: parser, maxUpload: maxUpload}
}

// Preview parses the uploaded "file" part and returns the records.
func (h *PreviewHandler) Preview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	file, status, err := readUpload(w, r, h.maxUpload)
	if err != nil {
		middleware.WriteError(w, status, err.Error())
		return
	}

	records, err := h.parser.Preview(ctx, file.Data, file.Name, file.ContentType)
	if err != nil {
		if domain.IsInputError(err) {
			middleware.WriteError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("file", file.Name).Msg("Failed to parse spreadsheet")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to parse spreadsheet")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"file":    file.Name,
		"records": records,
		"count":   len(records),
	})
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readUpload reads the "file" part of a multipart request.
func readUpload(w http.ResponseWriter, r *http.Request, limit int64) (filestore.File, int, error) {
	if r.ContentLength > limit {
		return filestore.File{}, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds %d bytes", limit)
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return filestore.File{}, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds %d bytes", limit)
		}
		return filestore.File{}, http.StatusBadRequest, fmt.Errorf("invalid multipart form")
	}

	part, header, err := r.FormFile("file")
	if err != nil {
		return filestore.File{}, http.StatusBadRequest, fmt.Errorf("file is required")
	}
	defer part.Close()

	data, err := io.ReadAll(part)
	if err != nil {
		return filestore.File{}, http.StatusBadRequest, fmt.Errorf("reading upload: %v", err)
	}
	if len(data) == 0 {
		return filestore.File{}, http.StatusBadRequest, fmt.Errorf("file is empty")
	}

	return filestore.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, http.StatusOK, nil
}

// ownerOf picks the record owner from an explicit value, the owner query
// parameter or the X-Owner header, in that order.
func ownerOf(r *http.Request, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if o := r.URL.Query().Get("owner"); o != "" {
		return o
	}
	return r.Header.Get("X-Owner")
}
