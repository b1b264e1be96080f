package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/mathdocx/internal/docbuild"
	"github.com/dgallion1/mathdocx/internal/imageprep"
	"github.com/dgallion1/mathdocx/internal/importer"
	"github.com/dgallion1/mathdocx/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

const (
	docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

const (
	// formOverhead is allowed on top of the file bytes for multipart framing
	// and other fields.
	formOverhead    = 1 << 20
	multipartMemory = 32 << 20
	maxBatchFiles   = 20
)

// uploadError carries the HTTP status an upload was rejected with.
type uploadError struct {
	status int
	msg    string
}

func (e *uploadError) Error() string { return e.msg }

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	if !s.parseUpload(w, r, s.cfg.MaxUploadBytes+formOverhead) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		jsonError(w, "file is required", http.StatusBadRequest)
		return
	}
	job, err := s.accept(files[0])
	if err != nil {
		jsonError(w, err.msg, err.status)
		return
	}
	writeJSON(w, http.StatusAccepted, jobResponse(job))
}

func (s *Server) handleBatchConvert(w http.ResponseWriter, r *http.Request) {
	if !s.parseUpload(w, r, (s.cfg.MaxUploadBytes+formOverhead)*maxBatchFiles) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	switch {
	case len(files) == 0:
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	case len(files) > maxBatchFiles:
		jsonError(w, fmt.Sprintf("at most %d files per batch", maxBatchFiles), http.StatusBadRequest)
		return
	}

	entries := make([]map[string]any, 0, len(files))
	for _, fh := range files {
		job, err := s.accept(fh)
		if err != nil {
			entries = append(entries, map[string]any{
				"filename": sanitizeFilename(fh.Filename),
				"error":    err.msg,
				"status":   err.status,
			})
			continue
		}
		entries = append(entries, jobResponse(job))
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"jobs": entries})
}

// parseUpload caps the body at limit and parses the multipart form. It
// answers the request itself on failure.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request, limit int64) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, fmt.Sprintf("request exceeds %d bytes", limit), http.StatusRequestEntityTooLarge)
			return false
		}
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// accept validates one uploaded file and queues it as a job.
func (s *Server) accept(fh *multipart.FileHeader) (*pipeline.Job, *uploadError) {
	filename := sanitizeFilename(fh.Filename)
	if !isConvertible(filename) {
		return nil, &uploadError{http.StatusBadRequest, fmt.Sprintf("unsupported file type: %q", filepath.Ext(filename))}
	}
	if fh.Size > s.cfg.MaxUploadBytes {
		return nil, &uploadError{http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)}
	}

	f, err := fh.Open()
	if err != nil {
		return nil, &uploadError{http.StatusInternalServerError, "failed to open upload"}
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
	switch {
	case err != nil:
		return nil, &uploadError{http.StatusInternalServerError, "failed to read upload"}
	case int64(len(data)) > s.cfg.MaxUploadBytes:
		return nil, &uploadError{http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)}
	case len(data) == 0:
		return nil, &uploadError{http.StatusBadRequest, "file is empty"}
	}

	job := pipeline.NewJob(filename, data)
	if err := s.orchestrator.Submit(job); err != nil {
		return nil, &uploadError{http.StatusServiceUnavailable, err.Error()}
	}
	return job, nil
}

func (s *Server) handleConvertStatus(w http.ResponseWriter, r *http.Request) {
	job := s.jobFromRequest(w, r)
	if job == nil {
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleConvertResult(w http.ResponseWriter, r *http.Request) {
	job := s.jobFromRequest(w, r)
	if job == nil {
		return
	}
	data, name := job.Output()
	if data == nil {
		notReady(w, job)
		return
	}
	writeAttachment(w, docxContentType, name, data)
}

func (s *Server) handleConvertAnalysis(w http.ResponseWriter, r *http.Request) {
	job := s.jobFromRequest(w, r)
	if job == nil {
		return
	}
	res := job.Result()
	if res == nil {
		notReady(w, job)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleConvertTables(w http.ResponseWriter, r *http.Request) {
	job := s.jobFromRequest(w, r)
	if job == nil {
		return
	}
	res := job.Result()
	if res == nil {
		notReady(w, job)
		return
	}
	var buf bytes.Buffer
	if err := docbuild.ExportTables(res, &buf); err != nil {
		if errors.Is(err, docbuild.ErrNoTables) {
			jsonError(w, "result has no tables", http.StatusNotFound)
			return
		}
		s.log.Error("table export failed", "job_id", job.ID, "error", err)
		jsonError(w, "table export failed", http.StatusInternalServerError)
		return
	}
	name := strings.TrimSuffix(docbuild.OutputName(job.Filename), ".docx") + "_Tables.xlsx"
	writeAttachment(w, xlsxContentType, name, buf.Bytes())
}

func (s *Server) jobFromRequest(w http.ResponseWriter, r *http.Request) *pipeline.Job {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
	}
	return job
}

// notReady answers for a job whose output does not exist yet.
func notReady(w http.ResponseWriter, job *pipeline.Job) {
	snap := job.Snapshot()
	if snap.Status == pipeline.StatusFailed {
		jsonError(w, "job failed: "+strings.Join(snap.Progress.Errors, "; "), http.StatusUnprocessableEntity)
		return
	}
	jsonError(w, fmt.Sprintf("job is %s", snap.Status), http.StatusConflict)
}

func jobResponse(job *pipeline.Job) map[string]any {
	return map[string]any{
		"filename": job.Filename,
		"job_id":   job.ID,
		"status":   job.Snapshot().Status,
		"poll_url": fmt.Sprintf("/api/convert/%s/status", job.ID),
	}
}

func writeAttachment(w http.ResponseWriter, contentType, name string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.Write(data)
}

func isConvertible(filename string) bool {
	return imageprep.IsImage(filename) ||
		importer.IsSupportedExtension(filename) ||
		strings.EqualFold(filepath.Ext(filename), ".json")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
