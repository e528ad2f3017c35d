package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/yshk0402/word-merger-app/internal/merge"
	"github.com/yshk0402/word-merger-app/internal/pipeline"
)

// DocxContentType is the MIME type of a WordprocessingML document.
const DocxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// handleMerge merges the uploaded documents synchronously and replies
// with the combined .docx as a download.
func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	sources, ok := s.readSources(w, r)
	if !ok {
		return
	}
	keepStyles, keepImages := s.readFlags(r)
	outputName := s.readOutputName(r)

	blob, err := merge.Merge(sources, merge.Options{
		KeepStyles: keepStyles,
		KeepImages: keepImages,
	})
	if err != nil {
		s.log.Error("merge failed", "error", err, "sources", len(sources))
		jsonError(w, err.Error(), mergeStatusCode(err))
		return
	}

	w.Header().Set("Content-Type", DocxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", outputName))
	w.Header().Set("Content-Length", strconv.Itoa(len(blob)))
	w.Header().Set("ETag", `"`+pipeline.ContentHashHex(blob)+`"`)
	w.Write(blob)
}

// handleMergeAsync queues a merge job and replies with poll URLs.
func (s *Server) handleMergeAsync(w http.ResponseWriter, r *http.Request) {
	sources, ok := s.readSources(w, r)
	if !ok {
		return
	}
	keepStyles, keepImages := s.readFlags(r)

	now := time.Now()
	job := &pipeline.Job{
		ID:         pipeline.NewJobID(),
		Status:     pipeline.StatusQueued,
		Phase:      "queued",
		OutputName: s.readOutputName(r),
		KeepStyles: keepStyles,
		KeepImages: keepImages,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	job.SetSources(sources)

	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":     job.ID,
		"status":     job.Status,
		"poll_url":   fmt.Sprintf("/api/merge/%s/status", job.ID),
		"result_url": fmt.Sprintf("/api/merge/%s/result", job.ID),
	})
}

func (s *Server) handleMergeStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

func (s *Server) handleMergeResult(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}

	snap := job.Snapshot()
	switch snap.Status {
	case pipeline.StatusCompleted:
	case pipeline.StatusFailed:
		jsonError(w, strings.Join(snap.Errors, "; "), http.StatusUnprocessableEntity)
		return
	default:
		jsonError(w, fmt.Sprintf("job is %s", snap.Status), http.StatusConflict)
		return
	}

	blob := job.Result()
	w.Header().Set("Content-Type", DocxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", snap.OutputName))
	w.Header().Set("Content-Length", strconv.Itoa(len(blob)))
	w.Header().Set("ETag", `"`+snap.ResultHash+`"`)
	w.Write(blob)
}

// readSources parses the multipart form and collects the ordered
// source documents. The order of the "files" parts is the merge
// order. On failure it writes the error response and returns !ok.
func (s *Server) readSources(w http.ResponseWriter, r *http.Request) ([]merge.Source, bool) {
	// Limit total request size, with slack for form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return nil, false
	}
	if len(files) > s.cfg.MaxSources {
		jsonError(w, fmt.Sprintf("too many files: %d (max %d)", len(files), s.cfg.MaxSources), http.StatusBadRequest)
		return nil, false
	}

	var total int64
	sources := make([]merge.Source, 0, len(files))
	for _, fh := range files {
		filename := sanitizeFilename(fh.Filename)
		if !strings.EqualFold(filepath.Ext(filename), ".docx") {
			jsonError(w, fmt.Sprintf("unsupported file type: %s (only .docx)", filepath.Ext(filename)), http.StatusBadRequest)
			return nil, false
		}

		f, err := fh.Open()
		if err != nil {
			jsonError(w, fmt.Sprintf("failed to open %s", filename), http.StatusBadRequest)
			return nil, false
		}
		data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
		f.Close()
		if err != nil {
			jsonError(w, fmt.Sprintf("failed to read %s", filename), http.StatusInternalServerError)
			return nil, false
		}
		total += int64(len(data))
		if total > s.cfg.MaxUploadBytes {
			jsonError(w, fmt.Sprintf("upload exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return nil, false
		}

		sources = append(sources, merge.Source{Name: filename, Data: data})
	}
	return sources, true
}

// readFlags reads keep_styles/keep_images, falling back to the
// configured defaults.
func (s *Server) readFlags(r *http.Request) (keepStyles, keepImages bool) {
	keepStyles = formBool(r, "keep_styles", s.cfg.DefaultKeepStyles)
	keepImages = formBool(r, "keep_images", s.cfg.DefaultKeepImages)
	return keepStyles, keepImages
}

// readOutputName resolves the download filename, guaranteeing a safe
// name with a .docx extension.
func (s *Server) readOutputName(r *http.Request) string {
	name := sanitizeFilename(r.FormValue("output_name"))
	if name == "" || name == "unnamed" {
		return s.cfg.DefaultOutputName
	}
	if !strings.EqualFold(filepath.Ext(name), ".docx") {
		name += ".docx"
	}
	return name
}

// mergeStatusCode maps a merge failure to an HTTP status: bad input
// documents are the client's fault, everything else is ours.
func mergeStatusCode(err error) int {
	if errors.Is(err, merge.ErrNoSources) {
		return http.StatusBadRequest
	}
	var merr *merge.Error
	if errors.As(err, &merr) && merr.Stage == merge.StageParse {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func formBool(r *http.Request, key string, fallback bool) bool {
	v := r.FormValue(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
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
