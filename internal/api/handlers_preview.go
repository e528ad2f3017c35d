package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/yshk0402/word-merger-app/internal/ooxml"
	"github.com/yshk0402/word-merger-app/internal/preview"
)

// maxInlineImages is how many images a preview response carries the
// raw bytes for; the rest are metadata only.
const maxInlineImages = 3

// handlePreview returns the preview text and image listing for a
// single uploaded document. A preview failure is scoped to this file;
// it never affects other uploads or merges.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !strings.EqualFold(filepath.Ext(filename), ".docx") {
		jsonError(w, fmt.Sprintf("unsupported file type: %s (only .docx)", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}
	if !ooxml.IsDocx(data) {
		jsonError(w, fmt.Sprintf("%s is not a valid .docx document", filename), http.StatusUnprocessableEntity)
		return
	}

	res, err := s.previews.Preview(data)
	if err != nil {
		s.log.Error("preview failed", "filename", filename, "error", err)
		jsonError(w, fmt.Sprintf("preview %s: %s", filename, err), http.StatusUnprocessableEntity)
		return
	}

	// Inline bytes only for the first few images; metadata for all.
	images := make([]preview.Image, len(res.Images))
	for i, img := range res.Images {
		images[i] = img
		if i >= maxInlineImages {
			images[i].Data = nil
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"filename":    filename,
		"preview":     res.Text,
		"image_count": len(res.Images),
		"images":      images,
	})
}
