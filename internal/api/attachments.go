package api

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxUploadBytes = 50 << 20 // 50 MB

// imageExts lists the file extensions accepted for card images.
var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// AttachmentHandler stores and serves card image files.
type AttachmentHandler struct {
	dir string
}

// NewAttachmentHandler creates a handler rooted at the attachments directory.
func NewAttachmentHandler(dir string) *AttachmentHandler {
	return &AttachmentHandler{dir: dir}
}

// safeName validates that the filename is a plain image name (no path
// separators, no traversal) and returns the absolute path under the
// attachments dir.
func (h *AttachmentHandler) safeName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("filename is required")
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("invalid filename: %s", name)
	}
	if !imageExts[strings.ToLower(filepath.Ext(cleaned))] {
		return "", fmt.Errorf("unsupported image type: %s", name)
	}
	abs := filepath.Join(h.dir, cleaned)
	// Double-check the resolved path is under the attachments dir.
	if !strings.HasPrefix(abs, h.dir+string(os.PathSeparator)) && abs != h.dir {
		return "", fmt.Errorf("path escapes attachments directory")
	}
	return abs, nil
}

// ServeFile handles GET /attachments/{filename}.
func (h *AttachmentHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	abs, err := h.safeName(filename)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, statErr := os.Stat(abs); os.IsNotExist(statErr) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}

// Upload handles POST /api/attachments (multipart/form-data, field "file").
// The returned URL is what callers put in a card's imageUrl field.
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	abs, err := h.safeName(header.Filename)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to create attachments dir"))
		return
	}

	name := filepath.Base(abs)
	// A repeated filename must not clobber another card's image.
	if _, statErr := os.Stat(abs); statErr == nil {
		ext := filepath.Ext(name)
		name = strings.TrimSuffix(name, ext) + "-" + uuid.NewString()[:8] + ext
		abs = filepath.Join(h.dir, name)
	}

	dst, err := os.Create(abs)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to create file"))
		return
	}
	defer dst.Close()

	written, err := io.Copy(dst, file)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to write file"))
		return
	}

	writeJSON(w, http.StatusCreated, AttachmentUploadResponse{
		Filename: name,
		Size:     written,
		URL:      "/attachments/" + name,
	})
}
