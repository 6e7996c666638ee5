package api

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

const reportsDir = "reports"

// ReportsHandler serves previously exported health report files.
type ReportsHandler struct {
	workspaceRoot string
}

// NewReportsHandler creates a handler rooted at the workspace directory.
func NewReportsHandler(workspaceRoot string) *ReportsHandler {
	return &ReportsHandler{workspaceRoot: workspaceRoot}
}

func (h *ReportsHandler) reportsPath() string {
	return filepath.Join(h.workspaceRoot, reportsDir)
}

// safeName validates that the filename is a plain name (no path separators,
// no traversal) and returns the absolute path under the reports dir.
func (h *ReportsHandler) safeName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("filename is required")
	}
	// Reject anything with path separators or traversal.
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("invalid filename: %s", name)
	}
	abs := filepath.Join(h.reportsPath(), cleaned)
	// Double-check the resolved path is under the reports dir.
	if !strings.HasPrefix(abs, h.reportsPath()+string(os.PathSeparator)) && abs != h.reportsPath() {
		return "", fmt.Errorf("path escapes reports directory")
	}
	return abs, nil
}

// ServeFile handles GET /api/reports/{filename}.
//
//	@Summary		Download an exported health report file
//	@Tags			health
//	@Produce		octet-stream
//	@Param			filename	path	string	true	"Report filename"
//	@Success		200			"Report file contents"
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/reports/{filename} [get]
func (h *ReportsHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	abs, err := h.safeName(filename)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if _, statErr := os.Stat(abs); os.IsNotExist(statErr) {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	http.ServeFile(w, r, abs)
}
