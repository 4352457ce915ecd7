// ABOUTME: HTTP handlers that trigger scans and invalidate project caches.
// ABOUTME: A full forced scan is sequential and can take minutes; the response carries failed projects.

package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/jfeddern/PatchRelay/internal/engine"
	"github.com/jfeddern/PatchRelay/internal/types"

	"github.com/sirupsen/logrus"
)

type ScanProvider interface {
	Projects() []types.ProjectConfig
	Project(id string) (types.ProjectConfig, bool)
	ScanProject(ctx context.Context, project types.ProjectConfig, force bool) (*types.ProjectPatchCache, error)
	ScanAll(ctx context.Context, projects []types.ProjectConfig) (*engine.ScanResult, error)
	InvalidateProjectCache(projectID string) error
}

type ScanHandler struct {
	collector ScanProvider
	logger    *logrus.Logger
}

func NewScanHandler(collector ScanProvider, logger *logrus.Logger) *ScanHandler {
	return &ScanHandler{
		collector: collector,
		logger:    logger,
	}
}

// Scan serves POST /scan. With a project it scans that project (cache first unless
// force is set); without one it force-rescans every project.
func (s *ScanHandler) Scan(w http.ResponseWriter, r *http.Request) {
	logger := s.logger.WithField("endpoint", "/scan")
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	projectID := strings.TrimSpace(r.URL.Query().Get("project"))
	if projectID == "" {
		result, err := s.collector.ScanAll(r.Context(), s.collector.Projects())
		if err != nil {
			logger.WithError(err).Warn("Full scan aborted")
			http.Error(w, "Scan aborted", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, r, logger, http.StatusOK, result)
		return
	}

	project, ok := s.collector.Project(projectID)
	if !ok {
		http.Error(w, "Unknown project", http.StatusNotFound)
		return
	}

	entry, err := s.collector.ScanProject(r.Context(), project, parseBool(r, "force"))
	if err != nil {
		logger.WithError(err).WithField("project", projectID).Warn("Project scan failed")
		if errors.Is(err, engine.ErrScanIncomplete) {
			http.Error(w, "Scan incomplete: package manager produced no usable output", http.StatusBadGateway)
			return
		}
		http.Error(w, "Scan failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, logger, http.StatusOK, entry)
}

// Invalidate serves POST /invalidate?project=
func (s *ScanHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	logger := s.logger.WithField("endpoint", "/invalidate")
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	projectID := strings.TrimSpace(r.URL.Query().Get("project"))
	if projectID == "" {
		http.Error(w, "project parameter is required", http.StatusBadRequest)
		return
	}
	if err := s.collector.InvalidateProjectCache(projectID); err != nil {
		logger.WithError(err).Error("Failed to invalidate cache")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
