// ABOUTME: HTTP handler for the global remediation queue endpoint.
// ABOUTME: Builds the queue from project caches and applies query-time filters.

package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/jfeddern/PatchRelay/internal/engine"
	"github.com/jfeddern/PatchRelay/internal/queue"
	"github.com/jfeddern/PatchRelay/internal/types"

	"github.com/sirupsen/logrus"
)

type QueueProvider interface {
	Projects() []types.ProjectConfig
	BuildQueue(ctx context.Context, projects []types.ProjectConfig) engine.QueueResult
}

type QueueHandler struct {
	collector QueueProvider
	logger    *logrus.Logger
}

type QueueResponse struct {
	Queue   []types.PatchQueueItem `json:"queue"`
	Summary types.PatchSummary     `json:"summary"`
	Total   int                    `json:"total"`
}

func NewQueueHandler(collector QueueProvider, logger *logrus.Logger) *QueueHandler {
	return &QueueHandler{
		collector: collector,
		logger:    logger,
	}
}

func (q *QueueHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := q.logger.WithField("endpoint", "/queue")
	query := r.URL.Query()

	filter := queue.Filter{
		ProjectID: strings.TrimSpace(query.Get("project")),
	}

	if raw := strings.TrimSpace(query.Get("include_held")); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			http.Error(w, "Invalid include_held value. Must be true or false", http.StatusBadRequest)
			return
		}
		filter.ExcludeHeld = !include
	}

	if t := strings.ToLower(strings.TrimSpace(query.Get("type"))); t != "" {
		switch types.ItemType(t) {
		case types.ItemVulnerability, types.ItemOutdated:
			filter.Type = types.ItemType(t)
		default:
			http.Error(w, "Invalid type filter. Must be one of: vulnerability, outdated", http.StatusBadRequest)
			return
		}
	}

	if s := strings.ToLower(strings.TrimSpace(query.Get("severity"))); s != "" {
		severity := types.ParseSeverity(s)
		if severity == types.SeverityInfo && s != string(types.SeverityInfo) {
			http.Error(w, "Invalid severity filter. Must be one of: critical, high, moderate, low, info", http.StatusBadRequest)
			return
		}
		filter.Severity = severity
	}

	limit, msg := parseLimit(r)
	if msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}
	filter.Limit = limit

	if len(filter.ProjectID) > 200 {
		http.Error(w, "Project filter too long. Maximum allowed is 200 characters", http.StatusBadRequest)
		return
	}

	projects := q.collector.Projects()
	result := q.collector.BuildQueue(r.Context(), projects)
	items := filter.Apply(result.Queue)

	writeJSON(w, r, logger, http.StatusOK, QueueResponse{
		Queue:   items,
		Summary: result.Summary,
		Total:   len(result.Queue),
	})

	logger.WithFields(logrus.Fields{
		"projects": len(projects),
		"items":    len(items),
		"total":    len(result.Queue),
	}).Info("Served queue response")
}

// CreateQueueHandler creates a standard HTTP handler
func CreateQueueHandler(dataProvider QueueProvider, logger *logrus.Logger) http.HandlerFunc {
	handler := NewQueueHandler(dataProvider, logger)
	return handler.ServeHTTP
}
