// ABOUTME: HTTP handlers for patch state, applied-update history and commit-message summaries.
// ABOUTME: POST /history is the hook an external apply step uses to record an update.

package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jfeddern/PatchRelay/internal/types"

	"github.com/sirupsen/logrus"
)

const maxHistoryBody = 1 << 20

type HistoryProvider interface {
	ReadPatchState() types.PatchState
	ReadPatchHistory(projectID string, limit int) []types.PatchHistoryEntry
	RecordUpdate(entry types.PatchHistoryEntry) (types.PatchHistoryEntry, error)
	CommitMessage(projectID string) string
}

type HistoryHandler struct {
	collector HistoryProvider
	logger    *logrus.Logger
}

type HistoryResponse struct {
	History []types.PatchHistoryEntry `json:"history"`
}

type CommitMessageResponse struct {
	ProjectID string `json:"projectId,omitempty"`
	Message   string `json:"message"`
}

func NewHistoryHandler(collector HistoryProvider, logger *logrus.Logger) *HistoryHandler {
	return &HistoryHandler{
		collector: collector,
		logger:    logger,
	}
}

// State serves GET /state
func (h *HistoryHandler) State(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.WithField("endpoint", "/state")
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, r, logger, http.StatusOK, h.collector.ReadPatchState())
}

// History serves GET and POST /history
func (h *HistoryHandler) History(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.WithField("endpoint", "/history")

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		limit, msg := parseLimit(r)
		if msg != "" {
			http.Error(w, msg, http.StatusBadRequest)
			return
		}
		projectID := strings.TrimSpace(r.URL.Query().Get("project"))
		writeJSON(w, r, logger, http.StatusOK, HistoryResponse{
			History: h.collector.ReadPatchHistory(projectID, limit),
		})

	case http.MethodPost:
		var entry types.PatchHistoryEntry
		decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxHistoryBody))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&entry); err != nil {
			http.Error(w, "Invalid history entry: "+err.Error(), http.StatusBadRequest)
			return
		}
		if msg := validateEntry(entry); msg != "" {
			http.Error(w, msg, http.StatusBadRequest)
			return
		}

		stored, err := h.collector.RecordUpdate(entry)
		if err != nil {
			logger.WithError(err).Error("Failed to record update")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, r, logger, http.StatusCreated, stored)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// CommitMessage serves GET /history/commit-message
func (h *HistoryHandler) CommitMessage(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.WithField("endpoint", "/history/commit-message")
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	projectID := strings.TrimSpace(r.URL.Query().Get("project"))
	writeJSON(w, r, logger, http.StatusOK, CommitMessageResponse{
		ProjectID: projectID,
		Message:   h.collector.CommitMessage(projectID),
	})
}

func validateEntry(entry types.PatchHistoryEntry) string {
	if entry.ProjectID == "" || entry.Package == "" {
		return "projectId and package are required"
	}
	if entry.ID != "" {
		return "id is assigned by the server"
	}
	switch entry.Trigger {
	case types.TriggerManual, types.TriggerAuto:
	default:
		return "trigger must be one of: manual, auto"
	}
	switch entry.UpdateType {
	case types.UpdateMajor, types.UpdateMinor, types.UpdatePatch:
	default:
		return "updateType must be one of: major, minor, patch"
	}
	return ""
}
