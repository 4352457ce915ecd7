// ABOUTME: JSON response and query parsing helpers shared by the API handlers.

package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

const maxLimit = 10000

func writeJSON(w http.ResponseWriter, r *http.Request, logger *logrus.Entry, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	encoder := json.NewEncoder(w)
	if r.URL.Query().Get("pretty") != "" {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(v); err != nil {
		logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// parseLimit reads a non-negative limit query parameter; 0 means no limit
func parseLimit(r *http.Request) (int, string) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0, ""
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return 0, "Invalid limit parameter. Must be a positive integer"
	}
	if parsed > maxLimit {
		return 0, "Limit parameter too large. Maximum allowed is 10000"
	}
	return parsed, ""
}

func parseBool(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}
