// ABOUTME: Tests for the Prometheus metrics handler.
// ABOUTME: Covers gauge population, stale-series reset, engine collectors and label sanitization.

package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jfeddern/PatchRelay/internal/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockPatchDataProvider struct {
	state      types.PatchState
	summary    types.PatchSummary
	builtAt    time.Time
	collectors []prometheus.Collector
}

func (m *MockPatchDataProvider) ReadPatchState() types.PatchState {
	return m.state
}

func (m *MockPatchDataProvider) QueueSummary() (types.PatchSummary, time.Time) {
	return m.summary, m.builtAt
}

func (m *MockPatchDataProvider) Collectors() []prometheus.Collector {
	return m.collectors
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func scrape(t *testing.T, handler http.Handler) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestMetricsHandler_ServeHTTP(t *testing.T) {
	checked := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	scans := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "patchrelay_scans_total", Help: "scans"}, []string{"result"})
	scans.WithLabelValues("fresh").Add(3)

	provider := &MockPatchDataProvider{
		state: types.PatchState{
			LastFullScan: checked,
			Projects: map[string]types.ProjectState{
				"web": {OutdatedCount: 4, VulnCount: 3, CriticalCount: 1, LastChecked: checked},
				"api": {OutdatedCount: 0, VulnCount: 0},
			},
		},
		summary:    types.PatchSummary{Critical: 1, High: 2, OutdatedPatch: 5},
		builtAt:    checked,
		collectors: []prometheus.Collector{scans},
	}

	body := scrape(t, NewMetricsHandler(provider, testLogger()))

	expected := []string{
		`patchrelay_project_outdated_packages{project="web"} 4`,
		`patchrelay_project_vulnerabilities{project="web"} 3`,
		`patchrelay_project_critical_vulnerabilities{project="web"} 1`,
		`patchrelay_project_outdated_packages{project="api"} 0`,
		`patchrelay_project_last_checked_timestamp{project="web"} 1.7408304e+09`,
		`patchrelay_last_full_scan_timestamp 1.7408304e+09`,
		`patchrelay_queue_summary{kind="critical"} 1`,
		`patchrelay_queue_summary{kind="high"} 2`,
		`patchrelay_queue_summary{kind="outdated_patch"} 5`,
		`patchrelay_scans_total{result="fresh"} 3`,
	}
	for _, line := range expected {
		assert.Contains(t, body, line)
	}
	assert.NotContains(t, body, `patchrelay_project_last_checked_timestamp{project="api"}`)
}

func TestMetricsHandler_ResetsStaleSeries(t *testing.T) {
	provider := &MockPatchDataProvider{
		state: types.PatchState{Projects: map[string]types.ProjectState{"old": {OutdatedCount: 1}}},
	}
	handler := NewMetricsHandler(provider, testLogger())

	assert.Contains(t, scrape(t, handler), `project="old"`)

	provider.state = types.PatchState{Projects: map[string]types.ProjectState{"new": {OutdatedCount: 2}}}
	body := scrape(t, handler)
	assert.NotContains(t, body, `project="old"`)
	assert.Contains(t, body, `patchrelay_project_outdated_packages{project="new"} 2`)
}

func TestMetricsHandler_NoQueueBuiltYet(t *testing.T) {
	provider := &MockPatchDataProvider{state: types.PatchState{Projects: map[string]types.ProjectState{}}}

	body := scrape(t, CreateMetricsHandler(provider, testLogger()))

	assert.NotContains(t, body, "patchrelay_queue_summary{")
	assert.Contains(t, body, "patchrelay_last_full_scan_timestamp 0")
}

func TestSanitizeLabelValue(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty", input: "", expected: "unknown"},
		{name: "plain", input: "web", expected: "web"},
		{name: "control characters", input: "my\napp\tx\r", expected: "my app x"},
		{name: "truncated", input: strings.Repeat("a", 250), expected: strings.Repeat("a", 200) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeLabelValue(tt.input))
		})
	}
}
