// ABOUTME: Prometheus metrics exposition for per-project patch state and the remediation queue.
// ABOUTME: Rebuilds gauges from the state store on every scrape using a per-request registry.

package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/jfeddern/PatchRelay/internal/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type PatchDataProvider interface {
	ReadPatchState() types.PatchState
	QueueSummary() (types.PatchSummary, time.Time)
	Collectors() []prometheus.Collector
}

type MetricsHandler struct {
	collector PatchDataProvider
	logger    *logrus.Logger

	// Per-project counters from the state store
	outdatedPackages        *prometheus.GaugeVec
	vulnerabilities         *prometheus.GaugeVec
	criticalVulnerabilities *prometheus.GaugeVec
	lastChecked             *prometheus.GaugeVec

	lastFullScan prometheus.Gauge
	queueSummary *prometheus.GaugeVec
}

func NewMetricsHandler(collector PatchDataProvider, logger *logrus.Logger) *MetricsHandler {
	return &MetricsHandler{
		collector: collector,
		logger:    logger,

		outdatedPackages: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "patchrelay_project_outdated_packages",
				Help: "Number of outdated packages reported by the last scan of a project",
			},
			[]string{"project"},
		),

		vulnerabilities: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "patchrelay_project_vulnerabilities",
				Help: "Number of vulnerability findings reported by the last scan of a project",
			},
			[]string{"project"},
		),

		criticalVulnerabilities: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "patchrelay_project_critical_vulnerabilities",
				Help: "Number of critical vulnerability findings reported by the last scan of a project",
			},
			[]string{"project"},
		),

		lastChecked: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "patchrelay_project_last_checked_timestamp",
				Help: "Unix timestamp of the last scan of a project",
			},
			[]string{"project"},
		),

		lastFullScan: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "patchrelay_last_full_scan_timestamp",
				Help: "Unix timestamp of the last state update across all projects",
			},
		),

		queueSummary: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "patchrelay_queue_summary",
				Help: "Counts from the most recent queue build by kind",
			},
			[]string{"kind"},
		),
	}
}

func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Create a new registry for this request to avoid conflicts
	registry := prometheus.NewRegistry()

	registry.MustRegister(m.outdatedPackages)
	registry.MustRegister(m.vulnerabilities)
	registry.MustRegister(m.criticalVulnerabilities)
	registry.MustRegister(m.lastChecked)
	registry.MustRegister(m.lastFullScan)
	registry.MustRegister(m.queueSummary)
	for _, c := range m.collector.Collectors() {
		if err := registry.Register(c); err != nil {
			m.logger.WithError(err).Warn("Failed to register engine collector")
		}
	}

	// Reset all metrics to avoid stale data
	m.outdatedPackages.Reset()
	m.vulnerabilities.Reset()
	m.criticalVulnerabilities.Reset()
	m.lastChecked.Reset()
	m.queueSummary.Reset()

	state := m.collector.ReadPatchState()
	for projectID, counts := range state.Projects {
		project := sanitizeLabelValue(projectID)
		m.outdatedPackages.WithLabelValues(project).Set(float64(counts.OutdatedCount))
		m.vulnerabilities.WithLabelValues(project).Set(float64(counts.VulnCount))
		m.criticalVulnerabilities.WithLabelValues(project).Set(float64(counts.CriticalCount))
		if !counts.LastChecked.IsZero() {
			m.lastChecked.WithLabelValues(project).Set(float64(counts.LastChecked.Unix()))
		}
	}

	m.lastFullScan.Set(0)
	if !state.LastFullScan.IsZero() {
		m.lastFullScan.Set(float64(state.LastFullScan.Unix()))
	}

	summary, builtAt := m.collector.QueueSummary()
	if !builtAt.IsZero() {
		m.queueSummary.WithLabelValues("critical").Set(float64(summary.Critical))
		m.queueSummary.WithLabelValues("high").Set(float64(summary.High))
		m.queueSummary.WithLabelValues("moderate").Set(float64(summary.Moderate))
		m.queueSummary.WithLabelValues("outdated_major").Set(float64(summary.OutdatedMajor))
		m.queueSummary.WithLabelValues("outdated_minor").Set(float64(summary.OutdatedMinor))
		m.queueSummary.WithLabelValues("outdated_patch").Set(float64(summary.OutdatedPatch))
	}

	m.logger.WithField("projects", len(state.Projects)).Debug("Serving patch metrics")

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	handler.ServeHTTP(w, r)
}

// sanitizeLabelValue cleans strings for use as Prometheus labels
func sanitizeLabelValue(value string) string {
	if value == "" {
		return "unknown"
	}

	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\t", " ")

	// Limit length to prevent excessive label sizes
	if len(value) > 200 {
		value = value[:200] + "..."
	}

	return strings.TrimSpace(value)
}

// CreateMetricsHandler creates a standard HTTP handler that can be used with http.ServeMux
func CreateMetricsHandler(dataProvider PatchDataProvider, logger *logrus.Logger) http.HandlerFunc {
	metricsHandler := NewMetricsHandler(dataProvider, logger)
	return metricsHandler.ServeHTTP
}
