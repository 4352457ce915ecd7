// ABOUTME: Tests for the HTTP exporter, middleware, logging setup and CLI commands.
// ABOUTME: CLI tests run the real command tree in mock mode against temporary projects.

package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jfeddern/PatchRelay/internal/config"
	"github.com/jfeddern/PatchRelay/internal/engine"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel) // Minimize test output
	return logger
}

// writeConfig creates two mock-mode projects (pnpm and npm) and a config file for them
func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()

	web := filepath.Join(dir, "web")
	api := filepath.Join(dir, "api")
	require.NoError(t, os.MkdirAll(web, 0o755))
	require.NoError(t, os.MkdirAll(api, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(web, "pnpm-lock.yaml"), []byte("lockfileVersion: '9.0'\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(api, "package-lock.json"), []byte("{}"), 0o644))

	dataDir := filepath.Join(dir, "data")
	cfg := "mock: true\n" +
		"log_level: error\n" +
		"data_dir: " + dataDir + "\n" +
		"projects:\n" +
		"  - id: web\n    name: Web\n    path: " + web + "\n    holds: [vite]\n" +
		"  - id: api\n    name: API\n    path: " + api + "\n"

	path := filepath.Join(dir, "patchrelay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path, dataDir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestHealthHandler(t *testing.T) {
	exporter := &Exporter{config: &config.Config{}, logger: testLogger()}

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	exporter.healthHandler(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"status":"ok"}`, strings.TrimSpace(w.Body.String()))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestSecurityMiddleware(t *testing.T) {
	exporter := &Exporter{config: &config.Config{}, logger: testLogger()}

	securedHandler := exporter.securityMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		method         string
		expectedStatus int
	}{
		{method: "GET", expectedStatus: http.StatusOK},
		{method: "HEAD", expectedStatus: http.StatusOK},
		{method: "POST", expectedStatus: http.StatusOK},
		{method: "PUT", expectedStatus: http.StatusMethodNotAllowed},
		{method: "DELETE", expectedStatus: http.StatusMethodNotAllowed},
		{method: "PATCH", expectedStatus: http.StatusMethodNotAllowed},
	}

	expectedHeaders := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"X-XSS-Protection":        "1; mode=block",
		"Referrer-Policy":         "strict-origin-when-cross-origin",
		"Content-Security-Policy": "default-src 'none'; script-src 'none'; object-src 'none'; frame-ancestors 'none'",
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/test", nil)
			w := httptest.NewRecorder()
			securedHandler(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			for header, expected := range expectedHeaders {
				assert.Equal(t, expected, w.Header().Get(header), header)
			}
		})
	}
}

func TestSecurityMiddlewareRequestLogging(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	logger.SetOutput(io.Discard)

	var logEntries []logrus.Entry
	logger.AddHook(&testHook{entries: &logEntries})

	exporter := &Exporter{config: &config.Config{}, logger: logger}
	securedHandler := exporter.securityMiddleware(func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest("POST", "/scan", nil)
	req.Header.Set("User-Agent", "test-user-agent")
	securedHandler(httptest.NewRecorder(), req)

	require.Len(t, logEntries, 1)
	assert.Equal(t, "HTTP request received", logEntries[0].Message)
	assert.Equal(t, "POST", logEntries[0].Data["method"])
	assert.Equal(t, "/scan", logEntries[0].Data["path"])
	assert.Equal(t, "test-user-agent", logEntries[0].Data["user_agent"])
}

// Test hook to capture log entries
type testHook struct {
	entries *[]logrus.Entry
}

func (h *testHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *testHook) Fire(entry *logrus.Entry) error {
	*h.entries = append(*h.entries, *entry)
	return nil
}

func TestNewLogger(t *testing.T) {
	t.Run("invalid level", func(t *testing.T) {
		_, _, err := newLogger(&config.Config{LogLevel: "loud"}, io.Discard)
		assert.Error(t, err)
	})

	t.Run("rotating file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "patchrelay.log")
		var stderr bytes.Buffer

		logger, closeFn, err := newLogger(&config.Config{LogLevel: "debug", LogFile: path}, &stderr)
		require.NoError(t, err)
		assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

		logger.WithField("project", "web").Info("hello")
		closeFn()

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"msg":"hello"`)
		assert.Contains(t, stderr.String(), `"project":"web"`)
	})
}

func TestExporterRoutes(t *testing.T) {
	configPath, _ := writeConfig(t)
	cfgCLI := &cli{v: viper.New(), cfgFile: configPath, closeFn: func() {}}
	require.NoError(t, cfgCLI.initConfig(io.Discard))

	exporter, err := NewExporter(cfgCLI.cfg, testLogger())
	require.NoError(t, err)
	mux := exporter.routes()

	req := httptest.NewRequest(http.MethodGet, "/queue?project=api", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"projectId":"api"`)
	assert.NotContains(t, w.Body.String(), `"projectId":"web"`)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `patchrelay_project_outdated_packages{project="api"}`)
	assert.Contains(t, w.Body.String(), `patchrelay_scans_total{result="fresh"}`)

	req = httptest.NewRequest(http.MethodDelete, "/queue", nil)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestScanCommand(t *testing.T) {
	configPath, dataDir := writeConfig(t)

	out, err := run(t, "--config", configPath, "scan")
	require.NoError(t, err)

	var result engine.ScanResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, []string{"web", "api"}, result.Scanned)
	assert.Empty(t, result.FailedProjects)
	assert.False(t, result.LastFullScan.IsZero())

	assert.FileExists(t, filepath.Join(dataDir, "cache", "web.json"))
	assert.FileExists(t, filepath.Join(dataDir, "cache", "api.json"))
	assert.FileExists(t, filepath.Join(dataDir, "patch-state.json"))

	_, err = run(t, "--config", configPath, "scan", "--project", "missing")
	assert.ErrorContains(t, err, `unknown project "missing"`)
}

func TestQueueCommand(t *testing.T) {
	configPath, _ := writeConfig(t)

	out, err := run(t, "--config", configPath, "queue", "--pretty")
	require.NoError(t, err)

	var result engine.QueueResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.NotEmpty(t, result.Queue)
	for i := 0; i+1 < len(result.Queue); i++ {
		assert.LessOrEqual(t, result.Queue[i].Priority, result.Queue[i+1].Priority)
	}
	for _, item := range result.Queue {
		if item.ProjectID == "web" && item.Package == "vite" {
			assert.True(t, item.IsHeld)
		}
	}
}

func TestHistoryAndInvalidateCommands(t *testing.T) {
	configPath, dataDir := writeConfig(t)

	out, err := run(t, "--config", configPath, "history")
	require.NoError(t, err)
	assert.JSONEq(t, `{"history":[]}`, out)

	out, err = run(t, "--config", configPath, "history", "--commit-message")
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = run(t, "--config", configPath, "scan", "--project", "api")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dataDir, "cache", "api.json"))

	out, err = run(t, "--config", configPath, "invalidate", "api")
	require.NoError(t, err)
	assert.Equal(t, "invalidated api\n", out)
	assert.NoFileExists(t, filepath.Join(dataDir, "cache", "api.json"))

	_, err = run(t, "--config", configPath, "invalidate")
	assert.Error(t, err)
}

func TestMissingExplicitConfigFails(t *testing.T) {
	_, err := run(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "queue")
	assert.ErrorContains(t, err, "failed to read config")
}
