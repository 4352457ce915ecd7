// ABOUTME: Mock command runner for local testing and development.
// ABOUTME: Returns realistic package-manager output without spawning subprocesses.

package mock

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jfeddern/PatchRelay/internal/manifest"
	"github.com/jfeddern/PatchRelay/internal/runner"
	"github.com/jfeddern/PatchRelay/internal/types"
	"github.com/sirupsen/logrus"
)

// MockRunner implements runner.Runner with canned output
type MockRunner struct {
	logger *logrus.Logger

	mutex     sync.Mutex
	responses map[string]runner.Result
	calls     []string
}

// NewMockRunner creates a mock runner preloaded with output for npm, pnpm and yarn
func NewMockRunner(logger *logrus.Logger) *MockRunner {
	m := &MockRunner{
		logger:    logger,
		responses: make(map[string]runner.Result),
	}
	// Package managers exit 1 when they report findings
	m.SetResponse("npm outdated", runner.Result{Stdout: []byte(npmOutdated), ExitCode: 1})
	m.SetResponse("npm audit", runner.Result{Stdout: []byte(npmAudit), ExitCode: 1})
	m.SetResponse("pnpm outdated", runner.Result{Stdout: []byte(pnpmOutdated), ExitCode: 1})
	m.SetResponse("pnpm audit", runner.Result{Stdout: []byte(pnpmAudit), ExitCode: 1})
	m.SetResponse("yarn outdated", runner.Result{Stdout: []byte(yarnOutdated), ExitCode: 1})
	m.SetResponse("yarn audit", runner.Result{Stdout: []byte(yarnAudit), ExitCode: 12})
	return m
}

// SetResponse overrides the result for a "<binary> <subcommand>" key
func (m *MockRunner) SetResponse(key string, result runner.Result) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.responses[key] = result
}

// Calls returns the keys of every invocation so far
func (m *MockRunner) Calls() []string {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return append([]string(nil), m.calls...)
}

// Run returns the canned result for name and its first argument
func (m *MockRunner) Run(ctx context.Context, dir, name string, args ...string) runner.Result {
	key := name
	if len(args) > 0 {
		key = name + " " + args[0]
	}

	m.mutex.Lock()
	m.calls = append(m.calls, key)
	res, ok := m.responses[key]
	m.mutex.Unlock()

	m.logger.WithFields(logrus.Fields{"command": key, "dir": dir}).Debug("Returning mock command output")

	if err := ctx.Err(); err != nil {
		return runner.Result{ExitCode: -1, Err: err}
	}
	if !ok {
		return runner.Result{ExitCode: 127, Stdout: []byte("command not found: " + strings.TrimSpace(key))}
	}
	res.Duration = time.Millisecond
	return res
}

// Detect reports the lockfile manager when present and npm otherwise,
// so demo projects without a checkout still produce findings.
func Detect(root string) types.Manager {
	if m := manifest.Detect(root); m != types.ManagerNone {
		return m
	}
	return types.ManagerNPM
}
