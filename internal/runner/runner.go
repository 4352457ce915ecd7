// ABOUTME: External command wrapper that always returns stdout and exit code.
// ABOUTME: Callers decide success through the Usable predicate instead of error control flow.

package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultTimeout bounds every outdated/audit invocation
const DefaultTimeout = 30 * time.Second

// ErrTimeout is reported when a command exceeds its deadline
var ErrTimeout = errors.New("command timed out")

// Result is the outcome of one command invocation.
// Err is only set when the process could not run to completion (missing binary,
// timeout, signal); a non-zero exit alone is reported through ExitCode.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Err      error
	Duration time.Duration
}

// Runner executes an external command in a working directory
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) Result
}

// Usable reports whether a result counts as success: the process ran to
// completion and either exited zero or exited non-zero with JSON on stdout.
// Package managers exit non-zero when they have findings to report.
func Usable(r Result) bool {
	if r.Err != nil {
		return false
	}
	if r.ExitCode == 0 {
		return true
	}
	return bytes.IndexAny(r.Stdout, "[{") >= 0
}

// ExecRunner runs commands with os/exec under a fixed timeout
type ExecRunner struct {
	timeout time.Duration
	logger  *logrus.Logger
}

// NewExecRunner creates a runner; a non-positive timeout selects DefaultTimeout
func NewExecRunner(timeout time.Duration, logger *logrus.Logger) *ExecRunner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ExecRunner{timeout: timeout, logger: logger}
}

// Run executes name with args in dir
func (r *ExecRunner) Run(ctx context.Context, dir, name string, args ...string) Result {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	logger := r.logger.WithFields(logrus.Fields{
		"command":  name,
		"args":     args,
		"dir":      dir,
		"duration": res.Duration,
	})

	switch {
	case err == nil:
		res.ExitCode = 0
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.ExitCode = -1
		res.Err = fmt.Errorf("%w after %s", ErrTimeout, r.timeout)
		logger.WithError(res.Err).Warn("Command timed out")
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
			res.ExitCode = exitErr.ExitCode()
			logger.WithField("exit_code", res.ExitCode).Debug("Command exited non-zero")
		} else {
			res.ExitCode = -1
			res.Err = err
			logger.WithError(err).Warn("Command failed to run")
		}
	}

	return res
}
