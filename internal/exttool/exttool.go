package exttool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"dyphal/internal/logging"
	"dyphal/internal/metrics"
)

var log = logging.Component("exttool")

// DefaultTimeout bounds every external process the generator starts.
const DefaultTimeout = 5 * time.Second

// waitDelay bounds how long Run waits for output pipes after the process
// is killed. Children that inherited them may keep them open.
const waitDelay = time.Second

var (
	// ErrNotInstalled is returned when the executable cannot be found.
	ErrNotInstalled = errors.New("executable not found")

	// ErrTimeout is returned when the process outlives its timeout.
	ErrTimeout = errors.New("process timed out")
)

// ProcessError describes a process that ran and exited unsuccessfully.
type ProcessError struct {
	Tool     string
	Path     string // file the process was working on
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("%s failed on %s (exit %d)", e.Tool, e.Path, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// Command describes one invocation of an external tool.
type Command struct {
	Tool    string
	Args    []string
	Path    string // file being processed, for diagnostics
	Timeout time.Duration
}

// Run executes the command and returns its standard output.
//
// A missing executable wraps ErrNotInstalled and an expired timeout wraps
// ErrTimeout. Cancellation of ctx by the caller is returned as ctx.Err().
// Any other failure is a *ProcessError. The process is killed when the
// timeout fires; there is no other way to stop it early.
func Run(ctx context.Context, c Command) ([]byte, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, c.Tool, c.Args...)
	cmd.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	status := "success"
	defer func() {
		metrics.ProcessDuration.WithLabelValues(c.Tool, status).Observe(time.Since(start).Seconds())
	}()

	if err == nil {
		return stdout.Bytes(), nil
	}

	switch {
	case errors.Is(err, exec.ErrNotFound):
		status = "missing"
		return nil, fmt.Errorf("%s: %w", c.Tool, ErrNotInstalled)
	case ctx.Err() != nil:
		status = "error"
		return nil, ctx.Err()
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		status = "timeout"
		log.Warn("%s timed out after %v on %s", c.Tool, timeout, c.Path)
		return nil, fmt.Errorf("%s on %s: %w", c.Tool, c.Path, ErrTimeout)
	}

	status = "error"
	perr := &ProcessError{
		Tool:     c.Tool,
		Path:     c.Path,
		ExitCode: -1,
		Stderr:   strings.TrimSpace(stderr.String()),
		Err:      err,
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		perr.ExitCode = exitErr.ExitCode()
	}
	log.Debug("%v", perr)
	return nil, perr
}

// Available reports whether tool can be found on PATH.
func Available(tool string) bool {
	_, err := exec.LookPath(tool)
	return err == nil
}
