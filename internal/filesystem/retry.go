package filesystem

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"dyphal/internal/logging"
)

// RetryConfig configures retry behavior for filesystem operations
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns defaults suited to photo libraries on NFS.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

// isNFSStaleError checks if an error is an NFS stale file handle error
func isNFSStaleError(err error) bool {
	if err == nil {
		return false
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ESTALE
	}

	return false
}

// Retry runs fn until it succeeds, fails with something other than ESTALE,
// or the retry budget is exhausted. op labels logs and metrics.
func Retry(op, path string, config RetryConfig, fn func() error) error {
	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 0 {
				logging.Info("NFS %s succeeded on retry %d for %s", op, attempt, path)
				observe().ObserveRetrySuccess(op)
			}
			return nil
		}

		lastErr = err

		if !isNFSStaleError(err) {
			return err
		}

		observe().ObserveStaleError(op)

		// Don't sleep after the last attempt
		if attempt < config.MaxRetries {
			observe().ObserveRetryAttempt(op)
			logging.Debug("NFS %s stale file handle for %s, retrying in %v (attempt %d/%d)",
				op, path, backoff, attempt+1, config.MaxRetries)
			time.Sleep(backoff)

			backoff *= 2
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}
	}

	logging.Warn("NFS %s failed after %d retries for %s: %v", op, config.MaxRetries, path, lastErr)
	observe().ObserveRetryFailure(op)
	return lastErr
}

// OpenWithRetry opens path read-only, retrying on stale NFS handles.
func OpenWithRetry(path string, config RetryConfig) (*os.File, error) {
	var file *os.File
	err := Retry("open", path, config, func() error {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		file = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return file, nil
}

// OpenDirWithRetry opens a directory for use as a stable anchor. The
// returned file refers to the directory that existed at open time even if
// the path is later renamed or replaced.
func OpenDirWithRetry(path string, config RetryConfig) (*os.File, error) {
	var dir *os.File
	err := Retry("open_dir", path, config, func() error {
		f, err := os.OpenFile(path, os.O_RDONLY|syscall.O_DIRECTORY, 0)
		if err != nil {
			return err
		}
		dir = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dir, nil
}

// EnsureDirectory creates path and any missing parents. An existing
// directory is not an error; an existing non-directory is.
func EnsureDirectory(path string, config RetryConfig) error {
	err := Retry("mkdir", path, config, func() error {
		return os.MkdirAll(path, 0o755)
	})
	if err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat directory %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s exists but is not a directory", path)
	}
	return nil
}
