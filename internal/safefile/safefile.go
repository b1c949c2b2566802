package safefile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"dyphal/internal/filesystem"
	"dyphal/internal/logging"
	"dyphal/internal/metrics"
)

var log = logging.Component("safefile")

var (
	// ErrNameCollision is returned when the scratch directory already holds
	// a link with the requested logical name.
	ErrNameCollision = errors.New("a file with that name is already staged")

	// ErrInvalidName is returned for logical names that are not a single
	// path element.
	ErrInvalidName = errors.New("invalid logical file name")
)

// CollisionError reports which source path could not be staged because its
// logical name was taken.
type CollisionError struct {
	Name string
	Path string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("cannot stage %s as %q: %v", e.Path, e.Name, ErrNameCollision)
}

// Is makes errors.Is(err, ErrNameCollision) true.
func (e *CollisionError) Is(target error) bool {
	return target == ErrNameCollision
}

// Handle binds a logical name to the file that was open at staging time.
//
// The staging path is a symbolic link inside a private scratch directory
// that points at this process's descriptor for the file. Renaming, replacing
// or deleting the original path afterwards does not change what the staging
// path refers to.
type Handle struct {
	mu       sync.Mutex
	file     *os.File
	link     string
	name     string
	original string
}

// Open stages originalPath under scratchDir/logicalName.
//
// The original path is opened first; that open is what fixes the identity
// of the file. Errors wrap fs.ErrNotExist, fs.ErrPermission or
// ErrNameCollision so callers can classify them with errors.Is.
func Open(originalPath, logicalName, scratchDir string) (*Handle, error) {
	if err := validateName(logicalName); err != nil {
		return nil, err
	}

	file, err := filesystem.OpenWithRetry(originalPath, filesystem.DefaultRetryConfig())
	if err != nil {
		recordFailure(err)
		return nil, err
	}

	target, err := descriptorPath(file, originalPath)
	if err != nil {
		closeQuietly(file)
		recordFailure(err)
		return nil, err
	}

	link := filepath.Join(scratchDir, logicalName)
	if err := os.Symlink(target, link); err != nil {
		closeQuietly(file)
		if errors.Is(err, fs.ErrExist) {
			metrics.StagingFailures.WithLabelValues("collision").Inc()
			return nil, &CollisionError{Name: logicalName, Path: originalPath}
		}
		recordFailure(err)
		return nil, fmt.Errorf("failed to stage %s: %w", originalPath, err)
	}

	log.Debug("staged %s as %s", originalPath, link)
	return &Handle{
		file:     file,
		link:     link,
		name:     logicalName,
		original: originalPath,
	}, nil
}

// Path returns the staging path, or "" once the handle is disposed.
func (h *Handle) Path() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.link
}

// Name returns the logical name the file was staged under.
func (h *Handle) Name() string {
	return h.name
}

// Original returns the path the caller supplied. It is for display and
// record keeping only; never reopen it.
func (h *Handle) Original() string {
	return h.original
}

// Stat returns information about the staged file through its descriptor.
func (h *Handle) Stat() (os.FileInfo, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.file == nil {
		return nil, os.ErrClosed
	}
	return h.file.Stat()
}

// Dispose removes the link and closes the descriptor. Failures of either
// step are logged and swallowed, and neither prevents the other. Calling
// Dispose more than once is a no-op.
func (h *Handle) Dispose() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.link != "" {
		if err := os.Remove(h.link); err != nil {
			log.Debug("failed to remove staging link %s: %v", h.link, err)
		}
		h.link = ""
	}
	if h.file != nil {
		if err := h.file.Close(); err != nil {
			log.Debug("failed to close %s: %v", h.original, err)
		}
		h.file = nil
	}
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsRune(name, os.PathSeparator) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func closeQuietly(f *os.File) {
	if err := f.Close(); err != nil {
		log.Debug("failed to close %s: %v", f.Name(), err)
	}
}

func recordFailure(err error) {
	reason := "other"
	switch {
	case errors.Is(err, fs.ErrNotExist):
		reason = "not_found"
	case errors.Is(err, fs.ErrPermission):
		reason = "permission"
	}
	metrics.StagingFailures.WithLabelValues(reason).Inc()
}
