package dirhandle

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"dyphal/internal/filesystem"
	"dyphal/internal/logging"
	"dyphal/internal/safefile"
)

var log = logging.Component("dirhandle")

// Role names one of the output directories of an album.
type Role string

const (
	Album      Role = "album"
	Metadata   Role = "metadata"
	Photos     Role = "photos"
	Thumbnails Role = "thumbnails"
)

// ErrNotRegistered is returned by Path for a role that has no handle.
var ErrNotRegistered = errors.New("directory role not registered")

type entry struct {
	dir  *os.File
	path string
}

// Registry holds one open directory per role. Output files are written
// beneath the descriptor path of the directory, so a directory renamed or
// replaced after it was opened cannot redirect the writes.
//
// All methods are safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	entries map[Role]entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[Role]entry)}
}

// Open opens path as a directory and registers it under role.
func (r *Registry) Open(role Role, path string) error {
	dir, err := filesystem.OpenDirWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return fmt.Errorf("failed to open %s directory %s: %w", role, path, err)
	}
	r.Add(role, dir)
	return nil
}

// Add registers an already open directory under role and takes ownership
// of it. Adding a role that is already present keeps the first handle and
// closes dir.
func (r *Registry) Add(role Role, dir *os.File) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[role]; ok {
		log.Debug("%s directory already registered; closing duplicate", role)
		closeDir(role, dir)
		return
	}
	r.entries[role] = entry{dir: dir, path: descriptorPath(dir)}
}

// Path returns the descriptor path for role.
func (r *Registry) Path(role Role) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[role]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotRegistered, role)
	}
	return e.path, nil
}

// Has reports whether role is registered.
func (r *Registry) Has(role Role) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[role]
	return ok
}

// CloseAll closes every handle and empties the registry. Close errors are
// logged and ignored.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for role, e := range r.entries {
		closeDir(role, e.dir)
	}
	r.entries = make(map[Role]entry)
}

func descriptorPath(dir *os.File) string {
	if safefile.HaveProcFD() {
		return safefile.FDPath(dir)
	}
	return dir.Name()
}

func closeDir(role Role, dir *os.File) {
	if err := dir.Close(); err != nil {
		log.Debug("failed to close %s directory: %v", role, err)
	}
}
