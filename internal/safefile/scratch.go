package safefile

import (
	"fmt"
	"os"
)

// ScratchDir is a private directory (mode 0700) holding staging links.
// Link names inside it are predictable, which is safe only because no
// other user can create entries there.
type ScratchDir struct {
	path string
}

// NewScratchDir creates a fresh scratch directory under parent, or under
// the system temporary directory when parent is empty.
func NewScratchDir(parent string) (*ScratchDir, error) {
	path, err := os.MkdirTemp(parent, "dyphal-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	if err := os.Chmod(path, 0o700); err != nil {
		_ = os.RemoveAll(path)
		return nil, fmt.Errorf("failed to secure scratch directory: %w", err)
	}
	log.Debug("scratch directory: %s", path)
	return &ScratchDir{path: path}, nil
}

// Path returns the directory path.
func (s *ScratchDir) Path() string {
	return s.path
}

// Remove deletes the directory and any links left in it.
func (s *ScratchDir) Remove() error {
	if s.path == "" {
		return nil
	}
	err := os.RemoveAll(s.path)
	s.path = ""
	return err
}
