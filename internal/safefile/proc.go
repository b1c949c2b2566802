package safefile

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

var (
	procOnce      sync.Once
	procAvailable bool
)

// HaveProcFD reports whether /proc/<pid>/fd paths can be used. Without them
// staging degrades to linking the absolute original path, which keeps the
// logical naming but loses protection against the original being swapped.
func HaveProcFD() bool {
	procOnce.Do(func() {
		_, err := os.Stat(fmt.Sprintf("/proc/%d/fd/0", os.Getpid()))
		procAvailable = err == nil
		if !procAvailable {
			log.Warn("/proc/<pid>/fd is not available; staged paths will not be race-free")
		}
	})
	return procAvailable
}

// descriptorPath returns a path that resolves to the open file.
func descriptorPath(f *os.File, original string) (string, error) {
	if HaveProcFD() {
		return FDPath(f), nil
	}
	return filepath.Abs(original)
}

// FDPath returns the /proc path for an open file's descriptor.
func FDPath(f *os.File) string {
	return fmt.Sprintf("/proc/%d/fd/%d", os.Getpid(), f.Fd())
}
