package workers

import (
	"os"
	"runtime"
	"strconv"
)

const (
	// MinThreads is the smallest background pool the generator accepts.
	MinThreads = 1
	// MaxThreads is the largest background pool the generator accepts.
	MaxThreads = 50
	// FallbackThreads is used when the CPU count cannot be determined.
	FallbackThreads = 8

	// EnvOverride names the environment variable that pins the pool size.
	EnvOverride = "DYPHAL_THREADS"
)

// Count returns the number of workers for a given task mix.
// It respects container CPU limits via GOMAXPROCS.
//
// The multiplier adjusts for task characteristics:
//   - 1.0 for CPU-bound tasks
//   - 2.0 for tasks that mostly wait on external processes or disk
//   - 1.5 for mixed tasks
//
// The limit parameter caps the worker count. Use 0 for no limit.
//
// Can be overridden with the DYPHAL_THREADS environment variable.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv(EnvOverride); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			if limit > 0 && count > limit {
				return limit
			}
			return count
		}
	}

	available := runtime.GOMAXPROCS(0)
	if available < 1 {
		available = FallbackThreads / 2
	}

	workers := int(float64(available) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForCPU returns worker count for CPU-bound tasks (1 per CPU).
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForIO returns worker count for I/O-bound tasks (2 per CPU).
func ForIO(limit int) int {
	return Count(2.0, limit)
}

// ForMixed returns worker count for mixed tasks (1.5 per CPU).
func ForMixed(limit int) int {
	return Count(1.5, limit)
}

// DefaultThreads is the background pool size used when the configuration
// does not name one. Album work alternates between waiting on exiftool or
// convert and writing files, so it is sized like I/O-bound work.
func DefaultThreads() int {
	return ForIO(MaxThreads)
}

// Valid reports whether n is an acceptable configured pool size.
func Valid(n int) bool {
	return n >= MinThreads && n <= MaxThreads
}
