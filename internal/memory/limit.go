package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"dyphal/internal/logging"
)

var log = logging.Component("memory")

// DefaultMemoryRatio is the share of DYPHAL_MEMORY_LIMIT given to the Go
// heap.
const DefaultMemoryRatio = 0.75

// Environment variables read by ConfigureLimit.
const (
	LimitEnv = "DYPHAL_MEMORY_LIMIT"
	RatioEnv = "DYPHAL_MEMORY_RATIO"
)

// LimitResult describes what ConfigureLimit did.
type LimitResult struct {
	Configured bool
	// Source is "GOMEMLIMIT", LimitEnv or "none".
	Source     string
	Limit      int64 // DYPHAL_MEMORY_LIMIT, 0 if unset
	GoMemLimit int64
	Ratio      float64
}

// ConfigureLimit sets GOMEMLIMIT from DYPHAL_MEMORY_LIMIT and
// DYPHAL_MEMORY_RATIO unless GOMEMLIMIT is already set.
func ConfigureLimit() LimitResult {
	if env := os.Getenv("GOMEMLIMIT"); env != "" {
		result := LimitResult{Source: "GOMEMLIMIT"}
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			result.Configured = true
			result.GoMemLimit = limit
		}
		log.Debug("GOMEMLIMIT set via environment: %s", env)
		return result
	}

	limitStr := os.Getenv(LimitEnv)
	if limitStr == "" {
		return LimitResult{Source: "none"}
	}
	limit, err := strconv.ParseInt(limitStr, 10, 64)
	if err != nil || limit <= 0 {
		log.Warn("ignoring %s=%q: not a positive number of bytes", LimitEnv, limitStr)
		return LimitResult{Source: "none"}
	}

	ratio := DefaultMemoryRatio
	if ratioStr := os.Getenv(RatioEnv); ratioStr != "" {
		parsed, err := strconv.ParseFloat(ratioStr, 64)
		switch {
		case err != nil:
			log.Warn("ignoring %s=%q: %v", RatioEnv, ratioStr, err)
		case parsed <= 0 || parsed > 1:
			log.Warn("ignoring %s=%q: out of range (0.0-1.0)", RatioEnv, ratioStr)
		default:
			ratio = parsed
		}
	}

	goMemLimit := int64(float64(limit) * ratio)
	debug.SetMemoryLimit(goMemLimit)
	log.Info("GOMEMLIMIT set to %s (%.0f%% of %s)", FormatBytes(goMemLimit), ratio*100, FormatBytes(limit))

	return LimitResult{
		Configured: true,
		Source:     LimitEnv,
		Limit:      limit,
		GoMemLimit: goMemLimit,
		Ratio:      ratio,
	}
}

// FormatBytes formats b with a binary unit suffix.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
