package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"dyphal/internal/logging"
)

var log = logging.Component("metadata")

var (
	// ErrExtractorMissing is returned when the extraction tool is not installed.
	ErrExtractorMissing = errors.New("metadata extractor is not installed")

	// ErrExtractorTimeout is returned when extraction takes too long.
	ErrExtractorTimeout = errors.New("metadata extraction timed out")

	// ErrMalformedOutput is returned when the extractor's output cannot be used.
	ErrMalformedOutput = errors.New("metadata extractor returned malformed output")
)

// Record holds the tags read from one file, keyed by namespaced tag name
// such as "EXIF:DateTimeOriginal" or "File:ImageWidth".
type Record map[string]any

// Extractor reads the metadata of a file.
type Extractor interface {
	Extract(ctx context.Context, path string) (Record, error)
	Name() string
}

// String returns the tag formatted as text. Numbers keep the shortest
// representation that round-trips.
func (r Record) String(tag string) (string, bool) {
	v, ok := r[tag]
	if !ok || v == nil {
		return "", false
	}
	return FormatValue(v), true
}

// Int returns the tag as an integer. Numeric strings are accepted.
func (r Record) Int(tag string) (int, bool) {
	v, ok := r[tag]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		if f, err := n.Float64(); err == nil {
			return int(f), true
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i, true
		}
	}
	return 0, false
}

// FormatValue renders a decoded tag value as display text.
func FormatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = FormatValue(e)
		}
		return strings.Join(parts, ", ")
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
