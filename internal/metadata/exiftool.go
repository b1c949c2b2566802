package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dyphal/internal/exttool"
)

// Exiftool extracts metadata by running exiftool.
type Exiftool struct {
	// Binary defaults to "exiftool".
	Binary  string
	Timeout time.Duration
}

// NewExiftool returns an extractor using exiftool from PATH.
func NewExiftool(timeout time.Duration) *Exiftool {
	return &Exiftool{Binary: "exiftool", Timeout: timeout}
}

// Name implements Extractor.
func (e *Exiftool) Name() string { return "exiftool" }

// Extract runs exiftool on path and returns the first record it prints.
func (e *Exiftool) Extract(ctx context.Context, path string) (Record, error) {
	binary := e.Binary
	if binary == "" {
		binary = "exiftool"
	}
	out, err := exttool.Run(ctx, exttool.Command{
		Tool:    binary,
		Args:    []string{"-charset", "iptc=UTF8", "-json", "-a", "-G", "-All", path},
		Path:    path,
		Timeout: e.Timeout,
	})
	switch {
	case errors.Is(err, exttool.ErrNotInstalled):
		return nil, fmt.Errorf("%w: %w", ErrExtractorMissing, err)
	case errors.Is(err, exttool.ErrTimeout):
		return nil, fmt.Errorf("%w: %w", ErrExtractorTimeout, err)
	case err != nil:
		return nil, err
	}
	return parseExiftoolJSON(out)
}

func parseExiftoolJSON(out []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(out))
	dec.UseNumber()
	var records []map[string]any
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedOutput, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no records", ErrMalformedOutput)
	}
	return Record(records[0]), nil
}
