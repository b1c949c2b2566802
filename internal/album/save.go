package album

import (
	"bytes"
	"encoding/json"
	"os"
)

// Save writes the album file at path and its viewer file next to it, both
// in the current format. Keys are sorted and each file ends with a
// newline, so saving the same album twice produces identical bytes.
//
// The album file keeps only each photo's path; names, thumbnails and
// orientations are recomputed from the photos when the album is loaded.
// The viewer file drops everything the viewer has no use for. Either write
// failing is a *SaveError.
func Save(path string, a *Album) error {
	a.Version = CurrentVersion

	if err := writeJSON(path, albumRecord(a)); err != nil {
		return err
	}
	return writeJSON(WebFileName(path), webRecord(a))
}

func albumRecord(a *Album) map[string]any {
	photos := make([]map[string]any, 0, len(a.Photos))
	for _, p := range a.Photos {
		photos = append(photos, map[string]any{"path": p.Path})
	}
	return map[string]any{
		"albumVersion":    a.Version,
		"title":           a.Title,
		"description":     a.Description,
		"footer":          a.Footer,
		"photos":          photos,
		"captionFields":   nonNil(a.CaptionFields),
		"propertyFields":  nonNil(a.PropertyFields),
		"photoResolution": a.PhotoResolution,
	}
}

func webRecord(a *Album) map[string]any {
	photos := make([]map[string]any, 0, len(a.Photos))
	for _, p := range a.Photos {
		photos = append(photos, map[string]any{
			"name":        p.Name,
			"thumbnail":   p.Thumbnail,
			"orientation": p.Orientation,
		})
	}
	return map[string]any{
		"albumVersion": a.Version,
		"title":        a.Title,
		"description":  a.Description,
		"footer":       a.Footer,
		"metadataDir":  a.MetadataDir,
		"photos":       photos,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// writeJSON truncates and rewrites path in place, so a file the user made
// read-only is reported rather than silently replaced.
func writeJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return &SaveError{Path: path, Err: err}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return &SaveError{Path: path, Err: err}
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return &SaveError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &SaveError{Path: path, Err: err}
	}
	log.Debug("wrote %s", path)
	return nil
}
