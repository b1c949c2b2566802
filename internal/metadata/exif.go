package metadata

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"  // GIF dimensions
	_ "image/jpeg" // JPEG dimensions
	_ "image/png"  // PNG dimensions
	"io"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
	_ "golang.org/x/image/bmp"  // BMP dimensions
	_ "golang.org/x/image/tiff" // TIFF dimensions
	_ "golang.org/x/image/webp" // WebP dimensions

	"dyphal/internal/filesystem"
	"dyphal/internal/mediatypes"
)

// Exif extracts a reduced tag set in-process. It needs no external tools
// and serves as a fallback where exiftool is not installed; composite,
// maker note, XMP and IPTC tags are not available.
type Exif struct{}

// NewExif returns the in-process extractor.
func NewExif() *Exif {
	return &Exif{}
}

// Name implements Extractor.
func (e *Exif) Name() string { return "exif" }

// Extract implements Extractor. Files without EXIF data still yield their
// File: tags.
func (e *Exif) Extract(ctx context.Context, path string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			log.Debug("failed to close %s: %v", path, cerr)
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	record := Record{
		"File:FileSize": formatFileSize(info.Size()),
	}
	if name := mediatypes.FormatName(mediatypes.Ext(path)); name != "" {
		record["File:FileType"] = name
	}

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedOutput, path, err)
	}
	record["File:ImageWidth"] = cfg.Width
	record["File:ImageHeight"] = cfg.Height
	if _, ok := record["File:FileType"]; !ok {
		record["File:FileType"] = strings.ToUpper(format)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	x, err := exif.Decode(f)
	if err != nil {
		log.Debug("no EXIF data in %s: %v", path, err)
		return record, nil
	}

	copyString(x, record, exif.DateTimeOriginal, "EXIF:DateTimeOriginal")
	copyString(x, record, exif.Make, "EXIF:Make")
	copyString(x, record, exif.Model, "EXIF:Model")
	copyString(x, record, exif.ImageDescription, "EXIF:ImageDescription")
	copyInt(x, record, exif.ISOSpeedRatings, "EXIF:ISO")
	copyInt(x, record, exif.Orientation, "EXIF:Orientation")

	if tag, err := x.Get(exif.FocalLength); err == nil {
		if num, den, err := tag.Rat2(0); err == nil && den != 0 {
			record["EXIF:FocalLength"] = fmt.Sprintf("%.1f mm", float64(num)/float64(den))
		}
	}
	if tag, err := x.Get(exif.ExposureTime); err == nil {
		if num, den, err := tag.Rat2(0); err == nil && den != 0 {
			record["EXIF:ExposureTime"] = formatExposure(num, den)
		}
	}
	if tag, err := x.Get(exif.FNumber); err == nil {
		if num, den, err := tag.Rat2(0); err == nil && den != 0 {
			record["EXIF:FNumber"] = fmt.Sprintf("%.1f", float64(num)/float64(den))
		}
	}
	return record, nil
}

func copyString(x *exif.Exif, r Record, field exif.FieldName, key string) {
	tag, err := x.Get(field)
	if err != nil || tag.Format() != tiff.StringVal {
		return
	}
	s, err := tag.StringVal()
	if err != nil {
		return
	}
	if s = strings.TrimRight(strings.TrimSpace(s), "\x00"); s != "" {
		r[key] = s
	}
}

func copyInt(x *exif.Exif, r Record, field exif.FieldName, key string) {
	tag, err := x.Get(field)
	if err != nil || tag.Format() != tiff.IntVal {
		return
	}
	if v, err := tag.Int(0); err == nil {
		r[key] = v
	}
}

func formatExposure(num, den int64) string {
	if num == 0 {
		return "0"
	}
	if num >= den {
		return fmt.Sprintf("%g", float64(num)/float64(den))
	}
	return fmt.Sprintf("1/%d", (den+num/2)/num)
}

// formatFileSize mirrors exiftool's File:FileSize text.
func formatFileSize(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d bytes", n)
	case n < 1024*1024:
		return fmt.Sprintf("%d kB", (n+512)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	}
}

var _ Extractor = (*Exif)(nil)
var _ Extractor = (*Exiftool)(nil)
