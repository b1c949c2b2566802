package convert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dyphal/internal/logging"
)

var log = logging.Component("convert")

// ErrUnknownConverter is returned by New for an unrecognised name.
var ErrUnknownConverter = errors.New("unknown converter")

// Converter produces the resized photos and thumbnails of an album.
type Converter interface {
	// Resize writes src to dst shrunk to fit within width x height,
	// never enlarged, with metadata stripped.
	Resize(ctx context.Context, src, dst string, width, height, quality int) error

	// Thumbnail writes src to dst scaled to cover width x height and
	// cropped around the centre to exactly that size.
	Thumbnail(ctx context.Context, src, dst string, width, height, quality int) error

	Name() string
}

// Names of the available converters.
const (
	ImageMagickName = "imagemagick"
	ImagingName     = "imaging"
	VipsName        = "vips"
)

// New returns the converter registered under name. An empty name selects
// ImageMagick.
func New(name string, timeout time.Duration) (Converter, error) {
	switch name {
	case "", ImageMagickName:
		return NewImageMagick(timeout), nil
	case ImagingName:
		return NewImaging(), nil
	case VipsName:
		if err := InitVips(); err != nil {
			return nil, err
		}
		return NewVips(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownConverter, name)
}

// Geometry formats a size the way ImageMagick expects it, with an optional
// flag suffix such as ">" or "^".
func Geometry(width, height int, flag string) string {
	return fmt.Sprintf("%dx%d%s", width, height, flag)
}
