package convert

import (
	"context"
	"strconv"
	"time"

	"dyphal/internal/exttool"
)

// ImageMagick runs the convert program.
type ImageMagick struct {
	// Binary defaults to "convert".
	Binary  string
	Timeout time.Duration
}

// NewImageMagick returns a converter using convert from PATH.
func NewImageMagick(timeout time.Duration) *ImageMagick {
	return &ImageMagick{Binary: "convert", Timeout: timeout}
}

// Name implements Converter.
func (m *ImageMagick) Name() string { return ImageMagickName }

// Resize implements Converter.
func (m *ImageMagick) Resize(ctx context.Context, src, dst string, width, height, quality int) error {
	return m.run(ctx, src,
		src,
		"-resize", Geometry(width, height, ">"),
		"-strip",
		"-quality", strconv.Itoa(quality),
		dst,
	)
}

// Thumbnail implements Converter.
func (m *ImageMagick) Thumbnail(ctx context.Context, src, dst string, width, height, quality int) error {
	size := Geometry(width, height, "")
	return m.run(ctx, src,
		src,
		"-thumbnail", Geometry(width, height, "^"),
		"-gravity", "center",
		"-extent", size,
		"-quality", strconv.Itoa(quality),
		dst,
	)
}

func (m *ImageMagick) run(ctx context.Context, src string, args ...string) error {
	binary := m.Binary
	if binary == "" {
		binary = "convert"
	}
	_, err := exttool.Run(ctx, exttool.Command{
		Tool:    binary,
		Args:    args,
		Path:    src,
		Timeout: m.Timeout,
	})
	return err
}
