package convert

import (
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // WebP format support
)

// Imaging converts in-process with disintegration/imaging. Output format
// follows the destination extension.
type Imaging struct{}

// NewImaging returns the in-process converter.
func NewImaging() *Imaging {
	return &Imaging{}
}

// Name implements Converter.
func (c *Imaging) Name() string { return ImagingName }

// Resize implements Converter.
func (c *Imaging) Resize(ctx context.Context, src, dst string, width, height, quality int) error {
	img, err := c.open(ctx, src)
	if err != nil {
		return err
	}
	b := img.Bounds()
	if b.Dx() > width || b.Dy() > height {
		img = imaging.Fit(img, width, height, imaging.Lanczos)
	}
	return c.save(img, dst, quality)
}

// Thumbnail implements Converter.
func (c *Imaging) Thumbnail(ctx context.Context, src, dst string, width, height, quality int) error {
	img, err := c.open(ctx, src)
	if err != nil {
		return err
	}
	return c.save(imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos), dst, quality)
}

func (c *Imaging) open(ctx context.Context, src string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Sizes come from the stored dimensions, so the EXIF orientation is
	// left for the viewer as it is with ImageMagick.
	img, err := imaging.Open(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", src, err)
	}
	return img, nil
}

func (c *Imaging) save(img image.Image, dst string, quality int) error {
	if err := imaging.Save(img, dst, imaging.JPEGQuality(quality)); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	log.Debug("wrote %s (%dx%d)", dst, img.Bounds().Dx(), img.Bounds().Dy())
	return nil
}
