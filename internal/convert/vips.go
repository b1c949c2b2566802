package convert

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/davidbyttow/govips/v2/vips"

	"dyphal/internal/logging"
	"dyphal/internal/mediatypes"
)

var (
	vipsInitialized bool
	vipsInitMutex   sync.Mutex
)

// ErrVipsUnavailable is returned when libvips has not been started.
var ErrVipsUnavailable = errors.New("libvips not available")

// InitVips starts libvips with log output routed through the application
// logger at the current level. Safe to call more than once.
func InitVips() error {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return nil
	}

	var vipsLogLevel vips.LogLevel
	switch logging.GetLevel() {
	case logging.LevelDebug:
		vipsLogLevel = vips.LogLevelInfo
	case logging.LevelInfo:
		vipsLogLevel = vips.LogLevelWarning
	case logging.LevelWarn:
		vipsLogLevel = vips.LogLevelError
	default:
		vipsLogLevel = vips.LogLevelCritical
	}
	vips.LoggingSettings(func(domain string, level vips.LogLevel, msg string) {
		switch level {
		case vips.LogLevelError, vips.LogLevelCritical:
			log.Error("[%s] %s", domain, msg)
		case vips.LogLevelWarning:
			log.Warn("[%s] %s", domain, msg)
		default:
			log.Debug("[%s] %s", domain, msg)
		}
	}, vipsLogLevel)

	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
	})

	vipsInitialized = true
	log.Info("libvips initialized (version: %s)", vips.Version)
	return nil
}

// ShutdownVips releases libvips if it was started.
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsInitialized = false
		log.Debug("libvips shutdown complete")
	}
}

// VipsAvailable reports whether InitVips has run.
func VipsAvailable() bool {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()
	return vipsInitialized
}

// Vips converts in-process with libvips.
type Vips struct{}

// NewVips returns the libvips converter. Call InitVips first.
func NewVips() *Vips {
	return &Vips{}
}

// Name implements Converter.
func (c *Vips) Name() string { return VipsName }

// Resize implements Converter.
func (c *Vips) Resize(ctx context.Context, src, dst string, width, height, quality int) error {
	ref, err := c.load(ctx, src)
	if err != nil {
		return err
	}
	defer ref.Close()

	if ref.Width() > width || ref.Height() > height {
		scale := math.Min(float64(width)/float64(ref.Width()), float64(height)/float64(ref.Height()))
		if err := ref.Resize(scale, vips.KernelLanczos3); err != nil {
			return fmt.Errorf("vips resize failed for %s: %w", src, err)
		}
	}
	return c.export(ref, dst, quality)
}

// Thumbnail implements Converter.
func (c *Vips) Thumbnail(ctx context.Context, src, dst string, width, height, quality int) error {
	ref, err := c.load(ctx, src)
	if err != nil {
		return err
	}
	defer ref.Close()

	if err := ref.Thumbnail(width, height, vips.InterestingCentre); err != nil {
		return fmt.Errorf("vips thumbnail failed for %s: %w", src, err)
	}
	return c.export(ref, dst, quality)
}

func (c *Vips) load(ctx context.Context, src string) (*vips.ImageRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !VipsAvailable() {
		return nil, ErrVipsUnavailable
	}
	ref, err := vips.LoadImageFromFile(src, vips.NewImportParams())
	if err != nil {
		return nil, fmt.Errorf("vips failed to load %s: %w", src, err)
	}
	if err := ref.AutoRotate(); err != nil {
		ref.Close()
		return nil, fmt.Errorf("vips failed to rotate %s: %w", src, err)
	}
	return ref, nil
}

func (c *Vips) export(ref *vips.ImageRef, dst string, quality int) error {
	var (
		buf []byte
		err error
	)
	switch mediatypes.Ext(dst) {
	case ".png":
		buf, _, err = ref.ExportPng(vips.NewPngExportParams())
	case ".webp":
		params := vips.NewWebpExportParams()
		params.Quality = quality
		params.StripMetadata = true
		buf, _, err = ref.ExportWebp(params)
	default:
		buf, _, err = ref.ExportJpeg(&vips.JpegExportParams{
			Quality:        quality,
			StripMetadata:  true,
			OptimizeCoding: true,
		})
	}
	if err != nil {
		return fmt.Errorf("vips export failed for %s: %w", dst, err)
	}
	if err := os.WriteFile(dst, buf, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return nil
}
