package cli

import (
	"context"
	"io"
	"os"

	"golang.org/x/term"

	"dyphal/internal/convert"
	"dyphal/internal/exttool"
	"dyphal/internal/generator"
	"dyphal/internal/memory"
	"dyphal/internal/metadata"
	"dyphal/internal/photo"
	"dyphal/internal/safefile"
	"dyphal/internal/startup"
	"dyphal/internal/workers"
)

// sessionOverrides are command line settings that take precedence over
// the configuration.
type sessionOverrides struct {
	threads int
	quality int
}

// session is a generator session together with the resources it owns.
type session struct {
	*generator.Session
	observer  *generator.LogObserver
	scratch   *safefile.ScratchDir
	cache     *metadata.Cache
	converter convert.Converter
	guard     *memory.Guard
}

// openSession builds a generator session from the configuration.
func (a *app) openSession(ctx context.Context, o sessionOverrides, out io.Writer) (*session, error) {
	threads := a.cfg.Threads
	if workers.Valid(o.threads) {
		threads = o.threads
	}
	quality := a.cfg.PhotoQuality
	if o.quality > 0 && o.quality <= 100 {
		quality = o.quality
	}

	converter, err := newConverter(a.cfg.Converter)
	if err != nil {
		return nil, err
	}
	var guard *memory.Guard
	if converter.Name() != convert.ImageMagickName {
		// In-process converters decode whole photos on the Go heap.
		guard = memory.NewGuard(memory.DefaultConfig())
		if guard.Enabled() {
			guard.Start()
			converter = convert.Gated(converter, guard)
		}
	}

	scratch, err := safefile.NewScratchDir("")
	if err != nil {
		if guard != nil {
			guard.Stop()
		}
		return nil, err
	}

	home, _ := os.UserHomeDir()
	s := &session{
		observer:  generator.NewLogObserver(),
		scratch:   scratch,
		converter: converter,
		guard:     guard,
	}

	var extractor metadata.Extractor
	switch a.cfg.Extractor {
	case "exif":
		extractor = metadata.NewExif()
	default:
		extractor = metadata.NewExiftool(exttool.DefaultTimeout)
	}
	cachePath := ""
	if a.cfg.MetadataCache != "" {
		cachePath = photo.ExpandHome(a.cfg.MetadataCache, home)
		cache, err := metadata.OpenCache(ctx, cachePath, extractor)
		if err != nil {
			log.Warn("metadata cache disabled: %v", err)
			cachePath = ""
		} else {
			s.cache = cache
			extractor = cache
		}
	}

	startup.LogSession(startup.SessionInfo{
		Threads:       threads,
		Extractor:     extractor.Name(),
		Converter:     converter.Name(),
		PhotoQuality:  quality,
		MetadataCache: cachePath,
		ConfigPath:    a.cfg.Path(),
	})

	s.Session = generator.New(ctx, generator.Options{
		Threads:      threads,
		ScratchDir:   scratch.Path(),
		Extractor:    extractor,
		Converter:    converter,
		HomeDir:      home,
		TemplateDir:  photo.ExpandHome(a.cfg.TemplateDir, home),
		PhotoQuality: quality,
		Renamer:      a.renamer(out),
		Observer:     s.observer,
	})
	return s, nil
}

// newConverter returns the named converter. External converters get the
// same fixed timeout as every other background process.
func newConverter(name string) (convert.Converter, error) {
	return convert.New(name, exttool.DefaultTimeout)
}

// renamer prompts for new names when stdin is a terminal and drops
// colliding photos otherwise.
func (a *app) renamer(out io.Writer) generator.Renamer {
	if f, ok := a.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return newPromptRenamer(a.in, out)
	}
	return generator.RemoveCollisions{}
}

// Close stops the session and releases its resources.
func (s *session) Close() {
	s.Session.Close()
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			log.Warn("closing metadata cache: %v", err)
		}
	}
	if err := s.scratch.Remove(); err != nil {
		log.Warn("removing scratch directory: %v", err)
	}
	if s.guard != nil {
		s.guard.Stop()
	}
	if s.converter.Name() == convert.VipsName {
		convert.ShutdownVips()
	}
}
