package generator

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"dyphal/internal/convert"
	"dyphal/internal/logging"
	"dyphal/internal/metadata"
	"dyphal/internal/photo"
	"dyphal/internal/tasks"
	"dyphal/internal/workers"
)

var log = logging.Component("generator")

// DefaultResolution is the photo pixel budget of a new album.
var DefaultResolution = [2]int{800, 600}

// DefaultPhotoQuality is the JPEG quality of resized photos.
const DefaultPhotoQuality = 75

// TemplateFiles are the viewer files copied by InstallTemplate.
var TemplateFiles = []string{
	"album.css", "back.png", "common.css", "debug.css", "dyphal.js",
	"help.png", "index.html", "javascript.html", "next.png",
	"photo.css", "placeholder.png", "prev.png", "README.html",
}

// Observer receives session events. Calls arrive on background
// goroutines.
type Observer interface {
	tasks.Observer
	// PhotoAdded is called once per photo, in the order photos were
	// submitted.
	PhotoAdded(p *photo.Photo)
	// Error delivers one user-facing message, usually aggregated from a
	// whole batch.
	Error(message string)
}

// Renamer resolves staging name collisions. Rename returns the new name
// for the photo at path, or ok=false to drop it.
type Renamer interface {
	Rename(path string) (name string, ok bool)
}

// RemoveCollisions is a Renamer that drops every colliding photo.
type RemoveCollisions struct{}

func (RemoveCollisions) Rename(path string) (string, bool) {
	log.Warn("dropping %s: a photo with that name is already in the album", path)
	return "", false
}

// Options configures a session.
type Options struct {
	Threads      int
	ScratchDir   string
	Extractor    metadata.Extractor
	Converter    convert.Converter
	HomeDir      string
	TemplateDir  string
	PhotoQuality int
	Renamer      Renamer
	Observer     Observer
}

// Info is the album text and field selection that is saved with the
// album.
type Info struct {
	Title           string
	Description     string
	Footer          string
	CaptionFields   []string
	PropertyFields  []string
	PhotoResolution [2]int
}

// Source is a photo to add: its file and the name it will have in the
// album.
type Source struct {
	Path string
	Name string
}

// SourcesFromPaths names each photo after its file.
func SourcesFromPaths(paths []string) []Source {
	sources := make([]Source, 0, len(paths))
	for _, p := range paths {
		sources = append(sources, Source{Path: p, Name: filepath.Base(p)})
	}
	return sources
}

// Session is one album being edited.
type Session struct {
	opts     Options
	observer Observer
	orch     *tasks.Orchestrator

	mu        sync.Mutex
	photos    []*photo.Photo
	info      Info
	albumFile string
	dirty     bool
}

// New starts a session and its worker pool.
func New(ctx context.Context, opts Options) *Session {
	if opts.Threads < workers.MinThreads {
		opts.Threads = workers.DefaultThreads()
	}
	if opts.PhotoQuality <= 0 || opts.PhotoQuality > 100 {
		opts.PhotoQuality = DefaultPhotoQuality
	}
	if opts.Renamer == nil {
		opts.Renamer = RemoveCollisions{}
	}
	if opts.Observer == nil {
		opts.Observer = NewLogObserver()
	}
	if opts.HomeDir == "" {
		opts.HomeDir, _ = os.UserHomeDir()
	}

	s := &Session{
		opts:     opts,
		observer: opts.Observer,
		info:     Info{PhotoResolution: DefaultResolution},
	}
	s.orch = tasks.New(ctx, opts.Threads, opts.Observer)
	log.Debug("session started with %d threads, %s extractor, %s converter",
		opts.Threads, opts.Extractor.Name(), opts.Converter.Name())
	return s
}

// Close waits for background work, releases every photo and stops the
// worker pool.
func (s *Session) Close() {
	s.orch.WaitIdle()

	s.mu.Lock()
	photos := s.photos
	s.photos = nil
	s.mu.Unlock()

	for _, p := range photos {
		p.Release()
	}
	s.orch.Close()
}

// Wait blocks until no batch is active.
func (s *Session) Wait() {
	s.orch.WaitIdle()
}

// Busy reports whether background work is in progress.
func (s *Session) Busy() bool {
	return s.orch.Busy()
}

// Cancel cancels pending background work and waits for running work to
// finish.
func (s *Session) Cancel() {
	s.orch.Cancel()
}

// Photos returns the album's photos in display order.
func (s *Session) Photos() []*photo.Photo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.photos)
}

// Info returns the album's text and field selections.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := s.info
	info.CaptionFields = slices.Clone(info.CaptionFields)
	info.PropertyFields = slices.Clone(info.PropertyFields)
	return info
}

// SetInfo replaces the album's text and field selections.
func (s *Session) SetInfo(info Info) {
	if info.PhotoResolution[0] <= 0 || info.PhotoResolution[1] <= 0 {
		info.PhotoResolution = DefaultResolution
	}
	s.mu.Lock()
	s.info = info
	s.dirty = true
	s.mu.Unlock()
}

// AlbumFile returns the file the album was last loaded from or generated
// to.
func (s *Session) AlbumFile() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.albumFile
}

// Dirty reports whether the album has changed since it was loaded or
// generated.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// AvailableCaptions lists the caption kinds found in the album's photos.
// With all unset only kinds that every photo has are listed.
func (s *Session) AvailableCaptions(all bool) []string {
	return s.available(photo.CaptionNames(), all, (*photo.Photo).Captions)
}

// AvailableProperties lists the properties found in the album's photos.
// With all unset only properties that every photo has are listed.
func (s *Session) AvailableProperties(all bool) []string {
	return s.available(photo.PropertyNames(), all, (*photo.Photo).Properties)
}

func (s *Session) available(order []string, all bool, fields func(*photo.Photo) map[string]string) []string {
	photos := s.Photos()
	counts := make(map[string]int)
	for _, p := range photos {
		for k := range fields(p) {
			counts[k]++
		}
	}
	var out []string
	for _, name := range order {
		n := counts[name]
		if n > 0 && (all || n == len(photos)) {
			out = append(out, name)
		}
	}
	return out
}

func (s *Session) appendPhoto(p *photo.Photo, dirtying bool) {
	s.mu.Lock()
	s.photos = append(s.photos, p)
	if dirtying {
		s.dirty = true
	}
	s.mu.Unlock()
	s.observer.PhotoAdded(p)
}

func (s *Session) photoOptions() photo.Options {
	return photo.Options{
		ScratchDir: s.opts.ScratchDir,
		Extractor:  s.opts.Extractor,
		Converter:  s.opts.Converter,
		HomeDir:    s.opts.HomeDir,
	}
}
