package photo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"dyphal/internal/convert"
	"dyphal/internal/logging"
	"dyphal/internal/metadata"
	"dyphal/internal/metrics"
	"dyphal/internal/refcount"
	"dyphal/internal/safefile"
)

var log = logging.Component("photo")

// Output directory names inside an album.
const (
	PhotoDir     = "photos"
	ThumbnailDir = "thumbnails"
	MetadataDir  = "metadata"
)

// Thumbnail geometry for a horizontal photo. Vertical photos swap width
// and height.
const (
	ThumbWidth   = 160
	ThumbHeight  = 120
	ThumbQuality = 50
)

// ErrDisposed is returned by operations on a photo whose last reference
// has been released.
var ErrDisposed = errors.New("photo has been disposed")

// Options supplies the collaborators a photo needs.
type Options struct {
	ScratchDir string
	Extractor  metadata.Extractor
	Converter  convert.Converter
	// HomeDir is contracted to "~" in the recorded path. Empty disables.
	HomeDir string
}

// GenerateError reports a failure producing one of a photo's output files.
type GenerateError struct {
	Op    string // "descriptor", "resize" or "thumbnail"
	Photo string
	Err   error
}

func (e *GenerateError) Error() string {
	return fmt.Sprintf("failed to write %s for %s: %v", e.Op, e.Photo, e.Err)
}

func (e *GenerateError) Unwrap() error {
	return e.Err
}

// Photo is one source image enrolled in an album.
//
// A Photo is reference counted. New returns it with no references; the
// album takes the first, and every background task that uses the photo
// holds its own for the task's lifetime. The staged file is released when
// the count returns to zero.
type Photo struct {
	refcount.Counted

	name      string
	fullPath  string
	original  string
	jsonName  string
	thumbName string

	handle    *safefile.Handle
	converter convert.Converter

	width      int
	height     int
	captions   map[string]string
	properties map[string]string
}

// New stages originalPath as name, reads its metadata and builds the
// caption and property maps. On failure nothing stays staged and the
// first error is returned.
func New(ctx context.Context, originalPath, name string, opts Options) (*Photo, error) {
	handle, err := safefile.Open(originalPath, name, opts.ScratchDir)
	if err != nil {
		return nil, err
	}

	p := &Photo{
		name:      name,
		fullPath:  ContractHome(originalPath, opts.HomeDir),
		original:  originalPath,
		jsonName:  name + ".json",
		thumbName: thumbnailName(name),
		handle:    handle,
		converter: opts.Converter,
	}

	if err := p.load(ctx, opts.Extractor); err != nil {
		handle.Dispose()
		return nil, err
	}

	p.Init(p.dispose)
	metrics.PhotosOpen.Inc()
	log.Debug("loaded %s as %s (%dx%d)", originalPath, name, p.width, p.height)
	return p, nil
}

func (p *Photo) load(ctx context.Context, extractor metadata.Extractor) error {
	record, err := extractor.Extract(ctx, p.handle.Path())
	if err != nil {
		return err
	}

	props, err := extractProperties(record)
	if err != nil {
		return err
	}
	// The extractor saw the staged link, whose name is the album name.
	props[PropertyFileName] = p.name

	var ok bool
	if p.width, ok = record.Int("File:ImageWidth"); !ok || p.width <= 0 {
		return fmt.Errorf("%w: missing File:ImageWidth", metadata.ErrMalformedOutput)
	}
	if p.height, ok = record.Int("File:ImageHeight"); !ok || p.height <= 0 {
		return fmt.Errorf("%w: missing File:ImageHeight", metadata.ErrMalformedOutput)
	}

	captions, err := extractCaptions(record, props)
	if err != nil {
		return err
	}
	p.captions = captions
	p.properties = props
	return nil
}

func (p *Photo) dispose() {
	p.handle.Dispose()
	metrics.PhotosOpen.Dec()
	log.Debug("released %s", p.name)
}

func thumbnailName(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + ".thumbnail" + ext
}

// Name returns the photo's unique name within the album.
func (p *Photo) Name() string { return p.name }

// FullPath returns the source path with the home directory shown as "~".
func (p *Photo) FullPath() string { return p.fullPath }

// OriginalPath returns the path the photo was loaded from.
func (p *Photo) OriginalPath() string { return p.original }

// StagedPath returns the race-free path of the pixel data, or "" once
// the photo is disposed.
func (p *Photo) StagedPath() string { return p.handle.Path() }

// ThumbnailName returns the file name of the thumbnail.
func (p *Photo) ThumbnailName() string { return p.thumbName }

// DescriptorName returns the file name of the photo's JSON descriptor.
func (p *Photo) DescriptorName() string { return p.jsonName }

// Size returns the pixel dimensions of the source.
func (p *Photo) Size() (int, int) { return p.width, p.height }

// Horizontal reports whether the photo is at least as wide as it is tall.
func (p *Photo) Horizontal() bool { return p.width >= p.height }

// Captions returns a copy of the caption map.
func (p *Photo) Captions() map[string]string { return maps.Clone(p.captions) }

// Properties returns a copy of the property map.
func (p *Photo) Properties() map[string]string { return maps.Clone(p.properties) }

// Caption returns one caption.
func (p *Photo) Caption(kind string) (string, bool) {
	v, ok := p.captions[kind]
	return v, ok
}

// Property returns one property.
func (p *Photo) Property(name string) (string, bool) {
	v, ok := p.properties[name]
	return v, ok
}

func (p *Photo) String() string {
	return fmt.Sprintf("%s (%s)", p.name, p.fullPath)
}

// Rescale returns the largest size with the photo's aspect ratio whose
// area does not exceed pixels. Photos that already fit are returned at
// their own size.
func (p *Photo) Rescale(pixels int) (int, int) {
	return rescale(p.width, p.height, pixels)
}

func rescale(width, height, pixels int) (int, int) {
	if pixels >= width*height {
		return width, height
	}
	aspect := float64(width) / float64(height)
	hh := int(math.Sqrt(float64(pixels) / aspect))
	w := int(float64(hh) * aspect)
	// Guard against floating point overshoot.
	for w*hh > pixels && hh > 0 {
		hh--
		w = int(float64(hh) * aspect)
	}
	return w, hh
}

// Entry is a photo's record in the album file.
type Entry struct {
	Name        string
	Thumbnail   string
	Orientation string
	Path        string
}

// AlbumEntry returns the photo's album record, with names and paths
// percent-encoded.
func (p *Photo) AlbumEntry() Entry {
	orientation := "vertical"
	if p.Horizontal() {
		orientation = "horizontal"
	}
	return Entry{
		Name:        QuotePath(p.name),
		Thumbnail:   QuotePath(ThumbnailDir + "/" + p.thumbName),
		Orientation: orientation,
		Path:        QuotePath(p.fullPath),
	}
}

type descriptor struct {
	Caption    []string    `json:"caption"`
	Height     string      `json:"height"`
	Photo      string      `json:"photo"`
	Properties [][2]string `json:"properties"`
	Width      string      `json:"width"`
}

// Descriptor builds the viewer record for the photo: its display size
// within a widthBase x heightBase pixel budget, the selected captions it
// has, and the selected properties it has, each in selection order.
func (p *Photo) Descriptor(widthBase, heightBase int, captions, properties []string) ([]byte, error) {
	w, h := p.Rescale(widthBase * heightBase)
	d := descriptor{
		Caption:    []string{},
		Height:     fmt.Sprint(h),
		Photo:      QuotePath(PhotoDir + "/" + p.name),
		Properties: [][2]string{},
		Width:      fmt.Sprint(w),
	}
	for _, kind := range captions {
		if v, ok := p.captions[kind]; ok {
			d.Caption = append(d.Caption, v)
		}
	}
	for _, name := range properties {
		if v, ok := p.properties[name]; ok {
			d.Properties = append(d.Properties, [2]string{name, v})
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteDescriptor writes the descriptor to outDir.
func (p *Photo) WriteDescriptor(outDir string, widthBase, heightBase int, captions, properties []string) error {
	data, err := p.Descriptor(widthBase, heightBase, captions, properties)
	if err == nil {
		err = os.WriteFile(filepath.Join(outDir, p.jsonName), data, 0o644)
	}
	if err != nil {
		return &GenerateError{Op: "descriptor", Photo: p.name, Err: err}
	}
	return nil
}

// Resize writes the photo scaled to the widthBase x heightBase pixel
// budget into outDir.
func (p *Photo) Resize(ctx context.Context, outDir string, widthBase, heightBase, quality int) error {
	src := p.StagedPath()
	if src == "" {
		return &GenerateError{Op: "resize", Photo: p.name, Err: ErrDisposed}
	}
	w, h := p.Rescale(widthBase * heightBase)
	if err := p.converter.Resize(ctx, src, filepath.Join(outDir, p.name), w, h, quality); err != nil {
		return &GenerateError{Op: "resize", Photo: p.name, Err: err}
	}
	return nil
}

// Thumbnail writes the photo's thumbnail into outDir. The base size is
// for a horizontal photo and is swapped for a vertical one.
func (p *Photo) Thumbnail(ctx context.Context, outDir string, widthBase, heightBase, quality int) error {
	src := p.StagedPath()
	if src == "" {
		return &GenerateError{Op: "thumbnail", Photo: p.name, Err: ErrDisposed}
	}
	w, h := widthBase, heightBase
	if !p.Horizontal() {
		w, h = heightBase, widthBase
	}
	if err := p.converter.Thumbnail(ctx, src, filepath.Join(outDir, p.thumbName), w, h, quality); err != nil {
		return &GenerateError{Op: "thumbnail", Photo: p.name, Err: err}
	}
	return nil
}

// Summary returns "name: value" lines for every caption and then every
// property, each group sorted by name.
func (p *Photo) Summary() []string {
	var lines []string
	for _, m := range []map[string]string{p.captions, p.properties} {
		for _, k := range slices.Sorted(maps.Keys(m)) {
			lines = append(lines, k+": "+m[k])
		}
	}
	return lines
}
