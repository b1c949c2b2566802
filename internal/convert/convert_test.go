package convert

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"dyphal/internal/exttool"
)

func TestGeometry(t *testing.T) {
	tests := []struct {
		w, h int
		flag string
		want string
	}{
		{800, 600, ">", "800x600>"},
		{160, 120, "^", "160x120^"},
		{120, 160, "", "120x160"},
	}
	for _, tt := range tests {
		if got := Geometry(tt.w, tt.h, tt.flag); got != tt.want {
			t.Errorf("Geometry(%d, %d, %q) = %q, want %q", tt.w, tt.h, tt.flag, got, tt.want)
		}
	}
}

func TestNew(t *testing.T) {
	for _, name := range []string{"", ImageMagickName, ImagingName} {
		c, err := New(name, time.Second)
		if err != nil {
			t.Errorf("New(%q) error = %v", name, err)
			continue
		}
		if name != "" && c.Name() != name {
			t.Errorf("New(%q).Name() = %q", name, c.Name())
		}
	}
	if _, err := New("gimp", time.Second); !errors.Is(err, ErrUnknownConverter) {
		t.Errorf("New(gimp) error = %v, want ErrUnknownConverter", err)
	}
}

// recordingConvert installs a fake convert that writes its arguments, one
// per line, to a file.
func recordingConvert(t *testing.T) (*ImageMagick, string) {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args")
	script := "#!/bin/sh\nfor a in \"$@\"; do echo \"$a\" >> " + argsFile + "; done\n"
	bin := filepath.Join(dir, "convert")
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return &ImageMagick{Binary: bin, Timeout: 2 * time.Second}, argsFile
}

func readArgs(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestImageMagickResizeArguments(t *testing.T) {
	m, argsFile := recordingConvert(t)

	if err := m.Resize(context.Background(), "/scratch/a.jpg", "/out/photos/a.jpg", 1600, 1200, 75); err != nil {
		t.Fatalf("Resize() error = %v", err)
	}
	want := []string{"/scratch/a.jpg", "-resize", "1600x1200>", "-strip", "-quality", "75", "/out/photos/a.jpg"}
	if got := readArgs(t, argsFile); strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("args = %q, want %q", got, want)
	}
}

func TestImageMagickThumbnailArguments(t *testing.T) {
	m, argsFile := recordingConvert(t)

	if err := m.Thumbnail(context.Background(), "/scratch/a.jpg", "/out/thumbnails/a.thumbnail.jpg", 120, 160, 50); err != nil {
		t.Fatalf("Thumbnail() error = %v", err)
	}
	want := []string{"/scratch/a.jpg", "-thumbnail", "120x160^", "-gravity", "center", "-extent", "120x160", "-quality", "50", "/out/thumbnails/a.thumbnail.jpg"}
	if got := readArgs(t, argsFile); strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("args = %q, want %q", got, want)
	}
}

func TestImageMagickFailure(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
	bin := filepath.Join(t.TempDir(), "convert")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\nexit 1\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	m := &ImageMagick{Binary: bin, Timeout: time.Second}

	err := m.Resize(context.Background(), "/scratch/a.jpg", "/out/a.jpg", 10, 10, 75)
	var perr *exttool.ProcessError
	if !errors.As(err, &perr) {
		t.Fatalf("Resize() error = %v, want *exttool.ProcessError", err)
	}
	if perr.Path != "/scratch/a.jpg" {
		t.Errorf("ProcessError.Path = %q", perr.Path)
	}
}

func writeTestJPEG(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 100, A: 255})
		}
	}
	path := filepath.Join(t.TempDir(), "src.jpg")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, nil); err != nil {
		t.Fatal(err)
	}
	return path
}

func dimensions(t *testing.T, path string) (int, int) {
	t.Helper()
	img, err := imaging.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func TestImagingResizeShrinksOnly(t *testing.T) {
	src := writeTestJPEG(t, 200, 100)
	c := NewImaging()
	dir := t.TempDir()

	small := filepath.Join(dir, "small.jpg")
	if err := c.Resize(context.Background(), src, small, 100, 100, 80); err != nil {
		t.Fatalf("Resize() error = %v", err)
	}
	if w, h := dimensions(t, small); w != 100 || h != 50 {
		t.Errorf("resized to %dx%d, want 100x50", w, h)
	}

	same := filepath.Join(dir, "same.jpg")
	if err := c.Resize(context.Background(), src, same, 400, 400, 80); err != nil {
		t.Fatalf("Resize() error = %v", err)
	}
	if w, h := dimensions(t, same); w != 200 || h != 100 {
		t.Errorf("enlarged to %dx%d, want 200x100", w, h)
	}
}

// withOrientation rewrites the JPEG at path with an EXIF APP1 segment
// carrying orientation.
func withOrientation(t *testing.T, path string, orientation byte) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	app1 := []byte{
		0xFF, 0xE1, 0x00, 0x22,
		'E', 'x', 'i', 'f', 0x00, 0x00,
		'M', 'M', 0x00, 0x2A, 0x00, 0x00, 0x00, 0x08,
		0x00, 0x01,
		0x01, 0x12, 0x00, 0x03, 0x00, 0x00, 0x00, 0x01, 0x00, orientation, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	}
	out := append(append(append([]byte{}, data[:2]...), app1...), data[2:]...)
	if err := os.WriteFile(path, out, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestImagingResizeKeepsStoredOrientation(t *testing.T) {
	src := writeTestJPEG(t, 200, 100)
	withOrientation(t, src, 6)
	dst := filepath.Join(t.TempDir(), "rotated.jpg")

	if err := NewImaging().Resize(context.Background(), src, dst, 200, 100, 80); err != nil {
		t.Fatalf("Resize() error = %v", err)
	}
	if w, h := dimensions(t, dst); w != 200 || h != 100 {
		t.Errorf("resized to %dx%d, want 200x100", w, h)
	}
}

func TestImagingThumbnailExactSize(t *testing.T) {
	src := writeTestJPEG(t, 300, 100)
	dst := filepath.Join(t.TempDir(), "thumb.jpg")

	if err := NewImaging().Thumbnail(context.Background(), src, dst, 160, 120, 50); err != nil {
		t.Fatalf("Thumbnail() error = %v", err)
	}
	if w, h := dimensions(t, dst); w != 160 || h != 120 {
		t.Errorf("thumbnail is %dx%d, want 160x120", w, h)
	}
}

func TestImagingCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewImaging().Resize(ctx, "/nonexistent.jpg", "/tmp/x.jpg", 1, 1, 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Resize() error = %v, want context.Canceled", err)
	}
}

func TestVipsUnavailableBeforeInit(t *testing.T) {
	if VipsAvailable() {
		t.Skip("libvips already initialised")
	}
	err := NewVips().Resize(context.Background(), "/a.jpg", "/b.jpg", 1, 1, 1)
	if !errors.Is(err, ErrVipsUnavailable) {
		t.Errorf("Resize() error = %v, want ErrVipsUnavailable", err)
	}
}

type countingGate struct {
	calls int
	err   error
}

func (g *countingGate) Wait(context.Context) error {
	g.calls++
	return g.err
}

func TestGated(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	f, err := os.Create(src)
	if err != nil {
		t.Fatal(err)
	}
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	if err := jpeg.Encode(f, img, nil); err != nil {
		t.Fatal(err)
	}
	f.Close()

	gate := &countingGate{}
	c := Gated(NewImaging(), gate)
	if c.Name() != ImagingName {
		t.Errorf("Name() = %q, want %q", c.Name(), ImagingName)
	}
	if err := c.Resize(context.Background(), src, filepath.Join(dir, "r.jpg"), 20, 20, 75); err != nil {
		t.Fatalf("Resize() error = %v", err)
	}
	if err := c.Thumbnail(context.Background(), src, filepath.Join(dir, "t.jpg"), 10, 10, 75); err != nil {
		t.Fatalf("Thumbnail() error = %v", err)
	}
	if gate.calls != 2 {
		t.Errorf("gate waited %d times, want 2", gate.calls)
	}

	gate.err = context.Canceled
	err = c.Resize(context.Background(), src, filepath.Join(dir, "never.jpg"), 20, 20, 75)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Resize() with closed gate = %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "never.jpg")); !os.IsNotExist(statErr) {
		t.Error("Resize ran despite the gate refusing")
	}
}
