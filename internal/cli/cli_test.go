package cli

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"dyphal/internal/config"
	"dyphal/internal/convert"
	"dyphal/internal/exttool"
	"dyphal/internal/generator"
)

// run executes the command line with HOME pointed at a fresh directory
// and returns what was written to stdout.
func run(t *testing.T, home string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("DYPHAL_PUBLISH_BUCKET", "")

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestExpandInputs(t *testing.T) {
	dir := t.TempDir()
	photos := filepath.Join(dir, "photos")
	writeFile(t, filepath.Join(photos, "b.png"), "b")
	writeFile(t, filepath.Join(photos, "a.jpg"), "a")
	writeFile(t, filepath.Join(photos, "notes.txt"), "n")
	writeFile(t, filepath.Join(photos, "nested", "c.jpg"), "c")
	writeFile(t, filepath.Join(dir, "trip.catalog"), `<?xml version="1.0" encoding="UTF-8"?>
<catalog version="1.0">
  <files>
    <file uri="file:///srv/photos/z.jpg"/>
    <file uri="http://example.com/remote.jpg"/>
  </files>
</catalog>
`)
	missing := filepath.Join(dir, "missing.jpg")

	got, err := expandInputs([]string{photos, filepath.Join(dir, "trip.catalog"), missing})
	if err != nil {
		t.Fatalf("expandInputs() error = %v", err)
	}
	want := []string{
		filepath.Join(photos, "a.jpg"),
		filepath.Join(photos, "b.png"),
		"/srv/photos/z.jpg",
		missing,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expandInputs() = %v, want %v", got, want)
	}
}

func TestExpandInputsBadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.catalog")
	writeFile(t, path, "<catalog")

	if _, err := expandInputs([]string{path}); err == nil {
		t.Error("expandInputs() accepted a broken catalog")
	}
}

func TestCheckName(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
	}{
		{"beach.jpg", true},
		{"beach 2.jpg", true},
		{".", false},
		{"..", false},
		{"a/b.jpg", false},
		{`a\b.jpg`, false},
	}
	for _, tt := range tests {
		if got := checkName(tt.name) == ""; got != tt.ok {
			t.Errorf("checkName(%q) ok = %v, want %v", tt.name, got, tt.ok)
		}
	}
}

func TestPromptRenamer(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{name: "new name", input: "beach-2.jpg\n", want: "beach-2.jpg", wantOK: true},
		{name: "retry after slash", input: "a/b.jpg\nb.jpg\n", want: "b.jpg", wantOK: true},
		{name: "blank skips", input: "\n", wantOK: false},
		{name: "end of input", input: "", wantOK: false},
		{name: "bad name at end of input", input: "a/b", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			r := newPromptRenamer(strings.NewReader(tt.input), &out)
			got, ok := r.Rename("/photos/beach.jpg")
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Rename() = %q, %v, want %q, %v", got, ok, tt.want, tt.wantOK)
			}
			if !strings.Contains(out.String(), "'beach.jpg' is already in the album") {
				t.Errorf("prompt = %q", out.String())
			}
		})
	}
}

func TestAlbumPage(t *testing.T) {
	dir := t.TempDir()
	if got := albumPage(dir); got != "" {
		t.Errorf("albumPage(empty) = %q", got)
	}
	writeFile(t, filepath.Join(dir, "trip.dyphal"), "{}")
	if got := albumPage(dir); got != "index.html#trip.json" {
		t.Errorf("albumPage() = %q", got)
	}
}

func TestRememberedInfo(t *testing.T) {
	a := &app{cfg: &config.Config{}}
	info := a.rememberedInfo()
	if info.PhotoResolution != generator.DefaultResolution || info.CaptionFields != nil {
		t.Errorf("rememberedInfo() without saved data = %+v", info)
	}

	a.remember(generator.Info{
		Title:           "not remembered",
		Footer:          "footer",
		CaptionFields:   []string{"Date"},
		PropertyFields:  []string{"ISO"},
		PhotoResolution: [2]int{1024, 768},
	})
	info = a.rememberedInfo()
	want := generator.Info{
		Footer:          "footer",
		CaptionFields:   []string{"Date"},
		PropertyFields:  []string{"ISO"},
		PhotoResolution: [2]int{1024, 768},
	}
	if !reflect.DeepEqual(info, want) {
		t.Errorf("rememberedInfo() = %+v, want %+v", info, want)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, t.TempDir(), "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.HasPrefix(out, "dyphal ") {
		t.Errorf("version output = %q", out)
	}
}

func TestUnknownLogLevel(t *testing.T) {
	if _, err := run(t, t.TempDir(), "--log-level", "loud", "version"); err == nil {
		t.Error("unknown log level accepted")
	}
}

func TestConfigCommands(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(home, "dyphal.conf")
	writeFile(t, path, `{"photoQuality": 90, "publish": {"bucket": "albums", "secretAccessKey": "hunter2"}}`)

	out, err := run(t, home, "--config", path, "config", "path")
	if err != nil {
		t.Fatalf("config path error = %v", err)
	}
	if strings.TrimSpace(out) != path {
		t.Errorf("config path = %q, want %q", out, path)
	}

	out, err = run(t, home, "--config", path, "config", "show")
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	for _, want := range []string{"photoQuality: 90", "bucket: albums", "********"} {
		if !strings.Contains(out, want) {
			t.Errorf("config show missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "hunter2") {
		t.Errorf("config show printed the secret:\n%s", out)
	}

	out, err = run(t, home, "--config", path, "config", "validate")
	if err != nil || !strings.Contains(out, "valid") {
		t.Errorf("config validate = %q, %v", out, err)
	}
}

func TestImportCatalog(t *testing.T) {
	home := t.TempDir()
	catalogs := filepath.Join(home, "catalogs")
	writeFile(t, filepath.Join(catalogs, "trip.catalog"), `<?xml version="1.0" encoding="UTF-8"?>
<catalog version="1.0">
  <files>
    <file uri="file:///srv/photos/b.jpg"/>
    <file uri="file:///srv/photos/a.jpg"/>
  </files>
</catalog>
`)
	path := filepath.Join(home, "dyphal.conf")
	writeFile(t, path, `{"gthumb3Dir": "`+catalogs+`"}`)

	t.Chdir(home)
	out, err := run(t, home, "--config", path, "import-catalog", "trip")
	if err != nil {
		t.Fatalf("import-catalog error = %v", err)
	}
	if out != "/srv/photos/a.jpg\n/srv/photos/b.jpg\n" {
		t.Errorf("import-catalog output = %q", out)
	}
	if got := config.Load(path).Gthumb3Dir; got != catalogs {
		t.Errorf("saved gthumb3Dir = %q, want %q", got, catalogs)
	}
}

func TestImportCatalogMissing(t *testing.T) {
	home := t.TempDir()
	t.Chdir(home)
	_, err := run(t, home, "import-catalog", "nothing")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("import-catalog error = %v, want not exist", err)
	}
}

func TestGenerateRequiresAlbum(t *testing.T) {
	if _, err := run(t, t.TempDir(), "generate", "photo.jpg"); err == nil {
		t.Error("generate without --album succeeded")
	}
}

func TestPublishRequiresBucket(t *testing.T) {
	home := t.TempDir()
	if _, err := run(t, home, "publish", home); err == nil {
		t.Error("publish without a bucket succeeded")
	}
}

func TestConverterUsesBackgroundTimeout(t *testing.T) {
	c, err := newConverter(convert.ImageMagickName)
	if err != nil {
		t.Fatalf("newConverter() error = %v", err)
	}
	m, ok := c.(*convert.ImageMagick)
	if !ok {
		t.Fatalf("newConverter() = %T, want *convert.ImageMagick", c)
	}
	if m.Timeout != exttool.DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", m.Timeout, exttool.DefaultTimeout)
	}
}
