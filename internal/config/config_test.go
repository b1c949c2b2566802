package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dyphal/internal/generator"
	"dyphal/internal/workers"
)

// isolate points HOME and XDG_CONFIG_HOME at a temporary directory and
// clears the overrides a developer might have exported.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	for _, name := range []string{
		"DYPHAL_THREADS", "DYPHAL_PHOTOQUALITY", "DYPHAL_CONVERTER",
		"DYPHAL_UIDATA_PHOTORESOLUTION", "DYPHAL_PUBLISH_BUCKET",
	} {
		t.Setenv(name, "")
	}
	return home
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	home := isolate(t)

	cfg := Load("")

	assert.Equal(t, filepath.Join(home, ".config", FileName), cfg.Path())
	assert.Equal(t, home, cfg.PhotoDir)
	assert.Equal(t, home, cfg.OutputDir)
	assert.Equal(t, filepath.Join(home, ".local", "share", "gthumb", "catalogs"), cfg.Gthumb3Dir)
	assert.Equal(t, generator.DefaultPhotoQuality, cfg.PhotoQuality)
	assert.Equal(t, workers.DefaultThreads(), cfg.Threads)
	assert.Nil(t, cfg.Dimensions)
	assert.Nil(t, cfg.UIData)
	assert.Equal(t, "imagemagick", cfg.Converter)
	assert.Equal(t, "exiftool", cfg.Extractor)
	assert.Equal(t, DefaultPreviewAddr, cfg.Preview.Addr)
	assert.Equal(t, DefaultMaxRetries, cfg.Publish.MaxRetries)
}

func TestLoad_ExistingFile(t *testing.T) {
	home := isolate(t)
	path := writeConfig(t, home, `{
		"dimensions": [1024, 700],
		"gthumb3Dir": "/srv/catalogs",
		"outputDir": "/srv/albums",
		"photoDir": "/srv/photos",
		"photoQuality": 90,
		"threads": 4,
		"uiData": {
			"footer": "Copyright me",
			"captionFields": ["Description", "Date"],
			"propertyFields": ["ISO"],
			"photoResolution": [1280, 1024]
		},
		"converter": "imaging",
		"publish": {"bucket": "albums", "endpoint": "http://localhost:9000"}
	}`)

	cfg := Load(path)

	assert.Equal(t, path, cfg.Path())
	assert.Equal(t, "/srv/photos", cfg.PhotoDir)
	assert.Equal(t, "/srv/catalogs", cfg.Gthumb3Dir)
	assert.Equal(t, "/srv/albums", cfg.OutputDir)
	assert.Equal(t, 90, cfg.PhotoQuality)
	assert.Equal(t, 4, cfg.Threads)
	require.NotNil(t, cfg.Dimensions)
	assert.Equal(t, [2]int{1024, 700}, *cfg.Dimensions)
	require.NotNil(t, cfg.UIData)
	assert.Equal(t, "Copyright me", cfg.UIData.Footer)
	assert.Equal(t, []string{"Description", "Date"}, cfg.UIData.CaptionFields)
	assert.Equal(t, []string{"ISO"}, cfg.UIData.PropertyFields)
	assert.Equal(t, [2]int{1280, 1024}, cfg.UIData.PhotoResolution)
	assert.Equal(t, "imaging", cfg.Converter)
	assert.Equal(t, "albums", cfg.Publish.Bucket)
	assert.Equal(t, "http://localhost:9000", cfg.Publish.Endpoint)
	// Unset keys keep their defaults
	assert.Equal(t, "exiftool", cfg.Extractor)
	assert.Equal(t, DefaultRegion, cfg.Publish.Region)
}

func TestLoad_OutOfRangeValuesReset(t *testing.T) {
	tests := []struct {
		name    string
		content string
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name:    "quality zero",
			content: `{"photoQuality": 0, "threads": 3}`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, generator.DefaultPhotoQuality, cfg.PhotoQuality)
				assert.Equal(t, 3, cfg.Threads)
			},
		},
		{
			name:    "quality above 100",
			content: `{"photoQuality": 101}`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, generator.DefaultPhotoQuality, cfg.PhotoQuality)
			},
		},
		{
			name:    "too many threads",
			content: `{"threads": 51, "photoQuality": 60}`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, workers.DefaultThreads(), cfg.Threads)
				assert.Equal(t, 60, cfg.PhotoQuality)
			},
		},
		{
			name:    "unknown converter",
			content: `{"converter": "gimp"}`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "imagemagick", cfg.Converter)
			},
		},
		{
			name:    "zero photo resolution",
			content: `{"uiData": {"footer": "f", "photoResolution": [0, 600]}}`,
			check: func(t *testing.T, cfg *Config) {
				require.NotNil(t, cfg.UIData)
				assert.Equal(t, "f", cfg.UIData.Footer)
				assert.Equal(t, generator.DefaultResolution, cfg.UIData.PhotoResolution)
			},
		},
		{
			name:    "negative dimensions",
			content: `{"dimensions": [-1, 400]}`,
			check: func(t *testing.T, cfg *Config) {
				assert.Nil(t, cfg.Dimensions)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			home := isolate(t)
			cfg := Load(writeConfig(t, home, tt.content))
			tt.check(t, cfg)
			assert.NoError(t, Validate(cfg))
		})
	}
}

func TestLoad_CorruptFileUsesDefaults(t *testing.T) {
	for _, content := range []string{`{"photoDir": `, `not json`, `{"photoQuality": "high"}`} {
		home := isolate(t)
		path := writeConfig(t, home, content)

		cfg := Load(path)

		assert.Equal(t, path, cfg.Path(), content)
		assert.Equal(t, home, cfg.PhotoDir, content)
		assert.Equal(t, generator.DefaultPhotoQuality, cfg.PhotoQuality, content)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	home := isolate(t)
	path := writeConfig(t, home, `{"photoQuality": 60, "publish": {"bucket": "from-file"}}`)
	t.Setenv("DYPHAL_PHOTOQUALITY", "85")
	t.Setenv("DYPHAL_PUBLISH_BUCKET", "from-env")
	t.Setenv("DYPHAL_UIDATA_PHOTORESOLUTION", "1024x768")

	cfg := Load(path)

	assert.Equal(t, 85, cfg.PhotoQuality)
	assert.Equal(t, "from-env", cfg.Publish.Bucket)
	require.NotNil(t, cfg.UIData)
	assert.Equal(t, [2]int{1024, 768}, cfg.UIData.PhotoResolution)
}

func TestSave_SortedKeys(t *testing.T) {
	home := isolate(t)
	cfg := Load("")
	cfg.PhotoQuality = 80
	cfg.UIData = &UIData{Footer: "<footer>", PhotoResolution: [2]int{800, 600}}

	require.NoError(t, cfg.Save())

	data, err := os.ReadFile(filepath.Join(home, ".config", FileName))
	require.NoError(t, err)
	text := string(data)

	assert.True(t, strings.HasSuffix(text, "}\n"))
	order := []string{
		`"converter"`, `"dimensions":null`, `"extractor"`, `"gthumb3Dir"`, `"logLevel"`,
		`"metadataCache"`, `"outputDir"`, `"photoDir"`, `"photoQuality":80`, `"preview"`,
		`"publish"`, `"templateDir"`, `"threads"`, `"uiData"`,
	}
	last := -1
	for _, key := range order {
		idx := strings.Index(text, key)
		require.GreaterOrEqual(t, idx, 0, key)
		assert.Greater(t, idx, last, key)
		last = idx
	}
	assert.Less(t, strings.Index(text, `"captionFields"`), strings.Index(text, `"footer"`))

	info, err := os.Stat(filepath.Join(home, ".config", FileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded, len(order))
}

func TestSave_RoundTrip(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "nested", "dir", FileName)

	cfg := Load(path)
	dims := [2]int{640, 480}
	cfg.Dimensions = &dims
	cfg.PhotoDir = "/photos"
	cfg.Publish.SecretAccessKey = "secret"
	cfg.UIData = &UIData{
		Footer:          "footer",
		CaptionFields:   []string{"Date"},
		PropertyFields:  []string{"ISO", "Aperture"},
		PhotoResolution: [2]int{1600, 1200},
	}
	require.NoError(t, cfg.Save())

	loaded := Load(path)
	assert.Equal(t, cfg.PhotoDir, loaded.PhotoDir)
	assert.Equal(t, cfg.Dimensions, loaded.Dimensions)
	assert.Equal(t, cfg.UIData, loaded.UIData)
	assert.Equal(t, "secret", loaded.Publish.SecretAccessKey)
}

func TestParseResolution(t *testing.T) {
	tests := []struct {
		in      string
		want    [2]int
		wantErr bool
	}{
		{in: "800x600", want: [2]int{800, 600}},
		{in: " 1024X768 ", want: [2]int{1024, 768}},
		{in: "800", wantErr: true},
		{in: "0x600", wantErr: true},
		{in: "800x-1", wantErr: true},
		{in: "axb", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseResolution(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidResolution)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate(t *testing.T) {
	isolate(t)

	cfg := Defaults()
	require.NoError(t, Validate(cfg))

	cfg.Extractor = "identify"
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Config.Extractor")
	assert.Contains(t, err.Error(), "oneof")

	cfg = Defaults()
	cfg.Preview.Addr = "localhost"
	assert.Error(t, Validate(cfg))
}

func TestRedacted(t *testing.T) {
	isolate(t)

	cfg := Defaults()
	cfg.Publish.SecretAccessKey = "secret"
	cfg.UIData = &UIData{Footer: "f"}

	shown := cfg.Redacted()
	shown.UIData.Footer = "changed"

	assert.Equal(t, "********", shown.Publish.SecretAccessKey)
	assert.Equal(t, "secret", cfg.Publish.SecretAccessKey)
	assert.Equal(t, "f", cfg.UIData.Footer)
}
