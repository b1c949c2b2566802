package config

import (
	"os"
	"path/filepath"

	"dyphal/internal/convert"
	"dyphal/internal/generator"
	"dyphal/internal/workers"
)

// Default values for settings that are not album state.
const (
	DefaultExtractor   = "exiftool"
	DefaultPreviewAddr = "127.0.0.1:8080"
	DefaultRegion      = "us-east-1"
	DefaultMaxRetries  = 3
)

// Defaults returns the configuration used when no file exists.
//
// Directories default to the home directory, the gThumb catalog directory
// to gThumb 3's catalog store and the template to the shared data
// directory the viewer files are installed into.
func Defaults() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	return &Config{
		PhotoDir:     home,
		Gthumb3Dir:   filepath.Join(home, ".local", "share", "gthumb", "catalogs"),
		OutputDir:    home,
		PhotoQuality: generator.DefaultPhotoQuality,
		Threads:      workers.DefaultThreads(),
		TemplateDir:  filepath.Join(home, ".share", "dyphal"),
		Converter:    convert.ImageMagickName,
		Extractor:    DefaultExtractor,
		Preview: PreviewConfig{
			Addr: DefaultPreviewAddr,
		},
		Publish: PublishConfig{
			Region:     DefaultRegion,
			MaxRetries: DefaultMaxRetries,
		},
	}
}
