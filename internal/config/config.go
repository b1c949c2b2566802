package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"dyphal/internal/filesystem"
	"dyphal/internal/logging"
)

var log = logging.Component("config")

// FileName is the name of the configuration file inside the configuration
// directory.
const FileName = "DyphalGenerator.conf"

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "DYPHAL"

// ErrInvalidResolution is returned by ParseResolution for text that is not
// of the form WIDTHxHEIGHT.
var ErrInvalidResolution = errors.New("invalid resolution")

// Config is the persistent state of the album generator.
//
// The first group of fields is shared with earlier versions of the
// generator and keeps their JSON keys. The rest are additions that older
// versions ignore.
type Config struct {
	// PhotoDir is the directory photos were last added from.
	PhotoDir string `mapstructure:"photoDir" json:"photoDir" yaml:"photoDir"`

	// Gthumb3Dir is the directory gThumb catalogs were last imported from.
	Gthumb3Dir string `mapstructure:"gthumb3Dir" json:"gthumb3Dir" yaml:"gthumb3Dir"`

	// OutputDir is the directory albums were last written to.
	OutputDir string `mapstructure:"outputDir" json:"outputDir" yaml:"outputDir"`

	// PhotoQuality is the JPEG quality of resized photos.
	PhotoQuality int `mapstructure:"photoQuality" json:"photoQuality" yaml:"photoQuality" validate:"min=1,max=100"`

	// Threads is the size of the background worker pool.
	Threads int `mapstructure:"threads" json:"threads" yaml:"threads" validate:"min=1,max=50"`

	// Dimensions is the last window size, or nil.
	Dimensions *[2]int `mapstructure:"dimensions" json:"dimensions" yaml:"dimensions" validate:"omitempty,dive,min=1"`

	// UIData holds the album settings last used, or nil.
	UIData *UIData `mapstructure:"uiData" json:"uiData" yaml:"uiData"`

	LogLevel      string `mapstructure:"logLevel" json:"logLevel" yaml:"logLevel" validate:"omitempty,oneof=debug info warn warning error DEBUG INFO WARN WARNING ERROR"`
	TemplateDir   string `mapstructure:"templateDir" json:"templateDir" yaml:"templateDir"`
	Converter     string `mapstructure:"converter" json:"converter" yaml:"converter" validate:"oneof=imagemagick imaging vips"`
	Extractor     string `mapstructure:"extractor" json:"extractor" yaml:"extractor" validate:"oneof=exiftool exif"`
	MetadataCache string `mapstructure:"metadataCache" json:"metadataCache" yaml:"metadataCache"`

	Preview PreviewConfig `mapstructure:"preview" json:"preview" yaml:"preview"`
	Publish PublishConfig `mapstructure:"publish" json:"publish" yaml:"publish"`

	path string
}

// UIData is the album information remembered between runs.
type UIData struct {
	Footer          string   `mapstructure:"footer" json:"footer" yaml:"footer"`
	CaptionFields   []string `mapstructure:"captionFields" json:"captionFields" yaml:"captionFields"`
	PropertyFields  []string `mapstructure:"propertyFields" json:"propertyFields" yaml:"propertyFields"`
	PhotoResolution [2]int   `mapstructure:"photoResolution" json:"photoResolution" yaml:"photoResolution" validate:"dive,min=1"`
}

// PreviewConfig configures the local preview server.
type PreviewConfig struct {
	// Addr is the listen address, host:port.
	Addr string `mapstructure:"addr" json:"addr" yaml:"addr" validate:"required,hostname_port"`
}

// PublishConfig configures uploads to S3-compatible storage.
type PublishConfig struct {
	Bucket string `mapstructure:"bucket" json:"bucket" yaml:"bucket"`

	// Prefix is prepended to every object key.
	Prefix string `mapstructure:"prefix" json:"prefix" yaml:"prefix"`

	Region string `mapstructure:"region" json:"region" yaml:"region"`

	// Endpoint selects a non-AWS service such as MinIO. Path-style
	// addressing is used when it is set.
	Endpoint string `mapstructure:"endpoint" json:"endpoint" yaml:"endpoint" validate:"omitempty,url"`

	// AccessKeyID and SecretAccessKey are used instead of the default
	// credential chain when both are set.
	AccessKeyID     string `mapstructure:"accessKeyId" json:"accessKeyId" yaml:"accessKeyId"`
	SecretAccessKey string `mapstructure:"secretAccessKey" json:"secretAccessKey" yaml:"secretAccessKey"`

	MaxRetries int `mapstructure:"maxRetries" json:"maxRetries" yaml:"maxRetries" validate:"min=0,max=20"`
}

// Load reads the configuration at configPath, or at DefaultPath when
// configPath is empty, and applies environment overrides.
//
// Load never fails. A file that cannot be read or decoded is ignored in
// favour of the defaults, and fields holding unusable values are reset to
// their defaults. Both are logged as warnings.
func Load(configPath string) *Config {
	if configPath == "" {
		configPath = DefaultPath()
	}

	cfg, err := load(configPath)
	if err != nil {
		log.Warn("ignoring configuration file %s: %v", configPath, err)
		cfg = Defaults()
	}
	cfg.path = configPath
	return cfg
}

func load(configPath string) (*Config, error) {
	defaults := Defaults()

	v := viper.New()
	setupViper(v, configPath, defaults)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := decode(v.AllSettings(), &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	resetInvalid(&cfg, defaults)
	return &cfg, nil
}

// setupViper configures viper with the file location, the defaults and
// environment variable support.
func setupViper(v *viper.Viper, configPath string, defaults *Config) {
	// Environment variables use the DYPHAL_ prefix and underscores
	// Example: DYPHAL_PUBLISH_BUCKET=albums
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	v.SetDefault("photoDir", defaults.PhotoDir)
	v.SetDefault("gthumb3Dir", defaults.Gthumb3Dir)
	v.SetDefault("outputDir", defaults.OutputDir)
	v.SetDefault("photoQuality", defaults.PhotoQuality)
	v.SetDefault("threads", defaults.Threads)
	v.SetDefault("logLevel", defaults.LogLevel)
	v.SetDefault("templateDir", defaults.TemplateDir)
	v.SetDefault("converter", defaults.Converter)
	v.SetDefault("extractor", defaults.Extractor)
	v.SetDefault("metadataCache", defaults.MetadataCache)
	v.SetDefault("preview.addr", defaults.Preview.Addr)
	v.SetDefault("publish.bucket", defaults.Publish.Bucket)
	v.SetDefault("publish.prefix", defaults.Publish.Prefix)
	v.SetDefault("publish.region", defaults.Publish.Region)
	v.SetDefault("publish.endpoint", defaults.Publish.Endpoint)
	v.SetDefault("publish.accessKeyId", defaults.Publish.AccessKeyID)
	v.SetDefault("publish.secretAccessKey", defaults.Publish.SecretAccessKey)
	v.SetDefault("publish.maxRetries", defaults.Publish.MaxRetries)

	// Keys without a default are bound explicitly so that they can still
	// be set from the environment.
	for _, key := range []string{
		"dimensions",
		"uiData.footer",
		"uiData.captionFields",
		"uiData.propertyFields",
		"uiData.photoResolution",
	} {
		_ = v.BindEnv(key)
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			// A missing file just means a first run
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	log.Debug("loaded configuration from %s", v.ConfigFileUsed())
	return nil
}

// decode converts the merged settings into cfg. Values coming from the
// environment are strings, so input is weakly typed and resolutions and
// field lists may be written as "800x600" and "Date,Location".
func decode(settings map[string]any, cfg *Config) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			stringToResolutionHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(settings)
}

var resolutionType = reflect.TypeOf([2]int{})

// stringToResolutionHookFunc returns a DecodeHookFunc that converts
// "WIDTHxHEIGHT" strings to [2]int.
func stringToResolutionHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t != resolutionType {
			return data, nil
		}
		return ParseResolution(data.(string))
	}
}

// ParseResolution parses "WIDTHxHEIGHT" into its two positive dimensions.
func ParseResolution(s string) ([2]int, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return [2]int{}, fmt.Errorf("%w: %q", ErrInvalidResolution, s)
	}
	width, err := strconv.Atoi(w)
	if err != nil || width <= 0 {
		return [2]int{}, fmt.Errorf("%w: %q", ErrInvalidResolution, s)
	}
	height, err := strconv.Atoi(h)
	if err != nil || height <= 0 {
		return [2]int{}, fmt.Errorf("%w: %q", ErrInvalidResolution, s)
	}
	return [2]int{width, height}, nil
}

// Path returns the file Save writes to.
func (c *Config) Path() string {
	if c.path == "" {
		return DefaultPath()
	}
	return c.path
}

// Save writes the configuration back to its file as compact JSON with
// sorted keys. The file may hold credentials, so it is created readable
// by its owner only.
func (c *Config) Save() error {
	path := c.Path()

	data, err := c.marshal()
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := filesystem.EnsureDirectory(filepath.Dir(path), filesystem.DefaultRetryConfig()); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+FileName+".*")
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	defer func() {
		if removeErr := os.Remove(tmp.Name()); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			log.Debug("failed to remove %s: %v", tmp.Name(), removeErr)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	log.Debug("saved configuration to %s", path)
	return nil
}

// marshal encodes c with the keys of every object in sorted order.
func (c *Config) marshal() ([]byte, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}

	// Maps are encoded with sorted keys, structs in declaration order.
	var tree map[string]any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, err
	}

	out, err := json.Marshal(tree)
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// Redacted returns a copy of c with secrets masked, for display.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Dimensions != nil {
		dims := *out.Dimensions
		out.Dimensions = &dims
	}
	if out.UIData != nil {
		ui := *out.UIData
		out.UIData = &ui
	}
	if out.Publish.SecretAccessKey != "" {
		out.Publish.SecretAccessKey = "********"
	}
	return &out
}

// configDir returns the directory holding the configuration file.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func configDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return xdgConfig
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config")
}

// DefaultPath returns the default configuration file path.
func DefaultPath() string {
	return filepath.Join(configDir(), FileName)
}
