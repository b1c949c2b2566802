package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"dyphal/internal/generator"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate checks the configuration against its struct tags and returns
// the first violation.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		return errors.New(describe(validationErrs[0]))
	}
	return err
}

func describe(e validator.FieldError) string {
	return fmt.Sprintf("%s: validation failed on '%s' tag (value: %v)",
		e.Namespace(), e.Tag(), e.Value())
}

// resetters restore one field, keyed by the struct namespace reported by
// the validator with any element index removed.
var resetters = map[string]func(cfg, defaults *Config){
	"Config.PhotoQuality": func(cfg, defaults *Config) { cfg.PhotoQuality = defaults.PhotoQuality },
	"Config.Threads":      func(cfg, defaults *Config) { cfg.Threads = defaults.Threads },
	"Config.Dimensions":   func(cfg, _ *Config) { cfg.Dimensions = nil },
	"Config.UIData.PhotoResolution": func(cfg, _ *Config) {
		cfg.UIData.PhotoResolution = generator.DefaultResolution
	},
	"Config.LogLevel":           func(cfg, defaults *Config) { cfg.LogLevel = defaults.LogLevel },
	"Config.Converter":          func(cfg, defaults *Config) { cfg.Converter = defaults.Converter },
	"Config.Extractor":          func(cfg, defaults *Config) { cfg.Extractor = defaults.Extractor },
	"Config.Preview.Addr":       func(cfg, defaults *Config) { cfg.Preview.Addr = defaults.Preview.Addr },
	"Config.Publish.Endpoint":   func(cfg, defaults *Config) { cfg.Publish.Endpoint = defaults.Publish.Endpoint },
	"Config.Publish.MaxRetries": func(cfg, defaults *Config) { cfg.Publish.MaxRetries = defaults.Publish.MaxRetries },
}

// resetInvalid replaces every field that fails validation with its default
// and logs a warning for each.
func resetInvalid(cfg, defaults *Config) {
	err := validate.Struct(cfg)
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return
	}

	for _, e := range validationErrs {
		field, _, _ := strings.Cut(e.StructNamespace(), "[")
		reset, ok := resetters[field]
		if !ok {
			log.Warn("%s", describe(e))
			continue
		}
		log.Warn("%s; using the default", describe(e))
		reset(cfg, defaults)
	}
}
