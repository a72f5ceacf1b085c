package config

import (
	"fmt"
	"sort"
	"strings"

	"aisetup/internal/domain"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// Unwrap lets callers match validation failures with domain.ErrInvalidInput.
func (v *ValidationError) Unwrap() error { return domain.ErrInvalidInput }

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateCatalog(cfg, ve)
	validateSetup(cfg, ve)
	validateSettings(cfg, ve)
	validateSink(cfg, ve)
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateCatalog(cfg *Config, ve *ValidationError) {
	for _, name := range sortedKeys(cfg.Catalog) {
		if _, err := domain.ParsePlatformType(name); err != nil {
			ve.Add("catalog.%s: unknown platform", name)
			continue
		}
		models := cfg.Catalog[name]
		if len(models) == 0 {
			ve.Add("catalog.%s must list at least one model", name)
			continue
		}
		seen := make(map[string]bool, len(models))
		for i, m := range models {
			if strings.TrimSpace(m) == "" {
				ve.Add("catalog.%s[%d] must not be empty", name, i)
			}
			if seen[m] {
				ve.Add("catalog.%s[%d]: duplicate model %q", name, i, m)
			}
			seen[m] = true
		}
	}
}

// validateSetup range-checks default indices against catalog overrides. Built-in
// lists are checked once the catalog is assembled (see onboarding.Catalog.CheckIndex).
func validateSetup(cfg *Config, ve *ValidationError) {
	for _, name := range sortedKeys(cfg.Setup.DefaultModelIndex) {
		idx := cfg.Setup.DefaultModelIndex[name]
		if _, err := domain.ParsePlatformType(name); err != nil {
			ve.Add("setup.default_model_index.%s: unknown platform", name)
			continue
		}
		if idx < 0 {
			ve.Add("setup.default_model_index.%s must be >= 0", name)
			continue
		}
		if models, ok := cfg.Catalog[name]; ok && len(models) > 0 && idx >= len(models) {
			ve.Add("setup.default_model_index.%s = %d is out of range (catalog has %d models)", name, idx, len(models))
		}
	}
}

func validateSettings(cfg *Config, ve *ValidationError) {
	if cfg.Settings.Path == "" {
		ve.Add("settings.path must not be empty")
	}
	if cfg.Settings.Encrypt && cfg.Settings.Passphrase == "" {
		ve.Add("settings.encrypt requires a passphrase (set %s)", EnvSettingsKey)
	}
}

func validateSink(cfg *Config, ve *ValidationError) {
	s := cfg.Sink
	if s.MaxFailures == 0 {
		ve.Add("sink.max_failures must be > 0")
	}
	if s.Timeout <= 0 {
		ve.Add("sink.timeout must be > 0")
	}
	if s.WriteTimeout <= 0 {
		ve.Add("sink.write_timeout must be > 0")
	}
	if s.WritesPerSecond < 0 {
		ve.Add("sink.writes_per_second must be >= 0")
	}
	if s.WritesPerSecond > 0 && s.Burst <= 0 {
		ve.Add("sink.burst must be > 0 when writes_per_second is set")
	}
	if s.Retries < 0 {
		ve.Add("sink.retries must be >= 0")
	}
	if s.RetryBackoff < 0 {
		ve.Add("sink.retry_backoff must be >= 0")
	}
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
var validLogFormats = map[string]bool{"text": true, "json": true}

func validateLogger(cfg *Config, ve *ValidationError) {
	if !validLogLevels[strings.ToLower(cfg.Logger.Level)] {
		ve.Add("logger.level %q is invalid (want: debug, info, warn, error)", cfg.Logger.Level)
	}
	if !validLogFormats[strings.ToLower(cfg.Logger.Format)] {
		ve.Add("logger.format %q is invalid (want: text, json)", cfg.Logger.Format)
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	if !cfg.Tracer.Enabled {
		return
	}
	switch cfg.Tracer.Exporter {
	case "stdout", "noop", "":
	default:
		ve.Add("tracer.exporter %q is invalid (want: stdout, noop)", cfg.Tracer.Exporter)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
