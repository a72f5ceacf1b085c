package config

import (
	"errors"
	"strings"
	"testing"

	"aisetup/internal/domain"
)

func TestValidateDefaultsPass(t *testing.T) {
	if err := Validate(Defaults()); err != nil {
		t.Fatalf("Defaults should pass validation: %v", err)
	}
}

func TestValidateTable(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "unknown catalog platform",
			mutate: func(c *Config) { c.Catalog = map[string][]string{"mistral": {"m"}} },
			want:   "catalog.mistral: unknown platform",
		},
		{
			name:   "empty catalog list",
			mutate: func(c *Config) { c.Catalog = map[string][]string{"openai": {}} },
			want:   "catalog.openai must list at least one model",
		},
		{
			name:   "blank catalog entry",
			mutate: func(c *Config) { c.Catalog = map[string][]string{"openai": {"gpt-4o", " "}} },
			want:   "catalog.openai[1] must not be empty",
		},
		{
			name:   "duplicate catalog entry",
			mutate: func(c *Config) { c.Catalog = map[string][]string{"openai": {"gpt-4o", "gpt-4o"}} },
			want:   "duplicate model",
		},
		{
			name:   "negative default index",
			mutate: func(c *Config) { c.Setup.DefaultModelIndex["anthropic"] = -1 },
			want:   "setup.default_model_index.anthropic must be >= 0",
		},
		{
			name:   "unknown default index platform",
			mutate: func(c *Config) { c.Setup.DefaultModelIndex["mistral"] = 0 },
			want:   "setup.default_model_index.mistral: unknown platform",
		},
		{
			name: "default index beyond override",
			mutate: func(c *Config) {
				c.Catalog = map[string][]string{"google": {"gemini-2.5-pro"}}
				c.Setup.DefaultModelIndex["google"] = 1
			},
			want: "out of range",
		},
		{
			name:   "empty settings path",
			mutate: func(c *Config) { c.Settings.Path = "" },
			want:   "settings.path must not be empty",
		},
		{
			name:   "encrypt without passphrase",
			mutate: func(c *Config) { c.Settings.Encrypt = true },
			want:   EnvSettingsKey,
		},
		{
			name:   "zero max failures",
			mutate: func(c *Config) { c.Sink.MaxFailures = 0 },
			want:   "sink.max_failures must be > 0",
		},
		{
			name:   "zero write timeout",
			mutate: func(c *Config) { c.Sink.WriteTimeout = 0 },
			want:   "sink.write_timeout must be > 0",
		},
		{
			name:   "rate without burst",
			mutate: func(c *Config) { c.Sink.Burst = 0 },
			want:   "sink.burst must be > 0",
		},
		{
			name:   "negative retries",
			mutate: func(c *Config) { c.Sink.Retries = -1 },
			want:   "sink.retries must be >= 0",
		},
		{
			name:   "bad log level",
			mutate: func(c *Config) { c.Logger.Level = "verbose" },
			want:   "logger.level",
		},
		{
			name:   "bad log format",
			mutate: func(c *Config) { c.Logger.Format = "xml" },
			want:   "logger.format",
		},
		{
			name: "bad exporter",
			mutate: func(c *Config) {
				c.Tracer.Enabled = true
				c.Tracer.Exporter = "zipkin"
			},
			want: "tracer.exporter",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			assertContains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateAccumulatesErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Settings.Path = ""
	cfg.Sink.Retries = -1
	cfg.Logger.Level = "loud"

	err := Validate(cfg)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if len(ve.Errors) != 3 {
		t.Errorf("got %d errors, want 3: %v", len(ve.Errors), ve.Errors)
	}
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Error("validation error should match domain.ErrInvalidInput")
	}
}

func TestValidateDisabledTracerIgnoresExporter(t *testing.T) {
	cfg := Defaults()
	cfg.Tracer.Exporter = "zipkin"
	if err := Validate(cfg); err != nil {
		t.Errorf("disabled tracer should not validate exporter: %v", err)
	}
}

func TestValidateOverrideWithinRange(t *testing.T) {
	cfg := Defaults()
	cfg.Catalog = map[string][]string{"google": {"a", "b", "c"}}
	cfg.Setup.DefaultModelIndex["google"] = 2
	if err := Validate(cfg); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func assertContains(t *testing.T, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("expected %q to contain %q", s, substr)
	}
}
