package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"aisetup/cmd/aisetup/setup"
	"aisetup/internal/adapter/settings"
	"aisetup/internal/domain"
	"aisetup/internal/infra/config"
	"aisetup/internal/usecase/eventbus"
	"aisetup/internal/usecase/onboarding"
)

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aisetup.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// isolate points every setting that touches the filesystem at a temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvConfigPath, filepath.Join(dir, "missing.yaml"))
	t.Setenv("AISETUP_SETTINGS_PATH", filepath.Join(dir, "settings.db"))
	t.Setenv("AISETUP_LOGGER_OUTPUT", "discard")
	return dir
}

func TestConfigPath(t *testing.T) {
	t.Setenv(config.EnvConfigPath, "")
	if got := configPath(nil); got != "aisetup.yaml" {
		t.Errorf("default = %q", got)
	}
	if got := configPath([]string{"--config", "a.yaml"}); got != "a.yaml" {
		t.Errorf("flag = %q", got)
	}
	if got := configPath([]string{"--config=b.yaml"}); got != "b.yaml" {
		t.Errorf("flag= = %q", got)
	}
	t.Setenv(config.EnvConfigPath, "env.yaml")
	if got := configPath(nil); got != "env.yaml" {
		t.Errorf("env = %q", got)
	}
}

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		args []string
		cmd  string
		rest []string
	}{
		{nil, "setup", nil},
		{[]string{"--plain"}, "setup", []string{"--plain"}},
		{[]string{"status"}, "status", []string{}},
		{[]string{"--config", "x.yaml", "models"}, "models", []string{"--config", "x.yaml"}},
		{[]string{"setup", "--dry-run"}, "setup", []string{"--dry-run"}},
	}
	for _, tt := range tests {
		cmd, rest := splitCommand(tt.args)
		if cmd != tt.cmd {
			t.Errorf("splitCommand(%v) cmd = %q, want %q", tt.args, cmd, tt.cmd)
		}
		if len(rest) != len(tt.rest) || (len(rest) > 0 && !slices.Equal(rest, tt.rest)) {
			t.Errorf("splitCommand(%v) rest = %v, want %v", tt.args, rest, tt.rest)
		}
	}
}

func TestBuildCatalog_DefaultIndexOutOfRange(t *testing.T) {
	cfg := config.Defaults()
	cfg.Setup.DefaultModelIndex["google"] = 3

	_, err := buildCatalog(cfg)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	if !strings.Contains(err.Error(), "setup.default_model_index.google") {
		t.Errorf("error should name the key: %v", err)
	}
}

func TestModelsListing_MarksDefault(t *testing.T) {
	out := modelsListing(onboarding.DefaultCatalog(), func(p domain.PlatformType) int {
		if p == domain.PlatformOpenAI {
			return 1
		}
		return 0
	})
	if !strings.Contains(out, "* 2. gpt-4-turbo") {
		t.Errorf("openai default not marked:\n%s", out)
	}
	if !strings.Contains(out, "  1. gpt-4o") {
		t.Errorf("gpt-4o should be unmarked:\n%s", out)
	}
	if !strings.Contains(out, "* 1. claude-3-opus-20240229") {
		t.Errorf("anthropic default not marked:\n%s", out)
	}
}

func TestRunModels_UsesCatalogOverride(t *testing.T) {
	isolate(t)
	path := writeTestConfig(t, `
catalog:
  openai: [gpt-4o-mini, o1]
setup:
  default_model_index:
    openai: 1
`)
	var out bytes.Buffer
	if err := runModels([]string{"--config", path}, &out); err != nil {
		t.Fatalf("runModels: %v", err)
	}
	if !strings.Contains(out.String(), "* 2. o1") {
		t.Errorf("override not listed:\n%s", out.String())
	}
}

func TestLoadConfig_WrapsReadErrors(t *testing.T) {
	isolate(t)
	path := writeTestConfig(t, "setup: [not a map")
	_, err := loadConfig([]string{"--config", path})
	if !errors.Is(err, domain.ErrConfigLoad) {
		t.Fatalf("err = %v, want ErrConfigLoad", err)
	}
}

func TestLoadConfig_KeepsValidationErrors(t *testing.T) {
	isolate(t)
	path := writeTestConfig(t, "sink:\n  retries: -1\n")
	_, err := loadConfig([]string{"--config", path})
	var ve *config.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if errors.Is(err, domain.ErrConfigLoad) {
		t.Error("validation errors should not be reported as load failures")
	}
}

func TestRunStatus(t *testing.T) {
	dir := isolate(t)

	var out bytes.Buffer
	if err := runStatus(nil, &out); err != nil {
		t.Fatalf("runStatus: %v", err)
	}
	if !strings.Contains(out.String(), "Nothing saved yet") {
		t.Errorf("empty store output:\n%s", out.String())
	}

	store, err := settings.OpenSQLite(filepath.Join(dir, "settings.db"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	_ = store.UpdateStatus(ctx, domain.PlatformOpenAI, true)
	_ = store.UpdateToken(ctx, domain.PlatformOpenAI, "sk-abcdef123456")
	_ = store.UpdateModel(ctx, domain.PlatformOpenAI, "gpt-4")
	store.Close()

	out.Reset()
	if err := runStatus(nil, &out); err != nil {
		t.Fatalf("runStatus: %v", err)
	}
	got := out.String()
	if strings.Contains(got, "sk-abcdef123456") {
		t.Error("status printed a raw token")
	}
	for _, want := range []string{"OpenAI", "yes", "3456", "gpt-4"} {
		if !strings.Contains(got, want) {
			t.Errorf("status missing %q:\n%s", want, got)
		}
	}
}

func TestRunReset(t *testing.T) {
	dir := isolate(t)
	store, err := settings.OpenSQLite(filepath.Join(dir, "settings.db"))
	if err != nil {
		t.Fatal(err)
	}
	_ = store.UpdateStatus(context.Background(), domain.PlatformGoogle, true)
	store.Close()

	var out bytes.Buffer
	if err := runReset([]string{"--yes"}, &out); err != nil {
		t.Fatalf("runReset: %v", err)
	}
	if !strings.Contains(out.String(), "Saved settings deleted.") {
		t.Errorf("output:\n%s", out.String())
	}

	out.Reset()
	if err := runStatus(nil, &out); err != nil {
		t.Fatalf("runStatus: %v", err)
	}
	if !strings.Contains(out.String(), "Nothing saved yet") {
		t.Errorf("store not cleared:\n%s", out.String())
	}
}

func TestDrainBudget(t *testing.T) {
	c := config.SinkConfig{WriteTimeout: 5 * time.Second, Retries: 2, RetryBackoff: 200 * time.Millisecond}
	want := 5*time.Second + (5*time.Second + 200*time.Millisecond) + (5*time.Second + 400*time.Millisecond) + time.Second
	if got := drainBudget(c, runWrites()); got != want {
		t.Errorf("drainBudget = %s, want %s", got, want)
	}
}

func TestDrainBudget_CoversThrottledWrites(t *testing.T) {
	c := config.SinkConfig{WriteTimeout: time.Second, WritesPerSecond: 0.1, Burst: 1}
	// 9 writes, 1 released at once, 8 more at one per 10s
	want := time.Second + 80*time.Second + time.Second
	if got := drainBudget(c, 9); got != want {
		t.Errorf("drainBudget = %s, want %s", got, want)
	}

	c.Burst = 20
	if got := drainBudget(c, 9); got != 2*time.Second {
		t.Errorf("burst covering every write: drainBudget = %s, want 2s", got)
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		got, err := confirm(strings.NewReader(tt.input), &out, "Sure?")
		if err != nil {
			t.Fatalf("confirm(%q): %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

// failingStore rejects every write.
type failingStore struct{}

func (failingStore) UpdateStatus(context.Context, domain.PlatformType, bool) error {
	return domain.ErrStorageFailed
}

func (failingStore) UpdateToken(context.Context, domain.PlatformType, string) error {
	return domain.ErrStorageFailed
}

func (failingStore) UpdateModel(context.Context, domain.PlatformType, string) error {
	return domain.ErrStorageFailed
}

func (failingStore) LoadSettings(context.Context) ([]domain.PlatformSetting, error) { return nil, nil }
func (failingStore) Reset(context.Context) error                                   { return nil }
func (failingStore) Close() error                                                  { return nil }

func TestSessionDrain_CountsFailedWrites(t *testing.T) {
	cfg := config.Defaults()
	cfg.Sink.Retries = 0
	cfg.Sink.MaxFailures = 100
	cfg.Sink.WritesPerSecond = 0

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	a := &app{
		cfg:     cfg,
		log:     log,
		bus:     eventbus.New(log),
		catalog: onboarding.DefaultCatalog(),
		store:   failingStore{},
	}
	t.Cleanup(a.bus.Close)

	s := a.newSession(context.Background())
	var out bytes.Buffer
	input := strings.NewReader("1\n\nsk-test\n\n\n") // OpenAI, key, default model
	if err := setup.NewWizard(input, &out, s.flow).Run(); err != nil {
		t.Fatalf("wizard: %v\n%s", err, out.String())
	}

	// the bus stays open: this is what runSetup reads before printing its warning
	if !s.drain(drainBudget(cfg.Sink, runWrites())) {
		t.Fatal("drain timed out")
	}
	if got := s.tally.Failed(); got != 5 {
		t.Errorf("failed = %d, want 5 (three statuses, one token, one model)", got)
	}
	if got := s.tally.Written(); got != 0 {
		t.Errorf("written = %d, want 0", got)
	}
}
