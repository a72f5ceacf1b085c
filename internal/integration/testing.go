// Package integration drives the whole setup stack against a real settings
// database. Tests here are slower than unit tests and skip in -short mode.
package integration

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"aisetup/internal/adapter/settings"
	"aisetup/internal/infra/config"
	"aisetup/internal/usecase/eventbus"
	"aisetup/internal/usecase/onboarding"
)

// Config holds integration test configuration from environment
type Config struct {
	Passphrase  string
	TestTimeout time.Duration
	SkipSlow    bool
}

// LoadConfig loads integration test configuration from environment
func LoadConfig() *Config {
	pass := os.Getenv("AISETUP_IT_PASSPHRASE")
	if pass == "" {
		pass = "integration-passphrase"
	}
	return &Config{
		Passphrase:  pass,
		TestTimeout: 30 * time.Second,
		SkipSlow:    os.Getenv("SKIP_SLOW_TESTS") == "1",
	}
}

// SkipIfShort skips integration tests in short mode
func SkipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// NewTestContext creates a context with timeout for integration tests
func NewTestContext(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// Stack is one wizard session wired the way the CLI wires it: SQLite store
// behind the resilient sink, event bus, write tally.
type Stack struct {
	DBPath     string
	DB         *settings.SQLiteStore
	Bus        *eventbus.Bus
	Tally      *eventbus.WriteTally
	Store      *onboarding.Store
	Dispatcher *onboarding.Dispatcher
	Flow       *onboarding.Flow
}

// NewStack opens a fresh settings database under t.TempDir and wires a
// session on top of it. opts go to settings.OpenSQLite.
func NewStack(t *testing.T, ctx context.Context, opts ...settings.Option) *Stack {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Defaults()

	s := &Stack{DBPath: filepath.Join(t.TempDir(), "settings.db")}
	db, err := settings.OpenSQLite(s.DBPath, opts...)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	s.DB = db

	s.Bus = eventbus.New(logger)
	s.Tally = &eventbus.WriteTally{}
	s.Tally.Attach(s.Bus)

	s.Store = onboarding.NewStore(onboarding.DefaultCatalog(), logger)
	s.Store.SetEventBus(s.Bus)

	sink := settings.NewResilientSink(db, cfg.Sink, logger)
	s.Dispatcher = onboarding.NewDispatcher(s.Store, sink, logger)
	s.Dispatcher.SetEventBus(s.Bus, s.Store.SessionID())

	s.Flow = onboarding.NewFlow(ctx, s.Store, s.Dispatcher, nil)
	s.Flow.SetEventBus(s.Bus)

	t.Cleanup(func() {
		s.Dispatcher.Wait()
		s.Bus.Close()
		_ = db.Close()
	})
	return s
}

// Drain waits for outstanding writes and the event handlers they started.
// The bus stays open, as it does in the CLI.
func (s *Stack) Drain(t *testing.T, timeout time.Duration) {
	t.Helper()
	if !s.Dispatcher.WaitTimeout(timeout) {
		t.Fatalf("writes still pending after %s", timeout)
	}
	s.Bus.Wait()
}
