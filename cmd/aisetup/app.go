package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"aisetup/internal/adapter/settings"
	"aisetup/internal/domain"
	"aisetup/internal/infra/config"
	"aisetup/internal/infra/logger"
	"aisetup/internal/infra/tracer"
	"aisetup/internal/usecase/eventbus"
	"aisetup/internal/usecase/onboarding"
)

// app holds the components shared by every command.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	bus     *eventbus.Bus
	catalog onboarding.Catalog
	store   domain.SettingsStore

	closers []func()
}

type appOptions struct {
	// terminalUI sends logs to a file next to the settings database.
	terminalUI bool
	// dryRun keeps settings in memory.
	dryRun bool
	// noStore skips opening the settings store.
	noStore bool
}

// loadConfig reads the config file named by args or the environment.
func loadConfig(args []string) (*config.Config, error) {
	path := configPath(args)
	cfg, err := config.Load(path)
	if err != nil {
		var ve *config.ValidationError
		if errors.As(err, &ve) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrConfigLoad, path, err)
	}
	return cfg, nil
}

// buildCatalog applies catalog overrides and checks every default index
// against the resulting lists.
func buildCatalog(cfg *config.Config) (onboarding.Catalog, error) {
	catalog, err := onboarding.CatalogFromNames(cfg.Catalog)
	if err != nil {
		return onboarding.Catalog{}, fmt.Errorf("catalog: %w", err)
	}
	for _, p := range domain.AllPlatformTypes() {
		if err := catalog.CheckIndex(p, cfg.DefaultIndex(string(p))); err != nil {
			return onboarding.Catalog{}, fmt.Errorf("setup.default_model_index.%s: %w", p, err)
		}
	}
	return catalog, nil
}

// openSettings opens the persistent store, or an in-memory one for dry runs.
func openSettings(cfg *config.Config, dryRun bool) (domain.SettingsStore, error) {
	if dryRun {
		return settings.NewMemoryStore(), nil
	}
	var opts []settings.Option
	if cfg.Settings.Encrypt {
		opts = append(opts, settings.WithEncryption(cfg.Settings.Passphrase))
	}
	return settings.OpenSQLite(cfg.Settings.Path, opts...)
}

func newApp(ctx context.Context, args []string, opts appOptions) (*app, error) {
	cfg, err := loadConfig(args)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg}

	logCfg := cfg.Logger
	if opts.terminalUI {
		logCfg = logger.ForTerminalUI(logCfg, cfg.Settings.Path)
	}
	log, logCloser, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	a.log = log
	a.closers = append(a.closers, func() { _ = logCloser() })

	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("tracer: %w", err)
	}
	a.closers = append(a.closers, func() { _ = tracerShutdown(context.Background()) })

	a.catalog, err = buildCatalog(cfg)
	if err != nil {
		a.close()
		return nil, err
	}

	a.bus = eventbus.New(log)
	a.closers = append(a.closers, a.bus.Close)

	if !opts.noStore {
		store, err := openSettings(cfg, opts.dryRun)
		if err != nil {
			a.close()
			return nil, err
		}
		a.store = store
		a.closers = append(a.closers, func() {
			if err := store.Close(); err != nil {
				log.Warn("close settings store", "error", err)
			}
		})
	}
	return a, nil
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// session wires one wizard run: store, resilient sink, dispatcher, flow and
// the event subscribers that log writes and count outcomes.
type session struct {
	store      *onboarding.Store
	dispatcher *onboarding.Dispatcher
	flow       *onboarding.Flow
	bus        *eventbus.Bus
	tally      *eventbus.WriteTally
	log        *slog.Logger
}

func (a *app) newSession(ctx context.Context) *session {
	store := onboarding.NewStore(a.catalog, a.log)
	log := logger.WithSession(a.log, store.SessionID())
	store.SetEventBus(a.bus)

	sink := settings.NewResilientSink(a.store, a.cfg.Sink, log)
	dispatcher := onboarding.NewDispatcher(store, sink, log)
	dispatcher.SetEventBus(a.bus, store.SessionID())

	flow := onboarding.NewFlow(ctx, store, dispatcher, func(p domain.PlatformType) int {
		return a.cfg.DefaultIndex(string(p))
	})
	flow.SetEventBus(a.bus)

	tally := &eventbus.WriteTally{}
	tally.Attach(a.bus)
	a.bus.SubscribeAll(eventbus.LogHandler(log))

	return &session{store: store, dispatcher: dispatcher, flow: flow, bus: a.bus, tally: tally, log: log}
}

// runWrites is the most writes one run commits: status, token and model per
// platform.
func runWrites() int {
	return 3 * len(domain.AllPlatformTypes())
}

// drainBudget covers every attempt of one write plus the backoff between
// attempts. Writes run concurrently, so one budget bounds them all, except
// that a throttled sink releases them one by one: writes beyond the burst
// queue on the limiter first.
func drainBudget(c config.SinkConfig, writes int) time.Duration {
	d := c.WriteTimeout
	for i := 1; i <= c.Retries; i++ {
		d += c.WriteTimeout + c.RetryBackoff<<(i-1)
	}
	if queued := writes - max(c.Burst, 1); c.WritesPerSecond > 0 && queued > 0 {
		d += time.Duration(math.Ceil(float64(queued) / c.WritesPerSecond * float64(time.Second)))
	}
	return d + time.Second
}

// drain waits for outstanding writes up to timeout, then for the event
// handlers they published to, so the tally is final.
func (s *session) drain(timeout time.Duration) bool {
	ok := s.dispatcher.WaitTimeout(timeout)
	if ok {
		s.bus.Wait()
	}
	s.log.Info("settings writes drained",
		"complete", ok,
		"written", s.tally.Written(),
		"failed", s.tally.Failed(),
	)
	return ok
}

// WaitTimeout lets the TUI drain through the session.
func (s *session) WaitTimeout(timeout time.Duration) bool {
	return s.drain(timeout)
}
