package onboarding

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"aisetup/internal/domain"
	"aisetup/internal/infra/tracer"
)

// Fields reported in setting write events.
const (
	FieldStatus = "status"
	FieldToken  = "token"
	FieldModel  = "model"
)

// SnapshotSource provides the state the dispatcher persists.
type SnapshotSource interface {
	Snapshot() Snapshot
}

// Dispatcher pushes slices of the wizard state to a settings sink.
//
// Each write runs on its own goroutine and is never awaited by the commit
// call: there is no ordering between writes, no atomicity across a batch and
// no cancellation once issued. Failures are logged and published, never
// returned to the wizard.
type Dispatcher struct {
	source SnapshotSource
	sink   domain.SettingsSink
	logger *slog.Logger

	bus       domain.EventBus
	sessionID string

	wg sync.WaitGroup
}

// NewDispatcher creates a dispatcher reading from source and writing to sink.
func NewDispatcher(source SnapshotSource, sink domain.SettingsSink, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{source: source, sink: sink, logger: logger}
}

// SetEventBus publishes setting.written / setting.write.failed events to bus.
// Call before the first commit.
func (d *Dispatcher) SetEventBus(bus domain.EventBus, sessionID string) {
	d.bus = bus
	d.sessionID = sessionID
}

// CommitSelection writes the selected flag of every platform, including
// deselected ones. Returns the number of writes issued.
func (d *Dispatcher) CommitSelection(ctx context.Context) int {
	ctx, span := tracer.StartSpan(ctx, "onboarding.commit_selection")
	defer span.End()

	n := 0
	for _, cfg := range d.source.Snapshot().platforms {
		d.launch(ctx, cfg.Name, FieldStatus, func(ctx context.Context) error {
			return d.sink.UpdateStatus(ctx, cfg.Name, cfg.Selected)
		})
		n++
	}
	span.SetAttributes(tracer.IntAttr("writes", n))
	return n
}

// CommitTokens writes the credential of every selected platform that has
// one. Selected platforms without a token are skipped.
func (d *Dispatcher) CommitTokens(ctx context.Context) int {
	ctx, span := tracer.StartSpan(ctx, "onboarding.commit_tokens")
	defer span.End()

	n := 0
	for _, cfg := range d.source.Snapshot().platforms {
		if !cfg.Selected || cfg.Token == nil {
			continue
		}
		token := *cfg.Token
		d.launch(ctx, cfg.Name, FieldToken, func(ctx context.Context) error {
			return d.sink.UpdateToken(ctx, cfg.Name, token)
		})
		n++
	}
	span.SetAttributes(tracer.IntAttr("writes", n))
	return n
}

// CommitModels writes the model of every selected platform that has both a
// token and a model.
func (d *Dispatcher) CommitModels(ctx context.Context) int {
	ctx, span := tracer.StartSpan(ctx, "onboarding.commit_models")
	defer span.End()

	n := 0
	for _, cfg := range d.source.Snapshot().platforms {
		if !cfg.Selected || cfg.Token == nil || cfg.Model == nil {
			continue
		}
		model := *cfg.Model
		d.launch(ctx, cfg.Name, FieldModel, func(ctx context.Context) error {
			return d.sink.UpdateModel(ctx, cfg.Name, model)
		})
		n++
	}
	span.SetAttributes(tracer.IntAttr("writes", n))
	return n
}

// Wait blocks until every issued write has finished. The wizard never calls
// it between steps; it exists for draining at shutdown.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// WaitTimeout is Wait bounded by timeout. It reports whether all writes
// finished in time. On a timeout the helper goroutine stays blocked until the
// pending writes finish, so a later WaitTimeout or Wait still works.
func (d *Dispatcher) WaitTimeout(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (d *Dispatcher) launch(ctx context.Context, platform domain.PlatformType, field string, write func(context.Context) error) {
	// Writes outlive the commit call and the caller's cancellation.
	ctx = context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("settings write panicked",
					"platform", platform,
					"field", field,
					"panic", r,
				)
			}
		}()

		err := write(ctx)
		payload := domain.SettingWritePayload{Platform: platform, Field: field}
		if err != nil {
			d.logger.Warn("settings write failed",
				"platform", platform,
				"field", field,
				"code", domain.ErrorCodeOf(err),
				"error", err,
			)
			payload.Error = err.Error()
			d.publish(ctx, domain.EventSettingWriteFailed, payload)
			return
		}
		d.logger.Debug("settings write done", "platform", platform, "field", field)
		d.publish(ctx, domain.EventSettingWritten, payload)
	}()
}

func (d *Dispatcher) publish(ctx context.Context, t domain.EventType, payload domain.SettingWritePayload) {
	if d.bus == nil {
		return
	}
	d.bus.Publish(ctx, domain.NewEvent(t, d.sessionID, payload))
}
