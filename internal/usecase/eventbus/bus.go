// Package eventbus fans wizard events out to in-process observers.
package eventbus

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"aisetup/internal/domain"
)

type subscription struct {
	id      uint64
	handler domain.EventHandler
}

// Bus is an in-process, goroutine-safe event bus. Handlers run on their own
// goroutines, so publishers (the wizard's state store) never wait on them.
type Bus struct {
	mu      sync.RWMutex
	typed   map[domain.EventType][]subscription
	allSubs []subscription
	nextID  atomic.Uint64
	logger  *slog.Logger
	wg      sync.WaitGroup
	closed  atomic.Bool
}

var _ domain.EventBus = (*Bus)(nil)

// New creates an event bus.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		typed:  make(map[domain.EventType][]subscription),
		logger: logger,
	}
}

// Publish fans out event to typed subscribers first, then to all-event
// subscribers. Panicking handlers are recovered and logged.
func (b *Bus) Publish(ctx context.Context, event domain.Event) {
	if b.closed.Load() {
		return
	}

	b.mu.RLock()
	targets := slices.Concat(b.typed[event.Type], b.allSubs)
	b.mu.RUnlock()

	for _, sub := range targets {
		b.dispatch(ctx, event, sub)
	}
}

func (b *Bus) dispatch(ctx context.Context, event domain.Event, sub subscription) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("event handler panicked",
					"event", string(event.Type),
					"session", event.SessionID,
					"panic", r,
				)
			}
		}()
		sub.handler(ctx, event)
	}()
}

// Subscribe registers a handler for one event type.
// Returns an unsubscribe function.
func (b *Bus) Subscribe(eventType domain.EventType, handler domain.EventHandler) func() {
	sub := subscription{id: b.nextID.Add(1), handler: handler}

	b.mu.Lock()
	b.typed[eventType] = append(b.typed[eventType], sub)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.typed[eventType] = removeSub(b.typed[eventType], sub.id)
	}
}

// SubscribeAll registers a handler that receives every event.
// Returns an unsubscribe function.
func (b *Bus) SubscribeAll(handler domain.EventHandler) func() {
	sub := subscription{id: b.nextID.Add(1), handler: handler}

	b.mu.Lock()
	b.allSubs = append(b.allSubs, sub)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.allSubs = removeSub(b.allSubs, sub.id)
	}
}

func removeSub(subs []subscription, id uint64) []subscription {
	return slices.DeleteFunc(slices.Clone(subs), func(s subscription) bool { return s.id == id })
}

// Wait blocks until every handler started so far has returned. The bus stays
// open. Callers must make sure nothing publishes concurrently.
func (b *Bus) Wait() {
	b.wg.Wait()
}

// Close stops accepting events and waits for in-flight handlers.
// Safe to call more than once.
func (b *Bus) Close() {
	if b.closed.Swap(true) {
		return
	}
	b.wg.Wait()
}

// LogHandler writes every event to logger. Write failures log at warn level,
// everything else at debug.
func LogHandler(logger *slog.Logger) domain.EventHandler {
	return func(ctx context.Context, ev domain.Event) {
		level := slog.LevelDebug
		if ev.Type == domain.EventSettingWriteFailed {
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, "setup event",
			"type", string(ev.Type),
			"session", ev.SessionID,
			"payload", string(ev.Payload),
		)
	}
}

// WriteTally counts setting write outcomes. Attach it with Attach.
type WriteTally struct {
	written atomic.Int64
	failed  atomic.Int64
}

// Attach subscribes the tally to write events on bus.
func (t *WriteTally) Attach(bus domain.EventBus) {
	bus.Subscribe(domain.EventSettingWritten, func(context.Context, domain.Event) {
		t.written.Add(1)
	})
	bus.Subscribe(domain.EventSettingWriteFailed, func(context.Context, domain.Event) {
		t.failed.Add(1)
	})
}

// Written returns the number of successful writes observed.
func (t *WriteTally) Written() int64 { return t.written.Load() }

// Failed returns the number of failed writes observed.
func (t *WriteTally) Failed() int64 { return t.failed.Load() }
