package domain

import (
	"context"
	"encoding/json"
	"time"
)

// EventType identifies the kind of event being published.
type EventType string

const (
	EventSetupStarted      EventType = "setup.started"
	EventSetupStateChanged EventType = "setup.state.changed"
	EventSetupStepEntered  EventType = "setup.step.entered"
	EventSetupCompleted    EventType = "setup.completed"
	EventSetupCancelled    EventType = "setup.cancelled"

	EventSettingWritten     EventType = "setting.written"
	EventSettingWriteFailed EventType = "setting.write.failed"
)

// Event is the envelope published on the event bus.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	SessionID string          `json:"session_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// SettingWritePayload describes one persistence write issued by the dispatcher.
type SettingWritePayload struct {
	Platform PlatformType `json:"platform"`
	Field    string       `json:"field"`
	Error    string       `json:"error,omitempty"`
}

// StepPayload describes a step transition.
type StepPayload struct {
	From Step `json:"from"`
	To   Step `json:"to"`
}

// EventHandler is a callback invoked when an event is received.
type EventHandler func(ctx context.Context, event Event)

// EventBus provides a publish/subscribe mechanism for domain events.
type EventBus interface {
	// Publish sends an event to all matching subscribers.
	Publish(ctx context.Context, event Event)
	// Subscribe registers a handler for a specific event type.
	// Returns an unsubscribe function.
	Subscribe(eventType EventType, handler EventHandler) func()
	// SubscribeAll registers a handler that receives every event.
	// Returns an unsubscribe function.
	SubscribeAll(handler EventHandler) func()
	// Close drains in-flight handlers and prevents new publishes.
	Close()
}

// NewEvent builds an event with a JSON payload. Marshal failures yield an
// event without payload.
func NewEvent(t EventType, sessionID string, payload any) Event {
	ev := Event{Type: t, Timestamp: time.Now(), SessionID: sessionID}
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			ev.Payload = data
		}
	}
	return ev
}
