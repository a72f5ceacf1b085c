package onboarding

import (
	"context"
	"slices"

	"aisetup/internal/domain"
	"aisetup/internal/infra/tracer"
)

// DefaultIndexFunc returns the reference list position offered first on a
// platform's model step.
type DefaultIndexFunc func(domain.PlatformType) int

// Flow drives one wizard run: it owns the current step and the back stack,
// and fires the persistence commits tied to leaving or entering steps.
//
//   - leaving SelectPlatform commits every selection flag
//   - leaving TokenInput commits tokens of selected platforms
//   - entering a model step assigns the default model when none is chosen
//   - entering SetupComplete commits models
//
// Front ends capture user input into the Store, then call Advance or Back.
type Flow struct {
	ctx        context.Context
	store      *Store
	dispatcher *Dispatcher
	defaults   DefaultIndexFunc
	bus        domain.EventBus

	current domain.Step
	history []domain.Step
}

// NewFlow creates a flow positioned before the first step. A nil defaults
// function offers index 0 everywhere.
func NewFlow(ctx context.Context, store *Store, dispatcher *Dispatcher, defaults DefaultIndexFunc) *Flow {
	if defaults == nil {
		defaults = func(domain.PlatformType) int { return 0 }
	}
	return &Flow{
		ctx:        ctx,
		store:      store,
		dispatcher: dispatcher,
		defaults:   defaults,
		current:    domain.StepStart,
	}
}

// SetEventBus publishes step transitions and lifecycle events to bus.
func (f *Flow) SetEventBus(bus domain.EventBus) {
	f.bus = bus
}

// Store returns the answer store the flow drives.
func (f *Flow) Store() *Store { return f.store }

// Current returns the step being shown.
func (f *Flow) Current() domain.Step { return f.current }

// Done reports whether the flow has handed off to the main application.
func (f *Flow) Done() bool { return f.current == domain.StepExitToMainApp }

// CanGoBack reports whether Back has a step to return to.
func (f *Flow) CanGoBack() bool { return len(f.history) > 0 && !f.Done() }

// Start enters the first step. Calling it again is a no-op.
func (f *Flow) Start() domain.Step {
	if f.current != domain.StepStart {
		return f.current
	}
	f.publish(domain.EventSetupStarted, nil)
	f.enter(NextStep(domain.StepStart, f.store.EnabledPlatforms()))
	return f.current
}

// Advance leaves the current step and enters the one the router picks from
// the current selection. On the exit step it stays put.
func (f *Flow) Advance() domain.Step {
	if f.current == domain.StepStart {
		return f.Start()
	}
	if f.Done() {
		return f.current
	}

	switch f.current {
	case domain.StepSelectPlatform:
		f.dispatcher.CommitSelection(f.ctx)
	case domain.StepTokenInput:
		f.dispatcher.CommitTokens(f.ctx)
	}

	next := f.store.NextStep(f.current)
	f.history = append(f.history, f.current)
	f.enter(next)
	return f.current
}

// Back returns to the previous step without committing anything. It reports
// false when there is nowhere to go.
func (f *Flow) Back() (domain.Step, bool) {
	if !f.CanGoBack() {
		return f.current, false
	}
	prev := f.history[len(f.history)-1]
	f.history = f.history[:len(f.history)-1]
	f.publishStep(f.current, prev)
	f.current = prev
	return prev, true
}

// Cancel records that the user abandoned the wizard. Writes already issued
// are not undone.
func (f *Flow) Cancel() {
	f.publish(domain.EventSetupCancelled, domain.StepPayload{From: f.current})
}

// Route returns the steps the user will see with the current selection,
// excluding the exit step.
func (f *Flow) Route() []domain.Step {
	path := Visit(f.store.EnabledPlatforms())
	return path[:len(path)-1]
}

// Position returns the index of the current step in Route, or -1.
func (f *Flow) Position() int {
	return slices.Index(f.Route(), f.current)
}

// DefaultIndex returns the configured default position for p.
func (f *Flow) DefaultIndex(p domain.PlatformType) int {
	return f.defaults(p)
}

// SelectedPlatforms returns selected platforms in declaration order.
func (f *Flow) SelectedPlatforms() []domain.PlatformType {
	var out []domain.PlatformType
	for _, cfg := range f.store.Snapshot().platforms {
		if cfg.Selected {
			out = append(out, cfg.Name)
		}
	}
	return out
}

func (f *Flow) enter(step domain.Step) {
	ctx, span := tracer.StartSpan(f.ctx, "onboarding.enter_step")
	span.SetAttributes(tracer.StepAttr(string(step)))
	defer span.End()

	from := f.current
	f.current = step
	f.publishStep(from, step)

	switch {
	case step.IsModelSelect():
		p, _ := step.Platform()
		f.store.GetOrInitModel(p, f.defaults(p))
	case step == domain.StepSetupComplete:
		f.dispatcher.CommitModels(ctx)
	case step == domain.StepExitToMainApp:
		f.publish(domain.EventSetupCompleted, nil)
	}
}

func (f *Flow) publishStep(from, to domain.Step) {
	f.publish(domain.EventSetupStepEntered, domain.StepPayload{From: from, To: to})
}

func (f *Flow) publish(t domain.EventType, payload any) {
	if f.bus == nil {
		return
	}
	f.bus.Publish(f.ctx, domain.NewEvent(t, f.store.SessionID(), payload))
}
