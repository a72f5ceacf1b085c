package onboarding

import (
	"context"
	"log/slog"
	"math/rand"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"aisetup/internal/domain"
)

// Snapshot is an immutable view of every platform record at one instant.
type Snapshot struct {
	version   uint64
	platforms []domain.PlatformConfig
}

// Version increases by one with every state change.
func (s Snapshot) Version() uint64 { return s.version }

// Platforms returns a copy of the records in declaration order.
func (s Snapshot) Platforms() []domain.PlatformConfig {
	return slices.Clone(s.platforms)
}

// Platform returns the record for p.
func (s Snapshot) Platform(p domain.PlatformType) (domain.PlatformConfig, bool) {
	for _, cfg := range s.platforms {
		if cfg.Name == p {
			return cfg, true
		}
	}
	return domain.PlatformConfig{}, false
}

// Enabled returns the set of selected platforms.
func (s Snapshot) Enabled() map[domain.PlatformType]bool {
	enabled := make(map[domain.PlatformType]bool)
	for _, cfg := range s.platforms {
		if cfg.Selected {
			enabled[cfg.Name] = true
		}
	}
	return enabled
}

type subscriber struct {
	id uint64
	fn func(Snapshot)
}

// Store is the single source of truth for in-progress wizard answers.
//
// Every mutation builds a new collection and swaps it in whole, so readers on
// any goroutine always see a consistent snapshot. Mutations are expected from
// a single goroutine (the wizard driver).
type Store struct {
	catalog   Catalog
	current   atomic.Pointer[Snapshot]
	sessionID string
	logger    *slog.Logger

	mu     sync.Mutex
	subs   []subscriber
	nextID uint64
	bus    domain.EventBus
}

// NewStore creates a store with one default record per platform.
func NewStore(catalog Catalog, logger *slog.Logger) *Store {
	if catalog.models == nil {
		catalog = DefaultCatalog()
	}
	if logger == nil {
		logger = slog.Default()
	}
	platforms := make([]domain.PlatformConfig, 0, len(domain.AllPlatformTypes()))
	for _, p := range domain.AllPlatformTypes() {
		platforms = append(platforms, domain.NewPlatformConfig(p))
	}

	s := &Store{
		catalog:   catalog,
		sessionID: newSessionID(time.Now()),
		logger:    logger,
	}
	s.current.Store(&Snapshot{platforms: platforms})
	return s
}

func newSessionID(t time.Time) string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// SetEventBus mirrors every published snapshot onto bus as a
// setup.state.changed event.
func (s *Store) SetEventBus(bus domain.EventBus) {
	s.mu.Lock()
	s.bus = bus
	s.mu.Unlock()
}

// SessionID identifies this wizard run.
func (s *Store) SessionID() string { return s.sessionID }

// Catalog returns the reference model lists the store validates against.
func (s *Store) Catalog() Catalog { return s.catalog }

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot { return *s.current.Load() }

// Platform returns the current record for p.
func (s *Store) Platform(p domain.PlatformType) (domain.PlatformConfig, bool) {
	return s.Snapshot().Platform(p)
}

// EnabledPlatforms returns the set of currently selected platforms.
func (s *Store) EnabledPlatforms() map[domain.PlatformType]bool {
	return s.Snapshot().Enabled()
}

// NextStep routes from current using the currently selected platforms.
func (s *Store) NextStep(current domain.Step) domain.Step {
	return NextStep(current, s.EnabledPlatforms())
}

// Subscribe registers fn to receive every new snapshot, in mutation order, on
// the mutating goroutine. Returns an unsubscribe function.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// ToggleSelected inverts the selection of the record equal to cfg.
// No-op when no record matches.
func (s *Store) ToggleSelected(cfg domain.PlatformConfig) {
	s.updateWhere(func(p domain.PlatformConfig) bool { return p.Equal(cfg) },
		func(p domain.PlatformConfig) domain.PlatformConfig {
			p.Selected = !p.Selected
			return p
		})
}

// SetToken stores raw as the credential of the record equal to cfg. Blank
// input clears the credential; anything else is stored verbatim.
func (s *Store) SetToken(cfg domain.PlatformConfig, raw string) {
	var token *string
	if strings.TrimSpace(raw) != "" {
		token = &raw
	}
	s.updateWhere(func(p domain.PlatformConfig) bool { return p.Equal(cfg) },
		func(p domain.PlatformConfig) domain.PlatformConfig {
			p.Token = token
			return p
		})
}

// SetModel stores candidate as the model of platform p when it belongs to
// p's reference list. Any other value clears the model; callers re-prompt on
// an absent model rather than handling an error.
func (s *Store) SetModel(p domain.PlatformType, candidate string) {
	var model *string
	if s.catalog.Contains(p, candidate) {
		model = &candidate
	} else {
		s.logger.Debug("model rejected, clearing selection", "platform", p, "model", candidate)
	}
	s.updateWhere(func(c domain.PlatformConfig) bool { return c.Name == p },
		func(c domain.PlatformConfig) domain.PlatformConfig {
			c.Model = model
			return c
		})
}

// GetOrInitModel returns p's model, assigning the default at defaultIndex
// first when none is set. A miss writes to the store and notifies
// subscribers even though the call reads like a getter.
func (s *Store) GetOrInitModel(p domain.PlatformType, defaultIndex int) string {
	if cfg, ok := s.Platform(p); ok && cfg.Model != nil {
		return *cfg.Model
	}
	return s.AssignDefaultModel(p, defaultIndex)
}

// AssignDefaultModel sets p's model to its reference list entry at
// defaultIndex and returns it. Panics when defaultIndex is out of range.
func (s *Store) AssignDefaultModel(p domain.PlatformType, defaultIndex int) string {
	model := s.catalog.ModelAt(p, defaultIndex)
	s.SetModel(p, model)
	return model
}

// updateWhere replaces the first record matching pred with fn(record).
func (s *Store) updateWhere(pred func(domain.PlatformConfig) bool, fn func(domain.PlatformConfig) domain.PlatformConfig) {
	cur := s.current.Load()
	idx := slices.IndexFunc(cur.platforms, pred)
	if idx < 0 {
		return
	}

	updated := fn(cur.platforms[idx])
	if updated.Equal(cur.platforms[idx]) {
		return
	}

	next := slices.Clone(cur.platforms)
	next[idx] = updated
	snap := &Snapshot{version: cur.version + 1, platforms: next}
	s.current.Store(snap)
	s.publish(*snap)
}

func (s *Store) publish(snap Snapshot) {
	s.mu.Lock()
	subs := slices.Clone(s.subs)
	bus := s.bus
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(snap)
	}
	if bus != nil {
		bus.Publish(context.Background(), domain.NewEvent(domain.EventSetupStateChanged, s.sessionID, statePayload(snap)))
	}
}

type platformState struct {
	Name     domain.PlatformType `json:"name"`
	Selected bool                `json:"selected"`
	HasToken bool                `json:"has_token"`
	Model    string              `json:"model,omitempty"`
}

type stateChangedPayload struct {
	Version   uint64          `json:"version"`
	Platforms []platformState `json:"platforms"`
}

// statePayload never carries credentials.
func statePayload(snap Snapshot) stateChangedPayload {
	out := stateChangedPayload{Version: snap.version}
	for _, cfg := range snap.platforms {
		out.Platforms = append(out.Platforms, platformState{
			Name:     cfg.Name,
			Selected: cfg.Selected,
			HasToken: cfg.HasToken(),
			Model:    cfg.ModelValue(),
		})
	}
	return out
}
