package onboarding

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aisetup/internal/domain"
)

func noopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(DefaultCatalog(), noopLogger())
}

func mustPlatform(t *testing.T, s *Store, p domain.PlatformType) domain.PlatformConfig {
	t.Helper()
	cfg, ok := s.Platform(p)
	require.True(t, ok, "platform %s missing", p)
	return cfg
}

func strPtr(s string) *string { return &s }

func TestNewStore_Defaults(t *testing.T) {
	s := newTestStore(t)
	platforms := s.Snapshot().Platforms()

	require.Len(t, platforms, 3)
	for i, p := range domain.AllPlatformTypes() {
		assert.Equal(t, p, platforms[i].Name)
		assert.False(t, platforms[i].Selected)
		assert.Nil(t, platforms[i].Token)
		assert.Nil(t, platforms[i].Model)
	}
	assert.NotEmpty(t, s.SessionID())
	assert.Equal(t, uint64(0), s.Snapshot().Version())
}

func TestToggleSelected_Inverts(t *testing.T) {
	s := newTestStore(t)
	s.ToggleSelected(mustPlatform(t, s, domain.PlatformAnthropic))

	assert.True(t, mustPlatform(t, s, domain.PlatformAnthropic).Selected)
	assert.False(t, mustPlatform(t, s, domain.PlatformOpenAI).Selected)
	assert.False(t, mustPlatform(t, s, domain.PlatformGoogle).Selected)
}

func TestToggleSelected_TwiceRestoresState(t *testing.T) {
	s := newTestStore(t)
	s.SetToken(mustPlatform(t, s, domain.PlatformOpenAI), "sk-abc")
	s.SetModel(domain.PlatformOpenAI, "gpt-4")
	before := s.Snapshot().Platforms()

	for _, p := range domain.AllPlatformTypes() {
		s.ToggleSelected(mustPlatform(t, s, p))
		s.ToggleSelected(mustPlatform(t, s, p))
	}

	after := s.Snapshot().Platforms()
	require.Len(t, after, len(before))
	for i := range before {
		assert.True(t, before[i].Equal(after[i]), "record %d: %v != %v", i, before[i], after[i])
	}
}

func TestToggleSelected_StaleRecordIsNoop(t *testing.T) {
	s := newTestStore(t)
	stale := mustPlatform(t, s, domain.PlatformGoogle)
	s.SetToken(stale, "key")

	// stale no longer equals the stored record.
	s.ToggleSelected(stale)
	assert.False(t, mustPlatform(t, s, domain.PlatformGoogle).Selected)

	s.ToggleSelected(domain.PlatformConfig{Name: "unknown"})
	assert.Equal(t, uint64(1), s.Snapshot().Version())
}

func TestSetToken_Normalization(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *string
	}{
		{"empty", "", nil},
		{"spaces", "   ", nil},
		{"tabs and newlines", "\t\n ", nil},
		{"plain", "sk-123", strPtr("sk-123")},
		{"kept verbatim", "  sk-123 ", strPtr("  sk-123 ")},
		{"single char", "x", strPtr("x")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			s.SetToken(mustPlatform(t, s, domain.PlatformOpenAI), tt.input)
			got := mustPlatform(t, s, domain.PlatformOpenAI).Token
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestSetToken_BlankClearsExisting(t *testing.T) {
	s := newTestStore(t)
	s.SetToken(mustPlatform(t, s, domain.PlatformAnthropic), "sk-ant")
	s.SetToken(mustPlatform(t, s, domain.PlatformAnthropic), " ")
	assert.Nil(t, mustPlatform(t, s, domain.PlatformAnthropic).Token)
}

func TestSetModel_MembershipInvariant(t *testing.T) {
	s := newTestStore(t)
	cat := s.Catalog()

	candidates := []string{"gpt-4o", "claude-3-opus-20240229", "gemini-1.0-pro", "", "bogus", "gpt-4"}
	for _, p := range domain.AllPlatformTypes() {
		for _, m := range candidates {
			s.SetModel(p, m)
			for _, cfg := range s.Snapshot().Platforms() {
				if cfg.Model != nil {
					assert.True(t, cat.Contains(cfg.Name, *cfg.Model), "%s holds foreign model %q", cfg.Name, *cfg.Model)
				}
			}
		}
	}
}

func TestSetModel_RejectionClears(t *testing.T) {
	s := newTestStore(t)
	s.SetModel(domain.PlatformGoogle, "gemini-1.5-flash-latest")
	assert.Equal(t, "gemini-1.5-flash-latest", mustPlatform(t, s, domain.PlatformGoogle).ModelValue())

	// A model from another platform is foreign here.
	s.SetModel(domain.PlatformGoogle, "gpt-4o")
	assert.Nil(t, mustPlatform(t, s, domain.PlatformGoogle).Model)
}

func TestSetModel_UnknownPlatformIsNoop(t *testing.T) {
	s := newTestStore(t)
	s.SetModel("mistral", "gpt-4o")
	assert.Equal(t, uint64(0), s.Snapshot().Version())
}

func TestAssignDefaultModel_Deterministic(t *testing.T) {
	cat := DefaultCatalog()
	for _, p := range domain.AllPlatformTypes() {
		for i := range cat.Models(p) {
			s := NewStore(cat, noopLogger())
			got := s.AssignDefaultModel(p, i)
			assert.Equal(t, cat.Models(p)[i], got)
			assert.Equal(t, got, mustPlatform(t, s, p).ModelValue())
		}
	}
}

func TestAssignDefaultModel_OverridesExisting(t *testing.T) {
	s := newTestStore(t)
	s.SetModel(domain.PlatformOpenAI, "gpt-4")
	assert.Equal(t, "gpt-4o", s.AssignDefaultModel(domain.PlatformOpenAI, 0))
	assert.Equal(t, "gpt-4o", mustPlatform(t, s, domain.PlatformOpenAI).ModelValue())
}

func TestAssignDefaultModel_OutOfRangePanics(t *testing.T) {
	s := newTestStore(t)
	assert.Panics(t, func() { s.AssignDefaultModel(domain.PlatformAnthropic, 3) })
	assert.Panics(t, func() { s.AssignDefaultModel(domain.PlatformAnthropic, -1) })
}

func TestGetOrInitModel_ReadThrough(t *testing.T) {
	s := newTestStore(t)

	first := s.GetOrInitModel(domain.PlatformAnthropic, 1)
	v1 := s.Snapshot().Version()
	second := s.GetOrInitModel(domain.PlatformAnthropic, 2)
	v2 := s.Snapshot().Version()

	assert.Equal(t, "claude-3-sonnet-20240229", first)
	assert.Equal(t, first, second)
	assert.Equal(t, uint64(1), v1, "first call writes")
	assert.Equal(t, v1, v2, "second call must not write")
}

func TestGetOrInitModel_KeepsExistingChoice(t *testing.T) {
	s := newTestStore(t)
	s.SetModel(domain.PlatformOpenAI, "gpt-3.5-turbo")
	assert.Equal(t, "gpt-3.5-turbo", s.GetOrInitModel(domain.PlatformOpenAI, 0))
}

func TestSubscribe_ReceivesSnapshotsInOrder(t *testing.T) {
	s := newTestStore(t)

	var versions []uint64
	var selected []bool
	unsubscribe := s.Subscribe(func(snap Snapshot) {
		versions = append(versions, snap.Version())
		cfg, _ := snap.Platform(domain.PlatformOpenAI)
		selected = append(selected, cfg.Selected)
	})

	s.ToggleSelected(mustPlatform(t, s, domain.PlatformOpenAI))
	s.ToggleSelected(mustPlatform(t, s, domain.PlatformOpenAI))
	unsubscribe()
	s.ToggleSelected(mustPlatform(t, s, domain.PlatformOpenAI))

	assert.Equal(t, []uint64{1, 2}, versions)
	assert.Equal(t, []bool{true, false}, selected)
}

func TestSubscribe_NoNotificationWithoutChange(t *testing.T) {
	s := newTestStore(t)
	s.SetModel(domain.PlatformGoogle, "gemini-1.0-pro")

	calls := 0
	s.Subscribe(func(Snapshot) { calls++ })
	s.SetModel(domain.PlatformGoogle, "gemini-1.0-pro")
	s.SetToken(mustPlatform(t, s, domain.PlatformGoogle), "")

	assert.Zero(t, calls)
}

func TestSnapshot_IsImmutable(t *testing.T) {
	s := newTestStore(t)
	snap := s.Snapshot()

	platforms := snap.Platforms()
	platforms[0].Selected = true
	s.ToggleSelected(mustPlatform(t, s, domain.PlatformGoogle))

	cfg, _ := snap.Platform(domain.PlatformOpenAI)
	assert.False(t, cfg.Selected, "caller edits must not leak into snapshots")
	old, _ := snap.Platform(domain.PlatformGoogle)
	assert.False(t, old.Selected, "old snapshot must not observe later mutations")
}

func TestStore_NextStepUsesSelection(t *testing.T) {
	s := newTestStore(t)
	s.ToggleSelected(mustPlatform(t, s, domain.PlatformGoogle))

	assert.Equal(t, domain.ModelSelectStep(domain.PlatformGoogle), s.NextStep(domain.StepTokenInput))
}
