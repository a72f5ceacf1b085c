package settings

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"aisetup/internal/domain"
)

func newTestStore(t *testing.T, opts ...Option) (*SQLiteStore, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "nested", "settings.db")
	store, err := OpenSQLite(dbPath, opts...)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, dbPath
}

func TestSQLiteStore_UpsertAndLoad(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.UpdateStatus(ctx, domain.PlatformGoogle, false); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if err := store.UpdateStatus(ctx, domain.PlatformOpenAI, true); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if err := store.UpdateToken(ctx, domain.PlatformOpenAI, "sk-123"); err != nil {
		t.Fatalf("UpdateToken: %v", err)
	}
	if err := store.UpdateModel(ctx, domain.PlatformOpenAI, "gpt-4o"); err != nil {
		t.Fatalf("UpdateModel: %v", err)
	}

	got, err := store.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	// Declaration order, not insertion order.
	if got[0].Platform != domain.PlatformOpenAI || got[1].Platform != domain.PlatformGoogle {
		t.Errorf("order = %s, %s", got[0].Platform, got[1].Platform)
	}
	openai := got[0]
	if !openai.Enabled || openai.Token != "sk-123" || openai.Model != "gpt-4o" {
		t.Errorf("openai = %+v", openai)
	}
	if openai.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}
	if got[1].Enabled || got[1].Token != "" {
		t.Errorf("google = %+v", got[1])
	}
}

func TestSQLiteStore_UpdatesAreIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := store.UpdateModel(ctx, domain.PlatformAnthropic, "claude-3-haiku-20240307"); err != nil {
			t.Fatalf("UpdateModel: %v", err)
		}
	}
	got, _ := store.LoadSettings(ctx)
	if len(got) != 1 || got[0].Model != "claude-3-haiku-20240307" {
		t.Errorf("got %+v", got)
	}
}

func TestSQLiteStore_ConcurrentWrites(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 30)
	for i := 0; i < 10; i++ {
		for _, p := range domain.AllPlatformTypes() {
			wg.Add(1)
			go func(p domain.PlatformType) {
				defer wg.Done()
				errs <- store.UpdateStatus(ctx, p, true)
			}(p)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent UpdateStatus: %v", err)
		}
	}
	got, _ := store.LoadSettings(ctx)
	if len(got) != 3 {
		t.Errorf("len = %d, want 3", len(got))
	}
}

func TestSQLiteStore_RejectsEmptyToken(t *testing.T) {
	store, _ := newTestStore(t)
	err := store.UpdateToken(context.Background(), domain.PlatformOpenAI, "  ")
	if !errors.Is(err, domain.ErrEmptyToken) {
		t.Errorf("err = %v, want ErrEmptyToken", err)
	}
}

func TestSQLiteStore_EncryptedTokens(t *testing.T) {
	store, dbPath := newTestStore(t, WithEncryption("correct horse"))
	ctx := context.Background()

	if err := store.UpdateToken(ctx, domain.PlatformAnthropic, "sk-ant-secret"); err != nil {
		t.Fatalf("UpdateToken: %v", err)
	}

	// Raw column holds ciphertext.
	raw, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer raw.Close()
	var stored string
	if err := raw.QueryRow("SELECT token FROM platform_settings WHERE platform = ?", "anthropic").Scan(&stored); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(stored, encPrefix) || strings.Contains(stored, "sk-ant-secret") {
		t.Errorf("token stored in clear: %q", stored)
	}

	got, err := store.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if got[0].Token != "sk-ant-secret" {
		t.Errorf("decrypted token = %q", got[0].Token)
	}
}

func TestSQLiteStore_EncryptedTokenWithoutPassphrase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "settings.db")
	enc, err := OpenSQLite(dbPath, WithEncryption("k"))
	if err != nil {
		t.Fatal(err)
	}
	if err := enc.UpdateToken(context.Background(), domain.PlatformGoogle, "AIza-key"); err != nil {
		t.Fatal(err)
	}
	enc.Close()

	plain, err := OpenSQLite(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer plain.Close()
	_, err = plain.LoadSettings(context.Background())
	if !errors.Is(err, domain.ErrDecryption) {
		t.Errorf("err = %v, want ErrDecryption", err)
	}
}

func TestSQLiteStore_Reset(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	store.UpdateStatus(ctx, domain.PlatformOpenAI, true)

	if err := store.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	got, _ := store.LoadSettings(ctx)
	if len(got) != 0 {
		t.Errorf("expected empty after reset, got %+v", got)
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "settings.db")
	first, err := OpenSQLite(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	first.UpdateModel(context.Background(), domain.PlatformGoogle, "gemini-1.0-pro")
	first.Close()

	second, err := OpenSQLite(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()
	got, _ := second.LoadSettings(context.Background())
	if len(got) != 1 || got[0].Model != "gemini-1.0-pro" {
		t.Errorf("got %+v", got)
	}
}

func TestSQLiteStore_Closed(t *testing.T) {
	store, _ := newTestStore(t)
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	err := store.UpdateStatus(context.Background(), domain.PlatformOpenAI, true)
	if !errors.Is(err, domain.ErrSinkClosed) {
		t.Errorf("err = %v, want ErrSinkClosed", err)
	}
	if domain.IsRetryableError(err) {
		t.Error("closed sink must not be retried")
	}
	if _, err := store.LoadSettings(context.Background()); !errors.Is(err, domain.ErrSinkClosed) {
		t.Errorf("LoadSettings err = %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	m.UpdateStatus(ctx, domain.PlatformGoogle, true)
	m.UpdateToken(ctx, domain.PlatformGoogle, "AIza")
	m.UpdateModel(ctx, domain.PlatformGoogle, "gemini-1.0-pro")
	m.UpdateStatus(ctx, domain.PlatformOpenAI, false)

	got, err := m.LoadSettings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Platform != domain.PlatformOpenAI {
		t.Fatalf("got %+v", got)
	}
	if g := got[1]; !g.Enabled || g.Token != "AIza" || g.Model != "gemini-1.0-pro" {
		t.Errorf("google = %+v", g)
	}
	if err := m.UpdateToken(ctx, domain.PlatformOpenAI, ""); !errors.Is(err, domain.ErrEmptyToken) {
		t.Errorf("empty token err = %v", err)
	}

	m.Reset(ctx)
	if got, _ := m.LoadSettings(ctx); len(got) != 0 {
		t.Errorf("after reset: %+v", got)
	}

	m.Close()
	if err := m.UpdateStatus(ctx, domain.PlatformOpenAI, true); !errors.Is(err, domain.ErrSinkClosed) {
		t.Errorf("closed err = %v", err)
	}
}
