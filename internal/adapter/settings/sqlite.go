// Package settings persists wizard answers for the main application.
package settings

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"aisetup/internal/domain"
	"aisetup/internal/infra/config"
	"aisetup/internal/infra/tracer"
)

// encPrefix marks tokens stored encrypted at rest.
const encPrefix = "enc:"

// SQLiteStore implements domain.SettingsStore using SQLite. Each platform
// owns one row; every update is an upsert, so writes are idempotent and may
// arrive in any order.
type SQLiteStore struct {
	db         *sql.DB
	passphrase string
	closed     atomic.Bool
	now        func() time.Time
}

var _ domain.SettingsStore = (*SQLiteStore)(nil)

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithEncryption stores tokens encrypted with passphrase.
func WithEncryption(passphrase string) Option {
	return func(s *SQLiteStore) { s.passphrase = passphrase }
}

// OpenSQLite opens (or creates) the settings database at dbPath and runs the
// schema migration.
func OpenSQLite(dbPath string, opts ...Option) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create settings dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open settings db: %w", err)
	}
	// Writes arrive from concurrent goroutines; let them queue instead of
	// failing with SQLITE_BUSY.
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate settings db: %w", err)
	}

	s := &SQLiteStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS platform_settings (
			platform   TEXT PRIMARY KEY,
			enabled    INTEGER NOT NULL DEFAULT 0,
			token      TEXT NOT NULL DEFAULT '',
			model      TEXT NOT NULL DEFAULT '',
			updated_at TEXT NOT NULL
		)
	`)
	return err
}

// Close closes the underlying database connection. Later writes fail with
// domain.ErrSinkClosed.
func (s *SQLiteStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) UpdateStatus(ctx context.Context, platform domain.PlatformType, selected bool) error {
	enabled := 0
	if selected {
		enabled = 1
	}
	return s.upsert(ctx, "UpdateStatus", platform, "enabled", enabled)
}

func (s *SQLiteStore) UpdateToken(ctx context.Context, platform domain.PlatformType, token string) error {
	if strings.TrimSpace(token) == "" {
		return domain.NewSubSystemError("settings", "UpdateToken", domain.ErrEmptyToken, string(platform))
	}
	stored := token
	if s.passphrase != "" {
		enc, err := config.EncryptValue(token, s.passphrase)
		if err != nil {
			return domain.NewSubSystemError("settings", "UpdateToken", domain.ErrEncryption, err.Error())
		}
		stored = encPrefix + enc
	}
	return s.upsert(ctx, "UpdateToken", platform, "token", stored)
}

func (s *SQLiteStore) UpdateModel(ctx context.Context, platform domain.PlatformType, model string) error {
	return s.upsert(ctx, "UpdateModel", platform, "model", model)
}

// column is always one of the fixed names above.
func (s *SQLiteStore) upsert(ctx context.Context, op string, platform domain.PlatformType, column string, value any) (err error) {
	ctx, span := tracer.StartSpan(ctx, "settings.sqlite."+op)
	span.SetAttributes(tracer.PlatformAttr(string(platform)), tracer.FieldAttr(column))
	defer func() { tracer.End(span, err) }()

	if s.closed.Load() {
		return domain.WrapOp(op, domain.ErrSinkClosed)
	}

	query := fmt.Sprintf(`
		INSERT INTO platform_settings (platform, %[1]s, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(platform) DO UPDATE SET %[1]s = excluded.%[1]s, updated_at = excluded.updated_at`, column)
	_, err = s.db.ExecContext(ctx, query, string(platform), value, s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return domain.NewSubSystemError("settings", op, domain.ErrStorageFailed, err.Error())
	}
	return nil
}

// LoadSettings returns persisted rows in platform declaration order. Rows
// for platforms this build does not know are skipped.
func (s *SQLiteStore) LoadSettings(ctx context.Context) ([]domain.PlatformSetting, error) {
	if s.closed.Load() {
		return nil, domain.WrapOp("LoadSettings", domain.ErrSinkClosed)
	}
	rows, err := s.db.QueryContext(ctx, "SELECT platform, enabled, token, model, updated_at FROM platform_settings")
	if err != nil {
		return nil, domain.NewSubSystemError("settings", "LoadSettings", domain.ErrStorageFailed, err.Error())
	}
	defer rows.Close()

	byPlatform := make(map[domain.PlatformType]domain.PlatformSetting)
	for rows.Next() {
		var (
			name, token, model, updated string
			enabled                     int
		)
		if err := rows.Scan(&name, &enabled, &token, &model, &updated); err != nil {
			return nil, fmt.Errorf("scan settings row: %w", err)
		}
		p, err := domain.ParsePlatformType(name)
		if err != nil {
			continue
		}
		token, err = s.decodeToken(token)
		if err != nil {
			return nil, domain.NewSubSystemError("settings", "LoadSettings", domain.ErrDecryption, string(p))
		}
		ts, _ := time.Parse(time.RFC3339Nano, updated)
		byPlatform[p] = domain.PlatformSetting{
			Platform:  p,
			Enabled:   enabled != 0,
			Token:     token,
			Model:     model,
			UpdatedAt: ts,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []domain.PlatformSetting
	for _, p := range domain.AllPlatformTypes() {
		if st, ok := byPlatform[p]; ok {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *SQLiteStore) decodeToken(stored string) (string, error) {
	enc, ok := strings.CutPrefix(stored, encPrefix)
	if !ok {
		return stored, nil
	}
	if s.passphrase == "" {
		return "", fmt.Errorf("token is encrypted but no passphrase is configured")
	}
	return config.DecryptValue(enc, s.passphrase)
}

// Reset deletes every persisted setting.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	if s.closed.Load() {
		return domain.WrapOp("Reset", domain.ErrSinkClosed)
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM platform_settings"); err != nil {
		return domain.NewSubSystemError("settings", "Reset", domain.ErrStorageFailed, err.Error())
	}
	return nil
}
