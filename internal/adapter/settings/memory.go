package settings

import (
	"context"
	"strings"
	"sync"
	"time"

	"aisetup/internal/domain"
)

// MemoryStore is a process-local SettingsStore for dry runs and tests.
type MemoryStore struct {
	mu     sync.Mutex
	rows   map[domain.PlatformType]domain.PlatformSetting
	closed bool
}

var _ domain.SettingsStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[domain.PlatformType]domain.PlatformSetting)}
}

func (m *MemoryStore) UpdateStatus(_ context.Context, platform domain.PlatformType, selected bool) error {
	return m.update("UpdateStatus", platform, func(s *domain.PlatformSetting) { s.Enabled = selected })
}

func (m *MemoryStore) UpdateToken(_ context.Context, platform domain.PlatformType, token string) error {
	if strings.TrimSpace(token) == "" {
		return domain.NewSubSystemError("settings", "UpdateToken", domain.ErrEmptyToken, string(platform))
	}
	return m.update("UpdateToken", platform, func(s *domain.PlatformSetting) { s.Token = token })
}

func (m *MemoryStore) UpdateModel(_ context.Context, platform domain.PlatformType, model string) error {
	return m.update("UpdateModel", platform, func(s *domain.PlatformSetting) { s.Model = model })
}

func (m *MemoryStore) update(op string, platform domain.PlatformType, fn func(*domain.PlatformSetting)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return domain.WrapOp(op, domain.ErrSinkClosed)
	}
	row, ok := m.rows[platform]
	if !ok {
		row.Platform = platform
	}
	fn(&row)
	row.UpdatedAt = time.Now().UTC()
	m.rows[platform] = row
	return nil
}

// LoadSettings returns stored rows in platform declaration order.
func (m *MemoryStore) LoadSettings(_ context.Context) ([]domain.PlatformSetting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, domain.WrapOp("LoadSettings", domain.ErrSinkClosed)
	}
	var out []domain.PlatformSetting
	for _, p := range domain.AllPlatformTypes() {
		if row, ok := m.rows[p]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *MemoryStore) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.rows)
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
