package domain

import (
	"context"
	"time"
)

// SettingsSink receives the persisted wizard answers. Every update is
// idempotent; UpdateToken is never called with an empty token and
// UpdateModel only with a model from the platform's reference list.
type SettingsSink interface {
	UpdateStatus(ctx context.Context, platform PlatformType, selected bool) error
	UpdateToken(ctx context.Context, platform PlatformType, token string) error
	UpdateModel(ctx context.Context, platform PlatformType, model string) error
}

// PlatformSetting is the persisted state of one platform.
type PlatformSetting struct {
	Platform  PlatformType `json:"platform"`
	Enabled   bool         `json:"enabled"`
	Token     string       `json:"token,omitempty"`
	Model     string       `json:"model,omitempty"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// SettingsReader loads persisted platform settings.
type SettingsReader interface {
	LoadSettings(ctx context.Context) ([]PlatformSetting, error)
}

// SettingsStore is a sink that can also be read back and cleared.
type SettingsStore interface {
	SettingsSink
	SettingsReader
	Reset(ctx context.Context) error
	Close() error
}
