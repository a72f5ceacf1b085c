package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/argon2"
	"gopkg.in/yaml.v3"
)

// Environment variables recognised by the loader.
const (
	EnvConfigPath  = "AISETUP_CONFIG"
	EnvSettingsKey = "AISETUP_SETTINGS_KEY"
)

// Config is the top-level application configuration.
type Config struct {
	Setup    SetupConfig         `yaml:"setup"`
	Catalog  map[string][]string `yaml:"catalog,omitempty"` // per-platform reference list overrides
	Settings SettingsConfig      `yaml:"settings"`
	Sink     SinkConfig          `yaml:"sink"`
	Logger   LoggerConfig        `yaml:"logger"`
	Tracer   TracerConfig        `yaml:"tracer"`
}

// SetupConfig holds wizard behaviour.
type SetupConfig struct {
	// DefaultModelIndex picks the model offered first on each platform's
	// model step when the user has not chosen one yet.
	DefaultModelIndex map[string]int `yaml:"default_model_index"`
	// ExitMessage is printed when the wizard hands off to the main app.
	ExitMessage string `yaml:"exit_message"`
}

// SettingsConfig describes where persisted settings live.
type SettingsConfig struct {
	Path string `yaml:"path"`
	// Encrypt stores tokens encrypted with the AISETUP_SETTINGS_KEY passphrase.
	Encrypt    bool   `yaml:"encrypt"`
	Passphrase string `yaml:"-"`
}

// SinkConfig tunes the resilience wrapper around the settings store.
type SinkConfig struct {
	MaxFailures     uint32        `yaml:"max_failures"`
	Timeout         time.Duration `yaml:"timeout"`       // open-state duration
	WriteTimeout    time.Duration `yaml:"write_timeout"` // per attempt
	WritesPerSecond float64       `yaml:"writes_per_second"`
	Burst           int           `yaml:"burst"`
	Retries         int           `yaml:"retries"`
	RetryBackoff    time.Duration `yaml:"retry_backoff"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// defaultDataDir returns the persistent data directory under $HOME/.aisetup.
// Falls back to "./data" if $HOME cannot be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".aisetup")
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Setup: SetupConfig{
			DefaultModelIndex: map[string]int{
				"openai":    0,
				"anthropic": 0,
				"google":    0,
			},
			ExitMessage: "Setup finished. Starting the app...",
		},
		Settings: SettingsConfig{
			Path: filepath.Join(defaultDataDir(), "settings.db"),
		},
		Sink: SinkConfig{
			MaxFailures:     5,
			Timeout:         30 * time.Second,
			WriteTimeout:    5 * time.Second,
			WritesPerSecond: 20,
			Burst:           10,
			Retries:         2,
			RetryBackoff:    200 * time.Millisecond,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
	}
}

// Load reads a YAML config file, applies env var overrides, and validates.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := validatePermissions(path); err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnvOverrides maps AISETUP_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AISETUP_SETTINGS_PATH"); v != "" {
		cfg.Settings.Path = v
	}
	if v := os.Getenv("AISETUP_SETTINGS_ENCRYPT"); v != "" {
		cfg.Settings.Encrypt = v == "true" || v == "1"
	}
	if v := os.Getenv(EnvSettingsKey); v != "" {
		cfg.Settings.Passphrase = v
	}
	if v := os.Getenv("AISETUP_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("AISETUP_LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("AISETUP_LOGGER_OUTPUT"); v != "" {
		cfg.Logger.Output = v
	}
	if v := os.Getenv("AISETUP_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("AISETUP_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
	if v := os.Getenv("AISETUP_SINK_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Sink.Retries = n
		}
	}
	// AISETUP_DEFAULT_MODEL_INDEX_OPENAI=2 and friends.
	for _, kv := range os.Environ() {
		key, val, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		platform, ok := strings.CutPrefix(key, "AISETUP_DEFAULT_MODEL_INDEX_")
		if !ok || platform == "" {
			continue
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			continue
		}
		if cfg.Setup.DefaultModelIndex == nil {
			cfg.Setup.DefaultModelIndex = map[string]int{}
		}
		cfg.Setup.DefaultModelIndex[strings.ToLower(platform)] = n
	}
}

// DefaultIndex returns the configured default model index for platform.
func (c *Config) DefaultIndex(platform string) int {
	return c.Setup.DefaultModelIndex[platform]
}

// EncryptValue encrypts a plaintext value with AES-256-GCM using a passphrase.
func EncryptValue(plaintext, passphrase string) (string, error) {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	// Format: hex(salt) + ":" + hex(nonce+ciphertext)
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(ciphertext), nil
}

// DecryptValue decrypts a value produced by EncryptValue.
func DecryptValue(encrypted, passphrase string) (string, error) {
	saltHex, dataHex, ok := strings.Cut(encrypted, ":")
	if !ok {
		return "", fmt.Errorf("invalid encrypted format")
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return "", fmt.Errorf("decode salt: %w", err)
	}
	data, err := hex.DecodeString(dataHex)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plaintext), nil
}

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}

// deriveKey uses Argon2id to derive a 32-byte key from passphrase + salt.
func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, 32)
}

// validatePermissions rejects config files writable by group or others.
func validatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	mode := info.Mode().Perm()
	if mode&0o022 != 0 {
		return fmt.Errorf("config file %s has insecure permissions %o (want 0600 or 0644)", path, mode)
	}
	return nil
}
