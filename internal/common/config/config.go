// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Backend       BackendConfig      `mapstructure:"backend"`
	Cache         CacheConfig        `mapstructure:"cache"`
	Autosave      AutosaveConfig     `mapstructure:"autosave"`
	Validation    ValidationConfig   `mapstructure:"validation"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
	Metrics       MetricsConfig      `mapstructure:"metrics"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// BackendConfig holds settings for the project/contract REST API.
type BackendConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
	APIKey  string `mapstructure:"api_key"`
}

// GetTimeout returns the request timeout as a duration.
func (b BackendConfig) GetTimeout() time.Duration {
	if b.Timeout <= 0 {
		return 15 * time.Second
	}
	return time.Duration(b.Timeout) * time.Millisecond
}

// CacheConfig holds settings for the crash-recovery snapshot store.
type CacheConfig struct {
	Redis       RedisConfig `mapstructure:"redis"`
	SnapshotKey string      `mapstructure:"snapshot_key"`
	SnapshotTTL int         `mapstructure:"snapshot_ttl"` // seconds, 0 = no expiry
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AutosaveConfig holds timing knobs for the autosave orchestrator.
type AutosaveConfig struct {
	DebounceMs   int `mapstructure:"debounce_ms"`
	RetryDelayMs int `mapstructure:"retry_delay_ms"`
}

// Debounce returns the trailing-edge debounce window.
func (a AutosaveConfig) Debounce() time.Duration {
	if a.DebounceMs <= 0 {
		return 2 * time.Second
	}
	return time.Duration(a.DebounceMs) * time.Millisecond
}

// RetryDelay returns the delay before a coalesced follow-up save.
func (a AutosaveConfig) RetryDelay() time.Duration {
	if a.RetryDelayMs <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(a.RetryDelayMs) * time.Millisecond
}

// ValidationConfig selects the step validation policy.
type ValidationConfig struct {
	Mode string `mapstructure:"mode"` // "strict" or "permissive"
}

// NotificationConfig holds settings for completion notifications.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MetricsConfig holds the metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

func validateConfig(cfg *Config) error {
	if cfg.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	switch cfg.Validation.Mode {
	case "strict", "permissive":
	default:
		return fmt.Errorf("validation.mode must be 'strict' or 'permissive', got %q", cfg.Validation.Mode)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "contract-wizard"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}
	if cfg.Cache.SnapshotKey == "" {
		cfg.Cache.SnapshotKey = "contractWizardDraft"
	}
	if cfg.Autosave.DebounceMs == 0 {
		cfg.Autosave.DebounceMs = 2000
	}
	if cfg.Autosave.RetryDelayMs == 0 {
		cfg.Autosave.RetryDelayMs = 500
	}
	if cfg.Validation.Mode == "" {
		cfg.Validation.Mode = "strict"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
}
