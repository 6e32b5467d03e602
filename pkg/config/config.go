package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/SmileSnow819/natours/pkg/api"
	"github.com/SmileSnow819/natours/pkg/credstore"
	"github.com/SmileSnow819/natours/pkg/i18n"
	"github.com/SmileSnow819/natours/pkg/kvs"
	"github.com/SmileSnow819/natours/pkg/logging"
)

// EnvPrefix prefixes every environment override, e.g. NATOURS_API_BASE_URL.
const EnvPrefix = "NATOURS_"

// Config represents the application configuration
type Config struct {
	API      APIConfig     `yaml:"api" json:"api" envPrefix:"API_"`
	Storage  StorageConfig `yaml:"storage" json:"storage" envPrefix:"STORAGE_"`
	Sync     SyncConfig    `yaml:"sync" json:"sync" envPrefix:"SYNC_"`
	Logging  LoggingConfig `yaml:"logging" json:"logging" envPrefix:"LOG_"`
	Language string        `yaml:"language" json:"language" env:"LANGUAGE"` // en, ja or zh; empty detects from the environment
}

// APIConfig contains the backend settings
type APIConfig struct {
	BaseURL   string `yaml:"base_url" json:"base_url" env:"BASE_URL"`
	Timeout   string `yaml:"timeout" json:"timeout" env:"TIMEOUT"` // per request (default: "30s")
	UserAgent string `yaml:"user_agent" json:"user_agent" env:"USER_AGENT"`
}

// GetTimeout returns the request timeout as a time.Duration
func (a APIConfig) GetTimeout() (time.Duration, error) {
	return time.ParseDuration(a.Timeout)
}

// StorageConfig selects where credentials are persisted
type StorageConfig struct {
	Type       string           `yaml:"type" json:"type" env:"TYPE"` // "file", "memory", "leveldb" or "redis" (default: "file")
	Namespace  string           `yaml:"namespace" json:"namespace" env:"NAMESPACE"`
	TTL        string           `yaml:"ttl" json:"ttl" env:"TTL"` // kvs backends only; empty keeps credentials until logout
	File       FileConfig       `yaml:"file" json:"file" envPrefix:"FILE_"`
	LevelDB    LevelDBConfig    `yaml:"leveldb" json:"leveldb" envPrefix:"LEVELDB_"`
	Redis      RedisConfig      `yaml:"redis" json:"redis" envPrefix:"REDIS_"`
	Encryption EncryptionConfig `yaml:"encryption" json:"encryption" envPrefix:"ENCRYPTION_"`
}

// GetTTL returns the credentials TTL, zero when unset
func (s StorageConfig) GetTTL() (time.Duration, error) {
	if s.TTL == "" {
		return 0, nil
	}
	return time.ParseDuration(s.TTL)
}

// FileConfig contains file storage settings
type FileConfig struct {
	Path string `yaml:"path" json:"path" env:"PATH"` // default: <user config dir>/natours/credentials.json
}

// LevelDBConfig contains LevelDB storage settings
type LevelDBConfig struct {
	Path       string `yaml:"path" json:"path" env:"PATH"`
	SyncWrites bool   `yaml:"sync_writes" json:"sync_writes" env:"SYNC_WRITES"`
}

// RedisConfig contains Redis storage settings
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr" env:"ADDR"`
	Password string `yaml:"password" json:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" json:"db" env:"DB"`
}

// EncryptionConfig enables AES-GCM sealing of stored credentials
type EncryptionConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled" env:"ENABLED"`
	Key     string `yaml:"key" json:"key" env:"KEY"`
}

// SyncConfig controls following credential changes made by other processes
type SyncConfig struct {
	Poll     bool   `yaml:"poll" json:"poll" env:"POLL"`             // poll file storage too, for filesystems without change events
	Debounce string `yaml:"debounce" json:"debounce" env:"DEBOUNCE"` // default: "200ms"
	Interval string `yaml:"interval" json:"interval" env:"INTERVAL"` // polling period (default: "5s")
}

// GetDebounce returns the watcher debounce as a time.Duration
func (s SyncConfig) GetDebounce() (time.Duration, error) {
	return time.ParseDuration(s.Debounce)
}

// GetInterval returns the polling period as a time.Duration
func (s SyncConfig) GetInterval() (time.Duration, error) {
	return time.ParseDuration(s.Interval)
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level string        `yaml:"level" json:"level" env:"LEVEL"`
	Color bool          `yaml:"color" json:"color" env:"COLOR"`
	File  LogFileConfig `yaml:"file" json:"file" envPrefix:"FILE_"`
}

// LogFileConfig contains file logging rotation settings
type LogFileConfig struct {
	Path       string `yaml:"path" json:"path" env:"PATH"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb" env:"MAX_SIZE_MB"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups" env:"MAX_BACKUPS"`
	MaxAge     int    `yaml:"max_age" json:"max_age" env:"MAX_AGE"`
	Compress   bool   `yaml:"compress" json:"compress" env:"COMPRESS"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.API.BaseURL)
	}
	if _, err := c.API.GetTimeout(); err != nil {
		return fmt.Errorf("%w: api.timeout: %v", ErrInvalidDuration, err)
	}

	switch c.Storage.Type {
	case "file", "memory", "leveldb":
	case "redis":
		if c.Storage.Redis.Addr == "" {
			return ErrRedisAddrRequired
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedStorageType, c.Storage.Type)
	}
	if _, err := c.Storage.GetTTL(); err != nil {
		return fmt.Errorf("%w: storage.ttl: %v", ErrInvalidDuration, err)
	}

	if c.Storage.Encryption.Enabled {
		if c.Storage.Encryption.Key == "" {
			return ErrEncryptionKeyRequired
		}
		if len(c.Storage.Encryption.Key) < 32 {
			return ErrEncryptionKeyTooShort
		}
	}

	if _, err := c.Sync.GetDebounce(); err != nil {
		return fmt.Errorf("%w: sync.debounce: %v", ErrInvalidDuration, err)
	}
	if d, err := c.Sync.GetInterval(); err != nil || d <= 0 {
		return fmt.Errorf("%w: sync.interval must be a positive duration", ErrInvalidDuration)
	}

	switch i18n.Language(c.Language) {
	case "", i18n.English, i18n.Japanese, i18n.Chinese:
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedLanguage, c.Language)
	}

	return nil
}

// APIClientConfig returns the api.Client settings.
func (c *Config) APIClientConfig() api.Config {
	timeout, _ := c.API.GetTimeout()
	return api.Config{BaseURL: c.API.BaseURL, Timeout: timeout, UserAgent: c.API.UserAgent}
}

var profilePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// CredentialsConfig returns the credstore settings for profile. Profiles
// get their own namespace in kvs backends and their own file otherwise;
// the empty profile is the default one.
func (c *Config) CredentialsConfig(profile string) (credstore.Config, error) {
	if profile != "" && !profilePattern.MatchString(profile) {
		return credstore.Config{}, fmt.Errorf("%w: %q", ErrInvalidProfile, profile)
	}

	ttl, _ := c.Storage.GetTTL()
	cfg := credstore.Config{
		Type: c.Storage.Type,
		File: c.Storage.File.Path,
		KVS: kvs.Config{
			Type:      c.Storage.Type,
			Namespace: c.Storage.Namespace,
			LevelDB: kvs.LevelDBConfig{
				Path:       c.Storage.LevelDB.Path,
				SyncWrites: c.Storage.LevelDB.SyncWrites,
			},
			Redis: kvs.RedisConfig{
				Addr:     c.Storage.Redis.Addr,
				Password: c.Storage.Redis.Password,
				DB:       c.Storage.Redis.DB,
			},
		},
		TTL: ttl,
	}
	if c.Storage.Encryption.Enabled {
		cfg.EncryptionKey = c.Storage.Encryption.Key
	}

	if profile != "" {
		if ns := strings.TrimSuffix(cfg.KVS.Namespace, ":"); ns != "" {
			cfg.KVS.Namespace = ns + ":" + profile
		} else {
			cfg.KVS.Namespace = profile
		}
		if cfg.File == "" {
			cfg.File = credstore.DefaultFilePath()
		}
		ext := filepath.Ext(cfg.File)
		cfg.File = strings.TrimSuffix(cfg.File, ext) + "-" + profile + ext
	}
	return cfg, nil
}

// LogLevel returns the parsed logging level.
func (c *Config) LogLevel() logging.Level {
	return logging.ParseLevel(c.Logging.Level)
}

// LogFileRotation returns the rotation settings, or nil when file logging is off.
func (c *Config) LogFileRotation() *logging.FileRotationConfig {
	if c.Logging.File.Path == "" {
		return nil
	}
	return &logging.FileRotationConfig{
		Path:       c.Logging.File.Path,
		MaxSizeMB:  c.Logging.File.MaxSizeMB,
		MaxBackups: c.Logging.File.MaxBackups,
		MaxAge:     c.Logging.File.MaxAge,
		Compress:   c.Logging.File.Compress,
	}
}
