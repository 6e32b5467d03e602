package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/SmileSnow819/natours/pkg/api"
)

// Loader is an interface for loading configuration
type Loader interface {
	Load() (*Config, error)
}

// FileLoader loads configuration from a YAML or JSON file, then applies
// NATOURS_* environment overrides and defaults.
type FileLoader struct {
	path     string
	optional bool
}

// NewFileLoader creates a loader for path. A missing file is an error.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{path: path}
}

// DefaultPath returns <user config dir>/natours/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "natours", "config.yaml")
}

// Load reads the .env file of the working directory if present, then the
// config at path. An empty path means DefaultPath, which may be absent: the
// defaults and environment are used then.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	loader := NewFileLoader(path)
	if path == "" {
		loader = &FileLoader{path: DefaultPath(), optional: true}
	}
	return loader.Load()
}

// Load reads and parses the configuration file.
// Format is detected from the file extension; ${VAR:-default} references
// are expanded before parsing.
func (l *FileLoader) Load() (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(l.path)
	switch {
	case err == nil:
		if err := decode(l.path, ExpandEnvBytes(data), &cfg); err != nil {
			return nil, err
		}
	case os.IsNotExist(err) && l.optional:
	case os.IsNotExist(err):
		return nil, fmt.Errorf("%w: %s", ErrConfigFileNotFound, l.path)
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse JSON config file: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse YAML config file: %w", err)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	return nil
}

// Default returns the configuration used without any file or overrides.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// applyDefaults sets default values for optional fields
func applyDefaults(cfg *Config) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = api.DefaultBaseURL
	}

	if cfg.API.Timeout == "" {
		cfg.API.Timeout = "30s"
	}

	if cfg.API.UserAgent == "" {
		cfg.API.UserAgent = "natours-cli"
	}

	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "file"
	}

	if cfg.Storage.Namespace == "" && cfg.Storage.Type == "redis" {
		cfg.Storage.Namespace = "natours"
	}

	if cfg.Sync.Debounce == "" {
		cfg.Sync.Debounce = "200ms"
	}

	if cfg.Sync.Interval == "" {
		cfg.Sync.Interval = "5s"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "warn"
	}
}
