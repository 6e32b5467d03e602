package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmileSnow819/natours/pkg/api"
	"github.com/SmileSnow819/natours/pkg/logging"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFileLoader_Load(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		wantErr  error
		validate func(*testing.T, *Config)
	}{
		{
			name: "full yaml",
			file: "config.yaml",
			content: `
api:
  base_url: "https://natours.example.com/api/v1"
  timeout: "5s"
  user_agent: "natours-test"
storage:
  type: redis
  namespace: "team"
  ttl: "720h"
  redis:
    addr: "localhost:6379"
    db: 2
  encryption:
    enabled: true
    key: "0123456789abcdef0123456789abcdef"
sync:
  poll: true
  debounce: "1s"
logging:
  level: debug
  color: true
  file:
    path: /tmp/natours.log
    max_size_mb: 5
language: ja
`,
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "https://natours.example.com/api/v1", cfg.API.BaseURL)
				timeout, err := cfg.API.GetTimeout()
				require.NoError(t, err)
				assert.Equal(t, 5*time.Second, timeout)
				assert.Equal(t, "redis", cfg.Storage.Type)
				assert.Equal(t, "team", cfg.Storage.Namespace)
				assert.Equal(t, 2, cfg.Storage.Redis.DB)
				assert.True(t, cfg.Storage.Encryption.Enabled)
				assert.True(t, cfg.Sync.Poll)
				assert.Equal(t, logging.LevelDebug, cfg.LogLevel())
				assert.Equal(t, 5, cfg.LogFileRotation().MaxSizeMB)
				assert.Equal(t, "ja", cfg.Language)
			},
		},
		{
			name:    "json",
			file:    "config.json",
			content: `{"api":{"base_url":"http://127.0.0.1:3000/api/v1"},"storage":{"type":"memory"}}`,
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "http://127.0.0.1:3000/api/v1", cfg.API.BaseURL)
				assert.Equal(t, "memory", cfg.Storage.Type)
				assert.Equal(t, "30s", cfg.API.Timeout)
			},
		},
		{
			name:    "empty file gets defaults",
			file:    "config.yml",
			content: ``,
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, Default(), cfg)
			},
		},
		{name: "unsupported extension", file: "config.toml", content: `a = 1`, wantErr: ErrUnsupportedFormat},
		{name: "bad base url", file: "c.yaml", content: "api:\n  base_url: localhost:8000\n", wantErr: ErrInvalidBaseURL},
		{name: "bad timeout", file: "c.yaml", content: "api:\n  timeout: soon\n", wantErr: ErrInvalidDuration},
		{name: "bad ttl", file: "c.yaml", content: "storage:\n  type: memory\n  ttl: forever\n", wantErr: ErrInvalidDuration},
		{name: "unknown storage", file: "c.yaml", content: "storage:\n  type: sqlite\n", wantErr: ErrUnsupportedStorageType},
		{name: "redis without addr", file: "c.yaml", content: "storage:\n  type: redis\n", wantErr: ErrRedisAddrRequired},
		{name: "encryption without key", file: "c.yaml", content: "storage:\n  encryption:\n    enabled: true\n", wantErr: ErrEncryptionKeyRequired},
		{name: "short key", file: "c.yaml", content: "storage:\n  encryption:\n    enabled: true\n    key: short\n", wantErr: ErrEncryptionKeyTooShort},
		{name: "zero interval", file: "c.yaml", content: "sync:\n  interval: 0s\n", wantErr: ErrInvalidDuration},
		{name: "unknown language", file: "c.yaml", content: "language: fr\n", wantErr: ErrUnsupportedLanguage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewFileLoader(writeConfig(t, tt.file, tt.content)).Load()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.validate(t, cfg)
		})
	}
}

func TestFileLoader_MissingFile(t *testing.T) {
	_, err := NewFileLoader(filepath.Join(t.TempDir(), "nope.yaml")).Load()
	assert.ErrorIs(t, err, ErrConfigFileNotFound)
}

func TestFileLoader_ExpandsEnv(t *testing.T) {
	t.Setenv("NATOURS_TEST_HOST", "api.natours.dev")
	path := writeConfig(t, "config.yaml", `
api:
  base_url: "https://${NATOURS_TEST_HOST}/api/v1"
  timeout: "${NATOURS_TEST_TIMEOUT:-12s}"
`)

	cfg, err := NewFileLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "https://api.natours.dev/api/v1", cfg.API.BaseURL)
	assert.Equal(t, "12s", cfg.API.Timeout)
}

func TestFileLoader_EnvOverrides(t *testing.T) {
	t.Setenv("NATOURS_API_BASE_URL", "http://override:9000/api/v1")
	t.Setenv("NATOURS_STORAGE_TYPE", "leveldb")
	t.Setenv("NATOURS_STORAGE_LEVELDB_PATH", "/var/lib/natours")
	t.Setenv("NATOURS_STORAGE_ENCRYPTION_ENABLED", "true")
	t.Setenv("NATOURS_STORAGE_ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")
	t.Setenv("NATOURS_LOG_LEVEL", "error")
	t.Setenv("NATOURS_LANGUAGE", "zh")
	path := writeConfig(t, "config.yaml", `
api:
  base_url: "http://file:8000/api/v1"
storage:
  type: file
logging:
  level: debug
`)

	cfg, err := NewFileLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "http://override:9000/api/v1", cfg.API.BaseURL)
	assert.Equal(t, "leveldb", cfg.Storage.Type)
	assert.Equal(t, "/var/lib/natours", cfg.Storage.LevelDB.Path)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", cfg.Storage.Encryption.Key)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, "zh", cfg.Language)
}

func TestLoad_DefaultPathIsOptional(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, api.DefaultBaseURL, cfg.API.BaseURL)
	assert.Equal(t, "file", cfg.Storage.Type)
}

func TestLoad_DefaultPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "natours"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "natours", "config.yaml"), []byte("storage:\n  type: memory\n"), 0o600))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.Equal(t, filepath.Join(dir, "natours", "config.yaml"), DefaultPath())
}

func TestLoad_ExplicitPathMustExist(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrConfigFileNotFound)
}
