package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		ListenAddr:     ":8080",
		DataDirectory:  "./data",
		StorageBackend: "file",
		SQLitePath:     "./data/cashflow.db",
		LogLevel:       "info",
		LogFormat:      "text",
		ViewRange:      "3m",
		CacheTTL:       time.Minute,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(*Config)
		wantErr     bool
		errorString string
	}{
		{name: "valid file config", modify: func(*Config) {}},
		{name: "valid sqlite config", modify: func(c *Config) { c.StorageBackend = "sqlite" }},
		{
			name:        "unknown backend",
			modify:      func(c *Config) { c.StorageBackend = "memory" },
			wantErr:     true,
			errorString: "invalid storage backend 'memory'",
		},
		{
			name:        "sqlite without path",
			modify:      func(c *Config) { c.StorageBackend = "sqlite"; c.SQLitePath = "" },
			wantErr:     true,
			errorString: "SQLite path cannot be empty",
		},
		{
			name:        "bad log level",
			modify:      func(c *Config) { c.LogLevel = "verbose" },
			wantErr:     true,
			errorString: "invalid log level 'verbose'",
		},
		{
			name:        "bad log format",
			modify:      func(c *Config) { c.LogFormat = "xml" },
			wantErr:     true,
			errorString: "invalid log format 'xml'",
		},
		{
			name:        "bad view range",
			modify:      func(c *Config) { c.ViewRange = "12m" },
			wantErr:     true,
			errorString: "invalid view range '12m'",
		},
		{
			name:        "negative ttl",
			modify:      func(c *Config) { c.CacheTTL = -time.Second },
			wantErr:     true,
			errorString: "invalid cache TTL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorString)
		})
	}
}

func TestConfig_ValidateCollectsAll(t *testing.T) {
	cfg := validConfig()
	cfg.LogLevel = "loud"
	cfg.ViewRange = "1y"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
	assert.Contains(t, err.Error(), "invalid view range")
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CASHFLOW_LISTEN_ADDR", ":9999")
	t.Setenv("CASHFLOW_DATA_DIR", dir)
	t.Setenv("CASHFLOW_STORAGE_BACKEND", "SQLite")
	t.Setenv("CASHFLOW_LOG_FORMAT", "JSON")
	t.Setenv("CASHFLOW_VIEW_RANGE", "6m")
	t.Setenv("CASHFLOW_CACHE_TTL", "30s")
	t.Setenv("CASHFLOW_PASSWORD", "hunter22")

	cfg := Load()

	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, dir, cfg.DataDirectory)
	assert.Equal(t, "sqlite", cfg.StorageBackend)
	assert.Equal(t, filepath.Join(dir, "cashflow.db"), cfg.SQLitePath)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "6m", cfg.ViewRange)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, "hunter22", cfg.Password)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_DebugRaisesLogLevel(t *testing.T) {
	t.Setenv("CASHFLOW_DATA_DIR", t.TempDir())
	t.Setenv("CASHFLOW_DEBUG", "1")

	cfg := Load()
	assert.True(t, cfg.Debug)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_InvalidTTLKeepsDefault(t *testing.T) {
	t.Setenv("CASHFLOW_DATA_DIR", t.TempDir())
	t.Setenv("CASHFLOW_CACHE_TTL", "soon")

	cfg := Load()
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
}
