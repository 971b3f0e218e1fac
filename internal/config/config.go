package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server settings
	ListenAddr string `json:"listen_addr"`
	Debug      bool   `json:"debug"`

	// Storage
	DataDirectory  string `json:"data_directory"`
	StorageBackend string `json:"storage_backend"`
	SQLitePath     string `json:"sqlite_path"`
	Password       string `json:"-"`

	// Logging
	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`

	// Dashboard
	ViewRange string        `json:"view_range"`
	CacheTTL  time.Duration `json:"cache_ttl"`
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	dataDir := filepath.Join(wd, "data")

	return &Config{
		ListenAddr:     ":8080",
		Debug:          false,
		DataDirectory:  dataDir,
		StorageBackend: "file",
		SQLitePath:     filepath.Join(dataDir, "cashflow.db"),
		LogLevel:       "info",
		LogFormat:      "text",
		ViewRange:      "3m",
		CacheTTL:       5 * time.Minute,
	}
}

// Load reads an optional .env file, then applies CASHFLOW_* environment
// overrides on top of the defaults
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Could not read .env file", "error", err)
	}

	cfg := DefaultConfig()

	if addr := os.Getenv("CASHFLOW_LISTEN_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	if debug := os.Getenv("CASHFLOW_DEBUG"); debug == "true" || debug == "1" {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}
	if dataDir := os.Getenv("CASHFLOW_DATA_DIR"); dataDir != "" {
		cfg.DataDirectory = dataDir
		cfg.SQLitePath = filepath.Join(dataDir, "cashflow.db")
	}
	if backend := os.Getenv("CASHFLOW_STORAGE_BACKEND"); backend != "" {
		cfg.StorageBackend = strings.ToLower(backend)
	}
	if path := os.Getenv("CASHFLOW_SQLITE_PATH"); path != "" {
		cfg.SQLitePath = path
	}
	if level := os.Getenv("CASHFLOW_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if format := os.Getenv("CASHFLOW_LOG_FORMAT"); format != "" {
		cfg.LogFormat = strings.ToLower(format)
	}
	if vr := os.Getenv("CASHFLOW_VIEW_RANGE"); vr != "" {
		cfg.ViewRange = vr
	}
	if ttl := os.Getenv("CASHFLOW_CACHE_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			cfg.CacheTTL = d
		} else {
			slog.Warn("Ignoring invalid CASHFLOW_CACHE_TTL", "value", ttl)
		}
	}
	cfg.Password = os.Getenv("CASHFLOW_PASSWORD")

	cfg.ensureDirectories()

	return cfg
}

// Validate returns every configuration problem at once
func (c *Config) Validate() error {
	var problems []string

	if c.ListenAddr == "" {
		problems = append(problems, "listen address cannot be empty")
	}

	switch c.StorageBackend {
	case "file":
		if c.DataDirectory == "" {
			problems = append(problems, "data directory cannot be empty when using file backend")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			problems = append(problems, "SQLite path cannot be empty when using sqlite backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid storage backend '%s': must be one of [file sqlite]", c.StorageBackend))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("invalid log level '%s': must be one of [debug info warn error]", c.LogLevel))
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		problems = append(problems, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if c.ViewRange != "3m" && c.ViewRange != "6m" {
		problems = append(problems, fmt.Sprintf("invalid view range '%s': must be 3m or 6m", c.ViewRange))
	}

	if c.CacheTTL < 0 {
		problems = append(problems, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// ensureDirectories creates required directories if they don't exist
func (c *Config) ensureDirectories() {
	dirs := []string{c.DataDirectory}
	if c.StorageBackend == "sqlite" {
		dirs = append(dirs, filepath.Dir(c.SQLitePath))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			slog.Warn("Could not create directory", "dir", dir, "error", err)
		}
	}
}
