// Package config handles TOML-based configuration loading and validation.
// Values resolve as defaults < config file < environment. Secrets such as
// the bot token are normally supplied through the environment or a .env file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// MaxFileSize is the upload ceiling imposed by the chat transport.
const MaxFileSize int64 = 50 * 1024 * 1024

// Duration wraps time.Duration so it can be written as "90s" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config holds all application configuration.
type Config struct {
	BotToken          string   `toml:"bot_token"`
	AdminIDs          []int64  `toml:"admin_ids"`
	DatabasePath      string   `toml:"database_path"`
	TempDir           string   `toml:"temp_dir"`
	MaxFileSize       int64    `toml:"max_file_size"`
	ExtractorPath     string   `toml:"extractor_path"`
	ExtractTimeout    Duration `toml:"extract_timeout"`
	DownloadTimeout   Duration `toml:"download_timeout"`
	FetchTimeout      Duration `toml:"fetch_timeout"`
	ExtractRetries    int      `toml:"extract_retries"`
	SessionTTL        Duration `toml:"session_ttl"`
	MaxSessions       int      `toml:"max_sessions"`
	OpenGraphFallback bool     `toml:"opengraph_fallback"`
	StatusAddr        string   `toml:"status_addr"`
	LogLevel          string   `toml:"log_level"`
	LogFormat         string   `toml:"log_format"`
	Debug             bool     `toml:"debug"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		DatabasePath:    "",
		TempDir:         os.TempDir(),
		MaxFileSize:     MaxFileSize,
		ExtractorPath:   "yt-dlp",
		ExtractTimeout:  Duration{90 * time.Second},
		DownloadTimeout: Duration{5 * time.Minute},
		FetchTimeout:    Duration{60 * time.Second},
		ExtractRetries:  5,
		SessionTTL:      Duration{15 * time.Minute},
		MaxSessions:     10000,
		LogLevel:        "info",
		LogFormat:       "console",
	}
}

// configDir returns the XDG-compliant config directory.
func configDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "fetchbot"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", "fetchbot"), nil
}

// ConfigPath returns the default path to the config file.
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DataPath returns the default path to the SQLite database.
func DataPath() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "fetchbot", "bot.db"), nil
}

// Load reads the config file at path (or the default location when path is
// empty), merges it over defaults and applies environment overrides.
// A missing config file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	// A missing .env is the normal case in production.
	_ = godotenv.Load()

	if path == "" {
		if p, err := ConfigPath(); err == nil {
			path = p
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cfg.DatabasePath == "" {
		p, err := DataPath()
		if err != nil {
			return nil, err
		}
		cfg.DatabasePath = p
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("BOT_TOKEN"); v != "" {
		c.BotToken = v
	}
	if v := os.Getenv("ADMIN_IDS"); v != "" {
		ids, err := parseIDs(v)
		if err != nil {
			return fmt.Errorf("ADMIN_IDS: %w", err)
		}
		c.AdminIDs = ids
	}
	if v := os.Getenv("FETCHBOT_DATABASE"); v != "" {
		c.DatabasePath = v
	}
	if v := os.Getenv("FETCHBOT_TEMP_DIR"); v != "" {
		c.TempDir = v
	}
	if v := os.Getenv("FETCHBOT_EXTRACTOR"); v != "" {
		c.ExtractorPath = v
	}
	if v := os.Getenv("FETCHBOT_STATUS_ADDR"); v != "" {
		c.StatusAddr = v
	}
	if v := os.Getenv("FETCHBOT_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return nil
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Validate checks config values are within acceptable bounds.
func (c *Config) Validate() error {
	if c.MaxFileSize != MaxFileSize {
		return fmt.Errorf("max_file_size is fixed at %d bytes by the chat transport, got %d", MaxFileSize, c.MaxFileSize)
	}
	if c.ExtractTimeout.Duration <= 0 || c.DownloadTimeout.Duration <= 0 || c.FetchTimeout.Duration <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.ExtractRetries < 0 || c.ExtractRetries > 10 {
		return fmt.Errorf("extract_retries %d out of range (valid: 0-10)", c.ExtractRetries)
	}
	if c.SessionTTL.Duration <= 0 {
		return fmt.Errorf("session_ttl must be positive")
	}
	if c.MaxSessions <= 0 {
		return fmt.Errorf("max_sessions must be positive, got %d", c.MaxSessions)
	}
	if c.ExtractorPath == "" {
		return fmt.Errorf("extractor_path cannot be empty")
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[strings.ToLower(c.LogFormat)] {
		return fmt.Errorf("unsupported log format %q (valid: json, console)", c.LogFormat)
	}

	return nil
}

// RequireToken reports a fatal error when no bot token is configured.
func (c *Config) RequireToken() error {
	if strings.TrimSpace(c.BotToken) == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}
	return nil
}
