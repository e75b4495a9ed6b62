// Package config loads client settings.
//
// Precedence, lowest first: built-in defaults, the YAML file, a .env file,
// FM_* environment variables, then command-line flags (applied by main).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// Session backends.
const (
	BackendFile   = "file"
	BackendPebble = "pebble"
	BackendMemory = "memory"
)

type Config struct {
	APIBaseURL  string        `yaml:"api_base_url" json:"api_base_url"`
	HTTPTimeout string        `yaml:"http_timeout" json:"http_timeout"`
	Offline     bool          `yaml:"offline" json:"offline"`
	Session     SessionConfig `yaml:"session" json:"session"`
	Log         LogConfig     `yaml:"log" json:"log"`
	MetricsAddr string        `yaml:"metrics_addr" json:"metrics_addr"`
}

type SessionConfig struct {
	Backend string `yaml:"backend" json:"backend"`
	Dir     string `yaml:"dir" json:"dir"`
}

type LogConfig struct {
	Level       string `yaml:"level" json:"level"`
	Development bool   `yaml:"development" json:"development"`
}

// Default returns the built-in settings. dir is the client state directory.
func Default(dir string) Config {
	return Config{
		APIBaseURL:  "http://localhost:8080",
		HTTPTimeout: "30s",
		Session:     SessionConfig{Backend: BackendFile, Dir: dir},
		Log:         LogConfig{Level: "warn"},
	}
}

// DefaultPath is the YAML file read when no path is given.
func DefaultPath(dir string) string { return filepath.Join(dir, "config.yaml") }

// LoadFile overlays the YAML file at path onto cfg. Keys absent from the
// file keep their current values.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// SaveFile writes cfg as YAML.
func SaveFile(cfg Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// LoadDotEnv loads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays FM_* variables found through lookup onto cfg.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) error {
		v, ok := lookup(key)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
		return nil
	}

	str("FM_API_BASE_URL", &cfg.APIBaseURL)
	str("FM_HTTP_TIMEOUT", &cfg.HTTPTimeout)
	str("FM_SESSION_BACKEND", &cfg.Session.Backend)
	str("FM_SESSION_DIR", &cfg.Session.Dir)
	str("FM_LOG_LEVEL", &cfg.Log.Level)
	str("FM_METRICS_ADDR", &cfg.MetricsAddr)
	if err := boolean("FM_OFFLINE", &cfg.Offline); err != nil {
		return err
	}
	return boolean("FM_LOG_DEVELOPMENT", &cfg.Log.Development)
}

// Timeout returns HTTPTimeout parsed; an empty value means the default.
func (c Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.HTTPTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// Validate checks values that would otherwise fail late.
func (c Config) Validate() error {
	switch c.Session.Backend {
	case BackendFile, BackendPebble:
		if c.Session.Dir == "" {
			return fmt.Errorf("session.dir is required for the %s backend", c.Session.Backend)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("session.backend must be file, pebble or memory, got %q", c.Session.Backend)
	}
	if !c.Offline && c.APIBaseURL == "" {
		return errors.New("api_base_url is required unless offline")
	}
	if c.HTTPTimeout != "" {
		if _, err := time.ParseDuration(c.HTTPTimeout); err != nil {
			return fmt.Errorf("http_timeout: %w", err)
		}
	}
	return nil
}

// Load builds the configuration from defaults, the YAML file at path (or
// the default file when path is empty and it exists), dotenv and the
// environment.
func Load(path, dir string) (Config, error) {
	cfg := Default(dir)
	switch {
	case path != "":
		if err := LoadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	default:
		if _, err := os.Stat(DefaultPath(dir)); err == nil {
			if err := LoadFile(DefaultPath(dir), &cfg); err != nil {
				return Config{}, err
			}
		}
	}
	if err := LoadDotEnv(".env"); err != nil {
		return Config{}, err
	}
	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
