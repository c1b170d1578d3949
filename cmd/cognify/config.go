package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	storeFile  = "file"
	storeRedis = "redis"
)

// Config is the CLI configuration, read from
// ~/.config/cognify/config.yaml.
type Config struct {
	// BaseURL is the API server, e.g. https://cognify.example.com
	BaseURL string `yaml:"base_url"`
	// Timeout bounds each HTTP attempt.
	Timeout time.Duration `yaml:"timeout"`
	// Retries is how often a failed request is repeated.
	Retries int `yaml:"retries"`

	// Store selects where credentials live: "file" or "redis".
	Store     string `yaml:"store"`
	StoreFile string `yaml:"store_file"`
	RedisAddr string `yaml:"redis_addr"`
	// RedisPrefix namespaces the keys so several accounts can share one
	// redis.
	RedisPrefix string        `yaml:"redis_prefix"`
	RedisTTL    time.Duration `yaml:"redis_ttl"`

	LogLevel string `yaml:"log_level"`
}

// DefaultConfigPath returns ~/.config/cognify/config.yaml, honouring
// XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "cognify", "config.yaml")
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return &Config{
		BaseURL:     "http://localhost:8080",
		Timeout:     10 * time.Second,
		Retries:     3,
		Store:       storeFile,
		StoreFile:   filepath.Join(dir, "cognify", "credentials.json"),
		RedisAddr:   "localhost:6379",
		RedisPrefix: "cognify:cred",
		LogLevel:    "warn",
	}
}

// LoadConfig reads path over the defaults. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("base_url must start with http:// or https://")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.Retries < 0 {
		return fmt.Errorf("retries must not be negative")
	}
	switch c.Store {
	case storeFile:
		if c.StoreFile == "" {
			return fmt.Errorf("store_file is required for the file store")
		}
	case storeRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("redis_addr is required for the redis store")
		}
	default:
		return fmt.Errorf("store must be %q or %q, got %q", storeFile, storeRedis, c.Store)
	}
	return nil
}

// SaveToFile writes the configuration as YAML.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
