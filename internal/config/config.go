// Package config loads the registry daemon configuration from
// config/registry.yaml with XRF_-prefixed environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full daemon configuration.
type Config struct {
	Server   Server   `yaml:"server"`
	Database Database `yaml:"database"`
	Log      Log      `yaml:"log"`
	Audit    Audit    `yaml:"audit"`
}

// Server configures the HTTP listener.
type Server struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Database configures the backing store. An empty DSN selects the
// in-memory store.
type Database struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// Log configures the structured logger.
type Log struct {
	Level string `yaml:"level"`
}

// Audit configures the mutation audit trail.
type Audit struct {
	Path string `yaml:"path"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: Database{
			MaxOpenConns: 20,
			MaxIdleConns: 5,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads config/registry.yaml relative to the working directory.
// A missing file is not an error; defaults plus environment apply.
func Load() (Config, error) {
	return LoadFromPath(filepath.Join("config", "registry.yaml"))
}

// LoadFromPath reads the configuration file at path, then applies
// environment overrides.
func LoadFromPath(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return Config{}, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays XRF_-prefixed environment variables on the loaded file.
func (c *Config) applyEnv() error {
	if v := os.Getenv("XRF_SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("XRF_DATABASE_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("XRF_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("XRF_AUDIT_PATH"); v != "" {
		c.Audit.Path = v
	}
	if v := os.Getenv("XRF_DATABASE_MAX_OPEN_CONNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("XRF_DATABASE_MAX_OPEN_CONNS: %w", err)
		}
		c.Database.MaxOpenConns = n
	}
	if v := os.Getenv("XRF_DATABASE_MAX_IDLE_CONNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("XRF_DATABASE_MAX_IDLE_CONNS: %w", err)
		}
		c.Database.MaxIdleConns = n
	}
	return nil
}
