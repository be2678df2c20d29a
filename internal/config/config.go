// Package config loads nutriai settings from YAML with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pbaille/nutriai/internal/domain"
	"github.com/pbaille/nutriai/internal/foodlog"
	"gopkg.in/yaml.v3"
)

// Config holds application settings
type Config struct {
	DBPath   string         `yaml:"db_path"`
	StoreKey string         `yaml:"store_key"`
	Addr     string         `yaml:"addr"`
	LogLevel string         `yaml:"log_level"`
	Targets  domain.Targets `yaml:"targets"`
}

// Dir returns ~/.nutriai, falling back to ./.nutriai
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".nutriai")
}

// DefaultPath is where the config file is looked up by default
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// DefaultConfig returns the configuration used when no file exists
func DefaultConfig() *Config {
	return &Config{
		DBPath:   filepath.Join(Dir(), "nutriai.db"),
		StoreKey: foodlog.DefaultKey,
		Addr:     ":8080",
		LogLevel: "info",
		Targets:  domain.DefaultTargets(),
	}
}

// Load reads configuration from a YAML file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("NUTRIAI_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("NUTRIAI_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("NUTRIAI_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate checks that required settings are present
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("config: db_path is required")
	}
	if c.StoreKey == "" {
		return fmt.Errorf("config: store_key is required")
	}
	t := c.Targets
	if t.Calories <= 0 || t.Protein < 0 || t.Fat < 0 || t.Carb < 0 {
		return fmt.Errorf("config: invalid targets %+v", t)
	}
	return nil
}

// Save writes configuration to a YAML file
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
