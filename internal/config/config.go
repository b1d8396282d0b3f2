// Package config holds the server configuration and its YAML loader.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds configuration for the docbatch server.
type ServerConfig struct {
	Addr          string `yaml:"addr"`           // Listen address (default ":8080")
	LogLevel      string `yaml:"log_level"`      // Log level: debug, info, warn, error
	LogFormat     string `yaml:"log_format"`     // Log format: text, json
	DBPath        string `yaml:"db_path"`        // Audit database path (":memory:" for testing)
	MaxConcurrent int    `yaml:"max_concurrent"` // Queue admission limit (default 3)
	ShapeChunk    int    `yaml:"shape_chunk"`    // Shape insertion batch cap (default 10)
}

// DefaultServerConfig returns sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:          ":8080",
		LogLevel:      "info",
		LogFormat:     "text",
		DBPath:        ":memory:",
		MaxConcurrent: 3,
		ShapeChunk:    10,
	}
}

// LoadFile reads a YAML config file on top of the defaults. Fields the
// file omits keep their default values.
func LoadFile(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects values the server cannot run with.
func (c ServerConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", c.MaxConcurrent)
	}
	if c.ShapeChunk < 1 {
		return fmt.Errorf("shape_chunk must be at least 1, got %d", c.ShapeChunk)
	}
	return nil
}
