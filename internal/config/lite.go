// Package config provides configuration management for the risk servers.
// This file contains the lightweight configuration for standalone operation.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// LiteConfig is a simplified configuration for standalone operation.
// It requires no external database server: reference data and the
// assessment log live in SQLite files under DataDir.
type LiteConfig struct {
	// Data storage
	DataDir string

	// Category directory cache
	CategoryCacheTTL time.Duration
	CategoryCacheKey string

	RecordAssessments bool

	// Logging
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".maternity-risk")

	return &LiteConfig{
		DataDir:           dataDir,
		CategoryCacheTTL:  time.Minute,
		CategoryCacheKey:  "risk_category_ids:v1",
		RecordAssessments: true,
		LogLevel:          "info",
		LogFormat:         "json",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("MATERNITY_RISK_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	if v := os.Getenv("MATERNITY_RISK_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.CategoryCacheTTL = d
		}
	}
	if v := os.Getenv("MATERNITY_RISK_CACHE_KEY"); v != "" {
		cfg.CategoryCacheKey = v
	}

	switch os.Getenv("MATERNITY_RISK_RECORD_ASSESSMENTS") {
	case "false", "0", "no":
		cfg.RecordAssessments = false
	}

	if v := os.Getenv("MATERNITY_RISK_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("MATERNITY_RISK_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// ReferenceDBPath returns the path to the SQLite reference-data database.
func (c *LiteConfig) ReferenceDBPath() string {
	return filepath.Join(c.DataDir, "reference.db")
}

// AssessmentDBPath returns the path to the SQLite assessment log.
func (c *LiteConfig) AssessmentDBPath() string {
	return filepath.Join(c.DataDir, "assessments.db")
}

// ExportDir returns the directory for JSON exports.
func (c *LiteConfig) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.ExportDir(), 0755)
}
