package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLiteConfig(t *testing.T) {
	cfg := DefaultLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, time.Minute, cfg.CategoryCacheTTL)
	assert.Equal(t, "risk_category_ids:v1", cfg.CategoryCacheKey)
	assert.True(t, cfg.RecordAssessments)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadLiteConfig_Defaults(t *testing.T) {
	clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, time.Minute, cfg.CategoryCacheTTL)
	assert.True(t, cfg.RecordAssessments)
}

func TestLoadLiteConfig_EnvironmentOverrides(t *testing.T) {
	clearEnvVars(t)

	os.Setenv("MATERNITY_RISK_DATA_DIR", "/tmp/test-maternity")
	os.Setenv("MATERNITY_RISK_CACHE_TTL", "30s")
	os.Setenv("MATERNITY_RISK_CACHE_KEY", "risk_category_ids:v2")
	os.Setenv("MATERNITY_RISK_RECORD_ASSESSMENTS", "false")
	os.Setenv("MATERNITY_RISK_LOG_LEVEL", "debug")
	os.Setenv("MATERNITY_RISK_LOG_FORMAT", "text")

	defer clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.Equal(t, "/tmp/test-maternity", cfg.DataDir)
	assert.Equal(t, 30*time.Second, cfg.CategoryCacheTTL)
	assert.Equal(t, "risk_category_ids:v2", cfg.CategoryCacheKey)
	assert.False(t, cfg.RecordAssessments)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoadLiteConfig_InvalidValues(t *testing.T) {
	clearEnvVars(t)

	os.Setenv("MATERNITY_RISK_CACHE_TTL", "not-a-duration")
	defer clearEnvVars(t)

	cfg := LoadLiteConfig()

	// Invalid values are ignored in favour of defaults
	assert.Equal(t, time.Minute, cfg.CategoryCacheTTL)

	os.Setenv("MATERNITY_RISK_CACHE_TTL", "-5s")
	cfg = LoadLiteConfig()
	assert.Equal(t, time.Minute, cfg.CategoryCacheTTL)
}

func TestLiteConfig_Paths(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.maternity-risk"}

	assert.Equal(t, "/home/user/.maternity-risk/reference.db", cfg.ReferenceDBPath())
	assert.Equal(t, "/home/user/.maternity-risk/assessments.db", cfg.AssessmentDBPath())
	assert.Equal(t, "/home/user/.maternity-risk/exports", cfg.ExportDir())
}

func TestLiteConfig_EnsureDataDir(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "config-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	cfg := &LiteConfig{DataDir: filepath.Join(tmpDir, "maternity")}

	err = cfg.EnsureDataDir()
	require.NoError(t, err)

	_, err = os.Stat(cfg.DataDir)
	assert.NoError(t, err)

	_, err = os.Stat(cfg.ExportDir())
	assert.NoError(t, err)
}

func clearEnvVars(t *testing.T) {
	t.Helper()
	vars := []string{
		"MATERNITY_RISK_DATA_DIR",
		"MATERNITY_RISK_CACHE_TTL",
		"MATERNITY_RISK_CACHE_KEY",
		"MATERNITY_RISK_RECORD_ASSESSMENTS",
		"MATERNITY_RISK_LOG_LEVEL",
		"MATERNITY_RISK_LOG_FORMAT",
	}
	for _, v := range vars {
		os.Unsetenv(v)
	}
}
