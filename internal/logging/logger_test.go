package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	logger, err := New("debug", "text", "")
	require.NoError(t, err)

	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
	assert.Equal(t, os.Stderr, logger.Out)

	logger, err = New("warn", "json", "stdout")
	require.NoError(t, err)
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
	assert.Equal(t, os.Stdout, logger.Out)
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "risk.log")

	logger, err := New("info", "json", path)
	require.NoError(t, err)

	logger.Info("Risk category assigned")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Risk category assigned")
}

func TestNew_Invalid(t *testing.T) {
	_, err := New("verbose", "json", "")
	assert.ErrorContains(t, err, "invalid log level")

	_, err = New("info", "xml", "")
	assert.ErrorContains(t, err, "invalid log format")
}
