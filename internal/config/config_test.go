package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, -1, c.Device)
	assert.Equal(t, 10*time.Second, c.ScanDuration)
	assert.True(t, c.DuplicateFilter)
	assert.False(t, c.Passive)
	assert.False(t, c.PublicAddress)
	assert.Equal(t, "table", c.OutputFormat)
	assert.Equal(t, "panic", c.LogLevel)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
device: 1
scan_duration: 30s
duplicate_filter: false
output_format: json
log_level: debug
`)

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Device)
	assert.Equal(t, 30*time.Second, c.ScanDuration)
	assert.False(t, c.DuplicateFilter)
	assert.Equal(t, "json", c.OutputFormat)
	assert.Equal(t, "debug", c.LogLevel)
	// Keys absent from the file keep their defaults.
	assert.False(t, c.Passive)
}

func TestLoad_EmptyPath(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid yaml", "device: [unclosed"},
		{"invalid output format", "output_format: xml"},
		{"invalid log level", "log_level: shouting"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"panic", logrus.PanicLevel},
		{"", logrus.PanicLevel},
	}
	for _, tt := range tests {
		level, err := ParseLevel(tt.name)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, level, tt.name)
	}

	_, err := ParseLevel("whisper")
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	c := Default()
	c.LogLevel = "info"

	logger, err := c.NewLogger()
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())

	c.LogLevel = "bogus"
	_, err = c.NewLogger()
	assert.Error(t, err)
}
