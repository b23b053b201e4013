// Package config holds the CLI configuration, optionally loaded from a YAML
// file with sane defaults for everything left out.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the application configuration. Flag values take precedence over
// the file; the file takes precedence over the defaults.
type Config struct {
	// Device is the HCI controller id; -1 picks the first available.
	Device int `yaml:"device" default:"-1"`

	// ScanDuration bounds one scan session; 0 scans until interrupted.
	ScanDuration time.Duration `yaml:"scan_duration" default:"10s"`

	// DuplicateFilter lets the controller suppress repeated reports.
	DuplicateFilter bool `yaml:"duplicate_filter" default:"true"`

	// Passive selects passive scanning.
	Passive bool `yaml:"passive" default:"false"`

	// PublicAddress forces the local public address for active scanning.
	PublicAddress bool `yaml:"public_address" default:"false"`

	// OutputFormat is table or json.
	OutputFormat string `yaml:"output_format" default:"table"`

	// LogLevel is one of debug, info, warn, error or panic.
	LogLevel string `yaml:"log_level" default:"panic"`
}

// Default returns the built-in configuration.
func Default() *Config {
	c := new(Config)
	defaults.SetDefaults(c)
	return c
}

// Load reads the YAML file at path over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

func (c *Config) validate() error {
	switch c.OutputFormat {
	case "table", "json":
	default:
		return fmt.Errorf("invalid output_format %q (must be table or json)", c.OutputFormat)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a config/flag log level name to a logrus level.
func ParseLevel(name string) (logrus.Level, error) {
	switch name {
	case "debug":
		return logrus.DebugLevel, nil
	case "info":
		return logrus.InfoLevel, nil
	case "warn":
		return logrus.WarnLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	case "", "panic":
		return logrus.PanicLevel, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", name)
	}
}

// NewLogger creates a logger configured per the log level.
func (c *Config) NewLogger() (*logrus.Logger, error) {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	return logger, nil
}
