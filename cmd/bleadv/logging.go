package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/maribu/ble-adv/internal/config"
)

// loadConfig builds the effective configuration: defaults, then the optional
// --config file, then the flags that were set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flags().Changed("device") {
		cfg.Device, _ = cmd.Flags().GetInt("device")
	}
	return cfg, nil
}

// configureLogger creates a logger with the level from the configuration,
// optionally bumped to debug by a verbose flag.
func configureLogger(cmd *cobra.Command, cfg *config.Config, verboseFlagName string) (*logrus.Logger, error) {
	if cfg.LogLevel == "" || cfg.LogLevel == "panic" {
		if verbose, _ := cmd.Flags().GetBool(verboseFlagName); verbose {
			cfg.LogLevel = "debug"
		}
	}
	return cfg.NewLogger()
}
