package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"unicode"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// formatVersion adds 'v' prefix if version starts with a digit
func formatVersion(ver string) string {
	if len(ver) > 0 && unicode.IsDigit(rune(ver[0])) {
		return "v" + ver
	}
	return ver
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bleadv",
	Short: "Receive and decode BLE advertisements",
	Long: `Passively receive Bluetooth Low Energy advertisements over a raw HCI
socket and decode them into structured records.

- scan: discover nearby devices and summarize them
- dump: print every received advertisement, field by field
- sensor: dump readings from ATC/LYWSD03MMC temperature sensors

Receiving raw HCI events needs CAP_NET_RAW and CAP_NET_ADMIN; run as root or
grant the capabilities with setcap.`,
	Version: formatVersion(version),
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Ctrl+C is a normal exit, not an error - exit silently
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", FormatUserError(err))
		os.Exit(1)
	}
}

func init() {
	// Silence Cobra's "Error:" prefix - main() prints clean errors
	rootCmd.SilenceErrors = true

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(sensorCmd)

	// Global flags
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("config", "", "YAML configuration file")
	rootCmd.PersistentFlags().IntP("device", "i", -1, "HCI controller id (-1 for the first available)")

	rootCmd.Flags().BoolP("version", "v", false, "Show version information")
}
