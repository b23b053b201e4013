package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/maribu/ble-adv/adv"
	"github.com/maribu/ble-adv/scanner"
)

// dumpCmd represents the dump command
var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print every received advertisement",
	Long: `Print every Bluetooth Low Energy advertisement as it is received,
field by field: name, address, RSSI, TX power, URI, service UUIDs, flags and
the raw service or manufacturer data. Runs until interrupted unless a
duration is given.`,
	RunE: runDump,
}

var (
	dumpDuration time.Duration
	dumpVerbose  bool
)

func init() {
	dumpCmd.Flags().DurationVarP(&dumpDuration, "duration", "d", 0, "How long to dump (0 for indefinite)")
	dumpCmd.Flags().BoolVar(&dumpVerbose, "verbose", false, "Verbose logging")
}

var (
	labelColor = color.New(color.FgCyan).SprintFunc()
	addrColor  = color.New(color.FgYellow).SprintFunc()
)

func runDump(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := configureLogger(cmd, cfg, "verbose")
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	ctx, cancel := signalContext(context.Background())
	defer cancel()

	opts := &scanner.Options{
		Device:          cfg.Device,
		Duration:        dumpDuration,
		DuplicateFilter: cfg.DuplicateFilter,
		Passive:         cfg.Passive,
		PublicAddress:   cfg.PublicAddress,
	}

	s := scanner.New(logger)
	_, err = s.Scan(ctx, opts, printAdvertisement)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// printAdvertisement mirrors the record structure: the always-present
// address/RSSI line first, then one line per field that was present.
func printAdvertisement(a *adv.Advertisement) {
	fmt.Printf("%s [%s] RSSI: %d\n", a.Name, addrColor(a.AddrString()), a.RSSI)

	if a.Has&adv.HasTxPower != 0 {
		fmt.Printf("    %s: %d dBm\n", labelColor("TX power"), a.TxPower)
	}
	if a.Has&adv.HasURI != 0 {
		fmt.Printf("    %s: %q\n", labelColor("URI"), a.URI)
	}
	if a.Has&adv.HasUUID16 != 0 {
		fmt.Printf("    %s: 0x%04X\n", labelColor("UUID16"), a.UUID16)
	}
	if a.Has&adv.HasUUID32 != 0 {
		fmt.Printf("    %s: 0x%08X\n", labelColor("UUID32"), a.UUID32)
	}
	if a.Has&adv.HasUUID128 != 0 {
		fmt.Printf("    %s: %x\n", labelColor("UUID128"), a.UUID128)
	}
	if a.Has&adv.HasFlags != 0 {
		fmt.Printf("    %s:\n", labelColor("Flags"))
		for _, f := range flagNames(a.Flags) {
			fmt.Printf("        - %s\n", f)
		}
	}
	if a.Has&adv.HasServiceData != 0 {
		fmt.Printf("    %s 0x%04X: %s\n", labelColor("Service"), a.ServiceUUID, dataString(a.ServiceData))
	}
	if a.Has&adv.HasManufacturerData != 0 {
		fmt.Printf("    %s 0x%04X: %s\n", labelColor("Manufacturer"), a.CompanyID, dataString(a.ManufacturerData))
	}
}

func dataString(data []byte) string {
	if len(data) == 0 {
		return "no data"
	}
	return fmt.Sprintf("% X", data)
}

func flagNames(flags uint8) []string {
	var names []string
	if flags&adv.FlagLimitedDiscoverable != 0 {
		names = append(names, "LE Limited Discoverable Mode")
	}
	if flags&adv.FlagGeneralDiscoverable != 0 {
		names = append(names, "LE General Discoverable Mode")
	}
	if flags&adv.FlagLEOnly != 0 {
		names = append(names, "Classic Bluetooth not supported")
	}
	if flags&adv.FlagBothController != 0 {
		names = append(names, "Simultaneous LE and BR/EDR (Controller)")
	}
	if flags&adv.FlagBothHost != 0 {
		names = append(names, "Simultaneous LE and BR/EDR (Host)")
	}
	return names
}
