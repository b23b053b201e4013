package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/maribu/ble-adv/adv"
	"github.com/maribu/ble-adv/internal/config"
	"github.com/maribu/ble-adv/scanner"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for BLE devices",
	Long: `Scan for Bluetooth Low Energy devices in the vicinity and display a
summary of every advertiser seen: name, address, RSSI and the advertised
service information.`,
	RunE: runScan,
}

var (
	scanDuration    time.Duration
	scanFormat      string
	scanAllowList   []string
	scanBlockList   []string
	scanNoDuplicate bool
	scanPassive     bool
	scanPublicAddr  bool
	scanWatch       bool
	scanVerbose     bool
)

func init() {
	scanCmd.Flags().DurationVarP(&scanDuration, "duration", "d", 10*time.Second, "Scan duration (0 for indefinite)")
	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", "table", "Output format (table, json)")
	scanCmd.Flags().StringSliceVar(&scanAllowList, "allow", nil, "Only show devices with these addresses")
	scanCmd.Flags().StringSliceVar(&scanBlockList, "block", nil, "Hide devices with these addresses")
	scanCmd.Flags().BoolVar(&scanNoDuplicate, "no-duplicates", true, "Let the controller filter duplicate advertisements")
	scanCmd.Flags().BoolVar(&scanPassive, "passive", false, "Passive scanning (never send scan requests)")
	scanCmd.Flags().BoolVar(&scanPublicAddr, "public-addr", false, "Use the public address for active scanning")
	scanCmd.Flags().BoolVarP(&scanWatch, "watch", "w", false, "Continuously scan and update results")
	scanCmd.Flags().BoolVar(&scanVerbose, "verbose", false, "Verbose logging")
}

func scanOptions(cfg *config.Config) *scanner.Options {
	opts := &scanner.Options{
		Device:          cfg.Device,
		Duration:        scanDuration,
		DuplicateFilter: scanNoDuplicate,
		Passive:         scanPassive,
		PublicAddress:   scanPublicAddr,
		AllowList:       scanAllowList,
		BlockList:       scanBlockList,
	}
	return opts
}

func runScan(cmd *cobra.Command, args []string) error {
	if scanFormat != "table" && scanFormat != "json" {
		return fmt.Errorf("invalid format '%s': must be table or json", scanFormat)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := configureLogger(cmd, cfg, "verbose")
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	if !cmd.Flags().Changed("duration") {
		scanDuration = cfg.ScanDuration
	}
	if !cmd.Flags().Changed("no-duplicates") {
		scanNoDuplicate = cfg.DuplicateFilter
	}
	if !cmd.Flags().Changed("passive") {
		scanPassive = cfg.Passive
	}
	if scanWatch && !cmd.Flags().Changed("duration") {
		scanDuration = 0 // watch until interrupted
	}

	s := scanner.New(logger)
	opts := scanOptions(cfg)

	if scanWatch {
		return runWatchMode(s, opts, logger)
	}
	return runSingleScan(s, opts, logger)
}

// signalContext derives a context that is canceled on SIGINT/SIGTERM; the
// scanner disables scanning on the way out.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Println("\nCtrl+C pressed, stopping scan...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func runSingleScan(s *scanner.Scanner, opts *scanner.Options, logger *logrus.Logger) error {
	ctx, cancel := signalContext(context.Background())
	defer cancel()

	progress := newCountdownPrinter("Scanning for BLE devices", opts.Duration)
	progress.Start()

	devices, err := s.Scan(ctx, opts, nil)
	progress.Stop()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Error("scan failed")
		return err
	}
	return displayDevices(devices)
}

func runWatchMode(s *scanner.Scanner, opts *scanner.Options, logger *logrus.Logger) error {
	ctx, cancel := signalContext(context.Background())
	defer cancel()

	scanErrCh := make(chan error, 1)
	devices := make(map[string]scanner.Device)
	go func() {
		var err error
		devices, err = s.Scan(ctx, opts, nil)
		scanErrCh <- err
	}()

	redraw := time.NewTicker(time.Second)
	defer redraw.Stop()

	seen := make(map[string]scanner.Device)
	for {
		select {
		case <-ctx.Done():
			<-scanErrCh
			clearScreen()
			return displayDevices(seen)

		case err := <-scanErrCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			clearScreen()
			return displayDevices(devices)

		case ev := <-s.Events():
			seen[ev.Advertisement.AddrString()] = scanner.Device{
				Advertisement: ev.Advertisement,
				LastSeen:      ev.Timestamp,
			}

		case <-redraw.C:
			clearScreen()
			if err := displayDevices(seen); err != nil {
				logger.WithError(err).Warn("rendering device table")
			}
		}
	}
}

func displayDevices(devices map[string]scanner.Device) error {
	if len(devices) == 0 {
		fmt.Println("No devices discovered")
		return nil
	}

	list := make([]scanner.Device, 0, len(devices))
	for _, d := range devices {
		list = append(list, d)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Advertisement.AddrString() < list[j].Advertisement.AddrString()
	})

	if scanFormat == "json" {
		return displayDevicesJSON(list)
	}
	return displayDevicesTable(list)
}

func displayDevicesTable(devices []scanner.Device) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tADDRESS\tRSSI\tSERVICE\tDATA\tLAST SEEN")

	for _, d := range devices {
		a := d.Advertisement
		name := a.Name
		if len(name) > 20 {
			name = name[:17] + "..."
		}

		service := ""
		if a.Has&adv.HasUUID16 != 0 {
			service = fmt.Sprintf("0x%04X", a.UUID16)
		}
		data := ""
		if a.Has&adv.HasServiceData != 0 {
			data = fmt.Sprintf("svc 0x%04X (%dB)", a.ServiceUUID, len(a.ServiceData))
		} else if a.Has&adv.HasManufacturerData != 0 {
			data = fmt.Sprintf("mfg 0x%04X (%dB)", a.CompanyID, len(a.ManufacturerData))
		}

		lastSeen := time.Since(d.LastSeen).Truncate(time.Second)
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s ago\n",
			name, a.AddrString(), a.RSSI, service, data, lastSeen)
	}
	return w.Flush()
}

func displayDevicesJSON(devices []scanner.Device) error {
	views := make([]map[string]any, 0, len(devices))
	for _, d := range devices {
		views = append(views, deviceJSON(d))
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(views)
}

// deviceJSON renders only the fields the advertisement actually carried;
// absent fields are omitted instead of showing their zero values.
func deviceJSON(d scanner.Device) map[string]any {
	a := d.Advertisement
	v := map[string]any{
		"address":   a.AddrString(),
		"name":      a.Name,
		"rssi":      a.RSSI,
		"last_seen": d.LastSeen,
		"reports":   d.Reports,
	}
	if a.Has&adv.HasFlags != 0 {
		v["flags"] = a.Flags
	}
	if a.Has&adv.HasTxPower != 0 {
		v["tx_power"] = a.TxPower
	}
	if a.Has&adv.HasURI != 0 {
		v["uri"] = a.URI
	}
	if a.Has&adv.HasUUID16 != 0 {
		v["uuid16"] = fmt.Sprintf("0x%04X", a.UUID16)
	}
	if a.Has&adv.HasUUID32 != 0 {
		v["uuid32"] = fmt.Sprintf("0x%08X", a.UUID32)
	}
	if a.Has&adv.HasUUID128 != 0 {
		v["uuid128"] = fmt.Sprintf("%x", a.UUID128)
	}
	if a.Has&adv.HasServiceData != 0 {
		v["service_uuid"] = fmt.Sprintf("0x%04X", a.ServiceUUID)
		v["service_data"] = fmt.Sprintf("%x", a.ServiceData)
	}
	if a.Has&adv.HasManufacturerData != 0 {
		v["company_id"] = fmt.Sprintf("0x%04X", a.CompanyID)
		v["manufacturer_data"] = fmt.Sprintf("%x", a.ManufacturerData)
	}
	return v
}

func clearScreen() {
	var w io.Writer = os.Stdout
	fmt.Fprint(w, "\033[2J\033[H")
}
