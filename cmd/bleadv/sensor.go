package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/maribu/ble-adv/adv"
	"github.com/maribu/ble-adv/scanner"
	"github.com/maribu/ble-adv/sensor"
)

// sensorCmd represents the sensor command
var sensorCmd = &cobra.Command{
	Use:   "sensor",
	Short: "Dump readings from ATC/LYWSD03MMC sensors",
	Long: `Dump temperature and humidity readings broadcast by Xiaomi LYWSD03MMC
(and similar) sensors running the ATC_MiThermometer custom firmware. Other
advertisements are ignored. Runs until interrupted unless a duration is
given.`,
	RunE: runSensor,
}

var (
	sensorDuration time.Duration
	sensorVerbose  bool
)

func init() {
	sensorCmd.Flags().DurationVarP(&sensorDuration, "duration", "d", 0, "How long to listen (0 for indefinite)")
	sensorCmd.Flags().BoolVar(&sensorVerbose, "verbose", false, "Verbose logging")
}

func runSensor(cmd *cobra.Command, args []string) error {
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
		Device:   cfg.Device,
		Duration: sensorDuration,
		// Repeated frames matter here: the frame counter distinguishes a new
		// reading from a retransmission.
		DuplicateFilter: false,
		Passive:         cfg.Passive,
		PublicAddress:   cfg.PublicAddress,
	}

	s := scanner.New(logger)
	_, err = s.Scan(ctx, opts, printMeasurement)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func printMeasurement(a *adv.Advertisement) {
	m, err := sensor.Parse(a)
	if err != nil {
		// Not a measurement frame; skip silently.
		return
	}
	fmt.Printf("%s [%s] RSSI: %d\n", a.Name, a.AddrString(), a.RSSI)
	fmt.Printf("    temperature = %.1f °C, humidity = %d %%, battery = %d %% (%d mV), frame = %d\n",
		m.Celsius(), m.Humidity, m.Battery, m.BatteryMillivolts, m.FrameCounter)
}
