// Package scanner runs a BLE scanning session: it enables scanning on a
// controller, consumes advertising reports until the context ends and
// aggregates them per device, guaranteeing a best-effort scan-disable on
// every exit path.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"

	"github.com/maribu/ble-adv/adv"
	"github.com/maribu/ble-adv/hci"
	"github.com/maribu/ble-adv/internal/groutine"
	"github.com/maribu/ble-adv/internal/hcifactory"
	"github.com/maribu/ble-adv/internal/ringchan"
)

// Handler is called for every decoded advertisement that passed the option
// filters. The record is a fresh copy owned by the handler.
type Handler func(*adv.Advertisement)

// EventType marks whether a device event is the first sighting of an address
// or an update to a known one.
type EventType int

const (
	EventNew EventType = iota
	EventUpdated
)

// Event is published on the event channel for every accepted advertisement.
type Event struct {
	Type          EventType
	Advertisement adv.Advertisement
	Timestamp     time.Time
}

// Device is the aggregated view of one advertiser over a session.
type Device struct {
	Advertisement adv.Advertisement
	FirstSeen     time.Time
	LastSeen      time.Time
	Reports       int
}

// Options configures a scanning session.
type Options struct {
	// Device selects the controller id; negative means first available.
	Device int

	// Duration bounds the session; zero scans until the context ends.
	Duration time.Duration

	// DuplicateFilter asks the controller to suppress repeated reports of
	// the same advertisement.
	DuplicateFilter bool

	// Passive disables scan requests; listen only.
	Passive bool

	// PublicAddress forces the local public address for active scanning.
	PublicAddress bool

	// AllowList, when non-empty, restricts results to these addresses.
	AllowList []string

	// BlockList hides these addresses.
	BlockList []string
}

// DefaultOptions returns the options the CLI starts from.
func DefaultOptions() *Options {
	return &Options{
		Device:          -1,
		Duration:        10 * time.Second,
		DuplicateFilter: true,
	}
}

func (o *Options) scanFlags() hci.ScanFlags {
	flags := hci.ScanEnabled
	if o.DuplicateFilter {
		flags |= hci.ScanNoDuplicates
	}
	if o.Passive {
		flags |= hci.ScanPassive
	}
	if o.PublicAddress {
		flags |= hci.ScanPublicAddr
	}
	return flags
}

// Scanner drives BLE discovery sessions.
type Scanner struct {
	devices *hashmap.Map[string, *Device]
	events  *ringchan.Ring[Event]
	logger  *logrus.Logger
}

// New creates a Scanner. A nil logger falls back to a default one.
func New(logger *logrus.Logger) *Scanner {
	if logger == nil {
		logger = logrus.New()
	}
	return &Scanner{
		events: ringchan.New[Event](100),
		logger: logger,
	}
}

// Events returns the channel device events are published on. Events are
// dropped oldest-first when no one consumes them; they never stall the
// session.
func (s *Scanner) Events() <-chan Event {
	return s.events.C()
}

// Scan opens the transport, enables scanning and consumes advertising
// reports until the context ends, the duration elapses or the transport
// fails. It returns the per-address aggregation of everything received.
//
// Packet-local problems (frames that are no advertisement, undecodable or
// oversized payloads) are skipped; only transport failures end the session
// early. Scanning is disabled best-effort on every exit path.
func (s *Scanner) Scan(ctx context.Context, opts *Options, handler Handler) (map[string]Device, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	s.devices = hashmap.New[string, *Device]()

	t, err := hcifactory.Factory(opts.Device)
	if err != nil {
		return nil, fmt.Errorf("open HCI transport: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"duration": opts.Duration,
		"passive":  opts.Passive,
	}).Info("starting BLE scan")

	if err := t.EnableScan(opts.scanFlags()); err != nil {
		_ = t.Close()
		return nil, fmt.Errorf("enable scanning: %w", err)
	}

	readErr := make(chan error, 1)
	groutine.Go(ctx, "ble-scan-reader", func(context.Context) {
		s.readLoop(t, opts, handler, readErr)
	})

	var scanErr error
	select {
	case <-ctx.Done():
	case err := <-readErr:
		scanErr = fmt.Errorf("scan session: %w", err)
	}

	s.stop(t, opts.Device, scanErr == nil, readErr)

	s.logger.WithField("device_count", s.devices.Len()).Info("BLE scan finished")

	devices := make(map[string]Device, s.devices.Len())
	s.devices.Range(func(key string, value *Device) bool {
		devices[key] = *value
		return true
	})
	return devices, scanErr
}

// readLoop is the session's only reader; the transport supports no
// concurrent use, so all reads stay on this goroutine.
func (s *Scanner) readLoop(t hcifactory.Transport, opts *Options, handler Handler, readErr chan<- error) {
	for {
		var a adv.Advertisement
		if err := t.ReadAdvertisement(&a); err != nil {
			if recoverable(err) {
				continue
			}
			readErr <- err
			return
		}
		s.handleAdvertisement(&a, opts, handler)
	}
}

// recoverable reports whether a read outcome is local to one packet. Such
// packets are discarded and the session keeps scanning.
func recoverable(err error) bool {
	return errors.Is(err, hci.ErrNotAdvertisement) ||
		errors.Is(err, hci.ErrProtocol) ||
		errors.Is(err, adv.ErrMalformed) ||
		errors.Is(err, adv.ErrFieldTooLarge)
}

// stop tears the session down. Closing the socket unblocks the read loop;
// since the controller's scan state outlives the socket, scanning is then
// disabled best-effort through a fresh short-lived handle.
func (s *Scanner) stop(t hcifactory.Transport, device int, drainReader bool, readErr <-chan error) {
	if err := t.Close(); err != nil {
		s.logger.WithError(err).Warn("closing HCI transport")
	}
	if drainReader {
		<-readErr
	}

	c, err := hcifactory.Factory(device)
	if err != nil {
		s.logger.WithError(err).Warn("cannot reopen controller to disable scanning")
		return
	}
	defer c.Close()
	if err := c.EnableScan(0); err != nil {
		s.logger.WithError(err).Warn("disabling scanning")
	}
}

func (s *Scanner) handleAdvertisement(a *adv.Advertisement, opts *Options, handler Handler) {
	if !s.shouldInclude(a, opts) {
		return
	}

	now := time.Now()
	addr := a.AddrString()

	event := Event{Type: EventUpdated, Advertisement: *a, Timestamp: now}
	dev, existing := s.devices.Get(addr)
	if existing {
		dev.Advertisement = *a
		dev.LastSeen = now
		dev.Reports++
	} else {
		dev, existing = s.devices.GetOrInsert(addr, &Device{
			Advertisement: *a,
			FirstSeen:     now,
			LastSeen:      now,
			Reports:       1,
		})
		if existing {
			// Lost the insert race against another report of the same
			// address; fold this one in as an update.
			dev.Advertisement = *a
			dev.LastSeen = now
			dev.Reports++
		}
	}
	if !existing {
		event.Type = EventNew
		s.logger.WithFields(logrus.Fields{
			"device":  a.Name,
			"address": addr,
			"rssi":    a.RSSI,
		}).Info("discovered new device")
	}

	s.events.Send(event)
	if handler != nil {
		handler(a)
	}
}

func (s *Scanner) shouldInclude(a *adv.Advertisement, opts *Options) bool {
	addr := a.AddrString()

	for _, blocked := range opts.BlockList {
		if addr == blocked {
			return false
		}
	}

	if len(opts.AllowList) > 0 {
		for _, allowed := range opts.AllowList {
			if addr == allowed {
				return true
			}
		}
		return false
	}

	return true
}
