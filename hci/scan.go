package hci

import "errors"

// ScanFlags select the scanning state and filtering behavior passed to
// EnableScan. Flags combine freely; without ScanEnabled the other flags are
// ignored and the operation disables scanning.
type ScanFlags uint8

const (
	// ScanEnabled turns scanning on. When absent the controller is told to
	// stop scanning, which is safe to request even when already stopped.
	ScanEnabled ScanFlags = 1 << iota

	// ScanNoDuplicates asks the controller to suppress repeated reports of
	// the same advertisement within its own deduplication window.
	ScanNoDuplicates

	// ScanPassive selects passive scanning: listen only, never send
	// scan-request packets.
	ScanPassive

	// ScanPublicAddr forces the local public address for active scanning
	// instead of a random one. Passive scanning always behaves as if the
	// public address were acceptable.
	ScanPublicAddr
)

// Scan types, own-address types and filter policies of the LE Set Scan
// Parameters command [Vol 2, Part E, 7.8.10].
const (
	scanTypePassive = 0x00
	scanTypeActive  = 0x01

	addrTypePublic = 0x00
	addrTypeRandom = 0x01

	filterPolicyAcceptAll = 0x00 // no whitelist filtering
)

// Default scan interval and window, in units of 0.625 ms.
const (
	defaultScanInterval = 0x0010
	defaultScanWindow   = 0x0010
)

// ScanParameters carries the LE Set Scan Parameters command payload.
type ScanParameters struct {
	Type           uint8
	Interval       uint16 // N * 0.625 ms
	Window         uint16 // N * 0.625 ms
	OwnAddressType uint8
	FilterPolicy   uint8
}

// Commands is the primitive operation set EnableScan drives against an open
// device. *Conn implements it; tests substitute their own.
type Commands interface {
	// SetScanParameters issues LE Set Scan Parameters. A controller that is
	// already scanning rejects it with ErrBusy.
	SetScanParameters(ScanParameters) error

	// SetScanEnable issues LE Set Scan Enable. filterDuplicates only matters
	// when enable is true.
	SetScanEnable(enable, filterDuplicates bool) error

	// InstallAdvertisingFilter restricts events delivered on the handle to
	// LE meta events, so the read loop only sees advertising reports.
	InstallAdvertisingFilter() error
}

func (f ScanFlags) usePublicAddress() bool {
	// The public address is used when privacy is not explicitly requested or
	// when scanning passively only.
	return f&(ScanPassive|ScanPublicAddr) != 0
}

func (f ScanFlags) parameters() ScanParameters {
	p := ScanParameters{
		Type:           scanTypeActive,
		Interval:       defaultScanInterval,
		Window:         defaultScanWindow,
		OwnAddressType: addrTypeRandom,
		FilterPolicy:   filterPolicyAcceptAll,
	}
	if f&ScanPassive != 0 {
		p.Type = scanTypePassive
	}
	if f.usePublicAddress() {
		p.OwnAddressType = addrTypePublic
	}
	return p
}

// EnableScan drives the controller's scanning state machine.
//
// Without ScanEnabled it issues a single scan-disable command and returns;
// disabling is idempotent. With ScanEnabled it sets the scan parameters,
// enables scanning with the configured duplicate filtering, and finally
// installs the advertising receive filter, in that fixed order.
//
// Controllers reject a parameter change while scanning is active. That one
// failure reason triggers a single recovery: disable scanning, then retry
// the parameter set once. If the retry fails its error is returned, not the
// original rejection. Every other failure is terminal and leaves the actual
// hardware state ambiguous; no rollback is attempted.
func EnableScan(c Commands, flags ScanFlags) error {
	if flags&ScanEnabled == 0 {
		return c.SetScanEnable(false, false)
	}

	p := flags.parameters()
	if err := c.SetScanParameters(p); err != nil {
		if !errors.Is(err, ErrBusy) {
			return err
		}
		// Probably already scanning; stop it so the configuration applies.
		if err := c.SetScanEnable(false, false); err != nil {
			return err
		}
		if err := c.SetScanParameters(p); err != nil {
			return err
		}
	}

	if err := c.SetScanEnable(true, flags&ScanNoDuplicates != 0); err != nil {
		return err
	}
	return c.InstallAdvertisingFilter()
}
