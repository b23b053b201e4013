// Package adv decodes the EIR (Extended Inquiry Response) payload of a BLE
// advertisement into a bounds-checked Advertisement record.
//
// The decoder is a pure function over a byte buffer: it performs no I/O,
// keeps no state between calls, and never retains a reference to the input.
// Unrecognized EIR tags are skipped so that packets from newer devices still
// decode; structurally broken packets are rejected instead of truncated.
package adv

import (
	"errors"
	"fmt"
)

// Capacities of the bounded record fields. They derive from the maximum
// payload an EIR field can carry and a conforming decoder rejects any input
// that would require more.
const (
	MaxNameLen             = 28 // visible bytes, excluding the terminator
	MaxURILen              = 29
	MaxServiceDataLen      = 27
	MaxManufacturerDataLen = 27
)

// TxPowerUnknown is stored in Advertisement.TxPower when the advertisement
// carried no TX power level field.
const TxPowerUnknown = int8(127)

// UnknownName is substituted for Advertisement.Name when the advertisement
// carried no local name field. HasName stays cleared in that case.
const UnknownName = "<unknown>"

// Decode errors. Both mean "this packet cannot be trusted, discard it and
// keep scanning"; neither is fatal to a scanning session.
var (
	// ErrMalformed reports a truncated or structurally inconsistent
	// tag-length-value stream.
	ErrMalformed = errors.New("adv: malformed EIR encoding")

	// ErrFieldTooLarge reports an EIR field whose payload exceeds the fixed
	// capacity of its destination record field.
	ErrFieldTooLarge = errors.New("adv: EIR field exceeds record capacity")
)

// Presence bits for Advertisement.Has. A zero field value never implies the
// field was absent; the Has bitmask is the single source of truth.
const (
	HasUUID16 = 1 << iota
	HasUUID32
	HasUUID128
	HasServiceData
	HasManufacturerData
	HasFlags
	HasName
	HasURI
	HasTxPower
)

// Bits of the Flags field.
const (
	FlagLimitedDiscoverable = 0x01 // LE Limited Discoverable Mode
	FlagGeneralDiscoverable = 0x02 // LE General Discoverable Mode
	FlagLEOnly              = 0x04 // BR/EDR not supported
	FlagBothController      = 0x08 // simultaneous LE and BR/EDR (controller)
	FlagBothHost            = 0x10 // simultaneous LE and BR/EDR (host)
)

// Advertisement is the decoded form of one BLE advertisement. Every field
// except Addr and RSSI is optional; consult Has before trusting a value.
// The record is a plain value owned by the caller and shares no memory with
// the buffer it was decoded from.
type Advertisement struct {
	// Addr is the sender address in human-readable byte order, i.e. reversed
	// from the order the radio puts on the wire.
	Addr [6]byte

	// RSSI is the received signal strength indicator of the advertisement.
	RSSI uint8

	// Name is the short or complete local name, at most MaxNameLen bytes.
	// When the advertisement carried no name it holds UnknownName and
	// HasName is cleared.
	Name string

	// URI is the advertised URI, at most MaxURILen bytes, empty when absent.
	URI string

	// TxPower is the TX power level in dBm the sender claimed to use, or
	// TxPowerUnknown.
	TxPower int8

	// Flags holds the advertisement flags byte, see the Flag constants.
	Flags uint8

	UUID16  uint16   // 16-bit service UUID, host byte order
	UUID32  uint32   // 32-bit service UUID, host byte order
	UUID128 [16]byte // 128-bit service UUID, wire byte order

	ServiceUUID uint16 // 16-bit UUID qualifying ServiceData
	ServiceData []byte // service data payload, at most MaxServiceDataLen bytes

	CompanyID        uint16 // 16-bit company identifier of ManufacturerData
	ManufacturerData []byte // manufacturer payload, at most MaxManufacturerDataLen bytes

	// Has indicates which optional fields were populated by this decode.
	Has uint16
}

// AddrString formats Addr in the conventional colon-separated notation.
func (a *Advertisement) AddrString() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X",
		a.Addr[0], a.Addr[1], a.Addr[2], a.Addr[3], a.Addr[4], a.Addr[5])
}

// HasAll reports whether every presence bit in mask is set.
func (a *Advertisement) HasAll(mask uint16) bool {
	return a.Has&mask == mask
}

// reset clears everything the decoder owns. Addr and RSSI are left alone;
// they come from the surrounding advertising-report frame, not from the EIR
// payload.
func (a *Advertisement) reset() {
	a.Name = ""
	a.URI = ""
	a.TxPower = TxPowerUnknown
	a.Flags = 0
	a.UUID16 = 0
	a.UUID32 = 0
	a.UUID128 = [16]byte{}
	a.ServiceUUID = 0
	a.ServiceData = nil
	a.CompanyID = 0
	a.ManufacturerData = nil
	a.Has = 0
}

// ApplyFallbacks substitutes the printable placeholders for absent name and
// URI fields. It is called by the frame-level wrapper after a successful
// decode so callers can always print both fields.
func (a *Advertisement) ApplyFallbacks() {
	if a.Has&HasName == 0 {
		a.Name = UnknownName
	}
	if a.Has&HasURI == 0 {
		a.URI = ""
	}
}
