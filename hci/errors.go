package hci

import (
	"errors"
	"fmt"
)

// CommandError is a non-zero status the controller returned in a Command
// Complete event. The numeric value is the HCI error code from the Bluetooth
// Core Specification, Vol 1, Part F.
type CommandError uint8

func (e CommandError) Error() string {
	return fmt.Sprintf("hci: command failed with controller status 0x%02X", uint8(e))
}

// ErrBusy is the "Command Disallowed" status a controller reports when scan
// parameters are changed while scanning is already enabled. It is the one
// failure reason EnableScan recovers from by disabling and retrying once.
const ErrBusy = CommandError(0x0C)

var (
	// ErrNotAdvertisement reports that a valid event frame carried something
	// other than an LE advertising report. The caller should simply read the
	// next frame.
	ErrNotAdvertisement = errors.New("hci: event is not an advertising report")

	// ErrProtocol reports an event frame too short for the headers it must
	// contain, or one whose declared lengths are inconsistent with its size.
	// Recoverable; treat it as a transport hiccup and read again.
	ErrProtocol = errors.New("hci: malformed event frame")
)
