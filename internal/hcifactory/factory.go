// Package hcifactory decouples the scanner from the concrete HCI transport
// so tests can substitute an in-memory one.
package hcifactory

import (
	"github.com/maribu/ble-adv/adv"
	"github.com/maribu/ble-adv/hci"
)

// Transport is the device handle surface a scanning session needs: the scan
// state machine, the blocking advertisement read and release of the handle.
type Transport interface {
	EnableScan(flags hci.ScanFlags) error
	ReadAdvertisement(dst *adv.Advertisement) error
	Close() error
}

// Factory opens the transport for the given controller id (negative means
// first available). It is a variable so that tests can override it.
var Factory = func(device int) (Transport, error) {
	return open(device)
}
