//go:build linux

package hcifactory

import "github.com/maribu/ble-adv/hci"

func open(device int) (Transport, error) {
	return hci.Open(device)
}
