//go:build !linux

package hcifactory

import "errors"

func open(device int) (Transport, error) {
	return nil, errors.New("hcifactory: raw HCI sockets require linux")
}
