// Package sensor extracts temperature and humidity measurements broadcast by
// Xiaomi LYWSD03MMC (and similar ATC-flashed) sensors running the custom
// firmware from https://github.com/atc1441/ATC_MiThermometer or
// https://github.com/pvvx/ATC_MiThermometer.
//
// The firmware advertises its readings as service data under the 16-bit
// Environmental Sensing UUID, so no connection is needed: decode the
// advertisement and hand it to Parse.
package sensor

import (
	"encoding/binary"
	"errors"

	"github.com/maribu/ble-adv/adv"
)

// ServiceUUID is the 16-bit service data UUID the custom firmware uses.
const ServiceUUID = 0x181A

// dataLen is the exact service data payload size of one measurement frame.
const dataLen = 13

// ErrNotMeasurement reports that an advertisement carries no measurement
// frame; check with Match first.
var ErrNotMeasurement = errors.New("sensor: advertisement carries no measurement data")

// Measurement is one decoded sensor reading.
type Measurement struct {
	// Addr is the sensor's address as embedded in the frame itself, already
	// in human-readable byte order.
	Addr [6]byte

	// DeciCelsius is the temperature in units of 0.1 °C.
	DeciCelsius int16

	// Humidity is the relative humidity in percent.
	Humidity uint8

	// Battery is the battery level in percent.
	Battery uint8

	// BatteryMillivolts is the battery voltage in mV.
	BatteryMillivolts uint16

	// FrameCounter increments with every broadcast frame and allows
	// detecting repeats when the controller's duplicate filter is off.
	FrameCounter uint8
}

// Celsius returns the temperature in °C.
func (m Measurement) Celsius() float64 {
	return float64(m.DeciCelsius) / 10
}

// Match reports whether a decoded advertisement carries a measurement frame:
// service data present, the expected service UUID and the exact frame size.
func Match(a *adv.Advertisement) bool {
	return a != nil &&
		a.Has&adv.HasServiceData != 0 &&
		a.ServiceUUID == ServiceUUID &&
		len(a.ServiceData) == dataLen
}

// Parse extracts the measurement from a matching advertisement.
//
// The frame layout is fixed: 6 address bytes, the temperature as a
// big-endian signed 16-bit value, one humidity byte, one battery-percent
// byte, the battery voltage as a big-endian 16-bit value and a frame
// counter.
func Parse(a *adv.Advertisement) (Measurement, error) {
	if !Match(a) {
		return Measurement{}, ErrNotMeasurement
	}
	d := a.ServiceData
	var m Measurement
	copy(m.Addr[:], d[0:6])
	m.DeciCelsius = int16(binary.BigEndian.Uint16(d[6:8]))
	m.Humidity = d[8]
	m.Battery = d[9]
	m.BatteryMillivolts = binary.BigEndian.Uint16(d[10:12])
	m.FrameCounter = d[12]
	return m, nil
}
