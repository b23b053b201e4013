package hci

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maribu/ble-adv/adv"
	"github.com/maribu/ble-adv/internal/testutils"
)

func TestParseAdvertisingReport(t *testing.T) {
	addr := [6]byte{0xA4, 0xC1, 0x38, 0x01, 0x02, 0x03}
	eir := testutils.NewEIRBuilder().
		WithFlags(0x06).
		WithName("beacon").
		Build()
	frame := testutils.NewFrameBuilder().
		WithAddress(addr).
		WithEIR(eir).
		WithRSSI(0xC8).
		Build()

	var a adv.Advertisement
	require.NoError(t, parseAdvertisingReport(&a, frame))

	// The address arrives in reversed wire order and must come out readable.
	assert.Equal(t, addr, a.Addr)
	assert.Equal(t, "A4:C1:38:01:02:03", a.AddrString())
	assert.Equal(t, uint8(0xC8), a.RSSI)
	assert.Equal(t, "beacon", a.Name)
	assert.Equal(t, uint8(0x06), a.Flags)
}

func TestParseAdvertisingReport_NotAnAdvertisement(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
	}{
		{"command packet", testutils.NewFrameBuilder().WithPacketType(0x01).Build()},
		{"other event", testutils.NewFrameBuilder().WithEventCode(evtCommandComplete).Build()},
		{"other sub-event", testutils.NewFrameBuilder().WithSubevent(0x01).Build()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a adv.Advertisement
			assert.ErrorIs(t, parseAdvertisingReport(&a, tt.frame), ErrNotAdvertisement)
		})
	}
}

func TestParseAdvertisingReport_TooShort(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
	}{
		{"empty", nil},
		{"header only", testutils.NewFrameBuilder().TruncatedAt(3).Build()},
		{"cut before data length", testutils.NewFrameBuilder().TruncatedAt(12).Build()},
		{"cut before rssi", testutils.NewFrameBuilder().TruncatedAt(14).Build()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a adv.Advertisement
			assert.ErrorIs(t, parseAdvertisingReport(&a, tt.frame), ErrProtocol)
		})
	}
}

func TestParseAdvertisingReport_DeclaredLengthExceedsFrame(t *testing.T) {
	// The EIR length claims more bytes than the frame holds; the report must
	// be rejected rather than read past the buffer.
	frame := testutils.NewFrameBuilder().
		WithEIR([]byte{0x02, 0x01, 0x06}).
		WithDataLength(0x20).
		Build()

	var a adv.Advertisement
	assert.ErrorIs(t, parseAdvertisingReport(&a, frame), ErrProtocol)
}

func TestParseAdvertisingReport_EIRErrorPropagates(t *testing.T) {
	// Structurally valid frame, broken EIR body inside it.
	frame := testutils.NewFrameBuilder().
		WithEIR(testutils.NewEIRBuilder().Raw(0x09, 0x09, 'a').Build()).
		WithDataLength(3).
		Build()

	var a adv.Advertisement
	assert.ErrorIs(t, parseAdvertisingReport(&a, frame), adv.ErrMalformed)
}

func TestParseAdvertisingReport_FlagsOnlyPayload(t *testing.T) {
	// A frame whose EIR body carries flags plus an undecoded appearance
	// field: only the flags come out, and the name falls back.
	frame := testutils.NewFrameBuilder().
		WithAddress([6]byte{0xA4, 0xC1, 0x38, 1, 2, 3}).
		WithEIR([]byte{0x02, 0x01, 0x06, 0x03, 0x19, 0x00, 0x00}).
		WithRSSI(0xBE).
		Build()

	var a adv.Advertisement
	require.NoError(t, parseAdvertisingReport(&a, frame))

	assert.Equal(t, uint16(adv.HasFlags), a.Has)
	assert.Equal(t, uint8(0x06), a.Flags)
	assert.Equal(t, adv.UnknownName, a.Name)
	assert.Zero(t, a.Has&adv.HasName)
	assert.Equal(t, "A4:C1:38:01:02:03", a.AddrString())
	assert.Equal(t, uint8(0xBE), a.RSSI)
}

func TestParseAdvertisingReport_EmptyEIR(t *testing.T) {
	frame := testutils.NewFrameBuilder().
		WithAddress([6]byte{1, 2, 3, 4, 5, 6}).
		WithRSSI(0xB0).
		Build()

	var a adv.Advertisement
	require.NoError(t, parseAdvertisingReport(&a, frame))
	assert.Zero(t, a.Has)
	assert.Equal(t, adv.UnknownName, a.Name)
	assert.Equal(t, uint8(0xB0), a.RSSI)
}
