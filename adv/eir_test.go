package adv

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEIR_Empty(t *testing.T) {
	var a Advertisement
	require.NoError(t, ParseEIR(&a, nil))
	assert.Zero(t, a.Has)

	require.NoError(t, ParseEIR(&a, []byte{}))
	assert.Zero(t, a.Has)
}

func TestParseEIR_ZeroLengthTerminates(t *testing.T) {
	// A flags field followed by the end-of-data marker and trailing garbage
	// that must never be looked at.
	eir := []byte{0x02, 0x01, 0x06, 0x00, 0xDE, 0xAD, 0xBE, 0xEF}

	var a Advertisement
	require.NoError(t, ParseEIR(&a, eir))
	assert.Equal(t, uint16(HasFlags), a.Has)
	assert.Equal(t, uint8(0x06), a.Flags)
}

func TestParseEIR_FlagsOnly(t *testing.T) {
	// The canonical minimal advertisement: flags plus an unknown field.
	eir := []byte{0x02, 0x01, 0x06, 0x03, 0x19, 0x00, 0x00}

	var a Advertisement
	require.NoError(t, ParseEIR(&a, eir))
	assert.Equal(t, uint16(HasFlags), a.Has)
	assert.Equal(t, uint8(FlagGeneralDiscoverable|FlagLEOnly), a.Flags)
}

func TestParseEIR_Name(t *testing.T) {
	tests := []struct {
		name    string
		tag     byte
		value   string
		wantErr error
	}{
		{"short name", 0x08, "abc", nil},
		{"complete name", 0x09, "living room", nil},
		{"exactly at capacity", 0x09, strings.Repeat("n", MaxNameLen), nil},
		{"one byte over capacity", 0x09, strings.Repeat("n", MaxNameLen+1), ErrFieldTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eir := append([]byte{byte(1 + len(tt.value)), tt.tag}, tt.value...)

			var a Advertisement
			err := ParseEIR(&a, eir)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				// Nothing may have been written past the capacity.
				assert.LessOrEqual(t, len(a.Name), MaxNameLen)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.value, a.Name)
			assert.NotZero(t, a.Has&HasName)
		})
	}
}

func TestParseEIR_NameFallback(t *testing.T) {
	var a Advertisement
	require.NoError(t, ParseEIR(&a, []byte{0x02, 0x01, 0x06}))
	assert.Zero(t, a.Has&HasName)

	a.ApplyFallbacks()
	assert.Equal(t, UnknownName, a.Name)
	// The fallback must not fake presence.
	assert.Zero(t, a.Has&HasName)
}

func TestParseEIR_Truncated(t *testing.T) {
	tests := []struct {
		name string
		eir  []byte
	}{
		{"length past end of input", []byte{0x05, 0x09, 'a', 'b'}},
		{"length byte alone", []byte{0x03}},
		{"second field truncated", []byte{0x02, 0x01, 0x06, 0x04, 0x09, 'a'}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a Advertisement
			assert.ErrorIs(t, ParseEIR(&a, tt.eir), ErrMalformed)
		})
	}
}

func TestParseEIR_TxPower(t *testing.T) {
	var a Advertisement
	require.NoError(t, ParseEIR(&a, []byte{0x02, 0x0A, 0xF4}))
	assert.Equal(t, int8(-12), a.TxPower)
	assert.NotZero(t, a.Has&HasTxPower)

	// Without the field the record carries the sentinel.
	require.NoError(t, ParseEIR(&a, nil))
	assert.Equal(t, TxPowerUnknown, a.TxPower)
	assert.Zero(t, a.Has&HasTxPower)
}

func TestParseEIR_ServiceData(t *testing.T) {
	eir := []byte{0x06, 0x16, 0x1A, 0x18, 0x01, 0x02, 0x03}

	var a Advertisement
	require.NoError(t, ParseEIR(&a, eir))
	assert.NotZero(t, a.Has&HasServiceData)
	assert.Equal(t, uint16(0x181A), a.ServiceUUID)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, a.ServiceData)
}

func TestParseEIR_ServiceDataTooLarge(t *testing.T) {
	payload := make([]byte, 2+MaxServiceDataLen+1)
	eir := append([]byte{byte(1 + len(payload)), 0x16}, payload...)

	var a Advertisement
	assert.ErrorIs(t, ParseEIR(&a, eir), ErrFieldTooLarge)
	assert.LessOrEqual(t, len(a.ServiceData), MaxServiceDataLen)
}

func TestParseEIR_ManufacturerData(t *testing.T) {
	eir := []byte{0x05, 0xFF, 0x4C, 0x00, 0xAA, 0xBB}

	var a Advertisement
	require.NoError(t, ParseEIR(&a, eir))
	assert.NotZero(t, a.Has&HasManufacturerData)
	assert.Equal(t, uint16(0x004C), a.CompanyID)
	assert.Equal(t, []byte{0xAA, 0xBB}, a.ManufacturerData)
}

func TestParseEIR_UUIDs(t *testing.T) {
	eir := []byte{
		0x03, 0x03, 0x0F, 0x18, // 16-bit UUID 0x180F
		0x05, 0x05, 0x78, 0x56, 0x34, 0x12, // 32-bit UUID 0x12345678
	}
	eir = append(eir, 0x11, 0x07)
	uuid128 := [16]byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
	eir = append(eir, uuid128[:]...)

	var a Advertisement
	require.NoError(t, ParseEIR(&a, eir))
	assert.True(t, a.HasAll(HasUUID16|HasUUID32|HasUUID128))
	assert.Equal(t, uint16(0x180F), a.UUID16)
	assert.Equal(t, uint32(0x12345678), a.UUID32)
	assert.Equal(t, uuid128, a.UUID128)
}

func TestParseEIR_URI(t *testing.T) {
	uri := "\x17//example.com"
	eir := append([]byte{byte(1 + len(uri)), 0x24}, uri...)

	var a Advertisement
	require.NoError(t, ParseEIR(&a, eir))
	assert.NotZero(t, a.Has&HasURI)
	assert.Equal(t, uri, a.URI)

	over := strings.Repeat("u", MaxURILen+1)
	eir = append([]byte{byte(1 + len(over)), 0x24}, over...)
	assert.ErrorIs(t, ParseEIR(&a, eir), ErrFieldTooLarge)
}

func TestParseEIR_UnknownTagSkipped(t *testing.T) {
	eir := []byte{
		0x03, 0x19, 0x00, 0x00, // appearance, not decoded
		0x02, 0x01, 0x05,
	}

	var a Advertisement
	require.NoError(t, ParseEIR(&a, eir))
	assert.Equal(t, uint16(HasFlags), a.Has)
	assert.Equal(t, uint8(0x05), a.Flags)
}

func TestParseEIR_ResetsBetweenCalls(t *testing.T) {
	var a Advertisement
	a.Addr = [6]byte{0xA4, 0xC1, 0x38, 0x01, 0x02, 0x03}
	a.RSSI = 200

	require.NoError(t, ParseEIR(&a, []byte{0x05, 0x09, 'a', 'b', 'c', 'd'}))
	require.NoError(t, ParseEIR(&a, []byte{0x02, 0x01, 0x06}))

	// The second decode must not leak fields from the first, but the frame
	// attributes stay.
	assert.Equal(t, uint16(HasFlags), a.Has)
	assert.Empty(t, a.Name)
	assert.Equal(t, [6]byte{0xA4, 0xC1, 0x38, 0x01, 0x02, 0x03}, a.Addr)
	assert.Equal(t, uint8(200), a.RSSI)
}

func TestParseEIR_Idempotent(t *testing.T) {
	eir := []byte{
		0x02, 0x01, 0x06,
		0x09, 0x09, 'B', 'L', 'E', ' ', 'n', 'o', 'd', 'e',
		0x02, 0x0A, 0x04,
	}

	var first, second Advertisement
	require.NoError(t, ParseEIR(&first, eir))
	require.NoError(t, ParseEIR(&second, eir))
	assert.Equal(t, first, second)
}

func TestAddrString(t *testing.T) {
	a := Advertisement{Addr: [6]byte{0xA4, 0xC1, 0x38, 0xAB, 0xCD, 0xEF}}
	assert.Equal(t, "A4:C1:38:AB:CD:EF", a.AddrString())
}
