package adv

import "encoding/binary"

// EIR tag values, from the Bluetooth Core Specification Supplement, Part A.
// Only the subset this decoder understands is listed; anything else is
// skipped during decoding.
const (
	eirFlags            = 0x01
	eirUUID16Some       = 0x02
	eirUUID16All        = 0x03
	eirUUID32Some       = 0x04
	eirUUID32All        = 0x05
	eirUUID128Some      = 0x06
	eirUUID128All       = 0x07
	eirNameShort        = 0x08
	eirNameComplete     = 0x09
	eirTxPower          = 0x0A
	eirServiceData      = 0x16
	eirURI              = 0x24
	eirManufacturerData = 0xFF
)

// ParseEIR decodes the EIR body of an advertisement into dst.
//
// The body is a sequence of length-prefixed fields where the first payload
// byte is the field tag. A zero length byte or the end of the input
// terminates decoding; both are valid terminators, not errors. A length byte
// claiming more bytes than remain fails with ErrMalformed, and a field whose
// payload would not fit its record destination fails with ErrFieldTooLarge.
// On error the record carries no guarantee beyond "nothing was written past
// any capacity".
//
// Addr and RSSI of dst are untouched; everything else is re-initialized.
// ParseEIR does not apply the name/URI fallbacks, see ApplyFallbacks.
func ParseEIR(dst *Advertisement, eir []byte) error {
	dst.reset()
	for len(eir) > 0 {
		fieldLen := int(eir[0])
		if fieldLen == 0 {
			// Reached the end-of-data marker.
			return nil
		}
		eir = eir[1:]
		if fieldLen > len(eir) {
			return ErrMalformed
		}

		tag := eir[0]
		payload := eir[1:fieldLen]
		if err := decodeField(dst, tag, payload); err != nil {
			return err
		}
		eir = eir[fieldLen:]
	}
	return nil
}

func decodeField(dst *Advertisement, tag uint8, payload []byte) error {
	switch tag {
	case eirFlags:
		if len(payload) >= 1 {
			dst.Flags = payload[0]
			dst.Has |= HasFlags
		}

	case eirNameShort, eirNameComplete:
		if len(payload) == 0 {
			break
		}
		if len(payload) > MaxNameLen {
			return ErrFieldTooLarge
		}
		dst.Name = string(payload)
		dst.Has |= HasName

	case eirTxPower:
		if len(payload) == 1 {
			dst.TxPower = int8(payload[0])
			dst.Has |= HasTxPower
		}

	case eirServiceData:
		if len(payload) >= 2 {
			if len(payload)-2 > MaxServiceDataLen {
				return ErrFieldTooLarge
			}
			dst.ServiceUUID = binary.LittleEndian.Uint16(payload)
			dst.ServiceData = append([]byte(nil), payload[2:]...)
			dst.Has |= HasServiceData
		}

	case eirManufacturerData:
		if len(payload) >= 2 {
			if len(payload)-2 > MaxManufacturerDataLen {
				return ErrFieldTooLarge
			}
			dst.CompanyID = binary.LittleEndian.Uint16(payload)
			dst.ManufacturerData = append([]byte(nil), payload[2:]...)
			dst.Has |= HasManufacturerData
		}

	case eirURI:
		if len(payload) == 0 {
			break
		}
		if len(payload) > MaxURILen {
			return ErrFieldTooLarge
		}
		dst.URI = string(payload)
		dst.Has |= HasURI

	case eirUUID16Some, eirUUID16All:
		if len(payload) >= 2 {
			dst.UUID16 = binary.LittleEndian.Uint16(payload)
			dst.Has |= HasUUID16
		}

	case eirUUID32Some, eirUUID32All:
		if len(payload) >= 4 {
			dst.UUID32 = binary.LittleEndian.Uint32(payload)
			dst.Has |= HasUUID32
		}

	case eirUUID128Some, eirUUID128All:
		if len(payload) >= 16 {
			copy(dst.UUID128[:], payload[:16])
			dst.Has |= HasUUID128
		}

	default:
		// Unrecognized tags are forward-compatible no-ops.
	}
	return nil
}
