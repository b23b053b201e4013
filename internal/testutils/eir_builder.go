// Package testutils builds raw EIR payloads and advertising-report frames
// for tests, byte by byte, so test inputs stay independent of the code under
// test.
package testutils

import "encoding/binary"

// EIR tag values used by the builders.
const (
	TagFlags            = 0x01
	TagUUID16Some       = 0x02
	TagUUID16All        = 0x03
	TagUUID32Some       = 0x04
	TagUUID32All        = 0x05
	TagUUID128Some      = 0x06
	TagUUID128All       = 0x07
	TagNameShort        = 0x08
	TagNameComplete     = 0x09
	TagTxPower          = 0x0A
	TagServiceData      = 0x16
	TagURI              = 0x24
	TagManufacturerData = 0xFF
)

// EIRBuilder assembles an EIR byte stream with a fluent API. Well-formed
// fields get their length prefix computed; Raw appends bytes verbatim for
// malformed-input tests.
type EIRBuilder struct {
	buf []byte
}

// NewEIRBuilder creates an empty builder.
func NewEIRBuilder() *EIRBuilder {
	return &EIRBuilder{}
}

// WithField appends one field: length byte, tag, payload.
func (b *EIRBuilder) WithField(tag byte, payload ...byte) *EIRBuilder {
	b.buf = append(b.buf, byte(1+len(payload)), tag)
	b.buf = append(b.buf, payload...)
	return b
}

// Raw appends bytes without any framing.
func (b *EIRBuilder) Raw(data ...byte) *EIRBuilder {
	b.buf = append(b.buf, data...)
	return b
}

// WithFlags appends a flags field.
func (b *EIRBuilder) WithFlags(flags byte) *EIRBuilder {
	return b.WithField(TagFlags, flags)
}

// WithName appends a complete local name field.
func (b *EIRBuilder) WithName(name string) *EIRBuilder {
	return b.WithField(TagNameComplete, []byte(name)...)
}

// WithShortName appends a shortened local name field.
func (b *EIRBuilder) WithShortName(name string) *EIRBuilder {
	return b.WithField(TagNameShort, []byte(name)...)
}

// WithTxPower appends a TX power level field.
func (b *EIRBuilder) WithTxPower(power int8) *EIRBuilder {
	return b.WithField(TagTxPower, byte(power))
}

// WithURI appends a URI field.
func (b *EIRBuilder) WithURI(uri string) *EIRBuilder {
	return b.WithField(TagURI, []byte(uri)...)
}

// WithServiceData appends a service data field with a little-endian UUID.
func (b *EIRBuilder) WithServiceData(uuid uint16, data []byte) *EIRBuilder {
	return b.WithField(TagServiceData, append(le16(uuid), data...)...)
}

// WithManufacturerData appends a manufacturer-specific data field.
func (b *EIRBuilder) WithManufacturerData(companyID uint16, data []byte) *EIRBuilder {
	return b.WithField(TagManufacturerData, append(le16(companyID), data...)...)
}

// WithUUID16 appends a complete 16-bit UUID list with one entry.
func (b *EIRBuilder) WithUUID16(uuid uint16) *EIRBuilder {
	return b.WithField(TagUUID16All, le16(uuid)...)
}

// WithUUID32 appends a complete 32-bit UUID list with one entry.
func (b *EIRBuilder) WithUUID32(uuid uint32) *EIRBuilder {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, uuid)
	return b.WithField(TagUUID32All, payload...)
}

// WithUUID128 appends a complete 128-bit UUID list with one entry.
func (b *EIRBuilder) WithUUID128(uuid [16]byte) *EIRBuilder {
	return b.WithField(TagUUID128All, uuid[:]...)
}

// Build returns the assembled EIR body.
func (b *EIRBuilder) Build() []byte {
	return append([]byte(nil), b.buf...)
}

func le16(v uint16) []byte {
	p := make([]byte, 2)
	binary.LittleEndian.PutUint16(p, v)
	return p
}
