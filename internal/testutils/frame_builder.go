package testutils

// FrameBuilder assembles one raw HCI event frame carrying an LE advertising
// report. Defaults produce a well-formed frame; every header byte can be
// overridden to build the broken variants.
type FrameBuilder struct {
	packetType byte
	eventCode  byte
	subevent   byte
	numReports byte
	eventType  byte
	addrType   byte
	addr       [6]byte // human-readable order, reversed on Build
	eir        []byte
	rssi       byte

	truncateAt int // when > 0, Build cuts the frame to this many bytes
	dataLen    *byte
}

// NewFrameBuilder creates a builder for a well-formed advertising report.
func NewFrameBuilder() *FrameBuilder {
	return &FrameBuilder{
		packetType: 0x04, // event packet
		eventCode:  0x3E, // LE meta event
		subevent:   0x02, // advertising report
		numReports: 1,
	}
}

// WithPacketType overrides the leading packet type byte.
func (b *FrameBuilder) WithPacketType(t byte) *FrameBuilder {
	b.packetType = t
	return b
}

// WithEventCode overrides the event code.
func (b *FrameBuilder) WithEventCode(c byte) *FrameBuilder {
	b.eventCode = c
	return b
}

// WithSubevent overrides the LE meta sub-event code.
func (b *FrameBuilder) WithSubevent(s byte) *FrameBuilder {
	b.subevent = s
	return b
}

// WithAddress sets the advertiser address in human-readable order.
func (b *FrameBuilder) WithAddress(addr [6]byte) *FrameBuilder {
	b.addr = addr
	return b
}

// WithEIR sets the EIR body of the report.
func (b *FrameBuilder) WithEIR(eir []byte) *FrameBuilder {
	b.eir = eir
	return b
}

// WithRSSI sets the trailing RSSI byte.
func (b *FrameBuilder) WithRSSI(rssi byte) *FrameBuilder {
	b.rssi = rssi
	return b
}

// WithDataLength overrides the declared EIR length independently of the
// actual EIR bytes, for inconsistent-length tests.
func (b *FrameBuilder) WithDataLength(l byte) *FrameBuilder {
	b.dataLen = &l
	return b
}

// TruncatedAt cuts the built frame to n bytes.
func (b *FrameBuilder) TruncatedAt(n int) *FrameBuilder {
	b.truncateAt = n
	return b
}

// Build assembles the frame.
func (b *FrameBuilder) Build() []byte {
	dataLen := byte(len(b.eir))
	if b.dataLen != nil {
		dataLen = *b.dataLen
	}

	frame := []byte{b.packetType, b.eventCode, 0, b.subevent, b.numReports, b.eventType, b.addrType}
	for i := 5; i >= 0; i-- {
		frame = append(frame, b.addr[i]) // wire order is reversed
	}
	frame = append(frame, dataLen)
	frame = append(frame, b.eir...)
	frame = append(frame, b.rssi)
	frame[2] = byte(len(frame) - 3) // parameter length

	if b.truncateAt > 0 && b.truncateAt < len(frame) {
		frame = frame[:b.truncateAt]
	}
	return frame
}
