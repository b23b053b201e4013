package hci

import "github.com/maribu/ble-adv/adv"

// HCI packet types [Vol 4, Part A, 2].
const (
	pktTypeCommand = 0x01
	pktTypeACLData = 0x02
	pktTypeSCOData = 0x03
	pktTypeEvent   = 0x04
)

// Event codes and LE meta sub-event codes.
const (
	evtCommandComplete = 0x0E
	evtCommandStatus   = 0x0F
	evtLEMeta          = 0x3E

	leAdvertisingReport = 0x02
)

// maxEventSize bounds one HCI event frame: packet type, event code,
// parameter length and up to 255 parameter bytes.
const maxEventSize = 258

// Byte offsets inside an event frame carrying an LE advertising report.
// Wire structures are decoded field by field at declared offsets; nothing
// here relies on Go struct layout.
//
//	[0]     packet type (0x04, event)
//	[1]     event code (0x3E, LE meta)
//	[2]     parameter length
//	[3]     sub-event code (0x02, advertising report)
//	[4]     number of reports
//	[5]     event type of report 0
//	[6]     address type of report 0
//	[7:13]  advertiser address, wire byte order
//	[13]    EIR data length
//	[14:]   EIR data, then one trailing RSSI byte
const (
	offSubevent = 3
	offAddr     = 7
	offDataLen  = 13
	offData     = 14
)

// minFrameLen covers everything up to and including the EIR data length of
// the first report.
const minFrameLen = offData

// parseAdvertisingReport extracts the first advertising report of one raw
// event frame into dst.
//
// A frame too short for the headers fails with ErrProtocol. A frame carrying
// any other event or sub-event fails with ErrNotAdvertisement, a normal
// outcome meaning "read again". The advertiser address is reversed into
// human-readable order, the trailing RSSI byte is copied unconditionally,
// and the EIR body is handed to adv.ParseEIR with the name/URI fallbacks
// applied afterwards.
func parseAdvertisingReport(dst *adv.Advertisement, frame []byte) error {
	if len(frame) < offSubevent+1 {
		return ErrProtocol
	}
	if frame[0] != pktTypeEvent || frame[1] != evtLEMeta || frame[offSubevent] != leAdvertisingReport {
		return ErrNotAdvertisement
	}
	if len(frame) < minFrameLen+1 {
		return ErrProtocol
	}

	// The declared EIR length plus the trailing RSSI byte must fit in the
	// frame; a report claiming more data than was read cannot be trusted.
	eirLen := int(frame[offDataLen])
	if offData+eirLen+1 > len(frame) {
		return ErrProtocol
	}

	for i := 0; i < 6; i++ {
		dst.Addr[i] = frame[offAddr+5-i]
	}
	if err := adv.ParseEIR(dst, frame[offData:offData+eirLen]); err != nil {
		return err
	}
	dst.ApplyFallbacks()
	dst.RSSI = frame[len(frame)-1]
	return nil
}
