//go:build linux

package hci

import (
	"encoding/binary"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/maribu/ble-adv/adv"
)

// commandTimeout bounds the wait for a command acknowledgment from the
// controller. It applies to control operations only, never to advertisement
// delivery.
const commandTimeout = 10 * time.Second

// readPollInterval is how often a blocked read re-checks whether the
// connection was closed. Closing an fd does not wake a read already blocked
// on it, so reads must never block unboundedly on the fd alone.
const readPollInterval = 500 * time.Millisecond

// LE controller command opcodes, OGF 0x08 [Vol 2, Part E, 7.8].
const (
	ogfLEController = 0x08

	opLESetScanParameters = ogfLEController<<10 | 0x000B
	opLESetScanEnable     = ogfLEController<<10 | 0x000C
)

const (
	solHCI    = 0
	hciFilter = 2

	hciMaxDevices = 16
)

// HCI ioctl requests, _IOR('H', nr, 4).
var (
	hciGetDeviceList = ioR('H', 210, 4) // HCIGETDEVLIST
)

func ioR(typ, nr, size uintptr) uintptr {
	return 2<<30 | size<<16 | typ<<8 | nr
}

// Conn is a raw HCI socket bound to one local controller. It is the device
// handle everything else operates on: the scan control commands, the receive
// filter and the blocking advertisement reads.
//
// A Conn supports no concurrent use; the scan controller and the read loop
// are expected to run on the same goroutine, serialized by the caller.
type Conn struct {
	fd     int
	dev    int
	closed atomic.Bool

	// steadyFilter is the receive filter that must survive command
	// exchanges, once InstallAdvertisingFilter has set one.
	steadyFilter []byte
}

// Open binds a raw HCI socket to controller id. With a negative id the first
// controller that accepts a binding is used.
//
// Opening requires CAP_NET_RAW and CAP_NET_ADMIN; a failure wrapping
// unix.EPERM means the process lacks them.
func Open(id int) (*Conn, error) {
	if id < 0 {
		return openFirst()
	}

	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.BTPROTO_HCI)
	if err != nil {
		return nil, errors.Wrap(err, "hci: open raw socket")
	}
	sa := &unix.SockaddrHCI{Dev: uint16(id), Channel: unix.HCI_CHANNEL_RAW}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(err, "hci: bind to hci%d", id)
	}
	return &Conn{fd: fd, dev: id}, nil
}

// openFirst walks the controller list and returns the first one that can be
// opened, mirroring what hci_get_route does for a nil address.
func openFirst() (*Conn, error) {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.BTPROTO_HCI)
	if err != nil {
		return nil, errors.Wrap(err, "hci: open raw socket")
	}
	defer unix.Close(fd)

	req := devListRequest{devNum: hciMaxDevices}
	if err := ioctl(fd, hciGetDeviceList, unsafe.Pointer(&req)); err != nil {
		return nil, errors.Wrap(err, "hci: list controllers")
	}

	var firstErr error
	for i := 0; i < int(req.devNum); i++ {
		c, err := Open(int(req.devRequest[i].id))
		if err == nil {
			return c, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = errors.New("hci: no controllers available")
	}
	return nil, firstErr
}

type devRequest struct {
	id  uint16
	opt uint32
}

type devListRequest struct {
	devNum     uint16
	devRequest [hciMaxDevices]devRequest
}

func ioctl(fd int, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// Device returns the controller id the connection is bound to.
func (c *Conn) Device() int { return c.dev }

// Close releases the socket and unblocks a pending read within one poll
// interval. It does not disable scanning; callers wanting a clean radio
// state issue EnableScan without ScanEnabled first.
func (c *Conn) Close() error {
	c.closed.Store(true)
	return unix.Close(c.fd)
}

// read blocks for one frame, retrying transparently when interrupted by a
// signal. It waits in bounded poll intervals and re-checks for closure in
// between: a blocked read holds a reference to the fd, so Close alone would
// never wake it. Any other failure is propagated.
func (c *Conn) read(b []byte) (int, error) {
	for {
		if c.closed.Load() {
			return 0, errors.Wrap(unix.EBADF, "hci: connection closed")
		}

		fds := []unix.PollFd{{Fd: int32(c.fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, int(readPollInterval/time.Millisecond))
		if err == unix.EINTR || n == 0 && err == nil {
			continue
		}
		if err != nil {
			return 0, errors.Wrap(err, "hci: wait for frame")
		}

		nr, err := unix.Read(c.fd, b)
		if err == unix.EINTR {
			continue
		}
		return nr, err
	}
}

// ReadAdvertisement blocks until one advertising report arrives and decodes
// it into dst.
//
// ErrNotAdvertisement and ErrProtocol are normal, recoverable outcomes: read
// again. Decode errors from the adv package mean the packet was discarded;
// the scanning session stays healthy. Only wrapped transport failures are
// fatal for the session.
func (c *Conn) ReadAdvertisement(dst *adv.Advertisement) error {
	buf := make([]byte, maxEventSize)
	n, err := c.read(buf)
	if err != nil {
		return errors.Wrap(err, "hci: read event")
	}
	return parseAdvertisingReport(dst, buf[:n])
}

// EnableScan drives the scanning state machine on this connection.
func (c *Conn) EnableScan(flags ScanFlags) error {
	return EnableScan(c, flags)
}

// SetScanParameters implements Commands.
func (c *Conn) SetScanParameters(p ScanParameters) error {
	params := make([]byte, 7)
	params[0] = p.Type
	binary.LittleEndian.PutUint16(params[1:], p.Interval)
	binary.LittleEndian.PutUint16(params[3:], p.Window)
	params[5] = p.OwnAddressType
	params[6] = p.FilterPolicy
	return c.command(opLESetScanParameters, params)
}

// SetScanEnable implements Commands.
func (c *Conn) SetScanEnable(enable, filterDuplicates bool) error {
	params := []byte{0x00, 0x00}
	if enable {
		params[0] = 0x01
	}
	if filterDuplicates {
		params[1] = 0x01
	}
	return c.command(opLESetScanEnable, params)
}

// InstallAdvertisingFilter implements Commands. The filter sticks until the
// socket is closed and is re-installed after every command exchange.
func (c *Conn) InstallAdvertisingFilter() error {
	f := newFilter()
	f.allowPacketType(pktTypeEvent)
	f.allowEvent(evtLEMeta)
	if err := c.setFilter(f); err != nil {
		return err
	}
	c.steadyFilter = f
	return nil
}

// command writes one HCI command packet and waits for the controller's
// acknowledgment, with commandTimeout as the upper bound. A temporary
// receive filter admits only the acknowledgment events and is replaced by
// the steady advertising filter afterwards.
func (c *Conn) command(opcode uint16, params []byte) error {
	f := newFilter()
	f.allowPacketType(pktTypeEvent)
	f.allowEvent(evtCommandComplete)
	f.allowEvent(evtCommandStatus)
	f.setOpcode(opcode)
	if err := c.setFilter(f); err != nil {
		return err
	}
	if c.steadyFilter != nil {
		defer c.setFilter(c.steadyFilter)
	}

	pkt := make([]byte, 4+len(params))
	pkt[0] = pktTypeCommand
	binary.LittleEndian.PutUint16(pkt[1:], opcode)
	pkt[3] = byte(len(params))
	copy(pkt[4:], params)
	if _, err := unix.Write(c.fd, pkt); err != nil {
		return errors.Wrapf(err, "hci: send command 0x%04X", opcode)
	}

	return c.waitCommandAck(opcode)
}

func (c *Conn) waitCommandAck(opcode uint16) error {
	deadline := time.Now().Add(commandTimeout)
	buf := make([]byte, maxEventSize)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return errors.Wrapf(unix.ETIMEDOUT, "hci: command 0x%04X", opcode)
		}
		if err := c.poll(remaining); err != nil {
			return err
		}

		n, err := c.read(buf)
		if err != nil {
			return errors.Wrap(err, "hci: read command ack")
		}
		if n < 3 || buf[0] != pktTypeEvent {
			continue
		}

		switch buf[1] {
		case evtCommandComplete:
			// num_hci_command_packets, opcode, status
			if n < 7 || binary.LittleEndian.Uint16(buf[4:]) != opcode {
				continue
			}
			if status := buf[6]; status != 0 {
				return CommandError(status)
			}
			return nil
		case evtCommandStatus:
			// status, num_hci_command_packets, opcode
			if n < 7 || binary.LittleEndian.Uint16(buf[5:]) != opcode {
				continue
			}
			if status := buf[3]; status != 0 {
				return CommandError(status)
			}
		}
	}
}

func (c *Conn) poll(timeout time.Duration) error {
	ms := int(timeout / time.Millisecond)
	if ms <= 0 {
		ms = 1
	}
	for {
		fds := []unix.PollFd{{Fd: int32(c.fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, ms)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return errors.Wrap(err, "hci: poll")
		}
		if n == 0 {
			return errors.Wrap(unix.ETIMEDOUT, "hci: wait for event")
		}
		return nil
	}
}

func (c *Conn) setFilter(f hciFilterBits) error {
	err := unix.SetsockoptString(c.fd, solHCI, hciFilter, string(f))
	return errors.Wrap(err, "hci: set receive filter")
}

// hciFilterBits is the kernel struct hci_filter, encoded field by field:
// a 32-bit packet type mask, a 64-bit event mask and a 16-bit opcode, all
// little-endian.
type hciFilterBits []byte

func newFilter() hciFilterBits {
	return make(hciFilterBits, 14)
}

func (f hciFilterBits) allowPacketType(t uint8) {
	mask := binary.LittleEndian.Uint32(f[0:])
	mask |= 1 << (t & 31)
	binary.LittleEndian.PutUint32(f[0:], mask)
}

func (f hciFilterBits) allowEvent(e uint8) {
	word := 4 + 4*(int(e&63)>>5)
	mask := binary.LittleEndian.Uint32(f[word:])
	mask |= 1 << (e & 31)
	binary.LittleEndian.PutUint32(f[word:], mask)
}

func (f hciFilterBits) setOpcode(op uint16) {
	binary.LittleEndian.PutUint16(f[12:], op)
}
