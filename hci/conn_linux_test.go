//go:build linux

package hci

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/maribu/ble-adv/adv"
	"github.com/maribu/ble-adv/internal/testutils"
)

// connPair binds a Conn to one end of a socketpair so the read path can be
// exercised without Bluetooth hardware. The peer fd feeds it frames.
func connPair(t *testing.T) (*Conn, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_SEQPACKET|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)
	t.Cleanup(func() { unix.Close(fds[1]) })
	return &Conn{fd: fds[0], dev: 0}, fds[1]
}

func TestConn_ReadDeliversFrame(t *testing.T) {
	c, peer := connPair(t)
	defer c.Close()

	frame := testutils.NewFrameBuilder().
		WithAddress([6]byte{0xA4, 0xC1, 0x38, 1, 2, 3}).
		WithEIR([]byte{0x02, 0x01, 0x06}).
		WithRSSI(0xC0).
		Build()
	_, err := unix.Write(peer, frame)
	require.NoError(t, err)

	var a adv.Advertisement
	require.NoError(t, c.ReadAdvertisement(&a))
	assert.Equal(t, "A4:C1:38:01:02:03", a.AddrString())
	assert.Equal(t, uint8(0xC0), a.RSSI)
	assert.Equal(t, uint8(0x06), a.Flags)
}

func TestConn_CloseUnblocksRead(t *testing.T) {
	c, _ := connPair(t)

	// A reader blocked on a quiet connection must observe Close and return;
	// the session teardown drains it and would otherwise hang forever.
	readDone := make(chan error, 1)
	go func() {
		var a adv.Advertisement
		readDone <- c.ReadAdvertisement(&a)
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, c.Close())

	select {
	case err := <-readDone:
		assert.Error(t, err)
	case <-time.After(3 * readPollInterval):
		t.Fatal("read did not return after Close")
	}
}

func TestConn_ReadAfterClose(t *testing.T) {
	c, _ := connPair(t)
	require.NoError(t, c.Close())

	var a adv.Advertisement
	err := c.ReadAdvertisement(&a)
	assert.Error(t, err)
}
