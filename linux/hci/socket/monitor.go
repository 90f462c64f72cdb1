//go:build linux
// +build linux

package socket

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Device events carried by the stack internal event.
const (
	DevReg   = 1
	DevUnreg = 2
	DevUp    = 3
	DevDown  = 4
)

const (
	hciDevNone         = 0xffff
	evtStackInternal   = 0xfd
	evtSIDevice        = 0x0001
	monitorReadTimeout = 500
)

// DevEvent reports a device index transition.
type DevEvent struct {
	Event int
	ID    int
}

// Monitor listens for device registration and power changes.
type Monitor struct {
	fd   int
	done chan struct{}
}

// NewMonitor opens a raw socket on no device filtered to stack internal events.
func NewMonitor() (*Monitor, error) {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.BTPROTO_HCI)
	if err != nil {
		return nil, errors.Wrap(err, "can't create monitor socket")
	}

	f := hciFilter{typeMask: 1 << hciEventPkt}
	f.setEvent(evtStackInternal)
	if err := setFilter(fd, &f); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "can't set monitor filter")
	}

	if err := unix.Bind(fd, &unix.SockaddrHCI{Dev: hciDevNone, Channel: unix.HCI_CHANNEL_RAW}); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "can't bind monitor socket")
	}

	return &Monitor{fd: fd, done: make(chan struct{})}, nil
}

// Next blocks until a device event arrives or the monitor is closed.
func (m *Monitor) Next() (DevEvent, error) {
	b := make([]byte, 260)
	for {
		select {
		case <-m.done:
			return DevEvent{}, io.EOF
		default:
		}

		pfds := []unix.PollFd{{Fd: int32(m.fd), Events: unix.POLLIN}}
		if _, err := unix.Poll(pfds, monitorReadTimeout); err != nil && err != unix.EINTR {
			return DevEvent{}, errors.Wrap(err, "monitor poll")
		}
		if pfds[0].Revents&pollHangup != 0 {
			return DevEvent{}, io.EOF
		}
		if pfds[0].Revents&unix.POLLIN == 0 {
			continue
		}

		n, err := unix.Read(m.fd, b)
		if err != nil {
			return DevEvent{}, errors.Wrap(err, "monitor read")
		}
		if e, ok := ParseDevEvent(b[:n]); ok {
			return e, nil
		}
	}
}

// ParseDevEvent decodes a stack internal device event packet.
func ParseDevEvent(b []byte) (DevEvent, bool) {
	// type, event code, length, si type (2), event (2), dev id (2)
	if len(b) < 9 || b[0] != hciEventPkt || b[1] != evtStackInternal {
		return DevEvent{}, false
	}
	if binary.LittleEndian.Uint16(b[3:]) != evtSIDevice {
		return DevEvent{}, false
	}
	return DevEvent{
		Event: int(binary.LittleEndian.Uint16(b[5:])),
		ID:    int(binary.LittleEndian.Uint16(b[7:])),
	}, true
}

// Close stops Next.
func (m *Monitor) Close() error {
	select {
	case <-m.done:
		return nil
	default:
		close(m.done)
	}
	return errors.Wrap(unix.Close(m.fd), "can't close monitor socket")
}
