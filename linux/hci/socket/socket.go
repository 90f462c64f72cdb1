//go:build linux
// +build linux

package socket

import (
	"io"
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// pollInterval bounds how long Read blocks, in milliseconds, so a closed
// socket is noticed.
const pollInterval = 1000

const pollHangup = unix.POLLHUP | unix.POLLNVAL | unix.POLLERR

// Raw socket filter [include/net/bluetooth/hci_sock.h].
const (
	solHCI       = 0
	hciFilterOpt = 2
	hciEventPkt  = 0x04
	fltEventBits = 63
)

type hciFilter struct {
	typeMask  uint32
	eventMask [2]uint32
	opcode    uint16
	_         uint16
}

func (f *hciFilter) setEvent(e int) {
	e &= fltEventBits
	f.eventMask[e>>5] |= 1 << uint(e&31)
}

func setFilter(fd int, f *hciFilter) error {
	_, _, ep := unix.Syscall6(unix.SYS_SETSOCKOPT, uintptr(fd), solHCI, hciFilterOpt,
		uintptr(unsafe.Pointer(f)), unsafe.Sizeof(*f), 0)
	if ep != 0 {
		return ep
	}
	return nil
}

// Socket is a raw HCI socket bound to one device. The kernel keeps
// ownership of the controller; only events pass the filter.
type Socket struct {
	fd int
	id int

	// muFD guards fd against Close while a read or write uses it
	muFD   sync.RWMutex
	muRead sync.Mutex
	closed chan struct{}
}

// NewSocket opens the raw channel of hciN.
func NewSocket(id int) (*Socket, error) {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.BTPROTO_HCI)
	if err != nil {
		return nil, errors.Wrap(err, "can't create socket")
	}

	f := hciFilter{typeMask: 1 << hciEventPkt, eventMask: [2]uint32{0xffffffff, 0xffffffff}}
	if err := setFilter(fd, &f); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "can't set filter")
	}

	sa := unix.SockaddrHCI{Dev: uint16(id), Channel: unix.HCI_CHANNEL_RAW}
	if err := unix.Bind(fd, &sa); err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(err, "can't bind socket to hci%d", id)
	}

	return &Socket{fd: fd, id: id, closed: make(chan struct{})}, nil
}

// ID returns the device index the socket is bound to.
func (s *Socket) ID() int {
	return s.id
}

// Read returns one packet. It returns 0 and a nil error when nothing
// arrived within the poll interval, and io.EOF once the socket is closed.
func (s *Socket) Read(p []byte) (int, error) {
	s.muRead.Lock()
	defer s.muRead.Unlock()

	s.muFD.RLock()
	defer s.muFD.RUnlock()
	if s.isClosed() {
		return 0, io.EOF
	}

	fds := []unix.PollFd{{Fd: int32(s.fd), Events: unix.POLLIN}}
	if _, err := unix.Poll(fds, pollInterval); err != nil && err != unix.EINTR {
		return 0, errors.Wrap(err, "poll")
	}

	ev := fds[0].Revents
	if ev&pollHangup != 0 {
		return 0, io.EOF
	}
	if ev&unix.POLLIN == 0 {
		return 0, nil
	}

	n, err := unix.Read(s.fd, p)
	if err != nil {
		return 0, errors.Wrap(err, "can't read hci socket")
	}
	return n, nil
}

// Write sends one packet.
func (s *Socket) Write(p []byte) (int, error) {
	s.muFD.RLock()
	defer s.muFD.RUnlock()
	if s.isClosed() {
		return 0, io.EOF
	}

	n, err := unix.Write(s.fd, p)
	if err != nil {
		return 0, errors.Wrap(err, "can't write hci socket")
	}
	return n, nil
}

// Close releases the socket. Later calls are no-ops.
func (s *Socket) Close() error {
	if s.isClosed() {
		return nil
	}

	s.muFD.Lock()
	defer s.muFD.Unlock()
	if s.isClosed() {
		return nil
	}
	close(s.closed)
	return errors.Wrap(unix.Close(s.fd), "can't close hci socket")
}

func (s *Socket) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}
