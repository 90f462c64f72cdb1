//go:build linux
// +build linux

package socket

import (
	"sync"
	"time"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Poll conditions reported to L2Conn watchers.
const (
	CondOut  = int16(unix.POLLOUT)
	CondErr  = int16(unix.POLLERR)
	CondHup  = int16(unix.POLLHUP)
	CondNval = int16(unix.POLLNVAL)
)

const (
	solL2CAP         = 6
	l2capConninfoOpt = 2
	watchPeriod      = 100
)

type l2capConninfo struct {
	hciHandle uint16
	devClass  [3]byte
	_         byte
}

// L2Conn is a raw, non-blocking L2CAP socket used to bring up a baseband
// link without opening a channel.
type L2Conn struct {
	fd     int
	mu     sync.Mutex
	closed chan struct{}
}

// DialL2Raw binds to local and starts connecting to remote. Both addresses
// are in display order. The returned connection is usually still pending.
func DialL2Raw(local, remote [6]byte) (*L2Conn, error) {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.BTPROTO_L2CAP)
	if err != nil {
		return nil, errors.Wrap(err, "can't create l2cap socket")
	}

	if err := unix.Bind(fd, &unix.SockaddrL2{Addr: local}); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "can't bind l2cap socket")
	}

	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "can't set non-blocking")
	}

	err = unix.Connect(fd, &unix.SockaddrL2{Addr: remote})
	if err != nil && err != unix.EAGAIN && err != unix.EINPROGRESS {
		unix.Close(fd)
		return nil, errors.Wrap(err, "can't connect")
	}

	return &L2Conn{fd: fd, closed: make(chan struct{})}, nil
}

// Watch calls f once, from its own goroutine, as soon as any of events (or
// an error condition) is signalled. The returned func stops the watch.
func (c *L2Conn) Watch(events int16, f func(revents int16)) (cancel func()) {
	stop := make(chan struct{})
	var once sync.Once
	cancel = func() { once.Do(func() { close(stop) }) }

	go func() {
		pfds := []unix.PollFd{{Fd: int32(c.fd), Events: events}}
		for {
			select {
			case <-stop:
				return
			case <-c.closed:
				return
			default:
			}

			pfds[0].Revents = 0
			n, err := unix.Poll(pfds, watchPeriod)
			if err == unix.EINTR || n == 0 {
				continue
			}
			if err != nil {
				pfds[0].Revents = CondErr
			}

			select {
			case <-stop:
				return
			case <-c.closed:
				return
			default:
			}

			if pfds[0].Revents != 0 {
				f(pfds[0].Revents)
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	return cancel
}

// SockError reads and clears SO_ERROR.
func (c *L2Conn) SockError() error {
	v, err := unix.GetsockoptInt(c.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return errors.Wrap(err, "can't read SO_ERROR")
	}
	if v != 0 {
		return unix.Errno(v)
	}
	return nil
}

// ConnInfo returns the baseband handle of the link.
func (c *L2Conn) ConnInfo() (uint16, [3]byte, error) {
	var ci l2capConninfo
	l := uint32(unsafe.Sizeof(ci))
	_, _, ep := unix.Syscall6(unix.SYS_GETSOCKOPT, uintptr(c.fd), solL2CAP, l2capConninfoOpt,
		uintptr(unsafe.Pointer(&ci)), uintptr(unsafe.Pointer(&l)), 0)
	if ep != 0 {
		return 0, [3]byte{}, errors.Wrap(ep, "can't read l2cap conninfo")
	}
	return ci.hciHandle, ci.devClass, nil
}

// Close shuts the socket; pending watches stop.
func (c *L2Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.closed:
		return nil
	default:
		close(c.closed)
		return errors.Wrap(unix.Close(c.fd), "can't close l2cap socket")
	}
}
