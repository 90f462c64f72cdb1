package h4

import (
	"io"
	"net"
	"sync"
	"time"

	"github.com/jacobsa/go-serial/serial"
	"github.com/pkg/errors"
)

const (
	rxQueueSize = 64
	readTimeout = time.Second
)

type h4 struct {
	rwc io.ReadWriteCloser
	wmu sync.Mutex

	rxQueue chan []byte

	done chan int
	cmu  sync.Mutex
}

// DefaultSerialOptions returns 8N1 at 1Mbaud with hardware flow control.
func DefaultSerialOptions() serial.OpenOptions {
	return serial.OpenOptions{
		BaudRate:              1000000,
		DataBits:              8,
		StopBits:              1,
		ParityMode:            serial.PARITY_NONE,
		RTSCTSFlowControl:     true,
		MinimumReadSize:       0,
		InterCharacterTimeout: 100,
	}
}

// NewSerial opens an H4 transport over a UART.
func NewSerial(opts serial.OpenOptions) (io.ReadWriteCloser, error) {
	// reads must return so the rx loop can observe Close
	opts.MinimumReadSize = 0
	if opts.InterCharacterTimeout == 0 {
		opts.InterCharacterTimeout = 100
	}

	sp, err := serial.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "can't open %s", opts.PortName)
	}

	return newH4(sp), nil
}

// NewSocket opens an H4 transport over TCP, as exposed by UART bridges.
func NewSocket(addr string, timeout time.Duration) (io.ReadWriteCloser, error) {
	c, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, errors.Wrapf(err, "can't dial %s", addr)
	}

	return newH4(&connWithTimeout{c: c, timeout: timeout}), nil
}

func newH4(rwc io.ReadWriteCloser) *h4 {
	h := &h4{
		rwc:     rwc,
		done:    make(chan int),
		rxQueue: make(chan []byte, rxQueueSize),
	}
	go h.rxLoop()
	return h
}

// Read returns one packet, or (0, nil) when nothing arrived in time.
func (h *h4) Read(p []byte) (int, error) {
	select {
	case <-h.done:
		return 0, io.EOF
	case t := <-h.rxQueue:
		if len(p) < len(t) {
			return 0, errors.New("buffer too small")
		}
		return copy(p, t), nil
	case <-time.After(readTimeout):
		return 0, nil
	}
}

func (h *h4) Write(p []byte) (int, error) {
	if !h.isOpen() {
		return 0, io.EOF
	}

	h.wmu.Lock()
	defer h.wmu.Unlock()
	n, err := h.rwc.Write(p)
	return n, errors.Wrap(err, "can't write h4")
}

func (h *h4) Close() error {
	h.cmu.Lock()
	defer h.cmu.Unlock()

	select {
	case <-h.done:
		return nil
	default:
		close(h.done)
		return errors.Wrap(h.rwc.Close(), "can't close h4")
	}
}

func (h *h4) isOpen() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

func (h *h4) rxLoop() {
	f := newFrame(h.rxQueue)
	tmp := make([]byte, 512)
	for h.isOpen() {
		n, err := h.rwc.Read(tmp)
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			continue
		}
		if err == io.EOF {
			h.Close()
			return
		}
		if err != nil || n == 0 {
			continue
		}
		f.Assemble(tmp[:n])
	}
}

// connWithTimeout applies a fresh deadline to every read and write.
type connWithTimeout struct {
	c       net.Conn
	timeout time.Duration
}

func (cwt *connWithTimeout) Read(b []byte) (int, error) {
	cwt.c.SetReadDeadline(time.Now().Add(cwt.timeout))
	return cwt.c.Read(b)
}

func (cwt *connWithTimeout) Write(b []byte) (int, error) {
	cwt.c.SetWriteDeadline(time.Now().Add(cwt.timeout))
	return cwt.c.Write(b)
}

func (cwt *connWithTimeout) Close() error {
	return cwt.c.Close()
}
