package hci

import (
	"io"
	"time"
)

// An Option configures the gateway.
type Option func(*HCI) error

// OptTransportHCISocket selects the raw socket of hciN.
func OptTransportHCISocket(id int) Option {
	return func(h *HCI) error {
		h.transport = transport{hci: &transportHci{id}}
		return nil
	}
}

// OptTransportH4Socket selects an H4 stream over TCP.
func OptTransportH4Socket(addr string, timeout time.Duration) Option {
	return func(h *HCI) error {
		h.transport = transport{h4socket: &transportH4Socket{addr, timeout}}
		return nil
	}
}

// OptTransportH4Uart selects an H4 stream over a serial port.
func OptTransportH4Uart(path string, baud uint) Option {
	return func(h *HCI) error {
		h.transport = transport{h4uart: &transportH4Uart{path, baud}}
		return nil
	}
}

// OptTransport uses an already opened packet stream.
func OptTransport(rwc io.ReadWriteCloser) Option {
	return func(h *HCI) error {
		h.rw = rwc
		return nil
	}
}

// OptCommandTimeout bounds the wait for a command reply.
func OptCommandTimeout(d time.Duration) Option {
	return func(h *HCI) error {
		if d > 0 {
			h.cmdTimeout = d
		}
		return nil
	}
}

// OptErrorHandler receives transport failures.
func OptErrorHandler(handler func(error)) Option {
	return func(h *HCI) error {
		h.errorHandler = handler
		return nil
	}
}
