package h4

import (
	"fmt"
	"time"
)

// H4 packet indicators.
const (
	commandPacket = 0x01
	aclPacket     = 0x02
	eventPacket   = 0x04
)

const frameTimeout = 500 * time.Millisecond

// frame reassembles H4 packets from an unframed byte stream.
type frame struct {
	b        []byte
	deadline time.Time
	out      chan []byte
	pktType  byte
}

func newFrame(c chan []byte) *frame {
	return &frame{
		b:   make([]byte, 0, 256),
		out: c,
	}
}

// Assemble appends b and emits every complete packet.
func (f *frame) Assemble(b []byte) {
	if len(b) == 0 {
		return
	}
	if !f.deadline.IsZero() && time.Now().After(f.deadline) {
		// stale partial packet
		f.reset()
	}

	if len(f.b) == 0 {
		rem, err := f.sync(b)
		if err != nil {
			return
		}
		b = rem
	}
	f.b = append(f.b, b...)

	for {
		n, err := f.length()
		if err != nil || len(f.b) < n {
			return
		}

		out := make([]byte, n)
		copy(out, f.b[:n])
		f.out <- out

		rest := f.b[n:]
		f.reset()
		if len(rest) == 0 {
			return
		}
		rest, err = f.sync(rest)
		if err != nil {
			return
		}
		f.b = append(f.b, rest...)
	}
}

func (f *frame) reset() {
	f.b = make([]byte, 0, 256)
	f.deadline = time.Time{}
}

// sync skips to the next packet indicator.
func (f *frame) sync(b []byte) ([]byte, error) {
	for i, v := range b {
		if v == eventPacket || v == aclPacket {
			f.pktType = v
			f.deadline = time.Now().Add(frameTimeout)
			return b[i:], nil
		}
	}
	return nil, fmt.Errorf("couldnt find start byte")
}

func (f *frame) length() (int, error) {
	switch f.pktType {
	case eventPacket:
		if len(f.b) < 3 {
			return 0, fmt.Errorf("not enough bytes")
		}
		return 3 + int(f.b[2]), nil
	case aclPacket:
		if len(f.b) < 5 {
			return 0, fmt.Errorf("not enough bytes")
		}
		return 5 + (int(f.b[3]) | int(f.b[4])<<8), nil
	default:
		return 0, fmt.Errorf("invalid packet type %v", f.pktType)
	}
}
