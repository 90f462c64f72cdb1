package bluez

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/thentenaar/bluez-dinovo/sliceops"
)

// Addr is a BD_ADDR in display order (most significant byte first).
type Addr [6]byte

// AddrAny is the all-zero address.
var AddrAny = Addr{}

// ParseAddr parses the "XX:XX:XX:XX:XX:XX" form.
func ParseAddr(s string) (Addr, error) {
	var a Addr
	if len(s) != 17 {
		return a, errors.Errorf("invalid address %q", s)
	}

	for i := 0; i < 6; i++ {
		if i < 5 && s[i*3+2] != ':' {
			return a, errors.Errorf("invalid address %q", s)
		}
		b, err := hex.DecodeString(s[i*3 : i*3+2])
		if err != nil {
			return a, errors.Errorf("invalid address %q", s)
		}
		a[i] = b[0]
	}

	return a, nil
}

// MustParseAddr is like ParseAddr but panics on malformed input.
func MustParseAddr(s string) Addr {
	a, err := ParseAddr(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AddrFromWire converts a little-endian BD_ADDR as carried in HCI packets.
func AddrFromWire(b [6]byte) Addr {
	var a Addr
	copy(a[:], sliceops.SwapBuf(b[:]))
	return a
}

// Wire returns the little-endian form used on the HCI transport.
func (a Addr) Wire() [6]byte {
	var b [6]byte
	copy(b[:], sliceops.SwapBuf(a[:]))
	return b
}

func (a Addr) String() string {
	return strings.ToUpper(fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", a[0], a[1], a[2], a[3], a[4], a[5]))
}

// Bytes returns the address in display order.
func (a Addr) Bytes() []byte {
	return a[:]
}
