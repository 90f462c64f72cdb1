// Package eir decodes and encodes extended inquiry response data
// [Vol 3, Part C, 8].
package eir

import (
	"encoding/binary"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	bluez "github.com/thentenaar/bluez-dinovo"
)

// Data types.
const (
	TypeFlags             = 0x01
	TypeUUID16Incomplete  = 0x02
	TypeUUID16Complete    = 0x03
	TypeUUID32Incomplete  = 0x04
	TypeUUID32Complete    = 0x05
	TypeUUID128Incomplete = 0x06
	TypeUUID128Complete   = 0x07
	TypeNameShort         = 0x08
	TypeNameComplete      = 0x09
	TypeTxPower           = 0x0a
	TypeDeviceID          = 0x10
	TypeManufacturerData  = 0xff
)

// ErrEmpty is returned for a zero length response.
var ErrEmpty = errors.New("empty eir data")

// Data is the decoded content of an extended inquiry response.
type Data struct {
	Flags        uint8
	Name         string
	NameComplete bool
	Services     []uuid.UUID
	TxPower      int8
	HasTxPower   bool
	Manufacturer []byte
}

type record struct {
	arrayElementSz int
	minSz          int
}

var decodeMap = map[byte]record{
	TypeFlags:             {0, 1},
	TypeUUID16Incomplete:  {2, 2},
	TypeUUID16Complete:    {2, 2},
	TypeUUID32Incomplete:  {4, 4},
	TypeUUID32Complete:    {4, 4},
	TypeUUID128Incomplete: {16, 16},
	TypeUUID128Complete:   {16, 16},
	TypeNameShort:         {0, 1},
	TypeNameComplete:      {0, 1},
	TypeTxPower:           {0, 1},
	TypeManufacturerData:  {0, 2},
}

// Parse decodes b. The response ends at the first zero length field; the
// remainder is padding.
func Parse(b []byte) (*Data, error) {
	if len(b) == 0 {
		return nil, ErrEmpty
	}

	d := &Data{}
	for i := 0; i < len(b); {
		length := int(b[i])
		if length == 0 {
			break
		}
		if i+length >= len(b) {
			return d, errors.Errorf("field at %d overruns data: want %d, have %d", i, i+length+1, len(b))
		}

		typ := b[i+1]
		val := b[i+2 : i+1+length]
		i += length + 1

		dec, ok := decodeMap[typ]
		if !ok {
			continue
		}
		if len(val) < dec.minSz {
			return d, errors.Errorf("type 0x%02x: min length %d, have %d", typ, dec.minSz, len(val))
		}
		if dec.arrayElementSz > 0 {
			uu, err := uuids(dec.arrayElementSz, val)
			if err != nil {
				return d, errors.Wrapf(err, "type 0x%02x", typ)
			}
			d.Services = append(d.Services, uu...)
			continue
		}

		switch typ {
		case TypeFlags:
			d.Flags = val[0]
		case TypeNameShort, TypeNameComplete:
			// a complete name wins over a shortened one
			if d.NameComplete {
				break
			}
			d.Name = string(val)
			d.NameComplete = typ == TypeNameComplete
		case TypeTxPower:
			d.TxPower = int8(val[0])
			d.HasTxPower = true
		case TypeManufacturerData:
			d.Manufacturer = append([]byte(nil), val...)
		}
	}
	return d, nil
}

func uuids(size int, b []byte) ([]uuid.UUID, error) {
	if len(b)%size != 0 {
		return nil, errors.Errorf("length %d is not a multiple of %d", len(b), size)
	}

	out := make([]uuid.UUID, 0, len(b)/size)
	for j := 0; j < len(b); j += size {
		switch size {
		case 2:
			out = append(out, bluez.ShortUUID(uint32(binary.LittleEndian.Uint16(b[j:]))))
		case 4:
			out = append(out, bluez.ShortUUID(binary.LittleEndian.Uint32(b[j:])))
		case 16:
			var u uuid.UUID
			for k := 0; k < 16; k++ {
				u[k] = b[j+15-k]
			}
			out = append(out, u)
		}
	}
	return out, nil
}

// MarshalTo encodes the name and TX power of d into b, shortening the name
// to what fits. It returns the number of bytes written.
func (d *Data) MarshalTo(b []byte) int {
	n := 0
	if d.HasTxPower && len(b) >= 3 {
		b[0], b[1], b[2] = 2, TypeTxPower, byte(d.TxPower)
		n = 3
	}

	if d.Name == "" || len(b)-n < 3 {
		return n
	}
	name := d.Name
	typ := byte(TypeNameShort)
	if d.NameComplete {
		typ = TypeNameComplete
	}
	if room := len(b) - n - 2; len(name) > room {
		name = name[:room]
		typ = TypeNameShort
	}
	b[n] = byte(len(name) + 1)
	b[n+1] = typ
	copy(b[n+2:], name)
	return n + 2 + len(name)
}
