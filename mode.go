package bluez

import "strings"

// Mode is the externally visible adapter mode. The ordering matters:
// a higher value is a superset of the lower ones.
type Mode int

const (
	ModeOff Mode = iota
	ModeConnectable
	ModeDiscoverable
	ModeLimited
	ModeUnknown Mode = 0xff
)

// Scan enable bits as written with Write Scan Enable.
const (
	ScanDisabled uint8 = 0x00
	ScanInquiry  uint8 = 0x01
	ScanPage     uint8 = 0x02
)

var modeNames = map[Mode]string{
	ModeOff:          "off",
	ModeConnectable:  "connectable",
	ModeDiscoverable: "discoverable",
	ModeLimited:      "limited",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return "unknown"
}

// Scan returns the scan enable value corresponding to m.
func (m Mode) Scan() uint8 {
	switch m {
	case ModeConnectable:
		return ScanPage
	case ModeDiscoverable, ModeLimited:
		return ScanPage | ScanInquiry
	default:
		return ScanDisabled
	}
}

// ParseMode parses a mode name case-insensitively. "on" resolves to onMode.
func ParseMode(s string, onMode Mode) Mode {
	switch strings.ToLower(s) {
	case "off":
		return ModeOff
	case "connectable":
		return ModeConnectable
	case "discoverable":
		return ModeDiscoverable
	case "limited":
		return ModeLimited
	case "on":
		if onMode == ModeOff || onMode == ModeUnknown {
			return ModeConnectable
		}
		return onMode
	default:
		return ModeUnknown
	}
}

// ModeFromScan derives the mode implied by a scan enable value.
func ModeFromScan(scan uint8, limited bool) Mode {
	switch {
	case scan&ScanInquiry != 0 && limited:
		return ModeLimited
	case scan&ScanInquiry != 0:
		return ModeDiscoverable
	case scan&ScanPage != 0:
		return ModeConnectable
	default:
		return ModeOff
	}
}
