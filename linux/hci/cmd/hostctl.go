package cmd

import "fmt"

// SetEventMask implements Set Event Mask (0x03|0x0001) [Vol 2, Part E, 7.3.1].
type SetEventMask struct {
	EventMask [8]byte
}

func (c *SetEventMask) String() string         { return "Set Event Mask (0x03|0x0001)" }
func (c *SetEventMask) OpCode() int            { return opcode(ogfHostCtl, 0x0001) }
func (c *SetEventMask) Len() int               { return 8 }
func (c *SetEventMask) Marshal(b []byte) error { return marshal(c, b) }

// DeleteStoredLinkKey implements Delete Stored Link Key (0x03|0x0012) [Vol 2, Part E, 7.3.10].
type DeleteStoredLinkKey struct {
	BDADDR        [6]byte
	DeleteAllFlag uint8
}

func (c *DeleteStoredLinkKey) String() string         { return "Delete Stored Link Key (0x03|0x0012)" }
func (c *DeleteStoredLinkKey) OpCode() int            { return opcode(ogfHostCtl, 0x0012) }
func (c *DeleteStoredLinkKey) Len() int               { return 7 }
func (c *DeleteStoredLinkKey) Marshal(b []byte) error { return marshal(c, b) }

// NameLength is the size of the local name field.
const NameLength = 248

// WriteLocalName implements Write Local Name (0x03|0x0013) [Vol 2, Part E, 7.3.11].
type WriteLocalName struct {
	LocalName [NameLength]byte
}

func (c *WriteLocalName) String() string         { return "Write Local Name (0x03|0x0013)" }
func (c *WriteLocalName) OpCode() int            { return opcode(ogfHostCtl, 0x0013) }
func (c *WriteLocalName) Len() int               { return NameLength }
func (c *WriteLocalName) Marshal(b []byte) error { return marshal(c, b) }

// ReadLocalName implements Read Local Name (0x03|0x0014) [Vol 2, Part E, 7.3.12].
type ReadLocalName struct{}

func (c *ReadLocalName) String() string         { return "Read Local Name (0x03|0x0014)" }
func (c *ReadLocalName) OpCode() int            { return opcode(ogfHostCtl, 0x0014) }
func (c *ReadLocalName) Len() int               { return 0 }
func (c *ReadLocalName) Marshal(b []byte) error { return nil }

// ReadLocalNameRP returns the return parameter of Read Local Name.
type ReadLocalNameRP struct {
	Status    uint8
	LocalName [NameLength]byte
}

func (c *ReadLocalNameRP) Unmarshal(b []byte) error { return unmarshal(c, b) }

// Name returns the name up to the first NUL.
func (c *ReadLocalNameRP) Name() string {
	return NameString(c.LocalName[:])
}

// NameString truncates a NUL padded name field.
func NameString(b []byte) string {
	for i, v := range b {
		if v == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// ReadScanEnable implements Read Scan Enable (0x03|0x0019) [Vol 2, Part E, 7.3.17].
type ReadScanEnable struct{}

func (c *ReadScanEnable) String() string         { return "Read Scan Enable (0x03|0x0019)" }
func (c *ReadScanEnable) OpCode() int            { return opcode(ogfHostCtl, 0x0019) }
func (c *ReadScanEnable) Len() int               { return 0 }
func (c *ReadScanEnable) Marshal(b []byte) error { return nil }

// ReadScanEnableRP returns the return parameter of Read Scan Enable.
type ReadScanEnableRP struct {
	Status     uint8
	ScanEnable uint8
}

func (c *ReadScanEnableRP) Unmarshal(b []byte) error { return unmarshal(c, b) }

// WriteScanEnable implements Write Scan Enable (0x03|0x001A) [Vol 2, Part E, 7.3.18].
type WriteScanEnable struct {
	ScanEnable uint8
}

func (c *WriteScanEnable) String() string         { return "Write Scan Enable (0x03|0x001A)" }
func (c *WriteScanEnable) OpCode() int            { return opcode(ogfHostCtl, 0x001A) }
func (c *WriteScanEnable) Len() int               { return 1 }
func (c *WriteScanEnable) Marshal(b []byte) error { return marshal(c, b) }

// ReadClassOfDevice implements Read Class of Device (0x03|0x0023) [Vol 2, Part E, 7.3.25].
type ReadClassOfDevice struct{}

func (c *ReadClassOfDevice) String() string         { return "Read Class of Device (0x03|0x0023)" }
func (c *ReadClassOfDevice) OpCode() int            { return opcode(ogfHostCtl, 0x0023) }
func (c *ReadClassOfDevice) Len() int               { return 0 }
func (c *ReadClassOfDevice) Marshal(b []byte) error { return nil }

// ReadClassOfDeviceRP returns the return parameter of Read Class of Device.
type ReadClassOfDeviceRP struct {
	Status        uint8
	ClassOfDevice [3]byte
}

func (c *ReadClassOfDeviceRP) Unmarshal(b []byte) error { return unmarshal(c, b) }

// WriteClassOfDevice implements Write Class of Device (0x03|0x0024) [Vol 2, Part E, 7.3.26].
type WriteClassOfDevice struct {
	ClassOfDevice [3]byte
}

func (c *WriteClassOfDevice) String() string         { return "Write Class of Device (0x03|0x0024)" }
func (c *WriteClassOfDevice) OpCode() int            { return opcode(ogfHostCtl, 0x0024) }
func (c *WriteClassOfDevice) Len() int               { return 3 }
func (c *WriteClassOfDevice) Marshal(b []byte) error { return marshal(c, b) }

// WriteCurrentIACLAP implements Write Current IAC LAP (0x03|0x003A) [Vol 2, Part E, 7.3.45].
type WriteCurrentIACLAP struct {
	IACLAP [][3]byte
}

func (c *WriteCurrentIACLAP) String() string { return "Write Current IAC LAP (0x03|0x003A)" }
func (c *WriteCurrentIACLAP) OpCode() int    { return opcode(ogfHostCtl, 0x003A) }
func (c *WriteCurrentIACLAP) Len() int       { return 1 + 3*len(c.IACLAP) }

func (c *WriteCurrentIACLAP) Marshal(b []byte) error {
	if len(c.IACLAP) == 0 || len(c.IACLAP) > 0x40 {
		return fmt.Errorf("cmd: invalid IAC count %d", len(c.IACLAP))
	}
	if len(b) < c.Len() {
		return fmt.Errorf("cmd: buffer too small for %T", c)
	}
	b[0] = uint8(len(c.IACLAP))
	for i, lap := range c.IACLAP {
		copy(b[1+3*i:], lap[:])
	}
	return nil
}

// WriteInquiryMode implements Write Inquiry Mode (0x03|0x0045) [Vol 2, Part E, 7.3.50].
type WriteInquiryMode struct {
	InquiryMode uint8
}

func (c *WriteInquiryMode) String() string         { return "Write Inquiry Mode (0x03|0x0045)" }
func (c *WriteInquiryMode) OpCode() int            { return opcode(ogfHostCtl, 0x0045) }
func (c *WriteInquiryMode) Len() int               { return 1 }
func (c *WriteInquiryMode) Marshal(b []byte) error { return marshal(c, b) }

// EIRLength is the size of the extended inquiry response data.
const EIRLength = 240

// WriteExtendedInquiryResponse implements Write Extended Inquiry Response (0x03|0x0052) [Vol 2, Part E, 7.3.56].
type WriteExtendedInquiryResponse struct {
	FECRequired             uint8
	ExtendedInquiryResponse [EIRLength]byte
}

func (c *WriteExtendedInquiryResponse) String() string {
	return "Write Extended Inquiry Response (0x03|0x0052)"
}
func (c *WriteExtendedInquiryResponse) OpCode() int            { return opcode(ogfHostCtl, 0x0052) }
func (c *WriteExtendedInquiryResponse) Len() int               { return 1 + EIRLength }
func (c *WriteExtendedInquiryResponse) Marshal(b []byte) error { return marshal(c, b) }

// ReadSimplePairingMode implements Read Simple Pairing Mode (0x03|0x0055) [Vol 2, Part E, 7.3.58].
type ReadSimplePairingMode struct{}

func (c *ReadSimplePairingMode) String() string         { return "Read Simple Pairing Mode (0x03|0x0055)" }
func (c *ReadSimplePairingMode) OpCode() int            { return opcode(ogfHostCtl, 0x0055) }
func (c *ReadSimplePairingMode) Len() int               { return 0 }
func (c *ReadSimplePairingMode) Marshal(b []byte) error { return nil }

// ReadSimplePairingModeRP returns the return parameter of Read Simple Pairing Mode.
type ReadSimplePairingModeRP struct {
	Status            uint8
	SimplePairingMode uint8
}

func (c *ReadSimplePairingModeRP) Unmarshal(b []byte) error { return unmarshal(c, b) }

// WriteSimplePairingMode implements Write Simple Pairing Mode (0x03|0x0056) [Vol 2, Part E, 7.3.59].
type WriteSimplePairingMode struct {
	SimplePairingMode uint8
}

func (c *WriteSimplePairingMode) String() string         { return "Write Simple Pairing Mode (0x03|0x0056)" }
func (c *WriteSimplePairingMode) OpCode() int            { return opcode(ogfHostCtl, 0x0056) }
func (c *WriteSimplePairingMode) Len() int               { return 1 }
func (c *WriteSimplePairingMode) Marshal(b []byte) error { return marshal(c, b) }
