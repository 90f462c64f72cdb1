package cmd

// Inquiry implements Inquiry (0x01|0x0001) [Vol 2, Part E, 7.1.1].
type Inquiry struct {
	LAP           [3]byte
	InquiryLength uint8
	NumResponses  uint8
}

func (c *Inquiry) String() string         { return "Inquiry (0x01|0x0001)" }
func (c *Inquiry) OpCode() int            { return opcode(ogfLinkCtl, 0x0001) }
func (c *Inquiry) Len() int               { return 5 }
func (c *Inquiry) Marshal(b []byte) error { return marshal(c, b) }

// InquiryCancel implements Inquiry Cancel (0x01|0x0002) [Vol 2, Part E, 7.1.2].
type InquiryCancel struct{}

func (c *InquiryCancel) String() string         { return "Inquiry Cancel (0x01|0x0002)" }
func (c *InquiryCancel) OpCode() int            { return opcode(ogfLinkCtl, 0x0002) }
func (c *InquiryCancel) Len() int               { return 0 }
func (c *InquiryCancel) Marshal(b []byte) error { return nil }

// PeriodicInquiryMode implements Periodic Inquiry Mode (0x01|0x0003) [Vol 2, Part E, 7.1.3].
type PeriodicInquiryMode struct {
	MaxPeriodLength uint16
	MinPeriodLength uint16
	LAP             [3]byte
	InquiryLength   uint8
	NumResponses    uint8
}

func (c *PeriodicInquiryMode) String() string         { return "Periodic Inquiry Mode (0x01|0x0003)" }
func (c *PeriodicInquiryMode) OpCode() int            { return opcode(ogfLinkCtl, 0x0003) }
func (c *PeriodicInquiryMode) Len() int               { return 9 }
func (c *PeriodicInquiryMode) Marshal(b []byte) error { return marshal(c, b) }

// ExitPeriodicInquiryMode implements Exit Periodic Inquiry Mode (0x01|0x0004) [Vol 2, Part E, 7.1.4].
type ExitPeriodicInquiryMode struct{}

func (c *ExitPeriodicInquiryMode) String() string         { return "Exit Periodic Inquiry Mode (0x01|0x0004)" }
func (c *ExitPeriodicInquiryMode) OpCode() int            { return opcode(ogfLinkCtl, 0x0004) }
func (c *ExitPeriodicInquiryMode) Len() int               { return 0 }
func (c *ExitPeriodicInquiryMode) Marshal(b []byte) error { return nil }

// Disconnect implements Disconnect (0x01|0x0006) [Vol 2, Part E, 7.1.6].
type Disconnect struct {
	ConnectionHandle uint16
	Reason           uint8
}

func (c *Disconnect) String() string         { return "Disconnect (0x01|0x0006)" }
func (c *Disconnect) OpCode() int            { return opcode(ogfLinkCtl, 0x0006) }
func (c *Disconnect) Len() int               { return 3 }
func (c *Disconnect) Marshal(b []byte) error { return marshal(c, b) }

// LinkKeyRequestReply implements Link Key Request Reply (0x01|0x000B) [Vol 2, Part E, 7.1.10].
type LinkKeyRequestReply struct {
	BDADDR  [6]byte
	LinkKey [16]byte
}

func (c *LinkKeyRequestReply) String() string         { return "Link Key Request Reply (0x01|0x000B)" }
func (c *LinkKeyRequestReply) OpCode() int            { return opcode(ogfLinkCtl, 0x000B) }
func (c *LinkKeyRequestReply) Len() int               { return 22 }
func (c *LinkKeyRequestReply) Marshal(b []byte) error { return marshal(c, b) }

// LinkKeyRequestNegativeReply implements Link Key Request Negative Reply (0x01|0x000C) [Vol 2, Part E, 7.1.11].
type LinkKeyRequestNegativeReply struct {
	BDADDR [6]byte
}

func (c *LinkKeyRequestNegativeReply) String() string {
	return "Link Key Request Negative Reply (0x01|0x000C)"
}
func (c *LinkKeyRequestNegativeReply) OpCode() int            { return opcode(ogfLinkCtl, 0x000C) }
func (c *LinkKeyRequestNegativeReply) Len() int               { return 6 }
func (c *LinkKeyRequestNegativeReply) Marshal(b []byte) error { return marshal(c, b) }

// PINCodeRequestReply implements PIN Code Request Reply (0x01|0x000D) [Vol 2, Part E, 7.1.12].
type PINCodeRequestReply struct {
	BDADDR        [6]byte
	PINCodeLength uint8
	PINCode       [16]byte
}

func (c *PINCodeRequestReply) String() string         { return "PIN Code Request Reply (0x01|0x000D)" }
func (c *PINCodeRequestReply) OpCode() int            { return opcode(ogfLinkCtl, 0x000D) }
func (c *PINCodeRequestReply) Len() int               { return 23 }
func (c *PINCodeRequestReply) Marshal(b []byte) error { return marshal(c, b) }

// PINCodeRequestNegativeReply implements PIN Code Request Negative Reply (0x01|0x000E) [Vol 2, Part E, 7.1.13].
type PINCodeRequestNegativeReply struct {
	BDADDR [6]byte
}

func (c *PINCodeRequestNegativeReply) String() string {
	return "PIN Code Request Negative Reply (0x01|0x000E)"
}
func (c *PINCodeRequestNegativeReply) OpCode() int            { return opcode(ogfLinkCtl, 0x000E) }
func (c *PINCodeRequestNegativeReply) Len() int               { return 6 }
func (c *PINCodeRequestNegativeReply) Marshal(b []byte) error { return marshal(c, b) }

// AuthenticationRequested implements Authentication Requested (0x01|0x0011) [Vol 2, Part E, 7.1.15].
type AuthenticationRequested struct {
	ConnectionHandle uint16
}

func (c *AuthenticationRequested) String() string         { return "Authentication Requested (0x01|0x0011)" }
func (c *AuthenticationRequested) OpCode() int            { return opcode(ogfLinkCtl, 0x0011) }
func (c *AuthenticationRequested) Len() int               { return 2 }
func (c *AuthenticationRequested) Marshal(b []byte) error { return marshal(c, b) }

// RemoteNameRequest implements Remote Name Request (0x01|0x0019) [Vol 2, Part E, 7.1.19].
type RemoteNameRequest struct {
	BDADDR                 [6]byte
	PageScanRepetitionMode uint8
	Reserved               uint8
	ClockOffset            uint16
}

func (c *RemoteNameRequest) String() string         { return "Remote Name Request (0x01|0x0019)" }
func (c *RemoteNameRequest) OpCode() int            { return opcode(ogfLinkCtl, 0x0019) }
func (c *RemoteNameRequest) Len() int               { return 10 }
func (c *RemoteNameRequest) Marshal(b []byte) error { return marshal(c, b) }

// RemoteNameRequestCancel implements Remote Name Request Cancel (0x01|0x001A) [Vol 2, Part E, 7.1.20].
type RemoteNameRequestCancel struct {
	BDADDR [6]byte
}

func (c *RemoteNameRequestCancel) String() string         { return "Remote Name Request Cancel (0x01|0x001A)" }
func (c *RemoteNameRequestCancel) OpCode() int            { return opcode(ogfLinkCtl, 0x001A) }
func (c *RemoteNameRequestCancel) Len() int               { return 6 }
func (c *RemoteNameRequestCancel) Marshal(b []byte) error { return marshal(c, b) }

// IOCapabilityRequestReply implements IO Capability Request Reply (0x01|0x002B) [Vol 2, Part E, 7.1.29].
type IOCapabilityRequestReply struct {
	BDADDR                     [6]byte
	IOCapability               uint8
	OOBDataPresent             uint8
	AuthenticationRequirements uint8
}

func (c *IOCapabilityRequestReply) String() string {
	return "IO Capability Request Reply (0x01|0x002B)"
}
func (c *IOCapabilityRequestReply) OpCode() int            { return opcode(ogfLinkCtl, 0x002B) }
func (c *IOCapabilityRequestReply) Len() int               { return 9 }
func (c *IOCapabilityRequestReply) Marshal(b []byte) error { return marshal(c, b) }

// UserConfirmationRequestReply implements User Confirmation Request Reply (0x01|0x002C) [Vol 2, Part E, 7.1.30].
type UserConfirmationRequestReply struct {
	BDADDR [6]byte
}

func (c *UserConfirmationRequestReply) String() string {
	return "User Confirmation Request Reply (0x01|0x002C)"
}
func (c *UserConfirmationRequestReply) OpCode() int            { return opcode(ogfLinkCtl, 0x002C) }
func (c *UserConfirmationRequestReply) Len() int               { return 6 }
func (c *UserConfirmationRequestReply) Marshal(b []byte) error { return marshal(c, b) }

// UserConfirmationRequestNegativeReply implements User Confirmation Request Negative Reply (0x01|0x002D) [Vol 2, Part E, 7.1.31].
type UserConfirmationRequestNegativeReply struct {
	BDADDR [6]byte
}

func (c *UserConfirmationRequestNegativeReply) String() string {
	return "User Confirmation Request Negative Reply (0x01|0x002D)"
}
func (c *UserConfirmationRequestNegativeReply) OpCode() int { return opcode(ogfLinkCtl, 0x002D) }
func (c *UserConfirmationRequestNegativeReply) Len() int    { return 6 }
func (c *UserConfirmationRequestNegativeReply) Marshal(b []byte) error {
	return marshal(c, b)
}

// UserPasskeyRequestReply implements User Passkey Request Reply (0x01|0x002E) [Vol 2, Part E, 7.1.32].
type UserPasskeyRequestReply struct {
	BDADDR       [6]byte
	NumericValue uint32
}

func (c *UserPasskeyRequestReply) String() string         { return "User Passkey Request Reply (0x01|0x002E)" }
func (c *UserPasskeyRequestReply) OpCode() int            { return opcode(ogfLinkCtl, 0x002E) }
func (c *UserPasskeyRequestReply) Len() int               { return 10 }
func (c *UserPasskeyRequestReply) Marshal(b []byte) error { return marshal(c, b) }

// UserPasskeyRequestNegativeReply implements User Passkey Request Negative Reply (0x01|0x002F) [Vol 2, Part E, 7.1.33].
type UserPasskeyRequestNegativeReply struct {
	BDADDR [6]byte
}

func (c *UserPasskeyRequestNegativeReply) String() string {
	return "User Passkey Request Negative Reply (0x01|0x002F)"
}
func (c *UserPasskeyRequestNegativeReply) OpCode() int            { return opcode(ogfLinkCtl, 0x002F) }
func (c *UserPasskeyRequestNegativeReply) Len() int               { return 6 }
func (c *UserPasskeyRequestNegativeReply) Marshal(b []byte) error { return marshal(c, b) }

// IOCapabilityRequestNegativeReply implements IO Capability Request Negative Reply (0x01|0x0034) [Vol 2, Part E, 7.1.36].
type IOCapabilityRequestNegativeReply struct {
	BDADDR [6]byte
	Reason uint8
}

func (c *IOCapabilityRequestNegativeReply) String() string {
	return "IO Capability Request Negative Reply (0x01|0x0034)"
}
func (c *IOCapabilityRequestNegativeReply) OpCode() int            { return opcode(ogfLinkCtl, 0x0034) }
func (c *IOCapabilityRequestNegativeReply) Len() int               { return 7 }
func (c *IOCapabilityRequestNegativeReply) Marshal(b []byte) error { return marshal(c, b) }

// PeriodicInquiryModeRP returns the return parameter of Periodic Inquiry Mode.
type PeriodicInquiryModeRP struct {
	Status uint8
}

func (c *PeriodicInquiryModeRP) Unmarshal(b []byte) error { return unmarshal(c, b) }

// ReplyRP is the return parameter of the request reply commands that echo BD_ADDR.
type ReplyRP struct {
	Status uint8
	BDADDR [6]byte
}

func (c *ReplyRP) Unmarshal(b []byte) error { return unmarshal(c, b) }
