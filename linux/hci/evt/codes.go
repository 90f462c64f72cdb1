// Package evt decodes the HCI events consumed by the adapter core
// [Vol 2, Part E, 7.7]. Each event type is the parameter block that
// follows the event code and length octets.
package evt

// Event codes.
const (
	InquiryCompleteCode           = 0x01
	InquiryResultCode             = 0x02
	ConnectionCompleteCode        = 0x03
	DisconnectionCompleteCode     = 0x05
	AuthenticationCompleteCode    = 0x06
	RemoteNameRequestCompleteCode = 0x07
	CommandCompleteCode           = 0x0E
	CommandStatusCode             = 0x0F
	PINCodeRequestCode            = 0x16
	LinkKeyRequestCode            = 0x17
	LinkKeyNotificationCode       = 0x18
	InquiryResultWithRSSICode     = 0x22
	ExtendedInquiryResultCode     = 0x2F
	IOCapabilityRequestCode       = 0x31
	IOCapabilityResponseCode      = 0x32
	UserConfirmationRequestCode   = 0x33
	UserPasskeyRequestCode        = 0x34
	SimplePairingCompleteCode     = 0x36
	UserPasskeyNotificationCode   = 0x3B
	VendorCode                    = 0xFF
)

type CommandComplete []byte
type CommandStatus []byte
type InquiryComplete []byte
type InquiryResult []byte
type InquiryResultWithRSSI []byte
type ExtendedInquiryResult []byte
type ConnectionComplete []byte
type DisconnectionComplete []byte
type AuthenticationComplete []byte
type RemoteNameRequestComplete []byte
type PINCodeRequest []byte
type LinkKeyRequest []byte
type LinkKeyNotification []byte
type IOCapabilityRequest []byte
type IOCapabilityResponse []byte
type UserConfirmationRequest []byte
type UserPasskeyRequest []byte
type SimplePairingComplete []byte
type UserPasskeyNotification []byte
