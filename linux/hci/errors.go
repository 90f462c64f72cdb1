package hci

import (
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// ErrClosed is returned when the command channel is unavailable.
var ErrClosed = errors.New("hci: channel closed")

// ErrTimeout is returned when the controller does not answer a command in time.
var ErrTimeout = errors.New("hci: no response to command")

// ErrCommand is a controller status code [Vol 2, Part D, 1.3].
type ErrCommand uint8

// Status codes referenced by the adapter core.
const (
	ErrUnknownCommand       ErrCommand = 0x01
	ErrConnID               ErrCommand = 0x02
	ErrHardware             ErrCommand = 0x03
	ErrPageTimeout          ErrCommand = 0x04
	ErrAuth                 ErrCommand = 0x05
	ErrPINMissing           ErrCommand = 0x06
	ErrMemCapExceeded       ErrCommand = 0x07
	ErrConnTimeout          ErrCommand = 0x08
	ErrConnLimit            ErrCommand = 0x09
	ErrSCOConnLimit         ErrCommand = 0x0A
	ErrACLConnExists        ErrCommand = 0x0B
	ErrDisallowed           ErrCommand = 0x0C
	ErrLimitedResources     ErrCommand = 0x0D
	ErrSecurityRejected     ErrCommand = 0x0E
	ErrBDADDRRejected       ErrCommand = 0x0F
	ErrHostTimeout          ErrCommand = 0x10
	ErrUnsupportedParams    ErrCommand = 0x11
	ErrInvalidParams        ErrCommand = 0x12
	ErrRemoteUser           ErrCommand = 0x13
	ErrRemoteLowResources   ErrCommand = 0x14
	ErrRemotePowerOff       ErrCommand = 0x15
	ErrLocalHost            ErrCommand = 0x16
	ErrRepeatedAttempts     ErrCommand = 0x17
	ErrPairingNotAllowed    ErrCommand = 0x18
	ErrUnknownLMPPDU        ErrCommand = 0x19
	ErrUnsupportedRemote    ErrCommand = 0x1A
	ErrUnspecified          ErrCommand = 0x1F
	ErrLMPResponseTimeout   ErrCommand = 0x22
	ErrInstantPassed        ErrCommand = 0x28
	ErrPairingUnitKey       ErrCommand = 0x29
	ErrDifferentTransaction ErrCommand = 0x2A
)

var errName = map[ErrCommand]string{
	ErrUnknownCommand:       "Unknown HCI Command",
	ErrConnID:               "Unknown Connection Identifier",
	ErrHardware:             "Hardware Failure",
	ErrPageTimeout:          "Page Timeout",
	ErrAuth:                 "Authentication Failure",
	ErrPINMissing:           "PIN or Key Missing",
	ErrMemCapExceeded:       "Memory Capacity Exceeded",
	ErrConnTimeout:          "Connection Timeout",
	ErrConnLimit:            "Connection Limit Exceeded",
	ErrSCOConnLimit:         "Synchronous Connection Limit Exceeded",
	ErrACLConnExists:        "ACL Connection Already Exists",
	ErrDisallowed:           "Command Disallowed",
	ErrLimitedResources:     "Connection Rejected due to Limited Resources",
	ErrSecurityRejected:     "Connection Rejected due to Security Reasons",
	ErrBDADDRRejected:       "Connection Rejected due to Unacceptable BD_ADDR",
	ErrHostTimeout:          "Connection Accept Timeout Exceeded",
	ErrUnsupportedParams:    "Unsupported Feature or Parameter Value",
	ErrInvalidParams:        "Invalid HCI Command Parameters",
	ErrRemoteUser:           "Remote User Terminated Connection",
	ErrRemoteLowResources:   "Remote Device Terminated Connection due to Low Resources",
	ErrRemotePowerOff:       "Remote Device Terminated Connection due to Power Off",
	ErrLocalHost:            "Connection Terminated By Local Host",
	ErrRepeatedAttempts:     "Repeated Attempts",
	ErrPairingNotAllowed:    "Pairing Not Allowed",
	ErrUnknownLMPPDU:        "Unknown LMP PDU",
	ErrUnsupportedRemote:    "Unsupported Remote Feature",
	ErrUnspecified:          "Unspecified Error",
	ErrLMPResponseTimeout:   "LMP Response Timeout",
	ErrInstantPassed:        "Instant Passed",
	ErrPairingUnitKey:       "Pairing With Unit Key Not Supported",
	ErrDifferentTransaction: "Different Transaction Collision",
}

func (e ErrCommand) Error() string {
	if s, ok := errName[e]; ok {
		return fmt.Sprintf("hci: %s (0x%02X)", s, uint8(e))
	}
	return fmt.Sprintf("hci: status 0x%02X", uint8(e))
}

// Errno maps the status to the closest errno.
func (e ErrCommand) Errno() unix.Errno {
	switch e {
	case 0x01:
		return unix.EBADRQC
	case 0x02:
		return unix.ENOTCONN
	case 0x03:
		return unix.EIO
	case 0x04:
		return unix.EHOSTDOWN
	case 0x05:
		return unix.EACCES
	case 0x06:
		return unix.EBADE
	case 0x07:
		return unix.ENOMEM
	case 0x08:
		return unix.ETIMEDOUT
	case 0x09:
		return unix.EMLINK
	case 0x0a:
		return unix.EMLINK
	case 0x0b:
		return unix.EALREADY
	case 0x0c:
		return unix.EBUSY
	case 0x0d, 0x0e, 0x0f:
		return unix.ECONNREFUSED
	case 0x10:
		return unix.ETIMEDOUT
	case 0x11, 0x27, 0x29, 0x20:
		return unix.EOPNOTSUPP
	case 0x12:
		return unix.EINVAL
	case 0x13, 0x14, 0x15:
		return unix.ECONNRESET
	case 0x16:
		return unix.ECONNABORTED
	case 0x17:
		return unix.ELOOP
	case 0x18:
		return unix.EACCES
	case 0x1a:
		return unix.EPROTONOSUPPORT
	case 0x1b:
		return unix.ECONNREFUSED
	case 0x19, 0x1e, 0x23, 0x24, 0x25:
		return unix.EPROTO
	default:
		return unix.ENOSYS
	}
}

// Strerror returns the errno text for err if it carries a controller status.
func Strerror(err error) string {
	switch e := errors.Cause(err).(type) {
	case ErrCommand:
		return e.Errno().Error()
	case unix.Errno:
		return e.Error()
	default:
		return err.Error()
	}
}
