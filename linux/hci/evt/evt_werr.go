package evt

import (
	"encoding/binary"
	"fmt"
)

func (e CommandComplete) NumHCICommandPacketsWErr() (uint8, error) {
	return getByte(e, 0, 0)
}

func (e CommandComplete) CommandOpcodeWErr() (uint16, error) {
	return getUint16LE(e, 1, 0xffff)
}

func (e CommandComplete) ReturnParametersWErr() ([]byte, error) {
	if len(e) == 3 {
		return []byte{}, nil
	}
	return getBytes(e, 3, -1)
}

func (e CommandStatus) StatusWErr() (uint8, error) {
	return getByte(e, 0, 0xff)
}

func (e CommandStatus) NumHCICommandPacketsWErr() (uint8, error) {
	return getByte(e, 1, 0)
}

func (e CommandStatus) CommandOpcodeWErr() (uint16, error) {
	return getUint16LE(e, 2, 0xffff)
}

// Inquiry results come as packed per-response records.
const (
	inquiryInfoSize     = 14
	inquiryInfoRSSISize = 14
	extInquiryHeader    = 15
)

func (e InquiryResult) NumResponsesWErr() (uint8, error) {
	return getByte(e, 0, 0)
}

func (e InquiryResult) BDADDRWErr(i int) ([6]byte, error) {
	return getAddr(e, 1+i*inquiryInfoSize)
}

func (e InquiryResult) PageScanRepetitionModeWErr(i int) (uint8, error) {
	return getByte(e, 1+i*inquiryInfoSize+6, 0)
}

func (e InquiryResult) ClassOfDeviceWErr(i int) (uint32, error) {
	return getUint24LE(e, 1+i*inquiryInfoSize+9)
}

func (e InquiryResult) ClockOffsetWErr(i int) (uint16, error) {
	return getUint16LE(e, 1+i*inquiryInfoSize+12, 0)
}

func (e InquiryResultWithRSSI) NumResponsesWErr() (uint8, error) {
	return getByte(e, 0, 0)
}

func (e InquiryResultWithRSSI) BDADDRWErr(i int) ([6]byte, error) {
	return getAddr(e, 1+i*inquiryInfoRSSISize)
}

func (e InquiryResultWithRSSI) PageScanRepetitionModeWErr(i int) (uint8, error) {
	return getByte(e, 1+i*inquiryInfoRSSISize+6, 0)
}

func (e InquiryResultWithRSSI) ClassOfDeviceWErr(i int) (uint32, error) {
	return getUint24LE(e, 1+i*inquiryInfoRSSISize+8)
}

func (e InquiryResultWithRSSI) ClockOffsetWErr(i int) (uint16, error) {
	return getUint16LE(e, 1+i*inquiryInfoRSSISize+11, 0)
}

func (e InquiryResultWithRSSI) RSSIWErr(i int) (int8, error) {
	v, err := getByte(e, 1+i*inquiryInfoRSSISize+13, 0x7f)
	return int8(v), err
}

func (e ExtendedInquiryResult) BDADDRWErr() ([6]byte, error) {
	return getAddr(e, 1)
}

func (e ExtendedInquiryResult) PageScanRepetitionModeWErr() (uint8, error) {
	return getByte(e, 7, 0)
}

func (e ExtendedInquiryResult) ClassOfDeviceWErr() (uint32, error) {
	return getUint24LE(e, 9)
}

func (e ExtendedInquiryResult) ClockOffsetWErr() (uint16, error) {
	return getUint16LE(e, 12, 0)
}

func (e ExtendedInquiryResult) RSSIWErr() (int8, error) {
	v, err := getByte(e, 14, 0x7f)
	return int8(v), err
}

func (e ExtendedInquiryResult) DataWErr() ([]byte, error) {
	if len(e) <= extInquiryHeader {
		return []byte{}, nil
	}
	return getBytes(e, extInquiryHeader, -1)
}

func (e ConnectionComplete) StatusWErr() (uint8, error) {
	return getByte(e, 0, 0xff)
}

func (e ConnectionComplete) ConnectionHandleWErr() (uint16, error) {
	return getUint16LE(e, 1, 0xffff)
}

func (e ConnectionComplete) BDADDRWErr() ([6]byte, error) {
	return getAddr(e, 3)
}

func (e ConnectionComplete) LinkTypeWErr() (uint8, error) {
	return getByte(e, 9, 0xff)
}

func (e DisconnectionComplete) StatusWErr() (uint8, error) {
	return getByte(e, 0, 0xff)
}

func (e DisconnectionComplete) ConnectionHandleWErr() (uint16, error) {
	return getUint16LE(e, 1, 0xffff)
}

func (e DisconnectionComplete) ReasonWErr() (uint8, error) {
	return getByte(e, 3, 0xff)
}

func (e AuthenticationComplete) StatusWErr() (uint8, error) {
	return getByte(e, 0, 0xff)
}

func (e AuthenticationComplete) ConnectionHandleWErr() (uint16, error) {
	return getUint16LE(e, 1, 0xffff)
}

func (e RemoteNameRequestComplete) StatusWErr() (uint8, error) {
	return getByte(e, 0, 0xff)
}

func (e RemoteNameRequestComplete) BDADDRWErr() ([6]byte, error) {
	return getAddr(e, 1)
}

// NameWErr returns the remote name truncated at the first NUL.
func (e RemoteNameRequestComplete) NameWErr() (string, error) {
	if len(e) <= 7 {
		return "", nil
	}
	b, err := getBytes(e, 7, -1)
	if err != nil {
		return "", err
	}
	for i, v := range b {
		if v == 0 {
			return string(b[:i]), nil
		}
	}
	return string(b), nil
}

func (e PINCodeRequest) BDADDRWErr() ([6]byte, error) {
	return getAddr(e, 0)
}

func (e LinkKeyRequest) BDADDRWErr() ([6]byte, error) {
	return getAddr(e, 0)
}

func (e LinkKeyNotification) BDADDRWErr() ([6]byte, error) {
	return getAddr(e, 0)
}

func (e LinkKeyNotification) LinkKeyWErr() ([16]byte, error) {
	var k [16]byte
	b, err := getBytes(e, 6, 16)
	if err != nil {
		return k, err
	}
	copy(k[:], b)
	return k, nil
}

func (e LinkKeyNotification) KeyTypeWErr() (uint8, error) {
	return getByte(e, 22, 0xff)
}

func (e IOCapabilityRequest) BDADDRWErr() ([6]byte, error) {
	return getAddr(e, 0)
}

func (e IOCapabilityResponse) BDADDRWErr() ([6]byte, error) {
	return getAddr(e, 0)
}

func (e IOCapabilityResponse) IOCapabilityWErr() (uint8, error) {
	return getByte(e, 6, 0xff)
}

func (e IOCapabilityResponse) AuthenticationRequirementsWErr() (uint8, error) {
	return getByte(e, 8, 0xff)
}

func (e UserConfirmationRequest) BDADDRWErr() ([6]byte, error) {
	return getAddr(e, 0)
}

func (e UserConfirmationRequest) NumericValueWErr() (uint32, error) {
	return getUint32LE(e, 6)
}

func (e UserPasskeyRequest) BDADDRWErr() ([6]byte, error) {
	return getAddr(e, 0)
}

func (e SimplePairingComplete) StatusWErr() (uint8, error) {
	return getByte(e, 0, 0xff)
}

func (e SimplePairingComplete) BDADDRWErr() ([6]byte, error) {
	return getAddr(e, 1)
}

func (e UserPasskeyNotification) BDADDRWErr() ([6]byte, error) {
	return getAddr(e, 0)
}

func (e UserPasskeyNotification) PasskeyWErr() (uint32, error) {
	return getUint32LE(e, 6)
}

func getAddr(b []byte, i int) ([6]byte, error) {
	var a [6]byte
	bb, err := getBytes(b, i, 6)
	if err != nil {
		return a, err
	}
	copy(a[:], bb)
	return a, nil
}

func getByte(b []byte, i int, def byte) (byte, error) {
	bb, err := getBytes(b, i, 1)
	if err != nil {
		return def, err
	}
	return bb[0], nil
}

// get or default
func getUint16LE(b []byte, i int, def uint16) (uint16, error) {
	bb, err := getBytes(b, i, 2)
	if err != nil {
		return def, err
	}
	return binary.LittleEndian.Uint16(bb), nil
}

func getUint24LE(b []byte, i int) (uint32, error) {
	bb, err := getBytes(b, i, 3)
	if err != nil {
		return 0, err
	}
	return uint32(bb[0]) | uint32(bb[1])<<8 | uint32(bb[2])<<16, nil
}

func getUint32LE(b []byte, i int) (uint32, error) {
	bb, err := getBytes(b, i, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(bb), nil
}

func getBytes(bytes []byte, start int, count int) ([]byte, error) {
	if bytes == nil || start >= len(bytes) {
		return nil, fmt.Errorf("index error")
	}

	if count < 0 {
		return bytes[start:], nil
	}

	end := start + count
	//end is non-inclusive
	if end > len(bytes) {
		return nil, fmt.Errorf("index error")
	}

	return bytes[start:end], nil
}
