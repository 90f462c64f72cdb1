package hci

import "time"

// HCI Packet types
const (
	pktTypeCommand uint8 = 0x01
	pktTypeACLData uint8 = 0x02
	pktTypeSCOData uint8 = 0x03
	pktTypeEvent   uint8 = 0x04
	pktTypeVendor  uint8 = 0xFF
)

const (
	maxCredits        = 16
	cmdBufSize        = 4 + 255
	creditTimeout     = 5 * time.Second
	defaultCmdTimeout = 3 * time.Second
	rxQueueSize       = 64
)
