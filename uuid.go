package bluez

import "github.com/google/uuid"

// BaseUUID is the Bluetooth base UUID, 00000000-0000-1000-8000-00805F9B34FB.
var BaseUUID = uuid.MustParse("00000000-0000-1000-8000-00805f9b34fb")

// ShortUUID expands a 16 or 32 bit UUID onto the base UUID.
func ShortUUID(v uint32) uuid.UUID {
	u := BaseUUID
	u[0] = byte(v >> 24)
	u[1] = byte(v >> 16)
	u[2] = byte(v >> 8)
	u[3] = byte(v)
	return u
}
