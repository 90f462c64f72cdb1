// Package cmd holds the HCI commands and return parameters used by the
// adapter core. Opcodes are OGF<<10 | OCF [Vol 2, Part E, 5.4.1].
package cmd

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Command groups.
const (
	ogfLinkCtl = 0x01
	ogfHostCtl = 0x03
	ogfInfo    = 0x04
)

func opcode(ogf, ocf int) int { return ogf<<10 | ocf }

// OGF returns the group field of an opcode.
func OGF(op int) int { return op >> 10 }

// OCF returns the command field of an opcode.
func OCF(op int) int { return op & 0x03ff }

func marshal(c interface{}, b []byte) error {
	n := binary.Size(c)
	if n < 0 {
		return fmt.Errorf("cmd: can't size %T", c)
	}
	if len(b) < n {
		return fmt.Errorf("cmd: buffer too small for %T (%d < %d)", c, len(b), n)
	}
	buf := bytes.NewBuffer(b[:0])
	return binary.Write(buf, binary.LittleEndian, c)
}

func unmarshal(c interface{}, b []byte) error {
	n := binary.Size(c)
	if len(b) < n {
		return fmt.Errorf("cmd: short return parameters for %T (%d < %d)", c, len(b), n)
	}
	return binary.Read(bytes.NewReader(b), binary.LittleEndian, c)
}

// LAP helpers [Assigned Numbers, Baseband].
const (
	GIAC uint32 = 0x9e8b33
	LIAC uint32 = 0x9e8b00
)

// LAP encodes a 24 bit lower address part little-endian.
func LAP(v uint32) [3]byte {
	return [3]byte{byte(v), byte(v >> 8), byte(v >> 16)}
}

// Class encodes a 24 bit class of device little-endian.
func Class(v uint32) [3]byte {
	return LAP(v)
}

// ClassValue decodes a little-endian class of device.
func ClassValue(b [3]byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}
