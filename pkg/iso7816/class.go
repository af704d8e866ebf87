package iso7816

import (
	"fmt"

	"github.com/gregLibert/acr-transparent/pkg/bits"
)

// Class Byte (CLA) according to ISO/IEC 7816-4 and PC/SC Part 3.
//
// Bit 8: Proprietary (1) or Interindustry (0).
// Bit 5: Command Chaining (0=Last/Only, 1=More follow).
//
// 1. First Interindustry Class (000x xxxx):
//    - Bits 4-3: Secure Messaging.
//    - Bits 2-1: Logical Channel number (0-3).
//
// 2. Further Interindustry Class (01xx xxxx):
//    - Bit 6: Secure Messaging.
//    - Bits 4-1: Logical Channel number minus 4.
//
// 3. Reader escape (0xFF):
//    ISO 7816 reserves 0xFF for PPS. PC/SC Part 3 reuses it for commands
//    that the reader executes itself and never forwards to a card
//    (GET DATA 'FF CA', the ACR transparent session 'FF C2', ...).

// ReaderEscape is the CLA of every reader-executed pseudo-APDU.
const ReaderEscape byte = 0xFF

// Class represents a decoded CLA byte.
type Class struct {
	Raw            byte
	IsProprietary  bool
	IsReaderEscape bool
	IsChained      bool
	SecureMessaged bool
	Channel        uint8 // Logical channel number (0-19)
}

// NewClass decodes a raw CLA byte.
func NewClass(cla byte) Class {
	c := Class{Raw: cla}

	switch {
	case cla == ReaderEscape:
		c.IsProprietary = true
		c.IsReaderEscape = true
	case bits.IsSet(cla, 8):
		c.IsProprietary = true
	case !bits.IsSet(cla, 7):
		c.IsChained = bits.IsSet(cla, 5)
		c.SecureMessaged = bits.GetRange(cla, 4, 3) != 0
		c.Channel = bits.GetRange(cla, 2, 1)
	default:
		c.IsChained = bits.IsSet(cla, 5)
		c.SecureMessaged = bits.IsSet(cla, 6)
		c.Channel = bits.GetRange(cla, 4, 1) + 4
	}

	return c
}

// Encode returns the byte sent on the wire.
func (c Class) Encode() byte {
	return c.Raw
}

// Verbose returns a one-line description of the class.
func (c Class) Verbose() string {
	switch {
	case c.IsReaderEscape:
		return "Class: Reader escape (0xFF)"
	case c.IsProprietary:
		return fmt.Sprintf("Class: Proprietary (0x%02X)", c.Raw)
	}

	chaining := "last"
	if c.IsChained {
		chaining = "chained"
	}
	return fmt.Sprintf("Class: Interindustry (0x%02X) | Channel %d | SM %t | %s", c.Raw, c.Channel, c.SecureMessaged, chaining)
}
