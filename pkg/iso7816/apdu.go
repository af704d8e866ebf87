package iso7816

import (
	"fmt"

	"github.com/gregLibert/acr-transparent/pkg/tlv"
)

// APDU (Application Protocol Data Unit) framing for reader escape commands.
//
// COMMAND APDU (C-APDU):
//
//	CLA | INS | P1 | P2 | Lc | Data (Lc bytes)
//
// Escape commands always carry the Lc byte, even for an empty data field,
// and never an Le byte: the reader answers with whatever it has. Only the
// short length form exists here, so Data is limited to 255 bytes.
//
// RESPONSE APDU (R-APDU):
//
//	Data (0..N bytes) | SW1 | SW2

// MaxShortLc is the maximum data length encodable on one Lc byte.
const MaxShortLc = 255

// HeaderLen is the size of CLA INS P1 P2 Lc.
const HeaderLen = 5

// CommandAPDU represents a command sent to the reader.
type CommandAPDU struct {
	Class       Class
	Instruction Instruction
	P1, P2      byte
	Data        []byte
}

// NewCommandAPDU creates a basic command.
func NewCommandAPDU(cla Class, ins Instruction, p1, p2 byte, data []byte) *CommandAPDU {
	return &CommandAPDU{
		Class:       cla,
		Instruction: ins,
		P1:          p1,
		P2:          p2,
		Data:        data,
	}
}

// Bytes encodes the command as CLA INS P1 P2 Lc Data.
func (c *CommandAPDU) Bytes() ([]byte, error) {
	nc := len(c.Data)
	if nc > MaxShortLc {
		return nil, fmt.Errorf("%w: %d data bytes, max %d", tlv.ErrPayloadTooLarge, nc, MaxShortLc)
	}

	buf := make([]byte, 0, HeaderLen+nc)
	buf = append(buf, c.Class.Encode(), byte(c.Instruction.Raw), c.P1, c.P2, byte(nc))
	return append(buf, c.Data...), nil
}

// String returns a readable representation of the command meta-data.
func (c *CommandAPDU) String() string {
	return fmt.Sprintf("%s | P1: %02X, P2: %02X | Lc: %d",
		c.Instruction.Verbose(), c.P1, c.P2, len(c.Data))
}

// ResponseAPDU represents the reply (R-APDU).
type ResponseAPDU struct {
	Data   []byte
	Status StatusWord
}

// NewResponseAPDU builds a response from its data field and status bytes.
func NewResponseAPDU(data []byte, sw1, sw2 byte) *ResponseAPDU {
	return &ResponseAPDU{
		Data:   data,
		Status: NewStatusWord(sw1, sw2),
	}
}

// ParseResponseAPDU parses raw bytes received from the reader.
// The input must contain at least 2 bytes (SW1, SW2).
func ParseResponseAPDU(raw []byte) (*ResponseAPDU, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("response too short: length %d", len(raw))
	}

	indexSW1 := len(raw) - 2
	return NewResponseAPDU(raw[:indexSW1], raw[indexSW1], raw[indexSW1+1]), nil
}

// Bytes encodes the response as Data SW1 SW2.
func (r *ResponseAPDU) Bytes() []byte {
	out := make([]byte, 0, len(r.Data)+2)
	out = append(out, r.Data...)
	return append(out, r.Status.SW1(), r.Status.SW2())
}

// String returns a readable representation of the response.
func (r *ResponseAPDU) String() string {
	return fmt.Sprintf("Data (%d bytes) | Status: %s", len(r.Data), r.Status.Verbose())
}
