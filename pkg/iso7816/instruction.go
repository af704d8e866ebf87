package iso7816

import (
	"fmt"

	"github.com/gregLibert/acr-transparent/pkg/bits"
)

// Instruction Byte (INS) Logic according to ISO/IEC 7816-4.
//
// 1. Data Encoding (Bit 1):
//    With the interindustry class, bit 1 set means the data field is BER-TLV.
//
// 2. Reserved Ranges:
//    INS values '6X' and '9X' are invalid: they would be read as SW1 by the
//    transport layer (ISO/IEC 7816-3).
//
// Reader escape commands (CLA 'FF') reuse interindustry INS values with
// vendor meanings. ACS readers map 'C2' (ENVELOPE for cards) to the
// transparent session "direct transmit".

// InsCode is a typed representation of the instruction byte.
type InsCode byte

const (
	INS_GET_RESPONSE    InsCode = 0xC0
	INS_ENVELOPE        InsCode = 0xC2
	INS_GET_DATA        InsCode = 0xCA
	INS_DIRECT_TRANSMIT InsCode = INS_ENVELOPE
)

var insNames = map[InsCode]string{
	INS_GET_RESPONSE: "GET RESPONSE",
	INS_ENVELOPE:     "ENVELOPE / DIRECT TRANSMIT",
	INS_GET_DATA:     "GET DATA",
}

func (i InsCode) String() string {
	if name, ok := insNames[i]; ok {
		return name
	}
	return fmt.Sprintf("InsCode(0x%02X)", byte(i))
}

// Instruction represents the parsed ISO 7816-4 Instruction byte (INS).
type Instruction struct {
	Raw      InsCode
	IsBERTLV bool
}

// NewInstruction creates an Instruction object with validation.
// It rejects '6X' and '9X' values as they are invalid according to ISO 7816-3.
func NewInstruction(ins InsCode) (Instruction, error) {
	highNibble := byte(ins) & 0xF0
	if highNibble == 0x60 || highNibble == 0x90 {
		return Instruction{}, fmt.Errorf("invalid INS 0x%02X: 6X and 9X are reserved", byte(ins))
	}

	return Instruction{
		Raw:      ins,
		IsBERTLV: bits.IsSet(byte(ins), 1),
	}, nil
}

// MustInstruction is NewInstruction for constant codes. It panics on a reserved code.
func MustInstruction(ins InsCode) Instruction {
	i, err := NewInstruction(ins)
	if err != nil {
		panic(err)
	}
	return i
}

// Verbose returns a human-readable description of the instruction.
func (i Instruction) Verbose() string {
	format := "Standard"
	if i.IsBERTLV {
		format = "BER-TLV"
	}
	return fmt.Sprintf("INS: 0x%02X | Command: %s | Format: %s", byte(i.Raw), i.Raw, format)
}
