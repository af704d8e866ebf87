package iso7816

import (
	"fmt"
)

// Status Words:
//
// Every response ends with SW1 SW2. This layer only splits them off the
// data and combines them; deciding whether a value is acceptable is left to
// the caller. The names below cover the values ACS readers return to
// escape commands, plus the generic ISO 7816-4 categories as a fallback
// for Verbose.

// StatusWord represents the two-byte status response (SW1-SW2).
type StatusWord uint16

// NewStatusWord creates a StatusWord instance from two separate bytes.
func NewStatusWord(sw1, sw2 byte) StatusWord {
	return StatusWord(uint16(sw1)<<8 | uint16(sw2))
}

// SW1 returns the first byte (high byte) of the status word.
func (sw StatusWord) SW1() byte {
	return byte(sw >> 8)
}

// SW2 returns the second byte (low byte) of the status word.
func (sw StatusWord) SW2() byte {
	return byte(sw)
}

// IsSuccess reports whether the status is exactly 9000.
func (sw StatusWord) IsSuccess() bool {
	return sw == SW_NO_ERROR
}

// IsWarning returns true if the status indicates a warning (62XX or 63XX).
func (sw StatusWord) IsWarning() bool {
	sw1 := sw.SW1()
	return sw1 == 0x62 || sw1 == 0x63
}

// IsError returns true if the status indicates an execution or checking error (64XX to 6FXX).
func (sw StatusWord) IsError() bool {
	sw1 := sw.SW1()
	return sw1 >= 0x64 && sw1 <= 0x6F
}

func (sw StatusWord) String() string {
	if name, ok := swNames[sw]; ok {
		return name
	}
	return fmt.Sprintf("StatusWord(0x%04X)", uint16(sw))
}

// Verbose returns "[XXXX] description".
func (sw StatusWord) Verbose() string {
	if name, ok := swNames[sw]; ok {
		return fmt.Sprintf("[%04X] %s", uint16(sw), name)
	}
	return fmt.Sprintf("[%04X] %s", uint16(sw), sw.genericCategoryDescription())
}

// genericCategoryDescription provides a fallback description based on SW1.
func (sw StatusWord) genericCategoryDescription() string {
	switch sw.SW1() {
	case 0x61:
		return fmt.Sprintf("Process completed, %d bytes available", sw.SW2())
	case 0x62:
		return "Warning: NV memory unchanged"
	case 0x63:
		return "Warning: NV memory changed"
	case 0x64:
		return "Execution Error: NV memory unchanged"
	case 0x65:
		return "Execution Error: NV memory changed"
	case 0x66:
		return "Execution Error: Security issue"
	case 0x68:
		return "Checking Error: Function not supported"
	case 0x69:
		return "Checking Error: Command not allowed"
	case 0x6A:
		return "Checking Error: Wrong parameters"
	case 0x6C:
		return fmt.Sprintf("Wrong length, correct Le is %d", sw.SW2())
	default:
		return "Unknown Status"
	}
}

// Status Word codes met in reader escape exchanges.
const (
	SW_NO_ERROR StatusWord = 0x9000

	SW_WARN_END_OF_DATA      StatusWord = 0x6282
	SW_OPERATION_FAILED      StatusWord = 0x6300
	SW_ERR_EXEC_NO_INFO      StatusWord = 0x6400
	SW_ERR_NO_CARD_RESPONSE  StatusWord = 0x6401
	SW_ERR_WRONG_LENGTH      StatusWord = 0x6700
	SW_ERR_CMD_NOT_ALLOWED   StatusWord = 0x6986
	SW_ERR_WRONG_DATA        StatusWord = 0x6A80
	SW_ERR_FUNC_NOT_SUPP     StatusWord = 0x6A81
	SW_ERR_WRONG_P1P2        StatusWord = 0x6B00
	SW_ERR_INS_INVALID       StatusWord = 0x6D00
	SW_ERR_CLA_NOT_SUPPORTED StatusWord = 0x6E00
	SW_ERR_UNKNOWN           StatusWord = 0x6F00
)

var swNames = map[StatusWord]string{
	SW_NO_ERROR:              "SW_NO_ERROR",
	SW_WARN_END_OF_DATA:      "SW_WARN_END_OF_DATA",
	SW_OPERATION_FAILED:      "SW_OPERATION_FAILED",
	SW_ERR_EXEC_NO_INFO:      "SW_ERR_EXEC_NO_INFO",
	SW_ERR_NO_CARD_RESPONSE:  "SW_ERR_NO_CARD_RESPONSE",
	SW_ERR_WRONG_LENGTH:      "SW_ERR_WRONG_LENGTH",
	SW_ERR_CMD_NOT_ALLOWED:   "SW_ERR_CMD_NOT_ALLOWED",
	SW_ERR_WRONG_DATA:        "SW_ERR_WRONG_DATA",
	SW_ERR_FUNC_NOT_SUPP:     "SW_ERR_FUNC_NOT_SUPP",
	SW_ERR_WRONG_P1P2:        "SW_ERR_WRONG_P1P2",
	SW_ERR_INS_INVALID:       "SW_ERR_INS_INVALID",
	SW_ERR_CLA_NOT_SUPPORTED: "SW_ERR_CLA_NOT_SUPPORTED",
	SW_ERR_UNKNOWN:           "SW_ERR_UNKNOWN",
}
