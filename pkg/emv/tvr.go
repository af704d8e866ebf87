package emv

import (
	"fmt"

	"github.com/gregLibert/acr-transparent/pkg/bits"
)

// TERMINAL VERIFICATION RESULTS (Tag '95'):
// Five bytes of flags set by the terminal while it processes a transaction.
// A set bit records a condition (a failed check, an exceeded limit...).
// Bit tables follow EMV Book 3, Annex C5. Empty names are RFU.

// TVRLength is the size of a complete TVR value.
const TVRLength = 5

var tvrBits = [TVRLength][8]string{
	// Byte 1: offline data authentication
	{
		7: "Offline data authentication was not performed",
		6: "SDA failed",
		5: "ICC data missing",
		4: "Card appears on terminal exception file",
		3: "DDA failed",
		2: "CDA failed",
		1: "SDA selected",
	},
	// Byte 2: processing restrictions
	{
		7: "ICC and terminal have different application versions",
		6: "Expired application",
		5: "Application not yet effective",
		4: "Requested service not allowed for card product",
		3: "New card",
	},
	// Byte 3: cardholder verification
	{
		7: "Cardholder verification was not successful",
		6: "Unrecognised CVM",
		5: "PIN Try Limit exceeded",
		4: "PIN entry required and PIN pad not present or not working",
		3: "PIN entry required, PIN pad present, but PIN was not entered",
		2: "Online PIN entered",
	},
	// Byte 4: terminal risk management
	{
		7: "Transaction exceeds floor limit",
		6: "Lower consecutive offline limit exceeded",
		5: "Upper consecutive offline limit exceeded",
		4: "Transaction selected randomly for online processing",
		3: "Merchant forced transaction online",
	},
	// Byte 5: issuer authentication and scripts
	{
		7: "Default TDOL used",
		6: "Issuer authentication failed",
		5: "Script processing failed before final GENERATE AC",
		4: "Script processing failed after final GENERATE AC",
	},
}

// TVRCondition names one set bit of a TVR.
func TVRCondition(byteIndex int, bit uint) string {
	if byteIndex < 1 || byteIndex > TVRLength || bit < 1 || bit > 8 {
		return ""
	}
	return tvrBits[byteIndex-1][bit-1]
}

// DescribeTVR lists every set condition of a TVR value, byte 1 first and
// bit 8 first within a byte. Bytes past the fifth are ignored; a short value
// is decoded as far as it goes.
func DescribeTVR(value []byte) []string {
	var lines []string

	for i, b := range value {
		if i == TVRLength {
			break
		}
		for _, n := range bits.Positions(b) {
			name := TVRCondition(i+1, n)
			if name == "" {
				name = "RFU"
			}
			lines = append(lines, fmt.Sprintf("B%d b%d: %s", i+1, n, name))
		}
	}

	return lines
}
