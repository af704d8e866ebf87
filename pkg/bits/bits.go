// Package bits holds the small bit helpers used to read reader and EMV flag
// bytes. Bits are numbered 1 (least significant) to 8, as in the ISO and
// EMV tables.
package bits

// Bit returns a byte with only the n-th bit set (1 to 8).
func Bit(n uint) byte {
	if n < 1 || n > 8 {
		return 0
	}
	return 1 << (n - 1)
}

// IsSet checks if the n-th bit is set (1 to 8).
func IsSet(b byte, n uint) bool {
	return b&Bit(n) != 0
}

// GetRange extracts the value from a range of bits (e.g., bits 4 to 3).
// Example: GetRange(0b00001100, 4, 3) returns 3 (0b11)
func GetRange(b byte, high, low uint) byte {
	if high < low || high > 8 || low < 1 {
		return 0
	}

	width := high - low + 1
	mask := byte((1 << width) - 1)

	return (b >> (low - 1)) & mask
}

// Positions lists the set bits of b from bit 8 down to bit 1.
func Positions(b byte) []uint {
	var set []uint
	for n := uint(8); n >= 1; n-- {
		if IsSet(b, n) {
			set = append(set, n)
		}
	}
	return set
}
