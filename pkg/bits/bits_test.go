package bits

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBit(t *testing.T) {
	tests := []struct {
		n        uint
		expected byte
	}{
		{1, 0x01}, {5, 0x10}, {8, 0x80}, {0, 0x00},
		{9, 0x00}, // out of range
	}

	for _, tt := range tests {
		if res := Bit(tt.n); res != tt.expected {
			t.Errorf("Bit(%d) = 0x%02X; want 0x%02X", tt.n, res, tt.expected)
		}
	}
}

func TestIsSet(t *testing.T) {
	val := byte(0b10100101)
	if !IsSet(val, 8) {
		t.Error("Bit 8 should be set")
	}
	if IsSet(val, 7) {
		t.Error("Bit 7 should NOT be set")
	}
	if !IsSet(val, 1) {
		t.Error("Bit 1 should be set")
	}
}

func TestGetRange(t *testing.T) {
	tests := []struct {
		name     string
		input    byte
		high     uint
		low      uint
		expected byte
	}{
		{"Bits 4-3 of 0x0C", 0b0000_1100, 4, 3, 3},
		{"Bits 8-5 of 0xC4", 0b1100_0100, 8, 5, 12},
		{"Full Byte", 0xAA, 8, 1, 0xAA},
		{"Inverted range", 0xFF, 1, 4, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if res := GetRange(tt.input, tt.high, tt.low); res != tt.expected {
				t.Errorf("GetRange(0x%02X, %d, %d) = %d; want %d", tt.input, tt.high, tt.low, res, tt.expected)
			}
		})
	}
}

func TestPositions(t *testing.T) {
	tests := []struct {
		input byte
		want  []uint
	}{
		{0x00, nil},
		{0x80, []uint{8}},
		{0b1000_1001, []uint{8, 4, 1}},
		{0xFF, []uint{8, 7, 6, 5, 4, 3, 2, 1}},
	}

	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, Positions(tt.input)); diff != "" {
			t.Errorf("Positions(0x%02X) mismatch (-want +got):\n%s", tt.input, diff)
		}
	}
}
