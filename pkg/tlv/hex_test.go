package tlv

import (
	"bytes"
	"testing"
)

func TestHex(t *testing.T) {
	tests := []struct {
		name      string
		inputs    []string
		want      []byte
		wantPanic bool
	}{
		{
			name:   "Escape header",
			inputs: []string{"FF C2", "00 00"},
			want:   []byte{0xFF, 0xC2, 0x00, 0x00},
		},
		{
			name:   "Mixed Case",
			inputs: []string{"5f", "46"},
			want:   []byte{0x5F, 0x46},
		},
		{
			name:      "Invalid Hex",
			inputs:    []string{"ZZ"},
			wantPanic: true,
		},
		{
			name:      "Odd Length",
			inputs:    []string{"810"},
			wantPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				r := recover()
				if (r != nil) != tt.wantPanic {
					t.Errorf("Hex() panic = %v, wantPanic %v", r, tt.wantPanic)
				}
			}()

			got := Hex(tt.inputs...)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Hex() = %X, want %X", got, tt.want)
			}
		})
	}
}

func TestMakeSafeASCII(t *testing.T) {
	input := []byte{0x41, 0x43, 0x52, 0x00, 0x7F, 0x31}
	if got := MakeSafeASCII(input); got != "ACR..1" {
		t.Errorf("MakeSafeASCII() = %q, want %q", got, "ACR..1")
	}
}
