package iso7816

import (
	"strings"
	"testing"
)

func TestNewInstruction(t *testing.T) {
	tests := []struct {
		name    string
		ins     InsCode
		wantErr bool
		check   func(Instruction) bool
	}{
		{
			name: "Direct transmit (C2)",
			ins:  0xC2,
			check: func(i Instruction) bool {
				return i.Raw == INS_DIRECT_TRANSMIT && !i.IsBERTLV
			},
		},
		{
			name: "Odd INS flags BER-TLV",
			ins:  0xCB,
			check: func(i Instruction) bool {
				return i.IsBERTLV
			},
		},
		{
			name:    "Invalid INS 6X",
			ins:     0x6A,
			wantErr: true,
		},
		{
			name:    "Invalid INS 9X",
			ins:     0x90,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewInstruction(tt.ins)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewInstruction() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !tt.check(got) {
				t.Errorf("NewInstruction(0x%02X) = %+v, check failed", byte(tt.ins), got)
			}
		})
	}
}

func TestMustInstruction_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustInstruction(0x61) should panic")
		}
	}()
	MustInstruction(0x61)
}

func TestInstruction_Verbose(t *testing.T) {
	tests := []struct {
		ins  InsCode
		want string
	}{
		{INS_DIRECT_TRANSMIT, "DIRECT TRANSMIT"},
		{INS_GET_DATA, "GET DATA"},
		{0x2A, "InsCode(0x2A)"},
	}

	for _, tt := range tests {
		if got := MustInstruction(tt.ins).Verbose(); !strings.Contains(got, tt.want) {
			t.Errorf("Verbose(%02X) = %q, want containing %q", byte(tt.ins), got, tt.want)
		}
	}
}
