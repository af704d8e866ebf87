package iso7816

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gregLibert/acr-transparent/pkg/tlv"
)

func TestCommandAPDU_Encoding(t *testing.T) {
	escape := NewClass(ReaderEscape)
	envelope := MustInstruction(INS_DIRECT_TRANSMIT)

	tests := []struct {
		name     string
		cmd      *CommandAPDU
		expected []byte
	}{
		{
			name:     "Start session",
			cmd:      NewCommandAPDU(escape, envelope, 0x00, 0x00, []byte{0x81, 0x00}),
			expected: tlv.Hex("FF C2 00 00 02 81 00"),
		},
		{
			name:     "Empty data keeps Lc",
			cmd:      NewCommandAPDU(escape, envelope, 0x00, 0x00, nil),
			expected: tlv.Hex("FF C2 00 00 00"),
		},
		{
			name:     "Transparent exchange",
			cmd:      NewCommandAPDU(escape, envelope, 0x00, 0x01, tlv.Hex("95 02 26 00")),
			expected: tlv.Hex("FF C2 00 01 04 95 02 26 00"),
		},
		{
			name:     "Interindustry class",
			cmd:      NewCommandAPDU(NewClass(0x00), MustInstruction(INS_GET_DATA), 0x9F, 0x36, nil),
			expected: tlv.Hex("00 CA 9F 36 00"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cmd.Bytes()
			if err != nil {
				t.Fatalf("Encoding failed: %v", err)
			}
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("Mismatch (-want +got):\n%s", diff)
			}
			if len(got) != HeaderLen+len(tt.cmd.Data) {
				t.Errorf("Wire length: got %d, want %d", len(got), HeaderLen+len(tt.cmd.Data))
			}
		})
	}
}

func TestCommandAPDU_MaxData(t *testing.T) {
	escape := NewClass(ReaderEscape)
	envelope := MustInstruction(INS_DIRECT_TRANSMIT)

	ok := NewCommandAPDU(escape, envelope, 0x00, 0x01, make([]byte, MaxShortLc))
	raw, err := ok.Bytes()
	if err != nil {
		t.Fatalf("255 data bytes should encode: %v", err)
	}
	if raw[4] != 0xFF {
		t.Errorf("Lc: got %02X, want FF", raw[4])
	}

	tooLarge := NewCommandAPDU(escape, envelope, 0x00, 0x01, make([]byte, MaxShortLc+1))
	if _, err := tooLarge.Bytes(); !errors.Is(err, tlv.ErrPayloadTooLarge) {
		t.Errorf("Expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestNewResponseAPDU(t *testing.T) {
	resp := NewResponseAPDU(nil, 0x90, 0x00)
	if resp.Status != 0x9000 {
		t.Errorf("Status: got %04X, want 9000", uint16(resp.Status))
	}
	if !resp.Status.IsSuccess() {
		t.Error("9000 should be success")
	}
	if diff := cmp.Diff([]byte{0x90, 0x00}, resp.Bytes()); diff != "" {
		t.Errorf("Bytes mismatch (-want +got):\n%s", diff)
	}
}

func TestParseResponseAPDU(t *testing.T) {
	resp, err := ParseResponseAPDU(tlv.Hex("C0 03 00 90 00 90 00"))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if diff := cmp.Diff(tlv.Hex("C0 03 00 90 00"), resp.Data); diff != "" {
		t.Errorf("Data mismatch (-want +got):\n%s", diff)
	}
	if resp.Status != SW_NO_ERROR {
		t.Errorf("Wrong status: got %04X, want %04X", uint16(resp.Status), uint16(SW_NO_ERROR))
	}
}

func TestParseResponseAPDU_StatusOnly(t *testing.T) {
	resp, err := ParseResponseAPDU([]byte{0x6A, 0x81})
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(resp.Data) != 0 {
		t.Errorf("Expected no data, got % X", resp.Data)
	}
	if resp.Status != SW_ERR_FUNC_NOT_SUPP {
		t.Errorf("Wrong status: got %s", resp.Status.Verbose())
	}
}

func TestParseResponseAPDU_TooShort(t *testing.T) {
	for _, raw := range [][]byte{nil, {0x90}} {
		if _, err := ParseResponseAPDU(raw); err == nil {
			t.Errorf("Expected error for % X, got nil", raw)
		}
	}
}
