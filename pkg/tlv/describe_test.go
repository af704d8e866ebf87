package tlv

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/moov-io/bertlv"
)

type mockReply struct {
	Status  []byte `tlv:"C0"`
	Label   []byte `tlv:"50" fmt:"ascii"`
	Timer   []byte `tlv:"5F46" fmt:"int"`
	Raw     []byte
	Empty   []byte `tlv:"97"`
	Unknown []bertlv.TLV
	Ignored int
}

func TestWriteStructFields(t *testing.T) {
	mock := mockReply{
		Status: []byte{0x00, 0x90, 0x00},
		Label:  []byte{'A', 'C', 'R', 0x00},
		Timer:  []byte{0x13, 0x88},
		Raw:    []byte{0xCA, 0xFE},
		Unknown: []bertlv.TLV{
			{Tag: "9f01", Value: []byte{0x12, 0x34}},
		},
	}

	tests := []struct {
		name     string
		input    interface{}
		existing string
		want     []string
	}{
		{
			name:  "Pointer",
			input: &mock,
			want: []string{
				"    - R.Status (C0): 009000",
				`    - R.Label (50): 41435200 ("ACR.")`,
				"    - R.Timer (5F46): 1388 (Dec: 5000)",
				"    - R.Raw: CAFE",
				"    - R.Unknown Tag 9F01: 1234",
			},
		},
		{
			name:     "Value appended after existing text",
			input:    mockReply{Raw: []byte{0x01}},
			existing: "header",
			want:     []string{"header", "    - R.Raw: 01"},
		},
		{
			name:  "Nil pointer",
			input: (*mockReply)(nil),
			want:  []string{""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sb strings.Builder
			sb.WriteString(tt.existing)
			WriteStructFields(&sb, "R", tt.input)

			if diff := cmp.Diff(tt.want, strings.Split(sb.String(), "\n")); diff != "" {
				t.Errorf("Mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
