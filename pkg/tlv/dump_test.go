package tlv

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDump(t *testing.T) {
	reg := MustRegistry(
		Entry{Tag: 0xC0, Name: "Status", Describe: func(v []byte) []string {
			return []string{fmt.Sprintf("%d bytes", len(v))}
		}},
		Entry{Tag: 0x97, Name: "cardResponse"},
	)
	records := Records{
		{Tag: 0xC0, Value: "009000"},
		{Tag: 0x97, Value: "0400"},
		{Tag: 0x5F51, Value: "3B"},
	}

	got := strings.Split(Dump(records, reg, 14), "\n")
	want := []string{
		"C0   Status        : 009000",
		"     - 3 bytes",
		"97   cardResponse  : 0400",
		"5F51 ?             : 3B",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Mismatch (-want +got):\n%s", diff)
	}
}

func TestDump_NilRegistry(t *testing.T) {
	got := Dump(Records{{Tag: 0x81, Value: ""}}, nil, 4)
	if got != "81   ?   : " {
		t.Errorf("Dump() = %q", got)
	}
}
