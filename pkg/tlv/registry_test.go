package tlv

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(
		Entry{Tag: 0x81, Name: "startSession"},
		Entry{Tag: 0x84, Name: "rfOn"},
		Entry{Tag: 0x03, Name: "FWTI", Type: TypeInt},
		Entry{Tag: 0xFF6E, Name: "setParameter", Type: TypeTLV},
		Entry{Tag: 0x5F46, Name: "timer"},
	)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	return r
}

func TestNewRegistry_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
		want    string
	}{
		{"Duplicate tag", []Entry{{Tag: 0x81, Name: "a"}, {Tag: 0x81, Name: "b"}}, "registered twice"},
		{"Duplicate name", []Entry{{Tag: 0x81, Name: "a"}, {Tag: 0x82, Name: "a"}}, "registered twice"},
		{"Missing name", []Entry{{Tag: 0x81}}, "no name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.entries...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("NewRegistry() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestMustRegistry_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustRegistry should panic on duplicate tags")
		}
	}()
	MustRegistry(Entry{Tag: 0x81, Name: "a"}, Entry{Tag: 0x81, Name: "b"})
}

func TestRegistry_Lookups(t *testing.T) {
	r := testRegistry(t)

	e, ok := r.ByName("setParameter")
	if !ok || e.Tag != 0xFF6E || e.Type != TypeTLV {
		t.Errorf("ByName(setParameter) = %+v, %v", e, ok)
	}

	e, ok = r.ByTag(0x03)
	if !ok || e.Name != "FWTI" || e.Type != TypeInt {
		t.Errorf("ByTag(03) = %+v, %v", e, ok)
	}

	if _, ok := r.ByName("rfoff"); ok {
		t.Error("ByName should miss unknown names")
	}
	if got := r.Name(0x99); got != "?" {
		t.Errorf("Name(99) = %q, want ?", got)
	}

	tag, err := r.Resolve("rfOn")
	if err != nil || tag != 0x84 {
		t.Errorf("Resolve(rfOn) = %v, %v", tag, err)
	}
	if _, err := r.Resolve("warpDrive"); !errors.Is(err, ErrUnknownOperation) {
		t.Errorf("Resolve(warpDrive) error = %v, want ErrUnknownOperation", err)
	}
}

func TestRegistry_Widths(t *testing.T) {
	if diff := cmp.Diff([]int{2, 1}, testRegistry(t).Widths()); diff != "" {
		t.Errorf("Mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_BuildByNameMatchesByTag(t *testing.T) {
	r := testRegistry(t)

	byName, err := r.BuildByName("rfOn")
	if err != nil {
		t.Fatalf("BuildByName failed: %v", err)
	}
	byTag, err := r.BuildByTag(0x84)
	if err != nil {
		t.Fatalf("BuildByTag failed: %v", err)
	}
	if diff := cmp.Diff(byName, byTag); diff != "" {
		t.Errorf("Mismatch (-name +tag):\n%s", diff)
	}
	if diff := cmp.Diff([]byte{0x84, 0x00}, byName); diff != "" {
		t.Errorf("Mismatch (-want +got):\n%s", diff)
	}

	withData, _ := r.BuildByName("FWTI", 0x04)
	withTag, _ := r.BuildByTag(0x03, 0x04)
	if diff := cmp.Diff(Hex("03 01 04"), withData); diff != "" {
		t.Errorf("Mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(withData, withTag); diff != "" {
		t.Errorf("Mismatch (-name +tag):\n%s", diff)
	}
}

func TestRegistry_BuildErrors(t *testing.T) {
	r := testRegistry(t)

	if _, err := r.BuildByName("nope"); !errors.Is(err, ErrUnknownOperation) {
		t.Errorf("BuildByName(nope) error = %v", err)
	}
	if _, err := r.BuildByTag(0x99); !errors.Is(err, ErrUnknownOperation) {
		t.Errorf("BuildByTag(99) error = %v", err)
	}
	if _, err := r.BuildByName("timer", make([]byte, 256)...); !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("BuildByName(timer, 256 bytes) error = %v", err)
	}
}

func TestRegistry_Parse(t *testing.T) {
	r := testRegistry(t)

	got, err := r.Parse(Hex("FF6E 03 030104", "5F46 02 1388", "84 00"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	want := Records{
		{Tag: 0xFF6E, Value: "030104"},
		{Tag: 0x5F46, Value: "1388"},
		{Tag: 0x84, Value: ""},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_EntriesAreCopies(t *testing.T) {
	r := testRegistry(t)
	entries := r.Entries()
	entries[0].Name = "mutated"

	if _, ok := r.ByName("startSession"); !ok {
		t.Error("mutating Entries() leaked into the registry")
	}
}

func TestUint(t *testing.T) {
	tests := []struct {
		in   uint64
		want []byte
	}{
		{0, []byte{0x00}},
		{0x04, []byte{0x04}},
		{0x1388, []byte{0x13, 0x88}},
		{0x010000, []byte{0x01, 0x00, 0x00}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, Uint(tt.in)); diff != "" {
			t.Errorf("Uint(%d) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}
