package tlv

import (
	"encoding/hex"
	"fmt"
)

// Type is the declared kind of a registry entry's value.
type Type int

const (
	TypeBytes Type = iota
	TypeInt
	// TypeTLV marks a value that is itself a TLV stream. Parse does not
	// descend into it; see the caller's decoder for the nested layout.
	TypeTLV
)

func (t Type) String() string {
	switch t {
	case TypeBytes:
		return "bytes"
	case TypeInt:
		return "int"
	case TypeTLV:
		return "TLV"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Entry names a tag.
type Entry struct {
	Tag  Tag
	Name string
	Type Type

	// Describe, when set, expands a value into human-readable lines for Dump.
	Describe func(value []byte) []string
}

// Registry is an immutable tag table. Build one per command set and pass it
// to the functions that need it.
type Registry struct {
	entries    []Entry
	byTag      map[Tag]int
	byName     map[string]int
	candidates []Tag
}

// NewRegistry validates and indexes entries. Tags and names must be unique.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{
		entries: append([]Entry(nil), entries...),
		byTag:   make(map[Tag]int, len(entries)),
		byName:  make(map[string]int, len(entries)),
	}

	for i, e := range r.entries {
		if e.Name == "" {
			return nil, fmt.Errorf("entry %s has no name", e.Tag.Hex())
		}
		if j, dup := r.byTag[e.Tag]; dup {
			return nil, fmt.Errorf("tag %s registered twice (%s, %s)", e.Tag.Hex(), r.entries[j].Name, e.Name)
		}
		if _, dup := r.byName[e.Name]; dup {
			return nil, fmt.Errorf("name %q registered twice", e.Name)
		}
		r.byTag[e.Tag] = i
		r.byName[e.Name] = i
		r.candidates = append(r.candidates, e.Tag)
	}

	sortCandidates(r.candidates)
	return r, nil
}

// MustRegistry is NewRegistry for package-level tables. It panics on error.
func MustRegistry(entries ...Entry) *Registry {
	r, err := NewRegistry(entries...)
	if err != nil {
		panic(fmt.Sprintf("invalid registry: %v", err))
	}
	return r
}

// ByName looks an entry up by its semantic name.
func (r *Registry) ByName(name string) (Entry, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Entry{}, false
	}
	return r.entries[i], true
}

// ByTag looks an entry up by tag.
func (r *Registry) ByTag(tag Tag) (Entry, bool) {
	i, ok := r.byTag[tag]
	if !ok {
		return Entry{}, false
	}
	return r.entries[i], true
}

// Resolve maps a name to its tag.
func (r *Registry) Resolve(name string) (Tag, error) {
	e, ok := r.ByName(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownOperation, name)
	}
	return e.Tag, nil
}

// Name returns the semantic name of tag, or "?" when it is not registered.
func (r *Registry) Name(tag Tag) string {
	if e, ok := r.ByTag(tag); ok {
		return e.Name
	}
	return "?"
}

// Entries returns the entries in registration order.
func (r *Registry) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// Candidates implements TagSet.
func (r *Registry) Candidates() []Tag {
	return append([]Tag(nil), r.candidates...)
}

// Widths lists the distinct tag widths in use, widest first.
func (r *Registry) Widths() []int {
	var widths []int
	for _, t := range r.candidates {
		w := t.Width()
		if len(widths) == 0 || widths[len(widths)-1] != w {
			widths = append(widths, w)
		}
	}
	return widths
}

// BuildByName encodes one record for the named entry and returns raw bytes.
func (r *Registry) BuildByName(name string, data ...byte) ([]byte, error) {
	e, ok := r.ByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, name)
	}
	return EncodeRecordBytes(e.Tag, data)
}

// BuildByTag encodes one record for a registered tag and returns raw bytes.
func (r *Registry) BuildByTag(tag Tag, data ...byte) ([]byte, error) {
	e, ok := r.ByTag(tag)
	if !ok {
		return nil, fmt.Errorf("%w: tag %s", ErrUnknownOperation, tag.Hex())
	}
	return EncodeRecordBytes(e.Tag, data)
}

// Parse decodes response data against this registry.
func (r *Registry) Parse(data []byte) (Records, error) {
	return ParseHex(hex.EncodeToString(data), r)
}
