package tlv

import (
	"encoding/hex"
	"fmt"
	"sort"
)

// Tag identifies a record. Tags up to 0xFF are written on one byte,
// larger ones on two.
type Tag uint16

// Width returns the number of bytes the tag occupies on the wire.
func (t Tag) Width() int {
	if t > 0xFF {
		return 2
	}
	return 1
}

// Hex returns the uppercase wire form of the tag (2 or 4 digits).
func (t Tag) Hex() string {
	if t.Width() == 2 {
		return fmt.Sprintf("%04X", uint16(t))
	}
	return fmt.Sprintf("%02X", uint16(t))
}

func (t Tag) String() string { return t.Hex() }

// Record is one tag with its value as a hex string. The canonical form is
// uppercase: Parse returns uppercase values and Build uppercases what it
// writes, so a lowercase value comes back uppercased from a round trip.
type Record struct {
	Tag   Tag
	Value string
}

// Bytes decodes the value. Values produced by Parse are always valid hex;
// an invalid value decodes to nil.
func (r Record) Bytes() []byte {
	b, err := hex.DecodeString(r.Value)
	if err != nil {
		return nil
	}
	return b
}

// Records keeps records in stream order. The same tag may appear twice.
type Records []Record

// Get returns the value of the first record carrying tag.
func (rs Records) Get(tag Tag) (string, bool) {
	for _, r := range rs {
		if r.Tag == tag {
			return r.Value, true
		}
	}
	return "", false
}

// Tags lists the tags in order.
func (rs Records) Tags() []Tag {
	tags := make([]Tag, len(rs))
	for i, r := range rs {
		tags[i] = r.Tag
	}
	return tags
}

// TagSet provides the tags a parser may match, in the order they must be tried.
type TagSet interface {
	Candidates() []Tag
}

// TagList is an ad-hoc TagSet.
type TagList []Tag

// Candidates orders the list widest tag first, then by ascending value.
func (l TagList) Candidates() []Tag {
	out := append([]Tag(nil), l...)
	sortCandidates(out)
	return out
}

func sortCandidates(tags []Tag) {
	sort.SliceStable(tags, func(i, j int) bool {
		wi, wj := tags[i].Width(), tags[j].Width()
		if wi != wj {
			return wi > wj
		}
		return tags[i] < tags[j]
	})
}
