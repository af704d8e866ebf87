// Package tlv encodes and decodes the flat Tag-Length-Value streams used by
// reader escape commands, and maps BER-TLV card data onto Go structures.
//
// STREAM FORMAT:
// A stream is a sequence of records written as hex digit pairs:
//
//	TAG (1 or 2 bytes) | LEN (1 byte) | VALUE (LEN bytes)
//
// Nothing in the stream tells a 1-byte tag from a 2-byte one. The parser
// therefore tries the tags of a TagSet at every position, widest tag first,
// then in ascending numeric order, and keeps the first one that matches.
// With tags 5F and 5F46 both registered, "5F4601AA" reads as tag 5F46.
//
// The length byte is always a single byte: values are limited to 255 bytes,
// unlike BER-TLV where lengths above 127 use extra length bytes.
package tlv

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// contextBytes is how many bytes are shown either side of a parse failure.
const contextBytes = 4

// Parse decodes a raw byte stream against the given tag set.
func Parse(data []byte, set TagSet) (Records, error) {
	return ParseHex(hex.EncodeToString(data), set)
}

// ParseHex decodes a hex stream against the given tag set. Spaces are ignored.
// The whole stream must be consumed; any malformed record aborts the parse.
func ParseHex(stream string, set TagSet) (Records, error) {
	s := strings.ToUpper(strings.ReplaceAll(stream, " ", ""))
	candidates := set.Candidates()

	var out Records
	pos := 0
	for pos < len(s) {
		tag, ok := matchTag(s[pos:], candidates)
		if !ok {
			return nil, &ParseError{Err: ErrUnknownTag, Offset: pos / 2, Context: window(s, pos)}
		}

		lenPos := pos + 2*tag.Width()
		if lenPos+2 > len(s) {
			return nil, &ParseError{Err: ErrTruncated, Offset: lenPos / 2, Tag: tag, HasTag: true, Context: window(s, pos)}
		}

		n, err := strconv.ParseUint(s[lenPos:lenPos+2], 16, 8)
		if err != nil {
			return nil, &ParseError{Err: ErrBadLength, Offset: lenPos / 2, Tag: tag, HasTag: true, Context: window(s, lenPos)}
		}

		valPos := lenPos + 2
		end := valPos + 2*int(n)
		if end > len(s) {
			return nil, &ParseError{Err: ErrTruncated, Offset: lenPos / 2, Tag: tag, HasTag: true, Length: int(n), Context: window(s, lenPos)}
		}

		value := s[valPos:end]
		if !isHex(value) {
			return nil, &ParseError{Err: ErrBadValue, Offset: valPos / 2, Tag: tag, HasTag: true, Length: int(n), Context: window(s, valPos)}
		}

		out = append(out, Record{Tag: tag, Value: value})
		pos = end
	}

	return out, nil
}

// Build renders records in order. It stops at the first record with an
// empty value and returns what was written so far; callers use this to
// leave trailing optional fields out.
func Build(records Records) (string, error) {
	var sb strings.Builder
	for _, r := range records {
		if r.Value == "" {
			break
		}
		rec, err := EncodeRecord(r.Tag, r.Value)
		if err != nil {
			return "", err
		}
		sb.WriteString(rec)
	}
	return sb.String(), nil
}

// EncodeRecord renders a single record. An empty value gives "TAG00".
func EncodeRecord(tag Tag, value string) (string, error) {
	if len(value)%2 != 0 {
		return "", &BuildError{Err: ErrOddLength, Tag: tag, Length: len(value)}
	}
	if !isHex(value) {
		return "", &BuildError{Err: ErrBadValue, Tag: tag, Length: len(value)}
	}

	n := len(value) / 2
	if n > 0xFF {
		return "", &BuildError{Err: ErrPayloadTooLarge, Tag: tag, Length: n}
	}

	return fmt.Sprintf("%s%02X%s", tag.Hex(), n, strings.ToUpper(value)), nil
}

// EncodeRecordBytes is EncodeRecord for raw values, returning raw bytes.
func EncodeRecordBytes(tag Tag, value []byte) ([]byte, error) {
	rec, err := EncodeRecord(tag, hex.EncodeToString(value))
	if err != nil {
		return nil, err
	}
	return hex.DecodeString(rec)
}

func matchTag(s string, candidates []Tag) (Tag, bool) {
	for _, t := range candidates {
		if strings.HasPrefix(s, t.Hex()) {
			return t, true
		}
	}
	return 0, false
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}

// window shows the bytes around pos as "BEFORE|AFTER".
func window(s string, pos int) string {
	lo := max(0, pos-2*contextBytes)
	hi := min(len(s), pos+2*contextBytes)
	return s[lo:pos] + "|" + s[pos:hi]
}
