package tlv

import (
	"encoding/hex"
	"fmt"
	"reflect"
	"strings"

	"github.com/moov-io/bertlv"
)

// BER-TLV MAPPING:
// Card data and reader replies that stay within BER-TLV rules (single-byte
// lengths below 0x80) can be mapped onto structs with `tlv:"TAG"` field tags:
//
//   - []byte fields receive the raw value,
//   - string fields receive the value as lowercase hex,
//   - struct or *struct fields are filled from the nested TLVs,
//   - types implementing Unmarshaler decode the value themselves,
//   - a []bertlv.TLV field named Unknown (or tagged `tlv:",unknown"`)
//     collects the records no field claimed.

// Unmarshaler allows custom types to implement their own TLV parsing logic.
type Unmarshaler interface {
	UnmarshalTLV(data []byte) error
}

// Unmarshal decodes BER-TLV data into target, a non-nil struct pointer.
func Unmarshal(data []byte, target interface{}) error {
	packets, err := bertlv.Decode(data)
	if err != nil {
		return fmt.Errorf("bertlv decode failed: %w", err)
	}
	return UnmarshalFromPackets(packets, target)
}

// UnmarshalFromPackets maps already decoded packets into target.
// A slice field (other than []byte) receives one element per occurrence.
func UnmarshalFromPackets(packets []bertlv.TLV, target interface{}) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("target must be a non-nil pointer")
	}
	v = v.Elem()
	t := v.Type()

	consumed := make(map[int]bool)
	unknown := -1

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("tlv")
		if tag == ",unknown" || f.Name == "Unknown" {
			unknown = i
			continue
		}
		if tag == "" {
			continue
		}

		want := strings.ToUpper(strings.Split(tag, ",")[0])
		for idx, p := range packets {
			if !strings.EqualFold(p.Tag, want) {
				continue
			}
			if err := assign(p, v.Field(i)); err != nil {
				return fmt.Errorf("field %s (tag %s): %w", f.Name, want, err)
			}
			consumed[idx] = true
		}
	}

	if unknown < 0 {
		return nil
	}

	var leftovers []bertlv.TLV
	for idx, p := range packets {
		if !consumed[idx] {
			leftovers = append(leftovers, p)
		}
	}
	if len(leftovers) > 0 && v.Field(unknown).CanSet() {
		v.Field(unknown).Set(reflect.ValueOf(leftovers))
	}
	return nil
}

func assign(p bertlv.TLV, field reflect.Value) error {
	if field.Kind() == reflect.Slice && !isByteSlice(field) {
		elem := reflect.New(field.Type().Elem()).Elem()
		if err := decodeValue(p, elem); err != nil {
			return err
		}
		field.Set(reflect.Append(field, elem))
		return nil
	}
	return decodeValue(p, field)
}

func decodeValue(p bertlv.TLV, field reflect.Value) error {
	if field.CanAddr() {
		if u, ok := field.Addr().Interface().(Unmarshaler); ok {
			return u.UnmarshalTLV(rawValue(p))
		}
	}

	switch {
	case isByteSlice(field):
		field.SetBytes(rawValue(p))
	case field.Kind() == reflect.String:
		field.SetString(hex.EncodeToString(rawValue(p)))
	case field.Kind() == reflect.Struct:
		return nested(p, field.Addr())
	case field.Kind() == reflect.Ptr && field.Type().Elem().Kind() == reflect.Struct:
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		return nested(p, field)
	}
	return nil
}

func nested(p bertlv.TLV, ptr reflect.Value) error {
	if len(p.TLVs) > 0 {
		return UnmarshalFromPackets(p.TLVs, ptr.Interface())
	}
	return Unmarshal(p.Value, ptr.Interface())
}

// rawValue re-encodes constructed packets so callers always see the wire bytes.
func rawValue(p bertlv.TLV) []byte {
	if len(p.TLVs) > 0 {
		if enc, err := bertlv.Encode(p.TLVs); err == nil {
			return enc
		}
	}
	return p.Value
}

// GetValue scans BER-TLV data for a tag and returns its raw payload.
func GetValue(data []byte, tag Tag) ([]byte, error) {
	packets, err := bertlv.Decode(data)
	if err != nil {
		return nil, err
	}

	for _, p := range packets {
		if strings.EqualFold(p.Tag, tag.Hex()) {
			return rawValue(p), nil
		}
	}
	return nil, fmt.Errorf("tag %s not found", tag.Hex())
}

func isByteSlice(v reflect.Value) bool {
	return v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8
}
