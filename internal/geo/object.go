package geo

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
)

// Field is a known member of a JSON object written by EncodeObject.
type Field struct {
	Key   string
	Value any
}

// EncodeObject writes fields in order followed by extra members sorted by
// key. Extra members shadowed by a field are skipped. HTML characters are
// kept literal.
func EncodeObject(fields []Field, extra map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	write := func(key string, value any) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, err := MarshalLiteral(key)
		if err != nil {
			return err
		}
		v, err := MarshalLiteral(value)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	known := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		known[f.Key] = struct{}{}
		if err := write(f.Key, f.Value); err != nil {
			return nil, err
		}
	}
	for _, k := range slices.Sorted(maps.Keys(extra)) {
		if _, ok := known[k]; ok {
			continue
		}
		if err := write(k, extra[k]); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalLiteral encodes v without escaping HTML characters.
func MarshalLiteral(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// DecodeValue decodes an arbitrary member. Numbers keep their literal text.
func DecodeValue(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// decodeMembers splits an object into its raw members. A null object
// yields a nil map.
func decodeMembers(data []byte) (map[string]json.RawMessage, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func isNull(data []byte) bool {
	return string(bytes.TrimSpace(data)) == "null"
}
