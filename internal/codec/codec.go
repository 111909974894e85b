// Package codec packs a list of JSON records into a columnar form before the
// list is encrypted.
//
// Every distinct field name across the records gets an integer index in
// first-seen order, and each record becomes a positional array:
//
//	[{"id":1,"title":"a"},{"id":2,"note":"b"}]
//
// packs to
//
//	{"keys":{"id":0,"title":1,"note":2},"dataArray":[[1,"a"],[2,null,"b"]]}
//
// A position that is missing or null in a row is omitted from the unpacked
// record.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Packed is the serialized columnar form.
type Packed struct {
	Keys      map[string]int      `json:"keys"`
	DataArray [][]json.RawMessage `json:"dataArray"`
}

// PackRecords packs JSON objects, preserving each record's field order when
// assigning indexes.
func PackRecords(records []json.RawMessage) (*Packed, error) {
	p := &Packed{
		Keys:      make(map[string]int),
		DataArray: make([][]json.RawMessage, 0, len(records)),
	}

	for i, rec := range records {
		fields, err := orderedFields(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		row := make([]json.RawMessage, 0, len(fields))
		for _, f := range fields {
			idx, ok := p.Keys[f.name]
			if !ok {
				idx = len(p.Keys)
				p.Keys[f.name] = idx
			}
			for len(row) <= idx {
				row = append(row, nil)
			}
			row[idx] = f.value
		}
		p.DataArray = append(p.DataArray, row)
	}

	return p, nil
}

// UnpackRecords is the inverse of PackRecords.
func UnpackRecords(p *Packed) ([]json.RawMessage, error) {
	if p == nil {
		return []json.RawMessage{}, nil
	}

	type col struct {
		name string
		idx  int
	}
	cols := make([]col, 0, len(p.Keys))
	for k, v := range p.Keys {
		if v < 0 {
			return nil, fmt.Errorf("key %q: negative index %d", k, v)
		}
		cols = append(cols, col{k, v})
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i].idx < cols[j].idx })

	out := make([]json.RawMessage, 0, len(p.DataArray))
	for _, row := range p.DataArray {
		var buf bytes.Buffer
		buf.WriteByte('{')
		first := true
		for _, c := range cols {
			if c.idx >= len(row) || isAbsent(row[c.idx]) {
				continue
			}
			if !first {
				buf.WriteByte(',')
			}
			first = false
			name, err := json.Marshal(c.name)
			if err != nil {
				return nil, err
			}
			buf.Write(name)
			buf.WriteByte(':')
			buf.Write(row[c.idx])
		}
		buf.WriteByte('}')
		out = append(out, json.RawMessage(buf.Bytes()))
	}

	return out, nil
}

// Pack marshals items to JSON and packs them.
func Pack[T any](items []T) (*Packed, error) {
	records := make([]json.RawMessage, 0, len(items))
	for _, it := range items {
		b, err := json.Marshal(it)
		if err != nil {
			return nil, err
		}
		records = append(records, b)
	}
	return PackRecords(records)
}

// Unpack unpacks p and unmarshals every record into T.
func Unpack[T any](p *Packed) ([]T, error) {
	records, err := UnpackRecords(p)
	if err != nil {
		return nil, err
	}
	items := make([]T, 0, len(records))
	for i, r := range records {
		var it T
		if err := json.Unmarshal(r, &it); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		items = append(items, it)
	}
	return items, nil
}

// Marshal packs items and returns the packed form as JSON text.
func Marshal[T any](items []T) (string, error) {
	p, err := Pack(items)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Unmarshal parses packed JSON text and unpacks it into T.
func Unmarshal[T any](text string) ([]T, error) {
	var p Packed
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		return nil, err
	}
	return Unpack[T](&p)
}

type field struct {
	name  string
	value json.RawMessage
}

func orderedFields(rec json.RawMessage) ([]field, error) {
	dec := json.NewDecoder(bytes.NewReader(rec))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var fields []field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected field name, got %v", tok)
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		fields = append(fields, field{name: name, value: v})
	}

	return fields, nil
}

func isAbsent(v json.RawMessage) bool {
	return len(v) == 0 || bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}
