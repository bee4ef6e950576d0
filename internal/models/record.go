package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Field is a single named value inside a Record. Values are kept as raw
// JSON so the ledger never interprets them.
type Field struct {
	Name  string
	Value json.RawMessage
}

// Record is the opaque payload carried by a block. It behaves like a JSON
// object that remembers the order fields were submitted in: the wire form
// preserves that order, while Canonical sorts fields by name so two
// semantically identical records always hash identically.
type Record struct {
	fields []Field
}

// NewRecord creates an empty Record
func NewRecord() *Record {
	return &Record{}
}

// Set adds a field, replacing the value in place if the name already exists
func (r *Record) Set(name string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode field %q: %w", name, err)
	}
	for i := range r.fields {
		if r.fields[i].Name == name {
			r.fields[i].Value = raw
			return nil
		}
	}
	r.fields = append(r.fields, Field{Name: name, Value: raw})
	return nil
}

// SetString adds a string field
func (r *Record) SetString(name, value string) *Record {
	// json.Marshal cannot fail on a string
	_ = r.Set(name, value)
	return r
}

// Get returns the raw value of a field and whether it exists
func (r *Record) Get(name string) (json.RawMessage, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Len returns the number of fields
func (r *Record) Len() int {
	return len(r.fields)
}

// Fields returns a copy of the fields in submission order
func (r *Record) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// MarshalJSON encodes the record as a JSON object in submission order
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(f.Value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, preserving the order of its keys.
// A duplicate key overwrites the earlier value, matching encoding/json.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("record payload must be a JSON object")
	}

	r.fields = nil
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("invalid record field name")
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		compact, err := compactJSON(raw)
		if err != nil {
			return err
		}

		replaced := false
		for i := range r.fields {
			if r.fields[i].Name == name {
				r.fields[i].Value = compact
				replaced = true
				break
			}
		}
		if !replaced {
			r.fields = append(r.fields, Field{Name: name, Value: compact})
		}
	}

	// Consume the closing brace
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// Canonical returns the record as a JSON object with fields sorted by name
// and values compacted. This is the form fed into block hashing.
func (r Record) Canonical() ([]byte, error) {
	sorted := make([]Field, len(r.fields))
	copy(sorted, r.fields)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range sorted {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		compact, err := compactJSON(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(compact)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func compactJSON(raw json.RawMessage) (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
