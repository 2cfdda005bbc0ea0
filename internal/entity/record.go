// Implements schema-bound records and their JSON encoding.

package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Value is a field value: a string, or an ordered list of strings for array
// fields.
type Value struct {
	text  string
	items []string
	list  bool
}

// Text returns a scalar value.
func Text(s string) Value {
	return Value{text: s}
}

// List returns a list value. A nil list is stored as an empty list.
func List(items ...string) Value {
	if items == nil {
		items = []string{}
	}
	return Value{items: slices.Clone(items), list: true}
}

// IsList reports whether v is a list.
func (v Value) IsList() bool { return v.list }

// Items returns the list elements, nil for a scalar.
func (v Value) Items() []string {
	if !v.list {
		return nil
	}
	return slices.Clone(v.items)
}

// String returns the scalar text, or the list elements joined by newlines.
func (v Value) String() string {
	if v.list {
		return strings.Join(v.items, "\n")
	}
	return v.text
}

// Equal reports whether both values have the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.list != o.list {
		return false
	}
	if v.list {
		return slices.Equal(v.items, o.items)
	}
	return v.text == o.text
}

// MarshalJSON encodes a list as an array of strings and a scalar as a string.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.list {
		return json.Marshal(v.items)
	}
	return json.Marshal(v.text)
}

// Record is one schema-conformant instance of an entity.
//
// A record always holds exactly the schema's fields, in schema order.
type Record struct {
	schema *Schema
	values []Value
}

// NewRecord returns a record with every field at its empty value.
func (s *Schema) NewRecord() *Record {
	r := &Record{schema: s, values: make([]Value, len(s.fields))}
	for i, f := range s.fields {
		if f.Type == FieldArray {
			r.values[i] = List()
		}
	}
	return r
}

// FromMap builds a record from plain data.
//
// Keys that are not fields are dropped and missing fields are empty. Scalars
// are converted to text. For array fields a string is split into lines, each
// trimmed, and a list has each element converted to text.
func (s *Schema) FromMap(m map[string]any) *Record {
	r := s.NewRecord()
	for i, f := range s.fields {
		v, ok := m[f.Name]
		if !ok || v == nil {
			continue
		}
		if f.Type == FieldArray {
			r.values[i] = toList(v)
		} else {
			r.values[i] = Text(toText(v))
		}
	}
	return r
}

// SplitLines splits text on newlines and trims each element. Empty text is an
// empty list.
func SplitLines(text string) []string {
	if text == "" {
		return []string{}
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return lines
}

// Schema returns the schema the record conforms to.
func (r *Record) Schema() *Schema { return r.schema }

// Get returns the value of the named field.
func (r *Record) Get(name string) (Value, bool) {
	i, ok := r.schema.index[name]
	if !ok {
		return Value{}, false
	}
	return r.values[i], true
}

// Text returns the text form of the named field, empty when unknown.
func (r *Record) Text(name string) string {
	v, _ := r.Get(name)
	return v.String()
}

// Set replaces the value of the named field. The field must exist and the
// value kind must match its type.
func (r *Record) Set(name string, v Value) error {
	i, ok := r.schema.index[name]
	if !ok {
		return fmt.Errorf("%s has no field %q", r.schema.name, name)
	}
	if isList := r.schema.fields[i].Type == FieldArray; isList != v.list {
		return fmt.Errorf("%s.%s: value kind does not match field type %s", r.schema.name, name, r.schema.fields[i].Type)
	}
	if v.list {
		v = List(v.items...)
	}
	r.values[i] = v
	return nil
}

// ID returns the record id.
func (r *Record) ID() string { return r.Text(IDField) }

// SetID sets the record id.
func (r *Record) SetID(id string) {
	r.values[r.schema.index[IDField]] = Text(id)
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	c := &Record{schema: r.schema, values: make([]Value, len(r.values))}
	for i, v := range r.values {
		if v.list {
			v = List(v.items...)
		}
		c.values[i] = v
	}
	return c
}

// Equal reports whether both records have the same schema and values.
func (r *Record) Equal(o *Record) bool {
	if r.schema != o.schema {
		return false
	}
	for i := range r.values {
		if !r.values[i].Equal(o.values[i]) {
			return false
		}
	}
	return true
}

// Map returns the record as plain data: strings and []string.
func (r *Record) Map() map[string]any {
	m := make(map[string]any, len(r.values))
	for i, f := range r.schema.fields {
		if v := r.values[i]; v.list {
			m[f.Name] = slices.Clone(v.items)
		} else {
			m[f.Name] = v.text
		}
	}
	return m
}

// MarshalJSON encodes the record as an object with keys in schema order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.schema.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := r.values[i].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// toText converts a decoded JSON value to text.
func toText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		if t == math.Trunc(t) && !math.IsInf(t, 0) && !math.IsNaN(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		if t {
			return "1"
		}
		return "0"
	case []string:
		return strings.Join(t, "\n")
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = toText(e)
		}
		return strings.Join(parts, "\n")
	case nil:
		return ""
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

func toList(v any) Value {
	switch t := v.(type) {
	case string:
		return List(SplitLines(t)...)
	case []string:
		return List(t...)
	case []any:
		items := make([]string, len(t))
		for i, e := range t {
			items[i] = toText(e)
		}
		return List(items...)
	default:
		return List(toText(t))
	}
}
