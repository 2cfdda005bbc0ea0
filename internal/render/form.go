// Package render turns records into form and table descriptions and parses
// form submissions back into records.
//
// Descriptions are plain data with JSON tags. How they are drawn is up to the
// caller.
package render

import (
	"strconv"
	"strings"

	"github.com/maruel/jsoncms/internal/entity"
)

// Kind is the widget used to edit a field.
type Kind string

const (
	// KindHidden carries a value without showing it.
	KindHidden Kind = "hidden"
	// KindInput is a single-line text input.
	KindInput Kind = "input"
	// KindTextarea is a multi-line text input.
	KindTextarea Kind = "textarea"
	// KindSelect picks one of Options.
	KindSelect Kind = "select"
)

// Option is one choice of a select element.
type Option struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected,omitempty"`
}

// Element describes the widget of one field.
type Element struct {
	Name    string           `json:"name"`
	Label   string           `json:"label"`
	Type    entity.FieldType `json:"type"`
	Kind    Kind             `json:"kind"`
	Value   string           `json:"value"`
	Options []Option         `json:"options,omitempty"`
}

// Form describes the edit form of one record.
type Form struct {
	Type     string    `json:"type"`
	Elements []Element `json:"elements"`
}

// RenderEditForm returns one element per field of schema, in schema order,
// filled from record. A nil record renders an empty form.
func RenderEditForm(schema *entity.Schema, record *entity.Record) *Form {
	if record == nil {
		record = schema.NewRecord()
	}
	fields := schema.Fields()
	f := &Form{Type: schema.Name(), Elements: make([]Element, 0, len(fields))}
	for _, field := range fields {
		f.Elements = append(f.Elements, renderField(field, record.Text(field.Name)))
	}
	return f
}

func renderField(f entity.Field, v string) Element {
	e := Element{Name: f.Name, Label: f.Label, Type: f.Type, Value: v}
	switch f.Type {
	case entity.FieldHidden:
		e.Kind = KindHidden
	case entity.FieldText, entity.FieldDate, entity.FieldTime:
		e.Kind = KindInput
	case entity.FieldTextarea, entity.FieldArray:
		// Arrays are edited one element per line; v is already joined.
		e.Kind = KindTextarea
	case entity.FieldMonth:
		e.Kind = KindSelect
		e.Options = options(f.Type.Choices(), monthIndex(v))
		e.Value = selected(e.Options)
	case entity.FieldPersonType, entity.FieldExampleTopic:
		e.Kind = KindSelect
		// An unlisted value selects nothing but is submitted back as is.
		e.Options = options(f.Type.Choices(), v)
	default:
		// Unreachable: NewSchema rejects undeclared types.
		panic("render: unhandled field type " + string(f.Type))
	}
	return e
}

func options(choices []entity.Choice, v string) []Option {
	out := make([]Option, len(choices))
	for i, c := range choices {
		out[i] = Option{Value: c.Value, Label: c.Label, Selected: c.Value == v}
	}
	return out
}

func selected(opts []Option) string {
	for _, o := range opts {
		if o.Selected {
			return o.Value
		}
	}
	return ""
}

// monthIndex returns the choice value of a stored month, given either as its
// number or its name. Unrecognized values select the blank option.
func monthIndex(v string) string {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		if n > 0 && n < len(entity.Months) {
			return strconv.Itoa(n)
		}
		return ""
	}
	lv := strings.ToLower(v)
	for i, m := range entity.Months[1:] {
		// "Mar" and "March".
		if len(lv) >= 3 && strings.HasPrefix(lv, strings.ToLower(m)) {
			return strconv.Itoa(i + 1)
		}
	}
	return ""
}

// RawMap returns the values the form would submit unchanged, keyed by field
// name.
func (f *Form) RawMap() map[string]string {
	m := make(map[string]string, len(f.Elements))
	for _, e := range f.Elements {
		m[e.Name] = e.Value
	}
	return m
}

// ParseSubmission builds a record from submitted form values.
//
// Missing values are empty. Array fields are split on newlines and each line
// trimmed. Keys that are not fields are ignored.
func ParseSubmission(schema *entity.Schema, raw map[string]string) *entity.Record {
	r := schema.NewRecord()
	for _, f := range schema.Fields() {
		v := raw[f.Name]
		if f.Type == entity.FieldArray {
			_ = r.Set(f.Name, entity.List(entity.SplitLines(v)...))
		} else {
			_ = r.Set(f.Name, entity.Text(v))
		}
	}
	return r
}
