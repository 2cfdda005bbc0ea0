package entity

import (
	"github.com/invopop/jsonschema"
)

// JSONSchema describes the backing document: an array of objects holding
// exactly the declared fields.
func (s *Schema) JSONSchema() *jsonschema.Schema {
	props := jsonschema.NewProperties()
	required := make([]string, 0, len(s.fields))
	for _, f := range s.fields {
		p := &jsonschema.Schema{Title: f.Label, Type: "string"}
		switch f.Type {
		case FieldArray:
			p.Type = "array"
			p.Items = &jsonschema.Schema{Type: "string"}
		case FieldMonth:
			// Blank, "0", the month numbers and the month names.
			enum := make([]any, 0, 2*len(Months))
			enum = append(enum, "0")
			for i, c := range monthChoices {
				enum = append(enum, c.Value)
				if i > 0 {
					enum = append(enum, c.Label)
				}
			}
			p.Enum = enum
		case FieldPersonType, FieldExampleTopic:
			for _, c := range f.Type.Choices() {
				p.Enum = append(p.Enum, c.Value)
			}
			p.Enum = append(p.Enum, "")
		case FieldDate:
			p.Description = "Date as free text"
		case FieldTime:
			p.Description = "Time as free text"
		case FieldHidden, FieldText, FieldTextarea:
		}
		props.Set(f.Name, p)
		required = append(required, f.Name)
	}
	return &jsonschema.Schema{
		Version: jsonschema.Version,
		Title:   s.name,
		Type:    "array",
		Items: &jsonschema.Schema{
			Type:                 "object",
			Properties:           props,
			Required:             required,
			AdditionalProperties: jsonschema.FalseSchema,
		},
	}
}
