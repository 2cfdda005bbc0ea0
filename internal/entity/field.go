// Declares the closed set of field types and their choice lists.

package entity

import (
	"fmt"
	"slices"
	"strconv"
)

// FieldType selects how a field is edited and stored.
//
// The set is closed: adding a type requires adding it to Validate, to
// Choices when it is an enumeration and to the form renderer.
type FieldType string

const (
	// FieldHidden is carried through forms without being shown.
	FieldHidden FieldType = "hidden"
	// FieldText is a single line of text.
	FieldText FieldType = "text"
	// FieldTextarea is free-form multi-line text.
	FieldTextarea FieldType = "textarea"
	// FieldDate is a date edited as free text.
	FieldDate FieldType = "date"
	// FieldTime is a time of day edited as free text.
	FieldTime FieldType = "time"
	// FieldMonth is one of the twelve months or blank.
	FieldMonth FieldType = "month"
	// FieldArray is an ordered list of strings, edited one per line.
	FieldArray FieldType = "array"

	// Enumerated types.

	// FieldPersonType is a person category.
	FieldPersonType FieldType = "person_type"
	// FieldExampleTopic is the section an example is listed under.
	FieldExampleTopic FieldType = "example_topic"
)

// Validate returns an error wrapping ErrSchemaConfig for an undeclared type.
func (t FieldType) Validate() error {
	switch t {
	case FieldHidden, FieldText, FieldTextarea, FieldDate, FieldTime, FieldMonth, FieldArray,
		FieldPersonType, FieldExampleTopic:
		return nil
	default:
		return fmt.Errorf("%w: unknown field type %q", ErrSchemaConfig, string(t))
	}
}

// Choices returns the ordered options of an enumerated type, nil otherwise.
func (t FieldType) Choices() []Choice {
	switch t {
	case FieldPersonType:
		return slices.Clone(personTypes)
	case FieldExampleTopic:
		return slices.Clone(exampleTopics)
	case FieldMonth:
		return slices.Clone(monthChoices)
	default:
		return nil
	}
}

// DefaultCompare is the comparison used when a field does not declare one.
// NewSchema makes the id field numeric regardless of its type.
func (t FieldType) DefaultCompare() CompareKind {
	if t == FieldDate {
		return CompareTime
	}
	return CompareText
}

// Choice is one option of an enumerated field.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Months holds the month labels indexed by month number; index 0 is blank.
var Months = [13]string{"", "Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// monthChoices is blank followed by the months valued "1" to "12".
var monthChoices = func() []Choice {
	c := make([]Choice, len(Months))
	for i, m := range Months[1:] {
		c[i+1] = Choice{Value: strconv.Itoa(i + 1), Label: m}
	}
	return c
}()

var personTypes = []Choice{
	{"pi", "PI"},
	{"postdoc", "Postdoc"},
	{"visitor", "Visitor"},
	{"phd", "Ph.D."},
	{"sm", "SM"},
	{"undergrad", "UROP"},
	{"postdoc-alumn", "Alumnus - Postdoc"},
	{"visitor-alumn", "Alumnus - Visitor"},
	{"phd-alumn", "Alumnus - PhD"},
	{"sm-alumn", "Alumnus - SM"},
	{"undergrad-alumn", "Alumnus - UROP"},
}

var exampleTopics = []Choice{
	{"intro", "Introductory"},
	{"model", "Modelling"},
	{"transport_maps", "Transport Maps"},
}

// CompareKind selects how values of a field are ordered when sorting.
type CompareKind string

const (
	// CompareText orders values byte-wise.
	CompareText CompareKind = "text"
	// CompareTime parses values as calendar timestamps.
	CompareTime CompareKind = "time"
	// CompareSecondToken orders by the second space-separated word, e.g. a
	// surname in "First Last".
	CompareSecondToken CompareKind = "second_token"
	// CompareNumeric orders by the leading integer, so "9" sorts before "10".
	CompareNumeric CompareKind = "numeric"
)

// Validate returns an error wrapping ErrSchemaConfig for an unknown kind.
func (k CompareKind) Validate() error {
	switch k {
	case CompareText, CompareTime, CompareSecondToken, CompareNumeric:
		return nil
	default:
		return fmt.Errorf("%w: unknown comparison %q", ErrSchemaConfig, string(k))
	}
}

// Field describes one attribute of an entity.
type Field struct {
	Name    string      `json:"name" yaml:"name"`
	Label   string      `json:"label" yaml:"label"`
	Type    FieldType   `json:"type" yaml:"type"`
	Compare CompareKind `json:"compare,omitempty" yaml:"compare,omitempty"`
}
