package entity

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
)

// ErrSchemaConfig reports an entity declaration that cannot be served. It is
// returned at registration time, never while handling a request.
var ErrSchemaConfig = errors.New("invalid entity schema")

// IDField is the name of the field every record carries.
const IDField = "id"

// Direction is the sort order of an entity.
type Direction string

const (
	// Ascending sorts smallest first.
	Ascending Direction = "asc"
	// Descending sorts largest first.
	Descending Direction = "desc"
)

// ParseDirection returns Descending for any string starting with "desc"
// (case-insensitive) and Ascending otherwise.
func ParseDirection(s string) Direction {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(s)), "desc") {
		return Descending
	}
	return Ascending
}

// Config declares an entity type.
type Config struct {
	// Name is the type name used in requests, e.g. "Announcement".
	Name string `yaml:"name"`
	// Path is the backing document location.
	Path string `yaml:"path"`
	// Fields are in form order. An "id" hidden field is prepended when absent.
	Fields []Field `yaml:"fields"`
	// SortKey defaults to "id".
	SortKey string `yaml:"sort_key,omitempty"`
	// SortDirection defaults to ascending.
	SortDirection Direction `yaml:"sort_direction,omitempty"`
	// Summary lists the fields shown in list views. Defaults to all visible fields.
	Summary []string `yaml:"summary,omitempty"`
}

// Schema is the validated declaration of an entity type.
//
// Everything but the sort direction is immutable after NewSchema returns.
type Schema struct {
	name    string
	path    string
	sortKey string
	summary []string
	fields  []Field
	index   map[string]int
	desc    atomic.Bool
}

// NewSchema validates cfg and returns the schema.
//
// Errors wrap ErrSchemaConfig.
func NewSchema(cfg *Config) (*Schema, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrSchemaConfig)
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: %s: path is required", ErrSchemaConfig, cfg.Name)
	}
	fields := slices.Clone(cfg.Fields)
	if !slices.ContainsFunc(fields, func(f Field) bool { return f.Name == IDField }) {
		fields = slices.Insert(fields, 0, Field{Name: IDField, Label: "ID", Type: FieldHidden})
	}
	s := &Schema{
		name:   cfg.Name,
		path:   cfg.Path,
		fields: fields,
		index:  make(map[string]int, len(fields)),
	}
	for i := range s.fields {
		f := &s.fields[i]
		if f.Name == "" {
			return nil, fmt.Errorf("%w: %s: field %d: name is required", ErrSchemaConfig, cfg.Name, i)
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("%w: %s: duplicate field %q", ErrSchemaConfig, cfg.Name, f.Name)
		}
		if err := f.Type.Validate(); err != nil {
			return nil, fmt.Errorf("%s: field %q: %w", cfg.Name, f.Name, err)
		}
		switch {
		case f.Compare == "" && f.Name == IDField:
			f.Compare = CompareNumeric
		case f.Compare == "":
			f.Compare = f.Type.DefaultCompare()
		default:
			if err := f.Compare.Validate(); err != nil {
				return nil, fmt.Errorf("%s: field %q: %w", cfg.Name, f.Name, err)
			}
		}
		if f.Label == "" {
			f.Label = f.Name
		}
		s.index[f.Name] = i
	}
	if s.fields[s.index[IDField]].Type == FieldArray {
		return nil, fmt.Errorf("%w: %s: %q cannot be an array", ErrSchemaConfig, cfg.Name, IDField)
	}

	s.sortKey = cfg.SortKey
	if s.sortKey == "" {
		s.sortKey = IDField
	}
	if _, ok := s.index[s.sortKey]; !ok {
		return nil, fmt.Errorf("%w: %s: unknown sort key %q", ErrSchemaConfig, cfg.Name, s.sortKey)
	}
	switch cfg.SortDirection {
	case "", Ascending:
	case Descending:
		s.desc.Store(true)
	default:
		return nil, fmt.Errorf("%w: %s: unknown sort direction %q", ErrSchemaConfig, cfg.Name, cfg.SortDirection)
	}

	if len(cfg.Summary) == 0 {
		for _, f := range s.fields {
			if f.Type != FieldHidden {
				s.summary = append(s.summary, f.Name)
			}
		}
	} else {
		for _, name := range cfg.Summary {
			if _, ok := s.index[name]; !ok {
				return nil, fmt.Errorf("%w: %s: unknown summary field %q", ErrSchemaConfig, cfg.Name, name)
			}
		}
		s.summary = slices.Clone(cfg.Summary)
	}
	return s, nil
}

// Name returns the entity type name.
func (s *Schema) Name() string { return s.name }

// Path returns the backing document location.
func (s *Schema) Path() string { return s.path }

// SortKey returns the name of the field used for ordering.
func (s *Schema) SortKey() string { return s.sortKey }

// SortField returns the declaration of the sort key.
func (s *Schema) SortField() Field { return s.fields[s.index[s.sortKey]] }

// Summary returns the names of the fields shown in list views.
func (s *Schema) Summary() []string { return slices.Clone(s.summary) }

// Fields returns the field declarations in form order.
func (s *Schema) Fields() []Field { return slices.Clone(s.fields) }

// Field returns the declaration of the named field.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Direction returns the current sort direction.
func (s *Schema) Direction() Direction {
	if s.desc.Load() {
		return Descending
	}
	return Ascending
}

// SetDirection changes the sort direction used by later sorts.
func (s *Schema) SetDirection(d Direction) {
	s.desc.Store(d == Descending)
}
