package entity

import (
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"testing"
)

func announcementConfig() *Config {
	return &Config{
		Name: "Announcement",
		Path: "announcements.json",
		Fields: []Field{
			{Name: "id", Label: "ID", Type: FieldHidden},
			{Name: "date", Label: "Date", Type: FieldDate},
			{Name: "content", Label: "Content", Type: FieldTextarea},
			{Name: "tags", Label: "Tags", Type: FieldArray},
		},
		Summary: []string{"content", "date"},
	}
}

func TestNewSchema(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		s, err := NewSchema(announcementConfig())
		if err != nil {
			t.Fatal(err)
		}
		if s.Name() != "Announcement" || s.Path() != "announcements.json" {
			t.Errorf("unexpected identity %q %q", s.Name(), s.Path())
		}
		if s.SortKey() != "id" {
			t.Errorf("SortKey() = %q, want id", s.SortKey())
		}
		if s.Direction() != Ascending {
			t.Errorf("Direction() = %q, want asc", s.Direction())
		}
		if got := s.Summary(); !slices.Equal(got, []string{"content", "date"}) {
			t.Errorf("Summary() = %v", got)
		}
		f, ok := s.Field("date")
		if !ok || f.Compare != CompareTime {
			t.Errorf("Field(date) = %+v, %v; want time comparison", f, ok)
		}
		f, _ = s.Field("content")
		if f.Compare != CompareText {
			t.Errorf("content compares as %q, want text", f.Compare)
		}
		f, _ = s.Field("id")
		if f.Compare != CompareNumeric {
			t.Errorf("id compares as %q, want numeric", f.Compare)
		}
	})

	t.Run("id is prepended", func(t *testing.T) {
		s, err := NewSchema(&Config{Name: "Note", Path: "notes.json", Fields: []Field{{Name: "body", Type: FieldText}}})
		if err != nil {
			t.Fatal(err)
		}
		fields := s.Fields()
		if len(fields) != 2 || fields[0].Name != "id" || fields[0].Type != FieldHidden {
			t.Fatalf("Fields() = %+v", fields)
		}
		if fields[1].Label != "body" {
			t.Errorf("label defaults to the name, got %q", fields[1].Label)
		}
		if got := s.Summary(); !slices.Equal(got, []string{"body"}) {
			t.Errorf("default summary = %v, want visible fields", got)
		}
	})

	t.Run("descending", func(t *testing.T) {
		cfg := announcementConfig()
		cfg.SortDirection = Descending
		s, err := NewSchema(cfg)
		if err != nil {
			t.Fatal(err)
		}
		if s.Direction() != Descending {
			t.Errorf("Direction() = %q", s.Direction())
		}
		s.SetDirection(Ascending)
		if s.Direction() != Ascending {
			t.Errorf("SetDirection did not apply")
		}
	})

	errorCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no name", func(c *Config) { c.Name = "" }},
		{"no path", func(c *Config) { c.Path = "" }},
		{"unknown type", func(c *Config) { c.Fields[1].Type = "color" }},
		{"duplicate field", func(c *Config) { c.Fields[2].Name = "date" }},
		{"empty field name", func(c *Config) { c.Fields[2].Name = "" }},
		{"unknown compare", func(c *Config) { c.Fields[1].Compare = "fuzzy" }},
		{"unknown sort key", func(c *Config) { c.SortKey = "nope" }},
		{"bad direction", func(c *Config) { c.SortDirection = "up" }},
		{"unknown summary", func(c *Config) { c.Summary = []string{"nope"} }},
		{"array id", func(c *Config) { c.Fields[0].Type = FieldArray }},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			cfg := announcementConfig()
			tt.mutate(cfg)
			_, err := NewSchema(cfg)
			if !errors.Is(err, ErrSchemaConfig) {
				t.Errorf("NewSchema() error = %v, want ErrSchemaConfig", err)
			}
		})
	}
}

func TestChoicesAreCopies(t *testing.T) {
	for _, ft := range []FieldType{FieldPersonType, FieldExampleTopic, FieldMonth} {
		c := ft.Choices()
		want := c[1]
		c[1] = Choice{Value: "changed", Label: "Changed"}
		if got := ft.Choices()[1]; got != want {
			t.Errorf("%s choices were modified through a returned slice: %+v", ft, got)
		}
	}
	if FieldText.Choices() != nil {
		t.Error("text has choices")
	}
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in   string
		want Direction
	}{
		{"", Ascending},
		{"asc", Ascending},
		{"desc", Descending},
		{"DESCENDING", Descending},
		{" Desc", Descending},
		{"de", Ascending},
	}
	for _, tt := range tests {
		if got := ParseDirection(tt.in); got != tt.want {
			t.Errorf("ParseDirection(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFromMap(t *testing.T) {
	s, err := NewSchema(announcementConfig())
	if err != nil {
		t.Fatal(err)
	}
	r := s.FromMap(map[string]any{
		"id":      json.Number("7"),
		"date":    "2020-01-01",
		"tags":    " a \nb\r\n c",
		"ignored": "x",
	})
	if r.ID() != "7" {
		t.Errorf("ID() = %q", r.ID())
	}
	if r.Text("content") != "" {
		t.Errorf("missing field is %q, want empty", r.Text("content"))
	}
	tags, _ := r.Get("tags")
	if !tags.IsList() || !slices.Equal(tags.Items(), []string{"a", "b", "c"}) {
		t.Errorf("tags = %#v", tags.Items())
	}
	if _, ok := r.Get("ignored"); ok {
		t.Error("undeclared field was kept")
	}

	t.Run("coercion", func(t *testing.T) {
		tests := []struct {
			name string
			in   any
			want string
		}{
			{"whole float", float64(42), "42"},
			{"fraction", 3.25, "3.25"},
			{"bool", true, "1"},
			{"int", 5, "5"},
			{"list into scalar", []any{"a", "b"}, "a\nb"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got := s.FromMap(map[string]any{"content": tt.in}).Text("content")
				if got != tt.want {
					t.Errorf("FromMap(%v) = %q, want %q", tt.in, got, tt.want)
				}
			})
		}
	})

	t.Run("list elements", func(t *testing.T) {
		v, _ := s.FromMap(map[string]any{"tags": []any{"x", float64(2)}}).Get("tags")
		if !slices.Equal(v.Items(), []string{"x", "2"}) {
			t.Errorf("tags = %v", v.Items())
		}
	})

	t.Run("empty text is empty list", func(t *testing.T) {
		v, _ := s.FromMap(map[string]any{"tags": ""}).Get("tags")
		if items := v.Items(); items == nil || len(items) != 0 {
			t.Errorf("tags = %#v, want empty list", items)
		}
	})
}

func TestRecordJSON(t *testing.T) {
	s, err := NewSchema(announcementConfig())
	if err != nil {
		t.Fatal(err)
	}
	r := s.NewRecord()
	r.SetID("1")
	if err := r.Set("content", Text("Hello")); err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"id":"1","date":"","content":"Hello","tags":[]}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}

	if err := r.Set("tags", Text("x")); err == nil {
		t.Error("Set accepted text for an array field")
	}
	if err := r.Set("nope", Text("x")); err == nil {
		t.Error("Set accepted an unknown field")
	}

	c := r.Clone()
	if !c.Equal(r) {
		t.Error("Clone() is not equal")
	}
	if err := c.Set("tags", List("a")); err != nil {
		t.Fatal(err)
	}
	if c.Equal(r) {
		t.Error("Clone() shares state")
	}
}

func TestJSONSchema(t *testing.T) {
	cfg := announcementConfig()
	cfg.Fields = append(cfg.Fields, Field{Name: "topic", Type: FieldExampleTopic})
	s, err := NewSchema(cfg)
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(s.JSONSchema())
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	for _, want := range []string{`"type":"array"`, `"title":"Announcement"`, `"intro"`, `"additionalProperties":false`} {
		if !strings.Contains(got, want) {
			t.Errorf("JSONSchema() = %s, missing %s", got, want)
		}
	}
	if strings.Index(got, `"date"`) > strings.Index(got, `"content"`) {
		t.Errorf("properties are not in field order: %s", got)
	}
}
