package render

import (
	"unicode/utf8"

	"github.com/maruel/jsoncms/internal/entity"
)

// CellBudget is the number of characters a list cell shows.
const CellBudget = 100

// Op names an action offered by a list.
type Op string

const (
	OpCreate Op = "create"
	OpSort   Op = "sort"
	OpEdit   Op = "edit"
	OpDelete Op = "delete"
)

// Action is a control of a list. ID is set for per-row actions.
type Action struct {
	Op    Op     `json:"op"`
	Label string `json:"label"`
	ID    string `json:"id,omitempty"`
}

// Column is one summary field of a list.
type Column struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

// Row is one record of a list.
type Row struct {
	ID      string   `json:"id"`
	Cells   []string `json:"cells"`
	Actions []Action `json:"actions"`
}

// Table describes the list view of an entity type.
type Table struct {
	Type      string           `json:"type"`
	Direction entity.Direction `json:"direction"`
	Columns   []Column         `json:"columns"`
	Rows      []Row            `json:"rows"`
	Actions   []Action         `json:"actions"`
}

// RenderList returns a table with one column per summary field and one row
// per record, in the order given. Cell values are truncated to CellBudget.
//
// The table offers creation and sorting, and each row editing and deletion
// of its record.
func RenderList(schema *entity.Schema, records []*entity.Record) *Table {
	summary := schema.Summary()
	dir := schema.Direction()
	t := &Table{
		Type:      schema.Name(),
		Direction: dir,
		Columns:   make([]Column, 0, len(summary)),
		Rows:      make([]Row, 0, len(records)),
		Actions: []Action{
			{Op: OpCreate, Label: "New " + schema.Name()},
			{Op: OpSort, Label: "Sort by " + schema.SortField().Label + " (" + string(dir) + ")"},
		},
	}
	for _, name := range summary {
		f, _ := schema.Field(name)
		t.Columns = append(t.Columns, Column{Name: f.Name, Label: f.Label})
	}
	for _, r := range records {
		id := r.ID()
		row := Row{
			ID:    id,
			Cells: make([]string, len(summary)),
			Actions: []Action{
				{Op: OpEdit, Label: "Edit", ID: id},
				{Op: OpDelete, Label: "Delete", ID: id},
			},
		}
		for i, name := range summary {
			row.Cells[i] = Truncate(r.Text(name), CellBudget)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Truncate shortens s to n characters, the last three being "...", when it
// is longer than n. Lengths count runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	if n < 3 {
		// No room for the ellipsis.
		return string([]rune(s)[:max(n, 0)])
	}
	return string([]rune(s)[:n-3]) + "..."
}
