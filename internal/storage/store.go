// Package storage implements record operations over one backing document
// per entity type.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/maruel/jsoncms/internal/entity"
	"github.com/maruel/jsoncms/internal/jsonldb"
)

// ErrUnknownField is returned when a lookup names a field the schema does not
// declare.
var ErrUnknownField = errors.New("unknown field")

var errSchemaMismatch = errors.New("record belongs to another entity type")

// Committer records a rewritten document, e.g. in version control.
type Committer interface {
	Commit(ctx context.Context, message string, paths ...string) error
}

// Store reads and rewrites the backing document of one entity type.
//
// Every operation loads the whole document. Mutations rewrite the whole
// document while holding its lock, so writes through one Store never
// interleave. Separate Stores or processes sharing a file can still lose
// updates.
type Store struct {
	schema  *entity.Schema
	doc     *jsonldb.Document[*entity.Record]
	history Committer
}

// New returns a Store for schema backed by the file at path.
//
// history may be nil.
func New(schema *entity.Schema, path string, history Committer) *Store {
	return &Store{
		schema:  schema,
		doc:     jsonldb.NewDocument(path, schema.FromMap),
		history: history,
	}
}

// Schema returns the entity schema.
func (s *Store) Schema() *entity.Schema {
	return s.schema
}

// Path returns the backing document location.
func (s *Store) Path() string {
	return s.doc.Path()
}

// Init creates the backing document as an empty array when missing.
func (s *Store) Init(ctx context.Context) (bool, error) {
	created, err := s.doc.Init()
	if created {
		slog.InfoContext(ctx, "Created backing document", "type", s.schema.Name(), "path", s.doc.Path())
		s.commit(ctx, "init", "")
	}
	return created, err
}

// LoadAll returns every record in document order.
func (s *Store) LoadAll(ctx context.Context) ([]*entity.Record, error) {
	defer observe(s.schema.Name(), "load", time.Now())
	rows, err := s.doc.Load()
	if err != nil {
		countError(s.schema.Name(), "load")
		return nil, err
	}
	return rows, nil
}

// FindBy returns the last record whose field equals value.
func (s *Store) FindBy(ctx context.Context, field, value string) (*entity.Record, bool, error) {
	if err := s.checkField(field); err != nil {
		return nil, false, err
	}
	rows, err := s.LoadAll(ctx)
	if err != nil {
		return nil, false, err
	}
	var found *entity.Record
	matches := 0
	for _, r := range rows {
		if r.Text(field) == value {
			found = r
			matches++
		}
	}
	if matches > 1 {
		slog.WarnContext(ctx, "Lookup matched several records, using the last one", "type", s.schema.Name(), "field", field, "value", value, "matches", matches)
	}
	return found, found != nil, nil
}

// FilterBy returns every record whose field equals value, in document order.
func (s *Store) FilterBy(ctx context.Context, field, value string) ([]*entity.Record, error) {
	if err := s.checkField(field); err != nil {
		return nil, err
	}
	rows, err := s.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.Record, 0, len(rows))
	for _, r := range rows {
		if r.Text(field) == value {
			out = append(out, r)
		}
	}
	return out, nil
}

// InsertFront assigns the next id to a copy of r, prepends it and returns the id.
func (s *Store) InsertFront(ctx context.Context, r *entity.Record) (string, error) {
	return s.insert(ctx, r, true)
}

// InsertBack assigns the next id to a copy of r, appends it and returns the id.
func (s *Store) InsertBack(ctx context.Context, r *entity.Record) (string, error) {
	return s.insert(ctx, r, false)
}

func (s *Store) insert(ctx context.Context, r *entity.Record, front bool) (string, error) {
	op := "insert_back"
	if front {
		op = "insert_front"
	}
	defer observe(s.schema.Name(), op, time.Now())
	if r.Schema() != s.schema {
		return "", fmt.Errorf("%s: %w", s.schema.Name(), errSchemaMismatch)
	}
	var id string
	count := 0
	_, err := s.doc.Modify(func(rows []*entity.Record) ([]*entity.Record, bool, error) {
		id = strconv.Itoa(MaxID(rows) + 1)
		count = len(rows) + 1
		n := r.Clone()
		n.SetID(id)
		if front {
			return append([]*entity.Record{n}, rows...), true, nil
		}
		return append(rows, n), true, nil
	})
	if err != nil {
		countError(s.schema.Name(), op)
		return "", err
	}
	s.logged(ctx, op, id, count)
	return id, nil
}

// Update replaces every record whose field equals value with r. It reports
// whether any record matched; the document is only rewritten on a match.
func (s *Store) Update(ctx context.Context, field, value string, r *entity.Record) (bool, error) {
	defer observe(s.schema.Name(), "update", time.Now())
	if err := s.checkField(field); err != nil {
		return false, err
	}
	if r.Schema() != s.schema {
		return false, fmt.Errorf("%s: %w", s.schema.Name(), errSchemaMismatch)
	}
	count := 0
	changed, err := s.doc.Modify(func(rows []*entity.Record) ([]*entity.Record, bool, error) {
		count = len(rows)
		found := false
		for i, row := range rows {
			if row.Text(field) == value {
				rows[i] = r.Clone()
				found = true
			}
		}
		return rows, found, nil
	})
	if err != nil {
		countError(s.schema.Name(), "update")
		return false, err
	}
	if changed {
		s.logged(ctx, "update", value, count)
	}
	return changed, nil
}

// Delete removes every record whose field equals value, keeping the others in
// order. It reports whether any record was removed.
func (s *Store) Delete(ctx context.Context, field, value string) (bool, error) {
	defer observe(s.schema.Name(), "delete", time.Now())
	if err := s.checkField(field); err != nil {
		return false, err
	}
	count := 0
	changed, err := s.doc.Modify(func(rows []*entity.Record) ([]*entity.Record, bool, error) {
		n := len(rows)
		kept := rows[:0]
		for _, row := range rows {
			if row.Text(field) != value {
				kept = append(kept, row)
			}
		}
		count = len(kept)
		return kept, len(kept) != n, nil
	})
	if err != nil {
		countError(s.schema.Name(), "delete")
		return false, err
	}
	if changed {
		s.logged(ctx, "delete", value, count)
	}
	return changed, nil
}

// Sort reorders the document by the schema's sort key and direction and
// rewrites it. The relative order of records comparing equal is unspecified.
func (s *Store) Sort(ctx context.Context) error {
	defer observe(s.schema.Name(), "sort", time.Now())
	field := s.schema.SortField()
	dir := s.schema.Direction()
	count := 0
	if _, err := s.doc.Modify(func(rows []*entity.Record) ([]*entity.Record, bool, error) {
		count = len(rows)
		SortRecords(rows, field, dir)
		return rows, true, nil
	}); err != nil {
		countError(s.schema.Name(), "sort")
		return err
	}
	s.logged(ctx, "sort", string(dir), count)
	return nil
}

// MaxID returns the largest numeric id, 0 for none. Ids are read like
// integers with trailing garbage ignored; ids without leading digits count
// as 0.
func MaxID(rows []*entity.Record) int {
	m := 0
	for _, r := range rows {
		if n := leadingInt(r.ID()); n > m {
			m = n
		}
	}
	return m
}

func leadingInt(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

func (s *Store) checkField(field string) error {
	if _, ok := s.schema.Field(field); !ok {
		return fmt.Errorf("%s: %w %q", s.schema.Name(), ErrUnknownField, field)
	}
	return nil
}

// logged reports a rewrite and records it in history.
func (s *Store) logged(ctx context.Context, op, key string, count int) {
	slog.DebugContext(ctx, "Rewrote backing document", "type", s.schema.Name(), "op", op, "key", key, "records", count)
	s.commit(ctx, op, key)
}

func (s *Store) commit(ctx context.Context, op, key string) {
	if s.history == nil {
		return
	}
	msg := fmt.Sprintf("%s: %s", op, s.schema.Name())
	if key != "" {
		msg += " " + key
	}
	if err := s.history.Commit(ctx, msg, s.doc.Path()); err != nil {
		slog.ErrorContext(ctx, "Failed to commit backing document", "type", s.schema.Name(), "err", err)
	}
}
