package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/maruel/jsoncms/internal/entity"
	"github.com/maruel/jsoncms/internal/jsonldb"
)

func announcementSchema(t *testing.T) *entity.Schema {
	t.Helper()
	s, err := entity.NewSchema(&entity.Config{
		Name: "Announcement",
		Path: "announcements.json",
		Fields: []entity.Field{
			{Name: "id", Type: entity.FieldHidden},
			{Name: "date", Type: entity.FieldDate},
			{Name: "content", Type: entity.FieldTextarea},
		},
		Summary: []string{"content", "date"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// newStore returns a Store over a fresh empty document.
func newStore(t *testing.T, schema *entity.Schema, history Committer) *Store {
	t.Helper()
	s := New(schema, filepath.Join(t.TempDir(), schema.Path()), history)
	if created, err := s.Init(t.Context()); err != nil || !created {
		t.Fatalf("Init() = %t, %v", created, err)
	}
	return s
}

func announcement(t *testing.T, schema *entity.Schema, date, content string) *entity.Record {
	t.Helper()
	return schema.FromMap(map[string]any{"date": date, "content": content})
}

// compact returns the document on disk without insignificant whitespace.
func compact(t *testing.T, s *Store) string {
	t.Helper()
	data, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		t.Fatalf("document is not valid JSON: %v\n%s", err, data)
	}
	return buf.String()
}

func ids(rows []*entity.Record) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID()
	}
	return out
}

func TestStoreAnnouncements(t *testing.T) {
	ctx := t.Context()
	schema := announcementSchema(t)
	s := newStore(t, schema, nil)
	if got := compact(t, s); got != "[]" {
		t.Fatalf("initial document = %s", got)
	}

	id, err := s.InsertFront(ctx, announcement(t, schema, "2020-01-01", "Hello"))
	if err != nil {
		t.Fatal(err)
	}
	if id != "1" {
		t.Errorf("first id = %q, want 1", id)
	}
	if got, want := compact(t, s), `[{"id":"1","date":"2020-01-01","content":"Hello"}]`; got != want {
		t.Errorf("document = %s, want %s", got, want)
	}

	id, err = s.InsertFront(ctx, announcement(t, schema, "2020-02-01", "World"))
	if err != nil {
		t.Fatal(err)
	}
	if id != "2" {
		t.Errorf("second id = %q, want 2", id)
	}
	rows, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got := ids(rows); !slices.Equal(got, []string{"2", "1"}) {
		t.Errorf("ids = %v, want [2 1]", got)
	}

	ok, err := s.Delete(ctx, "id", "1")
	if err != nil || !ok {
		t.Fatalf("Delete() = %t, %v", ok, err)
	}
	if got, want := compact(t, s), `[{"id":"2","date":"2020-02-01","content":"World"}]`; got != want {
		t.Errorf("document = %s, want %s", got, want)
	}

	ok, err = s.Delete(ctx, "id", "1")
	if err != nil || ok {
		t.Errorf("second Delete() = %t, %v, want false", ok, err)
	}
}

func TestStoreFormatted(t *testing.T) {
	schema := announcementSchema(t)
	s := newStore(t, schema, nil)
	if _, err := s.InsertBack(t.Context(), announcement(t, schema, "2020-01-01", "Hello")); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	want := "[\n\t{\n\t\t\"id\": \"1\",\n\t\t\"date\": \"2020-01-01\",\n\t\t\"content\": \"Hello\"\n\t}\n]"
	if string(data) != want {
		t.Errorf("document =\n%s\nwant\n%s", data, want)
	}
}

func TestStoreInsertBack(t *testing.T) {
	ctx := t.Context()
	schema := announcementSchema(t)
	s := newStore(t, schema, nil)
	for _, c := range []string{"a", "b", "c"} {
		if _, err := s.InsertBack(ctx, announcement(t, schema, "", c)); err != nil {
			t.Fatal(err)
		}
	}
	rows, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got := ids(rows); !slices.Equal(got, []string{"1", "2", "3"}) {
		t.Errorf("ids = %v", got)
	}
}

func TestStoreInsertIgnoresID(t *testing.T) {
	ctx := t.Context()
	schema := announcementSchema(t)
	s := newStore(t, schema, nil)
	r := announcement(t, schema, "", "x")
	r.SetID("42")
	id, err := s.InsertFront(ctx, r)
	if err != nil {
		t.Fatal(err)
	}
	if id != "1" {
		t.Errorf("id = %q, want 1", id)
	}
	if r.ID() != "42" {
		t.Errorf("InsertFront modified its argument: id = %q", r.ID())
	}
}

func TestStoreIDMonotonic(t *testing.T) {
	ctx := t.Context()
	schema := announcementSchema(t)
	s := newStore(t, schema, nil)
	for range 3 {
		if _, err := s.InsertFront(ctx, announcement(t, schema, "", "x")); err != nil {
			t.Fatal(err)
		}
	}
	// Ids are only reused when the highest one is deleted.
	if ok, err := s.Delete(ctx, "id", "2"); err != nil || !ok {
		t.Fatalf("Delete() = %t, %v", ok, err)
	}
	id, err := s.InsertFront(ctx, announcement(t, schema, "", "y"))
	if err != nil {
		t.Fatal(err)
	}
	if id != "4" {
		t.Errorf("id = %q, want 4", id)
	}
	if ok, err := s.Delete(ctx, "id", "4"); err != nil || !ok {
		t.Fatalf("Delete() = %t, %v", ok, err)
	}
	id, err = s.InsertFront(ctx, announcement(t, schema, "", "z"))
	if err != nil {
		t.Fatal(err)
	}
	if id != "4" {
		t.Errorf("id = %q, want 4", id)
	}
}

func TestStoreUpdate(t *testing.T) {
	ctx := t.Context()
	schema := announcementSchema(t)
	s := newStore(t, schema, nil)
	for _, c := range []string{"a", "b", "c"} {
		if _, err := s.InsertBack(ctx, announcement(t, schema, "", c)); err != nil {
			t.Fatal(err)
		}
	}
	r := announcement(t, schema, "2021-05-05", "B")
	r.SetID("2")
	ok, err := s.Update(ctx, "id", "2", r)
	if err != nil || !ok {
		t.Fatalf("Update() = %t, %v", ok, err)
	}
	want := `[{"id":"1","date":"","content":"a"},{"id":"2","date":"2021-05-05","content":"B"},{"id":"3","date":"","content":"c"}]`
	if got := compact(t, s); got != want {
		t.Errorf("document = %s\nwant %s", got, want)
	}

	before, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	ok, err = s.Update(ctx, "id", "9", r)
	if err != nil || ok {
		t.Errorf("Update() of a missing record = %t, %v", ok, err)
	}
	after, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Error("Update() without a match rewrote the document")
	}
}

func TestStoreMultipleMatches(t *testing.T) {
	ctx := t.Context()
	schema := announcementSchema(t)
	s := newStore(t, schema, nil)
	doc := `[
		{"id":"1","date":"d","content":"first"},
		{"id":"2","date":"d","content":"keep"},
		{"id":"1","date":"d","content":"second"}
	]`
	if err := os.WriteFile(s.Path(), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	r, ok, err := s.FindBy(ctx, "id", "1")
	if err != nil || !ok {
		t.Fatalf("FindBy() = %v, %t, %v", r, ok, err)
	}
	if got := r.Text("content"); got != "second" {
		t.Errorf("FindBy() content = %q, want the last match", got)
	}
	all, err := s.FilterBy(ctx, "date", "d")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("FilterBy() returned %d records", len(all))
	}

	upd := announcement(t, schema, "d", "new")
	upd.SetID("1")
	if ok, err := s.Update(ctx, "id", "1", upd); err != nil || !ok {
		t.Fatalf("Update() = %t, %v", ok, err)
	}
	want := `[{"id":"1","date":"d","content":"new"},{"id":"2","date":"d","content":"keep"},{"id":"1","date":"d","content":"new"}]`
	if got := compact(t, s); got != want {
		t.Errorf("document = %s\nwant %s", got, want)
	}

	if ok, err := s.Delete(ctx, "id", "1"); err != nil || !ok {
		t.Fatalf("Delete() = %t, %v", ok, err)
	}
	if got, want := compact(t, s), `[{"id":"2","date":"d","content":"keep"}]`; got != want {
		t.Errorf("document = %s, want %s", got, want)
	}
}

func TestStoreFindMissing(t *testing.T) {
	schema := announcementSchema(t)
	s := newStore(t, schema, nil)
	r, ok, err := s.FindBy(t.Context(), "id", "1")
	if err != nil || ok || r != nil {
		t.Errorf("FindBy() = %v, %t, %v", r, ok, err)
	}
}

func TestStoreUnknownField(t *testing.T) {
	ctx := t.Context()
	schema := announcementSchema(t)
	s := newStore(t, schema, nil)
	r := announcement(t, schema, "", "x")
	tests := []struct {
		name string
		fn   func() error
	}{
		{"FindBy", func() error { _, _, err := s.FindBy(ctx, "nope", "1"); return err }},
		{"FilterBy", func() error { _, err := s.FilterBy(ctx, "nope", "1"); return err }},
		{"Update", func() error { _, err := s.Update(ctx, "nope", "1", r); return err }},
		{"Delete", func() error { _, err := s.Delete(ctx, "nope", "1"); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !errors.Is(err, ErrUnknownField) {
				t.Errorf("error = %v, want ErrUnknownField", err)
			}
		})
	}
}

func TestStoreSchemaMismatch(t *testing.T) {
	ctx := t.Context()
	s := newStore(t, announcementSchema(t), nil)
	other := announcementSchema(t)
	if _, err := s.InsertFront(ctx, other.NewRecord()); err == nil {
		t.Error("InsertFront() accepted a record of another schema")
	}
	if _, err := s.Update(ctx, "id", "1", other.NewRecord()); err == nil {
		t.Error("Update() accepted a record of another schema")
	}
}

func TestStoreStorageError(t *testing.T) {
	ctx := t.Context()
	schema := announcementSchema(t)
	dir := t.TempDir()

	t.Run("missing", func(t *testing.T) {
		s := New(schema, filepath.Join(dir, "missing.json"), nil)
		if _, err := s.LoadAll(ctx); !errors.Is(err, jsonldb.ErrStorage) {
			t.Errorf("LoadAll() error = %v, want ErrStorage", err)
		}
		if _, err := s.InsertFront(ctx, schema.NewRecord()); !errors.Is(err, jsonldb.ErrStorage) {
			t.Errorf("InsertFront() error = %v, want ErrStorage", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "missing.json")); !os.IsNotExist(err) {
			t.Errorf("InsertFront() created the document: %v", err)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		path := filepath.Join(dir, "invalid.json")
		if err := os.WriteFile(path, []byte(`{"id":"1"}`), 0o644); err != nil {
			t.Fatal(err)
		}
		s := New(schema, path, nil)
		if _, _, err := s.FindBy(ctx, "id", "1"); !errors.Is(err, jsonldb.ErrStorage) {
			t.Errorf("FindBy() error = %v, want ErrStorage", err)
		}
		if err := s.Sort(ctx); !errors.Is(err, jsonldb.ErrStorage) {
			t.Errorf("Sort() error = %v, want ErrStorage", err)
		}
	})
}

func TestStoreSort(t *testing.T) {
	ctx := t.Context()
	schema, err := entity.NewSchema(&entity.Config{
		Name: "Announcement",
		Path: "announcements.json",
		Fields: []entity.Field{
			{Name: "date", Type: entity.FieldDate},
			{Name: "content", Type: entity.FieldTextarea},
		},
		SortKey: "date",
	})
	if err != nil {
		t.Fatal(err)
	}
	s := newStore(t, schema, nil)
	for _, d := range []string{"2020-03-01", "2020-01-01", "2020-02-01"} {
		if _, err := s.InsertBack(ctx, announcement(t, schema, d, d)); err != nil {
			t.Fatal(err)
		}
	}
	dates := func() []string {
		rows, err := s.LoadAll(ctx)
		if err != nil {
			t.Fatal(err)
		}
		out := make([]string, len(rows))
		for i, r := range rows {
			out[i] = r.Text("date")
		}
		return out
	}

	if err := s.Sort(ctx); err != nil {
		t.Fatal(err)
	}
	if got := dates(); !slices.Equal(got, []string{"2020-01-01", "2020-02-01", "2020-03-01"}) {
		t.Errorf("ascending = %v", got)
	}
	schema.SetDirection(entity.Descending)
	if err := s.Sort(ctx); err != nil {
		t.Fatal(err)
	}
	if got := dates(); !slices.Equal(got, []string{"2020-03-01", "2020-02-01", "2020-01-01"}) {
		t.Errorf("descending = %v", got)
	}
}

func TestStoreSortNumericID(t *testing.T) {
	ctx := t.Context()
	schema := announcementSchema(t)
	s := newStore(t, schema, nil)
	for range 11 {
		if _, err := s.InsertFront(ctx, announcement(t, schema, "", "x")); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Sort(ctx); err != nil {
		t.Fatal(err)
	}
	rows, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11"}
	if got := ids(rows); !slices.Equal(got, want) {
		t.Errorf("ids = %v, want %v", got, want)
	}
}

func TestStoreSortEmpty(t *testing.T) {
	s := newStore(t, announcementSchema(t), nil)
	if err := s.Sort(t.Context()); err != nil {
		t.Fatal(err)
	}
	if got := compact(t, s); got != "[]" {
		t.Errorf("document = %s", got)
	}
}

func TestStoreInit(t *testing.T) {
	schema := announcementSchema(t)
	s := newStore(t, schema, nil)
	if _, err := s.InsertFront(t.Context(), schema.NewRecord()); err != nil {
		t.Fatal(err)
	}
	created, err := s.Init(t.Context())
	if err != nil || created {
		t.Errorf("Init() on an existing document = %t, %v", created, err)
	}
	rows, err := s.LoadAll(t.Context())
	if err != nil || len(rows) != 1 {
		t.Errorf("Init() altered the document: %d rows, %v", len(rows), err)
	}
}

type fakeCommitter struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (f *fakeCommitter) Commit(_ context.Context, message string, _ ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	return f.err
}

func TestStoreHistory(t *testing.T) {
	ctx := t.Context()
	schema := announcementSchema(t)
	h := &fakeCommitter{}
	s := newStore(t, schema, h)
	if _, err := s.InsertFront(ctx, announcement(t, schema, "", "x")); err != nil {
		t.Fatal(err)
	}
	// No match, no rewrite, no commit.
	if _, err := s.Delete(ctx, "id", "9"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Delete(ctx, "id", "1"); err != nil {
		t.Fatal(err)
	}
	if err := s.Sort(ctx); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"init: Announcement",
		"insert_front: Announcement 1",
		"delete: Announcement 1",
		"sort: Announcement asc",
	}
	if !slices.Equal(h.messages, want) {
		t.Errorf("commits = %q\nwant %q", h.messages, want)
	}

	t.Run("failure", func(t *testing.T) {
		h := &fakeCommitter{err: errors.New("boom")}
		s := newStore(t, schema, h)
		if _, err := s.InsertFront(ctx, announcement(t, schema, "", "x")); err != nil {
			t.Errorf("InsertFront() returned the history error: %v", err)
		}
	})
}

func TestStoreConcurrentInsert(t *testing.T) {
	ctx := t.Context()
	schema := announcementSchema(t)
	s := newStore(t, schema, nil)
	var wg sync.WaitGroup
	for range 20 {
		wg.Go(func() {
			if _, err := s.InsertFront(ctx, announcement(t, schema, "", "x")); err != nil {
				t.Error(err)
			}
		})
	}
	wg.Wait()
	rows, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	got := ids(rows)
	slices.Sort(got)
	if len(slices.Compact(got)) != 20 {
		t.Errorf("ids = %v, want 20 distinct", ids(rows))
	}
	if MaxID(rows) != 20 {
		t.Errorf("MaxID() = %d, want 20", MaxID(rows))
	}
}

func TestMaxID(t *testing.T) {
	schema := announcementSchema(t)
	tests := []struct {
		ids  []string
		want int
	}{
		{nil, 0},
		{[]string{"1", "3", "2"}, 3},
		{[]string{"", "abc"}, 0},
		{[]string{"12abc", "7"}, 12},
		{[]string{"007"}, 7},
		{[]string{"-5", "2"}, 2},
	}
	for _, tt := range tests {
		rows := make([]*entity.Record, len(tt.ids))
		for i, id := range tt.ids {
			rows[i] = schema.NewRecord()
			rows[i].SetID(id)
		}
		if got := MaxID(rows); got != tt.want {
			t.Errorf("MaxID(%q) = %d, want %d", tt.ids, got, tt.want)
		}
	}
}
