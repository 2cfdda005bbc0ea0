package jsonldb

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/maruel/jsoncms/internal/jsonfmt"
)

// ErrStorage is wrapped by every error caused by a missing, unreadable,
// malformed or unwritable document.
var ErrStorage = errors.New("storage error")

// Decoder turns one decoded JSON object into a row.
type Decoder[T any] func(map[string]any) T

// Document is one JSON array file of rows of type T.
//
// Rows are encoded with encoding/json, so T controls its own representation
// through MarshalJSON.
type Document[T any] struct {
	path   string
	decode Decoder[T]
	mu     sync.RWMutex
}

// NewDocument returns a Document for the file at path. The file is not
// accessed until the first call.
func NewDocument[T any](path string, decode Decoder[T]) *Document[T] {
	return &Document[T]{path: path, decode: decode}
}

// Path returns the file location.
func (d *Document[T]) Path() string {
	return d.path
}

// Init creates the document as an empty array if it does not exist. It
// reports whether the file was created.
func (d *Document[T]) Init() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := os.Stat(d.path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("%w: failed to stat %s: %v", ErrStorage, d.path, err)
	}
	if err := os.MkdirAll(filepath.Dir(d.path), 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return false, fmt.Errorf("%w: failed to create directory for %s: %v", ErrStorage, d.path, err)
	}
	if err := d.write([]T{}); err != nil {
		return false, err
	}
	return true, nil
}

// Load returns all rows in document order.
func (d *Document[T]) Load() ([]T, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.load()
}

// Modify runs a read-modify-write cycle under the document lock.
//
// fn receives the current rows and returns the new rows and whether the
// document must be rewritten. When fn returns an error or false, the file is
// left untouched. Modify reports whether the file was rewritten.
func (d *Document[T]) Modify(fn func(rows []T) ([]T, bool, error)) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rows, err := d.load()
	if err != nil {
		return false, err
	}
	rows, changed, err := fn(rows)
	if err != nil || !changed {
		return false, err
	}
	if rows == nil {
		rows = []T{}
	}
	if err := d.write(rows); err != nil {
		return false, err
	}
	return true, nil
}

func (d *Document[T]) load() ([]T, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", ErrStorage, d.path, err)
	}
	return Decode(d.path, data, d.decode)
}

// Decode parses the content of a document, e.g. an earlier revision of it.
// name identifies the document in errors, which wrap ErrStorage.
func Decode[T any](name string, data []byte, decode Decoder[T]) ([]T, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrStorage, name, err)
	}
	if raw == nil {
		// "null" decodes without error but is not a document.
		return nil, fmt.Errorf("%w: %s is not a JSON array", ErrStorage, name)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data in %s", ErrStorage, name)
	}
	rows := make([]T, 0, len(raw))
	for i, obj := range raw {
		if obj == nil {
			return nil, fmt.Errorf("%w: %s: element %d is not an object", ErrStorage, name, i)
		}
		rows = append(rows, decode(obj))
	}
	return rows, nil
}

// write replaces the file with rows. The lock must be held.
func (d *Document[T]) write(rows []T) error {
	data, err := jsonfmt.Marshal(rows)
	if err != nil {
		return fmt.Errorf("%w: failed to encode %s: %v", ErrStorage, d.path, err)
	}
	f, err := os.CreateTemp(filepath.Dir(d.path), "."+filepath.Base(d.path)+".*")
	if err != nil {
		return fmt.Errorf("%w: failed to create temporary file for %s: %v", ErrStorage, d.path, err)
	}
	tmp := f.Name()
	defer func() {
		_ = os.Remove(tmp)
	}()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: failed to write %s: %v", ErrStorage, d.path, err)
	}
	if err := f.Chmod(0o644); err != nil { //nolint:gosec // G302: documents are meant to be readable
		_ = f.Close()
		return fmt.Errorf("%w: failed to chmod %s: %v", ErrStorage, d.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: failed to close %s: %v", ErrStorage, d.path, err)
	}
	if err := os.Rename(tmp, d.path); err != nil {
		return fmt.Errorf("%w: failed to replace %s: %v", ErrStorage, d.path, err)
	}
	return nil
}
