// Package registry maps entity type names to their schema and store.
//
// A Registry is built once at start-up by [Build] from a list of
// definitions and then handed to whoever dispatches requests. It is not
// modified afterwards.
package registry

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"

	"github.com/maruel/jsoncms/internal/entity"
	"github.com/maruel/jsoncms/internal/storage"
)

var (
	// ErrConflict is returned when a name is registered twice with different
	// definitions.
	ErrConflict = errors.New("entity type already registered")
	// ErrUnknownType is wrapped by callers when a type name does not resolve.
	ErrUnknownType = errors.New("unknown entity type")
)

// Entry is a registered entity type.
type Entry struct {
	Schema *entity.Schema
	Store  *storage.Store

	cfg entity.Config
}

// Registry holds the registered entity types in registration order.
type Registry struct {
	dataDir string
	history storage.Committer
	names   []string
	entries map[string]*Entry
}

// New returns an empty registry. Relative document paths are resolved
// against dataDir. history may be nil.
func New(dataDir string, history storage.Committer) *Registry {
	return &Registry{
		dataDir: dataDir,
		history: history,
		entries: make(map[string]*Entry),
	}
}

// Build returns a registry holding every definition in defs.
func Build(dataDir string, history storage.Committer, defs []entity.Config) (*Registry, error) {
	r := New(dataDir, history)
	for i := range defs {
		if err := r.Register(&defs[i]); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register validates cfg and adds it. Registering the same definition again
// is a no-op.
func (r *Registry) Register(cfg *entity.Config) error {
	if e, ok := r.entries[cfg.Name]; ok {
		if reflect.DeepEqual(e.cfg, *cfg) {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrConflict, cfg.Name)
	}
	schema, err := entity.NewSchema(cfg)
	if err != nil {
		return err
	}
	path := schema.Path()
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.dataDir, path)
	}
	r.entries[cfg.Name] = &Entry{
		Schema: schema,
		Store:  storage.New(schema, path, r.history),
		cfg:    *cfg,
	}
	r.names = append(r.names, cfg.Name)
	return nil
}

// Resolve returns the entry registered under name.
func (r *Registry) Resolve(name string) (*Entry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

// Names returns the registered type names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}
