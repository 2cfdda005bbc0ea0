// Package admin implements the content management operations on top of the
// registry, the stores and the renderers.
//
// Absent records are reported with a boolean. Only an unknown type name and
// storage failures are errors.
package admin

import (
	"context"
	"fmt"

	"github.com/maruel/jsoncms/internal/entity"
	"github.com/maruel/jsoncms/internal/jsonldb"
	"github.com/maruel/jsoncms/internal/registry"
	"github.com/maruel/jsoncms/internal/render"
	"github.com/maruel/jsoncms/internal/storage/git"
)

// History reads the commits of a backing document and its earlier content.
type History interface {
	History(ctx context.Context, path string, n int) ([]git.Commit, error)
	FileAt(ctx context.Context, hash, path string) ([]byte, error)
}

// Service handles content management operations.
type Service struct {
	reg     *registry.Registry
	history History
}

// NewService creates a new service. history may be nil.
func NewService(reg *registry.Registry, history History) *Service {
	return &Service{reg: reg, history: history}
}

// Types returns the registered type names in registration order.
func (s *Service) Types() []string {
	return s.reg.Names()
}

// Schema returns the schema of a type.
func (s *Service) Schema(typeName string) (*entity.Schema, error) {
	e, err := s.resolve(typeName)
	if err != nil {
		return nil, err
	}
	return e.Schema, nil
}

// ListView returns the table of every record of a type, in document order.
func (s *Service) ListView(ctx context.Context, typeName string) (*render.Table, error) {
	e, err := s.resolve(typeName)
	if err != nil {
		return nil, err
	}
	rows, err := e.Store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	return render.RenderList(e.Schema, rows), nil
}

// Records returns the records of a type, restricted to those whose field
// equals value when field is not empty.
func (s *Service) Records(ctx context.Context, typeName, field, value string) ([]*entity.Record, error) {
	e, err := s.resolve(typeName)
	if err != nil {
		return nil, err
	}
	if field == "" {
		return e.Store.LoadAll(ctx)
	}
	return e.Store.FilterBy(ctx, field, value)
}

// CreateForm returns the form of a new record.
func (s *Service) CreateForm(typeName string) (*render.Form, error) {
	e, err := s.resolve(typeName)
	if err != nil {
		return nil, err
	}
	return render.RenderEditForm(e.Schema, e.Schema.NewRecord()), nil
}

// EditForm returns the form of the record with the given id. It reports false
// when there is no such record.
func (s *Service) EditForm(ctx context.Context, typeName, id string) (*render.Form, bool, error) {
	e, err := s.resolve(typeName)
	if err != nil {
		return nil, false, err
	}
	r, ok, err := e.Store.FindBy(ctx, entity.IDField, id)
	if err != nil || !ok {
		return nil, false, err
	}
	return render.RenderEditForm(e.Schema, r), true, nil
}

// SubmitCreate adds the submitted record at the front of the document and
// returns its id. A submitted id is ignored.
func (s *Service) SubmitCreate(ctx context.Context, typeName string, raw map[string]string) (string, error) {
	e, err := s.resolve(typeName)
	if err != nil {
		return "", err
	}
	return e.Store.InsertFront(ctx, render.ParseSubmission(e.Schema, raw))
}

// SubmitUpdate replaces the record with the given id. The id in raw, if any,
// is overridden. It reports false when there is no such record.
func (s *Service) SubmitUpdate(ctx context.Context, typeName, id string, raw map[string]string) (bool, error) {
	e, err := s.resolve(typeName)
	if err != nil {
		return false, err
	}
	r := render.ParseSubmission(e.Schema, raw)
	r.SetID(id)
	return e.Store.Update(ctx, entity.IDField, id, r)
}

// SubmitDelete removes the record with the given id. It reports false when
// there is no such record.
func (s *Service) SubmitDelete(ctx context.Context, typeName, id string) (bool, error) {
	e, err := s.resolve(typeName)
	if err != nil {
		return false, err
	}
	return e.Store.Delete(ctx, entity.IDField, id)
}

// SubmitSort sorts the document of a type. A non-empty direction is parsed by
// entity.ParseDirection and kept for later sorts and list views.
func (s *Service) SubmitSort(ctx context.Context, typeName, direction string) error {
	e, err := s.resolve(typeName)
	if err != nil {
		return err
	}
	if direction != "" {
		e.Schema.SetDirection(entity.ParseDirection(direction))
	}
	return e.Store.Sort(ctx)
}

// History returns at most n commits of a type's document, newest first. It is
// empty when history is disabled.
func (s *Service) History(ctx context.Context, typeName string, n int) ([]git.Commit, error) {
	e, err := s.resolve(typeName)
	if err != nil {
		return nil, err
	}
	if s.history == nil {
		return []git.Commit{}, nil
	}
	return s.history.History(ctx, e.Store.Path(), n)
}

// Revision returns the records of a type's document as of the commit hash.
// Errors wrap git.ErrRevisionNotFound when the commit or the document at that
// commit does not exist, including when history is disabled.
func (s *Service) Revision(ctx context.Context, typeName, hash string) ([]*entity.Record, error) {
	e, err := s.resolve(typeName)
	if err != nil {
		return nil, err
	}
	if s.history == nil {
		return nil, fmt.Errorf("%w: history is disabled", git.ErrRevisionNotFound)
	}
	data, err := s.history.FileAt(ctx, hash, e.Store.Path())
	if err != nil {
		return nil, err
	}
	return jsonldb.Decode(e.Store.Path()+"@"+hash, data, e.Schema.FromMap)
}

func (s *Service) resolve(typeName string) (*registry.Entry, error) {
	e, ok := s.reg.Resolve(typeName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", registry.ErrUnknownType, typeName)
	}
	return e, nil
}
