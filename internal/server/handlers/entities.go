// Package handlers implements the JSON endpoints over the admin service.
package handlers

import (
	"context"

	"github.com/invopop/jsonschema"

	"github.com/maruel/jsoncms/internal/admin"
	"github.com/maruel/jsoncms/internal/entity"
	apierrors "github.com/maruel/jsoncms/internal/errors"
	"github.com/maruel/jsoncms/internal/render"
	"github.com/maruel/jsoncms/internal/storage/git"
)

// defaultHistoryLimit is used when the history request has no limit.
const defaultHistoryLimit = 20

// EntityHandler handles the entity type endpoints.
type EntityHandler struct {
	svc *admin.Service
}

// NewEntityHandler creates a new entity handler.
func NewEntityHandler(svc *admin.Service) *EntityHandler {
	return &EntityHandler{svc: svc}
}

// Request types

// TypesRequest is a request to list the entity types.
type TypesRequest struct{}

// TypeRequest names an entity type.
type TypeRequest struct {
	Type string `path:"type"`
}

// RecordsRequest is a request to list records, optionally filtered.
type RecordsRequest struct {
	Type  string `path:"type"`
	Field string `query:"field"`
	Value string `query:"value"`
}

// RecordRequest names one record.
type RecordRequest struct {
	Type string `path:"type"`
	ID   string `path:"id"`
}

// SubmitRequest carries the raw form values of a create or update.
type SubmitRequest struct {
	Type   string            `json:"-" path:"type"`
	ID     string            `json:"-" path:"id"`
	Values map[string]string `json:"values"`
}

// SortRequest is a request to sort a type's document.
type SortRequest struct {
	Type      string `json:"-" path:"type"`
	Direction string `json:"direction,omitempty"`
}

// HistoryRequest is a request for the commits of a type's document.
type HistoryRequest struct {
	Type  string `path:"type"`
	Limit int    `query:"limit"`
}

// RevisionRequest names one commit of a type's document.
type RevisionRequest struct {
	Type string `path:"type"`
	Hash string `path:"hash"`
}

// Response types

// TypesResponse lists the registered entity types.
type TypesResponse struct {
	Types []string `json:"types"`
}

// RecordsResponse lists records.
type RecordsResponse struct {
	Records []*entity.Record `json:"records"`
}

// CreateResponse returns the id assigned to a new record.
type CreateResponse struct {
	ID string `json:"id"`
}

// OKResponse acknowledges a change.
type OKResponse struct {
	OK bool `json:"ok"`
}

// RevisionResponse holds the records of a document as of a commit.
type RevisionResponse struct {
	Hash    string           `json:"hash"`
	Records []*entity.Record `json:"records"`
}

// HistoryResponse lists commits, newest first.
type HistoryResponse struct {
	Commits []git.Commit `json:"commits"`
}

// Types returns the registered type names.
func (h *EntityHandler) Types(ctx context.Context, req TypesRequest) (*TypesResponse, error) {
	return &TypesResponse{Types: h.svc.Types()}, nil
}

// ListView returns the table of a type.
func (h *EntityHandler) ListView(ctx context.Context, req TypeRequest) (*render.Table, error) {
	return h.svc.ListView(ctx, req.Type)
}

// Schema returns the JSON Schema of a type's backing document.
func (h *EntityHandler) Schema(ctx context.Context, req TypeRequest) (*jsonschema.Schema, error) {
	s, err := h.svc.Schema(req.Type)
	if err != nil {
		return nil, err
	}
	return s.JSONSchema(), nil
}

// Records returns the records of a type.
func (h *EntityHandler) Records(ctx context.Context, req RecordsRequest) (*RecordsResponse, error) {
	if req.Field == "" && req.Value != "" {
		return nil, apierrors.BadRequest("value requires field")
	}
	rows, err := h.svc.Records(ctx, req.Type, req.Field, req.Value)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []*entity.Record{}
	}
	return &RecordsResponse{Records: rows}, nil
}

// CreateForm returns the form of a new record.
func (h *EntityHandler) CreateForm(ctx context.Context, req TypeRequest) (*render.Form, error) {
	return h.svc.CreateForm(req.Type)
}

// EditForm returns the form of an existing record.
func (h *EntityHandler) EditForm(ctx context.Context, req RecordRequest) (*render.Form, error) {
	f, ok, err := h.svc.EditForm(ctx, req.Type, req.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierrors.NothingTo("edit", req.Type, req.ID)
	}
	return f, nil
}

// Create adds a record.
func (h *EntityHandler) Create(ctx context.Context, req SubmitRequest) (*CreateResponse, error) {
	id, err := h.svc.SubmitCreate(ctx, req.Type, req.Values)
	if err != nil {
		return nil, err
	}
	return &CreateResponse{ID: id}, nil
}

// Update replaces a record.
func (h *EntityHandler) Update(ctx context.Context, req SubmitRequest) (*OKResponse, error) {
	ok, err := h.svc.SubmitUpdate(ctx, req.Type, req.ID, req.Values)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierrors.NothingTo("edit", req.Type, req.ID)
	}
	return &OKResponse{OK: true}, nil
}

// Delete removes a record.
func (h *EntityHandler) Delete(ctx context.Context, req RecordRequest) (*OKResponse, error) {
	ok, err := h.svc.SubmitDelete(ctx, req.Type, req.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierrors.NothingTo("delete", req.Type, req.ID)
	}
	return &OKResponse{OK: true}, nil
}

// Sort sorts a type's document and returns the resulting table.
func (h *EntityHandler) Sort(ctx context.Context, req SortRequest) (*render.Table, error) {
	if err := h.svc.SubmitSort(ctx, req.Type, req.Direction); err != nil {
		return nil, err
	}
	return h.svc.ListView(ctx, req.Type)
}

// History returns the commits of a type's document.
func (h *EntityHandler) History(ctx context.Context, req HistoryRequest) (*HistoryResponse, error) {
	n := req.Limit
	if n <= 0 {
		n = defaultHistoryLimit
	}
	commits, err := h.svc.History(ctx, req.Type, n)
	if err != nil {
		return nil, err
	}
	return &HistoryResponse{Commits: commits}, nil
}

// Revision returns the records of a type's document as of a commit.
func (h *EntityHandler) Revision(ctx context.Context, req RevisionRequest) (*RevisionResponse, error) {
	rows, err := h.svc.Revision(ctx, req.Type, req.Hash)
	if err != nil {
		return nil, err
	}
	return &RevisionResponse{Hash: req.Hash, Records: rows}, nil
}
