// Provides the adapter turning typed handler functions into http.Handlers.

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"

	apierrors "github.com/maruel/jsoncms/internal/errors"
)

// maxBodyBytes bounds request bodies. Form submissions are small.
const maxBodyBytes = 1 << 20

// Wrap wraps a handler function to work as an http.Handler.
// The function must have signature: func(context.Context, In) (*Out, error)
// where In can be unmarshalled from JSON and Out is a struct.
// Path parameters can be extracted by tagging struct fields with `path:"name"`
// and query parameters with `query:"name"`.
//
// Example:
//
//	type RecordRequest struct {
//	    Type string `path:"type"`
//	    ID   string `path:"id"`
//	}
//
//	func (h *EntityHandler) EditForm(ctx context.Context, req RecordRequest) (*render.Form, error)
func Wrap[In any, Out any](fn func(context.Context, In) (*Out, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err2 := r.Body.Close(); err == nil {
			err = err2
		}
		if err != nil {
			slog.ErrorContext(ctx, "Failed to read request body", "err", err)
			writeError(w, apierrors.BadRequest("Failed to read request body"))
			return
		}
		var input In
		if len(body) > 0 {
			d := json.NewDecoder(bytes.NewReader(body))
			d.DisallowUnknownFields()
			if err := d.Decode(&input); err != nil {
				slog.ErrorContext(ctx, "Failed to decode request body", "err", err)
				writeError(w, apierrors.BadRequest("Invalid request body"))
				return
			}
		}

		populatePathParams(r, &input)
		populateQueryParams(r, &input)

		output, err := fn(ctx, input)
		if err != nil {
			apiErr := apierrors.FromError(err)
			if apiErr.StatusCode() >= http.StatusInternalServerError {
				slog.ErrorContext(ctx, "Handler error", "err", err, "statusCode", apiErr.StatusCode(), "code", apiErr.Code())
			} else {
				slog.InfoContext(ctx, "Request rejected", "err", err, "statusCode", apiErr.StatusCode(), "code", apiErr.Code())
			}
			writeError(w, apiErr)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(output); err != nil {
			slog.ErrorContext(ctx, "Failed to encode response", "err", err)
		}
	})
}

// populatePathParams sets the string fields tagged with `path:"paramName"`.
func populatePathParams(r *http.Request, input any) {
	elem, ok := structElem(input)
	if !ok {
		return
	}
	typ := elem.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		tag := field.Tag.Get("path")
		if tag == "" || field.Type.Kind() != reflect.String {
			continue
		}
		if v := r.PathValue(tag); v != "" {
			elem.Field(i).SetString(v)
		}
	}
}

// populateQueryParams sets the string and int fields tagged with
// `query:"paramName"`. Unparsable integers are ignored.
func populateQueryParams(r *http.Request, input any) {
	elem, ok := structElem(input)
	if !ok {
		return
	}
	query := r.URL.Query()
	typ := elem.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		tag := field.Tag.Get("query")
		if tag == "" {
			continue
		}
		v := query.Get(tag)
		if v == "" {
			continue
		}
		//nolint:exhaustive // Only string and int are supported for query params
		switch field.Type.Kind() {
		case reflect.String:
			elem.Field(i).SetString(v)
		case reflect.Int:
			if n, err := strconv.Atoi(v); err == nil {
				elem.Field(i).SetInt(int64(n))
			}
		default:
		}
	}
}

func structElem(input any) (reflect.Value, bool) {
	val := reflect.ValueOf(input)
	if val.Kind() != reflect.Pointer {
		return reflect.Value{}, false
	}
	elem := val.Elem()
	return elem, elem.Kind() == reflect.Struct
}

// writeError writes an API error as JSON. The wrapped cause is not sent.
func writeError(w http.ResponseWriter, e *apierrors.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode())
	response := map[string]any{
		"error": map[string]any{
			"code":    e.Code(),
			"message": e.Message(),
		},
	}
	if d := e.Details(); len(d) > 0 {
		response["details"] = d
	}
	_ = json.NewEncoder(w).Encode(response)
}
