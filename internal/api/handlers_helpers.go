// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/hydroengine/internal/validation"
)

// operation runs one API call and returns its result. The same operation
// backs the legacy route and the /api/v1 route.
type operation func(r *http.Request) (interface{}, error)

// defaulter is implemented by request types with optional fields.
type defaulter interface {
	SetDefaults()
}

// decodeRequest reads the JSON body into dst, applies defaults and validates.
// An empty body decodes to the zero request so validation reports the
// missing fields.
func decodeRequest(r *http.Request, dst interface{}) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return ErrBodyTooLarge
		}
		return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, dst); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
	}

	if d, ok := dst.(defaulter); ok {
		d.SetDefaults()
	}
	if verr := validation.ValidateStruct(dst); verr != nil {
		return verr
	}
	return nil
}

// handle adapts a service method taking a request struct into an operation.
func handle[Req, Resp any](fn func(context.Context, *Req) (Resp, error)) operation {
	return func(r *http.Request) (interface{}, error) {
		req := new(Req)
		if err := decodeRequest(r, req); err != nil {
			return nil, err
		}
		return fn(r.Context(), req)
	}
}

// legacy serves op without the response envelope.
func legacy(op operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := op(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeLegacy(w, out)
	}
}

// envelope serves op inside the {success, data, meta} envelope.
func envelope(op operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rw := NewResponseWriter(w, r)
		out, err := op(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		rw.Success(out)
	}
}
