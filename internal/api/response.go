// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/hydroengine/internal/earthengine"
	"github.com/tomtom215/hydroengine/internal/hydro"
	"github.com/tomtom215/hydroengine/internal/logging"
	"github.com/tomtom215/hydroengine/internal/validation"
)

// APIResponse is the standardized response wrapper for /api/v1 endpoints and
// for every error response.
type APIResponse struct {
	// Success indicates whether the request was successful
	Success bool `json:"success"`

	// Message repeats Error.Message at the top level on failures. hydro-engine
	// clients read this field.
	Message string `json:"message,omitempty"`

	// Data contains the response payload (null on error)
	Data interface{} `json:"data,omitempty"`

	// Error contains error details (null on success)
	Error *APIError `json:"error,omitempty"`

	// Meta contains optional metadata about the response
	Meta *APIMeta `json:"meta,omitempty"`
}

// APIError represents an error response.
type APIError struct {
	// Code is a machine-readable error code
	Code string `json:"code"`

	// Type classifies the failure the way hydro-engine did: InvalidUsage,
	// BackendError or UnexpectedException.
	Type string `json:"type"`

	// Message is a human-readable error message
	Message string `json:"message"`

	// Details contains additional error details (optional)
	Details interface{} `json:"details,omitempty"`

	// RequestID is the request ID for tracing
	RequestID string `json:"request_id,omitempty"`
}

// APIMeta contains optional response metadata.
type APIMeta struct {
	RequestID  string    `json:"request_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"duration_ms,omitempty"`
}

// Error codes for API responses
const (
	ErrCodeBadRequest          = "BAD_REQUEST"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeMethodNotAllowed    = "METHOD_NOT_ALLOWED"
	ErrCodeRequestTooLarge     = "REQUEST_TOO_LARGE"
	ErrCodeTooManyRequests     = "TOO_MANY_REQUESTS"
	ErrCodeInternalError       = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable  = "SERVICE_UNAVAILABLE"
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
	ErrCodeBackendRejected     = "BACKEND_REJECTED"
	ErrCodeExternalServiceFail = "EXTERNAL_SERVICE_FAILED"
)

// Error types.
const (
	TypeInvalidUsage        = "InvalidUsage"
	TypeBackendError        = "BackendError"
	TypeUnexpectedException = "UnexpectedException"
)

// plainText is a handler result written as text/plain on legacy routes.
type plainText string

// ResponseWriter provides methods for writing standardized API responses.
type ResponseWriter struct {
	w         http.ResponseWriter
	r         *http.Request
	startTime time.Time
}

// NewResponseWriter creates a new response writer.
func NewResponseWriter(w http.ResponseWriter, r *http.Request) *ResponseWriter {
	return &ResponseWriter{
		w:         w,
		r:         r,
		startTime: time.Now(),
	}
}

func (rw *ResponseWriter) meta() *APIMeta {
	return &APIMeta{
		RequestID:  logging.RequestIDFromContext(rw.r.Context()),
		Timestamp:  time.Now(),
		DurationMs: time.Since(rw.startTime).Milliseconds(),
	}
}

// Success writes a 200 envelope around data.
func (rw *ResponseWriter) Success(data interface{}) {
	if text, ok := data.(plainText); ok {
		data = string(text)
	}
	rw.writeJSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
		Meta:    rw.meta(),
	})
}

// Error writes an error response with the given status code.
func (rw *ResponseWriter) Error(statusCode int, code, errType, message string) {
	rw.ErrorWithDetails(statusCode, code, errType, message, nil)
}

// ErrorWithDetails writes an error response with additional details.
func (rw *ResponseWriter) ErrorWithDetails(statusCode int, code, errType, message string, details interface{}) {
	meta := rw.meta()
	rw.writeJSON(statusCode, APIResponse{
		Success: false,
		Message: message,
		Error: &APIError{
			Code:      code,
			Type:      errType,
			Message:   message,
			Details:   details,
			RequestID: meta.RequestID,
		},
		Meta: meta,
	})
}

// writeJSON writes JSON response with proper headers.
func (rw *ResponseWriter) writeJSON(statusCode int, data interface{}) {
	writeJSON(rw.w, statusCode, data)
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeLegacy writes a handler result without the envelope.
func writeLegacy(w http.ResponseWriter, data interface{}) {
	if text, ok := data.(plainText); ok {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(text)); err != nil {
			logging.Error().Err(err).Msg("Failed to write response")
		}
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// writeError maps err onto a status code and error body. It is the only
// place where domain and backend errors become HTTP.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	rw := NewResponseWriter(w, r)

	var verr *validation.RequestValidationError
	var uerr *hydro.UsageError
	var aerr *earthengine.APIError

	// Exports accepted before a failed one keep running; their ids go back
	// to the client with the error.
	var partial map[string]interface{}
	var serr *hydro.ExportSubmitError
	if errors.As(err, &serr) {
		partial = map[string]interface{}{
			"failed_export":   serr.Failed,
			"submitted_tasks": serr.Submitted,
		}
	}

	switch {
	case errors.As(err, &verr):
		rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeValidationFailed, TypeInvalidUsage, verr.Error(), verr.Details())

	case errors.Is(err, ErrBodyTooLarge):
		rw.Error(http.StatusRequestEntityTooLarge, ErrCodeRequestTooLarge, TypeInvalidUsage, err.Error())

	case errors.Is(err, ErrInvalidJSON):
		rw.Error(http.StatusBadRequest, ErrCodeBadRequest, TypeInvalidUsage, err.Error())

	case errors.As(err, &uerr):
		status := uerr.HTTPStatus()
		code := ErrCodeBadRequest
		if status == http.StatusNotFound {
			code = ErrCodeNotFound
		}
		rw.Error(status, code, TypeInvalidUsage, uerr.Message)

	case earthengine.IsClientError(err) && errors.As(err, &aerr):
		logging.CtxDebug(r.Context()).Err(err).Msg("Backend rejected request")
		details := map[string]interface{}{"status": aerr.Status, "code": aerr.StatusCode}
		for k, v := range partial {
			details[k] = v
		}
		rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeBackendRejected, TypeBackendError, aerr.Message, details)

	case earthengine.IsUnavailable(err):
		logging.CtxErr(r.Context(), err).Msg("Backend unavailable")
		rw.ErrorWithDetails(http.StatusBadGateway, ErrCodeExternalServiceFail, TypeBackendError, "Geo-compute backend unavailable", optionalDetails(partial))

	default:
		logging.CtxErr(r.Context(), err).Str("path", logging.SanitizeValue(r.URL.Path)).Msg("Unexpected error")
		rw.ErrorWithDetails(http.StatusInternalServerError, ErrCodeInternalError, TypeUnexpectedException, "An unexpected error occurred", optionalDetails(partial))
	}
}

// optionalDetails keeps an empty map out of the body.
func optionalDetails(d map[string]interface{}) interface{} {
	if len(d) == 0 {
		return nil
	}
	return d
}

// writeAuthError renders authentication failures for auth.Middleware.
func writeAuthError(w http.ResponseWriter, r *http.Request, status int, message string) {
	NewResponseWriter(w, r).Error(status, ErrCodeUnauthorized, TypeInvalidUsage, message)
}
