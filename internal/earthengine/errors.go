// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package earthengine

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
)

// ErrNoCredentials is returned when neither a key file nor a base64 key is
// configured and anonymous access is off.
var ErrNoCredentials = errors.New("earthengine: no service account credentials configured")

// maxErrorBodySize bounds how much of an error response is read.
const maxErrorBodySize = 64 * 1024

// APIError is an error returned by the REST API.
type APIError struct {
	StatusCode int    // HTTP status code
	Status     string // canonical status, e.g. INVALID_ARGUMENT
	Message    string
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("earthengine: %d %s: %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("earthengine: %d: %s", e.StatusCode, e.Message)
}

// IsClientError reports whether err is a backend rejection of the request
// itself (4xx other than 429). Such errors say nothing about backend health.
func IsClientError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 &&
		apiErr.StatusCode != http.StatusTooManyRequests
}

// IsNotFound reports whether err is a backend 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsUnavailable reports whether err means the backend could not serve the
// request at all: a 5xx or 429 answer, a transport failure, or an open
// circuit breaker.
func IsUnavailable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return !IsClientError(err)
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return true
	}
	var urlErr *url.Error
	var netErr net.Error
	return errors.As(err, &urlErr) || errors.As(err, &netErr)
}

type errorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// decodeError turns a non-2xx response into an *APIError. Bodies that are not
// a Google error envelope are reported verbatim.
func decodeError(resp *http.Response) *APIError {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil {
		body = []byte("(failed to read response body)")
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}
	var env errorEnvelope
	if json.Unmarshal(body, &env) == nil && env.Error.Message != "" {
		apiErr.Status = env.Error.Status
		apiErr.Message = env.Error.Message
		return apiErr
	}
	apiErr.Message = string(body)
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
