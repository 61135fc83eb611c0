// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package api

import "errors"

// Sentinel errors for request decoding.
var (
	// ErrInvalidJSON is returned when the request body is not valid JSON for
	// the endpoint's request type.
	ErrInvalidJSON = errors.New("invalid JSON request body")

	// ErrBodyTooLarge is returned when the request body exceeds MaxBodyBytes.
	ErrBodyTooLarge = errors.New("request body too large")
)
