// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package middleware

import (
	"net/http"
	"time"

	"github.com/tomtom215/hydroengine/internal/logging"
)

// RequestIDHeader is echoed back on every response.
const RequestIDHeader = "X-Request-ID"

// RequestID accepts an upstream X-Request-ID or generates one, and stores it
// in the logging context together with a fresh correlation id.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = logging.GenerateRequestID()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := logging.ContextWithRequestID(r.Context(), id)
		ctx = logging.ContextWithNewCorrelationID(ctx)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AccessLog logs one line per request. Requests slower than slow are logged
// at warn level.
func AccessLog(slow time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			elapsed := time.Since(start)

			ev := logging.CtxInfo(r.Context())
			if slow > 0 && elapsed > slow {
				ev = logging.CtxWarn(r.Context()).Bool("slow", true)
			}
			ev.Str("method", r.Method).
				Str("path", logging.SanitizeValue(r.URL.Path)).
				Int("status", rec.status).
				Int("bytes", rec.bytes).
				Dur("duration", elapsed).
				Msg("request")
		})
	}
}
