// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/tomtom215/hydroengine/internal/config"
	"github.com/tomtom215/hydroengine/internal/logging"
)

type contextKey string

// ClaimsContextKey holds the *Claims of an authenticated request.
const ClaimsContextKey contextKey = "claims"

// ErrorWriter writes an authentication failure. The API package supplies one
// that renders its standard error body.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, status int, message string)

// Middleware enforces bearer tokens on the routes it wraps.
type Middleware struct {
	jwtManager *JWTManager
	authMode   string
	onError    ErrorWriter
}

// NewMiddleware creates the authentication middleware. jwtManager may be nil
// in none mode.
func NewMiddleware(jwtManager *JWTManager, authMode string) *Middleware {
	if authMode == "" {
		authMode = config.AuthModeNone
	}
	return &Middleware{
		jwtManager: jwtManager,
		authMode:   authMode,
		onError:    plainError,
	}
}

// SetErrorWriter replaces the default plain-text error writer.
func (m *Middleware) SetErrorWriter(fn ErrorWriter) {
	if fn != nil {
		m.onError = fn
	}
}

// Enabled reports whether tokens are checked at all.
func (m *Middleware) Enabled() bool {
	return m.authMode != config.AuthModeNone
}

// RequireToken rejects requests without a valid Authorization: Bearer token.
func (m *Middleware) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.Enabled() {
			next.ServeHTTP(w, r)
			return
		}
		if m.jwtManager == nil {
			logging.CtxWarn(r.Context()).Msg("JWT auth enabled without a token manager")
			m.onError(w, r, http.StatusUnauthorized, "Unauthorized: authentication unavailable")
			return
		}

		tokenString, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			m.onError(w, r, http.StatusUnauthorized, "Unauthorized: bearer token required")
			return
		}

		claims, err := m.jwtManager.ValidateToken(tokenString)
		if err != nil {
			logging.CtxDebug(r.Context()).Err(err).Msg("Token validation failed")
			m.onError(w, r, http.StatusUnauthorized, "Unauthorized: invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClaimsFromContext returns the claims stored by RequireToken.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*Claims)
	return claims, ok
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

func plainError(w http.ResponseWriter, _ *http.Request, status int, message string) {
	http.Error(w, message, status)
}
