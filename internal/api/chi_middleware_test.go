// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/hydroengine/internal/config"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestNewChiMiddlewareFromConfig(t *testing.T) {
	tests := []struct {
		name       string
		sec        *config.SecurityConfig
		wantReqs   int
		wantWindow time.Duration
		wantOrigin string
	}{
		{
			name:       "nil keeps defaults",
			wantReqs:   100,
			wantWindow: time.Minute,
			wantOrigin: "*",
		},
		{
			name: "configured",
			sec: &config.SecurityConfig{
				RateLimitReqs:   20,
				RateLimitWindow: 30 * time.Second,
				CORSOrigins:     []string{"https://dgds.example"},
			},
			wantReqs:   20,
			wantWindow: 30 * time.Second,
			wantOrigin: "https://dgds.example",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewChiMiddlewareFromConfig(tt.sec)
			if m.config.RateLimitRequests != tt.wantReqs || m.config.RateLimitWindow != tt.wantWindow {
				t.Errorf("rate limit = %d/%v", m.config.RateLimitRequests, m.config.RateLimitWindow)
			}
			if m.config.CORSAllowedOrigins[0] != tt.wantOrigin {
				t.Errorf("origins = %v", m.config.CORSAllowedOrigins)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	m := NewChiMiddleware(&ChiMiddlewareConfig{RateLimitRequests: 2, RateLimitWindow: time.Minute})
	h := m.RateLimit()(okHandler())

	var codes []int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/get_bathymetry", nil)
		req.RemoteAddr = "203.0.113.7:4000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests && !strings.Contains(rec.Body.String(), ErrCodeTooManyRequests) {
			t.Errorf("429 body = %s", rec.Body.String())
		}
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}

	// Another client has its own budget.
	req := httptest.NewRequest(http.MethodGet, "/get_bathymetry", nil)
	req.RemoteAddr = "203.0.113.8:4000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("second client status = %d", rec.Code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	m := NewChiMiddleware(&ChiMiddlewareConfig{RateLimitRequests: 1, RateLimitWindow: time.Minute, RateLimitDisabled: true})
	h := m.RateLimitExport()(okHandler())
	for i := 0; i < 20; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/start_water_velocity_jobs", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
}

func TestExportLimitIsStricter(t *testing.T) {
	if RateLimitExport.Requests >= RateLimitAPI.Requests || RateLimitHealth.Requests <= RateLimitAPI.Requests {
		t.Errorf("limits: api %d, export %d, health %d", RateLimitAPI.Requests, RateLimitExport.Requests, RateLimitHealth.Requests)
	}
}

func TestAPISecurityHeaders(t *testing.T) {
	h := APISecurityHeaders()(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS sent over plain HTTP")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Strict-Transport-Security") == "" {
		t.Error("HSTS missing behind TLS proxy")
	}
}

func TestCORS(t *testing.T) {
	m := NewChiMiddleware(nil)
	h := m.CORS()(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/get_bathymetry", nil)
	req.Header.Set("Origin", "https://viewer.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}
