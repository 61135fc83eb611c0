// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/hydroengine/internal/logging"
)

// readyTimeout bounds the backend check of the readiness probe.
const readyTimeout = 5 * time.Second

// HealthStatus is the body of /health.
type HealthStatus struct {
	Status         string  `json:"status"`
	Version        string  `json:"version"`
	BackendReady   bool    `json:"backend_ready"`
	MapCache       bool    `json:"map_cache"`
	TrackedExports bool    `json:"tracked_exports"`
	Uptime         float64 `json:"uptime"`
}

func (h *Handler) backendReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	return h.svc.Backend().Ping(ctx)
}

// Health reports overall status. It always answers 200; a backend without
// credentials shows up as "degraded".
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	err := h.backendReady(r.Context())
	status := "healthy"
	if err != nil {
		status = "degraded"
		logging.CtxWarn(r.Context()).Err(err).Msg("Health check: backend not ready")
	}

	NewResponseWriter(w, r).Success(HealthStatus{
		Status:         status,
		Version:        h.version,
		BackendReady:   err == nil,
		MapCache:       h.svc.HasMapCache(),
		TrackedExports: h.svc.Tracker() != nil,
		Uptime:         time.Since(h.startTime).Seconds(),
	})
}

// HealthLive is the liveness probe: 200 while the process runs.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady is the readiness probe: 200 once the backend token source
// yields a token, 503 otherwise.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if err := h.backendReady(r.Context()); err != nil {
		logging.CtxWarn(r.Context()).Err(err).Msg("Readiness check failed")
		NewResponseWriter(w, r).Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, TypeBackendError, "Backend not ready")
		return
	}
	NewResponseWriter(w, r).Success(map[string]interface{}{"ready": true})
}
