// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/hydroengine/internal/auth"
	"github.com/tomtom215/hydroengine/internal/middleware"
)

// slowRequest is the access log threshold for warn-level entries.
const slowRequest = 10 * time.Second

// Router wires handlers and middleware into a chi mux.
type Router struct {
	handler       *Handler
	auth          *auth.Middleware
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. authMW and chiMW may be nil for the defaults:
// no authentication and the default CORS and rate limits.
func NewRouter(handler *Handler, authMW *auth.Middleware, chiMW *ChiMiddleware) *Router {
	if authMW == nil {
		authMW = auth.NewMiddleware(nil, "")
	}
	if chiMW == nil {
		chiMW = NewChiMiddleware(nil)
	}
	authMW.SetErrorWriter(writeAuthError)
	return &Router{
		handler:       handler,
		auth:          authMW,
		chiMiddleware: chiMW,
	}
}

// SetupChi builds the HTTP handler.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()
	h := router.handler

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.AccessLog(slowRequest))
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(middleware.PrometheusMetrics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).Error(http.StatusNotFound, ErrCodeNotFound, TypeInvalidUsage, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).Error(http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, TypeInvalidUsage, "Method not allowed")
	})

	r.Get("/", h.Welcome)

	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Get("/health", h.Health)
		r.Get("/health/live", h.HealthLive)
		r.Get("/health/ready", h.HealthReady)
		r.Handle("/metrics", promhttp.Handler())
	})

	// Limiters are shared by the legacy and /api/v1 mounts so both count
	// against the same per-IP budget.
	apiLimit := router.chiMiddleware.RateLimit()
	exportLimit := router.chiMiddleware.RateLimitExport()

	r.Group(func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(BodyLimit(MaxBodyBytes))
		r.Use(middleware.Compression)

		router.mount(r, legacy, apiLimit, exportLimit)
		r.Route("/api/v1", func(r chi.Router) {
			router.mount(r, envelope, apiLimit, exportLimit)
		})
	})

	return r
}

// mount registers every operation on r for GET and POST.
func (router *Router) mount(r chi.Router, wrap func(operation) http.HandlerFunc, apiLimit, exportLimit func(http.Handler) http.Handler) {
	for _, rt := range router.handler.routes() {
		handler := wrap(rt.op)
		sub := r.With(apiLimit)
		if rt.export {
			sub = r.With(exportLimit, router.auth.RequireToken)
		}
		sub.Get(rt.path, handler)
		sub.Post(rt.path, handler)
	}
	r.With(apiLimit).Get("/maps/{mapID}", wrap(router.handler.mapExpression))
}
