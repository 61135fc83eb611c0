// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package earthengine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/hydroengine/internal/logging"
	"github.com/tomtom215/hydroengine/internal/metrics"
)

// CircuitBreakerBackend wraps a Backend with a circuit breaker so that an
// unavailable backend fails requests fast instead of tying up handlers for
// the full request timeout.
//
// Backend rejections of individual requests (4xx other than 429) count as
// successes: they are caused by user input, not by backend health.
type CircuitBreakerBackend struct {
	backend Backend
	cb      *gobreaker.CircuitBreaker[interface{}]
	name    string
}

// NewCircuitBreakerBackend creates the breaker.
// Configuration:
//   - Max 3 requests in half-open state
//   - 1 minute measurement window
//   - 2 minute timeout before attempting recovery
//   - Opens after 60% failure rate with minimum 10 requests
func NewCircuitBreakerBackend(backend Backend) *CircuitBreakerBackend {
	name := "earthengine-api"

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)
			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},

		IsSuccessful: func(err error) bool {
			return err == nil || IsClientError(err) || errors.Is(err, context.Canceled)
		},
	})

	return &CircuitBreakerBackend{backend: backend, cb: cb, name: name}
}

// State returns the current breaker state.
func (b *CircuitBreakerBackend) State() gobreaker.State {
	return b.cb.State()
}

func (b *CircuitBreakerBackend) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := b.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		}
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	return result, nil
}

func castResult[T any](result interface{}, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	typed, ok := result.(*T)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func (b *CircuitBreakerBackend) Compute(ctx context.Context, v Valuer) (json.RawMessage, error) {
	raw, err := castResult[json.RawMessage](b.execute(func() (interface{}, error) {
		r, err := b.backend.Compute(ctx, v)
		if err != nil {
			return nil, err
		}
		return &r, nil
	}))
	if err != nil {
		return nil, err
	}
	return *raw, nil
}

func (b *CircuitBreakerBackend) CreateMap(ctx context.Context, image Image, opts MapOptions) (*MapID, error) {
	return castResult[MapID](b.execute(func() (interface{}, error) {
		return b.backend.CreateMap(ctx, image, opts)
	}))
}

func (b *CircuitBreakerBackend) ImageDownloadURL(ctx context.Context, image Image, opts DownloadOptions) (string, error) {
	u, err := castResult[string](b.execute(func() (interface{}, error) {
		u, err := b.backend.ImageDownloadURL(ctx, image, opts)
		if err != nil {
			return nil, err
		}
		return &u, nil
	}))
	if err != nil {
		return "", err
	}
	return *u, nil
}

func (b *CircuitBreakerBackend) TableDownloadURL(ctx context.Context, fc FeatureCollection, format string) (string, error) {
	u, err := castResult[string](b.execute(func() (interface{}, error) {
		u, err := b.backend.TableDownloadURL(ctx, fc, format)
		if err != nil {
			return nil, err
		}
		return &u, nil
	}))
	if err != nil {
		return "", err
	}
	return *u, nil
}

func (b *CircuitBreakerBackend) ExportImage(ctx context.Context, opts ExportOptions) (*Operation, error) {
	return castResult[Operation](b.execute(func() (interface{}, error) {
		return b.backend.ExportImage(ctx, opts)
	}))
}

func (b *CircuitBreakerBackend) GetOperation(ctx context.Context, name string) (*Operation, error) {
	return castResult[Operation](b.execute(func() (interface{}, error) {
		return b.backend.GetOperation(ctx, name)
	}))
}

// Ping bypasses the breaker; readiness should reflect credentials even
// while the breaker is open.
func (b *CircuitBreakerBackend) Ping(ctx context.Context) error {
	return b.backend.Ping(ctx)
}
