// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package earthengine

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/tomtom215/hydroengine/internal/config"
	"github.com/tomtom215/hydroengine/internal/logging"
	"github.com/tomtom215/hydroengine/internal/metrics"
)

// NewTokenSource builds a service account token source from the backend
// config. The base64 key takes precedence over the key file. Returns
// (nil, nil) when the backend is configured for anonymous access.
func NewTokenSource(ctx context.Context, cfg *config.BackendConfig) (oauth2.TokenSource, error) {
	if cfg.Anonymous {
		return nil, nil
	}

	key, err := readKey(cfg)
	if err != nil {
		return nil, err
	}

	jwtCfg, err := google.JWTConfigFromJSON(key, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("earthengine: parse service account key: %w", err)
	}
	if cfg.ServiceAccount != "" {
		jwtCfg.Email = cfg.ServiceAccount
	}
	if cfg.TokenURL != "" {
		jwtCfg.TokenURL = cfg.TokenURL
	}

	logging.Info().Str("service_account", jwtCfg.Email).Msg("Using service account credentials")
	return oauth2.ReuseTokenSource(nil, &countingTokenSource{src: jwtCfg.TokenSource(ctx)}), nil
}

func readKey(cfg *config.BackendConfig) ([]byte, error) {
	if cfg.PrivateKeyBase64 != "" {
		key, err := base64.StdEncoding.DecodeString(cfg.PrivateKeyBase64)
		if err != nil {
			return nil, fmt.Errorf("earthengine: decode base64 key: %w", err)
		}
		return key, nil
	}
	if cfg.PrivateKeyFile == "" {
		return nil, ErrNoCredentials
	}
	key, err := os.ReadFile(cfg.PrivateKeyFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s not found", ErrNoCredentials, cfg.PrivateKeyFile)
	}
	if err != nil {
		return nil, fmt.Errorf("earthengine: read key file: %w", err)
	}
	return key, nil
}

// countingTokenSource records every token fetch that reaches the token
// endpoint.
type countingTokenSource struct {
	src oauth2.TokenSource
}

func (s *countingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		metrics.BackendTokenRefreshes.WithLabelValues("error").Inc()
		logging.Err(err).Msg("Failed to refresh backend token")
		return nil, err
	}
	metrics.BackendTokenRefreshes.WithLabelValues("ok").Inc()
	return tok, nil
}
