// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/tomtom215/hydroengine/internal/logging"
)

// MinJWTSecretLength is enforced when auth_mode is jwt.
const MinJWTSecretLength = 32

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateBackend(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	if f := strings.ToLower(c.Logging.Format); f != "json" && f != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	if c.Tasks.PollInterval <= 0 {
		return errors.New("TASK_POLL_INTERVAL must be positive")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return errors.New("HTTP_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateBackend() error {
	u, err := url.Parse(c.Backend.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("EE_ENDPOINT must be an absolute URL, got %q", c.Backend.Endpoint)
	}
	if c.Backend.QPS <= 0 {
		return fmt.Errorf("EE_QPS must be positive, got %v", c.Backend.QPS)
	}
	if c.Backend.Burst < 1 {
		return fmt.Errorf("EE_BURST must be at least 1, got %d", c.Backend.Burst)
	}
	if c.Backend.MaxRetries < 0 {
		return fmt.Errorf("EE_MAX_RETRIES must not be negative, got %d", c.Backend.MaxRetries)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	switch c.Security.AuthMode {
	case AuthModeNone:
	case AuthModeJWT:
		if len(c.Security.JWTSecret) < MinJWTSecretLength {
			return fmt.Errorf("JWT_SECRET must be at least %d characters when AUTH_MODE=jwt", MinJWTSecretLength)
		}
	default:
		return fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthModeNone, AuthModeJWT, c.Security.AuthMode)
	}
	if !c.Security.RateLimitDisabled && c.Security.RateLimitReqs < 1 {
		return errors.New("RATE_LIMIT_REQUESTS must be at least 1 unless DISABLE_RATE_LIMIT is set")
	}
	return nil
}
