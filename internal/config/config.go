// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

// Package config loads hydroengine configuration from built-in defaults, an
// optional YAML file and environment variables, in that order of precedence
// (environment wins).
//
// Environment variables use flat legacy names (HTTP_PORT, EE_PROJECT,
// LOG_LEVEL, ...) that envTransformFunc maps onto the nested koanf paths.
// A base64 service account key in the variable "key", as used by older
// deployments, is still honoured.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Backend  BackendConfig  `koanf:"backend"`
	Cache    CacheConfig    `koanf:"cache"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
	Ecopath  EcopathConfig  `koanf:"ecopath"`
	Tasks    TasksConfig    `koanf:"tasks"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"`
}

// BackendConfig configures the Earth Engine REST client.
type BackendConfig struct {
	Endpoint         string        `koanf:"endpoint"`
	Project          string        `koanf:"project"`
	ServiceAccount   string        `koanf:"service_account"`
	PrivateKeyFile   string        `koanf:"private_key_file"`
	PrivateKeyBase64 string        `koanf:"private_key_base64"`
	TokenURL         string        `koanf:"token_url"`
	Timeout          time.Duration `koanf:"timeout"`
	QPS              float64       `koanf:"qps"`
	Burst            int           `koanf:"burst"`
	MaxRetries       int           `koanf:"max_retries"`

	// Anonymous skips OAuth2 entirely. Only meant for local fakes of the
	// REST API.
	Anonymous bool `koanf:"anonymous"`
}

// CacheConfig configures the map id cache.
type CacheConfig struct {
	TTL time.Duration `koanf:"ttl"`
	// Path is the badger directory; empty keeps badger in memory.
	Path       string `koanf:"path"`
	MaxEntries int    `koanf:"max_entries"`
}

// SecurityConfig configures authentication, rate limiting and CORS.
type SecurityConfig struct {
	AuthMode          string        `koanf:"auth_mode"`
	JWTSecret         string        `koanf:"jwt_secret"`
	TokenTTL          time.Duration `koanf:"token_ttl"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig mirrors logging.Config for the file/env layers.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// EcopathConfig holds defaults for the water velocity export jobs.
type EcopathConfig struct {
	Bucket       string  `koanf:"bucket"`
	DefaultScale float64 `koanf:"default_scale"`
	DefaultCRS   string  `koanf:"default_crs"`
}

// TasksConfig configures the background export task watcher.
type TasksConfig struct {
	PollInterval time.Duration `koanf:"poll_interval"`
	MaxTracked   int           `koanf:"max_tracked"`
}

// Auth modes.
const (
	AuthModeNone = "none"
	AuthModeJWT  = "jwt"
)

// Addr returns host:port for the HTTP listener.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
