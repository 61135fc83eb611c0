// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order; the first existing file wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/hydroengine/config.yaml",
	"/etc/hydroengine/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Timeout:         2 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Backend: BackendConfig{
			Endpoint:       "https://earthengine.googleapis.com",
			PrivateKeyFile: "privatekey.json",
			TokenURL:       "https://oauth2.googleapis.com/token",
			Timeout:        90 * time.Second,
			QPS:            20,
			Burst:          40,
			MaxRetries:     3,
		},
		Cache: CacheConfig{
			TTL:        6 * time.Hour,
			MaxEntries: 10000,
		},
		Security: SecurityConfig{
			AuthMode:        AuthModeNone,
			TokenTTL:        24 * time.Hour,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Ecopath: EcopathConfig{
			Bucket:       "hydro-engine-public",
			DefaultScale: 10000,
			DefaultCRS:   "EPSG:3035",
		},
		Tasks: TasksConfig{
			PollInterval: 30 * time.Second,
			MaxTracked:   500,
		},
	}
}

// Load reads configuration from defaults, the optional YAML file and the
// environment, then validates it.
func Load() (*Config, error) {
	return LoadFile(findConfigFile())
}

// LoadFile is Load with an explicit YAML path. An empty path skips the file
// layer.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields splits comma separated env values for slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"http_port":             "server.port",
	"port":                  "server.port",
	"http_host":             "server.host",
	"http_timeout":          "server.timeout",
	"shutdown_timeout":      "server.shutdown_timeout",
	"environment":           "server.environment",
	"ee_endpoint":           "backend.endpoint",
	"ee_project":            "backend.project",
	"ee_service_account":    "backend.service_account",
	"ee_private_key_file":   "backend.private_key_file",
	"key":                   "backend.private_key_base64",
	"ee_token_url":          "backend.token_url",
	"ee_timeout":            "backend.timeout",
	"ee_qps":                "backend.qps",
	"ee_burst":              "backend.burst",
	"ee_max_retries":        "backend.max_retries",
	"ee_anonymous":          "backend.anonymous",
	"cache_ttl":             "cache.ttl",
	"cache_path":            "cache.path",
	"cache_max_entries":     "cache.max_entries",
	"auth_mode":             "security.auth_mode",
	"jwt_secret":            "security.jwt_secret",
	"token_ttl":             "security.token_ttl",
	"rate_limit_requests":   "security.rate_limit_reqs",
	"rate_limit_window":     "security.rate_limit_window",
	"disable_rate_limit":    "security.rate_limit_disabled",
	"cors_origins":          "security.cors_origins",
	"log_level":             "logging.level",
	"log_format":            "logging.format",
	"log_caller":            "logging.caller",
	"ecopath_bucket":        "ecopath.bucket",
	"ecopath_default_scale": "ecopath.default_scale",
	"ecopath_default_crs":   "ecopath.default_crs",
	"task_poll_interval":    "tasks.poll_interval",
	"task_max_tracked":      "tasks.max_tracked",
}

// envTransformFunc maps flat environment names onto koanf paths. Unknown
// variables return "" and are ignored, so the process environment does not
// leak into the config tree.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
