// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/hydroengine/internal/config"
)

const testSecret = "this_is_a_very_long_secret_key_for_testing_purposes_12345"

func newTestManager(t *testing.T, ttl time.Duration) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(&config.SecurityConfig{JWTSecret: testSecret, TokenTTL: ttl})
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}
	return m
}

func TestNewJWTManager(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{name: "valid secret", secret: testSecret},
		{name: "empty secret", secret: "", wantErr: true},
		{name: "short secret", secret: "too-short", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager, err := NewJWTManager(&config.SecurityConfig{JWTSecret: tt.secret})
			if tt.wantErr {
				if !errors.Is(err, ErrWeakSecret) {
					t.Errorf("NewJWTManager() error = %v, want ErrWeakSecret", err)
				}
				return
			}
			if err != nil || manager == nil {
				t.Fatalf("NewJWTManager() = %v, %v", manager, err)
			}
			if manager.ttl != 24*time.Hour {
				t.Errorf("default ttl = %v", manager.ttl)
			}
		})
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	manager := newTestManager(t, time.Hour)

	token, err := manager.GenerateToken("deltares-ci", "exporter")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Fatalf("token %q is not a compact JWS", token)
	}

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Subject != "deltares-ci" || claims.Role != "exporter" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestValidateTokenRejects(t *testing.T) {
	manager := newTestManager(t, time.Hour)
	other, err := NewJWTManager(&config.SecurityConfig{JWTSecret: strings.Repeat("x", 40)})
	if err != nil {
		t.Fatal(err)
	}
	foreign, _ := other.GenerateToken("someone", "admin")

	expired := &JWTManager{secret: []byte(testSecret), ttl: -time.Minute}
	stale, _ := expired.GenerateToken("someone", "admin")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Role: "admin"})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": foreign,
		"expired":      stale,
		"alg none":     unsigned,
		"empty":        "",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := manager.ValidateToken(token); err == nil {
				t.Error("ValidateToken() accepted the token")
			}
		})
	}
}
