// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/hydroengine/internal/auth"
	"github.com/tomtom215/hydroengine/internal/config"
)

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var subject, role string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a bearer token for the export endpoints",
		Long: `Signs a JWT with JWT_SECRET. Requires AUTH_MODE=jwt; the token lifetime is
JWT_TOKEN_TTL.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if cfg.Security.AuthMode != config.AuthModeJWT {
				return errors.New("tokens are only used with AUTH_MODE=jwt")
			}
			m, err := auth.NewJWTManager(&cfg.Security)
			if err != nil {
				return err
			}
			token, err := m.GenerateToken(subject, role)
			if err != nil {
				return fmt.Errorf("failed to sign token: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "token subject (required)")
	cmd.Flags().StringVar(&role, "role", "exporter", "role claim")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
