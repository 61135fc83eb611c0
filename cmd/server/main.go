// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tomtom215/hydroengine/internal/config"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	port       int
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "hydroengine",
		Short: "Hydrological geo-compute REST facade",
		Long: `hydroengine serves hydrological and coastal datasets (bathymetry, water
masks, catchments, rivers, LIWO flood scenarios, DGDS model output) over HTTP,
computed on Earth Engine.

Without a subcommand the HTTP server is started.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config.yaml (default: CONFIG_PATH or ./config.yaml)")
	root.Flags().IntVar(&opts.port, "port", 0, "HTTP port (overrides HTTP_PORT)")

	root.AddCommand(newServeCmd(opts), newTokenCmd(opts), newDatasetsCmd())
	return root
}

// loadConfig applies --config and --port on top of the koanf layers.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFile(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if opts.port != 0 {
		cfg.Server.Port = opts.port
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}
	return cfg, nil
}
