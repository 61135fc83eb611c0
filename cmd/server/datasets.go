// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package main

import (
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/hydroengine/internal/catalog"
	"github.com/tomtom215/hydroengine/internal/hydro"
)

func newDatasetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List the embedded dataset catalog as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			summary := catalog.Default().Summary()
			summary["dgds"] = hydro.DGDSFamilies()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		},
	}
}
