// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package hydro

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/tomtom215/hydroengine/internal/earthengine"
)

const (
	sshGrids    = "users/fbaart/ssh_grids_v1609"
	sshTrendMap = "users/fbaart/ssh-trend-map"
)

var sshTrendPalette = []string{"151d44", "156c72", "7eb390", "fdf5f4", "db8d77", "9c3060", "340d35"}

// SeaSurfaceHeightRequest samples the altimetry grids in a region.
type SeaSurfaceHeightRequest struct {
	Region json.RawMessage `json:"region" validate:"required"`
	Scale  float64         `json:"scale,omitempty" validate:"omitempty,gt=0"`
}

// SetDefaults samples at 30 m.
func (r *SeaSurfaceHeightRequest) SetDefaults() {
	if r.Scale == 0 {
		r.Scale = 30
	}
}

// GetSeaSurfaceHeightTimeSeries returns [{t, v}] rows for every pixel and
// time step of the grids in the region.
func (s *Service) GetSeaSurfaceHeightTimeSeries(ctx context.Context, req *SeaSurfaceHeightRequest) (json.RawMessage, error) {
	req.SetDefaults()
	region, err := geometry("region", req.Region)
	if err != nil {
		return nil, err
	}

	// getRegion rows are [id, longitude, latitude, time, value]; row 0 is the header.
	rows := earthengine.LoadImageCollection(sshGrids).
		GetRegion(region, req.Scale, "EPSG:4326").
		Slice(1).
		Map(func(o earthengine.Object) earthengine.Valuer {
			row := o.AsList()
			return earthengine.DictionaryOf(map[string]interface{}{
				"t": row.Get(3),
				"v": row.Get(4),
			})
		})
	return s.compute(ctx, rows)
}

// GetSeaSurfaceHeightTrendImage returns the tile layer of the sea level
// trend map.
func (s *Service) GetSeaSurfaceHeightTrendImage(ctx context.Context) (*earthengine.MapID, error) {
	vis := earthengine.LoadImage(sshTrendMap).Visualize(earthengine.VisParams{
		Bands:   []string{"time"},
		Min:     -0.03,
		Max:     0.03,
		Palette: sshTrendPalette,
	})
	return s.createMap(ctx, vis)
}
