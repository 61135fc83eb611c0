// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package hydro

import (
	"context"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/hydroengine/internal/catalog"
	"github.com/tomtom215/hydroengine/internal/earthengine"
	"github.com/tomtom215/hydroengine/internal/logging"
)

// LIWO collection versions. LIWOLegacy is v1 served from the root route,
// which also reports the variable name.
const (
	LIWOLegacy = "legacy"
	LIWOv1     = "v1"
	LIWOv2     = "v2"

	liwoDefaultCRS = "EPSG:28992"
)

// LIWORequest combines flood scenarios for a set of breach locations.
type LIWORequest struct {
	LIWOIDs []interface{}   `json:"liwo_ids" validate:"required,min=1"`
	Band    string          `json:"band" validate:"required"`
	Export  bool            `json:"export"`
	Region  json.RawMessage `json:"region,omitempty"`
	Scale   *float64        `json:"scale,omitempty" validate:"required_if=Export true,omitempty,gt=0"`
	CRS     string          `json:"crs,omitempty" validate:"omitempty,crs"`
}

// LIWOResult is the styled tile layer of the combined scenarios, plus a
// GeoTIFF download when exporting.
type LIWOResult struct {
	earthengine.MapID
	Variable  string        `json:"variable,omitempty"`
	LIWOIDs   []interface{} `json:"liwo_ids"`
	Band      string        `json:"band"`
	Scale     *float64      `json:"scale,omitempty"`
	CRS       string        `json:"crs,omitempty"`
	ExportURL string        `json:"export_url,omitempty"`
}

func reducerByName(name string) (earthengine.Reducer, error) {
	switch name {
	case "max":
		return earthengine.MaxReducer(), nil
	case "min":
		return earthengine.MinReducer(), nil
	case "mean":
		return earthengine.MeanReducer(), nil
	case "sum":
		return earthengine.SumReducer(), nil
	}
	return earthengine.Reducer{}, usageErrorf("unknown reducer %q", name)
}

// GetLIWOScenarios reduces the scenarios of the requested breach
// locations into one image of band and styles it.
func (s *Service) GetLIWOScenarios(ctx context.Context, version string, req *LIWORequest) (*LIWOResult, error) {
	key := version
	if version == LIWOLegacy {
		key = LIWOv1
	}
	coll, ok := s.catalog.LIWOCollection(key)
	if !ok {
		return nil, usageErrorf("unknown LIWO version %q", version)
	}
	bandName, ok := coll.Bands[req.Band]
	if !ok {
		return nil, usageErrorf("unknown band %q", req.Band)
	}
	reducer, err := reducerByName(coll.Reducers[req.Band])
	if err != nil {
		return nil, err
	}
	style, ok := s.catalog.SLDStyle(req.Band)
	if !ok {
		return nil, usageErrorf("no style for band %q", req.Band)
	}

	var image earthengine.Image
	if key == LIWOv1 {
		image, err = s.liwoV1(ctx, coll, req, bandName, reducer)
	} else {
		image, err = s.liwoV2(ctx, coll, req, bandName, reducer)
	}
	if err != nil {
		return nil, err
	}

	id, err := s.createMap(ctx, image.SldStyle(style))
	if err != nil {
		return nil, err
	}
	out := &LIWOResult{MapID: *id, LIWOIDs: req.LIWOIDs, Band: req.Band}
	if version == LIWOLegacy {
		out.Variable = "liwo"
	}
	if !req.Export {
		return out, nil
	}

	if req.Scale == nil {
		return nil, usageErrorf("scale is required for export")
	}
	crs := req.CRS
	if crs == "" {
		crs = liwoDefaultCRS
	}
	region := image.Geometry()
	if len(req.Region) > 0 {
		if region, err = geometry("region", req.Region); err != nil {
			return nil, err
		}
	}
	url, err := s.backend.ImageDownloadURL(ctx, image, earthengine.DownloadOptions{
		Name:   "export",
		Format: "tif",
		CRS:    crs,
		Scale:  *req.Scale,
		Region: region.Bounds(*req.Scale),
	})
	if err != nil {
		return nil, err
	}
	out.Scale = req.Scale
	out.CRS = crs
	out.ExportURL = url
	return out, nil
}

var liwoV1FullBands = []string{"b1", "b2", "b3", "b4", "b5"}

// liwoV1 handles the unnamed-band collection. Some scenarios only carry
// water depth; for other bands those are dropped.
func (s *Service) liwoV1(ctx context.Context, coll catalog.LIWOCollection, req *LIWORequest, bandName string, reducer earthengine.Reducer) (earthengine.Image, error) {
	full := coll.FullBands
	if len(full) == 0 {
		full = liwoV1FullBands
	}
	selected := earthengine.LoadImageCollection(coll.Collection).
		Filter(earthengine.FilterInList(coll.IDKey, req.LIWOIDs)).
		Map(func(im earthengine.Image) earthengine.Image { return im.Set("bandNames", im.BandNames()) })
	filtered := selected
	if req.Band != "waterdepth" {
		filtered = selected.Filter(earthengine.FilterEq("bandNames", full))
	}

	var nSelected, nFiltered int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.computeInto(gctx, selected.Size(), &nSelected) })
	g.Go(func() error { return s.computeInto(gctx, filtered.Size(), &nFiltered) })
	if err := g.Wait(); err != nil {
		return earthengine.Image{}, err
	}
	if nSelected != nFiltered {
		logging.CtxWarn(ctx).Int("selected", nSelected).Int("filtered", nFiltered).Msg("missing images")
	}
	if nFiltered == 0 {
		return earthengine.Image{}, usageErrorf("No images available for breach locations: %v", req.LIWOIDs)
	}

	image := filtered.Select(bandName).Reduce(reducer)
	return image.Mask(image.Gt(0)), nil
}

// liwoV2 handles the named-band collection.
func (s *Service) liwoV2(ctx context.Context, coll catalog.LIWOCollection, req *LIWORequest, bandName string, reducer earthengine.Reducer) (earthengine.Image, error) {
	scenarios := earthengine.LoadImageCollection(coll.Collection).
		Filter(earthengine.FilterInList(coll.IDKey, req.LIWOIDs)).
		Filter(earthengine.FilterListContains("system:band_names", bandName)).
		Select(bandName)

	var n int
	if err := s.computeInto(ctx, scenarios.Size(), &n); err != nil {
		return earthengine.Image{}, err
	}
	if n == 0 {
		return earthengine.Image{}, usageErrorf("No images available for breach locations: %v", req.LIWOIDs)
	}
	if n != len(req.LIWOIDs) {
		logging.CtxInfo(ctx).Str("band", bandName).Int("missing", len(req.LIWOIDs)-n).Msg("missing scenarios")
	}

	return scenarios.
		Map(func(i earthengine.Image) earthengine.Image { return i.Mask(i.Gt(0)) }).
		Reduce(reducer), nil
}
