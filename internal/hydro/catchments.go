// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package hydro

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/hydroengine/internal/earthengine"
	"github.com/tomtom215/hydroengine/internal/logging"
)

// Region filters.
const (
	FilterRegion        = "region"
	FilterUpstream      = "catchments-upstream"
	FilterIntersection  = "catchments-intersection"
	hybasID             = "HYBAS_ID"
	lakeID              = "Hylak_id"
	maxLakePixelsAcross = 1000
)

// CatchmentRequest selects HydroBASINS catchments around a region.
type CatchmentRequest struct {
	Region           json.RawMessage `json:"region" validate:"required"`
	RegionFilter     string          `json:"region_filter" validate:"required,oneof=region catchments-upstream catchments-intersection"`
	CatchmentLevel   int             `json:"catchment_level" validate:"gte=5,lte=9"`
	FilterUpstreamGt *int            `json:"filter_upstream_gt,omitempty" validate:"omitempty,gte=0"`
}

// upstream maps every basin of the selection to itself plus all basins
// upstream of it, following the level 6 graph index.
func (s *Service) upstream(level int, selection earthengine.FeatureCollection) (earthengine.FeatureCollection, error) {
	hs := s.catalog.HydroSHEDS
	if level != hs.UpstreamLevel {
		return earthengine.FeatureCollection{}, usageErrorf("Currently, only level %d is supported for upstream catchments", hs.UpstreamLevel)
	}
	id, _ := s.catalog.BasinCollection(level)
	basins := earthengine.LoadFeatureCollection(id)
	index := earthengine.LoadFeatureCollection(hs.UpstreamIndex)

	return selection.Map(func(basin earthengine.Feature) earthengine.Valuer {
		ids := index.Filter(earthengine.FilterEq("hybas_id", basin.GetNumber(hybasID))).
			AggregateArray("parent_from")
		return basins.Filter(earthengine.FilterInList(hybasID, ids)).
			Merge(earthengine.NewFeatureCollection(basin))
	}).Flatten().Distinct(hybasID), nil
}

// selectCatchments returns the catchments of the requested level touching
// region, expanded upstream when asked.
func (s *Service) selectCatchments(level int, filter string, region earthengine.Geometry) (earthengine.FeatureCollection, error) {
	id, ok := s.catalog.BasinCollection(level)
	if !ok {
		return earthengine.FeatureCollection{}, usageErrorf("unknown catchment level %d", level)
	}
	selection := earthengine.LoadFeatureCollection(id).FilterBounds(region)
	if filter == FilterUpstream {
		return s.upstream(level, selection)
	}
	return selection, nil
}

// GetCatchments returns the catchments intersecting the region, or those
// plus everything upstream of them.
func (s *Service) GetCatchments(ctx context.Context, req *CatchmentRequest) (json.RawMessage, error) {
	if req.RegionFilter == FilterRegion {
		return nil, usageErrorf("Value is not supported, use either %s or %s", FilterUpstream, FilterIntersection)
	}
	region, err := geometry("region", req.Region)
	if err != nil {
		return nil, err
	}
	catchments, err := s.selectCatchments(req.CatchmentLevel, req.RegionFilter, region)
	if err != nil {
		return nil, err
	}
	logging.CtxDebug(ctx).Str("region_filter", req.RegionFilter).Int("level", req.CatchmentLevel).Msg("selecting catchments")
	return s.compute(ctx, catchments)
}

// GetRivers returns the river segments draining the selected catchments.
func (s *Service) GetRivers(ctx context.Context, req *CatchmentRequest) (json.RawMessage, error) {
	region, err := geometry("region", req.Region)
	if err != nil {
		return nil, err
	}
	catchments, err := s.selectCatchments(req.CatchmentLevel, req.RegionFilter, region)
	if err != nil {
		return nil, err
	}

	rivers := earthengine.LoadFeatureCollection(s.catalog.HydroSHEDS.Rivers).
		Filter(earthengine.FilterInList(hybasID, catchments.AggregateArray(hybasID))).
		SelectProperties("ARCID", "UP_CELLS", hybasID)

	if req.FilterUpstreamGt != nil {
		logging.CtxDebug(ctx).Int("up_cells", *req.FilterUpstreamGt).Msg("filtering upstream branches")
		rivers = rivers.Filter(earthengine.FilterGte("UP_CELLS", *req.FilterUpstreamGt))
	}
	return s.compute(ctx, rivers)
}

// LakesRequest selects HydroLAKES polygons in a region.
type LakesRequest struct {
	Region json.RawMessage `json:"region" validate:"required"`
	IDOnly bool            `json:"id_only"`
}

// GetLakes returns the lake ids in the region, or a GeoJSON download URL
// for the lakes.
func (s *Service) GetLakes(ctx context.Context, req *LakesRequest) (json.RawMessage, error) {
	region, err := geometry("region", req.Region)
	if err != nil {
		return nil, err
	}
	lakes := earthengine.LoadFeatureCollection(s.catalog.HydroSHEDS.Lakes).FilterBounds(region)
	if req.IDOnly {
		return s.compute(ctx, lakes.AggregateArray(lakeID))
	}
	return s.featureResult(ctx, lakes, true)
}

// LakeRequest identifies one HydroLAKES lake.
type LakeRequest struct {
	LakeID int `json:"lake_id" validate:"gt=0"`
}

func (s *Service) lake(id int) earthengine.Feature {
	return earthengine.LoadFeatureCollection(s.catalog.HydroSHEDS.Lakes).
		Filter(earthengine.FilterEq(lakeID, id)).
		First()
}

// GetLakeByID returns a single lake feature.
func (s *Service) GetLakeByID(ctx context.Context, req *LakeRequest) (json.RawMessage, error) {
	return s.compute(ctx, s.lake(req.LakeID))
}

// LakeTimeSeriesRequest asks for a monthly lake variable.
type LakeTimeSeriesRequest struct {
	LakeID   int    `json:"lake_id" validate:"gt=0"`
	Variable string `json:"variable" validate:"required"`
	Scale    *int   `json:"scale,omitempty" validate:"omitempty,gt=0"`
}

// LakeTimeSeries holds parallel time and value arrays.
type LakeTimeSeries struct {
	Time      []int64    `json:"time"`
	WaterArea []*float64 `json:"water_area"`
}

// GetLakeTimeSeries returns the monthly water surface area of a lake in
// square meters.
func (s *Service) GetLakeTimeSeries(ctx context.Context, req *LakeTimeSeriesRequest) (*LakeTimeSeries, error) {
	if req.Variable != "water_area" {
		return nil, &UsageError{Message: "Unknown variable", Status: http.StatusNotFound}
	}
	lake := s.lake(req.LakeID)

	var scale interface{}
	if req.Scale != nil {
		scale = *req.Scale
	} else {
		scale = autoScale(lake.Geometry())
	}

	area := earthengine.LoadImageCollection(monthlyWater).ToList(10000).Map(func(o earthengine.Object) earthengine.Valuer {
		img := o.AsImage()
		water := img.Clip(lake).Eq(2)
		sum := water.Multiply(earthengine.PixelArea()).
			ReduceRegion(earthengine.SumReducer(), lake.Geometry(), scale).
			Values().Get(0)
		return earthengine.NewFeature(nil, map[string]interface{}{
			"time":       img.Date().Millis(),
			"water_area": sum,
		})
	})
	fc := earthengine.FeatureCollectionFromList(area)
	series := earthengine.DictionaryOf(map[string]interface{}{
		"time":       fc.AggregateArray("time"),
		"water_area": fc.AggregateArray("water_area"),
	})

	var out LakeTimeSeries
	if err := s.computeInto(ctx, series, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// autoScale picks a scale so that the longer side of the lake's bounding
// box spans about a thousand pixels, never finer than 30 m.
func autoScale(g earthengine.Geometry) earthengine.Number {
	corners := g.Bounds(nil).Transform("EPSG:3857", 30).Coordinates().Get(0).AsList()
	ll := corners.Get(0).AsList()
	ur := corners.Get(2).AsList()
	width := ll.Get(0).AsNumber().Subtract(ur.Get(0)).Abs()
	height := ll.Get(1).AsNumber().Subtract(ur.Get(1)).Abs()
	return width.Max(height).Divide(maxLakePixelsAcross).Max(30)
}

// FeatureCollectionRequest clips a feature collection asset to a region.
type FeatureCollectionRequest struct {
	Region json.RawMessage `json:"region" validate:"required"`
	Asset  string          `json:"asset" validate:"required"`
}

// GetFeatureCollection returns the features of asset intersecting the
// region, clipped to it.
func (s *Service) GetFeatureCollection(ctx context.Context, req *FeatureCollectionRequest) (json.RawMessage, error) {
	region, err := geometry("region", req.Region)
	if err != nil {
		return nil, err
	}
	clip := earthengine.NewFeature(region, nil)
	features := earthengine.LoadFeatureCollection(req.Asset).
		FilterBounds(region).
		Map(func(f earthengine.Feature) earthengine.Valuer {
			return f.Intersection(clip, nil, nil)
		})
	return s.compute(ctx, features)
}

// RasterRequest downloads a static model input layer.
type RasterRequest struct {
	Variable       string          `json:"variable" validate:"required"`
	Region         json.RawMessage `json:"region" validate:"required"`
	CellSize       float64         `json:"cell_size" validate:"gt=0"`
	CRS            string          `json:"crs" validate:"required,crs"`
	RegionFilter   string          `json:"region_filter" validate:"omitempty,oneof=region catchments-upstream catchments-intersection"`
	CatchmentLevel int             `json:"catchment_level" validate:"omitempty,gte=5,lte=9"`
}

// GetRaster returns a GeoTIFF download URL of variable over the region, or
// over the bounds of the selected catchments.
func (s *Service) GetRaster(ctx context.Context, req *RasterRequest) (*URLResult, error) {
	asset, ok := s.catalog.RasterAsset(req.Variable)
	if !ok {
		return nil, usageErrorf("unknown variable %q", req.Variable)
	}
	region, err := geometry("region", req.Region)
	if err != nil {
		return nil, err
	}

	switch req.RegionFilter {
	case FilterUpstream, FilterIntersection:
		catchments, err := s.selectCatchments(req.CatchmentLevel, req.RegionFilter, region)
		if err != nil {
			return nil, err
		}
		region = catchments.Geometry().Bounds(nil)
	}

	var image earthengine.Image
	if asset.Collection {
		image = earthengine.LoadImageCollection(asset.Asset).Mosaic()
	} else {
		image = earthengine.LoadImage(asset.Asset)
	}
	image = image.Clip(region)

	url, err := s.backend.ImageDownloadURL(ctx, image, earthengine.DownloadOptions{
		Name:   "variable",
		Format: "tif",
		CRS:    req.CRS,
		Scale:  req.CellSize,
		Region: region.Bounds(req.CellSize),
	})
	if err != nil {
		return nil, err
	}
	return &URLResult{URL: url}, nil
}
