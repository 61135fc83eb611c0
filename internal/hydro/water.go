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
	sentinel2       = "COPERNICUS/S2"
	monthlyWater    = "JRC/GSW1_0/MonthlyHistory"
	flowAccumulated = "WWF/HydroSHEDS/15ACC"
	alosDEM         = "JAXA/ALOS/AW3D30_V1_1"
)

// WaterMaskRawRequest extracts water polygons from Sentinel-2 imagery.
type WaterMaskRawRequest struct {
	UseURL        bool            `json:"use_url"`
	Region        json.RawMessage `json:"region" validate:"required"`
	Start         string          `json:"start" validate:"required,isodate"`
	Stop          string          `json:"stop" validate:"required,isodate"`
	Percentile    *float64        `json:"percentile,omitempty" validate:"omitempty,gte=0,lte=100"`
	NDWIThreshold *float64        `json:"ndwi_threshold,omitempty" validate:"omitempty,gte=-1,lte=1"`
	Scale         *float64        `json:"scale,omitempty" validate:"omitempty,gt=0"`
}

// SetDefaults fills in the composite percentile, threshold and scale.
func (r *WaterMaskRawRequest) SetDefaults() {
	r.Percentile = orDefault(r.Percentile, 10)
	r.NDWIThreshold = orDefault(r.NDWIThreshold, 0)
	r.Scale = orDefault(r.Scale, 10)
}

func orDefault(v *float64, def float64) *float64 {
	if v != nil {
		return v
	}
	return &def
}

// GetWaterMaskRaw thresholds the NDWI of a cloud-free percentile composite
// and vectorizes the result.
func (s *Service) GetWaterMaskRaw(ctx context.Context, req *WaterMaskRawRequest) (json.RawMessage, error) {
	req.SetDefaults()
	region, err := geometry("region", req.Region)
	if err != nil {
		return nil, err
	}
	scale := *req.Scale

	image := earthengine.LoadImageCollection(sentinel2).
		Select("B3", "B8").
		FilterBounds(region).
		FilterDate(req.Start, req.Stop).
		Map(func(i earthengine.Image) earthengine.Image { return i.Resample("bilinear") }).
		Reduce(earthengine.PercentileReducer(*req.Percentile))

	mask := image.NormalizedDifference().Gt(*req.NDWIThreshold)

	polygons := mask.Mask(mask).ReduceToVectors(earthengine.VectorOptions{
		Geometry: region,
		Scale:    scale / 2,
	}).ToList(10000).Map(func(o earthengine.Object) earthengine.Valuer {
		return earthengine.FeatureOf(o).Simplify(scale)
	})

	return s.featureResult(ctx, earthengine.FeatureCollectionFromList(polygons), req.UseURL)
}

// featureResult evaluates fc, or returns a download URL for it.
func (s *Service) featureResult(ctx context.Context, fc earthengine.FeatureCollection, useURL bool) (json.RawMessage, error) {
	if !useURL {
		return s.compute(ctx, fc)
	}
	u, err := s.tableURL(ctx, fc)
	if err != nil {
		return nil, err
	}
	return json.Marshal(u)
}

// WaterMaskRequest extracts the dominant water body from the monthly
// water history.
type WaterMaskRequest struct {
	UseURL bool            `json:"use_url"`
	Region json.RawMessage `json:"region" validate:"required"`
	Start  string          `json:"start" validate:"required,isodate"`
	Stop   string          `json:"stop" validate:"required,isodate"`
	Scale  float64         `json:"scale" validate:"gt=0"`
	CRS    string          `json:"crs" validate:"required,crs"`
}

// GetWaterMask returns the largest polygon where water occurs in more than
// 30% of the valid monthly observations.
func (s *Service) GetWaterMask(ctx context.Context, req *WaterMaskRequest) (json.RawMessage, error) {
	region, err := geometry("region", req.Region)
	if err != nil {
		return nil, err
	}
	fc := waterMaskVector(region, req.Scale, req.Start, req.Stop).
		Map(transformFeature(req.CRS, req.Scale))
	return s.featureResult(ctx, fc, req.UseURL)
}

func waterMaskVector(region earthengine.Geometry, scale float64, start, stop string) earthengine.FeatureCollection {
	occurrence := earthengine.LoadImageCollection(monthlyWater).
		FilterDate(start, stop).
		Map(func(i earthengine.Image) earthengine.Image { return i.Unmask(0).Resample("bicubic") }).
		Map(func(i earthengine.Image) earthengine.Image { return i.Eq(2).UpdateMask(i.Neq(0)) })
	water := occurrence.Sum().Divide(occurrence.Count())

	mask := water.Gt(0.3).FocalMode(scale*3, "circle", "meters")

	largest := mask.Mask(mask).ReduceToVectors(earthengine.VectorOptions{
		Geometry:  region,
		Scale:     scale / 2,
		TileScale: 4,
	}).Map(func(f earthengine.Feature) earthengine.Valuer {
		return f.Set("area", f.Area(scale))
	}).Sort("area", false).First()

	return earthengine.NewFeatureCollection(largest.Simplify(scale * 1.5))
}

func transformFeature(crs string, scale float64) func(earthengine.Feature) earthengine.Valuer {
	return func(f earthengine.Feature) earthengine.Valuer {
		return f.Transform(earthengine.NewProjection(crs).AtScale(scale), scale/100)
	}
}

// WaterNetworkRequest skeletonizes the water mask of a region.
type WaterNetworkRequest struct {
	Region json.RawMessage `json:"region" validate:"required"`
	Start  string          `json:"start" validate:"required,isodate"`
	Stop   string          `json:"stop" validate:"required,isodate"`
	Scale  float64         `json:"scale" validate:"gt=0"`
	CRS    string          `json:"crs" validate:"required,crs"`
}

// GetWaterNetwork returns the centerlines of the water mask as LineString
// features with a length property.
func (s *Service) GetWaterNetwork(ctx context.Context, req *WaterNetworkRequest) (json.RawMessage, error) {
	region, err := geometry("region", req.Region)
	if err != nil {
		return nil, err
	}
	sk := skeleton(req.Scale, waterMaskVector(region, req.Scale, req.Start, req.Stop))

	scale := req.Scale
	network := sk.centerline.
		Map(func(line earthengine.Feature) earthengine.Valuer {
			return line.Set("length", line.Length(scale/10))
		}).
		Map(transformFeature(req.CRS, scale))

	return s.compute(ctx, network)
}

// WaterNetworkPropertiesRequest samples width, elevation and flow
// accumulation along the water network.
type WaterNetworkPropertiesRequest struct {
	Region  json.RawMessage `json:"region" validate:"required"`
	Start   string          `json:"start" validate:"required,isodate"`
	Stop    string          `json:"stop" validate:"required,isodate"`
	Scale   float64         `json:"scale" validate:"gt=0"`
	Step    float64         `json:"step" validate:"gt=0"`
	CRS     string          `json:"crs" validate:"required,crs"`
	Network json.RawMessage `json:"network,omitempty"`
}

// GetWaterNetworkProperties places points every step meters along the
// centerlines and annotates each with river width, elevation and flow
// accumulation.
func (s *Service) GetWaterNetworkProperties(ctx context.Context, req *WaterNetworkPropertiesRequest) (json.RawMessage, error) {
	if len(req.Network) > 0 {
		return nil, usageErrorf("re-using existing networks is not supported")
	}
	region, err := geometry("region", req.Region)
	if err != nil {
		return nil, err
	}

	scale, step := req.Scale, req.Step
	errM := earthengine.ErrorMargin(scale / 2)

	sk := skeleton(scale, waterMaskVector(region, scale, req.Start, req.Stop))
	centerline := sk.centerline.Map(func(line earthengine.Feature) earthengine.Valuer {
		return line.Set("length", line.Length(errM))
	})

	longPoints := centerline.Filter(earthengine.FilterGt("length", step)).
		Map(func(line earthengine.Feature) earthengine.Valuer {
			distances := earthengine.Sequence(0, line.Length(errM), step)
			points := line.Geometry().CutLines(distances, errM).Geometries().Zip(distances).
				Map(func(o earthengine.Object) earthengine.Valuer {
					pair := o.AsList()
					start := earthengine.NewPoint(pair.Get(0).AsGeometry().Coordinates().Get(0), "")
					return earthengine.NewFeature(start, nil).
						Set("lineId", line.ID()).
						Set("offset", pair.Get(1).AsNumber())
				})
			return earthengine.FeatureCollectionFromList(points)
		}).
		Flatten()

	shortPoints := centerline.Filter(earthengine.FilterLte("length", step)).
		Map(func(line earthengine.Feature) earthengine.Valuer {
			first := line.GeometryIn(errM, "EPSG:4326").Coordinates().Get(0)
			return earthengine.NewFeature(earthengine.NewPoint(first, "EPSG:4326"), nil).
				Set("lineId", line.ID()).
				Set("offset", 0)
		})

	fa := earthengine.LoadImage(flowAccumulated)
	dem := earthengine.LoadImage(alosDEM).Select("MED")
	distance := sk.distance

	points := longPoints.Merge(shortPoints).
		Map(func(pt earthengine.Feature) earthengine.Valuer {
			width := distance.ReduceRegion(earthengine.MaxReducer(), pt.Geometry(), scale).Values().Get(0)
			return pt.Set("width", width.AsNumber().Multiply(scale).Multiply(2))
		}).
		Map(func(pt earthengine.Feature) earthengine.Valuer {
			elevation := dem.ReduceRegion(earthengine.MedianReducer(), pt.Geometry().Buffer(scale*10, nil), scale).Values().Get(0)
			return pt.Set("elevation", elevation.AsNumber())
		}).
		Map(func(pt earthengine.Feature) earthengine.Valuer {
			acc := fa.ReduceRegion(earthengine.MaxReducer(), pt.Geometry().Buffer(scale*10, nil), scale).Values().Get(0)
			return pt.Set("flow_accumulation", acc.AsNumber())
		}).
		Map(transformFeature(req.CRS, scale))

	return s.compute(ctx, points)
}
