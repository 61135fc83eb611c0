// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package hydro

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	ee "github.com/tomtom215/hydroengine/internal/earthengine"
	"github.com/tomtom215/hydroengine/internal/logging"
)

const (
	ports           = "projects/dgds-gee/worldlogistic/port"
	gebcoBathymetry = "projects/dgds-gee/gebco/2019"
	landPolygons    = "users/gena/land_polygons_image"
	globalWindAtlas = "projects/dgds-gee/gwa/gwa3/10m"

	windfarmScale          = 1000
	portSearchRadius       = 200000
	defaultTurbineSpacing  = 1000
	propWindMagnitudeMean  = "wind_magnitude_mean"
	propTurbineSpacing     = "turbine_spacing"
	propDistanceToPort     = "distance_to_port"
	propBathymetry         = "bathymetry"
	propNumberOfTurbines   = "n_turbines"
	propHeight             = "height"
	propArea               = "area"
	turbineGridIDSuffix    = "-turbines"
	distortionOffsetMeters = 1
)

// GeoJSONFeature is a client-side GeoJSON feature.
type GeoJSONFeature struct {
	Type       string                 `json:"type"`
	ID         interface{}            `json:"id,omitempty"`
	Geometry   json.RawMessage        `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// GeoJSONFeatureCollection is a client-side GeoJSON feature collection.
type GeoJSONFeatureCollection struct {
	Type     string            `json:"type"`
	Features []*GeoJSONFeature `json:"features"`
}

// WindfarmRequest carries the candidate wind farm polygons.
type WindfarmRequest struct {
	Features []*GeoJSONFeature `json:"features" validate:"required,min=1"`
}

// windfarmDataset stacks the per-pixel wind farm inputs.
func windfarmDataset() ee.Image {
	toPort := ee.LoadFeatureCollection(ports).
		Distance(portSearchRadius, windfarmScale).
		Rename(propDistanceToPort)

	toCoast := ee.LoadImage(landPolygons).
		MaskImage().
		Resample("bicubic").
		FastDistanceTransform().
		Sqrt().
		Reproject(ee.NewProjection("EPSG:3857").AtScale(windfarmScale)).
		Multiply(windfarmScale).
		Rename("distance_to_coast")

	return ee.LoadImage(globalWindAtlas).Rename(propWindMagnitudeMean).
		AddBands(ee.LoadImage(gebcoBathymetry).Rename(propBathymetry)).
		AddBands(toPort).
		AddBands(toCoast)
}

// distortion returns the EPSG:3857 units per meter at the centre of g.
func distortion(g ee.Geometry) (scaleX, scaleY ee.Number) {
	center := g.Centroid(1).Transform("EPSG:3857", nil)
	coords := center.Coordinates()
	x, y := coords.Get(0).AsNumber(), coords.Get(1).AsNumber()

	east := ee.NewPoint(ee.ListOf(x.Add(distortionOffsetMeters), y), "EPSG:3857")
	north := ee.NewPoint(ee.ListOf(x, y.Add(distortionOffsetMeters)), "EPSG:3857")

	scaleX = ee.NumberOf(1).Divide(east.Distance(center, nil))
	scaleY = ee.NumberOf(1).Divide(north.Distance(center, nil))
	return scaleX, scaleY
}

// turbineGrid lays an unrotated grid of turbines over the feature, spaced
// turbine_spacing meters apart (1000 by default), and records the count.
func turbineGrid(f ee.Feature) ee.Valuer {
	spacing := ee.If(
		f.GetNumber(propTurbineSpacing),
		f.GetNumber(propTurbineSpacing),
		defaultTurbineSpacing,
	).AsNumber()

	bounds := f.Geometry().Bounds(nil).Transform("EPSG:3857", 1)
	scaleX, scaleY := distortion(bounds)

	outer := bounds.Coordinates().Get(0).AsList()
	ll, ur := outer.Get(0).AsList(), outer.Get(2).AsList()
	xs := ee.Sequence(ll.Get(0), ur.Get(0), scaleX.Multiply(spacing))
	ys := ee.Sequence(ll.Get(1), ur.Get(1), scaleY.Multiply(spacing))

	coords := xs.Map(func(x ee.Object) ee.Valuer {
		return ys.Map(func(y ee.Object) ee.Valuer { return ee.ListOf(x, y) })
	}).Flatten()

	points := ee.NewMultiPoint(coords, "EPSG:3857").
		Transform("EPSG:4326", nil).
		Intersection(f.Geometry(), nil)

	grid := ee.NewFeature(points, map[string]interface{}{
		"id":                 f.ID().Cat(turbineGridIDSuffix),
		propNumberOfTurbines: points.Coordinates().Size(),
		propTurbineSpacing:   spacing,
	})
	return f.CopyProperties(grid)
}

// windfarmFeatures converts the request features, keeping their ids.
func windfarmFeatures(features []*GeoJSONFeature) (ee.FeatureCollection, error) {
	out := make([]ee.Feature, 0, len(features))
	for i, f := range features {
		geom, err := geometry(fmt.Sprintf("features[%d].geometry", i), f.Geometry)
		if err != nil {
			return ee.FeatureCollection{}, err
		}
		props := make(map[string]interface{}, len(f.Properties)+1)
		for k, v := range f.Properties {
			props[k] = v
		}
		if f.ID != nil {
			props["system:index"] = fmt.Sprint(f.ID)
		}
		out = append(out, ee.NewFeature(geom, props))
	}
	return ee.NewFeatureCollection(out...), nil
}

// GetWindfarmData estimates wind power and cost of energy for each
// candidate wind farm polygon.
func (s *Service) GetWindfarmData(ctx context.Context, req *WindfarmRequest) (*GeoJSONFeatureCollection, error) {
	collection, err := windfarmFeatures(req.Features)
	if err != nil {
		return nil, err
	}

	farms := windfarmDataset().
		ReduceRegions(collection, ee.MeanReducer(), windfarmScale).
		Map(func(f ee.Feature) ee.Valuer { return f.Set(propArea, f.Geometry().Area(nil)) }).
		Map(turbineGrid)

	var out GeoJSONFeatureCollection
	if err := s.computeInto(ctx, farms, &out); err != nil {
		return nil, err
	}
	for _, f := range out.Features {
		if err := computeWindfarm(f); err != nil {
			logging.CtxWarn(ctx).Err(err).Interface("id", f.ID).Msg("wind farm left without estimates")
		}
	}
	out.Type = "FeatureCollection"
	return &out, nil
}

func number(props map[string]interface{}, key string) (float64, bool) {
	switch v := props[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

// computeWindfarm adds the locally computed wind farm properties.
func computeWindfarm(f *GeoJSONFeature) error {
	if f.Properties == nil {
		f.Properties = map[string]interface{}{}
	}
	p := f.Properties

	height, ok := number(p, propHeight)
	if !ok || height <= 0 {
		height = defaultHubHeight
	}
	p[propHeight] = height

	required := func(key string) (float64, error) {
		v, ok := number(p, key)
		if !ok {
			return 0, fmt.Errorf("missing %s", key)
		}
		return v, nil
	}
	wind, err := required(propWindMagnitudeMean)
	if err != nil {
		return err
	}
	nTurbines, err := required(propNumberOfTurbines)
	if err != nil {
		return err
	}
	spacing, err := required(propTurbineSpacing)
	if err != nil {
		return err
	}

	magnitude := wind * heightConversion(height)
	power := WindPower(magnitude)

	p["wind_magnitude_mean_height"] = magnitude
	p["wind_power_mean"] = power
	p["wind_power_total"] = power * nTurbines
	p["area_per_turbine"] = spacing
	p["spacing"] = spacing

	bathymetry, err := required(propBathymetry)
	if err != nil {
		return err
	}
	toPort, err := required(propDistanceToPort)
	if err != nil {
		return err
	}
	p["levelized_cost_of_energy"] = LCOE(toPort/1000, -bathymetry)
	return nil
}
