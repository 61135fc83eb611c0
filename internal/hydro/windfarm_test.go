// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package hydro

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestComputeWindfarm(t *testing.T) {
	f := &GeoJSONFeature{Properties: map[string]interface{}{
		propWindMagnitudeMean: 10.0,
		propNumberOfTurbines:  4.0,
		propTurbineSpacing:    1000.0,
		propBathymetry:        -20.0,
		propDistanceToPort:    50000.0,
	}}
	if err := computeWindfarm(f); err != nil {
		t.Fatalf("computeWindfarm() error = %v", err)
	}
	p := f.Properties

	if p[propHeight] != defaultHubHeight {
		t.Errorf("height = %v, want default %v", p[propHeight], defaultHubHeight)
	}
	magnitude := 10 * heightConversion(defaultHubHeight)
	if got := p["wind_magnitude_mean_height"].(float64); math.Abs(got-magnitude) > 1e-9 {
		t.Errorf("wind_magnitude_mean_height = %v, want %v", got, magnitude)
	}
	power := WindPower(magnitude)
	if got := p["wind_power_total"].(float64); math.Abs(got-4*power) > 1e-3 {
		t.Errorf("wind_power_total = %v, want %v", got, 4*power)
	}
	if p["spacing"] != 1000.0 || p["area_per_turbine"] != 1000.0 {
		t.Errorf("spacing = %v, area_per_turbine = %v", p["spacing"], p["area_per_turbine"])
	}
	if got := p["levelized_cost_of_energy"].(float64); got != LCOE(50, 20) {
		t.Errorf("levelized_cost_of_energy = %v, want LCOE(50 km, 20 m)", got)
	}
}

func TestComputeWindfarmHonoursHeight(t *testing.T) {
	f := &GeoJSONFeature{Properties: map[string]interface{}{
		propHeight:            260.0,
		propWindMagnitudeMean: 8.0,
		propNumberOfTurbines:  1.0,
		propTurbineSpacing:    800.0,
		propBathymetry:        -30.0,
		propDistanceToPort:    10000.0,
	}}
	if err := computeWindfarm(f); err != nil {
		t.Fatalf("computeWindfarm() error = %v", err)
	}
	want := 8 * heightConversion(260)
	if got := f.Properties["wind_magnitude_mean_height"].(float64); math.Abs(got-want) > 1e-9 {
		t.Errorf("wind_magnitude_mean_height = %v, want %v", got, want)
	}
}

func TestComputeWindfarmMissingWind(t *testing.T) {
	f := &GeoJSONFeature{}
	err := computeWindfarm(f)
	if err == nil || !strings.Contains(err.Error(), propWindMagnitudeMean) {
		t.Fatalf("computeWindfarm() error = %v", err)
	}
	if _, ok := f.Properties["levelized_cost_of_energy"]; ok {
		t.Error("cost computed without inputs")
	}
}

func TestGetWindfarmData(t *testing.T) {
	fb := &fakeBackend{compute: func(string) (string, error) {
		return `{"type":"FeatureCollection","features":[{"type":"Feature","id":"farm","geometry":null,"properties":{
			"wind_magnitude_mean":9.5,"n_turbines":12,"turbine_spacing":1000,"bathymetry":-25,"distance_to_port":40000,"area":1.2e7}}]}`, nil
	}}
	s := newTestService(fb)

	var req WindfarmRequest
	body := `{"features":[{"type":"Feature","id":"farm","geometry":` + testRegion + `,"properties":{"turbine_spacing":1000}}]}`
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	got, err := s.GetWindfarmData(context.Background(), &req)
	if err != nil {
		t.Fatalf("GetWindfarmData() error = %v", err)
	}
	if got.Type != "FeatureCollection" || len(got.Features) != 1 {
		t.Fatalf("GetWindfarmData() = %+v", got)
	}
	if _, ok := got.Features[0].Properties["wind_power_total"]; !ok {
		t.Error("wind_power_total missing")
	}

	graph := fb.computed[0]
	for _, want := range []string{globalWindAtlas, gebcoBathymetry, ports, landPolygons, "system:index"} {
		if !strings.Contains(graph, want) {
			t.Errorf("graph does not reference %s", want)
		}
	}
}

func TestGetWindfarmDataBadGeometry(t *testing.T) {
	s := newTestService(&fakeBackend{})
	_, err := s.GetWindfarmData(context.Background(), &WindfarmRequest{
		Features: []*GeoJSONFeature{{Type: "Feature"}},
	})
	wantUsageError(t, err, 400, "features[0].geometry")
}
