// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package hydro

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestWaterMaskRawDefaults(t *testing.T) {
	req := &WaterMaskRawRequest{}
	req.SetDefaults()
	if *req.Percentile != 10 || *req.NDWIThreshold != 0 || *req.Scale != 10 {
		t.Errorf("defaults = %v %v %v", *req.Percentile, *req.NDWIThreshold, *req.Scale)
	}

	p := 50.0
	req = &WaterMaskRawRequest{Percentile: &p}
	req.SetDefaults()
	if *req.Percentile != 50 {
		t.Errorf("Percentile overwritten: %v", *req.Percentile)
	}
}

func TestGetWaterMaskRaw(t *testing.T) {
	fb := &fakeBackend{compute: func(string) (string, error) { return `{"type":"FeatureCollection","features":[]}`, nil }}
	s := newTestService(fb)
	_, err := s.GetWaterMaskRaw(context.Background(), &WaterMaskRawRequest{
		Region: json.RawMessage(testRegion),
		Start:  "2018-01-01",
		Stop:   "2018-06-01",
	})
	if err != nil {
		t.Fatalf("GetWaterMaskRaw() error = %v", err)
	}
	g := fb.computed[0]
	for _, want := range []string{sentinel2, "normalizedDifference", "reduceToVectors"} {
		if !strings.Contains(g, want) {
			t.Errorf("graph does not contain %s", want)
		}
	}
}

func TestGetWaterMaskURL(t *testing.T) {
	fb := &fakeBackend{}
	s := newTestService(fb)
	out, err := s.GetWaterMask(context.Background(), &WaterMaskRequest{
		UseURL: true,
		Region: json.RawMessage(testRegion),
		Start:  "2010-01-01",
		Stop:   "2015-01-01",
		Scale:  30,
		CRS:    "EPSG:4326",
	})
	if err != nil {
		t.Fatalf("GetWaterMask() error = %v", err)
	}
	var u URLResult
	if err := json.Unmarshal(out, &u); err != nil || u.URL == "" {
		t.Fatalf("GetWaterMask() = %s (%v)", out, err)
	}
	if len(fb.computed) != 0 {
		t.Errorf("computed %d graphs for a download url", len(fb.computed))
	}
}

func TestGetWaterNetwork(t *testing.T) {
	fb := &fakeBackend{compute: func(string) (string, error) { return `{"type":"FeatureCollection","features":[]}`, nil }}
	s := newTestService(fb)
	_, err := s.GetWaterNetwork(context.Background(), &WaterNetworkRequest{
		Region: json.RawMessage(testRegion),
		Start:  "2010-01-01",
		Stop:   "2015-01-01",
		Scale:  30,
		CRS:    "EPSG:4326",
	})
	if err != nil {
		t.Fatalf("GetWaterNetwork() error = %v", err)
	}
	g := fb.computed[0]
	for _, want := range []string{monthlyWater, "fastDistanceTransform", "Join.saveAll"} {
		if !strings.Contains(g, want) {
			t.Errorf("graph does not contain %s", want)
		}
	}
}

func TestGetWaterNetworkPropertiesRejectsNetwork(t *testing.T) {
	s := newTestService(&fakeBackend{})
	_, err := s.GetWaterNetworkProperties(context.Background(), &WaterNetworkPropertiesRequest{
		Region:  json.RawMessage(testRegion),
		Network: json.RawMessage(`{"type":"FeatureCollection","features":[]}`),
	})
	wantUsageError(t, err, http.StatusBadRequest, "not supported")
}

func TestGetWaterNetworkProperties(t *testing.T) {
	fb := &fakeBackend{compute: func(string) (string, error) { return `{"type":"FeatureCollection","features":[]}`, nil }}
	s := newTestService(fb)
	_, err := s.GetWaterNetworkProperties(context.Background(), &WaterNetworkPropertiesRequest{
		Region: json.RawMessage(testRegion),
		Start:  "2010-01-01",
		Stop:   "2015-01-01",
		Scale:  30,
		Step:   100,
		CRS:    "EPSG:4326",
	})
	if err != nil {
		t.Fatalf("GetWaterNetworkProperties() error = %v", err)
	}
	g := fb.computed[0]
	for _, want := range []string{flowAccumulated, alosDEM, "flow_accumulation", "width"} {
		if !strings.Contains(g, want) {
			t.Errorf("graph does not contain %s", want)
		}
	}
}
