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
	"github.com/google/go-cmp/cmp"
)

func TestGetCatchmentsValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     CatchmentRequest
		wantErr string
	}{
		{
			name:    "region filter",
			req:     CatchmentRequest{Region: json.RawMessage(testRegion), RegionFilter: FilterRegion, CatchmentLevel: 6},
			wantErr: "Value is not supported",
		},
		{
			name:    "upstream at level 7",
			req:     CatchmentRequest{Region: json.RawMessage(testRegion), RegionFilter: FilterUpstream, CatchmentLevel: 7},
			wantErr: "only level 6",
		},
		{
			name:    "missing region",
			req:     CatchmentRequest{RegionFilter: FilterIntersection, CatchmentLevel: 6},
			wantErr: "region is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestService(&fakeBackend{})
			req := tt.req
			_, err := s.GetCatchments(context.Background(), &req)
			wantUsageError(t, err, http.StatusBadRequest, tt.wantErr)
		})
	}
}

func TestGetCatchmentsUpstream(t *testing.T) {
	fb := &fakeBackend{compute: func(string) (string, error) { return `{"type":"FeatureCollection","features":[]}`, nil }}
	s := newTestService(fb)
	_, err := s.GetCatchments(context.Background(), &CatchmentRequest{
		Region:         json.RawMessage(testRegion),
		RegionFilter:   FilterUpstream,
		CatchmentLevel: 6,
	})
	if err != nil {
		t.Fatalf("GetCatchments() error = %v", err)
	}
	if !strings.Contains(fb.computed[0], "hybas_lev06_v1c_index") {
		t.Error("upstream graph does not use the level 6 index")
	}
}

func TestGetRiversFiltersUpstreamCells(t *testing.T) {
	fb := &fakeBackend{compute: func(string) (string, error) { return `{}`, nil }}
	s := newTestService(fb)
	gt := 1000
	_, err := s.GetRivers(context.Background(), &CatchmentRequest{
		Region:           json.RawMessage(testRegion),
		RegionFilter:     FilterIntersection,
		CatchmentLevel:   8,
		FilterUpstreamGt: &gt,
	})
	if err != nil {
		t.Fatalf("GetRivers() error = %v", err)
	}
	if !strings.Contains(fb.computed[0], "UP_CELLS") {
		t.Error("rivers graph does not filter on UP_CELLS")
	}
}

func TestGetLakeTimeSeries(t *testing.T) {
	t.Run("unknown variable", func(t *testing.T) {
		s := newTestService(&fakeBackend{})
		_, err := s.GetLakeTimeSeries(context.Background(), &LakeTimeSeriesRequest{LakeID: 1, Variable: "depth"})
		wantUsageError(t, err, http.StatusNotFound, "Unknown variable")
	})
	t.Run("water area", func(t *testing.T) {
		fb := &fakeBackend{compute: func(string) (string, error) {
			return `{"time":[1000,2000],"water_area":[12.5,null]}`, nil
		}}
		s := newTestService(fb)
		got, err := s.GetLakeTimeSeries(context.Background(), &LakeTimeSeriesRequest{LakeID: 183160, Variable: "water_area"})
		if err != nil {
			t.Fatalf("GetLakeTimeSeries() error = %v", err)
		}
		area := 12.5
		want := &LakeTimeSeries{Time: []int64{1000, 2000}, WaterArea: []*float64{&area, nil}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("GetLakeTimeSeries() mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestGetLakesIDOnly(t *testing.T) {
	fb := &fakeBackend{compute: func(string) (string, error) { return `[1,2,3]`, nil }}
	s := newTestService(fb)
	got, err := s.GetLakes(context.Background(), &LakesRequest{Region: json.RawMessage(testRegion), IDOnly: true})
	if err != nil {
		t.Fatalf("GetLakes() error = %v", err)
	}
	if string(got) != `[1,2,3]` {
		t.Errorf("GetLakes() = %s", got)
	}
}

func TestGetLakesURL(t *testing.T) {
	s := newTestService(&fakeBackend{})
	got, err := s.GetLakes(context.Background(), &LakesRequest{Region: json.RawMessage(testRegion)})
	if err != nil {
		t.Fatalf("GetLakes() error = %v", err)
	}
	if !strings.Contains(string(got), `"url":"https://download.example/table.json"`) {
		t.Errorf("GetLakes() = %s", got)
	}
}

func TestGetRaster(t *testing.T) {
	fb := &fakeBackend{}
	s := newTestService(fb)
	_, err := s.GetRaster(context.Background(), &RasterRequest{Variable: "nope", Region: json.RawMessage(testRegion), CellSize: 100, CRS: "EPSG:4326"})
	wantUsageError(t, err, http.StatusBadRequest, "unknown variable")

	var variable string
	for v := range s.Catalog().Rasters {
		variable = v
		break
	}
	out, err := s.GetRaster(context.Background(), &RasterRequest{Variable: variable, Region: json.RawMessage(testRegion), CellSize: 100, CRS: "EPSG:4326"})
	if err != nil {
		t.Fatalf("GetRaster(%s) error = %v", variable, err)
	}
	if out.URL == "" || len(fb.downloads) != 1 || fb.downloads[0].CRS != "EPSG:4326" {
		t.Errorf("GetRaster() = %+v, downloads %+v", out, fb.downloads)
	}
}
