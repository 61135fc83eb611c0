// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package hydro

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
)

func TestSplitPalette(t *testing.T) {
	tests := map[string][]string{
		"#000000,#ffffff":   {"#000000", "#ffffff"},
		" #000000 , ffffff": {"#000000", "ffffff"},
		"":                  {},
		"#000000,,":         {"#000000"},
	}
	for in, want := range tests {
		if diff := cmp.Diff(want, splitPalette(in)); diff != "" {
			t.Errorf("splitPalette(%q) mismatch (-want +got):\n%s", in, diff)
		}
	}
}

func TestGetBathymetry(t *testing.T) {
	yes := true
	tests := []struct {
		name          string
		req           BathymetryRequest
		wantPalette   string
		wantHillshade bool
	}{
		{
			name:        "catalog palette",
			req:         BathymetryRequest{Dataset: "jetski", BeginDate: "2011-08-01", EndDate: "2011-09-01"},
			wantPalette: "",
		},
		{
			name:          "custom palette with hillshade",
			req:           BathymetryRequest{Dataset: "vaklodingen", BeginDate: "2011-08-01", EndDate: "2011-09-01", Palette: "#000000,#ffffff", Hillshade: &yes},
			wantPalette:   "#000000,#ffffff",
			wantHillshade: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := &fakeBackend{}
			s := newTestService(fb)
			req := tt.req
			got, err := s.GetBathymetry(context.Background(), &req)
			if err != nil {
				t.Fatalf("GetBathymetry() error = %v", err)
			}
			if tt.wantPalette != "" && got.Palette != tt.wantPalette {
				t.Errorf("Palette = %q, want %q", got.Palette, tt.wantPalette)
			}
			if got.Palette == "" {
				t.Error("Palette is empty")
			}
			if got.Begin != req.BeginDate || got.End != req.EndDate {
				t.Errorf("dates = %s..%s", got.Begin, got.End)
			}
			if hs := strings.Contains(fb.maps[0], "Terrain"); hs != tt.wantHillshade {
				t.Errorf("hillshade in graph = %v, want %v", hs, tt.wantHillshade)
			}
		})
	}
}

func TestGetImageURLs(t *testing.T) {
	fb := &fakeBackend{}
	s := newTestService(fb)
	got, err := s.GetImageURLs(context.Background(), &ImageURLsRequest{
		Dataset:   "bathymetry_jetski",
		BeginDate: "2011-08-01",
		Step:      30,
		Interval:  30,
	})
	if err != nil {
		t.Fatalf("GetImageURLs() error = %v", err)
	}
	if len(got) != imageURLWindows || len(fb.maps) != imageURLWindows {
		t.Fatalf("got %d windows, %d maps", len(got), len(fb.maps))
	}
	begin := time.Date(2011, 8, 1, 0, 0, 0, 0, time.UTC)
	last := got[imageURLWindows-1]
	if want := begin.Add(300 * 24 * time.Hour).UnixMilli(); last.Begin.Value != want {
		t.Errorf("last begin = %d, want %d", last.Begin.Value, want)
	}
	if last.End.Value-last.Begin.Value != int64(30*24*time.Hour/time.Millisecond) {
		t.Errorf("window length = %d ms", last.End.Value-last.Begin.Value)
	}
	if last.Begin.Type != "Date" || last.MapID.MapID == "" {
		t.Errorf("last window = %+v", last)
	}
}

func TestGetRasterProfile(t *testing.T) {
	fb := &fakeBackend{compute: func(string) (string, error) { return `{"type":"FeatureCollection"}`, nil }}
	s := newTestService(fb)
	line := `{"type":"LineString","coordinates":[[4.0,52.0],[4.1,52.1]]}`
	_, err := s.GetRasterProfile(context.Background(), &RasterProfileRequest{
		Polyline: json.RawMessage(line),
		Scale:    100,
		Dataset:  "bathymetry_jetski",
	})
	if err != nil {
		t.Fatalf("GetRasterProfile() error = %v", err)
	}
	if !strings.Contains(fb.computed[0], "cutLines") {
		t.Error("profile graph does not cut the polyline")
	}
}
