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

	"github.com/tomtom215/hydroengine/internal/catalog"
	"github.com/tomtom215/hydroengine/internal/config"
)

func countBackend(n string) *fakeBackend {
	return &fakeBackend{compute: func(string) (string, error) { return n, nil }}
}

func TestGetLIWOScenarios(t *testing.T) {
	scale := 100.0
	tests := []struct {
		name    string
		version string
		counts  string
		req     LIWORequest
		wantErr string
		check   func(t *testing.T, fb *fakeBackend, out *LIWOResult)
	}{
		{
			name:    "legacy reports variable",
			version: LIWOLegacy,
			counts:  `2`,
			req:     LIWORequest{LIWOIDs: []interface{}{"a", "b"}, Band: "waterdepth"},
			check: func(t *testing.T, fb *fakeBackend, out *LIWOResult) {
				if out.Variable != "liwo" || out.MapID.MapID != "map-1" {
					t.Errorf("result = %+v", out)
				}
				if out.ExportURL != "" {
					t.Errorf("unexpected export url %q", out.ExportURL)
				}
			},
		},
		{
			name:    "v2 export",
			version: LIWOv2,
			counts:  `1`,
			req: LIWORequest{
				LIWOIDs: []interface{}{1.0, 2.0},
				Band:    "arrivaltime",
				Export:  true,
				Scale:   &scale,
			},
			check: func(t *testing.T, fb *fakeBackend, out *LIWOResult) {
				if out.CRS != liwoDefaultCRS || out.ExportURL == "" {
					t.Errorf("result = %+v", out)
				}
				if len(fb.downloads) != 1 || fb.downloads[0].Scale != scale {
					t.Errorf("downloads = %+v", fb.downloads)
				}
				if !strings.Contains(fb.maps[0], "aankomsttijd") {
					t.Error("v2 band name not selected")
				}
			},
		},
		{
			name:    "no images",
			version: LIWOv2,
			counts:  `0`,
			req:     LIWORequest{LIWOIDs: []interface{}{"x"}, Band: "waterdepth"},
			wantErr: "No images available for breach locations",
		},
		{
			name:    "unknown band",
			version: LIWOv1,
			req:     LIWORequest{LIWOIDs: []interface{}{"x"}, Band: "arrivaltime"},
			wantErr: "unknown band",
		},
		{
			name:    "unknown version",
			version: "v9",
			req:     LIWORequest{LIWOIDs: []interface{}{"x"}, Band: "waterdepth"},
			wantErr: "unknown LIWO version",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := countBackend(tt.counts)
			s := newTestService(fb)
			req := tt.req
			out, err := s.GetLIWOScenarios(context.Background(), tt.version, &req)
			if tt.wantErr != "" {
				wantUsageError(t, err, http.StatusBadRequest, tt.wantErr)
				return
			}
			if err != nil {
				t.Fatalf("GetLIWOScenarios() error = %v", err)
			}
			tt.check(t, fb, out)
		})
	}
}

func TestLIWOUnknownReducerIsUsageError(t *testing.T) {
	cat, err := catalog.Parse([]byte("liwo:\n  v2: {collection: c, id_key: k, bands: {waterdepth: wd}, reducers: {waterdepth: median}}\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	fb := countBackend(`1`)
	s := NewService(fb, nil, cat, &config.Config{})
	_, err = s.GetLIWOScenarios(context.Background(), LIWOv2, &LIWORequest{LIWOIDs: []interface{}{"x"}, Band: "waterdepth"})
	wantUsageError(t, err, http.StatusBadRequest, "unknown reducer")
	if len(fb.computed) != 0 {
		t.Errorf("computed %d graphs before rejecting the reducer", len(fb.computed))
	}
}

func TestLIWOv1FiltersPartialScenarios(t *testing.T) {
	fb := countBackend(`3`)
	s := newTestService(fb)
	_, err := s.GetLIWOScenarios(context.Background(), LIWOv1, &LIWORequest{
		LIWOIDs: []interface{}{"a", "b", "c"},
		Band:    "velocity",
	})
	if err != nil {
		t.Fatalf("GetLIWOScenarios() error = %v", err)
	}
	if len(fb.computed) != 2 {
		t.Fatalf("computed %d graphs, want selected and filtered counts", len(fb.computed))
	}
	filtered := 0
	for _, g := range fb.computed {
		if strings.Contains(g, `"b5"`) {
			filtered++
		}
	}
	if filtered != 1 {
		t.Errorf("%d count graphs filter on the full band list, want 1", filtered)
	}
}

func TestLIWOResultJSON(t *testing.T) {
	out := LIWOResult{LIWOIDs: []interface{}{"a"}, Band: "waterdepth"}
	b, err := json.Marshal(out)
	if err != nil {
		t.Fatal(err)
	}
	for _, absent := range []string{"export_url", "variable", "scale"} {
		if strings.Contains(string(b), absent) {
			t.Errorf("%s present in %s", absent, b)
		}
	}
}
