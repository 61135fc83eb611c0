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

func TestLinearGradient(t *testing.T) {
	tests := []struct {
		name     string
		palette  []string
		function string
		want     []string
	}{
		{"empty", nil, "", []string{}},
		{"single", []string{"#000000"}, "", []string{"0.000%"}},
		{"linear", []string{"#000000", "#888888", "#ffffff"}, "", []string{"0.000%", "50.000%", "100.000%"}},
		{"log", []string{"#000000", "#888888", "#ffffff"}, FunctionLog, []string{"0.000%", "10.000%", "100.000%"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stops := linearGradient(tt.palette, tt.function)
			got := make([]string, len(stops))
			for i, s := range stops {
				got[i] = s.Offset
				if s.Opacity != 100 {
					t.Errorf("stop %d opacity = %d", i, s.Opacity)
				}
				if s.Color != tt.palette[i] {
					t.Errorf("stop %d color = %q", i, s.Color)
				}
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("offsets mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolveSource(t *testing.T) {
	tests := []struct {
		name       string
		family     string
		req        DGDSRequest
		wantSource string
		wantImage  string
		wantErr    string
	}{
		{
			name:       "glossis dataset",
			family:     "glossis",
			req:        DGDSRequest{Dataset: "currents"},
			wantSource: "projects/dgds-gee/glossis/currents",
		},
		{
			name:       "glossis image id",
			family:     "glossis",
			req:        DGDSRequest{ImageID: "projects/dgds-gee/glossis/currents/20200101"},
			wantSource: "projects/dgds-gee/glossis/currents",
			wantImage:  "projects/dgds-gee/glossis/currents/20200101",
		},
		{
			name:       "gtsm image id is the source",
			family:     "gtsm",
			req:        DGDSRequest{ImageID: "projects/dgds-gee/gtsm/waterlevel_return_period", Band: "rp0001"},
			wantSource: "projects/dgds-gee/gtsm/waterlevel_return_period",
			wantImage:  "projects/dgds-gee/gtsm/waterlevel_return_period",
		},
		{
			name:       "chasm image id overrides dataset",
			family:     "chasm",
			req:        DGDSRequest{Dataset: "waves", ImageID: "projects/dgds-gee/chasm/wind/20200101", Band: "ws"},
			wantSource: "projects/dgds-gee/chasm/wind",
			wantImage:  "projects/dgds-gee/chasm/wind/20200101",
		},
		{
			name:       "gebco defaults",
			family:     "gebco",
			wantSource: "projects/dgds-gee/bathymetry/gebco/2019",
		},
		{
			name:       "gll_dtm fixed",
			family:     "gll_dtm",
			wantSource: "users/maartenpronk/gll_dtm/gll_dtm_v1",
			wantImage:  "users/maartenpronk/gll_dtm/gll_dtm_v1",
		},
		{name: "missing dataset", family: "crucial", wantErr: "dataset or imageId required."},
		{name: "missing band", family: "gloffis", req: DGDSRequest{Dataset: "hydro"}, wantErr: "band is a required parameter"},
		{name: "unknown family", family: "nope", wantErr: "unknown dataset family"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			source, image, err := resolveSource(tt.family, &req)
			if tt.wantErr != "" {
				wantUsageError(t, err, http.StatusBadRequest, tt.wantErr)
				return
			}
			if err != nil {
				t.Fatalf("resolveSource() error = %v", err)
			}
			if source != tt.wantSource || image != tt.wantImage {
				t.Errorf("resolveSource() = (%q, %q), want (%q, %q)", source, image, tt.wantSource, tt.wantImage)
			}
		})
	}
}

func TestImageCollectionInfo(t *testing.T) {
	tests := []struct {
		name     string
		response string
		start    string
		end      string
		want     []ImageRef
	}{
		{
			name:     "ids and dates",
			response: `{"ids":["a/1","a/2"],"dates":["2020-01-01T00:00:00","2020-01-02T00:00:00"]}`,
			start:    "2020-01-01",
			want: []ImageRef{
				{ImageID: "a/1", Date: strPtr("2020-01-01T00:00:00")},
				{ImageID: "a/2", Date: strPtr("2020-01-02T00:00:00")},
			},
		},
		{
			name:     "dates missing",
			response: `{"ids":["a/1","a/2"],"dates":["2020-01-01T00:00:00"]}`,
			want:     []ImageRef{{ImageID: "a/1"}, {ImageID: "a/2"}},
		},
		{
			name:     "nothing",
			response: `{"ids":[],"dates":[]}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := &fakeBackend{compute: func(string) (string, error) { return tt.response, nil }}
			s := newTestService(fb)
			got, err := s.ImageCollectionInfo(context.Background(), "projects/dgds-gee/glossis/currents", tt.start, tt.end, 0)
			if err != nil {
				t.Fatalf("ImageCollectionInfo() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ImageCollectionInfo() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestImageCollectionInfoEndWithoutStart(t *testing.T) {
	fb := &fakeBackend{}
	s := newTestService(fb)
	got, err := s.ImageCollectionInfo(context.Background(), "projects/dgds-gee/glossis/currents", "", "2020-01-01", 0)
	if err != nil || got != nil {
		t.Fatalf("ImageCollectionInfo() = %v, %v; want nil, nil", got, err)
	}
	if len(fb.computed) != 0 {
		t.Errorf("backend called %d times", len(fb.computed))
	}
}

func TestImageCollectionInfoUnknownSource(t *testing.T) {
	s := newTestService(&fakeBackend{})
	_, err := s.ImageCollectionInfo(context.Background(), "projects/x/y", "", "", 0)
	wantUsageError(t, err, http.StatusBadRequest, "projects/x/y not in assets.")
}

// dgdsBackend answers the listing compute with ids and every other compute
// with an image date.
func dgdsBackend(ids string) *fakeBackend {
	return &fakeBackend{compute: func(g string) (string, error) {
		if strings.Contains(g, `"ids"`) {
			return `{"ids":` + ids + `,"dates":[]}`, nil
		}
		return `"2020-01-02T00:00:00"`, nil
	}}
}

func TestGetDGDSDataGlossisMagnitude(t *testing.T) {
	fb := dgdsBackend(`["projects/dgds-gee/glossis/currents/1","projects/dgds-gee/glossis/currents/2"]`)
	s := newTestService(fb)

	got, err := s.GetDGDSData(context.Background(), "glossis", &DGDSRequest{Dataset: "currents"})
	if err != nil {
		t.Fatalf("GetDGDSData() error = %v", err)
	}
	if got.ImageID != "projects/dgds-gee/glossis/currents/2" {
		t.Errorf("ImageID = %q, want latest image", got.ImageID)
	}
	if got.Function != FunctionMagnitude {
		t.Errorf("Function = %q, want default %q", got.Function, FunctionMagnitude)
	}
	if got.Max != 1.5 || len(got.Palette) != 7 {
		t.Errorf("vis = (%v, %v), want magnitude parameters", got.Max, got.Palette)
	}
	if got.Date == nil || *got.Date != "2020-01-02T00:00:00" {
		t.Errorf("Date = %v", got.Date)
	}
	if len(got.ImageTimeseries) != 2 || len(got.LinearGradient) != 7 {
		t.Errorf("timeseries %d, gradient %d", len(got.ImageTimeseries), len(got.LinearGradient))
	}
	if !strings.Contains(fb.maps[0], "Image.sqrt") {
		t.Errorf("map graph does not take the magnitude: %s", fb.maps[0])
	}
}

func TestGetDGDSDataNoImages(t *testing.T) {
	s := newTestService(dgdsBackend(`[]`))
	_, err := s.GetDGDSData(context.Background(), "glossis", &DGDSRequest{Dataset: "currents"})
	wantUsageError(t, err, http.StatusBadRequest, "No images returned.")
}

func TestGetDGDSDataRejectsFunction(t *testing.T) {
	s := newTestService(dgdsBackend(`["projects/dgds-gee/glossis/waterlevel/1"]`))
	_, err := s.GetDGDSData(context.Background(), "glossis", &DGDSRequest{
		Dataset:  "waterlevel",
		Band:     "water_level",
		Function: FunctionFlowmap,
	})
	wantUsageError(t, err, http.StatusBadRequest, "not available")
}

func TestGetDGDSDataLogScalesRange(t *testing.T) {
	s := newTestService(dgdsBackend(`["projects/dgds-gee/gloffis/hydro/1"]`))
	got, err := s.GetDGDSData(context.Background(), "gloffis", &DGDSRequest{
		Dataset: "hydro",
		Band:    "discharge_routed_simulated",
	})
	if err != nil {
		t.Fatalf("GetDGDSData() error = %v", err)
	}
	if got.Function != FunctionLog {
		t.Fatalf("Function = %q, want log", got.Function)
	}
	if got.Min != 1 || got.Max != 1e6 {
		t.Errorf("range = [%v, %v], want [1, 1e6]", got.Min, got.Max)
	}
}

func TestGetDGDSDataGebco(t *testing.T) {
	fb := dgdsBackend(`["projects/dgds-gee/bathymetry/gebco/2019"]`)
	s := newTestService(fb)
	got, err := s.GetDGDSData(context.Background(), "gebco", &DGDSRequest{})
	if err != nil {
		t.Fatalf("GetDGDSData() error = %v", err)
	}
	if got.Min != -6000 || got.Max != 3000 {
		t.Errorf("range = [%v, %v], want [-6000, 3000]", got.Min, got.Max)
	}
	if len(got.Palette) != 18 {
		t.Errorf("palette has %d colours, want bathymetry plus topography", len(got.Palette))
	}
	if got.Dataset == nil || *got.Dataset != "gebco" {
		t.Errorf("Dataset = %v", got.Dataset)
	}
	if !strings.Contains(fb.maps[0], "Image.hsvToRgb") {
		t.Error("gebco rendering is not hillshaded")
	}
}

func TestGetElevationData(t *testing.T) {
	t.Run("unknown dataset", func(t *testing.T) {
		s := newTestService(&fakeBackend{})
		_, err := s.GetElevationData(context.Background(), &ElevationRequest{Datasets: []string{"MOON"}})
		wantUsageError(t, err, http.StatusBadRequest, "MOON")
	})
	t.Run("overrides", func(t *testing.T) {
		fb := &fakeBackend{}
		s := newTestService(fb)
		lo, hi := -100.0, 100.0
		got, err := s.GetElevationData(context.Background(), &ElevationRequest{Datasets: []string{"GEBCO", "AHN2"}, Min: &lo, Max: &hi})
		if err != nil {
			t.Fatalf("GetElevationData() error = %v", err)
		}
		if got.Min != lo || got.Max != hi {
			t.Errorf("range = [%v, %v]", got.Min, got.Max)
		}
		if !strings.Contains(fb.maps[0], "ImageCollection.mosaic") {
			t.Errorf("elevation map is not a mosaic")
		}
	})
}

func TestGetFeatureInfo(t *testing.T) {
	t.Run("value", func(t *testing.T) {
		fb := &fakeBackend{compute: func(string) (string, error) {
			return `{"type":"Feature","id":"0","properties":{"value":1.5}}`, nil
		}}
		s := newTestService(fb)
		got, err := s.GetFeatureInfo(context.Background(), &FeatureInfoRequest{
			ImageID: "projects/dgds-gee/glossis/currents/20200101",
			BBox:    json.RawMessage(testRegion),
			Band:    "current_u",
		})
		if err != nil {
			t.Fatalf("GetFeatureInfo() error = %v", err)
		}
		if string(got) != `{"value":1.5}` {
			t.Errorf("GetFeatureInfo() = %s", got)
		}
	})
	t.Run("no data", func(t *testing.T) {
		s := newTestService(&fakeBackend{})
		got, err := s.GetFeatureInfo(context.Background(), &FeatureInfoRequest{
			ImageID: "projects/dgds-gee/glossis/currents/20200101",
			BBox:    json.RawMessage(testRegion),
		})
		if err != nil {
			t.Fatalf("GetFeatureInfo() error = %v", err)
		}
		if string(got) != `{"value":null}` {
			t.Errorf("GetFeatureInfo() = %s", got)
		}
	})
}

func TestSourceOf(t *testing.T) {
	tests := map[string]string{
		"projects/dgds-gee/glossis/currents/20200101": "projects/dgds-gee/glossis/currents",
		"projects/dgds-gee/glossis/currents":          "projects/dgds-gee/glossis/currents",
	}
	for in, want := range tests {
		if got := sourceOf(in); got != want {
			t.Errorf("sourceOf(%q) = %q, want %q", in, got, want)
		}
	}
}
