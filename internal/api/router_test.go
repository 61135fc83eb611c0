// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/hydroengine/internal/auth"
	"github.com/tomtom215/hydroengine/internal/config"
	"github.com/tomtom215/hydroengine/internal/earthengine"
	"github.com/tomtom215/hydroengine/internal/hydro"
)

const testRegion = `{"type":"Polygon","coordinates":[[[4.0,52.0],[4.1,52.0],[4.1,52.1],[4.0,52.0]]]}`

// stubBackend answers every call with canned values.
type stubBackend struct {
	mu sync.Mutex

	computeOut string
	computeErr error
	pingErr    error
	ops        map[string]*earthengine.Operation

	maps int
}

func (b *stubBackend) Compute(context.Context, earthengine.Valuer) (json.RawMessage, error) {
	if b.computeErr != nil {
		return nil, b.computeErr
	}
	if b.computeOut == "" {
		return json.RawMessage("null"), nil
	}
	return json.RawMessage(b.computeOut), nil
}

func (b *stubBackend) CreateMap(context.Context, earthengine.Image, earthengine.MapOptions) (*earthengine.MapID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maps++
	return &earthengine.MapID{MapID: "map-1", URL: "https://tiles.example/map-1/{z}/{x}/{y}"}, nil
}

func (b *stubBackend) ImageDownloadURL(context.Context, earthengine.Image, earthengine.DownloadOptions) (string, error) {
	return "https://download.example/image", nil
}

func (b *stubBackend) TableDownloadURL(context.Context, earthengine.FeatureCollection, string) (string, error) {
	return "https://download.example/table", nil
}

func (b *stubBackend) ExportImage(context.Context, earthengine.ExportOptions) (*earthengine.Operation, error) {
	return &earthengine.Operation{Name: "projects/test/operations/TASK1"}, nil
}

func (b *stubBackend) GetOperation(_ context.Context, name string) (*earthengine.Operation, error) {
	if op, ok := b.ops[name]; ok {
		return op, nil
	}
	return nil, &earthengine.APIError{StatusCode: http.StatusNotFound, Message: "not found"}
}

func (b *stubBackend) Ping(context.Context) error { return b.pingErr }

func newTestServer(t *testing.T, backend *stubBackend, authMW *auth.Middleware, chiMW *ChiMiddleware) http.Handler {
	t.Helper()
	svc := hydro.NewService(backend, nil, nil, &config.Config{})
	return NewRouter(NewHandler(svc, "test"), authMW, chiMW).SetupChi()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return resp
}

func TestWelcome(t *testing.T) {
	h := newTestServer(t, &stubBackend{}, nil, nil)
	rec := do(t, h, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Welcome to Hydro Earth Engine") {
		t.Errorf("body = %q", rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
}

func TestHealthEndpoints(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		pingErr    error
		wantStatus int
	}{
		{name: "health ok", path: "/health", wantStatus: http.StatusOK},
		{name: "health degraded", path: "/health", pingErr: errors.New("no key"), wantStatus: http.StatusOK},
		{name: "live", path: "/health/live", pingErr: errors.New("no key"), wantStatus: http.StatusOK},
		{name: "ready", path: "/health/ready", wantStatus: http.StatusOK},
		{name: "not ready", path: "/health/ready", pingErr: errors.New("no key"), wantStatus: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, &stubBackend{pingErr: tt.pingErr}, nil, nil)
			rec := do(t, h, http.MethodGet, tt.path, "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			resp := decodeEnvelope(t, rec)
			if resp.Success != (tt.wantStatus == http.StatusOK) {
				t.Errorf("success = %v", resp.Success)
			}
		})
	}
}

func TestHealthReportsDegradedBackend(t *testing.T) {
	h := newTestServer(t, &stubBackend{pingErr: errors.New("no key")}, nil, nil)
	rec := do(t, h, http.MethodGet, "/health", "")

	var resp struct {
		Data HealthStatus `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Data.Status != "degraded" || resp.Data.BackendReady || resp.Data.Version != "test" {
		t.Errorf("health = %+v", resp.Data)
	}
}

func TestLegacyAndEnvelopeRoutes(t *testing.T) {
	h := newTestServer(t, &stubBackend{}, nil, nil)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rec := do(t, h, method, "/get_sea_surface_height_trend_image", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s legacy status = %d: %s", method, rec.Code, rec.Body.String())
		}
		var legacyBody earthengine.MapID
		if err := json.Unmarshal(rec.Body.Bytes(), &legacyBody); err != nil || legacyBody.MapID != "map-1" {
			t.Errorf("%s legacy body = %s (%v)", method, rec.Body.String(), err)
		}
	}

	rec := do(t, h, http.MethodPost, "/api/v1/get_sea_surface_height_trend_image", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("v1 status = %d", rec.Code)
	}
	var wrapped struct {
		Success bool              `json:"success"`
		Data    earthengine.MapID `json:"data"`
		Meta    APIMeta           `json:"meta"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &wrapped); err != nil {
		t.Fatal(err)
	}
	if !wrapped.Success || wrapped.Data.MapID != "map-1" || wrapped.Meta.RequestID == "" {
		t.Errorf("v1 body = %s", rec.Body.String())
	}
}

func TestEveryOperationIsRouted(t *testing.T) {
	h := newTestServer(t, &stubBackend{}, nil, nil)
	paths := []string{
		"/get_bathymetry", "/get_image_urls", "/get_raster_profile", "/get_raster",
		"/get_water_mask_raw", "/get_water_mask", "/get_water_network", "/get_water_network_properties",
		"/get_catchments", "/get_rivers", "/get_lakes", "/get_lake_by_id", "/get_lake_time_series",
		"/get_feature_collection", "/get_liwo_scenarios", "/v1/get_liwo_scenarios", "/v2/get_liwo_scenarios",
		"/get_glossis_data", "/get_gloffis_data", "/get_metocean_data", "/get_chasm_data", "/get_gtsm_data",
		"/get_crucial_data", "/get_msfd_data", "/get_gebco_data", "/get_gll_dtm_data",
		"/get_elevation_data", "/get_feature_info", "/get_sea_surface_height_time_series",
		"/get_windfarm_data", "/start_water_velocity_jobs", "/get_task_status", "/get_task_output",
	}
	for _, p := range paths {
		for _, prefix := range []string{"", "/api/v1"} {
			rec := do(t, h, http.MethodPost, prefix+p, "not json")
			if rec.Code == http.StatusNotFound || rec.Code == http.StatusMethodNotAllowed {
				t.Errorf("POST %s%s = %d", prefix, p, rec.Code)
			}
		}
	}
}

func TestRequestErrors(t *testing.T) {
	tests := []struct {
		name       string
		backend    *stubBackend
		path       string
		body       string
		wantStatus int
		wantCode   string
		wantType   string
	}{
		{
			name:       "missing fields",
			backend:    &stubBackend{},
			path:       "/get_bathymetry",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeValidationFailed,
			wantType:   TypeInvalidUsage,
		},
		{
			name:       "malformed json",
			backend:    &stubBackend{},
			path:       "/get_bathymetry",
			body:       `{"dataset":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeBadRequest,
			wantType:   TypeInvalidUsage,
		},
		{
			name:       "usage error with status",
			backend:    &stubBackend{},
			path:       "/get_lake_time_series",
			body:       `{"lake_id":1,"variable":"depth"}`,
			wantStatus: http.StatusNotFound,
			wantCode:   ErrCodeNotFound,
			wantType:   TypeInvalidUsage,
		},
		{
			name:       "backend rejects",
			backend:    &stubBackend{computeErr: &earthengine.APIError{StatusCode: 400, Status: "INVALID_ARGUMENT", Message: "Image.load: asset not found"}},
			path:       "/get_sea_surface_height_time_series",
			body:       `{"region":` + testRegion + `}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeBackendRejected,
			wantType:   TypeBackendError,
		},
		{
			name:       "backend down",
			backend:    &stubBackend{computeErr: &earthengine.APIError{StatusCode: 503, Message: "unavailable"}},
			path:       "/api/v1/get_sea_surface_height_time_series",
			body:       `{"region":` + testRegion + `}`,
			wantStatus: http.StatusBadGateway,
			wantCode:   ErrCodeExternalServiceFail,
			wantType:   TypeBackendError,
		},
		{
			name:       "unexpected",
			backend:    &stubBackend{computeErr: errors.New("boom")},
			path:       "/get_sea_surface_height_time_series",
			body:       `{"region":` + testRegion + `}`,
			wantStatus: http.StatusInternalServerError,
			wantCode:   ErrCodeInternalError,
			wantType:   TypeUnexpectedException,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, tt.backend, nil, nil)
			rec := do(t, h, http.MethodPost, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			resp := decodeEnvelope(t, rec)
			if resp.Success || resp.Error == nil {
				t.Fatalf("body = %s", rec.Body.String())
			}
			if resp.Error.Code != tt.wantCode || resp.Error.Type != tt.wantType {
				t.Errorf("error = %+v", resp.Error)
			}
			if resp.Message == "" || resp.Message != resp.Error.Message {
				t.Errorf("message = %q, error message = %q", resp.Message, resp.Error.Message)
			}
		})
	}
}

func TestTaskStatusIsPlainText(t *testing.T) {
	backend := &stubBackend{ops: map[string]*earthengine.Operation{
		"projects/test/operations/T1": {
			Name:     "projects/test/operations/T1",
			Metadata: earthengine.OperationMetadata{State: earthengine.StateRunning},
		},
	}}
	h := newTestServer(t, backend, nil, nil)

	rec := do(t, h, http.MethodPost, "/get_task_status", `{"task_id":"projects/test/operations/T1"}`)
	if rec.Code != http.StatusOK || rec.Body.String() != "RUNNING" {
		t.Fatalf("status = %d, body = %q", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q", ct)
	}

	rec = do(t, h, http.MethodPost, "/api/v1/get_task_status", `{"task_id":"projects/test/operations/T2"}`)
	resp := decodeEnvelope(t, rec)
	if resp.Data != earthengine.StateUnknown {
		t.Errorf("v1 data = %v", resp.Data)
	}
}

func TestMapsRoute(t *testing.T) {
	h := newTestServer(t, &stubBackend{}, nil, nil)
	rec := do(t, h, http.MethodGet, "/maps/abc", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	h := newTestServer(t, &stubBackend{}, nil, nil)
	if rec := do(t, h, http.MethodGet, "/no_such_route", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d", rec.Code)
	}
	rec := do(t, h, http.MethodPut, "/get_bathymetry", "{}")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("PUT status = %d", rec.Code)
	}
	if resp := decodeEnvelope(t, rec); resp.Error == nil || resp.Error.Code != ErrCodeMethodNotAllowed {
		t.Errorf("PUT body = %s", rec.Body.String())
	}
}

func TestBodyLimit(t *testing.T) {
	h := newTestServer(t, &stubBackend{}, nil, nil)
	big := `{"region":"` + strings.Repeat("x", MaxBodyBytes) + `"}`
	rec := do(t, h, http.MethodPost, "/get_water_mask", big)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestExportRouteRequiresToken(t *testing.T) {
	sec := &config.SecurityConfig{JWTSecret: strings.Repeat("s", 40)}
	manager, err := auth.NewJWTManager(sec)
	if err != nil {
		t.Fatal(err)
	}
	h := newTestServer(t, &stubBackend{computeOut: `[1]`}, auth.NewMiddleware(manager, config.AuthModeJWT), nil)

	rec := do(t, h, http.MethodPost, "/start_water_velocity_jobs", `{}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp := decodeEnvelope(t, rec); resp.Error == nil || resp.Error.Code != ErrCodeUnauthorized {
		t.Errorf("body = %s", rec.Body.String())
	}

	// Read-only routes stay public.
	if rec := do(t, h, http.MethodGet, "/get_sea_surface_height_trend_image", ""); rec.Code != http.StatusOK {
		t.Errorf("public route status = %d", rec.Code)
	}

	token, err := manager.GenerateToken("ops", "exporter")
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/start_water_velocity_jobs", strings.NewReader(`{"n_periods":1}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("authorized status = %d: %s", rec.Code, rec.Body.String())
	}
	var tasks []hydro.ExportTask
	if err := json.Unmarshal(rec.Body.Bytes(), &tasks); err != nil || len(tasks) != 1 || tasks[0].TaskID != "TASK1" {
		t.Errorf("tasks = %s (%v)", rec.Body.String(), err)
	}
}

func TestWriteErrorReportsSubmittedExports(t *testing.T) {
	err := &hydro.ExportSubmitError{
		Failed:    "ecopath_HYCOM2020-08-01T00_00_00",
		Submitted: []hydro.ExportTask{{TaskID: "TASK1", Description: "ecopath_HYCOM2020-07-01T00_00_00"}},
		Err:       &earthengine.APIError{StatusCode: 503, Message: "unavailable"},
	}
	rec := httptest.NewRecorder()
	writeError(rec, httptest.NewRequest(http.MethodPost, "/start_water_velocity_jobs", nil), err)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	var body struct {
		Error struct {
			Details struct {
				FailedExport   string             `json:"failed_export"`
				SubmittedTasks []hydro.ExportTask `json:"submitted_tasks"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	d := body.Error.Details
	if d.FailedExport != err.Failed || len(d.SubmittedTasks) != 1 || d.SubmittedTasks[0].TaskID != "TASK1" {
		t.Errorf("details = %+v", d)
	}
}
