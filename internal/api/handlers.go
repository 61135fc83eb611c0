// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/hydroengine/internal/hydro"
	"github.com/tomtom215/hydroengine/internal/logging"
)

// Handler holds the dependencies of all API handlers.
type Handler struct {
	svc       *hydro.Service
	version   string
	startTime time.Time
}

// NewHandler creates the API handlers for svc.
func NewHandler(svc *hydro.Service, version string) *Handler {
	if version == "" {
		version = "dev"
	}
	return &Handler{
		svc:       svc,
		version:   version,
		startTime: time.Now(),
	}
}

// route is one API operation. Export routes start batch jobs and get the
// strict rate limit and optional bearer auth.
type route struct {
	path   string
	op     operation
	export bool
}

// routes lists every operation. Paths are relative to the mount point.
func (h *Handler) routes() []route {
	s := h.svc
	rs := []route{
		{path: "/get_bathymetry", op: handle(s.GetBathymetry)},
		{path: "/get_image_urls", op: handle(s.GetImageURLs)},
		{path: "/get_raster_profile", op: handle(s.GetRasterProfile)},
		{path: "/get_raster", op: handle(s.GetRaster)},

		{path: "/get_water_mask_raw", op: handle(s.GetWaterMaskRaw)},
		{path: "/get_water_mask", op: handle(s.GetWaterMask)},
		{path: "/get_water_network", op: handle(s.GetWaterNetwork)},
		{path: "/get_water_network_properties", op: handle(s.GetWaterNetworkProperties)},

		{path: "/get_catchments", op: handle(s.GetCatchments)},
		{path: "/get_rivers", op: handle(s.GetRivers)},
		{path: "/get_lakes", op: handle(s.GetLakes)},
		{path: "/get_lake_by_id", op: handle(s.GetLakeByID)},
		{path: "/get_lake_time_series", op: handle(s.GetLakeTimeSeries)},
		{path: "/get_feature_collection", op: handle(s.GetFeatureCollection)},

		{path: "/get_liwo_scenarios", op: h.liwo(hydro.LIWOLegacy)},
		{path: "/v1/get_liwo_scenarios", op: h.liwo(hydro.LIWOv1)},
		{path: "/v2/get_liwo_scenarios", op: h.liwo(hydro.LIWOv2)},
	}

	for _, family := range hydro.DGDSFamilies() {
		rs = append(rs, route{path: "/get_" + family + "_data", op: h.dgds(family)})
	}

	return append(rs,
		route{path: "/get_elevation_data", op: handle(s.GetElevationData)},
		route{path: "/get_feature_info", op: handle(s.GetFeatureInfo)},

		route{path: "/get_sea_surface_height_time_series", op: handle(s.GetSeaSurfaceHeightTimeSeries)},
		route{path: "/get_sea_surface_height_trend_image", op: h.sshTrend},

		route{path: "/get_windfarm_data", op: handle(s.GetWindfarmData)},
		route{path: "/start_water_velocity_jobs", op: handle(s.SubmitEcopathJobs), export: true},
		route{path: "/get_task_status", op: h.taskStatus},
		route{path: "/get_task_output", op: handle(s.GetTaskOutput)},
	)
}

func (h *Handler) liwo(version string) operation {
	return handle(func(ctx context.Context, req *hydro.LIWORequest) (*hydro.LIWOResult, error) {
		return h.svc.GetLIWOScenarios(ctx, version, req)
	})
}

func (h *Handler) dgds(family string) operation {
	return handle(func(ctx context.Context, req *hydro.DGDSRequest) (*hydro.DGDSResult, error) {
		return h.svc.GetDGDSData(ctx, family, req)
	})
}

func (h *Handler) sshTrend(r *http.Request) (interface{}, error) {
	return h.svc.GetSeaSurfaceHeightTrendImage(r.Context())
}

// taskStatus answers with the bare state name, as hydro-engine did.
func (h *Handler) taskStatus(r *http.Request) (interface{}, error) {
	var req hydro.TaskRequest
	if err := decodeRequest(r, &req); err != nil {
		return nil, err
	}
	state, err := h.svc.GetTaskStatus(r.Context(), &req)
	if err != nil {
		return nil, err
	}
	return plainText(state), nil
}

// mapExpression returns the expression graph behind a map id.
func (h *Handler) mapExpression(r *http.Request) (interface{}, error) {
	return h.svc.MapExpression(chi.URLParam(r, "mapID"))
}

// Welcome serves the landing text.
func (h *Handler) Welcome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write([]byte(hydro.Welcome)); err != nil {
		logging.CtxErr(r.Context(), err).Msg("Failed to write welcome page")
	}
}
