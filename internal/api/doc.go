// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

/*
Package api is the HTTP surface of hydroengine.

Every operation is served twice:

  - at the root path (/get_bathymetry, /get_glossis_data, ...) with the bare
    JSON bodies hydro-engine clients have always received
  - under /api/v1 with the standard {success, data, meta} envelope

Both accept GET or POST with a JSON request body. Bodies are decoded with
goccy/go-json, request defaults are applied and the result is validated
before the hydro service runs. Errors always use the envelope shape and
carry a top-level message field, which is what older clients read.

Middleware:

  - request id and correlation id in the logging context
  - RealIP, Recoverer and CORS (go-chi)
  - per-IP rate limits (go-chi/httprate): 100/min by default, 10/min for
    routes that start batch exports, 1000/min for health probes
  - security headers and a 5 MiB body limit on API routes
  - Prometheus request metrics
  - optional JWT bearer auth on export routes (see package auth)

Operational endpoints are /health, /health/live, /health/ready and /metrics.
*/
package api
