// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

/*
Package auth provides optional bearer-token authentication.

Most of the API is public, as it always was. Routes that start batch exports
cost backend quota, so they can be put behind a JWT when the server runs with
security.auth_mode=jwt:

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	mw := auth.NewMiddleware(jwtManager, cfg.Security.AuthMode)
	r.With(mw.RequireToken).Post("/start_water_velocity_jobs", ...)

Tokens are HS256-signed and carry a subject and a role. They are minted by the
`hydroengine token` subcommand; there is no login endpoint.

In none mode RequireToken passes every request through unchanged.
*/
package auth
