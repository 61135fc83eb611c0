// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

/*
Package main is the entry point for the hydroengine server.

Hydroengine exposes hydrological and coastal datasets over HTTP. Every
request is translated into an Earth Engine expression graph and evaluated
through the Earth Engine REST API; tile layers, download URLs and batch
exports are returned to the caller.

# Commands

	hydroengine [serve]          run the HTTP server (default)
	hydroengine token            print a JWT for the export endpoints
	hydroengine datasets         list the embedded dataset catalog as JSON

# Application Architecture

	RootSupervisor ("hydroengine")
	├── APISupervisor ("api-layer")
	│   └── HTTP Server (chi router)
	└── BackgroundSupervisor ("background-layer")
	    └── Export task watcher

Component initialization order:

 1. Configuration: koanf v2 (defaults, config.yaml, environment)
 2. Logging: zerolog with JSON/console output
 3. Backend: OAuth2 service account credentials, REST client, circuit breaker
 4. Map cache: badger (on disk or in memory)
 5. Hydro service with the embedded dataset catalog
 6. API router: chi with CORS, rate limits and optional JWT auth
 7. Supervisor tree: suture v4 with signal handling

# Configuration

Priority: environment variables > config file > defaults

	HTTP_PORT=8080               # also --port
	CONFIG_PATH=config.yaml      # also --config
	EE_PROJECT=my-project        # Earth Engine cloud project
	EE_SERVICE_ACCOUNT=...       # service account email
	EE_PRIVATE_KEY_FILE=privatekey.json
	AUTH_MODE=none               # none or jwt
	JWT_SECRET=...               # 32+ characters when AUTH_MODE=jwt
	LOG_LEVEL=info
	LOG_FORMAT=json

# Signal Handling

SIGINT and SIGTERM cancel the supervisor tree. The HTTP server stops
accepting connections and drains in-flight requests for at most
HTTP_SHUTDOWN_TIMEOUT before the process exits.
*/
package main
