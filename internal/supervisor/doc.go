// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

/*
Package supervisor runs hydroengine's long-lived services under a suture v4
supervisor tree.

	RootSupervisor ("hydroengine")
	├── APISupervisor ("api-layer")
	│   └── HTTPServerService
	└── BackgroundSupervisor ("background-layer")
	    └── TaskWatcher

Services that return an error are restarted with suture's failure decay and
backoff. Supervisor events are logged through sutureslog into the zerolog
logger (see logging.NewSlogLogger).

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	tree.AddBackgroundService(watcher)
	err = tree.Serve(ctx)
*/
package supervisor
