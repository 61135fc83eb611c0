// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

/*
Package services holds the suture.Service implementations run by the
supervisor tree.

HTTPServerService adapts *http.Server's blocking ListenAndServe to suture's
context-aware Serve and performs a bounded graceful shutdown.

TaskWatcher follows the batch export tasks submitted through
/start_water_velocity_jobs. It polls the backend operation for each tracked
task, logs state transitions and records the outcome in the
hydroengine_export_tasks_* metrics. The watcher implements hydro.TaskTracker
so the service hands it every operation it submits.
*/
package services
