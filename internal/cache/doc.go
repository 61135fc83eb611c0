// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

/*
Package cache provides the map id cache in front of the Earth Engine backend.

Creating a map is the most frequent backend call: every tile layer the
service hands out starts with one. Most requests repeat a small set of
datasets and date ranges, so identical expression graphs are memoized.

# Overview

The package has three layers:
  - Cache: a generic thread-safe in-memory TTL cache with LRU eviction
  - Store: a BadgerDB byte store with per-entry TTL (on disk or in memory)
  - MapCache: digest → map id and map id → expression, built on both

# Keys

MapCache keys the badger store with two prefixes:

	digest:<sha256 of expression + format>   → {"mapid","token","url"}
	graph:<mapid>                             → encoded expression graph

The digest entries let a restarted process reuse map ids; the graph entries
back the /maps/{mapID} endpoint, which returns the expression a tile layer
was built from.

# Usage Example

	store, err := cache.OpenStore(cfg.Cache.Path)
	if err != nil {
	    return err
	}
	defer store.Close()

	maps := cache.NewMapCache(store, cfg.Cache.TTL, cfg.Cache.MaxEntries)
	defer maps.Close()

	id, err := maps.GetOrCreate(ctx, image, earthengine.MapOptions{}, backend.CreateMap)

# Thread Safety

All types are safe for concurrent use. Concurrent GetOrCreate calls for the
same digest share one backend call via singleflight.
*/
package cache
