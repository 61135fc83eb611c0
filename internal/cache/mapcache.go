// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/hydroengine/internal/earthengine"
	"github.com/tomtom215/hydroengine/internal/logging"
	"github.com/tomtom215/hydroengine/internal/metrics"
)

// Key prefixes in the badger store.
const (
	digestKeyPrefix = "digest:"
	graphKeyPrefix  = "graph:"
)

// mapCreateTimeout bounds a shared map creation once it is detached from
// the request that started it.
const mapCreateTimeout = 2 * time.Minute

// ErrUnknownMap is returned by Expression for map ids this cache never
// created, or whose entry has expired.
var ErrUnknownMap = errors.New("unknown map id")

// CreateFunc creates a map for an image. Backend.CreateMap satisfies it.
type CreateFunc func(ctx context.Context, image earthengine.Image, opts earthengine.MapOptions) (*earthengine.MapID, error)

// MapCache memoizes map creation by expression digest and remembers the
// expression behind every map id it handed out.
//
// Lookups go memory first, then badger. Identical concurrent requests share
// one backend call, which runs detached from any single caller's context so
// a caller that gives up does not fail the others.
type MapCache struct {
	mem   *Cache[earthengine.MapID]
	store *Store
	ttl   time.Duration
	group singleflight.Group
}

// NewMapCache creates a map cache over store. ttl bounds how long a map id
// is reused; backend map ids themselves expire after a few hours.
func NewMapCache(store *Store, ttl time.Duration, maxEntries int) *MapCache {
	return &MapCache{
		mem:   New[earthengine.MapID](ttl, maxEntries),
		store: store,
		ttl:   ttl,
	}
}

// mapDigest is the cache key for an expression rendered in format.
func mapDigest(expr *earthengine.Expression, format string) (string, error) {
	d, err := earthengine.Digest(expr)
	if err != nil {
		return "", err
	}
	if format != "" {
		d += ":" + format
	}
	return d, nil
}

// GetOrCreate returns the cached map for image and opts, calling create on a
// miss.
func (m *MapCache) GetOrCreate(ctx context.Context, image earthengine.Image, opts earthengine.MapOptions, create CreateFunc) (*earthengine.MapID, error) {
	expr, err := earthengine.Encode(image)
	if err != nil {
		return nil, err
	}
	key, err := mapDigest(expr, opts.Format)
	if err != nil {
		return nil, err
	}

	if id, ok := m.lookup(key); ok {
		return id, nil
	}
	metrics.RecordMapCacheLookup("")

	ch := m.group.DoChan(key, func() (interface{}, error) {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mapCreateTimeout)
		defer cancel()
		id, err := create(cctx, image, opts)
		if err != nil {
			return nil, err
		}
		m.remember(cctx, key, expr, id)
		return id, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			logging.CtxDebug(ctx).Str("digest", key).Msg("Map creation coalesced")
		}
		id := *res.Val.(*earthengine.MapID)
		return &id, nil
	}
}

func (m *MapCache) lookup(key string) (*earthengine.MapID, bool) {
	if id, ok := m.mem.Get(key); ok {
		metrics.RecordMapCacheLookup("memory")
		return &id, true
	}

	raw, remaining, err := m.store.GetWithTTL(digestKeyPrefix + key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logging.Warn().Err(err).Msg("Map cache store read failed")
		}
		return nil, false
	}
	var id earthengine.MapID
	if err := json.Unmarshal(raw, &id); err != nil {
		logging.Warn().Err(err).Str("digest", key).Msg("Discarding corrupt map cache entry")
		return nil, false
	}
	if remaining <= 0 || remaining > m.ttl {
		remaining = m.ttl
	}
	m.mem.SetWithTTL(key, id, remaining)
	metrics.RecordMapCacheLookup("badger")
	return &id, true
}

// remember stores both directions. Store failures only cost a future cache
// miss, so they are logged and swallowed.
func (m *MapCache) remember(ctx context.Context, key string, expr *earthengine.Expression, id *earthengine.MapID) {
	m.mem.Set(key, *id)
	metrics.MapCacheEntries.Set(float64(m.mem.Len()))

	idJSON, err := json.Marshal(id)
	if err == nil {
		err = m.store.Set(digestKeyPrefix+key, idJSON, m.ttl)
	}
	if err != nil {
		logging.CtxWarn(ctx).Err(err).Msg("Failed to persist map id")
	}

	if id.MapID == "" {
		return
	}
	graph, err := json.Marshal(expr)
	if err == nil {
		err = m.store.Set(graphKeyPrefix+id.MapID, graph, m.ttl)
	}
	if err != nil {
		logging.CtxWarn(ctx).Err(err).Str("mapid", id.MapID).Msg("Failed to persist map expression")
	}
}

// Expression returns the expression graph a map id was created from.
func (m *MapCache) Expression(mapID string) (*earthengine.Expression, error) {
	raw, err := m.store.Get(graphKeyPrefix + mapID)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMap, mapID)
	}
	if err != nil {
		return nil, err
	}
	var expr earthengine.Expression
	if err := json.Unmarshal(raw, &expr); err != nil {
		return nil, fmt.Errorf("decode stored expression for %s: %w", mapID, err)
	}
	return &expr, nil
}

// Close stops the memory tier's cleanup goroutine. The store is owned by the
// caller.
func (m *MapCache) Close() {
	m.mem.Close()
}
