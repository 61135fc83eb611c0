// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/hydroengine/internal/logging"
)

// ErrNotFound is returned by Store.Get for missing or expired keys.
var ErrNotFound = errors.New("cache: key not found")

// Store is a BadgerDB-backed byte store with per-entry TTL.
type Store struct {
	db *badger.DB
}

// OpenStore opens the badger database at path. An empty path keeps the
// database in memory.
func OpenStore(path string) (*Store, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", path, err)
	}
	logging.Info().Str("path", path).Bool("in_memory", path == "").Msg("Map cache store opened")
	return &Store{db: db}, nil
}

// Get returns the value stored under key.
func (s *Store) Get(key string) ([]byte, error) {
	out, _, err := s.GetWithTTL(key)
	return out, err
}

// GetWithTTL returns the value stored under key and the time it has left.
// A zero duration means the entry never expires.
func (s *Store) GetWithTTL(key string) ([]byte, time.Duration, error) {
	var (
		out       []byte
		remaining time.Duration
	)
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", key, err)
		}
		if exp := item.ExpiresAt(); exp > 0 {
			remaining = time.Until(time.Unix(int64(exp), 0))
			if remaining <= 0 {
				return ErrNotFound
			}
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return out, remaining, nil
}

// Set stores value under key. ttl <= 0 stores without expiry.
func (s *Store) Set(key string, value []byte, ttl time.Duration) error {
	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		if err := txn.SetEntry(e); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
		return nil
	})
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
