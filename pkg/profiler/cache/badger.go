// Copyright (c) 2025, Server Audit Toolkit Authors.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cache provides the persistent, Badger-backed profile store.
//
// Profiles are stored as JSON values under a per-target key with a TTL
// matching the profile validity window, so expired entries vanish without
// a sweeper. A corrupt or unreadable entry is treated as a miss, never an
// error: the profiler simply re-measures.
package cache

import (
	"encoding/json"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/dgraph-io/badger/v4"

	"github.com/tonynash74/server-audit-toolkit/pkg/defaults"
	"github.com/tonynash74/server-audit-toolkit/pkg/profiler"
)

// Key layout inside the Badger database.
const (
	prefixProfile = "p:" // one entry per target key
	schemaKey     = "m:__schema__"
)

// CurrentSchemaVersion tracks the stored profile layout.
// 1 - initial version.
const CurrentSchemaVersion = 1

// schema holds database schema information.
type schema struct {
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Badger is a persistent profile cache. The underlying database takes a
// directory lock, so concurrent audit invocations sharing a cache
// directory are serialized at open time.
type Badger struct {
	db  *badger.DB
	ttl time.Duration
}

// DefaultPath returns the standard cache location under the user cache dir.
func DefaultPath() string {
	return filepath.Join(xdg.CacheHome, "server-audit", "profiles")
}

// Open opens or creates a profile cache at the given directory. An empty
// path uses DefaultPath.
func Open(path string) (*Badger, error) {
	if path == "" {
		path = DefaultPath()
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Badger's own logging is noise at audit log level.

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	b := &Badger{db: db, ttl: defaults.ProfileCacheTTL}
	b.writeSchema()
	return b, nil
}

func (b *Badger) writeSchema() {
	data, err := json.Marshal(schema{Version: CurrentSchemaVersion, UpdatedAt: time.Now()})
	if err != nil {
		return
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(schemaKey), data)
	})
	if err != nil {
		slog.Warn("failed to write cache schema", slog.String("error", err.Error()))
	}
}

// Get implements the profiler.Store interface. Expired and corrupt
// entries are misses.
func (b *Badger) Get(key string) (*profiler.CapabilityProfile, bool) {
	var profile *profiler.CapabilityProfile

	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixProfile + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var p profiler.CapabilityProfile
			if jerr := json.Unmarshal(val, &p); jerr != nil {
				slog.Debug("corrupt profile cache entry, treating as miss",
					slog.String("target", key), slog.String("error", jerr.Error()))
				return nil
			}
			profile = &p
			return nil
		})
	})
	if err != nil || profile == nil {
		return nil, false
	}
	return profile, true
}

// Put implements the profiler.Store interface. The entry carries a TTL so
// stale profiles expire server-side as well as via the profiler's window
// check.
func (b *Badger) Put(p *profiler.CapabilityProfile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(prefixProfile+p.Target), data).WithTTL(b.ttl)
		return txn.SetEntry(e)
	})
}

// Delete removes the entry for a target key, if present.
func (b *Badger) Delete(key string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(prefixProfile + key))
	})
}

// Close implements the profiler.Store interface.
func (b *Badger) Close() error {
	return b.db.Close()
}
