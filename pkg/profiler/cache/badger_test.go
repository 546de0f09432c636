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

package cache

import (
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonynash74/server-audit-toolkit/pkg/profiler"
)

func openTestCache(t *testing.T) *Badger {
	t.Helper()
	b, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func sampleProfile(key string) *profiler.CapabilityProfile {
	return &profiler.CapabilityProfile{
		Target:           key,
		Tier:             profiler.TierHigh,
		SafeParallelJobs: 4,
		JobTimeout:       60 * time.Second,
		MeasuredAt:       time.Now().UTC().Truncate(time.Second),
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	b := openTestCache(t)
	want := sampleProfile("db01:5985")

	require.NoError(t, b.Put(want))

	got, ok := b.Get("db01:5985")
	require.True(t, ok)
	assert.Equal(t, want.Tier, got.Tier)
	assert.Equal(t, want.SafeParallelJobs, got.SafeParallelJobs)
	assert.True(t, want.MeasuredAt.Equal(got.MeasuredAt))
}

func TestGetMiss(t *testing.T) {
	b := openTestCache(t)

	_, ok := b.Get("ghost:5985")
	assert.False(t, ok)
}

func TestPutOverwrites(t *testing.T) {
	b := openTestCache(t)

	first := sampleProfile("db01:5985")
	require.NoError(t, b.Put(first))

	second := sampleProfile("db01:5985")
	second.SafeParallelJobs = 1
	second.Tier = profiler.TierLow
	require.NoError(t, b.Put(second))

	got, ok := b.Get("db01:5985")
	require.True(t, ok)
	assert.Equal(t, profiler.TierLow, got.Tier)
	assert.Equal(t, 1, got.SafeParallelJobs)
}

func TestCorruptEntryIsMiss(t *testing.T) {
	b := openTestCache(t)
	require.NoError(t, b.Put(sampleProfile("db01:5985")))

	// Scribble over the stored value.
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefixProfile+"db01:5985"), []byte("{not json"))
	})
	require.NoError(t, err)

	_, ok := b.Get("db01:5985")
	assert.False(t, ok, "corrupt cache entry must read as a miss")
}

func TestDelete(t *testing.T) {
	b := openTestCache(t)
	require.NoError(t, b.Put(sampleProfile("db01:5985")))
	require.NoError(t, b.Delete("db01:5985"))

	_, ok := b.Get("db01:5985")
	assert.False(t, ok)

	// Deleting an absent key is not an error.
	assert.NoError(t, b.Delete("ghost:5985"))
}

func TestSchemaWritten(t *testing.T) {
	b := openTestCache(t)

	err := b.db.View(func(txn *badger.Txn) error {
		_, gerr := txn.Get([]byte(schemaKey))
		return gerr
	})
	assert.NoError(t, err)
}
