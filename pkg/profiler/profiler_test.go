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

package profiler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonynash74/server-audit-toolkit/pkg/credential"
	"github.com/tonynash74/server-audit-toolkit/pkg/errors"
	"github.com/tonynash74/server-audit-toolkit/pkg/target"
	"github.com/tonynash74/server-audit-toolkit/pkg/transport"
)

// fakeTransport answers probe ops from canned data and counts calls per op.
type fakeTransport struct {
	mu    sync.Mutex
	data  map[string]map[string]any
	fail  map[string]error
	calls map[string]int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		data: map[string]map[string]any{
			transport.OpProbeCPU: {transport.KeyCPUCores: 16},
			transport.OpProbeMemory: {
				transport.KeyMemTotal: uint64(32 * gib),
				transport.KeyMemFree:  uint64(24 * gib),
			},
			transport.OpProbeDisk: {
				transport.KeyDiskReadMs:  int64(5),
				transport.KeyDiskWriteMs: int64(5),
				transport.KeyDiskFreePct: 60.0,
			},
			transport.OpProbeNetwork: {},
			transport.OpProbeLoad:    {transport.KeyLoadPct: 10.0},
		},
		fail:  make(map[string]error),
		calls: make(map[string]int),
	}
}

func (f *fakeTransport) Invoke(_ context.Context, _ target.Target, _ credential.Handle, p transport.Payload) (*transport.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[p.Op]++
	if err, ok := f.fail[p.Op]; ok {
		return nil, err
	}
	return &transport.Result{Data: f.data[p.Op], Elapsed: 5 * time.Millisecond}, nil
}

func (f *fakeTransport) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func TestProfileMeasuresAndCaches(t *testing.T) {
	ft := newFakeTransport()
	p := New(ft, NewMemoryStore())

	tgt := target.MustParse("big01.example.com")
	got, err := p.Profile(t.Context(), tgt, credential.Handle{}, true)

	require.NoError(t, err)
	assert.Equal(t, TierVeryHigh, got.Tier)
	assert.False(t, got.Cached)
	assert.Equal(t, 1, ft.callCount(transport.OpProbeCPU))
}

func TestProfileCacheRoundTrip(t *testing.T) {
	ft := newFakeTransport()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	p := New(ft, NewMemoryStore())
	p.Clock = func() time.Time { return now }

	tgt := target.MustParse("db01.example.com")
	first, err := p.Profile(t.Context(), tgt, credential.Handle{}, true)
	require.NoError(t, err)

	// Second call inside the window is served from cache.
	now = now.Add(12 * time.Hour)
	second, err := p.Profile(t.Context(), tgt, credential.Handle{}, true)
	require.NoError(t, err)

	assert.True(t, second.Cached)
	assert.Equal(t, 1, ft.callCount(transport.OpProbeCPU), "cached call must not re-measure")

	// Identical bar the cached flag.
	second.Cached = first.Cached
	assert.Equal(t, first, second)

	// Past the 24h window the target is re-measured.
	now = now.Add(13 * time.Hour)
	third, err := p.Profile(t.Context(), tgt, credential.Handle{}, true)
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Equal(t, 2, ft.callCount(transport.OpProbeCPU))
}

func TestProfileUseCacheFalseForcesRemeasure(t *testing.T) {
	ft := newFakeTransport()
	store := NewMemoryStore()
	p := New(ft, store)

	tgt := target.MustParse("db01.example.com")
	_, err := p.Profile(t.Context(), tgt, credential.Handle{}, true)
	require.NoError(t, err)

	_, err = p.Profile(t.Context(), tgt, credential.Handle{}, false)
	require.NoError(t, err)

	assert.Equal(t, 2, ft.callCount(transport.OpProbeCPU))

	// The forced measurement overwrote the cache entry.
	cached, ok := store.Get(tgt.Key())
	require.True(t, ok)
	assert.False(t, cached.Cached)
}

func TestProfileDegradesFailedMetrics(t *testing.T) {
	ft := newFakeTransport()
	ft.fail[transport.OpProbeDisk] = errors.New(errors.ErrCodeRemote, "probe crashed")
	ft.fail[transport.OpProbeLoad] = errors.New(errors.ErrCodeTimeout, "probe timed out")

	p := New(ft, nil)
	got, err := p.Profile(t.Context(), target.MustParse("db01"), credential.Handle{}, true)

	require.NoError(t, err, "profiling never aborts on measurement failure")
	assert.Contains(t, got.Constraints, DegradedDisk)
	assert.Contains(t, got.Constraints, DegradedLoad)
	assert.GreaterOrEqual(t, got.SafeParallelJobs, 1)

	// Conservative disk fallback trips the latency and free-space rules.
	assert.Contains(t, got.Constraints, ConstraintHighDiskLatency)
	assert.Contains(t, got.Constraints, ConstraintLowDiskSpace)
}

func TestProfileAllMetricsFailed(t *testing.T) {
	ft := newFakeTransport()
	for _, op := range []string{
		transport.OpProbeCPU, transport.OpProbeMemory, transport.OpProbeDisk,
		transport.OpProbeNetwork, transport.OpProbeLoad,
	} {
		ft.fail[op] = errors.New(errors.ErrCodeUnreachable, "down")
	}

	p := New(ft, nil)
	got, err := p.Profile(t.Context(), target.MustParse("db01"), credential.Handle{}, true)

	require.NoError(t, err)
	assert.Equal(t, TierLow, got.Tier)
	assert.Equal(t, 1, got.SafeParallelJobs)
	assert.Greater(t, got.JobTimeout, time.Duration(0))
}

func TestProfileLocalSkipsNetworkProbe(t *testing.T) {
	ft := newFakeTransport()
	p := New(ft, nil)

	_, err := p.Profile(t.Context(), target.MustParse("local"), credential.Handle{}, true)

	require.NoError(t, err)
	assert.Equal(t, 0, ft.callCount(transport.OpProbeNetwork))
}
