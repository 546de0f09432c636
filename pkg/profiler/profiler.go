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
	"log/slog"
	"time"

	"github.com/tonynash74/server-audit-toolkit/pkg/credential"
	"github.com/tonynash74/server-audit-toolkit/pkg/defaults"
	"github.com/tonynash74/server-audit-toolkit/pkg/target"
	"github.com/tonynash74/server-audit-toolkit/pkg/transport"
)

// Store is the profile cache contract. Implementations must serialize
// access to a given key; cross-key contention is not required to block.
// A corrupt or unreadable entry is a miss, never an error.
type Store interface {
	// Get returns the cached profile for the key, or false on miss.
	Get(key string) (*CapabilityProfile, bool)

	// Put stores the profile under its target key, overwriting any
	// previous entry.
	Put(p *CapabilityProfile) error

	// Close releases backing resources.
	Close() error
}

// Conservative fallbacks used when a measurement probe fails. Values are
// chosen to land in the restrictive end of every rule so a blind spot can
// only shrink the budget.
const (
	fallbackCPUCores      = 1
	fallbackTotalMemory   = 2 * gib
	fallbackAvailMemory   = 1 * gib
	fallbackDiskLatencyMs = 100
	fallbackDiskFreePct   = 5
	fallbackNetLatencyMs  = 200
	fallbackLoadPct       = 100
)

// Degradation markers recorded as profile constraints when a probe fails.
const (
	DegradedCPU     = "cpu-measurement-degraded"
	DegradedMemory  = "memory-measurement-degraded"
	DegradedDisk    = "disk-measurement-degraded"
	DegradedNetwork = "network-measurement-degraded"
	DegradedLoad    = "load-measurement-degraded"
)

// Profiler measures target capabilities and derives parallelism/timeout
// budgets, caching results per target for the cache window.
type Profiler struct {
	// Transport executes measurement probes against targets.
	Transport transport.Transport

	// Cache stores profiles per target key. Nil disables caching.
	Cache Store

	// ProbeTimeout caps each individual measurement probe.
	// Defaults to defaults.ProbeTimeout.
	ProbeTimeout time.Duration

	// CacheTTL is the profile validity window.
	// Defaults to defaults.ProfileCacheTTL.
	CacheTTL time.Duration

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

// New creates a profiler with the given transport and cache.
func New(t transport.Transport, cache Store) *Profiler {
	return &Profiler{Transport: t, Cache: cache}
}

func (p *Profiler) now() time.Time {
	if p.Clock != nil {
		return p.Clock()
	}
	return time.Now()
}

func (p *Profiler) ttl() time.Duration {
	if p.CacheTTL > 0 {
		return p.CacheTTL
	}
	return defaults.ProfileCacheTTL
}

func (p *Profiler) probeTimeout() time.Duration {
	if p.ProbeTimeout > 0 {
		return p.ProbeTimeout
	}
	return defaults.ProbeTimeout
}

// Profile returns the capability profile for a target. With useCache, a
// fresh cached profile (within the TTL window) is returned with its Cached
// flag set; otherwise the target is measured and the cache overwritten.
// Profiling itself never aborts: failed metrics degrade to conservative
// values recorded as constraints.
func (p *Profiler) Profile(ctx context.Context, tgt target.Target, cred credential.Handle, useCache bool) (*CapabilityProfile, error) {
	key := tgt.Key()

	if useCache && p.Cache != nil {
		if hit, ok := p.Cache.Get(key); ok {
			if p.now().Sub(hit.MeasuredAt) < p.ttl() {
				slog.Debug("profile cache hit", slog.String("target", key), slog.Time("measuredAt", hit.MeasuredAt))
				cached := *hit
				cached.Cached = true
				return &cached, nil
			}
			slog.Debug("profile cache entry expired", slog.String("target", key))
		}
	}

	m := p.measure(ctx, tgt, cred)
	profile := Derive(key, m, p.now())

	if p.Cache != nil {
		if err := p.Cache.Put(profile); err != nil {
			// Cache trouble degrades to measure-every-time, never fails
			// the profile call.
			slog.Warn("failed to cache profile", slog.String("target", key), slog.String("error", err.Error()))
		}
	}

	slog.Info("target profiled",
		slog.String("target", key),
		slog.String("tier", string(profile.Tier)),
		slog.Int("safeParallelJobs", profile.SafeParallelJobs),
		slog.Duration("jobTimeout", profile.JobTimeout),
		slog.Int("constraints", len(profile.Constraints)),
	)
	return profile, nil
}

// measure runs every probe, each with its own deadline, degrading failed
// metrics independently.
func (p *Profiler) measure(ctx context.Context, tgt target.Target, cred credential.Handle) Measurements {
	m := Measurements{Local: tgt.Local()}

	if res, err := p.invoke(ctx, tgt, cred, transport.OpProbeCPU); err == nil {
		m.CPUCores = intReading(res.Data, transport.KeyCPUCores, fallbackCPUCores)
	} else {
		m.CPUCores = fallbackCPUCores
		m.Degraded = append(m.Degraded, DegradedCPU)
	}

	if res, err := p.invoke(ctx, tgt, cred, transport.OpProbeMemory); err == nil {
		m.TotalMemoryBytes = uintReading(res.Data, transport.KeyMemTotal, fallbackTotalMemory)
		m.AvailableMemoryBytes = uintReading(res.Data, transport.KeyMemFree, fallbackAvailMemory)
	} else {
		m.TotalMemoryBytes = fallbackTotalMemory
		m.AvailableMemoryBytes = fallbackAvailMemory
		m.Degraded = append(m.Degraded, DegradedMemory)
	}

	if res, err := p.invoke(ctx, tgt, cred, transport.OpProbeDisk); err == nil {
		m.DiskReadLatencyMs = int64Reading(res.Data, transport.KeyDiskReadMs, fallbackDiskLatencyMs)
		m.DiskWriteLatencyMs = int64Reading(res.Data, transport.KeyDiskWriteMs, fallbackDiskLatencyMs)
		m.DiskFreePercent = floatReading(res.Data, transport.KeyDiskFreePct, fallbackDiskFreePct)
	} else {
		m.DiskReadLatencyMs = fallbackDiskLatencyMs
		m.DiskWriteLatencyMs = fallbackDiskLatencyMs
		m.DiskFreePercent = fallbackDiskFreePct
		m.Degraded = append(m.Degraded, DegradedDisk)
	}

	if tgt.Local() {
		m.NetworkLatencyMs = 0
	} else if res, err := p.invoke(ctx, tgt, cred, transport.OpProbeNetwork); err == nil {
		// Round-trip time observed by the transport is the measurement.
		m.NetworkLatencyMs = res.Elapsed.Milliseconds()
	} else {
		m.NetworkLatencyMs = fallbackNetLatencyMs
		m.Degraded = append(m.Degraded, DegradedNetwork)
	}

	if res, err := p.invoke(ctx, tgt, cred, transport.OpProbeLoad); err == nil {
		m.SystemLoadPercent = floatReading(res.Data, transport.KeyLoadPct, fallbackLoadPct)
	} else {
		m.SystemLoadPercent = fallbackLoadPct
		m.Degraded = append(m.Degraded, DegradedLoad)
	}

	return m
}

func (p *Profiler) invoke(ctx context.Context, tgt target.Target, cred credential.Handle, op string) (*transport.Result, error) {
	probeCtx, cancel := context.WithTimeout(ctx, p.probeTimeout())
	defer cancel()

	res, err := p.Transport.Invoke(probeCtx, tgt, cred, transport.Payload{Op: op})
	if err != nil {
		slog.Debug("measurement probe failed",
			slog.String("target", tgt.Key()),
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
	}
	return res, err
}

func intReading(data map[string]any, key string, fallback int) int {
	switch v := data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}

func int64Reading(data map[string]any, key string, fallback int64) int64 {
	switch v := data[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return fallback
	}
}

func uintReading(data map[string]any, key string, fallback uint64) uint64 {
	switch v := data[key].(type) {
	case uint64:
		return v
	case int:
		if v < 0 {
			return fallback
		}
		return uint64(v)
	case int64:
		if v < 0 {
			return fallback
		}
		return uint64(v)
	case float64:
		if v < 0 {
			return fallback
		}
		return uint64(v)
	default:
		return fallback
	}
}

func floatReading(data map[string]any, key string, fallback float64) float64 {
	switch v := data[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return fallback
	}
}
