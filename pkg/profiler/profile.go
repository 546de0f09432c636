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
	"math"
	"time"

	"github.com/tonynash74/server-audit-toolkit/pkg/defaults"
)

// Tier classifies a target's performance class. The tier and its budget are
// pure functions of the measured fields.
type Tier string

const (
	TierLow      Tier = "low"
	TierMedium   Tier = "medium"
	TierHigh     Tier = "high"
	TierVeryHigh Tier = "very-high"
)

// rank orders tiers for most-restrictive-wins comparison.
func (t Tier) rank() int {
	switch t {
	case TierLow:
		return 0
	case TierMedium:
		return 1
	case TierHigh:
		return 2
	case TierVeryHigh:
		return 3
	default:
		return 0
	}
}

// Constraint names recorded on a profile when a tier rule, penalty rule,
// or measurement degradation fires.
const (
	ConstraintLowCPU             = "low-cpu"
	ConstraintLowMemory          = "low-memory"
	ConstraintHighMemoryUsage    = "high-memory-usage"
	ConstraintLowAvailableMemory = "low-available-memory"
	ConstraintLowDiskSpace       = "low-disk-space"
	ConstraintHighDiskLatency    = "high-disk-latency"
	ConstraintHighNetworkLatency = "high-network-latency"
	ConstraintHighSystemLoad     = "high-system-load"
)

const (
	gib = 1 << 30

	// Penalty thresholds. Each triggered rule only ever reduces the
	// tier-derived budget.
	lowAvailableMemoryBytes = 2 * gib
	highMemoryUsagePct      = 80.0
	lowDiskFreePct          = 10.0
	highDiskLatencyMs       = 50
	highNetworkLatencyMs    = 100
	highLoadPct             = 60.0
)

// Measurements is the raw resource snapshot taken from a target. Fields
// that could not be measured hold conservative defaults and the failure is
// recorded in Degraded.
type Measurements struct {
	CPUCores             int     `json:"cpuCores" yaml:"cpuCores"`
	TotalMemoryBytes     uint64  `json:"totalMemoryBytes" yaml:"totalMemoryBytes"`
	AvailableMemoryBytes uint64  `json:"availableMemoryBytes" yaml:"availableMemoryBytes"`
	DiskReadLatencyMs    int64   `json:"diskReadLatencyMs" yaml:"diskReadLatencyMs"`
	DiskWriteLatencyMs   int64   `json:"diskWriteLatencyMs" yaml:"diskWriteLatencyMs"`
	DiskFreePercent      float64 `json:"diskFreePercent" yaml:"diskFreePercent"`
	NetworkLatencyMs     int64   `json:"networkLatencyMs" yaml:"networkLatencyMs"`
	SystemLoadPercent    float64 `json:"systemLoadPercent" yaml:"systemLoadPercent"`

	// Local disables network-latency rules for the loopback path.
	Local bool `json:"local" yaml:"local"`

	// Degraded names metrics that failed to measure and fell back to
	// conservative defaults.
	Degraded []string `json:"degraded,omitempty" yaml:"degraded,omitempty"`
}

// MemoryUsedPercent derives usage from total and available memory.
func (m Measurements) MemoryUsedPercent() float64 {
	if m.TotalMemoryBytes == 0 {
		return 100
	}
	used := float64(m.TotalMemoryBytes-m.AvailableMemoryBytes) / float64(m.TotalMemoryBytes) * 100
	return math.Max(0, math.Min(100, used))
}

// DiskLatencyMs is the slower of the read and write probes.
func (m Measurements) DiskLatencyMs() int64 {
	return max(m.DiskReadLatencyMs, m.DiskWriteLatencyMs)
}

// CapabilityProfile is the measured resource snapshot of one target plus
// the concurrency and timeout budget derived from it. One profile exists
// per target per cache window.
type CapabilityProfile struct {
	// Target is the identity key the profile belongs to.
	Target string `json:"target" yaml:"target"`

	// Measurements is the raw snapshot the budget was derived from.
	Measurements Measurements `json:"measurements" yaml:"measurements"`

	// Tier is the performance class, most restrictive of the CPU and
	// memory classifications.
	Tier Tier `json:"tier" yaml:"tier"`

	// SafeParallelJobs is the collector concurrency budget, always >= 1.
	SafeParallelJobs int `json:"safeParallelJobs" yaml:"safeParallelJobs"`

	// JobTimeout is the per-collector deadline.
	JobTimeout time.Duration `json:"jobTimeout" yaml:"jobTimeout"`

	// Constraints names every tier rule, penalty rule, and measurement
	// degradation that fired during derivation.
	Constraints []string `json:"constraints,omitempty" yaml:"constraints,omitempty"`

	// MeasuredAt stamps the measurement for cache-window checks.
	MeasuredAt time.Time `json:"measuredAt" yaml:"measuredAt"`

	// Cached is true when the profile was served from the cache rather
	// than freshly measured.
	Cached bool `json:"cached" yaml:"cached"`
}

// OverallTimeout computes the batch deadline for running collectorCount
// collectors under this profile's budget, padded by the safety factor.
func (p *CapabilityProfile) OverallTimeout(collectorCount int) time.Duration {
	if collectorCount < 1 {
		collectorCount = 1
	}
	waves := int(math.Ceil(float64(collectorCount) / float64(p.SafeParallelJobs)))
	padded := float64(p.JobTimeout) * float64(waves) * defaults.OverallTimeoutSafetyFactor
	return time.Duration(padded)
}

// Derive computes the tier and budget for a measurement snapshot. The
// result is deterministic: same measurements, same profile.
func Derive(targetKey string, m Measurements, now time.Time) *CapabilityProfile {
	p := &CapabilityProfile{
		Target:       targetKey,
		Measurements: m,
		MeasuredAt:   now,
	}
	p.Constraints = append(p.Constraints, m.Degraded...)

	p.Tier, p.SafeParallelJobs, p.JobTimeout = baseBudget(m)

	if m.CPUCores <= 2 {
		p.Constraints = append(p.Constraints, ConstraintLowCPU)
	}
	if m.TotalMemoryBytes < 4*gib {
		p.Constraints = append(p.Constraints, ConstraintLowMemory)
	}

	p.applyPenalties(m)

	if p.SafeParallelJobs < 1 {
		p.SafeParallelJobs = 1
	}
	return p
}

// baseBudget maps measurements to the tier table. The CPU and memory
// classifications are computed independently and the more restrictive one
// wins.
func baseBudget(m Measurements) (Tier, int, time.Duration) {
	coreTier := TierLow
	switch {
	case m.CPUCores >= 16:
		coreTier = TierVeryHigh
	case m.CPUCores >= 8:
		coreTier = TierHigh
	case m.CPUCores >= 3:
		coreTier = TierMedium
	}

	memTier := TierLow
	switch {
	case m.TotalMemoryBytes >= 16*gib:
		memTier = TierVeryHigh
	case m.TotalMemoryBytes >= 8*gib:
		memTier = TierHigh
	case m.TotalMemoryBytes >= 4*gib:
		memTier = TierMedium
	}

	tier := coreTier
	if memTier.rank() < coreTier.rank() {
		tier = memTier
	}

	half := m.CPUCores / 2
	switch tier {
	case TierVeryHigh:
		return tier, max(8, half), 45 * time.Second
	case TierHigh:
		return tier, clamp(half, 4, 8), 60 * time.Second
	case TierMedium:
		return tier, clamp(half, 2, 4), 90 * time.Second
	default:
		return TierLow, 1, 120 * time.Second
	}
}

// applyPenalties runs the independent reduction rules. Rules never raise
// the budget; each triggered rule is recorded by name.
func (p *CapabilityProfile) applyPenalties(m Measurements) {
	halve := func(name string) {
		p.SafeParallelJobs = max(1, p.SafeParallelJobs/2)
		p.Constraints = append(p.Constraints, name)
	}

	switch {
	case m.MemoryUsedPercent() > highMemoryUsagePct:
		halve(ConstraintHighMemoryUsage)
	case m.AvailableMemoryBytes < lowAvailableMemoryBytes:
		halve(ConstraintLowAvailableMemory)
	}

	if m.DiskFreePercent < lowDiskFreePct {
		halve(ConstraintLowDiskSpace)
	}
	if m.DiskLatencyMs() > highDiskLatencyMs {
		halve(ConstraintHighDiskLatency)
	}
	if !m.Local && m.NetworkLatencyMs > highNetworkLatencyMs {
		p.SafeParallelJobs = 1
		p.Constraints = append(p.Constraints, ConstraintHighNetworkLatency)
	}
	if m.SystemLoadPercent > highLoadPct {
		halve(ConstraintHighSystemLoad)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
