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

package defaults

import "time"

// Profiling constants for capability measurement and budget derivation.
const (
	// ProbeTimeout is the timeout for a single capability measurement probe.
	// A probe exceeding this degrades its metric to a conservative value.
	ProbeTimeout = 10 * time.Second

	// ProfileCacheTTL is the validity window for cached capability profiles.
	// Entries older than this are re-measured on the next profile call.
	ProfileCacheTTL = 24 * time.Hour

	// OverallTimeoutSafetyFactor pads the computed batch timeout to absorb
	// scheduling jitter and slow tail collectors.
	OverallTimeoutSafetyFactor = 1.5

	// ConservativeJobs is the parallelism used when profiling is skipped
	// and no budget was forced by the operator.
	ConservativeJobs = 1

	// ConservativeJobTimeout is the per-collector timeout used when
	// profiling is skipped and no budget was forced by the operator.
	ConservativeJobTimeout = 60 * time.Second
)

// Preflight constants for pre-execution health validation.
const (
	// PreflightCheckTimeout is the default timeout for one health check probe.
	PreflightCheckTimeout = 10 * time.Second

	// PreflightTargetTimeout is the default timeout for the full check
	// sequence against one target.
	PreflightTargetTimeout = 45 * time.Second

	// DNSRetryDelay is the pause before the single documented DNS retry.
	DNSRetryDelay = 1 * time.Second

	// HealthScoreFloor is the minimum score for a target to be considered
	// healthy, provided no blocking check failed.
	HealthScoreFloor = 50

	// PreflightThrottle is the default number of targets checked concurrently.
	PreflightThrottle = 4
)

// Fleet constants for top-level orchestration.
const (
	// FleetParallelism is the default number of targets audited concurrently.
	// Independent of the per-target collector budget.
	FleetParallelism = 3

	// CollectorMinimalTierTimeout caps the always-available minimal probe
	// tier so a dead transport cannot hold a worker for the full job budget.
	CollectorMinimalTierTimeout = 15 * time.Second
)
