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

// Package profiler measures target capabilities and derives per-target
// parallelism and timeout budgets.
//
// # Overview
//
// A capability profile answers one question: how hard can the engine push
// this target? The profiler measures CPU cores, memory, disk latency and
// free space, network round-trip, and current load. A pure function maps
// the snapshot to a performance tier (low, medium, high, very-high) and
// its base budget, then independent penalty rules reduce the budget for
// pressure signals. Rules never raise the budget; every triggered rule is
// recorded by name in the profile's constraints.
//
// # Degradation
//
// Each measurement fails independently. A failed probe degrades its metric
// to a conservative default and records a degradation constraint; the
// profile call itself never fails. A target that cannot be measured at all
// still yields a valid low-tier profile with a budget of one job.
//
// # Caching
//
// Profiles are valid for 24 hours and cached per target identity behind
// the Store interface: MemoryStore for tests and single runs, the Badger
// store in pkg/profiler/cache for persistence across invocations. Passing
// useCache=false forces a re-measure and overwrites the entry. Corrupt or
// unreadable entries are treated as misses.
package profiler
