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

// Package orchestrator drives the full audit pipeline across a fleet.
//
// Each target goes through three stages: pre-flight health validation,
// capability profiling, and budgeted collector execution. An unhealthy
// target is skipped with its health report attached (override with
// IgnoreHealth); profiling degrades to a conservative one-job budget
// rather than failing; the scheduler then runs the compatible collectors
// under the derived budget.
//
// Targets are audited concurrently up to the fleet parallelism. One
// target's failure never affects another, and a fleet deadline marks
// targets it preempted as not attempted rather than dropping them. The
// report lists per-target results in input order plus fleet-wide
// aggregates, and the run is observable through Prometheus metrics.
package orchestrator
