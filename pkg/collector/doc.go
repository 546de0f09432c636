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

// Package collector defines the collector catalog: descriptors, platform
// variants, fallback tiers, and the outcome type shared across the engine.
//
// # Model
//
// A Descriptor declares one unit of audit work. It holds ordered Variants,
// each gated by a platform predicate; the first matching variant is used,
// with no implicit fallthrough. A variant's ordered Tiers form the fallback
// chain: primary mechanism, legacy mechanism, and finally the minimal probe
// that is always available and caps worst-case degradation.
//
// Descriptors are immutable registry entries. Everything that happens at
// run time is recorded in Outcome values: status, data source tier, data,
// per-tier errors, and execution time.
//
// # Dependencies
//
// DependsOn edges impose a partial order within one target: a dependent
// collector is not dispatched until its dependency's outcome is known and
// is skipped when the dependency did not succeed. Independent collectors
// have no ordering guarantee.
//
// # Registry
//
// The Registry supplies the compatibility-filtered descriptor list:
//
//	reg := collector.NewBuiltinRegistry()
//	descriptors := reg.ListCompatible(collector.Platform{OS: "linux"})
package collector
