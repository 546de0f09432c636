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

// Package scheduler dispatches a target's collectors under its capability
// budget.
//
// The scheduler resolves each descriptor's variant for the target platform
// (incompatible descriptors are recorded, never dispatched), then executes
// the batch with the strategy the budget selects: one safe parallel job
// runs sequentially, more runs in a semaphore-bounded pool. Both
// strategies honor the per-job timeout and the derived overall batch
// deadline, skip dependents of failed collectors, and always return one
// outcome per descriptor so no collector silently disappears from the
// report.
//
// Dependency graphs must be acyclic; the registry guarantees dependencies
// are registered, and the builtin catalog declares none that cycle.
package scheduler
