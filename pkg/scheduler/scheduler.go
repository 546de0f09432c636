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

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tonynash74/server-audit-toolkit/pkg/collector"
	"github.com/tonynash74/server-audit-toolkit/pkg/credential"
	"github.com/tonynash74/server-audit-toolkit/pkg/profiler"
	"github.com/tonynash74/server-audit-toolkit/pkg/target"
)

// Executor runs one resolved collector against one target within a budget.
// Satisfied by *runner.Runner.
type Executor interface {
	Run(ctx context.Context, res collector.Resolved, tgt target.Target, cred credential.Handle, budget time.Duration) *collector.Outcome
}

// Batch is one target's worth of resolved collectors plus the budget they
// run under.
type Batch struct {
	Target  target.Target
	Cred    credential.Handle
	Jobs    []collector.Resolved
	Profile *profiler.CapabilityProfile
}

// Strategy executes a batch and returns one outcome per job, in job order.
type Strategy interface {
	Name() string
	Execute(ctx context.Context, batch Batch) []*collector.Outcome
}

// Scheduler resolves collector variants for a target platform and runs the
// batch under the strategy matching the target's budget.
type Scheduler struct {
	Executor Executor
}

// New creates a scheduler dispatching through the given executor.
func New(exec Executor) *Scheduler {
	return &Scheduler{Executor: exec}
}

// Run executes the descriptors against the target under the profile's
// budget. Every descriptor yields exactly one outcome, in descriptor
// order: incompatible descriptors are recorded without dispatch, the rest
// go through the selected strategy.
func (s *Scheduler) Run(ctx context.Context, descriptors []collector.Descriptor, platform collector.Platform, tgt target.Target, cred credential.Handle, profile *profiler.CapabilityProfile) []*collector.Outcome {
	outcomes := make([]*collector.Outcome, len(descriptors))

	batch := Batch{Target: tgt, Cred: cred, Profile: profile}
	slots := make([]int, 0, len(descriptors))

	for i, d := range descriptors {
		variant, ok := d.SelectVariant(platform)
		if !ok {
			outcomes[i] = collector.NewOutcome(d.Name, tgt.Key()).
				MarkStatus(collector.StatusIncompatible,
					fmt.Sprintf("no variant of %s matches platform %s/%s", d.Name, platform.OS, platform.Arch))
			continue
		}
		batch.Jobs = append(batch.Jobs, collector.Resolved{
			Name:      d.Name,
			DependsOn: d.DependsOn,
			Variant:   variant,
		})
		slots = append(slots, i)
	}

	strategy := ForBudget(s.Executor, profile)
	slog.Info("scheduling collectors",
		slog.String("target", tgt.Key()),
		slog.String("strategy", strategy.Name()),
		slog.Int("jobs", len(batch.Jobs)),
		slog.Int("parallel", profile.SafeParallelJobs),
		slog.Duration("jobTimeout", profile.JobTimeout),
		slog.Duration("overallTimeout", profile.OverallTimeout(len(batch.Jobs))),
	)

	for j, o := range strategy.Execute(ctx, batch) {
		outcomes[slots[j]] = o
	}
	return outcomes
}

// depBlocker returns the name of the first dependency that did not
// succeed, or "" when all dependencies are satisfied. A dependency absent
// from the outcome set (filtered out or incompatible) blocks too.
func depBlocker(deps []string, outcomeOf func(string) *collector.Outcome) string {
	for _, dep := range deps {
		o := outcomeOf(dep)
		if o == nil || !o.Success {
			return dep
		}
	}
	return ""
}
