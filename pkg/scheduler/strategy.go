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
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/tonynash74/server-audit-toolkit/pkg/collector"
	"github.com/tonynash74/server-audit-toolkit/pkg/profiler"
)

// ForBudget selects the execution strategy for a profile. The selection is
// a pure function of the budget: one safe job means sequential, more means
// the bounded pool.
func ForBudget(exec Executor, p *profiler.CapabilityProfile) Strategy {
	if p.SafeParallelJobs <= 1 {
		return &Sequential{Executor: exec}
	}
	return &Pool{Executor: exec}
}

// Sequential runs jobs one at a time in order, each under the job timeout,
// all under the overall batch deadline. Jobs still queued when the batch
// deadline expires are recorded as timeouts without being dispatched.
type Sequential struct {
	Executor Executor
}

// Name implements the Strategy interface.
func (s *Sequential) Name() string { return "sequential" }

// Execute implements the Strategy interface.
func (s *Sequential) Execute(ctx context.Context, batch Batch) []*collector.Outcome {
	outcomes := make([]*collector.Outcome, len(batch.Jobs))
	byName := make(map[string]*collector.Outcome, len(batch.Jobs))
	outcomeOf := func(name string) *collector.Outcome { return byName[name] }

	batchCtx, cancel := context.WithTimeout(ctx, batch.Profile.OverallTimeout(len(batch.Jobs)))
	defer cancel()

	for i, job := range batch.Jobs {
		if batchCtx.Err() != nil {
			outcomes[i] = collector.NewOutcome(job.Name, batch.Target.Key()).
				MarkStatus(collector.StatusTimeout, "batch deadline expired before collector started")
			byName[job.Name] = outcomes[i]
			continue
		}

		if dep := depBlocker(job.DependsOn, outcomeOf); dep != "" {
			outcomes[i] = collector.NewOutcome(job.Name, batch.Target.Key()).
				MarkStatus(collector.StatusSkipped, fmt.Sprintf("dependency %s did not succeed", dep))
			byName[job.Name] = outcomes[i]
			continue
		}

		outcomes[i] = s.Executor.Run(batchCtx, job, batch.Target, batch.Cred, batch.Profile.JobTimeout)
		byName[job.Name] = outcomes[i]
	}
	return outcomes
}

// Pool runs jobs concurrently, bounded by the profile's parallel-job
// budget, under the overall batch deadline. A job waits for its declared
// dependencies and is skipped without dispatch when any of them did not
// succeed.
type Pool struct {
	Executor Executor
}

// Name implements the Strategy interface.
func (p *Pool) Name() string { return "pool" }

type poolJob struct {
	res     collector.Resolved
	done    chan struct{}
	outcome *collector.Outcome
}

// Execute implements the Strategy interface.
func (p *Pool) Execute(ctx context.Context, batch Batch) []*collector.Outcome {
	batchCtx, cancel := context.WithTimeout(ctx, batch.Profile.OverallTimeout(len(batch.Jobs)))
	defer cancel()

	jobs := make([]*poolJob, len(batch.Jobs))
	byName := make(map[string]*poolJob, len(batch.Jobs))
	for i, res := range batch.Jobs {
		jobs[i] = &poolJob{res: res, done: make(chan struct{})}
		byName[res.Name] = jobs[i]
	}

	sem := semaphore.NewWeighted(int64(batch.Profile.SafeParallelJobs))

	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer close(job.done)
			job.outcome = p.runOne(batchCtx, batch, job, byName, sem)
		}()
	}
	wg.Wait()

	outcomes := make([]*collector.Outcome, len(jobs))
	for i, job := range jobs {
		outcomes[i] = job.outcome
	}
	return outcomes
}

func (p *Pool) runOne(ctx context.Context, batch Batch, job *poolJob, byName map[string]*poolJob, sem *semaphore.Weighted) *collector.Outcome {
	key := batch.Target.Key()

	// Wait for declared dependencies before competing for a slot, so a
	// blocked dependent never holds budget a runnable job could use.
	for _, dep := range job.res.DependsOn {
		depJob, ok := byName[dep]
		if !ok {
			return collector.NewOutcome(job.res.Name, key).
				MarkStatus(collector.StatusSkipped, fmt.Sprintf("dependency %s not scheduled", dep))
		}
		select {
		case <-depJob.done:
			if !depJob.outcome.Success {
				return collector.NewOutcome(job.res.Name, key).
					MarkStatus(collector.StatusSkipped, fmt.Sprintf("dependency %s did not succeed", dep))
			}
		case <-ctx.Done():
			return collector.NewOutcome(job.res.Name, key).
				MarkStatus(collector.StatusTimeout, "batch deadline expired before collector started")
		}
	}

	if err := sem.Acquire(ctx, 1); err != nil {
		return collector.NewOutcome(job.res.Name, key).
			MarkStatus(collector.StatusTimeout, "batch deadline expired before collector started")
	}
	defer sem.Release(1)

	return p.Executor.Run(ctx, job.res, batch.Target, batch.Cred, batch.Profile.JobTimeout)
}
