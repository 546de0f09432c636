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

package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tonynash74/server-audit-toolkit/pkg/collector"
	"github.com/tonynash74/server-audit-toolkit/pkg/credential"
	"github.com/tonynash74/server-audit-toolkit/pkg/defaults"
	"github.com/tonynash74/server-audit-toolkit/pkg/header"
	"github.com/tonynash74/server-audit-toolkit/pkg/preflight"
	"github.com/tonynash74/server-audit-toolkit/pkg/profiler"
	"github.com/tonynash74/server-audit-toolkit/pkg/target"
	"github.com/tonynash74/server-audit-toolkit/pkg/transport"
)

// HealthChecker is the pre-flight stage contract. Satisfied by
// *preflight.Checker.
type HealthChecker interface {
	Check(ctx context.Context, tgt target.Target, cred credential.Handle) preflight.HealthCheckResult
}

// CapabilityProfiler is the profiling stage contract. Satisfied by
// *profiler.Profiler.
type CapabilityProfiler interface {
	Profile(ctx context.Context, tgt target.Target, cred credential.Handle, useCache bool) (*profiler.CapabilityProfile, error)
}

// Dispatcher is the execution stage contract. Satisfied by
// *scheduler.Scheduler.
type Dispatcher interface {
	Run(ctx context.Context, descriptors []collector.Descriptor, platform collector.Platform, tgt target.Target, cred credential.Handle, profile *profiler.CapabilityProfile) []*collector.Outcome
}

// CredentialSource resolves the credential handle for a target. A nil
// source means every target runs without a credential.
type CredentialSource func(target.Target) credential.Handle

// Orchestrator drives the audit pipeline: pre-flight, capability
// profiling, then budgeted collector execution, per target, across the
// fleet.
type Orchestrator struct {
	Registry  *collector.Registry
	Checker   HealthChecker
	Profiler  CapabilityProfiler
	Scheduler Dispatcher

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

// New creates an orchestrator over the given pipeline stages.
func New(reg *collector.Registry, checker HealthChecker, prof CapabilityProfiler, sched Dispatcher) *Orchestrator {
	return &Orchestrator{
		Registry:  reg,
		Checker:   checker,
		Profiler:  prof,
		Scheduler: sched,
	}
}

func (o *Orchestrator) now() time.Time {
	if o.Clock != nil {
		return o.Clock()
	}
	return time.Now()
}

// AuditFleet runs the pipeline against every target. Targets are audited
// concurrently up to the fleet parallelism; per-target failure never
// aborts the fleet, and a fleet deadline marks unstarted targets as not
// attempted. Results keep input order.
func (o *Orchestrator) AuditFleet(ctx context.Context, targets []target.Target, creds CredentialSource, opts Options) *FleetAuditReport {
	started := o.now()
	runID := uuid.NewString()
	report := &FleetAuditReport{
		Header: header.New(header.KindFleetAuditReport,
			header.WithCreatedAt(started),
			header.WithMetadata("runId", runID),
		),
		RunID:     runID,
		StartedAt: started,
		Results:   make([]TargetAuditResult, len(targets)),
	}

	slog.Info("fleet audit starting",
		slog.String("runId", report.RunID),
		slog.Int("targets", len(targets)),
		slog.Bool("dryRun", opts.DryRun),
	)

	fleetCtx := ctx
	if opts.FleetTimeout > 0 {
		var cancel context.CancelFunc
		fleetCtx, cancel = context.WithTimeout(ctx, opts.FleetTimeout)
		defer cancel()
	}

	parallel := opts.FleetParallelism
	if parallel <= 0 {
		parallel = defaults.FleetParallelism
	}

	g := new(errgroup.Group)
	g.SetLimit(parallel)

	for i, tgt := range targets {
		g.Go(func() error {
			if fleetCtx.Err() != nil {
				report.Results[i] = TargetAuditResult{
					Target:      tgt.Key(),
					Status:      TargetNotAttempted,
					StartedAt:   o.now(),
					CompletedAt: o.now(),
				}
				targetStatusTotal.WithLabelValues(string(TargetNotAttempted)).Inc()
				return nil
			}

			var cred credential.Handle
			if creds != nil {
				cred = creds(tgt)
			}
			report.Results[i] = o.auditTarget(fleetCtx, tgt, cred, opts)
			targetStatusTotal.WithLabelValues(string(report.Results[i].Status)).Inc()
			return nil
		})
	}
	_ = g.Wait()

	report.CompletedAt = o.now()
	report.summarize()
	fleetDuration.Observe(report.CompletedAt.Sub(report.StartedAt).Seconds())

	slog.Info("fleet audit finished",
		slog.String("runId", report.RunID),
		slog.Int("completed", report.Summary.Completed),
		slog.Int("skippedUnhealthy", report.Summary.SkippedUnhealthy),
		slog.Int("notAttempted", report.Summary.NotAttempted),
	)
	return report
}

// auditTarget runs the three-stage pipeline for one target.
func (o *Orchestrator) auditTarget(ctx context.Context, tgt target.Target, cred credential.Handle, opts Options) TargetAuditResult {
	result := TargetAuditResult{Target: tgt.Key(), StartedAt: o.now()}
	defer func() { result.CompletedAt = o.now() }()

	health := o.Checker.Check(ctx, tgt, cred)
	result.Health = &health

	if !health.Healthy && !opts.IgnoreHealth {
		slog.Warn("target failed pre-flight",
			slog.String("target", tgt.Key()),
			slog.Int("score", health.Score),
			slog.Any("issues", health.Issues),
		)
		result.Status = TargetSkippedUnhealthy
		return result
	}

	profile := o.resolveBudget(ctx, tgt, cred, opts)
	result.Profile = profile

	platform := platformFrom(health.Facts())
	descriptors := o.Registry.Filter(platform, opts.Collectors)

	if opts.DryRun {
		result.Status = TargetPlanned
		for _, d := range descriptors {
			if _, ok := d.SelectVariant(platform); ok {
				result.Plan = append(result.Plan, d.Name)
			}
		}
		return result
	}

	result.Outcomes = o.Scheduler.Run(ctx, descriptors, platform, tgt, cred, profile)
	result.Status = TargetCompleted

	for _, out := range result.Outcomes {
		collectorOutcomeTotal.WithLabelValues(out.Collector, string(out.Status)).Inc()
		if out.Status == collector.StatusSuccess || out.Status == collector.StatusFailed || out.Status == collector.StatusTimeout {
			collectorDuration.WithLabelValues(out.Collector).
				Observe(float64(out.ExecutionTimeMs) / 1000)
		}
	}
	return result
}

// resolveBudget produces the profile the scheduler will run under,
// honoring the override precedence: forced values beat everything,
// skip-profiling beats measurement.
func (o *Orchestrator) resolveBudget(ctx context.Context, tgt target.Target, cred credential.Handle, opts Options) *profiler.CapabilityProfile {
	var profile *profiler.CapabilityProfile

	if opts.SkipProfiling {
		profile = conservativeProfile(tgt.Key(), o.now())
	} else {
		// Profile never fails: unmeasurable targets degrade to a
		// conservative low-tier budget.
		profile, _ = o.Profiler.Profile(ctx, tgt, cred, !opts.NoCache)
	}
	if profile == nil {
		profile = conservativeProfile(tgt.Key(), o.now())
	}

	if opts.ForcedJobs > 0 {
		profile.SafeParallelJobs = opts.ForcedJobs
	}
	if opts.ForcedJobTimeout > 0 {
		profile.JobTimeout = opts.ForcedJobTimeout
	}
	return profile
}

// conservativeProfile is the budget used when profiling is skipped or
// yields nothing: one job at a time under the conservative deadline.
func conservativeProfile(key string, now time.Time) *profiler.CapabilityProfile {
	return &profiler.CapabilityProfile{
		Target:           key,
		Tier:             profiler.TierLow,
		SafeParallelJobs: defaults.ConservativeJobs,
		JobTimeout:       defaults.ConservativeJobTimeout,
		MeasuredAt:       now,
	}
}

// platformFrom builds the platform descriptor from pre-flight facts.
// Missing facts leave fields empty, which matches only unconditional
// variants.
func platformFrom(facts map[string]any) collector.Platform {
	p := collector.Platform{}
	if os, ok := facts[transport.KeyOS].(string); ok {
		p.OS = os
	}
	if arch, ok := facts[transport.KeyArch].(string); ok {
		p.Arch = arch
	}
	if v, ok := facts[transport.KeyOSVersion].(string); ok {
		p.Version = v
	}
	return p
}
