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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonynash74/server-audit-toolkit/pkg/collector"
	"github.com/tonynash74/server-audit-toolkit/pkg/credential"
	"github.com/tonynash74/server-audit-toolkit/pkg/defaults"
	"github.com/tonynash74/server-audit-toolkit/pkg/header"
	"github.com/tonynash74/server-audit-toolkit/pkg/preflight"
	"github.com/tonynash74/server-audit-toolkit/pkg/profiler"
	"github.com/tonynash74/server-audit-toolkit/pkg/target"
	"github.com/tonynash74/server-audit-toolkit/pkg/transport"
)

type fakeChecker struct {
	unhealthy map[string]bool
	facts     map[string]any
}

func (f *fakeChecker) Check(_ context.Context, tgt target.Target, _ credential.Handle) preflight.HealthCheckResult {
	r := preflight.HealthCheckResult{Target: tgt.Key(), CheckedAt: time.Now(), Score: 100, Healthy: true}
	facts := f.facts
	if facts == nil {
		facts = map[string]any{transport.KeyOS: "linux"}
	}
	r.Checks = []preflight.Check{{Kind: preflight.CheckService, Status: preflight.CheckStatusPassed, Data: facts}}

	if f.unhealthy[tgt.Key()] {
		r.Checks[0].Status = preflight.CheckStatusFailed
		r.Checks[0].Data = nil
		r.Score = 65
		r.Healthy = false
		r.Issues = []string{"service: scripted failure"}
	}
	return r
}

type fakeProfiler struct {
	mu       sync.Mutex
	calls    int
	useCache []bool
	profile  *profiler.CapabilityProfile
}

func (f *fakeProfiler) Profile(_ context.Context, tgt target.Target, _ credential.Handle, useCache bool) (*profiler.CapabilityProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.useCache = append(f.useCache, useCache)

	if f.profile != nil {
		p := *f.profile
		p.Target = tgt.Key()
		return &p, nil
	}
	return &profiler.CapabilityProfile{
		Target:           tgt.Key(),
		Tier:             profiler.TierMedium,
		SafeParallelJobs: 2,
		JobTimeout:       90 * time.Second,
		MeasuredAt:       time.Now(),
	}, nil
}

type fakeDispatcher struct {
	mu       sync.Mutex
	calls    int
	profiles []*profiler.CapabilityProfile
}

func (f *fakeDispatcher) Run(_ context.Context, descriptors []collector.Descriptor, platform collector.Platform, tgt target.Target, _ credential.Handle, profile *profiler.CapabilityProfile) []*collector.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.profiles = append(f.profiles, profile)

	outcomes := make([]*collector.Outcome, len(descriptors))
	for i, d := range descriptors {
		out := collector.NewOutcome(d.Name, tgt.Key())
		if _, ok := d.SelectVariant(platform); !ok {
			outcomes[i] = out.MarkStatus(collector.StatusIncompatible, "no matching variant")
			continue
		}
		outcomes[i] = out.MarkSuccess(collector.SourcePrimary, map[string]any{"ok": true}, time.Millisecond)
	}
	return outcomes
}

func newTestOrchestrator(checker *fakeChecker, prof *fakeProfiler, disp *fakeDispatcher) *Orchestrator {
	return New(collector.NewBuiltinRegistry(), checker, prof, disp)
}

func fleet(addrs ...string) []target.Target {
	out := make([]target.Target, len(addrs))
	for i, a := range addrs {
		out[i] = target.MustParse(a)
	}
	return out
}

func TestAuditFleetHappyPath(t *testing.T) {
	disp := &fakeDispatcher{}
	o := newTestOrchestrator(&fakeChecker{}, &fakeProfiler{}, disp)

	report := o.AuditFleet(t.Context(), fleet("srv01.example.com", "srv02.example.com"), nil, Options{})

	require.NotEmpty(t, report.RunID)
	require.NotNil(t, report.Header)
	assert.Equal(t, header.KindFleetAuditReport, report.Header.Kind)
	assert.Equal(t, report.RunID, report.Header.Metadata["runId"])
	require.Len(t, report.Results, 2)
	for _, r := range report.Results {
		assert.Equal(t, TargetCompleted, r.Status)
		assert.NotNil(t, r.Health)
		assert.NotNil(t, r.Profile)
		assert.NotEmpty(t, r.Outcomes)
	}
	assert.Equal(t, 2, report.Summary.Targets)
	assert.Equal(t, 2, report.Summary.Completed)
	assert.Equal(t, 1.0, report.Summary.Collectors["system"].SuccessRate)
}

func TestAuditFleetSkipsUnhealthyTarget(t *testing.T) {
	checker := &fakeChecker{unhealthy: map[string]bool{
		target.MustParse("srv02.example.com").Key(): true,
	}}
	disp := &fakeDispatcher{}
	o := newTestOrchestrator(checker, &fakeProfiler{}, disp)

	report := o.AuditFleet(t.Context(), fleet("srv01.example.com", "srv02.example.com"), nil, Options{})

	assert.Equal(t, TargetCompleted, report.Results[0].Status)
	assert.Equal(t, TargetSkippedUnhealthy, report.Results[1].Status)

	// The skipped target still carries its health report.
	require.NotNil(t, report.Results[1].Health)
	assert.False(t, report.Results[1].Health.Healthy)
	assert.Empty(t, report.Results[1].Outcomes)

	assert.Equal(t, 1, report.Summary.Completed)
	assert.Equal(t, 1, report.Summary.SkippedUnhealthy)
	assert.Equal(t, 1, disp.calls, "unhealthy targets are never dispatched")
}

func TestAuditFleetIgnoreHealthOverride(t *testing.T) {
	checker := &fakeChecker{unhealthy: map[string]bool{
		target.MustParse("srv01.example.com").Key(): true,
	}}
	disp := &fakeDispatcher{}
	o := newTestOrchestrator(checker, &fakeProfiler{}, disp)

	report := o.AuditFleet(t.Context(), fleet("srv01.example.com"), nil, Options{IgnoreHealth: true})

	assert.Equal(t, TargetCompleted, report.Results[0].Status)
	assert.Equal(t, 1, disp.calls)
}

func TestAuditFleetSkipProfilingUsesConservativeBudget(t *testing.T) {
	prof := &fakeProfiler{}
	disp := &fakeDispatcher{}
	o := newTestOrchestrator(&fakeChecker{}, prof, disp)

	o.AuditFleet(t.Context(), fleet("srv01.example.com"), nil, Options{SkipProfiling: true})

	assert.Zero(t, prof.calls, "skip-profiling never measures")
	require.Len(t, disp.profiles, 1)
	assert.Equal(t, defaults.ConservativeJobs, disp.profiles[0].SafeParallelJobs)
	assert.Equal(t, defaults.ConservativeJobTimeout, disp.profiles[0].JobTimeout)
}

func TestAuditFleetForcedBudgetWinsOverSkipProfiling(t *testing.T) {
	disp := &fakeDispatcher{}
	o := newTestOrchestrator(&fakeChecker{}, &fakeProfiler{}, disp)

	o.AuditFleet(t.Context(), fleet("srv01.example.com"), nil, Options{
		SkipProfiling:    true,
		ForcedJobs:       6,
		ForcedJobTimeout: 30 * time.Second,
	})

	require.Len(t, disp.profiles, 1)
	assert.Equal(t, 6, disp.profiles[0].SafeParallelJobs)
	assert.Equal(t, 30*time.Second, disp.profiles[0].JobTimeout)
}

func TestAuditFleetNoCachePassesThrough(t *testing.T) {
	prof := &fakeProfiler{}
	o := newTestOrchestrator(&fakeChecker{}, prof, &fakeDispatcher{})

	o.AuditFleet(t.Context(), fleet("srv01.example.com"), nil, Options{NoCache: true})

	require.Len(t, prof.useCache, 1)
	assert.False(t, prof.useCache[0])
}

func TestAuditFleetDryRunPlansWithoutDispatch(t *testing.T) {
	disp := &fakeDispatcher{}
	o := newTestOrchestrator(&fakeChecker{}, &fakeProfiler{}, disp)

	report := o.AuditFleet(t.Context(), fleet("srv01.example.com"), nil, Options{DryRun: true})

	require.Len(t, report.Results, 1)
	assert.Equal(t, TargetPlanned, report.Results[0].Status)
	assert.Zero(t, disp.calls, "dry run never dispatches collectors")

	// Linux platform plans every builtin collector.
	assert.Contains(t, report.Results[0].Plan, "system")
	assert.Contains(t, report.Results[0].Plan, "services")
	assert.Contains(t, report.Results[0].Plan, "eventlog")
}

func TestAuditFleetCollectorFilter(t *testing.T) {
	disp := &fakeDispatcher{}
	o := newTestOrchestrator(&fakeChecker{}, &fakeProfiler{}, disp)

	report := o.AuditFleet(t.Context(), fleet("srv01.example.com"), nil, Options{
		Collectors: []string{"system", "storage"},
	})

	require.Len(t, report.Results[0].Outcomes, 2)
	names := []string{report.Results[0].Outcomes[0].Collector, report.Results[0].Outcomes[1].Collector}
	assert.ElementsMatch(t, []string{"system", "storage"}, names)
}

func TestAuditFleetDeadlineMarksUnstartedTargets(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	o := newTestOrchestrator(&fakeChecker{}, &fakeProfiler{}, &fakeDispatcher{})
	report := o.AuditFleet(ctx, fleet("srv01.example.com", "srv02.example.com"), nil, Options{})

	require.Len(t, report.Results, 2)
	for _, r := range report.Results {
		assert.Equal(t, TargetNotAttempted, r.Status)
		assert.Nil(t, r.Outcomes)
	}
	assert.Equal(t, 2, report.Summary.NotAttempted)
}

func TestSummarizeSuccessRates(t *testing.T) {
	report := &FleetAuditReport{Results: []TargetAuditResult{
		{Status: TargetCompleted, Outcomes: []*collector.Outcome{
			{Collector: "storage", Status: collector.StatusSuccess, Success: true},
			{Collector: "eventlog", Status: collector.StatusSkipped},
		}},
		{Status: TargetCompleted, Outcomes: []*collector.Outcome{
			{Collector: "storage", Status: collector.StatusFailed},
			{Collector: "eventlog", Status: collector.StatusSuccess, Success: true},
		}},
	}}

	report.summarize()

	assert.Equal(t, 0.5, report.Summary.Collectors["storage"].SuccessRate)

	// Skipped outcomes do not count as attempts.
	assert.Equal(t, 1, report.Summary.Collectors["eventlog"].Attempts)
	assert.Equal(t, 1.0, report.Summary.Collectors["eventlog"].SuccessRate)
}
