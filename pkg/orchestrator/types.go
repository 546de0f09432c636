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
	"time"

	"github.com/tonynash74/server-audit-toolkit/pkg/collector"
	"github.com/tonynash74/server-audit-toolkit/pkg/header"
	"github.com/tonynash74/server-audit-toolkit/pkg/preflight"
	"github.com/tonynash74/server-audit-toolkit/pkg/profiler"
)

// Options tunes one fleet audit run.
type Options struct {
	// FleetParallelism is the number of targets audited concurrently.
	// Defaults to defaults.FleetParallelism.
	FleetParallelism int

	// FleetTimeout caps the whole run. Targets not started when it expires
	// are reported as not attempted. Zero means no fleet deadline.
	FleetTimeout time.Duration

	// IgnoreHealth proceeds with collection even when pre-flight marks the
	// target unhealthy.
	IgnoreHealth bool

	// SkipProfiling substitutes the conservative budget (one job, the
	// conservative job timeout) for a measured profile.
	SkipProfiling bool

	// ForcedJobs overrides the parallel-job budget when positive. A forced
	// value wins over both the measured profile and SkipProfiling.
	ForcedJobs int

	// ForcedJobTimeout overrides the per-collector deadline when positive.
	ForcedJobTimeout time.Duration

	// NoCache forces re-measurement, overwriting any cached profile.
	NoCache bool

	// DryRun resolves the plan (health, budget, collectors that would run)
	// without invoking any collector.
	DryRun bool

	// Collectors restricts the run to the named collectors. Empty means
	// every compatible collector.
	Collectors []string
}

// TargetStatus classifies how a target fared in the run.
type TargetStatus string

const (
	// TargetCompleted means collection ran; individual collector outcomes
	// carry their own statuses.
	TargetCompleted TargetStatus = "completed"
	// TargetSkippedUnhealthy means pre-flight blocked the target.
	TargetSkippedUnhealthy TargetStatus = "skipped-unhealthy"
	// TargetNotAttempted means the fleet deadline expired before the
	// target was started.
	TargetNotAttempted TargetStatus = "not-attempted"
	// TargetPlanned is the dry-run status: the plan was resolved, nothing
	// was executed.
	TargetPlanned TargetStatus = "planned"
)

// TargetAuditResult is one target's slice of the fleet report.
type TargetAuditResult struct {
	// Target is the target identity key.
	Target string `json:"target" yaml:"target"`

	// Status classifies the target run.
	Status TargetStatus `json:"status" yaml:"status"`

	// Health is the pre-flight verdict. Nil when the target was never
	// started.
	Health *preflight.HealthCheckResult `json:"health,omitempty" yaml:"health,omitempty"`

	// Profile is the capability budget the run used. Nil when the target
	// was never started.
	Profile *profiler.CapabilityProfile `json:"profile,omitempty" yaml:"profile,omitempty"`

	// Outcomes holds one entry per scheduled collector, in catalog order.
	Outcomes []*collector.Outcome `json:"outcomes,omitempty" yaml:"outcomes,omitempty"`

	// Plan lists the collectors a dry run would execute.
	Plan []string `json:"plan,omitempty" yaml:"plan,omitempty"`

	// StartedAt and CompletedAt bound the target's wall time.
	StartedAt   time.Time `json:"startedAt" yaml:"startedAt"`
	CompletedAt time.Time `json:"completedAt" yaml:"completedAt"`
}

// CollectorStat aggregates one collector's outcomes across the fleet.
type CollectorStat struct {
	Attempts    int     `json:"attempts" yaml:"attempts"`
	Successes   int     `json:"successes" yaml:"successes"`
	SuccessRate float64 `json:"successRate" yaml:"successRate"`
}

// Summary aggregates the fleet run.
type Summary struct {
	Targets          int `json:"targets" yaml:"targets"`
	Completed        int `json:"completed" yaml:"completed"`
	SkippedUnhealthy int `json:"skippedUnhealthy" yaml:"skippedUnhealthy"`
	NotAttempted     int `json:"notAttempted" yaml:"notAttempted"`

	// Collectors maps collector name to its fleet-wide success stats.
	// Skipped, incompatible, and not-attempted outcomes do not count as
	// attempts.
	Collectors map[string]CollectorStat `json:"collectors,omitempty" yaml:"collectors,omitempty"`
}

// FleetAuditReport is the complete result of one fleet audit run.
type FleetAuditReport struct {
	// Header is the document envelope stamped on serialized reports.
	Header *header.Header `json:"header,omitempty" yaml:"header,omitempty"`

	// RunID uniquely identifies the run.
	RunID string `json:"runId" yaml:"runId"`

	// StartedAt and CompletedAt bound the run's wall time.
	StartedAt   time.Time `json:"startedAt" yaml:"startedAt"`
	CompletedAt time.Time `json:"completedAt" yaml:"completedAt"`

	// Results holds per-target results in input order.
	Results []TargetAuditResult `json:"results" yaml:"results"`

	// Summary aggregates the run.
	Summary Summary `json:"summary" yaml:"summary"`
}

// summarize recomputes the report summary from its results.
func (r *FleetAuditReport) summarize() {
	s := Summary{
		Targets:    len(r.Results),
		Collectors: make(map[string]CollectorStat),
	}

	for _, res := range r.Results {
		switch res.Status {
		case TargetCompleted, TargetPlanned:
			s.Completed++
		case TargetSkippedUnhealthy:
			s.SkippedUnhealthy++
		case TargetNotAttempted:
			s.NotAttempted++
		}

		for _, o := range res.Outcomes {
			stat := s.Collectors[o.Collector]
			switch o.Status {
			case collector.StatusSuccess, collector.StatusFailed, collector.StatusTimeout:
				stat.Attempts++
				if o.Success {
					stat.Successes++
				}
			}
			s.Collectors[o.Collector] = stat
		}
	}

	for name, stat := range s.Collectors {
		if stat.Attempts > 0 {
			stat.SuccessRate = float64(stat.Successes) / float64(stat.Attempts)
		}
		s.Collectors[name] = stat
	}
	r.Summary = s
}
