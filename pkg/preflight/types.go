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

package preflight

import (
	"time"

	"github.com/tonynash74/server-audit-toolkit/pkg/defaults"
)

// CheckKind identifies one pre-flight validation step.
type CheckKind string

const (
	// CheckDNS validates name resolution. Blocking.
	CheckDNS CheckKind = "dns"
	// CheckPing validates network reachability.
	CheckPing CheckKind = "ping"
	// CheckPort validates management-port reachability.
	CheckPort CheckKind = "port"
	// CheckService validates the management-service listener. Blocking.
	CheckService CheckKind = "service"
	// CheckAuth validates the credential with a lightweight authenticated
	// probe. Blocking.
	CheckAuth CheckKind = "auth"
)

// checkOrder is the fixed per-target sequence.
var checkOrder = []CheckKind{CheckDNS, CheckPing, CheckPort, CheckService, CheckAuth}

// penalties maps a failed check to its score deduction. Auth failures
// carry no deduction of their own: they block execution outright.
var penalties = map[CheckKind]int{
	CheckDNS:     20,
	CheckPing:    15,
	CheckPort:    20,
	CheckService: 35,
}

// blocking marks check kinds whose failure makes a target unhealthy
// regardless of score.
var blocking = map[CheckKind]bool{
	CheckDNS:     true,
	CheckService: true,
	CheckAuth:    true,
}

// remediation maps a failed check kind to its advisory suggestion.
// The mapping is deterministic: same failure, same suggestion.
var remediation = map[CheckKind]string{
	CheckDNS:     "verify the hostname spelling and the DNS zone record; confirm the auditor's resolver configuration",
	CheckPing:    "check network routing and firewall rules for ICMP between the auditor and the target",
	CheckPort:    "confirm the management port is open on the target and not filtered by an intermediate firewall",
	CheckService: "verify the management service is running on the target and listening on the configured port",
	CheckAuth:    "verify the referenced credential is current and grants management access on the target",
}

// CheckStatus is the outcome of a single check.
type CheckStatus string

const (
	CheckStatusPassed  CheckStatus = "passed"
	CheckStatusFailed  CheckStatus = "failed"
	CheckStatusSkipped CheckStatus = "skipped"
)

// Check is the result of one validation step against one target.
type Check struct {
	// Kind identifies the step.
	Kind CheckKind `json:"kind" yaml:"kind"`

	// Status is the step outcome.
	Status CheckStatus `json:"status" yaml:"status"`

	// Detail explains a failure or records probe findings.
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`

	// Data carries readings returned by the probe (e.g., target platform
	// facts from the service check).
	Data map[string]any `json:"data,omitempty" yaml:"data,omitempty"`

	// Elapsed is the time the step took.
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
}

// HealthCheckResult is the composite pre-flight verdict for one target.
// Computed fresh every run, never cached.
type HealthCheckResult struct {
	// Target is the target identity key.
	Target string `json:"target" yaml:"target"`

	// Checks lists the step results in execution order.
	Checks []Check `json:"checks" yaml:"checks"`

	// Score is the 0-100 composite: 100 minus the failed-check penalties,
	// floored at zero.
	Score int `json:"score" yaml:"score"`

	// Healthy is true when the score clears the floor and no blocking
	// check failed.
	Healthy bool `json:"healthy" yaml:"healthy"`

	// Issues summarizes failed checks.
	Issues []string `json:"issues,omitempty" yaml:"issues,omitempty"`

	// Remediation lists advisory suggestions for the failed checks.
	Remediation []string `json:"remediation,omitempty" yaml:"remediation,omitempty"`

	// CheckedAt stamps the run.
	CheckedAt time.Time `json:"checkedAt" yaml:"checkedAt"`
}

// finalize computes score, health, issues, and remediation from the
// recorded checks.
func (r *HealthCheckResult) finalize() {
	score := 100
	blocked := false

	for _, c := range r.Checks {
		if c.Status != CheckStatusFailed {
			continue
		}
		score -= penalties[c.Kind]
		if blocking[c.Kind] {
			blocked = true
		}
		r.Issues = append(r.Issues, string(c.Kind)+": "+c.Detail)
		r.Remediation = append(r.Remediation, remediation[c.Kind])
	}

	if score < 0 {
		score = 0
	}
	r.Score = score
	r.Healthy = !blocked && score >= defaults.HealthScoreFloor
}

// Facts merges the data readings of all passed checks, later checks
// winning. The orchestrator uses this to learn the target platform from
// the service and auth probes.
func (r *HealthCheckResult) Facts() map[string]any {
	facts := make(map[string]any)
	for _, c := range r.Checks {
		if c.Status != CheckStatusPassed {
			continue
		}
		for k, v := range c.Data {
			facts[k] = v
		}
	}
	return facts
}

// HealthReport aggregates a batch health run across targets.
type HealthReport struct {
	// Results holds per-target verdicts in input order.
	Results []HealthCheckResult `json:"results" yaml:"results"`

	// Healthy and Unhealthy count the verdicts.
	Healthy   int `json:"healthy" yaml:"healthy"`
	Unhealthy int `json:"unhealthy" yaml:"unhealthy"`
}
