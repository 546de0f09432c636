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

package collector

import "time"

// Status classifies how a collector run against one target ended.
type Status string

const (
	// StatusSuccess means some tier produced data.
	StatusSuccess Status = "success"
	// StatusFailed means every tier failed.
	StatusFailed Status = "failed"
	// StatusTimeout means the collector was cancelled on a deadline.
	StatusTimeout Status = "timeout"
	// StatusSkipped means the collector never ran (unmet dependency or
	// exhausted batch budget).
	StatusSkipped Status = "skipped"
	// StatusIncompatible means no variant matched the target platform.
	// Not a failure.
	StatusIncompatible Status = "incompatible"
	// StatusNotAttempted means the fleet deadline expired before the
	// target was started.
	StatusNotAttempted Status = "not-attempted"
)

// Outcome is the result of one collector against one target.
type Outcome struct {
	// Collector is the descriptor name.
	Collector string `json:"collector" yaml:"collector"`

	// Target is the target identity key.
	Target string `json:"target" yaml:"target"`

	// Status classifies the result.
	Status Status `json:"status" yaml:"status"`

	// Success is true only when some tier produced data. False means
	// every attempted tier failed (or the collector never ran).
	Success bool `json:"success" yaml:"success"`

	// DataSource names the tier that produced the data (primary, legacy,
	// partial). Empty on failure.
	DataSource string `json:"dataSource,omitempty" yaml:"dataSource,omitempty"`

	// Data holds the collected readings. Nil on failure.
	Data map[string]any `json:"data" yaml:"data"`

	// Warnings accumulates non-fatal notes (e.g., a tier that failed
	// before a later one succeeded).
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`

	// Errors holds one entry per failed tier attempt.
	Errors []string `json:"errors,omitempty" yaml:"errors,omitempty"`

	// ExecutionTimeMs is the wall time spent running the collector.
	ExecutionTimeMs int64 `json:"executionTimeMs" yaml:"executionTimeMs"`
}

// NewOutcome creates an outcome shell for a collector/target pair.
func NewOutcome(collectorName, targetKey string) *Outcome {
	return &Outcome{
		Collector: collectorName,
		Target:    targetKey,
	}
}

// MarkSuccess records a successful tier result.
func (o *Outcome) MarkSuccess(source string, data map[string]any, elapsed time.Duration) *Outcome {
	o.Status = StatusSuccess
	o.Success = true
	o.DataSource = source
	o.Data = data
	o.ExecutionTimeMs = elapsed.Milliseconds()
	return o
}

// MarkStatus records a terminal non-success status with an explanatory note.
func (o *Outcome) MarkStatus(status Status, note string) *Outcome {
	o.Status = status
	o.Success = false
	o.Data = nil
	if note != "" {
		o.Errors = append(o.Errors, note)
	}
	return o
}
