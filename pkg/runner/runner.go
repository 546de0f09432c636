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

// Package runner executes one collector against one target through its
// ordered tier chain, falling back tier by tier until one succeeds or the
// chain is exhausted.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tonynash74/server-audit-toolkit/pkg/collector"
	"github.com/tonynash74/server-audit-toolkit/pkg/credential"
	"github.com/tonynash74/server-audit-toolkit/pkg/errors"
	"github.com/tonynash74/server-audit-toolkit/pkg/target"
	"github.com/tonynash74/server-audit-toolkit/pkg/transport"
)

// Runner drives a collector's tier chain over a transport.
type Runner struct {
	Transport transport.Transport
}

// New creates a runner bound to a transport.
func New(t transport.Transport) *Runner {
	return &Runner{Transport: t}
}

// Run attempts the resolved collector's tiers in order against the target,
// within the given budget. The first tier that succeeds terminates the
// chain; its source label and data go on the outcome, and any earlier tier
// failures become warnings. When every tier fails the outcome carries one
// error per attempted tier, a failed status, and no data. A budget that
// expires mid-chain yields a timeout status.
//
// Run itself never returns an error: every failure mode is expressed on
// the outcome.
func (r *Runner) Run(ctx context.Context, res collector.Resolved, tgt target.Target, cred credential.Handle, budget time.Duration) *collector.Outcome {
	outcome := collector.NewOutcome(res.Name, tgt.Key())
	start := time.Now()

	runCtx := ctx
	if budget > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}

	var attempts []string
	for _, tier := range res.Variant.Tiers {
		if runCtx.Err() != nil {
			break
		}

		data, err := r.attempt(runCtx, tier, tgt, cred)
		if err == nil {
			outcome.Warnings = append(outcome.Warnings, attempts...)
			outcome.MarkSuccess(tier.Source, data, time.Since(start))
			slog.Debug("collector tier succeeded",
				slog.String("collector", res.Name),
				slog.String("target", tgt.Key()),
				slog.String("tier", tier.Name),
				slog.String("source", tier.Source),
			)
			return outcome
		}

		attempts = append(attempts, fmt.Sprintf("tier %s: %s", tier.Name, err.Error()))
		slog.Debug("collector tier failed",
			slog.String("collector", res.Name),
			slog.String("target", tgt.Key()),
			slog.String("tier", tier.Name),
			slog.String("error", err.Error()),
		)
	}

	status := collector.StatusFailed
	note := ""
	if runCtx.Err() != nil {
		status = collector.StatusTimeout
		note = errors.NewTimeout(errors.TimeoutUnitCollector,
			fmt.Sprintf("collector %s exceeded its %s budget", res.Name, budget)).Error()
	}

	outcome.Errors = append(outcome.Errors, attempts...)
	outcome.MarkStatus(status, note)
	outcome.ExecutionTimeMs = time.Since(start).Milliseconds()

	slog.Warn("collector exhausted all tiers",
		slog.String("collector", res.Name),
		slog.String("target", tgt.Key()),
		slog.String("status", string(status)),
		slog.Int("tiers", len(res.Variant.Tiers)),
	)
	return outcome
}

// attempt runs one tier inside its own cap, never exceeding the remaining
// collector budget.
func (r *Runner) attempt(ctx context.Context, tier collector.Tier, tgt target.Target, cred credential.Handle) (map[string]any, error) {
	tierCtx := ctx
	if tier.Timeout > 0 {
		var cancel context.CancelFunc
		tierCtx, cancel = context.WithTimeout(ctx, tier.Timeout)
		defer cancel()
	}

	res, err := r.Transport.Invoke(tierCtx, tgt, cred, tier.Payload)
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}
