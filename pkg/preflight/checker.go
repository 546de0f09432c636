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
	"context"
	"log/slog"
	"net"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/tonynash74/server-audit-toolkit/pkg/credential"
	"github.com/tonynash74/server-audit-toolkit/pkg/defaults"
	"github.com/tonynash74/server-audit-toolkit/pkg/target"
	"github.com/tonynash74/server-audit-toolkit/pkg/transport"
)

// Checker validates target readiness before any audit work starts.
type Checker struct {
	// Prober performs the network-level checks (DNS, ping, port).
	Prober Prober

	// Transport performs the service and credential probes.
	Transport transport.Transport

	// CheckTimeout caps each individual check.
	// Defaults to defaults.PreflightCheckTimeout.
	CheckTimeout time.Duration

	// DNSRetryDelay is the pause before the single DNS retry.
	// Defaults to defaults.DNSRetryDelay.
	DNSRetryDelay time.Duration

	// ServiceUnit overrides the unit queried by local service probes.
	ServiceUnit string

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

// NewChecker creates a checker with the production prober.
func NewChecker(t transport.Transport) *Checker {
	return &Checker{Prober: &NetProber{}, Transport: t}
}

// BatchOptions controls a multi-target health run.
type BatchOptions struct {
	// Parallel enables concurrent target checks.
	Parallel bool

	// Throttle caps concurrent target checks when Parallel is set.
	// Defaults to defaults.PreflightThrottle.
	Throttle int

	// Rate paces target-check starts, to keep a large fleet from looking
	// like a probe sweep. Zero means unpaced.
	Rate rate.Limit

	// TargetTimeout caps the full check sequence per target.
	// Defaults to defaults.PreflightTargetTimeout.
	TargetTimeout time.Duration
}

func (c *Checker) now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}
	return time.Now()
}

func (c *Checker) checkTimeout() time.Duration {
	if c.CheckTimeout > 0 {
		return c.CheckTimeout
	}
	return defaults.PreflightCheckTimeout
}

func (c *Checker) retryDelay() time.Duration {
	if c.DNSRetryDelay > 0 {
		return c.DNSRetryDelay
	}
	return defaults.DNSRetryDelay
}

// Check runs the full pre-flight sequence against one target: DNS (with
// one retry), ping, management port, management service, and a lightweight
// authenticated probe. Failures are recorded, scored, and mapped to
// remediation; the call itself never fails.
func (c *Checker) Check(ctx context.Context, tgt target.Target, cred credential.Handle) HealthCheckResult {
	result := HealthCheckResult{Target: tgt.Key(), CheckedAt: c.now()}

	// Network-level checks have no meaning for the loopback path.
	remoteSkip := ""
	if tgt.Local() {
		remoteSkip = "local target"
	}

	dns := c.runDNS(ctx, tgt, remoteSkip)
	result.Checks = append(result.Checks, dns)

	// An unresolvable name fails everything downstream anyway; skip the
	// remaining network probes instead of burning their timeouts.
	if dns.Status == CheckStatusFailed {
		remoteSkip = "host unresolved"
	}

	result.Checks = append(result.Checks,
		c.runPing(ctx, tgt, remoteSkip),
		c.runPort(ctx, tgt, remoteSkip),
	)

	transportSkip := ""
	if dns.Status == CheckStatusFailed {
		transportSkip = "host unresolved"
	}
	result.Checks = append(result.Checks, c.runService(ctx, tgt, cred, transportSkip))
	result.Checks = append(result.Checks, c.runAuth(ctx, tgt, cred, transportSkip))

	result.finalize()

	slog.Info("preflight complete",
		slog.String("target", tgt.Key()),
		slog.Int("score", result.Score),
		slog.Bool("healthy", result.Healthy),
	)
	return result
}

// CheckAll validates a batch of targets, optionally in parallel up to the
// throttle, pacing starts with the configured rate. One target's failure
// never aborts the batch; results keep input order.
func (c *Checker) CheckAll(ctx context.Context, targets []target.Target, creds func(target.Target) credential.Handle, opts BatchOptions) HealthReport {
	report := HealthReport{Results: make([]HealthCheckResult, len(targets))}

	limit := 1
	if opts.Parallel {
		limit = opts.Throttle
		if limit <= 0 {
			limit = defaults.PreflightThrottle
		}
	}

	targetTimeout := opts.TargetTimeout
	if targetTimeout <= 0 {
		targetTimeout = defaults.PreflightTargetTimeout
	}

	var limiter *rate.Limiter
	if opts.Rate > 0 {
		limiter = rate.NewLimiter(opts.Rate, 1)
	}

	g := new(errgroup.Group)
	g.SetLimit(limit)

	for i, tgt := range targets {
		g.Go(func() error {
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					report.Results[i] = HealthCheckResult{Target: tgt.Key(), CheckedAt: c.now()}
					report.Results[i].Checks = []Check{{
						Kind: CheckDNS, Status: CheckStatusFailed, Detail: "batch cancelled before check",
					}}
					report.Results[i].finalize()
					return nil
				}
			}

			tctx, cancel := context.WithTimeout(ctx, targetTimeout)
			defer cancel()

			var cred credential.Handle
			if creds != nil {
				cred = creds(tgt)
			}
			report.Results[i] = c.Check(tctx, tgt, cred)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range report.Results {
		if r.Healthy {
			report.Healthy++
		} else {
			report.Unhealthy++
		}
	}
	return report
}

func (c *Checker) runDNS(ctx context.Context, tgt target.Target, skip string) Check {
	check := Check{Kind: CheckDNS}
	if skip != "" {
		check.Status = CheckStatusSkipped
		check.Detail = skip
		return check
	}
	if ip := net.ParseIP(tgt.Host); ip != nil {
		check.Status = CheckStatusPassed
		check.Detail = "address literal"
		return check
	}

	start := time.Now()
	ips, err := c.resolveWithRetry(ctx, tgt.Host)
	check.Elapsed = time.Since(start)

	if err != nil {
		check.Status = CheckStatusFailed
		check.Detail = err.Error()
		return check
	}

	check.Status = CheckStatusPassed
	check.Data = map[string]any{"addresses": len(ips)}
	return check
}

// resolveWithRetry performs the single documented DNS retry after a short
// delay; transient resolver hiccups are common on busy fleets.
func (c *Checker) resolveWithRetry(ctx context.Context, host string) ([]net.IP, error) {
	probeCtx, cancel := context.WithTimeout(ctx, c.checkTimeout())
	ips, err := c.Prober.ResolveDNS(probeCtx, host)
	cancel()
	if err == nil {
		return ips, nil
	}

	select {
	case <-time.After(c.retryDelay()):
	case <-ctx.Done():
		return nil, err
	}

	probeCtx, cancel = context.WithTimeout(ctx, c.checkTimeout())
	defer cancel()
	return c.Prober.ResolveDNS(probeCtx, host)
}

func (c *Checker) runPing(ctx context.Context, tgt target.Target, skip string) Check {
	check := Check{Kind: CheckPing}
	if skip != "" {
		check.Status = CheckStatusSkipped
		check.Detail = skip
		return check
	}

	probeCtx, cancel := context.WithTimeout(ctx, c.checkTimeout())
	defer cancel()

	start := time.Now()
	rtt, err := c.Prober.Ping(probeCtx, tgt.Host)
	check.Elapsed = time.Since(start)

	if err != nil {
		check.Status = CheckStatusFailed
		check.Detail = err.Error()
		return check
	}
	check.Status = CheckStatusPassed
	check.Data = map[string]any{"rtt-ms": rtt.Milliseconds()}
	return check
}

func (c *Checker) runPort(ctx context.Context, tgt target.Target, skip string) Check {
	check := Check{Kind: CheckPort}
	if skip != "" {
		check.Status = CheckStatusSkipped
		check.Detail = skip
		return check
	}

	probeCtx, cancel := context.WithTimeout(ctx, c.checkTimeout())
	defer cancel()

	start := time.Now()
	_, err := c.Prober.DialPort(probeCtx, tgt.Host, tgt.Port)
	check.Elapsed = time.Since(start)

	if err != nil {
		check.Status = CheckStatusFailed
		check.Detail = err.Error()
		return check
	}
	check.Status = CheckStatusPassed
	return check
}

func (c *Checker) runService(ctx context.Context, tgt target.Target, cred credential.Handle, skip string) Check {
	check := Check{Kind: CheckService}
	if skip != "" {
		check.Status = CheckStatusSkipped
		check.Detail = skip
		return check
	}

	payload := transport.Payload{Op: transport.OpProbeService}
	if c.ServiceUnit != "" {
		payload.Args = map[string]string{"unit": c.ServiceUnit}
	}
	return c.invokeCheck(ctx, check, tgt, cred, payload)
}

func (c *Checker) runAuth(ctx context.Context, tgt target.Target, cred credential.Handle, skip string) Check {
	check := Check{Kind: CheckAuth}
	if skip != "" {
		check.Status = CheckStatusSkipped
		check.Detail = skip
		return check
	}
	return c.invokeCheck(ctx, check, tgt, cred, transport.Payload{Op: transport.OpProbeAuth})
}

func (c *Checker) invokeCheck(ctx context.Context, check Check, tgt target.Target, cred credential.Handle, payload transport.Payload) Check {
	probeCtx, cancel := context.WithTimeout(ctx, c.checkTimeout())
	defer cancel()

	start := time.Now()
	res, err := c.Transport.Invoke(probeCtx, tgt, cred, payload)
	check.Elapsed = time.Since(start)

	if err != nil {
		check.Status = CheckStatusFailed
		check.Detail = err.Error()
		return check
	}
	check.Status = CheckStatusPassed
	check.Data = res.Data
	return check
}
