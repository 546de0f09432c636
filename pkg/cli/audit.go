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

package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/tonynash74/server-audit-toolkit/pkg/collector"
	"github.com/tonynash74/server-audit-toolkit/pkg/defaults"
	"github.com/tonynash74/server-audit-toolkit/pkg/orchestrator"
	"github.com/tonynash74/server-audit-toolkit/pkg/preflight"
	"github.com/tonynash74/server-audit-toolkit/pkg/profiler"
	"github.com/tonynash74/server-audit-toolkit/pkg/profiler/cache"
	"github.com/tonynash74/server-audit-toolkit/pkg/runner"
	"github.com/tonynash74/server-audit-toolkit/pkg/scheduler"
	"github.com/tonynash74/server-audit-toolkit/pkg/serializer"
	"github.com/tonynash74/server-audit-toolkit/pkg/server"
	"github.com/tonynash74/server-audit-toolkit/pkg/transport"
)

func auditCmd() *cli.Command {
	return &cli.Command{
		Name:                  "audit",
		EnableShellCompletion: true,
		Usage:                 "Run the full audit pipeline against a fleet of targets",
		Description: `Run the three-stage audit pipeline against every target:

  1. Pre-flight health validation (DNS, reachability, management service,
     credential probe); unhealthy targets are skipped with remediation
     suggestions unless --ignore-health is set.
  2. Capability profiling: CPU, memory, disk, network, and load
     measurements derive a per-target parallelism and timeout budget,
     cached for 24 hours.
  3. Collector execution under the derived budget, with tiered fallback
     per collector.

The report can be output in JSON, YAML, or table format. Remote targets
require a management transport; the builtin transport audits "local".`,
		Flags: []cli.Flag{
			targetFlag,
			targetsFileFlag,
			credentialRefFlag,
			&cli.StringSliceFlag{
				Name:  "collector",
				Usage: "restrict the run to the named collectors (can be repeated)",
			},
			&cli.IntFlag{
				Name:    "fleet-parallelism",
				Usage:   "number of targets audited concurrently",
				Value:   defaults.FleetParallelism,
				Sources: cli.EnvVars("AUDIT_FLEET_PARALLELISM"),
			},
			&cli.DurationFlag{
				Name:    "fleet-timeout",
				Usage:   "deadline for the whole run (0 = none)",
				Sources: cli.EnvVars("AUDIT_FLEET_TIMEOUT"),
			},
			&cli.BoolFlag{
				Name:  "ignore-health",
				Usage: "collect from targets that failed pre-flight validation",
			},
			&cli.BoolFlag{
				Name:  "skip-profiling",
				Usage: "use the conservative one-job budget instead of measuring",
			},
			&cli.IntFlag{
				Name:  "force-jobs",
				Usage: "override the derived parallel-job budget",
			},
			&cli.DurationFlag{
				Name:  "force-job-timeout",
				Usage: "override the derived per-collector timeout",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "re-measure capability profiles, overwriting cached entries",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "resolve the plan without executing any collector",
			},
			&cli.StringFlag{
				Name:    "cache-dir",
				Usage:   "capability profile cache directory",
				Value:   cache.DefaultPath(),
				Sources: cli.EnvVars("AUDIT_CACHE_DIR"),
			},
			&cli.StringFlag{
				Name:    "metrics-addr",
				Usage:   "serve /metrics, /healthz, and /version on this address for the duration of the run (empty = disabled)",
				Sources: cli.EnvVars("AUDIT_METRICS_ADDR"),
			},
			outputFlag,
			formatFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			outFormat, err := parseFormat(cmd)
			if err != nil {
				return err
			}

			targets, err := resolveTargets(cmd)
			if err != nil {
				return err
			}

			if addr := cmd.String("metrics-addr"); addr != "" {
				srv := server.New(server.Config{Address: addr}, server.Info{
					Name:    name,
					Version: version,
					Commit:  commit,
					Date:    date,
				})
				go func() {
					if srvErr := srv.Start(ctx); srvErr != nil {
						slog.Warn("observability server failed", "error", srvErr)
					}
				}()
			}

			trans := &transport.Local{}
			store := openProfileStore(cmd.String("cache-dir"))
			defer func() {
				if closeErr := store.Close(); closeErr != nil {
					slog.Warn("failed to close profile cache", "error", closeErr)
				}
			}()

			orch := orchestrator.New(
				collector.NewBuiltinRegistry(),
				preflight.NewChecker(trans),
				profiler.New(trans, store),
				scheduler.New(runner.New(trans)),
			)

			report := orch.AuditFleet(ctx, targets, credentialSource(cmd), orchestrator.Options{
				FleetParallelism: int(cmd.Int("fleet-parallelism")),
				FleetTimeout:     cmd.Duration("fleet-timeout"),
				IgnoreHealth:     cmd.Bool("ignore-health"),
				SkipProfiling:    cmd.Bool("skip-profiling"),
				ForcedJobs:       int(cmd.Int("force-jobs")),
				ForcedJobTimeout: cmd.Duration("force-job-timeout"),
				NoCache:          cmd.Bool("no-cache"),
				DryRun:           cmd.Bool("dry-run"),
				Collectors:       cmd.StringSlice("collector"),
			})

			w := serializer.NewFileWriterOrStdout(outFormat, cmd.String("output"))
			defer serializer.CloseQuietly(w)
			if err := w.Serialize(ctx, report); err != nil {
				return err
			}

			writeSummary(os.Stderr, report)
			return nil
		},
	}
}

// openProfileStore opens the persistent profile cache, degrading to an
// in-memory store when the cache directory is unusable.
func openProfileStore(dir string) profiler.Store {
	store, err := cache.Open(dir)
	if err != nil {
		slog.Warn("profile cache unavailable, falling back to in-memory store",
			"path", dir, "error", err)
		return profiler.NewMemoryStore()
	}
	return store
}
