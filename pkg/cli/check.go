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
	"fmt"

	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"

	"github.com/tonynash74/server-audit-toolkit/pkg/defaults"
	"github.com/tonynash74/server-audit-toolkit/pkg/header"
	"github.com/tonynash74/server-audit-toolkit/pkg/preflight"
	"github.com/tonynash74/server-audit-toolkit/pkg/serializer"
	"github.com/tonynash74/server-audit-toolkit/pkg/transport"
)

func checkCmd() *cli.Command {
	return &cli.Command{
		Name:                  "check",
		EnableShellCompletion: true,
		Usage:                 "Validate target readiness without collecting",
		Description: `Run the pre-flight sequence against each target: DNS resolution,
ICMP reachability, management-port dial, management-service probe, and a
lightweight authenticated probe. Each target gets a 0-100 health score
with per-failure remediation suggestions.

Checks are computed fresh on every run; health is never cached.`,
		Flags: []cli.Flag{
			targetFlag,
			targetsFileFlag,
			credentialRefFlag,
			&cli.IntFlag{
				Name:  "throttle",
				Usage: "concurrent target checks",
				Value: defaults.PreflightThrottle,
			},
			&cli.FloatFlag{
				Name:  "rate",
				Usage: "target-check starts per second (0 = unpaced)",
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

			checker := preflight.NewChecker(&transport.Local{})
			report := checker.CheckAll(ctx, targets, credentialSource(cmd), preflight.BatchOptions{
				Parallel: true,
				Throttle: int(cmd.Int("throttle")),
				Rate:     rate.Limit(cmd.Float("rate")),
			})

			out := struct {
				Header                 *header.Header `json:"header" yaml:"header"`
				preflight.HealthReport `yaml:",inline"`
			}{
				Header:       header.New(header.KindHealthReport, header.WithTool(name, version)),
				HealthReport: report,
			}

			w := serializer.NewFileWriterOrStdout(outFormat, cmd.String("output"))
			defer serializer.CloseQuietly(w)
			if err := w.Serialize(ctx, out); err != nil {
				return err
			}

			if report.Unhealthy > 0 {
				return fmt.Errorf("%d of %d targets unhealthy", report.Unhealthy, len(report.Results))
			}
			return nil
		},
	}
}
