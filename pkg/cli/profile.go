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

	"github.com/urfave/cli/v3"

	"github.com/tonynash74/server-audit-toolkit/pkg/credential"
	"github.com/tonynash74/server-audit-toolkit/pkg/header"
	"github.com/tonynash74/server-audit-toolkit/pkg/profiler"
	"github.com/tonynash74/server-audit-toolkit/pkg/profiler/cache"
	"github.com/tonynash74/server-audit-toolkit/pkg/serializer"
	"github.com/tonynash74/server-audit-toolkit/pkg/transport"
)

func profileCmd() *cli.Command {
	return &cli.Command{
		Name:                  "profile",
		EnableShellCompletion: true,
		Usage:                 "Measure target capabilities and show the derived budgets",
		Description: `Measure CPU, memory, disk, network, and load on each target and derive
the performance tier, safe parallel-job count, and per-collector timeout
the audit would use. Profiles are cached for 24 hours; --no-cache forces
a re-measure and overwrites the cached entry.`,
		Flags: []cli.Flag{
			targetFlag,
			targetsFileFlag,
			credentialRefFlag,
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "re-measure, overwriting any cached profile",
			},
			&cli.StringFlag{
				Name:    "cache-dir",
				Usage:   "capability profile cache directory",
				Value:   cache.DefaultPath(),
				Sources: cli.EnvVars("AUDIT_CACHE_DIR"),
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

			store := openProfileStore(cmd.String("cache-dir"))
			defer func() {
				if closeErr := store.Close(); closeErr != nil {
					slog.Warn("failed to close profile cache", "error", closeErr)
				}
			}()

			prof := profiler.New(&transport.Local{}, store)
			creds := credentialSource(cmd)

			profiles := make([]*profiler.CapabilityProfile, 0, len(targets))
			for _, tgt := range targets {
				var cred credential.Handle
				if creds != nil {
					cred = creds(tgt)
				}
				// Profile never fails; degraded measurements surface as
				// constraints on the result.
				p, _ := prof.Profile(ctx, tgt, cred, !cmd.Bool("no-cache"))
				profiles = append(profiles, p)
			}

			out := struct {
				Header   *header.Header                `json:"header" yaml:"header"`
				Profiles []*profiler.CapabilityProfile `json:"profiles" yaml:"profiles"`
			}{
				Header:   header.New(header.KindCapabilityProfileList, header.WithTool(name, version)),
				Profiles: profiles,
			}

			w := serializer.NewFileWriterOrStdout(outFormat, cmd.String("output"))
			defer serializer.CloseQuietly(w)
			return w.Serialize(ctx, out)
		},
	}
}
