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
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/tonynash74/server-audit-toolkit/pkg/credential"
	"github.com/tonynash74/server-audit-toolkit/pkg/logging"
	"github.com/tonynash74/server-audit-toolkit/pkg/serializer"
	"github.com/tonynash74/server-audit-toolkit/pkg/target"
)

const name = "srvaudit"

var (
	// overridden during build with ldflags
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Flags shared by every reporting command.
var (
	outputFlag = &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "output file path (default: stdout)",
		Sources: cli.EnvVars("AUDIT_OUTPUT"),
	}
	formatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage: fmt.Sprintf("output format (supported values: %s)",
			strings.Join(serializer.SupportedFormats(), ", ")),
		Value:   string(serializer.FormatJSON),
		Sources: cli.EnvVars("AUDIT_FORMAT"),
	}
	targetFlag = &cli.StringSliceFlag{
		Name:    "target",
		Aliases: []string{"t"},
		Usage:   `target address ("host", "host:port", or "local"; can be repeated)`,
		Sources: cli.EnvVars("AUDIT_TARGETS"),
	}
	targetsFileFlag = &cli.StringFlag{
		Name:  "targets-file",
		Usage: "JSON or YAML file with a list of target addresses",
	}
	credentialRefFlag = &cli.StringFlag{
		Name:    "credential-ref",
		Usage:   "name of the credential used to authenticate against targets",
		Sources: cli.EnvVars("AUDIT_CREDENTIAL_REF"),
	}
)

// Root builds the command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name:    name,
		Usage:   "Fleet server audit orchestration",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("AUDIT_LOG_LEVEL"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			logging.SetDefaultStructuredLoggerWithLevel(name, version, cmd.String("log-level"))
			slog.Debug("starting",
				"name", name,
				"version", version,
				"commit", commit,
				"date", date,
			)
			return ctx, nil
		},
		Commands: []*cli.Command{
			auditCmd(),
			checkCmd(),
			profileCmd(),
			collectorsCmd(),
		},
	}
}

// Execute runs the CLI. Called by main; exits nonzero on error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := Root().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// parseFormat validates the shared format flag.
func parseFormat(cmd *cli.Command) (serializer.Format, error) {
	f := serializer.Format(cmd.String("format"))
	if f.IsUnknown() {
		return "", fmt.Errorf("unknown output format: %q", f)
	}
	return f, nil
}

// resolveTargets merges the repeated --target flags with the optional
// targets file and parses every address.
func resolveTargets(cmd *cli.Command) ([]target.Target, error) {
	addrs := cmd.StringSlice("target")

	if path := cmd.String("targets-file"); path != "" {
		fromFile, err := serializer.FromFile[[]string](path)
		if err != nil {
			return nil, fmt.Errorf("failed to load targets file: %w", err)
		}
		addrs = append(addrs, *fromFile...)
	}

	if len(addrs) == 0 {
		return nil, fmt.Errorf("no targets given; use --target or --targets-file")
	}

	ref := cmd.String("credential-ref")
	targets := make([]target.Target, 0, len(addrs))
	for _, addr := range addrs {
		tgt, err := target.Parse(addr)
		if err != nil {
			return nil, err
		}
		if ref != "" {
			tgt = tgt.WithCredential(ref)
		}
		targets = append(targets, tgt)
	}
	return targets, nil
}

// credentialSource builds the per-target credential lookup from the
// shared credential-ref flag. Material acquisition is the transport's
// concern; the engine only carries the opaque handle.
func credentialSource(cmd *cli.Command) func(target.Target) credential.Handle {
	ref := cmd.String("credential-ref")
	if ref == "" {
		return nil
	}
	return func(target.Target) credential.Handle {
		return credential.New(ref, nil)
	}
}
