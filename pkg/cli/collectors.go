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

	"github.com/urfave/cli/v3"

	"github.com/tonynash74/server-audit-toolkit/pkg/collector"
	"github.com/tonynash74/server-audit-toolkit/pkg/serializer"
)

// collectorEntry is the list view of one registered collector.
type collectorEntry struct {
	Name      string   `json:"name" yaml:"name"`
	Variants  []string `json:"variants" yaml:"variants"`
	DependsOn []string `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`
}

func collectorsCmd() *cli.Command {
	return &cli.Command{
		Name:                  "collectors",
		EnableShellCompletion: true,
		Usage:                 "List the registered collectors",
		Description: `List the builtin collector catalog: each collector's platform variants
and the collectors it depends on. Use the names with "audit --collector"
to restrict a run.`,
		Flags: []cli.Flag{
			outputFlag,
			formatFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			outFormat, err := parseFormat(cmd)
			if err != nil {
				return err
			}

			reg := collector.NewBuiltinRegistry()
			entries := make([]collectorEntry, 0, len(reg.Names()))
			for _, name := range reg.Names() {
				d, _ := reg.Get(name)
				entry := collectorEntry{Name: d.Name, DependsOn: d.DependsOn}
				for _, v := range d.Variants {
					entry.Variants = append(entry.Variants, v.Name)
				}
				entries = append(entries, entry)
			}

			w := serializer.NewFileWriterOrStdout(outFormat, cmd.String("output"))
			defer serializer.CloseQuietly(w)
			return w.Serialize(ctx, entries)
		},
	}
}
