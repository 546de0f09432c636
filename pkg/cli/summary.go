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
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tonynash74/server-audit-toolkit/pkg/orchestrator"
)

// writeSummary prints a human-readable recap of a fleet run. It goes to
// stderr so piped report output stays clean.
func writeSummary(w io.Writer, report *orchestrator.FleetAuditReport) {
	caser := cases.Title(language.English)
	elapsed := report.CompletedAt.Sub(report.StartedAt).Round(time.Millisecond)

	fmt.Fprintf(w, "\nRun %s finished in %s\n", report.RunID, elapsed)
	fmt.Fprintf(w, "Targets: %d total, %d completed, %d unhealthy, %d not attempted\n",
		report.Summary.Targets,
		report.Summary.Completed,
		report.Summary.SkippedUnhealthy,
		report.Summary.NotAttempted,
	)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TARGET\tSTATUS\tSCORE\tTIER\tJOBS\tMEMORY")
	for _, r := range report.Results {
		score, tier, jobs, memory := "-", "-", "-", "-"
		if r.Health != nil {
			score = fmt.Sprintf("%d", r.Health.Score)
		}
		if r.Profile != nil {
			tier = string(r.Profile.Tier)
			jobs = fmt.Sprintf("%d", r.Profile.SafeParallelJobs)
			if r.Profile.Measurements.TotalMemoryBytes > 0 {
				memory = humanize.IBytes(r.Profile.Measurements.TotalMemoryBytes)
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Target,
			caser.String(strings.ReplaceAll(string(r.Status), "-", " ")),
			score, tier, jobs, memory,
		)
	}
	_ = tw.Flush()

	if len(report.Summary.Collectors) == 0 {
		return
	}

	names := make([]string, 0, len(report.Summary.Collectors))
	for name := range report.Summary.Collectors {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "\nCollector success rates:")
	for _, name := range names {
		stat := report.Summary.Collectors[name]
		if stat.Attempts == 0 {
			continue
		}
		fmt.Fprintf(w, "  %-12s %3.0f%% (%d/%d)\n",
			name, stat.SuccessRate*100, stat.Successes, stat.Attempts)
	}
}
