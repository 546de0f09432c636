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

import (
	"strings"

	"github.com/tonynash74/server-audit-toolkit/pkg/defaults"
	"github.com/tonynash74/server-audit-toolkit/pkg/transport"
	"github.com/tonynash74/server-audit-toolkit/pkg/version"
)

// MatchOS returns a predicate matching any of the given OS families.
// An unknown target platform (empty OS) does not match.
func MatchOS(families ...string) Predicate {
	return func(p Platform) bool {
		for _, f := range families {
			if strings.EqualFold(p.OS, f) {
				return true
			}
		}
		return false
	}
}

// MatchMinVersion returns a predicate requiring the management-runtime
// version to be at least minimum. An unknown or unparsable target
// version does not match. The minimum must be a static, valid version.
func MatchMinVersion(minimum string) Predicate {
	floor := version.MustParse(minimum)
	return func(p Platform) bool {
		v, err := version.Parse(p.Version)
		if err != nil {
			return false
		}
		return v.AtLeast(floor)
	}
}

// MatchAll combines predicates; all must match. Nil entries match.
func MatchAll(preds ...Predicate) Predicate {
	return func(p Platform) bool {
		for _, pred := range preds {
			if pred != nil && !pred(p) {
				return false
			}
		}
		return true
	}
}

// minimalTier is the terminal fallback for every collector: an
// always-available probe returning hostname, OS, CPU count, and drives.
// It is capped independently so a dead transport cannot hold a worker
// for the full job budget.
func minimalTier() Tier {
	return Tier{
		Name:    "minimal",
		Source:  SourcePartial,
		Payload: transport.Payload{Op: transport.OpProbeMinimal},
		Timeout: defaults.CollectorMinimalTierTimeout,
	}
}

func standardTiers(category string) []Tier {
	return []Tier{
		{
			Name:    "primary",
			Source:  SourcePrimary,
			Payload: transport.Payload{Op: "collect." + category + ".primary"},
		},
		{
			Name:    "legacy",
			Source:  SourceLegacy,
			Payload: transport.Payload{Op: "collect." + category + ".legacy"},
		},
		minimalTier(),
	}
}

// Builtin returns the standard audit collector catalog. Each collector
// carries a primary mechanism, a legacy mechanism, and the minimal probe
// as terminal fallback. The event log collector depends on the services
// collector: without a readable service manager there is no log source
// worth querying.
func Builtin() []Descriptor {
	return []Descriptor{
		{
			Name: "system",
			Variants: []Variant{
				{Name: "generic", Tiers: standardTiers("system")},
			},
		},
		{
			Name: "hardware",
			Variants: []Variant{
				{Name: "generic", Tiers: standardTiers("hardware")},
			},
		},
		{
			Name: "storage",
			Variants: []Variant{
				{Name: "generic", Tiers: standardTiers("storage")},
			},
		},
		{
			Name: "network",
			Variants: []Variant{
				{Name: "generic", Tiers: standardTiers("network")},
			},
		},
		{
			Name: "services",
			Variants: []Variant{
				{
					Name:    "systemd",
					Matches: MatchOS("linux"),
					Tiers: []Tier{
						{
							Name:    "systemd",
							Source:  SourcePrimary,
							Payload: transport.Payload{Op: "collect.services.systemd"},
						},
						minimalTier(),
					},
				},
				{
					Name:    "windows",
					Matches: MatchOS("windows"),
					Tiers:   standardTiers("services"),
				},
			},
		},
		{
			Name:      "eventlog",
			DependsOn: []string{"services"},
			Variants: []Variant{
				{
					Name:    "journal",
					Matches: MatchOS("linux"),
					Tiers: []Tier{
						{
							Name:    "journal",
							Source:  SourcePrimary,
							Payload: transport.Payload{Op: "collect.eventlog.journal"},
						},
						minimalTier(),
					},
				},
				{
					// The structured event log query needs management
					// runtime 3.0; older hosts fall through to the legacy
					// variant below.
					Name:    "wineventlog",
					Matches: MatchAll(MatchOS("windows"), MatchMinVersion("3.0")),
					Tiers: []Tier{
						{
							Name:    "primary",
							Source:  SourcePrimary,
							Payload: transport.Payload{Op: "collect.eventlog.primary"},
						},
						minimalTier(),
					},
				},
				{
					Name:    "wineventlog-legacy",
					Matches: MatchOS("windows"),
					Tiers: []Tier{
						{
							Name:    "legacy",
							Source:  SourceLegacy,
							Payload: transport.Payload{Op: "collect.eventlog.legacy"},
						},
						minimalTier(),
					},
				},
			},
		},
	}
}

// NewBuiltinRegistry creates a registry preloaded with the standard catalog.
func NewBuiltinRegistry() *Registry {
	r, err := NewRegistry(Builtin()...)
	if err != nil {
		// The builtin catalog is validated by tests; a failure here is a
		// programming error.
		panic(err)
	}
	return r
}
