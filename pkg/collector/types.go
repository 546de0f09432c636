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
	"time"

	"github.com/tonynash74/server-audit-toolkit/pkg/transport"
)

// Platform describes the runtime environment of a target, used for
// descriptor filtering and variant selection.
type Platform struct {
	// OS is the operating system family reported by the target (e.g.,
	// "linux", "windows"). Empty when unknown.
	OS string `json:"os,omitempty" yaml:"os,omitempty"`

	// Arch is the processor architecture, when known.
	Arch string `json:"arch,omitempty" yaml:"arch,omitempty"`

	// Version is the management-runtime version string, when known.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
}

// Predicate decides whether a descriptor or variant applies to a platform.
// A nil Predicate matches everything.
type Predicate func(Platform) bool

// Data source labels recorded on outcomes. The label names the tier that
// produced the data, not the mechanism details.
const (
	SourcePrimary = "primary"
	SourceLegacy  = "legacy"
	// SourcePartial marks data from the always-available minimal probe.
	SourcePartial = "partial"
)

// Tier is one mechanism a collector may use against a target. Tiers are
// attempted in order; the first success terminates the chain.
type Tier struct {
	// Name identifies the tier for logs and error entries.
	Name string `json:"name" yaml:"name"`

	// Source is the dataSource label set on the outcome when this tier
	// succeeds.
	Source string `json:"source" yaml:"source"`

	// Payload is the transport operation executed by this tier.
	Payload transport.Payload `json:"payload" yaml:"payload"`

	// Timeout caps this tier independently of the remaining collector
	// budget. Zero means the tier may use the full remaining budget.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Variant is one platform-specific flavor of a collector. A descriptor
// holds ordered variants; the first whose predicate matches the target
// platform is used, with no implicit fallthrough to later variants.
type Variant struct {
	// Name identifies the variant (e.g., "systemd", "generic").
	Name string `json:"name" yaml:"name"`

	// Matches gates the variant on the target platform. Nil matches all.
	Matches Predicate `json:"-" yaml:"-"`

	// Tiers is the ordered fallback chain for this variant.
	Tiers []Tier `json:"tiers" yaml:"tiers"`
}

// Descriptor declares one collector: a unit of work gathering a category
// of data from a target. Descriptors are read-only registry entries; all
// per-run state lives in Outcome values.
type Descriptor struct {
	// Name is the unique collector name (e.g., "storage").
	Name string `json:"name" yaml:"name"`

	// Compatible gates the whole collector on the target platform,
	// before variant selection. Nil matches all.
	Compatible Predicate `json:"-" yaml:"-"`

	// Variants holds the ordered platform flavors of the collector.
	Variants []Variant `json:"variants" yaml:"variants"`

	// DependsOn lists collectors whose success this one requires. A
	// dependent collector is skipped when any dependency did not succeed.
	DependsOn []string `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`
}

// SelectVariant returns the first variant matching the platform, or false
// when none match (the collector is incompatible with the target).
func (d Descriptor) SelectVariant(p Platform) (Variant, bool) {
	for _, v := range d.Variants {
		if v.Matches == nil || v.Matches(p) {
			return v, true
		}
	}
	return Variant{}, false
}

// Resolved pairs a descriptor with the variant selected for a target.
// This is the unit the scheduler dispatches.
type Resolved struct {
	Name      string
	DependsOn []string
	Variant   Variant
}
