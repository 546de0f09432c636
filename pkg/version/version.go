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

// Package version parses and compares the loose semantic versions
// reported by management runtimes. Targets report anything from "5" to
// "v7.4.1809-esm", so parsing tolerates missing segments and suffixes.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a parsed version string. Missing segments are zero.
type Version struct {
	Major  uint64 `json:"major" yaml:"major"`
	Minor  uint64 `json:"minor" yaml:"minor"`
	Patch  uint64 `json:"patch" yaml:"patch"`
	Suffix string `json:"suffix,omitempty" yaml:"suffix,omitempty"`
}

// Parse parses a loose version string. A leading "v" is ignored, as is
// any suffix after the numeric segments (e.g., "-esm", "+build").
func Parse(s string) (Version, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "v"))
	if raw == "" {
		return Version{}, fmt.Errorf("empty version string")
	}

	var v Version
	if i := strings.IndexAny(raw, "-+~ "); i >= 0 {
		v.Suffix = raw[i+1:]
		raw = raw[:i]
	}

	parts := strings.SplitN(raw, ".", 4)
	segments := []*uint64{&v.Major, &v.Minor, &v.Patch}
	for i, part := range parts {
		if i >= len(segments) {
			break
		}
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: segment %q is not a number", s, part)
		}
		*segments[i] = n
	}
	return v, nil
}

// MustParse parses a version string and panics on error. Use only for
// static values.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String renders the numeric segments, dropping any suffix.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1, 0, or 1 as v is older than, equal to, or newer
// than o. Suffixes do not participate in ordering.
func (v Version) Compare(o Version) int {
	pairs := [][2]uint64{
		{v.Major, o.Major},
		{v.Minor, o.Minor},
		{v.Patch, o.Patch},
	}
	for _, p := range pairs {
		if p[0] < p[1] {
			return -1
		}
		if p[0] > p[1] {
			return 1
		}
	}
	return 0
}

// AtLeast reports whether v is the same as or newer than o.
func (v Version) AtLeast(o Version) bool {
	return v.Compare(o) >= 0
}
