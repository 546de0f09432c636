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
	"fmt"
	"log/slog"

	"github.com/tonynash74/server-audit-toolkit/pkg/errors"
)

// Registry holds the collector catalog. Descriptors are registered once at
// startup and read-only afterwards; the registry itself is safe for
// concurrent readers.
type Registry struct {
	descriptors []Descriptor
	byName      map[string]int
}

// NewRegistry creates a registry from the given descriptors. Duplicate
// names and dependencies on unregistered collectors are contract errors.
func NewRegistry(descriptors ...Descriptor) (*Registry, error) {
	r := &Registry{
		descriptors: descriptors,
		byName:      make(map[string]int, len(descriptors)),
	}

	for i, d := range descriptors {
		if d.Name == "" {
			return nil, errors.New(errors.ErrCodeInternal, "descriptor with empty name")
		}
		if _, dup := r.byName[d.Name]; dup {
			return nil, errors.New(errors.ErrCodeInternal,
				fmt.Sprintf("duplicate collector %q", d.Name))
		}
		r.byName[d.Name] = i
	}

	for _, d := range descriptors {
		for _, dep := range d.DependsOn {
			if _, ok := r.byName[dep]; !ok {
				return nil, errors.New(errors.ErrCodeInternal,
					fmt.Sprintf("collector %q depends on unregistered %q", d.Name, dep))
			}
		}
	}

	return r, nil
}

// Names returns the registered collector names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.descriptors))
	for i, d := range r.descriptors {
		names[i] = d.Name
	}
	return names
}

// Get returns the descriptor with the given name.
func (r *Registry) Get(name string) (Descriptor, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Descriptor{}, false
	}
	return r.descriptors[i], true
}

// ListCompatible returns descriptors whose compatibility predicate matches
// the platform, preserving registration order. Variant selection happens
// later, at scheduling time.
func (r *Registry) ListCompatible(p Platform) []Descriptor {
	out := make([]Descriptor, 0, len(r.descriptors))
	for _, d := range r.descriptors {
		if d.Compatible != nil && !d.Compatible(p) {
			slog.Debug("collector filtered out", slog.String("collector", d.Name), slog.String("os", p.OS))
			continue
		}
		out = append(out, d)
	}
	return out
}

// Filter returns the subset of compatible descriptors whose names are in
// keep. An empty keep list means all compatible descriptors.
func (r *Registry) Filter(p Platform, keep []string) []Descriptor {
	compatible := r.ListCompatible(p)
	if len(keep) == 0 {
		return compatible
	}

	wanted := make(map[string]bool, len(keep))
	for _, name := range keep {
		wanted[name] = true
	}

	out := make([]Descriptor, 0, len(compatible))
	for _, d := range compatible {
		if wanted[d.Name] {
			out = append(out, d)
		}
	}
	return out
}
