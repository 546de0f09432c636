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

// Package header defines the envelope stamped on serialized reports so
// consumers can identify document kind and schema version before
// decoding the body.
package header

import "time"

// APIVersion is the schema version stamped on every report.
const APIVersion = "audit.srvaudit.io/v1"

// Report kinds.
const (
	KindFleetAuditReport      = "FleetAuditReport"
	KindHealthReport          = "HealthReport"
	KindCapabilityProfileList = "CapabilityProfileList"
)

// Header identifies a serialized document.
type Header struct {
	// Kind names the document type.
	Kind string `json:"kind" yaml:"kind"`

	// APIVersion is the document schema version.
	APIVersion string `json:"apiVersion" yaml:"apiVersion"`

	// Metadata carries free-form context (creation time, producing tool).
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Option mutates a header during construction.
type Option func(*Header)

// WithMetadata sets one metadata entry.
func WithMetadata(key, value string) Option {
	return func(h *Header) {
		h.Metadata[key] = value
	}
}

// WithCreatedAt records the document creation time in RFC 3339 form.
func WithCreatedAt(t time.Time) Option {
	return WithMetadata("createdAt", t.UTC().Format(time.RFC3339))
}

// WithTool records the producing tool name and version.
func WithTool(name, version string) Option {
	return func(h *Header) {
		h.Metadata["tool"] = name
		if version != "" {
			h.Metadata["toolVersion"] = version
		}
	}
}

// New creates a header of the given kind.
func New(kind string, opts ...Option) *Header {
	h := &Header{
		Kind:       kind,
		APIVersion: APIVersion,
		Metadata:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}
