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

package transport

import (
	"context"
	"time"

	"github.com/tonynash74/server-audit-toolkit/pkg/credential"
	"github.com/tonynash74/server-audit-toolkit/pkg/target"
)

// Well-known payload operations. Probe ops are consumed by the profiler and
// preflight checker; collect ops carry collector tier payloads.
const (
	OpProbeCPU     = "probe.cpu"
	OpProbeMemory  = "probe.memory"
	OpProbeDisk    = "probe.disk"
	OpProbeNetwork = "probe.network"
	OpProbeLoad    = "probe.load"
	OpProbeService = "probe.service"
	OpProbeAuth    = "probe.auth"
	OpProbeMinimal = "probe.minimal"
)

// Common result data keys.
const (
	KeyHostname    = "hostname"
	KeyOS          = "os"
	KeyOSVersion   = "os-version"
	KeyKernel      = "kernel"
	KeyArch        = "architecture"
	KeyCPUCores    = "cpu-cores"
	KeyMemTotal    = "memory-total-bytes"
	KeyMemFree     = "memory-available-bytes"
	KeyDiskFreePct = "disk-free-percent"
	KeyDiskReadMs  = "disk-read-latency-ms"
	KeyDiskWriteMs = "disk-write-latency-ms"
	KeyLoadPct     = "load-percent"
	KeyDrives      = "drives"
	KeyService     = "service-state"
)

// Payload is one unit of work for the remote side: a well-known operation
// name plus operation-specific arguments.
type Payload struct {
	Op   string            `json:"op" yaml:"op"`
	Args map[string]string `json:"args,omitempty" yaml:"args,omitempty"`
}

// Result is the remote side's answer to a payload. Data is opaque to the
// engine; collectors and probes agree on keys out of band.
type Result struct {
	// Data holds the returned key-value readings.
	Data map[string]any `json:"data" yaml:"data"`

	// Elapsed is the round-trip time observed by the transport.
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
}

// Transport executes payloads against a target. Implementations must honor
// ctx cancellation and classify failures with the structured error codes:
// UNREACHABLE, AUTH_FAILED, TIMEOUT, REMOTE_ERROR.
//
// The credential handle is passed through unchanged and must never be
// inspected beyond what authentication requires, nor logged.
type Transport interface {
	Invoke(ctx context.Context, tgt target.Target, cred credential.Handle, p Payload) (*Result, error)
}
