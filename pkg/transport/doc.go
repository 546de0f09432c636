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

// Package transport abstracts remote execution against audit targets.
//
// # Overview
//
// The engine never talks to servers directly; every capability measurement,
// health probe, and collector tier goes through a Transport. The transport is
// a black box that executes a Payload (operation name plus arguments) and
// returns a Result or a structured error classifying the failure:
//
//   - UNREACHABLE: the target could not be contacted
//   - AUTH_FAILED: the credential was rejected
//   - TIMEOUT: the context deadline expired mid-call
//   - REMOTE_ERROR: the target executed the payload but reported failure
//
// # Implementations
//
// Local executes probes against the machine running the audit, reading
// /proc and timing small disk I/O, with systemd (via D-Bus) answering
// service-status probes. It backs audits of the auditor host itself and
// serves as the reference implementation of the payload contract.
//
// Production remote transports (management-protocol clients) plug in behind
// the same interface and are out of scope for this package.
package transport
