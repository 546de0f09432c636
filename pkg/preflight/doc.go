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

// Package preflight validates target readiness before audit work starts.
//
// # Checks
//
// Each target goes through a fixed sequence: DNS resolution (one retry),
// ICMP reachability, management-port dial, management-service probe, and a
// lightweight authenticated probe. Failures never abort the sequence or
// the batch; they are recorded and scored.
//
// # Scoring
//
// The health score starts at 100 and loses a fixed penalty per failed
// check (dns 20, ping 15, port 20, service 35). A target is healthy when
// the score clears the floor and no blocking check (dns, service, auth)
// failed. Auth failure blocks without a deduction: a perfect score with a
// bad credential is still not auditable.
//
// # Skips
//
// Local targets skip the network-level checks. A failed DNS resolution
// skips everything downstream, since no remote probe can succeed against
// an unresolvable name; the skipped checks cost nothing.
//
// Health results are computed fresh on every run and never cached.
package preflight
