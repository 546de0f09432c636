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

// Package errors provides structured error types for the audit engine.
//
// # Overview
//
// Errors carry a machine-readable ErrorCode alongside the human-readable
// message, so callers can branch on the failure class (unreachable vs.
// auth-failed vs. timeout) without string matching. Timeout errors are
// additionally tagged with the unit whose deadline expired: collector,
// target, or fleet.
//
// # Propagation rules
//
// Per-unit failures (a collector tier, a health check, a single capability
// measurement) are captured into result objects by their owning component
// and never cross component boundaries as Go errors. Only contract
// violations, such as a malformed target identity, propagate as hard
// failures.
//
// # Usage
//
//	if err := transport.Invoke(ctx, tgt, cred, payload); err != nil {
//	    if errors.IsCode(err, errors.ErrCodeAuthFailed) {
//	        // credential rejected, do not retry
//	    }
//	}
package errors
