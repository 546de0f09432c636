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

// Package logging provides structured logging utilities for the audit toolkit.
//
// # Overview
//
// This package wraps the standard library slog package with toolkit defaults:
// JSON output to stderr, environment-based level configuration, and
// module/version context injected on every record. Logging is fire-and-forget
// throughout the engine; a failed log write never fails an audit.
//
// # Log Levels
//
// Supported log levels (case-insensitive):
//   - DEBUG: Detailed diagnostic information with source location
//   - INFO: General informational messages (default)
//   - WARN/WARNING: Warning messages for potentially problematic situations
//   - ERROR: Error messages for failures requiring attention
//
// # Usage
//
// Setting the default logger (recommended, early in main):
//
//	func main() {
//	    logging.SetDefaultStructuredLogger("srvaudit", version)
//
//	    slog.Info("audit started", "targets", len(targets))
//	    slog.Debug("profile cache hit", "target", tgt.Key())
//	}
//
// # Environment Configuration
//
// The LOG_LEVEL environment variable controls logging verbosity:
//
//	LOG_LEVEL=debug srvaudit audit --target db01.example.com
//
// If LOG_LEVEL is not set, defaults to INFO level.
package logging
