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

package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a structured error classification.
type ErrorCode string

const (
	// ErrCodeUnreachable indicates the target could not be reached
	// (DNS, ICMP, or port-level connectivity failure).
	ErrCodeUnreachable ErrorCode = "UNREACHABLE"
	// ErrCodeAuthFailed indicates the credential was rejected by the target.
	// Distinct from connectivity; never auto-retried with alternate credentials.
	ErrCodeAuthFailed ErrorCode = "AUTH_FAILED"
	// ErrCodeTimeout indicates an operation exceeded its time budget.
	// The Context carries the unit that timed out (collector, target, fleet).
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeMeasurement indicates a single capability measurement failed.
	// Callers degrade the affected metric to a conservative default.
	ErrCodeMeasurement ErrorCode = "MEASUREMENT"
	// ErrCodeRemote indicates the remote side executed the payload but
	// reported a failure.
	ErrCodeRemote ErrorCode = "REMOTE_ERROR"
	// ErrCodeInvalidTarget indicates a malformed target identity.
	// This is a contract violation and propagates to the caller.
	ErrCodeInvalidTarget ErrorCode = "INVALID_TARGET"
	// ErrCodeUnavailable indicates a required service on the target is not
	// available (e.g., the management listener is down).
	ErrCodeUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeInternal indicates an internal system error.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// TimeoutUnit identifies which deadline was exceeded when a timeout
// error is reported.
type TimeoutUnit string

const (
	TimeoutUnitCollector TimeoutUnit = "collector"
	TimeoutUnitTarget    TimeoutUnit = "target"
	TimeoutUnitFleet     TimeoutUnit = "fleet"
)

// StructuredError provides structured error information for better observability.
// It includes an error code for programmatic handling, a human-readable message,
// the underlying cause, and optional context for debugging.
type StructuredError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *StructuredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is and errors.As support.
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// New creates a new StructuredError with the given code and message.
func New(code ErrorCode, message string) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with additional context.
func Wrap(code ErrorCode, message string, cause error) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapWithContext wraps an error with additional context information.
func WrapWithContext(code ErrorCode, message string, cause error, context map[string]any) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: context,
	}
}

// NewTimeout creates a timeout error tagged with the unit whose deadline
// was exceeded.
func NewTimeout(unit TimeoutUnit, message string) *StructuredError {
	return &StructuredError{
		Code:    ErrCodeTimeout,
		Message: message,
		Context: map[string]any{"unit": string(unit)},
	}
}

// CodeOf extracts the ErrorCode from err, unwrapping as needed.
// Returns ErrCodeInternal when err carries no structured code.
func CodeOf(err error) ErrorCode {
	var se *StructuredError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ErrCodeInternal
}

// IsCode reports whether err carries the given structured code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
