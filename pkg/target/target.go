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

// Package target defines the identity of a server under audit.
//
// A Target is an immutable identity: the address to reach it and the name of
// the credential used to authenticate. All mutable per-run state (capability
// profile, health result, collector outcomes) lives in the result objects
// owned by the orchestrator, never on the Target itself.
package target

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/tonynash74/server-audit-toolkit/pkg/errors"
)

// LocalAddress is the reserved address naming the machine running the audit.
// Local targets skip network-latency measurement and remote reachability
// checks that have no meaning for the loopback path.
const LocalAddress = "local"

// DefaultManagementPort is the management-protocol port assumed when the
// target address does not carry an explicit port.
const DefaultManagementPort = 5985

// Target identifies one server in the audit fleet.
type Target struct {
	// Host is the DNS name or IP address of the server.
	Host string `json:"host" yaml:"host"`

	// Port is the management-protocol port.
	Port int `json:"port" yaml:"port"`

	// CredentialRef names the credential used to authenticate. The engine
	// treats the referenced credential as opaque.
	CredentialRef string `json:"credentialRef,omitempty" yaml:"credentialRef,omitempty"`
}

// Parse converts an address string into a Target. Accepted forms are
// "host", "host:port", and the reserved name "local". A malformed address
// is a contract violation reported as ErrCodeInvalidTarget.
func Parse(addr string) (Target, error) {
	trimmed := strings.TrimSpace(addr)
	if trimmed == "" {
		return Target{}, errors.New(errors.ErrCodeInvalidTarget, "empty target address")
	}

	if strings.EqualFold(trimmed, LocalAddress) {
		return Target{Host: LocalAddress, Port: DefaultManagementPort}, nil
	}

	host, port := trimmed, DefaultManagementPort
	if h, p, err := net.SplitHostPort(trimmed); err == nil {
		n, convErr := strconv.Atoi(p)
		if convErr != nil || n < 1 || n > 65535 {
			return Target{}, errors.New(errors.ErrCodeInvalidTarget,
				fmt.Sprintf("invalid port in target address %q", trimmed))
		}
		host, port = h, n
	} else if strings.Contains(trimmed, ":") {
		// A colon without a valid host:port split means a malformed address
		// (e.g., bare IPv6 without brackets, or trailing colon).
		return Target{}, errors.Wrap(errors.ErrCodeInvalidTarget,
			fmt.Sprintf("malformed target address %q", trimmed), err)
	}

	if !validHost(host) {
		return Target{}, errors.New(errors.ErrCodeInvalidTarget,
			fmt.Sprintf("invalid host in target address %q", trimmed))
	}

	return Target{Host: host, Port: port}, nil
}

// MustParse is a test helper that panics on a malformed address.
func MustParse(addr string) Target {
	t, err := Parse(addr)
	if err != nil {
		panic(err)
	}
	return t
}

// WithCredential returns a copy of the target carrying the credential
// reference.
func (t Target) WithCredential(ref string) Target {
	t.CredentialRef = ref
	return t
}

// Local reports whether the target is the machine running the audit.
func (t Target) Local() bool {
	return strings.EqualFold(t.Host, LocalAddress)
}

// Key returns the identity string used for profile cache entries and
// report ordering.
func (t Target) Key() string {
	return net.JoinHostPort(strings.ToLower(t.Host), strconv.Itoa(t.Port))
}

// String returns the human-readable form of the target identity.
func (t Target) String() string {
	if t.Local() {
		return LocalAddress
	}
	return t.Key()
}

func validHost(host string) bool {
	if host == "" || len(host) > 253 {
		return false
	}
	if ip := net.ParseIP(host); ip != nil {
		return true
	}
	for _, label := range strings.Split(host, ".") {
		if label == "" || len(label) > 63 {
			return false
		}
		for i, r := range label {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			case r == '-' && i > 0 && i < len(label)-1:
			default:
				return false
			}
		}
	}
	return true
}
