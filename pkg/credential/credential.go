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

// Package credential defines the opaque credential handle passed through the
// audit engine. The engine never inspects, copies, or logs the material the
// handle refers to; acquisition and storage are the caller's concern.
package credential

import "fmt"

// Handle is an opaque reference to credential material held by the caller.
// The zero value is a valid "no credential" handle.
type Handle struct {
	// Ref is the caller-assigned name of the credential (e.g., a vault key).
	Ref string

	// material is whatever the transport needs to authenticate. Unexported
	// so it cannot leak through serialization.
	material any
}

// New creates a handle wrapping caller-owned credential material.
func New(ref string, material any) Handle {
	return Handle{Ref: ref, material: material}
}

// Material returns the wrapped credential material for the transport.
// Only transport implementations should call this.
func (h Handle) Material() any {
	return h.material
}

// Empty reports whether the handle references no credential.
func (h Handle) Empty() bool {
	return h.Ref == "" && h.material == nil
}

// String identifies the handle by reference name only. Credential material
// never appears in logs or serialized output.
func (h Handle) String() string {
	if h.Ref == "" {
		return "credential(none)"
	}
	return fmt.Sprintf("credential(%s)", h.Ref)
}
