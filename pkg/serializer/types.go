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

// Package serializer reads and writes audit data in the supported formats.
//
// Three output formats are supported:
//   - JSON: machine-readable, indented
//   - YAML: human-readable structured output
//   - Table: flattened key/value rows for terminals
//
// Usage:
//
//	w := serializer.NewFileWriterOrStdout(serializer.FormatJSON, path)
//	defer serializer.CloseQuietly(w)
//	if err := w.Serialize(ctx, report); err != nil {
//		return err
//	}
//
// Table output is write-only; readers accept JSON and YAML.
package serializer

import "context"

// Serializer writes one value in a configured format. The context is
// accepted for interface symmetry with implementations that do real I/O.
type Serializer interface {
	Serialize(ctx context.Context, v any) error
}

// Closer is implemented by serializers that hold releasable resources.
type Closer interface {
	Close() error
}

// CloseQuietly closes s when it implements Closer, ignoring the error.
// Intended for defer at call sites that already handled the write error.
func CloseQuietly(s Serializer) {
	if c, ok := s.(Closer); ok {
		_ = c.Close()
	}
}
