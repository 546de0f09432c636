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

package serializer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"report.json", FormatJSON},
		{"report.JSON", FormatJSON},
		{"targets.yaml", FormatYAML},
		{"targets.yml", FormatYAML},
		{"report.txt", FormatTable},
		{"report.table", FormatTable},
		{"report.xml", FormatJSON},
		{"noextension", FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatFromPath(tt.path))
		})
	}
}

func TestReaderJSON(t *testing.T) {
	r, err := NewReader(FormatJSON, strings.NewReader(`{"target":"srv01:5985","score":85}`))
	require.NoError(t, err)

	var got sample
	require.NoError(t, r.Deserialize(&got))
	assert.Equal(t, "srv01:5985", got.Target)
	assert.Equal(t, 85, got.Score)
}

func TestReaderYAML(t *testing.T) {
	r, err := NewReader(FormatYAML, strings.NewReader("target: srv01:5985\nscore: 85\n"))
	require.NoError(t, err)

	var got sample
	require.NoError(t, r.Deserialize(&got))
	assert.Equal(t, "srv01:5985", got.Target)
}

func TestReaderRejectsTableFormat(t *testing.T) {
	_, err := NewReader(FormatTable, strings.NewReader("FIELD VALUE"))
	assert.Error(t, err)
}

func TestReaderRejectsUnknownFormat(t *testing.T) {
	_, err := NewReader(Format("xml"), strings.NewReader("<x/>"))
	assert.Error(t, err)
}

func TestFromFileAutoDetectsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.yaml")
	require.NoError(t, os.WriteFile(path, []byte("target: srv02:5985\nscore: 60\n"), 0o644))

	got, err := FromFile[sample](path)
	require.NoError(t, err)
	assert.Equal(t, "srv02:5985", got.Target)
	assert.Equal(t, 60, got.Score)
}

func TestFromFileMissing(t *testing.T) {
	_, err := FromFile[sample](filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestReaderCloseIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	r, err := NewFileReaderAuto(path)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
}
