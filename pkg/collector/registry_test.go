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

package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistryValidation(t *testing.T) {
	tests := []struct {
		name        string
		descriptors []Descriptor
		wantErr     bool
	}{
		{
			name:        "valid",
			descriptors: []Descriptor{{Name: "a"}, {Name: "b", DependsOn: []string{"a"}}},
		},
		{
			name:        "empty name",
			descriptors: []Descriptor{{Name: ""}},
			wantErr:     true,
		},
		{
			name:        "duplicate name",
			descriptors: []Descriptor{{Name: "a"}, {Name: "a"}},
			wantErr:     true,
		},
		{
			name:        "unknown dependency",
			descriptors: []Descriptor{{Name: "a", DependsOn: []string{"ghost"}}},
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.descriptors...)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestListCompatible(t *testing.T) {
	reg, err := NewRegistry(
		Descriptor{Name: "any"},
		Descriptor{Name: "linux-only", Compatible: MatchOS("linux")},
		Descriptor{Name: "windows-only", Compatible: MatchOS("windows")},
	)
	require.NoError(t, err)

	got := reg.ListCompatible(Platform{OS: "linux"})

	names := make([]string, 0, len(got))
	for _, d := range got {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"any", "linux-only"}, names)
}

func TestListCompatibleUnknownPlatform(t *testing.T) {
	reg, err := NewRegistry(
		Descriptor{Name: "any"},
		Descriptor{Name: "linux-only", Compatible: MatchOS("linux")},
	)
	require.NoError(t, err)

	// Unknown OS keeps only predicate-free descriptors.
	got := reg.ListCompatible(Platform{})
	require.Len(t, got, 1)
	assert.Equal(t, "any", got[0].Name)
}

func TestFilter(t *testing.T) {
	reg, err := NewRegistry(
		Descriptor{Name: "a"},
		Descriptor{Name: "b"},
		Descriptor{Name: "c"},
	)
	require.NoError(t, err)

	got := reg.Filter(Platform{}, []string{"c", "a"})
	require.Len(t, got, 2)
	// Registration order wins, not keep-list order.
	assert.Equal(t, "a", got[0].Name)
	assert.Equal(t, "c", got[1].Name)

	all := reg.Filter(Platform{}, nil)
	assert.Len(t, all, 3)
}

func TestSelectVariant(t *testing.T) {
	d := Descriptor{
		Name: "services",
		Variants: []Variant{
			{Name: "systemd", Matches: MatchOS("linux")},
			{Name: "windows", Matches: MatchOS("windows")},
		},
	}

	v, ok := d.SelectVariant(Platform{OS: "linux"})
	require.True(t, ok)
	assert.Equal(t, "systemd", v.Name)

	v, ok = d.SelectVariant(Platform{OS: "windows"})
	require.True(t, ok)
	assert.Equal(t, "windows", v.Name)

	_, ok = d.SelectVariant(Platform{OS: "freebsd"})
	assert.False(t, ok, "no variant should match an unsupported platform")
}

func TestSelectVariantFirstMatchWins(t *testing.T) {
	d := Descriptor{
		Name: "x",
		Variants: []Variant{
			{Name: "first"},
			{Name: "second"},
		},
	}

	v, ok := d.SelectVariant(Platform{OS: "linux"})
	require.True(t, ok)
	assert.Equal(t, "first", v.Name)
}

func TestBuiltinCatalog(t *testing.T) {
	reg := NewBuiltinRegistry()

	assert.Equal(t, []string{"system", "hardware", "storage", "network", "services", "eventlog"}, reg.Names())

	// Every variant's last tier must be the minimal probe so the fallback
	// chain always terminates on reachable targets.
	for _, name := range reg.Names() {
		d, ok := reg.Get(name)
		require.True(t, ok)
		for _, v := range d.Variants {
			require.NotEmpty(t, v.Tiers, "%s/%s has no tiers", d.Name, v.Name)
			last := v.Tiers[len(v.Tiers)-1]
			assert.Equal(t, SourcePartial, last.Source, "%s/%s last tier is not the minimal probe", d.Name, v.Name)
			assert.Greater(t, last.Timeout.Milliseconds(), int64(0))
		}
	}

	eventlog, ok := reg.Get("eventlog")
	require.True(t, ok)
	assert.Equal(t, []string{"services"}, eventlog.DependsOn)
}

func TestEventlogVariantByRuntimeVersion(t *testing.T) {
	reg := NewBuiltinRegistry()
	eventlog, ok := reg.Get("eventlog")
	require.True(t, ok)

	v, ok := eventlog.SelectVariant(Platform{OS: "windows", Version: "5.1.22621"})
	require.True(t, ok)
	assert.Equal(t, "wineventlog", v.Name)

	// Old runtime, and no runtime version at all, both land on legacy.
	v, ok = eventlog.SelectVariant(Platform{OS: "windows", Version: "2.0"})
	require.True(t, ok)
	assert.Equal(t, "wineventlog-legacy", v.Name)

	v, ok = eventlog.SelectVariant(Platform{OS: "windows"})
	require.True(t, ok)
	assert.Equal(t, "wineventlog-legacy", v.Name)
}

func TestMatchMinVersion(t *testing.T) {
	pred := MatchMinVersion("3.0")

	assert.True(t, pred(Platform{Version: "3.0"}))
	assert.True(t, pred(Platform{Version: "v5.1.2"}))
	assert.False(t, pred(Platform{Version: "2.9"}))
	assert.False(t, pred(Platform{Version: ""}))
	assert.False(t, pred(Platform{Version: "garbage"}))
}

func TestMatchAll(t *testing.T) {
	pred := MatchAll(MatchOS("linux"), nil, MatchMinVersion("1.0"))

	assert.True(t, pred(Platform{OS: "linux", Version: "2.0"}))
	assert.False(t, pred(Platform{OS: "windows", Version: "2.0"}))
	assert.False(t, pred(Platform{OS: "linux"}))
}

func TestOutcomeMarkers(t *testing.T) {
	o := NewOutcome("storage", "db01:5985")
	o.Errors = append(o.Errors, "primary: unreachable")
	o.MarkSuccess(SourcePartial, map[string]any{"hostname": "db01"}, 1500000000)

	assert.True(t, o.Success)
	assert.Equal(t, StatusSuccess, o.Status)
	assert.Equal(t, SourcePartial, o.DataSource)
	assert.Equal(t, int64(1500), o.ExecutionTimeMs)
	assert.Len(t, o.Errors, 1, "prior tier errors are preserved")

	f := NewOutcome("storage", "db01:5985").MarkStatus(StatusSkipped, "dependency failed: services")
	assert.False(t, f.Success)
	assert.Nil(t, f.Data)
	assert.Contains(t, f.Errors[0], "dependency failed")
}
