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

package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonynash74/server-audit-toolkit/pkg/collector"
	"github.com/tonynash74/server-audit-toolkit/pkg/credential"
	"github.com/tonynash74/server-audit-toolkit/pkg/errors"
	"github.com/tonynash74/server-audit-toolkit/pkg/target"
	"github.com/tonynash74/server-audit-toolkit/pkg/transport"
)

// scriptedTransport answers each op with a scripted result or error and
// counts invocations per op.
type scriptedTransport struct {
	results map[string]*transport.Result
	errs    map[string]error
	calls   map[string]int
	block   map[string]bool
}

func (s *scriptedTransport) Invoke(ctx context.Context, _ target.Target, _ credential.Handle, p transport.Payload) (*transport.Result, error) {
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[p.Op]++

	if s.block[p.Op] {
		<-ctx.Done()
		return nil, errors.Wrap(errors.ErrCodeTimeout, "payload cancelled", ctx.Err())
	}
	if err := s.errs[p.Op]; err != nil {
		return nil, err
	}
	if res := s.results[p.Op]; res != nil {
		return res, nil
	}
	return nil, errors.New(errors.ErrCodeRemote, "unscripted op: "+p.Op)
}

func threeTier(primary, legacy, minimal string) collector.Resolved {
	return collector.Resolved{
		Name: "storage",
		Variant: collector.Variant{
			Name: "generic",
			Tiers: []collector.Tier{
				{Name: "primary", Source: collector.SourcePrimary, Payload: transport.Payload{Op: primary}},
				{Name: "legacy", Source: collector.SourceLegacy, Payload: transport.Payload{Op: legacy}},
				{Name: "minimal", Source: collector.SourcePartial, Payload: transport.Payload{Op: minimal}},
			},
		},
	}
}

func TestRunFirstTierSucceeds(t *testing.T) {
	tr := &scriptedTransport{
		results: map[string]*transport.Result{
			"collect.primary": {Data: map[string]any{"drives": 2}},
		},
	}
	r := New(tr)

	out := r.Run(t.Context(), threeTier("collect.primary", "collect.legacy", "probe.minimal"),
		target.MustParse("srv01.example.com"), credential.Handle{}, time.Second)

	require.True(t, out.Success)
	assert.Equal(t, collector.StatusSuccess, out.Status)
	assert.Equal(t, collector.SourcePrimary, out.DataSource)
	assert.Equal(t, 2, out.Data["drives"])
	assert.Empty(t, out.Warnings)
	assert.Empty(t, out.Errors)

	// Later tiers must never be attempted after a success.
	assert.Equal(t, 1, tr.calls["collect.primary"])
	assert.Zero(t, tr.calls["collect.legacy"])
	assert.Zero(t, tr.calls["probe.minimal"])
}

func TestRunFallsBackToLegacyTier(t *testing.T) {
	tr := &scriptedTransport{
		errs: map[string]error{
			"collect.primary": errors.New(errors.ErrCodeRemote, "mechanism unavailable"),
		},
		results: map[string]*transport.Result{
			"collect.legacy": {Data: map[string]any{"drives": 1}},
		},
	}
	r := New(tr)

	out := r.Run(t.Context(), threeTier("collect.primary", "collect.legacy", "probe.minimal"),
		target.MustParse("srv01.example.com"), credential.Handle{}, time.Second)

	require.True(t, out.Success)
	assert.Equal(t, collector.SourceLegacy, out.DataSource)

	// The failed primary attempt surfaces as a warning, not an error.
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "tier primary")
	assert.Empty(t, out.Errors)
	assert.Zero(t, tr.calls["probe.minimal"])
}

func TestRunPartialTierMarksDataSource(t *testing.T) {
	tr := &scriptedTransport{
		errs: map[string]error{
			"collect.primary": errors.New(errors.ErrCodeRemote, "mechanism unavailable"),
			"collect.legacy":  errors.New(errors.ErrCodeRemote, "legacy path removed"),
		},
		results: map[string]*transport.Result{
			"probe.minimal": {Data: map[string]any{
				transport.KeyHostname: "srv01",
				transport.KeyOS:       "linux",
			}},
		},
	}
	r := New(tr)

	out := r.Run(t.Context(), threeTier("collect.primary", "collect.legacy", "probe.minimal"),
		target.MustParse("srv01.example.com"), credential.Handle{}, time.Second)

	require.True(t, out.Success)
	assert.Equal(t, collector.SourcePartial, out.DataSource)
	assert.Equal(t, "srv01", out.Data[transport.KeyHostname])
	assert.Len(t, out.Warnings, 2)
}

func TestRunAllTiersFail(t *testing.T) {
	tr := &scriptedTransport{
		errs: map[string]error{
			"collect.primary": errors.New(errors.ErrCodeRemote, "mechanism unavailable"),
			"collect.legacy":  errors.New(errors.ErrCodeRemote, "legacy path removed"),
			"probe.minimal":   errors.New(errors.ErrCodeUnreachable, "connection reset"),
		},
	}
	r := New(tr)

	out := r.Run(t.Context(), threeTier("collect.primary", "collect.legacy", "probe.minimal"),
		target.MustParse("srv01.example.com"), credential.Handle{}, time.Second)

	assert.False(t, out.Success)
	assert.Equal(t, collector.StatusFailed, out.Status)
	assert.Nil(t, out.Data)
	assert.Empty(t, out.DataSource)

	// One error per attempted tier.
	require.Len(t, out.Errors, 3)
	assert.Contains(t, out.Errors[0], "tier primary")
	assert.Contains(t, out.Errors[1], "tier legacy")
	assert.Contains(t, out.Errors[2], "tier minimal")
}

func TestRunBudgetExhaustedMidChain(t *testing.T) {
	tr := &scriptedTransport{
		block: map[string]bool{"collect.primary": true},
	}
	r := New(tr)

	out := r.Run(t.Context(), threeTier("collect.primary", "collect.legacy", "probe.minimal"),
		target.MustParse("srv01.example.com"), credential.Handle{}, 20*time.Millisecond)

	assert.False(t, out.Success)
	assert.Equal(t, collector.StatusTimeout, out.Status)
	assert.NotEmpty(t, out.Errors)

	// Budget expired during the first tier; the rest never start.
	assert.Equal(t, 1, tr.calls["collect.primary"])
	assert.Zero(t, tr.calls["collect.legacy"])
}

func TestRunTierCapLeavesBudgetForFallback(t *testing.T) {
	tr := &scriptedTransport{
		block: map[string]bool{"collect.primary": true},
		results: map[string]*transport.Result{
			"collect.legacy": {Data: map[string]any{"drives": 1}},
		},
	}
	r := New(tr)

	res := threeTier("collect.primary", "collect.legacy", "probe.minimal")
	res.Variant.Tiers[0].Timeout = 10 * time.Millisecond

	out := r.Run(t.Context(), res,
		target.MustParse("srv01.example.com"), credential.Handle{}, time.Second)

	// The capped primary tier times out but the chain continues.
	require.True(t, out.Success)
	assert.Equal(t, collector.SourceLegacy, out.DataSource)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "tier primary")
}
