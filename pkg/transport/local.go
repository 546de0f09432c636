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

package transport

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/dbus"
	"golang.org/x/sys/unix"

	"github.com/tonynash74/server-audit-toolkit/pkg/credential"
	"github.com/tonynash74/server-audit-toolkit/pkg/errors"
	"github.com/tonynash74/server-audit-toolkit/pkg/target"
)

// diskProbeSize is the payload written and read back to time disk I/O.
const diskProbeSize = 1 << 20

// Local executes payloads against the machine running the audit.
// It accepts only local targets; invoking it with a remote target is a
// contract violation.
type Local struct {
	// TempDir overrides the directory used for disk latency probes.
	// Defaults to os.TempDir().
	TempDir string

	// ProcRoot overrides the proc filesystem root, for tests.
	ProcRoot string
}

// Invoke implements the Transport interface for the local host.
func (l *Local) Invoke(ctx context.Context, tgt target.Target, _ credential.Handle, p Payload) (*Result, error) {
	if !tgt.Local() {
		return nil, errors.New(errors.ErrCodeInvalidTarget,
			fmt.Sprintf("local transport cannot reach remote target %s", tgt))
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeTimeout, "context done before invoke", err)
	}

	start := time.Now()
	data, err := l.dispatch(ctx, p)
	if err != nil {
		return nil, err
	}

	return &Result{Data: data, Elapsed: time.Since(start)}, nil
}

func (l *Local) dispatch(ctx context.Context, p Payload) (map[string]any, error) {
	switch p.Op {
	case OpProbeCPU:
		return map[string]any{KeyCPUCores: runtime.NumCPU()}, nil
	case OpProbeMemory:
		return l.memory()
	case OpProbeDisk:
		return l.disk()
	case OpProbeNetwork:
		// Loopback path, nothing to measure.
		return map[string]any{"network-latency-ms": 0}, nil
	case OpProbeLoad:
		return l.load()
	case OpProbeService:
		return l.service(ctx, p.Args["unit"])
	case OpProbeAuth:
		// Local invocations run as the current user, no credential exchange.
		return l.platform()
	case OpProbeMinimal:
		return l.minimal()
	default:
		if strings.HasPrefix(p.Op, "collect.") {
			return l.collect(ctx, p)
		}
		return nil, errors.New(errors.ErrCodeRemote, fmt.Sprintf("unsupported operation %q", p.Op))
	}
}

func (l *Local) proc(name string) string {
	root := l.ProcRoot
	if root == "" {
		root = "/proc"
	}
	return filepath.Join(root, name)
}

func (l *Local) memory() (map[string]any, error) {
	b, err := os.ReadFile(l.proc("meminfo"))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRemote, "reading meminfo", err)
	}

	var totalKB, availKB uint64
	for _, line := range strings.Split(string(b), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			totalKB, _ = strconv.ParseUint(fields[1], 10, 64)
		case "MemAvailable:":
			availKB, _ = strconv.ParseUint(fields[1], 10, 64)
		}
	}
	if totalKB == 0 {
		return nil, errors.New(errors.ErrCodeRemote, "meminfo missing MemTotal")
	}

	return map[string]any{
		KeyMemTotal: totalKB * 1024,
		KeyMemFree:  availKB * 1024,
	}, nil
}

func (l *Local) disk() (map[string]any, error) {
	dir := l.TempDir
	if dir == "" {
		dir = os.TempDir()
	}

	payload := bytes.Repeat([]byte{0xA5}, diskProbeSize)
	f, err := os.CreateTemp(dir, "srvaudit-probe-*")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRemote, "creating disk probe file", err)
	}
	name := f.Name()
	defer os.Remove(name)

	writeStart := time.Now()
	_, werr := f.Write(payload)
	serr := f.Sync()
	writeMs := time.Since(writeStart).Milliseconds()
	if cerr := f.Close(); werr == nil && serr == nil && cerr != nil {
		werr = cerr
	}
	if werr != nil || serr != nil {
		return nil, errors.New(errors.ErrCodeRemote, "disk write probe failed")
	}

	readStart := time.Now()
	if _, err := os.ReadFile(name); err != nil {
		return nil, errors.Wrap(errors.ErrCodeRemote, "disk read probe failed", err)
	}
	readMs := time.Since(readStart).Milliseconds()

	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return nil, errors.Wrap(errors.ErrCodeRemote, "statfs failed", err)
	}
	freePct := 0.0
	if st.Blocks > 0 {
		freePct = float64(st.Bavail) / float64(st.Blocks) * 100
	}

	return map[string]any{
		KeyDiskReadMs:  readMs,
		KeyDiskWriteMs: writeMs,
		KeyDiskFreePct: freePct,
	}, nil
}

func (l *Local) load() (map[string]any, error) {
	b, err := os.ReadFile(l.proc("loadavg"))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRemote, "reading loadavg", err)
	}
	fields := strings.Fields(string(b))
	if len(fields) < 1 {
		return nil, errors.New(errors.ErrCodeRemote, "malformed loadavg")
	}
	load1, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRemote, "parsing loadavg", err)
	}

	pct := load1 / float64(runtime.NumCPU()) * 100
	return map[string]any{KeyLoadPct: pct}, nil
}

func (l *Local) service(ctx context.Context, unit string) (map[string]any, error) {
	if unit == "" {
		unit = "sshd.service"
	}

	conn, err := dbus.NewSystemdConnectionContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnavailable, "failed to connect to systemd", err)
	}
	defer conn.Close()

	prop, err := conn.GetUnitPropertyContext(ctx, unit, "ActiveState")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnavailable,
			fmt.Sprintf("failed to query unit %s", unit), err)
	}

	state := strings.Trim(prop.Value.String(), `"`)
	if state != "active" {
		return nil, errors.New(errors.ErrCodeUnavailable,
			fmt.Sprintf("unit %s is %s", unit, state))
	}

	return map[string]any{KeyService: state, "unit": unit}, nil
}

func (l *Local) platform() (map[string]any, error) {
	data := map[string]any{
		KeyOS:   runtime.GOOS,
		KeyArch: runtime.GOARCH,
	}

	if hostname, err := os.Hostname(); err == nil {
		data[KeyHostname] = hostname
	}

	var uts unix.Utsname
	if err := unix.Uname(&uts); err == nil {
		data[KeyKernel] = utsString(uts.Release[:])
	}

	if name, version := osRelease(); name != "" {
		data[KeyOS] = name
		data[KeyOSVersion] = version
	}

	return data, nil
}

func (l *Local) minimal() (map[string]any, error) {
	data, err := l.platform()
	if err != nil {
		return nil, err
	}
	data[KeyCPUCores] = runtime.NumCPU()
	data[KeyDrives] = mountPoints()
	return data, nil
}

// collect serves the built-in collector catalog against the local host.
// Only the system and services categories have first-class local payloads;
// everything else answers the minimal dataset so the fallback chain can
// still terminate on a local target.
func (l *Local) collect(ctx context.Context, p Payload) (map[string]any, error) {
	switch {
	case strings.HasPrefix(p.Op, "collect.system."):
		return l.minimal()
	case strings.HasPrefix(p.Op, "collect.services."):
		data, err := l.service(ctx, p.Args["unit"])
		if err != nil {
			return nil, err
		}
		return data, nil
	default:
		slog.Debug("no local payload for operation", slog.String("op", p.Op))
		return nil, errors.New(errors.ErrCodeRemote,
			fmt.Sprintf("no local payload for operation %q", p.Op))
	}
}

func utsString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

func osRelease() (name, version string) {
	b, err := os.ReadFile("/etc/os-release")
	if err != nil {
		return "", ""
	}
	for _, line := range strings.Split(string(b), "\n") {
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		v = strings.Trim(v, `"`)
		switch k {
		case "NAME":
			name = v
		case "VERSION_ID":
			version = v
		}
	}
	return name, version
}

func mountPoints() []string {
	b, err := os.ReadFile("/proc/mounts")
	if err != nil {
		return nil
	}
	var mounts []string
	for _, line := range strings.Split(string(b), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		// Physical filesystems only.
		if strings.HasPrefix(fields[0], "/dev/") {
			mounts = append(mounts, fields[1])
		}
	}
	return mounts
}
