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

package preflight

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"

	"github.com/tonynash74/server-audit-toolkit/pkg/errors"
)

// Prober abstracts the network-level checks so tests can run without a
// network and production can swap resolution strategies.
type Prober interface {
	// ResolveDNS resolves the host to at least one address.
	ResolveDNS(ctx context.Context, host string) ([]net.IP, error)

	// Ping probes basic reachability of the host.
	Ping(ctx context.Context, host string) (time.Duration, error)

	// DialPort probes TCP reachability of host:port.
	DialPort(ctx context.Context, host string, port int) (time.Duration, error)
}

// NetProber is the production Prober backed by the net package. Ping uses
// an unprivileged ICMP datagram socket; on hosts where that is disallowed
// (net.ipv4.ping_group_range), the ping check fails with a socket error
// and costs its penalty without blocking the target.
type NetProber struct {
	Resolver *net.Resolver
	Dialer   net.Dialer
}

func (p *NetProber) resolver() *net.Resolver {
	if p.Resolver != nil {
		return p.Resolver
	}
	return net.DefaultResolver
}

// ResolveDNS implements the Prober interface.
func (p *NetProber) ResolveDNS(ctx context.Context, host string) ([]net.IP, error) {
	addrs, err := p.resolver().LookupIPAddr(ctx, host)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnreachable, fmt.Sprintf("resolving %s", host), err)
	}
	ips := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		ips = append(ips, a.IP)
	}
	return ips, nil
}

// Ping implements the Prober interface with an unprivileged ICMP echo.
func (p *NetProber) Ping(ctx context.Context, host string) (time.Duration, error) {
	ips, err := p.ResolveDNS(ctx, host)
	if err != nil {
		return 0, err
	}
	ip := ips[0]

	conn, err := icmp.ListenPacket("udp4", "0.0.0.0")
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeUnreachable, "opening icmp socket", err)
	}
	defer conn.Close()

	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Body: &icmp.Echo{
			ID:   os.Getpid() & 0xffff,
			Seq:  1,
			Data: []byte("srvaudit"),
		},
	}
	wire, err := msg.Marshal(nil)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInternal, "marshaling icmp echo", err)
	}

	start := time.Now()
	if _, err := conn.WriteTo(wire, &net.UDPAddr{IP: ip}); err != nil {
		return 0, errors.Wrap(errors.ErrCodeUnreachable, fmt.Sprintf("pinging %s", host), err)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = start.Add(5 * time.Second)
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return 0, errors.Wrap(errors.ErrCodeInternal, "setting icmp read deadline", err)
	}

	reply := make([]byte, 1500)
	n, _, err := conn.ReadFrom(reply)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeUnreachable, fmt.Sprintf("no icmp reply from %s", host), err)
	}

	parsed, err := icmp.ParseMessage(ipv4.ICMPTypeEchoReply.Protocol(), reply[:n])
	if err != nil || parsed.Type != ipv4.ICMPTypeEchoReply {
		return 0, errors.New(errors.ErrCodeUnreachable, fmt.Sprintf("unexpected icmp reply from %s", host))
	}

	return time.Since(start), nil
}

// DialPort implements the Prober interface.
func (p *NetProber) DialPort(ctx context.Context, host string, port int) (time.Duration, error) {
	start := time.Now()
	conn, err := p.Dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeUnreachable,
			fmt.Sprintf("dialing %s:%d", host, port), err)
	}
	_ = conn.Close()
	return time.Since(start), nil
}
