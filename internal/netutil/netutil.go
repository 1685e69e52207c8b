// Package netutil is the platform boundary the ConnectionDriver's
// establish phase uses for host reachability probing and TCP keepalive
// tuning (spec.md §6 "Platform boundary"). The keepalive knobs are wired
// directly into the raw socket file descriptor the same way the teacher's
// internal/socketcan opens a raw socket and tunes it with
// golang.org/x/sys/unix setsockopt calls, adapted here from SocketCAN
// CAN_RAW options to TCP_KEEPIDLE/KEEPINTVL/KEEPCNT.
package netutil

import (
	"context"
	"net"
	"strconv"
	"time"
)

// Ping reports whether host answers a lightweight reachability probe
// within timeout. It never returns an error: an unreachable or
// unresolvable host simply reports false, matching the spec's ping
// primitive signature ("ping(host) -> bool").
//
// The probe dials a TCP connection on the RFB port rather than sending an
// ICMP echo, since raw ICMP sockets need elevated privileges the core
// should not require just to classify a failed connection attempt; any
// successful TCP handshake (even a RST from a closed port) still proves
// the host itself is up, which is the only thing the HostOffline /
// ServerNotRunning classification in spec.md §4.1 needs to distinguish.
func Ping(ctx context.Context, host string, port int, timeout time.Duration) bool {
	if port <= 0 {
		port = 1
	}
	d := net.Dialer{Timeout: timeout}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err == nil {
		_ = conn.Close()
		return true
	}
	// A dial that fails with "connection refused" still proves the host
	// answered (it has no listener on this port, but the stack is up);
	// anything else (timeout, no route, unresolvable) means unreachable.
	return isRefused(err)
}
