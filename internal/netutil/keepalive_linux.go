//go:build linux

package netutil

import (
	"fmt"
	"net"
	"time"

	"golang.org/x/sys/unix"
)

// ConfigureSocketKeepalive enables (or disables) TCP keepalive on conn and
// tunes idle/interval/count, the platform boundary spec.md §6 names
// ("configureSocketKeepalive(fd, enabled, idle, interval, count)"). conn
// must wrap a *net.TCPConn; any other type is a no-op (nothing to tune).
func ConfigureSocketKeepalive(conn net.Conn, enabled bool, idle, interval time.Duration, count int) error {
	tcp, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	rc, err := tcp.SyscallConn()
	if err != nil {
		return fmt.Errorf("netutil: syscall conn: %w", err)
	}
	var sockErr error
	ctrlErr := rc.Control(func(fd uintptr) {
		ka := 0
		if enabled {
			ka = 1
		}
		if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_KEEPALIVE, ka); err != nil {
			sockErr = fmt.Errorf("netutil: SO_KEEPALIVE: %w", err)
			return
		}
		if !enabled {
			return
		}
		if err := unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, int(idle.Seconds())); err != nil {
			sockErr = fmt.Errorf("netutil: TCP_KEEPIDLE: %w", err)
			return
		}
		if err := unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, int(interval.Seconds())); err != nil {
			sockErr = fmt.Errorf("netutil: TCP_KEEPINTVL: %w", err)
			return
		}
		if err := unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPCNT, count); err != nil {
			sockErr = fmt.Errorf("netutil: TCP_KEEPCNT: %w", err)
			return
		}
	})
	if ctrlErr != nil {
		return fmt.Errorf("netutil: control: %w", ctrlErr)
	}
	return sockErr
}
