//go:build !linux

package netutil

import (
	"net"
	"time"
)

// ConfigureSocketKeepalive falls back to the portable net.TCPConn knobs on
// non-Linux platforms, losing the fine-grained idle/interval/count control
// but still enabling basic keepalive.
func ConfigureSocketKeepalive(conn net.Conn, enabled bool, idle, interval time.Duration, count int) error {
	tcp, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	if err := tcp.SetKeepAlive(enabled); err != nil {
		return err
	}
	if enabled {
		return tcp.SetKeepAlivePeriod(idle)
	}
	return nil
}
