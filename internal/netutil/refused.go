package netutil

import (
	"errors"
	"net"
	"syscall"
)

// isRefused reports whether err is a connection-refused error, which for
// Ping's purposes counts as "host reachable" (the OS answered us) rather
// than "host unreachable" (nothing answered at all).
func isRefused(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, syscall.ECONNREFUSED)
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
