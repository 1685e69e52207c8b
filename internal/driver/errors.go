package driver

import "errors"

// ErrThreadTerminationTimeout is logged and returned by Driver.Wait (never
// sent to observers) when the driver's goroutine does not exit within
// Tunables.ThreadTerminationTimeout after stop().
var ErrThreadTerminationTimeout = errors.New("driver: thread did not exit within termination timeout")

// classifyFailure maps an establish() failure into one of the four
// user-visible failure states, per spec.md §4.1's best-effort
// classification algorithm. reachable is the ServerReachable control flag
// observed at the moment of failure; pingOK is the result of a host ping
// (only meaningful when !reachable && !skipHostPing); fbInvalid reports
// whether the Framebuffer was still Invalid at the moment of failure.
func classifyFailure(reachable, skipHostPing, pingOK bool, fbInvalid bool) ConnectionState {
	if !reachable && (skipHostPing || !pingOK) {
		return HostOffline
	}
	if !reachable {
		return ServerNotRunning
	}
	if fbInvalid {
		return AuthenticationFailed
	}
	return ConnectionFailed
}
