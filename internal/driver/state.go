// Package driver implements the ConnectionDriver and ProtocolAdapter: the
// owning state machine and background I/O loop that drives a single RFB
// connection through establish/handle/close, and the callback surface that
// turns decoded codec events into Framebuffer mutations and observer
// signals. Grounded on the teacher's cmd/can-server backend reconnect
// loops (backend_serial.go's backoff-on-error RX goroutine) and
// internal/server.Server's option-functions-plus-owned-thread shape.
package driver

// ConnectionState is the externally observable state of a ConnectionDriver.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	HostOffline
	ServerNotRunning
	AuthenticationFailed
	ConnectionFailed
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case HostOffline:
		return "host_offline"
	case ServerNotRunning:
		return "server_not_running"
	case AuthenticationFailed:
		return "authentication_failed"
	case ConnectionFailed:
		return "connection_failed"
	default:
		return "unknown"
	}
}

// Observer receives the outward signals spec.md §6 names. Every method is
// invoked from the driver thread only (single producer; totally ordered
// across subscribers). Implementations must not block.
type Observer interface {
	OnConnectionPrepared()
	OnStateChanged(state ConnectionState)
	OnFramebufferSizeChanged(w, h int)
	OnImageUpdated(x, y, w, h int)
	OnFramebufferUpdateComplete()
	OnCursorPosChanged(x, y int)
	OnCursorShapeUpdated(rgb, mask []byte, w, h, xh, yh int)
	OnGotCut(text string)
	OnSizeHintChanged(w, h int)
}

// NopObserver implements Observer with no-op methods; embed it to satisfy
// the interface while overriding only the signals a caller cares about.
type NopObserver struct{}

func (NopObserver) OnConnectionPrepared()                                  {}
func (NopObserver) OnStateChanged(ConnectionState)                        {}
func (NopObserver) OnFramebufferSizeChanged(int, int)                     {}
func (NopObserver) OnImageUpdated(int, int, int, int)                     {}
func (NopObserver) OnFramebufferUpdateComplete()                          {}
func (NopObserver) OnCursorPosChanged(int, int)                           {}
func (NopObserver) OnCursorShapeUpdated([]byte, []byte, int, int, int, int) {}
func (NopObserver) OnGotCut(string)                                       {}
func (NopObserver) OnSizeHintChanged(int, int)                            {}
