package rfbclient

import (
	"sync"

	"github.com/liucy427/veyon-rfbcore/internal/rfbwire"
)

// PixelFormat re-exports rfbwire.PixelFormat so callers of this package
// don't need a second import for the Hooks signatures below.
type PixelFormat = rfbwire.PixelFormat

// Hooks is the callback surface a Session invokes as it decodes
// server-pushed messages — the "nine callbacks" spec.md §6 describes the
// core registering with the external codec library. In this module the
// codec library is internal/rfbclient itself; Hooks is implemented by the
// driver's ProtocolAdapter.
type Hooks interface {
	// OnFramebufferInit is called right after ServerInit is parsed and the
	// bit-depth check has passed, and again for every DesktopSize resize
	// the server announces. Returning an error aborts the connection
	// attempt (protocol failure).
	OnFramebufferInit(width, height int, serverFormat PixelFormat) error
	// OnWriteRawRegion delivers decoded RGBA bytes (R,G,B at offsets
	// 0,1,2; byte 3 unused) for the rectangle at (x, y, w, h).
	OnWriteRawRegion(x, y, w, h int, rgba []byte)
	// OnCopyRect blits a previously-seen region to a new position.
	OnCopyRect(dstX, dstY, srcX, srcY, w, h int)
	// OnUpdateRegion notifies observers that a region changed, after the
	// pixel data has already been written via OnWriteRawRegion/OnCopyRect.
	OnUpdateRegion(x, y, w, h int)
	// OnUpdateFinished is called once per FramebufferUpdate message, after
	// every rectangle in it has been processed.
	OnUpdateFinished()
	// OnCursorPosition reports a server-pushed pointer position (only sent
	// when the server supports cursor-position encoding).
	OnCursorPosition(x, y int)
	// OnCursorShape reports a new cursor bitmap. rgb is tightly packed
	// w*h*4 RGB(+pad) bytes; mask is 1 bit per pixel with each row padded
	// to a byte boundary, ((w+7)/8)*h bytes.
	OnCursorShape(xhot, yhot, w, h int, rgb, mask []byte)
	// OnServerCutText reports clipboard text pushed by the server.
	OnServerCutText(text string)
	// OnLog routes a low-level protocol trace line to the core's log
	// sink; silenced by default (spec.md §4.2 "log": "silenced by
	// default").
	OnLog(format string, args ...any)
}

// Binding is a locked, clearable reference to a Hooks implementation. It
// exists so that late callbacks arriving after the driver has begun
// shutdown become no-ops instead of racing a half-torn-down driver — the
// "shutdown race shield" spec.md §4.2 calls for, implemented as a locked
// reference per design note 1 rather than the source's raw back-pointer +
// null-check.
type Binding struct {
	mu    sync.RWMutex
	hooks Hooks
}

// NewBinding returns a Binding already pointing at hooks.
func NewBinding(hooks Hooks) *Binding {
	return &Binding{hooks: hooks}
}

// Set installs hooks as the active target.
func (b *Binding) Set(hooks Hooks) {
	b.mu.Lock()
	b.hooks = hooks
	b.mu.Unlock()
}

// Clear detaches the current hooks; subsequent Get calls return nil. Used
// by the driver's stop() so callbacks already in flight when shutdown
// begins observe a missing owner and become no-ops.
func (b *Binding) Clear() {
	b.mu.Lock()
	b.hooks = nil
	b.mu.Unlock()
}

// Get returns the current hooks, or nil if cleared.
func (b *Binding) Get() Hooks {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.hooks
}
