package driver

import (
	"fmt"
	"sync/atomic"

	"github.com/liucy427/veyon-rfbcore/internal/controlflags"
	"github.com/liucy427/veyon-rfbcore/internal/framebuffer"
	"github.com/liucy427/veyon-rfbcore/internal/logging"
	"github.com/liucy427/veyon-rfbcore/internal/rfbclient"
	"github.com/liucy427/veyon-rfbcore/internal/rfbwire"
)

// ProtocolAdapter implements rfbclient.Hooks (the nine codec callbacks,
// spec.md §4.2), translating each into Framebuffer mutation and/or an
// Observer signal. The shutdown race shield described in design note 1 is
// the rfbclient.Binding the driver clears in stop(); the adapter itself
// holds no back-pointer and is always safe to call.
type ProtocolAdapter struct {
	fb       *framebuffer.Framebuffer
	flags    *controlflags.Flags
	observer Observer
	watchdog *watchdog

	useRemoteCursor atomic.Bool
}

func newProtocolAdapter(fb *framebuffer.Framebuffer, flags *controlflags.Flags, obs Observer, wd *watchdog) *ProtocolAdapter {
	if obs == nil {
		obs = NopObserver{}
	}
	return &ProtocolAdapter{fb: fb, flags: flags, observer: obs, watchdog: wd}
}

// OnFramebufferInit implements rfbclient.Hooks.
func (a *ProtocolAdapter) OnFramebufferInit(width, height int, serverFormat rfbwire.PixelFormat) error {
	if !serverFormat.MatchesExpected32Bit() {
		return fmt.Errorf("driver: server pixel depth %d bpp, want 32", serverFormat.BitsPerPixel)
	}
	a.fb.Allocate(width, height)
	a.observer.OnFramebufferSizeChanged(width, height)
	return nil
}

// OnWriteRawRegion implements rfbclient.Hooks.
func (a *ProtocolAdapter) OnWriteRawRegion(x, y, w, h int, rgba []byte) {
	a.fb.WriteRegion(x, y, w, h, rgba)
}

// OnCopyRect implements rfbclient.Hooks. The core's Framebuffer.CopyRect
// wants a source *image.RGBA, which the adapter doesn't hold directly —
// instead it reads the source region out of the framebuffer's own current
// snapshot, since CopyRect by definition always references pixels the
// framebuffer already has.
func (a *ProtocolAdapter) OnCopyRect(dstX, dstY, srcX, srcY, w, h int) {
	snap := a.fb.Snapshot()
	img := snap.Pix()
	if img == nil {
		return
	}
	srcRect := img.Bounds().Intersect(rectAt(srcX, srcY, w, h))
	a.fb.CopyRect(dstX, dstY, img, srcRect)
}

// OnUpdateRegion implements rfbclient.Hooks.
func (a *ProtocolAdapter) OnUpdateRegion(x, y, w, h int) {
	a.observer.OnImageUpdated(x, y, w, h)
}

// OnUpdateFinished implements rfbclient.Hooks (spec.md §4.2 "finish
// update"): restarts the watchdog, marks the Framebuffer Valid and
// scaled-dirty, and emits framebuffer-update-complete.
func (a *ProtocolAdapter) OnUpdateFinished() {
	a.watchdog.reset()
	a.fb.MarkValid()
	a.flags.Set(controlflags.ScaledDirty)
	a.observer.OnFramebufferUpdateComplete()
}

// OnCursorPosition implements rfbclient.Hooks.
func (a *ProtocolAdapter) OnCursorPosition(x, y int) {
	a.observer.OnCursorPosChanged(x, y)
}

// OnCursorShape implements rfbclient.Hooks. Non-4-byte-per-pixel shapes
// are rejected by internal/rfbclient before this is ever invoked (design
// note 5). The shape is forwarded verbatim while the remote-cursor
// preference is on and dropped while it is off.
func (a *ProtocolAdapter) OnCursorShape(xhot, yhot, w, h int, rgb, mask []byte) {
	if !a.useRemoteCursor.Load() {
		return
	}
	a.observer.OnCursorShapeUpdated(rgb, mask, w, h, xhot, yhot)
}

// OnServerCutText implements rfbclient.Hooks.
func (a *ProtocolAdapter) OnServerCutText(text string) {
	if text == "" {
		return
	}
	a.observer.OnGotCut(text)
}

// OnLog implements rfbclient.Hooks: routed to the debug sink, silenced by
// default (spec.md §4.2).
func (a *ProtocolAdapter) OnLog(format string, args ...any) {
	logging.L().Debug(fmt.Sprintf(format, args...))
}

var _ rfbclient.Hooks = (*ProtocolAdapter)(nil)
