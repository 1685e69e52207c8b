package main

import (
	"log/slog"

	"github.com/liucy427/veyon-rfbcore/internal/driver"
	"github.com/liucy427/veyon-rfbcore/internal/metrics"
)

// logObserver is the demonstration binary's driver.Observer: it has no GUI
// to paint into (core is headless by design), so it logs state transitions
// at info level and mirrors them into the metrics gauge, logs connection,
// size and clipboard signals at info, and logs image/cursor signals at
// debug to keep normal operation quiet.
type logObserver struct {
	driver.NopObserver
	l *slog.Logger
}

func newLogObserver(l *slog.Logger) *logObserver {
	return &logObserver{l: l}
}

func (o *logObserver) OnConnectionPrepared() {
	o.l.Info("connection_prepared")
}

func (o *logObserver) OnStateChanged(state driver.ConnectionState) {
	metrics.SetConnectionState(int(state))
	o.l.Info("state_changed", "state", state.String())
}

func (o *logObserver) OnFramebufferSizeChanged(w, h int) {
	o.l.Info("framebuffer_size_changed", "w", w, "h", h)
}

func (o *logObserver) OnImageUpdated(x, y, w, h int) {
	o.l.Debug("image_updated", "x", x, "y", y, "w", w, "h", h)
}

func (o *logObserver) OnFramebufferUpdateComplete() {
	o.l.Debug("framebuffer_update_complete")
}

func (o *logObserver) OnCursorPosChanged(x, y int) {
	o.l.Debug("cursor_pos_changed", "x", x, "y", y)
}

func (o *logObserver) OnCursorShapeUpdated(rgb, mask []byte, w, h, xh, yh int) {
	o.l.Debug("cursor_shape_updated", "w", w, "h", h, "hot_x", xh, "hot_y", yh)
}

func (o *logObserver) OnGotCut(text string) {
	o.l.Info("clipboard_from_server", "bytes", len(text))
}

func (o *logObserver) OnSizeHintChanged(w, h int) {
	o.l.Info("size_hint_changed", "w", w, "h", h)
}
