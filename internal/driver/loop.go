package driver

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/liucy427/veyon-rfbcore/internal/controlflags"
	"github.com/liucy427/veyon-rfbcore/internal/framebuffer"
	"github.com/liucy427/veyon-rfbcore/internal/logging"
	"github.com/liucy427/veyon-rfbcore/internal/metrics"
	"github.com/liucy427/veyon-rfbcore/internal/netutil"
	"github.com/liucy427/veyon-rfbcore/internal/quality"
	"github.com/liucy427/veyon-rfbcore/internal/rfbclient"
)

// Run executes the three-phase outer loop (establish -> handle -> close)
// until Terminate is observed, per spec.md §4.1. It is meant to be started
// as `go d.Run(ctx)`; Stop/StopAndDeleteLater trigger its exit, and Wait
// blocks for that exit.
func (d *Driver) Run(ctx context.Context) {
	defer d.finish()
	for !d.flags.IsSet(controlflags.Terminate) {
		session := d.establish(ctx)
		if session == nil {
			continue // establish() already classified, slept, and will retry
		}
		d.handle(ctx, session)
		d.closeSession(session)
		d.setState(Disconnected)
	}
}

func (d *Driver) finish() {
	d.eq.Close()
	if d.flags.TestAndClear(controlflags.DeleteAfterFinish) {
		cb := d.deleteCallback
		if cb == nil {
			cb = func() {}
		}
		if d.executor != nil {
			d.executor(cb)
		} else {
			cb()
		}
	}
	close(d.doneCh)
}

func (d *Driver) currentAddr() (host string, port int) {
	d.cfgMu.Lock()
	defer d.cfgMu.Unlock()
	port = d.port
	if port < 0 {
		port = defaultPort
	}
	return d.host, port
}

// establish implements spec.md §4.1 "establish". On success it returns a
// live, handshaken Session with Connected already published. On failure it
// classifies, publishes the failure state, sleeps the appropriate backoff,
// and returns nil so Run retries.
func (d *Driver) establish(ctx context.Context) *rfbclient.Session {
	d.flags.Clear(controlflags.Restart)
	d.flags.Clear(controlflags.ServerReachable)
	d.setState(Connecting)
	metrics.IncReconnectAttempt()

	host, port := d.currentAddr()
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	session, err := rfbclient.Dial(ctx, addr, d.tunables.ConnectTimeout, d.binding, func() {
		d.flags.Set(controlflags.ServerReachable)
	})
	if err != nil {
		metrics.IncError(metrics.ErrHandshake)
		d.failEstablish(ctx, host, port)
		return nil
	}

	if err := netutil.ConfigureSocketKeepalive(session.Conn(), true,
		d.tunables.SocketKeepaliveIdle, d.tunables.SocketKeepaliveInterval, d.tunables.SocketKeepaliveCount); err != nil {
		logging.L().Warn("keepalive_configure_failed", "error", err)
	}

	d.cfgMu.Lock()
	lvl := d.qualityLevel
	d.cfgMu.Unlock()
	if err := session.SetQuality(quality.For(lvl)); err != nil {
		metrics.IncError(metrics.ErrHandshake)
		_ = session.Clientcleanup()
		d.failEstablish(ctx, host, port)
		return nil
	}
	if err := session.SendFramebufferUpdateRequest(false); err != nil {
		metrics.IncError(metrics.ErrHandshake)
		_ = session.Clientcleanup()
		d.failEstablish(ctx, host, port)
		return nil
	}
	metrics.IncFullUpdateRequest()

	d.setState(Connected)
	d.watchdog.reset()
	d.observer.OnConnectionPrepared()
	return session
}

func (d *Driver) failEstablish(ctx context.Context, host string, port int) {
	reachable := d.flags.IsSet(controlflags.ServerReachable)
	skipPing := d.flags.IsSet(controlflags.SkipHostPing)
	var pingOK bool
	if !reachable && !skipPing {
		pingOK = pingFn(ctx, host, port, d.tunables.ConnectTimeout)
	}
	fbInvalid := d.fb.State() == framebuffer.Invalid
	d.setState(classifyFailure(reachable, skipPing, pingOK, fbInvalid))

	d.cfgMu.Lock()
	interval := d.fbUpdateInterval
	d.cfgMu.Unlock()
	backoff := d.tunables.ConnectionRetryInterval
	if interval > 0 {
		backoff = interval
	}
	// Design note 4 (open question, resolved in DESIGN.md): a non-positive
	// framebuffer-update-interval is never used as-is for the backoff
	// sleep; it always falls back to ConnectionRetryInterval.
	d.sleepInterruptible(backoff)
}

func (d *Driver) closeSession(s *rfbclient.Session) {
	_ = s.Clientcleanup()
	d.fb.Invalidate()
}

// handle implements spec.md §4.1 "handle": the message-pump loop, run
// while Connected and neither Terminate nor Restart is observed.
func (d *Driver) handle(ctx context.Context, s *rfbclient.Session) {
	for !d.flags.IsSet(controlflags.Terminate) && !d.flags.IsSet(controlflags.Restart) {
		d.cfgMu.Lock()
		interval := d.fbUpdateInterval
		d.cfgMu.Unlock()

		loopStart := time.Now()

		waitTimeout := d.tunables.MessageWaitTimeout
		if interval > 0 {
			waitTimeout = d.tunables.MessageWaitTimeout * 100
		}
		ready, err := s.WaitForMessage(waitTimeout)
		if err != nil {
			metrics.IncError(metrics.ErrMessagePump)
			return
		}

		if ready {
			for {
				if err := s.HandleServerMessage(); err != nil {
					metrics.IncError(metrics.ErrMessagePump)
					return
				}
				if !s.MessagePending() {
					break
				}
			}
		} else {
			watchdogBound := d.tunables.FramebufferUpdateWatchdogTimeout
			if twice := 2 * interval; twice > watchdogBound {
				watchdogBound = twice
			}
			switch {
			case d.watchdog.elapsed() >= watchdogBound:
				if err := s.SendFramebufferUpdateRequest(false); err != nil {
					metrics.IncError(metrics.ErrMessagePump)
					return
				}
				metrics.IncFullUpdateRequest()
				metrics.IncWatchdogFire()
				d.watchdog.reset()
			case interval > 0 && d.watchdog.elapsed() >= interval:
				if err := s.SendIncrementalFramebufferUpdateRequest(); err != nil {
					metrics.IncError(metrics.ErrMessagePump)
					return
				}
				metrics.IncIncrementalUpdateRequest()
				d.watchdog.reset()
			case d.flags.TestAndClear(controlflags.TriggerUpdate):
				if err := s.SendIncrementalFramebufferUpdateRequest(); err != nil {
					metrics.IncError(metrics.ErrMessagePump)
					return
				}
				metrics.IncIncrementalUpdateRequest()
			}
		}

		if remaining := interval - time.Since(loopStart); remaining > 0 && d.flags.IsSet(controlflags.ManualUpdateRateControl) {
			d.sleepInterruptible(remaining)
		}

		metrics.SetEventQueueDepth(d.eq.Len())
		d.eq.DrainInto(qualitySender{Session: s, d: d}, func() bool { return d.flags.IsSet(controlflags.Terminate) })
	}
}

// qualitySender forwards queued events to the session; a
// RefreshFormatAndEncodings event applies the driver's current quality level.
type qualitySender struct {
	*rfbclient.Session
	d *Driver
}

func (q qualitySender) SendFormatAndEncodings() error {
	q.d.cfgMu.Lock()
	lvl := q.d.qualityLevel
	q.d.cfgMu.Unlock()
	return q.Session.SetQuality(quality.For(lvl))
}

