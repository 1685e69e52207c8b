package driver

import (
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/liucy427/veyon-rfbcore/internal/controlflags"
	"github.com/liucy427/veyon-rfbcore/internal/eventqueue"
	"github.com/liucy427/veyon-rfbcore/internal/framebuffer"
	"github.com/liucy427/veyon-rfbcore/internal/logging"
	"github.com/liucy427/veyon-rfbcore/internal/metrics"
	"github.com/liucy427/veyon-rfbcore/internal/netutil"
	"github.com/liucy427/veyon-rfbcore/internal/quality"
	"github.com/liucy427/veyon-rfbcore/internal/rfbclient"
)

const defaultPort = 5900

// Default tunables (spec.md §3 "Tunables"), all overridable via Options.
const (
	DefaultThreadTerminationTimeout  = 3 * time.Second
	DefaultConnectTimeout            = 5 * time.Second
	DefaultReadTimeout               = 10 * time.Second
	DefaultConnectionRetryInterval   = 2 * time.Second
	DefaultMessageWaitTimeout        = 50 * time.Millisecond
	DefaultFramebufferUpdateInterval = 0 // 0 disables periodic polling; watchdog still applies
	DefaultWatchdogTimeout           = 5 * time.Second
	DefaultSocketKeepaliveIdle       = 30 * time.Second
	DefaultSocketKeepaliveInterval   = 10 * time.Second
	DefaultSocketKeepaliveCount      = 3
)

// pingFn is a test-interception hook, mirroring the teacher's
// cmd/can-server sleepFn override used by backend_backoff_test.go.
var pingFn = netutil.Ping

// Driver is the ConnectionDriver: the owning state machine and background
// I/O loop described by spec.md §4.1. Exactly one goroutine (started by
// Run) ever touches the codec session, the Framebuffer's write path, and
// the watchdog; every other method is safe to call from any goroutine.
type Driver struct {
	cfgMu           sync.Mutex
	host            string
	port            int
	qualityLevel    quality.Level
	useRemoteCursor bool
	scaledW, scaledH int
	fbUpdateInterval time.Duration

	tunables Tunables

	flags *controlflags.Flags
	fb    *framebuffer.Framebuffer
	eq    *eventqueue.Queue

	state   atomic.Int32
	observer Observer

	binding  *rfbclient.Binding
	adapter  *ProtocolAdapter
	watchdog *watchdog

	wakeCh chan struct{}
	stopCh chan struct{}
	stopOnce sync.Once

	executor       func(func())
	deleteCallback func()

	doneCh chan struct{}
}

// Tunables groups the ten numeric knobs spec.md §3 names.
type Tunables struct {
	ThreadTerminationTimeout  time.Duration
	ConnectTimeout            time.Duration
	ReadTimeout               time.Duration
	ConnectionRetryInterval   time.Duration
	MessageWaitTimeout        time.Duration
	FastFramebufferUpdateInterval time.Duration
	FramebufferUpdateWatchdogTimeout time.Duration
	SocketKeepaliveIdle       time.Duration
	SocketKeepaliveInterval   time.Duration
	SocketKeepaliveCount      int
}

func defaultTunables() Tunables {
	return Tunables{
		ThreadTerminationTimeout:          DefaultThreadTerminationTimeout,
		ConnectTimeout:                    DefaultConnectTimeout,
		ReadTimeout:                       DefaultReadTimeout,
		ConnectionRetryInterval:           DefaultConnectionRetryInterval,
		MessageWaitTimeout:                DefaultMessageWaitTimeout,
		FastFramebufferUpdateInterval:     DefaultFramebufferUpdateInterval,
		FramebufferUpdateWatchdogTimeout:  DefaultWatchdogTimeout,
		SocketKeepaliveIdle:               DefaultSocketKeepaliveIdle,
		SocketKeepaliveInterval:           DefaultSocketKeepaliveInterval,
		SocketKeepaliveCount:              DefaultSocketKeepaliveCount,
	}
}

// Option configures a Driver at construction, mirroring the teacher's
// ServerOption functional-options pattern.
type Option func(*Driver)

func WithHostPort(host string, port int) Option {
	return func(d *Driver) { d.host, d.port = host, port }
}
func WithQuality(l quality.Level) Option   { return func(d *Driver) { d.qualityLevel = l } }
func WithRemoteCursor(b bool) Option       { return func(d *Driver) { d.useRemoteCursor = b } }
func WithObserver(o Observer) Option       { return func(d *Driver) { d.observer = o } }
func WithSkipHostPing(b bool) Option {
	return func(d *Driver) {
		if b {
			d.flags.Set(controlflags.SkipHostPing)
		}
	}
}
func WithManualUpdateRateControl(b bool) Option {
	return func(d *Driver) {
		if b {
			d.flags.Set(controlflags.ManualUpdateRateControl)
		}
	}
}
func WithFramebufferUpdateInterval(d2 time.Duration) Option {
	return func(d *Driver) { d.fbUpdateInterval = d2 }
}
func WithTunables(t Tunables) Option { return func(d *Driver) { d.tunables = t } }

// WithExecutor supplies the external executor stopAndDeleteLater()
// schedules self-destruction onto (design note 3): "on loop exit, if
// DeleteAfterFinished is set, enqueue a destruction task onto an external
// executor supplied at construction". If omitted, the task runs
// synchronously on the driver's own exiting goroutine.
func WithExecutor(fn func(func())) Option { return func(d *Driver) { d.executor = fn } }

// New constructs a Driver in the Disconnected state. Call Run to start its
// background loop.
func New(opts ...Option) *Driver {
	d := &Driver{
		port:     defaultPort,
		flags:    &controlflags.Flags{},
		fb:       framebuffer.New(),
		eq:       eventqueue.New(),
		watchdog: newWatchdog(),
		wakeCh:   make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		tunables: defaultTunables(),
	}
	for _, o := range opts {
		o(d)
	}
	if d.observer == nil {
		d.observer = NopObserver{}
	}
	d.binding = rfbclient.NewBinding(nil)
	d.adapter = newProtocolAdapter(d.fb, d.flags, d.observer, d.watchdog)
	d.adapter.useRemoteCursor.Store(d.useRemoteCursor)
	d.binding.Set(d.adapter)
	return d
}

// State returns the current ConnectionState.
func (d *Driver) State() ConnectionState { return ConnectionState(d.state.Load()) }

// Framebuffer exposes the backing pixel store for snapshot/rescale calls.
func (d *Driver) Framebuffer() *framebuffer.Framebuffer { return d.fb }

func (d *Driver) setState(s ConnectionState) {
	old := ConnectionState(d.state.Swap(int32(s)))
	if old == s {
		return
	}
	metrics.SetConnectionState(int(s))
	d.observer.OnStateChanged(s)
}

func (d *Driver) wake() {
	select {
	case d.wakeCh <- struct{}{}:
	default:
	}
}

// sleepInterruptible sleeps up to d, waking early on Terminate, Restart,
// or an explicit wake() call (new event enqueued, config change).
func (d *Driver) sleepInterruptible(dur time.Duration) {
	if dur <= 0 {
		return
	}
	timer := time.NewTimer(dur)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-d.wakeCh:
	case <-d.stopCh:
	}
}

// --- state mutators (spec.md §4.1 "State mutators"); callable from any goroutine ---

func (d *Driver) SetHost(host string) {
	d.cfgMu.Lock()
	d.host = host
	d.cfgMu.Unlock()
	d.flags.Set(controlflags.Restart)
	d.wake()
}

func (d *Driver) SetPort(port int) {
	d.cfgMu.Lock()
	d.port = port
	d.cfgMu.Unlock()
	d.flags.Set(controlflags.Restart)
	d.wake()
}

// SetQuality updates the active QualityProfile and, if currently
// Connected, enqueues a RefreshFormatAndEncodings event to apply it
// without tearing down the session.
func (d *Driver) SetQuality(l quality.Level) {
	d.cfgMu.Lock()
	d.qualityLevel = l
	d.cfgMu.Unlock()
	if d.State() == Connected {
		d.eq.Enqueue(eventqueue.Event{Kind: eventqueue.KindRefreshFormatAndEncodings})
	}
	d.wake()
}

func (d *Driver) SetUseRemoteCursor(b bool) {
	d.cfgMu.Lock()
	d.useRemoteCursor = b
	d.cfgMu.Unlock()
	d.adapter.useRemoteCursor.Store(b)
}

func (d *Driver) SetScaledSize(w, h int) {
	d.cfgMu.Lock()
	d.scaledW, d.scaledH = w, h
	d.cfgMu.Unlock()
	d.flags.Set(controlflags.ScaledDirty)
}

func (d *Driver) SetFramebufferUpdateInterval(interval time.Duration) {
	d.cfgMu.Lock()
	d.fbUpdateInterval = interval
	d.cfgMu.Unlock()
	d.wake()
}

// SetServerReachable is the external hook a caller with out-of-band
// reachability information (e.g. a prior successful ping elsewhere in the
// application) uses to set the ServerReachable flag. establish clears the
// flag at the start of every connection attempt, so a call only counts
// toward the failure classification of the attempt in progress.
func (d *Driver) SetServerReachable() { d.flags.Set(controlflags.ServerReachable) }

// Restart requests a clean return to establish() without tearing down the
// Driver itself.
func (d *Driver) Restart() {
	d.flags.Set(controlflags.Restart)
	d.wake()
}

// TriggerFramebufferUpdate requests a single incremental update on the
// next handle loop iteration.
func (d *Driver) TriggerFramebufferUpdate() {
	d.flags.Set(controlflags.TriggerUpdate)
	d.wake()
}

// MouseEvent enqueues a pointer-move event (dropped silently if not
// Connected — invariant 2).
func (d *Driver) MouseEvent(x, y int, buttonMask uint8) {
	if d.State() != Connected {
		return
	}
	d.eq.Enqueue(eventqueue.Event{Kind: eventqueue.KindPointerMove, X: x, Y: y, ButtonMask: buttonMask})
	d.wake()
}

// KeyEvent enqueues a key press/release event.
func (d *Driver) KeyEvent(keysym uint32, pressed bool) {
	if d.State() != Connected {
		return
	}
	d.eq.Enqueue(eventqueue.Event{Kind: eventqueue.KindKey, Keysym: keysym, Pressed: pressed})
	d.wake()
}

// ClientCut enqueues an outbound clipboard cut-text event.
func (d *Driver) ClientCut(text string) {
	if d.State() != Connected {
		return
	}
	d.eq.Enqueue(eventqueue.Event{Kind: eventqueue.KindClientCut, Text: text})
	d.wake()
}

// Image returns a snapshot of the current (unscaled) pixel view.
func (d *Driver) Image() framebuffer.Snapshot { return d.fb.Snapshot() }

// ScaledFramebuffer rescales (if dirty) to the caller-configured size and
// returns the result; nil if no valid framebuffer exists or the
// configured size is empty.
func (d *Driver) ScaledFramebuffer() *image.RGBA {
	d.cfgMu.Lock()
	w, h := d.scaledW, d.scaledH
	d.cfgMu.Unlock()
	if w <= 0 || h <= 0 || d.fb.State() != framebuffer.Valid {
		return nil
	}
	dirty := d.flags.IsSet(controlflags.ScaledDirty)
	d.fb.RescaleTo(w, h, dirty, func() { d.flags.Clear(controlflags.ScaledDirty) })
	return d.fb.Scaled()
}

// Stop clears the adapter binding (so in-flight callbacks become no-ops),
// sets Terminate, and wakes the sleeper. It does not wait for the loop to
// exit; use Wait for that.
func (d *Driver) Stop() {
	d.binding.Clear()
	d.flags.Set(controlflags.Terminate)
	d.stopOnce.Do(func() { close(d.stopCh) })
}

// StopAndDeleteLater arms DeleteAfterFinish in addition to Stop's effects:
// when the loop exits, the driver schedules its own destruction callback
// on the configured executor (design note 3) instead of the caller having
// to join the goroutine itself.
func (d *Driver) StopAndDeleteLater(onDeleted func()) {
	d.flags.Set(controlflags.DeleteAfterFinish)
	d.deleteCallback = onDeleted
	d.Stop()
}

// Wait blocks until the driver's background loop has exited, or until
// ThreadTerminationTimeout elapses, whichever comes first. Returns
// ErrThreadTerminationTimeout if the timeout wins (spec.md §4.1
// "Shutdown": "destruction waits thread-termination-timeout; if the
// thread has not exited, it is forcibly terminated after a warning" — in
// Go there is no forcible-kill of a goroutine, so the warning is the
// entirety of the "forcible termination").
func (d *Driver) Wait() error {
	select {
	case <-d.doneCh:
		return nil
	case <-time.After(d.tunables.ThreadTerminationTimeout):
		logging.L().Warn("driver_termination_timeout")
		return ErrThreadTerminationTimeout
	}
}

