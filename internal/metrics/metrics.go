// Package metrics exposes Prometheus counters/gauges for the connection
// engine, following the same promauto-registered-globals-plus-local-mirror
// shape as the teacher's internal/metrics (grounded on
// kstaniek-go-ampio-server/internal/metrics), adapted from CAN-frame
// counters to RFB connection-lifecycle counters.
package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/liucy427/veyon-rfbcore/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus series.
var (
	ConnectionState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rfb_connection_state",
		Help: "Current connection state as an enum value (driver.ConnectionState).",
	})
	ReconnectAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rfb_reconnect_attempts_total",
		Help: "Total establish() attempts, including the first.",
	})
	FullUpdateRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rfb_full_update_requests_total",
		Help: "Total non-incremental framebuffer update requests sent.",
	})
	IncrementalUpdateRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rfb_incremental_update_requests_total",
		Help: "Total incremental framebuffer update requests sent.",
	})
	WatchdogFires = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rfb_watchdog_fires_total",
		Help: "Total times the framebuffer-update watchdog elapsed without a server message.",
	})
	EventsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rfb_events_delivered_total",
		Help: "Total outbound events successfully sent to the server.",
	})
	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rfb_events_dropped_total",
		Help: "Total outbound events discarded (send failure or shutdown race).",
	})
	EventQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rfb_event_queue_depth",
		Help: "Outbound event queue depth sampled at each drain.",
	})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rfb_errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable label values to bound cardinality).
const (
	ErrDial        = "dial"
	ErrHandshake   = "handshake"
	ErrAuth        = "auth"
	ErrProtocol    = "protocol"
	ErrMessagePump = "message_pump"
	ErrSendEvent   = "send_event"
)

// Local mirrored counters for cheap in-process logging (avoid scraping the
// Prometheus registry just to print a periodic summary line).
var (
	localReconnects   uint64
	localFullUpdates  uint64
	localIncUpdates   uint64
	localWatchdogs    uint64
	localEvDelivered  uint64
	localEvDropped    uint64
	localErrors       uint64
)

// Snapshot is a cheap copy of the local counters.
type Snapshot struct {
	Reconnects        uint64
	FullUpdates       uint64
	IncrementalUpdates uint64
	WatchdogFires     uint64
	EventsDelivered   uint64
	EventsDropped     uint64
	Errors            uint64
}

func Snap() Snapshot {
	return Snapshot{
		Reconnects:         atomic.LoadUint64(&localReconnects),
		FullUpdates:        atomic.LoadUint64(&localFullUpdates),
		IncrementalUpdates: atomic.LoadUint64(&localIncUpdates),
		WatchdogFires:      atomic.LoadUint64(&localWatchdogs),
		EventsDelivered:    atomic.LoadUint64(&localEvDelivered),
		EventsDropped:      atomic.LoadUint64(&localEvDropped),
		Errors:             atomic.LoadUint64(&localErrors),
	}
}

func IncReconnectAttempt() {
	ReconnectAttempts.Inc()
	atomic.AddUint64(&localReconnects, 1)
}

func IncFullUpdateRequest() {
	FullUpdateRequests.Inc()
	atomic.AddUint64(&localFullUpdates, 1)
}

func IncIncrementalUpdateRequest() {
	IncrementalUpdateRequests.Inc()
	atomic.AddUint64(&localIncUpdates, 1)
}

func IncWatchdogFire() {
	WatchdogFires.Inc()
	atomic.AddUint64(&localWatchdogs, 1)
}

func IncEventDelivered() {
	EventsDelivered.Inc()
	atomic.AddUint64(&localEvDelivered, 1)
}

func IncEventDropped() {
	EventsDropped.Inc()
	atomic.AddUint64(&localEvDropped, 1)
}

func SetConnectionState(v int) { ConnectionState.Set(float64(v)) }

func SetEventQueueDepth(n int) { EventQueueDepth.Set(float64(n)) }

func IncError(label string) {
	Errors.WithLabelValues(label).Inc()
	atomic.AddUint64(&localErrors, 1)
}

// InitBuildInfo sets the build info gauge and pre-registers error label
// series so the first real error doesn't pay registration latency.
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	for _, lbl := range []string{ErrDial, ErrHandshake, ErrAuth, ErrProtocol, ErrMessagePump, ErrSendEvent} {
		Errors.WithLabelValues(lbl).Add(0)
	}
}

// SetReadinessFunc registers a function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function if present.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil {
		return true
	}
	return fn()
}

// StartHTTP serves Prometheus metrics at /metrics (and a /ready probe) on addr.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}
