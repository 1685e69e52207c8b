package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/liucy427/veyon-rfbcore/internal/quality"
)

type appConfig struct {
	host    string
	port    int
	quality string

	logFormat string
	logLevel  string

	metricsAddr string

	connectTimeout    time.Duration
	retryInterval     time.Duration
	messageWaitTO     time.Duration
	watchdogTimeout   time.Duration
	fbUpdateInterval  time.Duration
	terminationTO     time.Duration
	keepaliveIdle     time.Duration
	keepaliveInterval time.Duration
	keepaliveCount    int

	skipHostPing    bool
	useRemoteCursor bool

	mdnsEnable bool
	mdnsName   string
}

func parseFlags() (*appConfig, bool) {
	cfg := &appConfig{}
	host := flag.String("host", "", "RFB server host (required; may include :port, [ipv6], or ::ffff:A.B.C.D forms)")
	port := flag.Int("port", 5900, "RFB server port (overridden if -host embeds one)")
	q := flag.String("quality", "high", "Connection quality: highest|high|medium|low|lowest")
	logFormat := flag.String("log-format", "text", "Log format: text|json")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	metricsAddr := flag.String("metrics-addr", "", "Metrics HTTP listen address (e.g., :9101); empty disables")
	connectTO := flag.Duration("connect-timeout", 5*time.Second, "TCP connect + handshake timeout")
	retryInterval := flag.Duration("retry-interval", 2*time.Second, "Reconnect backoff interval")
	msgWaitTO := flag.Duration("message-wait-timeout", 50*time.Millisecond, "Base message-wait poll interval")
	watchdogTO := flag.Duration("watchdog-timeout", 5*time.Second, "Framebuffer update watchdog timeout")
	fbInterval := flag.Duration("fb-update-interval", 0, "Periodic incremental update interval (0 disables)")
	terminationTO := flag.Duration("termination-timeout", 3*time.Second, "Shutdown join timeout")
	kaIdle := flag.Duration("keepalive-idle", 30*time.Second, "TCP keepalive idle time")
	kaInterval := flag.Duration("keepalive-interval", 10*time.Second, "TCP keepalive probe interval")
	kaCount := flag.Int("keepalive-count", 3, "TCP keepalive probe count")
	skipPing := flag.Bool("skip-host-ping", false, "Skip the reachability ping during failure classification")
	remoteCursor := flag.Bool("remote-cursor", true, "Request and surface server-pushed cursor shape")
	mdnsEnable := flag.Bool("mdns-enable", false, "Advertise this probe via mDNS")
	mdnsName := flag.String("mdns-name", "", "mDNS instance name (default vncprobe-<hostname>)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	setFlags := map[string]struct{}{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = struct{}{} })

	cfg.host = *host
	cfg.port = *port
	cfg.quality = *q
	cfg.logFormat = *logFormat
	cfg.logLevel = *logLevel
	cfg.metricsAddr = *metricsAddr
	cfg.connectTimeout = *connectTO
	cfg.retryInterval = *retryInterval
	cfg.messageWaitTO = *msgWaitTO
	cfg.watchdogTimeout = *watchdogTO
	cfg.fbUpdateInterval = *fbInterval
	cfg.terminationTO = *terminationTO
	cfg.keepaliveIdle = *kaIdle
	cfg.keepaliveInterval = *kaInterval
	cfg.keepaliveCount = *kaCount
	cfg.skipHostPing = *skipPing
	cfg.useRemoteCursor = *remoteCursor
	cfg.mdnsEnable = *mdnsEnable
	cfg.mdnsName = *mdnsName

	if err := applyEnvOverrides(cfg, setFlags); err != nil {
		fmt.Printf("environment override error: %v\n", err)
		return nil, *showVersion
	}
	if err := cfg.validate(); err != nil {
		fmt.Printf("configuration error: %v\n", err)
		return nil, *showVersion
	}
	return cfg, *showVersion
}

func (c *appConfig) validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	if c.host == "" {
		return errors.New("-host is required")
	}
	switch c.logFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format: %s", c.logFormat)
	}
	switch c.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log-level: %s", c.logLevel)
	}
	if qualityLevel(c.quality) < 0 {
		return fmt.Errorf("invalid quality: %s", c.quality)
	}
	if c.connectTimeout <= 0 {
		return errors.New("connect-timeout must be > 0")
	}
	if c.retryInterval <= 0 {
		return errors.New("retry-interval must be > 0")
	}
	if c.keepaliveCount <= 0 {
		return errors.New("keepalive-count must be > 0")
	}
	return nil
}

// qualityLevel maps a flag string to a quality.Level, or -1 if unrecognised.
func qualityLevel(s string) quality.Level {
	switch strings.ToLower(s) {
	case "highest":
		return quality.Highest
	case "high":
		return quality.High
	case "medium":
		return quality.Medium
	case "low":
		return quality.Low
	case "lowest":
		return quality.Lowest
	default:
		return -1
	}
}

// applyEnvOverrides maps VNCPROBE_* environment variables onto cfg unless
// the corresponding flag was explicitly set, mirroring the teacher's
// flag-wins-over-env precedence in cmd/can-server/config.go.
func applyEnvOverrides(c *appConfig, set map[string]struct{}) error {
	var firstErr error
	get := func(k string) (string, bool) { v, ok := os.LookupEnv(k); return strings.TrimSpace(v), ok }
	noteErr := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}
	if _, ok := set["host"]; !ok {
		if v, ok := get("VNCPROBE_HOST"); ok && v != "" {
			c.host = v
		}
	}
	if _, ok := set["port"]; !ok {
		if v, ok := get("VNCPROBE_PORT"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.port = n
			} else if err != nil {
				noteErr(fmt.Errorf("invalid VNCPROBE_PORT: %w", err))
			}
		}
	}
	if _, ok := set["quality"]; !ok {
		if v, ok := get("VNCPROBE_QUALITY"); ok && v != "" {
			c.quality = v
		}
	}
	if _, ok := set["log-format"]; !ok {
		if v, ok := get("VNCPROBE_LOG_FORMAT"); ok && v != "" {
			c.logFormat = v
		}
	}
	if _, ok := set["log-level"]; !ok {
		if v, ok := get("VNCPROBE_LOG_LEVEL"); ok && v != "" {
			c.logLevel = v
		}
	}
	if _, ok := set["metrics-addr"]; !ok {
		if v, ok := get("VNCPROBE_METRICS"); ok {
			c.metricsAddr = v
		}
	}
	if _, ok := set["skip-host-ping"]; !ok {
		if v, ok := get("VNCPROBE_SKIP_HOST_PING"); ok && v != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				c.skipHostPing = true
			case "0", "false", "no", "off":
				c.skipHostPing = false
			}
		}
	}
	if _, ok := set["mdns-enable"]; !ok {
		if v, ok := get("VNCPROBE_MDNS_ENABLE"); ok && v != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				c.mdnsEnable = true
			case "0", "false", "no", "off":
				c.mdnsEnable = false
			}
		}
	}
	if _, ok := set["mdns-name"]; !ok {
		if v, ok := get("VNCPROBE_MDNS_NAME"); ok && v != "" {
			c.mdnsName = v
		}
	}
	return firstErr
}
