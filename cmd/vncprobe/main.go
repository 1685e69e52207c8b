package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/liucy427/veyon-rfbcore/internal/driver"
	"github.com/liucy427/veyon-rfbcore/internal/hostaddr"
	"github.com/liucy427/veyon-rfbcore/internal/metrics"
)

// Helper implementations moved to dedicated files: version.go, config.go,
// logger.go, mdns.go, observer.go.

func main() {
	cfg, showVersion := parseFlags()
	if showVersion {
		fmt.Printf("vncprobe %s (commit %s, built %s)\n", version, commit, date)
		return
	}
	if cfg == nil {
		os.Exit(2)
	}
	l := setupLogger(cfg.logFormat, cfg.logLevel)

	host, port := hostaddr.Apply(cfg.host, cfg.port, hostaddr.Parse(cfg.host))

	drv := driver.New(
		driver.WithHostPort(host, port),
		driver.WithQuality(qualityLevel(cfg.quality)),
		driver.WithRemoteCursor(cfg.useRemoteCursor),
		driver.WithObserver(newLogObserver(l)),
		driver.WithSkipHostPing(cfg.skipHostPing),
		driver.WithFramebufferUpdateInterval(cfg.fbUpdateInterval),
		driver.WithTunables(driver.Tunables{
			ThreadTerminationTimeout:         cfg.terminationTO,
			ConnectTimeout:                   cfg.connectTimeout,
			ConnectionRetryInterval:          cfg.retryInterval,
			MessageWaitTimeout:               cfg.messageWaitTO,
			FramebufferUpdateWatchdogTimeout: cfg.watchdogTimeout,
			SocketKeepaliveIdle:              cfg.keepaliveIdle,
			SocketKeepaliveInterval:          cfg.keepaliveInterval,
			SocketKeepaliveCount:             cfg.keepaliveCount,
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go drv.Run(ctx)
	l.Info("driver_started", "host", host, "port", port, "quality", cfg.quality)

	cleanupMDNS, err := startMDNS(ctx, cfg)
	if err != nil {
		l.Warn("mdns_start_failed", "error", err)
	} else if cfg.mdnsEnable {
		l.Info("mdns_started", "service", mdnsServiceType, "name", cfg.mdnsName)
	}

	metrics.SetReadinessFunc(func() bool { return drv.State() == driver.Connected })
	var metricsSrv interface{ Shutdown(context.Context) error }
	if cfg.metricsAddr != "" {
		metrics.InitBuildInfo(version, commit, date)
		metricsSrv = metrics.StartHTTP(cfg.metricsAddr)
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigCh
	l.Info("shutdown_signal", "signal", s.String())

	cancel()
	cleanupMDNS()
	drv.Stop()
	if err := drv.Wait(); err != nil {
		l.Warn("driver_shutdown_timeout", "error", err)
	}
	if metricsSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer shutdownCancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
}
