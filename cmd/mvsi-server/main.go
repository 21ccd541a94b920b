package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/multiversuskoth/mvsi-rollback-server/internal/obs"
	"github.com/multiversuskoth/mvsi-rollback-server/internal/registry"
	"github.com/multiversuskoth/mvsi-rollback-server/internal/session"
)

// Helper implementations moved to dedicated files: version.go, config.go, logger.go, mdns.go, metrics_logger.go.

const shutdownGrace = 5 * time.Second

func main() {
	cfg, showVersion := parseFlags()
	if showVersion {
		fmt.Printf("mvsi-server %s (commit %s, built %s)\n", version, commit, date)
		return
	}
	if cfg == nil {
		os.Exit(1)
	}
	l := setupLogger(cfg.logFormat, cfg.logLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup
	startMetricsLogger(ctx, cfg.logMetricsEvery, l, &wg)

	reg := registry.New(cfg.registryURL)
	sess := session.NewSession(
		session.WithListenAddr(cfg.listenAddr),
		session.WithRegistry(reg),
		session.WithLogger(l),
	)

	go func() {
		if err := sess.Serve(ctx); err != nil {
			l.Error("udp_server_error", "error", err)
			cancel()
		}
	}()

	go func() {
		if !cfg.mdnsEnable {
			return
		}
		select {
		case <-sess.Ready():
		case <-ctx.Done():
			return
		}
		portNum := portFromAddr(sess.Addr())
		cleanupMDNS, err := startMDNS(ctx, cfg, portNum)
		if err != nil {
			l.Warn("mdns_start_failed", "error", err)
			return
		}
		l.Info("mdns_started", "service", mdnsServiceType, "name", cfg.mdnsName, "port", portNum)
		go func() { <-ctx.Done(); cleanupMDNS() }()
	}()

	obs.SetReadinessFunc(func() bool {
		return sess.IsReady() && ctx.Err() == nil
	})
	if cfg.metricsAddr != "" {
		obs.InitBuildInfo(version, commit, date)
		srvHTTP := obs.StartHTTP(cfg.metricsAddr)
		defer func() { _ = srvHTTP.Shutdown(context.Background()) }()
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigCh
	l.Info("shutdown_signal", "signal", s.String())
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer shutdownCancel()
	if err := sess.Shutdown(shutdownCtx); err != nil {
		l.Warn("shutdown_incomplete", "error", err)
	}
	wg.Wait()
}
