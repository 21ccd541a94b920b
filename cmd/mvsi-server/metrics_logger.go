package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/multiversuskoth/mvsi-rollback-server/internal/obs"
)

func startMetricsLogger(ctx context.Context, interval time.Duration, l *slog.Logger, wg *sync.WaitGroup) {
	if interval <= 0 {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				snap := obs.Snap()
				l.Info("metrics_snapshot",
					"packets_rx", snap.PacketsRx,
					"packets_tx", snap.PacketsTx,
					"relayed", snap.Relayed,
					"hole_punches", snap.HolePunch,
					"errors", snap.Errors,
					"malformed", snap.Malformed,
				)
			case <-ctx.Done():
				return
			}
		}
	}()
}
