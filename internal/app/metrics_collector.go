package app

import (
	"context"
	"time"

	"rider.badgertransit.org/internal/metrics"
)

// StartMetricsCollection pings every configured backend on
// backend.ping_interval until ctx is done.
func (app *Application) StartMetricsCollection(ctx context.Context) {
	if len(app.backends) == 0 {
		return
	}

	ticker := time.NewTicker(app.Config.Backend.PingInterval)
	go func() {
		defer ticker.Stop()
		app.CollectBackendStatus(ctx)
		for {
			select {
			case <-ctx.Done():
				app.Logger.Info("Stopping metrics collection")
				return
			case <-ticker.C:
				app.CollectBackendStatus(ctx)
			}
		}
	}()
}

// CollectBackendStatus pings each backend once and returns how many answered.
func (app *Application) CollectBackendStatus(ctx context.Context) int {
	up := 0
	for _, b := range app.backends {
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		ok := metrics.BackendPing(pingCtx, b.name, b.baseURL, b.pinger)
		cancel()
		if ok {
			up++
		} else {
			app.Logger.Warn("Backend unreachable", "backend", b.name, "base_url", b.baseURL)
		}
	}
	return up
}
