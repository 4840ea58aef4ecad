package metrics

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ObservePool samples pgx pool statistics into the connection gauges at
// the given interval until the context is cancelled. One sample is taken
// immediately so the gauges are populated before the first tick.
func ObservePool(ctx context.Context, pool *pgxpool.Pool, interval time.Duration) {
	sample := func() {
		stats := pool.Stat()
		DBPoolConnections.WithLabelValues("in_use").Set(float64(stats.AcquiredConns()))
		DBPoolConnections.WithLabelValues("idle").Set(float64(stats.IdleConns()))
		DBPoolConnections.WithLabelValues("max").Set(float64(stats.MaxConns()))
	}

	sample()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sample()
		case <-ctx.Done():
			return
		}
	}
}
