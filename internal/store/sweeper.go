package store

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is how often RunSweeper checks for stale sessions.
const DefaultSweepInterval = 5 * time.Minute

// CompletedRetention is how long a completed session is kept after its last
// update. The row rejects late replays of the branch buttons, so it outlives
// the pending ttl.
const CompletedRetention = 30 * 24 * time.Hour

// Sweep deletes unfinished sessions not updated within ttl and completed
// sessions past CompletedRetention, and returns how many went.
func Sweep(ctx context.Context, st SessionStore, ttl time.Duration) int64 {
	now := time.Now()
	retention := CompletedRetention
	if ttl > retention {
		retention = ttl
	}
	deleted, err := st.DeleteExpired(ctx, now.Add(-ttl), now.Add(-retention))
	if err != nil {
		if ctx.Err() != nil {
			slog.Debug("Session sweeper: context canceled during sweep", "error", err)
			return 0
		}
		slog.Error("Session sweeper failed to delete expired sessions", "error", err)
		return 0
	}
	if deleted > 0 {
		slog.Info("Session sweeper removed expired sessions", "count", deleted, "ttl", ttl, "retention", retention)
	}
	return deleted
}

// RunSweeper sweeps every interval until ctx is done. Sessions that never
// receive their next event are removed here. Each onTick func runs after a
// sweep with the tick time.
func RunSweeper(ctx context.Context, st SessionStore, ttl, interval time.Duration, onTick ...func(now time.Time)) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	slog.Info("Session sweeper started", "interval", interval, "ttl", ttl)

	for {
		select {
		case now := <-ticker.C:
			Sweep(ctx, st, ttl)
			for _, fn := range onTick {
				fn(now)
			}
		case <-ctx.Done():
			slog.Info("Session sweeper shutting down", "reason", ctx.Err())
			return
		}
	}
}
