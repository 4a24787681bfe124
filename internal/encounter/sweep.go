package encounter

import (
	"context"
	"log/slog"
	"time"
)

// StartSweeper runs a background goroutine that periodically prunes the
// session store and history cache, plus any extra prune hooks (e.g. the
// rate-limiter map). Lazy read-time expiry already keeps reads correct; the
// sweep bounds memory for sessions nobody reads again.
func StartSweeper(ctx context.Context, interval time.Duration, sessions *SessionStore, history *History, extra ...func()) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session sweeper started", "interval", interval)

		for {
			select {
			case <-ticker.C:
				prunedSessions := sessions.PruneExpired()
				prunedHistory := 0
				if history != nil {
					prunedHistory = history.Prune()
				}
				for _, fn := range extra {
					fn()
				}
				if prunedSessions > 0 || prunedHistory > 0 {
					slog.Info("Sweep completed",
						"sessions_pruned", prunedSessions,
						"history_pruned", prunedHistory)
				}
			case <-ctx.Done():
				slog.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
