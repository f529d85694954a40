package repo

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// StartSessionCleaner purges expired sessions every interval until ctx is done.
func StartSessionCleaner(ctx context.Context, r SessionRepository, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.Purge(ctx)
			if err != nil {
				logger.Error("failed to purge expired sessions", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("purged expired sessions", zap.Int("count", n))
			}
		}
	}
}
