package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"institute/portal/internal/config"
)

type NotificationPurger interface {
	PurgeNotifications(ctx context.Context, retention time.Duration) (int64, error)
}

// StartNotificationPurgeJob periodically removes read notifications older
// than the configured retention. It returns immediately; the loop stops
// when ctx is done.
func StartNotificationPurgeJob(ctx context.Context, cfg config.Config, purger NotificationPurger, log *zap.Logger) {
	if !cfg.NotificationPurgeEnabled {
		return
	}
	if log == nil {
		log = zap.NewNop()
	}
	if purger == nil {
		log.Info("notification purge job disabled: no purger configured")
		return
	}
	interval := cfg.NotificationPurgeInterval
	if interval <= 0 {
		interval = time.Hour
	}
	timeout := cfg.NotificationPurgeTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retention := cfg.NotificationRetention
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tickCtx, cancel := context.WithTimeout(ctx, timeout)
				deleted, err := purger.PurgeNotifications(tickCtx, retention)
				cancel()
				if err != nil {
					log.Error("notification purge job error", zap.Error(err))
					continue
				}
				if deleted > 0 {
					log.Info("notification purge job removed notifications", zap.Int64("deleted", deleted))
				}
			}
		}
	}()
}
