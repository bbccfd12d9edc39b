package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"institute/portal/internal/config"
)

type fakePurger struct {
	calls     atomic.Int32
	retention atomic.Int64
	err       error
	done      chan struct{}
}

func (p *fakePurger) PurgeNotifications(_ context.Context, retention time.Duration) (int64, error) {
	p.retention.Store(int64(retention))
	if p.calls.Add(1) == 2 {
		close(p.done)
	}
	return 3, p.err
}

func TestPurgeJobRunsOnEveryTick(t *testing.T) {
	for name, purgeErr := range map[string]error{"ok": nil, "error": errors.New("db down")} {
		purger := &fakePurger{err: purgeErr, done: make(chan struct{})}
		ctx, cancel := context.WithCancel(context.Background())

		StartNotificationPurgeJob(ctx, config.Config{
			NotificationPurgeEnabled:  true,
			NotificationPurgeInterval: 5 * time.Millisecond,
			NotificationRetention:     48 * time.Hour,
		}, purger, zap.NewNop())

		select {
		case <-purger.done:
		case <-time.After(2 * time.Second):
			cancel()
			t.Fatalf("%s: job did not tick twice", name)
		}
		cancel()
		if got := time.Duration(purger.retention.Load()); got != 48*time.Hour {
			t.Fatalf("%s: expected 48h retention, got %s", name, got)
		}
	}
}

func TestPurgeJobDisabled(t *testing.T) {
	purger := &fakePurger{done: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	StartNotificationPurgeJob(ctx, config.Config{NotificationPurgeInterval: time.Millisecond}, purger, nil)
	time.Sleep(20 * time.Millisecond)
	if purger.calls.Load() != 0 {
		t.Fatalf("disabled job should not run")
	}
}
