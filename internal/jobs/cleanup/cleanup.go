package cleanup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type notificationPruner interface {
	DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Job prunes read notifications past their retention. Unread records are
// never touched; the in-app log stays authoritative until the recipient has
// seen it.
type Job struct {
	store     notificationPruner
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

func New(store notificationPruner, retention, interval time.Duration, logger *zap.Logger) *Job {
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		store:     store,
		retention: retention,
		interval:  interval,
		now:       time.Now,
		logger:    logger,
	}
}

// Start runs the sweep on a ticker until ctx is done.
func (j *Job) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Warn("notification cleanup failed", zap.Error(err))
			}
		}
	}
}

func (j *Job) Run(ctx context.Context) error {
	if j.store == nil {
		return nil
	}

	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.store.DeleteReadOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune read notifications: %w", err)
	}
	if deleted > 0 {
		j.logger.Info("notification cleanup completed", zap.Int64("deleted", deleted))
	}
	return nil
}
