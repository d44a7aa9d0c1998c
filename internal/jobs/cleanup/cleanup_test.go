package cleanup

import (
	"context"
	"testing"
	"time"
)

func TestRunPrunesReadNotificationsPastRetention(t *testing.T) {
	now := time.Date(2026, time.September, 1, 12, 0, 0, 0, time.UTC)

	pruner := &fakeNotificationPruner{
		records: []notificationRow{
			{Read: true, CreatedAt: now.Add(-91 * 24 * time.Hour)},
			{Read: true, CreatedAt: now.Add(-89 * 24 * time.Hour)},
			{Read: false, CreatedAt: now.Add(-200 * 24 * time.Hour)},
		},
	}

	job := New(pruner, 90*24*time.Hour, time.Hour, nil)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run cleanup job: %v", err)
	}

	if len(pruner.records) != 2 {
		t.Fatalf("expected one pruned record, %d remain", len(pruner.records))
	}
	for _, rec := range pruner.records {
		if !rec.Read && rec.CreatedAt.Before(now.Add(-90*24*time.Hour)) {
			continue
		}
		if rec.Read && rec.CreatedAt.Before(now.Add(-90*24*time.Hour)) {
			t.Fatalf("old read notification survived the sweep: %+v", rec)
		}
	}
}

func TestRunLeavesUnreadRecordsUntouched(t *testing.T) {
	now := time.Date(2026, time.September, 1, 12, 0, 0, 0, time.UTC)

	pruner := &fakeNotificationPruner{
		records: []notificationRow{
			{Read: false, CreatedAt: now.Add(-400 * 24 * time.Hour)},
		},
	}

	job := New(pruner, 90*24*time.Hour, time.Hour, nil)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run cleanup job: %v", err)
	}

	if len(pruner.records) != 1 {
		t.Fatalf("unread records must never be pruned")
	}
}

type notificationRow struct {
	Read      bool
	CreatedAt time.Time
}

type fakeNotificationPruner struct {
	records []notificationRow
}

func (f *fakeNotificationPruner) DeleteReadOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	var kept []notificationRow
	var deleted int64
	for _, rec := range f.records {
		if rec.Read && rec.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	f.records = kept
	return deleted, nil
}
