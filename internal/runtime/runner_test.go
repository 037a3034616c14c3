package runtime

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sandeepkv93/plannerd/internal/firer"
	"github.com/sandeepkv93/plannerd/internal/model"
	"github.com/sandeepkv93/plannerd/internal/notify"
	"github.com/sandeepkv93/plannerd/internal/scheduler"
	"github.com/sandeepkv93/plannerd/internal/storage"
)

type collector struct {
	mu  sync.Mutex
	got []notify.Notification
	ch  chan notify.Notification
}

func newCollector() *collector {
	return &collector{ch: make(chan notify.Notification, 16)}
}

func (c *collector) Send(_ context.Context, n notify.Notification) error {
	c.mu.Lock()
	c.got = append(c.got, n)
	c.mu.Unlock()
	c.ch <- n
	return nil
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.got)
}

func openStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := storage.Open(storage.BackendBolt, filepath.Join(t.TempDir(), "runtime.db"), time.UTC)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunOnceFiresWeeklySeriesThreeTimes(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	start := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	if err := store.SaveReminder(ctx, model.Reminder{
		ID:          "standup",
		Title:       "Standup",
		FireAt:      start,
		IsRecurring: true,
		Recurrence:  model.Weekly{Days: []time.Weekday{time.Monday}},
		End:         model.AfterCount{Remaining: 3},
		CreatedAt:   start,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	sink := newCollector()
	f := firer.New()
	r := New(store, f, WithNotifier(sink))
	for week := 0; week < 4; week++ {
		now := start.AddDate(0, 0, 7*week)
		if _, err := r.RunOnce(ctx, now); err != nil {
			t.Fatalf("run once at %s: %v", now, err)
		}
		if _, err := r.RunOnce(ctx, now); err != nil {
			t.Fatalf("repeat run at %s: %v", now, err)
		}
	}

	if sink.count() != 3 {
		t.Fatalf("expected 3 notifications, got %d", sink.count())
	}
	all, err := store.ListReminders(ctx, storage.ReminderFilter{SeriesID: "standup"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 stored occurrences, got %d", len(all))
	}
	for _, rem := range all {
		if !rem.Fired {
			t.Fatalf("occurrence %s left unfired", rem.ID)
		}
	}
	if len(f.Pending()) != 0 {
		t.Fatalf("persisted fires must be acknowledged, pending=%v", f.Pending())
	}
}

func TestRunOnceArmsSchedulerForFutureReminders(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	now := time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC)
	for _, rem := range []model.Reminder{
		{ID: "past", FireAt: now.Add(-time.Minute)},
		{ID: "future", FireAt: now.Add(time.Hour)},
	} {
		if err := store.SaveReminder(ctx, rem); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	engine := scheduler.NewEngine(4)
	r := New(store, nil, WithScheduler(engine))
	if _, err := r.RunOnce(ctx, now); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if engine.Len() != 1 {
		t.Fatalf("expected one armed wakeup, got %d", engine.Len())
	}
}

func TestSnoozePersists(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	now := time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC)
	if err := store.SaveReminder(ctx, model.Reminder{ID: "p", FireAt: now.Add(time.Hour)}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	r := New(store, nil, WithClock(func() time.Time { return now }))
	moved, err := r.Snooze(ctx, "p", now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("snooze: %v", err)
	}
	got, err := store.GetReminder(ctx, "p")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if moved.ID != "p" || got.Fired || !got.FireAt.Equal(now.Add(2*time.Hour)) {
		t.Fatalf("snooze not persisted: %+v", got)
	}
	if _, err := r.Snooze(ctx, "missing", now); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSnoozeFiredOccurrenceAddsOneShot(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	start := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	if err := store.SaveReminder(ctx, model.Reminder{
		ID:          "standup",
		Title:       "Standup",
		FireAt:      start,
		IsRecurring: true,
		Recurrence:  model.Weekly{Days: []time.Weekday{time.Monday}},
		End:         model.AfterCount{Remaining: 3},
		CreatedAt:   start,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	r := New(store, firer.New(), WithClock(func() time.Time { return start }))
	if _, err := r.RunOnce(ctx, start); err != nil {
		t.Fatalf("run once: %v", err)
	}

	later := start.Add(10 * time.Minute)
	followUp, err := r.Snooze(ctx, "standup", later)
	if err != nil {
		t.Fatalf("snooze: %v", err)
	}
	if followUp.ID == "standup" || followUp.IsRecurring {
		t.Fatalf("expected a one-shot follow-up, got %+v", followUp)
	}
	history, err := store.GetReminder(ctx, "standup")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !history.Fired || !history.FireAt.Equal(start) {
		t.Fatalf("fired record changed: %+v", history)
	}

	res, err := r.RunOnce(ctx, later)
	if err != nil {
		t.Fatalf("run once after snooze: %v", err)
	}
	if len(res.Fired) != 1 || res.Fired[0].ID != followUp.ID || len(res.Created) != 0 {
		t.Fatalf("follow-up should fire alone: %+v", res)
	}

	pending := false
	open, err := store.ListReminders(ctx, storage.ReminderFilter{Fired: &pending})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(open) != 1 || !open[0].FireAt.Equal(start.AddDate(0, 0, 7)) {
		t.Fatalf("expected one pending occurrence on Jan 22, got %+v", open)
	}
	if end, ok := open[0].End.(model.AfterCount); !ok || end.Remaining != 2 {
		t.Fatalf("unexpected end rule on next occurrence: %#v", open[0].End)
	}
}

// flakyStore fails writes of pending or of fired reminders while failing is set.
type flakyStore struct {
	storage.Store
	failing   bool
	failFired bool
}

var errDiskFull = errors.New("disk full")

func (s *flakyStore) SaveReminder(ctx context.Context, rem model.Reminder) error {
	if s.failing && rem.Fired == s.failFired {
		return errDiskFull
	}
	return s.Store.SaveReminder(ctx, rem)
}

func TestRunOnceKeepsSeriesWhenSaveFails(t *testing.T) {
	cases := []struct {
		name      string
		failFired bool
	}{
		{name: "successor write fails", failFired: false},
		{name: "fired write fails", failFired: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			start := time.Date(2026, 2, 9, 7, 0, 0, 0, time.UTC)
			store := &flakyStore{Store: openStore(t), failFired: tc.failFired}
			if err := store.SaveReminder(ctx, model.Reminder{
				ID:          "s",
				Title:       "stretch",
				FireAt:      start,
				IsRecurring: true,
				Recurrence:  model.Daily{},
				CreatedAt:   start,
			}); err != nil {
				t.Fatalf("seed: %v", err)
			}

			sink := newCollector()
			r := New(store, firer.New(), WithNotifier(sink))
			store.failing = true
			if _, err := r.RunOnce(ctx, start); !errors.Is(err, errDiskFull) {
				t.Fatalf("expected write failure, got %v", err)
			}
			got, err := store.GetReminder(ctx, "s")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.Fired {
				t.Fatalf("occurrence must stay pending until its successor is stored: %+v", got)
			}

			store.failing = false
			if _, err := r.RunOnce(ctx, start); err != nil {
				t.Fatalf("retry run: %v", err)
			}
			if sink.count() != 1 {
				t.Fatalf("expected one notification, got %d", sink.count())
			}

			all, err := store.ListReminders(ctx, storage.ReminderFilter{})
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			pending := 0
			for _, rem := range all {
				if rem.ID == "s" && !rem.Fired {
					t.Fatalf("fired occurrence not persisted: %+v", rem)
				}
				if !rem.Fired {
					pending++
					if !rem.FireAt.Equal(start.AddDate(0, 0, 1)) {
						t.Fatalf("unexpected next occurrence: %+v", rem)
					}
				}
			}
			if len(all) != 2 || pending != 1 {
				t.Fatalf("expected history plus one pending occurrence, got %d records, %d pending", len(all), pending)
			}
		})
	}
}

func TestStartFiresOnWakeup(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	if err := store.SaveReminder(ctx, model.Reminder{ID: "soon", Title: "Stretch", FireAt: time.Now().Add(80 * time.Millisecond)}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	sink := newCollector()
	r := New(store, nil,
		WithNotifier(sink),
		WithScheduler(scheduler.NewEngine(8)),
		WithInterval(time.Hour))
	if err := r.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := r.Stop(stopCtx); err != nil {
			t.Errorf("stop: %v", err)
		}
	}()

	select {
	case n := <-sink.ch:
		if n.ReminderID != "soon" || n.Body != "Stretch" {
			t.Fatalf("unexpected notification: %+v", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for wakeup-driven fire")
	}
}
