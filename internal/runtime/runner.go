// Package runtime drives the reminder firer against persistent storage. The
// daemon and the TUI share it: a cron job polls on a fixed cadence and the
// wakeup scheduler fires exactly at the next due instant.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/sandeepkv93/plannerd/internal/firer"
	"github.com/sandeepkv93/plannerd/internal/model"
	"github.com/sandeepkv93/plannerd/internal/notify"
	"github.com/sandeepkv93/plannerd/internal/scheduler"
	"github.com/sandeepkv93/plannerd/internal/storage"
)

type Option func(*Runner)

func WithNotifier(n notify.Notifier) Option {
	return func(r *Runner) {
		if n != nil {
			r.notifier = n
		}
	}
}

// WithScheduler enables exact-time wakeups between polling ticks.
func WithScheduler(e *scheduler.Engine) Option {
	return func(r *Runner) { r.sched = e }
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.interval = d
		}
	}
}

type Runner struct {
	store    storage.Store
	firer    *firer.Firer
	notifier notify.Notifier
	sched    *scheduler.Engine
	logger   *zap.Logger
	now      func() time.Time
	interval time.Duration

	mu   sync.Mutex
	cron *cron.Cron
	wg   sync.WaitGroup
	stop chan struct{}
}

func New(store storage.Store, f *firer.Firer, opts ...Option) *Runner {
	r := &Runner{
		store:    store,
		firer:    f,
		notifier: notify.Noop{},
		logger:   zap.NewNop(),
		now:      time.Now,
		interval: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.firer == nil {
		r.firer = firer.New(firer.WithLogger(r.logger))
	}
	return r
}

// RunOnce ticks the firer over the pending reminders in storage, persists the
// outcome, delivers notifications and re-arms wakeups. Calls never overlap.
func (r *Runner) RunOnce(ctx context.Context, now time.Time) (firer.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending := false
	snapshot, err := r.store.ListReminders(ctx, storage.ReminderFilter{Fired: &pending})
	if err != nil {
		return firer.Result{}, fmt.Errorf("runtime: load reminders: %w", err)
	}

	res := r.firer.Tick(now, snapshot)
	var errs error
	// A fired record is only written once its successor is stored. On failure
	// the occurrence stays pending and the firer hands it back next tick.
	successors := make(map[string][]model.Reminder, len(res.Created))
	for _, rem := range res.Created {
		successors[rem.SeriesID] = append(successors[rem.SeriesID], rem)
	}
	for _, rem := range res.Fired {
		if err := r.persistFired(ctx, rem, successors[rem.SeriesID]); err != nil {
			errs = errors.Join(errs, err)
			if rerr := r.firer.Retry(rem.ID); rerr != nil {
				r.logger.Warn("retry not recorded", zap.String("reminder_id", rem.ID), zap.Error(rerr))
			}
			continue
		}
		if err := r.firer.AcknowledgeFired(rem.ID); err != nil {
			r.logger.Warn("acknowledge failed", zap.String("reminder_id", rem.ID), zap.Error(err))
		}
	}
	if n := len(r.firer.Pending()); n > 0 {
		r.logger.Warn("fires awaiting persistence", zap.Int("count", n))
	}
	for _, err := range res.Errors {
		r.logger.Error("reminder rule rejected", zap.Error(err))
	}

	for _, ev := range res.Events {
		if ev.Kind != firer.EventFired || ev.Redelivered {
			continue
		}
		n := notify.Notification{ReminderID: ev.ReminderID, Title: "Reminder", Body: ev.Title, At: ev.At}
		if err := r.notifier.Send(ctx, n); err != nil {
			r.logger.Warn("notification failed", zap.String("reminder_id", ev.ReminderID), zap.Error(err))
		}
	}

	if err := r.rearm(ctx, now); err != nil {
		errs = errors.Join(errs, err)
	}
	return res, errs
}

func (r *Runner) persistFired(ctx context.Context, fired model.Reminder, next []model.Reminder) error {
	if fired.IsRecurring {
		if err := storage.SaveAll(ctx, r.store, next); err != nil {
			return fmt.Errorf("save successor of %s: %w", fired.ID, err)
		}
	}
	if err := r.store.SaveReminder(ctx, fired); err != nil {
		return fmt.Errorf("save fired %s: %w", fired.ID, err)
	}
	return nil
}

// Rearm reloads pending reminders and schedules one wakeup per future fire
// time. Overdue reminders are left to the polling tick.
func (r *Runner) Rearm(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rearm(ctx, r.now())
}

func (r *Runner) rearm(ctx context.Context, now time.Time) error {
	if r.sched == nil {
		return nil
	}
	pending := false
	list, err := r.store.ListReminders(ctx, storage.ReminderFilter{Fired: &pending})
	if err != nil {
		return fmt.Errorf("runtime: load reminders: %w", err)
	}
	r.sched.Reset()
	for _, rem := range list {
		if !rem.FireAt.After(now) {
			continue
		}
		if err := r.sched.Schedule(scheduler.Wakeup{ReminderID: rem.ID, At: rem.FireAt}); err != nil {
			return fmt.Errorf("runtime: schedule %s: %w", rem.ID, err)
		}
	}
	r.logger.Debug("wakeups armed", zap.Int("count", r.sched.Len()))
	return nil
}

// Snooze moves a pending reminder to until and persists it. Snoozing a fired
// reminder stores a new one-shot follow-up and leaves the fired record alone.
func (r *Runner) Snooze(ctx context.Context, id string, until time.Time) (model.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rem, err := r.store.GetReminder(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.Reminder{}, &model.NotFoundError{Kind: "reminder", ID: id}
		}
		return model.Reminder{}, err
	}
	moved, err := r.firer.Snooze([]model.Reminder{rem}, id, until)
	if err != nil {
		return model.Reminder{}, err
	}
	if moved.ID != rem.ID {
		moved.CreatedAt = r.now()
	}
	if err := r.store.SaveReminder(ctx, moved); err != nil {
		return model.Reminder{}, err
	}
	return moved, r.rearm(ctx, r.now())
}

// Start runs an immediate tick, then keeps ticking on the polling interval and
// on every scheduler wakeup until Stop.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.cron != nil {
		r.mu.Unlock()
		return errors.New("runtime: already started")
	}
	r.cron = cron.New(cron.WithSeconds())
	r.stop = make(chan struct{})
	r.mu.Unlock()

	tick := func(source string) {
		if _, err := r.RunOnce(ctx, r.now()); err != nil {
			r.logger.Error("tick failed", zap.String("source", source), zap.Error(err))
		}
	}

	schedule := fmt.Sprintf("@every %ds", max(int(r.interval.Seconds()), 1))
	if _, err := r.cron.AddFunc(schedule, func() { tick("cron") }); err != nil {
		return fmt.Errorf("runtime: schedule polling: %w", err)
	}

	if r.sched != nil {
		r.sched.Start()
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			for {
				select {
				case _, ok := <-r.sched.C():
					if !ok {
						return
					}
					tick("wakeup")
				case <-r.stop:
					return
				}
			}
		}()
	}

	tick("start")
	r.cron.Start()
	r.logger.Info("reminder runtime started", zap.Duration("interval", r.interval))
	return nil
}

// Stop halts polling and wakeups, waiting for a running tick up to ctx.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	c := r.cron
	stop := r.stop
	r.cron = nil
	r.mu.Unlock()
	if c == nil {
		return nil
	}

	close(stop)
	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if r.sched != nil {
		r.sched.Stop()
	}
	r.wg.Wait()
	r.logger.Info("reminder runtime stopped")
	return nil
}
