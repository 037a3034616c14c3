// Package firer turns a reminder snapshot into fire events and follow-up
// occurrences. It never touches storage: hosts pass the current snapshot to
// Tick and persist the records in the returned Result.
package firer

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sandeepkv93/plannerd/internal/model"
	"github.com/sandeepkv93/plannerd/internal/recurrence"
)

// maxSkipped bounds how many past occurrences a single tick will skip over.
const maxSkipped = 10000

type EventKind string

const (
	EventFired     EventKind = "fired"
	EventScheduled EventKind = "scheduled"
	EventEnded     EventKind = "ended"
	EventFailed    EventKind = "failed"
)

type Event struct {
	Kind       EventKind
	ReminderID string
	SeriesID   string
	Title      string
	At         time.Time
	Err        error
	// Redelivered marks a fire the host already announced once; it is
	// repeated only so the host can persist it.
	Redelivered bool
}

type Result struct {
	// Fired holds copies of the due records with Fired set.
	Fired []model.Reminder
	// Created holds the next occurrence of each recurring series that continues.
	Created []model.Reminder
	Events  []Event
	Errors  []error
}

// Changed returns every record the host has to persist.
func (r Result) Changed() []model.Reminder {
	out := make([]model.Reminder, 0, len(r.Fired)+len(r.Created))
	out = append(out, r.Fired...)
	return append(out, r.Created...)
}

type Option func(*Firer)

func WithIDGenerator(fn func() string) Option {
	return func(f *Firer) {
		if fn != nil {
			f.newID = fn
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(f *Firer) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithSkipMissed makes a firing series jump over occurrences that are already
// in the past instead of catching up one tick at a time. Skipped occurrences
// still consume an AfterCount.
func WithSkipMissed(skip bool) Option {
	return func(f *Firer) { f.skipMissed = skip }
}

type ledgerKey struct {
	id     string
	fireAt int64
}

type Firer struct {
	mu         sync.Mutex
	delivered  map[ledgerKey]struct{}
	retry      map[ledgerKey]struct{}
	successors map[ledgerKey]model.Reminder
	newID      func() string
	logger     *zap.Logger
	skipMissed bool
}

func New(opts ...Option) *Firer {
	f := &Firer{
		delivered:  make(map[ledgerKey]struct{}),
		retry:      make(map[ledgerKey]struct{}),
		successors: make(map[ledgerKey]model.Reminder),
		newID:      uuid.NewString,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Tick fires every reminder in snapshot that is due at now and has not been
// delivered by this firer for the same occurrence. The snapshot is not
// modified. Calling Tick again with the same snapshot fires nothing new.
func (f *Firer) Tick(now time.Time, snapshot []model.Reminder) Result {
	due := make([]model.Reminder, 0)
	for _, rem := range snapshot {
		if rem.Due(now) {
			due = append(due, rem)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		if !due[i].FireAt.Equal(due[j].FireAt) {
			return due[i].FireAt.Before(due[j].FireAt)
		}
		return due[i].ID < due[j].ID
	})

	f.mu.Lock()
	defer f.mu.Unlock()

	var res Result
	for _, rem := range due {
		key := ledgerKey{id: rem.ID, fireAt: rem.FireAt.UnixNano()}
		if _, seen := f.delivered[key]; seen {
			if _, again := f.retry[key]; !again {
				continue
			}
			delete(f.retry, key)
			f.fire(now, rem, &res, true)
			continue
		}
		f.delivered[key] = struct{}{}
		f.fire(now, rem, &res, false)
	}
	return res
}

func (f *Firer) fire(now time.Time, rem model.Reminder, res *Result, redelivered bool) {
	fired := rem
	fired.Fired = true
	if rem.IsRecurring && fired.SeriesID == "" {
		fired.SeriesID = rem.ID
	}
	res.Fired = append(res.Fired, fired)
	res.Events = append(res.Events, Event{
		Kind:        EventFired,
		ReminderID:  rem.ID,
		SeriesID:    fired.SeriesID,
		Title:       rem.Title,
		At:          rem.FireAt,
		Redelivered: redelivered,
	})
	f.logger.Info("reminder fired",
		zap.String("reminder_id", rem.ID),
		zap.String("title", rem.Title),
		zap.Time("fire_at", rem.FireAt),
		zap.Bool("redelivered", redelivered))

	if !rem.IsRecurring {
		return
	}

	key := ledgerKey{id: rem.ID, fireAt: rem.FireAt.UnixNano()}
	if prior, ok := f.successors[key]; ok && redelivered {
		f.schedule(prior, res)
		return
	}

	next, end, ok, err := f.successor(now, rem)
	if err != nil {
		res.Errors = append(res.Errors, err)
		res.Events = append(res.Events, Event{Kind: EventFailed, ReminderID: rem.ID, SeriesID: fired.SeriesID, Title: rem.Title, Err: err})
		f.logger.Warn("recurrence failed", zap.String("reminder_id", rem.ID), zap.Error(err))
		return
	}
	if !ok {
		res.Events = append(res.Events, Event{Kind: EventEnded, ReminderID: rem.ID, SeriesID: fired.SeriesID, Title: rem.Title, At: rem.FireAt})
		f.logger.Info("series ended", zap.String("series_id", fired.SeriesID))
		return
	}

	created := model.Reminder{
		ID:          f.newID(),
		Title:       rem.Title,
		FireAt:      next,
		IsRecurring: true,
		Recurrence:  rem.Recurrence,
		End:         end,
		SeriesID:    fired.SeriesID,
		TaskID:      rem.TaskID,
		CreatedAt:   now,
	}
	f.successors[key] = created
	f.schedule(created, res)
}

func (f *Firer) schedule(created model.Reminder, res *Result) {
	res.Created = append(res.Created, created)
	res.Events = append(res.Events, Event{
		Kind:       EventScheduled,
		ReminderID: created.ID,
		SeriesID:   created.SeriesID,
		Title:      created.Title,
		At:         created.FireAt,
	})
	f.logger.Debug("next occurrence scheduled",
		zap.String("reminder_id", created.ID),
		zap.Time("fire_at", created.FireAt))
}

// successor computes the occurrence after rem and the end rule it carries.
// ok is false when the series ends with rem.
func (f *Firer) successor(now time.Time, rem model.Reminder) (time.Time, model.EndRule, bool, error) {
	end := rem.EndRuleOrNever()
	next, err := recurrence.Next(rem.FireAt, rem.Recurrence)
	if err != nil {
		return time.Time{}, nil, false, err
	}
	for skipped := 0; ; skipped++ {
		if !recurrence.ShouldFireNext(end, next) {
			return time.Time{}, nil, false, nil
		}
		end = recurrence.Consume(end)
		if !f.skipMissed || next.After(now) || skipped >= maxSkipped {
			return next, end, true, nil
		}
		if next, err = recurrence.Next(next, rem.Recurrence); err != nil {
			return time.Time{}, nil, false, err
		}
	}
}

// AcknowledgeFired drops the delivery record for id once the host has
// persisted the fired state.
func (f *Firer) AcknowledgeFired(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	found := false
	for key := range f.delivered {
		if key.id == id {
			delete(f.delivered, key)
			delete(f.retry, key)
			delete(f.successors, key)
			found = true
		}
	}
	if !found {
		return &model.NotFoundError{Kind: "fired reminder", ID: id}
	}
	return nil
}

// Retry asks the next Tick to produce the fired record and successor for id
// again, as a redelivery, because the host could not persist them. The fire
// is not announced twice.
func (f *Firer) Retry(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	found := false
	for key := range f.delivered {
		if key.id == id {
			f.retry[key] = struct{}{}
			found = true
		}
	}
	if !found {
		return &model.NotFoundError{Kind: "fired reminder", ID: id}
	}
	return nil
}

// Pending lists fired reminder ids that have not been acknowledged.
func (f *Firer) Pending() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[string]struct{}, len(f.delivered))
	out := make([]string, 0, len(f.delivered))
	for key := range f.delivered {
		if _, ok := seen[key.id]; ok {
			continue
		}
		seen[key.id] = struct{}{}
		out = append(out, key.id)
	}
	sort.Strings(out)
	return out
}

// Snooze moves the pending occurrence of id to until. A reminder that already
// fired is history: it stays as it is and Snooze returns a new one-shot
// reminder at until instead, so a recurring series never gains an extra
// occurrence. The returned record is a copy; the snapshot is left untouched.
func (f *Firer) Snooze(snapshot []model.Reminder, id string, until time.Time) (model.Reminder, error) {
	if until.IsZero() {
		return model.Reminder{}, model.NewConfigurationError("fireAt", "snooze target is required")
	}
	for _, rem := range snapshot {
		if rem.ID != id {
			continue
		}
		if rem.Fired {
			return model.Reminder{
				ID:     f.newID(),
				Title:  rem.Title,
				FireAt: until,
				TaskID: rem.TaskID,
			}, nil
		}
		out := rem
		out.FireAt = until

		f.mu.Lock()
		for key := range f.delivered {
			if key.id == id {
				delete(f.delivered, key)
				delete(f.retry, key)
				delete(f.successors, key)
			}
		}
		f.mu.Unlock()
		return out, nil
	}
	return model.Reminder{}, &model.NotFoundError{Kind: "reminder", ID: id}
}
