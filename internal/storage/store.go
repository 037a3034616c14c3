// Package storage persists tasks and reminders for the hosts. The core
// packages never import it; hosts load a snapshot, hand it to the core and
// save whatever comes back.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sandeepkv93/plannerd/internal/model"
)

var ErrNotFound = errors.New("storage: not found")

type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendBolt   Backend = "bolt"
)

func (b Backend) IsValid() bool {
	switch b {
	case BackendSQLite, BackendBolt:
		return true
	default:
		return false
	}
}

type TaskFilter struct {
	Completed *bool
	Limit     int
	Offset    int
}

type ReminderFilter struct {
	SeriesID string
	Fired    *bool
	Limit    int
	Offset   int
}

// Store is implemented by every backend. Save methods upsert: the last write
// for an id wins.
type Store interface {
	GetTask(ctx context.Context, id string) (model.Task, error)
	SaveTask(ctx context.Context, in model.Task) error
	DeleteTask(ctx context.Context, id string) error
	ListTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error)

	GetReminder(ctx context.Context, id string) (model.Reminder, error)
	SaveReminder(ctx context.Context, in model.Reminder) error
	DeleteReminder(ctx context.Context, id string) error
	ListReminders(ctx context.Context, filter ReminderFilter) ([]model.Reminder, error)

	Close() error
}

// Open returns the backend named by backend, creating its file at path if
// needed. SQLite databases are migrated on open. Loaded instants are
// expressed in loc; nil means time.Local.
func Open(backend Backend, path string, loc *time.Location) (Store, error) {
	switch backend {
	case BackendSQLite, "":
		store, err := OpenSQLite(path, loc)
		if err != nil {
			return nil, err
		}
		if err := MigrateUp(store.db); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil
	case BackendBolt:
		return OpenBolt(path, loc)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", backend)
	}
}

// HasTask reports whether id is stored. Lookup failures count as present so
// callers picking a fresh id never overwrite a record.
func HasTask(ctx context.Context, s Store, id string) bool {
	_, err := s.GetTask(ctx, id)
	return !errors.Is(err, ErrNotFound)
}

// HasReminder is HasTask for reminders.
func HasReminder(ctx context.Context, s Store, id string) bool {
	_, err := s.GetReminder(ctx, id)
	return !errors.Is(err, ErrNotFound)
}

// SaveAll writes reminders one by one and stops at the first failure.
func SaveAll(ctx context.Context, s Store, reminders []model.Reminder) error {
	for _, rem := range reminders {
		if err := s.SaveReminder(ctx, rem); err != nil {
			return fmt.Errorf("save reminder %s: %w", rem.ID, err)
		}
	}
	return nil
}

func validateTask(in model.Task) error {
	if err := in.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	return nil
}

func validateReminder(in model.Reminder) error {
	if err := in.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	return nil
}

func matchesReminder(rem model.Reminder, f ReminderFilter) bool {
	if f.SeriesID != "" && rem.Series() != f.SeriesID {
		return false
	}
	if f.Fired != nil && rem.Fired != *f.Fired {
		return false
	}
	return true
}

func matchesTask(t model.Task, f TaskFilter) bool {
	return f.Completed == nil || t.Completed == *f.Completed
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func locationOrLocal(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}
