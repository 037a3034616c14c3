package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/sandeepkv93/plannerd/internal/model"
)

var (
	tasksBucket     = []byte("tasks")
	remindersBucket = []byte("reminders")
)

// BoltStore keeps each record as a JSON document keyed by id, the same
// key-value layout the planner used before it had a relational schema.
type BoltStore struct {
	db  *bolt.DB
	loc *time.Location
}

func OpenBolt(path string, loc *time.Location) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{tasksBucket, remindersBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db, loc: locationOrLocal(loc)}, nil
}

func (s *BoltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *BoltStore) SaveTask(_ context.Context, in model.Task) error {
	if err := validateTask(in); err != nil {
		return err
	}
	return s.put(tasksBucket, in.ID, in)
}

func (s *BoltStore) GetTask(_ context.Context, id string) (model.Task, error) {
	var out model.Task
	if err := s.get(tasksBucket, id, &out); err != nil {
		return model.Task{}, err
	}
	return s.taskIn(out), nil
}

func (s *BoltStore) DeleteTask(_ context.Context, id string) error {
	return s.delete(tasksBucket, id)
}

func (s *BoltStore) ListTasks(_ context.Context, filter TaskFilter) ([]model.Task, error) {
	out := make([]model.Task, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(tasksBucket).ForEach(func(k, v []byte) error {
			var task model.Task
			if err := json.Unmarshal(v, &task); err != nil {
				return fmt.Errorf("decode task %s: %w", k, err)
			}
			if matchesTask(task, filter) {
				out = append(out, s.taskIn(task))
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return paginate(out, filter.Limit, filter.Offset), nil
}

func (s *BoltStore) SaveReminder(_ context.Context, in model.Reminder) error {
	if err := validateReminder(in); err != nil {
		return err
	}
	return s.put(remindersBucket, in.ID, in)
}

func (s *BoltStore) GetReminder(_ context.Context, id string) (model.Reminder, error) {
	var out model.Reminder
	if err := s.get(remindersBucket, id, &out); err != nil {
		return model.Reminder{}, err
	}
	return out.In(s.loc), nil
}

func (s *BoltStore) DeleteReminder(_ context.Context, id string) error {
	return s.delete(remindersBucket, id)
}

func (s *BoltStore) ListReminders(_ context.Context, filter ReminderFilter) ([]model.Reminder, error) {
	out := make([]model.Reminder, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(remindersBucket).ForEach(func(k, v []byte) error {
			var rem model.Reminder
			if err := json.Unmarshal(v, &rem); err != nil {
				return fmt.Errorf("decode reminder %s: %w", k, err)
			}
			if matchesReminder(rem, filter) {
				out = append(out, rem.In(s.loc))
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].FireAt.Equal(out[j].FireAt) {
			return out[i].FireAt.Before(out[j].FireAt)
		}
		return out[i].ID < out[j].ID
	})
	return paginate(out, filter.Limit, filter.Offset), nil
}

func (s *BoltStore) put(bucket []byte, id string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(id), payload)
	})
}

func (s *BoltStore) get(bucket []byte, id string, v any) error {
	return s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucket).Get([]byte(id))
		if raw == nil {
			return ErrNotFound
		}
		return json.Unmarshal(raw, v)
	})
}

func (s *BoltStore) delete(bucket []byte, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b.Get([]byte(id)) == nil {
			return ErrNotFound
		}
		return b.Delete([]byte(id))
	})
}

func (s *BoltStore) taskIn(t model.Task) model.Task {
	t.CreatedAt = t.CreatedAt.In(s.loc)
	if t.CompletedAt != nil {
		at := t.CompletedAt.In(s.loc)
		t.CompletedAt = &at
	}
	return t
}
