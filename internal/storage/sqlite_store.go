package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sandeepkv93/plannerd/internal/model"
)

const sqliteTimeLayout = time.RFC3339Nano

type SQLiteStore struct {
	db  *sql.DB
	loc *time.Location
}

func NewSQLiteStore(db *sql.DB, loc *time.Location) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &SQLiteStore{db: db, loc: locationOrLocal(loc)}, nil
}

func OpenSQLite(path string, loc *time.Location) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	store, err := NewSQLiteStore(db, loc)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// DB exposes the handle for migrations.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveTask(ctx context.Context, in model.Task) error {
	if err := validateTask(in); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tasks (id, title, completed, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			completed = excluded.completed,
			completed_at = excluded.completed_at`,
		in.ID, in.Title, boolInt(in.Completed), mustTime(in.CreatedAt), nullTime(in.CompletedAt),
	); err != nil {
		return fmt.Errorf("upsert task: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM task_dependencies WHERE task_id = ?`, in.ID); err != nil {
		return fmt.Errorf("clear dependencies: %w", err)
	}
	for i, dep := range in.Dependencies {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO task_dependencies (task_id, depends_on, position) VALUES (?, ?, ?)`,
			in.ID, dep, i,
		); err != nil {
			return fmt.Errorf("insert dependency: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetTask(ctx context.Context, id string) (model.Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, completed, created_at, completed_at FROM tasks WHERE id = ?`, id)
	task, err := s.scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Task{}, ErrNotFound
		}
		return model.Task{}, err
	}
	deps, err := s.dependencies(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	task.Dependencies = deps[id]
	return task, nil
}

func (s *SQLiteStore) DeleteTask(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM task_dependencies WHERE task_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := checkRowsAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	query := `SELECT id, title, completed, created_at, completed_at FROM tasks`
	args := make([]any, 0, 3)
	if filter.Completed != nil {
		query += ` WHERE completed = ?`
		args = append(args, boolInt(*filter.Completed))
	}
	query += ` ORDER BY created_at ASC, id ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	out := make([]model.Task, 0)
	for rows.Next() {
		task, scanErr := s.scanTask(rows)
		if scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		out = append(out, task)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	deps, err := s.dependencies(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Dependencies = deps[out[i].ID]
	}
	return out, nil
}

// dependencies loads prerequisite lists keyed by task id, for one task or all
// of them when id is empty.
func (s *SQLiteStore) dependencies(ctx context.Context, id string) (map[string][]string, error) {
	query := `SELECT task_id, depends_on FROM task_dependencies`
	args := make([]any, 0, 1)
	if id != "" {
		query += ` WHERE task_id = ?`
		args = append(args, id)
	}
	query += ` ORDER BY task_id, position`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var taskID, dep string
		if err := rows.Scan(&taskID, &dep); err != nil {
			return nil, err
		}
		out[taskID] = append(out[taskID], dep)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveReminder(ctx context.Context, in model.Reminder) error {
	if err := validateReminder(in); err != nil {
		return err
	}
	rule, end, err := encodeRules(in)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reminders (id, title, fire_at, is_recurring, recurrence_rule, end_rule, fired, series_id, task_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			fire_at = excluded.fire_at,
			is_recurring = excluded.is_recurring,
			recurrence_rule = excluded.recurrence_rule,
			end_rule = excluded.end_rule,
			fired = excluded.fired,
			series_id = excluded.series_id,
			task_id = excluded.task_id`,
		in.ID, in.Title, mustTime(in.FireAt), boolInt(in.IsRecurring), rule, end,
		boolInt(in.Fired), in.SeriesID, nullString(in.TaskID), mustTime(in.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert reminder: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetReminder(ctx context.Context, id string) (model.Reminder, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, fire_at, is_recurring, recurrence_rule, end_rule, fired, series_id, task_id, created_at
		FROM reminders WHERE id = ?`, id)
	rem, err := s.scanReminder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Reminder{}, ErrNotFound
		}
		return model.Reminder{}, err
	}
	return rem, nil
}

func (s *SQLiteStore) DeleteReminder(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (s *SQLiteStore) ListReminders(ctx context.Context, filter ReminderFilter) ([]model.Reminder, error) {
	query := `SELECT id, title, fire_at, is_recurring, recurrence_rule, end_rule, fired, series_id, task_id, created_at FROM reminders`
	where := make([]string, 0, 2)
	args := make([]any, 0, 5)
	if filter.SeriesID != "" {
		where = append(where, `(series_id = ? OR (series_id = '' AND id = ?))`)
		args = append(args, filter.SeriesID, filter.SeriesID)
	}
	if filter.Fired != nil {
		where = append(where, `fired = ?`)
		args = append(args, boolInt(*filter.Fired))
	}
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY fire_at ASC, id ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Reminder, 0)
	for rows.Next() {
		rem, scanErr := s.scanReminder(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, rem)
	}
	return out, rows.Err()
}

func encodeRules(in model.Reminder) (any, any, error) {
	var rule, end any
	if in.Recurrence != nil {
		raw, err := model.MarshalRecurrence(in.Recurrence)
		if err != nil {
			return nil, nil, err
		}
		rule = string(raw)
	}
	if in.End != nil {
		raw, err := model.MarshalEndRule(in.End)
		if err != nil {
			return nil, nil, err
		}
		end = string(raw)
	}
	return rule, end, nil
}

func nullTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC().Format(sqliteTimeLayout)
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

func (s *SQLiteStore) parseNullableTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	tm, err := s.parseRequiredTime(v.String)
	if err != nil {
		return nil, err
	}
	return &tm, nil
}

func (s *SQLiteStore) parseRequiredTime(v string) (time.Time, error) {
	tm, err := time.Parse(sqliteTimeLayout, v)
	if err != nil {
		return time.Time{}, err
	}
	return tm.In(s.loc), nil
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func applyPagination(args *[]any, limit, offset int) string {
	sql := ""
	if limit > 0 {
		sql += " LIMIT ?"
		*args = append(*args, limit)
	} else if offset > 0 {
		sql += " LIMIT -1"
	}
	if offset > 0 {
		sql += " OFFSET ?"
		*args = append(*args, offset)
	}
	return sql
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *SQLiteStore) scanTask(sc scanner) (model.Task, error) {
	var out model.Task
	var completed int
	var created string
	var completedAt sql.NullString
	if err := sc.Scan(&out.ID, &out.Title, &completed, &created, &completedAt); err != nil {
		return model.Task{}, err
	}
	createdAt, err := s.parseRequiredTime(created)
	if err != nil {
		return model.Task{}, err
	}
	doneAt, err := s.parseNullableTime(completedAt)
	if err != nil {
		return model.Task{}, err
	}
	out.Completed = completed == 1
	out.CreatedAt = createdAt
	out.CompletedAt = doneAt
	return out, nil
}

func (s *SQLiteStore) scanReminder(sc scanner) (model.Reminder, error) {
	var out model.Reminder
	var fireAt, created string
	var recurring, fired int
	var rule, end, taskID sql.NullString
	if err := sc.Scan(&out.ID, &out.Title, &fireAt, &recurring, &rule, &end, &fired, &out.SeriesID, &taskID, &created); err != nil {
		return model.Reminder{}, err
	}
	at, err := s.parseRequiredTime(fireAt)
	if err != nil {
		return model.Reminder{}, err
	}
	createdAt, err := s.parseRequiredTime(created)
	if err != nil {
		return model.Reminder{}, err
	}
	if rule.Valid {
		if out.Recurrence, err = model.UnmarshalRecurrence([]byte(rule.String)); err != nil {
			return model.Reminder{}, fmt.Errorf("decode recurrence of %s: %w", out.ID, err)
		}
	}
	if end.Valid {
		if out.End, err = model.UnmarshalEndRule([]byte(end.String)); err != nil {
			return model.Reminder{}, fmt.Errorf("decode end rule of %s: %w", out.ID, err)
		}
	}
	out.FireAt = at
	out.CreatedAt = createdAt
	out.IsRecurring = recurring == 1
	out.Fired = fired == 1
	out.TaskID = taskID.String
	return out.In(s.loc), nil
}

func checkRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
