package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cjw/internal/storage"
)

type TaskRepo struct {
	db *sql.DB
}

const taskColumnsSQL = `id, content, status, due_date, scheduled_time, duration, important, urgent, created_at, updated_at`

func (r *TaskRepo) GetAll(ctx context.Context) ([]storage.Task, error) {
	return r.list(ctx, `SELECT `+taskColumnsSQL+` FROM tasks ORDER BY created_at DESC, id DESC`)
}

func (r *TaskRepo) GetByID(ctx context.Context, id int64) (*storage.Task, error) {
	return getTask(ctx, r.db, id)
}

func (r *TaskRepo) Create(ctx context.Context, in storage.TaskInput) (*storage.Task, error) {
	in, err := storage.NormalizeTaskInput(in)
	if err != nil {
		return nil, err
	}
	ts := formatTime(now())
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (content, status, due_date, scheduled_time, duration, important, urgent, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, in.Content, string(in.Status), nullString(in.DueDate), nullString(in.ScheduledTime), in.Duration,
		boolToInt(in.Important), boolToInt(in.Urgent), ts, ts)
	if err != nil {
		return nil, fmt.Errorf("task insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("task last insert id: %w", err)
	}
	return getTask(ctx, r.db, id)
}

func (r *TaskRepo) Update(ctx context.Context, id int64, p storage.TaskPatch) (*storage.Task, error) {
	var out *storage.Task
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		t, err := getTask(ctx, tx, id)
		if err != nil {
			return err
		}
		if t == nil {
			return storage.NotFound("task", id)
		}
		if err := storage.ApplyTaskPatch(t, p); err != nil {
			return err
		}
		t.UpdatedAt = now()
		if _, err := tx.ExecContext(ctx, `
			UPDATE tasks
			SET content = ?, status = ?, due_date = ?, scheduled_time = ?, duration = ?,
				important = ?, urgent = ?, updated_at = ?
			WHERE id = ?
		`, t.Content, string(t.Status), nullString(t.DueDate), nullString(t.ScheduledTime), t.Duration,
			boolToInt(t.Important), boolToInt(t.Urgent), formatTime(t.UpdatedAt), id); err != nil {
			return fmt.Errorf("task update: %w", err)
		}
		out, err = getTask(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *TaskRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("task delete: %w", err)
	}
	return expectAffected(res, "task", id)
}

func (r *TaskRepo) GetByStatus(ctx context.Context, status storage.TaskStatus) ([]storage.Task, error) {
	return r.list(ctx, `SELECT `+taskColumnsSQL+` FROM tasks WHERE status = ? ORDER BY created_at DESC, id DESC`, string(status))
}

func (r *TaskRepo) GetByDueDate(ctx context.Context, date string) ([]storage.Task, error) {
	return r.list(ctx, `SELECT `+taskColumnsSQL+` FROM tasks WHERE due_date = ? ORDER BY created_at DESC, id DESC`, date)
}

func (r *TaskRepo) CountByStatus(ctx context.Context, status storage.TaskStatus) (int, error) {
	row := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE status = ?`, string(status))
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("task count: %w", err)
	}
	return n, nil
}

func (r *TaskRepo) list(ctx context.Context, query string, args ...any) ([]storage.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("task list: %w", err)
	}
	defer rows.Close()

	var out []storage.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("task list rows: %w", err)
	}
	return out, nil
}

func getTask(ctx context.Context, q querier, id int64) (*storage.Task, error) {
	row := q.QueryRowContext(ctx, `SELECT `+taskColumnsSQL+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return t, err
}

func scanTask(row scanner) (*storage.Task, error) {
	var (
		t                  storage.Task
		status             string
		dueDate, schedTime sql.NullString
		important, urgent  int
		createdAt          string
		updatedAt          string
	)
	if err := row.Scan(&t.ID, &t.Content, &status, &dueDate, &schedTime, &t.Duration,
		&important, &urgent, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("task scan: %w", err)
	}
	t.Status = storage.TaskStatus(status)
	t.DueDate = stringPtr(dueDate)
	t.ScheduledTime = stringPtr(schedTime)
	t.Important = important != 0
	t.Urgent = urgent != 0

	var err error
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func expectAffected(res sql.Result, entity string, id any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", entity, err)
	}
	if n == 0 {
		return storage.NotFound(entity, id)
	}
	return nil
}
