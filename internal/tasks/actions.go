// Package tasks holds the task use cases: quick-entry parsing and the
// board actions that sit between the UI and the task repository.
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"cjw/internal/query"
	"cjw/internal/storage"
)

const DefaultDoingLimit = 3

var (
	keyPrefix = query.KeyOf("tasks", "")
	BoardKey  = query.KeyOf("tasks", "board")
)

func dueKey(date string) query.Key { return query.KeyOf("tasks", "due", date) }

// LimitError is returned when a move would exceed the DOING cap.
type LimitError struct {
	Limit int
}

func (e LimitError) Error() string {
	return fmt.Sprintf("at most %d tasks can be in progress", e.Limit)
}

func (e LimitError) Is(target error) bool {
	return target == storage.ErrConstraintViolation
}

// Board groups tasks by status. Every kanban status has an entry.
type Board map[storage.TaskStatus][]storage.Task

type Actions struct {
	repo       storage.TaskRepository
	cache      *query.Client
	doingLimit int
	log        zerolog.Logger
}

func NewActions(repo storage.TaskRepository, cache *query.Client, doingLimit int, log zerolog.Logger) *Actions {
	if doingLimit <= 0 {
		doingLimit = DefaultDoingLimit
	}
	return &Actions{repo: repo, cache: cache, doingLimit: doingLimit, log: log}
}

func (a *Actions) DoingLimit() int { return a.doingLimit }

// Refresh drops cached task listings so the next read hits the repository.
func (a *Actions) Refresh() { a.cache.InvalidatePrefix(keyPrefix) }

func (a *Actions) Board(ctx context.Context) (Board, error) {
	return query.Fetch(ctx, a.cache, BoardKey, func(ctx context.Context) (Board, error) {
		all, err := a.repo.GetAll(ctx)
		if err != nil {
			return nil, err
		}
		b := make(Board, len(storage.KanbanStatuses))
		for _, s := range storage.KanbanStatuses {
			b[s] = []storage.Task{}
		}
		for _, t := range all {
			b[t.Status] = append(b[t.Status], t)
		}
		return b, nil
	})
}

// Today lists tasks due on now's calendar date.
func (a *Actions) Today(ctx context.Context, now time.Time) ([]storage.Task, error) {
	date := now.Format(storage.DateLayout)
	return query.Fetch(ctx, a.cache, dueKey(date), func(ctx context.Context) ([]storage.Task, error) {
		return a.repo.GetByDueDate(ctx, date)
	})
}

func (a *Actions) Create(ctx context.Context, in storage.TaskInput) (*storage.Task, error) {
	if in.Status == storage.StatusDoing {
		if err := a.checkDoingCap(ctx, 0); err != nil {
			return nil, err
		}
	}
	t, err := a.repo.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	a.cache.InvalidatePrefix(keyPrefix)
	a.log.Debug().Int64("id", t.ID).Str("status", string(t.Status)).Msg("task created")
	return t, nil
}

// Update applies a sparse patch. Status changes go through the DOING cap.
func (a *Actions) Update(ctx context.Context, id int64, p storage.TaskPatch) (*storage.Task, error) {
	if p.Status != nil && *p.Status == storage.StatusDoing {
		if err := a.checkDoingCap(ctx, id); err != nil {
			return nil, err
		}
	}
	t, err := a.repo.Update(ctx, id, p)
	if err != nil {
		return nil, err
	}
	a.cache.InvalidatePrefix(keyPrefix)
	return t, nil
}

func (a *Actions) Delete(ctx context.Context, id int64) error {
	if err := a.repo.Delete(ctx, id); err != nil {
		return err
	}
	a.cache.InvalidatePrefix(keyPrefix)
	a.log.Debug().Int64("id", id).Msg("task deleted")
	return nil
}

// MoveToStatus moves a task to another column. The board cache shows the
// move immediately and is rolled back if the write fails.
func (a *Actions) MoveToStatus(ctx context.Context, id int64, status storage.TaskStatus) (*storage.Task, error) {
	if !status.IsValid() {
		return nil, storage.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", status)}
	}
	if status == storage.StatusDoing {
		if err := a.checkDoingCap(ctx, id); err != nil {
			return nil, err
		}
	}

	t, err := query.Optimistic(ctx, a.cache, BoardKey,
		func(old Board) Board { return moveOnBoard(old, id, status) },
		func(ctx context.Context) (*storage.Task, error) {
			return a.repo.Update(ctx, id, storage.TaskPatch{Status: &status})
		})
	if err != nil {
		a.log.Warn().Err(err).Int64("id", id).Str("status", string(status)).Msg("move failed")
		return nil, err
	}
	a.cache.InvalidatePrefix(keyPrefix)
	return t, nil
}

// Toggle flips a task between done and not done. Undone tasks go back to TODO.
func (a *Actions) Toggle(ctx context.Context, id int64) (*storage.Task, error) {
	t, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, storage.NotFound("task", id)
	}
	next := storage.StatusDone
	if t.Status == storage.StatusDone {
		next = storage.StatusTodo
	}
	return a.MoveToStatus(ctx, id, next)
}

// checkDoingCap rejects a move into DOING when the column is full. A task
// already in DOING does not count against itself.
func (a *Actions) checkDoingCap(ctx context.Context, id int64) error {
	if id != 0 {
		t, err := a.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if t == nil {
			return storage.NotFound("task", id)
		}
		if t.Status == storage.StatusDoing {
			return nil
		}
	}
	n, err := a.repo.CountByStatus(ctx, storage.StatusDoing)
	if err != nil {
		return err
	}
	if n >= a.doingLimit {
		return LimitError{Limit: a.doingLimit}
	}
	return nil
}

// moveOnBoard returns a copy of b with task id moved to status. b is not modified.
func moveOnBoard(b Board, id int64, status storage.TaskStatus) Board {
	next := make(Board, len(b))
	var moved *storage.Task
	for s, col := range b {
		out := make([]storage.Task, 0, len(col))
		for _, t := range col {
			if t.ID == id {
				t := t
				moved = &t
				continue
			}
			out = append(out, t)
		}
		next[s] = out
	}
	if moved != nil {
		moved.Status = status
		next[status] = append(next[status], *moved)
	}
	return next
}
