package memory

import (
	"cmp"
	"context"
	"slices"

	"cjw/internal/storage"
)

type taskRepo struct{ s *Store }

func (r taskRepo) GetAll(ctx context.Context) ([]storage.Task, error) {
	return r.filter(func(storage.Task) bool { return true }), nil
}

func (r taskRepo) GetByID(ctx context.Context, id int64) (*storage.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return nil, nil
	}
	t := storage.CloneTask(r.s.tasks[i])
	return &t, nil
}

func (r taskRepo) Create(ctx context.Context, in storage.TaskInput) (*storage.Task, error) {
	in, err := storage.NormalizeTaskInput(in)
	if err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextTaskID++
	ts := now()
	t := storage.CloneTask(storage.Task{
		ID:            r.s.nextTaskID,
		Content:       in.Content,
		Status:        in.Status,
		DueDate:       in.DueDate,
		ScheduledTime: in.ScheduledTime,
		Duration:      in.Duration,
		Important:     in.Important,
		Urgent:        in.Urgent,
		CreatedAt:     ts,
		UpdatedAt:     ts,
	})
	r.s.tasks = append(r.s.tasks, t)
	out := storage.CloneTask(t)
	return &out, nil
}

func (r taskRepo) Update(ctx context.Context, id int64, p storage.TaskPatch) (*storage.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return nil, storage.NotFound("task", id)
	}
	t := storage.CloneTask(r.s.tasks[i])
	if err := storage.ApplyTaskPatch(&t, p); err != nil {
		return nil, err
	}
	t.UpdatedAt = now()
	r.s.tasks[i] = t
	out := storage.CloneTask(t)
	return &out, nil
}

func (r taskRepo) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return storage.NotFound("task", id)
	}
	r.s.tasks = slices.Delete(r.s.tasks, i, i+1)
	return nil
}

func (r taskRepo) GetByStatus(ctx context.Context, status storage.TaskStatus) ([]storage.Task, error) {
	return r.filter(func(t storage.Task) bool { return t.Status == status }), nil
}

func (r taskRepo) GetByDueDate(ctx context.Context, date string) ([]storage.Task, error) {
	return r.filter(func(t storage.Task) bool { return t.DueDate != nil && *t.DueDate == date }), nil
}

func (r taskRepo) CountByStatus(ctx context.Context, status storage.TaskStatus) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, t := range r.s.tasks {
		if t.Status == status {
			n++
		}
	}
	return n, nil
}

func (r taskRepo) index(id int64) int {
	return slices.IndexFunc(r.s.tasks, func(t storage.Task) bool { return t.ID == id })
}

func (r taskRepo) filter(keep func(storage.Task) bool) []storage.Task {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []storage.Task
	for _, t := range r.s.tasks {
		if keep(t) {
			out = append(out, storage.CloneTask(t))
		}
	}
	slices.SortStableFunc(out, func(a, b storage.Task) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out
}
