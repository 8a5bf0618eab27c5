package tasks

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"cjw/internal/query"
	"cjw/internal/storage"
	"cjw/internal/storage/memory"
)

// countingRepo records Update calls and can be told to fail them.
type countingRepo struct {
	storage.TaskRepository
	updates int
	err     error
}

func (r *countingRepo) Update(ctx context.Context, id int64, p storage.TaskPatch) (*storage.Task, error) {
	r.updates++
	if r.err != nil {
		return nil, r.err
	}
	return r.TaskRepository.Update(ctx, id, p)
}

func newActions(t *testing.T, limit int) (*Actions, *countingRepo) {
	t.Helper()
	repo := &countingRepo{TaskRepository: memory.New().Tasks()}
	return NewActions(repo, query.NewClient(zerolog.Nop()), limit, zerolog.Nop()), repo
}

func mustCreate(t *testing.T, repo storage.TaskRepository, content string, status storage.TaskStatus) *storage.Task {
	t.Helper()
	task, err := repo.Create(context.Background(), storage.TaskInput{Content: content, Status: status})
	if err != nil {
		t.Fatalf("create %q: %v", content, err)
	}
	return task
}

func TestMoveToDoingRespectsLimit(t *testing.T) {
	ctx := context.Background()
	a, repo := newActions(t, 3)
	for _, c := range []string{"a", "b", "c"} {
		mustCreate(t, repo, c, storage.StatusDoing)
	}
	waiting := mustCreate(t, repo, "d", storage.StatusTodo)

	_, err := a.MoveToStatus(ctx, waiting.ID, storage.StatusDoing)
	if !errors.Is(err, storage.ErrConstraintViolation) {
		t.Fatalf("err=%v, want ErrConstraintViolation", err)
	}
	var le LimitError
	if !errors.As(err, &le) || le.Limit != 3 {
		t.Fatalf("err=%v, want LimitError{3}", err)
	}
	if repo.updates != 0 {
		t.Fatalf("repository was written %d times", repo.updates)
	}
	got, _ := repo.GetByID(ctx, waiting.ID)
	if got.Status != storage.StatusTodo {
		t.Fatalf("status=%s, want TODO", got.Status)
	}
}

func TestMoveToDoingBelowLimit(t *testing.T) {
	ctx := context.Background()
	a, repo := newActions(t, 3)
	mustCreate(t, repo, "a", storage.StatusDoing)
	mustCreate(t, repo, "b", storage.StatusDoing)
	waiting := mustCreate(t, repo, "c", storage.StatusTodo)

	moved, err := a.MoveToStatus(ctx, waiting.ID, storage.StatusDoing)
	if err != nil {
		t.Fatalf("MoveToStatus: %v", err)
	}
	if moved.Status != storage.StatusDoing {
		t.Fatalf("status=%s", moved.Status)
	}
	// Re-entering DOING while full is a no-op move, not a violation.
	if _, err := a.MoveToStatus(ctx, waiting.ID, storage.StatusDoing); err != nil {
		t.Fatalf("re-move: %v", err)
	}
}

func TestMoveRollsBackBoardOnFailure(t *testing.T) {
	ctx := context.Background()
	a, repo := newActions(t, 3)
	task := mustCreate(t, repo, "a", storage.StatusTodo)

	before, err := a.Board(ctx)
	if err != nil {
		t.Fatalf("Board: %v", err)
	}
	snapshot := make(Board, len(before))
	for s, col := range before {
		snapshot[s] = append([]storage.Task(nil), col...)
	}

	repo.err = errors.New("disk full")
	if _, err := a.MoveToStatus(ctx, task.ID, storage.StatusDone); !errors.Is(err, repo.err) {
		t.Fatalf("err=%v, want %v", err, repo.err)
	}

	after, ok := query.Get[Board](a.cache, BoardKey)
	if !ok {
		t.Fatalf("board missing from cache after rollback")
	}
	if !reflect.DeepEqual(after, snapshot) {
		t.Fatalf("board after rollback = %v, want %v", after, snapshot)
	}
}

func TestMoveUpdatesBoard(t *testing.T) {
	ctx := context.Background()
	a, repo := newActions(t, 3)
	task := mustCreate(t, repo, "ship it", storage.StatusTodo)
	if _, err := a.Board(ctx); err != nil {
		t.Fatalf("Board: %v", err)
	}

	if _, err := a.MoveToStatus(ctx, task.ID, storage.StatusDone); err != nil {
		t.Fatalf("MoveToStatus: %v", err)
	}
	b, err := a.Board(ctx)
	if err != nil {
		t.Fatalf("Board: %v", err)
	}
	if len(b[storage.StatusTodo]) != 0 || len(b[storage.StatusDone]) != 1 {
		t.Fatalf("board=%v", b)
	}
}

func TestMoveRejectsUnknownStatus(t *testing.T) {
	a, repo := newActions(t, 3)
	task := mustCreate(t, repo, "a", storage.StatusTodo)
	if _, err := a.MoveToStatus(context.Background(), task.ID, "LATER"); !errors.Is(err, storage.ErrValidation) {
		t.Fatalf("err=%v", err)
	}
}

func TestToggle(t *testing.T) {
	ctx := context.Background()
	a, repo := newActions(t, 3)
	task := mustCreate(t, repo, "a", storage.StatusInbox)

	got, err := a.Toggle(ctx, task.ID)
	if err != nil || got.Status != storage.StatusDone {
		t.Fatalf("first toggle: %v %v", got, err)
	}
	got, err = a.Toggle(ctx, task.ID)
	if err != nil || got.Status != storage.StatusTodo {
		t.Fatalf("second toggle: %v %v", got, err)
	}
	if _, err := a.Toggle(ctx, 999); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("toggle missing: %v", err)
	}
}

func TestCreateIntoDoingRespectsLimit(t *testing.T) {
	a, repo := newActions(t, 1)
	mustCreate(t, repo, "a", storage.StatusDoing)
	_, err := a.Create(context.Background(), storage.TaskInput{Content: "b", Status: storage.StatusDoing})
	if !errors.Is(err, storage.ErrConstraintViolation) {
		t.Fatalf("err=%v", err)
	}
}

func TestCreateInvalidatesBoard(t *testing.T) {
	ctx := context.Background()
	a, _ := newActions(t, 3)
	if _, err := a.Board(ctx); err != nil {
		t.Fatalf("Board: %v", err)
	}
	if _, err := a.Create(ctx, storage.TaskInput{Content: "new"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	b, _ := a.Board(ctx)
	if len(b[storage.StatusInbox]) != 1 {
		t.Fatalf("board not refreshed: %v", b)
	}
}

func TestToday(t *testing.T) {
	ctx := context.Background()
	a, _ := newActions(t, 3)
	today := "2026-03-10"
	other := "2026-03-11"
	for _, d := range []string{today, other, today} {
		d := d
		if _, err := a.Create(ctx, storage.TaskInput{Content: "x", DueDate: &d}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)
	got, err := a.Today(ctx, now)
	if err != nil || len(got) != 2 {
		t.Fatalf("Today=%v err=%v", got, err)
	}
}

func TestMoveOnBoardLeavesInputUntouched(t *testing.T) {
	b := Board{
		storage.StatusTodo: {{ID: 1, Status: storage.StatusTodo}},
		storage.StatusDone: {},
	}
	next := moveOnBoard(b, 1, storage.StatusDone)
	if len(b[storage.StatusTodo]) != 1 || b[storage.StatusTodo][0].Status != storage.StatusTodo {
		t.Fatalf("input mutated: %v", b)
	}
	if len(next[storage.StatusDone]) != 1 || next[storage.StatusDone][0].Status != storage.StatusDone {
		t.Fatalf("next=%v", next)
	}
}
