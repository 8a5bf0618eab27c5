package ui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"cjw/internal/config"
	"cjw/internal/query"
	"cjw/internal/storage"
	"cjw/internal/storage/memory"
	"cjw/internal/tasks"
)

func testConfig() config.Config {
	return config.Config{
		DoingLimit: 1,
		Keys: config.Keymap{
			Quit: "q", Add: "a", Up: "k", Down: "j", Left: "h", Right: "l",
			MoveLeft: "H", MoveRight: "L", Toggle: " ", Delete: "d",
			Confirm: "enter", Cancel: "esc", Refresh: "r", Today: "t",
		},
	}
}

func newModel(t *testing.T) (Model, storage.TaskRepository) {
	t.Helper()
	repo := memory.New().Tasks()
	actions := tasks.NewActions(repo, query.NewClient(zerolog.Nop()), 1, zerolog.Nop())
	m := NewModel(context.Background(), actions, tasks.NewInputService(zerolog.Nop()), testConfig())
	m.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }
	return m, repo
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func TestAddTaskThroughInput(t *testing.T) {
	m, repo := newModel(t)
	m = press(t, m, "a")
	if m.mode != modeAdd {
		t.Fatalf("mode=%v, want add", m.mode)
	}
	m.input.SetValue("buy milk tomorrow")
	m = press(t, m, "enter")

	all, _ := repo.GetAll(context.Background())
	if len(all) != 1 || all[0].Content != "buy milk" {
		t.Fatalf("tasks=%+v", all)
	}
	if all[0].Status != storage.StatusTodo {
		t.Fatalf("dated task should land in TODO, got %s", all[0].Status)
	}
	if got := m.board[storage.StatusTodo]; len(got) != 1 {
		t.Fatalf("board not reloaded: %v", m.board)
	}
	if m.col != statusIndex(storage.StatusTodo) {
		t.Fatalf("cursor not on new task column: %d", m.col)
	}
}

func TestMoveRightHitsDoingLimit(t *testing.T) {
	ctx := context.Background()
	m, repo := newModel(t)
	if _, err := repo.Create(ctx, storage.TaskInput{Content: "busy", Status: storage.StatusDoing}); err != nil {
		t.Fatal(err)
	}
	waiting, err := repo.Create(ctx, storage.TaskInput{Content: "next", Status: storage.StatusTodo})
	if err != nil {
		t.Fatal(err)
	}
	m.actions.Refresh()
	m.reload()

	m = press(t, m, "l", "L")
	if !strings.Contains(m.status, "full") {
		t.Fatalf("status=%q", m.status)
	}
	got, _ := repo.GetByID(ctx, waiting.ID)
	if got.Status != storage.StatusTodo {
		t.Fatalf("task moved despite the limit: %s", got.Status)
	}
}

func TestToggleAndDelete(t *testing.T) {
	ctx := context.Background()
	m, repo := newModel(t)
	task, _ := repo.Create(ctx, storage.TaskInput{Content: "inbox item"})
	m.actions.Refresh()
	m.reload()

	m = press(t, m, " ")
	got, _ := repo.GetByID(ctx, task.ID)
	if got.Status != storage.StatusDone {
		t.Fatalf("status=%s after toggle", got.Status)
	}
	if m.col != statusIndex(storage.StatusDone) {
		t.Fatalf("cursor did not follow task: col=%d", m.col)
	}

	m = press(t, m, "d", "n")
	if all, _ := repo.GetAll(ctx); len(all) != 1 {
		t.Fatalf("cancelled delete removed the task")
	}
	m = press(t, m, "d", "y")
	if all, _ := repo.GetAll(ctx); len(all) != 0 {
		t.Fatalf("task not deleted")
	}
	if !strings.Contains(m.View(), "(empty)") {
		t.Fatalf("view should show empty columns")
	}
}

func TestTodayView(t *testing.T) {
	ctx := context.Background()
	m, repo := newModel(t)
	today := "2026-03-10"
	if _, err := repo.Create(ctx, storage.TaskInput{Content: "standup", DueDate: &today}); err != nil {
		t.Fatal(err)
	}
	m.actions.Refresh()
	m = press(t, m, "t")
	if !m.showToday || len(m.today) != 1 {
		t.Fatalf("today=%v", m.today)
	}
	if !strings.Contains(m.View(), "standup") {
		t.Fatalf("view missing today task")
	}
}

func TestQuit(t *testing.T) {
	m, _ := newModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected QuitMsg")
	}
}
