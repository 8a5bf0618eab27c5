package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"cjw/internal/config"
	"cjw/internal/storage"
	"cjw/internal/tasks"
)

type mode int

const (
	modeBoard mode = iota
	modeAdd
)

type Model struct {
	ctx     context.Context
	actions *tasks.Actions
	parser  *tasks.InputService
	cfg     config.Config
	now     func() time.Time

	board      tasks.Board
	today      []storage.Task
	showToday  bool
	col        int
	row        int
	mode       mode
	input      textinput.Model
	status     string
	confirmDel bool
	pendingDel *storage.Task
	width      int
}

func NewModel(ctx context.Context, actions *tasks.Actions, parser *tasks.InputService, cfg config.Config) Model {
	ti := textinput.New()
	ti.Placeholder = "buy milk tomorrow 5pm !"
	ti.CharLimit = 256
	ti.Width = 40

	m := Model{
		ctx:       ctx,
		actions:   actions,
		parser:    parser,
		cfg:       cfg,
		now:       time.Now,
		input:     ti,
		mode:      modeBoard,
		showToday: strings.ToLower(cfg.DefaultFilter) == "today",
		status:    fmt.Sprintf("Press '%s' to add, %s/%s to move a task, '%s' to toggle.", cfg.Keys.Add, cfg.Keys.MoveLeft, cfg.Keys.MoveRight, keyName(cfg.Keys.Toggle)),
	}
	m.reload()
	return m
}

func Run(ctx context.Context, actions *tasks.Actions, parser *tasks.InputService, cfg config.Config) error {
	program := tea.NewProgram(NewModel(ctx, actions, parser, cfg), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.confirmDel {
			return m.updateDeleteConfirm(msg.String())
		}
		if m.mode == modeAdd {
			return m.updateAddMode(msg.String(), msg)
		}
		return m.updateBoardMode(msg.String())
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - 10
	}
	return m, nil
}

func (m Model) updateAddMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel:
		m.mode = modeBoard
		m.input.SetValue("")
		m.input.Blur()
		m.status = "Cancelled"
		return m, nil
	case m.cfg.Keys.Confirm:
		raw := strings.TrimSpace(m.input.Value())
		parsed := m.parser.Parse(raw, m.now())
		if parsed.Content == "" {
			m.status = "Task cannot be empty"
			return m, nil
		}
		t, err := m.actions.Create(m.ctx, tasks.BuildCreateInput(parsed, tasks.Overrides{}))
		if err != nil {
			m.status = errorText("save failed", err)
			return m, nil
		}
		m.reload()
		m.focusTask(t.ID)
		m.status = "Added " + TaskLine(*t)
		m.input.SetValue("")
		m.input.Blur()
		m.mode = modeBoard
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m Model) updateBoardMode(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "ctrl+c", m.cfg.Keys.Quit:
		return m, tea.Quit
	case m.cfg.Keys.Down, "down":
		m.row = clampCursor(m.row+1, len(m.column()))
	case m.cfg.Keys.Up, "up":
		m.row = clampCursor(m.row-1, len(m.column()))
	case m.cfg.Keys.Left, "left":
		if !m.showToday && m.col > 0 {
			m.col--
			m.row = clampCursor(m.row, len(m.column()))
		}
	case m.cfg.Keys.Right, "right":
		if !m.showToday && m.col < len(storage.KanbanStatuses)-1 {
			m.col++
			m.row = clampCursor(m.row, len(m.column()))
		}
	case m.cfg.Keys.MoveLeft:
		return m.moveSelected(-1)
	case m.cfg.Keys.MoveRight:
		return m.moveSelected(1)
	case m.cfg.Keys.Add:
		m.mode = modeAdd
		m.input.Focus()
		m.status = "Add: type a task and press Enter"
	case m.cfg.Keys.Toggle:
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		updated, err := m.actions.Toggle(m.ctx, t.ID)
		if err != nil {
			m.status = errorText("toggle failed", err)
			return m, nil
		}
		m.reload()
		m.focusTask(updated.ID)
		m.status = fmt.Sprintf("#%d is now %s", updated.ID, updated.Status)
	case m.cfg.Keys.Delete:
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.confirmDel = true
		m.pendingDel = &t
		m.status = fmt.Sprintf("Delete \"%s\"? y/n", t.Content)
	case m.cfg.Keys.Refresh:
		m.actions.Refresh()
		m.reload()
		m.status = "Reloaded"
	case m.cfg.Keys.Today:
		m.showToday = !m.showToday
		m.row = 0
		m.reload()
	}
	return m, nil
}

func (m Model) moveSelected(delta int) (tea.Model, tea.Cmd) {
	t, ok := m.selected()
	if !ok {
		return m, nil
	}
	idx := statusIndex(t.Status) + delta
	if idx < 0 || idx >= len(storage.KanbanStatuses) {
		return m, nil
	}
	target := storage.KanbanStatuses[idx]
	moved, err := m.actions.MoveToStatus(m.ctx, t.ID, target)
	if err != nil {
		var le tasks.LimitError
		if errors.As(err, &le) {
			m.status = Warn.Render(fmt.Sprintf("%s is full (%d/%d)", storage.StatusDoing, le.Limit, le.Limit))
		} else {
			m.status = errorText("move failed", err)
		}
		return m, nil
	}
	m.reload()
	if !m.showToday {
		m.col = idx
	}
	m.focusTask(moved.ID)
	m.status = fmt.Sprintf("Moved #%d to %s", moved.ID, moved.Status)
	return m, nil
}

func (m Model) updateDeleteConfirm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "n", "N", m.cfg.Keys.Cancel:
		m.status = "Delete cancelled"
	case "y", "Y":
		if m.pendingDel == nil {
			m.status = "Nothing to delete"
			break
		}
		if err := m.actions.Delete(m.ctx, m.pendingDel.ID); err != nil {
			m.status = errorText("delete failed", err)
			break
		}
		m.reload()
		m.row = clampCursor(m.row, len(m.column()))
		m.status = "Deleted task"
	default:
		return m, nil
	}
	m.confirmDel = false
	m.pendingDel = nil
	return m, nil
}

// reload refreshes the board and today lists from the action layer's cache.
func (m *Model) reload() {
	b, err := m.actions.Board(m.ctx)
	if err != nil {
		m.status = errorText("load failed", err)
		return
	}
	m.board = b
	if m.showToday {
		today, err := m.actions.Today(m.ctx, m.now())
		if err != nil {
			m.status = errorText("load failed", err)
			return
		}
		m.today = today
	}
	m.row = clampCursor(m.row, len(m.column()))
}

func (m Model) column() []storage.Task {
	if m.showToday {
		return m.today
	}
	return m.board[storage.KanbanStatuses[m.col]]
}

func (m Model) selected() (storage.Task, bool) {
	col := m.column()
	if len(col) == 0 {
		return storage.Task{}, false
	}
	return col[clampCursor(m.row, len(col))], true
}

func (m *Model) focusTask(id int64) {
	if m.showToday {
		for i, t := range m.today {
			if t.ID == id {
				m.row = i
			}
		}
		return
	}
	for c, s := range storage.KanbanStatuses {
		for i, t := range m.board[s] {
			if t.ID == id {
				m.col, m.row = c, i
				return
			}
		}
	}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(Title.Render("CJW board"))
	if m.showToday {
		b.WriteString(Muted.Render("  today " + m.now().Format(storage.DateLayout)))
	}
	b.WriteString("\n\n")

	if m.showToday {
		b.WriteString(m.renderColumn("Today", m.today, true))
	} else {
		cols := make([]string, 0, len(storage.KanbanStatuses))
		for i, s := range storage.KanbanStatuses {
			title := fmt.Sprintf("%s (%d)", s, len(m.board[s]))
			if s == storage.StatusDoing {
				title = fmt.Sprintf("%s (%d/%d)", s, len(m.board[s]), m.actions.DoingLimit())
			}
			cols = append(cols, m.renderColumn(title, m.board[s], i == m.col))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cols...))
	}
	b.WriteString("\n")

	if m.mode == modeAdd {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}
	b.WriteString(m.status)
	b.WriteString("\n")
	b.WriteString(Muted.Render(renderHelp(m.cfg.Keys)))
	return b.String()
}

func (m Model) renderColumn(title string, list []storage.Task, active bool) string {
	var b strings.Builder
	b.WriteString(PanelTitle.Render(title))
	b.WriteString("\n")
	if len(list) == 0 {
		b.WriteString(Muted.Render("(empty)"))
	}
	for i, t := range list {
		line := TaskLine(t)
		if active && i == m.row && m.mode == modeBoard {
			line = SelectedRow.Render(line)
		}
		b.WriteString(line)
		if i < len(list)-1 {
			b.WriteString("\n")
		}
	}
	style := Panel
	if active {
		style = ActivePanel
	}
	if m.width > 0 && !m.showToday {
		style = style.Width(max(m.width/len(storage.KanbanStatuses)-4, 16))
	}
	return style.Render(b.String())
}

func renderHelp(k config.Keymap) string {
	return fmt.Sprintf("%s/%s/%s/%s nav • %s/%s move • %s add • %s toggle • %s delete • %s today • %s reload • %s quit",
		k.Left, k.Down, k.Up, k.Right, k.MoveLeft, k.MoveRight, k.Add, keyName(k.Toggle), k.Delete, k.Today, k.Refresh, k.Quit)
}

func keyName(k string) string {
	if k == " " {
		return "space"
	}
	return k
}

func errorText(prefix string, err error) string {
	return Bad.Render(fmt.Sprintf("%s: %v", prefix, err))
}

func statusIndex(s storage.TaskStatus) int {
	for i, ks := range storage.KanbanStatuses {
		if ks == s {
			return i
		}
	}
	return 0
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}
