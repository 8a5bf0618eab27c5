package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"cjw/internal/storage"
)

var (
	cPrimary = lipgloss.Color("63")  // blue
	cAccent  = lipgloss.Color("205") // magenta
	cGood    = lipgloss.Color("42")  // green
	cWarn    = lipgloss.Color("214") // orange
	cBad     = lipgloss.Color("196") // red
	cMuted   = lipgloss.Color("244") // gray
	cGold    = lipgloss.Color("220") // gold
)

var (
	Title = lipgloss.NewStyle().Bold(true).Foreground(cAccent)
	H2    = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Muted = lipgloss.NewStyle().Foreground(cMuted)
	Key   = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Good  = lipgloss.NewStyle().Bold(true).Foreground(cGood)
	Warn  = lipgloss.NewStyle().Bold(true).Foreground(cWarn)
	Bad   = lipgloss.NewStyle().Bold(true).Foreground(cBad)

	Panel       = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(cMuted).Padding(0, 1)
	ActivePanel = Panel.BorderForeground(cAccent)
	PanelTitle  = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	SelectedRow = lipgloss.NewStyle().Bold(true).Foreground(cGold).Background(cPrimary)
)

func LabelValue(label string, value any) string {
	return fmt.Sprintf("%s %v", Key.Render(label+":"), value)
}

// StatusText colors a task status for terminal output.
func StatusText(s storage.TaskStatus) string {
	switch s {
	case storage.StatusDone:
		return Good.Render(string(s))
	case storage.StatusDoing:
		return Warn.Render(string(s))
	case storage.StatusTodo:
		return H2.Render(string(s))
	default:
		return Muted.Render(string(s))
	}
}

// Flags renders the importance markers of a task, e.g. "!!".
func Flags(t storage.Task) string {
	var b strings.Builder
	if t.Important {
		b.WriteString("!")
	}
	if t.Urgent {
		b.WriteString("!")
	}
	if b.Len() == 0 {
		return ""
	}
	return Bad.Render(b.String())
}

// TaskLine is the one-line summary used by the CLI and the board.
func TaskLine(t storage.Task) string {
	parts := []string{fmt.Sprintf("#%d", t.ID), t.Content}
	if f := Flags(t); f != "" {
		parts = append(parts, f)
	}
	if t.DueDate != nil {
		due := *t.DueDate
		if t.ScheduledTime != nil {
			due += " " + *t.ScheduledTime
		}
		parts = append(parts, Muted.Render(due))
	}
	return strings.Join(parts, " ")
}
