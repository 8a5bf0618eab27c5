package root

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cjw/internal/storage"
	"cjw/internal/tasks"
	"cjw/internal/ui"
)

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, storage.ValidationError{Field: "id", Reason: fmt.Sprintf("%q is not a valid id", s)}
	}
	return id, nil
}

func parseStatus(s string) (storage.TaskStatus, error) {
	st := storage.TaskStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", storage.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", s)}
	}
	return st, nil
}

func newBoardCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Open the kanban board",
		Args:  cobra.NoArgs,
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			return ui.Run(cmd.Context(), a.tasks, a.parser, a.cfg)
		}),
	}
}

func newAddCmd(g *globalFlags) *cobra.Command {
	var due, at, status string
	var duration int
	var important, urgent bool

	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Add a task; dates like \"tomorrow 5pm\" and markers like ! are understood",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			parsed := a.parser.Parse(strings.Join(args, " "), a.now())

			var o tasks.Overrides
			f := cmd.Flags()
			if f.Changed("due") {
				o.DueDate = &due
			}
			if f.Changed("at") {
				o.ScheduledTime = &at
			}
			if f.Changed("duration") {
				o.Duration = &duration
			}
			if f.Changed("status") {
				st, err := parseStatus(status)
				if err != nil {
					return err
				}
				o.Status = &st
			}
			if f.Changed("important") {
				o.Important = &important
			}
			if f.Changed("urgent") {
				o.Urgent = &urgent
			}

			t, err := a.tasks.Create(cmd.Context(), tasks.BuildCreateInput(parsed, o))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Good.Render("added"), ui.TaskLine(*t), ui.StatusText(t.Status))
			return nil
		}),
	}
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&at, "at", "", "Scheduled time (HH:MM)")
	cmd.Flags().IntVar(&duration, "duration", storage.DefaultDuration, "Duration in minutes")
	cmd.Flags().StringVar(&status, "status", "", "Initial status (INBOX|TODO|DOING|DONE)")
	cmd.Flags().BoolVar(&important, "important", false, "Mark as important")
	cmd.Flags().BoolVar(&urgent, "urgent", false, "Mark as urgent")
	return cmd
}

func newListCmd(g *globalFlags) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks grouped by status",
		Args:  cobra.NoArgs,
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			board, err := a.tasks.Board(cmd.Context())
			if err != nil {
				return err
			}
			columns := storage.KanbanStatuses
			if status != "" {
				st, err := parseStatus(status)
				if err != nil {
					return err
				}
				columns = []storage.TaskStatus{st}
			}
			out := cmd.OutOrStdout()
			for _, s := range columns {
				fmt.Fprintf(out, "%s %s\n", ui.StatusText(s), ui.Muted.Render(fmt.Sprintf("(%d)", len(board[s]))))
				for _, t := range board[s] {
					fmt.Fprintln(out, "  "+ui.TaskLine(t))
				}
			}
			return nil
		}),
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "Only show one status")
	return cmd
}

func newTodayCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "List tasks due today",
		Args:  cobra.NoArgs,
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			list, err := a.tasks.Today(cmd.Context(), a.now())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, ui.Muted.Render("nothing due today"))
			}
			for _, t := range list {
				fmt.Fprintln(out, ui.TaskLine(t), ui.StatusText(t.Status))
			}
			return nil
		}),
	}
}

func newMoveCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <status>",
		Short: "Move a task to another column",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			st, err := parseStatus(args[1])
			if err != nil {
				return err
			}
			t, err := a.tasks.MoveToStatus(cmd.Context(), id, st)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.TaskLine(*t), "→", ui.StatusText(t.Status))
			return nil
		}),
	}
}

func newToggleCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Mark a task done, or reopen a done task",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			t, err := a.tasks.Toggle(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.TaskLine(*t), ui.StatusText(t.Status))
			return nil
		}),
	}
}

func newEditCmd(g *globalFlags) *cobra.Command {
	var content, due, at string
	var duration int
	var important, urgent, clearDue, clearAt bool

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change task fields; only the flags given are applied",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			f := cmd.Flags()
			p := storage.TaskPatch{ClearDueDate: clearDue, ClearScheduledTime: clearAt}
			if f.Changed("content") {
				p.Content = &content
			}
			if f.Changed("due") {
				p.DueDate = &due
			}
			if f.Changed("at") {
				p.ScheduledTime = &at
			}
			if f.Changed("duration") {
				p.Duration = &duration
			}
			if f.Changed("important") {
				p.Important = &important
			}
			if f.Changed("urgent") {
				p.Urgent = &urgent
			}
			t, err := a.tasks.Update(cmd.Context(), id, p)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.TaskLine(*t), ui.StatusText(t.Status))
			return nil
		}),
	}
	cmd.Flags().StringVar(&content, "content", "", "New text")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&clearDue, "clear-due", false, "Remove the due date")
	cmd.Flags().StringVar(&at, "at", "", "Scheduled time (HH:MM)")
	cmd.Flags().BoolVar(&clearAt, "clear-at", false, "Remove the scheduled time")
	cmd.Flags().IntVar(&duration, "duration", 0, "Duration in minutes")
	cmd.Flags().BoolVar(&important, "important", false, "Important flag")
	cmd.Flags().BoolVar(&urgent, "urgent", false, "Urgent flag")
	return cmd
}

func newRmCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.tasks.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Muted.Render(fmt.Sprintf("deleted #%d", id)))
			return nil
		}),
	}
}
