package root

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cjw/internal/storage"
	"cjw/internal/ui"
)

func planLine(p storage.Plan) string {
	status := ui.H2.Render(string(p.Status))
	if p.Status == storage.PlanArchived {
		status = ui.Muted.Render(string(p.Status))
	}
	return fmt.Sprintf("#%d %s %s %s", p.ID, p.Title, progressText(p.Progress), status)
}

func progressText(v float64) string {
	s := fmt.Sprintf("%.0f%%", v)
	if v >= 100 {
		return ui.Good.Render(s)
	}
	return ui.Warn.Render(s)
}

func krLine(kr storage.KeyResult) string {
	return fmt.Sprintf("  #%d %s %g/%g%s %s", kr.ID, kr.Title, kr.CurrentValue, kr.TargetValue, kr.Unit, progressText(kr.Progress))
}

func optionalFlag(cmd *cobra.Command, name string, v *string) *string {
	if cmd.Flags().Changed(name) {
		return v
	}
	return nil
}

func newPlanCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Manage plans",
	}

	var desc, color, start, end string
	add := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a plan",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			p, err := a.backend.Plans().Create(cmd.Context(), storage.PlanInput{
				Title:       strings.Join(args, " "),
				Description: desc,
				Color:       color,
				StartDate:   optionalFlag(cmd, "start", &start),
				EndDate:     optionalFlag(cmd, "end", &end),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Good.Render("added"), planLine(*p))
			return nil
		}),
	}
	add.Flags().StringVar(&desc, "desc", "", "Description")
	add.Flags().StringVar(&color, "color", "", "Display color")
	add.Flags().StringVar(&start, "start", "", "Start date (YYYY-MM-DD)")
	add.Flags().StringVar(&end, "end", "", "End date (YYYY-MM-DD)")

	var activeOnly bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List plans",
		Args:  cobra.NoArgs,
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			repo := a.backend.Plans()
			get := repo.GetAll
			if activeOnly {
				get = repo.GetActive
			}
			plans, err := get(cmd.Context())
			if err != nil {
				return err
			}
			for _, p := range plans {
				fmt.Fprintln(cmd.OutOrStdout(), planLine(p))
			}
			return nil
		}),
	}
	list.Flags().BoolVar(&activeOnly, "active", false, "Only active plans")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a plan and its key results",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err := a.backend.Plans().GetByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			if p == nil {
				return storage.NotFound("plan", id)
			}
			krs, err := a.backend.Plans().ListKeyResults(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, planLine(*p))
			if p.Description != "" {
				fmt.Fprintln(out, ui.Muted.Render(p.Description))
			}
			for _, kr := range krs {
				fmt.Fprintln(out, krLine(kr))
			}
			return nil
		}),
	}

	var title, status string
	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change plan fields",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			patch := storage.PlanPatch{
				Title:       optionalFlag(cmd, "title", &title),
				Description: optionalFlag(cmd, "desc", &desc),
				Color:       optionalFlag(cmd, "color", &color),
				StartDate:   optionalFlag(cmd, "start", &start),
				EndDate:     optionalFlag(cmd, "end", &end),
			}
			if cmd.Flags().Changed("status") {
				st := storage.PlanStatus(strings.ToLower(status))
				patch.Status = &st
			}
			p, err := a.backend.Plans().Update(cmd.Context(), id, patch)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), planLine(*p))
			return nil
		}),
	}
	edit.Flags().StringVar(&title, "title", "", "Title")
	edit.Flags().StringVar(&desc, "desc", "", "Description")
	edit.Flags().StringVar(&color, "color", "", "Display color")
	edit.Flags().StringVar(&start, "start", "", "Start date (YYYY-MM-DD)")
	edit.Flags().StringVar(&end, "end", "", "End date (YYYY-MM-DD)")
	edit.Flags().StringVar(&status, "status", "", "active or archived")

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a plan and its key results",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.backend.Plans().Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Muted.Render(fmt.Sprintf("deleted plan #%d", id)))
			return nil
		}),
	}

	cmd.AddCommand(add, list, show, edit, rm)
	return cmd
}

func newKRCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kr",
		Short: "Manage key results; plan progress follows automatically",
	}

	var target, current float64
	var unit string
	add := &cobra.Command{
		Use:   "add <plan-id> <title>",
		Short: "Add a key result to a plan",
		Args:  cobra.MinimumNArgs(2),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			planID, err := parseID(args[0])
			if err != nil {
				return err
			}
			kr, err := a.backend.Plans().CreateKeyResult(cmd.Context(), storage.KeyResultInput{
				PlanID:       planID,
				Title:        strings.Join(args[1:], " "),
				TargetValue:  target,
				CurrentValue: current,
				Unit:         unit,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Good.Render("added"), krLine(*kr))
			return printPlanProgress(cmd, a, planID)
		}),
	}
	add.Flags().Float64Var(&target, "target", 100, "Target value")
	add.Flags().Float64Var(&current, "current", 0, "Current value")
	add.Flags().StringVar(&unit, "unit", "", "Unit label")

	set := &cobra.Command{
		Use:   "set <id> <current>",
		Short: "Record the current value of a key result",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			v, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return storage.ValidationError{Field: "current_value", Reason: err.Error()}
			}
			kr, err := a.backend.Plans().UpdateKeyResult(cmd.Context(), id, storage.KeyResultPatch{CurrentValue: &v})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), krLine(*kr))
			return printPlanProgress(cmd, a, kr.PlanID)
		}),
	}

	var newTitle string
	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change key result fields",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p := storage.KeyResultPatch{
				Title: optionalFlag(cmd, "title", &newTitle),
				Unit:  optionalFlag(cmd, "unit", &unit),
			}
			if cmd.Flags().Changed("target") {
				p.TargetValue = &target
			}
			if cmd.Flags().Changed("current") {
				p.CurrentValue = &current
			}
			kr, err := a.backend.Plans().UpdateKeyResult(cmd.Context(), id, p)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), krLine(*kr))
			return printPlanProgress(cmd, a, kr.PlanID)
		}),
	}
	edit.Flags().StringVar(&newTitle, "title", "", "Title")
	edit.Flags().Float64Var(&target, "target", 0, "Target value")
	edit.Flags().Float64Var(&current, "current", 0, "Current value")
	edit.Flags().StringVar(&unit, "unit", "", "Unit label")

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a key result",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			kr, err := a.backend.Plans().GetKeyResult(cmd.Context(), id)
			if err != nil {
				return err
			}
			if kr == nil {
				return storage.NotFound("key result", id)
			}
			if err := a.backend.Plans().DeleteKeyResult(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Muted.Render(fmt.Sprintf("deleted key result #%d", id)))
			return printPlanProgress(cmd, a, kr.PlanID)
		}),
	}

	cmd.AddCommand(add, set, edit, rm)
	return cmd
}

func printPlanProgress(cmd *cobra.Command, a *app, planID int64) error {
	p, err := a.backend.Plans().GetByID(cmd.Context(), planID)
	if err != nil {
		return err
	}
	if p == nil {
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.LabelValue("plan progress", progressText(p.Progress)))
	return nil
}
