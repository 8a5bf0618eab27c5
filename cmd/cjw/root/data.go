package root

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"cjw/internal/backup"
	"cjw/internal/storage"
	"cjw/internal/ui"
)

func newExportCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write a full backup (YAML for .yaml/.yml, JSON otherwise)",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			doc, err := backup.ExportFile(cmd.Context(), a.backend, args[0], a.now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d tasks, %d notes, %d plans to %s\n",
				ui.Good.Render("exported"), len(doc.Tasks), len(doc.Notes), len(doc.Plans), args[0])
			return nil
		}),
	}
}

func newImportCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Load a backup into the current database",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			st, err := backup.ImportFile(cmd.Context(), a.backend, args[0])
			if err != nil {
				return err
			}
			a.log.Info().Interface("stats", st).Str("file", args[0]).Msg("backup imported")
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d tasks, %d notes, %d folders, %d plans, %d key results, %d images\n",
				ui.Good.Render("imported"), st.Tasks, st.Notes, st.Folders, st.Plans, st.KeyResults, st.PlanImages)
			return nil
		}),
	}
}

func newSettingsCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and change application settings",
	}

	get := &cobra.Command{
		Use:   "get [key.path]",
		Short: "Print all settings or one value",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			s, err := a.backend.Settings().Get(cmd.Context())
			if err != nil {
				return err
			}
			var v any = s
			if len(args) == 1 {
				if v, err = storage.LookupSetting(s, args[0]); err != nil {
					return err
				}
			}
			out, err := yaml.Marshal(v)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			return nil
		}),
	}

	set := &cobra.Command{
		Use:   "set <key.path> <value>",
		Short: "Change one setting; the value is read as YAML (true, 7, dark)",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			var v any
			if err := yaml.Unmarshal([]byte(args[1]), &v); err != nil {
				return storage.ValidationError{Field: args[0], Reason: err.Error()}
			}
			if _, err := a.backend.Settings().Set(cmd.Context(), args[0], v); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.LabelValue(args[0], strings.TrimSpace(args[1])))
			return nil
		}),
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Restore default settings",
		Args:  cobra.NoArgs,
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			return a.backend.Settings().Replace(cmd.Context(), storage.DefaultSettings())
		}),
	}

	cmd.AddCommand(get, set, reset)
	return cmd
}

func newSweepCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Permanently delete notes past the trash retention",
		Args:  cobra.NoArgs,
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			n, err := a.notes.SweepTrash(cmd.Context(), a.now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.LabelValue("purged", n))
			return nil
		}),
	}
}
