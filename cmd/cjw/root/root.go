package root

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cjw/internal/ui"
)

const Version = "0.1.0"

// NewRootCmd builds the full command tree.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:           "cjw",
		Short:         "CJW productivity: tasks, notes and plans on a local database",
		Long:          "cjw keeps tasks on a kanban board, notes in folders and plans with key results, stored in a local SQLite file.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "Config file (default: user config dir)")
	pf.StringVar(&g.envFile, "env-file", ".env", "Optional dotenv file")
	pf.StringVar(&g.backend, "backend", "", "Storage backend (auto|sqlite|memory)")
	pf.StringVar(&g.dbPath, "db", "", "SQLite database path")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level (debug|info|warn|error)")

	rootCmd.AddCommand(
		newBoardCmd(g),
		newAddCmd(g),
		newListCmd(g),
		newTodayCmd(g),
		newMoveCmd(g),
		newToggleCmd(g),
		newEditCmd(g),
		newRmCmd(g),
		newNoteCmd(g),
		newFolderCmd(g),
		newPlanCmd(g),
		newKRCmd(g),
		newImageCmd(g),
		newExportCmd(g),
		newImportCmd(g),
		newSettingsCmd(g),
		newSweepCmd(g),
	)
	return rootCmd
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, ui.Bad.Render("error: "+err.Error()))
		stop()
		os.Exit(1)
	}
}
