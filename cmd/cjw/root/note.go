package root

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cjw/internal/storage"
	"cjw/internal/ui"
)

func noteLine(n storage.Note) string {
	pin := " "
	if n.IsPinned {
		pin = ui.Warn.Render("*")
	}
	content := strings.ReplaceAll(n.Content, "\n", " ")
	if len(content) > 60 {
		content = content[:57] + "..."
	}
	return fmt.Sprintf("%s #%d %s %s", pin, n.ID, content, ui.Muted.Render("["+n.FolderID+"]"))
}

func newNoteCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Manage notes",
	}

	var folder string
	var pinned bool
	add := &cobra.Command{
		Use:   "add <text>",
		Short: "Create a note",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			n, err := a.notes.Create(cmd.Context(), storage.NoteInput{Content: strings.Join(args, " "), FolderID: folder, IsPinned: pinned})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Good.Render("added"), noteLine(*n))
			return nil
		}),
	}
	add.Flags().StringVarP(&folder, "folder", "f", storage.FolderAll, "Folder id")
	add.Flags().BoolVar(&pinned, "pin", false, "Pin the note")

	var listFolder string
	list := &cobra.Command{
		Use:   "list",
		Short: "List notes in a folder (all, trash or a folder id)",
		Args:  cobra.NoArgs,
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			notes, err := a.notes.List(cmd.Context(), listFolder)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(notes) == 0 {
				fmt.Fprintln(out, ui.Muted.Render("no notes"))
			}
			for _, n := range notes {
				fmt.Fprintln(out, noteLine(n))
			}
			return nil
		}),
	}
	list.Flags().StringVarP(&listFolder, "folder", "f", storage.FolderAll, "Folder id")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a note",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			n, err := a.notes.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.LabelValue("folder", n.FolderID), ui.LabelValue("state", n.State))
			fmt.Fprintln(out, n.Content)
			return nil
		}),
	}

	var moveTo string
	edit := &cobra.Command{
		Use:   "edit <id> [text]",
		Short: "Replace a note's text or move it to another folder",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var p storage.NotePatch
			if len(args) > 1 {
				text := strings.Join(args[1:], " ")
				p.Content = &text
			}
			if cmd.Flags().Changed("folder") {
				p.FolderID = &moveTo
			}
			n, err := a.notes.Update(cmd.Context(), id, p)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), noteLine(*n))
			return nil
		}),
	}
	edit.Flags().StringVarP(&moveTo, "folder", "f", "", "Move to folder")

	trash := &cobra.Command{
		Use:   "trash <id>",
		Short: "Move a note to the trash",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.notes.Trash(cmd.Context(), storage.FolderAll, id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Muted.Render(fmt.Sprintf("trashed #%d", id)))
			return nil
		}),
	}

	restore := &cobra.Command{
		Use:   "restore <id>",
		Short: "Restore a note from the trash",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			n, err := a.notes.Restore(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Good.Render("restored"), noteLine(*n))
			return nil
		}),
	}

	pin := &cobra.Command{
		Use:   "pin <id>",
		Short: "Pin or unpin a note",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			n, err := a.notes.TogglePin(cmd.Context(), storage.FolderAll, id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), noteLine(*n))
			return nil
		}),
	}

	purge := &cobra.Command{
		Use:   "purge <id>",
		Short: "Delete a note permanently",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.notes.DeletePermanently(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Muted.Render(fmt.Sprintf("purged #%d", id)))
			return nil
		}),
	}

	cmd.AddCommand(add, list, show, edit, trash, restore, pin, purge)
	return cmd
}

func newFolderCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folder",
		Short: "Manage note folders",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List folders",
		Args:  cobra.NoArgs,
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			folders, err := a.notes.Folders(cmd.Context())
			if err != nil {
				return err
			}
			for _, f := range folders {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", ui.Key.Render(f.ID), f.Name, ui.Muted.Render(string(f.Type)))
			}
			return nil
		}),
	}

	var id, icon string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a folder",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			f, err := a.notes.CreateFolder(cmd.Context(), storage.FolderInput{ID: id, Name: strings.Join(args, " "), Icon: icon})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Good.Render("added"), ui.Key.Render(f.ID), f.Name)
			return nil
		}),
	}
	add.Flags().StringVar(&id, "id", "", "Folder id (default: generated)")
	add.Flags().StringVar(&icon, "icon", "folder", "Icon name")

	rename := &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a folder",
		Args:  cobra.MinimumNArgs(2),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			f, err := a.notes.RenameFolder(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Key.Render(f.ID), f.Name)
			return nil
		}),
	}

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a folder; its notes move to all",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			if err := a.notes.DeleteFolder(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Muted.Render("deleted folder "+args[0]))
			return nil
		}),
	}

	cmd.AddCommand(list, add, rename, rm)
	return cmd
}
