package root

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"cjw/internal/ui"
)

func newImageCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image",
		Short: "Manage plan images",
	}

	var title string
	add := &cobra.Command{
		Use:   "add <file>",
		Short: "Copy an image into the data directory",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			img, err := a.images.AddFile(cmd.Context(), title, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Good.Render("added"), fmt.Sprintf("#%d %s", img.ID, img.Title), ui.Muted.Render(img.ImagePath))
			return nil
		}),
	}
	add.Flags().StringVarP(&title, "title", "t", "", "Title (default: file name)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List plan images in display order",
		Args:  cobra.NoArgs,
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			imgs, err := a.images.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, img := range imgs {
				fmt.Fprintf(cmd.OutOrStdout(), "#%d %s %s\n", img.ID, img.Title, ui.Muted.Render(img.ImagePath))
			}
			return nil
		}),
	}

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an image and its file",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.images.Remove(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Muted.Render(fmt.Sprintf("deleted image #%d", id)))
			return nil
		}),
	}

	reorder := &cobra.Command{
		Use:   "reorder <id>...",
		Short: "Set the display order",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, s := range args {
				id, err := parseID(s)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			return a.images.Reorder(cmd.Context(), ids)
		}),
	}

	rename := &cobra.Command{
		Use:   "rename <id> <title>",
		Short: "Change an image's title",
		Args:  cobra.MinimumNArgs(2),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			img, err := a.images.Rename(cmd.Context(), id, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "#%d %s\n", img.ID, img.Title)
			return nil
		}),
	}

	save := &cobra.Command{
		Use:   "save <id> <dest>",
		Short: "Write an image's bytes to dest",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			data, err := a.images.Read(cmd.Context(), id)
			if err != nil {
				return err
			}
			return os.WriteFile(args[1], data, 0o644)
		}),
	}

	cmd.AddCommand(add, list, rm, rename, reorder, save)
	return cmd
}
