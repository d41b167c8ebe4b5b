package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"clipforge/internal/editor"
	"clipforge/internal/media"
)

func newProjectCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}
	cmd.AddCommand(newProjectCreateCommand(ctx))
	cmd.AddCommand(newProjectListCommand(ctx))
	cmd.AddCommand(newProjectImportCommand(ctx))
	return cmd
}

func newProjectCreateCommand(ctx *commandContext) *cobra.Command {
	var np editor.NewProject

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			np.Name = args[0]
			return ctx.withApp(cmd, func(a *app) error {
				p, err := a.editor.CreateProject(np)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), p.ID)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&np.Width, "width", 0, "Canvas width (default 1920)")
	cmd.Flags().IntVar(&np.Height, "height", 0, "Canvas height (default 1080)")
	cmd.Flags().Float64Var(&np.FrameRate, "fps", 0, "Frame rate (default 30)")
	return cmd
}

func newProjectListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app) error {
				projects, err := a.editor.Projects()
				if err != nil {
					return err
				}
				if len(projects) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No projects")
					return nil
				}
				rows := make([][]string, 0, len(projects))
				for _, p := range projects {
					rows = append(rows, []string{
						p.ID,
						p.Name,
						fmt.Sprintf("%dx%d", p.Width, p.Height),
						strconv.Itoa(len(p.Timeline.Media)),
						strconv.Itoa(len(p.Timeline.Texts)),
						strconv.FormatInt(p.Version, 10),
						p.UpdatedAt.Local().Format("2006-01-02 15:04"),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Name", "Size", "Clips", "Texts", "Version", "Updated"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
}

func newProjectImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <project-id> <dir>",
		Short: "Import every supported file under a directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app) error {
				if _, err := a.editor.Project(args[0]); err != nil {
					return err
				}
				files, err := media.NewScanner(a.importer, a.logger).ScanDir(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d files\n", len(files))
				return nil
			})
		},
	}
}
