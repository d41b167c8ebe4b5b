package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"clipforge/internal/export"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var output string
	var opts export.RenderOptions

	cmd := &cobra.Command{
		Use:   "export <project-id> <srt|edl|render>",
		Short: "Export a timeline as captions, an EDL or an ffmpeg render plan",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := export.ParseFormat(args[1])
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(a *app) error {
				out, err := a.editor.Export(args[0], format, opts)
				if err != nil {
					return err
				}
				if output == "" || output == "-" {
					_, err = cmd.OutOrStdout().Write(out.Body)
					return err
				}
				if err := os.WriteFile(output, out.Body, 0644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s (%d bytes)\n", output, len(out.Body))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	cmd.Flags().StringVar(&opts.Resolution, "resolution", "", "Render resolution: 480p, 720p, 1080p, 2K, 4K")
	cmd.Flags().StringVar(&opts.Quality, "quality", "", "Render quality: medium, high, ultra")
	cmd.Flags().StringVar(&opts.Output, "render-output", "", "Output file named in the render plan")
	return cmd
}
