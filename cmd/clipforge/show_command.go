package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"clipforge/internal/storage"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Print a project's timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app) error {
				p, err := a.editor.Project(args[0])
				if err != nil {
					return err
				}
				files, err := a.editor.Library(p.ID)
				if err != nil {
					return err
				}
				writeTimeline(cmd.OutOrStdout(), p, files)
				return nil
			})
		},
	}
}

func writeTimeline(w io.Writer, p *storage.Project, files []storage.LibraryFile) {
	names := make(map[string]string, len(files))
	for _, f := range files {
		names[f.ID] = f.Name
	}

	fmt.Fprintf(w, "%s (%s) %dx%d @ %g fps, version %d\n", p.Name, p.ID, p.Width, p.Height, p.FrameRate, p.Version)
	fmt.Fprintf(w, "Library: %d files\n\n", len(files))

	if len(p.Timeline.Media) == 0 {
		fmt.Fprintln(w, "No media on the timeline")
	} else {
		rows := make([][]string, 0, len(p.Timeline.Media))
		for i, m := range p.Timeline.Media {
			transition := ""
			if m.Transition != nil {
				transition = fmt.Sprintf("%s %.2fs", m.Transition.Type, m.Transition.Duration)
			}
			name := names[m.FileID]
			if name == "" {
				name = m.Name
			}
			rows = append(rows, []string{
				strconv.Itoa(i),
				string(m.Type),
				name,
				strconv.Itoa(m.TrackID),
				fmt.Sprintf("%.2f-%.2f", m.PositionStart, m.PositionEnd),
				fmt.Sprintf("%.2f-%.2f", m.StartTime, m.EndTime),
				fmt.Sprintf("%gx", m.PlaybackSpeed),
				transition,
			})
		}
		fmt.Fprintln(w, renderTable(
			[]string{"#", "Type", "File", "Track", "Timeline", "Source", "Speed", "Transition"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
		))
	}

	if len(p.Timeline.Texts) > 0 {
		rows := make([][]string, 0, len(p.Timeline.Texts))
		for i, t := range p.Timeline.Texts {
			rows = append(rows, []string{
				strconv.Itoa(i),
				t.Text,
				fmt.Sprintf("%.2f-%.2f", t.PositionStart, t.PositionEnd),
				t.Font,
				t.Color,
			})
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, renderTable(
			[]string{"#", "Text", "Timeline", "Font", "Color"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignRight},
		))
	}

	fmt.Fprintf(w, "\nDuration: %.2fs\n", p.Timeline.Duration())
}
