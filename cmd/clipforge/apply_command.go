package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"clipforge/internal/editor"
	"clipforge/internal/timeline"
)

func newApplyCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "apply <project-id> <actions.json|->",
		Short: "Apply a batch of actions to a project",
		Long: "Apply reads either a JSON array of actions or an object with an \"actions\" array,\n" +
			"runs the batch through the editor and prints one outcome per action.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raws, err := readActions(cmd.InOrStdin(), args[1])
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(a *app) error {
				res, err := a.editor.Dispatch(cmd.Context(), args[0], editor.SourceCLI, raws)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOutput {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(res)
				}
				fmt.Fprintln(out, renderOutcomes(res.Outcomes))
				fmt.Fprintf(out, "Applied %d of %d actions, version %d\n", res.Applied(), len(res.Outcomes), res.Version)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the full result as JSON")
	return cmd
}

func readActions(stdin io.Reader, path string) ([]timeline.RawAction, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	data = bytes.TrimSpace(data)
	var raws []timeline.RawAction
	if len(data) > 0 && data[0] == '[' {
		err = json.Unmarshal(data, &raws)
	} else {
		var wrapped struct {
			Actions []timeline.RawAction `json:"actions"`
		}
		err = json.Unmarshal(data, &wrapped)
		raws = wrapped.Actions
	}
	if err != nil {
		return nil, fmt.Errorf("parse actions: %w", err)
	}
	if len(raws) == 0 {
		return nil, fmt.Errorf("no actions in %s", path)
	}
	return raws, nil
}

func renderOutcomes(outcomes []timeline.Outcome) string {
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		rows = append(rows, []string{strconv.Itoa(o.Index), string(o.Type), string(o.Status), o.Code, o.Message})
	}
	return renderTable(
		[]string{"#", "Action", "Status", "Code", "Message"},
		rows,
		[]columnAlignment{alignRight},
	)
}
