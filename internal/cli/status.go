package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the project's stacks and their dependencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace()
			if err != nil {
				return err
			}

			faint := color.New(color.Faint).SprintFunc()
			for _, name := range ws.project.StackNames() {
				node := ws.graph.GetNode(name)
				var flags []string
				if node.Stack.Ignore {
					flags = append(flags, "ignore")
				}
				if node.Stack.Obsolete {
					flags = append(flags, "obsolete")
				}
				line := name
				if len(flags) > 0 {
					line += " [" + strings.Join(flags, ",") + "]"
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
				if deps := node.Stack.Dependencies(); len(deps) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", faint("depends on: "+strings.Join(deps, ", ")))
				}
			}
			return nil
		},
	}
}
