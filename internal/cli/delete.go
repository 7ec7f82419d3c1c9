package cli

import (
	"github.com/spf13/cobra"

	"github.com/stackforge/stackctl/pkg/engine"
)

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [stack...]",
		Short: "Delete stacks",
		Long: `Delete stacks in reverse dependency order: a stack is torn down only
after every stack that depends on it has been torn down. Naming stacks
expands the scope to their transitive dependents so the causal chain stays
intact, unless --ignore-dependencies is given.

Deleting is destructive; you will be prompted unless --yes is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, engine.OperationDelete, args, false)
		},
	}
}

func newPruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete stacks marked obsolete",
		Long: `Delete every stack flagged obsolete in the project, in reverse
dependency order. Stacks that are not obsolete are untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace()
			if err != nil {
				return err
			}
			var obsolete []string
			for _, s := range ws.project.Stacks {
				if s.Obsolete {
					obsolete = append(obsolete, s.Name)
				}
			}
			if len(obsolete) == 0 {
				cmd.Println("nothing to prune")
				return nil
			}
			return runOperation(cmd, engine.OperationDelete, obsolete, true)
		},
	}
}
