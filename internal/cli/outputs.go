package cli

import (
	"fmt"
	"sort"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newOutputsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "outputs [stack...]",
		Short: "Show deployed stack outputs",
		Long: `Fetch and print the outputs of deployed stacks. Outputs is read-only,
so stacks are queried concurrently without dependency ordering.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace()
			if err != nil {
				return err
			}

			scope := args
			if len(scope) == 0 {
				scope = ws.project.StackNames()
			}
			for _, name := range scope {
				if ws.graph.GetNode(name) == nil {
					return fmt.Errorf("stack %q not found in project", name)
				}
			}

			var mu sync.Mutex
			collected := make(map[string]map[string]string, len(scope))

			g, ctx := errgroup.WithContext(cmd.Context())
			for _, name := range scope {
				name := name
				g.Go(func() error {
					outputs, err := ws.provider.Outputs(ctx, name)
					if err != nil {
						return fmt.Errorf("stack %q: %w", name, err)
					}
					mu.Lock()
					collected[name] = outputs
					mu.Unlock()
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			sort.Strings(scope)
			for _, name := range scope {
				fmt.Fprintf(cmd.OutOrStdout(), "%s:\n", name)
				keys := make([]string, 0, len(collected[name]))
				for k := range collected[name] {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s\n", k, collected[name][k])
				}
			}
			return nil
		},
	}
}
