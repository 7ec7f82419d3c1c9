package cli

import (
	"github.com/spf13/cobra"

	"github.com/stackforge/stackctl/pkg/engine"
)

func newLaunchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "launch [stack...]",
		Short: "Create or update stacks",
		Long: `Create stacks that do not exist yet and update those that do.

With no arguments every stack in the project launches. Naming stacks
restricts the scope; their transitive dependencies are included
automatically unless --ignore-dependencies is given.

Stacks marked ignore or obsolete are skipped during bulk launches but may
still be launched by naming them directly.

Examples:
  stackctl launch
  stackctl launch network/vpc
  stackctl launch app/api --max-concurrency 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, engine.OperationLaunch, args, false)
		},
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [stack...]",
		Short: "Validate stack templates against the provider",
		Long: `Fetch each stack's template and submit it for validation without
deploying anything. Cross-stack references to undeployed stacks resolve to
placeholders unless --no-placeholders is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, engine.OperationValidate, args, false)
		},
	}
}

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff [stack...]",
		Short: "Show what a launch would change",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, engine.OperationDiff, args, false)
		},
	}
}

func newDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe [stack...]",
		Short: "Describe deployed stacks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, engine.OperationDescribe, args, false)
		},
	}
}
