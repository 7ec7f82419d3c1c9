// Package cli implements the stackctl CLI commands.
package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "stackctl",
	Short: "Orchestrate infrastructure stacks with dependency ordering",
	Long: `stackctl deploys and manages cloud infrastructure stacks.

It builds a dependency graph over the stacks in a project, resolves
dynamic configuration values at execution time, and runs operations
concurrently across independent branches while strictly serializing
dependent stacks.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringP("project", "p", "stackctl.yml", "Project file")
	rootCmd.PersistentFlags().String("provider", "memory", "Infrastructure provider")
	rootCmd.PersistentFlags().Int("max-concurrency", 0, "Maximum concurrent stack operations (0 = unbounded)")
	rootCmd.PersistentFlags().Bool("ignore-dependencies", false, "Operate only on the named stacks, without expanding the scope")
	rootCmd.PersistentFlags().Bool("no-placeholders", false, "Fail instead of substituting placeholders for unresolvable cross-stack references")
	rootCmd.PersistentFlags().BoolP("yes", "y", false, "Skip confirmation prompts")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose logging")

	_ = viper.BindPFlag("project", rootCmd.PersistentFlags().Lookup("project"))
	_ = viper.BindPFlag("provider", rootCmd.PersistentFlags().Lookup("provider"))
	_ = viper.BindPFlag("max-concurrency", rootCmd.PersistentFlags().Lookup("max-concurrency"))
	_ = viper.BindPFlag("ignore-dependencies", rootCmd.PersistentFlags().Lookup("ignore-dependencies"))
	_ = viper.BindPFlag("no-placeholders", rootCmd.PersistentFlags().Lookup("no-placeholders"))
	_ = viper.BindPFlag("yes", rootCmd.PersistentFlags().Lookup("yes"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	viper.SetEnvPrefix("STACKCTL")
	viper.AutomaticEnv()

	rootCmd.AddCommand(newLaunchCmd())
	rootCmd.AddCommand(newDeleteCmd())
	rootCmd.AddCommand(newPruneCmd())
	rootCmd.AddCommand(newDescribeCmd())
	rootCmd.AddCommand(newOutputsCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newDiffCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newVersionCmd())
}
