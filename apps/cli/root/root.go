package root

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command for the scheduler admin CLI. Subcommands (auth, bootstrap, account) are attached here.
var rootCmd = &cobra.Command{
	Use:           "scheduler",
	Short:         "Inspection scheduler admin CLI",
	Long:          "Administrative utilities for the inspection scheduler (dev tokens, schema bootstrap, account management).",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// Root returns the mutable root command for wiring from subpackages.
func Root() *cobra.Command {
	return rootCmd
}
