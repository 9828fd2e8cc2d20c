// Package app wires the appusaged command-line surface.
package app

import (
	"github.com/spf13/cobra"
)

// RootCmd is the root command for appusaged.
var RootCmd = &cobra.Command{
	Use:   "appusaged",
	Short: "Application usage monitor daemon",
	Long: `appusaged observes application lifecycle events (launch, activation,
quit) and install requests signalled by cooperating processes, and records
them for the managed-software tooling.

The monitor is expected to run for the lifetime of the login session and to
be supervised externally: it takes no arguments beyond these commands and
blocks in the foreground unless started with --daemon.

Examples:
  # Run in the foreground (normal supervised mode)
  appusaged run

  # Run detached with a PID file
  appusaged run --daemon

  # Check whether the monitor is running
  appusaged status

  # Stop a detached monitor
  appusaged stop`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	RootCmd.AddCommand(runCmd)
	RootCmd.AddCommand(stopCmd)
	RootCmd.AddCommand(statusCmd)
}

// Execute runs the root command.
func Execute() error {
	return RootCmd.Execute()
}
