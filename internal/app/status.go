package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrhappymac/munki/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the monitor is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}

		running, err := isDaemonRunning(cfg.PIDPath)
		if err != nil {
			return fmt.Errorf("failed to check daemon status: %w", err)
		}

		if running {
			fmt.Println("appusaged is running")
		} else {
			fmt.Println("appusaged is not running")
		}
		return nil
	},
}
