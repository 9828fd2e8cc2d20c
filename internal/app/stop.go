package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mrhappymac/munki/internal/config"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a background monitor",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}

		if err := stopDaemon(cfg.PIDPath); err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("daemon not running (PID file not found)")
			}
			return err
		}

		fmt.Println("appusaged stopping")
		return nil
	},
}
