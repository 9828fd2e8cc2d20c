package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mrhappymac/munki/internal/config"
	"github.com/mrhappymac/munki/internal/logging"
	"github.com/mrhappymac/munki/internal/notify"
	"github.com/mrhappymac/munki/internal/recorder"
	"github.com/mrhappymac/munki/internal/usage"
)

var (
	runAsDaemon bool
	daemonChild bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the usage monitor",
	Long: `Run subscribes to the application lifecycle notifications and the
install-request channel, then blocks pumping events until terminated.

With --daemon the monitor detaches into a background process with a PID
file; without it the process blocks in the foreground and stops on
SIGTERM/SIGINT.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}

		if runAsDaemon && !daemonChild {
			if err := startDaemon(cfg); err != nil {
				return err
			}
			fmt.Println("appusaged started in the background")
			return nil
		}

		return runMonitor(cfg)
	},
}

func init() {
	runCmd.Flags().BoolVar(&runAsDaemon, "daemon", false, "detach and run in the background")
	runCmd.Flags().BoolVar(&daemonChild, "daemon-child", false, "")
	runCmd.Flags().MarkHidden("daemon-child") //nolint:errcheck
}

// runMonitor is the foreground-blocking daemon body: subscribe, pump until
// signalled, tear down on every exit path.
func runMonitor(cfg *config.Config) error {
	logger, err := logging.New(cfg.LogPath)
	if err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	st, err := recorder.Open(cfg.DBPath)
	if err != nil {
		logger.Error("open usage database", zap.Error(err))
		return err
	}
	defer st.Close()

	workspace, err := notify.NewWorkspaceSource(logger)
	if err != nil {
		// Without the notification facility the monitor has no
		// function at all; exit non-zero so the supervisor sees it.
		logger.Error("workspace notification facility unavailable", zap.Error(err))
		return err
	}
	defer workspace.Close()

	spool := notify.NewSpool(cfg.SpoolDir, logger)
	pipeline := usage.NewPipeline(st, logger)
	manager := notify.NewManager(workspace, spool, pipeline, logger)

	if err := manager.Subscribe(); err != nil {
		logger.Error("register notification subscriptions", zap.Error(err))
		return err
	}
	defer manager.Unsubscribe()

	logger.Info("appusaged started",
		zap.String("db", cfg.DBPath),
		zap.String("spool", cfg.SpoolDir))

	stop := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Info("shutting down", zap.String("signal", sig.String()))
		close(stop)
	}()

	manager.Run(stop)

	if daemonChild {
		if err := os.Remove(cfg.PIDPath); err != nil && !os.IsNotExist(err) {
			logger.Warn("remove PID file", zap.Error(err))
		}
	}
	return nil
}
