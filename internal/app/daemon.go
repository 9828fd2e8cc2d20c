package app

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"

	"github.com/mrhappymac/munki/internal/config"
)

// startDaemon forks the current executable into a detached background
// process, writes its PID to the PID file, and redirects its output to the
// log file.
func startDaemon(cfg *config.Config) error {
	running, err := isDaemonRunning(cfg.PIDPath)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if running {
		return fmt.Errorf("daemon already running (PID file: %s)", cfg.PIDPath)
	}

	logF, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logF.Close()

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	cmd := exec.Command(executable, "run", "--daemon", "--daemon-child")
	cmd.Stdout = logF
	cmd.Stderr = logF
	cmd.Stdin = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true, // Create new session
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start daemon process: %w", err)
	}

	pid := cmd.Process.Pid
	if err := os.WriteFile(cfg.PIDPath, []byte(fmt.Sprintf("%d\n", pid)), 0644); err != nil {
		cmd.Process.Kill() //nolint:errcheck
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	if err := cmd.Process.Release(); err != nil {
		return fmt.Errorf("failed to release process: %w", err)
	}

	return nil
}

// stopDaemon stops a running daemon by sending SIGTERM to the process named
// in the PID file.
func stopDaemon(pidFile string) error {
	pid, err := readPIDFile(pidFile)
	if err != nil {
		return err
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to send SIGTERM to process %d: %w", pid, err)
	}

	return nil
}

// isDaemonRunning checks the PID file and probes the named process with
// signal 0. A stale PID file is removed.
func isDaemonRunning(pidFile string) (bool, error) {
	pid, err := readPIDFile(pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		if _, bad := err.(*badPIDError); bad {
			// Invalid PID file, consider daemon not running.
			return false, nil
		}
		return false, err
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false, nil
	}

	if err := process.Signal(syscall.Signal(0)); err != nil {
		// Process doesn't exist, remove stale PID file.
		os.Remove(pidFile) //nolint:errcheck
		return false, nil
	}

	return true, nil
}

type badPIDError struct{ raw string }

func (e *badPIDError) Error() string {
	return fmt.Sprintf("invalid PID in file: %q", e.raw)
}

// readPIDFile parses the PID stored in pidFile. Missing-file errors pass
// through so callers can distinguish "not running" from real failures.
func readPIDFile(pidFile string) (int, error) {
	data, err := os.ReadFile(pidFile)
	if err != nil {
		return 0, err
	}

	raw := strings.TrimSpace(string(data))
	pid, err := strconv.Atoi(raw)
	if err != nil || pid <= 0 {
		return 0, &badPIDError{raw: raw}
	}
	return pid, nil
}
