// Package config provides path resolution and configuration file parsing for
// the usage monitor.
package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// Config holds the resolved runtime paths.
type Config struct {
	// StateDir is the daemon's working directory; everything below
	// defaults to living inside it.
	StateDir string

	// DBPath is the recorder's SQLite database.
	DBPath string

	// LogPath is the daemon's diagnostic log file.
	LogPath string

	// PIDPath is the daemon-mode PID file.
	PIDPath string

	// SpoolDir is the install-request channel directory.
	SpoolDir string
}

// Dir returns the monitor's state directory, respecting APPUSAGED_DIR.
// Defaults to ~/.appusaged if the override is not set.
func Dir() (string, error) {
	if dir := os.Getenv("APPUSAGED_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".appusaged"), nil
}

// Load resolves the default paths under the state directory, then applies
// any overrides from {dir}/appusaged.conf. A missing config file is not an
// error.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	cfg := &Config{
		StateDir: dir,
		DBPath:   filepath.Join(dir, "application_usage.sqlite"),
		LogPath:  filepath.Join(dir, "appusaged.log"),
		PIDPath:  filepath.Join(dir, "appusaged.pid"),
		SpoolDir: filepath.Join(dir, "com.googlecode.munki.installrequest"),
	}

	overrides, err := loadFile(filepath.Join(dir, "appusaged.conf"))
	if err != nil {
		return nil, err
	}
	if v := overrides["db_path"]; v != "" {
		cfg.DBPath = v
	}
	if v := overrides["log_path"]; v != "" {
		cfg.LogPath = v
	}
	if v := overrides["spool_dir"]; v != "" {
		cfg.SpoolDir = v
	}

	return cfg, nil
}

// loadFile reads a key=value config file. If the file does not exist, an
// empty map is returned without an error. Invalid or malformed lines are
// silently skipped.
func loadFile(path string) (map[string]string, error) {
	values := make(map[string]string)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return values, nil
		}
		return values, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip blank lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Expect exactly one "=" separating key from value.
		idx := strings.IndexByte(line, '=')
		if idx <= 0 {
			continue // no "=" or "=" is first character — invalid, skip
		}

		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])

		if key == "" || value == "" {
			continue // either side is blank — invalid, skip
		}

		values[key] = value
	}

	if err := scanner.Err(); err != nil {
		return values, err
	}

	return values, nil
}
