// Command installrequest signals install intent to a running appusaged.
//
// It drops one JSON payload into the install-request spool directory, where
// the monitor picks it up. The payload is either read from stdin (with
// --stdin) or assembled from key=value arguments:
//
//	installrequest event=install name=Firefox version=115.0
//
// The file is written via temp + rename so the monitor never sees a partial
// payload.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mrhappymac/munki/internal/config"
	"github.com/mrhappymac/munki/internal/notify"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "installrequest: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fromStdin := false
	var pairs []string
	for _, arg := range args {
		if arg == "--stdin" {
			fromStdin = true
			continue
		}
		pairs = append(pairs, arg)
	}

	payload, err := buildPayload(fromStdin, pairs)
	if err != nil {
		return err
	}

	dir, err := config.Dir()
	if err != nil {
		return fmt.Errorf("resolve state dir: %w", err)
	}
	spoolDir := filepath.Join(dir, notify.InstallRequestChannel)
	if err := os.MkdirAll(spoolDir, 0700); err != nil {
		return fmt.Errorf("create spool dir: %w", err)
	}

	return writeSpoolFile(spoolDir, payload)
}

// buildPayload decodes stdin or folds key=value args into an object.
func buildPayload(fromStdin bool, pairs []string) (map[string]any, error) {
	if fromStdin {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		var payload map[string]any
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("parse payload: %w", err)
		}
		return payload, nil
	}

	if len(pairs) == 0 {
		return nil, fmt.Errorf("nothing to send: pass key=value arguments or --stdin")
	}

	payload := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		idx := strings.IndexByte(pair, '=')
		if idx <= 0 {
			return nil, fmt.Errorf("malformed argument %q, want key=value", pair)
		}
		payload[pair[:idx]] = pair[idx+1:]
	}
	return payload, nil
}

// writeSpoolFile lands the payload atomically: temp file then rename, so the
// watching monitor only ever observes complete files.
func writeSpoolFile(spoolDir string, payload map[string]any) error {
	blob, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	name := fmt.Sprintf("%d-%s.json", time.Now().UnixNano(), uuid.NewString())
	tmpPath := filepath.Join(spoolDir, "."+name+".tmp")
	finalPath := filepath.Join(spoolDir, name)

	if err := os.WriteFile(tmpPath, blob, 0600); err != nil {
		return fmt.Errorf("write spool file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath) //nolint:errcheck
		return fmt.Errorf("publish spool file: %w", err)
	}
	return nil
}
