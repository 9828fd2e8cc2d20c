package notify

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Spool delivers install-request signals sent by a cooperating process.
//
// The channel is a directory: the sender writes one JSON object per request
// (temp file + rename, so a file is complete once it appears) and the spool
// watches for new files, parses each as an opaque payload, and deletes it.
// Files already present at subscribe time are drained first so requests sent
// while the daemon was down are not lost.
type Spool struct {
	dir string
	log *zap.Logger
}

// NewSpool creates a spool source over dir.
func NewSpool(dir string, log *zap.Logger) *Spool {
	return &Spool{dir: dir, log: log}
}

// Subscribe starts watching the spool directory. Only the InstallRequest
// kind is served; asking for anything else is a registration bug.
func (s *Spool) Subscribe(kind Kind, deliver chan<- Notification) (Subscription, error) {
	if kind != InstallRequest {
		return nil, fmt.Errorf("spool source does not deliver %q notifications", kind)
	}

	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create spool watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch spool dir: %w", err)
	}

	sub := &spoolSubscription{
		spool:   s,
		watcher: watcher,
		deliver: deliver,
		stop:    make(chan struct{}),
	}
	go sub.run()
	return sub, nil
}

type spoolSubscription struct {
	spool   *Spool
	watcher *fsnotify.Watcher
	deliver chan<- Notification
	stop    chan struct{}
	once    sync.Once
}

// Cancel stops the watcher goroutine. Idempotent.
func (sub *spoolSubscription) Cancel() error {
	sub.once.Do(func() { close(sub.stop) })
	return nil
}

func (sub *spoolSubscription) run() {
	defer sub.watcher.Close()

	// Drain requests that arrived while nobody was listening.
	sub.drainExisting()

	for {
		select {
		case ev, ok := <-sub.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !isSpoolFile(ev.Name) {
				continue
			}
			if !sub.process(ev.Name) {
				return
			}
		case err, ok := <-sub.watcher.Errors:
			if !ok {
				return
			}
			sub.spool.log.Warn("spool watcher error", zap.Error(err))
		case <-sub.stop:
			return
		}
	}
}

// drainExisting processes spool files already on disk, oldest name first.
func (sub *spoolSubscription) drainExisting() {
	entries, err := os.ReadDir(sub.spool.dir)
	if err != nil {
		sub.spool.log.Warn("read spool dir", zap.Error(err))
		return
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(sub.spool.dir, e.Name())
		if isSpoolFile(path) {
			names = append(names, path)
		}
	}
	sort.Strings(names)

	for _, path := range names {
		if !sub.process(path) {
			return
		}
	}
}

// process reads, parses, delivers and removes one spool file. A payload that
// fails to parse is moved aside with a ".bad" suffix so it cannot wedge the
// spool. Returns false when the subscription was cancelled mid-delivery.
func (sub *spoolSubscription) process(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			sub.spool.log.Warn("read spool file", zap.String("file", path), zap.Error(err))
		}
		return true
	}

	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		sub.spool.log.Warn("malformed install request, moving aside",
			zap.String("file", path), zap.Error(err))
		if err := os.Rename(path, path+".bad"); err != nil {
			sub.spool.log.Warn("move malformed install request", zap.Error(err))
		}
		return true
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		sub.spool.log.Warn("remove spool file", zap.String("file", path), zap.Error(err))
	}

	select {
	case sub.deliver <- Notification{Kind: InstallRequest, Payload: payload}:
		return true
	case <-sub.stop:
		return false
	}
}

// isSpoolFile reports whether path names a completed request file. Hidden
// files and the sender's temp files are skipped.
func isSpoolFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return strings.HasSuffix(base, ".json")
}
