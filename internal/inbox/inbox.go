// Package inbox watches a drop folder for case snapshot files. Any .json file
// placed in the folder is imported into the board; the file is then renamed
// with an .imported or .rejected suffix so it is never processed twice.
package inbox

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/corkboard/internal/boardservice"
)

// settleDelay is how long a file must be quiet before it is read. Editors and
// downloads often write a file in several chunks.
const settleDelay = 200 * time.Millisecond

// EventCallback is called after a file has been processed.
// kind is "imported" or "rejected".
type EventCallback func(kind string, name string)

// Watch starts an fsnotify watcher on the inbox directory and imports snapshot
// files until ctx is cancelled. Files already present at startup are processed
// first. It calls cb (if non-nil) after each processed file.
func Watch(ctx context.Context, svc *boardservice.Service, dir string, logger *slog.Logger, cb EventCallback) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}

	logger.Info("inbox: started", slog.String("dir", dir))

	// ready receives paths whose settle timer fired. Timers live in pending
	// so a burst of writes to the same file collapses into one import.
	ready := make(chan string, 16)
	pending := make(map[string]*time.Timer)

	schedule := func(path string) {
		if t, ok := pending[path]; ok {
			t.Reset(settleDelay)
			return
		}
		pending[path] = time.AfterFunc(settleDelay, func() {
			select {
			case ready <- path:
			case <-ctx.Done():
			}
		})
	}

	// Drain anything already sitting in the inbox.
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() && isSnapshotName(e.Name()) {
			schedule(filepath.Join(dir, e.Name()))
		}
	}

	for {
		select {
		case <-ctx.Done():
			for _, t := range pending {
				t.Stop()
			}
			logger.Info("inbox: stopped")
			return nil

		case path := <-ready:
			delete(pending, path)
			processFile(svc, path, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !isSnapshotName(filepath.Base(ev.Name)) {
				continue
			}
			schedule(ev.Name)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("inbox: error", slog.String("error", watchErr.Error()))
		}
	}
}

// isSnapshotName reports whether the file is an unprocessed snapshot.
func isSnapshotName(name string) bool {
	return strings.HasSuffix(name, ".json") &&
		!strings.HasSuffix(name, ".imported.json") &&
		!strings.HasSuffix(name, ".rejected.json")
}

// processFile imports one snapshot and renames it out of the way.
func processFile(svc *boardservice.Service, path string, logger *slog.Logger, cb EventCallback) {
	name := filepath.Base(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Removed before the settle timer fired.
			return
		}
		logger.Warn("inbox: read failed", slog.String("file", name), slog.String("error", err.Error()))
		return
	}

	c, importErr := svc.ImportCase(string(data))
	if importErr != nil {
		logger.Warn("inbox: snapshot rejected", slog.String("file", name), slog.String("error", importErr.Error()))
		markProcessed(path, ".rejected.json", logger)
		if cb != nil {
			cb("rejected", name)
		}
		return
	}

	logger.Info("inbox: snapshot imported", slog.String("file", name), slog.String("case", c.ID))
	markProcessed(path, ".imported.json", logger)
	if cb != nil {
		cb("imported", name)
	}
}

// markProcessed renames path by swapping its .json suffix for the given one.
func markProcessed(path, suffix string, logger *slog.Logger) {
	dst := strings.TrimSuffix(path, ".json") + suffix
	if err := os.Rename(path, dst); err != nil {
		logger.Warn("inbox: rename failed", slog.String("file", filepath.Base(path)), slog.String("error", err.Error()))
	}
}
