package library

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultSettleWindow = 2 * time.Second

// Watcher auto-imports media dropped into a watch folder. Files are imported
// only once their modification time has settled, so a file still being
// copied in is not picked up half-written.
type Watcher struct {
	service *Service
	dir     string
	settle  time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[string]time.Time
}

func NewWatcher(service *Service, dir string, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		service: service,
		dir:     dir,
		settle:  defaultSettleWindow,
		logger:  logger,
		pending: make(map[string]time.Time),
	}
}

// Start watches the folder until the context is cancelled. Files already in
// the folder are imported on startup.
func (w *Watcher) Start(ctx context.Context) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsWatcher.Close()

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return err
	}
	if err := fsWatcher.Add(w.dir); err != nil {
		return err
	}

	w.importExisting(ctx)

	w.logger.Info("watch folder active", "dir", w.dir)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watch folder stopping")
			return nil

		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !IsMediaFile(event.Name) {
				continue
			}
			info, err := os.Stat(event.Name)
			if err != nil || info.IsDir() {
				continue
			}
			w.mu.Lock()
			w.pending[event.Name] = time.Now()
			w.mu.Unlock()

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch folder error", "error", err)

		case now := <-ticker.C:
			w.importSettled(ctx, now)
		}
	}
}

func (w *Watcher) importExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("failed to scan watch folder", "error", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !IsMediaFile(entry.Name()) {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		if _, err := w.service.ImportFile(ctx, path); err != nil {
			w.logger.Warn("failed to import existing file", "path", path, "error", err)
		}
	}
}

func (w *Watcher) importSettled(ctx context.Context, now time.Time) {
	threshold := now.Add(-w.settle)

	w.mu.Lock()
	var ready []string
	for path, seen := range w.pending {
		if seen.Before(threshold) {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, path := range ready {
		if _, err := w.service.ImportFile(ctx, path); err != nil {
			w.logger.Warn("failed to import watched file", "path", path, "error", err)
		}
	}
}
