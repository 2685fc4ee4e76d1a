package ml

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"carbonadvisor/monitoring"
)

// ArtifactWatcher reports when a loaded artifact changes on disk. Loaded
// artifacts are never swapped; a restart picks up the new files.
type ArtifactWatcher struct {
	watcher *fsnotify.Watcher
	files   map[string]bool
	logger  *zap.Logger
	changes chan string
}

// NewArtifactWatcher watches the parent directories of paths so that editors
// replacing a file by rename are still seen.
func NewArtifactWatcher(logger *zap.Logger, paths ...string) (*ArtifactWatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	aw := &ArtifactWatcher{
		watcher: w,
		files:   make(map[string]bool, len(paths)),
		logger:  logger,
		changes: make(chan string, 16),
	}
	dirs := make(map[string]bool)
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			w.Close()
			return nil, err
		}
		aw.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			w.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	return aw, nil
}

// Changes delivers the path of each changed artifact. Sends are dropped when
// nobody is reading.
func (aw *ArtifactWatcher) Changes() <-chan string {
	return aw.changes
}

// Run blocks until ctx is done or the watcher is closed.
func (aw *ArtifactWatcher) Run(ctx context.Context) {
	defer aw.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-aw.watcher.Events:
			if !ok {
				return
			}
			aw.handle(event)
		case err, ok := <-aw.watcher.Errors:
			if !ok {
				return
			}
			aw.logger.Warn("artifact watcher error", zap.Error(err))
		}
	}
}

func (aw *ArtifactWatcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil || !aw.files[abs] {
		return
	}
	monitoring.ArtifactChanges.Inc()
	aw.logger.Warn("artifact changed on disk; restart to apply",
		zap.String("path", abs),
		zap.String("op", event.Op.String()))
	select {
	case aw.changes <- abs:
	default:
	}
}
