package brands

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
)

// Watcher keeps the catalog in sync with brands.json on disk
type Watcher struct {
	path    string
	current atomic.Pointer[Catalog]
	logger  *logger.Logger
}

// NewWatcher loads the file once; a missing or broken file is an error here
// but only a warning on later reloads.
func NewWatcher(path string, log *logger.Logger) (*Watcher, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:   path,
		logger: log.Named("brands-watcher"),
	}
	w.current.Store(c)
	w.logger.Info("Brands loaded", zap.String("file", path), zap.Int("brands", c.Len()))
	return w, nil
}

// Catalog returns the latest successfully loaded catalog
func (w *Watcher) Catalog() *Catalog {
	return w.current.Load()
}

// Reload re-reads the file, keeping the previous catalog on failure
func (w *Watcher) Reload() error {
	c, err := Load(w.path)
	if err != nil {
		w.logger.Warn("Brands reload failed, keeping previous list", zap.Error(err))
		return err
	}
	w.current.Store(c)
	w.logger.Info("Brands reloaded", zap.Int("brands", c.Len()))
	return nil
}

// Run watches the file's directory until ctx is cancelled. The directory is
// watched because editors and config mounts replace the file.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	target := filepath.Clean(w.path)
	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Rename) {
				_ = w.Reload()
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("File watcher error", zap.Error(err))

		case <-ctx.Done():
			return nil
		}
	}
}
