package reload

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/flowstudio/vue-collection-cluster/pkg/bundle"
	"github.com/flowstudio/vue-collection-cluster/pkg/logging"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 300 * time.Millisecond

// Watcher reports edits to a build file. Saves that leave the contents
// unchanged are not reported.
type Watcher struct {
	path     string
	onChange func(path string) error
	logger   *slog.Logger
	debounce time.Duration
	digest   string // of the last contents reported or seen at start
}

// NewWatcher creates a watcher for the build file at path. onChange receives
// the path of the file whose contents changed.
func NewWatcher(path string, onChange func(path string) error) *Watcher {
	return &Watcher{
		path:     path,
		onChange: onChange,
		logger:   logging.NewDiscardLogger(),
		debounce: DefaultDebounce,
	}
}

// SetLogger sets the logger for watcher events.
func (w *Watcher) SetLogger(logger *slog.Logger) {
	if logger != nil {
		w.logger = logger
	}
}

// SetDebounce sets the debounce duration for file changes.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Watch blocks until ctx is cancelled.
//
// The parent directory is watched so that saves which rename a temp file
// over the build file keep being seen.
func (w *Watcher) Watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	w.digest, _ = w.read()
	w.logger.Info("watching build file", "path", w.path)

	settle := time.NewTimer(w.debounce)
	settle.Stop()
	defer settle.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stopping build file watcher")
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			w.logger.Debug("build file event", "op", event.Op.String())
			settle.Reset(w.debounce)

		case <-settle.C:
			w.settled()

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

// settled runs once events stop arriving and reports a content change.
func (w *Watcher) settled() {
	digest, ok := w.read()
	switch {
	case !ok:
		// Mid-rename or deleted; the next create is reported.
		w.logger.Warn("build file missing, keeping current configuration", "path", w.path)
		w.digest = ""
		return
	case digest == w.digest:
		w.logger.Debug("build file saved without changes")
		return
	}
	w.digest = digest

	w.logger.Info("build file changed, reloading", "path", w.path)
	if err := w.onChange(w.path); err != nil {
		w.logger.Error("reload failed", "error", err)
	}
}

func (w *Watcher) read() (string, bool) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return "", false
	}
	return bundle.Digest(data), true
}
