package editor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/sitepublisher/internal/logfields"
)

// DefaultDebounce coalesces the bursts of events editors produce on save.
const DefaultDebounce = 500 * time.Millisecond

// ChangeFunc receives the file contents after each debounced change.
type ChangeFunc func(ctx context.Context, data []byte) error

// Watcher calls a ChangeFunc whenever a local file changes.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange ChangeFunc
	watcher  *fsnotify.Watcher
}

// NewWatcher watches path. The parent directory is watched so atomic replace-on-save
// is seen as well as in-place writes.
func NewWatcher(path string, debounce time.Duration, onChange ChangeFunc) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve watch path: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch directory %s: %w", filepath.Dir(abs), err)
	}
	return &Watcher{path: abs, debounce: debounce, onChange: onChange, watcher: fw}, nil
}

// Run processes events until ctx is done. ChangeFunc errors are logged and watching
// continues.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	name := filepath.Base(w.path)
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	slog.Info("Watching file for changes", logfields.Path(w.path))
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			slog.Debug("File change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
			timer.Reset(w.debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("File watcher error", logfields.Error(err))
		case <-timer.C:
			w.fire(ctx)
		}
	}
}

func (w *Watcher) fire(ctx context.Context) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		// Renamed away mid-save; the following create event fires again.
		slog.Warn("Changed file not readable", logfields.Path(w.path), logfields.Error(err))
		return
	}
	if err := w.onChange(ctx, data); err != nil {
		slog.Error("Change handler failed", logfields.Path(w.path), logfields.Error(err))
	}
}
