package file

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/c360/filestreams/errors"
)

// watcher turns filesystem events under a directory into wake-ups for the
// poll loop. Wake-ups are coalesced: at most one is pending at a time.
type watcher struct {
	fs        *fsnotify.Watcher
	recursive bool
	wake      chan struct{}
	logger    *slog.Logger
}

func newWatcher(root string, recursive bool, logger *slog.Logger) (*watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WrapTransient(err, "watcher", "newWatcher", "create fsnotify watcher")
	}
	if err := fw.Add(root); err != nil {
		_ = fw.Close()
		return nil, errors.WrapTransient(err, "watcher", "newWatcher", "watch directory")
	}

	w := &watcher{
		fs:        fw,
		recursive: recursive,
		wake:      make(chan struct{}, 1),
		logger:    logger,
	}
	if recursive {
		w.addTree(root)
	}
	return w, nil
}

// addTree watches every subdirectory below root
func (w *watcher) addTree(root string) {
	_ = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || !entry.IsDir() || path == root {
			return nil
		}
		if err := w.fs.Add(path); err != nil {
			w.logger.Debug("Failed to watch subdirectory", "path", path, "error", err)
		}
		return nil
	})
}

// run forwards events until ctx is done or the watcher is closed
func (w *watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if w.recursive && event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.fs.Add(event.Name)
					w.addTree(event.Name)
				}
			}
			w.signal()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Filesystem watcher error", "error", err)
		}
	}
}

func (w *watcher) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *watcher) close() error {
	return w.fs.Close()
}
