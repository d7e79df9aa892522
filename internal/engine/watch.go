package engine

import (
	"github.com/fsnotify/fsnotify"
)

// watcher abstracts *fsnotify.Watcher for tests.
type watcher interface {
	Add(name string) error
	Remove(name string) error
	Close() error
}

// EnableWatch starts invalidating cached state when a loaded bundle file is
// rewritten, renamed, or removed. Support bundles are occasionally
// re-exported in place; a stale index over a new file would serve garbage
// offsets.
func (e *Engine) EnableWatch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	e.watchMu.Lock()
	if e.watcher != nil {
		e.watchMu.Unlock()
		w.Close()
		return nil
	}
	e.watcher = w
	e.watchMu.Unlock()

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
					e.logger.Info("bundle changed on disk, invalidating", "path", ev.Name, "op", ev.Op.String())
					e.Invalidate(ev.Name)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				e.logger.Warn("file watcher error", "error", err)
			}
		}
	}()
	return nil
}

func (e *Engine) watchPath(path string) {
	e.watchMu.Lock()
	w := e.watcher
	e.watchMu.Unlock()
	if w == nil {
		return
	}
	if err := w.Add(path); err != nil {
		e.logger.Warn("watching bundle file", "path", path, "error", err)
	}
}

func (e *Engine) unwatchPath(path string) {
	e.watchMu.Lock()
	w := e.watcher
	e.watchMu.Unlock()
	if w == nil {
		return
	}
	// Removing a watch for an already-forgotten path is not an error worth
	// surfacing.
	_ = w.Remove(path)
}

func (e *Engine) closeWatcher() {
	e.watchMu.Lock()
	w := e.watcher
	e.watcher = nil
	e.watchMu.Unlock()
	if w != nil {
		w.Close()
	}
}
