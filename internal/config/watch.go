package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/chainguard-dev/clog"
	"github.com/fsnotify/fsnotify"
)

// Watcher notices edits to a projects file so a long-running process can
// reload it between build rounds. Editors often replace the file rather than
// write it in place, so the parent directory is watched.
type Watcher struct {
	watcher *fsnotify.Watcher
	path    string
	changed atomic.Bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewWatcher starts watching path. Stop releases the watch.
func NewWatcher(ctx context.Context, path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	cw := &Watcher{
		watcher: w,
		path:    abs,
		stopCh:  make(chan struct{}),
	}
	go cw.eventLoop(clog.FromContext(ctx).With("config", abs))
	return cw, nil
}

// Changed reports whether the file changed since the last call.
func (w *Watcher) Changed() bool {
	return w.changed.Swap(false)
}

// Stop closes the watcher. Safe to call multiple times.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.watcher.Close()
	})
}

func (w *Watcher) eventLoop(log *clog.Logger) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				log.Debugf("projects file changed (%s)", event.Op)
				w.changed.Store(true)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warnf("config watcher: %v", err)
		case <-w.stopCh:
			return
		}
	}
}
