// Package filewatcher provides file system monitoring adapters.
package filewatcher

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/0xcro3dile/askdocs/internal/domain/ports"
)

// DefaultExtensions are watched when none are given.
var DefaultExtensions = []string{".pdf", ".txt", ".md"}

// partialSuffixes mark files still being written by a browser or editor.
var partialSuffixes = []string{".part", ".crdownload", ".download", ".tmp", ".swp", "~"}

// FSNotifyWatcher implements ports.FileWatcher using fsnotify. Hidden files and
// in-progress downloads are ignored.
type FSNotifyWatcher struct {
	fsw        *fsnotify.Watcher
	extensions map[string]bool
	log        *zap.Logger
	stopOnce   sync.Once
	stopErr    error
}

// NewFSNotifyWatcher creates a watcher that reports files with the given extensions.
func NewFSNotifyWatcher(extensions []string, log *zap.Logger) (*FSNotifyWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	if log == nil {
		log = zap.NewNop()
	}

	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		exts[strings.ToLower(e)] = true
	}
	return &FSNotifyWatcher{fsw: fsw, extensions: exts, log: log.Named("watcher")}, nil
}

// Watch starts monitoring dir and emits events until ctx is done or the
// watcher is stopped; the returned channel is then closed.
func (w *FSNotifyWatcher) Watch(ctx context.Context, dir string) (<-chan ports.FileEvent, error) {
	if err := w.fsw.Add(dir); err != nil {
		return nil, err
	}
	w.log.Info("watching directory", zap.String("dir", dir))

	events := make(chan ports.FileEvent, 100)
	go w.loop(ctx, dir, events)
	return events, nil
}

func (w *FSNotifyWatcher) loop(ctx context.Context, dir string, out chan<- ports.FileEvent) {
	defer close(out)
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			ev, keep := w.translate(raw)
			if !keep {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", zap.String("dir", dir), zap.Error(err))
		}
	}
}

// translate maps an fsnotify event onto a FileEvent. Renames are reported as
// deletions of the old name; the new name arrives as its own create.
func (w *FSNotifyWatcher) translate(raw fsnotify.Event) (ports.FileEvent, bool) {
	if !w.Accepts(raw.Name) {
		return ports.FileEvent{}, false
	}
	ev := ports.FileEvent{Path: raw.Name}
	switch {
	case raw.Has(fsnotify.Create):
		ev.Operation = ports.FileCreated
	case raw.Has(fsnotify.Write):
		ev.Operation = ports.FileModified
	case raw.Has(fsnotify.Remove), raw.Has(fsnotify.Rename):
		ev.Operation = ports.FileDeleted
	default:
		return ports.FileEvent{}, false
	}
	return ev, true
}

// Accepts reports whether path is a finished, visible file with a watched extension.
func (w *FSNotifyWatcher) Accepts(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~$") {
		return false
	}
	lower := strings.ToLower(base)
	for _, s := range partialSuffixes {
		if strings.HasSuffix(lower, s) {
			return false
		}
	}
	return w.extensions[filepath.Ext(lower)]
}

// Stop stops the watcher. It is safe to call more than once.
func (w *FSNotifyWatcher) Stop() error {
	w.stopOnce.Do(func() { w.stopErr = w.fsw.Close() })
	return w.stopErr
}
