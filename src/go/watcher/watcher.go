// Package watcher reports batches of file changes below a search root.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// DefaultDebounce is the quiet period closing a batch
const DefaultDebounce = 250 * time.Millisecond

// FileOperation represents the type of file operation
type FileOperation int

const (
	OpCreate FileOperation = iota
	OpModify
	OpDelete
	OpRename
)

func (op FileOperation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is the last operation seen on a path within a batch
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// Watcher monitors a directory tree
type Watcher struct {
	fsWatcher   *fsnotify.Watcher
	filter      *Filter
	debounce    time.Duration
	events      chan []FileEvent
	mu          sync.Mutex
	watchedDirs map[string]bool
}

// NewWatcher creates a watcher reporting the changes filter accepts, once no
// further change arrived for debounce
func NewWatcher(debounce time.Duration, filter *Filter) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fs watcher: %w", err)
	}

	return &Watcher{
		fsWatcher:   fsWatcher,
		filter:      filter,
		debounce:    debounce,
		events:      make(chan []FileEvent),
		watchedDirs: make(map[string]bool),
	}, nil
}

// AddPath watches dir and every subdirectory the filter does not prune
func (w *Watcher) AddPath(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("failed to stat path %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	return w.addDirectory(dir)
}

func (w *Watcher) addDirectory(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// vanished or unreadable, nothing to watch
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.filter.SkipDir(path) {
			return filepath.SkipDir
		}

		w.mu.Lock()
		defer w.mu.Unlock()
		if w.watchedDirs[path] {
			return nil
		}
		if err := w.fsWatcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		w.watchedDirs[path] = true
		return nil
	})
}

// Start delivers batches on Events until ctx is done or the watcher is
// closed; the channel is closed afterwards
func (w *Watcher) Start(ctx context.Context) {
	go w.loop(ctx)
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.events)

	pending := make(map[string]int)
	var batch []FileEvent
	var flush <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			fe, ok := w.process(event)
			if !ok {
				continue
			}

			if i, seen := pending[fe.Path]; seen {
				batch[i].Operation = fe.Operation
			} else {
				pending[fe.Path] = len(batch)
				batch = append(batch, fe)
			}
			flush = time.After(w.debounce)

		case <-flush:
			flush = nil
			select {
			case w.events <- batch:
			case <-ctx.Done():
				return
			}
			pending = make(map[string]int)
			batch = nil

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("watcher error")
		}
	}
}

// process turns an fsnotify event into a file event, following newly created
// directories on the way
func (w *Watcher) process(event fsnotify.Event) (FileEvent, bool) {
	var op FileOperation
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.filter.SkipDir(event.Name) {
				if err := w.addDirectory(event.Name); err != nil {
					log.Warn().Err(err).Str("dir", event.Name).Msg("cannot watch new directory")
				}
			}
			return FileEvent{}, false
		}
	case event.Has(fsnotify.Write):
		op = OpModify
	case event.Has(fsnotify.Remove):
		op = OpDelete
		w.forget(event.Name)
	case event.Has(fsnotify.Rename):
		op = OpRename
		w.forget(event.Name)
	default:
		return FileEvent{}, false
	}

	if !w.filter.Match(event.Name) {
		return FileEvent{}, false
	}

	log.Debug().Str("path", event.Name).Stringer("op", op).Msg("change")
	return FileEvent{Path: event.Name, Operation: op}, true
}

func (w *Watcher) forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.watchedDirs, path)
}

// Events returns the batch channel
func (w *Watcher) Events() <-chan []FileEvent {
	return w.events
}

// WatchedDirs returns the number of directories being watched
func (w *Watcher) WatchedDirs() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.watchedDirs)
}

// Close stops the watcher
func (w *Watcher) Close() error {
	return w.fsWatcher.Close()
}
