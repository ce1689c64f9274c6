// Package watcher keeps a recursive set of directories registered with
// fsnotify and hands their events to a single consumer, one at a time.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	mergeerrors "github.com/conneroisu/srcmerge/internal/errors"
	"github.com/conneroisu/srcmerge/internal/logging"
)

// ErrNoWatchedDirectories is returned by Next once every registered
// directory has gone away.
var ErrNoWatchedDirectories = errors.New("no watched directories left")

// ErrClosed is returned by Next after Close.
var ErrClosed = errors.New("watcher closed")

// EventKind represents the type of directory entry change
type EventKind int

const (
	EventCreate EventKind = iota
	EventModify
	EventDelete
)

// String returns the string representation of the EventKind
func (k EventKind) String() string {
	switch k {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Event is one change to an entry of a watched directory.
type Event struct {
	Kind EventKind
	Dir  string
	Name string
}

// Path returns the full path of the affected entry.
func (e Event) Path() string {
	return filepath.Join(e.Dir, e.Name)
}

// DirFilter reports whether a directory (by base name) should be skipped.
type DirFilter func(name string) bool

// ExcludeFilter skips directories whose base name matches any of the glob
// patterns. Malformed patterns never match.
func ExcludeFilter(patterns []string) DirFilter {
	return func(name string) bool {
		for _, pattern := range patterns {
			if ok, _ := filepath.Match(pattern, name); ok {
				return true
			}
		}
		return false
	}
}

// Options configures a DirectoryWatcher.
type Options struct {
	Skip DirFilter
}

// DirectoryWatcher wraps an fsnotify watcher together with the set of
// directories it currently tracks.
type DirectoryWatcher struct {
	fs     *fsnotify.Watcher
	logger logging.Logger
	skip   DirFilter
	dirs   map[string]struct{}
	mutex  sync.RWMutex
}

// New creates a DirectoryWatcher with an empty watch set.
func New(logger logging.Logger, opts Options) (*DirectoryWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, mergeerrors.WrapStartup(err, mergeerrors.ErrCodeWatcherInit, "cannot create file watcher")
	}

	if logger == nil {
		logger = logging.Discard()
	}
	skip := opts.Skip
	if skip == nil {
		skip = func(string) bool { return false }
	}

	return &DirectoryWatcher{
		fs:     fw,
		logger: logger.WithComponent("watcher"),
		skip:   skip,
		dirs:   make(map[string]struct{}),
	}, nil
}

// RegisterTree registers root and every directory beneath it. A root that
// does not exist or cannot be traversed is a startup error. A subdirectory
// that cannot be registered is logged and its subtree skipped.
func (w *DirectoryWatcher) RegisterTree(root string) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return mergeerrors.WrapStartup(err, mergeerrors.ErrCodeRootMissing, "cannot resolve watch root").WithPath(root)
	}

	info, err := os.Stat(root)
	if err != nil {
		return mergeerrors.WrapStartup(err, mergeerrors.ErrCodeRootMissing, "watch root does not exist").WithPath(root)
	}
	if !info.IsDir() {
		return mergeerrors.NewStartupError(mergeerrors.ErrCodeRootNotDirectory, "watch root is not a directory", nil).WithPath(root)
	}

	ctx := context.Background()
	added := 0

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return mergeerrors.WrapStartup(err, mergeerrors.ErrCodeRootWalk, "cannot traverse watch root").WithPath(root)
			}
			w.logger.Warn(ctx,
				mergeerrors.NewWatchRegistrationError(mergeerrors.ErrCodeWatchAdd, "cannot read directory", err).WithPath(path),
				"Skipping subtree")
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if !d.IsDir() {
			return nil
		}
		if path != root && w.skip(d.Name()) {
			return fs.SkipDir
		}

		if err := w.add(path); err != nil {
			if path == root {
				return mergeerrors.WrapStartup(err, mergeerrors.ErrCodeWatchAdd, "cannot watch root").WithPath(root)
			}
			w.logger.Warn(ctx,
				mergeerrors.NewWatchRegistrationError(mergeerrors.ErrCodeWatchAdd, "cannot watch directory", err).WithPath(path),
				"Skipping subtree")
			return fs.SkipDir
		}
		added++
		return nil
	})
	if walkErr != nil {
		return walkErr
	}

	w.logger.Debug(ctx, "Registered directory tree", "root", root, "directories", added)
	return nil
}

func (w *DirectoryWatcher) add(dir string) error {
	dir = filepath.Clean(dir)

	w.mutex.Lock()
	defer w.mutex.Unlock()

	if _, ok := w.dirs[dir]; ok {
		return nil
	}
	if err := w.fs.Add(dir); err != nil {
		return err
	}
	w.dirs[dir] = struct{}{}
	return nil
}

// forget drops dir and every tracked descendant. It returns the number of
// directories dropped.
func (w *DirectoryWatcher) forget(dir string) int {
	prefix := dir + string(filepath.Separator)

	w.mutex.Lock()
	defer w.mutex.Unlock()

	dropped := 0
	for d := range w.dirs {
		if d == dir || strings.HasPrefix(d, prefix) {
			delete(w.dirs, d)
			// The kernel usually removed the watch already.
			_ = w.fs.Remove(d)
			dropped++
		}
	}
	return dropped
}

// IsWatched reports whether dir is in the watch set.
func (w *DirectoryWatcher) IsWatched(dir string) bool {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	_, ok := w.dirs[filepath.Clean(dir)]
	return ok
}

// Count returns the number of watched directories.
func (w *DirectoryWatcher) Count() int {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	return len(w.dirs)
}

// Dirs returns the watched directories in lexical order.
func (w *DirectoryWatcher) Dirs() []string {
	w.mutex.RLock()
	dirs := make([]string, 0, len(w.dirs))
	for d := range w.dirs {
		dirs = append(dirs, d)
	}
	w.mutex.RUnlock()

	sort.Strings(dirs)
	return dirs
}

// Next blocks until an event for a watched directory is available. Overflow
// notifications are swallowed. It returns ctx.Err() when ctx is cancelled
// and ErrNoWatchedDirectories once the watch set is empty.
func (w *DirectoryWatcher) Next(ctx context.Context) (Event, error) {
	for {
		if w.Count() == 0 {
			return Event{}, ErrNoWatchedDirectories
		}

		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()

		case ev, ok := <-w.fs.Events:
			if !ok {
				return Event{}, ErrClosed
			}
			if out, ok := w.translate(ctx, ev); ok {
				return out, nil
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return Event{}, ErrClosed
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.logger.Debug(ctx, "Event queue overflowed, some events may be lost")
				continue
			}
			w.logger.Warn(ctx, err, "File watcher error")
		}
	}
}

func (w *DirectoryWatcher) translate(ctx context.Context, ev fsnotify.Event) (Event, bool) {
	var kind EventKind
	switch {
	case ev.Has(fsnotify.Create):
		kind = EventCreate
	case ev.Has(fsnotify.Write):
		kind = EventModify
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		kind = EventDelete
	default:
		return Event{}, false
	}

	name := filepath.Clean(ev.Name)
	dir := filepath.Dir(name)

	// A watched directory that went away is reported even when its parent is
	// not watched, as happens for a root, so its files can be dropped.
	if kind == EventDelete && w.IsWatched(name) {
		dropped := w.forget(name)
		w.logger.Debug(ctx, "Directory went away", "dir", name, "dropped", dropped)
		return Event{Kind: kind, Dir: dir, Name: filepath.Base(name)}, true
	}

	if !w.IsWatched(dir) {
		w.logger.Debug(ctx, "Ignoring event",
			"error", mergeerrors.NewUnrecognizedWatchError(dir).Error(),
			"op", ev.Op.String(), "path", name)
		return Event{}, false
	}

	return Event{Kind: kind, Dir: dir, Name: filepath.Base(name)}, true
}

// Close stops the underlying fsnotify watcher.
func (w *DirectoryWatcher) Close() error {
	w.mutex.Lock()
	w.dirs = make(map[string]struct{})
	w.mutex.Unlock()
	return w.fs.Close()
}
