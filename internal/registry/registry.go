// Package registry holds the in-memory set of parsed source files.
//
// The registry is keyed by the normalized absolute path of each file (see
// Key). It is mutated by a single writer, the merge service, and read
// through copying accessors so callers never hold a live reference into the
// map. Change notifications are broadcast to subscribers on a best-effort
// basis.
package registry

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// CodeFile is the transformed record of one relevant source file.
type CodeFile struct {
	// Path is the normalized absolute path and the registry key.
	Path string
	// Package is the declared package/namespace, or empty.
	Package string
	// Imports holds the file's import lines in first-seen order.
	Imports []string
	// Content is the transformed body, LF-terminated lines.
	Content string
	// Hash is a CRC32-Castagnoli checksum of the raw file bytes.
	Hash string
	// ModTime is the file's modification time at read.
	ModTime time.Time
}

// Clone returns a deep copy of f.
func (f *CodeFile) Clone() *CodeFile {
	if f == nil {
		return nil
	}
	c := *f
	c.Imports = append([]string(nil), f.Imports...)
	return &c
}

// EventType represents the type of registry event
type EventType int

const (
	EventTypeAdded EventType = iota
	EventTypeUpdated
	EventTypeRemoved
)

// String returns the string representation of the EventType
func (e EventType) String() string {
	switch e {
	case EventTypeAdded:
		return "added"
	case EventTypeUpdated:
		return "updated"
	case EventTypeRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// FileEvent represents a change in the registry
type FileEvent struct {
	Type      EventType
	Path      string
	Timestamp time.Time
}

// FileRegistry maps normalized paths to CodeFiles.
type FileRegistry struct {
	files    map[string]*CodeFile
	mutex    sync.RWMutex
	watchers []chan FileEvent
}

// NewFileRegistry creates an empty registry
func NewFileRegistry() *FileRegistry {
	return &FileRegistry{
		files:    make(map[string]*CodeFile),
		watchers: make([]chan FileEvent, 0),
	}
}

// Key normalizes path into the form used for every registry operation:
// absolute and cleaned. Symlinks are not resolved here because a deleted
// file can no longer be resolved; roots are resolved once at startup
// instead.
func Key(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

// Put inserts file or replaces the entry with the same path. The stored
// record is a copy.
func (r *FileRegistry) Put(file *CodeFile) {
	stored := file.Clone()
	stored.Path = Key(file.Path)

	r.mutex.Lock()
	defer r.mutex.Unlock()

	eventType := EventTypeAdded
	if _, exists := r.files[stored.Path]; exists {
		eventType = EventTypeUpdated
	}
	r.files[stored.Path] = stored

	r.notify(FileEvent{Type: eventType, Path: stored.Path, Timestamp: time.Now()})
}

// Get returns a copy of the entry stored for path.
func (r *FileRegistry) Get(path string) (*CodeFile, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	file, exists := r.files[Key(path)]
	if !exists {
		return nil, false
	}
	return file.Clone(), true
}

// Has reports whether path is registered.
func (r *FileRegistry) Has(path string) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	_, exists := r.files[Key(path)]
	return exists
}

// Remove deletes the entry for path. It reports whether anything was removed.
func (r *FileRegistry) Remove(path string) bool {
	key := Key(path)

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.files[key]; !exists {
		return false
	}
	delete(r.files, key)

	r.notify(FileEvent{Type: EventTypeRemoved, Path: key, Timestamp: time.Now()})
	return true
}

// RemoveTree deletes every entry located under dir and returns how many
// entries were dropped.
func (r *FileRegistry) RemoveTree(dir string) int {
	prefix := Key(dir) + string(filepath.Separator)

	r.mutex.Lock()
	defer r.mutex.Unlock()

	removed := 0
	now := time.Now()
	for key := range r.files {
		if strings.HasPrefix(key, prefix) {
			delete(r.files, key)
			removed++
			r.notify(FileEvent{Type: EventTypeRemoved, Path: key, Timestamp: now})
		}
	}
	return removed
}

// Values returns copies of every entry sorted by path.
func (r *FileRegistry) Values() []*CodeFile {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]*CodeFile, 0, len(r.files))
	for _, file := range r.files {
		result = append(result, file.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Path < result[j].Path
	})
	return result
}

// Paths returns the registered keys in sorted order.
func (r *FileRegistry) Paths() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	paths := make([]string, 0, len(r.files))
	for key := range r.files {
		paths = append(paths, key)
	}
	sort.Strings(paths)
	return paths
}

// Snapshot returns a copy of the whole map.
func (r *FileRegistry) Snapshot() map[string]*CodeFile {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make(map[string]*CodeFile, len(r.files))
	for key, file := range r.files {
		result[key] = file.Clone()
	}
	return result
}

// Count returns the number of registered files
func (r *FileRegistry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.files)
}

// Watch returns a channel that receives registry events
func (r *FileRegistry) Watch() <-chan FileEvent {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ch := make(chan FileEvent, 100)
	r.watchers = append(r.watchers, ch)
	return ch
}

// UnWatch removes a watcher channel and closes it
func (r *FileRegistry) UnWatch(ch <-chan FileEvent) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for i, watcher := range r.watchers {
		if watcher == ch {
			close(watcher)
			r.watchers = append(r.watchers[:i], r.watchers[i+1:]...)
			break
		}
	}
}

// notify must be called with the write lock held.
func (r *FileRegistry) notify(event FileEvent) {
	for _, watcher := range r.watchers {
		select {
		case watcher <- event:
		default:
			// Skip if channel is full
		}
	}
}
