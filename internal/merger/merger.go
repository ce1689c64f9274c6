// Package merger combines registered source files into one compilation
// unit and writes it atomically.
package merger

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	mergeerrors "github.com/conneroisu/srcmerge/internal/errors"
	"github.com/conneroisu/srcmerge/internal/registry"
)

// ImportOrder controls how the deduplicated import block is ordered.
type ImportOrder int

const (
	// FirstSeen emits imports in the order they are first met while
	// iterating files.
	FirstSeen ImportOrder = iota
	// Sorted emits imports lexicographically.
	Sorted
)

// String returns the configuration name of the order.
func (o ImportOrder) String() string {
	switch o {
	case FirstSeen:
		return "first-seen"
	case Sorted:
		return "sorted"
	default:
		return "unknown"
	}
}

// ParseImportOrder converts a configuration string into an ImportOrder.
func ParseImportOrder(s string) (ImportOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first-seen":
		return FirstSeen, nil
	case "sorted":
		return Sorted, nil
	default:
		return FirstSeen, fmt.Errorf("unknown import order %q", s)
	}
}

// Options configures Merge.
type Options struct {
	ImportOrder ImportOrder
}

// Merge builds the merged text: every distinct import line once, followed
// by each file's content in the given order. Nothing else is emitted.
func Merge(files []*registry.CodeFile, opts Options) string {
	imports := collectImports(files)
	if opts.ImportOrder == Sorted {
		sort.Strings(imports)
	}

	size := 0
	for _, imp := range imports {
		size += len(imp) + 1
	}
	for _, f := range files {
		size += len(f.Content)
	}

	var b strings.Builder
	b.Grow(size)

	for _, imp := range imports {
		b.WriteString(imp)
		b.WriteByte('\n')
	}
	for _, f := range files {
		b.WriteString(f.Content)
	}

	return b.String()
}

func collectImports(files []*registry.CodeFile) []string {
	seen := make(map[string]struct{})
	var imports []string

	for _, f := range files {
		for _, imp := range f.Imports {
			if _, dup := seen[imp]; dup {
				continue
			}
			seen[imp] = struct{}{}
			imports = append(imports, imp)
		}
	}

	return imports
}

// WriteOutput replaces path with text. The data goes to a temporary file in
// the same directory which is synced and renamed over path, so readers see
// either the previous artifact or the new one and never a partial write.
func WriteOutput(path, text string) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return mergeerrors.WrapWrite(err, mergeerrors.ErrCodeOutputTemp, path)
	}

	tmp, err := os.CreateTemp(dir, ".srcmerge-*.tmp")
	if err != nil {
		return mergeerrors.WrapWrite(err, mergeerrors.ErrCodeOutputTemp, path)
	}
	tmpPath := tmp.Name()

	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.WriteString(text); err != nil {
		_ = tmp.Close()
		return mergeerrors.WrapWrite(err, mergeerrors.ErrCodeOutputWrite, path)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return mergeerrors.WrapWrite(err, mergeerrors.ErrCodeOutputWrite, path)
	}
	if err = tmp.Close(); err != nil {
		return mergeerrors.WrapWrite(err, mergeerrors.ErrCodeOutputWrite, path)
	}
	if err = os.Chmod(tmpPath, 0644); err != nil {
		return mergeerrors.WrapWrite(err, mergeerrors.ErrCodeOutputWrite, path)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return mergeerrors.WrapWrite(err, mergeerrors.ErrCodeOutputRename, path)
	}

	return nil
}
