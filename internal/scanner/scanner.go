// Package scanner performs the initial discovery of relevant source files.
//
// The scanner walks each root, collects every file carrying the active
// profile's extension and transforms them on a bounded pool of goroutines.
// Reads are independent so they run in parallel; the caller still inserts
// the results into the registry from a single goroutine. A file that cannot
// be read is logged and skipped, matching how the watch loop treats read
// errors.
package scanner

import (
	"context"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	mergeerrors "github.com/conneroisu/srcmerge/internal/errors"
	"github.com/conneroisu/srcmerge/internal/language"
	"github.com/conneroisu/srcmerge/internal/logging"
	"github.com/conneroisu/srcmerge/internal/registry"
	"github.com/conneroisu/srcmerge/internal/transform"
)

// Options configures a Scanner.
type Options struct {
	// Workers bounds concurrent file reads. Zero means NumCPU.
	Workers int
	// Skip reports whether a directory (by base name) should not be entered.
	Skip func(name string) bool
}

// Stats summarizes the most recent scan.
type Stats struct {
	Files      int
	ReadErrors int
}

// Scanner discovers and transforms relevant files.
type Scanner struct {
	transformer *transform.Transformer
	logger      logging.Logger
	workers     int
	skip        func(string) bool

	readErrors atomic.Int64
	files      atomic.Int64
}

// New creates a scanner that transforms files with tr.
func New(tr *transform.Transformer, logger logging.Logger, opts Options) *Scanner {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = logging.Discard()
	}
	skip := opts.Skip
	if skip == nil {
		skip = func(string) bool { return false }
	}

	return &Scanner{
		transformer: tr,
		logger:      logger.WithComponent("scanner"),
		workers:     workers,
		skip:        skip,
	}
}

// Stats returns counters for the most recent ScanRoots or ScanFiles call.
func (s *Scanner) Stats() Stats {
	return Stats{
		Files:      int(s.files.Load()),
		ReadErrors: int(s.readErrors.Load()),
	}
}

// Collect walks root and returns every relevant file beneath it in lexical
// order. Unreadable subdirectories are logged and skipped; an unreadable
// root is a startup error.
func (s *Scanner) Collect(root string) ([]string, error) {
	root = registry.Key(root)
	profile := s.transformer.Profile()
	ctx := context.Background()

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return mergeerrors.WrapStartup(err, mergeerrors.ErrCodeRootWalk, "cannot traverse watch root").WithPath(root)
			}
			s.logger.Warn(ctx, err, "Skipping unreadable path", "path", path)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != root && s.skip(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}

		if d.Type().IsRegular() && language.IsRelevant(profile, d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// ScanRoots collects and transforms the relevant files under every root.
// Overlapping roots are handled: each file is read once. The result is
// sorted by path.
func (s *Scanner) ScanRoots(ctx context.Context, roots []string) ([]*registry.CodeFile, error) {
	seen := make(map[string]struct{})
	var paths []string

	for _, root := range roots {
		found, err := s.Collect(root)
		if err != nil {
			return nil, err
		}
		for _, p := range found {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			paths = append(paths, p)
		}
	}

	return s.ScanFiles(ctx, paths)
}

// ScanFiles transforms paths in parallel. Files that cannot be read are
// logged and left out of the result. Only context cancellation is returned
// as an error.
func (s *Scanner) ScanFiles(ctx context.Context, paths []string) ([]*registry.CodeFile, error) {
	s.files.Store(0)
	s.readErrors.Store(0)

	var (
		mu    sync.Mutex
		files = make([]*registry.CodeFile, 0, len(paths))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			file, err := s.transformer.Transform(path)
			if err != nil {
				s.readErrors.Add(1)
				s.logger.Warn(gctx, err, "Skipping unreadable file", "path", path)
				return nil
			}

			mu.Lock()
			files = append(files, file)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
	s.files.Store(int64(len(files)))

	s.logger.Debug(ctx, "Scan finished", "files", len(files), "read_errors", s.readErrors.Load())
	return files, nil
}
