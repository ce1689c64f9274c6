// Package services contains the long-running operations behind the CLI.
package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/conneroisu/srcmerge/internal/config"
	mergeerrors "github.com/conneroisu/srcmerge/internal/errors"
	"github.com/conneroisu/srcmerge/internal/language"
	"github.com/conneroisu/srcmerge/internal/logging"
	"github.com/conneroisu/srcmerge/internal/merger"
	"github.com/conneroisu/srcmerge/internal/metrics"
	"github.com/conneroisu/srcmerge/internal/registry"
	"github.com/conneroisu/srcmerge/internal/scanner"
	"github.com/conneroisu/srcmerge/internal/transform"
	"github.com/conneroisu/srcmerge/internal/watcher"
)

// EventSource delivers directory events one at a time.
type EventSource interface {
	RegisterTree(root string) error
	Next(ctx context.Context) (watcher.Event, error)
	Close() error
}

// State is the lifecycle phase of a MergeService.
type State int32

const (
	StateInitializing State = iota
	StateScanning
	StateWatching
	StateTerminated
)

// String returns the string representation of the State
func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateScanning:
		return "scanning"
	case StateWatching:
		return "watching"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Stats contains counters for a running service.
type Stats struct {
	Events       int64
	Merges       int64
	FailedMerges int64
	ReadErrors   int64
}

// Option customizes a MergeService.
type Option func(*MergeService)

// WithEventSource replaces the fsnotify watcher, typically in tests.
func WithEventSource(src EventSource) Option {
	return func(s *MergeService) {
		s.source = src
	}
}

// WithMetrics replaces the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *MergeService) {
		s.metrics = m
	}
}

// MergeService keeps the registry in sync with the watched trees and
// regenerates the merged output after every relevant change. It owns the
// registry; all mutation happens on the goroutine running Run.
type MergeService struct {
	config      *config.Config
	logger      logging.Logger
	profile     language.Profile
	transformer *transform.Transformer
	scanner     *scanner.Scanner
	registry    *registry.FileRegistry
	mergeOpts   merger.Options
	metrics     *metrics.Metrics
	skip        watcher.DirFilter
	source      EventSource
	changes     <-chan registry.FileEvent

	roots  []string
	output string

	state        atomic.Int32
	events       atomic.Int64
	merges       atomic.Int64
	failedMerges atomic.Int64
	readErrors   atomic.Int64
}

// NewMergeService wires the pipeline described by cfg.
func NewMergeService(cfg *config.Config, logger logging.Logger, opts ...Option) (*MergeService, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	profile, err := language.Lookup(cfg.Language.Profile)
	if err != nil {
		return nil, mergeerrors.WrapConfig(err, mergeerrors.ErrCodeUnknownProfile, "unsupported language profile")
	}

	mode, err := transform.ParseMode(cfg.Language.RewriteMode)
	if err != nil {
		return nil, mergeerrors.WrapConfig(err, mergeerrors.ErrCodeInvalidConfig, "invalid rewrite mode")
	}

	order, err := merger.ParseImportOrder(cfg.Output.ImportOrder)
	if err != nil {
		return nil, mergeerrors.WrapConfig(err, mergeerrors.ErrCodeInvalidConfig, "invalid import order")
	}

	tr, err := transform.New(profile, transform.Options{Mode: mode, CacheSize: cfg.Scan.CacheSize})
	if err != nil {
		return nil, mergeerrors.NewInternalError(mergeerrors.ErrCodeInternalError, "cannot create transformer", err)
	}

	svcLogger := logger.WithComponent("merge")
	skip := watcher.ExcludeFilter(cfg.Sources.Exclude)

	s := &MergeService{
		config:      cfg,
		logger:      svcLogger,
		profile:     profile,
		transformer: tr,
		scanner:     scanner.New(tr, logger, scanner.Options{Workers: cfg.Scan.Workers, Skip: skip}),
		registry:    registry.NewFileRegistry(),
		mergeOpts:   merger.Options{ImportOrder: order},
		skip:        skip,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.metrics == nil {
		s.metrics = metrics.New(cfg.Metrics.File)
	}
	s.changes = s.registry.Watch()

	return s, nil
}

// State returns the current lifecycle phase.
func (s *MergeService) State() State {
	return State(s.state.Load())
}

// Stats returns a snapshot of the service counters.
func (s *MergeService) Stats() Stats {
	return Stats{
		Events:       s.events.Load(),
		Merges:       s.merges.Load(),
		FailedMerges: s.failedMerges.Load(),
		ReadErrors:   s.readErrors.Load(),
	}
}

// Files returns a sorted snapshot of the registry.
func (s *MergeService) Files() []*registry.CodeFile {
	return s.registry.Values()
}

// OutputPath returns the resolved output path, available once Run started.
func (s *MergeService) OutputPath() string {
	return s.output
}

// Run performs the initial scan and merge. In once mode it then returns;
// in watch mode it processes events until ctx is cancelled or no watched
// directory remains, both of which are clean exits. Only startup failures
// are returned as errors, plus the initial write failure in once mode.
func (s *MergeService) Run(ctx context.Context, mode string) error {
	s.state.Store(int32(StateInitializing))
	defer s.state.Store(int32(StateTerminated))

	if err := s.resolvePaths(); err != nil {
		return err
	}

	watching := mode != config.ModeOnce
	if watching {
		if err := s.openSource(); err != nil {
			return err
		}
		defer func() {
			if err := s.source.Close(); err != nil {
				s.logger.Warn(ctx, err, "Closing watcher failed")
			}
		}()
	}

	s.state.Store(int32(StateScanning))
	files, err := s.scanner.ScanRoots(ctx, s.roots)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	s.countReadErrors()
	for _, f := range files {
		if f.Path == s.output {
			continue
		}
		s.registry.Put(f)
		s.drainChanges(ctx)
	}

	s.logger.Info(ctx, "Initial scan complete",
		"roots", s.roots, "files", s.registry.Count(), "profile", s.config.Language.Profile)

	mergeErr := s.merge(ctx)
	if !watching {
		return mergeErr
	}

	s.state.Store(int32(StateWatching))
	s.logger.Info(ctx, "Watching for changes", "output", s.output)

	for {
		ev, err := s.source.Next(ctx)
		switch {
		case err == nil:
			s.handle(ctx, ev)
		case errors.Is(err, watcher.ErrNoWatchedDirectories):
			s.logger.Info(ctx, "No watched directories left, stopping")
			return nil
		case ctx.Err() != nil:
			s.logger.Debug(ctx, "Watch loop cancelled")
			return nil
		default:
			return mergeerrors.NewInternalError(mergeerrors.ErrCodeInternalError, "watch loop failed", err)
		}
	}
}

// resolvePaths canonicalizes roots and the output path so that every path
// derived from an event has the same shape as the registry keys.
func (s *MergeService) resolvePaths() error {
	s.roots = s.roots[:0]
	for _, root := range s.config.Sources.Roots {
		resolved, err := filepath.EvalSymlinks(root)
		if err != nil {
			return mergeerrors.WrapStartup(err, mergeerrors.ErrCodeRootMissing, "watch root does not exist").WithPath(root)
		}
		info, err := os.Stat(resolved)
		if err != nil {
			return mergeerrors.WrapStartup(err, mergeerrors.ErrCodeRootMissing, "watch root does not exist").WithPath(root)
		}
		if !info.IsDir() {
			return mergeerrors.NewStartupError(mergeerrors.ErrCodeRootNotDirectory, "watch root is not a directory", nil).WithPath(root)
		}
		s.roots = append(s.roots, registry.Key(resolved))
	}

	output := registry.Key(s.config.Output.Path)
	if dir, err := filepath.EvalSymlinks(filepath.Dir(output)); err == nil {
		output = filepath.Join(dir, filepath.Base(output))
	}
	s.output = output

	return nil
}

func (s *MergeService) openSource() error {
	if s.source == nil {
		w, err := watcher.New(s.logger, watcher.Options{Skip: s.skip})
		if err != nil {
			return err
		}
		s.source = w
	}

	for _, root := range s.roots {
		if err := s.source.RegisterTree(root); err != nil {
			return err
		}
	}
	return nil
}

// handle applies one event to the registry and merges if anything changed.
func (s *MergeService) handle(ctx context.Context, ev watcher.Event) {
	s.events.Add(1)
	s.metrics.Event(ev.Kind.String())

	path := registry.Key(ev.Path())
	if path == s.output {
		return
	}
	relevant := language.IsRelevant(s.profile, ev.Name)

	switch ev.Kind {
	case watcher.EventCreate:
		info, err := os.Lstat(path)
		if err != nil {
			// Gone again; its delete event follows.
			return
		}
		if info.IsDir() {
			s.addDirectory(ctx, path)
			return
		}
		if relevant {
			s.refresh(ctx, path)
		}

	case watcher.EventModify:
		if relevant {
			s.refresh(ctx, path)
		}

	case watcher.EventDelete:
		if relevant {
			s.registry.Remove(path)
		}
		if n := s.registry.RemoveTree(path); n > 0 {
			s.logger.Debug(ctx, "Dropped directory", "dir", path, "files", n)
		}
		if s.drainChanges(ctx) > 0 {
			_ = s.merge(ctx)
		}
	}
}

// refresh upserts path unless it is a symlink, directory or other special
// file. Those are never registered, the same rule the scanner applies, and
// one that replaced a registered file drops the old entry.
func (s *MergeService) refresh(ctx context.Context, path string) {
	if info, err := os.Lstat(path); err == nil && !info.Mode().IsRegular() {
		s.registry.Remove(path)
		if s.drainChanges(ctx) > 0 {
			_ = s.merge(ctx)
		}
		return
	}
	s.upsert(ctx, path)
}

// upsert re-reads path and replaces its entry. On a read error the registry
// keeps whatever it held before.
func (s *MergeService) upsert(ctx context.Context, path string) {
	file, err := s.transformer.Transform(path)
	if err != nil {
		s.readErrors.Add(1)
		s.metrics.ReadError()
		s.logger.Warn(ctx, err, "Cannot read source file", "path", path)
		return
	}

	s.registry.Put(file)
	if s.drainChanges(ctx) > 0 {
		_ = s.merge(ctx)
	}
}

// addDirectory registers a directory created after startup and picks up any
// files that landed in it before the watch was in place.
func (s *MergeService) addDirectory(ctx context.Context, dir string) {
	if s.skip(filepath.Base(dir)) {
		return
	}

	if err := s.source.RegisterTree(dir); err != nil {
		s.logger.Warn(ctx, err, "Cannot watch new directory", "dir", dir)
		return
	}

	files, err := s.scanner.ScanRoots(ctx, []string{dir})
	if err != nil {
		s.logger.Warn(ctx, err, "Cannot scan new directory", "dir", dir)
		return
	}
	s.countReadErrors()

	changed := 0
	for _, f := range files {
		if f.Path == s.output {
			continue
		}
		s.registry.Put(f)
		changed += s.drainChanges(ctx)
	}
	if changed > 0 {
		_ = s.merge(ctx)
	}
}

// drainChanges consumes the registry notifications queued by the mutations
// just made and returns how many arrived. A large RemoveTree can overflow the
// buffer; the registry drops the excess but at least one still arrives.
func (s *MergeService) drainChanges(ctx context.Context) int {
	n := 0
	for {
		select {
		case ev := <-s.changes:
			n++
			s.logger.Debug(ctx, "Registry changed", "change", ev.Type.String(), "path", ev.Path)
		default:
			return n
		}
	}
}

func (s *MergeService) countReadErrors() {
	n := s.scanner.Stats().ReadErrors
	s.readErrors.Add(int64(n))
	for i := 0; i < n; i++ {
		s.metrics.ReadError()
	}
}

// merge regenerates the output from the full registry.
func (s *MergeService) merge(ctx context.Context) error {
	start := time.Now()

	files := s.registry.Values()
	err := merger.WriteOutput(s.output, merger.Merge(files, s.mergeOpts))
	duration := time.Since(start)

	s.metrics.Merge(duration, err)
	s.metrics.RegistrySize(len(files))

	if err != nil {
		s.failedMerges.Add(1)
		s.logger.Error(ctx, err, "Merge failed, previous output kept", "output", s.output)
	} else {
		s.merges.Add(1)
		s.logger.Info(ctx, "Merged", "files", len(files), "output", s.output, "duration", duration)
	}

	if ferr := s.metrics.Flush(); ferr != nil {
		s.logger.Warn(ctx, ferr, "Cannot write metrics")
	}

	return err
}
