package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docreview/internal/core/domain"
	"github.com/custodia-labs/docreview/internal/core/ports/driving"
	"github.com/custodia-labs/docreview/internal/logger"
)

// DefaultDebounce is used when no positive debounce is configured.
const DefaultDebounce = 500 * time.Millisecond

// Watcher drives a ScanService from filesystem events under a project root.
type Watcher struct {
	scanner   driving.ScanService
	runner    driving.ExtractionRunner
	projectID domain.ProjectID
	root      string
	debounce  time.Duration
	onScan    func(*driving.ScanReport, error)
}

// New creates a watcher for root.
func New(scanner driving.ScanService, projectID domain.ProjectID, root string, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		scanner:   scanner,
		projectID: projectID,
		root:      root,
		debounce:  debounce,
	}
}

// WithRunner wakes runner after every scan that changed documents.
func (w *Watcher) WithRunner(runner driving.ExtractionRunner) *Watcher {
	w.runner = runner
	return w
}

// OnScan registers a callback invoked after every scan. Used by tests.
func (w *Watcher) OnScan(fn func(*driving.ScanReport, error)) *Watcher {
	w.onScan = fn
	return w
}

// Run scans once, then rescans after filesystem activity until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	root, err := filepath.Abs(w.root)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPathNotAbsolute, err)
	}
	w.root = root

	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrPathNotFound, root)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: create watcher: %w", domain.ErrFileSystem, err)
	}
	defer fsw.Close()

	if err := w.addTree(fsw, root); err != nil {
		return err
	}
	logger.Info("watching %s", root)

	w.scan(ctx)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(fsw, event.Name); err != nil {
						logger.Warn("watch %s: %v", event.Name, err)
					}
				}
			}
			logger.Debug("fs event: %s", event)
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher: %v", err)

		case <-timer.C:
			w.scan(ctx)
		}
	}
}

func (w *Watcher) scan(ctx context.Context) {
	report, err := w.scanner.Scan(ctx, w.projectID, w.root)
	if err != nil {
		if ctx.Err() == nil {
			logger.Error("scan %s: %v", w.root, err)
		}
	} else if w.runner != nil && (report.Changed() || len(report.Queued) > 0) {
		w.runner.Notify()
	}
	if w.onScan != nil {
		w.onScan(report, err)
	}
}

// addTree watches dir and every non-hidden directory below it.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("%w: watch %s: %w", domain.ErrFileSystem, path, err)
		}
		return nil
	})
}

// relevant reports whether an event can change the scan result.
// Hidden entries, artifacts and attribute-only changes are ignored.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	name := filepath.Base(event.Name)
	if isHidden(name) || strings.HasSuffix(name, domain.ExtractionArtifactSuffix) {
		return false
	}
	if hiddenParent(w.root, event.Name) {
		return false
	}
	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		// The entry is gone, so a directory cannot be told from a file.
		return true
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		if _, ok := domain.DocumentTypeFromPath(event.Name); ok {
			return true
		}
		info, err := os.Stat(event.Name)
		return err == nil && info.IsDir()
	default:
		return false
	}
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func hiddenParent(root, path string) bool {
	rel, err := filepath.Rel(root, filepath.Dir(path))
	if err != nil || rel == "." {
		return false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if isHidden(part) && part != ".." {
			return true
		}
	}
	return false
}
