package catalog

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hmans/catalog/internal/library"
)

const watchDebounce = 100 * time.Millisecond

// WatchBooks imports markdown files that appear in dir (or its
// subdirectories) until ctx is done. Files present when watching starts are
// left alone; run ImportBooks first to pick them up. Each file is added at
// most once. A file that fails to parse or validate is logged and retried on
// its next write. added, if non-nil, is called for every imported book.
func (s *Service) WatchBooks(ctx context.Context, dir string, added func(*library.Book)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	seen := make(map[string]bool)
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		if isBookFile(path) {
			seen[path] = true
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	pending := make(map[string]struct{})
	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := w.Add(event.Name); err != nil {
						s.logger.Warn("cannot watch directory", "path", event.Name, "error", err)
					}
					continue
				}
			}
			if !isBookFile(event.Name) || !(event.Has(fsnotify.Create) || event.Has(fsnotify.Write)) {
				continue
			}
			pending[event.Name] = struct{}{}
			timer.Reset(watchDebounce)

		case <-timer.C:
			s.importChanged(ctx, pending, seen, added)
			pending = make(map[string]struct{})

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("file watcher error", "error", err)
		}
	}
}

func (s *Service) importChanged(ctx context.Context, pending map[string]struct{}, seen map[string]bool, added func(*library.Book)) {
	paths := make([]string, 0, len(pending))
	for path := range pending {
		if !seen[path] {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)

	for _, path := range paths {
		in, err := readBookFile(path)
		if err != nil {
			s.logger.Warn("skipping book file", "path", path, "error", err)
			continue
		}
		b, err := s.AddBook(ctx, in)
		if err != nil {
			s.logger.Warn("skipping book file", "path", path, "error", err)
			continue
		}
		seen[path] = true
		s.logger.Info("imported book", "path", path, "id", b.ID, "title", b.Title)
		if added != nil {
			added(b)
		}
	}
}
