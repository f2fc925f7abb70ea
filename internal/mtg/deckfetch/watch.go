package deckfetch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period Watch waits for before re-running.
const DefaultDebounce = 500 * time.Millisecond

// Watch runs req once and again every time req.Path changes, calling
// onReport after each run. Run errors are passed to onReport and do not stop
// watching. Watch returns when ctx is done.
//
// The parent directory is watched so editors that save by renaming a
// temporary file over the deck are still noticed.
func (s *Service) Watch(ctx context.Context, req Request, debounce time.Duration, onReport func(*Report, error)) (err error) {
	if req.Path == "" {
		return fmt.Errorf("watch requires a deck path")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	path, err := filepath.Abs(req.Path)
	if err != nil {
		return fmt.Errorf("failed to resolve deck path: %w", err)
	}
	req.Path = path
	req.Input = nil

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		if closeErr := watcher.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch deck directory: %w", err)
	}

	run := func() {
		report, runErr := s.Run(ctx, req)
		if ctx.Err() == nil {
			onReport(report, runErr)
		}
	}
	run()

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	s.logger.Info().Str("path", path).Msg("Watching deck for changes")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			s.logger.Debug().Str("op", event.Op.String()).Msg("Deck changed")
			timer.Reset(debounce)
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn().Err(watchErr).Msg("File watcher error")
		case <-timer.C:
			run()
		}
	}
}
