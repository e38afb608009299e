package worker

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/MrMcEpic/whisper-transcription/internal/ffmpeg"
)

// Handler processes one newly created media file.
type Handler func(ctx context.Context, path string) error

// Watcher runs a Handler for every media file created in a directory.
type Watcher struct {
	dir           string
	handler       Handler
	maxConcurrent int
	settle        time.Duration
	watcher       *fsnotify.Watcher
}

// NewWatcher starts watching dir. Call Close when done.
func NewWatcher(dir string, handler Handler, maxConcurrent int) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}

	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	return &Watcher{
		dir:           dir,
		handler:       handler,
		maxConcurrent: maxConcurrent,
		settle:        500 * time.Millisecond,
		watcher:       fw,
	}, nil
}

// Run blocks until ctx is cancelled, then waits for in-flight files.
func (w *Watcher) Run(ctx context.Context) error {
	slog.Info("watching for media files", "dir", w.dir, "max_concurrent", w.maxConcurrent)

	var g errgroup.Group
	g.SetLimit(w.maxConcurrent)
	defer g.Wait()

	for {
		select {
		case <-ctx.Done():
			slog.Info("waiting for in-flight files")
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			if !ffmpeg.IsMediaExtension(filepath.Ext(event.Name)) {
				slog.Debug("ignoring non-media file", "file", event.Name)
				continue
			}

			slog.Info("new media file detected", "file", filepath.Base(event.Name))
			path := event.Name
			g.Go(func() error {
				if !sleepCtx(ctx, w.settle) {
					return nil
				}
				if err := w.handler(ctx, path); err != nil {
					slog.Error("failed to process file", "file", path, "err", err)
				}
				return nil
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			slog.Error("watcher error", "err", err)
		}
	}
}

// Close stops the underlying file watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
