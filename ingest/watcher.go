package ingest

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher re-ingests files in the documents directory when they change.
// A file is processed only after it has been quiet for the settle delay, so
// partially copied uploads are not picked up mid-write.
type Watcher struct {
	svc    *Service
	dir    string
	settle time.Duration
	logger *slog.Logger
}

func NewWatcher(svc *Service, dir string, settle time.Duration) *Watcher {
	if settle <= 0 {
		settle = 2 * time.Second
	}
	return &Watcher{
		svc:    svc,
		dir:    dir,
		settle: settle,
		logger: slog.Default(),
	}
}

func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return err
	}
	w.logger.Info("watching documents directory", "dir", w.dir)

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("document watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !SupportedFile(filepath.Base(event.Name)) {
				continue
			}
			pending[event.Name] = time.Now()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", "error", err)

		case <-ticker.C:
			for path, touched := range pending {
				if time.Since(touched) < w.settle {
					continue
				}
				delete(pending, path)

				n, err := w.svc.IngestFile(ctx, path)
				if err != nil {
					w.logger.Error("re-ingest failed", "file", path, "error", err)
					continue
				}
				w.logger.Info("re-ingested file", "file", path, "chunks", n)
			}
		}
	}
}
