package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceInterval coalesces bursts of filesystem events (editors write a
// file several times in quick succession) into one rescan.
const debounceInterval = 1500 * time.Millisecond

// Watcher keeps a directory tree continuously ingested. Every settled
// burst of writes triggers a full rescan of the root; the index's dedup
// tables make rescans cheap.
type Watcher struct {
	ingestor *Ingestor
	root     string
	fsw      *fsnotify.Watcher
}

// NewWatcher creates a watcher over root. Call Run to start it.
func NewWatcher(ingestor *Ingestor, root string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{ingestor: ingestor, root: root, fsw: fsw}
	if err := w.watchTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// watchTree registers root and every subdirectory. fsnotify does not
// recurse on its own.
func (w *Watcher) watchTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Printf("[INGEST] Not watching %s: %v", path, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.ingestor.ignored(root, path) {
			return fs.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			log.Printf("[INGEST] Not watching %s: %v", path, err)
		}
		return nil
	})
}

// Run ingests once immediately, then blocks rescanning on changes until
// the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	if _, err := w.ingestor.Ingest(ctx, w.root); err != nil {
		return err
	}

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create | fsnotify.Write | fsnotify.Rename) {
				continue
			}
			// New directories need their own watch before the rescan.
			if event.Has(fsnotify.Create) {
				if err := w.watchTree(event.Name); err != nil {
					log.Printf("[INGEST] Watch new path %s: %v", event.Name, err)
				}
			}
			if timer == nil {
				timer = time.NewTimer(debounceInterval)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounceInterval)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			log.Printf("[INGEST] Watcher error: %v", err)

		case <-timerC:
			timer = nil
			timerC = nil
			if _, err := w.ingestor.Ingest(ctx, w.root); err != nil {
				log.Printf("[INGEST] Rescan failed: %v", err)
			}
		}
	}
}
