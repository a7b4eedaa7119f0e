// Package watch turns changes to a source file on disk into edit events.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"livecode/internal/languages"
	"livecode/internal/logging"
	"livecode/internal/types"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long a file must stay quiet before it is re-read.
// Editors often truncate and rewrite in separate steps.
const DefaultSettle = 50 * time.Millisecond

// Stats tracks watcher activity.
type Stats struct {
	Events        int
	Emitted       int
	Errors        int
	LastEventTime time.Time
	LastEventType string
}

// Watcher emits a SourceSnapshot whenever the watched file's content
// changes. A removed file is reported as an empty snapshot.
type Watcher struct {
	mu       sync.RWMutex
	path     string
	language string
	settle   time.Duration
	emit     func(types.SourceSnapshot)

	pendingSince time.Time
	last         *string
	stats        Stats
}

// New creates a watcher for path. If language is empty it is detected from
// the file extension.
func New(path, language string, emit func(types.SourceSnapshot)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if language == "" {
		lang, ok := languages.ForPath(abs)
		if !ok {
			return nil, fmt.Errorf("cannot detect language of %s; pass one explicitly", path)
		}
		language = lang.ID
	}
	return &Watcher{
		path:     abs,
		language: language,
		settle:   DefaultSettle,
		emit:     emit,
	}, nil
}

// Language returns the language attached to emitted snapshots.
func (w *Watcher) Language() string { return w.language }

// Stats returns a copy of the activity counters.
func (w *Watcher) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// Run emits the current content, then watches until ctx is done. The parent
// directory is watched so atomic-rename saves are seen.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}
	logging.Watch("watching %s (%s)", w.path, w.language)

	w.flush()

	ticker := time.NewTicker(w.settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.WatchDebug("watcher stopped: %s", w.path)
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logging.WatchWarn("watcher error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case now := <-ticker.C:
			w.mu.RLock()
			since := w.pendingSince
			w.mu.RUnlock()
			if !since.IsZero() && now.Sub(since) >= w.settle {
				w.flush()
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}

	var eventType string
	switch {
	case event.Op&fsnotify.Create != 0:
		eventType = "create"
	case event.Op&fsnotify.Write != 0:
		eventType = "modify"
	case event.Op&fsnotify.Remove != 0:
		eventType = "delete"
	case event.Op&fsnotify.Rename != 0:
		eventType = "rename"
	default:
		return // Ignore chmod
	}
	logging.WatchDebug("%s event for %s", eventType, event.Name)

	w.mu.Lock()
	now := time.Now()
	w.pendingSince = now
	w.stats.Events++
	w.stats.LastEventTime = now
	w.stats.LastEventType = eventType
	w.mu.Unlock()
}

// flush reads the file and emits it if the content changed.
func (w *Watcher) flush() {
	data, err := os.ReadFile(w.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.WatchWarn("failed to read %s: %v", w.path, err)
		w.mu.Lock()
		w.stats.Errors++
		w.pendingSince = time.Time{}
		w.mu.Unlock()
		return
	}
	content := string(data)

	w.mu.Lock()
	w.pendingSince = time.Time{}
	if w.last != nil && *w.last == content {
		w.mu.Unlock()
		return
	}
	w.last = &content
	w.stats.Emitted++
	w.mu.Unlock()

	w.emit(types.SourceSnapshot{Code: content, Language: w.language})
}
