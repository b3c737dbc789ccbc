// Package watch recompiles NusaLang sources when they change on disk.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sambeau/nusa/pkg/nusa/logger"
	"github.com/sambeau/nusa/pkg/nusa/project"
)

// DefaultDebounce is the quiet period applied per path when none is given.
const DefaultDebounce = 100 * time.Millisecond

// Watcher monitors source directories and calls onChange for every changed
// .nusa or .nusa.md file.
type Watcher struct {
	watcher  *fsnotify.Watcher
	dirs     []string
	onChange func(path string)
	log      *logger.Logger
	debounce time.Duration

	// Track last change per path to debounce editor save bursts
	mu         sync.Mutex
	lastChange map[string]time.Time
	changeSeq  uint64
}

// New creates a watcher for dirs. Nothing is watched until Start.
func New(dirs []string, onChange func(path string), log *logger.Logger, debounce time.Duration) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		watcher:    fsWatcher,
		dirs:       dirs,
		onChange:   onChange,
		log:        log,
		debounce:   debounce,
		lastChange: make(map[string]time.Time),
	}, nil
}

// Start adds the directories recursively and runs the event loop until ctx
// is cancelled or the watcher is closed.
func (w *Watcher) Start(ctx context.Context) error {
	for _, dir := range w.dirs {
		if err := w.watchDirRecursive(dir); err != nil {
			w.log.Errorf("[WATCH] failed to watch %s: %v", dir, err)
			return err
		}
		w.log.Infof("[WATCH] watching %s", dir)
	}

	go w.eventLoop(ctx)
	return nil
}

// watchDirRecursive adds a directory and its subdirectories, skipping hidden ones
func (w *Watcher) watchDirRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

func (w *Watcher) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) && isNewDir(event.Name) {
				if err := w.watchDirRecursive(event.Name); err != nil {
					w.log.Errorf("[WATCH] failed to watch %s: %v", event.Name, err)
				}
				continue
			}
			if w.accept(event, time.Now()) {
				w.log.Infof("[WATCH] changed: %s", event.Name)
				w.onChange(event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Errorf("[WATCH] watcher error: %v", err)
		}
	}
}

// accept reports whether event should trigger a recompile: a write or
// create of a source file outside the debounce window of its path.
func (w *Watcher) accept(event fsnotify.Event, now time.Time) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	if !project.IsSource(event.Name) || isHidden(event.Name) {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if last, ok := w.lastChange[event.Name]; ok && now.Sub(last) < w.debounce {
		return false
	}
	w.lastChange[event.Name] = now
	w.changeSeq++
	return true
}

// ChangeSeq returns the number of changes delivered so far.
func (w *Watcher) ChangeSeq() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.changeSeq
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func isNewDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
