// Package watch triggers workflow re-runs on file changes. Change
// bursts (editor save, git checkout) are debounced into one trigger.
package watch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a set of paths and emits one trigger per change burst.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	triggers chan string
	done     chan struct{}
}

// New creates a Watcher over the given paths. Directories are watched
// recursively. debounce sets how long the watcher waits for a change
// burst to settle before triggering.
func New(paths []string, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	for _, path := range paths {
		if err := addRecursive(fsw, path); err != nil {
			fsw.Close()
			return nil, err
		}
	}

	w := &Watcher{
		fsw:      fsw,
		debounce: debounce,
		triggers: make(chan string, 1),
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Triggers returns the channel of debounced change triggers. Each value
// is the path of the last change in the burst.
func (w *Watcher) Triggers() <-chan string {
	return w.triggers
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

// loop coalesces raw events into debounced triggers.
func (w *Watcher) loop() {
	var (
		timer    *time.Timer
		timerC   <-chan time.Time
		lastPath string
	)

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// New directories join the watch so nested changes keep
			// arriving.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.fsw.Add(event.Name)
				}
			}
			lastPath = event.Name
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			select {
			case w.triggers <- lastPath:
			default:
				// A pending trigger already covers this burst.
			}

		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		}
	}
}

// addRecursive watches path and, for directories, every subdirectory.
func addRecursive(fsw *fsnotify.Watcher, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("watch path %s: %w", path, err)
	}

	if !info.IsDir() {
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	}

	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := fsw.Add(p); err != nil {
				return fmt.Errorf("watch %s: %w", p, err)
			}
		}
		return nil
	})
}
