package config

import (
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"
)

// FileWatcher polls file modification times and calls onChange for each
// file that changed. Files that appear or disappear after the first scan
// count as changed. Patterns are re-globbed on every scan.
type FileWatcher struct {
	Paths    []string
	Patterns []string
	Interval time.Duration
	onChange func(string)

	mu        sync.Mutex
	lastMTime map[string]time.Time
	primed    bool
	stopCh    chan struct{}
	stopOnce  sync.Once
}

func NewFileWatcher(paths []string, interval time.Duration, onChange func(string)) *FileWatcher {
	return &FileWatcher{
		Paths:     paths,
		Interval:  interval,
		onChange:  onChange,
		lastMTime: make(map[string]time.Time),
		stopCh:    make(chan struct{}),
	}
}

// WatchProfiles invalidates l whenever any profile file under its base
// directory is edited, added or removed.
func WatchProfiles(l *Loader, interval time.Duration) *FileWatcher {
	w := NewFileWatcher(nil, interval, func(string) { l.Invalidate() })
	w.Patterns = []string{l.paths.ProfilePath("*")}
	return w
}

// Start primes the mtime cache and polls in a goroutine.
func (w *FileWatcher) Start() {
	w.Scan()
	ticker := time.NewTicker(w.Interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				w.Scan()
			case <-w.stopCh:
				return
			}
		}
	}()
}

// Stop terminates the polling goroutine. Safe to call twice.
func (w *FileWatcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

func (w *FileWatcher) targets() []string {
	paths := slices.Clone(w.Paths)
	for _, pattern := range w.Patterns {
		// only ErrBadPattern, which leaves nothing to watch
		matches, _ := filepath.Glob(pattern)
		paths = append(paths, matches...)
	}
	slices.Sort(paths)
	return slices.Compact(paths)
}

// Scan checks every path once. The first scan only records mtimes.
func (w *FileWatcher) Scan() {
	w.mu.Lock()
	var changed []string
	seen := make(map[string]struct{})
	for _, p := range w.targets() {
		fi, err := os.Stat(p)
		if err != nil {
			continue
		}
		seen[p] = struct{}{}
		mt := fi.ModTime()
		last, ok := w.lastMTime[p]
		w.lastMTime[p] = mt
		if !w.primed {
			continue
		}
		if !ok || mt.After(last) {
			changed = append(changed, p)
		}
	}
	for p := range w.lastMTime {
		if _, ok := seen[p]; !ok {
			delete(w.lastMTime, p)
			if w.primed {
				changed = append(changed, p)
			}
		}
	}
	w.primed = true
	w.mu.Unlock()

	if w.onChange == nil {
		return
	}
	for _, p := range changed {
		w.onChange(p)
	}
}
