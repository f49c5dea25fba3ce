package main

import (
	"errors"
	"io/fs"
	"os"
	"time"
)

// Watcher reports when any of a set of files changed on disk. It polls
// modification times and sizes, at most once per interval.
type Watcher struct {
	paths    []string
	stamps   map[string]fileStamp
	interval time.Duration
	last     time.Time
	now      func() time.Time
}

type fileStamp struct {
	modTime time.Time
	size    int64
	missing bool
}

func NewWatcher(interval time.Duration, paths ...string) *Watcher {
	w := &Watcher{
		interval: interval,
		stamps:   make(map[string]fileStamp, len(paths)),
		now:      time.Now,
	}
	for _, path := range paths {
		if path == "" {
			continue
		}
		w.paths = append(w.paths, path)
		w.stamps[path] = statFile(path)
	}
	return w
}

func statFile(path string) fileStamp {
	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Debug("stat failed", "path", path, "err", err)
		}
		return fileStamp{missing: true}
	}
	return fileStamp{modTime: info.ModTime(), size: info.Size()}
}

// Poll returns the paths whose stamp changed since the previous poll. A
// file that disappears is not reported until it comes back.
func (w *Watcher) Poll() []string {
	now := w.now()
	if !w.last.IsZero() && now.Sub(w.last) < w.interval {
		return nil
	}
	w.last = now
	var changed []string
	for _, path := range w.paths {
		stamp := statFile(path)
		prev := w.stamps[path]
		w.stamps[path] = stamp
		if stamp.missing {
			continue
		}
		if prev.missing || !stamp.modTime.Equal(prev.modTime) || stamp.size != prev.size {
			changed = append(changed, path)
		}
	}
	return changed
}
