// Package watch triggers tail reads. Filesystem notifications are the
// fast path; they are best-effort (not guaranteed to fire across
// filesystems), so a fixed-interval poll backs them up. Both paths call
// the same tail entry point, which is a no-op when there is no new data,
// so overlapping triggers are harmless.
package watch

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Tailer is the slice of the registry the watcher drives.
type Tailer interface {
	Tail(agentID string)
	AgentForPath(path string) (string, bool)
	IDs() []string
}

type Watcher struct {
	tailer       Tailer
	pollInterval time.Duration

	// OnDirEvent, when set, runs for every create event inside a watched
	// directory. The scanner hangs its new-file check here so discovery
	// does not wait for the next scan tick.
	OnDirEvent func(dir string)

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	watched map[string]bool

	wg   sync.WaitGroup
	stop context.CancelFunc
}

// New creates a watcher. If the notification backend cannot be
// initialized the watcher degrades to poll-only operation.
func New(tailer Tailer, pollInterval time.Duration) *Watcher {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	w := &Watcher{
		tailer:       tailer,
		pollInterval: pollInterval,
		watched:      make(map[string]bool),
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("[watch] fsnotify unavailable, polling only: %v", err)
	} else {
		w.fsw = fsw
	}
	return w
}

// WatchDir starts watching a log directory. Idempotent; a directory that
// does not exist yet fails silently and can be retried (the poll path
// covers the gap).
func (w *Watcher) WatchDir(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw == nil || w.watched[dir] {
		return
	}
	if err := w.fsw.Add(dir); err != nil {
		log.Printf("[watch] cannot watch %s: %v", dir, err)
		return
	}
	w.watched[dir] = true
}

// Start runs the notification and poll loops until ctx is cancelled or
// Close is called.
func (w *Watcher) Start(ctx context.Context) {
	ctx, w.stop = context.WithCancel(ctx)

	if w.fsw != nil {
		w.wg.Add(1)
		go w.eventLoop(ctx)
	}

	w.wg.Add(1)
	go w.pollLoop(ctx)
}

func (w *Watcher) eventLoop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op.Has(fsnotify.Create) && w.OnDirEvent != nil {
				w.OnDirEvent(filepath.Dir(ev.Name))
			}
			if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) {
				if id, ok := w.tailer.AgentForPath(ev.Name); ok {
					w.tailer.Tail(id)
				}
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("[watch] notify error: %v", err)
		}
	}
}

func (w *Watcher) pollLoop(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, id := range w.tailer.IDs() {
				w.tailer.Tail(id)
			}
		}
	}
}

// PollSoon schedules a one-shot tail for one agent, used right after an
// agent is registered to pick up a file the notification path may have
// missed.
func (w *Watcher) PollSoon(agentID string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		w.tailer.Tail(agentID)
	})
}

// Close stops both trigger paths and releases the notification backend.
func (w *Watcher) Close() {
	if w.stop != nil {
		w.stop()
	}
	w.wg.Wait()
	if w.fsw != nil {
		w.fsw.Close()
	}
}
