package vfs

import (
	"sync"
	"sync/atomic"

	"github.com/lifo-sh/vush/internal/mlog"
	"github.com/lifo-sh/vush/internal/pathutil"
)

type watchEntry struct {
	id     uint64
	prefix string
	fn     Listener
}

// watchRegistry owns listeners; listeners hold no back-reference to the
// VFS (arena + index, per spec section 9), so dropping the registry frees
// everything without needing listeners to unregister themselves first.
type watchRegistry struct {
	mu      sync.RWMutex
	entries []watchEntry
	nextID  uint64
}

func newWatchRegistry() *watchRegistry {
	return &watchRegistry{}
}

func (w *watchRegistry) add(prefix string, fn Listener) func() {
	id := atomic.AddUint64(&w.nextID, 1)
	prefix = pathutil.Normalize(prefix)

	w.mu.Lock()
	w.entries = append(w.entries, watchEntry{id: id, prefix: prefix, fn: fn})
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		for i, e := range w.entries {
			if e.id == id {
				w.entries = append(w.entries[:i], w.entries[i+1:]...)
				return
			}
		}
	}
}

// dispatch delivers ev to every listener whose prefix matches Path or
// OldPath, in the order mutations occur. It snapshots the listener list
// first so a watcher that registers mid-dispatch does not see this event,
// per spec section 4.1.
func (w *watchRegistry) dispatch(ev Event) {
	w.mu.RLock()
	snapshot := make([]watchEntry, len(w.entries))
	copy(snapshot, w.entries)
	w.mu.RUnlock()

	for _, e := range snapshot {
		if pathutil.HasPrefix(ev.Path, e.prefix) || (ev.OldPath != "" && pathutil.HasPrefix(ev.OldPath, e.prefix)) {
			w.safeInvoke(e, ev)
		}
	}
}

// safeInvoke calls the listener, unsubscribing it if it panics. This is
// the best-effort watcher-failure handling called out in spec section 9's
// open question.
func (w *watchRegistry) safeInvoke(e watchEntry, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			mlog.Error("watcher %d panicked, unsubscribing: %v", e.id, r)
			w.mu.Lock()
			for i, cur := range w.entries {
				if cur.id == e.id {
					w.entries = append(w.entries[:i], w.entries[i+1:]...)
					break
				}
			}
			w.mu.Unlock()
		}
	}()
	e.fn(ev)
}
