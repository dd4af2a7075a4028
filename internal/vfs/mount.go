package vfs

import (
	"sort"
	"sync"

	"github.com/lifo-sh/vush/internal/pathutil"
)

// mountEntry is a (prefix, provider) pair.
type mountEntry struct {
	prefix   string
	provider Provider
}

// mountTable keeps mounts sorted by prefix length descending so lookup is
// longest-prefix-first, per spec section 3.1/4.1.
type mountTable struct {
	mu      sync.RWMutex
	entries []mountEntry
}

func newMountTable() *mountTable {
	return &mountTable{}
}

func (t *mountTable) mount(prefix string, p Provider) {
	prefix = pathutil.Normalize(prefix)

	t.mu.Lock()
	defer t.mu.Unlock()

	for i, e := range t.entries {
		if e.prefix == prefix {
			// Re-mounting a prefix replaces atomically.
			t.entries[i] = mountEntry{prefix: prefix, provider: p}
			return
		}
	}

	t.entries = append(t.entries, mountEntry{prefix: prefix, provider: p})
	sort.Slice(t.entries, func(i, j int) bool {
		return len(t.entries[i].prefix) > len(t.entries[j].prefix)
	})
}

func (t *mountTable) unmount(prefix string) bool {
	prefix = pathutil.Normalize(prefix)

	t.mu.Lock()
	defer t.mu.Unlock()

	for i, e := range t.entries {
		if e.prefix == prefix {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return true
		}
	}
	return false
}

// resolve returns the provider owning path and the prefix it matched, or
// ok=false if no mount (other than the root) owns it.
func (t *mountTable) resolve(path string) (provider Provider, prefix string, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, e := range t.entries {
		if pathutil.HasPrefix(path, e.prefix) {
			return e.provider, e.prefix, true
		}
	}
	return nil, "", false
}

func (t *mountTable) list() []mountEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]mountEntry, len(t.entries))
	copy(out, t.entries)
	return out
}
