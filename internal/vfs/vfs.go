// Package vfs implements the in-process virtual file system: an inode
// tree with mountable providers, watch dispatch, and the error taxonomy
// from spec section 4.1. Every operation is synchronous and, per
// provider, atomic.
package vfs

import (
	"fmt"
	"sort"

	"github.com/lifo-sh/vush/internal/content"
	"github.com/lifo-sh/vush/internal/pathutil"
)

// VFS owns the root inode tree, the mount table, and the watch registry
// for one session.
type VFS struct {
	mounts  *mountTable
	watch   *watchRegistry
	root    *MemoryProvider
	content *content.Store
}

// New constructs a VFS with an empty root tree. cs is the content store
// backing large-file writes through the root provider; it may be nil.
func New(cs *content.Store) *VFS {
	root := NewMemoryProvider(cs)
	v := &VFS{
		mounts:  newMountTable(),
		watch:   newWatchRegistry(),
		root:    root,
		content: cs,
	}
	v.mounts.mount("/", root)
	return v
}

func (v *VFS) resolve(path string) (Provider, string) {
	path = pathutil.Normalize(path)
	p, prefix, ok := v.mounts.resolve(path)
	if !ok {
		// "/" is always mounted in New, but guard defensively.
		return v.root, "/"
	}
	return p, prefix
}

// Exists reports whether path resolves to any inode.
func (v *VFS) Exists(path string) bool {
	_, err := v.Stat(path)
	return err == nil
}

func (v *VFS) Stat(path string) (Info, error) {
	p, _ := v.resolve(path)
	return p.Stat(pathutil.Normalize(path))
}

// ReadDir lists path's children, synthesizing the next path segment for
// any mount whose prefix descends below path but has no real inode at an
// intermediate ancestor, per spec section 4.1's "readdir injection".
func (v *VFS) ReadDir(path string) ([]DirEntry, error) {
	path = pathutil.Normalize(path)
	p, _ := v.resolve(path)

	entries, err := p.ReadDir(path)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		seen[e.Name] = true
	}

	for _, m := range v.mounts.list() {
		if m.prefix == path {
			continue
		}
		if !pathutil.HasPrefix(m.prefix, path) {
			continue
		}
		rest := pathutil.Segments(m.prefix)
		base := pathutil.Segments(path)
		if len(rest) <= len(base) {
			continue
		}
		seg := rest[len(base)]
		if !seen[seg] {
			seen[seg] = true
			entries = append(entries, DirEntry{Name: seg, IsDir: true})
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (v *VFS) ReadFile(path string) ([]byte, error) {
	p, _ := v.resolve(path)
	return p.ReadFile(pathutil.Normalize(path))
}

func (v *VFS) ReadFileString(path string) (string, error) {
	b, err := v.ReadFile(path)
	return string(b), err
}

func (v *VFS) WriteFile(path string, data []byte) error {
	path = pathutil.Normalize(path)
	p, _ := v.resolve(path)

	existed := v.Exists(path)

	if err := p.WriteFile(path, data); err != nil {
		return err
	}

	kind := EventWrite
	if !existed {
		kind = EventCreate
	}
	v.watch.dispatch(Event{Kind: kind, Path: path})
	return nil
}

func (v *VFS) WriteFileString(path, text string) error {
	return v.WriteFile(path, []byte(text))
}

func (v *VFS) AppendFile(path string, data []byte) error {
	path = pathutil.Normalize(path)
	p, _ := v.resolve(path)

	if err := p.AppendFile(path, data); err != nil {
		return err
	}
	v.watch.dispatch(Event{Kind: EventWrite, Path: path})
	return nil
}

func (v *VFS) Unlink(path string) error {
	path = pathutil.Normalize(path)
	p, _ := v.resolve(path)

	if err := p.Unlink(path); err != nil {
		return err
	}
	v.watch.dispatch(Event{Kind: EventUnlink, Path: path})
	return nil
}

func (v *VFS) Mkdir(path string, recursive bool) error {
	path = pathutil.Normalize(path)
	p, _ := v.resolve(path)

	if err := p.Mkdir(path, recursive); err != nil {
		return err
	}
	v.watch.dispatch(Event{Kind: EventMkdir, Path: path})
	return nil
}

func (v *VFS) Rmdir(path string) error {
	path = pathutil.Normalize(path)
	p, _ := v.resolve(path)

	if err := p.Rmdir(path); err != nil {
		return err
	}
	v.watch.dispatch(Event{Kind: EventRmdir, Path: path})
	return nil
}

func (v *VFS) RmdirRecursive(path string) error {
	path = pathutil.Normalize(path)
	p, _ := v.resolve(path)

	if err := p.RmdirRecursive(path); err != nil {
		return err
	}
	v.watch.dispatch(Event{Kind: EventRmdir, Path: path})
	return nil
}

// Rename moves oldPath to newPath. Cross-mount renames always fail with
// EXDEV, per spec section 4.1.
func (v *VFS) Rename(oldPath, newPath string) error {
	oldPath = pathutil.Normalize(oldPath)
	newPath = pathutil.Normalize(newPath)

	oldProvider, oldPrefix := v.resolve(oldPath)
	_, newPrefix := v.resolve(newPath)

	if oldPrefix != newPrefix {
		return NewError("rename", oldPath, EXDEV)
	}

	if err := oldProvider.Rename(oldPath, newPath); err != nil {
		return err
	}
	v.watch.dispatch(Event{Kind: EventRename, Path: newPath, OldPath: oldPath})
	return nil
}

// CopyFile copies src to dst, even across mounts, by reading from the
// source provider and writing through the destination provider.
func (v *VFS) CopyFile(src, dst string) error {
	data, err := v.ReadFile(src)
	if err != nil {
		return fmt.Errorf("copy %s -> %s: %w", src, dst, err)
	}
	return v.WriteFile(dst, data)
}

// Mount adds or atomically replaces a mount at prefix.
func (v *VFS) Mount(prefix string, p Provider) {
	v.mounts.mount(prefix, p)
}

// Unmount removes the mount at prefix, if any.
func (v *VFS) Unmount(prefix string) bool {
	return v.mounts.unmount(prefix)
}

// Watch registers a listener for every mutation under pathPrefix. The
// returned function unsubscribes it.
func (v *VFS) Watch(pathPrefix string, fn Listener) func() {
	return v.watch.add(pathPrefix, fn)
}

// Walk recursively visits every file and directory at or below root,
// depth first. Used by the shell's recursive glob support and by
// RmdirRecursive-adjacent tooling.
func (v *VFS) Walk(root string, fn func(path string, info Info) error) error {
	info, err := v.Stat(root)
	if err != nil {
		return err
	}
	if err := fn(root, info); err != nil {
		return err
	}
	if !info.IsDir {
		return nil
	}

	entries, err := v.ReadDir(root)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := v.Walk(pathutil.Join(root, e.Name), fn); err != nil {
			return err
		}
	}
	return nil
}
