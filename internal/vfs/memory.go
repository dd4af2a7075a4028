package vfs

import (
	"strings"
	"sync"
	"time"

	"github.com/lifo-sh/vush/internal/blob"
	"github.com/lifo-sh/vush/internal/content"
	"github.com/lifo-sh/vush/internal/pathutil"
)

// inode is the polymorphic node of the in-memory tree: a directory
// (children non-nil) or a file (children nil). A file's bytes are either
// inline or blob-backed, per spec section 3.1.
type inode struct {
	mode  uint32
	mtime time.Time
	ctime time.Time

	children map[string]*inode // non-nil iff directory

	inline   []byte
	blobHash blob.Hash
	chunked  bool
	size     int64 // authoritative size for blob-backed files
}

func newDir(mode uint32) *inode {
	now := time.Now()
	return &inode{mode: mode, mtime: now, ctime: now, children: make(map[string]*inode)}
}

func newFile(mode uint32) *inode {
	now := time.Now()
	return &inode{mode: mode, mtime: now, ctime: now}
}

func (n *inode) isDir() bool { return n.children != nil }

// MemoryProvider is the built-in in-memory inode tree. It is always
// mounted at "/" for a fresh VFS and backs ordinary reads/writes that no
// other mount intercepts.
type MemoryProvider struct {
	mu       sync.RWMutex
	root     *inode
	content  *content.Store
	readOnly bool
}

// NewMemoryProvider creates an empty in-memory provider. cs may be nil, in
// which case large writes are kept inline (useful for tests that don't
// care about chunking).
func NewMemoryProvider(cs *content.Store) *MemoryProvider {
	return &MemoryProvider{root: newDir(0755), content: cs}
}

func (p *MemoryProvider) ReadOnly() bool { return p.readOnly }

// SetReadOnly flips the read-only flag; used by mounts constructed with a
// read-only virtual/native wrapper that delegates storage to a memory tree.
func (p *MemoryProvider) SetReadOnly(ro bool) { p.readOnly = ro }

func (p *MemoryProvider) segments(path string) []string {
	return pathutil.Segments(path)
}

// walk returns the node at path, holding no lock (caller must lock).
func (p *MemoryProvider) walk(path string) (*inode, error) {
	segs := p.segments(path)
	cur := p.root
	for i, s := range segs {
		if !cur.isDir() {
			return nil, NewError("stat", path, ENOTDIR)
		}
		next, ok := cur.children[s]
		if !ok {
			return nil, NewError("stat", path, ENOENT)
		}
		cur = next
		_ = i
	}
	return cur, nil
}

// walkParent returns the parent directory node and final segment name.
func (p *MemoryProvider) walkParent(path string) (*inode, string, error) {
	segs := p.segments(path)
	if len(segs) == 0 {
		return nil, "", NewError("open", path, EACCES)
	}
	parentPath := pathutil.Dirname(path)
	parent, err := p.walk(parentPath)
	if err != nil {
		return nil, "", err
	}
	if !parent.isDir() {
		return nil, "", NewError("open", path, ENOTDIR)
	}
	return parent, segs[len(segs)-1], nil
}

func (p *MemoryProvider) Stat(path string) (Info, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	n, err := p.walk(path)
	if err != nil {
		return Info{}, err
	}
	return p.info(path, n), nil
}

func (p *MemoryProvider) info(path string, n *inode) Info {
	size := int64(len(n.inline))
	if n.blobHash != "" {
		size = n.size
	}
	return Info{
		Name:  pathutil.Basename(path),
		IsDir: n.isDir(),
		Size:  size,
		Mode:  n.mode,
		Mtime: n.mtime,
		Ctime: n.ctime,
	}
}

func (p *MemoryProvider) ReadDir(path string) ([]DirEntry, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	n, err := p.walk(path)
	if err != nil {
		return nil, err
	}
	if !n.isDir() {
		return nil, NewError("readdir", path, ENOTDIR)
	}

	var entries []DirEntry
	for name, child := range n.children {
		entries = append(entries, DirEntry{Name: name, IsDir: child.isDir()})
	}
	return entries, nil
}

func (p *MemoryProvider) ReadFile(path string) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	n, err := p.walk(path)
	if err != nil {
		return nil, err
	}
	if n.isDir() {
		return nil, NewError("read", path, EISDIR)
	}

	if n.blobHash != "" {
		if p.content == nil {
			return nil, NewError("read", path, ENOENT)
		}
		return p.content.Get(n.blobHash)
	}

	out := make([]byte, len(n.inline))
	copy(out, n.inline)
	return out, nil
}

func (p *MemoryProvider) WriteFile(path string, data []byte) error {
	if p.readOnly {
		return NewError("write", path, EROFS)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	parent, name, err := p.walkParent(path)
	if err != nil {
		return err
	}

	n, exists := parent.children[name]
	if exists && n.isDir() {
		return NewError("write", path, EISDIR)
	}
	if !exists {
		n = newFile(0644)
		parent.children[name] = n
	}

	return p.store(n, data, path)
}

func (p *MemoryProvider) store(n *inode, data []byte, path string) error {
	now := time.Now()
	n.mtime = now

	if p.content != nil && len(data) >= content.ChunkThreshold {
		h, err := p.content.Put(data)
		if err != nil {
			return err
		}
		n.blobHash = h
		n.chunked = true
		n.size = int64(len(data))
		n.inline = nil
		return nil
	}

	n.inline = append([]byte(nil), data...)
	n.blobHash = ""
	n.chunked = false
	n.size = int64(len(data))
	return nil
}

func (p *MemoryProvider) AppendFile(path string, data []byte) error {
	if p.readOnly {
		return NewError("write", path, EROFS)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	parent, name, err := p.walkParent(path)
	if err != nil {
		return err
	}

	n, exists := parent.children[name]
	if exists && n.isDir() {
		return NewError("write", path, EISDIR)
	}
	if !exists {
		n = newFile(0644)
		parent.children[name] = n
	}

	existing, err := p.readBytesLocked(n, path)
	if err != nil {
		return err
	}
	return p.store(n, append(existing, data...), path)
}

func (p *MemoryProvider) readBytesLocked(n *inode, path string) ([]byte, error) {
	if n.blobHash != "" {
		if p.content == nil {
			return nil, nil
		}
		return p.content.Get(n.blobHash)
	}
	return append([]byte(nil), n.inline...), nil
}

func (p *MemoryProvider) Unlink(path string) error {
	if p.readOnly {
		return NewError("unlink", path, EROFS)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	parent, name, err := p.walkParent(path)
	if err != nil {
		return err
	}
	n, ok := parent.children[name]
	if !ok {
		return NewError("unlink", path, ENOENT)
	}
	if n.isDir() {
		return NewError("unlink", path, EISDIR)
	}
	delete(parent.children, name)
	return nil
}

func (p *MemoryProvider) Mkdir(path string, recursive bool) error {
	if p.readOnly {
		return NewError("mkdir", path, EROFS)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	segs := p.segments(path)
	cur := p.root
	for i, s := range segs {
		next, ok := cur.children[s]
		if !ok {
			if !recursive && i < len(segs)-1 {
				return NewError("mkdir", path, ENOENT)
			}
			next = newDir(0755)
			cur.children[s] = next
		} else if !next.isDir() {
			return NewError("mkdir", path, ENOTDIR)
		} else if i == len(segs)-1 && !recursive {
			return NewError("mkdir", path, EEXIST)
		}
		cur = next
	}
	return nil
}

func (p *MemoryProvider) Rmdir(path string) error {
	if p.readOnly {
		return NewError("rmdir", path, EROFS)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	parent, name, err := p.walkParent(path)
	if err != nil {
		return err
	}
	n, ok := parent.children[name]
	if !ok {
		return NewError("rmdir", path, ENOENT)
	}
	if !n.isDir() {
		return NewError("rmdir", path, ENOTDIR)
	}
	if len(n.children) > 0 {
		return NewError("rmdir", path, ENOTEMPTY)
	}
	delete(parent.children, name)
	return nil
}

func (p *MemoryProvider) RmdirRecursive(path string) error {
	if p.readOnly {
		return NewError("rmdir", path, EROFS)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	parent, name, err := p.walkParent(path)
	if err != nil {
		return err
	}
	n, ok := parent.children[name]
	if !ok {
		return NewError("rmdir", path, ENOENT)
	}
	if !n.isDir() {
		return NewError("rmdir", path, ENOTDIR)
	}
	delete(parent.children, name)
	return nil
}

func (p *MemoryProvider) Rename(oldPath, newPath string) error {
	if p.readOnly {
		return NewError("rename", oldPath, EROFS)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	oldParent, oldName, err := p.walkParent(oldPath)
	if err != nil {
		return err
	}
	n, ok := oldParent.children[oldName]
	if !ok {
		return NewError("rename", oldPath, ENOENT)
	}

	newParent, newName, err := p.walkParent(newPath)
	if err != nil {
		return err
	}
	if existing, ok := newParent.children[newName]; ok && existing.isDir() && !n.isDir() {
		return NewError("rename", newPath, EISDIR)
	}

	delete(oldParent.children, oldName)
	newParent.children[newName] = n
	return nil
}

// hasChildSegment reports whether path exists as a directory and, if so,
// whether it already has a real child named seg. Used by the VFS to decide
// whether to synthesize a mount-ancestor entry during readdir.
func (p *MemoryProvider) hasChildSegment(path, seg string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	n, err := p.walk(path)
	if err != nil || !n.isDir() {
		return false
	}
	_, ok := n.children[seg]
	return ok
}

func trimSlash(s string) string {
	return strings.TrimSuffix(s, "/")
}
