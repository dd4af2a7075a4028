package vfs

import (
	"time"

	"github.com/lifo-sh/vush/internal/pathutil"
)

// VirtualEntry is one synthetic file exposed by a VirtualProvider.
type VirtualEntry struct {
	Path string
	Data func() []byte // computed lazily on every read
}

// VirtualProvider is a read-only façade for synthetic trees such as a
// /proc-like endpoint: every entry is generated on demand rather than
// stored.
type VirtualProvider struct {
	mountPoint string
	entries    map[string]VirtualEntry
	started    time.Time
}

// NewVirtualProvider builds a read-only provider from a fixed set of
// synthetic entries, keyed by their full virtual path.
func NewVirtualProvider(mountPoint string, entries []VirtualEntry) *VirtualProvider {
	m := make(map[string]VirtualEntry, len(entries))
	for _, e := range entries {
		m[pathutil.Normalize(e.Path)] = e
	}
	return &VirtualProvider{mountPoint: pathutil.Normalize(mountPoint), entries: m, started: time.Now()}
}

func (p *VirtualProvider) ReadOnly() bool { return true }

func (p *VirtualProvider) Stat(path string) (Info, error) {
	path = pathutil.Normalize(path)
	if e, ok := p.entries[path]; ok {
		return Info{Name: pathutil.Basename(path), Size: int64(len(e.Data())), Mtime: p.started, Ctime: p.started}, nil
	}
	// Directory if it is a strict prefix of some entry.
	for ep := range p.entries {
		if pathutil.HasPrefix(ep, path) && ep != path {
			return Info{Name: pathutil.Basename(path), IsDir: true, Mtime: p.started, Ctime: p.started}, nil
		}
	}
	return Info{}, NewError("stat", path, ENOENT)
}

func (p *VirtualProvider) ReadDir(path string) ([]DirEntry, error) {
	path = pathutil.Normalize(path)
	seen := map[string]bool{}
	var out []DirEntry
	for ep := range p.entries {
		if !pathutil.HasPrefix(ep, path) || ep == path {
			continue
		}
		rest := ep[len(path):]
		if path != "/" {
			rest = ep[len(path)+1:]
		} else {
			rest = ep[1:]
		}
		seg := rest
		isDir := false
		for i, c := range rest {
			if c == '/' {
				seg = rest[:i]
				isDir = true
				break
			}
		}
		if !seen[seg] {
			seen[seg] = true
			out = append(out, DirEntry{Name: seg, IsDir: isDir})
		}
	}
	return out, nil
}

func (p *VirtualProvider) ReadFile(path string) ([]byte, error) {
	path = pathutil.Normalize(path)
	e, ok := p.entries[path]
	if !ok {
		return nil, NewError("read", path, ENOENT)
	}
	return e.Data(), nil
}

func (p *VirtualProvider) AppendFile(path string, data []byte) error { return NewError("write", path, EROFS) }
func (p *VirtualProvider) WriteFile(path string, data []byte) error { return NewError("write", path, EROFS) }
func (p *VirtualProvider) Unlink(path string) error                 { return NewError("unlink", path, EROFS) }
func (p *VirtualProvider) Mkdir(path string, recursive bool) error  { return NewError("mkdir", path, EROFS) }
func (p *VirtualProvider) Rmdir(path string) error                  { return NewError("rmdir", path, EROFS) }
func (p *VirtualProvider) RmdirRecursive(path string) error         { return NewError("rmdir", path, EROFS) }
func (p *VirtualProvider) Rename(oldPath, newPath string) error     { return NewError("rename", oldPath, EROFS) }
