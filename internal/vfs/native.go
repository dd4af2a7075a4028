package vfs

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/lifo-sh/vush/internal/pathutil"
)

// NativeProvider backs a subtree with the real host filesystem, rooted at
// a sandbox directory. Every translated path is checked against escaping
// the root after ".." resolution, mirroring the defensive name validation
// minimega's bridge/tap code applies to user-supplied interface names
// before it ever shells out to the real network stack.
type NativeProvider struct {
	hostRoot   string
	mountPoint string
	readOnly   bool
}

// NewNativeProvider creates a provider rooted at hostRoot, serving the
// virtual subtree at mountPoint.
func NewNativeProvider(mountPoint, hostRoot string, readOnly bool) *NativeProvider {
	return &NativeProvider{
		hostRoot:   filepath.Clean(hostRoot),
		mountPoint: pathutil.Normalize(mountPoint),
		readOnly:   readOnly,
	}
}

func (p *NativeProvider) ReadOnly() bool { return p.readOnly }

// translate maps a virtual path under the mount point to a host path,
// rejecting any path whose normalized form escapes hostRoot.
func (p *NativeProvider) translate(path string) (string, error) {
	rel := strings.TrimPrefix(pathutil.Normalize(path), p.mountPoint)
	rel = strings.TrimPrefix(rel, "/")

	host := filepath.Join(p.hostRoot, filepath.FromSlash(rel))
	host = filepath.Clean(host)

	// Reject escape both on the virtual path (rel must not climb past the
	// mount) and on the resulting host path.
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", NewError("open", path, EACCES)
	}
	if host != p.hostRoot && !strings.HasPrefix(host, p.hostRoot+string(filepath.Separator)) {
		return "", NewError("open", path, EACCES)
	}

	return host, nil
}

func (p *NativeProvider) Stat(path string) (Info, error) {
	host, err := p.translate(path)
	if err != nil {
		return Info{}, err
	}
	fi, err := os.Stat(host)
	if err != nil {
		return Info{}, mapOSError("stat", path, err)
	}
	return Info{
		Name:  fi.Name(),
		IsDir: fi.IsDir(),
		Size:  fi.Size(),
		Mode:  uint32(fi.Mode().Perm()),
		Mtime: fi.ModTime(),
		Ctime: fi.ModTime(),
	}, nil
}

func (p *NativeProvider) ReadDir(path string) ([]DirEntry, error) {
	host, err := p.translate(path)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(host)
	if err != nil {
		return nil, mapOSError("readdir", path, err)
	}

	out := make([]DirEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, DirEntry{Name: e.Name(), IsDir: e.IsDir()})
	}
	return out, nil
}

func (p *NativeProvider) ReadFile(path string) ([]byte, error) {
	host, err := p.translate(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(host)
	if err != nil {
		return nil, mapOSError("read", path, err)
	}
	return b, nil
}

func (p *NativeProvider) WriteFile(path string, data []byte) error {
	if p.readOnly {
		return NewError("write", path, EROFS)
	}
	host, err := p.translate(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(host), 0755); err != nil {
		return mapOSError("write", path, err)
	}
	if err := os.WriteFile(host, data, 0644); err != nil {
		return mapOSError("write", path, err)
	}
	return nil
}

func (p *NativeProvider) AppendFile(path string, data []byte) error {
	if p.readOnly {
		return NewError("write", path, EROFS)
	}
	host, err := p.translate(path)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(host, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return mapOSError("write", path, err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return mapOSError("write", path, err)
	}
	return nil
}

func (p *NativeProvider) Unlink(path string) error {
	if p.readOnly {
		return NewError("unlink", path, EROFS)
	}
	host, err := p.translate(path)
	if err != nil {
		return err
	}
	if err := os.Remove(host); err != nil {
		return mapOSError("unlink", path, err)
	}
	return nil
}

func (p *NativeProvider) Mkdir(path string, recursive bool) error {
	if p.readOnly {
		return NewError("mkdir", path, EROFS)
	}
	host, err := p.translate(path)
	if err != nil {
		return err
	}
	if recursive {
		if err := os.MkdirAll(host, 0755); err != nil {
			return mapOSError("mkdir", path, err)
		}
		return nil
	}
	if err := os.Mkdir(host, 0755); err != nil {
		return mapOSError("mkdir", path, err)
	}
	return nil
}

func (p *NativeProvider) Rmdir(path string) error {
	if p.readOnly {
		return NewError("rmdir", path, EROFS)
	}
	host, err := p.translate(path)
	if err != nil {
		return err
	}
	if err := os.Remove(host); err != nil {
		return mapOSError("rmdir", path, err)
	}
	return nil
}

func (p *NativeProvider) RmdirRecursive(path string) error {
	if p.readOnly {
		return NewError("rmdir", path, EROFS)
	}
	host, err := p.translate(path)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(host); err != nil {
		return mapOSError("rmdir", path, err)
	}
	return nil
}

func (p *NativeProvider) Rename(oldPath, newPath string) error {
	if p.readOnly {
		return NewError("rename", oldPath, EROFS)
	}
	oldHost, err := p.translate(oldPath)
	if err != nil {
		return err
	}
	newHost, err := p.translate(newPath)
	if err != nil {
		return err
	}
	if err := os.Rename(oldHost, newHost); err != nil {
		return mapOSError("rename", oldPath, err)
	}
	return nil
}

func mapOSError(op, path string, err error) error {
	if os.IsNotExist(err) {
		return NewError(op, path, ENOENT)
	}
	if os.IsExist(err) {
		return NewError(op, path, EEXIST)
	}
	if os.IsPermission(err) {
		return NewError(op, path, EACCES)
	}
	return NewError(op, path, EACCES)
}
