package sandbox

import "github.com/lifo-sh/vush/internal/vfs"

// FS is sandbox.fs: a thin wrapper over the session's VFS that every
// operation routes through the Sandbox's destroyed check, per spec
// section 4.10 ("all further calls fail with Sandbox destroyed").
type FS struct {
	sb *Sandbox
}

func (f *FS) ReadFile(path string) ([]byte, error) {
	if f.sb.isDestroyed() {
		return nil, ErrDestroyed
	}
	return f.sb.fs.ReadFile(path)
}

func (f *FS) ReadFileString(path string) (string, error) {
	if f.sb.isDestroyed() {
		return "", ErrDestroyed
	}
	return f.sb.fs.ReadFileString(path)
}

func (f *FS) WriteFile(path string, data []byte) error {
	if f.sb.isDestroyed() {
		return ErrDestroyed
	}
	return f.sb.fs.WriteFile(path, data)
}

func (f *FS) WriteFileString(path, text string) error {
	if f.sb.isDestroyed() {
		return ErrDestroyed
	}
	return f.sb.fs.WriteFileString(path, text)
}

func (f *FS) Mkdir(path string, recursive bool) error {
	if f.sb.isDestroyed() {
		return ErrDestroyed
	}
	return f.sb.fs.Mkdir(path, recursive)
}

func (f *FS) ReadDir(path string) ([]vfs.DirEntry, error) {
	if f.sb.isDestroyed() {
		return nil, ErrDestroyed
	}
	return f.sb.fs.ReadDir(path)
}

func (f *FS) Stat(path string) (vfs.Info, error) {
	if f.sb.isDestroyed() {
		return vfs.Info{}, ErrDestroyed
	}
	return f.sb.fs.Stat(path)
}

func (f *FS) Remove(path string) error {
	if f.sb.isDestroyed() {
		return ErrDestroyed
	}
	return f.sb.fs.Unlink(path)
}
