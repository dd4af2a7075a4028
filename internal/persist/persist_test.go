package persist

import (
	"testing"

	"github.com/lifo-sh/vush/internal/blob"
	"github.com/lifo-sh/vush/internal/content"
	"github.com/lifo-sh/vush/internal/vfs"
)

func newVFS() *vfs.VFS {
	cs := content.New(blob.NewMemStore())
	return vfs.New(cs)
}

func TestMemoryBackendIsNoOp(t *testing.T) {
	b := NewMemoryBackend()
	if err := b.SaveAll(map[string][]byte{"h": []byte("x")}, "snap", []byte("tree")); err != nil {
		t.Fatal(err)
	}
	if _, err := b.LoadSnapshot("snap"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound from a no-op backend, got %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	fs := newVFS()
	fs.Mkdir("/a", true)
	fs.WriteFileString("/a/hello.txt", "hello world")
	fs.WriteFileString("/root.txt", "top level")

	backend, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer backend.Close()

	if err := Save(fs, backend, "snap1"); err != nil {
		t.Fatal(err)
	}

	restored := newVFS()
	if err := Load(restored, backend, "snap1"); err != nil {
		t.Fatal(err)
	}

	got, err := restored.ReadFileString("/a/hello.txt")
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello world" {
		t.Fatalf("got %q, want hello world", got)
	}

	got, err = restored.ReadFileString("/root.txt")
	if err != nil {
		t.Fatal(err)
	}
	if got != "top level" {
		t.Fatalf("got %q, want top level", got)
	}
}

func TestLoadMissingSnapshotFails(t *testing.T) {
	backend, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer backend.Close()

	fs := newVFS()
	if err := Load(fs, backend, "nonexistent"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveOverwritesExistingSnapshotName(t *testing.T) {
	fs := newVFS()
	fs.WriteFileString("/v1.txt", "version one")

	backend, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer backend.Close()

	if err := Save(fs, backend, "snap"); err != nil {
		t.Fatal(err)
	}

	fs.WriteFileString("/v1.txt", "version two")
	if err := Save(fs, backend, "snap"); err != nil {
		t.Fatal(err)
	}

	restored := newVFS()
	if err := Load(restored, backend, "snap"); err != nil {
		t.Fatal(err)
	}
	got, err := restored.ReadFileString("/v1.txt")
	if err != nil {
		t.Fatal(err)
	}
	if got != "version two" {
		t.Fatalf("got %q, want version two", got)
	}
}
