package vfs

import (
	"testing"

	"github.com/lifo-sh/vush/internal/blob"
	"github.com/lifo-sh/vush/internal/content"
)

func newTestVFS() *VFS {
	return New(content.New(blob.NewMemStore()))
}

func TestWriteReadRoundTrip(t *testing.T) {
	v := newTestVFS()
	if err := v.WriteFileString("/tmp/out.txt", "HELLO WORLD\n"); err != nil {
		t.Fatal(err)
	}
	got, err := v.ReadFileString("/tmp/out.txt")
	if err != nil {
		t.Fatal(err)
	}
	if got != "HELLO WORLD\n" {
		t.Fatalf("got %q", got)
	}
}

func TestMkdirReaddirAndGlobSource(t *testing.T) {
	v := newTestVFS()
	if err := v.Mkdir("/t", false); err != nil {
		t.Fatal(err)
	}
	for _, n := range []string{"a.txt", "b.txt", "c.txt"} {
		if err := v.WriteFileString("/t/"+n, ""); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := v.ReadDir("/t")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
}

func TestMountLongestPrefixAndReaddirInjection(t *testing.T) {
	v := newTestVFS()
	v.Mount("/mnt/data", NewMemoryProvider(nil))

	// /mnt has no real inode, but readdir on / should synthesize "mnt".
	entries, err := v.ReadDir("/")
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, e := range entries {
		if e.Name == "mnt" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected synthesized 'mnt' entry at root")
	}

	// Writing under /mnt/data should go to the mounted provider, not root.
	if err := v.WriteFileString("/mnt/data/f", "x"); err != nil {
		t.Fatal(err)
	}
	if v.Exists("/f") {
		t.Fatal("file should not have landed in the root tree")
	}
}

func TestRenameAcrossMountsFails(t *testing.T) {
	v := newTestVFS()
	v.Mount("/mnt", NewMemoryProvider(nil))
	v.WriteFileString("/a.txt", "x")

	err := v.Rename("/a.txt", "/mnt/a.txt")
	if !Is(err, EXDEV) {
		t.Fatalf("expected EXDEV, got %v", err)
	}
}

func TestCopyAcrossMountsSucceeds(t *testing.T) {
	v := newTestVFS()
	v.Mount("/mnt", NewMemoryProvider(nil))
	v.WriteFileString("/a.txt", "hello")

	if err := v.CopyFile("/a.txt", "/mnt/a.txt"); err != nil {
		t.Fatal(err)
	}
	got, err := v.ReadFileString("/mnt/a.txt")
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello" {
		t.Fatalf("got %q", got)
	}
}

func TestReadOnlyMountRejectsWrites(t *testing.T) {
	v := newTestVFS()
	ro := NewMemoryProvider(nil)
	ro.SetReadOnly(true)
	v.Mount("/ro", ro)

	err := v.WriteFileString("/ro/f", "x")
	if !Is(err, EROFS) {
		t.Fatalf("expected EROFS, got %v", err)
	}
}

func TestWatchDispatchOrderingAndLateSubscribe(t *testing.T) {
	v := newTestVFS()

	var events []string
	registeredLate := false
	unsub := v.Watch("/", func(ev Event) {
		events = append(events, ev.Kind.String()+":"+ev.Path)
		if registeredLate {
			return
		}
		registeredLate = true
		// Registering a new watcher mid-dispatch must not see this event.
		var unsubLate func()
		unsubLate = v.Watch("/", func(Event) {
			t.Fatal("late watcher should not see the in-flight event")
		})
		unsubLate()
	})
	defer unsub()

	v.WriteFileString("/a", "1")
	v.WriteFileString("/a", "2")
	v.Unlink("/a")

	want := []string{"create:/a", "write:/a", "unlink:/a"}
	if len(events) != len(want) {
		t.Fatalf("got %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("got %v, want %v", events, want)
		}
	}
}

func TestAtomicWrite(t *testing.T) {
	v := newTestVFS()
	if err := v.WriteFileString("/x", "v1"); err != nil {
		t.Fatal(err)
	}
	// Stat/exists must never observe a half-applied state; a single write
	// either fully lands or doesn't happen at all.
	if !v.Exists("/x") {
		t.Fatal("expected file to exist after write")
	}
	got, _ := v.ReadFileString("/x")
	if got != "v1" {
		t.Fatalf("got %q", got)
	}
}

func TestLargeFileIsChunked(t *testing.T) {
	v := newTestVFS()
	data := make([]byte, content.ChunkThreshold+17)
	for i := range data {
		data[i] = byte(i)
	}
	if err := v.WriteFile("/big", data); err != nil {
		t.Fatal(err)
	}
	got, err := v.ReadFile("/big")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(data) {
		t.Fatalf("got %d bytes, want %d", len(got), len(data))
	}
}
