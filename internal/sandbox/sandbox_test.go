package sandbox

import (
	"strings"
	"sync"
	"testing"
)

func TestCreateSeedsCwdEnvAndFiles(t *testing.T) {
	sb, err := Create(Options{
		Cwd:   "/",
		Env:   map[string]string{"GREETING": "hi"},
		Files: map[string]string{"/hello.txt": "world\n"},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sb.Destroy()

	res, err := sb.Commands.Run("echo $GREETING")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(res.Stdout) != "hi" {
		t.Fatalf("got %q", res.Stdout)
	}

	data, err := sb.FS.ReadFileString("/hello.txt")
	if err != nil {
		t.Fatal(err)
	}
	if data != "world\n" {
		t.Fatalf("got %q", data)
	}
}

func TestRunReportsExitCode(t *testing.T) {
	sb, err := Create(Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer sb.Destroy()

	res, err := sb.Commands.Run("false")
	if err != nil {
		t.Fatal(err)
	}
	if res.ExitCode == 0 {
		t.Fatal("expected nonzero exit code")
	}
}

func TestConcurrentRunsAllComplete(t *testing.T) {
	sb, err := Create(Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer sb.Destroy()

	const n = 20
	var wg sync.WaitGroup
	results := make([]RunResult, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := sb.Commands.Run("echo step")
			if err != nil {
				t.Error(err)
				return
			}
			results[i] = res
		}(i)
	}
	wg.Wait()

	for i, res := range results {
		if strings.TrimSpace(res.Stdout) != "step" {
			t.Fatalf("job %d: got %q", i, res.Stdout)
		}
	}
}

func TestDestroyFailsFurtherCalls(t *testing.T) {
	sb, err := Create(Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := sb.Destroy(); err != nil {
		t.Fatal(err)
	}

	if _, err := sb.Commands.Run("echo hi"); err != ErrDestroyed {
		t.Fatalf("got %v, want ErrDestroyed", err)
	}
	if _, err := sb.FS.ReadFile("/x"); err != ErrDestroyed {
		t.Fatalf("got %v, want ErrDestroyed", err)
	}
	if err := sb.Destroy(); err != ErrDestroyed {
		t.Fatalf("got %v, want ErrDestroyed on second destroy", err)
	}
}

func TestVirtualHTTPEndToEnd(t *testing.T) {
	sb, err := Create(Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer sb.Destroy()

	if _, err := sb.Commands.Run("listen 5000 pong"); err != nil {
		t.Fatal(err)
	}

	res, err := sb.Commands.Run("fetch http://localhost:5000/")
	if err != nil {
		t.Fatal(err)
	}
	if res.ExitCode != 0 {
		t.Fatalf("exit code = %d, want 0: stderr=%q", res.ExitCode, res.Stderr)
	}
	if res.Stdout != "pong" {
		t.Fatalf("got %q, want pong", res.Stdout)
	}

	if _, err := sb.Commands.Run("unlisten 5000"); err != nil {
		t.Fatal(err)
	}

	res, err = sb.Commands.Run("fetch http://localhost:5000/")
	if err != nil {
		t.Fatal(err)
	}
	if res.ExitCode == 0 {
		t.Fatalf("expected failure after unlisten, got stdout=%q", res.Stdout)
	}
}

func TestMountNativeExposesHostPath(t *testing.T) {
	sb, err := Create(Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer sb.Destroy()

	if err := sb.FS.Mkdir("/host", false); err != nil {
		t.Fatal(err)
	}
	if err := sb.MountNative("/host", t.TempDir(), MountOpts{}); err != nil {
		t.Fatal(err)
	}
	if err := sb.FS.WriteFileString("/host/note.txt", "native\n"); err != nil {
		t.Fatal(err)
	}
	data, err := sb.FS.ReadFileString("/host/note.txt")
	if err != nil {
		t.Fatal(err)
	}
	if data != "native\n" {
		t.Fatalf("got %q", data)
	}
}
