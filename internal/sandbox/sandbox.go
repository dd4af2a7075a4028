// Package sandbox is the public embedding facade from spec section 4.10:
// one session bundles exactly one VFS, one process registry, one content
// store, and one shell, the "session struct" scoping rule spec section 9
// lays out for what would otherwise be global mutable state.
package sandbox

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/lifo-sh/vush/internal/blob"
	"github.com/lifo-sh/vush/internal/content"
	"github.com/lifo-sh/vush/internal/netstack"
	"github.com/lifo-sh/vush/internal/portreg"
	"github.com/lifo-sh/vush/internal/process"
	"github.com/lifo-sh/vush/internal/shell/interp"
	"github.com/lifo-sh/vush/internal/vfs"
)

// MountSpec describes one native mount to apply at creation or via
// MountNative later.
type MountSpec struct {
	VirtualPath string
	HostPath    string
	ReadOnly    bool
}

// Options configures a new Sandbox.
type Options struct {
	Cwd    string
	Env    map[string]string
	Files  map[string]string // virtual path -> text content
	Mounts []MountSpec
}

// RunResult is what sandbox.commands.run(line) returns.
type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

type runJob struct {
	line   string
	result chan RunResult
}

// ErrDestroyed is returned by every Sandbox method once Destroy has run.
var ErrDestroyed = fmt.Errorf("sandbox destroyed")

// Sandbox is one embeddable session.
type Sandbox struct {
	fs    *vfs.VFS
	procs *process.Registry
	cs    *content.Store
	sh    *interp.Shell

	Commands *Commands
	FS       *FS

	mu        sync.Mutex
	destroyed bool
	jobs      chan runJob
	stopped   chan struct{}
}

// Create builds a new session per opts.
func Create(opts Options) (*Sandbox, error) {
	cs := content.New(blob.NewMemStore())
	fs := vfs.New(cs)
	procs := process.New()
	sh := interp.New(fs, procs, cs)

	sb := &Sandbox{
		fs: fs, procs: procs, cs: cs, sh: sh,
		jobs:    make(chan runJob, 64),
		stopped: make(chan struct{}),
	}
	sb.Commands = &Commands{sb: sb}
	sb.FS = &FS{sb: sb}

	for name, value := range opts.Env {
		sh.Setenv(name, value)
	}
	for path, text := range opts.Files {
		if err := fs.WriteFileString(path, text); err != nil {
			return nil, fmt.Errorf("sandbox: seed file %s: %w", path, err)
		}
	}
	for _, m := range opts.Mounts {
		if err := sb.MountNative(m.VirtualPath, m.HostPath, MountOpts{ReadOnly: m.ReadOnly}); err != nil {
			return nil, fmt.Errorf("sandbox: mount %s: %w", m.VirtualPath, err)
		}
	}
	if opts.Cwd != "" {
		if err := sh.Chdir(opts.Cwd); err != nil {
			return nil, fmt.Errorf("sandbox: set cwd %s: %w", opts.Cwd, err)
		}
	}

	go sb.worker()
	return sb, nil
}

// worker serializes every commands.run call: spec section 4.10 requires
// concurrent run calls be queued and executed in arrival order, which a
// single consumer goroutine draining one channel gives for free without
// relying on an unspecified mutex fairness guarantee.
func (sb *Sandbox) worker() {
	for {
		select {
		case job := <-sb.jobs:
			var out, errOut bytes.Buffer
			sb.sh.SetStreams(&out, &errOut, strings.NewReader(""))
			code, _ := sb.sh.Run(job.line)
			job.result <- RunResult{Stdout: out.String(), Stderr: errOut.String(), ExitCode: code}
		case <-sb.stopped:
			return
		}
	}
}

// Netstack exposes this session's network stack, per spec section 3.3's
// one-stack-per-session rule.
func (sb *Sandbox) Netstack() *netstack.Stack { return sb.sh.Netstack() }

// Portreg exposes this session's virtual HTTP port registry, per spec
// section 3.3's one-registry-per-session rule.
func (sb *Sandbox) Portreg() *portreg.Registry { return sb.sh.Portreg() }

// MountOpts configures MountNative.
type MountOpts struct {
	ReadOnly bool
}

// MountNative mounts hostPath (via the native provider) at virtualPath.
func (sb *Sandbox) MountNative(virtualPath, hostPath string, opts MountOpts) error {
	if sb.isDestroyed() {
		return ErrDestroyed
	}
	provider := vfs.NewNativeProvider(virtualPath, hostPath, opts.ReadOnly)
	sb.fs.Mount(virtualPath, provider)
	return nil
}

// Destroy tears the session down; every further call to this Sandbox or
// its Commands/FS facades fails with ErrDestroyed.
func (sb *Sandbox) Destroy() error {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	if sb.destroyed {
		return ErrDestroyed
	}
	sb.destroyed = true
	close(sb.stopped)
	return nil
}

func (sb *Sandbox) isDestroyed() bool {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.destroyed
}

// Commands is sandbox.commands: the serialized run(line) surface.
type Commands struct {
	sb *Sandbox
}

// Run queues line for execution and blocks until it completes, per spec
// section 4.10's FIFO ordering guarantee.
func (c *Commands) Run(line string) (RunResult, error) {
	if c.sb.isDestroyed() {
		return RunResult{}, ErrDestroyed
	}
	job := runJob{line: line, result: make(chan RunResult, 1)}
	select {
	case c.sb.jobs <- job:
	case <-c.sb.stopped:
		return RunResult{}, ErrDestroyed
	}
	select {
	case res := <-job.result:
		return res, nil
	case <-c.sb.stopped:
		return RunResult{}, ErrDestroyed
	}
}
