// Package interp is the shell interpreter from spec section 4.6: it
// walks the ast.Script produced by the parser, expanding words through
// internal/shell/expand and dispatching commands through
// internal/commands and a session's internal/process.Registry, the way
// minicli's ProcessCommand walks a parsed Command and dispatches to a
// registered handler.
package interp

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/lifo-sh/vush/internal/commands"
	"github.com/lifo-sh/vush/internal/content"
	"github.com/lifo-sh/vush/internal/mlog"
	"github.com/lifo-sh/vush/internal/netstack"
	"github.com/lifo-sh/vush/internal/pathutil"
	"github.com/lifo-sh/vush/internal/portreg"
	"github.com/lifo-sh/vush/internal/process"
	"github.com/lifo-sh/vush/internal/shell/ast"
	"github.com/lifo-sh/vush/internal/shell/expand"
	"github.com/lifo-sh/vush/internal/shell/parser"
	"github.com/lifo-sh/vush/internal/shell/runtime"
	"github.com/lifo-sh/vush/internal/vfs"
)

// Shell is one session's interpreter state: environment, aliases,
// functions, history, and the VFS/process registry it drives. It is not
// safe for concurrent Run calls from multiple goroutines.
type Shell struct {
	mu sync.Mutex

	fs    *vfs.VFS
	procs *process.Registry
	cs    *content.Store
	net   *netstack.Stack
	ports *portreg.Registry

	builtins  *commands.Registry
	externals *commands.Registry

	env        map[string]string
	aliases    map[string]string
	functions  map[string]*ast.Command
	history    []string
	cwd        string
	positional []string
	name0      string

	lastStatus    int
	exitRequested bool
	exitCode      int

	aliasDepth int

	stdout io.Writer
	stderr io.Writer
	stdin  io.Reader
}

// New constructs a shell session over fs and procs, registering PID 1 for
// itself per spec section 4.7.
func New(fs *vfs.VFS, procs *process.Registry, cs *content.Store) *Shell {
	env := map[string]string{
		"HOME": "/root",
		"PWD":  "/",
		"PS1":  "$ ",
	}
	procs.RegisterShell("/", env)

	sh := &Shell{
		fs:        fs,
		procs:     procs,
		cs:        cs,
		net:       netstack.New(),
		ports:     portreg.New(),
		builtins:  commands.Default(),
		externals: commands.ExternalCommands(),
		env:       env,
		aliases:   make(map[string]string),
		functions: make(map[string]*ast.Command),
		cwd:       "/",
		name0:     "vush",
		stdout:    io.Discard,
		stderr:    io.Discard,
		stdin:     strings.NewReader(""),
	}
	return sh
}

// SetStreams wires the shell's default standard streams; individual
// redirections and pipeline stages may override them per command.
func (sh *Shell) SetStreams(stdout, stderr io.Writer, stdin io.Reader) {
	sh.stdout, sh.stderr, sh.stdin = stdout, stderr, stdin
}

func (sh *Shell) Procs() *process.Registry   { return sh.procs }
func (sh *Shell) VFS() *vfs.VFS              { return sh.fs }
func (sh *Shell) Netstack() *netstack.Stack  { return sh.net }
func (sh *Shell) Portreg() *portreg.Registry { return sh.ports }

// Run lexes, parses, and executes src as a script in this shell's current
// environment, returning the resulting exit status.
func (sh *Shell) Run(src string) (int, error) {
	sh.history = append(sh.history, strings.TrimRight(src, "\n"))

	script, err := parser.Parse(src)
	if err != nil {
		mlog.Error("vush: %v", err)
		fmt.Fprintln(sh.stderr, err)
		return 2, nil
	}

	status, err := sh.runScript(script)
	if exitSig, ok := err.(*runtime.ExitSignal); ok {
		return exitSig.Code, nil
	}
	if err != nil {
		return status, err
	}
	return status, nil
}

func (sh *Shell) runScript(script *ast.Script) (int, error) {
	status := 0
	for _, list := range script.Lists {
		s, err := sh.runList(list)
		status = s
		if err != nil {
			return status, err
		}
		if sh.exitRequested {
			return sh.exitCode, &runtime.ExitSignal{Code: sh.exitCode}
		}
	}
	return status, nil
}

func (sh *Shell) runCompoundList(cl ast.CompoundList) (int, error) {
	status := 0
	for _, list := range cl.Lists {
		s, err := sh.runList(list)
		status = s
		if err != nil {
			return status, err
		}
		if sh.exitRequested {
			return sh.exitCode, &runtime.ExitSignal{Code: sh.exitCode}
		}
	}
	return status, nil
}

// runCaptured runs src with stdout captured to a string, for command
// substitution.
func (sh *Shell) runCaptured(src string) (string, error) {
	var buf bytes.Buffer
	savedOut := sh.stdout
	sh.stdout = &buf
	defer func() { sh.stdout = savedOut }()

	status, err := sh.Run(src)
	sh.lastStatus = status
	if _, ok := err.(*runtime.ExitSignal); ok {
		err = nil
	}
	return buf.String(), err
}

func (sh *Shell) expandContext(stdout, stderr io.Writer, stdin io.Reader) *expand.Context {
	return &expand.Context{
		Get: func(name string) (string, bool) {
			v, ok := sh.env[name]
			return v, ok
		},
		Positional: sh.positional,
		Name0:      sh.name0,
		ExitStatus: sh.lastStatus,
		Pid:        1,
		HomeDir: func(user string) (string, bool) {
			if user != "" {
				return "", false
			}
			v, ok := sh.env["HOME"]
			return v, ok
		},
		RunSub: func(script string) (string, error) {
			return sh.runCaptured(script)
		},
		ListDir: func(dir string) ([]string, error) {
			entries, err := sh.fs.ReadDir(dir)
			if err != nil {
				return nil, err
			}
			names := make([]string, len(entries))
			for i, e := range entries {
				names[i] = e.Name
			}
			return names, nil
		},
		Cwd: sh.cwd,
	}
}

// --- runtime.ExecContext ---

// execCtx is the per-invocation view of the shell handed to built-in and
// external commands: shared shell state plus this command's own
// (possibly redirected) standard streams.
type execCtx struct {
	sh               *Shell
	stdout, stderr   io.Writer
	stdin            io.Reader
}

func (sh *Shell) ctxWith(stdout, stderr io.Writer, stdin io.Reader) *execCtx {
	return &execCtx{sh: sh, stdout: stdout, stderr: stderr, stdin: stdin}
}

func (c *execCtx) Stdout() io.Writer { return c.stdout }
func (c *execCtx) Stderr() io.Writer { return c.stderr }
func (c *execCtx) Stdin() io.Reader  { return c.stdin }

// Getenv and friends take the shell's lock: background jobs (spec
// section 4.6) run their pipeline on a separate goroutine while the
// foreground shell keeps accepting input, and both sides read or write
// env/cwd.
func (c *execCtx) Getenv(name string) (string, bool) {
	c.sh.mu.Lock()
	defer c.sh.mu.Unlock()
	v, ok := c.sh.env[name]
	return v, ok
}
func (c *execCtx) Setenv(name, value string) {
	c.sh.mu.Lock()
	defer c.sh.mu.Unlock()
	c.sh.env[name] = value
}
func (c *execCtx) Unsetenv(name string) {
	c.sh.mu.Lock()
	defer c.sh.mu.Unlock()
	delete(c.sh.env, name)
}
func (c *execCtx) Environ() map[string]string {
	c.sh.mu.Lock()
	defer c.sh.mu.Unlock()
	out := make(map[string]string, len(c.sh.env))
	for k, v := range c.sh.env {
		out[k] = v
	}
	return out
}

func (c *execCtx) Cwd() string { return c.sh.Cwd() }
func (c *execCtx) Chdir(path string) error { return c.sh.Chdir(path) }

// Cwd returns the shell's current working directory.
func (sh *Shell) Cwd() string {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.cwd
}

// Chdir changes the shell's working directory, failing if path does not
// name a directory. Exported so embedders (internal/sandbox) can seed a
// session's starting directory without going through the shell syntax.
func (sh *Shell) Chdir(path string) error {
	path = pathutil.Normalize(path)
	info, err := sh.fs.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir {
		return fmt.Errorf("not a directory")
	}
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.cwd = path
	sh.env["PWD"] = path
	return nil
}

// Setenv sets an environment variable directly. Exported for
// internal/sandbox's Create(options) seeding.
func (sh *Shell) Setenv(name, value string) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.env[name] = value
}

func (c *execCtx) VFS() *vfs.VFS              { return c.sh.fs }
func (c *execCtx) Procs() *process.Registry   { return c.sh.procs }
func (c *execCtx) Netstack() *netstack.Stack  { return c.sh.net }
func (c *execCtx) Portreg() *portreg.Registry { return c.sh.ports }

func (c *execCtx) SetAlias(name, value string) {
	c.sh.mu.Lock()
	defer c.sh.mu.Unlock()
	c.sh.aliases[name] = value
}
func (c *execCtx) GetAlias(name string) (string, bool) {
	c.sh.mu.Lock()
	defer c.sh.mu.Unlock()
	v, ok := c.sh.aliases[name]
	return v, ok
}
func (c *execCtx) UnsetAlias(name string) {
	c.sh.mu.Lock()
	defer c.sh.mu.Unlock()
	delete(c.sh.aliases, name)
}
func (c *execCtx) Aliases() map[string]string {
	c.sh.mu.Lock()
	defer c.sh.mu.Unlock()
	out := make(map[string]string, len(c.sh.aliases))
	for k, v := range c.sh.aliases {
		out[k] = v
	}
	return out
}

func (c *execCtx) History() []string {
	c.sh.mu.Lock()
	defer c.sh.mu.Unlock()
	return append([]string(nil), c.sh.history...)
}

func (c *execCtx) Source(src string) (int, error) {
	return c.sh.runInline(src, c.stdout, c.stderr, c.stdin)
}

func (c *execCtx) RequestExit(code int) {
	c.sh.exitRequested = true
	c.sh.exitCode = code
}

// runInline executes src against the shell's persistent state (env,
// functions, cwd) but with the given streams, for "source" and command
// substitution contexts that already have their own stdout/stderr.
func (sh *Shell) runInline(src string, stdout, stderr io.Writer, stdin io.Reader) (int, error) {
	savedOut, savedErr, savedIn := sh.stdout, sh.stderr, sh.stdin
	sh.stdout, sh.stderr, sh.stdin = stdout, stderr, stdin
	defer func() { sh.stdout, sh.stderr, sh.stdin = savedOut, savedErr, savedIn }()

	script, err := parser.Parse(src)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2, nil
	}
	status, err := sh.runScript(script)
	if _, ok := err.(*runtime.ExitSignal); ok {
		return status, nil
	}
	return status, err
}
