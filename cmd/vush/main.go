// Command vush is the in-process userland's command-line entrypoint: it
// wires exactly one VFS, one process registry, one content store, one
// shell, one port registry, and one netstack per session, per the
// "session struct, never process-global" rule the rest of this module
// follows, then either drops into an interactive REPL or runs a single
// script.
package main

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/peterh/liner"

	"github.com/lifo-sh/vush/internal/config"
	"github.com/lifo-sh/vush/internal/mlog"
	"github.com/lifo-sh/vush/internal/persist"
	"github.com/lifo-sh/vush/internal/sandbox"
)

// CLI is the top-level kong command tree, in the banksean-sand shape:
// global flags plus a set of subcommands.
type CLI struct {
	Config   string `default:"" placeholder:"<path>" help:"path to a YAML session config file"`
	LogLevel string `default:"" placeholder:"<debug|info|warn|error|fatal>" help:"override the configured log level"`
	LogFile  string `default:"" placeholder:"<path>" help:"override the configured log file (rotated via lumberjack)"`

	Repl    ReplCmd    `cmd:"" help:"start an interactive shell session"`
	Run     RunCmd     `cmd:"" help:"run a script file non-interactively and exit"`
	Version VersionCmd `cmd:"" help:"print version information"`
}

const version = "0.1.0"

// VersionCmd prints the build version, mirroring the sand pack's own
// VersionCmd subcommand.
type VersionCmd struct{}

func (c *VersionCmd) Run(_ *Context) error {
	fmt.Println("vush", version)
	return nil
}

// RunCmd executes a single script file and exits with its status.
type RunCmd struct {
	Script string `arg:"" help:"path to a vush script to execute"`
}

func (c *RunCmd) Run(cctx *Context) error {
	src, err := os.ReadFile(c.Script)
	if err != nil {
		return fmt.Errorf("vush: read %s: %w", c.Script, err)
	}
	sb, err := newSandbox(cctx.Config)
	if err != nil {
		return err
	}
	defer sb.Destroy()

	res, err := sb.Commands.Run(string(src))
	if err != nil {
		return err
	}
	fmt.Fprint(os.Stdout, res.Stdout)
	fmt.Fprint(os.Stderr, res.Stderr)
	if res.ExitCode != 0 {
		os.Exit(res.ExitCode)
	}
	return nil
}

// ReplCmd starts an interactive liner-backed session, in the shape of
// minimega's own Conn.Attach line-editing loop.
type ReplCmd struct{}

func (c *ReplCmd) Run(cctx *Context) error {
	sb, err := newSandbox(cctx.Config)
	if err != nil {
		return err
	}
	defer sb.Destroy()

	input := liner.NewLiner()
	defer input.Close()
	input.SetCtrlCAborts(true)
	input.SetTabCompletionStyle(liner.TabPrints)

	histPath := historyPath()
	if f, err := os.Open(histPath); err == nil {
		input.ReadHistory(f)
		f.Close()
	}

	fmt.Println("vush", version)
	for {
		line, err := input.Prompt("$ ")
		if err == liner.ErrPromptAborted {
			continue
		}
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		input.AppendHistory(line)

		if line == "exit" || line == "quit" {
			break
		}

		res, err := sb.Commands.Run(line)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		fmt.Fprint(os.Stdout, res.Stdout)
		fmt.Fprint(os.Stderr, res.Stderr)
	}

	if f, err := os.Create(histPath); err == nil {
		input.WriteHistory(f)
		f.Close()
	}
	return nil
}

func historyPath() string {
	if u, err := user.Current(); err == nil {
		return filepath.Join(u.HomeDir, ".vush_history")
	}
	return filepath.Join(os.TempDir(), ".vush_history")
}

// Context is the kong run context threaded to every subcommand.
type Context struct {
	Config config.Config
}

func newSandbox(cfg config.Config) (*sandbox.Sandbox, error) {
	opts := sandbox.Options{Env: cfg.Env}
	for _, m := range cfg.Mounts {
		opts.Mounts = append(opts.Mounts, sandbox.MountSpec{
			VirtualPath: m.VirtualPath,
			HostPath:    m.HostPath,
			ReadOnly:    m.ReadOnly,
		})
	}
	return sandbox.Create(opts)
}

// openPersistBackend constructs the persistence backend a config names,
// for subcommands (not yet any) that need durable snapshot/restore
// rather than an in-process-only sandbox.
func openPersistBackend(cfg config.Config) (persist.Backend, error) {
	switch cfg.PersistBackend {
	case config.BackendSQLite:
		return persist.OpenSQLite(cfg.PersistDSN)
	default:
		return &persist.MemoryBackend{}, nil
	}
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Description("vush is an in-process Unix-like userland: a VFS, a POSIX-ish shell, and an embeddable sandbox facade."),
	)

	cfg := config.Default()
	if cli.Config != "" {
		loaded, err := config.Load(cli.Config)
		kctx.FatalIfErrorf(err)
		cfg = loaded
	}
	if cli.LogLevel != "" {
		cfg.LogLevel = cli.LogLevel
	}
	if cli.LogFile != "" {
		cfg.LogFile = cli.LogFile
	}
	kctx.FatalIfErrorf(cfg.Validate())

	level, err := mlog.ParseLevel(cfg.LogLevel)
	kctx.FatalIfErrorf(err)
	if cfg.LogFile != "" {
		mlog.AddRotatingFileLogger("file", cfg.LogFile, 10, 5, 30, level)
	} else {
		mlog.AddWriterLogger("stderr", os.Stderr, level)
	}

	_ = context.Background() // reserved for subcommands that gain cancellation needs

	err = kctx.Run(&Context{Config: cfg})
	kctx.FatalIfErrorf(err)
}
