package interp

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/lifo-sh/vush/internal/commands"
	"github.com/lifo-sh/vush/internal/glob"
	"github.com/lifo-sh/vush/internal/process"
	"github.com/lifo-sh/vush/internal/shell/ast"
	"github.com/lifo-sh/vush/internal/shell/expand"
	"github.com/lifo-sh/vush/internal/shell/runtime"
)

const maxAliasExpansions = 64

// runList executes one List: a chain of pipelines joined by "&&"/"||",
// optionally backgrounded.
func (sh *Shell) runList(list ast.List) (int, error) {
	if list.Background {
		sh.runBackground(list)
		return 0, nil
	}

	status := 0
	for i, entry := range list.Entries {
		if i > 0 {
			prevConn := list.Entries[i-1].Connector
			if prevConn == ast.ConnAnd && status != 0 {
				break
			}
			if prevConn == ast.ConnOr && status == 0 {
				break
			}
		}
		s, err := sh.runPipeline(entry.Pipeline)
		status = s
		sh.lastStatus = status
		if err != nil {
			return status, err
		}
	}
	return status, nil
}

func (sh *Shell) runBackground(list ast.List) {
	text := renderList(list)
	pid := sh.procs.Spawn(process.SpawnOptions{
		Command:      "job",
		Cwd:          sh.cwd,
		IsForeground: false,
	})
	sh.procs.Background([]int{pid}, text)

	go func() {
		for i, entry := range list.Entries {
			if i > 0 {
				prevConn := list.Entries[i-1].Connector
				if prevConn == ast.ConnAnd && sh.lastStatus != 0 {
					break
				}
				if prevConn == ast.ConnOr && sh.lastStatus == 0 {
					break
				}
			}
			status, _ := sh.runPipeline(entry.Pipeline)
			sh.lastStatus = status
		}
		sh.procs.Settle(pid, sh.lastStatus)
	}()
}

func renderList(list ast.List) string {
	var parts []string
	for _, e := range list.Entries {
		var cmdParts []string
		for _, c := range e.Pipeline.Commands {
			for _, w := range c.Words {
				cmdParts = append(cmdParts, w.Raw())
			}
		}
		parts = append(parts, strings.Join(cmdParts, " "))
	}
	return strings.Join(parts, " ")
}

// runPipeline runs a (possibly single-command, possibly negated) pipeline,
// wiring each stage's stdout to the next stage's stdin via io.Pipe and
// running every stage concurrently so none can deadlock on a full pipe
// buffer.
func (sh *Shell) runPipeline(pl ast.Pipeline) (int, error) {
	n := len(pl.Commands)
	if n == 1 {
		status, err := sh.runCommand(pl.Commands[0], sh.stdout, sh.stderr, sh.stdin)
		if pl.Negated {
			status = negate(status)
		}
		return status, err
	}

	stdins := make([]io.Reader, n)
	stdouts := make([]io.Writer, n)
	stdins[0] = sh.stdin
	stdouts[n-1] = sh.stdout

	var closers []io.Closer
	for i := 0; i < n-1; i++ {
		pr, pw := io.Pipe()
		stdouts[i] = pw
		stdins[i+1] = pr
		closers = append(closers, pw)
	}

	statuses := make([]int, n)
	errs := make([]error, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			status, err := sh.runCommand(pl.Commands[i], stdouts[i], sh.stderr, stdins[i])
			statuses[i] = status
			errs[i] = err
			if wc, ok := stdouts[i].(*io.PipeWriter); ok {
				wc.Close()
			}
			return nil
		})
	}
	g.Wait()

	for _, c := range closers {
		c.Close()
	}

	for _, err := range errs {
		if err != nil {
			return statuses[n-1], err
		}
	}

	final := statuses[n-1]
	if pl.Negated {
		final = negate(final)
	}
	return final, nil
}

func negate(status int) int {
	if status == 0 {
		return 1
	}
	return 0
}

// runCommand dispatches one ast.Command, applying its own redirections
// over the streams its pipeline stage supplied.
func (sh *Shell) runCommand(cmd ast.Command, stdout, stderr io.Writer, stdin io.Reader) (int, error) {
	switch cmd.Kind {
	case ast.KindSimple:
		return sh.runSimple(cmd, stdout, stderr, stdin)
	case ast.KindIf:
		return sh.runIf(cmd)
	case ast.KindFor:
		return sh.runFor(cmd)
	case ast.KindWhile:
		return sh.runLoop(cmd, false)
	case ast.KindUntil:
		return sh.runLoop(cmd, true)
	case ast.KindCase:
		return sh.runCase(cmd)
	case ast.KindGroup:
		return sh.runCompoundList(cmd.GroupBody)
	case ast.KindFunctionDef:
		sh.functions[cmd.FuncName] = cmd.FuncBody
		return 0, nil
	}
	return 1, fmt.Errorf("interp: unknown command kind %v", cmd.Kind)
}

func (sh *Shell) runIf(cmd ast.Command) (int, error) {
	for i, cond := range cmd.IfConds {
		status, err := sh.runCompoundList(cond)
		if err != nil {
			return status, err
		}
		if status == 0 {
			return sh.runCompoundList(cmd.IfBodies[i])
		}
	}
	if cmd.ElseBody != nil {
		return sh.runCompoundList(*cmd.ElseBody)
	}
	return 0, nil
}

func (sh *Shell) runFor(cmd ast.Command) (int, error) {
	ctx := sh.expandContext(sh.stdout, sh.stderr, sh.stdin)
	var values []string
	if cmd.ForWords != nil {
		vs, err := expand.Words(cmd.ForWords, ctx)
		if err != nil {
			return 1, err
		}
		values = vs
	} else {
		values = sh.positional
	}

	status := 0
	for _, v := range values {
		sh.env[cmd.ForName] = v
		s, err := sh.runCompoundList(cmd.ForBody)
		status = s
		if brk, ok := err.(*runtime.BreakSignal); ok {
			if brk.Levels > 1 {
				return status, &runtime.BreakSignal{Levels: brk.Levels - 1}
			}
			return status, nil
		}
		if cont, ok := err.(*runtime.ContinueSignal); ok {
			if cont.Levels > 1 {
				return status, &runtime.ContinueSignal{Levels: cont.Levels - 1}
			}
			continue
		}
		if err != nil {
			return status, err
		}
	}
	return status, nil
}

func (sh *Shell) runLoop(cmd ast.Command, until bool) (int, error) {
	status := 0
	for {
		condStatus, err := sh.runCompoundList(cmd.LoopCond)
		if err != nil {
			return condStatus, err
		}
		keepGoing := condStatus == 0
		if until {
			keepGoing = condStatus != 0
		}
		if !keepGoing {
			break
		}

		s, err := sh.runCompoundList(cmd.LoopBody)
		status = s
		if brk, ok := err.(*runtime.BreakSignal); ok {
			if brk.Levels > 1 {
				return status, &runtime.BreakSignal{Levels: brk.Levels - 1}
			}
			return status, nil
		}
		if cont, ok := err.(*runtime.ContinueSignal); ok {
			if cont.Levels > 1 {
				return status, &runtime.ContinueSignal{Levels: cont.Levels - 1}
			}
			continue
		}
		if err != nil {
			return status, err
		}
	}
	return status, nil
}

func (sh *Shell) runCase(cmd ast.Command) (int, error) {
	ctx := sh.expandContext(sh.stdout, sh.stderr, sh.stdin)
	subject, err := expand.Single(cmd.CaseWord, ctx)
	if err != nil {
		return 1, err
	}

	for _, clause := range cmd.CaseClauses {
		for _, pat := range clause.Patterns {
			patText, err := expand.Single(pat, ctx)
			if err != nil {
				return 1, err
			}
			if glob.MatchCase(patText, subject) {
				return sh.runCompoundList(clause.Body)
			}
		}
	}
	return 0, nil
}

// runSimple expands, resolves, and executes one simple command: leading
// assignments, alias expansion, then dispatch to a function, builtin, or
// external command in that priority order, per spec section 4.6.
func (sh *Shell) runSimple(cmd ast.Command, stdout, stderr io.Writer, stdin io.Reader) (int, error) {
	cmd = sh.expandAlias(cmd, 0)

	ctx := sh.expandContext(stdout, stderr, stdin)

	if len(cmd.Words) == 0 {
		for _, a := range cmd.Assignments {
			val, err := expand.Single(a.Value, ctx)
			if err != nil {
				return 1, err
			}
			sh.env[a.Name] = val
		}
		return 0, nil
	}

	argv, err := expand.Words(cmd.Words, ctx)
	if err != nil {
		return 1, err
	}
	if len(argv) == 0 {
		return 0, nil
	}
	name := argv[0]
	args := argv[1:]

	stdout, stderr, stdin, cleanup, err := sh.applyRedirections(cmd.Redirections, stdout, stderr, stdin, ctx)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1, nil
	}
	defer cleanup()

	overlay := sh.applyTempEnv(cmd.Assignments, ctx)
	defer overlay()

	if body, ok := sh.functions[name]; ok {
		return sh.callFunction(*body, args, stdout, stderr, stdin)
	}

	execCtx := sh.ctxWith(stdout, stderr, stdin)

	if b, ok := sh.builtins.Lookup(name); ok {
		return b(execCtx, args)
	}
	if b, ok := sh.externals.Lookup(name); ok {
		return sh.runExternal(name, args, b, execCtx)
	}

	fmt.Fprintf(stderr, "%s: command not found\n", name)
	return 127, nil
}

func (sh *Shell) runExternal(name string, args []string, b commands.Builtin, ctx runtime.ExecContext) (int, error) {
	pid := sh.procs.Spawn(process.SpawnOptions{
		Command:      name,
		Args:         args,
		Cwd:          sh.cwd,
		IsForeground: true,
	})
	code, err := b(ctx, args)
	sh.procs.Settle(pid, code)
	sh.procs.Reap(pid)
	return code, err
}

func (sh *Shell) callFunction(body ast.Command, args []string, stdout, stderr io.Writer, stdin io.Reader) (int, error) {
	savedPositional := sh.positional
	sh.positional = args
	defer func() { sh.positional = savedPositional }()

	savedOut, savedErr, savedIn := sh.stdout, sh.stderr, sh.stdin
	sh.stdout, sh.stderr, sh.stdin = stdout, stderr, stdin
	defer func() { sh.stdout, sh.stderr, sh.stdin = savedOut, savedErr, savedIn }()

	status, err := sh.runCompoundList(body.GroupBody)
	if ret, ok := err.(*runtime.ReturnSignal); ok {
		return ret.Code, nil
	}
	return status, err
}

// applyTempEnv applies NAME=VALUE assignments that precede an external or
// builtin invocation, scoped only to that one command, per spec section
// 4.6.
func (sh *Shell) applyTempEnv(assigns []ast.Assignment, ctx *expand.Context) func() {
	if len(assigns) == 0 {
		return func() {}
	}
	type saved struct {
		name    string
		value   string
		existed bool
	}
	var restores []saved
	for _, a := range assigns {
		old, existed := sh.env[a.Name]
		restores = append(restores, saved{a.Name, old, existed})
		val, err := expand.Single(a.Value, ctx)
		if err == nil {
			sh.env[a.Name] = val
		}
	}
	return func() {
		for _, r := range restores {
			if r.existed {
				sh.env[r.name] = r.value
			} else {
				delete(sh.env, r.name)
			}
		}
	}
}

// applyRedirections builds effective stdout/stderr/stdin for one command
// from its redirection list, backed by the VFS. The returned cleanup must
// run after the command completes to flush buffered output redirections.
func (sh *Shell) applyRedirections(redirs []ast.Redirect, stdout, stderr io.Writer, stdin io.Reader, ctx *expand.Context) (io.Writer, io.Writer, io.Reader, func(), error) {
	var flushers []func() error

	for _, r := range redirs {
		target, err := expand.Single(r.Target, ctx)
		if err != nil {
			return stdout, stderr, stdin, func() {}, err
		}

		switch r.Op {
		case ast.RedirOut, ast.RedirAppend:
			buf := &bytes.Buffer{}
			stdout = buf
			append_ := r.Op == ast.RedirAppend
			flushers = append(flushers, func() error { return sh.flushRedirect(target, buf, append_) })
		case ast.RedirErr, ast.RedirErrAppend:
			buf := &bytes.Buffer{}
			stderr = buf
			append_ := r.Op == ast.RedirErrAppend
			flushers = append(flushers, func() error { return sh.flushRedirect(target, buf, append_) })
		case ast.RedirAll:
			buf := &bytes.Buffer{}
			stdout, stderr = buf, buf
			flushers = append(flushers, func() error { return sh.flushRedirect(target, buf, false) })
		case ast.RedirIn:
			data, err := sh.fs.ReadFile(target)
			if err != nil {
				return stdout, stderr, stdin, func() {}, err
			}
			stdin = bytes.NewReader(data)
		}
	}

	cleanup := func() {
		for _, f := range flushers {
			f()
		}
	}
	return stdout, stderr, stdin, cleanup, nil
}

func (sh *Shell) flushRedirect(target string, buf *bytes.Buffer, appendMode bool) error {
	if appendMode {
		return sh.fs.AppendFile(target, buf.Bytes())
	}
	return sh.fs.WriteFile(target, buf.Bytes())
}
