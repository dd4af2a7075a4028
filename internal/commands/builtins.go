package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lifo-sh/vush/internal/pathutil"
	"github.com/lifo-sh/vush/internal/process"
	"github.com/lifo-sh/vush/internal/shell/runtime"
)

func fail(ctx runtime.ExecContext, format string, args ...any) (int, error) {
	fmt.Fprintf(ctx.Stderr(), format+"\n", args...)
	return 1, nil
}

func cdBuiltin(ctx runtime.ExecContext, args []string) (int, error) {
	target := "/"
	if home, ok := ctx.Getenv("HOME"); ok && len(args) == 0 {
		target = home
	}
	if len(args) > 0 {
		target = args[0]
	}
	if !strings.HasPrefix(target, "/") {
		target = pathutil.Join(ctx.Cwd(), target)
	}
	if err := ctx.Chdir(target); err != nil {
		return fail(ctx, "cd: %s: %v", target, err)
	}
	return 0, nil
}

func pwdBuiltin(ctx runtime.ExecContext, args []string) (int, error) {
	fmt.Fprintln(ctx.Stdout(), ctx.Cwd())
	return 0, nil
}

func echoBuiltin(ctx runtime.ExecContext, args []string) (int, error) {
	noNewline := false
	if len(args) > 0 && args[0] == "-n" {
		noNewline = true
		args = args[1:]
	}
	out := strings.Join(args, " ")
	if noNewline {
		fmt.Fprint(ctx.Stdout(), out)
	} else {
		fmt.Fprintln(ctx.Stdout(), out)
	}
	return 0, nil
}

func exportBuiltin(ctx runtime.ExecContext, args []string) (int, error) {
	if len(args) == 0 {
		for k, v := range ctx.Environ() {
			fmt.Fprintf(ctx.Stdout(), "export %s=%s\n", k, v)
		}
		return 0, nil
	}
	for _, a := range args {
		name, value, hasValue := strings.Cut(a, "=")
		if hasValue {
			ctx.Setenv(name, value)
		} else if v, ok := ctx.Getenv(name); ok {
			ctx.Setenv(name, v)
		}
	}
	return 0, nil
}

func unsetBuiltin(ctx runtime.ExecContext, args []string) (int, error) {
	for _, name := range args {
		ctx.Unsetenv(name)
	}
	return 0, nil
}

func exitBuiltin(ctx runtime.ExecContext, args []string) (int, error) {
	code := 0
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fail(ctx, "exit: numeric argument required")
		}
		code = n
	}
	ctx.RequestExit(code)
	return code, &runtime.ExitSignal{Code: code}
}

func trueBuiltin(ctx runtime.ExecContext, args []string) (int, error)  { return 0, nil }
func falseBuiltin(ctx runtime.ExecContext, args []string) (int, error) { return 1, nil }

func jobsBuiltin(ctx runtime.ExecContext, args []string) (int, error) {
	for _, j := range ctx.Procs().GetBackgroundJobs() {
		fmt.Fprintf(ctx.Stdout(), "[%d] %s %s\n", j.ID, j.Status, j.CommandText)
	}
	return 0, nil
}

func fgBuiltin(ctx runtime.ExecContext, args []string) (int, error) {
	spec := ""
	if len(args) > 0 {
		spec = args[0]
	}
	job, err := ctx.Procs().ResolveJobSpec(spec)
	if err != nil {
		return fail(ctx, "fg: %v", err)
	}
	for _, pid := range job.PIDs {
		ctx.Procs().Kill(pid, process.SigCont)
	}
	fmt.Fprintln(ctx.Stdout(), job.CommandText)
	return 0, nil
}

func bgBuiltin(ctx runtime.ExecContext, args []string) (int, error) {
	spec := ""
	if len(args) > 0 {
		spec = args[0]
	}
	job, err := ctx.Procs().ResolveJobSpec(spec)
	if err != nil {
		return fail(ctx, "bg: %v", err)
	}
	for _, pid := range job.PIDs {
		ctx.Procs().Kill(pid, process.SigCont)
	}
	fmt.Fprintf(ctx.Stdout(), "[%d] %s &\n", job.ID, job.CommandText)
	return 0, nil
}

func historyBuiltin(ctx runtime.ExecContext, args []string) (int, error) {
	for i, line := range ctx.History() {
		fmt.Fprintf(ctx.Stdout(), "%5d  %s\n", i+1, line)
	}
	return 0, nil
}

func sourceBuiltin(ctx runtime.ExecContext, args []string) (int, error) {
	if len(args) == 0 {
		return fail(ctx, "source: filename argument required")
	}
	data, err := ctx.VFS().ReadFileString(args[0])
	if err != nil {
		return fail(ctx, "source: %s: %v", args[0], err)
	}
	code, err := ctx.Source(data)
	return code, err
}

func aliasBuiltin(ctx runtime.ExecContext, args []string) (int, error) {
	if len(args) == 0 {
		for name, val := range ctx.Aliases() {
			fmt.Fprintf(ctx.Stdout(), "alias %s='%s'\n", name, val)
		}
		return 0, nil
	}
	for _, a := range args {
		name, value, hasValue := strings.Cut(a, "=")
		if !hasValue {
			if v, ok := ctx.GetAlias(name); ok {
				fmt.Fprintf(ctx.Stdout(), "alias %s='%s'\n", name, v)
			} else {
				return fail(ctx, "alias: %s: not found", name)
			}
			continue
		}
		ctx.SetAlias(name, value)
	}
	return 0, nil
}

func unaliasBuiltin(ctx runtime.ExecContext, args []string) (int, error) {
	for _, name := range args {
		ctx.UnsetAlias(name)
	}
	return 0, nil
}

func breakBuiltin(ctx runtime.ExecContext, args []string) (int, error) {
	levels := 1
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			levels = n
		}
	}
	return 0, &runtime.BreakSignal{Levels: levels}
}

func continueBuiltin(ctx runtime.ExecContext, args []string) (int, error) {
	levels := 1
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			levels = n
		}
	}
	return 0, &runtime.ContinueSignal{Levels: levels}
}

func returnBuiltin(ctx runtime.ExecContext, args []string) (int, error) {
	code := 0
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			code = n
		}
	}
	return code, &runtime.ReturnSignal{Code: code}
}

func killBuiltin(ctx runtime.ExecContext, args []string) (int, error) {
	sig := process.SigTerm
	for len(args) > 0 && strings.HasPrefix(args[0], "-") {
		switch args[0] {
		case "-STOP", "-19":
			sig = process.SigStop
		case "-CONT", "-18":
			sig = process.SigCont
		case "-KILL", "-9":
			sig = process.SigKill
		case "-TERM", "-15":
			sig = process.SigTerm
		}
		args = args[1:]
	}
	if len(args) == 0 {
		return fail(ctx, "kill: usage: kill [-signal] pid")
	}
	ok := true
	for _, a := range args {
		pid, err := strconv.Atoi(strings.TrimPrefix(a, "%"))
		if err != nil {
			ok = false
			continue
		}
		if !ctx.Procs().Kill(pid, sig) {
			ok = false
		}
	}
	if !ok {
		return fail(ctx, "kill: no such process")
	}
	return 0, nil
}

func typeBuiltin(r *Registry, ctx runtime.ExecContext, args []string) (int, error) {
	status := 0
	for _, name := range args {
		if _, ok := r.Lookup(name); ok {
			fmt.Fprintf(ctx.Stdout(), "%s is a shell builtin\n", name)
		} else {
			fmt.Fprintf(ctx.Stdout(), "%s: not found\n", name)
			status = 1
		}
	}
	return status, nil
}
