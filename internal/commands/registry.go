// Package commands implements the shell's built-in command set from spec
// section 6.2: the registry is a plain name-to-resolver map, grounded on
// minicli's handler registration (minicli.Register) but keyed directly by
// command name instead of by compiled pattern, since built-ins here take
// a fixed flag surface rather than minicli's pattern-matched trees.
package commands

import "github.com/lifo-sh/vush/internal/shell/runtime"

// Builtin is one built-in command's implementation. A non-nil error is
// always a control-flow sentinel (runtime.BreakSignal, ContinueSignal,
// ReturnSignal, ExitSignal); ordinary failures are reported by writing to
// ctx.Stderr() and returning a non-zero exit code with a nil error.
type Builtin func(ctx runtime.ExecContext, args []string) (int, error)

// Registry is a session's built-in command table. Built-ins are
// registered lazily via Default() rather than at package init, so a
// session can start from a clean table and extend or shadow it.
type Registry struct {
	byName map[string]Builtin
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Builtin)}
}

// Default returns a registry pre-populated with the minimum built-in set
// from spec section 6.2.
func Default() *Registry {
	r := NewRegistry()
	r.Register("cd", cdBuiltin)
	r.Register("pwd", pwdBuiltin)
	r.Register("echo", echoBuiltin)
	r.Register("export", exportBuiltin)
	r.Register("unset", unsetBuiltin)
	r.Register("exit", exitBuiltin)
	r.Register("true", trueBuiltin)
	r.Register("false", falseBuiltin)
	r.Register("jobs", jobsBuiltin)
	r.Register("fg", fgBuiltin)
	r.Register("bg", bgBuiltin)
	r.Register("history", historyBuiltin)
	r.Register("source", sourceBuiltin)
	r.Register(".", sourceBuiltin)
	r.Register("alias", aliasBuiltin)
	r.Register("unalias", unaliasBuiltin)
	r.Register("test", testBuiltin)
	r.Register("[", bracketTestBuiltin)
	r.Register("break", breakBuiltin)
	r.Register("continue", continueBuiltin)
	r.Register("return", returnBuiltin)
	r.Register("kill", killBuiltin)
	r.Register("netns", netnsBuiltin)
	r.Register("link", linkBuiltin)
	r.Register("listen", listenBuiltin)
	r.Register("unlisten", unlistenBuiltin)
	r.Register("fetch", fetchBuiltin)
	r.Register("type", func(ctx runtime.ExecContext, args []string) (int, error) {
		return typeBuiltin(r, ctx, args)
	})
	return r
}

// Register installs or replaces the builtin for name.
func (r *Registry) Register(name string, b Builtin) {
	r.byName[name] = b
}

// Lookup returns the builtin registered for name, if any.
func (r *Registry) Lookup(name string) (Builtin, bool) {
	b, ok := r.byName[name]
	return b, ok
}

// Names returns every registered builtin name, for "type"/completion use.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	return out
}
