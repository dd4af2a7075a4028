// Package expand turns ast.Word values into argv-ready strings, per spec
// section 4.5: tilde expansion, parameter expansion ($NAME, ${NAME},
// ${NAME:-default}, ${NAME:+alt}, $?, $#, $@, $*, $0..$9, $$), command
// substitution ($(...)), arithmetic substitution ($((...))), quote
// removal, field splitting, and glob expansion — in that order, matching
// the pipeline minicli's variable lexer inspired but generalized well
// beyond pattern-variable substitution alone.
package expand

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lifo-sh/vush/internal/glob"
	"github.com/lifo-sh/vush/internal/shell/ast"
	"github.com/lifo-sh/vush/internal/shell/token"
)

// Context supplies everything expansion needs from the running shell
// without the package importing the interpreter (which imports expand),
// which would create a cycle.
type Context struct {
	// Get looks up a shell or environment variable by name.
	Get func(name string) (string, bool)
	// Positional returns $1, $2, ... (without $0).
	Positional []string
	// Name0 is $0, the shell or script name.
	Name0 string
	// ExitStatus is $?.
	ExitStatus int
	// Pid is $$.
	Pid int
	// HomeDir resolves "~" (user=="") or "~user" to a home directory.
	HomeDir func(user string) (string, bool)
	// RunSub executes a command substitution's inner script and returns
	// its captured, trailing-newline-trimmed stdout.
	RunSub func(script string) (string, error)
	// ListDir lists the entries of dir for glob expansion, relative to
	// Cwd when dir isn't absolute.
	ListDir func(dir string) ([]string, error)
	// Cwd is the working directory glob expansion resolves against.
	Cwd string
}

func (c *Context) lookup(name string) (string, bool) {
	switch name {
	case "?":
		return strconv.Itoa(c.ExitStatus), true
	case "$":
		return strconv.Itoa(c.Pid), true
	case "#":
		return strconv.Itoa(len(c.Positional)), true
	case "@", "*":
		return strings.Join(c.Positional, " "), true
	case "0":
		return c.Name0, true
	}
	if len(name) > 0 && name[0] >= '0' && name[0] <= '9' {
		n, err := strconv.Atoi(name)
		if err == nil && n >= 1 && n <= len(c.Positional) {
			return c.Positional[n-1], true
		}
		return "", false
	}
	if c.Get != nil {
		return c.Get(name)
	}
	return "", false
}

// Words expands a slice of words in order, concatenating each word's
// resulting fields into one flat argv, applying field splitting and glob
// expansion to unquoted words.
func Words(words []ast.Word, ctx *Context) ([]string, error) {
	var out []string
	for _, w := range words {
		fields, err := Word(w, ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, fields...)
	}
	return out, nil
}

// Word expands one word into one or more argv fields: parameter/command/
// arithmetic expansion, then (for fully unquoted words) field splitting
// and glob expansion. A word containing any quoted part is never split
// or globbed, matching ordinary shell quoting semantics.
func Word(w ast.Word, ctx *Context) ([]string, error) {
	raw, anyQuoted, err := expandParts(w.Parts, ctx)
	if err != nil {
		return nil, err
	}

	if anyQuoted {
		return []string{raw}, nil
	}

	fields := splitFields(raw)
	var out []string
	for _, f := range fields {
		matches, err := maybeGlob(f, ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, matches...)
	}
	return out, nil
}

// Single expands w to exactly one field, with no splitting or globbing —
// used for assignment values, case subjects/patterns, and anywhere else
// POSIX shells suppress both.
func Single(w ast.Word, ctx *Context) (string, error) {
	raw, _, err := expandParts(w.Parts, ctx)
	return raw, err
}

// expandParts concatenates the expansion of each part in order, along
// with whether any part carried quoting (which disables splitting and
// globbing for the whole word).
func expandParts(parts []token.WordPart, ctx *Context) (string, bool, error) {
	var b strings.Builder
	anyQuoted := false
	for i, part := range parts {
		if part.Quote != token.NoQuote {
			anyQuoted = true
		}
		val, err := expandPart(part, i == 0, ctx)
		if err != nil {
			return "", false, err
		}
		b.WriteString(val)
	}
	return b.String(), anyQuoted, nil
}

func expandPart(part token.WordPart, isFirst bool, ctx *Context) (string, error) {
	text := part.Text

	if part.Quote == token.Single {
		return text, nil
	}

	if strings.HasPrefix(text, "$((") && strings.HasSuffix(text, "))") && len(text) >= 5 {
		expr := text[3 : len(text)-2]
		n, err := Arith(expr, ctx)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(n, 10), nil
	}
	if strings.HasPrefix(text, "$(") && strings.HasSuffix(text, ")") && len(text) >= 3 {
		inner := text[2 : len(text)-1]
		if ctx.RunSub == nil {
			return "", fmt.Errorf("expand: command substitution unsupported in this context")
		}
		out, err := ctx.RunSub(inner)
		if err != nil {
			return "", err
		}
		return strings.TrimRight(out, "\n"), nil
	}

	out, err := expandVars(text, ctx)
	if err != nil {
		return "", err
	}

	if isFirst && part.Quote == token.NoQuote {
		out = expandTilde(out, ctx)
	}
	return out, nil
}

func expandTilde(s string, ctx *Context) string {
	if !strings.HasPrefix(s, "~") || ctx.HomeDir == nil {
		return s
	}
	rest := s[1:]
	user := rest
	tail := ""
	if idx := strings.IndexRune(rest, '/'); idx >= 0 {
		user = rest[:idx]
		tail = rest[idx:]
	}
	home, ok := ctx.HomeDir(user)
	if !ok {
		return s
	}
	return home + tail
}

// expandVars scans text for $NAME, ${NAME}, and ${NAME:-word} /
// ${NAME:+word} forms, expanding each against ctx.
func expandVars(text string, ctx *Context) (string, error) {
	var b strings.Builder
	r := []rune(text)
	i := 0
	for i < len(r) {
		if r[i] != '$' || i+1 >= len(r) {
			b.WriteRune(r[i])
			i++
			continue
		}

		if r[i+1] == '{' {
			end := matchBrace(r, i+1)
			if end < 0 {
				b.WriteRune(r[i])
				i++
				continue
			}
			inner := string(r[i+2 : end])
			val, err := expandBraceParam(inner, ctx)
			if err != nil {
				return "", err
			}
			b.WriteString(val)
			i = end + 1
			continue
		}

		name, width := readSpecialOrName(r, i+1)
		if width == 0 {
			b.WriteRune(r[i])
			i++
			continue
		}
		val, _ := ctx.lookup(name)
		b.WriteString(val)
		i += 1 + width
	}
	return b.String(), nil
}

func matchBrace(r []rune, openIdx int) int {
	depth := 0
	for i := openIdx; i < len(r); i++ {
		switch r[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// readSpecialOrName reads a "$"-prefixed name starting at idx: either a
// single special character ($?, $$, $#, $@, $*, $0-$9) or a run of
// NAME characters.
func readSpecialOrName(r []rune, idx int) (string, int) {
	if idx >= len(r) {
		return "", 0
	}
	switch r[idx] {
	case '?', '$', '#', '@', '*':
		return string(r[idx]), 1
	}
	if r[idx] >= '0' && r[idx] <= '9' {
		j := idx
		for j < len(r) && r[j] >= '0' && r[j] <= '9' {
			j++
		}
		return string(r[idx:j]), j - idx
	}
	if isNameStart(r[idx]) {
		j := idx
		for j < len(r) && isNameRune(r[j]) {
			j++
		}
		return string(r[idx:j]), j - idx
	}
	return "", 0
}

func isNameStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isNameRune(r rune) bool {
	return isNameStart(r) || (r >= '0' && r <= '9')
}

// expandBraceParam handles the inside of "${...}": a bare name, or the
// ":-" / ":+" default-value operators from spec section 4.5.
func expandBraceParam(inner string, ctx *Context) (string, error) {
	if idx := strings.Index(inner, ":-"); idx >= 0 {
		name, wordSrc := inner[:idx], inner[idx+2:]
		val, ok := ctx.lookup(name)
		if ok && val != "" {
			return val, nil
		}
		return expandVars(wordSrc, ctx)
	}
	if idx := strings.Index(inner, ":+"); idx >= 0 {
		name, wordSrc := inner[:idx], inner[idx+2:]
		val, ok := ctx.lookup(name)
		if ok && val != "" {
			return expandVars(wordSrc, ctx)
		}
		return "", nil
	}
	val, _ := ctx.lookup(inner)
	return val, nil
}

// splitFields splits s on runs of space/tab/newline, the shell's default
// IFS, discarding empty fields created by leading/trailing/repeated
// whitespace.
func splitFields(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n'
	})
}

// maybeGlob expands field as a filesystem glob if it contains a
// metacharacter; otherwise it returns field unchanged. A pattern that
// matches nothing expands to itself, per spec section 4.5 (no nullglob).
func maybeGlob(field string, ctx *Context) ([]string, error) {
	if !glob.HasMeta(field) || ctx.ListDir == nil {
		return []string{field}, nil
	}

	dir, pattern := splitGlobDir(field)
	names, err := ctx.ListDir(resolveDir(dir, ctx.Cwd))
	if err != nil {
		return []string{field}, nil
	}

	var matches []string
	wantHidden := glob.PatternWantsHidden(pattern)
	for _, name := range names {
		if glob.IsHidden(name) && !wantHidden {
			continue
		}
		if glob.Match(pattern, name) {
			if dir == "" {
				matches = append(matches, name)
			} else {
				matches = append(matches, dir+"/"+name)
			}
		}
	}
	if len(matches) == 0 {
		return []string{field}, nil
	}
	return glob.Sort(matches), nil
}

func splitGlobDir(field string) (dir, pattern string) {
	idx := strings.LastIndexByte(field, '/')
	if idx < 0 {
		return "", field
	}
	return field[:idx], field[idx+1:]
}

func resolveDir(dir, cwd string) string {
	if dir == "" {
		return cwd
	}
	if strings.HasPrefix(dir, "/") {
		return dir
	}
	return cwd + "/" + dir
}
