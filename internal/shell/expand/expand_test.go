package expand

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/lifo-sh/vush/internal/shell/ast"
	"github.com/lifo-sh/vush/internal/shell/lexer"
	"github.com/lifo-sh/vush/internal/shell/token"
)

func wordFromSrc(t *testing.T, src string) token.Token {
	t.Helper()
	toks, err := lexer.Lex(src)
	if err != nil {
		t.Fatal(err)
	}
	for _, tok := range toks {
		if tok.Type == token.Word {
			return tok
		}
	}
	t.Fatalf("no word token in %q", src)
	return token.Token{}
}

func wordOf(t *testing.T, src string) []token.WordPart {
	return wordFromSrc(t, src).Parts
}

func newCtx(vars map[string]string) *Context {
	return &Context{
		Get: func(name string) (string, bool) {
			v, ok := vars[name]
			return v, ok
		},
		HomeDir: func(user string) (string, bool) {
			if user == "" {
				return "/home/me", true
			}
			return "", false
		},
		Cwd: "/",
	}
}

func expandOne(t *testing.T, ctx *Context, src string) string {
	t.Helper()
	parts := wordOf(t, src)
	out, _, err := expandParts(parts, ctx)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestExpandSimpleVariable(t *testing.T) {
	ctx := newCtx(map[string]string{"NAME": "world"})
	got := expandOne(t, ctx, `"hello $NAME"`)
	if got != "hello world" {
		t.Fatalf("got %q", got)
	}
}

func TestExpandBracedVariable(t *testing.T) {
	ctx := newCtx(map[string]string{"NAME": "world"})
	got := expandOne(t, ctx, `${NAME}s`)
	if got != "worlds" {
		t.Fatalf("got %q", got)
	}
}

func TestExpandDefaultValue(t *testing.T) {
	ctx := newCtx(map[string]string{})
	got := expandOne(t, ctx, `${MISSING:-fallback}`)
	if got != "fallback" {
		t.Fatalf("got %q", got)
	}

	ctx2 := newCtx(map[string]string{"SET": "yes"})
	got2 := expandOne(t, ctx2, `${SET:-fallback}`)
	if got2 != "yes" {
		t.Fatalf("got %q", got2)
	}
}

func TestExpandAltValue(t *testing.T) {
	ctx := newCtx(map[string]string{"SET": "yes"})
	got := expandOne(t, ctx, `${SET:+alt}`)
	if got != "alt" {
		t.Fatalf("got %q", got)
	}

	ctx2 := newCtx(map[string]string{})
	got2 := expandOne(t, ctx2, `${MISSING:+alt}`)
	if got2 != "" {
		t.Fatalf("got %q", got2)
	}
}

func TestExpandExitStatus(t *testing.T) {
	ctx := newCtx(nil)
	ctx.ExitStatus = 42
	got := expandOne(t, ctx, `$?`)
	if got != "42" {
		t.Fatalf("got %q", got)
	}
}

func TestExpandPositionalAndCount(t *testing.T) {
	ctx := newCtx(nil)
	ctx.Positional = []string{"a", "b", "c"}
	if got := expandOne(t, ctx, `$1-$2-$#`); got != "a-b-3" {
		t.Fatalf("got %q", got)
	}
}

func TestExpandTilde(t *testing.T) {
	ctx := newCtx(nil)
	got := expandOne(t, ctx, `~/docs`)
	if got != "/home/me/docs" {
		t.Fatalf("got %q", got)
	}
}

func TestExpandTildeNotExpandedMidWord(t *testing.T) {
	ctx := newCtx(nil)
	got := expandOne(t, ctx, `a~b`)
	if got != "a~b" {
		t.Fatalf("expected literal tilde mid-word, got %q", got)
	}
}

func TestExpandCommandSubstitution(t *testing.T) {
	ctx := newCtx(nil)
	ctx.RunSub = func(script string) (string, error) {
		return fmt.Sprintf("ran(%s)\n", script), nil
	}
	got := expandOne(t, ctx, `$(echo hi)`)
	if got != "ran(echo hi)" {
		t.Fatalf("got %q", got)
	}
}

func TestExpandArithmeticSubstitution(t *testing.T) {
	ctx := newCtx(map[string]string{"X": "4"})
	got := expandOne(t, ctx, `$((1 + X * 2))`)
	if got != "9" {
		t.Fatalf("got %q", got)
	}
}

func TestWordSplittingUnquoted(t *testing.T) {
	ctx := newCtx(map[string]string{"LIST": "a  b   c"})
	w := ast.Word{Parts: wordOf(t, `$LIST`)}
	fields, err := Word(w, ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(fields, want) {
		t.Fatalf("got %v want %v", fields, want)
	}
}

func TestWordSplittingSuppressedByQuoting(t *testing.T) {
	ctx := newCtx(map[string]string{"LIST": "a  b   c"})
	w := ast.Word{Parts: wordOf(t, `"$LIST"`)}
	fields, err := Word(w, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(fields) != 1 || fields[0] != "a  b   c" {
		t.Fatalf("expected one unsplit field, got %v", fields)
	}
}

func TestGlobExpansion(t *testing.T) {
	ctx := newCtx(nil)
	ctx.ListDir = func(dir string) ([]string, error) {
		return []string{"foo.txt", "bar.txt", ".hidden"}, nil
	}
	w := ast.Word{Parts: wordOf(t, `*.txt`)}
	fields, err := Word(w, ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"bar.txt", "foo.txt"}
	if !reflect.DeepEqual(fields, want) {
		t.Fatalf("got %v want %v", fields, want)
	}
}

func TestGlobNoMatchReturnsLiteral(t *testing.T) {
	ctx := newCtx(nil)
	ctx.ListDir = func(dir string) ([]string, error) { return nil, nil }
	w := ast.Word{Parts: wordOf(t, `*.zzz`)}
	fields, err := Word(w, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(fields) != 1 || fields[0] != "*.zzz" {
		t.Fatalf("expected literal pattern on no match, got %v", fields)
	}
}

func TestSingleValueSuppressesSplitAndGlob(t *testing.T) {
	ctx := newCtx(map[string]string{"LIST": "a b c"})
	ctx.ListDir = func(dir string) ([]string, error) { return []string{"a", "b"}, nil }
	w := ast.Word{Parts: wordOf(t, `$LIST`)}
	got, err := Single(w, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got != "a b c" {
		t.Fatalf("got %q", got)
	}
}
