package lexer

import (
	"testing"

	"github.com/lifo-sh/vush/internal/shell/token"
)

func typesOf(toks []token.Token) []token.Type {
	var out []token.Type
	for _, t := range toks {
		out = append(out, t.Type)
	}
	return out
}

func TestLexSimplePipeline(t *testing.T) {
	toks, err := Lex(`echo "hello world" | tr a-z A-Z > /tmp/out.txt`)
	if err != nil {
		t.Fatal(err)
	}
	want := []token.Type{token.Word, token.Word, token.Pipe, token.Word, token.Word, token.Word, token.RedirectOut, token.Word, token.EOF}
	got := typesOf(toks)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %v, want %v (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestLexOperatorsGreedy(t *testing.T) {
	toks, _ := Lex("a && b || c & d")
	got := typesOf(toks)
	want := []token.Type{token.Word, token.And, token.Word, token.Or, token.Word, token.Amp, token.Word, token.EOF}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %v want %v", i, got[i], want[i])
		}
	}
}

func TestLexQuoting(t *testing.T) {
	toks, err := Lex(`'literal $x' "expand $x"`)
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Type != token.Word || toks[0].Parts[0].Quote != token.Single {
		t.Fatalf("expected single-quoted word part")
	}
	if toks[0].Parts[0].Text != "literal $x" {
		t.Fatalf("got %q", toks[0].Parts[0].Text)
	}
	if toks[1].Parts[0].Quote != token.Double {
		t.Fatalf("expected double-quoted word part")
	}
}

func TestLexComment(t *testing.T) {
	toks, err := Lex("echo hi # this is a comment\necho bye")
	if err != nil {
		t.Fatal(err)
	}
	got := typesOf(toks)
	want := []token.Type{token.Word, token.Word, token.Newline, token.Word, token.Word, token.EOF}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestLexCommandSubstitutionNested(t *testing.T) {
	toks, err := Lex(`echo $(echo $(echo inner))`)
	if err != nil {
		t.Fatal(err)
	}
	if len(toks) != 3 { // word "echo", word "$(...)", EOF
		t.Fatalf("got %d tokens: %v", len(toks), toks)
	}
	if toks[1].Parts[0].Text != `$(echo $(echo inner))` {
		t.Fatalf("got %q", toks[1].Parts[0].Text)
	}
}

func TestLexEscape(t *testing.T) {
	toks, err := Lex(`echo hello\ world`)
	if err != nil {
		t.Fatal(err)
	}
	if toks[1].Text() != "hello world" {
		t.Fatalf("got %q", toks[1].Text())
	}
}

func TestLexRedirections(t *testing.T) {
	toks, err := Lex("cmd > out >> app < in 2> err 2>> errapp &> both")
	if err != nil {
		t.Fatal(err)
	}
	got := typesOf(toks)
	want := []token.Type{
		token.Word,
		token.RedirectOut, token.Word,
		token.RedirectAppend, token.Word,
		token.RedirectIn, token.Word,
		token.RedirectErr, token.Word,
		token.RedirectErrAppend, token.Word,
		token.RedirectAll, token.Word,
		token.EOF,
	}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %v want %v", i, got[i], want[i])
		}
	}
}
