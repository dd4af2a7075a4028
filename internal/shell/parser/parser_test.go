package parser

import (
	"testing"

	"github.com/lifo-sh/vush/internal/shell/ast"
)

func onlyCommand(t *testing.T, script *ast.Script) ast.Command {
	t.Helper()
	if len(script.Lists) != 1 || len(script.Lists[0].Entries) != 1 || len(script.Lists[0].Entries[0].Pipeline.Commands) != 1 {
		t.Fatalf("expected exactly one simple command, got %+v", script)
	}
	return script.Lists[0].Entries[0].Pipeline.Commands[0]
}

func TestParseSimplePipeline(t *testing.T) {
	script, err := Parse(`echo "hello" | tr a-z A-Z`)
	if err != nil {
		t.Fatal(err)
	}
	if len(script.Lists) != 1 {
		t.Fatalf("expected one list, got %d", len(script.Lists))
	}
	pl := script.Lists[0].Entries[0].Pipeline
	if len(pl.Commands) != 2 {
		t.Fatalf("expected 2 piped commands, got %d", len(pl.Commands))
	}
	if pl.Commands[0].Words[0].Raw() != "echo" || pl.Commands[1].Words[0].Raw() != "tr" {
		t.Fatalf("unexpected command words: %+v", pl.Commands)
	}
}

func TestParseKeywordAsOrdinaryWord(t *testing.T) {
	script, err := Parse("echo if")
	if err != nil {
		t.Fatal(err)
	}
	cmd := onlyCommand(t, script)
	if cmd.Kind != ast.KindSimple {
		t.Fatalf("expected simple command, got kind %v", cmd.Kind)
	}
	if len(cmd.Words) != 2 || cmd.Words[1].Raw() != "if" {
		t.Fatalf("expected 'if' to parse as a literal word argument, got %+v", cmd.Words)
	}
}

func TestParseIfElifElse(t *testing.T) {
	src := `if true; then echo a; elif false; then echo b; else echo c; fi`
	script, err := Parse(src)
	if err != nil {
		t.Fatal(err)
	}
	cmd := onlyCommand(t, script)
	if cmd.Kind != ast.KindIf {
		t.Fatalf("expected if command, got %v", cmd.Kind)
	}
	if len(cmd.IfConds) != 2 || len(cmd.IfBodies) != 2 {
		t.Fatalf("expected 2 if/elif branches, got %d conds %d bodies", len(cmd.IfConds), len(cmd.IfBodies))
	}
	if cmd.ElseBody == nil {
		t.Fatalf("expected else body")
	}
}

func TestParseForLoop(t *testing.T) {
	script, err := Parse("for x in a b c; do echo $x; done")
	if err != nil {
		t.Fatal(err)
	}
	cmd := onlyCommand(t, script)
	if cmd.Kind != ast.KindFor {
		t.Fatalf("expected for command, got %v", cmd.Kind)
	}
	if cmd.ForName != "x" {
		t.Fatalf("expected loop var x, got %q", cmd.ForName)
	}
	if len(cmd.ForWords) != 3 {
		t.Fatalf("expected 3 for-words, got %d", len(cmd.ForWords))
	}
}

func TestParseForWithoutIn(t *testing.T) {
	script, err := Parse("for x; do echo $x; done")
	if err != nil {
		t.Fatal(err)
	}
	cmd := onlyCommand(t, script)
	if cmd.ForWords != nil {
		t.Fatalf("expected nil ForWords meaning positional params, got %+v", cmd.ForWords)
	}
}

func TestParseWhileUntil(t *testing.T) {
	script, err := Parse("while true; do echo x; done")
	if err != nil {
		t.Fatal(err)
	}
	if onlyCommand(t, script).Kind != ast.KindWhile {
		t.Fatalf("expected while command")
	}

	script, err = Parse("until false; do echo x; done")
	if err != nil {
		t.Fatal(err)
	}
	if onlyCommand(t, script).Kind != ast.KindUntil {
		t.Fatalf("expected until command")
	}
}

func TestParseCase(t *testing.T) {
	src := `case $x in a|b) echo ab ;; *) echo other ;; esac`
	script, err := Parse(src)
	if err != nil {
		t.Fatal(err)
	}
	cmd := onlyCommand(t, script)
	if cmd.Kind != ast.KindCase {
		t.Fatalf("expected case command, got %v", cmd.Kind)
	}
	if len(cmd.CaseClauses) != 2 {
		t.Fatalf("expected 2 case clauses, got %d", len(cmd.CaseClauses))
	}
	if len(cmd.CaseClauses[0].Patterns) != 2 {
		t.Fatalf("expected 2 patterns in first clause, got %d", len(cmd.CaseClauses[0].Patterns))
	}
}

func TestParseCaseEmptyClause(t *testing.T) {
	src := `case $x in a) ;; esac`
	script, err := Parse(src)
	if err != nil {
		t.Fatal(err)
	}
	cmd := onlyCommand(t, script)
	if len(cmd.CaseClauses) != 1 {
		t.Fatalf("expected 1 clause, got %d", len(cmd.CaseClauses))
	}
	if len(cmd.CaseClauses[0].Body.Lists) != 0 {
		t.Fatalf("expected empty clause body, got %+v", cmd.CaseClauses[0].Body)
	}
}

func TestParseGroup(t *testing.T) {
	script, err := Parse("{ echo a; echo b; }")
	if err != nil {
		t.Fatal(err)
	}
	cmd := onlyCommand(t, script)
	if cmd.Kind != ast.KindGroup {
		t.Fatalf("expected group command, got %v", cmd.Kind)
	}
	if len(cmd.GroupBody.Lists) != 2 {
		t.Fatalf("expected 2 statements in group body, got %d", len(cmd.GroupBody.Lists))
	}
}

func TestParseFunctionDef(t *testing.T) {
	script, err := Parse("greet() { echo hi; }")
	if err != nil {
		t.Fatal(err)
	}
	cmd := onlyCommand(t, script)
	if cmd.Kind != ast.KindFunctionDef {
		t.Fatalf("expected function def, got %v", cmd.Kind)
	}
	if cmd.FuncName != "greet" {
		t.Fatalf("expected func name greet, got %q", cmd.FuncName)
	}
	if cmd.FuncBody == nil || cmd.FuncBody.Kind != ast.KindGroup {
		t.Fatalf("expected group body for function, got %+v", cmd.FuncBody)
	}
}

func TestParseConnectorsAndBackground(t *testing.T) {
	script, err := Parse("a && b || c &")
	if err != nil {
		t.Fatal(err)
	}
	list := script.Lists[0]
	if !list.Background {
		t.Fatalf("expected list marked background")
	}
	if len(list.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(list.Entries))
	}
	if list.Entries[0].Connector != ast.ConnAnd || list.Entries[1].Connector != ast.ConnOr {
		t.Fatalf("unexpected connectors: %+v", list.Entries)
	}
}

func TestParseNegatedPipeline(t *testing.T) {
	script, err := Parse("! true")
	if err != nil {
		t.Fatal(err)
	}
	pl := script.Lists[0].Entries[0].Pipeline
	if !pl.Negated {
		t.Fatalf("expected negated pipeline")
	}
}

func TestParseRedirectionsAndAssignments(t *testing.T) {
	script, err := Parse("FOO=bar BAZ=qux cmd arg > out.txt 2>> err.log")
	if err != nil {
		t.Fatal(err)
	}
	cmd := onlyCommand(t, script)
	if len(cmd.Assignments) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(cmd.Assignments))
	}
	if cmd.Assignments[0].Name != "FOO" || cmd.Assignments[0].Value.Raw() != "bar" {
		t.Fatalf("unexpected assignment: %+v", cmd.Assignments[0])
	}
	if len(cmd.Redirections) != 2 {
		t.Fatalf("expected 2 redirections, got %d", len(cmd.Redirections))
	}
	if cmd.Redirections[0].Op != ast.RedirOut || cmd.Redirections[1].Op != ast.RedirErrAppend {
		t.Fatalf("unexpected redirection ops: %+v", cmd.Redirections)
	}
}

func TestParseAssignmentOnlyCommand(t *testing.T) {
	script, err := Parse("FOO=bar")
	if err != nil {
		t.Fatal(err)
	}
	cmd := onlyCommand(t, script)
	if len(cmd.Assignments) != 1 || len(cmd.Words) != 0 {
		t.Fatalf("expected assignment-only command, got %+v", cmd)
	}
}

func TestParseNestedIfInsideWhile(t *testing.T) {
	src := `while true; do if true; then echo a; fi; done`
	script, err := Parse(src)
	if err != nil {
		t.Fatal(err)
	}
	cmd := onlyCommand(t, script)
	if cmd.Kind != ast.KindWhile {
		t.Fatalf("expected while command")
	}
	if len(cmd.LoopBody.Lists) != 1 {
		t.Fatalf("expected 1 statement in while body, got %d", len(cmd.LoopBody.Lists))
	}
	inner := cmd.LoopBody.Lists[0].Entries[0].Pipeline.Commands[0]
	if inner.Kind != ast.KindIf {
		t.Fatalf("expected nested if command, got %v", inner.Kind)
	}
}

func TestParseUnexpectedTokenError(t *testing.T) {
	_, err := Parse("| echo hi")
	if err == nil {
		t.Fatalf("expected parse error for leading pipe")
	}
	if _, ok := err.(*ParseError); !ok {
		t.Fatalf("expected *ParseError, got %T", err)
	}
}

func TestParseUnterminatedIfError(t *testing.T) {
	_, err := Parse("if true; then echo a")
	if err == nil {
		t.Fatalf("expected parse error for missing fi")
	}
}
