// Package ast defines the shell AST node shapes from spec section 3.1/4.4:
// tagged variants (not an open class hierarchy), dispatched by the
// interpreter on a Kind field.
package ast

import "github.com/lifo-sh/vush/internal/shell/token"

// Word is an ordered sequence of word-parts, each tagged with its
// quoting, exactly as lexed.
type Word struct {
	Parts []token.WordPart
}

func (w Word) Raw() string {
	var out string
	for _, p := range w.Parts {
		out += p.Text
	}
	return out
}

// RedirectOp enumerates redirection operators.
type RedirectOp int

const (
	RedirOut RedirectOp = iota
	RedirAppend
	RedirIn
	RedirErr
	RedirErrAppend
	RedirAll
)

type Redirect struct {
	Op     RedirectOp
	Target Word
}

// CommandKind tags the Command variant.
type CommandKind int

const (
	KindSimple CommandKind = iota
	KindIf
	KindFor
	KindWhile
	KindUntil
	KindCase
	KindFunctionDef
	KindGroup
)

// Assignment is a NAME=VALUE word pair attached to a simple command.
type Assignment struct {
	Name  string
	Value Word
}

// CaseClause is one "pattern) list ;;" arm of a case command.
type CaseClause struct {
	Patterns []Word
	Body     CompoundList
}

// Command is the tagged variant for every statement kind in spec section
// 3.1. Only the fields relevant to Kind are populated.
type Command struct {
	Kind CommandKind

	// KindSimple
	Assignments  []Assignment
	Words        []Word
	Redirections []Redirect

	// KindIf
	IfConds  []CompoundList // condition for if/elif, one per branch
	IfBodies []CompoundList // body for if/elif, aligned with IfConds
	ElseBody *CompoundList

	// KindFor
	ForName  string
	ForWords []Word // nil means "in $@"
	ForBody  CompoundList

	// KindWhile / KindUntil
	LoopCond CompoundList
	LoopBody CompoundList

	// KindCase
	CaseWord    Word
	CaseClauses []CaseClause

	// KindFunctionDef
	FuncName string
	FuncBody *Command // always a KindGroup

	// KindGroup
	GroupBody CompoundList

	Pos int
}

// Connector joins pipelines within a List.
type Connector int

const (
	ConnNone Connector = iota
	ConnAnd
	ConnOr
	ConnSemi
)

// Pipeline is one or more commands joined by "|", optionally negated.
type Pipeline struct {
	Commands []Command
	Negated  bool
}

// ListEntry pairs a pipeline with the connector that follows it.
type ListEntry struct {
	Pipeline  Pipeline
	Connector Connector
}

// List is a sequence of pipelines joined by && / ||, optionally
// backgrounded with a trailing "&".
type List struct {
	Entries    []ListEntry
	Background bool
}

// CompoundList is the body of a control-flow construct: an ordered
// sequence of Lists.
type CompoundList struct {
	Lists []List
}

// Script is a whole parsed program.
type Script struct {
	Lists []List
}
