// Package parser implements the shell's recursive-descent grammar from
// spec section 4.4, building the ast.Script tree. Keywords are only
// recognised at the start of a command position, so "echo if" parses as
// a simple command with the literal argument "if".
package parser

import (
	"fmt"

	"github.com/lifo-sh/vush/internal/shell/ast"
	"github.com/lifo-sh/vush/internal/shell/lexer"
	"github.com/lifo-sh/vush/internal/shell/token"
)

// ParseError carries a source position so the shell can report "line N"
// style diagnostics, per spec section 4.4.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse error at position %d: %s", e.Pos, e.Msg) }

type Parser struct {
	toks []token.Token
	pos  int
}

// Parse tokenizes and parses src into a Script.
func Parse(src string) (*ast.Script, error) {
	toks, err := lexer.Lex(src)
	if err != nil {
		return nil, &ParseError{Msg: err.Error()}
	}
	p := &Parser{toks: toks}
	return p.parseScript()
}

func (p *Parser) cur() token.Token     { return p.toks[p.pos] }
func (p *Parser) curType() token.Type  { return p.toks[p.pos].Type }
func (p *Parser) advance() token.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) isWord(text string) bool {
	return p.curType() == token.Word && p.cur().Text() == text && !hasQuoting(p.cur())
}

func hasQuoting(t token.Token) bool {
	for _, part := range t.Parts {
		if part.Quote != token.NoQuote {
			return true
		}
	}
	return false
}

func (p *Parser) expect(tt token.Type) (token.Token, error) {
	if p.curType() != tt {
		return token.Token{}, &ParseError{Pos: p.cur().Pos, Msg: fmt.Sprintf("expected %v, got %v", tt, p.curType())}
	}
	return p.advance(), nil
}

func (p *Parser) expectKeyword(kw string) error {
	if !p.isWord(kw) {
		return &ParseError{Pos: p.cur().Pos, Msg: fmt.Sprintf("expected %q", kw)}
	}
	p.advance()
	return nil
}

func (p *Parser) skipTerminators() {
	for p.curType() == token.Newline || p.curType() == token.Semi {
		p.advance()
	}
}

func (p *Parser) skipNewlines() {
	for p.curType() == token.Newline {
		p.advance()
	}
}

func (p *Parser) parseScript() (*ast.Script, error) {
	s := &ast.Script{}
	p.skipTerminators()
	for p.curType() != token.EOF {
		list, err := p.parseList()
		if err != nil {
			return nil, err
		}
		s.Lists = append(s.Lists, list)
		p.skipTerminators()
	}
	return s, nil
}

// parseCompoundList parses lists until one of the given terminator
// keywords is found (without consuming it).
func (p *Parser) parseCompoundList(terminators ...string) (ast.CompoundList, error) {
	cl := ast.CompoundList{}
	p.skipTerminators()
	for p.curType() != token.EOF && !p.atKeyword(terminators...) {
		list, err := p.parseList()
		if err != nil {
			return cl, err
		}
		cl.Lists = append(cl.Lists, list)
		p.skipTerminators()
	}
	return cl, nil
}

func (p *Parser) atKeyword(kws ...string) bool {
	for _, kw := range kws {
		if p.isWord(kw) {
			return true
		}
	}
	return false
}

// parseListCore parses the "&&"/"||" pipeline chain only, leaving any
// trailing "&" or ";" for the caller. Case-clause bodies need this: a
// single ";" there separates statements while ";;" terminates the
// clause, a distinction the generic List-level separator handling
// below doesn't need to make.
func (p *Parser) parseListCore() (ast.List, error) {
	list := ast.List{}

	for {
		pipeline, err := p.parsePipeline()
		if err != nil {
			return list, err
		}

		conn := ast.ConnNone
		switch p.curType() {
		case token.And:
			conn = ast.ConnAnd
			p.advance()
		case token.Or:
			conn = ast.ConnOr
			p.advance()
		}

		list.Entries = append(list.Entries, ast.ListEntry{Pipeline: pipeline, Connector: conn})

		if conn == ast.ConnNone {
			break
		}
		p.skipNewlines()
	}

	return list, nil
}

func (p *Parser) parseList() (ast.List, error) {
	list, err := p.parseListCore()
	if err != nil {
		return list, err
	}

	if p.curType() == token.Amp {
		list.Background = true
		p.advance()
	} else if p.curType() == token.Semi {
		p.advance()
	}

	return list, nil
}

// atDoubleSemi reports whether the upcoming tokens are a literal ";;",
// lexed as two adjacent Semi tokens.
func (p *Parser) atDoubleSemi() bool {
	return p.curType() == token.Semi && p.pos+1 < len(p.toks) && p.toks[p.pos+1].Type == token.Semi
}

func (p *Parser) parsePipeline() (ast.Pipeline, error) {
	pl := ast.Pipeline{}
	if p.curType() == token.Bang {
		pl.Negated = true
		p.advance()
	}

	for {
		cmd, err := p.parseCommand()
		if err != nil {
			return pl, err
		}
		pl.Commands = append(pl.Commands, cmd)

		if p.curType() == token.Pipe {
			p.advance()
			p.skipNewlines()
			continue
		}
		break
	}
	return pl, nil
}

func (p *Parser) parseCommand() (ast.Command, error) {
	switch {
	case p.isWord("if"):
		return p.parseIf()
	case p.isWord("for"):
		return p.parseFor()
	case p.isWord("while"):
		return p.parseWhileUntil(false)
	case p.isWord("until"):
		return p.parseWhileUntil(true)
	case p.isWord("case"):
		return p.parseCase()
	case p.curType() == token.LBrace:
		return p.parseGroup()
	case p.isFunctionDef():
		return p.parseFunctionDef()
	default:
		return p.parseSimple()
	}
}

func (p *Parser) isFunctionDef() bool {
	if p.curType() != token.Word || hasQuoting(p.cur()) {
		return false
	}
	return p.pos+2 < len(p.toks) && p.toks[p.pos+1].Type == token.LParen && p.toks[p.pos+2].Type == token.RParen
}

func (p *Parser) parseFunctionDef() (ast.Command, error) {
	name := p.advance().Text()
	p.advance() // (
	p.advance() // )
	p.skipNewlines()

	body, err := p.parseCommand()
	if err != nil {
		return ast.Command{}, err
	}

	return ast.Command{Kind: ast.KindFunctionDef, FuncName: name, FuncBody: &body}, nil
}

func (p *Parser) parseGroup() (ast.Command, error) {
	p.advance() // {
	body, err := p.parseCompoundListUntilBrace()
	if err != nil {
		return ast.Command{}, err
	}
	if _, err := p.expect(token.RBrace); err != nil {
		return ast.Command{}, err
	}
	return ast.Command{Kind: ast.KindGroup, GroupBody: body}, nil
}

func (p *Parser) parseCompoundListUntilBrace() (ast.CompoundList, error) {
	cl := ast.CompoundList{}
	p.skipTerminators()
	for p.curType() != token.EOF && p.curType() != token.RBrace {
		list, err := p.parseList()
		if err != nil {
			return cl, err
		}
		cl.Lists = append(cl.Lists, list)
		p.skipTerminators()
	}
	return cl, nil
}

func (p *Parser) parseIf() (ast.Command, error) {
	cmd := ast.Command{Kind: ast.KindIf, Pos: p.cur().Pos}
	p.advance() // if

	for {
		cond, err := p.parseCompoundList("then")
		if err != nil {
			return cmd, err
		}
		if err := p.expectKeyword("then"); err != nil {
			return cmd, err
		}
		body, err := p.parseCompoundList("elif", "else", "fi")
		if err != nil {
			return cmd, err
		}
		cmd.IfConds = append(cmd.IfConds, cond)
		cmd.IfBodies = append(cmd.IfBodies, body)

		if p.isWord("elif") {
			p.advance()
			continue
		}
		break
	}

	if p.isWord("else") {
		p.advance()
		body, err := p.parseCompoundList("fi")
		if err != nil {
			return cmd, err
		}
		cmd.ElseBody = &body
	}

	if err := p.expectKeyword("fi"); err != nil {
		return cmd, err
	}
	return cmd, nil
}

func (p *Parser) parseFor() (ast.Command, error) {
	cmd := ast.Command{Kind: ast.KindFor, Pos: p.cur().Pos}
	p.advance() // for

	nameTok, err := p.expect(token.Word)
	if err != nil {
		return cmd, err
	}
	cmd.ForName = nameTok.Text()

	if p.isWord("in") {
		p.advance()
		for p.curType() == token.Word {
			cmd.ForWords = append(cmd.ForWords, wordFromToken(p.advance()))
		}
	}

	p.skipTerminators()
	if err := p.expectKeyword("do"); err != nil {
		return cmd, err
	}
	body, err := p.parseCompoundList("done")
	if err != nil {
		return cmd, err
	}
	cmd.ForBody = body

	if err := p.expectKeyword("done"); err != nil {
		return cmd, err
	}
	return cmd, nil
}

func (p *Parser) parseWhileUntil(until bool) (ast.Command, error) {
	kind := ast.KindWhile
	if until {
		kind = ast.KindUntil
	}
	cmd := ast.Command{Kind: kind, Pos: p.cur().Pos}
	p.advance() // while/until

	cond, err := p.parseCompoundList("do")
	if err != nil {
		return cmd, err
	}
	cmd.LoopCond = cond

	if err := p.expectKeyword("do"); err != nil {
		return cmd, err
	}
	body, err := p.parseCompoundList("done")
	if err != nil {
		return cmd, err
	}
	cmd.LoopBody = body

	if err := p.expectKeyword("done"); err != nil {
		return cmd, err
	}
	return cmd, nil
}

func (p *Parser) parseCase() (ast.Command, error) {
	cmd := ast.Command{Kind: ast.KindCase, Pos: p.cur().Pos}
	p.advance() // case

	wordTok, err := p.expect(token.Word)
	if err != nil {
		return cmd, err
	}
	cmd.CaseWord = wordFromToken(wordTok)

	if err := p.expectKeyword("in"); err != nil {
		return cmd, err
	}
	p.skipTerminators()

	for !p.isWord("esac") && p.curType() != token.EOF {
		var clause ast.CaseClause
		for {
			patTok, err := p.expect(token.Word)
			if err != nil {
				return cmd, err
			}
			clause.Patterns = append(clause.Patterns, wordFromToken(patTok))
			if p.curType() == token.Pipe {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expect(token.RParen); err != nil {
			return cmd, err
		}
		body, err := p.parseCaseBody()
		if err != nil {
			return cmd, err
		}
		clause.Body = body
		cmd.CaseClauses = append(cmd.CaseClauses, clause)
		p.skipTerminators()
	}

	if err := p.expectKeyword("esac"); err != nil {
		return cmd, err
	}
	return cmd, nil
}

// parseCaseBody parses statements up to a literal ";;" token sequence
// (lexed as two Semi tokens back to back) or "esac". It deliberately
// avoids parseList's generic trailing-semicolon handling: consuming a
// lone ";" there would swallow the first half of ";;" and make the
// terminator unrecognizable.
func (p *Parser) parseCaseBody() (ast.CompoundList, error) {
	cl := ast.CompoundList{}
	p.skipNewlines()
	for {
		if p.isWord("esac") || p.curType() == token.EOF {
			return cl, nil
		}
		if p.atDoubleSemi() {
			p.advance()
			p.advance()
			return cl, nil
		}

		list, err := p.parseListCore()
		if err != nil {
			return cl, err
		}
		if p.curType() == token.Amp {
			list.Background = true
			p.advance()
		}
		cl.Lists = append(cl.Lists, list)

		for {
			if p.atDoubleSemi() {
				p.advance()
				p.advance()
				return cl, nil
			}
			if p.curType() == token.Semi || p.curType() == token.Newline {
				p.advance()
				continue
			}
			break
		}
	}
}

func (p *Parser) parseSimple() (ast.Command, error) {
	cmd := ast.Command{Kind: ast.KindSimple, Pos: p.cur().Pos}

	// Leading NAME=VALUE assignments.
	for p.curType() == token.Word && isAssignment(p.cur()) {
		name, val := splitAssignment(p.cur())
		cmd.Assignments = append(cmd.Assignments, ast.Assignment{Name: name, Value: val})
		p.advance()
	}

	for {
		switch p.curType() {
		case token.Word:
			cmd.Words = append(cmd.Words, wordFromToken(p.advance()))
		case token.RedirectOut, token.RedirectAppend, token.RedirectIn,
			token.RedirectErr, token.RedirectErrAppend, token.RedirectAll:
			op := redirectOp(p.curType())
			p.advance()
			targetTok, err := p.expect(token.Word)
			if err != nil {
				return cmd, err
			}
			cmd.Redirections = append(cmd.Redirections, ast.Redirect{Op: op, Target: wordFromToken(targetTok)})
		default:
			goto done
		}
	}
done:

	if len(cmd.Words) == 0 && len(cmd.Assignments) == 0 {
		return cmd, &ParseError{Pos: p.cur().Pos, Msg: fmt.Sprintf("unexpected token %v", p.curType())}
	}
	return cmd, nil
}

func redirectOp(tt token.Type) ast.RedirectOp {
	switch tt {
	case token.RedirectOut:
		return ast.RedirOut
	case token.RedirectAppend:
		return ast.RedirAppend
	case token.RedirectIn:
		return ast.RedirIn
	case token.RedirectErr:
		return ast.RedirErr
	case token.RedirectErrAppend:
		return ast.RedirErrAppend
	case token.RedirectAll:
		return ast.RedirAll
	}
	panic("not a redirect token")
}

func wordFromToken(t token.Token) ast.Word {
	return ast.Word{Parts: t.Parts}
}

// isAssignment reports whether an unquoted word token looks like
// NAME=VALUE at the syntactic level (only the first, unquoted part is
// examined — real assignment validity is re-checked by the expander).
func isAssignment(t token.Token) bool {
	if len(t.Parts) == 0 || t.Parts[0].Quote != token.NoQuote {
		return false
	}
	text := t.Parts[0].Text
	eq := -1
	for i, r := range text {
		if r == '=' {
			eq = i
			break
		}
		if !isNameRune(r, i == 0) {
			return false
		}
	}
	return eq > 0
}

func isNameRune(r rune, first bool) bool {
	if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
		return true
	}
	if !first && r >= '0' && r <= '9' {
		return true
	}
	return false
}

func splitAssignment(t token.Token) (string, ast.Word) {
	text := t.Parts[0].Text
	eq := 0
	for i, r := range text {
		if r == '=' {
			eq = i
			break
		}
	}
	name := text[:eq]
	rest := text[eq+1:]

	var parts []token.WordPart
	if rest != "" {
		parts = append(parts, token.WordPart{Text: rest, Quote: token.NoQuote})
	}
	parts = append(parts, t.Parts[1:]...)
	return name, ast.Word{Parts: parts}
}
