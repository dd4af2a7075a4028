package interp

import (
	"github.com/lifo-sh/vush/internal/shell/ast"
	"github.com/lifo-sh/vush/internal/shell/lexer"
	"github.com/lifo-sh/vush/internal/shell/token"
)

// expandAlias repeatedly substitutes cmd's command-position word for a
// registered alias value, re-lexing the substitution into words and
// splicing it in place of the original word. A "seen" set (rather than a
// bare depth counter) guarantees termination even for mutually recursive
// aliases, per spec section 4.6: once a name has been expanded once in
// this chain, expanding it again is refused.
func (sh *Shell) expandAlias(cmd ast.Command, _ int) ast.Command {
	if len(cmd.Words) == 0 {
		return cmd
	}
	seen := make(map[string]bool)
	for len(seen) < maxAliasExpansions {
		first := cmd.Words[0]
		if len(first.Parts) == 0 || first.Parts[0].Quote != token.NoQuote {
			break
		}
		name := first.Raw()
		val, ok := sh.aliases[name]
		if !ok || seen[name] {
			break
		}
		seen[name] = true

		toks, err := lexer.Lex(val)
		if err != nil {
			break
		}
		var replacement []ast.Word
		for _, tok := range toks {
			if tok.Type == token.Word {
				replacement = append(replacement, ast.Word{Parts: tok.Parts})
			}
		}
		cmd.Words = append(replacement, cmd.Words[1:]...)
		if len(cmd.Words) == 0 {
			break
		}
	}
	return cmd
}
