// Package glob implements shell-style glob matching (*, ?, [...]) and the
// simpler case-pattern matching used by the shell's "case" construct.
// The matcher walks the pattern and text in lockstep the same way
// minicli's pattern lexer walks a rune at a time rather than compiling to
// a regexp, which keeps the semantics (hidden-file exclusion, "first
// literal char is '.'" rule) easy to special-case.
package glob

import "strings"

// Match reports whether name matches the shell glob pattern.
func Match(pattern, name string) bool {
	return matchHere([]rune(pattern), []rune(name))
}

func matchHere(pat, name []rune) bool {
	for len(pat) > 0 {
		switch pat[0] {
		case '*':
			// Collapse consecutive '*' and try every split point.
			for len(pat) > 0 && pat[0] == '*' {
				pat = pat[1:]
			}
			if len(pat) == 0 {
				return true
			}
			for i := 0; i <= len(name); i++ {
				if matchHere(pat, name[i:]) {
					return true
				}
			}
			return false
		case '?':
			if len(name) == 0 {
				return false
			}
			pat, name = pat[1:], name[1:]
		case '[':
			end := strings.IndexRune(string(pat[1:]), ']')
			if end < 0 {
				// Unterminated class; treat '[' as literal.
				if len(name) == 0 || name[0] != '[' {
					return false
				}
				pat, name = pat[1:], name[1:]
				continue
			}
			class := pat[1 : 1+end]
			if len(name) == 0 || !matchClass(class, name[0]) {
				return false
			}
			pat = pat[end+2:]
			name = name[1:]
		default:
			if len(name) == 0 || name[0] != pat[0] {
				return false
			}
			pat, name = pat[1:], name[1:]
		}
	}
	return len(name) == 0
}

func matchClass(class []rune, c rune) bool {
	negate := false
	if len(class) > 0 && (class[0] == '!' || class[0] == '^') {
		negate = true
		class = class[1:]
	}

	matched := false
	for i := 0; i < len(class); i++ {
		if i+2 < len(class) && class[i+1] == '-' {
			if class[i] <= c && c <= class[i+2] {
				matched = true
			}
			i += 2
			continue
		}
		if class[i] == c {
			matched = true
		}
	}
	return matched != negate
}

// HasMeta reports whether s contains any glob metacharacter, i.e. whether
// it should be expanded at all.
func HasMeta(s string) bool {
	return strings.ContainsAny(s, "*?[")
}

// IsHidden reports whether name is a dotfile.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// PatternWantsHidden reports whether the pattern's first literal
// character is '.', per the shell rule that hidden entries are excluded
// from glob expansion unless explicitly asked for.
func PatternWantsHidden(pattern string) bool {
	return strings.HasPrefix(pattern, ".")
}

// MatchCase implements the simpler "case" pattern matching used by the
// shell's case construct: the same metacharacters as Match, with '|'
// alternation handled by the caller splitting on '|' first.
func MatchCase(pattern, text string) bool {
	return Match(pattern, text)
}

// Sort sorts glob matches lexicographically, per the expander's tie-break
// rule.
func Sort(matches []string) []string {
	out := append([]string(nil), matches...)
	// insertion sort is fine; match lists are small (single directories)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
