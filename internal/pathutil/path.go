// Package pathutil provides the pure path functions the VFS and shell
// expander need: normalize, resolve, join, dirname, basename. All paths in
// this system are virtual POSIX-style paths; none of this touches the real
// filesystem.
package pathutil

import "strings"

// Normalize resolves "." and ".." segments and collapses redundant
// separators, returning an absolute, clean path. Input must already be
// absolute (start with "/"); Normalize panics otherwise since every call
// site in this repo is expected to have enforced that already.
func Normalize(p string) string {
	if !strings.HasPrefix(p, "/") {
		panic("pathutil: Normalize requires an absolute path, got " + p)
	}

	segs := strings.Split(p, "/")
	var out []string
	for _, s := range segs {
		switch s {
		case "", ".":
			continue
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, s)
		}
	}

	if len(out) == 0 {
		return "/"
	}
	return "/" + strings.Join(out, "/")
}

// Join joins path segments under base and normalizes the result.
func Join(base string, parts ...string) string {
	all := append([]string{base}, parts...)
	return Normalize(strings.Join(all, "/"))
}

// Resolve resolves rel against cwd. If rel is already absolute it is
// normalized directly; otherwise it is joined to cwd first.
func Resolve(cwd, rel string) string {
	if strings.HasPrefix(rel, "/") {
		return Normalize(rel)
	}
	return Normalize(cwd + "/" + rel)
}

// Dirname returns the parent directory of p ("/" for a root-level entry).
func Dirname(p string) string {
	p = Normalize(p)
	if p == "/" {
		return "/"
	}
	i := strings.LastIndex(p, "/")
	if i <= 0 {
		return "/"
	}
	return p[:i]
}

// Basename returns the final path segment of p ("/" has basename "/").
func Basename(p string) string {
	p = Normalize(p)
	if p == "/" {
		return "/"
	}
	i := strings.LastIndex(p, "/")
	return p[i+1:]
}

// Segments splits a normalized absolute path into its non-empty segments.
func Segments(p string) []string {
	p = Normalize(p)
	if p == "/" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(p, "/"), "/")
}

// HasPrefix reports whether prefix is a path-segment-aligned prefix of p
// (so "/mnt" is a prefix of "/mnt/x" but not of "/mnty").
func HasPrefix(p, prefix string) bool {
	p = Normalize(p)
	prefix = Normalize(prefix)
	if prefix == "/" {
		return true
	}
	if p == prefix {
		return true
	}
	return strings.HasPrefix(p, prefix+"/")
}
