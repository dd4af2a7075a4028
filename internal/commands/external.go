package commands

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lifo-sh/vush/internal/shell/runtime"
)

// ExternalCommands returns a registry of the representative handful of
// "external" commands spec section 6's non-goals call for: full fidelity
// with every real Unix utility is out of scope, but enough of cat/grep/
// sort/head/tr/wc/sleep to exercise pipelines end to end.
func ExternalCommands() *Registry {
	r := NewRegistry()
	r.Register("cat", catExternal)
	r.Register("wc", wcExternal)
	r.Register("sort", sortExternal)
	r.Register("head", headExternal)
	r.Register("tail", tailExternal)
	r.Register("grep", grepExternal)
	r.Register("tr", trExternal)
	r.Register("sleep", sleepExternal)
	return r
}

func readLines(ctx runtime.ExecContext, args []string) ([]string, error) {
	if len(args) == 0 {
		var lines []string
		sc := bufio.NewScanner(ctx.Stdin())
		for sc.Scan() {
			lines = append(lines, sc.Text())
		}
		return lines, sc.Err()
	}
	var lines []string
	for _, path := range args {
		data, err := ctx.VFS().ReadFileString(path)
		if err != nil {
			return nil, err
		}
		lines = append(lines, strings.Split(strings.TrimRight(data, "\n"), "\n")...)
	}
	return lines, nil
}

// readAll concatenates args' file contents, or reads stdin whole if args
// is empty, without discarding the trailing-newline information readLines
// throws away when it splits on "\n".
func readAll(ctx runtime.ExecContext, args []string) ([]byte, error) {
	if len(args) == 0 {
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, ctx.Stdin()); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	var buf bytes.Buffer
	for _, path := range args {
		data, err := ctx.VFS().ReadFile(path)
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	return buf.Bytes(), nil
}

func catExternal(ctx runtime.ExecContext, args []string) (int, error) {
	if len(args) == 0 {
		_, err := bufCopy(ctx)
		if err != nil {
			return fail(ctx, "cat: %v", err)
		}
		return 0, nil
	}
	for _, path := range args {
		data, err := ctx.VFS().ReadFile(path)
		if err != nil {
			return fail(ctx, "cat: %s: %v", path, err)
		}
		ctx.Stdout().Write(data)
	}
	return 0, nil
}

func bufCopy(ctx runtime.ExecContext) (int, error) {
	buf := make([]byte, 4096)
	total := 0
	for {
		n, err := ctx.Stdin().Read(buf)
		if n > 0 {
			ctx.Stdout().Write(buf[:n])
			total += n
		}
		if err != nil {
			break
		}
	}
	return total, nil
}

func wcExternal(ctx runtime.ExecContext, args []string) (int, error) {
	data, err := readAll(ctx, args)
	if err != nil {
		return fail(ctx, "wc: %v", err)
	}
	lines := bytes.Count(data, []byte("\n"))
	words := len(strings.Fields(string(data)))
	fmt.Fprintf(ctx.Stdout(), "%7d %7d %7d\n", lines, words, len(data))
	return 0, nil
}

func sortExternal(ctx runtime.ExecContext, args []string) (int, error) {
	reverse := false
	var files []string
	for _, a := range args {
		if a == "-r" {
			reverse = true
			continue
		}
		files = append(files, a)
	}
	lines, err := readLines(ctx, files)
	if err != nil {
		return fail(ctx, "sort: %v", err)
	}
	sort.Strings(lines)
	if reverse {
		for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
			lines[i], lines[j] = lines[j], lines[i]
		}
	}
	for _, l := range lines {
		fmt.Fprintln(ctx.Stdout(), l)
	}
	return 0, nil
}

func headExternal(ctx runtime.ExecContext, args []string) (int, error) {
	n, files := parseCountFlag(args, 10)
	lines, err := readLines(ctx, files)
	if err != nil {
		return fail(ctx, "head: %v", err)
	}
	if n > len(lines) {
		n = len(lines)
	}
	for _, l := range lines[:n] {
		fmt.Fprintln(ctx.Stdout(), l)
	}
	return 0, nil
}

func tailExternal(ctx runtime.ExecContext, args []string) (int, error) {
	n, files := parseCountFlag(args, 10)
	lines, err := readLines(ctx, files)
	if err != nil {
		return fail(ctx, "tail: %v", err)
	}
	start := len(lines) - n
	if start < 0 {
		start = 0
	}
	for _, l := range lines[start:] {
		fmt.Fprintln(ctx.Stdout(), l)
	}
	return 0, nil
}

func parseCountFlag(args []string, def int) (int, []string) {
	n := def
	var rest []string
	for i := 0; i < len(args); i++ {
		if args[i] == "-n" && i+1 < len(args) {
			if v, err := strconv.Atoi(args[i+1]); err == nil {
				n = v
			}
			i++
			continue
		}
		rest = append(rest, args[i])
	}
	return n, rest
}

func grepExternal(ctx runtime.ExecContext, args []string) (int, error) {
	if len(args) == 0 {
		return fail(ctx, "grep: usage: grep PATTERN [FILE...]")
	}
	invert := false
	if args[0] == "-v" {
		invert = true
		args = args[1:]
	}
	if len(args) == 0 {
		return fail(ctx, "grep: usage: grep PATTERN [FILE...]")
	}
	re, err := regexp.Compile(args[0])
	if err != nil {
		return fail(ctx, "grep: %v", err)
	}
	lines, err := readLines(ctx, args[1:])
	if err != nil {
		return fail(ctx, "grep: %v", err)
	}
	matched := false
	for _, l := range lines {
		if re.MatchString(l) != invert {
			matched = true
			fmt.Fprintln(ctx.Stdout(), l)
		}
	}
	if !matched {
		return 1, nil
	}
	return 0, nil
}

func trExternal(ctx runtime.ExecContext, args []string) (int, error) {
	if len(args) != 2 {
		return fail(ctx, "tr: usage: tr SET1 SET2")
	}
	from, to := expandSet(args[0]), expandSet(args[1])
	lines, err := readLines(ctx, nil)
	if err != nil {
		return fail(ctx, "tr: %v", err)
	}
	for _, l := range lines {
		fmt.Fprintln(ctx.Stdout(), translate(l, from, to))
	}
	return 0, nil
}

// expandSet expands POSIX tr-style ranges ("a-z", "A-Z", "0-9") into
// their full character listing; a "-" that doesn't sit between two
// ordered runes is kept literal.
func expandSet(set string) string {
	runes := []rune(set)
	var b strings.Builder
	for i := 0; i < len(runes); i++ {
		if i+2 < len(runes) && runes[i+1] == '-' && runes[i] <= runes[i+2] {
			for r := runes[i]; r <= runes[i+2]; r++ {
				b.WriteRune(r)
			}
			i += 2
			continue
		}
		b.WriteRune(runes[i])
	}
	return b.String()
}

// translate maps each rune of s found in from to the rune at the same
// index in to. When to is shorter than from, tr pads with to's last
// character rather than leaving the excess untranslated.
func translate(s, from, to string) string {
	return strings.Map(func(r rune) rune {
		idx := strings.IndexRune(from, r)
		if idx < 0 {
			return r
		}
		if idx < len(to) {
			return rune(to[idx])
		}
		if len(to) > 0 {
			return rune(to[len(to)-1])
		}
		return r
	}, s)
}

func sleepExternal(ctx runtime.ExecContext, args []string) (int, error) {
	if len(args) == 0 {
		return fail(ctx, "sleep: missing operand")
	}
	secs, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fail(ctx, "sleep: invalid duration %q", args[0])
	}
	time.Sleep(time.Duration(secs * float64(time.Second)))
	return 0, nil
}
