package pathutil

import "testing"

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"/":             "/",
		"/a/b/":         "/a/b",
		"/a/./b":        "/a/b",
		"/a/b/../c":     "/a/c",
		"/a/../../b":    "/b",
		"/a//b///c":     "/a/b/c",
		"/./a/./b/../.": "/a",
	}

	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeEquivalence(t *testing.T) {
	// For all valid absolute paths p and any representation p' with
	// redundant '.', '..', or trailing '/', normalize(p) == normalize(p').
	equivalents := [][2]string{
		{"/a/b/c", "/a/b/c/"},
		{"/a/b/c", "/a/./b/./c"},
		{"/a/b/c", "/a/x/../b/c"},
	}
	for _, pair := range equivalents {
		if Normalize(pair[0]) != Normalize(pair[1]) {
			t.Errorf("normalize(%q)=%q != normalize(%q)=%q", pair[0], Normalize(pair[0]), pair[1], Normalize(pair[1]))
		}
	}
}

func TestDirnameBasename(t *testing.T) {
	if got := Dirname("/a/b/c"); got != "/a/b" {
		t.Errorf("Dirname = %q", got)
	}
	if got := Dirname("/a"); got != "/" {
		t.Errorf("Dirname = %q", got)
	}
	if got := Basename("/a/b/c"); got != "c" {
		t.Errorf("Basename = %q", got)
	}
	if got := Basename("/"); got != "/" {
		t.Errorf("Basename = %q", got)
	}
}

func TestResolve(t *testing.T) {
	if got := Resolve("/home/user", "docs"); got != "/home/user/docs" {
		t.Errorf("Resolve = %q", got)
	}
	if got := Resolve("/home/user", "/etc"); got != "/etc" {
		t.Errorf("Resolve = %q", got)
	}
	if got := Resolve("/home/user", ".."); got != "/home" {
		t.Errorf("Resolve = %q", got)
	}
}

func TestHasPrefix(t *testing.T) {
	if !HasPrefix("/mnt/x", "/mnt") {
		t.Error("expected /mnt to be a prefix of /mnt/x")
	}
	if HasPrefix("/mnty", "/mnt") {
		t.Error("did not expect /mnt to be a prefix of /mnty")
	}
	if !HasPrefix("/mnt", "/mnt") {
		t.Error("expected path to be its own prefix")
	}
}
