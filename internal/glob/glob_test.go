package glob

import "testing"

func TestMatch(t *testing.T) {
	cases := []struct {
		pattern, name string
		want          bool
	}{
		{"*.txt", "a.txt", true},
		{"*.txt", "a.tar", false},
		{"a?c", "abc", true},
		{"a?c", "ac", false},
		{"[abc].txt", "a.txt", true},
		{"[abc].txt", "d.txt", false},
		{"[a-c].txt", "b.txt", true},
		{"[!a-c].txt", "b.txt", false},
		{"*", "anything", true},
		{"t/*.txt", "t/*.txt", true},
	}

	for _, c := range cases {
		if got := Match(c.pattern, c.name); got != c.want {
			t.Errorf("Match(%q, %q) = %v, want %v", c.pattern, c.name, got, c.want)
		}
	}
}

func TestSort(t *testing.T) {
	got := Sort([]string{"/t/c.txt", "/t/a.txt", "/t/b.txt"})
	want := []string{"/t/a.txt", "/t/b.txt", "/t/c.txt"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Sort = %v, want %v", got, want)
		}
	}
}

func TestHiddenRule(t *testing.T) {
	if !PatternWantsHidden(".git*") {
		t.Error("pattern starting with . should want hidden entries")
	}
	if PatternWantsHidden("*.txt") {
		t.Error("pattern not starting with . should not want hidden entries")
	}
}
