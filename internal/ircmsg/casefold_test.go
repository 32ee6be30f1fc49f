package ircmsg

import "testing"

func TestEqualFoldRFC1459(t *testing.T) {
	pairs := [][2]string{
		{"{Nick}", "[nick]"},
		{"a|b", "A\\B"},
		{"~tilde", "^TILDE"},
		{"PRIVMSG", "privmsg"},
	}
	for _, p := range pairs {
		if !EqualFold(p[0], p[1]) {
			t.Errorf("EqualFold(%q, %q) = false, want true", p[0], p[1])
		}
	}
	if EqualFold("foo", "bar") {
		t.Error("EqualFold(foo, bar) = true")
	}
}

func TestFoldIsConsistentWithEqualFold(t *testing.T) {
	a, b := "Test{Nick}", "test[nick]"
	if Fold(a) != Fold(b) {
		t.Errorf("Fold(%q) = %q, Fold(%q) = %q, want equal", a, Fold(a), b, Fold(b))
	}
	if !EqualFold(a, b) {
		t.Error("EqualFold disagrees with Fold")
	}
}
