package ircmsg

import "testing"

func TestGenerateNickPadsShortNames(t *testing.T) {
	got := GenerateNick("alice")
	if got != "alice-" {
		t.Errorf("GenerateNick(\"alice\") = %q, want %q", got, "alice-")
	}
}

func TestGenerateNickSequence(t *testing.T) {
	nick := "alicealic" // length 9
	seen := map[string]bool{nick: true}
	for i := 0; i < 40; i++ {
		nick = GenerateNick(nick)
		if len(nick) > 9 {
			t.Fatalf("nickname grew beyond 9 chars: %q", nick)
		}
		for _, r := range nick {
			valid := (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') ||
				(r >= '0' && r <= '9') || r == '_' || r == '-'
			if !valid {
				t.Fatalf("nickname %q contains invalid char %q", nick, r)
			}
		}
		seen[nick] = true
	}
}

func TestGenerateNickTotal(t *testing.T) {
	inputs := []string{"x", "dircproxy", "nine-char", "a", "_________"}
	for _, in := range inputs {
		out := GenerateNick(in)
		if len(out) == 0 || len(out) > 9 {
			t.Errorf("GenerateNick(%q) = %q, invalid length", in, out)
		}
	}
}

func TestGenerateNickFallsBackWhenExhausted(t *testing.T) {
	got := GenerateNick("_________")
	if got != FallbackNickname {
		t.Errorf("GenerateNick of all-underscore nick = %q, want the fallback unmutated (%q)", got, FallbackNickname)
	}
}
