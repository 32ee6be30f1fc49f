package ircmsg

import "testing"

func TestStripCTCPPreservesBytes(t *testing.T) {
	body := "hey \x01ACTION waves\x01 how's it going"
	parts := StripCTCP(body)
	if JoinParts(parts) != body {
		t.Fatalf("JoinParts(StripCTCP(%q)) = %q", body, JoinParts(parts))
	}

	var sawCTCP bool
	for _, p := range parts {
		if p.IsCTCP {
			sawCTCP = true
			if p.CTCP.Command != "ACTION" {
				t.Errorf("CTCP command = %q, want ACTION", p.CTCP.Command)
			}
			if len(p.CTCP.Params) != 1 || p.CTCP.Params[0] != "waves" {
				t.Errorf("CTCP params = %v", p.CTCP.Params)
			}
		}
	}
	if !sawCTCP {
		t.Error("expected a CTCP part")
	}
}

func TestStripCTCPNoToken(t *testing.T) {
	body := "just plain text"
	parts := StripCTCP(body)
	if len(parts) != 1 || parts[0].IsCTCP || parts[0].Text != body {
		t.Fatalf("StripCTCP(%q) = %+v", body, parts)
	}
}

func TestParseCTCPDCC(t *testing.T) {
	c := ParseCTCP("DCC CHAT chat 3232235777 5000")
	if c.Command != "DCC" {
		t.Fatalf("command = %q", c.Command)
	}
	want := []string{"CHAT", "chat", "3232235777", "5000"}
	if len(c.Params) != len(want) {
		t.Fatalf("params = %v", c.Params)
	}
	for i, p := range want {
		if c.Params[i] != p {
			t.Errorf("param[%d] = %q, want %q", i, c.Params[i], p)
		}
	}
}

func TestEncode(t *testing.T) {
	got := Encode("DCC", "CHAT chat 3405803783 40000")
	want := "\x01DCC CHAT chat 3405803783 40000\x01"
	if got != want {
		t.Errorf("Encode = %q, want %q", got, want)
	}
}
