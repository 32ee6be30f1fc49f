package session

import "testing"

func TestRegime1CapturesNickBeforeAuth(t *testing.T) {
	s, _ := newTestSession(t)
	s.handleClientLine("NICK alice")
	if s.Nickname != "alice" {
		t.Errorf("Nickname = %q, want alice", s.Nickname)
	}
	if !s.clientStatus.has(StatusGotNick) {
		t.Error("expected StatusGotNick after NICK in regime1")
	}
}

func TestRegime2UserModeBitQuirk(t *testing.T) {
	// Bit 3 (0x8, RFC2812 invisible) must not set +i; both bit 2 (0x4) and
	// bit 3 set +w per the original implementation's observed behaviour.
	s, _ := newTestSession(t)
	s.clientStatus |= StatusAuthed | StatusGotNick

	s.handleClientLine("USER bob 8 * :Bob Realname")

	if _, invisible := s.modes["i"[0]]; invisible {
		t.Error("bit 3 must not set +i, per the preserved original quirk")
	}
	if _, wallops := s.modes["w"[0]]; !wallops {
		t.Error("bit 3 must still set +w")
	}
}

func TestRegime2IsIdempotentOnRepeatedUser(t *testing.T) {
	s, _ := newTestSession(t)
	s.clientStatus |= StatusAuthed | StatusGotNick

	s.handleClientLine("USER bob 0 * :Bob Realname")
	s.handleClientLine("USER bob 0 * :Someone Else")

	if s.Realname != "Bob Realname" {
		t.Errorf("Realname = %q, want the first USER's value preserved", s.Realname)
	}
}

func TestRegime3ForwardsUnknownCommandsVerbatim(t *testing.T) {
	s, up := newTestSession(t)
	s.clientStatus |= StatusAuthed | StatusGotNick | StatusGotUser
	s.serverStatus = ServerActive

	s.handleClientLine("TOPIC #general :new topic")

	if len(up.sent) != 1 {
		t.Fatalf("expected the unknown command forwarded upstream, got %v", up.sent)
	}
}

func TestRegime3QuitDetaches(t *testing.T) {
	s, up := newTestSession(t)
	s.class = testClass()
	s.clientStatus |= StatusAuthed | StatusGotNick | StatusGotUser
	s.serverStatus = ServerActive

	s.handleClientLine("QUIT :goodbye")

	if !s.Live() && s.dieOnClose {
		// dieOnClose wasn't requested by testClass(), so this branch
		// shouldn't be hit; Detach("goodbye") should run the genuine path.
		t.Fatal("unexpected dieOnClose path")
	}
	found := false
	for _, line := range up.sent {
		if line == "AWAY goodbye" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected QUIT's reason relayed as AWAY on detach, got %v", up.sent)
	}
}
