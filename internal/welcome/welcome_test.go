package welcome

import (
	"strings"
	"testing"
	"time"

	"github.com/presbrey/dircproxy/internal/channel"
	"github.com/presbrey/dircproxy/internal/ircmsg"
)

type recorder struct {
	lines []string
}

func (r *recorder) SendToClient(line string) {
	r.lines = append(r.lines, line)
}

func TestSendEmitsWelcomeNumericsInOrder(t *testing.T) {
	rec := &recorder{}
	var modes ircmsg.ModeSet
	modes = modes.Apply("+i")

	ch := channel.NewChannel("#general", "")
	ch.MarkJoined()

	Send(rec, Info{
		ServerName: "proxy.example",
		Nick:       "alice",
		User:       "alice",
		Host:       "host.example",
		StartedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Modes:      modes,
		MOTD:       []string{"hello"},
		Channels:   []*channel.Channel{ch},
	})

	codes := []string{"001", "002", "003", "004", "375", "372", "376"}
	for i, code := range codes {
		if !strings.Contains(rec.lines[i], " "+code+" ") {
			t.Errorf("line %d = %q, want numeric %s", i, rec.lines[i], code)
		}
	}

	var sawJoin, sawMode bool
	for _, l := range rec.lines {
		if strings.Contains(l, "JOIN #general") {
			sawJoin = true
		}
		if strings.Contains(l, "MODE alice +i") {
			sawMode = true
		}
	}
	if !sawJoin {
		t.Error("expected a self-prefixed JOIN for the active channel")
	}
	if !sawMode {
		t.Error("expected a mode replay line")
	}
}

func TestSendRendersNoMOTDNumeric(t *testing.T) {
	rec := &recorder{}
	Send(rec, Info{ServerName: "proxy.example", Nick: "alice", User: "alice", Host: "h", StartedAt: time.Now()})

	var saw422 bool
	for _, l := range rec.lines {
		if strings.Contains(l, " 422 ") {
			saw422 = true
		}
	}
	if !saw422 {
		t.Error("expected 422 when MOTD is empty")
	}
}

func TestSendSkipsInactiveAndUnjoinedChannels(t *testing.T) {
	rec := &recorder{}
	inactive := channel.NewChannel("#pending", "")
	unjoined := channel.NewChannel("#parted", "")
	unjoined.MarkJoined()
	unjoined.Unjoined = true

	Send(rec, Info{
		ServerName: "proxy.example", Nick: "alice", User: "alice", Host: "h", StartedAt: time.Now(),
		Channels: []*channel.Channel{inactive, unjoined},
	})

	for _, l := range rec.lines {
		if strings.Contains(l, "JOIN") {
			t.Errorf("unexpected JOIN line for inactive/unjoined channel: %q", l)
		}
	}
}
