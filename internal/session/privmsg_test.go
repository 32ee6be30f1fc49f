package session

import (
	"strings"
	"testing"

	"github.com/presbrey/dircproxy/internal/channel"
	"github.com/presbrey/dircproxy/internal/ircmsg"
)

func TestHandleOutboundMessageForwardsPlainText(t *testing.T) {
	s, up := newTestSession(t)
	s.class = testClass()

	msg := ircmsg.Parse("PRIVMSG #general :hello there")
	s.handleOutboundMessage(msg, false)

	if len(up.sent) != 1 {
		t.Fatalf("expected one upstream send, got %v", up.sent)
	}
	if !strings.Contains(up.sent[0], "%s") {
		t.Errorf("expected the format placeholder to be recorded, got %q", up.sent[0])
	}
}

func TestHandleOutboundMessageLogsToChannel(t *testing.T) {
	s, _ := newTestSession(t)
	s.class = testClass()
	s.Nickname = "alice"

	log := &recordingLog{}
	ch := channel.NewChannel("#general", "")
	ch.Log = log
	s.channels.AddChannel(ch)

	msg := ircmsg.Parse("PRIVMSG #general :hello there")
	s.handleOutboundMessage(msg, false)

	if len(log.msgs) != 1 || log.msgs[0] != "hello there" {
		t.Errorf("expected the message body logged, got %v", log.msgs)
	}
}

func TestHandleOutboundMessageDropsMalformedDCCWhenRejectOnFail(t *testing.T) {
	s, _ := newTestSession(t)
	s.class = testClass()
	s.class.DCC.ProxyOutgoing = true
	s.class.DCC.RejectOnFail = true
	s.Nickname = "alice"

	// A DCC CTCP with too few params is malformed per rewrite.go and
	// should be rejected, not forwarded.
	msg := ircmsg.Parse("PRIVMSG bob :\x01DCC CHAT chat\x01")
	s.handleOutboundMessage(msg, false)

	if len(s.relays) != 0 {
		t.Errorf("expected no relay to be created for a malformed DCC token, got %d", len(s.relays))
	}
}

type recordingLog struct {
	msgs []string
}

func (r *recordingLog) Open(name string) error  { return nil }
func (r *recordingLog) Close(name string) error { return nil }
func (r *recordingLog) Msg(target, source, text string) error {
	r.msgs = append(r.msgs, text)
	return nil
}
func (r *recordingLog) Notice(target, source, text string) error { return nil }
func (r *recordingLog) CTCP(target, source, command, text string) error { return nil }
func (r *recordingLog) Recall(src string, start, lines int, filter string) ([]string, error) {
	return nil, nil
}
func (r *recordingLog) AutoRecall(name string) ([]string, error) { return nil, nil }
