package session

import (
	"testing"

	"github.com/presbrey/dircproxy/internal/channel"
)

func TestSendWelcomeIfReadyRequestsTopicAndNamesUpstream(t *testing.T) {
	s, up := newTestSession(t)
	s.clientStatus = StatusGotNick | StatusGotUser | StatusAuthed
	s.serverStatus = ServerActive
	s.Nickname = "alice"
	s.Username = "alice"

	active := channel.NewChannel("#general", "")
	active.MarkJoined()
	pending := channel.NewChannel("#pending", "")
	s.channels.AddChannel(active)
	s.channels.AddChannel(pending)

	s.sendWelcomeIfReady()

	var sawTopic, sawNames, sawPendingRequest bool
	for _, line := range up.sent {
		if line == "TOPIC #general" {
			sawTopic = true
		}
		if line == "NAMES #general" {
			sawNames = true
		}
		if line == "TOPIC #pending" || line == "NAMES #pending" {
			sawPendingRequest = true
		}
	}
	if !sawTopic {
		t.Errorf("expected TOPIC requested upstream for the active channel, got %v", up.sent)
	}
	if !sawNames {
		t.Errorf("expected NAMES requested upstream for the active channel, got %v", up.sent)
	}
	if sawPendingRequest {
		t.Errorf("did not expect TOPIC/NAMES requested for an unjoined channel, got %v", up.sent)
	}
	if !s.clientStatus.has(StatusSentWelcome) {
		t.Error("expected StatusSentWelcome to be set")
	}
}
