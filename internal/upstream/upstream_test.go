package upstream

import (
	"net"
	"testing"
)

// fakeSession is a minimal Session used to exercise code that depends on
// the contract without dialing a real server.
type fakeSession struct {
	sent  []string
	ready bool
	ev    chan Event
}

func newFakeSession() *fakeSession {
	return &fakeSession{ev: make(chan Event, 16)}
}

func (f *fakeSession) Connect() error      { return nil }
func (f *fakeSession) CloseSock()          {}
func (f *fakeSession) ConnectAgain() error { return nil }
func (f *fakeSession) ResetIdle()          {}
func (f *fakeSession) SendCommand(format string, args ...any) error {
	f.sent = append(f.sent, format)
	return nil
}
func (f *fakeSession) SendPeerCommand(command string, params ...string) error {
	f.sent = append(f.sent, command)
	return nil
}
func (f *fakeSession) Ready() bool          { return f.ready }
func (f *fakeSession) Events() <-chan Event { return f.ev }
func (f *fakeSession) LocalAddr() net.Addr  { return nil }

func TestFakeSessionSatisfiesContract(t *testing.T) {
	var s Session = newFakeSession()
	if s.Ready() {
		t.Error("fresh session should not be ready")
	}
	if err := s.SendPeerCommand("NICK", "alice"); err != nil {
		t.Fatalf("SendPeerCommand: %v", err)
	}
}

func TestNewGircSessionStartsUnready(t *testing.T) {
	g := NewGircSession(Config{Host: "irc.example.com", Port: 6667, Nick: "alice", User: "alice"})
	if g.Ready() {
		t.Error("newly constructed session should not be Ready before connecting")
	}
}
