package session

import (
	"net"
	"testing"

	"github.com/presbrey/dircproxy/internal/class"
	"github.com/presbrey/dircproxy/internal/reactor"
	"github.com/presbrey/dircproxy/internal/upstream"
)

// fakeLocalAddr is returned by fakeUpstream.LocalAddr for tests that need a
// deterministic server-facing address to rewrite into DCC tokens.
var fakeLocalAddr net.Addr = &net.TCPAddr{IP: net.IPv4(10, 0, 0, 5), Port: 6667}

// fakeUpstream records every command sent to it instead of talking to a
// real server, so tests can assert on what the session would have relayed.
type fakeUpstream struct {
	sent   []string
	closed bool
	ready  bool
}

func (f *fakeUpstream) Connect() error      { return nil }
func (f *fakeUpstream) CloseSock()          { f.closed = true }
func (f *fakeUpstream) ConnectAgain() error { return nil }
func (f *fakeUpstream) ResetIdle()          {}
func (f *fakeUpstream) SendCommand(format string, args ...any) error {
	f.sent = append(f.sent, format)
	return nil
}
func (f *fakeUpstream) SendPeerCommand(command string, params ...string) error {
	line := command
	for _, p := range params {
		line += " " + p
	}
	f.sent = append(f.sent, line)
	return nil
}
func (f *fakeUpstream) Ready() bool                   { return f.ready }
func (f *fakeUpstream) Events() <-chan upstream.Event { return nil }
func (f *fakeUpstream) LocalAddr() net.Addr           { return fakeLocalAddr }

// newTestSession builds a Session wired to an in-memory pipe and a
// fakeUpstream, bypassing the reactor's socket/timer machinery (tests
// drive state transitions directly rather than through Attach).
func newTestSession(t *testing.T) (*Session, *fakeUpstream) {
	t.Helper()
	sessionConn, clientConn := net.Pipe()
	t.Cleanup(func() { sessionConn.Close(); clientConn.Close() })

	// Drain whatever the session writes to the client so SendToClient's
	// synchronous net.Pipe write never blocks the test goroutine.
	go func() {
		buf := make([]byte, 4096)
		for {
			if _, err := clientConn.Read(buf); err != nil {
				return
			}
		}
	}()

	s := New(sessionConn, Deps{
		Reactor:   reactor.New(),
		ServerTag: "proxy.test",
		Version:   "test",
	})
	up := &fakeUpstream{}
	s.upstream = up
	return s, up
}

func testClass() *class.Class {
	return &class.Class{
		Name: "default",
	}
}
