package session

import (
	"net"
	"testing"

	"github.com/presbrey/dircproxy/internal/class"
	"github.com/presbrey/dircproxy/internal/reactor"
)

func newAuthTestSession(t *testing.T, classes ...*class.Class) (*Session, *class.Registry) {
	t.Helper()
	sessionConn, clientConn := net.Pipe()
	t.Cleanup(func() { sessionConn.Close(); clientConn.Close() })
	go func() {
		buf := make([]byte, 4096)
		for {
			if _, err := clientConn.Read(buf); err != nil {
				return
			}
		}
	}()

	reg := class.NewRegistry(&class.Config{Classes: classes})
	s := New(sessionConn, Deps{
		Reactor:   reactor.New(),
		Classes:   reg,
		ServerTag: "proxy.test",
		Version:   "test",
	})
	s.upstream = &fakeUpstream{}
	return s, reg
}

func TestBindFreshBindsClassAndJoinsConfiguredChannels(t *testing.T) {
	c := &class.Class{
		Name:     "members",
		Channels: []class.ChannelConfig{{Name: "#lobby"}},
	}
	s, reg := newAuthTestSession(t, c)

	s.bindFresh(c)

	if s.class != c {
		t.Fatal("expected the session's class to be set")
	}
	if !s.clientStatus.has(StatusAuthed) {
		t.Error("expected StatusAuthed to be set after bindFresh")
	}
	if _, ok := s.channels.FetchChannel("#lobby"); !ok {
		t.Error("expected the class's configured channel to be pre-registered")
	}
	sess, ok := reg.FetchSession("members")
	if !ok {
		t.Fatal("expected the registry to bind this session under the class name")
	}
	if bound, ok := sess.(*Session); !ok || bound != s {
		t.Error("expected the bound session to be this session")
	}
}

func TestAuthenticateRejectsBadPassword(t *testing.T) {
	c := &class.Class{Name: "members", Password: "secret"}
	s, _ := newAuthTestSession(t, c)

	s.authenticate("wrong")

	if s.Live() {
		t.Error("expected a bad password to mark the session dead")
	}
	if s.class != nil {
		t.Error("expected no class to be bound on a failed match")
	}
}

func TestAuthenticateBindsOnMatch(t *testing.T) {
	c := &class.Class{Name: "members", Password: "secret"}
	s, _ := newAuthTestSession(t, c)

	s.authenticate("secret")

	if s.class == nil || s.class.Name != "members" {
		t.Errorf("expected the session bound to the matching class, got %+v", s.class)
	}
	if !s.Live() {
		t.Error("expected the session to remain live after a successful match")
	}
}

func TestAuthenticateReattachesToDetachedIncumbentEvenWithoutDisconnectExisting(t *testing.T) {
	c := &class.Class{Name: "members", Password: "secret", DisconnectExisting: false}
	incumbent, reg := newAuthTestSession(t, c)
	incumbent.bindFresh(c) // never Attach()ed, so StatusConnected is unset: a detached incumbent

	newcomer, _ := newAuthTestSession(t)
	newcomer.deps.Classes = reg
	newConn := newcomer.conn

	newcomer.authenticate("secret")

	if !newcomer.Live() {
		t.Fatal("expected the newcomer to reattach rather than being refused")
	}
	if incumbent.conn != newConn {
		t.Error("expected the incumbent's conn to be transplanted from the newcomer")
	}
}
