package session

import (
	"time"

	"github.com/presbrey/dircproxy/internal/ircmsg"
	"github.com/presbrey/dircproxy/internal/upstream"
)

// connectUpstream dials the session's class's current server and starts
// draining its events onto the reactor goroutine. Called once the client
// has completed NICK/USER and no other session is already bound to the
// class (checkRegistrationComplete enforces both).
func (s *Session) connectUpstream() {
	srv, ok := s.class.NextServer()
	if !ok {
		s.SendToClient("NOTICE AUTH :No server configured for this connection class")
		return
	}

	cfg := upstream.Config{
		Host:     srv.Host,
		Port:     srv.Port,
		Pass:     srv.Pass,
		Nick:     s.Nickname,
		User:     s.Username,
		RealName: s.Realname,
	}
	if s.class.IdlePingInterval > 0 {
		cfg.PingInterval = time.Duration(s.class.IdlePingInterval) * time.Second
	}

	up := upstream.NewGircSession(cfg)
	s.upstream = up
	s.serverStatus = ServerCreated

	go s.drainUpstream(up)

	if err := up.Connect(); err != nil {
		s.serverStatus = 0
		s.SendToClient("NOTICE AUTH :Could not connect to " + srv.String())
	}
}

// drainUpstream runs on its own goroutine for the lifetime of one upstream
// session, forwarding every event onto the reactor so the handling itself
// happens on the single thread session state belongs to.
func (s *Session) drainUpstream(up upstream.Session) {
	for ev := range up.Events() {
		e := ev
		s.deps.Reactor.Post(func() {
			if s.upstream != up {
				// A newer upstream session (JUMP, reconnect) has already
				// replaced this one; this goroutine's events are stale.
				return
			}
			s.onUpstreamEvent(e)
		})
	}
}

func (s *Session) onUpstreamEvent(ev upstream.Event) {
	if ev.Err != nil {
		s.onUpstreamLost(ev.Err)
		return
	}

	msg := ircmsg.Parse(ev.Line)
	if msg == nil {
		return
	}

	switch msg.Command {
	case "001":
		s.serverStatus = ServerConnected | ServerActive
		s.sendWelcomeIfReady()
	case "433":
		if !s.serverStatus.has(ServerActive) {
			next := ircmsg.GenerateNick(s.Nickname)
			s.Nickname = next
			s.upstream.SendPeerCommand("NICK", next)
		} else {
			s.forward(msg)
		}
	case "PING":
		// girc answers PING itself; nothing to relay.
	default:
		if s.serverStatus.has(ServerActive) {
			s.SendToClient(ev.Line)
		}
	}
}

// onUpstreamLost handles an upstream connection ending, whether cleanly or
// by error. The client is notified; reconnection is left to an explicit
// /DIRCPROXY JUMP or the next attach, per spec.md's non-goal of automatic
// server failover within a class.
func (s *Session) onUpstreamLost(err error) {
	wasActive := s.serverStatus.has(ServerActive)
	s.serverStatus = 0
	if wasActive && s.conn != nil {
		s.SendToClient("NOTICE AUTH :Disconnected from server: " + err.Error())
	}
}

