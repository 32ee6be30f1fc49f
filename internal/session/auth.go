package session

import (
	"net"
	"strings"

	"github.com/presbrey/dircproxy/internal/channel"
	"github.com/presbrey/dircproxy/internal/class"
	"github.com/presbrey/dircproxy/internal/reactor"
)

// authenticate runs the Authentication procedure (§4.E) against the
// password the client just sent with PASS. It needs the client's nick
// already set if the client front-loaded NICK before PASS, which regime1
// tolerates.
func (s *Session) authenticate(password string) {
	host := s.peerHost()
	matched := s.deps.Classes.Match(password, host)
	if matched == nil {
		s.SendNumeric(464, "Bad Password")
		s.SendToClient("ERROR :Closing Link: Bad Password")
		s.markDead()
		return
	}

	if incumbent, ok := s.deps.Classes.FetchSession(matched.Name); ok {
		live, isSession := incumbent.(*Session)
		if !isSession {
			s.bindFresh(matched)
			return
		}
		if !live.clientStatus.has(StatusConnected) {
			// Incumbent is already detached: fall straight through to
			// reattach, with no disconnect-existing gating at all.
			s.reattachInto(live, matched)
			return
		}
		if !matched.DisconnectExisting {
			s.SendToClient("ERROR :Already connected")
			s.markDead()
			return
		}
		live.SendToClient("ERROR :Collided with new user")
		live.Detach("") // may mark live dead (die_on_close) or leave it reattachable
		if live.Live() {
			s.reattachInto(live, matched)
			return
		}
	}

	s.bindFresh(matched)
}

// peerHost is the value matched against a class's host_masks: the
// reverse-resolved hostname if Attach's DNS lookup completed in time,
// otherwise the client's raw address.
func (s *Session) peerHost() string {
	if s.Hostname != "" {
		return s.Hostname
	}
	return s.rawPeerHost()
}

func (s *Session) rawPeerHost() string {
	if s.conn == nil {
		return ""
	}
	addr := s.conn.RemoteAddr().String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// bindFresh implements the "otherwise bind fresh" path of Authentication.
func (s *Session) bindFresh(c *class.Class) {
	s.class = c
	s.clientStatus |= StatusAuthed
	s.dieOnClose = c.DisconnectOnDetach
	s.deps.Reactor.TimerDel(s.id, "client_auth")
	s.deps.Classes.Bind(c.Name, s)

	if s.deps.Metrics != nil {
		s.deps.Metrics.SessionsTotal.Inc()
		s.deps.Metrics.SessionsActive.Inc()
		s.deps.Metrics.ClassMatches.WithLabelValues(c.Name).Inc()
	}

	for _, ch := range c.Channels {
		s.channels.AddChannel(channel.NewChannel(ch.Name, ch.Key))
	}

	s.checkRegistrationComplete()
}

// reattachInto transplants this session's freshly authenticated client
// socket into incumbent, which stays the surviving session; this
// session's shell is discarded.
func (s *Session) reattachInto(incumbent *Session, c *class.Class) {
	incumbent.conn = s.conn
	incumbent.writer = s.writer
	incumbent.deps.Reactor.Deregister(incumbent.id)
	incumbent.clientStatus |= StatusConnected | StatusAuthed
	incumbent.deps.Reactor.RegisterSocket(incumbent.id, incumbent.conn, reactor.SocketHandlerFuncs{
		Readable: incumbent.onClientReadable,
		Error:    incumbent.onClientError,
	})

	if s.Nickname != "" && s.Nickname != incumbent.Nickname {
		incumbent.Nickname = s.Nickname
		incumbent.upstream.SendPeerCommand("NICK", s.Nickname)
	}

	if incumbent.away == "" && c.AwayMessage != "" {
		incumbent.away = ""
		incumbent.upstream.SendPeerCommand("AWAY")
	}

	for _, ch := range incumbent.channels.Channels() {
		if ch.Unjoined {
			if ch.Key != "" {
				incumbent.upstream.SendPeerCommand("JOIN", ch.Name, ch.Key)
			} else {
				incumbent.upstream.SendPeerCommand("JOIN", ch.Name)
			}
			ch.MarkJoined()
		}
	}

	if c.AttachMessage != "" {
		incumbent.announceToActiveChannels(c.AttachMessage)
	}

	incumbent.sendWelcomeIfReady()
	s.conn = nil // ownership transplanted; this shell must not close it
}

func (s *Session) announceToActiveChannels(message string) {
	isAction := strings.HasPrefix(message, "/me ")
	text := message
	if isAction {
		text = strings.TrimPrefix(message, "/me ")
	}
	for _, ch := range s.channels.Channels() {
		if ch.Inactive || ch.Unjoined {
			continue
		}
		if isAction {
			s.upstream.SendPeerCommand("PRIVMSG", ch.Name, "\x01ACTION "+text+"\x01")
		} else {
			s.upstream.SendPeerCommand("PRIVMSG", ch.Name, text)
		}
	}
}
