package session

import (
	"strings"
	"time"

	"github.com/presbrey/dircproxy/internal/ircmsg"
	"github.com/presbrey/dircproxy/internal/reactor"
)

// handleClientLine parses one line from the client socket and dispatches
// it through whichever of the four regimes currently applies.
func (s *Session) handleClientLine(line string) {
	msg := ircmsg.Parse(line)
	if msg == nil {
		return // malformed line: protocol error, drop silently
	}
	cmd := strings.ToUpper(msg.Command)

	if cmd == "DIRCPROXY" {
		s.handleDircproxy(msg.Params)
		return
	}

	switch {
	case !s.clientStatus.has(StatusAuthed):
		s.regime1(cmd, msg)
	case !(s.clientStatus.has(StatusGotNick) && s.clientStatus.has(StatusGotUser)):
		s.regime2(cmd, msg)
	case s.serverStatus.has(ServerActive):
		s.regime3(cmd, msg)
	default:
		s.SendNumeric(263, "Please wait a while and try again.")
	}
}

// Regime 1 — unauthenticated.
func (s *Session) regime1(cmd string, msg *ircmsg.Message) {
	switch cmd {
	case "PASS":
		if len(msg.Params) == 0 {
			s.SendNumeric(461, "PASS :Not enough parameters")
			return
		}
		s.authenticate(msg.Param(0))
	case "NICK":
		if len(msg.Params) == 0 {
			s.SendNumeric(431, "No nickname given")
			return
		}
		s.Nickname = msg.Param(0)
		s.clientStatus |= StatusGotNick
	default:
		s.SendToClient("NOTICE AUTH :Please send /QUOTE PASS <password>")
	}
}

// Regime 2 — authed but incomplete (NICK/USER still outstanding).
func (s *Session) regime2(cmd string, msg *ircmsg.Message) {
	switch cmd {
	case "NICK":
		if len(msg.Params) == 0 {
			s.SendNumeric(431, "No nickname given")
			return
		}
		s.Nickname = msg.Param(0)
		s.clientStatus |= StatusGotNick
		s.checkRegistrationComplete()
	case "USER":
		if len(msg.Params) < 4 {
			s.SendNumeric(461, "USER :Not enough parameters")
			return
		}
		// Idempotent: repeated USER transitions must not overwrite an
		// already-captured identity.
		if !s.clientStatus.has(StatusGotUser) {
			s.Username = msg.Param(0)
			s.Realname = msg.Param(3)
			s.applyRegisteredModeMask(msg.Param(1))
		}
		s.clientStatus |= StatusGotUser
		s.checkRegistrationComplete()
	default:
		s.SendToClient("NOTICE AUTH :Please complete registration with NICK and USER")
	}
}

// applyRegisteredModeMask interprets the RFC 2812 USER mode bitmask
// parameter. Per the source's observed (and retained) behaviour, both
// bit 2 and bit 3 set +w; bit 3 does not set +i, even though RFC 2812
// assigns bit 3 to invisible.
func (s *Session) applyRegisteredModeMask(raw string) {
	mask := atoiOr(raw, 0)
	if mask&0x4 != 0 || mask&0x8 != 0 {
		s.modes = s.modes.Apply("+w")
	}
}

func (s *Session) checkRegistrationComplete() {
	if !(s.clientStatus.has(StatusGotNick) && s.clientStatus.has(StatusGotUser)) {
		return
	}
	if s.class == nil {
		return
	}
	if other, bound := s.deps.Classes.FetchSession(s.class.Name); !bound || other == s {
		if s.class.ServerAutoconnect {
			s.connectUpstream()
		} else {
			s.SendToClient("NOTICE AUTH :Use /DIRCPROXY JUMP <n|host> to choose a server")
			s.armClientConnectTimeout()
		}
	}
	if s.serverStatus.has(ServerActive) {
		s.sendWelcomeIfReady()
	}
}

// Regime 3 — fully connected, server ACTIVE.
func (s *Session) regime3(cmd string, msg *ircmsg.Message) {
	switch cmd {
	case "PASS", "USER", "PONG":
		// handled/ignored locally
	case "QUIT":
		s.Detach(msg.Param(0))
	case "NICK":
		s.handleClientNick(msg)
	case "AWAY":
		s.away = msg.Param(0)
		s.forward(msg)
	case "MOTD":
		s.allowMOTD = true
		s.forward(msg)
	case "PING":
		s.allowPong = true
		s.forward(msg)
	case "PRIVMSG":
		s.handleOutboundMessage(msg, false)
	case "NOTICE":
		s.handleOutboundMessage(msg, true)
	default:
		s.forward(msg)
	}
}

func (s *Session) handleClientNick(msg *ircmsg.Message) {
	newNick := msg.Param(0)
	if newNick == "" || newNick == s.Nickname {
		return
	}
	s.Nickname = newNick
	s.upstream.SendPeerCommand("NICK", newNick)
}

// forward writes msg verbatim to the upstream server, reconstructing it
// through the codec so canonical quoting is preserved regardless of how
// the client originally formatted it.
func (s *Session) forward(msg *ircmsg.Message) {
	if s.upstream == nil {
		return
	}
	s.upstream.SendCommand("%s", ircmsg.Build("", msg.Command, msg.Params...))
}

func (s *Session) armClientConnectTimeout() {
	timeout := 120 * time.Second
	if s.class != nil && s.class.ConnectTimeout > 0 {
		timeout = time.Duration(s.class.ConnectTimeout) * time.Second
	}
	s.deps.Reactor.TimerNew(s.id, "client_connect", timeout, func(owner reactor.Owner, name string) {
		if s.serverStatus.has(ServerActive) {
			return
		}
		s.SendToClient("ERROR :Closing Link: (Connect Timeout)")
		s.closeClient()
	})
}
