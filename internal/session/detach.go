package session

import (
	"strings"

	"github.com/presbrey/dircproxy/internal/ircmsg"
)

// Detach implements _ircclient_detach (§4.E). message is the optional
// QUIT/DETACH reason the client supplied, if any.
func (s *Session) Detach(message string) {
	if s.dieOnClose {
		s.detachDying(message)
		return
	}
	s.detachGenuine(message)
}

func (s *Session) detachDying(message string) {
	if s.upstream != nil && s.serverStatus.has(ServerConnected) {
		quitMsg := ""
		if s.class != nil {
			quitMsg = s.class.QuitMessage
		}
		reason := firstNonEmpty(message, quitMsg, "dircproxy")
		s.upstream.SendCommand("QUIT :%s", reason)
		s.upstream.CloseSock()
	}
	s.markDead()
}

// detachGenuine runs the 8 numbered steps of a non-dying detach.
func (s *Session) detachGenuine(message string) {
	// Step 1: no "You disconnected" line is logged; this package has no
	// session-level log, and LogClient is not consulted.

	// Step 2: nickname substitution.
	if s.class != nil && s.class.DetachNickname != "" && s.clientStatus.has(StatusSentWelcome) {
		newNick := substituteStar(s.class.DetachNickname, s.Nickname)
		s.Nickname = newNick
		if s.upstream != nil {
			s.upstream.SendPeerCommand("NICK", newNick)
		}
	}

	// Step 3: detach message to active channels.
	if s.class != nil && s.class.DetachMessage != "" && s.serverStatus.has(ServerActive) {
		s.announceToActiveChannels(s.class.DetachMessage)
	}

	// Step 4: away.
	if message != "" {
		if s.upstream != nil {
			s.upstream.SendPeerCommand("AWAY", message)
		}
		s.away = message
	} else if s.away == "" && s.class != nil && s.class.AwayMessage != "" {
		if s.upstream != nil {
			s.upstream.SendPeerCommand("AWAY", s.class.AwayMessage)
		}
		s.away = s.class.AwayMessage
	}

	// Step 5: channel leave.
	if s.class != nil && s.class.ChannelLeaveOnDetach {
		for _, ch := range s.channels.Channels() {
			if ch.Inactive || ch.Unjoined {
				continue
			}
			if s.upstream != nil {
				s.upstream.SendPeerCommand("PART", ch.Name)
			}
			if s.class.ChannelRejoinOnAttach {
				ch.Unjoined = true
			} else {
				s.channels.DelChannel(ch.Name)
			}
		}
	}

	// Step 6: drop modes.
	if s.class != nil && s.class.DropModes != "" {
		drop := ircmsg.Minus(s.modes, s.class.DropModes)
		if drop != "" {
			if s.upstream != nil {
				s.upstream.SendPeerCommand("MODE", s.Nickname, drop)
			}
			s.modes = s.modes.Apply(drop)
		}
	}

	// Step 7: per-session logs opened on-attach-only would be (re)opened
	// here; logging is delegated to the log collaborator (component F).

	// Step 8: close client.
	s.closeClient()
}

func substituteStar(template, nick string) string {
	if !strings.Contains(template, "*") {
		return template
	}
	return strings.Replace(template, "*", nick, 1)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
