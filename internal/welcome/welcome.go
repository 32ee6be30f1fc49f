// Package welcome renders the numerics and state replay a client receives
// once its session becomes fully attached to an active server connection.
package welcome

import (
	"fmt"
	"strings"
	"time"

	"github.com/presbrey/dircproxy/internal/channel"
	"github.com/presbrey/dircproxy/internal/ircmsg"
)

// Sender is the minimal capability the renderer needs: write a line to
// the client. Session implements this directly.
type Sender interface {
	SendToClient(line string)
}

// Info carries everything the welcome sequence needs to know about the
// session being welcomed.
type Info struct {
	ServerName string
	Version    string
	Nick       string
	User       string
	Host       string
	StartedAt  time.Time
	Modes      ircmsg.ModeSet
	Away       string
	MOTD       []string // nil/empty renders 422 instead of 375/372.../376
	Channels   []*channel.Channel
}

// Send emits the full welcome sequence: 001-004, MOTD, mode replay, away
// replay, and a self-prefixed JOIN per active channel. The real TOPIC and
// NAMES replies are re-requested from the server separately, so they reach
// the client through the normal passthrough path with genuine content.
func Send(s Sender, info Info) {
	numeric(s, info, "001", fmt.Sprintf("Welcome to the Internet Relay Network %s", selfPrefix(info)))
	numeric(s, info, "002", fmt.Sprintf("Your host is %s, running version %s", info.ServerName, version(info)))
	numeric(s, info, "003", fmt.Sprintf("This server was created %s", info.StartedAt.Format("Mon, 02 Jan 2006 15:04:05 -0700")))
	numeric(s, info, "004", fmt.Sprintf("%s %s", info.ServerName, version(info)))

	sendMOTD(s, info)

	if len(info.Modes) > 0 {
		s.SendToClient(ircmsg.Build(selfPrefix(info), "MODE", info.Nick, info.Modes.String()))
	}
	if info.Away != "" {
		numeric(s, info, "306", "You have been marked as being away")
	}

	for _, ch := range info.Channels {
		if ch.Inactive || ch.Unjoined {
			continue
		}
		s.SendToClient(ircmsg.Build(selfPrefix(info), "JOIN", ch.Name))
	}
}

// SendMOTD renders just the MOTD numerics (375/372.../376, or 422 when
// empty), independent of the rest of the welcome sequence. Used by the
// /DIRCPROXY MOTD command to redisplay it on demand.
func SendMOTD(s Sender, info Info) { sendMOTD(s, info) }

func sendMOTD(s Sender, info Info) {
	if len(info.MOTD) == 0 {
		numeric(s, info, "422", "MOTD File is missing")
		return
	}
	numeric(s, info, "375", fmt.Sprintf("- %s Message of the day -", info.ServerName))
	for _, line := range info.MOTD {
		numeric(s, info, "372", "- "+line)
	}
	numeric(s, info, "376", "End of MOTD command")
}

func numeric(s Sender, info Info, code, text string) {
	s.SendToClient(ircmsg.Build(info.ServerName, code, info.Nick, text))
}

func selfPrefix(info Info) string {
	return fmt.Sprintf("%s!%s@%s", info.Nick, info.User, info.Host)
}

func version(info Info) string {
	if info.Version == "" {
		return "dircproxy"
	}
	return strings.TrimSpace(info.Version)
}
