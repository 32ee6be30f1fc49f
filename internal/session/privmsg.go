package session

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/presbrey/dircproxy/internal/dcc"
	"github.com/presbrey/dircproxy/internal/ircmsg"
)

// handleOutboundMessage implements the CTCP/DCC rewrite step of regime 3's
// PRIVMSG/NOTICE handling: DCC CHAT/SEND tokens are proxied through a relay
// when the class enables it, ACTION and plain text are logged per channel,
// and a message that ends up carrying no text at all (a bare CTCP that got
// dropped, or an empty body) is suppressed rather than forwarded empty.
func (s *Session) handleOutboundMessage(msg *ircmsg.Message, isNotice bool) {
	if s.upstream != nil {
		s.upstream.ResetIdle()
	}
	if len(msg.Params) < 2 {
		s.forward(msg)
		return
	}
	target := msg.Param(0)
	body := msg.Trailing()

	parts := ircmsg.StripCTCP(body)
	out := make([]ircmsg.Part, 0, len(parts))

	for _, p := range parts {
		if !p.IsCTCP {
			if p.Text != "" {
				s.logMessage(target, p.Text, isNotice)
			}
			out = append(out, p)
			continue
		}

		if p.CTCP.Command == "DCC" && s.class != nil && s.class.DCC.ProxyOutgoing {
			if rewritten, ok := s.rewriteDCC(p.CTCP); ok {
				p.CTCP.Orig = rewritten
				out = append(out, p)
			}
			continue
		}

		if p.CTCP.Command == "ACTION" {
			s.logMessage(target, strings.Join(p.CTCP.Params, " "), isNotice)
		}
		out = append(out, p)
	}

	text := ircmsg.JoinParts(out)
	if text == "" {
		return
	}

	command := "PRIVMSG"
	if isNotice {
		command = "NOTICE"
	}
	s.upstream.SendCommand("%s", ircmsg.Build("", command, target, text))
}

func (s *Session) logMessage(target, text string, isNotice bool) {
	ch, ok := s.channels.FetchChannel(target)
	if !ok || ch.Log == nil {
		return
	}
	if isNotice {
		ch.Log.Notice(target, s.Nickname, text)
	} else {
		ch.Log.Msg(target, s.Nickname, text)
	}
}

// rewriteDCC runs the DCC CTCP through the proxy rewrite, returning the
// token's new (still un-delimited) payload and whether it should be kept in
// the outbound message. On failure the token is always dropped; a
// RejectNotice is sent to the client only when the class sets RejectOnFail.
func (s *Session) rewriteDCC(ctcp *ircmsg.CTCP) (string, bool) {
	opts := dcc.RewriteOptions{
		Allocator:  s.deps.Allocator,
		LocalAddr:  s.dccLocalAddr(),
		SendFast:   s.class.DCC.SendFast,
		TunnelHost: s.class.DCC.TunnelHost,
		TunnelPort: s.class.DCC.TunnelPort,
	}
	idleTimeout := 5 * time.Minute

	s.dccSeq++
	name := fmt.Sprintf("%s-%d", s.id, s.dccSeq)

	encoded, relay, err := dcc.ProxyOutboundCTCP(ctcp, opts, idleTimeout, s.onRelayDone(name))
	if err != nil {
		if s.class.DCC.RejectOnFail {
			subcmd, rname := "", ""
			if len(ctcp.Params) > 0 {
				subcmd = ctcp.Params[0]
			}
			if len(ctcp.Params) > 1 {
				rname = ctcp.Params[1]
			}
			s.SendToClient(dcc.RejectNotice(s.deps.ServerTag, s.Nickname, subcmd, rname))
		}
		return "", false
	}

	s.relays[name] = relay
	if s.deps.Metrics != nil {
		s.deps.Metrics.DCCRelaysActive.Inc()
	}
	// encoded is the full "\x01DCC ...\x01" token; CTCP.Orig only wants the
	// payload between the delimiters.
	return strings.TrimSuffix(strings.TrimPrefix(encoded, "\x01"), "\x01"), true
}

func (s *Session) onRelayDone(name string) func(*dcc.Relay) {
	return func(r *dcc.Relay) {
		s.deps.Reactor.Post(func() {
			delete(s.relays, name)
			if s.deps.Metrics != nil {
				s.deps.Metrics.DCCRelaysActive.Dec()
				s.deps.Metrics.DCCBytesTotal.WithLabelValues("local_to_remote").Add(float64(r.BytesLocalToRemote))
				s.deps.Metrics.DCCBytesTotal.WithLabelValues("remote_to_local").Add(float64(r.BytesRemoteToLocal))
			}
		})
	}
}

// dccLocalAddr is the address announced to the remote peer in a rewritten
// DCC token: the proxy's server-side local IP (the socket connected to the
// IRC server), since that is the address the remote peer's DCC connection
// must actually reach on the network.
func (s *Session) dccLocalAddr() net.IP {
	if s.upstream != nil {
		if tcp, ok := s.upstream.LocalAddr().(*net.TCPAddr); ok {
			return tcp.IP
		}
	}
	return net.IPv4(127, 0, 0, 1)
}
