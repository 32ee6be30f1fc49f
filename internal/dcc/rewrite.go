package dcc

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/presbrey/dircproxy/internal/ircmsg"
)

// RewriteOptions configures how an outbound DCC CTCP token is proxied.
type RewriteOptions struct {
	Allocator  *PortAllocator
	LocalAddr  net.IP
	SendFast   bool
	TunnelHost string
	TunnelPort int
}

// ProxyOutboundCTCP rewrites a DCC CHAT or SEND CTCP token so the remote
// peer connects to the proxy instead of the real client, allocating a
// relay to couple the two sides. The token's own name parameter (second
// DCC argument) and any trailing arguments pass through unchanged.
//
// ctcp.Command must be "DCC"; callers filter for that before calling in.
func ProxyOutboundCTCP(ctcp *ircmsg.CTCP, opts RewriteOptions, idleTimeout time.Duration, onDone func(*Relay)) (string, *Relay, error) {
	if len(ctcp.Params) < 4 {
		return "", nil, fmt.Errorf("malformed DCC token: need at least 4 params, got %d", len(ctcp.Params))
	}

	subcmd := ctcp.Params[0]
	name := ctcp.Params[1]
	rest := ctcp.Params[4:]

	var typ Type
	switch subcmd {
	case "CHAT":
		typ = Chat
	case "SEND":
		if opts.SendFast {
			typ = SendFast
		} else {
			typ = SendSimple
		}
	default:
		return "", nil, fmt.Errorf("unsupported DCC subcommand %q", subcmd)
	}

	remoteHost := ctcp.Params[2]
	remotePort, err := strconv.Atoi(ctcp.Params[3])
	if err != nil {
		return "", nil, fmt.Errorf("parsing DCC port %q: %w", ctcp.Params[3], err)
	}
	if ip, derr := DecodeAddress(remoteHost); derr == nil {
		remoteHost = ip.String()
	}
	if opts.TunnelPort > 0 {
		host := opts.TunnelHost
		if host == "" {
			host = "127.0.0.1"
		}
		remoteHost = host
		remotePort = opts.TunnelPort
	}

	relay, err := New(opts.Allocator, typ, remoteHost, remotePort, idleTimeout, onDone)
	if err != nil {
		return "", nil, err
	}

	params := append([]string{subcmd, name, EncodeAddressString(opts.LocalAddr), strconv.Itoa(relay.ListenPort)}, rest...)
	out := &ircmsg.CTCP{Command: "DCC", Params: params}
	return ircmsg.Encode(out.Command, strings.Join(out.Params, " ")), relay, nil
}

// RejectNotice renders the inline CTCP REJECT notice line sent to the
// client in place of a DCC token the proxy could not set up.
func RejectNotice(serverName, nick, subcmd, name string) string {
	body := fmt.Sprintf("\x01DCC REJECT %s %s\x01", subcmd, name)
	return ircmsg.Build(serverName, "NOTICE", nick, body)
}
