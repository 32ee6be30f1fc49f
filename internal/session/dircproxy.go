package session

import (
	"strconv"
	"strings"

	"github.com/presbrey/dircproxy/internal/class"
	"github.com/presbrey/dircproxy/internal/welcome"
)

// handleDircproxy dispatches the /DIRCPROXY extension command set. It runs
// in every regime, including while the server is not yet ACTIVE.
func (s *Session) handleDircproxy(params []string) {
	if len(params) == 0 {
		s.SendNumeric(461, "DIRCPROXY :Not enough parameters")
		return
	}
	sub := strings.ToUpper(params[0])
	rest := params[1:]

	switch sub {
	case "RECALL":
		s.dircproxyRecall(rest)
	case "PERSIST":
		s.dircproxyPersist()
	case "DETACH":
		s.dircproxyDetach(rest)
	case "QUIT":
		s.dircproxyQuit(rest)
	case "MOTD":
		s.sendMOTDOnly()
	case "DIE":
		s.dircproxyDie()
	case "SERVERS":
		s.dircproxyServers()
	case "JUMP", "CONNECT":
		s.dircproxyJump(rest)
	case "HOST":
		s.dircproxyHost(rest)
	case "HELP":
		s.dircproxyHelp(rest)
	default:
		s.SendNumeric(421, sub+" :Unknown DIRCPROXY command")
	}
}

func (s *Session) dircproxyRecall(params []string) {
	if s.class == nil {
		return
	}
	var src, filter string
	lines := 20
	rest := params

	if len(rest) > 0 {
		if ch, ok := s.channels.FetchChannel(rest[0]); ok {
			src = ch.Name
			rest = rest[1:]
		} else if _, err := strconv.Atoi(rest[0]); err != nil && !strings.EqualFold(rest[0], "ALL") {
			filter = rest[0]
			rest = rest[1:]
		}
	}

	if len(rest) > 0 {
		if strings.EqualFold(rest[0], "ALL") {
			lines = -1
		} else if n, err := strconv.Atoi(rest[0]); err == nil {
			lines = n
		}
	}

	var logSource interface {
		Recall(src string, start, lines int, filter string) ([]string, error)
	}
	if src != "" {
		if ch, ok := s.channels.FetchChannel(src); ok {
			logSource = ch.Log
		}
	}
	if logSource == nil {
		s.SendToClient("NOTICE AUTH :No log available to recall")
		return
	}

	out, err := logSource.Recall(src, 0, lines, filter)
	if err != nil {
		s.SendToClient("NOTICE AUTH :Recall failed: " + err.Error())
		return
	}
	for _, line := range out {
		s.SendToClient("NOTICE " + s.Nickname + " :" + line)
	}
}

func (s *Session) dircproxyPersist() {
	if s.class == nil || !s.class.AllowPersist {
		s.SendNumeric(421, "PERSIST :Not permitted")
		return
	}
	if !s.dieOnClose {
		s.SendToClient("NOTICE AUTH :Already persistent")
		return
	}
	if s.viaInetd {
		s.dieOnClose = false
		s.viaInetd = false
		s.SendToClient("NOTICE AUTH :Now persistent")
		return
	}
	s.dieOnClose = false
	s.SendToClient("NOTICE AUTH :Now persistent")
}

func (s *Session) dircproxyDetach(params []string) {
	message := ""
	if len(params) > 0 {
		message = strings.Join(params, " ")
	}
	s.SendToClient("NOTICE AUTH :Detaching")
	s.SendToClient("ERROR :Closing Link: (Requested detach)")
	s.Detach(message)
}

func (s *Session) dircproxyQuit(params []string) {
	reason := "dircproxy"
	if len(params) > 0 {
		reason = strings.Join(params, " ")
	} else if s.class != nil && s.class.QuitMessage != "" {
		reason = s.class.QuitMessage
	}
	if s.upstream != nil && s.serverStatus.has(ServerConnected) {
		s.upstream.SendCommand("QUIT :%s", reason)
		s.upstream.CloseSock()
	}
	s.markDead()
}

func (s *Session) sendMOTDOnly() {
	welcome.SendMOTD(s, s.welcomeInfo())
}

func (s *Session) dircproxyDie() {
	if s.class == nil || !s.class.AllowDie {
		s.SendNumeric(421, "DIE :Not permitted")
		return
	}
	s.SendToClient("NOTICE AUTH :Shutting down")
	// This ends only this session: dieOnClose is forced and the session is
	// marked dead. Nothing here or in the daemon shuts the process down.
	s.dieOnClose = true
	s.markDead()
}

func (s *Session) dircproxyServers() {
	if s.class == nil {
		return
	}
	cur := s.class.NextServerIndex()
	for i, srv := range s.class.Servers {
		marker := " "
		if i == cur {
			marker = ">"
		}
		s.SendToClient("NOTICE AUTH :" + marker + " " + strconv.Itoa(i+1) + ". " + srv.String())
	}
}

func (s *Session) dircproxyJump(params []string) {
	if s.class == nil || !s.class.AllowJump {
		s.SendNumeric(421, "JUMP :Not permitted")
		return
	}
	if len(params) == 0 {
		s.SendNumeric(461, "JUMP :Not enough parameters")
		return
	}

	target := params[0]
	if idx, err := strconv.Atoi(target); err == nil {
		if idx < 1 || idx > len(s.class.Servers) {
			s.SendToClient("NOTICE AUTH :No such server index")
			return
		}
		s.class.SetNextServerIndex(idx - 1)
		s.reconnectUpstream()
		return
	}

	for i, srv := range s.class.Servers {
		if srv.Host == target || srv.String() == target {
			s.class.SetNextServerIndex(i)
			s.reconnectUpstream()
			return
		}
	}

	if !s.class.AllowJumpNew {
		s.SendToClient("NOTICE AUTH :No such server")
		return
	}
	srv := parseServerSpec(target)
	idx := s.class.AppendServer(srv)
	s.class.SetNextServerIndex(idx)
	s.reconnectUpstream()
}

func parseServerSpec(spec string) class.Server {
	srv := class.Server{Port: 6667}
	fields := strings.Split(spec, ":")
	if len(fields) > 0 {
		srv.Host = fields[0]
	}
	if len(fields) > 1 {
		if p, err := strconv.Atoi(fields[1]); err == nil {
			srv.Port = p
		}
	}
	if len(fields) > 2 {
		srv.Pass = fields[2]
	}
	return srv
}

func (s *Session) dircproxyHost(params []string) {
	if s.class == nil || !s.class.AllowHost {
		s.SendNumeric(421, "HOST :Not permitted")
		return
	}
	// This announces the local-address change and retriggers the
	// reconnect the same way JUMP does. The given address is not stored:
	// upstream.Config has no bind-address field, so the reconnect dials
	// with the same local address as before.
	switch {
	case len(params) == 0:
		s.SendToClient("NOTICE AUTH :Local address reset")
	case strings.EqualFold(params[0], "NONE"):
		s.SendToClient("NOTICE AUTH :Local address cleared")
	default:
		s.SendToClient("NOTICE AUTH :Local address set to " + params[0])
	}
	s.reconnectUpstream()
}

func (s *Session) reconnectUpstream() {
	if s.upstream != nil {
		s.upstream.CloseSock()
	}
	s.serverStatus = 0
	s.connectUpstream()
}

var dircproxyHelpTopics = map[string]string{
	"RECALL":  "RECALL [channel|nick] [lines|ALL] - replay logged lines",
	"PERSIST": "PERSIST - keep this session alive after you disconnect",
	"DETACH":  "DETACH [message] - disconnect your client without ending the session",
	"QUIT":    "QUIT [message] - end the session and disconnect from the server",
	"MOTD":    "MOTD - redisplay the message of the day",
	"DIE":     "DIE - shut the proxy down",
	"SERVERS": "SERVERS - list this class's configured servers",
	"JUMP":    "JUMP <n|host[:port[:pass]]> - switch servers",
	"HOST":    "HOST <addr|NONE> - change the local address used to connect",
}

func (s *Session) dircproxyHelp(params []string) {
	if len(params) > 0 {
		topic := strings.ToUpper(params[0])
		if text, ok := dircproxyHelpTopics[topic]; ok {
			s.SendToClient("NOTICE AUTH :" + text)
		} else {
			s.SendNumeric(421, topic+" :No help available")
		}
		return
	}

	s.SendToClient("NOTICE AUTH :Available DIRCPROXY commands:")
	for _, cmd := range []struct {
		name    string
		allowed bool
	}{
		{"RECALL", true},
		{"PERSIST", s.class != nil && s.class.AllowPersist},
		{"DETACH", true},
		{"QUIT", true},
		{"MOTD", true},
		{"DIE", s.class != nil && s.class.AllowDie},
		{"SERVERS", true},
		{"JUMP", s.class != nil && s.class.AllowJump},
		{"HOST", s.class != nil && s.class.AllowHost},
	} {
		if cmd.allowed {
			s.SendToClient("NOTICE AUTH :  " + cmd.name)
		}
	}
}
