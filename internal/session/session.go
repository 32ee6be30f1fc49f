// Package session implements the client-side IRC protocol state machine:
// authentication, command dispatch and squelching, the /DIRCPROXY
// extension, and the attach/detach lifecycle. It is the component that
// ties the reactor, the connection-class registry, the IRC line codec,
// the DCC proxy and the upstream server session together.
package session

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/presbrey/dircproxy/internal/channel"
	"github.com/presbrey/dircproxy/internal/class"
	"github.com/presbrey/dircproxy/internal/dcc"
	"github.com/presbrey/dircproxy/internal/ircmsg"
	"github.com/presbrey/dircproxy/internal/metrics"
	"github.com/presbrey/dircproxy/internal/reactor"
	"github.com/presbrey/dircproxy/internal/resolver"
	"github.com/presbrey/dircproxy/internal/upstream"
	"github.com/presbrey/dircproxy/internal/welcome"
)

// ClientStatus is a bitset over the client side of a session's lifecycle.
type ClientStatus uint8

const (
	StatusConnected ClientStatus = 1 << iota
	StatusAuthed
	StatusGotNick
	StatusGotUser
	StatusSentWelcome
)

func (s ClientStatus) has(bit ClientStatus) bool { return s&bit != 0 }

// ServerStatus is a bitset over the upstream server connection's lifecycle.
type ServerStatus uint8

const (
	ServerCreated ServerStatus = 1 << iota
	ServerConnected
	ServerActive
)

func (s ServerStatus) has(bit ServerStatus) bool { return s&bit != 0 }

// ID is a session's stable identity, used as the reactor/resolver owner
// token instead of the session's pointer so ordering and bookkeeping
// survive the session struct being replaced (e.g. reattach transplants
// state into a surviving session, not a surviving pointer held
// elsewhere).
type ID string

// NewID returns a fresh session identity.
func NewID() ID { return ID(uuid.NewString()) }

// Deps bundles a Session's process-wide collaborators, all threaded in
// explicitly rather than reached for as ambient globals.
type Deps struct {
	Reactor   *reactor.Reactor
	Classes   *class.Registry
	Allocator *dcc.PortAllocator
	Resolver  *resolver.Resolver // nil disables reverse-DNS; host masks match the raw IP instead
	Metrics   *metrics.Registry  // nil is valid: metrics become no-ops
	ServerTag string             // rendered in outgoing prefixes, e.g. "proxy.example"
	Version   string
}

// Session is one logical user's proxy session: possibly-connected client
// socket, multiplexed onto a persistent upstream connection.
type Session struct {
	id   ID
	deps Deps

	// Identity.
	Nickname        string
	Username        string
	Realname        string
	Hostname        string
	VisibleHostname string

	clientStatus ClientStatus
	serverStatus ServerStatus

	modes  ircmsg.ModeSet
	away   string
	dieOnClose bool
	allowMOTD  bool
	allowPong  bool
	startedAt  time.Time

	class      *class.Class
	channels   *channel.MemRegistry

	logClient bool // whether attach/detach events are logged

	conn   net.Conn
	writer *bufio.Writer

	upstream upstream.Session

	dccSeq int
	relays map[string]*dcc.Relay

	// viaInetd marks a session spawned die-on-close by an inetd-style
	// listener. PERSIST clears it together with dieOnClose; no separate
	// dedication step is performed.
	viaInetd bool

	closed int32 // atomic bool

	recvBuf strings.Builder
}

// New constructs a session bound to an accepted client connection. The
// reactor does not yet have this socket registered; callers call
// Attach once the session is ready to receive bytes.
func New(conn net.Conn, deps Deps) *Session {
	return &Session{
		id:        NewID(),
		deps:      deps,
		conn:      conn,
		writer:    bufio.NewWriter(conn),
		channels:  channel.NewMemRegistry(),
		startedAt: time.Now(),
		relays:    make(map[string]*dcc.Relay),
	}
}

// ID returns this session's stable identity.
func (s *Session) ID() ID { return s.id }

// ClassName implements class.SessionRef.
func (s *Session) ClassName() string {
	if s.class == nil {
		return ""
	}
	return s.class.Name
}

// Live implements class.SessionRef.
func (s *Session) Live() bool {
	return atomic.LoadInt32(&s.closed) == 0
}

// Attach reverse-resolves the client's address, then registers the client
// socket with the reactor and arms the client_auth timeout. Mirrors the
// original client's sequencing: the socket isn't hooked for reading until
// its hostname lookup completes, so PASS is never matched against a host
// mask before client_host is known.
func (s *Session) Attach() {
	if s.deps.Resolver == nil {
		s.finishAttach()
		return
	}

	host := s.rawPeerHost()
	if host == "" {
		s.finishAttach()
		return
	}

	s.SendToClient("NOTICE AUTH :Looking up your hostname...")
	s.deps.Resolver.LookupAddr(s.id, host, 5*time.Second, func(res resolver.Result) {
		s.deps.Reactor.Post(func() {
			if !s.Live() {
				return
			}
			if len(res.Names) > 0 {
				s.Hostname = res.Names[0]
				s.SendToClient("NOTICE AUTH :Got your hostname.")
			}
			s.finishAttach()
		})
	})
}

func (s *Session) finishAttach() {
	s.clientStatus |= StatusConnected
	s.deps.Reactor.RegisterSocket(s.id, s.conn, reactor.SocketHandlerFuncs{
		Readable: s.onClientReadable,
		Error:    s.onClientError,
	})
	if s.class == nil {
		s.armClientAuthTimeout()
	}
}

func (s *Session) armClientAuthTimeout() {
	timeout := 60 * time.Second
	if s.class != nil && s.class.ClientTimeout > 0 {
		timeout = time.Duration(s.class.ClientTimeout) * time.Second
	}
	s.deps.Reactor.TimerNew(s.id, "client_auth", timeout, func(owner reactor.Owner, name string) {
		if s.clientStatus.has(StatusAuthed) {
			return
		}
		s.SendToClient("ERROR :Closing Link: (Login Timeout)")
		s.closeClient()
	})
}

func (s *Session) onClientReadable(owner reactor.Owner, data []byte) {
	s.recvBuf.Write(data)
	for {
		buf := s.recvBuf.String()
		idx := strings.IndexByte(buf, '\n')
		if idx < 0 {
			break
		}
		line := strings.TrimRight(buf[:idx], "\r")
		s.recvBuf.Reset()
		s.recvBuf.WriteString(buf[idx+1:])
		if line != "" {
			s.handleClientLine(line)
		}
	}
}

func (s *Session) onClientError(owner reactor.Owner, err error) {
	if s.class == nil || s.Nickname == "" || s.Username == "" {
		s.markDead()
		return
	}
	s.Detach("")
}

// SendToClient writes a single raw line (without the trailing CRLF) to
// the client socket.
func (s *Session) SendToClient(line string) {
	if s.conn == nil {
		return
	}
	s.writer.WriteString(line)
	s.writer.WriteString("\r\n")
	s.writer.Flush()
}

// SendNumeric renders and sends a 3-digit numeric reply addressed to the
// session's current nickname.
func (s *Session) SendNumeric(code int, text string) {
	nick := s.Nickname
	if nick == "" {
		nick = "*"
	}
	s.SendToClient(ircmsg.Build(s.deps.ServerTag, fmt.Sprintf("%03d", code), nick, text))
}

func (s *Session) closeClient() {
	if s.conn == nil {
		return
	}
	s.deps.Reactor.Deregister(s.id)
	s.conn.Close()
	s.conn = nil
	s.clientStatus &^= StatusConnected | StatusAuthed | StatusSentWelcome
}

// markDead tears down everything owned by this session: timers, the
// client socket, and the class-registry binding. Called once the
// session is fully finished (explicit quit, detach-with-die, failed
// auth, or close-without-identity).
func (s *Session) markDead() {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return
	}
	s.deps.Reactor.TimerDelAll(s.id)
	if s.deps.Resolver != nil {
		s.deps.Resolver.DelAll(s.id)
	}
	s.closeClient()
	if s.class != nil {
		s.deps.Classes.Unbind(s.class.Name, s)
		if s.deps.Metrics != nil {
			s.deps.Metrics.SessionsActive.Dec()
		}
	}
}

func (s *Session) sendWelcomeIfReady() {
	if !s.serverStatus.has(ServerActive) {
		return
	}
	if !(s.clientStatus.has(StatusGotNick) && s.clientStatus.has(StatusGotUser) && s.clientStatus.has(StatusAuthed)) {
		return
	}
	welcome.Send(s, s.welcomeInfo())
	s.requestChannelState()
	s.clientStatus |= StatusSentWelcome
	s.deps.Reactor.TimerDel(s.id, "client_connect")
}

// requestChannelState re-requests TOPIC and NAMES from the server for every
// active channel, so their real replies flow back to the client through the
// normal passthrough path instead of being fabricated locally.
func (s *Session) requestChannelState() {
	if s.upstream == nil {
		return
	}
	for _, ch := range s.channels.Channels() {
		if ch.Inactive || ch.Unjoined {
			continue
		}
		s.upstream.SendPeerCommand("TOPIC", ch.Name)
		s.upstream.SendPeerCommand("NAMES", ch.Name)
	}
}

// welcomeInfo snapshots the session state the welcome renderer needs. MOTD
// content itself is a collaborator this package does not implement (see
// channel.Log), so it is always empty here; a caller that does have MOTD
// text can still add it before rendering.
func (s *Session) welcomeInfo() welcome.Info {
	return welcome.Info{
		ServerName: s.deps.ServerTag,
		Version:    s.deps.Version,
		Nick:       s.Nickname,
		User:       s.Username,
		Host:       s.VisibleHostname,
		StartedAt:  s.startedAt,
		Modes:      s.modes,
		Away:       s.away,
		Channels:   s.channels.Channels(),
	}
}

func atoiOr(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
