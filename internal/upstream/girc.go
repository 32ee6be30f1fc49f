package upstream

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/lrstanley/girc"

	"github.com/presbrey/dircproxy/internal/ircmsg"
)

// GircSession is the default Session implementation, backed by a girc
// client. One GircSession is created per proxy session's server
// connection.
type GircSession struct {
	client *girc.Client
	events chan Event

	ready int32 // atomic bool, set once girc fires RPL_WELCOME

	mu        sync.Mutex
	done      bool
	localAddr net.Addr
}

// localAddrDialer wraps net.Dialer so Connect can capture the local
// address girc's dial picked, since girc.Client keeps its socket
// unexported.
type localAddrDialer struct {
	net.Dialer
	onDial func(net.Conn)
}

func (d *localAddrDialer) Dial(network, address string) (net.Conn, error) {
	conn, err := d.Dialer.Dial(network, address)
	if err != nil {
		return nil, err
	}
	d.onDial(conn)
	return conn, nil
}

// NewGircSession builds a GircSession from cfg. Connect must be called
// separately to dial.
func NewGircSession(cfg Config) *GircSession {
	gcfg := girc.Config{
		Server:     cfg.Host,
		ServerPass: cfg.Pass,
		Port:       cfg.Port,
		Nick:       cfg.Nick,
		User:       cfg.User,
		Name:       cfg.RealName,
	}
	if cfg.PingInterval > 0 {
		gcfg.PingDelay = cfg.PingInterval
	}

	g := &GircSession{
		client: girc.New(gcfg),
		events: make(chan Event, 256),
	}

	g.client.Handlers.AddBg(girc.ALL_EVENTS, func(c *girc.Client, e girc.Event) {
		g.onEvent(e)
	})
	g.client.Handlers.AddBg(girc.RPL_WELCOME, func(c *girc.Client, e girc.Event) {
		atomic.StoreInt32(&g.ready, 1)
	})

	return g
}

func (g *GircSession) onEvent(e girc.Event) {
	select {
	case g.events <- Event{Line: e.String()}:
	default:
		// Event backlog full; drop rather than block the girc
		// handler goroutine. The dispatcher should drain promptly.
	}
}

// Connect dials the server in the background and returns once the dial
// itself is underway; connection completion/failure is reported through
// Events().
func (g *GircSession) Connect() error {
	dialer := &localAddrDialer{onDial: func(conn net.Conn) {
		g.mu.Lock()
		g.localAddr = conn.LocalAddr()
		g.mu.Unlock()
	}}
	go func() {
		err := g.client.DialerConnect(dialer)
		g.mu.Lock()
		closing := g.done
		g.mu.Unlock()
		if err != nil && !closing {
			select {
			case g.events <- Event{Err: fmt.Errorf("upstream connection ended: %w", err)}:
			default:
			}
		}
	}()
	return nil
}

// LocalAddr returns the local address of the socket dialed to the IRC
// server, or nil if no connection attempt has completed its dial yet.
func (g *GircSession) LocalAddr() net.Addr {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.localAddr
}

func (g *GircSession) CloseSock() {
	g.mu.Lock()
	g.done = true
	g.mu.Unlock()
	atomic.StoreInt32(&g.ready, 0)
	g.client.Close()
}

func (g *GircSession) ConnectAgain() error {
	g.mu.Lock()
	g.done = false
	g.mu.Unlock()
	return g.Connect()
}

func (g *GircSession) ResetIdle() {
	// girc's own PingDelay loop already restarts on any received
	// traffic; nothing additional is required here.
}

func (g *GircSession) SendCommand(format string, args ...any) error {
	return g.client.Cmd.SendRaw(fmt.Sprintf(format, args...))
}

func (g *GircSession) SendPeerCommand(command string, params ...string) error {
	return g.client.Cmd.SendRaw(ircmsg.Build("", command, params...))
}

func (g *GircSession) Ready() bool {
	return atomic.LoadInt32(&g.ready) == 1
}

func (g *GircSession) Events() <-chan Event {
	return g.events
}
