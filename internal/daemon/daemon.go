// Package daemon wires the reactor, connection-class registry and session
// factory together into the process that actually accepts connections. It
// is the adaptation of the teacher's irc/server.go accept loop to bouncer
// semantics: no TLS listener, no peer gRPC mesh, one plain TCP listener.
package daemon

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"

	"github.com/presbrey/dircproxy/internal/class"
	"github.com/presbrey/dircproxy/internal/dcc"
	"github.com/presbrey/dircproxy/internal/metrics"
	"github.com/presbrey/dircproxy/internal/reactor"
	"github.com/presbrey/dircproxy/internal/resolver"
	"github.com/presbrey/dircproxy/internal/session"
)

// Daemon owns the process-wide listener and its collaborators.
type Daemon struct {
	cfg      *class.Config
	classes  *class.Registry
	react    *reactor.Reactor
	metrics  *metrics.Registry
	resolver *resolver.Resolver

	serverTag string
	version   string

	mu       sync.Mutex
	listener net.Listener
	shutdown chan struct{}
}

// New constructs a Daemon. cfg.ListenAddr is the address the client-facing
// listener binds to; serverTag/version are rendered in welcome numerics.
func New(cfg *class.Config, serverTag, version string) *Daemon {
	return &Daemon{
		cfg:       cfg,
		classes:   class.NewRegistry(cfg),
		react:     reactor.New(),
		metrics:   metrics.NewRegistry(),
		resolver:  resolver.New(nil),
		serverTag: serverTag,
		version:   version,
		shutdown:  make(chan struct{}),
	}
}

// Metrics exposes the daemon's Prometheus registry for the admin HTTP
// surface to mount.
func (d *Daemon) Metrics() *metrics.Registry { return d.metrics }

// Run starts the reactor, the config watcher and the accept loop, blocking
// until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", d.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("starting listener on %s: %w", d.cfg.ListenAddr, err)
	}
	d.mu.Lock()
	d.listener = ln
	d.mu.Unlock()
	log.Printf("[daemon] listening on %s", ln.Addr())

	go d.react.Run(ctx)
	go func() {
		if err := d.classes.Watch(ctx); err != nil {
			log.Printf("[daemon] config watcher stopped: %v", err)
		}
	}()

	go d.acceptConnections(ctx)

	<-ctx.Done()
	return d.Stop()
}

// Stop closes the listener and the reactor. Connections already accepted
// are left to drain via their own session lifecycle.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	ln := d.listener
	d.listener = nil
	d.mu.Unlock()

	close(d.shutdown)
	d.react.Stop()
	if ln != nil {
		return ln.Close()
	}
	return nil
}

func (d *Daemon) acceptConnections(ctx context.Context) {
	for {
		conn, err := d.listener.Accept()
		if err != nil {
			select {
			case <-d.shutdown:
				return
			case <-ctx.Done():
				return
			default:
				log.Printf("[daemon] accept error: %v", err)
				continue
			}
		}
		d.handleConn(conn)
	}
}

func (d *Daemon) handleConn(conn net.Conn) {
	allocator := dcc.NewPortAllocator(0, 0)
	if classesHaveDCCRange(d.cfg) {
		low, high := dccRangeFor(d.cfg)
		allocator = dcc.NewPortAllocator(low, high)
	}

	sess := session.New(conn, session.Deps{
		Reactor:   d.react,
		Classes:   d.classes,
		Allocator: allocator,
		Resolver:  d.resolver,
		Metrics:   d.metrics,
		ServerTag: d.serverTag,
		Version:   d.version,
	})
	log.Printf("[daemon] accepted connection from %s", conn.RemoteAddr())
	sess.Attach()
}

// classesHaveDCCRange and dccRangeFor pick a single DCC port range to share
// across sessions: the first class that configures one. A per-class range
// would need a per-session allocator keyed by class, which the current
// DCC port collision surface (process-wide listening sockets) doesn't
// need; classes in practice share a deployment's firewall policy.
func classesHaveDCCRange(cfg *class.Config) bool {
	_, _, ok := firstDCCRange(cfg)
	return ok
}

func dccRangeFor(cfg *class.Config) (int, int) {
	low, high, _ := firstDCCRange(cfg)
	return low, high
}

func firstDCCRange(cfg *class.Config) (int, int, bool) {
	for _, c := range cfg.Classes {
		if c.DCC.PortLow > 0 || c.DCC.PortHigh > 0 {
			return c.DCC.PortLow, c.DCC.PortHigh, true
		}
	}
	return 0, 0, false
}
