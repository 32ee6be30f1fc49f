// Package upstream defines the server-session contract the client state
// machine consumes, and a concrete default implementation backed by
// github.com/lrstanley/girc. The system treats server-side
// connect/reconnect/keepalive logic as a named collaborator; this package
// is the thin adapter between that collaborator and girc's client.
package upstream

import (
	"net"
	"time"
)

// Event is one line (or terminal error) the upstream delivered.
type Event struct {
	Line string
	Err  error
}

// Session is the server-session contract: connect, close, reconnect,
// idle-reset and raw/peer command sends, plus the readiness predicate the
// dispatcher gates regime transitions on.
type Session interface {
	// Connect dials the server and begins delivering Events().
	Connect() error
	// CloseSock tears down the socket without forgetting configuration,
	// so ConnectAgain can redial.
	CloseSock()
	// ConnectAgain redials after CloseSock, using the same server
	// configuration the session was built with.
	ConnectAgain() error
	// ResetIdle restarts the idle-ping deadline; called whenever the
	// client forwards user traffic, per the class's idle_ping_interval.
	ResetIdle()
	// SendCommand writes a formatted raw line to the server.
	SendCommand(format string, args ...any) error
	// SendPeerCommand writes an IRC command with params, quoting the
	// last parameter per the codec's trailing-argument rules.
	SendPeerCommand(command string, params ...string) error
	// Ready reports whether the server connection has completed
	// registration and is accepting traffic (server_status == ACTIVE).
	Ready() bool
	// Events delivers inbound lines and the terminal error, if any, that
	// ended the connection.
	Events() <-chan Event
	// LocalAddr is the local address of the socket connected to the IRC
	// server, i.e. the proxy's own address as seen by that server. Nil
	// until a connection attempt has dialed out.
	LocalAddr() net.Addr
}

// Config configures a new upstream session.
type Config struct {
	Host     string
	Port     int
	Pass     string
	Nick     string
	User     string
	RealName string

	PingInterval time.Duration
	PingTimeout  time.Duration
}
