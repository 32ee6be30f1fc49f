package dcc

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"
)

// Type distinguishes the three DCC subprotocols the proxy relays.
type Type int

const (
	// Chat is a symmetric, bidirectional line relay.
	Chat Type = iota
	// SendSimple gates forwarded file data on periodic 4-byte
	// acknowledgement packets from the receiver, per the classic DCC
	// SEND convention.
	SendSimple
	// SendFast streams bytes as they arrive with no acknowledgement
	// gating.
	SendFast
)

func (t Type) String() string {
	switch t {
	case Chat:
		return "CHAT"
	case SendSimple:
		return "SEND-SIMPLE"
	case SendFast:
		return "SEND-FAST"
	default:
		return "UNKNOWN"
	}
}

// Relay is one proxied DCC connection: a listener waiting for the local
// client, coupled once to a dialed connection to the remote peer.
type Relay struct {
	Type        Type
	ListenPort  int
	RemoteAddr  string
	RemotePort  int
	IdleTimeout time.Duration

	BytesLocalToRemote uint64
	BytesRemoteToLocal uint64

	allocator *PortAllocator
	listener  net.Listener

	closed chan struct{}
	onDone func(*Relay)
}

// New allocates a listener for a relay of the given type and begins
// waiting for the local client to connect. onDone, if non-nil, is called
// exactly once when the relay finishes, so a caller can drop it from its
// bookkeeping.
func New(allocator *PortAllocator, typ Type, remoteAddr string, remotePort int, idleTimeout time.Duration, onDone func(*Relay)) (*Relay, error) {
	ln, port, err := allocator.Listen()
	if err != nil {
		return nil, fmt.Errorf("allocating DCC listener: %w", err)
	}

	r := &Relay{
		Type:        typ,
		ListenPort:  port,
		RemoteAddr:  remoteAddr,
		RemotePort:  remotePort,
		IdleTimeout: idleTimeout,
		allocator:   allocator,
		listener:    ln,
		closed:      make(chan struct{}),
		onDone:      onDone,
	}

	go r.acceptAndCouple()
	return r, nil
}

func (r *Relay) acceptAndCouple() {
	defer r.finish()

	if r.IdleTimeout > 0 {
		if tl, ok := r.listener.(*net.TCPListener); ok {
			tl.SetDeadline(time.Now().Add(r.IdleTimeout))
		}
	}

	local, err := r.listener.Accept()
	r.listener.Close()
	r.allocator.Release(r.ListenPort)
	if err != nil {
		return
	}

	remote, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", r.RemoteAddr, r.RemotePort), 10*time.Second)
	if err != nil {
		local.Close()
		return
	}

	r.couple(local, remote)
}

func (r *Relay) couple(local, remote net.Conn) {
	defer local.Close()
	defer remote.Close()

	switch r.Type {
	case SendSimple:
		r.relaySendSimple(local, remote)
	default:
		r.relayStream(local, remote)
	}
}

// relayStream handles CHAT and SEND-FAST identically: unbuffered
// bidirectional byte copy, each direction resetting the idle deadline on
// activity.
func (r *Relay) relayStream(local, remote net.Conn) {
	done := make(chan struct{}, 2)
	go func() {
		r.pump(remote, local, &r.BytesLocalToRemote)
		done <- struct{}{}
	}()
	go func() {
		r.pump(local, remote, &r.BytesRemoteToLocal)
		done <- struct{}{}
	}()
	<-done
}

func (r *Relay) pump(dst io.Writer, src net.Conn, counter *uint64) {
	buf := make([]byte, 4096)
	for {
		if r.IdleTimeout > 0 {
			src.SetReadDeadline(time.Now().Add(r.IdleTimeout))
		}
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return
			}
			atomic.AddUint64(counter, uint64(n))
		}
		if err != nil {
			return
		}
	}
}

// relaySendSimple forwards local->remote file data in bounded chunks,
// gating each further chunk on a 4-byte big-endian acknowledgement of
// total bytes received so far arriving from remote->local, the classic
// DCC SEND acknowledgement convention. The remote->local direction (the
// ack stream itself) is relayed unconditionally.
func (r *Relay) relaySendSimple(local, remote net.Conn) {
	ackCh := make(chan struct{}, 64)
	done := make(chan struct{}, 2)

	// remote -> local carries acknowledgement bytes; relay them and
	// signal the gated pump for each 4-byte ack observed.
	go func() {
		defer func() { done <- struct{}{} }()
		buf := make([]byte, 4096)
		var ackBuf []byte
		for {
			if r.IdleTimeout > 0 {
				remote.SetReadDeadline(time.Now().Add(r.IdleTimeout))
			}
			n, err := remote.Read(buf)
			if n > 0 {
				if _, werr := local.Write(buf[:n]); werr != nil {
					return
				}
				atomic.AddUint64(&r.BytesRemoteToLocal, uint64(n))
				ackBuf = append(ackBuf, buf[:n]...)
				for len(ackBuf) >= 4 {
					_ = binary.BigEndian.Uint32(ackBuf[:4])
					ackBuf = ackBuf[4:]
					select {
					case ackCh <- struct{}{}:
					default:
					}
				}
			}
			if err != nil {
				return
			}
		}
	}()

	// local -> remote carries file data; send one chunk, then wait for
	// an ack before sending the next.
	go func() {
		defer func() { done <- struct{}{} }()
		buf := make([]byte, 4096)
		for {
			if r.IdleTimeout > 0 {
				local.SetReadDeadline(time.Now().Add(r.IdleTimeout))
			}
			n, err := local.Read(buf)
			if n > 0 {
				if _, werr := remote.Write(buf[:n]); werr != nil {
					return
				}
				atomic.AddUint64(&r.BytesLocalToRemote, uint64(n))
				select {
				case <-ackCh:
				case <-time.After(idleOr(r.IdleTimeout, 30*time.Second)):
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	<-done
	<-done
}

func idleOr(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}

func (r *Relay) finish() {
	close(r.closed)
	if r.onDone != nil {
		r.onDone(r)
	}
}

// Done reports whether the relay has torn down.
func (r *Relay) Done() <-chan struct{} {
	return r.closed
}
