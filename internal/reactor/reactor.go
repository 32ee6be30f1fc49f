// Package reactor implements the single-threaded, cooperative event loop
// that drives every session in the process. All socket readiness and all
// timer expiry is delivered through one dispatch goroutine, so handler code
// never needs to lock session state: only the reactor goroutine ever calls
// a handler.
//
// Readiness detection itself still needs a goroutine per registered socket
// (Go gives no portable epoll-like primitive over net.Conn), but those
// goroutines only ever produce raw events onto a shared channel; they never
// touch session state and never invoke a handler directly. The dispatch
// goroutine drains that channel and calls handlers one at a time, which is
// what gives callers the single-threaded ordering guarantee.
package reactor

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

// Owner identifies whatever registered a socket or timer - typically a
// session ID. It is an opaque comparable token, never a raw pointer.
type Owner any

// SocketHandler reacts to data (or an error) on a registered socket. It
// runs on the reactor goroutine; it must not block.
type SocketHandler interface {
	OnReadable(owner Owner, data []byte)
	OnError(owner Owner, err error)
}

// SocketHandlerFuncs adapts two functions to a SocketHandler.
type SocketHandlerFuncs struct {
	Readable func(owner Owner, data []byte)
	Error    func(owner Owner, err error)
}

func (f SocketHandlerFuncs) OnReadable(owner Owner, data []byte) {
	if f.Readable != nil {
		f.Readable(owner, data)
	}
}

func (f SocketHandlerFuncs) OnError(owner Owner, err error) {
	if f.Error != nil {
		f.Error(owner, err)
	}
}

// TimerHandler fires when a named one-shot timer expires.
type TimerHandler func(owner Owner, name string)

type timerKey struct {
	owner Owner
	name  string
}

type timerEntry struct {
	key  timerKey
	at   time.Time
	fn   TimerHandler
}

type socketReg struct {
	owner   Owner
	conn    net.Conn
	handler SocketHandler
	cancel  context.CancelFunc
}

// event is what reader goroutines and the ticker post onto the reactor's
// inbox; exactly one of its fields is meaningful.
type event struct {
	sockReadable *socketReadEvent
	sockError    *socketErrEvent
	tick         time.Time
	fn           func()
}

type socketReadEvent struct {
	owner   Owner
	handler SocketHandler
	data    []byte
}

type socketErrEvent struct {
	owner   Owner
	handler SocketHandler
	err     error
}

// Reactor is the process-wide event loop. It is safe to call Register*,
// Deregister and the Timer* methods from any goroutine; they update the
// reactor's socket and timer tables under its mutex.
type Reactor struct {
	inbox chan event

	mu      sync.Mutex
	sockets map[Owner]*socketReg
	timers  map[timerKey]*timerEntry

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Reactor. Call Run to start the dispatch loop.
func New() *Reactor {
	return &Reactor{
		inbox:   make(chan event, 256),
		sockets: make(map[Owner]*socketReg),
		timers:  make(map[timerKey]*timerEntry),
		done:    make(chan struct{}),
	}
}

// Run drives the dispatch loop until ctx is cancelled or Stop is called.
// It blocks; call it from its own goroutine.
func (r *Reactor) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	defer close(r.done)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.fireExpiredTimers(now)
		case ev := <-r.inbox:
			r.dispatch(ev)
		}
	}
}

// Stop cancels the dispatch loop and waits for it to exit.
func (r *Reactor) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}

func (r *Reactor) dispatch(ev event) {
	switch {
	case ev.sockReadable != nil:
		ev.sockReadable.handler.OnReadable(ev.sockReadable.owner, ev.sockReadable.data)
	case ev.sockError != nil:
		ev.sockError.handler.OnError(ev.sockError.owner, ev.sockError.err)
	case ev.fn != nil:
		ev.fn()
	}
}

// Post schedules fn to run on the dispatch goroutine, ordered with every
// other posted event. Collaborators that aren't themselves registered
// sockets or timers - an upstream server session draining its own event
// channel, say - use this to marshal work onto the single thread that is
// allowed to touch session state.
func (r *Reactor) Post(fn func()) {
	select {
	case r.inbox <- event{fn: fn}:
	case <-r.done:
	}
}

// RegisterSocket associates a connection with owner and handler, and spawns
// a reader goroutine that feeds readability/error events into the reactor.
// Registering an owner that is already registered replaces its prior
// registration.
func (r *Reactor) RegisterSocket(owner Owner, conn net.Conn, handler SocketHandler) {
	ctx, cancel := context.WithCancel(context.Background())
	reg := &socketReg{owner: owner, conn: conn, handler: handler, cancel: cancel}

	r.mu.Lock()
	if old, ok := r.sockets[owner]; ok {
		old.cancel()
	}
	r.sockets[owner] = reg
	r.mu.Unlock()

	go r.readLoop(ctx, reg)
}

func (r *Reactor) readLoop(ctx context.Context, reg *socketReg) {
	buf := make([]byte, 4096)
	for {
		n, err := reg.conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case r.inbox <- event{sockReadable: &socketReadEvent{owner: reg.owner, handler: reg.handler, data: chunk}}:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			if err == io.EOF {
				err = fmt.Errorf("connection closed: %w", err)
			}
			select {
			case r.inbox <- event{sockError: &socketErrEvent{owner: reg.owner, handler: reg.handler, err: err}}:
			case <-ctx.Done():
			}
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// Deregister stops the reader goroutine for owner's socket, if any. It does
// not close the underlying connection; callers close it themselves.
func (r *Reactor) Deregister(owner Owner) {
	r.mu.Lock()
	reg, ok := r.sockets[owner]
	if ok {
		delete(r.sockets, owner)
	}
	r.mu.Unlock()
	if ok {
		reg.cancel()
	}
}

// TimerNew arms a named one-shot timer after delay. If a timer with the
// same (owner, name) already exists, this call is a no-op - it does not
// reset the existing timer's deadline.
func (r *Reactor) TimerNew(owner Owner, name string, delay time.Duration, fn TimerHandler) {
	key := timerKey{owner: owner, name: name}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.timers[key]; exists {
		return
	}
	r.timers[key] = &timerEntry{key: key, at: time.Now().Add(delay), fn: fn}
}

// TimerDel cancels a single named timer. It is a no-op if no such timer
// exists.
func (r *Reactor) TimerDel(owner Owner, name string) {
	r.mu.Lock()
	delete(r.timers, timerKey{owner: owner, name: name})
	r.mu.Unlock()
}

// TimerDelAll cancels every timer belonging to owner. Sessions must call
// this when they die, or expired timers will fire against a dead owner.
func (r *Reactor) TimerDelAll(owner Owner) {
	r.mu.Lock()
	for key := range r.timers {
		if key.owner == owner {
			delete(r.timers, key)
		}
	}
	r.mu.Unlock()
}

func (r *Reactor) fireExpiredTimers(now time.Time) {
	r.mu.Lock()
	var expired []*timerEntry
	for key, t := range r.timers {
		if !now.Before(t.at) {
			expired = append(expired, t)
			delete(r.timers, key)
		}
	}
	r.mu.Unlock()

	for _, t := range expired {
		t.fn(t.key.owner, t.key.name)
	}
}
