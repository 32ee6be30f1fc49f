// Package resolver performs DNS lookups off the reactor thread and
// delivers completions back onto it as ordinary reactor events, so a
// session never blocks on a lookup. Each lookup runs in its own goroutine
// (standing in for dircproxy's child-process resolver workers) and posts
// its result through a callback that the caller is responsible for
// marshalling back onto the reactor.
package resolver

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"
)

// Result carries the outcome of a single lookup.
type Result struct {
	Owner   any
	Request string // the hostname or address that was requested
	Names   []string
	Addrs   []string
	Err     error
}

// CompletionFunc is invoked exactly once per request, from whatever
// goroutine the lookup finished on. Callers that need reactor-thread
// ordering should have this push onto their own reactor via a timer or
// socket event rather than act on session state directly.
type CompletionFunc func(Result)

// Resolver tracks in-flight lookups per owner so they can be cancelled in
// bulk when a session dies, mirroring dircproxy's dns_delall.
type Resolver struct {
	net *net.Resolver

	mu      sync.Mutex
	pending map[any]map[string]context.CancelFunc
}

// New returns a Resolver using the given net.Resolver, or the default
// resolver if r is nil.
func New(r *net.Resolver) *Resolver {
	if r == nil {
		r = net.DefaultResolver
	}
	return &Resolver{net: r, pending: make(map[any]map[string]context.CancelFunc)}
}

// LookupHost resolves hostname to addresses on behalf of owner.
func (d *Resolver) LookupHost(owner any, hostname string, timeout time.Duration, cb CompletionFunc) {
	d.start(owner, hostname, timeout, func(ctx context.Context) Result {
		addrs, err := d.net.LookupHost(ctx, hostname)
		return Result{Owner: owner, Request: hostname, Addrs: addrs, Err: err}
	}, cb)
}

// LookupAddr performs a reverse lookup of addr (an IP) on behalf of owner,
// trimming the trailing dot DNS servers return on PTR names.
func (d *Resolver) LookupAddr(owner any, addr string, timeout time.Duration, cb CompletionFunc) {
	d.start(owner, addr, timeout, func(ctx context.Context) Result {
		names, err := d.net.LookupAddr(ctx, addr)
		for i, n := range names {
			names[i] = strings.TrimSuffix(n, ".")
		}
		return Result{Owner: owner, Request: addr, Names: names, Err: err}
	}, cb)
}

func (d *Resolver) start(owner any, key string, timeout time.Duration, work func(context.Context) Result, cb CompletionFunc) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	d.mu.Lock()
	m, ok := d.pending[owner]
	if !ok {
		m = make(map[string]context.CancelFunc)
		d.pending[owner] = m
	}
	if old, exists := m[key]; exists {
		old()
	}
	m[key] = cancel
	d.mu.Unlock()

	go func() {
		res := work(ctx)
		d.finish(owner, key)
		cancel()
		cb(res)
	}()
}

func (d *Resolver) finish(owner any, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if m, ok := d.pending[owner]; ok {
		delete(m, key)
		if len(m) == 0 {
			delete(d.pending, owner)
		}
	}
}

// DelAll cancels every in-flight lookup for owner, called when its session
// dies. Each cancelled lookup still invokes its callback once, with the
// cancellation error.
func (d *Resolver) DelAll(owner any) {
	d.mu.Lock()
	m, ok := d.pending[owner]
	if ok {
		delete(d.pending, owner)
	}
	d.mu.Unlock()
	if !ok {
		return
	}
	for _, cancel := range m {
		cancel()
	}
}
