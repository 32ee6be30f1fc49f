package class

import (
	"crypto/subtle"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// SessionRef is the minimal view the registry needs of a live session
// bound to a class, so it can find a reattachable incumbent without
// owning the session type itself.
type SessionRef interface {
	ClassName() string
	Live() bool
}

// Registry holds the configured classes plus the live sessions bound to
// each of them. All methods run on the reactor thread; there is no
// internal locking needed for correctness, only for the Watch goroutine
// that may reload Config concurrently.
type Registry struct {
	mu       sync.RWMutex
	cfg      *Config
	byName   map[string]*Class
	sessions map[string]SessionRef // class name -> bound session
}

// NewRegistry builds a Registry from cfg.
func NewRegistry(cfg *Config) *Registry {
	r := &Registry{sessions: make(map[string]SessionRef)}
	r.setConfig(cfg)
	return r
}

func (r *Registry) setConfig(cfg *Config) {
	byName := make(map[string]*Class, len(cfg.Classes))
	for _, c := range cfg.Classes {
		byName[c.Name] = c
	}
	r.mu.Lock()
	r.cfg = cfg
	r.byName = byName
	r.mu.Unlock()
}

// Classes returns the configured classes in declaration order.
func (r *Registry) Classes() []*Class {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg.Classes
}

// Match iterates classes in declaration order and returns the first whose
// password verifies and whose host-mask list is either empty or contains
// a case-insensitive shell-glob match for clientHost.
func (r *Registry) Match(password, clientHost string) *Class {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.cfg.Classes {
		if !verifyPassword(c, password) {
			continue
		}
		if len(c.HostMasks) == 0 {
			return c
		}
		for _, mask := range c.HostMasks {
			if hostMaskMatch(mask, clientHost) {
				return c
			}
		}
	}
	return nil
}

func verifyPassword(c *Class, given string) bool {
	if c.PasswordHashed {
		return bcrypt.CompareHashAndPassword([]byte(c.Password), []byte(given)) == nil
	}
	a, b := []byte(c.Password), []byte(given)
	if len(a) != len(b) {
		// subtle.ConstantTimeCompare requires equal-length inputs; a
		// length mismatch is itself not a match and returns at once, so
		// only equal-length inputs get the constant-time comparison.
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

// hostMaskMatch applies shell-style globbing (? matches one character, *
// matches any run) case-insensitively, the convention IRC networks use
// for ban/invite masks.
func hostMaskMatch(mask, host string) bool {
	return wildcardMatch(strings.ToLower(host), strings.ToLower(mask))
}

func wildcardMatch(s, pattern string) bool {
	if pattern == "" {
		return s == ""
	}
	if pattern[0] == '*' {
		if wildcardMatch(s, pattern[1:]) {
			return true
		}
		return s != "" && wildcardMatch(s[1:], pattern)
	}
	if s == "" {
		return false
	}
	if pattern[0] == '?' || pattern[0] == s[0] {
		return wildcardMatch(s[1:], pattern[1:])
	}
	return false
}

// FetchSession returns the live session currently bound to class, if any.
func (r *Registry) FetchSession(className string) (SessionRef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[className]
	if ok && !s.Live() {
		return nil, false
	}
	return s, ok
}

// Bind records sess as the live session occupying className, replacing
// any prior occupant.
func (r *Registry) Bind(className string, sess SessionRef) {
	r.mu.Lock()
	r.sessions[className] = sess
	r.mu.Unlock()
}

// Unbind clears className's occupant if it is currently sess.
func (r *Registry) Unbind(className string, sess SessionRef) {
	r.mu.Lock()
	if cur, ok := r.sessions[className]; ok && cur == sess {
		delete(r.sessions, className)
	}
	r.mu.Unlock()
}

// Reload re-reads the backing config file and swaps it in atomically.
func (r *Registry) Reload() error {
	r.mu.RLock()
	cfg := r.cfg
	r.mu.RUnlock()

	if err := cfg.Reload(); err != nil {
		return err
	}
	r.setConfig(cfg)
	return nil
}
