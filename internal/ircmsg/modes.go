package ircmsg

import "strings"

// ModeSet is an unordered set of single-character user modes. The zero
// value is an empty set.
//
// Grounded in original_source/src/irc_client.c's ircclient_change_mode: a
// qualifier of '+' or '-' just flips whether subsequent characters are
// added or removed, and an unrecognised qualifier character is treated the
// same way (it simply doesn't change the running "add" flag).
type ModeSet map[byte]struct{}

// Apply parses a mode change string like "+iw-o" and returns the resulting
// set. Removing the last mode in the set yields an empty (non-nil) set, per
// spec.md's invariant that an empty mode set stores nothing.
func (m ModeSet) Apply(change string) ModeSet {
	out := make(ModeSet, len(m))
	for c := range m {
		out[c] = struct{}{}
	}

	add := true
	for i := 0; i < len(change); i++ {
		switch c := change[i]; c {
		case '+':
			add = true
		case '-':
			add = false
		default:
			if add {
				out[c] = struct{}{}
			} else {
				delete(out, c)
			}
		}
	}
	return out
}

// Has reports whether c is set.
func (m ModeSet) Has(c byte) bool {
	_, ok := m[c]
	return ok
}

// String renders the set as a sorted "+xyz" change string, or "" if empty.
func (m ModeSet) String() string {
	if len(m) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteByte('+')
	for c := byte('A'); c <= 'z'; c++ {
		if m.Has(c) {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Minus renders a "-xyz" change string listing every mode currently set
// that also appears in drop (used to undo modes on detach).
func Minus(current ModeSet, drop string) string {
	var b strings.Builder
	for i := 0; i < len(drop); i++ {
		if current.Has(drop[i]) {
			b.WriteByte(drop[i])
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "-" + b.String()
}
