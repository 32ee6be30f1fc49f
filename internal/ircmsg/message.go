// Package ircmsg implements the IRC wire format: line parsing and
// re-emission (RFC 1459/2812), CTCP quoting, RFC 1459 case folding, the
// dircproxy nickname generator and the per-client user mode accumulator.
package ircmsg

import "strings"

// Source is the optional "nick!user@host" prefix on a line.
type Source struct {
	Nick string
	User string
	Host string
}

// String renders the source the way it appeared (or would appear) on the wire.
func (s *Source) String() string {
	if s == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(s.Nick)
	if s.User != "" {
		b.WriteByte('!')
		b.WriteString(s.User)
	}
	if s.Host != "" {
		b.WriteByte('@')
		b.WriteString(s.Host)
	}
	return b.String()
}

// ParseSource splits a "nick!user@host" prefix into its parts.
func ParseSource(raw string) *Source {
	s := &Source{}
	bang := strings.IndexByte(raw, '!')
	at := strings.IndexByte(raw, '@')
	switch {
	case bang >= 0 && at > bang:
		s.Nick = raw[:bang]
		s.User = raw[bang+1 : at]
		s.Host = raw[at+1:]
	case bang >= 0:
		s.Nick = raw[:bang]
		s.User = raw[bang+1:]
	case at >= 0:
		s.Nick = raw[:at]
		s.Host = raw[at+1:]
	default:
		s.Nick = raw
	}
	return s
}

// Message is a parsed IRC line. Start holds, for each entry in Params, the
// byte offset within Raw where that parameter began — so a handler that
// only cares about the command and first parameter can still reconstitute
// the trailing argument verbatim instead of re-joining split pieces.
type Message struct {
	Raw     string
	Source  *Source
	Command string
	Params  []string
	Start   []int
}

// Parse decodes a single IRC line (without trailing CRLF) into a Message.
// Returns nil for an empty line or one with no command.
func Parse(line string) *Message {
	raw := line
	if line == "" {
		return nil
	}

	m := &Message{Raw: raw}
	rest := line

	if rest[0] == ':' {
		sp := strings.IndexByte(rest, ' ')
		if sp < 0 {
			return nil
		}
		m.Source = ParseSource(rest[1:sp])
		rest = strings.TrimLeft(rest[sp+1:], " ")
	}

	if rest == "" {
		return nil
	}

	offset := len(raw) - len(rest)

	sp := strings.IndexByte(rest, ' ')
	if sp < 0 {
		m.Command = strings.ToUpper(rest)
		return m
	}
	m.Command = strings.ToUpper(rest[:sp])
	rest = rest[sp:]
	offset += sp

	for rest != "" {
		rest = strings.TrimLeft(rest, " ")
		offset = len(raw) - len(rest)
		if rest == "" {
			break
		}
		if rest[0] == ':' {
			m.Params = append(m.Params, rest[1:])
			m.Start = append(m.Start, offset+1)
			break
		}
		sp := strings.IndexByte(rest, ' ')
		if sp < 0 {
			m.Params = append(m.Params, rest)
			m.Start = append(m.Start, offset)
			break
		}
		m.Params = append(m.Params, rest[:sp])
		m.Start = append(m.Start, offset)
		rest = rest[sp:]
	}

	return m
}

// Param returns the i-th parameter, or "" if there aren't that many.
func (m *Message) Param(i int) string {
	if i < 0 || i >= len(m.Params) {
		return ""
	}
	return m.Params[i]
}

// Trailing returns everything in Raw from the start offset of the last
// parameter onward — the verbatim trailing argument, untouched by whatever
// splitting Parse did to get there.
func (m *Message) Trailing() string {
	if len(m.Params) == 0 {
		return ""
	}
	return m.Raw[m.Start[len(m.Start)-1]:]
}

// Build renders a Message back to wire format. The last parameter gets a
// leading ':' if it is empty or contains a space, matching what a real
// server would need to send for the line to parse unambiguously.
func Build(source, command string, params ...string) string {
	var b strings.Builder
	if source != "" {
		b.WriteByte(':')
		b.WriteString(source)
		b.WriteByte(' ')
	}
	b.WriteString(command)
	for i, p := range params {
		b.WriteByte(' ')
		if i == len(params)-1 && (p == "" || strings.ContainsRune(p, ' ') || strings.HasPrefix(p, ":")) {
			b.WriteByte(':')
		}
		b.WriteString(p)
	}
	return b.String()
}
