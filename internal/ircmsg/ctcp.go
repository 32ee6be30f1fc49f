package ircmsg

import "strings"

const ctcpDelim = '\x01'

// CTCP is a single \x01-delimited token taken out of a PRIVMSG/NOTICE body.
type CTCP struct {
	Command string
	Params  []string
	Orig    string // the token's payload, without delimiters, as received
}

// Part is one chunk of a PRIVMSG/NOTICE body after CTCP scanning: either
// plain text or a single CTCP token, in the order they appeared.
type Part struct {
	IsCTCP bool
	Text   string // when !IsCTCP
	CTCP   *CTCP  // when IsCTCP
}

// StripCTCP splits body into an ordered sequence of plain-text and CTCP
// parts. Re-joining every Part's original bytes (Text, or '\x01'+CTCP.Orig+
// '\x01') reconstructs body exactly: StripCTCP never drops or reorders
// bytes, only classifies them. The one exception is an unterminated
// trailing token, which gains a closing '\x01' when re-joined.
func StripCTCP(body string) []Part {
	var parts []Part
	for {
		start := strings.IndexByte(body, ctcpDelim)
		if start < 0 {
			if body != "" {
				parts = append(parts, Part{Text: body})
			}
			return parts
		}
		if start > 0 {
			parts = append(parts, Part{Text: body[:start]})
		}
		rest := body[start+1:]
		end := strings.IndexByte(rest, ctcpDelim)
		if end < 0 {
			// Unterminated CTCP: the rest of the line is the token, no
			// closing delimiter arrives in this message.
			parts = append(parts, Part{IsCTCP: true, CTCP: ParseCTCP(rest)})
			return parts
		}
		parts = append(parts, Part{IsCTCP: true, CTCP: ParseCTCP(rest[:end])})
		body = rest[end+1:]
	}
}

// ParseCTCP tokenises the payload of a single CTCP chunk (the bytes between
// the delimiters) into its command and space-separated parameters.
func ParseCTCP(payload string) *CTCP {
	c := &CTCP{Orig: payload}
	sp := strings.IndexByte(payload, ' ')
	if sp < 0 {
		c.Command = strings.ToUpper(payload)
		return c
	}
	c.Command = strings.ToUpper(payload[:sp])
	rest := strings.TrimLeft(payload[sp+1:], " ")
	if rest != "" {
		c.Params = strings.Fields(rest)
	}
	return c
}

// Render rebuilds the payload (without delimiters) from Command/Params,
// ignoring Orig. Used when a CTCP token has been rewritten in place.
func (c *CTCP) Render() string {
	if len(c.Params) == 0 {
		return c.Command
	}
	return c.Command + " " + strings.Join(c.Params, " ")
}

// Encode re-wraps a CTCP command and raw trailing text in delimiters.
func Encode(command, rest string) string {
	var b strings.Builder
	b.WriteByte(ctcpDelim)
	b.WriteString(command)
	if rest != "" {
		b.WriteByte(' ')
		b.WriteString(rest)
	}
	b.WriteByte(ctcpDelim)
	return b.String()
}

// JoinParts reassembles a (possibly rewritten) part list back into a
// PRIVMSG/NOTICE body, re-quoting each CTCP token.
func JoinParts(parts []Part) string {
	var b strings.Builder
	for _, p := range parts {
		if !p.IsCTCP {
			b.WriteString(p.Text)
			continue
		}
		b.WriteByte(ctcpDelim)
		b.WriteString(p.CTCP.Orig)
		b.WriteByte(ctcpDelim)
	}
	return b.String()
}
