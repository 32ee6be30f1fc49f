package ircmsg

// FallbackNickname is used once GenerateNick exhausts every mutation of the
// tried nickname (it becomes all underscores). Compile-time constant in the
// original dircproxy; spec.md §9 directs that this stay fixed, not random.
const FallbackNickname = "dircproxy"

// GenerateNick derives the next candidate nickname to try after the server
// has rejected tried, following original_source/src/irc_client.c's
// ircclient_generate_nick exactly:
//
//   - while len(tried) < 9, append a single '-'
//   - otherwise walk back from the last character, cycling
//     '-' -> '0', digit -> digit+1, '9' -> '_', carrying left across '_'
//     runs, and turning any other character into '-'
//   - if the walk carries off the front of the string (it was all '_'),
//     return FallbackNickname unmutated
//
// GenerateNick is total: for any non-empty input of length <= 16 it
// terminates with a nickname of length <= 9 made up of [A-Za-z0-9_-].
func GenerateNick(tried string) string {
	if len(tried) < 9 {
		return tried + "-"
	}

	b := []byte(tried)
	i := len(b) - 1
	for i >= 0 {
		switch {
		case b[i] == '-':
			b[i] = '0'
			return string(b)
		case b[i] >= '0' && b[i] < '9':
			b[i]++
			return string(b)
		case b[i] == '9':
			b[i] = '_'
			return string(b)
		case b[i] == '_':
			i--
		default:
			b[i] = '-'
			return string(b)
		}
	}

	// Exhausted: every character became '_'. Restart from the fallback,
	// unmutated; only a later, independent rejection mutates it further.
	return FallbackNickname
}
