package event

import "strings"

// Frame formats one application message as a complete SSE record, per the
// WHATWG spec and spec §4.5: each physical line of the message becomes a
// "data: <line>\n" record, terminated by a blank line.
func Frame(message string) []byte {
	lines := strings.Split(message, "\n")
	var b strings.Builder
	for _, l := range lines {
		b.WriteString("data: ")
		b.WriteString(l)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

// CommentFrame is the keep-alive frame: an SSE comment with no payload.
func CommentFrame() []byte {
	return []byte(":\n\n")
}
