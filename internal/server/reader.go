package server

import (
	"bufio"
	"net"
	"strings"
)

// lineReader turns a connection's byte stream into newline-delimited
// messages. bufio carries partial reads over between calls, so a line split
// across many segments, or several lines in one segment, both come out as
// complete messages in order.
type lineReader struct {
	r *bufio.Reader
}

func newLineReader(conn net.Conn) *lineReader {
	return &lineReader{r: bufio.NewReader(conn)}
}

// next returns the next complete line with its terminator (and an optional
// trailing \r) stripped. ok is false once the peer disconnects or the read
// fails; a trailing unterminated fragment at EOF is discarded.
func (l *lineReader) next() (line string, ok bool) {
	line, err := l.r.ReadString('\n')
	if err != nil {
		return "", false
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, true
}

// sendLine writes one newline-terminated message to the connection. Delivery
// is best effort: a failed write is ignored here and the session ends when
// its own read loop notices the broken connection.
func sendLine(conn net.Conn, message string) {
	conn.Write([]byte(message + "\n"))
}
