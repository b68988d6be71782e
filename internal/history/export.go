package history

import (
	"fmt"
	"io"
	"strings"
)

const timeFormat = "2006-01-02 15:04:05"

// FormatTranscript renders entries one per line.
func FormatTranscript(entries []Entry) string {
	var sb strings.Builder
	for _, e := range entries {
		arrow := "<-"
		if e.Direction == Outbound {
			arrow = "->"
		}
		fmt.Fprintf(&sb, "%s %s %s %s: %s\n", e.Timestamp.Format(timeFormat), arrow, e.Peer, e.User, e.Text)
	}
	return sb.String()
}

// Export writes the transcript of peer (every peer if empty) compressed
// with mode and returns the number of bytes written.
func (s *Store) Export(w io.Writer, peer, mode string) (int, error) {
	entries, err := s.List(peer, 0)
	if err != nil {
		return 0, err
	}

	data, err := Compress([]byte(FormatTranscript(entries)), mode)
	if err != nil {
		return 0, err
	}
	return w.Write(data)
}
