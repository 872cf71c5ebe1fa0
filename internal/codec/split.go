package codec

import "strings"

// SplitLogicalLines splits text into logical lines: it breaks on '\n' only when
// the number of '"' characters seen so far is even, so a quoted value holding
// newlines stays in one line. A '\r' before a splitting '\n' is dropped.
//
// The scan is a single left-to-right pass. An escaped quote ("") toggles twice
// and leaves the parity unchanged.
func SplitLogicalLines(text string) []string {
	var lines []string
	var b strings.Builder
	inQuotes := false

	for i := 0; i < len(text); i++ {
		ch := text[i]
		switch {
		case ch == '"':
			inQuotes = !inQuotes
			b.WriteByte(ch)
		case ch == '\n' && !inQuotes:
			lines = append(lines, strings.TrimSuffix(b.String(), "\r"))
			b.Reset()
		default:
			b.WriteByte(ch)
		}
	}
	if b.Len() > 0 {
		lines = append(lines, strings.TrimSuffix(b.String(), "\r"))
	}

	return lines
}
