package codec

import "strings"

// ParseLine splits one logical CSV line into raw field values.
//
// A field that starts with '"' is quoted: it may hold commas and newlines, and
// "" inside it decodes to a single '"'. Unquoted fields end at ',' or end of
// line. A trailing comma yields a final empty field. The column count is not
// checked against anything.
//
// Malformed input never fails. An unterminated quote swallows the rest of the
// line, text after a closing quote is appended to the field, and a '"' inside
// an unquoted field is kept literally. This matches what consumer spreadsheet
// tools do with hand-edited files.
func ParseLine(line string) []string {
	var fields []string
	var b strings.Builder
	inQuotes := false
	atStart := true

	for i := 0; i < len(line); i++ {
		ch := line[i]

		if inQuotes {
			if ch == '"' {
				if i+1 < len(line) && line[i+1] == '"' {
					b.WriteByte('"')
					i++
					continue
				}
				inQuotes = false
				continue
			}
			b.WriteByte(ch)
			continue
		}

		switch {
		case ch == '"' && atStart:
			inQuotes = true
			atStart = false
		case ch == ',':
			fields = append(fields, b.String())
			b.Reset()
			atStart = true
		default:
			b.WriteByte(ch)
			atStart = false
		}
	}
	fields = append(fields, b.String())

	return fields
}

// escapeCell quotes v if it holds a comma, quote or line break, doubling inner quotes.
func escapeCell(v string) string {
	if !strings.ContainsAny(v, ",\"\n\r") {
		return v
	}
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}
