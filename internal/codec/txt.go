package codec

import (
	"bufio"
	"io"
	"strings"

	"github.com/hpungsan/meishi/internal/record"
)

// DecodeContactsTXT decodes the line-oriented contact dialect.
//
// Each contact starts at a ContactMarker line and continues with "label: value"
// lines. Only the labels in record.ContactFields are read; any other line,
// custom fields included, is dropped. Contacts with no recognized line are dropped.
func DecodeContactsTXT(text string) []record.Contact {
	var contacts []record.Contact
	var cur *record.Contact
	seen := false

	flush := func() {
		if cur != nil && seen {
			contacts = append(contacts, *cur)
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == ContactMarker {
			flush()
			cur = &record.Contact{}
			seen = false
			continue
		}
		if cur == nil || line == "" {
			continue
		}

		label, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		spec, ok := record.LookupContactLabel(strings.TrimSpace(label))
		if !ok || spec.Kind == record.KindPairs {
			continue
		}
		if setContactField(cur, spec.Name, unescapeTXT(strings.TrimSpace(value))) {
			seen = true
		}
	}
	flush()

	return contacts
}

// DecodePoliciesTXT decodes the line-oriented policy dialect.
//
// Each policy starts at an "Analysis Data: <title>" line; every following
// "key: value" line becomes a field until the next marker.
func DecodePoliciesTXT(text string) []record.Policy {
	var policies []record.Policy
	var cur *record.Policy

	flush := func() {
		if cur != nil && (cur.Title != "" || len(cur.Fields) > 0) {
			policies = append(policies, *cur)
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if title, ok := strings.CutPrefix(line, PolicyMarkerPrefix); ok {
			flush()
			cur = &record.Policy{Title: unescapeTXT(strings.TrimSpace(title)), Fields: []record.PolicyField{}}
			continue
		}
		if cur == nil || line == "" {
			continue
		}

		key, value, _ := strings.Cut(line, ":")
		cur.Fields = append(cur.Fields, record.PolicyField{
			Key:   unescapeTXT(strings.TrimSpace(key)),
			Value: unescapeTXT(strings.TrimSpace(value)),
		})
	}
	flush()

	return policies
}

// EncodeContactsTXT writes contacts in the TXT dialect with a leading BOM.
// Absent and empty fields are omitted, so they do not survive a round trip as
// present-but-empty values. Line breaks inside values are escaped.
func EncodeContactsTXT(w io.Writer, contacts []record.Contact) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(BOM)

	for i := range contacts {
		c := &contacts[i]
		if i > 0 {
			bw.WriteString("\n")
		}
		bw.WriteString(ContactMarker + "\n")

		for _, spec := range record.ContactFields {
			if spec.Kind == record.KindPairs {
				continue
			}
			if v := ContactCell(c, spec.Name); v != "" {
				bw.WriteString(spec.Label + ": " + escapeTXT(v) + "\n")
			}
		}
		for _, cf := range c.CustomFields {
			if cf.Key == "" && cf.Value == "" {
				continue
			}
			bw.WriteString(escapeTXT(cf.Key) + ": " + escapeTXT(cf.Value) + "\n")
		}
	}

	return bw.Flush()
}

// EncodePoliciesTXT writes policies in the TXT dialect with a leading BOM.
func EncodePoliciesTXT(w io.Writer, policies []record.Policy) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(BOM)

	for i := range policies {
		p := &policies[i]
		if i > 0 {
			bw.WriteString("\n")
		}
		bw.WriteString(PolicyMarkerPrefix + " " + escapeTXT(p.Title) + "\n")
		for _, f := range p.Fields {
			if f.Key == "" && f.Value == "" {
				continue
			}
			bw.WriteString(escapeTXT(f.Key) + ": " + escapeTXT(f.Value) + "\n")
		}
	}

	return bw.Flush()
}

// txtEscaper keeps a value on one line: backslash, LF and CR become \\, \n and \r.
var txtEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\r", `\r`)

func escapeTXT(v string) string {
	return txtEscaper.Replace(v)
}

// unescapeTXT reverses escapeTXT. A backslash before any other character is
// kept as written.
func unescapeTXT(v string) string {
	if !strings.Contains(v, `\`) {
		return v
	}
	var sb strings.Builder
	sb.Grow(len(v))
	for i := 0; i < len(v); i++ {
		if v[i] == '\\' && i+1 < len(v) {
			switch v[i+1] {
			case '\\':
				sb.WriteByte('\\')
				i++
				continue
			case 'n':
				sb.WriteByte('\n')
				i++
				continue
			case 'r':
				sb.WriteByte('\r')
				i++
				continue
			}
		}
		sb.WriteByte(v[i])
	}
	return sb.String()
}
