package codec

import (
	"strings"

	"github.com/hpungsan/meishi/internal/record"
)

// Decode sniffs content and decodes every record in it.
// Any sniffing error aborts the whole file; individual fields are decoded leniently.
func Decode(filename, content string) (*Batch, error) {
	format, err := Sniff(filename, content)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(stripBOM(content))
	batch := &Batch{Format: format}

	switch {
	case format.Kind == KindContacts && format.Dialect == DialectCSV:
		batch.Contacts = DecodeContactsCSV(text)
	case format.Kind == KindContacts && format.Dialect == DialectTXT:
		batch.Contacts = DecodeContactsTXT(text)
	case format.Kind == KindPolicies && format.Dialect == DialectCSV:
		batch.Policies = DecodePoliciesCSV(text)
	default:
		batch.Policies = DecodePoliciesTXT(text)
	}

	return batch, nil
}

// DecodeContactsCSV decodes a header line plus data rows into contacts.
//
// Columns are matched by trimmed header name; unknown columns are ignored.
// Columns missing from a short row stay absent on the record. Blank rows are dropped.
func DecodeContactsCSV(text string) []record.Contact {
	header, rows := splitTable(text)
	contacts := make([]record.Contact, 0, len(rows))

	for _, values := range rows {
		var c record.Contact
		for i, name := range header {
			if i >= len(values) {
				break
			}
			setContactField(&c, name, values[i])
		}
		contacts = append(contacts, c)
	}

	return contacts
}

// DecodePoliciesCSV decodes a header line plus data rows into policies.
// An imageUrls column is accepted but ignored.
func DecodePoliciesCSV(text string) []record.Policy {
	header, rows := splitTable(text)
	policies := make([]record.Policy, 0, len(rows))

	for _, values := range rows {
		var p record.Policy
		for i, name := range header {
			if i >= len(values) {
				break
			}
			switch name {
			case record.PolicyTitleField:
				p.Title = values[i]
			case record.PolicyFieldsField:
				p.Fields = policyFields(SplitPairs(values[i]))
			}
		}
		policies = append(policies, p)
	}

	return policies
}

// splitTable returns trimmed header names and the tokenized non-blank data rows.
func splitTable(text string) ([]string, [][]string) {
	lines := SplitLogicalLines(text)
	if len(lines) == 0 {
		return nil, nil
	}

	header := ParseLine(lines[0])
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	rows := make([][]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, ParseLine(line))
	}

	return header, rows
}

// setContactField assigns one raw cell to the field named by column.
// It reports false for columns the contact schema does not know.
func setContactField(c *record.Contact, column, raw string) bool {
	spec, ok := record.LookupContactField(column)
	if !ok {
		return false
	}

	switch spec.Kind {
	case record.KindText:
		v := raw
		*c.TextField(spec.Name) = &v
	case record.KindList:
		*c.ListField(spec.Name) = SplitList(raw)
	case record.KindPairs:
		pairs := SplitPairs(raw)
		c.CustomFields = make([]record.CustomField, len(pairs))
		for i, p := range pairs {
			c.CustomFields[i] = record.CustomField{Key: p[0], Value: p[1]}
		}
	case record.KindClassification:
		if cl, ok := record.ParseClassification(strings.TrimSpace(raw)); ok {
			c.Classification = &cl
		}
	}

	return true
}

// SplitList splits a cell on ";" into trimmed, non-empty elements.
// An empty cell yields an empty list, never a list holding "".
func SplitList(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ListSeparator) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// SplitPairs splits a cell on ";" and each element on its first ":".
// An element without ":" becomes (element, "").
func SplitPairs(raw string) [][2]string {
	elems := SplitList(raw)
	out := make([][2]string, 0, len(elems))
	for _, elem := range elems {
		key, value, _ := strings.Cut(elem, PairSeparator)
		out = append(out, [2]string{strings.TrimSpace(key), strings.TrimSpace(value)})
	}
	return out
}

func policyFields(pairs [][2]string) []record.PolicyField {
	fields := make([]record.PolicyField, len(pairs))
	for i, p := range pairs {
		fields[i] = record.PolicyField{Key: p[0], Value: p[1]}
	}
	return fields
}
