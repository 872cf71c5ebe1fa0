package codec

import (
	"bufio"
	"io"
	"strings"

	"github.com/hpungsan/meishi/internal/record"
)

// EncodeContactsCSV writes contacts as CSV in canonical column order, with a
// leading BOM and '\n' line endings.
func EncodeContactsCSV(w io.Writer, contacts []record.Contact) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(BOM)
	writeRow(bw, record.ContactFieldNames())

	row := make([]string, len(record.ContactFields))
	for i := range contacts {
		for j, spec := range record.ContactFields {
			row[j] = ContactCell(&contacts[i], spec.Name)
		}
		writeRow(bw, row)
	}

	return bw.Flush()
}

// EncodePoliciesCSV writes policies as CSV (title, fields) with a leading BOM.
func EncodePoliciesCSV(w io.Writer, policies []record.Policy) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(BOM)
	writeRow(bw, record.PolicyColumns)

	for i := range policies {
		writeRow(bw, []string{policies[i].Title, JoinPolicyFields(policies[i].Fields)})
	}

	return bw.Flush()
}

func writeRow(bw *bufio.Writer, cells []string) {
	for i, cell := range cells {
		if i > 0 {
			bw.WriteByte(',')
		}
		bw.WriteString(escapeCell(cell))
	}
	bw.WriteByte('\n')
}

// ContactCell renders one contact field as a single unescaped cell.
// Lists are ";"-joined and custom fields render as "key:value;key:value".
// Unknown names and absent fields render as "".
func ContactCell(c *record.Contact, name string) string {
	spec, ok := record.LookupContactField(name)
	if !ok {
		return ""
	}

	switch spec.Kind {
	case record.KindText:
		if p := *c.TextField(name); p != nil {
			return *p
		}
	case record.KindList:
		return strings.Join(*c.ListField(name), ListSeparator)
	case record.KindPairs:
		parts := make([]string, len(c.CustomFields))
		for i, cf := range c.CustomFields {
			parts[i] = cf.Key + PairSeparator + cf.Value
		}
		return strings.Join(parts, ListSeparator)
	case record.KindClassification:
		if c.Classification != nil {
			return string(*c.Classification)
		}
	}
	return ""
}

// PolicyCell renders one policy column as a single unescaped cell.
// Besides "title" and "fields", any other name is looked up as a field key;
// repeated keys are ";"-joined in field order.
func PolicyCell(p *record.Policy, name string) string {
	switch name {
	case record.PolicyTitleField:
		return p.Title
	case record.PolicyFieldsField:
		return JoinPolicyFields(p.Fields)
	}

	var values []string
	for _, f := range p.Fields {
		if f.Key == name {
			values = append(values, f.Value)
		}
	}
	return strings.Join(values, ListSeparator)
}

// JoinPolicyFields renders fields as "key:value;key:value".
func JoinPolicyFields(fields []record.PolicyField) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.Key + PairSeparator + f.Value
	}
	return strings.Join(parts, ListSeparator)
}
