package colmap

import (
	"github.com/hpungsan/meishi/internal/codec"
	"github.com/hpungsan/meishi/internal/record"
)

// ContactFields returns the internal field names a contact column can map to.
func ContactFields() []string {
	return record.ContactFieldNames()
}

// PolicyFields returns "title" followed by every distinct field key across
// policies, in first-seen order. Each key acts as a pseudo-column.
func PolicyFields(policies []record.Policy) []string {
	out := []string{record.PolicyTitleField}
	seen := map[string]bool{record.PolicyTitleField: true}
	for _, p := range policies {
		for _, f := range p.Fields {
			if f.Key == "" || seen[f.Key] {
				continue
			}
			seen[f.Key] = true
			out = append(out, f.Key)
		}
	}
	return out
}

// ContactRows renders one row per contact in external header order.
// Unmapped headers yield empty cells.
func ContactRows(m *Mapping, contacts []record.Contact) [][]string {
	rows := make([][]string, len(contacts))
	for i := range contacts {
		row := make([]string, len(m.Entries))
		for j, e := range m.Entries {
			if e.Mapped() {
				row[j] = codec.ContactCell(&contacts[i], *e.Internal)
			}
		}
		rows[i] = row
	}
	return rows
}

// PolicyRows renders one row per policy in external header order.
func PolicyRows(m *Mapping, policies []record.Policy) [][]string {
	rows := make([][]string, len(policies))
	for i := range policies {
		row := make([]string, len(m.Entries))
		for j, e := range m.Entries {
			if e.Mapped() {
				row[j] = codec.PolicyCell(&policies[i], *e.Internal)
			}
		}
		rows[i] = row
	}
	return rows
}
