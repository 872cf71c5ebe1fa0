// Package codec reads and writes contact and policy records as CSV, TXT and XLSX.
package codec

import (
	"strings"

	"github.com/hpungsan/meishi/internal/record"
)

// Kind identifies which record shape a file carries.
type Kind string

const (
	KindContacts Kind = "contacts"
	KindPolicies Kind = "policies"
)

// Dialect identifies the text layout of a file.
type Dialect string

const (
	DialectCSV  Dialect = "csv"
	DialectTXT  Dialect = "txt"
	DialectXLSX Dialect = "xlsx" // export only
)

// Format is the result of sniffing an import file.
type Format struct {
	Kind    Kind
	Dialect Dialect
}

// Batch is the decoded content of one import file.
// Records carry no IDs or image references; the importer assigns those.
type Batch struct {
	Format   Format
	Contacts []record.Contact
	Policies []record.Policy
}

// Len returns the number of decoded records.
func (b *Batch) Len() int {
	if b.Format.Kind == KindPolicies {
		return len(b.Policies)
	}
	return len(b.Contacts)
}

const (
	// BOM is prepended to exported text so spreadsheet tools detect UTF-8.
	BOM = "\uFEFF"

	// ContactMarker starts each contact in the TXT dialect.
	ContactMarker = "--- 名刺データ ---"

	// PolicyMarkerPrefix starts each policy in the TXT dialect; the title follows it.
	PolicyMarkerPrefix = "Analysis Data:"

	// ListSeparator joins list elements and key:value pairs inside one cell.
	ListSeparator = ";"

	// PairSeparator splits a key from its value inside a pair element.
	PairSeparator = ":"
)

// ParseKind validates a user-supplied record kind.
func ParseKind(s string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindContacts, "contact":
		return KindContacts, true
	case KindPolicies, "policy":
		return KindPolicies, true
	}
	return "", false
}

// stripBOM removes a leading byte-order mark.
func stripBOM(s string) string {
	return strings.TrimPrefix(s, BOM)
}
