package codec

import (
	"path/filepath"
	"strings"

	"github.com/hpungsan/meishi/internal/errors"
	"github.com/hpungsan/meishi/internal/record"
)

// Sniff decides which record kind and dialect an import file holds.
// Only the extension of filename is used. Content may carry a BOM.
func Sniff(filename, content string) (Format, error) {
	var dialect Dialect
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		dialect = DialectCSV
	case ".txt":
		dialect = DialectTXT
	default:
		return Format{}, errors.NewUnsupportedFormat(filename)
	}

	text := strings.TrimSpace(stripBOM(content))
	if text == "" {
		return Format{}, errors.NewEmptyInput(filename)
	}

	if dialect == DialectTXT {
		switch {
		case strings.Contains(text, ContactMarker):
			return Format{Kind: KindContacts, Dialect: DialectTXT}, nil
		case strings.Contains(text, PolicyMarkerPrefix):
			return Format{Kind: KindPolicies, Dialect: DialectTXT}, nil
		}
		return Format{}, errors.NewUnrecognizedSchema(filename)
	}

	header := headerFields(text)
	switch {
	case header["companyName"] && header["name"]:
		return Format{Kind: KindContacts, Dialect: DialectCSV}, nil
	case header[record.PolicyTitleField] && header[record.PolicyFieldsField]:
		return Format{Kind: KindPolicies, Dialect: DialectCSV}, nil
	}
	return Format{}, errors.NewUnrecognizedSchema(filename)
}

// headerFields returns the trimmed column names of the first logical line.
func headerFields(text string) map[string]bool {
	lines := SplitLogicalLines(text)
	names := make(map[string]bool)
	if len(lines) == 0 {
		return names
	}
	for _, name := range ParseLine(lines[0]) {
		names[strings.TrimSpace(name)] = true
	}
	return names
}
