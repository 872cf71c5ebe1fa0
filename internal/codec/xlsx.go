package codec

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/hpungsan/meishi/internal/record"
)

const (
	contactsSheet = "Contacts"
	policiesSheet = "Policies"
)

// EncodeContactsXLSX writes contacts as a workbook using the same columns and
// cell flattening as EncodeContactsCSV.
func EncodeContactsXLSX(w io.Writer, contacts []record.Contact) error {
	rows := make([][]string, 0, len(contacts)+1)
	rows = append(rows, record.ContactFieldNames())
	for i := range contacts {
		row := make([]string, len(record.ContactFields))
		for j, spec := range record.ContactFields {
			row[j] = ContactCell(&contacts[i], spec.Name)
		}
		rows = append(rows, row)
	}
	return writeWorkbook(w, contactsSheet, rows)
}

// EncodePoliciesXLSX writes policies as a workbook (title, fields).
func EncodePoliciesXLSX(w io.Writer, policies []record.Policy) error {
	rows := make([][]string, 0, len(policies)+1)
	rows = append(rows, record.PolicyColumns)
	for i := range policies {
		rows = append(rows, []string{policies[i].Title, JoinPolicyFields(policies[i].Fields)})
	}
	return writeWorkbook(w, policiesSheet, rows)
}

func writeWorkbook(w io.Writer, sheet string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := WriteRows(f, sheet, 1, rows); err != nil {
		return err
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// WriteRows writes rows into sheet starting at the 1-based row index startRow.
func WriteRows(f *excelize.File, sheet string, startRow int, rows [][]string) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, startRow+i)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", startRow+i, err)
		}
	}
	return nil
}
