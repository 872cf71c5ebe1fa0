package colmap

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hpungsan/meishi/internal/codec"
	"github.com/hpungsan/meishi/internal/errors"
)

// TemplateHeaders reads the first row of the template's first sheet.
// Trailing empty header cells are dropped.
func TemplateHeaders(r io.Reader) ([]string, error) {
	f, err := openTemplate(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("read template: %v", err))
	}
	if len(rows) == 0 {
		return nil, errors.NewInvalidRequest("template has no header row")
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}
	for len(headers) > 0 && headers[len(headers)-1] == "" {
		headers = headers[:len(headers)-1]
	}
	if len(headers) == 0 {
		return nil, errors.NewInvalidRequest("template has no header row")
	}
	return headers, nil
}

// FillTemplate opens an xlsx template and appends rows to its first sheet
// below the last non-empty row. Existing rows are left as they are.
// The caller owns the returned file and must close it.
func FillTemplate(r io.Reader, rows [][]string) (*excelize.File, error) {
	f, err := openTemplate(r)
	if err != nil {
		return nil, err
	}

	sheet := f.GetSheetName(0)
	existing, err := f.GetRows(sheet)
	if err != nil {
		f.Close()
		return nil, errors.NewInvalidRequest(fmt.Sprintf("read template: %v", err))
	}

	if err := codec.WriteRows(f, sheet, lastNonEmptyRow(existing)+1, rows); err != nil {
		f.Close()
		return nil, errors.NewInternal(err)
	}
	return f, nil
}

func openTemplate(r io.Reader) (*excelize.File, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("template is not a valid xlsx workbook: %v", err))
	}
	if f.SheetCount == 0 {
		f.Close()
		return nil, errors.NewInvalidRequest("template has no sheets")
	}
	return f, nil
}

// lastNonEmptyRow returns the 1-based index of the last row holding a
// non-blank cell, or 0 if every row is blank.
func lastNonEmptyRow(rows [][]string) int {
	for i := len(rows) - 1; i >= 0; i-- {
		for _, cell := range rows[i] {
			if strings.TrimSpace(cell) != "" {
				return i + 1
			}
		}
	}
	return 0
}
