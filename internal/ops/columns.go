package ops

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/hpungsan/meishi/internal/codec"
	"github.com/hpungsan/meishi/internal/colmap"
	"github.com/hpungsan/meishi/internal/config"
	"github.com/hpungsan/meishi/internal/errors"
	"github.com/hpungsan/meishi/internal/state"
)

// MappingInput describes how to build a column mapping for a set of headers.
type MappingInput struct {
	Kind    string
	Headers []string
	Set     map[string]string // external -> internal; "" marks an explicit "not mapped"
	Propose bool              // ask the proposer for the headers Set leaves undecided
}

// InternalFields returns the field names a template column can map to for kind.
func InternalFields(st *state.State, kind codec.Kind) []string {
	if kind == codec.KindPolicies {
		return colmap.PolicyFields(st.Policies())
	}
	return colmap.ContactFields()
}

// BuildMapping applies manual choices first, then a proposal for the rest.
// Manual choices always win over the proposal.
func BuildMapping(ctx context.Context, st *state.State, p colmap.Proposer, input MappingInput) (*colmap.Mapping, error) {
	kind, err := ParseKind(input.Kind)
	if err != nil {
		return nil, err
	}
	internal := InternalFields(st, kind)

	m := colmap.New(input.Headers)
	// Sorted so a bad entry is reported deterministically
	externals := make([]string, 0, len(input.Set))
	for ext := range input.Set {
		externals = append(externals, ext)
	}
	sort.Strings(externals)
	for _, ext := range externals {
		if err := m.Set(ext, input.Set[ext]); err != nil {
			return nil, err
		}
	}
	if err := m.Validate(internal); err != nil {
		return nil, err
	}

	if input.Propose && len(m.Undecided()) > 0 {
		if p == nil {
			return nil, errors.NewInvalidRequest("column proposal is not available")
		}
		proposed, err := colmap.Propose(ctx, p, m.Headers(), internal)
		if err != nil {
			return nil, err
		}
		proposal := make(map[string]string, len(proposed.Entries))
		for _, e := range proposed.Entries {
			if !e.Decided {
				continue
			}
			if e.Internal == nil {
				proposal[e.External] = ""
			} else {
				proposal[e.External] = *e.Internal
			}
		}
		m.Merge(proposal, internal)
	}
	return m, nil
}

// MappedRows renders the collection of kind under m's headers.
func MappedRows(st *state.State, kind codec.Kind, m *colmap.Mapping) [][]string {
	if kind == codec.KindPolicies {
		return colmap.PolicyRows(m, st.Policies())
	}
	return colmap.ContactRows(m, st.Contacts())
}

// FillInput contains parameters for the Fill operation.
type FillInput struct {
	MappingInput
	Template []byte // xlsx workbook; its first row supplies the headers
}

// FillOutput contains the filled workbook. The caller must close Workbook.
type FillOutput struct {
	Workbook *excelize.File
	Mapping  *colmap.Mapping
	Rows     int
}

// Fill maps the template's header row and appends one row per record below
// the template's existing rows.
func Fill(ctx context.Context, st *state.State, p colmap.Proposer, input FillInput) (*FillOutput, error) {
	kind, err := ParseKind(input.Kind)
	if err != nil {
		return nil, err
	}
	headers, err := colmap.TemplateHeaders(bytes.NewReader(input.Template))
	if err != nil {
		return nil, err
	}

	mi := input.MappingInput
	mi.Headers = headers
	m, err := BuildMapping(ctx, st, p, mi)
	if err != nil {
		return nil, err
	}

	rows := MappedRows(st, kind, m)
	f, err := colmap.FillTemplate(bytes.NewReader(input.Template), rows)
	if err != nil {
		return nil, err
	}
	return &FillOutput{Workbook: f, Mapping: m, Rows: len(rows)}, nil
}

// ColumnApplyInput contains parameters for the ColumnApply operation.
type ColumnApplyInput struct {
	Kind     string
	Template string // path to an xlsx template
	Out      string // optional, default: <base>/exports/<kind>-filled-<timestamp>.xlsx
	Set      map[string]string
	Propose  bool
}

// ColumnApplyOutput contains the result of the ColumnApply operation.
type ColumnApplyOutput struct {
	Path    string         `json:"path"`
	Rows    int            `json:"rows"`
	Mapping []colmap.Entry `json:"mapping"`
}

// ColumnApply fills a template file on disk and writes the result to Out.
func ColumnApply(ctx context.Context, st *state.State, cfg *config.Config, p colmap.Proposer, input ColumnApplyInput) (*ColumnApplyOutput, error) {
	kind, err := ParseKind(input.Kind)
	if err != nil {
		return nil, err
	}

	if err := ValidatePath(input.Template, PathCheckRead, XLSXExtensions, cfg); err != nil {
		return nil, err
	}
	outPath := input.Out
	if outPath == "" {
		outPath = filepath.Join(DefaultExportsDir(), fmt.Sprintf("%s-filled-%s.xlsx", kind, st.Now().Format("2006-01-02T150405")))
	}
	if err := ValidatePath(outPath, PathCheckWrite, XLSXExtensions, cfg); err != nil {
		return nil, err
	}

	tmpl, err := readTemplate(input.Template)
	if err != nil {
		return nil, err
	}

	res, err := Fill(ctx, st, p, FillInput{
		MappingInput: MappingInput{Kind: string(kind), Set: input.Set, Propose: input.Propose},
		Template:     tmpl,
	})
	if err != nil {
		return nil, err
	}
	defer res.Workbook.Close()

	if err := writeAtomic(ctx, outPath, func(w io.Writer) error {
		return res.Workbook.Write(w)
	}); err != nil {
		return nil, err
	}

	return &ColumnApplyOutput{Path: outPath, Rows: res.Rows, Mapping: res.Mapping.Entries}, nil
}

func readTemplate(path string) ([]byte, error) {
	file, err := openFileNoFollowRead(path)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open template: %w", err))
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxImportBytes+1))
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to read template: %w", err))
	}
	if len(data) > MaxImportBytes {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("template exceeds %d bytes", MaxImportBytes))
	}
	return data, nil
}

// FilledFilename returns the download name for a filled template.
func FilledFilename(template string, now time.Time) string {
	base := SanitizeForFilename(filepath.Base(template))
	base = base[:len(base)-len(filepath.Ext(base))]
	if base == "" {
		base = "template"
	}
	return fmt.Sprintf("%s-filled-%s.xlsx", base, now.Format("2006-01-02T150405"))
}
