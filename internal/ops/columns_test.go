package ops

import (
	"bytes"
	"context"
	stderrors "errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/hpungsan/meishi/internal/errors"
	"github.com/hpungsan/meishi/internal/record"
)

type fakeProposer struct {
	proposal map[string]string
	err      error
	calls    int
}

func (f *fakeProposer) ProposeMapping(_ context.Context, _, _ []string) (map[string]string, error) {
	f.calls++
	return f.proposal, f.err
}

func templateBytes(t *testing.T, rows [][]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestBuildMapping_ManualWinsOverProposal(t *testing.T) {
	st := newTestState(t)
	p := &fakeProposer{proposal: map[string]string{"お名前": "furigana", "会社": "companyName", "メモ": "bogus"}}

	m, err := BuildMapping(context.Background(), st, p, MappingInput{
		Headers: []string{"お名前", "会社", "メモ"},
		Set:     map[string]string{"お名前": "name"},
		Propose: true,
	})
	require.NoError(t, err)
	require.Equal(t, 1, p.calls)

	got, ok := m.Lookup("お名前")
	require.True(t, ok)
	require.Equal(t, "name", got)
	got, ok = m.Lookup("会社")
	require.True(t, ok)
	require.Equal(t, "companyName", got)

	// An unknown proposed field becomes an explicit "not mapped"
	_, ok = m.Lookup("メモ")
	require.False(t, ok)
	require.True(t, m.Entries[2].Decided)
}

func TestBuildMapping_Errors(t *testing.T) {
	st := newTestState(t)
	ctx := context.Background()

	_, err := BuildMapping(ctx, st, nil, MappingInput{Headers: []string{"a"}, Set: map[string]string{"a": "nope"}})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = BuildMapping(ctx, st, nil, MappingInput{Headers: []string{"a"}, Set: map[string]string{"b": "name"}})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = BuildMapping(ctx, st, nil, MappingInput{Headers: []string{"a"}, Propose: true})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	p := &fakeProposer{err: stderrors.New("boom")}
	_, err = BuildMapping(ctx, st, p, MappingInput{Headers: []string{"a"}, Propose: true})
	require.True(t, errors.Is(err, errors.ErrExternalServiceFailure))

	// Fully decided mappings never call the proposer
	p = &fakeProposer{}
	_, err = BuildMapping(ctx, st, p, MappingInput{Headers: []string{"a"}, Set: map[string]string{"a": ""}, Propose: true})
	require.NoError(t, err)
	require.Zero(t, p.calls)
}

func TestBuildMapping_PolicyFields(t *testing.T) {
	ctx := context.Background()
	st := newTestState(t)
	_, err := st.AddPolicy(ctx, record.Policy{Title: "Auto", Fields: []record.PolicyField{{Key: "insurer", Value: "Tokio"}}})
	require.NoError(t, err)

	m, err := BuildMapping(ctx, st, nil, MappingInput{
		Kind:    "policies",
		Headers: []string{"保険会社", "名称"},
		Set:     map[string]string{"保険会社": "insurer", "名称": "title"},
	})
	require.NoError(t, err)
	require.Equal(t, [][]string{{"Tokio", "Auto"}}, MappedRows(st, "policies", m))
}

func TestFill_AppendsBelowTemplateRows(t *testing.T) {
	ctx := context.Background()
	st := newTestState(t)
	c := contact("Acme", "Jane")
	c.Website = []string{"a.test", "b.test"}
	_, err := st.AddContact(ctx, c)
	require.NoError(t, err)

	tmpl := templateBytes(t, [][]string{{"お名前", "会社", "URL", "メモ"}, {"(example)", "", "", ""}})
	out, err := Fill(ctx, st, nil, FillInput{
		MappingInput: MappingInput{Set: map[string]string{"お名前": "name", "会社": "companyName", "URL": "website"}},
		Template:     tmpl,
	})
	require.NoError(t, err)
	defer out.Workbook.Close()
	require.Equal(t, 1, out.Rows)

	rows, err := out.Workbook.GetRows(out.Workbook.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "(example)", rows[1][0])
	require.Equal(t, []string{"Jane", "Acme", "a.test;b.test"}, rows[2][:3])
}

func TestColumnApply_WritesFile(t *testing.T) {
	ctx := context.Background()
	st := newTestState(t)
	cfg, dir := exportConfig(t)
	_, err := st.AddContact(ctx, contact("Acme", "Jane"))
	require.NoError(t, err)

	tmplPath := filepath.Join(dir, "template.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow(f.GetSheetName(0), "A1", &[]string{"会社", "お名前"}))
	require.NoError(t, f.SaveAs(tmplPath))
	require.NoError(t, f.Close())

	p := &fakeProposer{proposal: map[string]string{"会社": "companyName", "お名前": "name"}}
	outPath := filepath.Join(dir, "filled.xlsx")
	out, err := ColumnApply(ctx, st, cfg, p, ColumnApplyInput{Template: tmplPath, Out: outPath, Propose: true})
	require.NoError(t, err)
	require.Equal(t, outPath, out.Path)
	require.Equal(t, 1, out.Rows)
	require.Len(t, out.Mapping, 2)

	filled, err := excelize.OpenFile(outPath)
	require.NoError(t, err)
	defer filled.Close()
	rows, err := filled.GetRows(filled.GetSheetName(0))
	require.NoError(t, err)
	require.Equal(t, [][]string{{"会社", "お名前"}, {"Acme", "Jane"}}, rows)
}

func TestColumnApply_RejectsNonXLSX(t *testing.T) {
	st := newTestState(t)
	cfg, dir := exportConfig(t)

	_, err := ColumnApply(context.Background(), st, cfg, nil, ColumnApplyInput{Template: filepath.Join(dir, "template.csv")})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestFilledFilename(t *testing.T) {
	now := time.Date(2024, 4, 1, 9, 30, 0, 0, time.UTC)
	require.Equal(t, "顧客一覧-filled-2024-04-01T093000.xlsx", FilledFilename("../顧客一覧.xlsx", now))
	require.Equal(t, "template-filled-2024-04-01T093000.xlsx", FilledFilename(".xlsx", now))
}
