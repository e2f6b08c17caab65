package export

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/challan-processor/constants"
	"github.com/joseph-ayodele/challan-processor/internal/entity"
	"github.com/joseph-ayodele/challan-processor/internal/repository"
	"github.com/joseph-ayodele/challan-processor/internal/testfixture"
)

var raw = excelize.Options{RawCellValue: true}

func sampleRecords() []*entity.Record {
	var out []*entity.Record
	for _, c := range testfixture.Samples() {
		r := c.Record()
		r.ValidationFlag = constants.ValidationOK
		out = append(out, r)
	}
	return out
}

func flaggedRecord() *entity.Record {
	r := testfixture.Mismatched().Record()
	r.ValidationFlag = constants.ValidationFlag
	r.Notes = "tax_breakup: Tax breakup sum (5000.00) != Total amount (10000.00), diff=5000.00"
	return r
}

func open(t *testing.T, records []*entity.Record, opts Options) *excelize.File {
	t.Helper()
	var buf bytes.Buffer
	_, err := Write(records, &buf, opts)
	require.NoError(t, err)
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func cell(t *testing.T, f *excelize.File, sheet, name string) string {
	t.Helper()
	v, err := f.GetCellValue(sheet, name, raw)
	require.NoError(t, err)
	return v
}

func TestWriteDataSheet(t *testing.T) {
	f := open(t, sampleRecords(), DefaultOptions())

	rows, err := f.GetRows(SheetChallans)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, Columns, rows[0])
	assert.Len(t, Columns, 25)

	assert.Equal(t, "BLRS05586H", cell(t, f, SheetChallans, "A2"))
	assert.Equal(t, "19395", cell(t, f, SheetChallans, "H2"))
	assert.Equal(t, "22500", cell(t, f, SheetChallans, "H3"))
	assert.Equal(t, "40000", cell(t, f, SheetChallans, "H4"))
	assert.Equal(t, "2025-10-07", cell(t, f, SheetChallans, "M2"))
	assert.Equal(t, "19395", cell(t, f, SheetChallans, "P2"), "Tax_A")
	assert.Equal(t, "0", cell(t, f, SheetChallans, "U2"), "Tax_F")
	assert.Equal(t, testfixture.Samples()[0].SourceFile, cell(t, f, SheetChallans, "V2"))
	assert.Equal(t, "OK", cell(t, f, SheetChallans, "X2"))

	panes, err := f.GetPanes(SheetChallans)
	require.NoError(t, err)
	assert.True(t, panes.Freeze)
	assert.Equal(t, "A2", panes.TopLeftCell)
}

func TestWriteFlaggedSheetAndFills(t *testing.T) {
	records := append(sampleRecords()[:1], flaggedRecord())
	f := open(t, records, DefaultOptions())

	assert.Contains(t, f.GetSheetList(), SheetFlagged)
	rows, err := f.GetRows(SheetFlagged)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "FLAG", cell(t, f, SheetFlagged, "X2"))

	okStyle, err := f.GetCellStyle(SheetChallans, "X2")
	require.NoError(t, err)
	flagStyle, err := f.GetCellStyle(SheetChallans, "X3")
	require.NoError(t, err)
	assert.NotEqual(t, okStyle, flagStyle)

	moneyStyle, err := f.GetCellStyle(SheetChallans, "H2")
	require.NoError(t, err)
	style, err := f.GetStyle(moneyStyle)
	require.NoError(t, err)
	assert.Equal(t, fmtMoney, style.NumFmt)
}

func TestWriteNoFlaggedSheetWhenClean(t *testing.T) {
	f := open(t, sampleRecords(), DefaultOptions())
	assert.NotContains(t, f.GetSheetList(), SheetFlagged)
}

func TestWriteSummary(t *testing.T) {
	records := append(sampleRecords(), flaggedRecord())
	now := func() time.Time { return time.Date(2026, time.January, 15, 9, 30, 0, 0, time.UTC) }
	f := open(t, records, Options{IncludeSummary: true, Now: now})

	assert.Equal(t, "TDS Challan Processing Summary", cell(t, f, SheetSummary, "A1"))
	assert.Equal(t, "Generated: 2026-01-15 09:30:00", cell(t, f, SheetSummary, "A2"))
	assert.Equal(t, "4", cell(t, f, SheetSummary, "B5"))
	assert.Equal(t, "3", cell(t, f, SheetSummary, "B6"))
	assert.Equal(t, "1", cell(t, f, SheetSummary, "B7"))
	assert.Equal(t, "91895", cell(t, f, SheetSummary, "B8"))
	assert.Equal(t, "0.95", cell(t, f, SheetSummary, "B9"))

	assert.Equal(t, "BLRS05586H", cell(t, f, SheetSummary, "A13"))
	assert.Equal(t, "4", cell(t, f, SheetSummary, "B13"))
	assert.Equal(t, "91895", cell(t, f, SheetSummary, "C13"))
	assert.Equal(t, "1", cell(t, f, SheetSummary, "D13"))

	assert.Equal(t, "Flagged Records Details", cell(t, f, SheetSummary, "A16"))
	assert.Equal(t, "mismatch.pdf", cell(t, f, SheetSummary, "A18"))
	assert.Contains(t, cell(t, f, SheetSummary, "D18"), "Tax breakup sum")
}

func TestWriteSummaryOptional(t *testing.T) {
	f := open(t, sampleRecords(), Options{})
	assert.NotContains(t, f.GetSheetList(), SheetSummary)

	f = open(t, nil, DefaultOptions())
	assert.Equal(t, []string{SheetChallans}, f.GetSheetList())
	rows, err := f.GetRows(SheetChallans)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestWriteExcludesRejected(t *testing.T) {
	records := sampleRecords()
	records[1].ReviewStatus = constants.ReviewRejected

	var buf bytes.Buffer
	n, err := Write(records, &buf, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = Write(records, &bytes.Buffer{}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestWriteBlankMissingValues(t *testing.T) {
	r := sampleRecords()[0]
	r.TotalAmount = nil
	r.DateOfDeposit = nil
	f := open(t, []*entity.Record{r}, Options{})

	assert.Empty(t, cell(t, f, SheetChallans, "H2"))
	assert.Empty(t, cell(t, f, SheetChallans, "M2"))
}

func TestExportBatchXLSX(t *testing.T) {
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{DSN: filepath.Join(t.TempDir(), "export.db")}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { repository.Close(db, nil) })

	batches := repository.NewBatchRepository(db, nil)
	records := repository.NewRecordRepository(db, nil)
	batchID := uuid.NewString()
	require.NoError(t, batches.Create(ctx, batchID))
	for _, r := range sampleRecords() {
		require.NoError(t, records.Save(ctx, batchID, r))
	}
	require.NoError(t, records.Save(ctx, "", flaggedRecord()))

	var buf bytes.Buffer
	n, err := NewService(records, nil).ExportBatchXLSX(ctx, batchID, &buf, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(SheetChallans)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}
