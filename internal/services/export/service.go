// Package export renders challan records into the TDS reconciliation workbook.
package export

import (
	"context"
	"io"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/challan-processor/constants"
	"github.com/joseph-ayodele/challan-processor/internal/common"
	"github.com/joseph-ayodele/challan-processor/internal/entity"
	"github.com/joseph-ayodele/challan-processor/internal/repository"
)

// Sheet names.
const (
	SheetChallans = "TDS Challans"
	SheetSummary  = "Summary"
	SheetFlagged  = "Flagged Records"
)

// Columns is the data sheet header, in order.
var Columns = []string{
	"TAN",
	"Deductor Name",
	"Assessment Year",
	"Financial Year",
	"Major Head",
	"Minor Head",
	"Nature of Payment",
	"Total Amount",
	"Amount in Words",
	"CIN",
	"BSR Code",
	"Challan No",
	"Date of Deposit",
	"Bank Name",
	"Bank Ref No",
	"Tax_A",
	"Tax_B",
	"Tax_C",
	"Tax_D",
	"Tax_E",
	"Tax_F",
	"Source File",
	"Row Confidence",
	"Validation Flag",
	"Notes",
}

const (
	fmtMoney   = 4  // #,##0.00
	fmtPercent = 10 // 0.00%

	colorHeader = "4472C4"
	colorFlag   = "FFC7CE"
	colorOK     = "C6EFCE"
)

// Options controls what goes into the workbook.
type Options struct {
	IncludeSummary  bool
	ExcludeRejected bool
	Now             func() time.Time
}

// DefaultOptions include the summary and drop rejected records.
func DefaultOptions() Options {
	return Options{IncludeSummary: true, ExcludeRejected: true}
}

// Service is a tiny façade over the record store that produces XLSX exports.
type Service struct {
	records repository.RecordRepository
	logger  *zap.Logger
}

func NewService(records repository.RecordRepository, logger *zap.Logger) *Service {
	return &Service{records: records, logger: common.LoggerOrDefault(logger)}
}

// ExportBatchXLSX writes the workbook for the stored records of batchID (every stored record
// when batchID is empty).
func (s *Service) ExportBatchXLSX(ctx context.Context, batchID string, w io.Writer, opts Options) (int, error) {
	start := time.Now()
	recs, err := s.records.List(ctx, repository.RecordFilter{BatchID: batchID, ExcludeRejected: opts.ExcludeRejected})
	if err != nil {
		return 0, eris.Wrap(err, "query records")
	}
	n, err := Write(recs, w, opts)
	if err != nil {
		return 0, err
	}
	s.logger.Info("export xlsx ok",
		zap.String("batch_id", batchID),
		zap.Int("rows", n),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return n, nil
}

// Write renders records into w and returns the number of data rows written.
func Write(records []*entity.Record, w io.Writer, opts Options) (int, error) {
	f, rows, err := Build(records, opts)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return 0, eris.Wrap(err, "xlsx write")
	}
	return rows, nil
}

// Build assembles the workbook in memory. The caller closes the file.
func Build(records []*entity.Record, opts Options) (*excelize.File, int, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ExcludeRejected {
		kept := make([]*entity.Record, 0, len(records))
		for _, r := range records {
			if r.ReviewStatus != constants.ReviewRejected {
				kept = append(kept, r)
			}
		}
		records = kept
	}

	f := excelize.NewFile()
	st, err := newStyles(f)
	if err != nil {
		_ = f.Close()
		return nil, 0, err
	}
	if err := f.SetSheetName("Sheet1", SheetChallans); err != nil {
		_ = f.Close()
		return nil, 0, eris.Wrap(err, "rename sheet")
	}
	if err := writeData(f, SheetChallans, records, st); err != nil {
		_ = f.Close()
		return nil, 0, err
	}

	if opts.IncludeSummary && len(records) > 0 {
		if _, err := f.NewSheet(SheetSummary); err != nil {
			_ = f.Close()
			return nil, 0, eris.Wrap(err, "new summary sheet")
		}
		if err := writeSummary(f, records, st, opts.Now()); err != nil {
			_ = f.Close()
			return nil, 0, err
		}
	}

	if flagged := flaggedOf(records); len(flagged) > 0 {
		if _, err := f.NewSheet(SheetFlagged); err != nil {
			_ = f.Close()
			return nil, 0, eris.Wrap(err, "new flagged sheet")
		}
		if err := writeData(f, SheetFlagged, flagged, st); err != nil {
			_ = f.Close()
			return nil, 0, err
		}
	}
	f.SetActiveSheet(0)
	return f, len(records), nil
}

type styles struct {
	header, bold, title      int
	text, money, percent     int
	flag, ok                 int
	summaryMoney, summaryPct int
}

func newStyles(f *excelize.File) (styles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	fill := func(color string) excelize.Fill {
		return excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1}
	}
	var st styles
	defs := []struct {
		dst   *int
		style *excelize.Style
	}{
		{&st.header, &excelize.Style{
			Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
			Fill:      fill(colorHeader),
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
			Border:    border,
		}},
		{&st.bold, &excelize.Style{Font: &excelize.Font{Bold: true}}},
		{&st.title, &excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}}},
		{&st.text, &excelize.Style{Border: border}},
		{&st.money, &excelize.Style{Border: border, NumFmt: fmtMoney}},
		{&st.percent, &excelize.Style{Border: border, NumFmt: fmtPercent}},
		{&st.flag, &excelize.Style{Border: border, Fill: fill(colorFlag)}},
		{&st.ok, &excelize.Style{Border: border, Fill: fill(colorOK)}},
		{&st.summaryMoney, &excelize.Style{NumFmt: fmtMoney}},
		{&st.summaryPct, &excelize.Style{NumFmt: fmtPercent}},
	}
	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return st, eris.Wrap(err, "xlsx style")
		}
		*d.dst = id
	}
	return st, nil
}

func writeData(f *excelize.File, sheet string, records []*entity.Record, st styles) error {
	for i, h := range Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return eris.Wrapf(err, "write header %s", h)
		}
	}
	last, _ := excelize.ColumnNumberToName(len(Columns))
	if err := f.SetCellStyle(sheet, "A1", last+"1", st.header); err != nil {
		return eris.Wrap(err, "style header")
	}

	for i, r := range records {
		row := i + 2
		values := rowValues(r)
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return eris.Wrapf(err, "write %s", cell)
			}
			if err := f.SetCellStyle(sheet, cell, cell, cellStyle(Columns[col], r, st)); err != nil {
				return eris.Wrapf(err, "style %s", cell)
			}
		}
	}

	if err := autoFit(f, sheet, len(Columns), 10, 50); err != nil {
		return err
	}
	return eris.Wrap(f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}), "freeze header")
}

func cellStyle(column string, r *entity.Record, st styles) int {
	switch column {
	case "Total Amount", "Tax_A", "Tax_B", "Tax_C", "Tax_D", "Tax_E", "Tax_F":
		return st.money
	case "Row Confidence":
		return st.percent
	case "Validation Flag":
		if r.ValidationFlag == constants.ValidationFlag {
			return st.flag
		}
		return st.ok
	}
	return st.text
}

// rowValues returns one value per entry of Columns. Missing amounts and dates are blank.
func rowValues(r *entity.Record) []any {
	var total any = ""
	if r.TotalAmount != nil {
		total = *r.TotalAmount
	}
	var deposit any = ""
	if r.DateOfDeposit != nil && !r.DateOfDeposit.IsZero() {
		deposit = r.DateOfDeposit.String()
	}
	tb := r.TaxBreakup
	return []any{
		r.TAN,
		r.DeductorName,
		r.AssessmentYear,
		r.FinancialYear,
		r.MajorHead,
		r.MinorHead,
		r.NatureOfPayment,
		total,
		r.AmountInWords,
		r.CIN,
		r.BSRCode,
		r.ChallanNo,
		deposit,
		r.BankName,
		r.BankRefNo,
		tb.TaxA, tb.TaxB, tb.TaxC, tb.TaxD, tb.TaxE, tb.TaxF,
		r.SourceFile,
		r.RowConfidence,
		string(r.ValidationFlag),
		r.Notes,
	}
}

type tanGroup struct {
	count   int
	amount  decimal.Decimal
	flagged int
}

func writeSummary(f *excelize.File, records []*entity.Record, st styles, now time.Time) error {
	const sheet = SheetSummary
	set := func(cell string, v any, style int) error {
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return eris.Wrapf(err, "write %s", cell)
		}
		if style != 0 {
			return eris.Wrapf(f.SetCellStyle(sheet, cell, cell, style), "style %s", cell)
		}
		return nil
	}
	cellName := func(col, row int) string {
		c, _ := excelize.CoordinatesToCellName(col, row)
		return c
	}

	var (
		ok, flagged int
		total       decimal.Decimal
		confidence  decimal.Decimal
	)
	groups := map[string]*tanGroup{}
	for _, r := range records {
		amount := decimal.NewFromFloat(r.Amount())
		total = total.Add(amount)
		confidence = confidence.Add(decimal.NewFromFloat(r.RowConfidence))
		switch r.ValidationFlag {
		case constants.ValidationOK:
			ok++
		case constants.ValidationFlag:
			flagged++
		}

		tan := r.TAN
		if tan == "" {
			tan = "Unknown"
		}
		g, found := groups[tan]
		if !found {
			g = &tanGroup{}
			groups[tan] = g
		}
		g.count++
		g.amount = g.amount.Add(amount)
		if r.ValidationFlag == constants.ValidationFlag {
			g.flagged++
		}
	}
	avg := confidence.Div(decimal.NewFromInt(int64(len(records))))

	if err := set("A1", "TDS Challan Processing Summary", st.title); err != nil {
		return err
	}
	if err := f.MergeCell(sheet, "A1", "D1"); err != nil {
		return eris.Wrap(err, "merge title")
	}
	if err := set("A2", "Generated: "+now.Format("2006-01-02 15:04:05"), 0); err != nil {
		return err
	}
	if err := set("A4", "Overall Statistics", st.bold); err != nil {
		return err
	}

	stats := []struct {
		label string
		value any
		style int
	}{
		{"Total Records", len(records), 0},
		{"OK Records", ok, 0},
		{"Flagged Records", flagged, 0},
		{"Total Amount (Sum)", total.InexactFloat64(), st.summaryMoney},
		{"Average Confidence", avg.InexactFloat64(), st.summaryPct},
	}
	for i, s := range stats {
		row := 5 + i
		if err := set(cellName(1, row), s.label, 0); err != nil {
			return err
		}
		if err := set(cellName(2, row), s.value, s.style); err != nil {
			return err
		}
	}

	if err := set("A11", "Summary by TAN", st.bold); err != nil {
		return err
	}
	for i, h := range []string{"TAN", "Record Count", "Total Amount", "Flagged"} {
		if err := set(cellName(i+1, 12), h, st.header); err != nil {
			return err
		}
	}
	tans := make([]string, 0, len(groups))
	for tan := range groups {
		tans = append(tans, tan)
	}
	sort.Strings(tans)
	row := 13
	for _, tan := range tans {
		g := groups[tan]
		if err := set(cellName(1, row), tan, 0); err != nil {
			return err
		}
		if err := set(cellName(2, row), g.count, 0); err != nil {
			return err
		}
		if err := set(cellName(3, row), g.amount.InexactFloat64(), st.summaryMoney); err != nil {
			return err
		}
		if err := set(cellName(4, row), g.flagged, 0); err != nil {
			return err
		}
		row++
	}

	if list := flaggedOf(records); len(list) > 0 {
		row += 2
		if err := set(cellName(1, row), "Flagged Records Details", st.bold); err != nil {
			return err
		}
		row++
		for i, h := range []string{"Source File", "CIN", "Amount", "Issue"} {
			if err := set(cellName(i+1, row), h, st.bold); err != nil {
				return err
			}
		}
		row++
		for _, r := range list {
			var amount any = ""
			if r.TotalAmount != nil {
				amount = *r.TotalAmount
			}
			for i, v := range []any{r.SourceFile, r.CIN, amount, r.Notes} {
				style := 0
				if i == 2 {
					style = st.summaryMoney
				}
				if err := set(cellName(i+1, row), v, style); err != nil {
					return err
				}
			}
			row++
		}
	}
	return autoFit(f, sheet, 4, 10, 50)
}

func flaggedOf(records []*entity.Record) []*entity.Record {
	var out []*entity.Record
	for _, r := range records {
		if r.ValidationFlag == constants.ValidationFlag {
			out = append(out, r)
		}
	}
	return out
}

// autoFit sizes the first n columns to their longest cell, clamped to [minWidth, maxWidth].
func autoFit(f *excelize.File, sheet string, n int, minWidth, maxWidth float64) error {
	cols, err := f.GetCols(sheet)
	if err != nil {
		return eris.Wrapf(err, "read columns of %s", sheet)
	}
	for i := 0; i < n; i++ {
		longest := 0
		if i < len(cols) {
			for _, v := range cols[i] {
				longest = max(longest, len([]rune(v)))
			}
		}
		width := min(max(float64(longest+2), minWidth), maxWidth)
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, name, name, width); err != nil {
			return eris.Wrapf(err, "width of %s", name)
		}
	}
	return nil
}
