// Package layout pairs label fragments with their values using positions on the page.
package layout

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/challan-processor/constants"
	"github.com/joseph-ayodele/challan-processor/internal/common"
	"github.com/joseph-ayodele/challan-processor/internal/core/document"
	"github.com/joseph-ayodele/challan-processor/internal/core/extract/text"
	"github.com/joseph-ayodele/challan-processor/internal/entity"
)

const (
	labelConfidence      = 0.85
	tableConfidence      = 0.9
	tableMissConfidence  = 0.7
	defaultLineTolerance = 5.0
)

type label struct {
	field    string
	keywords []string
}

var labels = []label{
	{constants.FieldTAN, []string{"TAN"}},
	{constants.FieldDeductorName, []string{"Name"}},
	{constants.FieldAssessmentYear, []string{"Assessment Year"}},
	{constants.FieldFinancialYear, []string{"Financial Year"}},
	{constants.FieldMajorHead, []string{"Major Head"}},
	{constants.FieldMinorHead, []string{"Minor Head"}},
	{constants.FieldNatureOfPayment, []string{"Nature of Payment"}},
	{constants.FieldTotalAmount, []string{"Amount (in Rs.)", "Amount(in Rs.)"}},
	{constants.FieldAmountInWords, []string{"Amount (in words)", "Amount(in words)"}},
	{constants.FieldCIN, []string{"CIN"}},
	{constants.FieldBSRCode, []string{"BSR code", "BSR Code"}},
	{constants.FieldChallanNo, []string{"Challan No", "Challan No."}},
	{constants.FieldDateOfDeposit, []string{"Date of Deposit"}},
	{constants.FieldTenderDate, []string{"Tender Date"}},
	{constants.FieldBankName, []string{"Bank Name"}},
	{constants.FieldBankRefNo, []string{"Bank Reference Number"}},
	{constants.FieldModeOfPayment, []string{"Mode of Payment"}},
}

type taxRow struct {
	field  string
	letter string
	word   string
}

var taxRows = []taxRow{
	{constants.FieldTaxA, "A", "Tax"},
	{constants.FieldTaxB, "B", "Surcharge"},
	{constants.FieldTaxC, "C", "Cess"},
	{constants.FieldTaxD, "D", "Interest"},
	{constants.FieldTaxE, "E", "Penalty"},
	{constants.FieldTaxF, "F", "Fee"},
}

var reTrailingAmount = regexp.MustCompile(`([0-9,]+(?:\.\d{2})?)\s*$`)

// Extractor resolves label/value pairs from positioned fragments.
type Extractor struct {
	lineTolerance float64
	logger        *zap.Logger
}

// NewExtractor returns an extractor grouping fragments into lines within lineTolerance units.
func NewExtractor(lineTolerance float64, logger *zap.Logger) *Extractor {
	if lineTolerance <= 0 {
		lineTolerance = defaultLineTolerance
	}
	return &Extractor{lineTolerance: lineTolerance, logger: common.LoggerOrDefault(logger)}
}

// Extract never fails. Label fields are present only when resolved; the six tax components
// are present whenever the page has fragments. An empty page contributes nothing.
func (e *Extractor) Extract(frags []document.Fragment) entity.FieldMap {
	fields := entity.FieldMap{}
	lines := document.Lines(frags, e.lineTolerance)
	if len(lines) == 0 {
		e.logger.Debug("no fragments to extract")
		return fields
	}

	for _, l := range labels {
		for _, kw := range l.keywords {
			if value, ok := valueForLabel(kw, lines); ok {
				fields[l.field] = entity.NewFieldValue(value, labelConfidence, constants.StrategyLayout, value)
				break
			}
		}
	}
	e.extractTaxTable(lines, fields)

	e.logger.Debug("layout extraction",
		zap.Int("fragments", len(frags)),
		zap.Int("lines", len(lines)),
		zap.Int("fields", len(fields)),
	)
	return fields
}

func valueForLabel(keyword string, lines [][]document.Fragment) (string, bool) {
	kw := strings.ToLower(keyword)
	for i, line := range lines {
		if !strings.Contains(strings.ToLower(document.LineText(line)), kw) {
			continue
		}

		colon := -1
		for j, f := range line {
			if strings.Contains(f.Text, ":") {
				colon = j
				break
			}
		}
		if colon >= 0 {
			_, after, _ := strings.Cut(line[colon].Text, ":")
			if v := strings.TrimSpace(after); v != "" {
				return v, true
			}
			if colon+1 < len(line) {
				if v := strings.TrimSpace(document.LineText(line[colon+1:])); v != "" {
					return v, true
				}
			}
		}

		if i+1 < len(lines) {
			next := strings.TrimSpace(document.LineText(lines[i+1]))
			if next != "" && !containsAnyLabel(next) {
				return next, true
			}
		}
	}
	return "", false
}

func containsAnyLabel(s string) bool {
	s = strings.ToLower(s)
	for _, l := range labels {
		for _, kw := range l.keywords {
			if strings.Contains(s, strings.ToLower(kw)) {
				return true
			}
		}
	}
	return false
}

func (e *Extractor) extractTaxTable(lines [][]document.Fragment, fields entity.FieldMap) {
	for _, line := range lines {
		lineText := document.LineText(line)
		lower := strings.ToLower(lineText)
		for _, row := range taxRows {
			if _, done := fields[row.field]; done {
				continue
			}
			if !hasFragment(line, row.letter) && !strings.Contains(lower, strings.ToLower(row.word)) {
				continue
			}
			m := reTrailingAmount.FindStringSubmatch(lineText)
			if m == nil {
				continue
			}
			amount, ok := text.ParseAmount(m[1])
			if !ok {
				continue
			}
			fields[row.field] = entity.NewFieldValue(amount, tableConfidence, constants.StrategyLayout, m[1])
		}
	}
	for _, row := range taxRows {
		if _, ok := fields[row.field]; !ok {
			fields[row.field] = entity.NewFieldValue(0.0, tableMissConfidence, constants.StrategyDefault, "")
		}
	}
}

func hasFragment(line []document.Fragment, want string) bool {
	for _, f := range line {
		if strings.TrimSpace(f.Text) == want {
			return true
		}
	}
	return false
}
