// Package testfixture renders sample challan receipts as text, fragments and records for tests.
package testfixture

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/challan-processor/constants"
	"github.com/joseph-ayodele/challan-processor/internal/core/document"
	"github.com/joseph-ayodele/challan-processor/internal/entity"
)

// Challan is one sample receipt. Amount is the displayed form, AmountValue the number.
type Challan struct {
	SourceFile      string
	TAN             string
	DeductorName    string
	AssessmentYear  string
	FinancialYear   string
	MajorHead       string
	MinorHead       string
	NatureOfPayment string
	Amount          string
	AmountValue     float64
	AmountInWords   string
	CIN             string
	ModeOfPayment   string
	BankName        string
	BankRefNo       string
	DateOfDeposit   string
	BSRCode         string
	ChallanNo       string
	TenderDate      string
	// TaxA overrides the A row when non-empty; by default the whole amount is tax.
	TaxA string
}

func base() Challan {
	return Challan{
		TAN:            "BLRS05586H",
		DeductorName:   "SYAMBHAVAN FOODS LLP",
		AssessmentYear: "2026-27",
		FinancialYear:  "2025-26",
		MinorHead:      "TDS/TCS Payable by Taxpayer (200)",
		ModeOfPayment:  "Net Banking",
		BankName:       "HDFC Bank",
		DateOfDeposit:  "07-Oct-2025",
		BSRCode:        "0510016",
		TenderDate:     "06/10/2025",
	}
}

// Samples are the three reference receipts.
func Samples() []Challan {
	a := base()
	a.SourceFile = "25100700517216HDFC_ChallanReceipt- Input Command Challan.pdf"
	a.MajorHead = "Corporation Tax (0020)"
	a.NatureOfPayment = "94J"
	a.Amount, a.AmountValue = "19,395", 19395
	a.AmountInWords = "Rupees Nineteen Thousand Three Hundred And Ninety Five Only"
	a.CIN = "25100700517216HDFC"
	a.BankRefNo = "N2528040495795"
	a.ChallanNo = "12866"

	b := base()
	b.SourceFile = "25100700523936HDFC_ChallanReceipt- For other Testing.pdf"
	b.MajorHead = "Income Tax (Other than Companies) (0021)"
	b.NatureOfPayment = "94I"
	b.Amount, b.AmountValue = "22,500", 22500
	b.AmountInWords = "Rupees Twenty Two Thousand Five Hundred Only"
	b.CIN = "25100700523936HDFC"
	b.BankRefNo = "N2528040497398"
	b.ChallanNo = "14644"

	c := base()
	c.SourceFile = "25100700528930HDFC_ChallanReceipt- For other Testing.pdf"
	c.MajorHead = "Income Tax (Other than Companies) (0021)"
	c.NatureOfPayment = "94T"
	c.Amount, c.AmountValue = "40,000", 40000
	c.AmountInWords = "Rupees Forty Thousand Only"
	c.CIN = "25100700528930HDFC"
	c.BankRefNo = "N2528040498645"
	c.ChallanNo = "15903"

	return []Challan{a, b, c}
}

// Mismatched is a receipt whose tax breakup (5,000) does not add up to its total (10,000).
func Mismatched() Challan {
	c := base()
	c.SourceFile = "mismatch.pdf"
	c.MajorHead = "Corporation Tax (0020)"
	c.NatureOfPayment = "94C"
	c.Amount, c.AmountValue = "10,000", 10000
	c.AmountInWords = "Rupees Ten Thousand Only"
	c.CIN = "TEST123456789HDFC"
	c.BankRefNo = "N0000000000001"
	c.ChallanNo = "99999"
	c.TaxA = "5,000"
	return c
}

type line struct {
	label string
	value string
}

func (c Challan) labelLines() []line {
	return []line{
		{"TAN", c.TAN},
		{"Name", c.DeductorName},
		{"Assessment Year", c.AssessmentYear},
		{"Financial Year", c.FinancialYear},
		{"Major Head", c.MajorHead},
		{"Minor Head", c.MinorHead},
		{"Nature of Payment", c.NatureOfPayment},
		{"Amount (in Rs.)", "₹ " + c.Amount},
		{"Amount (in words)", c.AmountInWords},
		{"CIN", c.CIN},
		{"Mode of Payment", c.ModeOfPayment},
		{"Bank Name", c.BankName},
		{"Bank Reference Number", c.BankRefNo},
		{"Date of Deposit", c.DateOfDeposit},
		{"BSR code", c.BSRCode},
		{"Challan No", c.ChallanNo},
		{"Tender Date", c.TenderDate},
	}
}

func (c Challan) taxRows() [][3]string {
	taxA := c.Amount
	if c.TaxA != "" {
		taxA = c.TaxA
	}
	return [][3]string{
		{"A", "Tax", taxA},
		{"B", "Surcharge", "0"},
		{"C", "Cess", "0"},
		{"D", "Interest", "0"},
		{"E", "Penalty", "0"},
		{"F", "Fee under section 234E", "0"},
	}
}

// Text renders the receipt the way a PDF text layer reads.
func (c Challan) Text() string {
	var b strings.Builder
	b.WriteString("Challan Receipt\nITNS No. : 281\n")
	for _, l := range c.labelLines() {
		fmt.Fprintf(&b, "%s : %s\n", l.label, l.value)
	}
	b.WriteString("Tax Breakup Details (Amount in Rs.)\n")
	for _, r := range c.taxRows() {
		fmt.Fprintf(&b, "%s %s ₹ %s\n", r[0], r[1], r[2])
	}
	fmt.Fprintf(&b, "Total (A+B+C+D+E+F) ₹ %s\n", c.Amount)
	return b.String()
}

// Fragments lays the receipt out as positioned fragments, one label and one value per line.
func (c Challan) Fragments() []document.Fragment {
	var frags []document.Fragment
	y := 20.0
	add := func(text string, x0, x1 float64) {
		frags = append(frags, document.Fragment{Text: text, X0: x0, Y0: y, X1: x1, Y1: y + 10})
	}
	add("Challan Receipt", 200, 320)
	y += 20
	for _, l := range c.labelLines() {
		add(l.label+" :", 40, 180)
		add(l.value, 200, 520)
		y += 20
	}
	add("Tax Breakup Details (Amount in Rs.)", 40, 320)
	y += 20
	for _, r := range c.taxRows() {
		add(r[0], 40, 48)
		add(r[1], 60, 240)
		add("₹ "+r[2], 400, 480)
		y += 20
	}
	return frags
}

// Document returns a one-page in-memory document carrying text and fragments.
func (c Challan) Document() *document.Static {
	return &document.Static{
		DocName: c.SourceFile,
		Pages:   []document.Page{{Text: c.Text(), Fragments: c.Fragments()}},
	}
}

// Record is the record a correct extraction of c yields, before validation.
func (c Challan) Record() *entity.Record {
	r := entity.NewRecord(c.SourceFile)
	r.ID = uuid.NewString()
	r.TAN = c.TAN
	r.DeductorName = c.DeductorName
	r.AssessmentYear = c.AssessmentYear
	r.FinancialYear = c.FinancialYear
	r.MajorHead = c.MajorHead
	r.MinorHead = c.MinorHead
	r.NatureOfPayment = c.NatureOfPayment
	r.TotalAmount = entity.Float64(c.AmountValue)
	r.AmountInWords = c.AmountInWords
	r.CIN = c.CIN
	r.BSRCode = c.BSRCode
	r.ChallanNo = c.ChallanNo
	r.BankName = c.BankName
	r.BankRefNo = c.BankRefNo
	r.ModeOfPayment = c.ModeOfPayment
	if t, err := time.Parse("02-Jan-2006", c.DateOfDeposit); err == nil {
		d := entity.DateOf(t)
		r.DateOfDeposit = &d
	}
	if t, err := time.Parse("02/01/2006", c.TenderDate); err == nil {
		d := entity.DateOf(t)
		r.TenderDate = &d
	}
	r.TaxBreakup.TaxA = c.AmountValue
	if c.TaxA != "" {
		var v float64
		_, _ = fmt.Sscanf(strings.ReplaceAll(c.TaxA, ",", ""), "%g", &v)
		r.TaxBreakup.TaxA = v
	}
	r.RowConfidence = 0.95
	r.ReviewStatus = constants.ReviewPending
	r.ComputeHash()
	return r
}
