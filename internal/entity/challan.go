package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/joseph-ayodele/challan-processor/constants"
)

// DateLayout is the ISO calendar-date form used for every date this service emits.
const DateLayout = "2006-01-02"

// Date is a calendar date serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

// NewDate returns the UTC midnight date for y-m-d.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// TaxBreakup holds the six tax components of a challan. Zero value means "no charge".
type TaxBreakup struct {
	TaxA float64 `json:"tax_a"` // tax
	TaxB float64 `json:"tax_b"` // surcharge
	TaxC float64 `json:"tax_c"` // cess
	TaxD float64 `json:"tax_d"` // interest
	TaxE float64 `json:"tax_e"` // penalty
	TaxF float64 `json:"tax_f"` // fee under section 234E
}

// Total is the derived sum of all six components.
func (t TaxBreakup) Total() float64 {
	return t.TaxA + t.TaxB + t.TaxC + t.TaxD + t.TaxE + t.TaxF
}

// Components returns the components in A..F order.
func (t TaxBreakup) Components() []float64 {
	return []float64{t.TaxA, t.TaxB, t.TaxC, t.TaxD, t.TaxE, t.TaxF}
}

// Record is the reconciled challan produced by the pipeline.
type Record struct {
	ID string `json:"id"`

	TAN            string `json:"tan,omitempty"`
	DeductorName   string `json:"deductor_name,omitempty"`
	AssessmentYear string `json:"assessment_year,omitempty"`
	FinancialYear  string `json:"financial_year,omitempty"`

	MajorHead       string `json:"major_head,omitempty"`
	MinorHead       string `json:"minor_head,omitempty"`
	NatureOfPayment string `json:"nature_of_payment,omitempty"`

	TotalAmount   *float64 `json:"total_amount,omitempty"`
	AmountInWords string   `json:"amount_in_words,omitempty"`

	CIN           string `json:"cin,omitempty"`
	BSRCode       string `json:"bsr_code,omitempty"`
	ChallanNo     string `json:"challan_no,omitempty"`
	DateOfDeposit *Date  `json:"date_of_deposit,omitempty"`
	TenderDate    *Date  `json:"tender_date,omitempty"`

	BankName      string `json:"bank_name,omitempty"`
	BankRefNo     string `json:"bank_ref_no,omitempty"`
	ModeOfPayment string `json:"mode_of_payment,omitempty"`

	TaxBreakup TaxBreakup `json:"tax_breakup"`

	SourceFile       string                     `json:"source_file"`
	RowConfidence    float64                    `json:"row_confidence"`
	ValidationFlag   constants.ValidationStatus `json:"validation_flag"`
	ReviewStatus     constants.ReviewStatus     `json:"review_status"`
	Notes            string                     `json:"notes"`
	FieldConfidences FieldMap                   `json:"field_confidences,omitempty"`
	RecordHash       string                     `json:"record_hash"`
}

// NewRecord returns an empty record in its initial lifecycle state.
func NewRecord(source string) *Record {
	return &Record{
		SourceFile:     source,
		ValidationFlag: constants.ValidationPending,
		ReviewStatus:   constants.ReviewPending,
	}
}

// ComputeHash sets and returns the dedupe hash: the first 16 hex chars of
// sha256(CIN || challan number || ISO deposit date).
func (r *Record) ComputeHash() string {
	var date string
	if r.DateOfDeposit != nil {
		date = r.DateOfDeposit.String()
	}
	sum := sha256.Sum256([]byte(r.CIN + r.ChallanNo + date))
	r.RecordHash = hex.EncodeToString(sum[:])[:16]
	return r.RecordHash
}

// Amount returns the total amount or 0 when absent.
func (r *Record) Amount() float64 {
	if r.TotalAmount == nil {
		return 0
	}
	return *r.TotalAmount
}

// Float64 is a small helper for building optional amounts.
func Float64(v float64) *float64 {
	return &v
}
