package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/challan-processor/constants"
	"github.com/joseph-ayodele/challan-processor/internal/core/extract/text"
	"github.com/joseph-ayodele/challan-processor/internal/entity"
)

// BuildRecord converts merged fields into a typed record with a fresh ID and dedupe hash.
func BuildRecord(fields entity.FieldMap, source string, dateFormats []string) *entity.Record {
	r := entity.NewRecord(source)
	r.ID = uuid.NewString()

	r.TAN = fields.String(constants.FieldTAN)
	r.DeductorName = fields.String(constants.FieldDeductorName)
	r.AssessmentYear = fields.String(constants.FieldAssessmentYear)
	r.FinancialYear = fields.String(constants.FieldFinancialYear)
	r.MajorHead = fields.String(constants.FieldMajorHead)
	r.MinorHead = fields.String(constants.FieldMinorHead)
	r.NatureOfPayment = fields.String(constants.FieldNatureOfPayment)
	r.AmountInWords = fields.String(constants.FieldAmountInWords)
	r.CIN = fields.String(constants.FieldCIN)
	r.BSRCode = fields.String(constants.FieldBSRCode)
	r.ChallanNo = fields.String(constants.FieldChallanNo)
	r.BankName = fields.String(constants.FieldBankName)
	r.BankRefNo = fields.String(constants.FieldBankRefNo)
	r.ModeOfPayment = fields.String(constants.FieldModeOfPayment)

	if v, ok := floatOf(fields, constants.FieldTotalAmount); ok {
		r.TotalAmount = entity.Float64(v)
	}
	r.DateOfDeposit = dateOf(fields, constants.FieldDateOfDeposit, dateFormats)
	r.TenderDate = dateOf(fields, constants.FieldTenderDate, dateFormats)

	r.TaxBreakup = entity.TaxBreakup{
		TaxA: floatOrZero(fields, constants.FieldTaxA),
		TaxB: floatOrZero(fields, constants.FieldTaxB),
		TaxC: floatOrZero(fields, constants.FieldTaxC),
		TaxD: floatOrZero(fields, constants.FieldTaxD),
		TaxE: floatOrZero(fields, constants.FieldTaxE),
		TaxF: floatOrZero(fields, constants.FieldTaxF),
	}

	r.ComputeHash()
	return r
}

func floatOf(fields entity.FieldMap, name string) (float64, bool) {
	fv, ok := fields[name]
	if !ok {
		return 0, false
	}
	switch v := fv.Value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case *float64:
		if v != nil {
			return *v, true
		}
	case string:
		return text.ParseAmount(v)
	}
	return 0, false
}

func floatOrZero(fields entity.FieldMap, name string) float64 {
	v, _ := floatOf(fields, name)
	return v
}

func dateOf(fields entity.FieldMap, name string, formats []string) *entity.Date {
	fv, ok := fields[name]
	if !ok {
		return nil
	}
	var d entity.Date
	switch v := fv.Value.(type) {
	case entity.Date:
		d = v
	case time.Time:
		d = entity.DateOf(v)
	case string:
		t, ok := text.ParseDate(v, formats)
		if !ok {
			return nil
		}
		d = entity.DateOf(t)
	default:
		return nil
	}
	return &d
}
