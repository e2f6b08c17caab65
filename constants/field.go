package constants

import "strings"

// Field names shared by every extraction strategy, the record builder and the validator.
const (
	FieldTAN             = "tan"
	FieldDeductorName    = "deductor_name"
	FieldAssessmentYear  = "assessment_year"
	FieldFinancialYear   = "financial_year"
	FieldMajorHead       = "major_head"
	FieldMinorHead       = "minor_head"
	FieldNatureOfPayment = "nature_of_payment"
	FieldTotalAmount     = "total_amount"
	FieldAmountInWords   = "amount_in_words"
	FieldCIN             = "cin"
	FieldBSRCode         = "bsr_code"
	FieldChallanNo       = "challan_no"
	FieldDateOfDeposit   = "date_of_deposit"
	FieldTenderDate      = "tender_date"
	FieldBankName        = "bank_name"
	FieldBankRefNo       = "bank_ref_no"
	FieldModeOfPayment   = "mode_of_payment"

	FieldTaxA = "tax_a"
	FieldTaxB = "tax_b"
	FieldTaxC = "tax_c"
	FieldTaxD = "tax_d"
	FieldTaxE = "tax_e"
	FieldTaxF = "tax_f"

	// Pseudo fields used only by validation issues.
	FieldTaxBreakup = "tax_breakup"
	FieldRecord     = "record"
)

// MainFields lists the non-tax fields in extraction order.
var MainFields = []string{
	FieldTAN,
	FieldDeductorName,
	FieldAssessmentYear,
	FieldFinancialYear,
	FieldMajorHead,
	FieldMinorHead,
	FieldNatureOfPayment,
	FieldTotalAmount,
	FieldAmountInWords,
	FieldCIN,
	FieldBSRCode,
	FieldChallanNo,
	FieldDateOfDeposit,
	FieldTenderDate,
	FieldBankName,
	FieldBankRefNo,
	FieldModeOfPayment,
}

// TaxFields lists the six tax breakup components A..F.
var TaxFields = []string{FieldTaxA, FieldTaxB, FieldTaxC, FieldTaxD, FieldTaxE, FieldTaxF}

// RequiredFields drive the completeness score that triggers the OCR fallback.
var RequiredFields = []string{
	FieldTAN,
	FieldCIN,
	FieldTotalAmount,
	FieldDateOfDeposit,
	FieldChallanNo,
}

// IsTaxField reports whether name is one of tax_a..tax_f.
func IsTaxField(name string) bool {
	for _, f := range TaxFields {
		if f == name {
			return true
		}
	}
	return false
}

// Title turns a snake_case field name into a display title ("challan_no" -> "Challan No").
func Title(field string) string {
	parts := strings.Split(field, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + strings.ToLower(p[1:])
	}
	return strings.Join(parts, " ")
}

// Strategy identifies which extractor produced a field value.
type Strategy string

const (
	StrategyText    Strategy = "text"
	StrategyLayout  Strategy = "layout"
	StrategyOCR     Strategy = "ocr"
	StrategyDefault Strategy = "default"
)

// Extraction methods reported on pipeline results.
const (
	MethodText    = "text"
	MethodTextOCR = "text+ocr"
	MethodFailed  = "failed"
)
