package text

import (
	"regexp"

	"github.com/joseph-ayodele/challan-processor/constants"
)

type fieldPattern struct {
	name string
	re   *regexp.Regexp
	// stop truncates a single-line capture at the first case-insensitive occurrence.
	stop string
}

const datePattern = `(\d{2}[-/][A-Za-z]{3}[-/]\d{4}|\d{2}[-/]\d{2}[-/]\d{4})`

const amountPattern = `[₹Rs.\s]*([0-9,]+(?:\.\d{2})?)`

func mustField(name, expr, stop string) fieldPattern {
	return fieldPattern{name: name, re: regexp.MustCompile(`(?im)` + expr), stop: stop}
}

// fieldPatterns are applied to the whole page text in this order; the first match wins.
var fieldPatterns = []fieldPattern{
	mustField(constants.FieldTAN, `TAN\s*:?\s*([A-Z]{4}[0-9]{5}[A-Z])`, ""),
	mustField(constants.FieldDeductorName, `Name\s*:?\s*([A-Z][A-Za-z0-9 \t&.,()-]+)`, "Assessment"),
	mustField(constants.FieldAssessmentYear, `Assessment\s*Year\s*:?\s*(\d{4}-\d{2})`, ""),
	mustField(constants.FieldFinancialYear, `Financial\s*Year\s*:?\s*(\d{4}-\d{2})`, ""),
	mustField(constants.FieldMajorHead, `Major\s*Head\s*:?\s*(.+)`, "Minor"),
	mustField(constants.FieldMinorHead, `Minor\s*Head\s*:?\s*(.+)`, "Nature"),
	mustField(constants.FieldNatureOfPayment, `Nature\s*of\s*Payment\s*:?\s*(\d{2,3}[A-Z]?|\w+)`, ""),
	mustField(constants.FieldTotalAmount, `Amount\s*\(in\s*Rs\.\)\s*:?\s*`+amountPattern, ""),
	mustField(constants.FieldAmountInWords, `Amount\s*\(in\s*words\)\s*:?\s*(.+)`, "CIN"),
	mustField(constants.FieldCIN, `CIN\s*:?\s*([A-Z0-9]+)`, ""),
	mustField(constants.FieldBSRCode, `BSR\s*Code\s*:?\s*(\d+)`, ""),
	mustField(constants.FieldChallanNo, `Challan\s*No\.?\s*:?\s*(\d+)`, ""),
	mustField(constants.FieldDateOfDeposit, `Date\s*of\s*Deposit\s*:?\s*`+datePattern, ""),
	mustField(constants.FieldTenderDate, `Tender\s*Date\s*:?\s*`+datePattern, ""),
	mustField(constants.FieldBankName, `Bank\s*Name\s*:?\s*([A-Za-z \t]+Bank)`, ""),
	mustField(constants.FieldBankRefNo, `Bank\s*Reference\s*Number\s*:?\s*([A-Z0-9]+)`, ""),
	mustField(constants.FieldModeOfPayment, `Mode\s*of\s*Payment\s*:?\s*([A-Za-z \t]+)`, ""),
}

// taxPatterns match the A..F rows of the tax breakup table.
var taxPatterns = []fieldPattern{
	mustField(constants.FieldTaxA, `A\s+Tax\s+`+amountPattern, ""),
	mustField(constants.FieldTaxB, `B\s+Surcharge\s+`+amountPattern, ""),
	mustField(constants.FieldTaxC, `C\s+Cess\s+`+amountPattern, ""),
	mustField(constants.FieldTaxD, `D\s+Interest\s+`+amountPattern, ""),
	mustField(constants.FieldTaxE, `E\s+Penalty\s+`+amountPattern, ""),
	mustField(constants.FieldTaxF, `F\s+Fee\s+under\s+section\s+234E\s+`+amountPattern, ""),
}
