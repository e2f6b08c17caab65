package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/challan-processor/constants"
	"github.com/joseph-ayodele/challan-processor/internal/entity"
)

func fv(value any, conf float64, s constants.Strategy) entity.FieldValue {
	return entity.NewFieldValue(value, conf, s, "")
}

func TestMerge(t *testing.T) {
	primary := entity.FieldMap{
		"tan":       fv("BLRS05586H", 0.98, constants.StrategyText),
		"cin":       fv("SHORT", 0.7, constants.StrategyText),
		"bsr_code":  fv("", 0.85, constants.StrategyText),
		"bank_name": fv("HDFC Bank", 0.85, constants.StrategyText),
	}
	secondary := entity.FieldMap{
		"tan":         fv("XXXX00000X", 0.85, constants.StrategyLayout),
		"cin":         fv("25100700517216HDFC", 0.85, constants.StrategyLayout),
		"bsr_code":    fv("0510016", 0.85, constants.StrategyLayout),
		"bank_name":   fv("ICICI Bank", 0.85, constants.StrategyLayout),
		"bank_ref_no": fv("N2528040495795", 0.85, constants.StrategyLayout),
	}

	merged := Merge(primary, secondary)

	assert.Equal(t, "BLRS05586H", merged["tan"].Value, "lower confidence loses")
	assert.Equal(t, "25100700517216HDFC", merged["cin"].Value, "higher confidence wins")
	assert.Equal(t, "0510016", merged["bsr_code"].Value, "tie fills an empty primary")
	assert.Equal(t, "HDFC Bank", merged["bank_name"].Value, "tie keeps a non-empty primary")
	assert.Equal(t, "N2528040495795", merged["bank_ref_no"].Value, "secondary-only field adopted")

	require.Len(t, primary, 4)
	assert.Equal(t, "SHORT", primary["cin"].Value)
	assert.NotContains(t, primary, "bank_ref_no")
}

func TestMergeTieTreatsZeroAmountAsEmpty(t *testing.T) {
	primary := entity.FieldMap{
		constants.FieldTaxA: fv(0.0, 0.75, constants.StrategyDefault),
		constants.FieldTaxB: fv(120.0, 0.75, constants.StrategyText),
	}
	secondary := entity.FieldMap{
		constants.FieldTaxA: fv(500.0, 0.75, constants.StrategyOCR),
		constants.FieldTaxB: fv(0.0, 0.75, constants.StrategyOCR),
	}

	merged := Merge(primary, secondary)

	assert.Equal(t, 500.0, merged[constants.FieldTaxA].Value)
	assert.Equal(t, constants.StrategyOCR, merged[constants.FieldTaxA].Strategy)
	assert.Equal(t, 120.0, merged[constants.FieldTaxB].Value, "zero secondary never replaces a real amount")
}

func TestMergeWithEmptyInputs(t *testing.T) {
	m := entity.FieldMap{"tan": fv("A", 0.5, constants.StrategyText)}
	assert.Equal(t, m, Merge(m, nil))
	assert.Equal(t, m, Merge(nil, m))
	assert.Empty(t, Merge(nil, nil))
}

func TestCompleteness(t *testing.T) {
	fields := entity.FieldMap{
		constants.FieldTAN:         fv("BLRS05586H", 0.98, constants.StrategyText),
		constants.FieldCIN:         fv("25100700517216HDFC", 0.95, constants.StrategyText),
		constants.FieldTotalAmount: fv(19395.0, 0.95, constants.StrategyText),
		constants.FieldChallanNo:   fv(nil, 0.3, constants.StrategyText),
	}
	assert.InDelta(t, 0.6, Completeness(fields), 1e-9)
	assert.Zero(t, Completeness(nil))
}

func TestRowConfidence(t *testing.T) {
	fields := entity.FieldMap{
		constants.FieldTAN:     fv("BLRS05586H", 0.9, constants.StrategyText),
		constants.FieldBSRCode: fv("0510016", 0.6, constants.StrategyText),
		constants.FieldTaxA:    fv(0.0, 0.3, constants.StrategyDefault),
	}
	weights := map[string]float64{constants.FieldTAN: 3, constants.FieldBSRCode: 1}

	assert.InDelta(t, (2.7+0.6+0.3)/5, RowConfidence(fields, weights, 1), 1e-9)
	assert.Zero(t, RowConfidence(entity.FieldMap{}, weights, 1))
}

func TestBuildRecord(t *testing.T) {
	formats := []string{"02-Jan-2006"}
	fields := entity.FieldMap{
		constants.FieldTAN:           fv("BLRS05586H", 0.98, constants.StrategyText),
		constants.FieldCIN:           fv("25100700517216HDFC", 0.95, constants.StrategyText),
		constants.FieldChallanNo:     fv("12866", 0.9, constants.StrategyText),
		constants.FieldTotalAmount:   fv("₹ 19,395", 0.85, constants.StrategyLayout),
		constants.FieldDateOfDeposit: fv("07-Oct-2025", 0.85, constants.StrategyLayout),
		constants.FieldTenderDate:    fv("2025-10-06", 0.95, constants.StrategyText),
		constants.FieldTaxA:          fv("19,395.00", 0.9, constants.StrategyLayout),
		constants.FieldTaxB:          fv(nil, 0.5, constants.StrategyText),
	}

	r := BuildRecord(fields, "a.pdf", formats)

	require.NotNil(t, r.TotalAmount)
	assert.Equal(t, 19395.0, *r.TotalAmount)
	require.NotNil(t, r.DateOfDeposit)
	assert.Equal(t, "2025-10-07", r.DateOfDeposit.String())
	require.NotNil(t, r.TenderDate)
	assert.Equal(t, "2025-10-06", r.TenderDate.String())
	assert.Equal(t, entity.TaxBreakup{TaxA: 19395}, r.TaxBreakup)
	assert.Equal(t, "a.pdf", r.SourceFile)
	assert.NotEmpty(t, r.ID)
	assert.Len(t, r.RecordHash, 16)

	other := BuildRecord(fields, "b.pdf", formats)
	assert.NotEqual(t, r.ID, other.ID)
	assert.Equal(t, r.RecordHash, other.RecordHash)
}

func TestBuildRecordMissingValues(t *testing.T) {
	r := BuildRecord(entity.FieldMap{
		constants.FieldTotalAmount:   fv("n/a", 0.3, constants.StrategyText),
		constants.FieldDateOfDeposit: fv(nil, 0.3, constants.StrategyText),
	}, "x.pdf", nil)

	assert.Nil(t, r.TotalAmount)
	assert.Nil(t, r.DateOfDeposit)
	assert.Empty(t, r.TAN)
	assert.Equal(t, constants.ValidationPending, r.ValidationFlag)
	assert.Equal(t, constants.ReviewPending, r.ReviewStatus)
}
