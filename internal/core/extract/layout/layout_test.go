package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/challan-processor/constants"
	"github.com/joseph-ayodele/challan-processor/internal/core/document"
	"github.com/joseph-ayodele/challan-processor/internal/testfixture"
)

func frag(text string, x, y float64) document.Fragment {
	return document.Fragment{Text: text, X0: x, Y0: y, X1: x + 8*float64(len(text)), Y1: y + 10}
}

func TestExtractSampleLayout(t *testing.T) {
	c := testfixture.Samples()[0]
	fields := NewExtractor(5, zap.NewNop()).Extract(c.Fragments())

	want := map[string]string{
		constants.FieldTAN:             "BLRS05586H",
		constants.FieldDeductorName:    "SYAMBHAVAN FOODS LLP",
		constants.FieldAssessmentYear:  "2026-27",
		constants.FieldMajorHead:       "Corporation Tax (0020)",
		constants.FieldNatureOfPayment: "94J",
		constants.FieldTotalAmount:     "₹ 19,395",
		constants.FieldCIN:             "25100700517216HDFC",
		constants.FieldBSRCode:         "0510016",
		constants.FieldChallanNo:       "12866",
		constants.FieldDateOfDeposit:   "07-Oct-2025",
		constants.FieldBankName:        "HDFC Bank",
		constants.FieldBankRefNo:       "N2528040495795",
	}
	for field, value := range want {
		fv, ok := fields[field]
		require.True(t, ok, field)
		assert.Equal(t, value, fv.Value, field)
		assert.InDelta(t, 0.85, fv.Confidence, 1e-9, field)
		assert.Equal(t, constants.StrategyLayout, fv.Strategy, field)
	}

	assert.Equal(t, 19395.0, fields[constants.FieldTaxA].Value)
	assert.InDelta(t, 0.9, fields[constants.FieldTaxA].Confidence, 1e-9)
	assert.Equal(t, 0.0, fields[constants.FieldTaxF].Value)
	assert.InDelta(t, 0.9, fields[constants.FieldTaxF].Confidence, 1e-9)
}

func TestValueResolutionOrder(t *testing.T) {
	tests := []struct {
		name  string
		frags []document.Fragment
		want  string
		found bool
	}{
		{
			name:  "text after colon in same fragment",
			frags: []document.Fragment{frag("TAN:BLRS05586H", 10, 10)},
			want:  "BLRS05586H", found: true,
		},
		{
			name:  "remaining fragments after colon fragment",
			frags: []document.Fragment{frag("TAN", 10, 10), frag(":", 50, 11), frag("BLRS05586H", 70, 12), frag("X", 200, 10)},
			want:  "BLRS05586H X", found: true,
		},
		{
			name:  "next line when label stands alone",
			frags: []document.Fragment{frag("TAN", 10, 10), frag("BLRS05586H", 10, 30)},
			want:  "BLRS05586H", found: true,
		},
		{
			name:  "next line holding another label is not a value",
			frags: []document.Fragment{frag("TAN", 10, 10), frag("CIN", 10, 30)},
			found: false,
		},
	}
	e := NewExtractor(5, zap.NewNop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fv, ok := e.Extract(tt.frags)[constants.FieldTAN]
			require.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.want, fv.Value)
			}
		})
	}
}

func TestAlternateKeyword(t *testing.T) {
	frags := []document.Fragment{frag("Amount(in Rs.) :", 10, 10), frag("500", 200, 10)}
	fields := NewExtractor(0, nil).Extract(frags)
	assert.Equal(t, "500", fields[constants.FieldTotalAmount].Value)
}

func TestExtractWithoutFragmentsYieldsNothing(t *testing.T) {
	assert.Empty(t, NewExtractor(5, zap.NewNop()).Extract(nil))
	assert.Empty(t, NewExtractor(5, zap.NewNop()).Extract([]document.Fragment{}))
}

func TestTaxTableDefaults(t *testing.T) {
	fields := NewExtractor(5, zap.NewNop()).Extract([]document.Fragment{frag("Nature of Payment : 94C", 40, 10)})

	for _, f := range constants.TaxFields {
		assert.Equal(t, 0.0, fields[f].Value)
		assert.InDelta(t, 0.7, fields[f].Confidence, 1e-9)
		assert.Equal(t, constants.StrategyDefault, fields[f].Strategy)
	}
}

func TestTaxTableMatchesByWordOrLetter(t *testing.T) {
	frags := []document.Fragment{
		frag("Surcharge", 60, 10), frag("₹ 1,200.50", 400, 10),
		frag("D", 40, 30), frag("Something", 60, 30), frag("75", 400, 30),
		frag("Penalty", 60, 50), frag("n/a", 400, 50),
	}
	fields := NewExtractor(5, zap.NewNop()).Extract(frags)

	assert.Equal(t, 1200.5, fields[constants.FieldTaxB].Value)
	assert.Equal(t, 75.0, fields[constants.FieldTaxD].Value)
	assert.InDelta(t, 0.7, fields[constants.FieldTaxE].Confidence, 1e-9)
}
