package common

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestValidatorCollectsAllFailures(t *testing.T) {
	v := NewValidator()
	v.Field("name", "  ", Required).
		Field("id", "not-a-uuid", UUID).
		Field("ok", uuid.NewString(), UUID).
		Field("mode", "fast", OneOf("slow", "medium")).
		Field("note", "abcdef", MaxLength(3))

	assert.True(t, v.HasErrors())
	assert.Len(t, v.Errors(), 4)
	assert.Contains(t, v.ErrorMessage(), "'name'")
	assert.Contains(t, v.ErrorMessage(), "; ")
	assert.ErrorIs(t, v.Error(), ErrValidation)
}

func TestValidatorNumericRules(t *testing.T) {
	tests := []struct {
		name  string
		rule  ValidationRule
		value interface{}
		fails bool
	}{
		{"non-negative ok", NonNegative, 0.0, false},
		{"non-negative fails", NonNegative, -0.1, true},
		{"positive fails on zero", Positive, 0.0, true},
		{"fraction ok", Fraction, 0.7, false},
		{"fraction fails", Fraction, 1.2, true},
		{"odd window ok", OddAtLeastThree, 11, false},
		{"even window fails", OddAtLeastThree, 10, true},
		{"tiny window fails", OddAtLeastThree, 1, true},
		{"empty list fails", NonEmptyList, []string{}, true},
		{"iso date ok", ISODate, "2025-10-07", false},
		{"iso date fails", ISODate, "07-Oct-2025", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule("f", tt.value)
			if tt.fails {
				assert.NotNil(t, err)
			} else {
				assert.Nil(t, err)
			}
		})
	}
}

func TestValidatorNoErrors(t *testing.T) {
	v := NewValidator().Field("name", "challan", Required)
	assert.False(t, v.HasErrors())
	assert.NoError(t, v.Error())
	assert.Empty(t, v.ErrorMessage())
}
