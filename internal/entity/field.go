package entity

import (
	"strings"

	"github.com/joseph-ayodele/challan-processor/constants"
)

// FieldValue is one extracted value tagged with the confidence and strategy that produced it.
// Values are treated as immutable; merging builds new maps instead of editing entries.
type FieldValue struct {
	Value      any                `json:"value"`
	Confidence float64            `json:"confidence"`
	Strategy   constants.Strategy `json:"strategy"`
	RawText    string             `json:"raw_text,omitempty"`
}

// NewFieldValue builds a FieldValue with confidence clamped into [0,1].
func NewFieldValue(value any, confidence float64, strategy constants.Strategy, raw string) FieldValue {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return FieldValue{Value: value, Confidence: confidence, Strategy: strategy, RawText: raw}
}

// IsEmpty reports a nil value or a blank string.
func (f FieldValue) IsEmpty() bool {
	switch v := f.Value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case *float64:
		return v == nil
	}
	return false
}

// WithConfidence returns a copy with a new confidence and strategy.
func (f FieldValue) WithConfidence(confidence float64, strategy constants.Strategy) FieldValue {
	return NewFieldValue(f.Value, confidence, strategy, f.RawText)
}

// FieldMap maps field names to their best known value. Absence means "not found",
// which is different from an explicit zero value.
type FieldMap map[string]FieldValue

// Clone returns a shallow copy; FieldValue entries are values, so the copy is independent.
func (m FieldMap) Clone() FieldMap {
	out := make(FieldMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Has reports whether name is present with a non-empty value.
func (m FieldMap) Has(name string) bool {
	v, ok := m[name]
	return ok && !v.IsEmpty()
}

// String returns the value of name as a trimmed string, or "" when absent or not a string.
func (m FieldMap) String(name string) string {
	v, ok := m[name]
	if !ok {
		return ""
	}
	s, _ := v.Value.(string)
	return strings.TrimSpace(s)
}
