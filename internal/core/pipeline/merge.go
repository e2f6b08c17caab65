package pipeline

import (
	"github.com/joseph-ayodele/challan-processor/constants"
	"github.com/joseph-ayodele/challan-processor/internal/entity"
)

// Merge combines two strategy outputs into a new map. A field only in secondary is adopted;
// a field in both keeps the strictly more confident value, and on a tie secondary wins only
// when it fills a blank primary (empty, or a numeric zero). Neither input is modified.
func Merge(primary, secondary entity.FieldMap) entity.FieldMap {
	merged := primary.Clone()
	for name, sec := range secondary {
		pri, ok := merged[name]
		switch {
		case !ok:
			merged[name] = sec
		case sec.Confidence > pri.Confidence:
			merged[name] = sec
		case sec.Confidence == pri.Confidence && blank(pri) && !blank(sec):
			merged[name] = sec
		}
	}
	return merged
}

// blank treats a zero amount like a missing one, so a tied real tax value replaces a 0.0 default.
func blank(fv entity.FieldValue) bool {
	if fv.IsEmpty() {
		return true
	}
	switch v := fv.Value.(type) {
	case float64:
		return v == 0
	case int:
		return v == 0
	case *float64:
		return *v == 0
	}
	return false
}

// Completeness is the fraction of required fields holding a non-empty value.
func Completeness(fields entity.FieldMap) float64 {
	if len(constants.RequiredFields) == 0 {
		return 1
	}
	var found int
	for _, f := range constants.RequiredFields {
		if fields.Has(f) {
			found++
		}
	}
	return float64(found) / float64(len(constants.RequiredFields))
}

// RowConfidence is the weighted mean confidence of every field in the map. Fields missing
// from weights count with weight other.
func RowConfidence(fields entity.FieldMap, weights map[string]float64, other float64) float64 {
	var total, sum float64
	for name, fv := range fields {
		w, ok := weights[name]
		if !ok {
			w = other
		}
		total += w
		sum += w * fv.Confidence
	}
	if total == 0 {
		return 0
	}
	return sum / total
}
