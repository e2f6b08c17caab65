package constants

import "strings"

// ValidationStatus is the validator's outcome stored on a record.
type ValidationStatus string

// Stable values (stored as-is in the sqlite store and in exports).
const (
	ValidationOK      ValidationStatus = "OK"
	ValidationFlag    ValidationStatus = "FLAG"
	ValidationPending ValidationStatus = "PENDING" // not validated yet
)

// ReviewStatus is the human review state; the pipeline only ever sets PENDING_REVIEW.
type ReviewStatus string

const (
	ReviewPending   ReviewStatus = "PENDING_REVIEW"
	ReviewAccepted  ReviewStatus = "ACCEPTED"
	ReviewRejected  ReviewStatus = "REJECTED"
	ReviewCorrected ReviewStatus = "CORRECTED"
)

var allReviewStatuses = []ReviewStatus{ReviewPending, ReviewAccepted, ReviewRejected, ReviewCorrected}

// ParseReviewStatus canonicalizes user input ("accepted", " Rejected ") into a ReviewStatus.
func ParseReviewStatus(input string) (ReviewStatus, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(input))
	if normalized == "" {
		return ReviewPending, false
	}
	normalized = strings.ReplaceAll(normalized, " ", "_")
	if normalized == "PENDING" {
		return ReviewPending, true
	}
	for _, s := range allReviewStatuses {
		if normalized == string(s) {
			return s, true
		}
	}
	return ReviewPending, false
}

// Severity of a validation issue. Only errors flip a record to FLAG.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)
