// Package validation applies the business rules a challan must pass before it is trusted:
// identifier formats, amount sanity, the tax breakup sum check, date sanity, required
// fields and duplicate detection.
package validation

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/challan-processor/constants"
	"github.com/joseph-ayodele/challan-processor/internal/common"
	"github.com/joseph-ayodele/challan-processor/internal/entity"
)

// Issue types.
const (
	IssueMissing     = "missing"
	IssueFormat      = "format"
	IssueInvalid     = "invalid"
	IssueSuspicious  = "suspicious"
	IssueSumMismatch = "sum_mismatch"
	IssueFutureDate  = "future_date"
	IssueOldDate     = "old_date"
	IssueDuplicate   = "duplicate"
)

// Issue is one rule violation.
type Issue struct {
	Field    string             `json:"field"`
	Type     string             `json:"issue_type"`
	Message  string             `json:"message"`
	Severity constants.Severity `json:"severity"`
}

// Result is the outcome of validating one record.
type Result struct {
	RecordID string  `json:"record_id"`
	IsValid  bool    `json:"is_valid"`
	Issues   []Issue `json:"issues"`
}

func (r Result) HasErrors() bool   { return r.has(constants.SeverityError) }
func (r Result) HasWarnings() bool { return r.has(constants.SeverityWarning) }

func (r Result) has(s constants.Severity) bool {
	for _, i := range r.Issues {
		if i.Severity == s {
			return true
		}
	}
	return false
}

// Config holds the rule parameters.
type Config struct {
	SumCheckTolerance float64
	TANPattern        string
	CINMinLength      int
	OldDateDays       int
}

// ConfigFrom maps application config onto validator config.
func ConfigFrom(c common.ValidationConfig) Config {
	return Config{
		SumCheckTolerance: c.SumCheckTolerance,
		TANPattern:        c.TANPattern,
		CINMinLength:      c.CINMinLength,
		OldDateDays:       c.OldDateDays,
	}
}

// Validator is safe for concurrent use when its HashSet is.
type Validator struct {
	cfg       Config
	tanRe     *regexp.Regexp
	tolerance decimal.Decimal
	seen      HashSet
	now       func() time.Time
	logger    *zap.Logger
}

type Option func(*Validator)

// WithHashSet replaces the in-memory duplicate scope.
func WithHashSet(s HashSet) Option {
	return func(v *Validator) {
		if s != nil {
			v.seen = s
		}
	}
}

// WithClock fixes "today" for the date rules.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

// New builds a validator; zero config values take the service defaults.
func New(cfg Config, logger *zap.Logger, opts ...Option) (*Validator, error) {
	if cfg.TANPattern == "" {
		cfg.TANPattern = `^[A-Z]{4}[0-9]{5}[A-Z]$`
	}
	if cfg.CINMinLength <= 0 {
		cfg.CINMinLength = 15
	}
	if cfg.OldDateDays <= 0 {
		cfg.OldDateDays = 3650
	}
	if cfg.SumCheckTolerance < 0 {
		return nil, common.NewAppError("CONFIG_ERROR", "sum check tolerance must not be negative", common.ErrInvalidInput)
	}
	tanRe, err := regexp.Compile(cfg.TANPattern)
	if err != nil {
		return nil, eris.Wrapf(err, "validation: compile tan pattern %q", cfg.TANPattern)
	}
	v := &Validator{
		cfg:       cfg,
		tanRe:     tanRe,
		tolerance: decimal.NewFromFloat(cfg.SumCheckTolerance),
		seen:      NewMemoryHashSet(),
		now:       time.Now,
		logger:    common.LoggerOrDefault(logger),
	}
	for _, o := range opts {
		o(v)
	}
	return v, nil
}

// Validate runs every rule against r, then sets its flag and notes. A record without an ID
// gets one, so validating the same record again never reports it as its own duplicate.
func (v *Validator) Validate(ctx context.Context, r *entity.Record) (Result, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	res := Result{RecordID: r.ID, IsValid: true}

	v.checkTAN(r, &res)
	v.checkCIN(r, &res)
	v.checkAmount(r, &res)
	v.checkSum(r, &res)
	v.checkDates(r, &res)
	v.checkRequired(r, &res)
	if err := v.checkDuplicate(ctx, r, &res); err != nil {
		return res, err
	}

	if res.HasErrors() {
		r.ValidationFlag = constants.ValidationFlag
		res.IsValid = false
	} else {
		r.ValidationFlag = constants.ValidationOK
	}
	r.Notes = notes(res.Issues)

	v.logger.Debug("record validated",
		zap.String("record_id", r.ID),
		zap.String("source_file", r.SourceFile),
		zap.String("flag", string(r.ValidationFlag)),
		zap.Int("issues", len(res.Issues)),
	)
	return res, nil
}

// ValidateBatch clears the duplicate scope, then validates records in order.
func (v *Validator) ValidateBatch(ctx context.Context, records []*entity.Record) ([]Result, error) {
	if err := v.Reset(ctx); err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(records))
	for _, r := range records {
		res, err := v.Validate(ctx, r)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// Reset forgets every hash seen so far.
func (v *Validator) Reset(ctx context.Context) error {
	return eris.Wrap(v.seen.Reset(ctx), "validation: reset seen hashes")
}

func (res *Result) add(field, typ, msg string, sev constants.Severity) {
	res.Issues = append(res.Issues, Issue{Field: field, Type: typ, Message: msg, Severity: sev})
}

func (v *Validator) checkTAN(r *entity.Record, res *Result) {
	if r.TAN == "" {
		res.add(constants.FieldTAN, IssueMissing, "TAN is missing", constants.SeverityError)
		return
	}
	if !v.tanRe.MatchString(r.TAN) {
		res.add(constants.FieldTAN, IssueFormat, "Invalid TAN format: "+r.TAN, constants.SeverityError)
	}
}

func (v *Validator) checkCIN(r *entity.Record, res *Result) {
	if r.CIN == "" {
		res.add(constants.FieldCIN, IssueMissing, "CIN is missing", constants.SeverityError)
		return
	}
	if len(r.CIN) < v.cfg.CINMinLength {
		res.add(constants.FieldCIN, IssueFormat,
			fmt.Sprintf("CIN too short: %s (min %d chars)", r.CIN, v.cfg.CINMinLength), constants.SeverityWarning)
	}
}

func (v *Validator) checkAmount(r *entity.Record, res *Result) {
	if r.TotalAmount == nil {
		res.add(constants.FieldTotalAmount, IssueMissing, "Total amount is missing", constants.SeverityError)
		return
	}
	switch amount := *r.TotalAmount; {
	case amount < 0:
		res.add(constants.FieldTotalAmount, IssueInvalid,
			"Negative total amount: "+strconv.FormatFloat(amount, 'f', -1, 64), constants.SeverityError)
	case amount == 0:
		res.add(constants.FieldTotalAmount, IssueSuspicious, "Total amount is zero", constants.SeverityWarning)
	}
}

func (v *Validator) checkSum(r *entity.Record, res *Result) {
	if r.TotalAmount == nil {
		return
	}
	var sum decimal.Decimal
	for _, c := range r.TaxBreakup.Components() {
		sum = sum.Add(decimal.NewFromFloat(c))
	}
	total := decimal.NewFromFloat(*r.TotalAmount)
	diff := total.Sub(sum)
	if diff.Abs().GreaterThan(v.tolerance) {
		res.add(constants.FieldTaxBreakup, IssueSumMismatch,
			fmt.Sprintf("Tax breakup sum (%s) != Total amount (%s), diff=%s",
				sum.StringFixed(2), total.StringFixed(2), diff.StringFixed(2)),
			constants.SeverityError)
	}
}

func (v *Validator) checkDates(r *entity.Record, res *Result) {
	if r.DateOfDeposit == nil || r.DateOfDeposit.IsZero() {
		res.add(constants.FieldDateOfDeposit, IssueMissing, "Date of deposit is missing", constants.SeverityError)
		return
	}
	today := entity.DateOf(v.now())
	deposit := *r.DateOfDeposit
	if deposit.After(today.Time) {
		res.add(constants.FieldDateOfDeposit, IssueFutureDate,
			"Date of deposit is in future: "+deposit.String(), constants.SeverityWarning)
	}
	if days := int(today.Sub(deposit.Time).Hours() / 24); days > v.cfg.OldDateDays {
		res.add(constants.FieldDateOfDeposit, IssueOldDate,
			"Date of deposit is more than 10 years old: "+deposit.String(), constants.SeverityWarning)
	}
}

func (v *Validator) checkRequired(r *entity.Record, res *Result) {
	required := []struct {
		field string
		value string
	}{
		{constants.FieldChallanNo, r.ChallanNo},
		{constants.FieldBSRCode, r.BSRCode},
		{constants.FieldBankName, r.BankName},
		{constants.FieldDeductorName, r.DeductorName},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			res.add(f.field, IssueMissing, constants.Title(f.field)+" is missing", constants.SeverityWarning)
		}
	}
}

func (v *Validator) checkDuplicate(ctx context.Context, r *entity.Record, res *Result) error {
	hash := r.ComputeHash()
	owner, err := v.seen.Claim(ctx, hash, r.ID)
	if err != nil {
		return eris.Wrapf(err, "validation: claim hash %s", hash)
	}
	if owner != r.ID {
		res.add(constants.FieldRecord, IssueDuplicate,
			fmt.Sprintf("Duplicate record detected (hash: %s)", hash), constants.SeverityError)
	}
	return nil
}

func notes(issues []Issue) string {
	parts := make([]string, 0, len(issues))
	for _, i := range issues {
		parts = append(parts, i.Field+": "+i.Message)
	}
	return strings.Join(parts, "; ")
}
